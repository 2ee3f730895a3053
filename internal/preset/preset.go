// Package preset provides named button mappings: the built-in controller
// layouts plus YAML files the user drops into the preset directory.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

// Preset is a named set of bindings.
type Preset struct {
	Name     string
	Bindings map[model.LogicalKey]uint32
	// Source is "builtin" or the file the preset was read from.
	Source string
}

// presetFile is the on-disk form:
//
//	name: My Controller
//	bindings:
//	  Key1: 1
//	  E1: 256
type presetFile struct {
	Name     string            `yaml:"name"`
	Bindings map[string]uint32 `yaml:"bindings"`
}

const builtinSource = "builtin"

func officialController() Preset {
	return Preset{
		Name: "Official Controller",
		Bindings: map[model.LogicalKey]uint32{
			model.Key1: 1 << 0,
			model.Key2: 1 << 1,
			model.Key3: 1 << 2,
			model.Key4: 1 << 3,
			model.Key5: 1 << 4,
			model.Key6: 1 << 5,
			model.Key7: 1 << 6,
			model.E1:   1 << 8,
			model.E2:   1 << 9,
			model.E3:   1 << 10,
			model.E4:   1 << 11,
		},
		Source: builtinSource,
	}
}

// Builtins returns the presets that ship with switchlife.
func Builtins() []Preset {
	official := officialController()
	phoenix := Preset{
		Name:     "PhoenixWAN",
		Bindings: model.CloneBindings(official.Bindings),
		Source:   builtinSource,
	}
	def := model.DefaultButtonMap()
	return []Preset{
		official,
		phoenix,
		{Name: def.ProfileName, Bindings: def.Bindings, Source: builtinSource},
	}
}

// LoadFile reads one YAML preset. A file without a name is named after its
// base name.
func LoadFile(path string) (Preset, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Preset{}, err
	}
	var pf presetFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return Preset{}, fmt.Errorf("failed to parse preset %s: %w", path, err)
	}
	name := strings.TrimSpace(pf.Name)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	bindings := make(map[model.LogicalKey]uint32, len(pf.Bindings))
	owner := make(map[uint32]model.LogicalKey, len(pf.Bindings))
	for raw, mask := range pf.Bindings {
		key, err := model.ParseLogicalKey(raw)
		if err != nil {
			return Preset{}, fmt.Errorf("preset %s: %w", path, err)
		}
		if mask != 0 {
			if prev, dup := owner[mask]; dup {
				return Preset{}, fmt.Errorf("preset %s: mask %d bound to both %s and %s", path, mask, prev, key)
			}
			owner[mask] = key
		}
		bindings[key] = mask
	}
	return Preset{Name: name, Bindings: bindings, Source: path}, nil
}

// List returns the built-in presets followed by the files in dir sorted by
// name. A missing dir yields only the built-ins; unreadable files are logged
// and skipped.
func List(dir string, log logger.Logger) []Preset {
	if log == nil {
		log = logger.Noop()
	}
	out := Builtins()
	if dir == "" {
		return out
	}
	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}
	var loaded []Preset
	for _, f := range files {
		p, err := LoadFile(f)
		if err != nil {
			log.Warn("skipping preset: %v", err)
			continue
		}
		loaded = append(loaded, p)
	}
	sort.Slice(loaded, func(i, j int) bool {
		return loaded[i].Name < loaded[j].Name
	})
	return append(out, loaded...)
}

// Find looks a preset up by case-insensitive name. User files shadow
// built-ins of the same name.
func Find(presets []Preset, name string) (Preset, bool) {
	var (
		found Preset
		ok    bool
	)
	for _, p := range presets {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			found, ok = p, true
		}
	}
	return found, ok
}

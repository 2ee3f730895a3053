package preset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

func TestBuiltins(t *testing.T) {
	presets := Builtins()
	if len(presets) != 3 {
		t.Fatalf("expected 3 builtins, got %d", len(presets))
	}
	official, ok := Find(presets, "official controller")
	if !ok {
		t.Fatalf("official preset missing")
	}
	if official.Bindings[model.Key1] != 1 || official.Bindings[model.Key7] != 64 {
		t.Fatalf("unexpected official bindings: %v", official.Bindings)
	}
	if official.Bindings[model.E3] != 1024 {
		t.Fatalf("expected E3 bound to 1024, got %d", official.Bindings[model.E3])
	}
	phoenix, ok := Find(presets, "PhoenixWAN")
	if !ok || phoenix.Bindings[model.Key1] != 1 {
		t.Fatalf("unexpected phoenix preset: %+v", phoenix)
	}
	def, ok := Find(presets, "Default")
	if !ok || def.Bindings[model.Key1] != 8 {
		t.Fatalf("unexpected default preset: %+v", def)
	}
}

func TestBuiltinsAreIndependentCopies(t *testing.T) {
	a := Builtins()
	a[1].Bindings[model.Key1] = 999
	b := Builtins()
	if b[0].Bindings[model.Key1] != 1 || b[1].Bindings[model.Key1] != 1 {
		t.Fatalf("builtins share state")
	}
}

func TestListReadsYAMLFiles(t *testing.T) {
	dir := t.TempDir()
	body := "name: Custom Pad\nbindings:\n  Key1: 4\n  key2: 8\n  Other-3: 16\n"
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("bindings: [1, 2"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	log := logger.NewBufferLogger()
	presets := List(dir, log)
	if len(presets) != 4 {
		t.Fatalf("expected 3 builtins + 1 file, got %d", len(presets))
	}
	p, ok := Find(presets, "custom pad")
	if !ok {
		t.Fatalf("custom preset missing")
	}
	if p.Bindings[model.Key1] != 4 || p.Bindings[model.Key2] != 8 || p.Bindings[model.OtherKey(3)] != 16 {
		t.Fatalf("unexpected bindings: %v", p.Bindings)
	}
	if !log.Contains("warn", "broken.yml") {
		t.Fatalf("expected warning for broken file, got %v", log.Messages())
	}
}

func TestLoadFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown-key.yaml": "bindings:\n  Turntable: 1\n",
		"duplicate.yaml":   "bindings:\n  Key1: 1\n  Key2: 1\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadFile(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadFileNamesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcade.yaml")
	if err := os.WriteFile(path, []byte("bindings:\n  Key1: 1\n  Key2: 0\n  Key3: 0\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Name != "arcade" || p.Source != path {
		t.Fatalf("unexpected preset: %+v", p)
	}
}

func TestFindUserFileShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "d.yaml"), []byte("name: Default\nbindings:\n  Key1: 2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, ok := Find(List(dir, nil), "default")
	if !ok || p.Bindings[model.Key1] != 2 {
		t.Fatalf("expected user preset to win, got %+v", p)
	}
	if _, ok := Find(Builtins(), "missing"); ok {
		t.Fatalf("unexpected match")
	}
}

// Package profile stores the user profile as a JSON file.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

// ErrSchemaMismatch is matched by errors.Is for any SchemaError.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// SchemaError reports a profile written by an incompatible version.
type SchemaError struct {
	Path     string
	Expected int
	Found    int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: expected %d, found %d (%s)", ErrSchemaMismatch, e.Expected, e.Found, e.Path)
}

// Is makes errors.Is(err, ErrSchemaMismatch) true.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchemaMismatch
}

// FileRepository reads and writes one profile file.
type FileRepository struct {
	path string
	log  logger.Logger
	now  func() time.Time
}

// NewFileRepository returns a repository for path.
func NewFileRepository(path string, log logger.Logger) *FileRepository {
	if log == nil {
		log = logger.New("[profile]")
	}
	return &FileRepository{path: path, log: log, now: time.Now}
}

// Path returns the profile file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the profile. A missing file yields the default profile. A file
// that is not valid JSON is moved aside and the default profile is returned.
// A schema version other than model.SchemaVersion is an error.
func (r *FileRepository) Load() (*model.UserProfile, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.log.Info("no profile at %s, using defaults", r.path)
			return model.DefaultProfile(), nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var header struct {
		SchemaVersion *int `json:"schema_version"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return r.quarantine(err)
	}
	found := 0
	if header.SchemaVersion != nil {
		found = *header.SchemaVersion
	}
	if found != model.SchemaVersion {
		return nil, &SchemaError{Path: r.path, Expected: model.SchemaVersion, Found: found}
	}

	p := &model.UserProfile{Config: model.DefaultAppConfig()}
	if err := json.Unmarshal(data, p); err != nil {
		return r.quarantine(err)
	}
	p.Normalize()
	return p, nil
}

func (r *FileRepository) quarantine(cause error) (*model.UserProfile, error) {
	aside := r.path + ".corrupt-" + strconv.FormatInt(r.now().Unix(), 10)
	if err := os.Rename(r.path, aside); err != nil {
		return nil, fmt.Errorf("failed to move unreadable profile aside: %w", err)
	}
	r.log.Warn("profile unreadable (%v), moved to %s, using defaults", cause, aside)
	return model.DefaultProfile(), nil
}

// Save writes p through a temp file in the same directory, so a crash never
// leaves a partially written profile.
func (r *FileRepository) Save(p *model.UserProfile) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(r.path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp profile: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync profile: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close profile: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

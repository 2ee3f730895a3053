package profile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/switchlife/internal/logger"
	"github.com/verte-zerg/switchlife/internal/model"
)

func sampleProfile() *model.UserProfile {
	p := model.DefaultProfile()
	replaced := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id := int64(7)
	p.Config.ChatterThresholdMs = 20
	p.Config.InputMethod = model.InputXInput
	p.Mapping.ProfileName = "Custom"
	p.Mapping.Bindings[model.OtherKey(3)] = 1 << 20
	p.Switches[model.Key1] = &model.SwitchData{
		SwitchModelID:  "omron_d2mv_01_1c3",
		Stats:          model.ButtonStats{TotalPresses: 100, TotalReleases: 99, TotalChatters: 3, TotalChatterReleases: 2, LastSessionPresses: 10},
		LastReplacedAt: &replaced,
	}
	p.Switches[model.E2] = &model.SwitchData{SwitchModelID: model.DefaultSwitchModelID}
	p.SwitchHistory = append(p.SwitchHistory, model.SwitchHistoryEntry{
		ID:            "01HZX0000000000000000000AA",
		Date:          replaced,
		Key:           model.Key1,
		OldModelID:    model.DefaultSwitchModelID,
		NewModelID:    "omron_d2mv_01_1c3",
		PreviousStats: model.ButtonStats{TotalPresses: 5000},
		EventType:     model.EventReplace,
	})
	p.RecentSessions = append(p.RecentSessions, model.SessionRecord{
		ID:           &id,
		StartTime:    replaced,
		EndTime:      replaced.Add(time.Hour),
		DurationSecs: 3600,
	})
	return p
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	repo := NewFileRepository(path, logger.Noop())

	want := sampleProfile()
	require.NoError(t, repo.Save(want))

	got, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingReturnsDefault(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "none.json"), logger.Noop())
	got, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(), got)
}

func TestLoadSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 2, "config": {}}`), 0o644))

	_, err := NewFileRepository(path, logger.Noop()).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaMismatch))

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Expected)
	assert.Equal(t, 2, se.Found)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "mismatched file must be left in place")
}

func TestLoadMissingVersionIsMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"config": {}}`), 0o644))
	_, err := NewFileRepository(path, logger.Noop()).Load()
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoadCorruptMovesAside(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 1, "config": `), 0o644))

	log := logger.NewBufferLogger()
	repo := NewFileRepository(path, log)
	repo.now = func() time.Time { return time.Unix(1700000000, 0) }

	got, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultProfile(), got)
	assert.True(t, log.HasLevel("warn"))

	_, err = os.Stat(path + ".corrupt-1700000000")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "profile.json")
	repo := NewFileRepository(path, logger.Noop())
	require.NoError(t, repo.Save(sampleProfile()))
	require.NoError(t, repo.Save(model.DefaultProfile()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "leftover %s", e.Name())
	}

	got, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "Default", got.Mapping.ProfileName)
}

func TestLoadFillsMissingCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"schema_version": 1, "mapping": {"profile_name": "x"}}`), 0o644))
	got, err := NewFileRepository(path, logger.Noop()).Load()
	require.NoError(t, err)
	assert.NotNil(t, got.Mapping.Bindings)
	assert.NotNil(t, got.Switches)
	assert.Equal(t, model.DefaultAppConfig(), got.Config)
}

package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

const settingsFile = "settings.json"

// SettingsStore persists the singleton group configuration as one flat
// JSON object.
type SettingsStore struct {
	path string
}

func NewSettingsStore(dir string) *SettingsStore {
	return &SettingsStore{path: filepath.Join(dir, settingsFile)}
}

// Load returns persisted settings, or defaults when no file exists yet.
func (s *SettingsStore) Load() (domain.Settings, error) {
	cfg := domain.DefaultSettings()
	err := readJSON(s.path, &cfg)
	if errors.Is(err, os.ErrNotExist) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.DefaultSettings(), err
	}
	return cfg, nil
}

func (s *SettingsStore) Save(cfg domain.Settings) error {
	return writeJSON(s.path, cfg)
}

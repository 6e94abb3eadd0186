package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

const historyFile = "history.json"

// HistoryStore persists the append-only submission log: user ID to list
// of daily outcomes.
type HistoryStore struct {
	path string
}

func NewHistoryStore(dir string) *HistoryStore {
	return &HistoryStore{path: filepath.Join(dir, historyFile)}
}

// Load returns the log, or an empty one when no file exists yet.
func (s *HistoryStore) Load() (map[string][]domain.HistoryEntry, error) {
	log := make(map[string][]domain.HistoryEntry)
	err := readJSON(s.path, &log)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]domain.HistoryEntry), nil
	}
	if err != nil {
		return make(map[string][]domain.HistoryEntry), err
	}
	return log, nil
}

func (s *HistoryStore) Save(log map[string][]domain.HistoryEntry) error {
	return writeJSON(s.path, log)
}

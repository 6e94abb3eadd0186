package store

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

const loaFile = "loas.json"

// LOAStore persists the leave-of-absence ledger: user ID to list of
// date ranges with reasons.
type LOAStore struct {
	path string
}

func NewLOAStore(dir string) *LOAStore {
	return &LOAStore{path: filepath.Join(dir, loaFile)}
}

// Load returns the ledger, or an empty one when no file exists yet.
func (s *LOAStore) Load() (map[string][]domain.LOAEntry, error) {
	ledger := make(map[string][]domain.LOAEntry)
	err := readJSON(s.path, &ledger)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]domain.LOAEntry), nil
	}
	if err != nil {
		return make(map[string][]domain.LOAEntry), err
	}
	return ledger, nil
}

func (s *LOAStore) Save(ledger map[string][]domain.LOAEntry) error {
	return writeJSON(s.path, ledger)
}

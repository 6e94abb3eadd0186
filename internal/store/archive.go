package store

import (
	"os"
	"path/filepath"

	"github.com/AISystem01/404TurfBot/internal/domain"
)

const archiveDir = "archive"

// ArchiveStore persists one immutable response-set snapshot per calendar
// day, one JSON object per date.
type ArchiveStore struct {
	dir string
}

func NewArchiveStore(dir string) *ArchiveStore {
	return &ArchiveStore{dir: filepath.Join(dir, archiveDir)}
}

func (s *ArchiveStore) pathFor(d domain.Date) string {
	return filepath.Join(s.dir, d.String()+".json")
}

// Exists reports whether a snapshot for the date has already been written.
func (s *ArchiveStore) Exists(d domain.Date) bool {
	_, err := os.Stat(s.pathFor(d))
	return err == nil
}

// Write stores the snapshot for the date. Callers check Exists first to
// keep snapshots immutable across repeated rollovers.
func (s *ArchiveStore) Write(d domain.Date, responses map[string]domain.AvailabilityRecord) error {
	return writeJSON(s.pathFor(d), responses)
}

// Read loads the snapshot for the date.
func (s *ArchiveStore) Read(d domain.Date) (map[string]domain.AvailabilityRecord, error) {
	snap := make(map[string]domain.AvailabilityRecord)
	if err := readJSON(s.pathFor(d), &snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// Clear removes every snapshot. Used by the clear-all admin operation.
func (s *ArchiveStore) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"photokeep/internal/config"
	"photokeep/internal/photo"
)

// Store manages all persisted deduplication state in a Pebble database.
type Store struct {
	db   *pebble.DB
	path string
}

// Open initializes or connects to the database under the configured data
// directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.StorePath())
}

// OpenPath opens the database at an explicit path.
func OpenPath(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database directory.
func (s *Store) Path() string {
	return s.path
}

// Stats reports entry counts per persisted range, for diagnostics and the
// status command.
type Stats struct {
	Photos       int
	IndexEntries int
	Queued       int
	Quarantined  int
}

// Stats counts entries in each range with a single pass per prefix.
func (s *Store) Stats() (Stats, error) {
	var stats Stats

	count := func(prefix []byte) (int, error) {
		iter, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: prefix,
			UpperBound: prefixUpperBound(prefix),
		})
		if err != nil {
			return 0, err
		}
		defer iter.Close()
		n := 0
		for iter.First(); iter.Valid(); iter.Next() {
			n++
		}
		return n, iter.Error()
	}

	var err error
	if stats.IndexEntries, err = count([]byte(indexPrefix)); err != nil {
		return stats, fmt.Errorf("count index entries: %w", err)
	}
	if stats.Queued, err = count([]byte(queuePrefix)); err != nil {
		return stats, fmt.Errorf("count queue entries: %w", err)
	}

	if err := s.EachPhoto(func(p *photo.Photo) error {
		stats.Photos++
		if p.Quarantined {
			stats.Quarantined++
		}
		return nil
	}); err != nil {
		return stats, err
	}
	return stats, nil
}

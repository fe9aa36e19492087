package store

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/pebble"

	"photokeep/internal/photo"
	"photokeep/internal/services"
)

// PutPhoto persists a photo record, replacing any existing record with the
// same identifier.
func (s *Store) PutPhoto(p *photo.Photo) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}
	if err := s.db.Set(photoKey(p.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("put photo %s: %w", p.ID, err)
	}
	return nil
}

// GetPhoto loads a photo record. Returns services.ErrNotFound when absent.
func (s *Store) GetPhoto(id string) (*photo.Photo, error) {
	value, closer, err := s.db.Get(photoKey(id))
	if err == pebble.ErrNotFound {
		return nil, services.Wrap(services.ErrNotFound, "store", "get photo", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get photo %s: %w", id, err)
	}
	defer closer.Close()

	data := append([]byte(nil), value...)
	p, err := photo.Decode(data)
	if err != nil {
		// Stored bytes that no longer decode are irrecoverable; tag them so
		// callers stop retrying.
		return nil, services.Wrap(services.ErrQuarantine, "store", "decode photo record", id, err)
	}
	return p, nil
}

// HasPhoto reports whether a record exists for id.
func (s *Store) HasPhoto(id string) (bool, error) {
	_, closer, err := s.db.Get(photoKey(id))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check photo %s: %w", id, err)
	}
	closer.Close()
	return true, nil
}

// EachPhoto iterates over every photo record in ascending identifier order.
func (s *Store) EachPhoto(fn func(*photo.Photo) error) error {
	prefix := []byte(photoPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("iterate photos: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		p, err := photo.Decode(iter.Value())
		if err != nil {
			return fmt.Errorf("decode photo at %s: %w", iter.Key(), err)
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return iter.Error()
}

// AllPhotos loads every record, ascending by identifier.
func (s *Store) AllPhotos() ([]*photo.Photo, error) {
	var photos []*photo.Photo
	err := s.EachPhoto(func(p *photo.Photo) error {
		photos = append(photos, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
	return photos, nil
}

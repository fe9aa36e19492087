package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"
)

// Enqueue marks a photo as awaiting duplicate verification. Idempotent.
func (s *Store) Enqueue(id string) error {
	if err := s.db.Set(queueKey(id), nil, pebble.Sync); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

// IsQueued reports whether a queue entry exists for id.
func (s *Store) IsQueued(id string) (bool, error) {
	_, closer, err := s.db.Get(queueKey(id))
	if err == pebble.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check queue entry %s: %w", id, err)
	}
	closer.Close()
	return true, nil
}

// RemoveQueued deletes a queue entry outside of an outcome batch, used when
// the queued photo record no longer exists.
func (s *Store) RemoveQueued(id string) error {
	if err := s.db.Delete(queueKey(id), pebble.Sync); err != nil {
		return fmt.Errorf("remove queue entry %s: %w", id, err)
	}
	return nil
}

// NextQueued returns the photo id of the lowest-keyed queue entry. Entries
// with unparsable keys are deleted in passing; dropped reports how many.
// Returns "" when the queue is empty.
func (s *Store) NextQueued() (id string, dropped int, err error) {
	prefix := []byte(queuePrefix)
	for {
		iter, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: prefix,
			UpperBound: prefixUpperBound(prefix),
		})
		if err != nil {
			return "", dropped, fmt.Errorf("iterate queue: %w", err)
		}
		if !iter.First() {
			err = iter.Error()
			iter.Close()
			return "", dropped, err
		}
		key := append([]byte(nil), iter.Key()...)
		iter.Close()

		id, parseErr := parseQueueKey(key)
		if parseErr == nil {
			return id, dropped, nil
		}
		if err := s.db.Delete(key, pebble.Sync); err != nil {
			return "", dropped, fmt.Errorf("delete malformed queue entry %s: %w", key, err)
		}
		dropped++
	}
}

// QueuedIDs lists all valid pending entries in ascending order.
func (s *Store) QueuedIDs() ([]string, error) {
	prefix := []byte(queuePrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate queue: %w", err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		if id, err := parseQueueKey(iter.Key()); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, iter.Error()
}

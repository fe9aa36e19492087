package store

import (
	"fmt"

	"github.com/cockroachdb/pebble"

	"photokeep/internal/photo"
)

// ApplyMerge commits a confirmed duplicate in one atomic batch: the
// canonical record absorbs the duplicate's asset keys, the duplicate's
// record, index entries, episode memberships, and queue entry disappear.
// The queue entry is deleted in the same batch, so its removal happens-after
// the decision is durable.
func (s *Store) ApplyMerge(canonical, dup *photo.Photo) error {
	canonical.UnionAssetKeys(dup)
	data, err := canonical.Encode()
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(photoKey(canonical.ID), data, nil); err != nil {
		return fmt.Errorf("merge: update canonical %s: %w", canonical.ID, err)
	}
	if err := batch.Delete(photoKey(dup.ID), nil); err != nil {
		return fmt.Errorf("merge: delete duplicate %s: %w", dup.ID, err)
	}
	if err := dropIndexEntries(batch, dup); err != nil {
		return err
	}
	if err := s.dropEpisodeEntries(batch, dup.ID); err != nil {
		return err
	}
	if err := batch.Delete(queueKey(dup.ID), nil); err != nil {
		return fmt.Errorf("merge: clear queue entry %s: %w", dup.ID, err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("merge: commit batch for %s: %w", dup.ID, err)
	}
	return nil
}

// ApplyPass records that verification exhausted all candidates without a
// match: the photo stays, only its queue entry is cleared. The record is
// re-persisted so a fingerprint computed during verification survives.
func (s *Store) ApplyPass(p *photo.Photo) error {
	data, err := p.Encode()
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(photoKey(p.ID), data, nil); err != nil {
		return fmt.Errorf("pass: update photo %s: %w", p.ID, err)
	}
	if err := batch.Delete(queueKey(p.ID), nil); err != nil {
		return fmt.Errorf("pass: clear queue entry %s: %w", p.ID, err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pass: commit batch for %s: %w", p.ID, err)
	}
	return nil
}

// ApplyQuarantine marks a photo permanently excluded: the record carries the
// reason, its index entries vanish so it never surfaces as a candidate, and
// its queue entry is cleared so it is not retried.
func (s *Store) ApplyQuarantine(p *photo.Photo, reason photo.QuarantineReason) error {
	p.Quarantine(reason)
	data, err := p.Encode()
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(photoKey(p.ID), data, nil); err != nil {
		return fmt.Errorf("quarantine: update photo %s: %w", p.ID, err)
	}
	if err := dropIndexEntries(batch, p); err != nil {
		return err
	}
	if err := batch.Delete(queueKey(p.ID), nil); err != nil {
		return fmt.Errorf("quarantine: clear queue entry %s: %w", p.ID, err)
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("quarantine: commit batch for %s: %w", p.ID, err)
	}
	return nil
}

package store

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"

	"photokeep/internal/photo"
)

// IndexPhoto persists a term→id association for every term of fp. Buckets
// are kept per format version; indexing the same photo under a newer format
// leaves prior-generation entries in place.
func (s *Store) IndexPhoto(id string, fp *photo.PerceptualFingerprint) error {
	if fp == nil || len(fp.Terms) == 0 {
		return fmt.Errorf("index photo %s: empty fingerprint", id)
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, termHex := range fp.TermKeys() {
		if err := batch.Set(indexKey(fp.FormatVersion, termHex, id), nil, nil); err != nil {
			return fmt.Errorf("index photo %s term %s: %w", id, termHex, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit index for photo %s: %w", id, err)
	}
	return nil
}

// Candidates returns every photo id other than selfID sharing an exact term
// with fp, in ascending identifier order. Matching is exact-term bucketing;
// visual similarity tolerance is the comparator's job, not the index's.
// Each format version's bucket is searched independently.
func (s *Store) Candidates(selfID string, fps ...*photo.PerceptualFingerprint) ([]string, error) {
	seen := make(map[string]struct{})
	for _, fp := range fps {
		if fp == nil {
			continue
		}
		for _, termHex := range fp.TermKeys() {
			ids, err := s.termMembers(fp.FormatVersion, termHex)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				if id == selfID {
					continue
				}
				seen[id] = struct{}{}
			}
		}
	}

	candidates := make([]string, 0, len(seen))
	for id := range seen {
		candidates = append(candidates, id)
	}
	sort.Strings(candidates)
	return candidates, nil
}

// termMembers lists a single bucket, ascending.
func (s *Store) termMembers(version int, termHex string) ([]string, error) {
	prefix := indexTermPrefix(version, termHex)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate term %s: %w", termHex, err)
	}
	defer iter.Close()

	var ids []string
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, strings.TrimPrefix(string(iter.Key()), string(prefix)))
	}
	return ids, iter.Error()
}

// PurgeIndex removes every fingerprint index entry derived from p, across
// all generations, without touching the photo record itself.
func (s *Store) PurgeIndex(p *photo.Photo) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	if err := dropIndexEntries(batch, p); err != nil {
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit index purge for %s: %w", p.ID, err)
	}
	return nil
}

// dropIndexEntries queues deletion of every index entry owned by p onto
// batch, across all fingerprint generations recorded on the photo.
func dropIndexEntries(batch *pebble.Batch, p *photo.Photo) error {
	if p.Perceptual != nil {
		for _, termHex := range p.Perceptual.TermKeys() {
			if err := batch.Delete(indexKey(p.Perceptual.FormatVersion, termHex, p.ID), nil); err != nil {
				return fmt.Errorf("drop index entry for %s: %w", p.ID, err)
			}
		}
	}
	// Prior-generation terms recorded as asset fingerprints may be indexed
	// under their own buckets.
	for _, af := range p.AssetFingerprints {
		termHex := hex.EncodeToString(af.Bytes)
		if err := batch.Delete(indexKey(af.FormatVersion, termHex, p.ID), nil); err != nil {
			return fmt.Errorf("drop legacy index entry for %s: %w", p.ID, err)
		}
	}
	return nil
}

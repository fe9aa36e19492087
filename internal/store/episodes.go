package store

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
)

// AddToEpisode records a photo's membership in an episode.
func (s *Store) AddToEpisode(photoID, episodeID string) error {
	if err := s.db.Set(episodeKey(photoID, episodeID), nil, pebble.Sync); err != nil {
		return fmt.Errorf("add %s to episode %s: %w", photoID, episodeID, err)
	}
	return nil
}

// EpisodesOf lists the episodes a photo belongs to, ascending.
func (s *Store) EpisodesOf(photoID string) ([]string, error) {
	prefix := episodePhotoPrefix(photoID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("iterate episodes of %s: %w", photoID, err)
	}
	defer iter.Close()

	var episodes []string
	for iter.First(); iter.Valid(); iter.Next() {
		episodes = append(episodes, strings.TrimPrefix(string(iter.Key()), string(prefix)))
	}
	return episodes, iter.Error()
}

// dropEpisodeEntries queues deletion of every membership of photoID onto
// batch.
func (s *Store) dropEpisodeEntries(batch *pebble.Batch, photoID string) error {
	episodes, err := s.EpisodesOf(photoID)
	if err != nil {
		return err
	}
	for _, episodeID := range episodes {
		if err := batch.Delete(episodeKey(photoID, episodeID), nil); err != nil {
			return fmt.Errorf("drop episode entry %s/%s: %w", photoID, episodeID, err)
		}
	}
	return nil
}

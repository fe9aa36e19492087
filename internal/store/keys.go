package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"photokeep/internal/services"
)

const (
	photoPrefix   = "photo:"
	indexPrefix   = "fpidx:"
	queuePrefix   = "dupq:"
	episodePrefix = "episode:"
)

func photoKey(id string) []byte {
	return []byte(photoPrefix + id)
}

func queueKey(id string) []byte {
	return []byte(queuePrefix + id)
}

// parseQueueKey recovers the photo identifier from a queue key. Identifiers
// are UUIDs; anything else is a malformed entry to be deleted and skipped.
func parseQueueKey(key []byte) (string, error) {
	raw := strings.TrimPrefix(string(key), queuePrefix)
	if _, err := uuid.Parse(raw); err != nil {
		return "", services.Wrap(services.ErrMalformedKey, "store", "parse queue key", string(key), err)
	}
	return raw, nil
}

// indexTermPrefix covers every member of one term's bucket under one format
// version.
func indexTermPrefix(version int, termHex string) []byte {
	return []byte(fmt.Sprintf("%sv%02d:%s:", indexPrefix, version, termHex))
}

func indexKey(version int, termHex, id string) []byte {
	return append(indexTermPrefix(version, termHex), id...)
}

func episodePhotoPrefix(photoID string) []byte {
	return []byte(episodePrefix + photoID + ":")
}

func episodeKey(photoID, episodeID string) []byte {
	return append(episodePhotoPrefix(photoID), episodeID...)
}

// prefixUpperBound returns the smallest key greater than every key with the
// given prefix, for use as an iterator upper bound.
func prefixUpperBound(prefix []byte) []byte {
	bound := append([]byte(nil), prefix...)
	for i := len(bound) - 1; i >= 0; i-- {
		if bound[i] < 0xff {
			bound[i]++
			return bound[:i+1]
		}
	}
	return nil
}

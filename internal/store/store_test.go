package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/google/uuid"

	"photokeep/internal/photo"
	"photokeep/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenPath(filepath.Join(t.TempDir(), "photokeep.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestPhoto(t *testing.T, term byte) *photo.Photo {
	t.Helper()
	p := &photo.Photo{
		ID:       uuid.NewString(),
		AssetURL: "asset://" + uuid.NewString(),
		Uploaded: true,
		Perceptual: &photo.PerceptualFingerprint{
			FormatVersion: 2,
			Terms:         [][]byte{{term, 0x01, 0x02, 0x03}},
		},
	}
	p.AddAssetKey(photo.AssetKey{AssetURL: p.AssetURL, Fingerprint: "00010203"})
	return p
}

func TestPhotoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	p := newTestPhoto(t, 0xaa)

	if err := s.PutPhoto(p); err != nil {
		t.Fatalf("PutPhoto: %v", err)
	}
	got, err := s.GetPhoto(p.ID)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if got.ID != p.ID || got.AssetURL != p.AssetURL {
		t.Errorf("round trip mismatch: %+v", got)
	}

	if _, err := s.GetPhoto(uuid.NewString()); err == nil {
		t.Error("expected not-found error for unknown photo")
	}
}

func TestGetPhotoCorruptRecordIsTerminal(t *testing.T) {
	s := newTestStore(t)
	id := uuid.NewString()
	if err := s.db.Set(photoKey(id), []byte("{not-json"), pebble.Sync); err != nil {
		t.Fatalf("seed corrupt record: %v", err)
	}

	_, err := s.GetPhoto(id)
	if err == nil {
		t.Fatal("expected error for corrupt record")
	}
	if !services.IsTerminal(err) {
		t.Errorf("corrupt record error not terminal: %v", err)
	}
	if errors.Is(err, services.ErrNotFound) {
		t.Errorf("corrupt record misreported as not found: %v", err)
	}
}

func TestCandidatesExactTermBuckets(t *testing.T) {
	s := newTestStore(t)

	a := newTestPhoto(t, 0xaa)
	b := newTestPhoto(t, 0xaa) // same term as a
	c := newTestPhoto(t, 0xbb) // different term
	for _, p := range []*photo.Photo{a, b, c} {
		if err := s.PutPhoto(p); err != nil {
			t.Fatalf("PutPhoto: %v", err)
		}
		if err := s.IndexPhoto(p.ID, p.Perceptual); err != nil {
			t.Fatalf("IndexPhoto: %v", err)
		}
	}

	cands, err := s.Candidates(a.ID, a.Perceptual)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 1 || cands[0] != b.ID {
		t.Errorf("expected only %s, got %v", b.ID, cands)
	}
}

func TestCandidatesPerFormatBucketsStayIndependent(t *testing.T) {
	s := newTestStore(t)

	// Same term bytes indexed under different format versions must not match
	// each other.
	term := []byte{0x10, 0x20}
	oldFormat := &photo.PerceptualFingerprint{FormatVersion: 1, Terms: [][]byte{term}}
	newFormat := &photo.PerceptualFingerprint{FormatVersion: 2, Terms: [][]byte{term}}

	a := newTestPhoto(t, 0x00)
	a.Perceptual = oldFormat
	b := newTestPhoto(t, 0x00)
	b.Perceptual = newFormat

	if err := s.IndexPhoto(a.ID, oldFormat); err != nil {
		t.Fatalf("IndexPhoto: %v", err)
	}
	if err := s.IndexPhoto(b.ID, newFormat); err != nil {
		t.Fatalf("IndexPhoto: %v", err)
	}

	cands, err := s.Candidates(b.ID, newFormat)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("cross-format match must not happen, got %v", cands)
	}

	// Searching both generations unions the buckets.
	cands, err = s.Candidates("", oldFormat, newFormat)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 2 {
		t.Errorf("expected both photos across buckets, got %v", cands)
	}
}

func TestQueueOrderAndMalformedKeys(t *testing.T) {
	s := newTestStore(t)

	first := "11111111-1111-1111-1111-111111111111"
	second := "22222222-2222-2222-2222-222222222222"
	if err := s.Enqueue(second); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Enqueue(first); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// A malformed entry sorts before both valid ones.
	if err := s.db.Set([]byte(queuePrefix+"0-bogus"), nil, pebble.Sync); err != nil {
		t.Fatalf("set malformed key: %v", err)
	}

	id, dropped, err := s.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if dropped != 1 {
		t.Errorf("expected 1 malformed entry dropped, got %d", dropped)
	}
	if id != first {
		t.Errorf("expected lowest-keyed valid entry %s, got %s", first, id)
	}

	queued, err := s.QueuedIDs()
	if err != nil {
		t.Fatalf("QueuedIDs: %v", err)
	}
	if len(queued) != 2 || queued[0] != first || queued[1] != second {
		t.Errorf("unexpected queue contents: %v", queued)
	}
}

func TestNextQueuedEmpty(t *testing.T) {
	s := newTestStore(t)
	id, dropped, err := s.NextQueued()
	if err != nil {
		t.Fatalf("NextQueued: %v", err)
	}
	if id != "" || dropped != 0 {
		t.Errorf("expected empty result, got id=%q dropped=%d", id, dropped)
	}
}

func TestApplyMerge(t *testing.T) {
	s := newTestStore(t)

	canonical := newTestPhoto(t, 0xcc)
	dup := newTestPhoto(t, 0xcc)
	dup.AddAssetKey(photo.AssetKey{AssetURL: "asset://extra", Fingerprint: "ff"})

	for _, p := range []*photo.Photo{canonical, dup} {
		if err := s.PutPhoto(p); err != nil {
			t.Fatalf("PutPhoto: %v", err)
		}
		if err := s.IndexPhoto(p.ID, p.Perceptual); err != nil {
			t.Fatalf("IndexPhoto: %v", err)
		}
	}
	if err := s.Enqueue(dup.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.AddToEpisode(dup.ID, "episode-1"); err != nil {
		t.Fatalf("AddToEpisode: %v", err)
	}

	if err := s.ApplyMerge(canonical, dup); err != nil {
		t.Fatalf("ApplyMerge: %v", err)
	}

	got, err := s.GetPhoto(canonical.ID)
	if err != nil {
		t.Fatalf("GetPhoto canonical: %v", err)
	}
	if !got.HasAssetKey(photo.AssetKey{AssetURL: "asset://extra", Fingerprint: "ff"}) {
		t.Error("canonical must carry the union of asset keys")
	}

	if ok, _ := s.HasPhoto(dup.ID); ok {
		t.Error("duplicate record must be deleted")
	}
	if queued, _ := s.IsQueued(dup.ID); queued {
		t.Error("queue entry must be cleared in the same batch")
	}
	if episodes, _ := s.EpisodesOf(dup.ID); len(episodes) != 0 {
		t.Errorf("episode membership must be cleared, got %v", episodes)
	}
	cands, err := s.Candidates(canonical.ID, canonical.Perceptual)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("duplicate must vanish from the index, got %v", cands)
	}
}

func TestApplyQuarantineExcludesFromIndex(t *testing.T) {
	s := newTestStore(t)

	p := newTestPhoto(t, 0xdd)
	other := newTestPhoto(t, 0xdd)
	for _, ph := range []*photo.Photo{p, other} {
		if err := s.PutPhoto(ph); err != nil {
			t.Fatalf("PutPhoto: %v", err)
		}
		if err := s.IndexPhoto(ph.ID, ph.Perceptual); err != nil {
			t.Fatalf("IndexPhoto: %v", err)
		}
	}
	if err := s.Enqueue(p.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := s.ApplyQuarantine(p, photo.QuarantineUndecodable); err != nil {
		t.Fatalf("ApplyQuarantine: %v", err)
	}

	got, err := s.GetPhoto(p.ID)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if !got.Quarantined || got.QuarantineReason != photo.QuarantineUndecodable {
		t.Errorf("quarantine state not persisted: %+v", got)
	}
	if queued, _ := s.IsQueued(p.ID); queued {
		t.Error("quarantined photo must not stay queued")
	}
	cands, err := s.Candidates(other.ID, other.Perceptual)
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("quarantined photo must not remain a candidate, got %v", cands)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)

	p := newTestPhoto(t, 0x01)
	q := newTestPhoto(t, 0x02)
	if err := s.PutPhoto(p); err != nil {
		t.Fatalf("PutPhoto: %v", err)
	}
	if err := s.PutPhoto(q); err != nil {
		t.Fatalf("PutPhoto: %v", err)
	}
	if err := s.IndexPhoto(p.ID, p.Perceptual); err != nil {
		t.Fatalf("IndexPhoto: %v", err)
	}
	if err := s.Enqueue(q.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.ApplyQuarantine(q, photo.QuarantineUndecodable); err != nil {
		t.Fatalf("ApplyQuarantine: %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Photos != 2 || stats.IndexEntries != 1 || stats.Queued != 0 || stats.Quarantined != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

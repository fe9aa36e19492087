package dedup

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"photokeep/internal/photo"
	"photokeep/internal/store"
	"photokeep/internal/testsupport"
)

func newVerifyFixture(t *testing.T) (*store.Store, *testsupport.FakeDecoder, *Comparator) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	return st, testsupport.NewFakeDecoder(), NewComparator(cfg)
}

func addTestPhoto(t *testing.T, st *store.Store, decoder *testsupport.FakeDecoder, phase float64) *photo.Photo {
	t.Helper()
	p := &photo.Photo{
		ID:       uuid.NewString(),
		AssetURL: "asset://" + uuid.NewString(),
		Uploaded: true,
	}
	if err := st.PutPhoto(p); err != nil {
		t.Fatalf("PutPhoto: %v", err)
	}
	if err := st.Enqueue(p.ID); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	decoder.AddPhoto(p.ID, testsupport.NewTestImage(512, 512, phase))
	return p
}

func runVerify(t *testing.T, st *store.Store, decoder *testsupport.FakeDecoder, cmp *Comparator, id string) Outcome {
	t.Helper()
	op := NewVerifyOp(st, decoder, cmp, nil, id, nil)
	return op.Run(context.Background())
}

func TestVerifyNoCandidatesPasses(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)
	p := addTestPhoto(t, st, decoder, 0)

	outcome := runVerify(t, st, decoder, cmp, p.ID)
	if outcome.Decision != DecisionPass {
		t.Fatalf("decision = %v, want pass", outcome.Decision)
	}

	got, err := st.GetPhoto(p.ID)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if got.Perceptual == nil {
		t.Error("fingerprint not persisted after pass")
	}
	if len(got.AssetFingerprints) != 1 {
		t.Errorf("AssetFingerprints = %d, want 1", len(got.AssetFingerprints))
	}
	if queued, _ := st.IsQueued(p.ID); queued {
		t.Error("photo still queued after pass")
	}
}

func TestVerifyMergesConfirmedDuplicate(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)

	canonical := addTestPhoto(t, st, decoder, 1.5)
	dup := addTestPhoto(t, st, decoder, 1.5)
	if err := st.AddToEpisode(dup.ID, "episode-a"); err != nil {
		t.Fatalf("AddToEpisode: %v", err)
	}

	if out := runVerify(t, st, decoder, cmp, canonical.ID); out.Decision != DecisionPass {
		t.Fatalf("canonical verification = %v, want pass", out.Decision)
	}

	outcome := runVerify(t, st, decoder, cmp, dup.ID)
	if outcome.Decision != DecisionMerge {
		t.Fatalf("decision = %v, want merge", outcome.Decision)
	}
	if outcome.CanonicalID != canonical.ID {
		t.Errorf("canonical = %s, want %s", outcome.CanonicalID, canonical.ID)
	}

	if _, err := st.GetPhoto(dup.ID); err == nil {
		t.Error("duplicate record survived merge")
	}
	survivor, err := st.GetPhoto(canonical.ID)
	if err != nil {
		t.Fatalf("GetPhoto canonical: %v", err)
	}
	found := false
	for _, key := range survivor.AssetKeys {
		if key.AssetURL == dup.AssetURL {
			found = true
		}
	}
	if !found {
		t.Error("duplicate asset key not merged into canonical")
	}
	if episodes, _ := st.EpisodesOf(dup.ID); len(episodes) != 0 {
		t.Errorf("duplicate still in %d episodes after merge", len(episodes))
	}
	if queued, _ := st.IsQueued(dup.ID); queued {
		t.Error("duplicate still queued after merge")
	}

	// The merged photo must not surface as a candidate for later arrivals.
	third := addTestPhoto(t, st, decoder, 1.5)
	out := runVerify(t, st, decoder, cmp, third.ID)
	if out.Decision != DecisionMerge || out.CanonicalID != canonical.ID {
		t.Errorf("third copy: decision=%v canonical=%s, want merge into %s",
			out.Decision, out.CanonicalID, canonical.ID)
	}
}

func TestVerifyDistinctPhotosBothPass(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)

	a := addTestPhoto(t, st, decoder, 0)
	b := addTestPhoto(t, st, decoder, 2.4)

	if out := runVerify(t, st, decoder, cmp, a.ID); out.Decision != DecisionPass {
		t.Fatalf("first photo decision = %v, want pass", out.Decision)
	}
	if out := runVerify(t, st, decoder, cmp, b.ID); out.Decision != DecisionPass {
		t.Fatalf("second photo decision = %v, want pass", out.Decision)
	}
	if _, err := st.GetPhoto(a.ID); err != nil {
		t.Errorf("first photo missing after pass: %v", err)
	}
	if _, err := st.GetPhoto(b.ID); err != nil {
		t.Errorf("second photo missing after pass: %v", err)
	}
}

func TestVerifyQuarantinesUndecodable(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)
	p := addTestPhoto(t, st, decoder, 0)
	decoder.FailThumbnail(p.ID)

	outcome := runVerify(t, st, decoder, cmp, p.ID)
	if outcome.Decision != DecisionQuarantine {
		t.Fatalf("decision = %v, want quarantine", outcome.Decision)
	}

	got, err := st.GetPhoto(p.ID)
	if err != nil {
		t.Fatalf("GetPhoto: %v", err)
	}
	if !got.Quarantined {
		t.Error("photo not flagged quarantined")
	}
	if got.QuarantineReason != photo.QuarantineUndecodable {
		t.Errorf("reason = %q, want %q", got.QuarantineReason, photo.QuarantineUndecodable)
	}
	if queued, _ := st.IsQueued(p.ID); queued {
		t.Error("quarantined photo still queued")
	}
}

func TestVerifyCandidateDecodeFailureSkipsCandidate(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)

	canonical := addTestPhoto(t, st, decoder, 1.5)
	if out := runVerify(t, st, decoder, cmp, canonical.ID); out.Decision != DecisionPass {
		t.Fatalf("canonical verification = %v, want pass", out.Decision)
	}
	decoder.FailThumbnail(canonical.ID)

	dup := addTestPhoto(t, st, decoder, 1.5)
	outcome := runVerify(t, st, decoder, cmp, dup.ID)
	if outcome.Decision != DecisionPass {
		t.Fatalf("decision = %v, want pass when candidate is undecodable", outcome.Decision)
	}
	if _, err := st.GetPhoto(canonical.ID); err != nil {
		t.Errorf("candidate record touched by skip: %v", err)
	}
}

func TestVerifyMissingRecordClearsQueue(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)

	id := uuid.NewString()
	if err := st.Enqueue(id); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	outcome := runVerify(t, st, decoder, cmp, id)
	if outcome.Decision != DecisionPass {
		t.Fatalf("decision = %v, want pass", outcome.Decision)
	}
	if queued, _ := st.IsQueued(id); queued {
		t.Error("stale queue entry survived")
	}
}

func TestVerifyUnreadableRecordClearsQueue(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)
	p := addTestPhoto(t, st, decoder, 0)
	st = testsupport.CorruptPhotoRecord(t, st, p.ID)

	outcome := runVerify(t, st, decoder, cmp, p.ID)
	if outcome.Decision != DecisionPass {
		t.Fatalf("decision = %v, want pass", outcome.Decision)
	}
	if queued, _ := st.IsQueued(p.ID); queued {
		t.Error("unreadable record left queued")
	}
}

func TestVerifyDoneCallbackFiresOnce(t *testing.T) {
	st, decoder, cmp := newVerifyFixture(t)
	p := addTestPhoto(t, st, decoder, 0)

	calls := 0
	op := NewVerifyOp(st, decoder, cmp, nil, p.ID, func(Outcome) { calls++ })
	op.Run(context.Background())
	op.Run(context.Background())

	if calls != 1 {
		t.Errorf("done callback fired %d times, want 1", calls)
	}
}

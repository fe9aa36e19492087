package dedup

import (
	"context"
	"sync"
	"testing"
	"time"

	"photokeep/internal/config"
	"photokeep/internal/photo"
	"photokeep/internal/store"
	"photokeep/internal/testsupport"
)

type processorFixture struct {
	cfg     *config.Config
	store   *store.Store
	lib     *testsupport.FakeLibrary
	decoder *testsupport.FakeDecoder

	mu       sync.Mutex
	outcomes []Outcome
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return &processorFixture{
		cfg:     cfg,
		store:   testsupport.MustOpenStore(t, cfg),
		lib:     testsupport.NewFakeLibrary(),
		decoder: testsupport.NewFakeDecoder(),
	}
}

func (f *processorFixture) observe(o Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
}

func (f *processorFixture) outcomeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

func (f *processorFixture) start(t *testing.T, opts ...ProcessorOption) *Processor {
	t.Helper()
	opts = append(opts,
		WithOutcomeObserver(f.observe),
		WithSettleDelay(10*time.Millisecond))
	p := NewProcessor(f.cfg, f.store, f.lib, f.decoder, nil, opts...)
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(p.Stop)
	return p
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestProcessorDrainsQueueSingleFlight(t *testing.T) {
	f := newProcessorFixture(t)
	f.decoder.Delay = 10 * time.Millisecond

	for i := 0; i < 3; i++ {
		addTestPhoto(t, f.store, f.decoder, float64(i))
	}

	p := f.start(t)
	p.MaybeProcess()
	p.MaybeProcess()
	p.MaybeProcess()

	waitFor(t, "queue drain", func() bool { return f.outcomeCount() == 3 })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	if ids, _ := f.store.QueuedIDs(); len(ids) != 0 {
		t.Errorf("queue not empty after drain: %v", ids)
	}
	if f.decoder.MaxInFlight > 1 {
		t.Errorf("decodes overlapped: max in flight = %d", f.decoder.MaxInFlight)
	}
	for _, o := range f.outcomes {
		if o.Decision != DecisionPass {
			t.Errorf("photo %s: decision = %v, want pass", o.PhotoID, o.Decision)
		}
	}
}

func TestProcessorDefersWhileScanning(t *testing.T) {
	f := newProcessorFixture(t)
	addTestPhoto(t, f.store, f.decoder, 0)

	f.lib.StartScan()
	p := f.start(t)
	p.MaybeProcess()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if f.outcomeCount() != 0 {
		t.Fatal("verification ran during a library scan")
	}
	if ids, _ := f.store.QueuedIDs(); len(ids) != 1 {
		t.Fatalf("queue length = %d, want 1 while deferred", len(ids))
	}

	// Scan completion triggers a drain after the settling interval, with no
	// further MaybeProcess call.
	f.lib.FinishScan()
	waitFor(t, "post-scan drain", func() bool { return f.outcomeCount() == 1 })

	if ids, _ := f.store.QueuedIDs(); len(ids) != 0 {
		t.Errorf("queue not empty after post-scan drain: %v", ids)
	}
}

func TestProcessorSurvivesMalformedQueueEntries(t *testing.T) {
	f := newProcessorFixture(t)
	if err := f.store.Enqueue("not-a-valid-identifier"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	good := addTestPhoto(t, f.store, f.decoder, 0)

	p := f.start(t)
	p.MaybeProcess()

	waitFor(t, "drain past malformed entry", func() bool { return f.outcomeCount() == 1 })

	if f.outcomes[0].PhotoID != good.ID {
		t.Errorf("processed %s, want %s", f.outcomes[0].PhotoID, good.ID)
	}
	if ids, _ := f.store.QueuedIDs(); len(ids) != 0 {
		t.Errorf("malformed entries survived drain: %v", ids)
	}
}

func TestProcessorDrainsPastUnreadableRecord(t *testing.T) {
	f := newProcessorFixture(t)

	// The lowest-keyed entry holds the unreadable record, so the drain meets
	// it before the healthy one.
	bad := &photo.Photo{ID: "00000000-0000-4000-8000-000000000000", AssetURL: "asset://bad"}
	good := &photo.Photo{ID: "ffffffff-ffff-4fff-8fff-ffffffffffff", AssetURL: "asset://good", Uploaded: true}
	for _, p := range []*photo.Photo{bad, good} {
		if err := f.store.PutPhoto(p); err != nil {
			t.Fatalf("PutPhoto: %v", err)
		}
		if err := f.store.Enqueue(p.ID); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	f.decoder.AddPhoto(good.ID, testsupport.NewTestImage(512, 512, 0))
	f.store = testsupport.CorruptPhotoRecord(t, f.store, bad.ID)

	p := f.start(t)
	p.MaybeProcess()

	waitFor(t, "drain past unreadable record", func() bool { return f.outcomeCount() == 2 })

	f.mu.Lock()
	last := f.outcomes[len(f.outcomes)-1]
	f.mu.Unlock()
	if last.PhotoID != good.ID || last.Decision != DecisionPass {
		t.Errorf("later entry: photo=%s decision=%v, want %s pass", last.PhotoID, last.Decision, good.ID)
	}
	if ids, _ := f.store.QueuedIDs(); len(ids) != 0 {
		t.Errorf("queue not empty after drain: %v", ids)
	}
	if _, err := f.store.GetPhoto(good.ID); err != nil {
		t.Errorf("healthy photo missing after pass: %v", err)
	}
}

func TestProcessorTaskSignals(t *testing.T) {
	f := newProcessorFixture(t)
	addTestPhoto(t, f.store, f.decoder, 0)

	tasks := &testsupport.FakeTasks{}
	p := f.start(t, WithTaskSignal(tasks))
	p.MaybeProcess()

	waitFor(t, "drain", func() bool { return f.outcomeCount() == 1 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain: %v", err)
	}

	begins, ends := tasks.Counts()
	if begins != 1 || ends != 1 {
		t.Errorf("task signals begin=%d end=%d, want 1/1", begins, ends)
	}
	if begins != ends {
		t.Errorf("unbalanced task signals: %d begins, %d ends", begins, ends)
	}
}

func TestProcessorStartTwiceFails(t *testing.T) {
	f := newProcessorFixture(t)
	p := f.start(t)
	if err := p.Start(context.Background()); err == nil {
		t.Error("second Start succeeded, want error")
	}
}

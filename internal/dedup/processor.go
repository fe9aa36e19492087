package dedup

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"photokeep/internal/config"
	"photokeep/internal/library"
	"photokeep/internal/logging"
	"photokeep/internal/store"
)

// taskName identifies the processor's pending work to the host lifecycle.
const taskName = "duplicate-verification"

// Processor drains the persisted duplicate queue with at most one VerifyOp
// in flight at any instant. A single consumer goroutine owns the drain loop;
// MaybeProcess only delivers a wakeup, so concurrent callers collapse into
// one pending kick.
type Processor struct {
	store      *store.Store
	lib        library.Library
	decoder    library.Decoder
	comparator *Comparator
	logger     *slog.Logger
	settle     time.Duration
	tasks      library.TaskSignal
	observer   func(Outcome)

	kick chan struct{}

	mu      sync.Mutex
	busy    bool
	pending bool
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ProcessorOption configures optional Processor behavior.
type ProcessorOption func(*Processor)

// WithTaskSignal wires a background-task lifecycle listener.
func WithTaskSignal(tasks library.TaskSignal) ProcessorOption {
	return func(p *Processor) { p.tasks = tasks }
}

// WithOutcomeObserver registers a callback for every finished verification.
func WithOutcomeObserver(fn func(Outcome)) ProcessorOption {
	return func(p *Processor) { p.observer = fn }
}

// WithSettleDelay overrides the post-scan settling interval.
func WithSettleDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.settle = d }
}

// NewProcessor constructs a queue processor.
func NewProcessor(cfg *config.Config, st *store.Store, lib library.Library, decoder library.Decoder, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:      st,
		lib:        lib,
		decoder:    decoder,
		comparator: NewComparator(cfg),
		logger:     logging.NewComponentLogger(logger, "dedup-queue"),
		settle:     time.Duration(cfg.Dedup.ScanSettleSeconds) * time.Second,
		kick:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the consumer loop and registers the scan-completion
// trigger: one kick fires after each scan ends, delayed by the settling
// interval so late discoveries land before candidates are enumerated.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return errors.New("processor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.cancel = cancel
	p.mu.Unlock()

	p.lib.OnScanComplete(func() {
		time.AfterFunc(p.settle, p.MaybeProcess)
	})

	p.wg.Add(1)
	go p.consume(runCtx)
	return nil
}

// Stop terminates the consumer loop and waits for any in-flight
// verification to finish; an op started is always run to completion.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// MaybeProcess attempts to advance the queue. Safe to call repeatedly and
// concurrently; extra calls while a drain is pending or active are no-ops.
func (p *Processor) MaybeProcess() {
	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return
	}
	p.pending = true
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Processor) consume(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
		}

		p.mu.Lock()
		p.pending = false
		p.busy = true
		p.mu.Unlock()

		if p.lib.Scanning() {
			p.logger.Debug("library scan in progress, drain deferred")
			p.setBusy(false)
			continue
		}

		if p.tasks != nil {
			p.tasks.Begin(taskName)
		}
		p.drain(ctx)
		if p.tasks != nil {
			p.tasks.End(taskName)
		}
		p.setBusy(false)
	}
}

// drain processes queue entries one at a time until the queue is empty or
// the context is cancelled. Per-photo failures never halt the loop.
func (p *Processor) drain(ctx context.Context) {
	processed := 0
	start := time.Now()
	last := ""
	for {
		if ctx.Err() != nil {
			return
		}
		id, dropped, err := p.store.NextQueued()
		if dropped > 0 {
			p.logger.Warn("malformed queue entries deleted", logging.Int("count", dropped))
		}
		if err != nil {
			p.logger.Error("scan queue", logging.Error(err))
			return
		}
		if id == "" {
			break
		}
		if id == last {
			// The entry survived its own verification, so the store is
			// failing transiently. End the pass; the next kick retries.
			p.logger.Warn("queue entry not cleared, ending pass",
				logging.String(logging.FieldPhotoID, id))
			return
		}
		last = id

		// Once started, an op runs to completion; cancellation only stops the
		// loop between entries.
		op := NewVerifyOp(p.store, p.decoder, p.comparator, p.logger, id, p.observer)
		op.Run(context.WithoutCancel(ctx))
		processed++
	}
	if processed > 0 {
		p.logger.Info("queue drained",
			logging.Int("processed", processed),
			logging.Duration("elapsed", time.Since(start)))
	}
}

func (p *Processor) setBusy(busy bool) {
	p.mu.Lock()
	p.busy = busy
	p.mu.Unlock()
}

// Drain blocks until no verification is in flight and no wakeup is pending.
// Test helper; not used by production callers.
func (p *Processor) Drain(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		p.mu.Lock()
		idle := !p.busy && !p.pending
		p.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

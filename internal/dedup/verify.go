package dedup

import (
	"context"
	"encoding/hex"
	"errors"
	"image"
	"log/slog"
	"sync"

	"photokeep/internal/fingerprint"
	"photokeep/internal/library"
	"photokeep/internal/logging"
	"photokeep/internal/photo"
	"photokeep/internal/services"
	"photokeep/internal/store"
)

// Decision is the terminal state of one verification.
type Decision string

const (
	DecisionMerge      Decision = "merge"
	DecisionPass       Decision = "pass"
	DecisionQuarantine Decision = "quarantine"
)

// Outcome describes how a verification finished.
type Outcome struct {
	PhotoID     string
	Decision    Decision
	CanonicalID string
	Reason      string
}

// VerifyOp verifies one queued photo against the fingerprint index. One
// instance per photo; Run is not reentrant. The done callback fires exactly
// once per Run regardless of outcome.
type VerifyOp struct {
	store      *store.Store
	decoder    library.Decoder
	comparator *Comparator
	logger     *slog.Logger
	photoID    string
	done       func(Outcome)

	finishOnce sync.Once

	selfThumb image.Image
	selfFull  image.Image
}

// NewVerifyOp builds a verification op for photoID. done may be nil.
func NewVerifyOp(st *store.Store, decoder library.Decoder, comparator *Comparator, logger *slog.Logger, photoID string, done func(Outcome)) *VerifyOp {
	return &VerifyOp{
		store:      st,
		decoder:    decoder,
		comparator: comparator,
		logger:     logging.NewComponentLogger(logger, "dedup").With(logging.String(logging.FieldPhotoID, photoID)),
		photoID:    photoID,
		done:       done,
	}
}

// Run executes the cascade to completion. Failures are contained per
// candidate or per photo; Run itself never returns an error that should
// halt the queue drain.
func (op *VerifyOp) Run(ctx context.Context) Outcome {
	// Decoder logging downstream picks the identifier up from the context.
	ctx = services.WithPhotoID(ctx, op.photoID)
	outcome := op.verify(ctx)
	op.finishOnce.Do(func() {
		op.logger.Info("verification finished",
			logging.String(logging.FieldOutcome, string(outcome.Decision)),
			logging.String(logging.FieldReason, outcome.Reason),
			logging.String(logging.FieldCandidateID, outcome.CanonicalID))
		if op.done != nil {
			op.done(outcome)
		}
	})
	return outcome
}

func (op *VerifyOp) verify(ctx context.Context) Outcome {
	p, err := op.store.GetPhoto(op.photoID)
	if errors.Is(err, services.ErrNotFound) {
		// Record deleted after enqueueing; drop the stale entry.
		if err := op.store.RemoveQueued(op.photoID); err != nil {
			op.logger.Error("clear stale queue entry", logging.Error(err))
		}
		return Outcome{PhotoID: op.photoID, Decision: DecisionPass, Reason: "record missing"}
	}
	if err != nil {
		if services.IsTerminal(err) {
			// Unreadable record bytes never get better; drop the entry so
			// the drain does not re-fetch it forever.
			op.logger.Error("record unreadable, dropping queue entry", logging.Error(err))
			if err := op.store.RemoveQueued(op.photoID); err != nil {
				op.logger.Error("clear queue entry", logging.Error(err))
			}
			return Outcome{PhotoID: op.photoID, Decision: DecisionPass, Reason: "record unreadable"}
		}
		op.logger.Error("load photo", logging.Error(err))
		return Outcome{PhotoID: op.photoID, Decision: DecisionPass, Reason: "load failed"}
	}
	if p.Quarantined {
		if err := op.store.RemoveQueued(op.photoID); err != nil {
			op.logger.Error("clear queue entry", logging.Error(err))
		}
		return Outcome{PhotoID: op.photoID, Decision: DecisionQuarantine, Reason: "already quarantined"}
	}

	if outcome, failed := op.ensureFingerprint(ctx, p); failed {
		return outcome
	}

	candidates, err := op.store.Candidates(p.ID, op.searchFingerprints(p)...)
	if err != nil {
		op.logger.Error("enumerate candidates", logging.Error(err))
		candidates = nil
	}

	for _, candidateID := range candidates {
		if merged := op.checkCandidate(ctx, p, candidateID); merged {
			return Outcome{
				PhotoID:     p.ID,
				Decision:    DecisionMerge,
				CanonicalID: candidateID,
				Reason:      "full-resolution match",
			}
		}
	}

	if err := op.store.ApplyPass(p); err != nil {
		op.logger.Error("apply pass", logging.Error(err))
	}
	return Outcome{PhotoID: p.ID, Decision: DecisionPass, Reason: "no candidate confirmed"}
}

// ensureFingerprint computes, persists, and indexes the fingerprint when the
// record does not carry one yet. An undecodable thumbnail quarantines the
// photo. Also decodes the self thumbnail used by every comparison.
func (op *VerifyOp) ensureFingerprint(ctx context.Context, p *photo.Photo) (Outcome, bool) {
	thumb, err := op.decoder.DecodeThumbnail(ctx, p.ID)
	if err != nil {
		op.logger.Warn("thumbnail undecodable, quarantining", logging.Error(err))
		if err := op.store.ApplyQuarantine(p, photo.QuarantineUndecodable); err != nil {
			op.logger.Error("apply quarantine", logging.Error(err))
		}
		return Outcome{PhotoID: p.ID, Decision: DecisionQuarantine, Reason: string(photo.QuarantineUndecodable)}, true
	}
	op.selfThumb = thumb

	if p.Perceptual != nil {
		return Outcome{}, false
	}

	fp, err := fingerprint.Extract(thumb, p.AspectRatio)
	if err != nil {
		op.logger.Warn("fingerprint extraction failed, quarantining", logging.Error(err))
		if err := op.store.ApplyQuarantine(p, photo.QuarantineInconsistent); err != nil {
			op.logger.Error("apply quarantine", logging.Error(err))
		}
		return Outcome{PhotoID: p.ID, Decision: DecisionQuarantine, Reason: string(photo.QuarantineInconsistent)}, true
	}

	p.Perceptual = &fp
	p.AddAssetFingerprint(photo.AssetFingerprint{FormatVersion: fp.FormatVersion, Bytes: fp.Terms[0]})
	p.AddAssetKey(photo.AssetKey{AssetURL: p.AssetURL, Fingerprint: hex.EncodeToString(fp.Terms[0])})

	if err := op.store.PutPhoto(p); err != nil {
		op.logger.Error("persist fingerprint", logging.Error(err))
	}
	if err := op.store.IndexPhoto(p.ID, p.Perceptual); err != nil {
		op.logger.Error("index photo", logging.Error(err))
	}
	return Outcome{}, false
}

// searchFingerprints collects every fingerprint generation recorded on the
// photo so each format's bucket is searched independently.
func (op *VerifyOp) searchFingerprints(p *photo.Photo) []*photo.PerceptualFingerprint {
	fps := []*photo.PerceptualFingerprint{p.Perceptual}
	for _, af := range p.AssetFingerprints {
		if p.Perceptual != nil && af.FormatVersion == p.Perceptual.FormatVersion {
			continue
		}
		fps = append(fps, &photo.PerceptualFingerprint{
			FormatVersion: af.FormatVersion,
			Terms:         [][]byte{af.Bytes},
		})
	}
	return fps
}

// checkCandidate runs the escalating comparison against one candidate and
// reports whether the photo was merged into it. Decode failures skip the
// candidate, never the op.
func (op *VerifyOp) checkCandidate(ctx context.Context, p *photo.Photo, candidateID string) bool {
	logger := op.logger.With(logging.String(logging.FieldCandidateID, candidateID))

	candidate, err := op.store.GetPhoto(candidateID)
	if err != nil {
		logger.Debug("candidate record unavailable", logging.Error(err))
		return false
	}
	if candidate.Quarantined {
		logger.Debug("candidate quarantined, skipping")
		return false
	}

	candThumb, err := op.decoder.DecodeThumbnail(ctx, candidateID)
	if err != nil {
		logger.Warn("candidate thumbnail undecodable, skipping",
			logging.String(logging.FieldReason, "decode_failure"),
			logging.Error(err))
		return false
	}

	if op.comparator.CompareThumbnails(op.selfThumb, candThumb) == VerdictReject {
		logger.Debug("rejected at thumbnail level")
		return false
	}

	// Thumbnails are inconclusive or matching: escalate to full resolution.
	if op.selfFull == nil {
		full, err := op.decoder.DecodeFull(ctx, p.ID)
		if err != nil {
			logger.Warn("own full-resolution decode failed",
				logging.String(logging.FieldReason, "decode_failure"),
				logging.Error(err))
			return false
		}
		op.selfFull = full
	}
	candFull, err := op.decoder.DecodeFull(ctx, candidateID)
	if err != nil {
		logger.Warn("candidate full-resolution decode failed, skipping",
			logging.String(logging.FieldReason, "decode_failure"),
			logging.Error(err))
		return false
	}

	if !op.comparator.CompareFull(op.selfFull, candFull) {
		logger.Debug("rejected at full resolution")
		return false
	}

	if err := op.store.ApplyMerge(candidate, p); err != nil {
		logger.Error("apply merge", logging.Error(err))
		return false
	}
	logger.Info("duplicate merged",
		logging.String(logging.FieldReason, "full-resolution match"))
	return true
}

package migration

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"photokeep/internal/fingerprint"
	"photokeep/internal/library"
	"photokeep/internal/logging"
	"photokeep/internal/photo"
	"photokeep/internal/services"
	"photokeep/internal/store"
)

// Report summarizes one backfill pass.
type Report struct {
	// Indexed counts server-confirmed photos re-indexed under the current
	// format.
	Indexed int
	// Purged counts local-only photos whose index entries were dropped
	// before matching.
	Purged int
	// Merged counts local-only photos folded into a server-confirmed photo.
	Merged int
	// AmbiguousSkipped counts local-only duplicates left unresolved because
	// they belong to more than one episode.
	AmbiguousSkipped int
	// DecodeSkipped counts photos skipped because their thumbnail was
	// missing or undecodable.
	DecodeSkipped int
}

// Backfill is the batch-mode format migration. One pass: purge local-only
// photos from the index, re-index every uploaded photo under the current
// format, then fold local-only duplicates into their server-confirmed
// counterparts term group by term group.
type Backfill struct {
	store    *store.Store
	episodes library.Episodes
	decoder  library.Decoder
	logger   *slog.Logger
}

// New constructs a backfill over the given store and decoder. Episode
// membership is read from the store's own markers.
func New(st *store.Store, decoder library.Decoder, logger *slog.Logger) *Backfill {
	return &Backfill{
		store:    st,
		episodes: st,
		decoder:  decoder,
		logger:   logging.NewComponentLogger(logger, "migration"),
	}
}

// Run executes the full pass. Per-photo failures are logged and skipped;
// only store iteration errors abort the batch.
func (b *Backfill) Run(ctx context.Context) (Report, error) {
	start := time.Now()
	var report Report

	photos, err := b.store.AllPhotos()
	if err != nil {
		return report, fmt.Errorf("enumerate photos: %w", err)
	}

	// Local-only photos leave the index first. Without server authority
	// there is no basis for choosing a survivor among local-only
	// duplicates, so they must not anchor candidate groups.
	var local, uploaded []*photo.Photo
	for _, p := range photos {
		if p.Quarantined {
			continue
		}
		if !p.Uploaded {
			if err := b.store.PurgeIndex(p); err != nil {
				return report, fmt.Errorf("purge local-only %s: %w", p.ID, err)
			}
			report.Purged++
			local = append(local, p)
			continue
		}
		uploaded = append(uploaded, p)
	}

	for _, p := range uploaded {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := b.reindex(services.WithPhotoID(ctx, p.ID), p); err != nil {
			b.logger.Warn("photo skipped",
				logging.String(logging.FieldPhotoID, p.ID),
				logging.Error(err))
			report.DecodeSkipped++
			continue
		}
		report.Indexed++
	}

	merged := make(map[string]bool)
	for _, p := range local {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		b.resolveLocal(services.WithPhotoID(ctx, p.ID), p, merged, &report)
	}

	b.logger.Info("backfill finished",
		logging.Int("indexed", report.Indexed),
		logging.Int("purged", report.Purged),
		logging.Int("merged", report.Merged),
		logging.Int("ambiguous_skipped", report.AmbiguousSkipped),
		logging.Int("decode_skipped", report.DecodeSkipped),
		logging.Duration("elapsed", time.Since(start)))
	return report, nil
}

// reindex computes the current-format fingerprint for p from its cached
// thumbnail, appends the new asset key and fingerprint to the record, and
// indexes it. Prior-generation keys and fingerprints stay on the record.
func (b *Backfill) reindex(ctx context.Context, p *photo.Photo) error {
	fp, err := b.ensureCurrentFingerprint(ctx, p)
	if err != nil {
		return err
	}
	if err := b.store.PutPhoto(p); err != nil {
		return fmt.Errorf("persist record: %w", err)
	}
	if err := b.store.IndexPhoto(p.ID, fp); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	return nil
}

// ensureCurrentFingerprint returns p's current-format fingerprint, computing
// it from the thumbnail when the record predates the format. New keys and
// fingerprints are appended, never replacing earlier generations.
func (b *Backfill) ensureCurrentFingerprint(ctx context.Context, p *photo.Photo) (*photo.PerceptualFingerprint, error) {
	if term := p.FingerprintForFormat(fingerprint.FormatCurrent); term != nil {
		return &photo.PerceptualFingerprint{
			FormatVersion: fingerprint.FormatCurrent,
			Terms:         [][]byte{term},
		}, nil
	}

	thumb, err := b.decoder.DecodeThumbnail(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail: %w", err)
	}
	fp, err := fingerprint.Extract(thumb, p.AspectRatio)
	if err != nil {
		return nil, fmt.Errorf("extract fingerprint: %w", err)
	}

	p.Perceptual = &fp
	p.AddAssetFingerprint(photo.AssetFingerprint{FormatVersion: fp.FormatVersion, Bytes: fp.Terms[0]})
	p.AddAssetKey(photo.AssetKey{AssetURL: p.AssetURL, Fingerprint: hex.EncodeToString(fp.Terms[0])})
	return &fp, nil
}

// resolveLocal folds one local-only photo into a server-confirmed photo
// sharing its fingerprint term, applying the batch merge rules: a photo in
// more than one episode is ambiguous and left alone, and each photo merges
// at most once even when oversized groups overlap.
func (b *Backfill) resolveLocal(ctx context.Context, p *photo.Photo, merged map[string]bool, report *Report) {
	logger := b.logger.With(logging.String(logging.FieldPhotoID, p.ID))

	if merged[p.ID] {
		return
	}

	fp, err := b.ensureCurrentFingerprint(ctx, p)
	if err != nil {
		logger.Warn("local-only photo skipped", logging.Error(err))
		report.DecodeSkipped++
		return
	}
	// The recomputed keys stay on the record even when nothing merges.
	if err := b.store.PutPhoto(p); err != nil {
		logger.Error("persist record", logging.Error(err))
		return
	}

	candidates, err := b.store.Candidates(p.ID, fp)
	if err != nil {
		logger.Error("enumerate group", logging.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}

	episodes, err := b.episodes.EpisodesOf(p.ID)
	if err != nil {
		logger.Error("load episodes", logging.Error(err))
		return
	}
	if len(episodes) > 1 {
		logger.Warn("local-only duplicate left unresolved",
			logging.Int("episodes", len(episodes)),
			logging.Error(services.ErrAmbiguousMerge))
		report.AmbiguousSkipped++
		return
	}

	for _, candidateID := range candidates {
		if merged[candidateID] {
			continue
		}
		canonical, err := b.store.GetPhoto(candidateID)
		if err != nil || canonical.Quarantined || !canonical.Uploaded {
			continue
		}
		if err := b.store.ApplyMerge(canonical, p); err != nil {
			logger.Error("apply merge", logging.Error(err))
			return
		}
		merged[p.ID] = true
		report.Merged++
		logger.Info("local-only duplicate merged",
			logging.String(logging.FieldCandidateID, canonical.ID))
		return
	}
}

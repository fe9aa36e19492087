// Package services defines shared utilities consumed by the deduplication
// pipeline and the migration backfill.
//
// Key responsibilities:
//   - Context helpers that stamp photo IDs and component names onto contexts
//     for structured logging.
//   - Sentinel error markers plus the Wrap helper so failure classification
//     (decode failure vs malformed key vs quarantine) stays uniform across
//     the verification cascade and the batch migration.
package services

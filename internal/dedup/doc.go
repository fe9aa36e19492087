// Package dedup drives duplicate verification for newly discovered photos.
//
// A VerifyOp runs the per-photo cascade: compute or load the perceptual
// fingerprint, enumerate indexed candidates in ascending identifier order,
// compare thumbnails first, and decode full-resolution images only when the
// cheap comparison is inconclusive. The op finishes with exactly one of
// merge, pass, or quarantine, applied as a single atomic store batch, and
// its completion callback fires exactly once.
//
// The Processor owns a single-consumer drain loop over the persisted queue:
// MaybeProcess kicks are collapsed into at most one pending wakeup, ops run
// strictly sequentially (bounded peak memory — at most one pair of
// full-resolution images decoded at a time), and the drain refuses to start
// while the asset library is still scanning.
package dedup

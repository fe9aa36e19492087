// Package store persists photo records, the fingerprint index, the duplicate
// verification queue, and episode membership in an embedded Pebble database.
//
// Every range is a key prefix:
//
//	photo:<id>                      photo record (JSON)
//	fpidx:v<FF>:<hex-term>:<id>     fingerprint index membership marker
//	dupq:<id>                       pending verification marker
//	episode:<photo-id>:<episode-id> episode membership marker
//
// Index buckets are kept per format version; generations coexist side by
// side and entries are only removed when the owning photo is merged away,
// deleted, or quarantined. All mutations for one photo's verification
// outcome are committed as a single synced batch, so a queue entry is never
// observed without its decision having been applied.
//
// Treat this package as the single source of truth for key encoding; when a
// new range is added, extend keys.go rather than formatting keys inline.
package store

// Package photo defines the persisted photo record and the fingerprint
// value types attached to it.
//
// AssetKeys and AssetFingerprints are append-only: every fingerprint format
// generation a photo was ever observed under stays on the record so lookups
// issued by older code paths keep resolving. The record is serialized as JSON
// for storage; callers must not mutate slices returned by accessors.
package photo

package photo

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// AssetKey identifies the same underlying local asset across fingerprint
// format generations. The asset URL alone is not stable enough (the asset
// library may re-issue URLs), so the key also carries the fingerprint string
// computed when the asset was registered.
type AssetKey struct {
	AssetURL    string `json:"asset_url"`
	Fingerprint string `json:"fingerprint"`
}

// String renders the canonical key form used for equality and logging.
func (k AssetKey) String() string {
	return k.AssetURL + "#" + k.Fingerprint
}

// AssetFingerprint is a fingerprint retained on the record tagged with the
// format generation that produced it. Entries are never rewritten; each new
// format appends another entry.
type AssetFingerprint struct {
	FormatVersion int    `json:"format_version"`
	Bytes         []byte `json:"bytes"`
}

// PerceptualFingerprint is an ordered list of fixed-length bit-hash terms
// derived from pixel content, tagged with the format generation whose
// constants produced it.
type PerceptualFingerprint struct {
	FormatVersion int      `json:"format_version"`
	Terms         [][]byte `json:"terms"`
}

// TermKeys returns each term rendered as lowercase hex, the form used for
// index bucketing and grouping.
func (f *PerceptualFingerprint) TermKeys() []string {
	if f == nil {
		return nil
	}
	keys := make([]string, 0, len(f.Terms))
	for _, term := range f.Terms {
		keys = append(keys, hex.EncodeToString(term))
	}
	return keys
}

// QuarantineReason explains why a photo was permanently excluded from
// deduplication.
type QuarantineReason string

const (
	QuarantineUndecodable  QuarantineReason = "undecodable_image"
	QuarantineInconsistent QuarantineReason = "inconsistent_record"
)

// Photo is the persisted record for one library asset.
type Photo struct {
	ID          string    `json:"id"`
	AssetURL    string    `json:"asset_url"`
	AspectRatio float64   `json:"aspect_ratio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	AssetKeys         []AssetKey             `json:"asset_keys,omitempty"`
	AssetFingerprints []AssetFingerprint     `json:"asset_fingerprints,omitempty"`
	Perceptual        *PerceptualFingerprint `json:"perceptual,omitempty"`

	// Uploaded marks the record as server-confirmed; local-only photos have
	// no merge authority during migration.
	Uploaded bool `json:"uploaded,omitempty"`

	Quarantined      bool             `json:"quarantined,omitempty"`
	QuarantineReason QuarantineReason `json:"quarantine_reason,omitempty"`
}

// HasAssetKey reports whether the record already carries key.
func (p *Photo) HasAssetKey(key AssetKey) bool {
	for _, existing := range p.AssetKeys {
		if existing == key {
			return true
		}
	}
	return false
}

// AddAssetKey appends key unless an identical key is already present.
// Keys are never replaced or removed.
func (p *Photo) AddAssetKey(key AssetKey) {
	if strings.TrimSpace(key.AssetURL) == "" {
		return
	}
	if p.HasAssetKey(key) {
		return
	}
	p.AssetKeys = append(p.AssetKeys, key)
}

// UnionAssetKeys appends every key from other not already on the record.
// Used when a duplicate is merged into its canonical photo.
func (p *Photo) UnionAssetKeys(other *Photo) {
	if other == nil {
		return
	}
	for _, key := range other.AssetKeys {
		p.AddAssetKey(key)
	}
}

// AddAssetFingerprint appends fp unless a fingerprint for the same format
// version already exists. Prior-format entries stay untouched so photos
// matched under an old format remain matchable.
func (p *Photo) AddAssetFingerprint(fp AssetFingerprint) {
	for _, existing := range p.AssetFingerprints {
		if existing.FormatVersion == fp.FormatVersion {
			return
		}
	}
	p.AssetFingerprints = append(p.AssetFingerprints, fp)
}

// FingerprintForFormat returns the stored fingerprint bytes for the given
// format version, or nil when none was recorded.
func (p *Photo) FingerprintForFormat(version int) []byte {
	for _, fp := range p.AssetFingerprints {
		if fp.FormatVersion == version {
			return fp.Bytes
		}
	}
	return nil
}

// Quarantine marks the record permanently excluded with the given reason.
func (p *Photo) Quarantine(reason QuarantineReason) {
	p.Quarantined = true
	p.QuarantineReason = reason
}

// Encode serializes the record for storage.
func (p *Photo) Encode() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal photo %s: %w", p.ID, err)
	}
	return data, nil
}

// Decode deserializes a stored record.
func Decode(data []byte) (*Photo, error) {
	var p Photo
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal photo: %w", err)
	}
	return &p, nil
}

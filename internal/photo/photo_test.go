package photo

import (
	"testing"
	"time"
)

func TestAddAssetKeyAppendOnly(t *testing.T) {
	p := &Photo{ID: "a"}
	key := AssetKey{AssetURL: "asset://1", Fingerprint: "abcd"}

	p.AddAssetKey(key)
	p.AddAssetKey(key)
	if len(p.AssetKeys) != 1 {
		t.Fatalf("expected 1 asset key, got %d", len(p.AssetKeys))
	}

	newer := AssetKey{AssetURL: "asset://1", Fingerprint: "ef01"}
	p.AddAssetKey(newer)
	if len(p.AssetKeys) != 2 {
		t.Fatalf("expected old key retained alongside new one, got %d keys", len(p.AssetKeys))
	}
	if !p.HasAssetKey(key) {
		t.Error("old-format key must remain valid after a new format is appended")
	}
}

func TestAddAssetKeyIgnoresEmptyURL(t *testing.T) {
	p := &Photo{ID: "a"}
	p.AddAssetKey(AssetKey{AssetURL: "  ", Fingerprint: "abcd"})
	if len(p.AssetKeys) != 0 {
		t.Fatalf("expected empty URL to be ignored, got %d keys", len(p.AssetKeys))
	}
}

func TestUnionAssetKeys(t *testing.T) {
	canonical := &Photo{ID: "canonical"}
	canonical.AddAssetKey(AssetKey{AssetURL: "asset://1", Fingerprint: "aa"})

	dup := &Photo{ID: "dup"}
	dup.AddAssetKey(AssetKey{AssetURL: "asset://1", Fingerprint: "aa"})
	dup.AddAssetKey(AssetKey{AssetURL: "asset://2", Fingerprint: "bb"})

	canonical.UnionAssetKeys(dup)
	if len(canonical.AssetKeys) != 2 {
		t.Fatalf("expected union of 2 keys, got %d", len(canonical.AssetKeys))
	}
}

func TestAddAssetFingerprintKeepsPriorFormats(t *testing.T) {
	p := &Photo{ID: "a"}
	p.AddAssetFingerprint(AssetFingerprint{FormatVersion: 1, Bytes: []byte{0x01}})
	p.AddAssetFingerprint(AssetFingerprint{FormatVersion: 2, Bytes: []byte{0x02}})
	p.AddAssetFingerprint(AssetFingerprint{FormatVersion: 2, Bytes: []byte{0xff}})

	if len(p.AssetFingerprints) != 2 {
		t.Fatalf("expected 2 fingerprints, got %d", len(p.AssetFingerprints))
	}
	if got := p.FingerprintForFormat(1); len(got) != 1 || got[0] != 0x01 {
		t.Errorf("format 1 fingerprint lost: %v", got)
	}
	if got := p.FingerprintForFormat(2); len(got) != 1 || got[0] != 0x02 {
		t.Errorf("format 2 fingerprint rewritten: %v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := &Photo{
		ID:        "abc",
		AssetURL:  "asset://abc",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Uploaded:  true,
		Perceptual: &PerceptualFingerprint{
			FormatVersion: 2,
			Terms:         [][]byte{{0xde, 0xad}},
		},
	}
	p.Quarantine(QuarantineUndecodable)

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.ID != p.ID || !got.Uploaded || !got.Quarantined {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.QuarantineReason != QuarantineUndecodable {
		t.Errorf("quarantine reason lost: %q", got.QuarantineReason)
	}
	if keys := got.Perceptual.TermKeys(); len(keys) != 1 || keys[0] != "dead" {
		t.Errorf("term keys mismatch: %v", keys)
	}
}

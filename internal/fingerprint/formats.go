package fingerprint

import "fmt"

// Format versions. FormatCurrent is what new photos are fingerprinted with;
// FormatLegacy remains computable for records indexed before the upgrade.
const (
	FormatLegacy  = 1
	FormatCurrent = 2
)

// TermsPerFingerprint is the number of terms a fingerprint carries. A single
// term is emitted; orientation-normalized variants (up to two extra rotated or
// reflected terms) would be a new format version, not a runtime option.
const TermsPerFingerprint = 1

// formatParams fixes every constant that influences the emitted bits.
type formatParams struct {
	// transformSize is the edge of the square the image is resampled to
	// before the wavelet transform.
	transformSize int
	// hashBits is the number of zig-zag coefficients hashed into the term.
	hashBits int
	// skipCoefficients drops the leading zig-zag coefficients: the DC average
	// and the two lowest gradient terms, which carry little discriminative
	// signal and are sensitive to orientation.
	skipCoefficients int
	// bitThreshold is the cutoff deciding each hash bit. Slightly negative so
	// near-zero noise is not treated differently from true positive content.
	bitThreshold float64
	// blurRadius gives the (2r+1)x(2r+1) box blur suppressing sampling noise.
	blurRadius int
	// borderDivisor sets the crop border as shorter-dimension / divisor,
	// aligning thumbnails produced by different generation pipelines onto the
	// same visible region.
	borderDivisor int
}

var formats = map[int]formatParams{
	FormatLegacy: {
		transformSize:    32,
		hashBits:         64,
		skipCoefficients: 3,
		bitThreshold:     -1.0 / 64.0,
		blurRadius:       2,
		borderDivisor:    32,
	},
	FormatCurrent: {
		transformSize:    64,
		hashBits:         128,
		skipCoefficients: 3,
		bitThreshold:     -1.0 / 64.0,
		blurRadius:       2,
		borderDivisor:    32,
	},
}

// TermBytes returns the byte length of a term under the given format version.
func TermBytes(version int) (int, error) {
	params, ok := formats[version]
	if !ok {
		return 0, fmt.Errorf("unknown fingerprint format version %d", version)
	}
	return params.hashBits / 8, nil
}

package dedup

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"

	"photokeep/internal/config"
)

const (
	// thumbnailCompareSize is the square edge both thumbnails are resampled
	// to before the cheap comparison.
	thumbnailCompareSize = 64
	// fullCompareSize is the square edge used for the escalated comparison.
	// Large enough that recompression artifacts average out, small enough
	// that two decoded full-resolution images stay the peak memory cost.
	fullCompareSize = 256
)

// Verdict is the result of a thumbnail-level comparison.
type Verdict int

const (
	// VerdictReject rules a candidate out without further work.
	VerdictReject Verdict = iota
	// VerdictEscalate requires a full-resolution comparison to decide.
	VerdictEscalate
)

// Comparator scores image pairs for the verification cascade.
type Comparator struct {
	rejectDistance   float64
	matchCorrelation float64
}

// NewComparator builds a comparator from config thresholds.
func NewComparator(cfg *config.Config) *Comparator {
	return &Comparator{
		rejectDistance:   cfg.Dedup.ThumbnailRejectDistance,
		matchCorrelation: cfg.Dedup.FullMatchCorrelation,
	}
}

// CompareThumbnails returns VerdictReject when the mean absolute luma
// difference exceeds the reject distance, VerdictEscalate otherwise.
func (c *Comparator) CompareThumbnails(a, b image.Image) Verdict {
	if meanAbsoluteDifference(a, b, thumbnailCompareSize) > c.rejectDistance {
		return VerdictReject
	}
	return VerdictEscalate
}

// CompareFull confirms or rejects a candidate at full resolution using the
// Pearson correlation of luma samples.
func (c *Comparator) CompareFull(a, b image.Image) bool {
	x := lumaSamples(a, fullCompareSize)
	y := lumaSamples(b, fullCompareSize)

	corr := stat.Correlation(x, y, nil)
	if math.IsNaN(corr) {
		// Zero variance on either side (flat images): fall back to a strict
		// pixel distance.
		return meanAbsoluteDifference(a, b, fullCompareSize) <= 1.0
	}
	return corr >= c.matchCorrelation
}

func meanAbsoluteDifference(a, b image.Image, size int) float64 {
	x := lumaSamples(a, size)
	y := lumaSamples(b, size)
	var sum float64
	for i := range x {
		sum += math.Abs(x[i] - y[i])
	}
	return sum / float64(len(x))
}

// lumaSamples resamples img to a size x size gray square and returns its
// pixels as floats in row-major order.
func lumaSamples(img image.Image, size int) []float64 {
	gray := image.NewGray(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(gray, gray.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	samples := make([]float64, size*size)
	for i, v := range gray.Pix {
		samples[i] = float64(v)
	}
	return samples
}

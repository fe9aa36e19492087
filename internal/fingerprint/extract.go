package fingerprint

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"photokeep/internal/photo"
)

// Extract computes the perceptual fingerprint of img under the current
// format. aspectRatio is the width/height ratio of the original asset; pass 0
// when unknown. Pure: no I/O, no retained state.
func Extract(img image.Image, aspectRatio float64) (photo.PerceptualFingerprint, error) {
	return ExtractFormat(img, aspectRatio, FormatCurrent)
}

// ExtractFormat computes the fingerprint under an explicit format version.
// Old versions stay available for re-deriving terms of already-indexed
// records.
func ExtractFormat(img image.Image, aspectRatio float64, version int) (photo.PerceptualFingerprint, error) {
	params, ok := formats[version]
	if !ok {
		return photo.PerceptualFingerprint{}, fmt.Errorf("unknown fingerprint format version %d", version)
	}
	if img == nil {
		return photo.PerceptualFingerprint{}, fmt.Errorf("fingerprint: nil image")
	}
	bounds := img.Bounds()
	if bounds.Dx() < 2 || bounds.Dy() < 2 {
		return photo.PerceptualFingerprint{}, fmt.Errorf("fingerprint: image too small (%dx%d)", bounds.Dx(), bounds.Dy())
	}

	gray := toGray(img)
	gray = cropToAspect(gray, aspectRatio)
	gray = cropBorder(gray, params.borderDivisor)

	square := resample(gray, params.transformSize)
	samples := blurredSamples(square, params.transformSize, params.blurRadius)
	haarTransform(samples, params.transformSize)

	term := hashCoefficients(samples, params)
	return photo.PerceptualFingerprint{
		FormatVersion: version,
		Terms:         [][]byte{term},
	}, nil
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}
	gray := image.NewGray(bounds)
	xdraw.Draw(gray, bounds, img, bounds.Min, xdraw.Src)
	return gray
}

// cropToAspect center-crops the image to the original asset's aspect ratio
// when the thumbnail pipeline reframed it (for example square-cropped
// previews), so every pipeline yields the same visible region.
func cropToAspect(gray *image.Gray, aspectRatio float64) *image.Gray {
	if aspectRatio <= 0 {
		return gray
	}
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	imgRatio := float64(w) / float64(h)
	if math.Abs(imgRatio-aspectRatio)/aspectRatio <= 0.01 {
		return gray
	}

	cw, ch := w, h
	if imgRatio > aspectRatio {
		cw = int(math.Round(float64(h) * aspectRatio))
	} else {
		ch = int(math.Round(float64(w) / aspectRatio))
	}
	if cw < 2 || ch < 2 {
		return gray
	}
	x0 := bounds.Min.X + (w-cw)/2
	y0 := bounds.Min.Y + (h-ch)/2
	return gray.SubImage(image.Rect(x0, y0, x0+cw, y0+ch)).(*image.Gray)
}

// cropBorder removes a border proportional to the shorter dimension. If the
// bottom row is uniformly blank while the top row is not (a defect of one
// historical thumbnail generator that padded the last row), the crop window
// shifts up by one row first.
func cropBorder(gray *image.Gray, borderDivisor int) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	shorter := w
	if h < shorter {
		shorter = h
	}
	border := shorter / borderDivisor
	if border == 0 || w-2*border < 2 || h-2*border < 2 {
		return gray
	}

	shift := 0
	if uniformRow(gray, bounds.Max.Y-1) && !uniformRow(gray, bounds.Min.Y) {
		shift = 1
	}

	rect := image.Rect(
		bounds.Min.X+border,
		bounds.Min.Y+border-shift,
		bounds.Max.X-border,
		bounds.Max.Y-border-shift,
	)
	if rect.Min.Y < bounds.Min.Y {
		rect = rect.Add(image.Pt(0, bounds.Min.Y-rect.Min.Y))
	}
	return gray.SubImage(rect).(*image.Gray)
}

func uniformRow(gray *image.Gray, y int) bool {
	bounds := gray.Bounds()
	first := gray.GrayAt(bounds.Min.X, y).Y
	for x := bounds.Min.X + 1; x < bounds.Max.X; x++ {
		if gray.GrayAt(x, y).Y != first {
			return false
		}
	}
	return true
}

func resample(gray *image.Gray, size int) *image.Gray {
	bounds := gray.Bounds()
	if bounds.Dx() == size && bounds.Dy() == size {
		return gray
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), gray, bounds, xdraw.Src, nil)
	return dst
}

// blurredSamples applies a box blur with clamped edges and returns
// zero-centered float samples in row-major order.
func blurredSamples(gray *image.Gray, size, radius int) []float64 {
	bounds := gray.Bounds()
	samples := make([]float64, size*size)
	span := float64((2*radius + 1) * (2*radius + 1))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			var sum float64
			for dy := -radius; dy <= radius; dy++ {
				sy := clamp(y+dy, 0, size-1)
				for dx := -radius; dx <= radius; dx++ {
					sx := clamp(x+dx, 0, size-1)
					sum += float64(gray.GrayAt(bounds.Min.X+sx, bounds.Min.Y+sy).Y)
				}
			}
			samples[y*size+x] = sum/span - 128.0
		}
	}
	return samples
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hashCoefficients walks the zig-zag ordering of the transformed
// coefficients, skips the leading low-signal entries, and emits one bit per
// coefficient in the fixed-length prefix.
func hashCoefficients(coefficients []float64, params formatParams) []byte {
	order := zigzagOrder(params.transformSize)
	term := make([]byte, params.hashBits/8)
	for i := 0; i < params.hashBits; i++ {
		idx := order[params.skipCoefficients+i]
		if coefficients[idx] >= params.bitThreshold {
			term[i/8] |= 1 << uint(7-i%8)
		}
	}
	return term
}

package testsupport

import (
	"image"
	"image/color"
	"math"
)

// NewTestImage renders a deterministic gradient-plus-sinusoid pattern over
// normalized coordinates, so the same phase at different resolutions depicts
// the same scene. Different phases produce structurally different images.
func NewTestImage(w, h int, phase float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx := float64(x) / float64(w)
			fy := float64(y) / float64(h)
			v := 255*fx +
				60*math.Sin(phase+6*math.Pi*fy) +
				40*math.Cos(phase+4*math.Pi*fx)
			if v < 0 {
				v = 0
			}
			if v > 255 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

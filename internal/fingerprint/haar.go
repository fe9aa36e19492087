package fingerprint

// haarTransform applies a separable 2D Haar wavelet decomposition in place:
// rows, then columns, recursively halving resolution. After the final level
// the lowest-frequency coefficient sits in the first cell, with progressively
// higher-frequency detail further out.
func haarTransform(m []float64, n int) {
	tmp := make([]float64, n)
	for size := n; size > 1; size >>= 1 {
		for y := 0; y < size; y++ {
			haarStepRow(m, y*n, size, tmp)
		}
		for x := 0; x < size; x++ {
			haarStepColumn(m, x, n, size, tmp)
		}
	}
}

// haarStepRow averages/differences adjacent pairs of the leading size cells
// of one row: averages land in the first half, differences in the second.
func haarStepRow(m []float64, offset, size int, tmp []float64) {
	half := size / 2
	for i := 0; i < half; i++ {
		a := m[offset+2*i]
		b := m[offset+2*i+1]
		tmp[i] = (a + b) / 2
		tmp[half+i] = (a - b) / 2
	}
	copy(m[offset:offset+size], tmp[:size])
}

func haarStepColumn(m []float64, x, stride, size int, tmp []float64) {
	half := size / 2
	for i := 0; i < half; i++ {
		a := m[(2*i)*stride+x]
		b := m[(2*i+1)*stride+x]
		tmp[i] = (a + b) / 2
		tmp[half+i] = (a - b) / 2
	}
	for i := 0; i < size; i++ {
		m[i*stride+x] = tmp[i]
	}
}

// zigzagOrder returns flat row-major indices of an n x n matrix along the
// standard anti-diagonal zig-zag traversal starting at the top-left cell.
func zigzagOrder(n int) []int {
	order := make([]int, 0, n*n)
	for s := 0; s < 2*n-1; s++ {
		if s%2 == 0 {
			// walk up-right
			y := s
			if y > n-1 {
				y = n - 1
			}
			x := s - y
			for y >= 0 && x < n {
				order = append(order, y*n+x)
				y--
				x++
			}
		} else {
			// walk down-left
			x := s
			if x > n-1 {
				x = n - 1
			}
			y := s - x
			for x >= 0 && y < n {
				order = append(order, y*n+x)
				x--
				y++
			}
		}
	}
	return order
}

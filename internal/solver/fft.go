package solver

import (
	"fmt"
	"math"
	"math/bits"
	"math/cmplx"
)

// FFT returns the discrete Fourier transform of real data. len(data) must
// be a power of two.
func FFT(data []float64) []complex128 {
	out := make([]complex128, len(data))
	for i, v := range data {
		out[i] = complex(v, 0)
	}
	fft(out, false)
	return out
}

// PowerSpectrum returns the magnitudes of the first half of the spectrum.
func PowerSpectrum(data []float64) []float64 {
	spec := FFT(data)
	ps := make([]float64, len(spec)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// fft transforms a in place. Neither direction is normalized; the inverse
// uses the positive exponent.
func fft(a []complex128, inverse bool) {
	n := len(a)
	if n <= 1 {
		return
	}
	if !isPow2(n) {
		panic(fmt.Sprintf("fft requires power of 2 length, got %d", n))
	}

	shift := 64 - bits.Len(uint(n-1))
	for i := 0; i < n; i++ {
		j := int(bits.Reverse64(uint64(i)) >> shift)
		if i < j {
			a[i], a[j] = a[j], a[i]
		}
	}

	sign := -1.0
	if inverse {
		sign = 1.0
	}

	for size := 2; size <= n; size <<= 1 {
		half := size / 2
		step := sign * 2 * math.Pi / float64(size)
		wStep := complex(math.Cos(step), math.Sin(step))
		for start := 0; start < n; start += size {
			w := complex(1, 0)
			for k := 0; k < half; k++ {
				even := a[start+k]
				odd := w * a[start+k+half]
				a[start+k] = even + odd
				a[start+k+half] = even - odd
				w *= wStep
			}
		}
	}
}

// fft2 transforms an nx*ny row major grid in place, rows then columns.
func fft2(a []complex128, nx, ny int, inverse bool, scratch []complex128) {
	for j := 0; j < ny; j++ {
		fft(a[j*nx:(j+1)*nx], inverse)
	}
	col := scratch[:ny]
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			col[j] = a[j*nx+i]
		}
		fft(col, inverse)
		for j := 0; j < ny; j++ {
			a[j*nx+i] = col[j]
		}
	}
}

// wavenumber maps an FFT bin to its signed index.
func wavenumber(m, n int) int {
	if m < n/2 {
		return m
	}
	return m - n
}

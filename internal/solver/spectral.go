package solver

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/oceansim/internal/wave"
)

const gravity = 9.81

// Spectral is a periodic, FFT synthesized wave field in the style of
// Tessendorf's statistical ocean. It serves both swell and wind chop; the
// component kind only changes defaults.
//
// Phase is accumulated from the sum of all Advance timesteps, so the field
// at any time depends on every step taken before it.
type Spectral struct {
	nx, ny int
	size   wave.Vec2
	depth  float64

	h0    []complex128
	h0neg []complex128
	omega []float64
	kx    []float64
	ky    []float64

	elapsed float64
	field   *wave.Field

	spec, scratch []complex128
}

func NewSpectral() *Spectral { return &Spectral{} }

type spectralDefaults struct {
	size   wave.Vec2
	nxny   wave.Vec2
	travel float64
	align  float64
	depth  float64
	seed   int
}

func defaultsFor(kind wave.Kind) spectralDefaults {
	if kind == wave.KindWindChop {
		return spectralDefaults{
			size: wave.Vec2{X: 30, Y: 30}, nxny: wave.Vec2{X: 128, Y: 128},
			travel: 1, align: 2, depth: math.Inf(1), seed: 2,
		}
	}
	return spectralDefaults{
		size: wave.Vec2{X: 4000, Y: 4000}, nxny: wave.Vec2{X: 256, Y: 256},
		travel: 1, align: 2, depth: math.Inf(1), seed: 1,
	}
}

func (e *Spectral) Generate(s wave.Settings) error {
	def := defaultsFor(s.Kind)

	oceanType, err := s.TextOr("oceantype", "")
	if err != nil {
		return err
	}
	switch oceanType {
	case "", "ochi", "deep", "pm":
	default:
		return &wave.ConfigError{Component: s.Label, Key: "oceantype", Reason: fmt.Sprintf("unsupported spectrum %q", oceanType)}
	}

	size, err := s.Vec2Or("patchsize", def.size)
	if err != nil {
		return err
	}
	nxny, err := s.Vec2Or("patchnxny", def.nxny)
	if err != nil {
		return err
	}
	nx, ny := int(nxny.X), int(nxny.Y)
	if !isPow2(nx) || !isPow2(ny) || float64(nx) != nxny.X || float64(ny) != nxny.Y {
		return &wave.ConfigError{Component: s.Label, Key: "patchnxny", Reason: fmt.Sprintf("%v is not a pair of powers of two", nxny)}
	}
	if size.X <= 0 || size.Y <= 0 {
		return &wave.ConfigError{Component: s.Label, Key: "patchsize", Reason: "must be positive"}
	}

	height, err := s.Float("typicalheight")
	if err != nil {
		return err
	}
	direction, err := s.Float("direction")
	if err != nil {
		return err
	}
	longest, err := s.Float("longest")
	if err != nil {
		return err
	}
	shortest, err := s.Float("shortest")
	if err != nil {
		return err
	}
	if shortest <= 0 || longest < shortest {
		return &wave.ConfigError{Component: s.Label, Key: "shortest", Reason: fmt.Sprintf("wavelength band [%g, %g] is empty", shortest, longest)}
	}
	travel, err := s.FloatOr("travel", def.travel)
	if err != nil {
		return err
	}
	align, err := s.FloatOr("align", def.align)
	if err != nil {
		return err
	}
	depth, err := s.FloatOr("depth", def.depth)
	if err != nil {
		return err
	}
	if depth <= 0 {
		return &wave.ConfigError{Component: s.Label, Key: "depth", Reason: "must be positive"}
	}
	seed, err := s.IntOr("seed", def.seed)
	if err != nil {
		return err
	}
	if _, err := s.Float("cuspscale"); err != nil {
		return err
	}

	e.nx, e.ny, e.size, e.depth = nx, ny, size, depth
	e.elapsed = 0
	e.buildSpectrum(height, direction*math.Pi/180, longest, shortest, travel, align, int64(seed))
	e.field = wave.NewField(nx, ny, wave.Vec2{}, size, true)
	e.spec = make([]complex128, nx*ny)
	e.scratch = make([]complex128, max(nx, ny))

	return e.synthesize(s)
}

func (e *Spectral) buildSpectrum(height, dir, longest, shortest, travel, align float64, seed int64) {
	n := e.nx * e.ny
	e.h0 = make([]complex128, n)
	e.h0neg = make([]complex128, n)
	e.omega = make([]float64, n)
	e.kx = make([]float64, n)
	e.ky = make([]float64, n)

	rng := rand.New(rand.NewSource(seed))
	kPeak := 4 * math.Pi / longest
	kMin, kMax := 2*math.Pi/longest, 2*math.Pi/shortest
	dk := (2 * math.Pi / e.size.X) * (2 * math.Pi / e.size.Y)
	dx, dy := math.Cos(dir), math.Sin(dir)

	amp := make([]float64, n)
	for j := 0; j < e.ny; j++ {
		for i := 0; i < e.nx; i++ {
			idx := j*e.nx + i
			kx := 2 * math.Pi * float64(wavenumber(i, e.nx)) / e.size.X
			ky := 2 * math.Pi * float64(wavenumber(j, e.ny)) / e.size.Y
			e.kx[idx], e.ky[idx] = kx, ky

			k := math.Hypot(kx, ky)
			if k == 0 {
				continue
			}
			e.omega[idx] = math.Sqrt(gravity * k * math.Tanh(k*e.depth))
			if k < kMin || k > kMax {
				continue
			}

			c := (kx*dx + ky*dy) / k
			spread := math.Pow(math.Abs(c), align)
			if c < 0 {
				spread /= 1 + travel
			}
			p := math.Exp(-(kPeak*kPeak)/(k*k)) / (k * k * k * k) * spread
			amp[idx] = math.Sqrt(p * dk / 2)
		}
	}

	for idx := range e.h0 {
		e.h0[idx] = complex(rng.NormFloat64()*amp[idx], rng.NormFloat64()*amp[idx])
	}

	var variance float64
	for _, h := range e.h0 {
		variance += 2 * real(h*cmplxConj(h))
	}
	if variance > 0 {
		scale := complex(height/(4*math.Sqrt(variance)), 0)
		for idx := range e.h0 {
			e.h0[idx] *= scale
		}
	}

	for j := 0; j < e.ny; j++ {
		for i := 0; i < e.nx; i++ {
			neg := ((e.ny-j)%e.ny)*e.nx + (e.nx-i)%e.nx
			e.h0neg[j*e.nx+i] = cmplxConj(e.h0[neg])
		}
	}
}

func (e *Spectral) Advance(dt float64, f wave.Forcing) error {
	e.elapsed += dt
	return e.synthesize(f.Settings)
}

func (e *Spectral) synthesize(s wave.Settings) error {
	cusp, err := s.Float("cuspscale")
	if err != nil {
		return err
	}

	n := e.nx * e.ny
	ht := make([]complex128, n)
	for idx := range ht {
		phase := e.omega[idx] * e.elapsed
		c, sn := math.Cos(phase), math.Sin(phase)
		ht[idx] = e.h0[idx]*complex(c, sn) + e.h0neg[idx]*complex(c, -sn)
	}

	e.inverse(ht, e.field.Height, func(int) complex128 { return 1 })
	e.inverse(ht, e.field.SlopeX, func(idx int) complex128 { return complex(0, e.kx[idx]) })
	e.inverse(ht, e.field.SlopeY, func(idx int) complex128 { return complex(0, e.ky[idx]) })
	e.inverse(ht, e.field.DispX, func(idx int) complex128 { return chopFactor(e.kx[idx], e.ky[idx], e.kx[idx], cusp) })
	e.inverse(ht, e.field.DispY, func(idx int) complex128 { return chopFactor(e.kx[idx], e.ky[idx], e.ky[idx], cusp) })

	if !e.field.IsValid() {
		return fmt.Errorf("%w at t=%.4f", ErrDiverged, e.elapsed)
	}
	return nil
}

func chopFactor(kx, ky, kc, scale float64) complex128 {
	k := math.Hypot(kx, ky)
	if k == 0 {
		return 0
	}
	return complex(0, -scale*kc/k)
}

func (e *Spectral) inverse(ht []complex128, dst []float64, factor func(int) complex128) {
	for idx := range ht {
		e.spec[idx] = ht[idx] * factor(idx)
	}
	fft2(e.spec, e.nx, e.ny, true, e.scratch)
	for idx := range dst {
		dst[idx] = real(e.spec[idx])
	}
}

func (e *Spectral) Field() *wave.Field { return e.field }

// Elapsed returns the accumulated phase time.
func (e *Spectral) Elapsed() float64 { return e.elapsed }

func cmplxConj(c complex128) complex128 { return complex(real(c), -imag(c)) }

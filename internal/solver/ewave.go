package solver

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/wave"
)

// EWave is a bounded interaction solver. It carries surface height and
// velocity potential on a grid and propagates both exactly in the spectral
// domain each step. A moving object pushes water down wherever its mesh
// dips below the ambient surface.
type EWave struct {
	nx, ny int
	llc    wave.Vec2
	size   wave.Vec2

	gravity           float64
	depth             float64
	capillary         float64
	sourceScale       float64
	ambientScale      float64
	displacementScale float64
	horizontal        bool
	trimFraction      float64
	trimWidth         int
	trimAlpha         float64

	h, phi   []float64
	prevPen  []float64
	bottom   []float64
	spec     []complex128
	specPhi  []complex128
	scratch  []complex128
	kx, ky   []float64
	field    *wave.Field
	elapsed  float64
	injected int
}

func NewEWave() *EWave { return &EWave{} }

// ErrDiverged is returned when the propagated field stops being finite.
var ErrDiverged = errors.New("solver: field diverged")

func (e *EWave) Generate(s wave.Settings) error {
	whitecaps, err := s.BoolOr("compute_whitecaps", false)
	if err != nil {
		return err
	}
	if whitecaps {
		return &wave.ConfigError{Component: s.Label, Key: "compute_whitecaps", Reason: "whitecap tracking is not supported"}
	}

	size, err := s.Vec2("patchsize")
	if err != nil {
		return err
	}
	if size.X <= 0 || size.Y <= 0 {
		return &wave.ConfigError{Component: s.Label, Key: "patchsize", Reason: "must be positive"}
	}
	llc, err := s.Vec2("llc")
	if err != nil {
		return err
	}
	nxny, err := s.Vec2Or("patchnxny", PatchResolution(size, 512))
	if err != nil {
		return err
	}
	nx, ny := int(nxny.X), int(nxny.Y)
	if !isPow2(nx) || !isPow2(ny) || float64(nx) != nxny.X || float64(ny) != nxny.Y {
		return &wave.ConfigError{Component: s.Label, Key: "patchnxny", Reason: fmt.Sprintf("%v is not a pair of powers of two", nxny)}
	}

	if e.gravity, err = s.Float("gravity"); err != nil {
		return err
	}
	if e.depth, err = s.Float("depth"); err != nil {
		return err
	}
	if e.gravity <= 0 || e.depth <= 0 {
		return &wave.ConfigError{Component: s.Label, Key: "gravity,depth", Reason: "must be positive"}
	}
	e.nx, e.ny, e.llc, e.size = nx, ny, llc, size
	e.capillary, e.sourceScale, e.ambientScale, e.displacementScale = 0, 1, 1, 1
	e.horizontal, e.trimFraction, e.trimAlpha = false, 0, 0
	if err := e.configure(s); err != nil {
		return err
	}

	n := nx * ny
	e.h = make([]float64, n)
	e.phi = make([]float64, n)
	e.prevPen = make([]float64, n)
	e.bottom = make([]float64, n)
	e.spec = make([]complex128, n)
	e.specPhi = make([]complex128, n)
	e.scratch = make([]complex128, max(nx, ny))
	e.kx = make([]float64, n)
	e.ky = make([]float64, n)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			e.kx[j*nx+i] = 2 * math.Pi * float64(wavenumber(i, nx)) / size.X
			e.ky[j*nx+i] = 2 * math.Pi * float64(wavenumber(j, ny)) / size.Y
		}
	}
	e.field = wave.NewField(nx, ny, llc, size, false)
	e.elapsed = 0
	e.injected = 0
	return nil
}

// configure reads the parameters that may change between frames. Keys
// absent from s keep their current value. The grid, gravity and depth are
// fixed at generation.
func (e *EWave) configure(s wave.Settings) error {
	capillary, err := s.FloatOr("capillary", e.capillary)
	if err != nil {
		return err
	}
	sourceScale, err := s.FloatOr("sourcescale", e.sourceScale)
	if err != nil {
		return err
	}
	ambientScale, err := s.FloatOr("ambientscale", e.ambientScale)
	if err != nil {
		return err
	}
	displacementScale, err := s.FloatOr("displacementscale", e.displacementScale)
	if err != nil {
		return err
	}
	horizontal, err := s.BoolOr("dohorizontal", e.horizontal)
	if err != nil {
		return err
	}
	trimFraction, err := s.FloatOr("trimfraction", e.trimFraction)
	if err != nil {
		return err
	}
	if trimFraction < 0 || trimFraction >= 0.5 {
		return &wave.ConfigError{Component: s.Label, Key: "trimfraction", Reason: "must be in [0, 0.5)"}
	}
	trimAlpha, err := s.FloatOr("trimalpha", e.trimAlpha)
	if err != nil {
		return err
	}
	if trimAlpha < 0 || trimAlpha > 1 {
		return &wave.ConfigError{Component: s.Label, Key: "trimalpha", Reason: "must be in [0, 1]"}
	}
	if capillary < 0 {
		return &wave.ConfigError{Component: s.Label, Key: "capillary", Reason: "must not be negative"}
	}

	e.capillary, e.sourceScale, e.ambientScale = capillary, sourceScale, ambientScale
	e.displacementScale, e.horizontal = displacementScale, horizontal
	e.trimFraction, e.trimAlpha = trimFraction, trimAlpha
	e.trimWidth = int(trimFraction * float64(min(e.nx, e.ny)))
	return nil
}

// Advance picks up the parameters resolved for the current frame, then
// injects the source, propagates and trims.
func (e *EWave) Advance(dt float64, f wave.Forcing) error {
	if err := e.configure(f.Settings); err != nil {
		return err
	}
	if f.ComputeSource && f.Source != nil {
		e.inject(f.Source, f.Surface)
	}

	e.propagate(dt)
	e.trim()
	e.elapsed += dt

	if err := e.output(); err != nil {
		return err
	}
	return nil
}

// inject converts object penetration below the ambient surface into a
// height change. Only the change since the last injection is applied, so a
// resting object does not keep pumping energy.
func (e *EWave) inject(m *geometry.Mesh, surface wave.Surface) {
	e.rasterize(m)
	for j := 0; j < e.ny; j++ {
		for i := 0; i < e.nx; i++ {
			k := j*e.nx + i
			pen := 0.0
			if !math.IsInf(e.bottom[k], 1) {
				ambient := 0.0
				if surface != nil {
					x, y := e.field.Position(i, j)
					ambient = e.ambientScale * surface.Sample(x, y).Height
				}
				pen = math.Max(0, ambient-e.bottom[k])
			}
			e.h[k] -= e.sourceScale * (pen - e.prevPen[k])
			e.prevPen[k] = pen
		}
	}
	e.injected++
}

// rasterize records the lowest mesh point over each grid node. The mesh is
// projected onto the XZ plane.
func (e *EWave) rasterize(m *geometry.Mesh) {
	for k := range e.bottom {
		e.bottom[k] = math.Inf(1)
	}
	c := e.field.CellSize()
	for _, face := range m.Faces {
		a, b, d := m.Vertices[face[0]], m.Vertices[face[1]], m.Vertices[face[2]]
		den := (b.Z-d.Z)*(a.X-d.X) + (d.X-b.X)*(a.Z-d.Z)
		if den == 0 {
			continue
		}

		i0 := max(0, int(math.Floor((min(a.X, b.X, d.X)-e.llc.X)/c.X)))
		i1 := min(e.nx-1, int(math.Ceil((max(a.X, b.X, d.X)-e.llc.X)/c.X)))
		j0 := max(0, int(math.Floor((min(a.Z, b.Z, d.Z)-e.llc.Y)/c.Y)))
		j1 := min(e.ny-1, int(math.Ceil((max(a.Z, b.Z, d.Z)-e.llc.Y)/c.Y)))

		for j := j0; j <= j1; j++ {
			for i := i0; i <= i1; i++ {
				x, z := e.field.Position(i, j)
				w0 := ((b.Z-d.Z)*(x-d.X) + (d.X-b.X)*(z-d.Z)) / den
				w1 := ((d.Z-a.Z)*(x-d.X) + (a.X-d.X)*(z-d.Z)) / den
				w2 := 1 - w0 - w1
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				y := w0*a.Y + w1*b.Y + w2*d.Y
				k := j*e.nx + i
				e.bottom[k] = math.Min(e.bottom[k], y)
			}
		}
	}
}

func (e *EWave) propagate(dt float64) {
	for k := range e.h {
		e.spec[k] = complex(e.h[k], 0)
		e.specPhi[k] = complex(e.phi[k], 0)
	}
	fft2(e.spec, e.nx, e.ny, false, e.scratch)
	fft2(e.specPhi, e.nx, e.ny, false, e.scratch)

	for k := range e.spec {
		kk := math.Hypot(e.kx[k], e.ky[k])
		geff := e.gravity + e.capillary*kk*kk
		big := kk * math.Tanh(kk*e.depth)
		h, p := e.spec[k], e.specPhi[k]
		if big == 0 {
			e.specPhi[k] = p - complex(geff*dt, 0)*h
			continue
		}
		w := math.Sqrt(geff * big)
		c, s := math.Cos(w*dt), math.Sin(w*dt)
		e.spec[k] = complex(c, 0)*h + complex(big/w*s, 0)*p
		e.specPhi[k] = complex(c, 0)*p - complex(geff/w*s, 0)*h
	}

	fft2(e.spec, e.nx, e.ny, true, e.scratch)
	fft2(e.specPhi, e.nx, e.ny, true, e.scratch)
	norm := 1 / float64(e.nx*e.ny)
	for k := range e.h {
		e.h[k] = real(e.spec[k]) * norm
		e.phi[k] = real(e.specPhi[k]) * norm
	}
}

// trim damps a band along the patch border so waves leave instead of
// wrapping around.
func (e *EWave) trim() {
	if e.trimWidth == 0 || e.trimAlpha == 0 {
		return
	}
	w := float64(e.trimWidth)
	for j := 0; j < e.ny; j++ {
		for i := 0; i < e.nx; i++ {
			d := min(i, j, e.nx-1-i, e.ny-1-j)
			if d >= e.trimWidth {
				continue
			}
			damp := 1 - e.trimAlpha*(1-float64(d)/w)
			k := j*e.nx + i
			e.h[k] *= damp
			e.phi[k] *= damp
		}
	}
}

func (e *EWave) output() error {
	for k, h := range e.h {
		e.spec[k] = complex(h, 0)
	}
	fft2(e.spec, e.nx, e.ny, false, e.scratch)
	hk := make([]complex128, len(e.spec))
	copy(hk, e.spec)

	copy(e.field.Height, e.h)
	e.derive(hk, e.field.SlopeX, func(k int) complex128 { return complex(0, e.kx[k]) })
	e.derive(hk, e.field.SlopeY, func(k int) complex128 { return complex(0, e.ky[k]) })
	if e.horizontal {
		e.derive(hk, e.field.DispX, func(k int) complex128 { return chopFactor(e.kx[k], e.ky[k], e.kx[k], e.displacementScale) })
		e.derive(hk, e.field.DispY, func(k int) complex128 { return chopFactor(e.kx[k], e.ky[k], e.ky[k], e.displacementScale) })
	}

	if !e.field.IsValid() {
		return fmt.Errorf("%w at t=%.4f", ErrDiverged, e.elapsed)
	}
	return nil
}

func (e *EWave) derive(hk []complex128, dst []float64, factor func(int) complex128) {
	for k := range hk {
		e.spec[k] = hk[k] * factor(k)
	}
	fft2(e.spec, e.nx, e.ny, true, e.scratch)
	norm := 1 / float64(e.nx*e.ny)
	for k := range dst {
		dst[k] = real(e.spec[k]) * norm
	}
}

func (e *EWave) Field() *wave.Field { return e.field }

// Injections returns how many frames forced the solver with a source.
func (e *EWave) Injections() int { return e.injected }

// PatchResolution picks a power of two grid for a patch so the longest side
// gets the requested resolution and the other side keeps the cell aspect.
func PatchResolution(size wave.Vec2, longest int) wave.Vec2 {
	longest = nextPow2(longest)
	if size.X <= 0 || size.Y <= 0 {
		return wave.Vec2{X: float64(longest), Y: float64(longest)}
	}
	if size.X >= size.Y {
		ny := nextPow2(int(math.Round(float64(longest) * size.Y / size.X)))
		return wave.Vec2{X: float64(longest), Y: float64(max(ny, 1))}
	}
	nx := nextPow2(int(math.Round(float64(longest) * size.X / size.Y)))
	return wave.Vec2{X: float64(max(nx, 1)), Y: float64(longest)}
}

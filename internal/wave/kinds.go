package wave

import (
	"github.com/san-kum/oceansim/internal/geometry"
)

// Per-frame override keys of a LocalDisturbance.
const (
	KeyHeightSourceGeom    = "height_source_geom"
	KeyComputeHeightSource = "compute_height_source"
	KeySurfaceGeom         = "surface_geom"
)

var (
	swellRequired = []string{
		"typicalheight", "travel", "align", "direction",
		"cuspscale", "longest", "shortest", "depth",
	}
	windChopRequired = []string{
		"typicalheight", "direction", "longest", "shortest", "cuspscale",
	}
	disturbanceRequired = []string{
		"patchsize", "llc", "gravity", "depth",
	}
)

// Swell is the large scale, long period component.
type Swell struct {
	base
}

func NewSwell(label string, engine Engine, writer FieldWriter) *Swell {
	return &Swell{newBase(label, KindSwell, swellRequired, engine, writer)}
}

// WindChop is the small scale, wind driven component.
type WindChop struct {
	base
}

func NewWindChop(label string, engine Engine, writer FieldWriter) *WindChop {
	return &WindChop{newBase(label, KindWindChop, windChopRequired, engine, writer)}
}

// LocalDisturbance is a bounded interaction field driven by a moving
// object. It rides on a base surface and is forced by a boundary mesh that
// the caller supplies fresh every frame.
type LocalDisturbance struct {
	base

	surface       Surface
	source        *geometry.Mesh
	computeSource bool
}

func NewLocalDisturbance(label string, engine Engine, writer FieldWriter) *LocalDisturbance {
	return &LocalDisturbance{base: newBase(label, KindLocalDisturbance, disturbanceRequired, engine, writer)}
}

// Set accepts the override keys at any time. The height source and its
// trigger are consumed by the next Update.
func (d *LocalDisturbance) Set(key string, v Value) error {
	switch key {
	case KeyHeightSourceGeom:
		switch m := v.Resolve(d.frame).(type) {
		case *geometry.Mesh:
			d.source = m
		case geometry.Mesh:
			d.source = &m
		case nil:
			d.source = nil
		default:
			return configErrorf(d.label, key, "expected a mesh, got %T", m)
		}
		return nil

	case KeyComputeHeightSource:
		b, ok := v.Resolve(d.frame).(bool)
		if !ok {
			return configErrorf(d.label, key, "expected a boolean")
		}
		d.computeSource = b
		return nil

	case KeySurfaceGeom:
		s, ok := v.Resolve(d.frame).(Surface)
		if !ok {
			return configErrorf(d.label, key, "expected a surface")
		}
		d.surface = s
		return nil
	}
	return d.base.Set(key, v)
}

func (d *LocalDisturbance) Get(key string) (Value, bool) {
	switch key {
	case KeyHeightSourceGeom:
		return Literal(d.source), d.source != nil
	case KeyComputeHeightSource:
		return Literal(d.computeSource), true
	case KeySurfaceGeom:
		return Literal(d.surface), d.surface != nil
	}
	return d.base.Get(key)
}

// SetSurface is shorthand for Set(KeySurfaceGeom, Literal(s)).
func (d *LocalDisturbance) SetSurface(s Surface) { d.surface = s }

func (d *LocalDisturbance) Update(dt float64) error {
	source, compute := d.source, d.computeSource
	d.source, d.computeSource = nil, false

	if compute && source == nil {
		return configErrorf(d.label, KeyComputeHeightSource, "height source requested without geometry")
	}

	return d.advance(dt, Forcing{
		Surface:       d.surface,
		Source:        source,
		ComputeSource: compute,
	})
}

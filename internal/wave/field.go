package wave

import "math"

// Sample is the surface state at one point.
type Sample struct {
	Height float64
	SlopeX float64
	SlopeY float64
	DispX  float64
	DispY  float64
}

func (s Sample) Add(o Sample) Sample {
	return Sample{
		Height: s.Height + o.Height,
		SlopeX: s.SlopeX + o.SlopeX,
		SlopeY: s.SlopeY + o.SlopeY,
		DispX:  s.DispX + o.DispX,
		DispY:  s.DispY + o.DispY,
	}
}

// Surface is anything that can be sampled at a world point on the water
// plane.
type Surface interface {
	Sample(x, y float64) Sample
}

// Field is a regular grid of surface values. Node (i, j) sits at
// LLC + (i*Size.X/NX, j*Size.Y/NY). Periodic fields tile the plane, bounded
// fields are zero outside their patch.
type Field struct {
	NX, NY   int
	LLC      Vec2
	Size     Vec2
	Periodic bool

	Height []float64
	SlopeX []float64
	SlopeY []float64
	DispX  []float64
	DispY  []float64
}

func NewField(nx, ny int, llc, size Vec2, periodic bool) *Field {
	n := nx * ny
	return &Field{
		NX: nx, NY: ny, LLC: llc, Size: size, Periodic: periodic,
		Height: make([]float64, n),
		SlopeX: make([]float64, n),
		SlopeY: make([]float64, n),
		DispX:  make([]float64, n),
		DispY:  make([]float64, n),
	}
}

// Index returns the flat index of node (i, j).
func (f *Field) Index(i, j int) int { return j*f.NX + i }

func (f *Field) CellSize() Vec2 {
	return Vec2{f.Size.X / float64(f.NX), f.Size.Y / float64(f.NY)}
}

// Position returns the world position of node (i, j).
func (f *Field) Position(i, j int) (float64, float64) {
	c := f.CellSize()
	return f.LLC.X + float64(i)*c.X, f.LLC.Y + float64(j)*c.Y
}

func (f *Field) At(i, j int) Sample {
	k := f.Index(i, j)
	return Sample{f.Height[k], f.SlopeX[k], f.SlopeY[k], f.DispX[k], f.DispY[k]}
}

func (f *Field) add(k int, s Sample) {
	f.Height[k] += s.Height
	f.SlopeX[k] += s.SlopeX
	f.SlopeY[k] += s.SlopeY
	f.DispX[k] += s.DispX
	f.DispY[k] += s.DispY
}

// Zero clears every channel.
func (f *Field) Zero() {
	for _, ch := range [][]float64{f.Height, f.SlopeX, f.SlopeY, f.DispX, f.DispY} {
		clear(ch)
	}
}

func (f *Field) Clone() *Field {
	c := NewField(f.NX, f.NY, f.LLC, f.Size, f.Periodic)
	copy(c.Height, f.Height)
	copy(c.SlopeX, f.SlopeX)
	copy(c.SlopeY, f.SlopeY)
	copy(c.DispX, f.DispX)
	copy(c.DispY, f.DispY)
	return c
}

// SameGrid reports whether both fields share node positions.
func (f *Field) SameGrid(o *Field) bool {
	return f.NX == o.NX && f.NY == o.NY && f.LLC == o.LLC && f.Size == o.Size
}

// Sample interpolates bilinearly at world point (x, y).
func (f *Field) Sample(x, y float64) Sample {
	if f.NX == 0 || f.NY == 0 {
		return Sample{}
	}
	c := f.CellSize()
	u := (x - f.LLC.X) / c.X
	v := (y - f.LLC.Y) / c.Y

	if !f.Periodic {
		if u < 0 || v < 0 || u > float64(f.NX-1) || v > float64(f.NY-1) {
			return Sample{}
		}
	}

	i0, fu := splitIndex(u)
	j0, fv := splitIndex(v)
	i1, j1 := i0+1, j0+1

	if f.Periodic {
		i0, i1 = wrap(i0, f.NX), wrap(i1, f.NX)
		j0, j1 = wrap(j0, f.NY), wrap(j1, f.NY)
	} else {
		i1 = min(i1, f.NX-1)
		j1 = min(j1, f.NY-1)
	}

	s00, s10 := f.At(i0, j0), f.At(i1, j0)
	s01, s11 := f.At(i0, j1), f.At(i1, j1)

	lerp := func(a, b, c, d float64) float64 {
		return (a*(1-fu)+b*fu)*(1-fv) + (c*(1-fu)+d*fu)*fv
	}
	return Sample{
		Height: lerp(s00.Height, s10.Height, s01.Height, s11.Height),
		SlopeX: lerp(s00.SlopeX, s10.SlopeX, s01.SlopeX, s11.SlopeX),
		SlopeY: lerp(s00.SlopeY, s10.SlopeY, s01.SlopeY, s11.SlopeY),
		DispX:  lerp(s00.DispX, s10.DispX, s01.DispX, s11.DispX),
		DispY:  lerp(s00.DispY, s10.DispY, s01.DispY, s11.DispY),
	}
}

// HeightRange returns the minimum and maximum height.
func (f *Field) HeightRange() (lo, hi float64) {
	if len(f.Height) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, h := range f.Height {
		lo, hi = math.Min(lo, h), math.Max(hi, h)
	}
	return lo, hi
}

// IsValid reports whether every value is finite.
func (f *Field) IsValid() bool {
	for _, ch := range [][]float64{f.Height, f.SlopeX, f.SlopeY, f.DispX, f.DispY} {
		for _, v := range ch {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func splitIndex(u float64) (int, float64) {
	fl := math.Floor(u)
	return int(fl), u - fl
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

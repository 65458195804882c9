package wave

// Merge sums the fields of its constituents. It holds references only; the
// constituents stay owned by the scene that created them. A component added
// to a merge must not be updated by anyone else.
type Merge struct {
	label     string
	waves     []Component
	field     *Field
	generated bool
	steps     int
}

func NewMerge(label string) *Merge {
	return &Merge{label: label}
}

func (m *Merge) Label() string { return m.label }

// AddWave registers c. Registration order is update order.
func (m *Merge) AddWave(c Component) error {
	if m.generated {
		return configErrorf(m.label, "", "cannot add %q after generation", c.Label())
	}
	for _, w := range m.waves {
		if w == c {
			return configErrorf(m.label, "", "%q added twice", c.Label())
		}
	}
	m.waves = append(m.waves, c)
	return nil
}

// Waves returns the constituents in registration order.
func (m *Merge) Waves() []Component {
	out := make([]Component, len(m.waves))
	copy(out, m.waves)
	return out
}

// Generate requires every constituent to be generated already. The merged
// grid is the grid of the first constituent.
func (m *Merge) Generate() error {
	if m.generated {
		return configErrorf(m.label, "", "already generated")
	}
	if len(m.waves) == 0 {
		return configErrorf(m.label, "", "no waves to merge")
	}
	for _, w := range m.waves {
		if !w.Generated() {
			return configErrorf(m.label, "", "constituent %q is not generated", w.Label())
		}
	}

	first := m.waves[0].Field()
	m.field = NewField(first.NX, first.NY, first.LLC, first.Size, first.Periodic)
	m.recompute()
	m.generated = true
	return nil
}

func (m *Merge) Generated() bool { return m.generated }

// Steps returns the number of completed merge updates.
func (m *Merge) Steps() int { return m.steps }

// SetFrame forwards the frame to every constituent.
func (m *Merge) SetFrame(frame int) {
	for _, w := range m.waves {
		w.SetFrame(frame)
	}
}

// Update advances each constituent once, in registration order, then
// recomputes the sum. On error the merged field keeps its previous value.
func (m *Merge) Update(dt float64) error {
	if !m.generated {
		return configErrorf(m.label, "", "update before generation")
	}
	for _, w := range m.waves {
		if err := w.Update(dt); err != nil {
			return err
		}
	}
	m.recompute()
	m.steps++
	return nil
}

func (m *Merge) recompute() {
	m.field.Zero()
	for _, w := range m.waves {
		src := w.Field()
		if src.SameGrid(m.field) {
			for k := range m.field.Height {
				m.field.add(k, Sample{src.Height[k], src.SlopeX[k], src.SlopeY[k], src.DispX[k], src.DispY[k]})
			}
			continue
		}
		for j := 0; j < m.field.NY; j++ {
			for i := 0; i < m.field.NX; i++ {
				x, y := m.field.Position(i, j)
				m.field.add(m.field.Index(i, j), src.Sample(x, y))
			}
		}
	}
}

// Field returns the merged grid.
func (m *Merge) Field() *Field { return m.field }

// Sample sums the constituents at (x, y) without going through the merged
// grid, so small scale constituents keep their resolution.
func (m *Merge) Sample(x, y float64) Sample {
	var s Sample
	for _, w := range m.waves {
		if f := w.Field(); f != nil {
			s = s.Add(f.Sample(x, y))
		}
	}
	return s
}

package wave

import "github.com/san-kum/oceansim/internal/geometry"

// Engine is the numeric solver behind a component. Its internal state is
// opaque; the component only generates it once and advances it one step at
// a time.
type Engine interface {
	Generate(s Settings) error
	Advance(dt float64, f Forcing) error
	Field() *Field
}

// Forcing carries the inputs of a single Advance call.
type Forcing struct {
	// Settings holds the parameters resolved at the current frame.
	Settings Settings

	// Surface is the base surface a disturbance rides on. Nil for
	// free-running components.
	Surface Surface

	// Source is the boundary mesh for this step, consulted only when
	// ComputeSource is set.
	Source        *geometry.Mesh
	ComputeSource bool
}

// FieldWriter serializes a field to a path.
type FieldWriter interface {
	WriteField(path string, f *Field) error
}

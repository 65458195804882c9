package wave

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Kind enumerates the component variants.
type Kind int

const (
	KindSwell Kind = iota
	KindWindChop
	KindLocalDisturbance
)

func (k Kind) String() string {
	switch k {
	case KindSwell:
		return "swell"
	case KindWindChop:
		return "windchop"
	case KindLocalDisturbance:
		return "disturbance"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind accepts the canonical names plus a few aliases used in older
// scene files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "swell", "wavesurfer":
		return KindSwell, nil
	case "windchop", "chop", "wind_chop":
		return KindWindChop, nil
	case "disturbance", "local_disturbance", "ewave":
		return KindLocalDisturbance, nil
	default:
		return 0, fmt.Errorf("unknown wave kind %q", s)
	}
}

// Component is one wave field of the scene.
//
// Set and Get are only valid before Generate, except for the per-frame
// override keys a kind declares. Update must be called once per frame, in
// order, with the fixed frame timestep.
type Component interface {
	Label() string
	Kind() Kind
	Set(key string, v Value) error
	Get(key string) (Value, bool)
	Generate() error
	Generated() bool
	SetFrame(frame int)
	Update(dt float64) error
	WriteDisplacement(path string) error
	Field() *Field
}

type base struct {
	label    string
	kind     Kind
	required []string
	engine   Engine
	writer   FieldWriter

	params    Params
	settings  Settings
	frame     int
	generated bool
	steps     int
	elapsed   float64
}

func newBase(label string, kind Kind, required []string, engine Engine, writer FieldWriter) base {
	return base{
		label:    label,
		kind:     kind,
		required: required,
		engine:   engine,
		writer:   writer,
		params:   make(Params),
		frame:    1,
	}
}

func (b *base) Label() string   { return b.label }
func (b *base) Kind() Kind      { return b.kind }
func (b *base) Generated() bool { return b.generated }

// Steps returns the number of completed updates.
func (b *base) Steps() int { return b.steps }

// Elapsed returns the accumulated simulation time.
func (b *base) Elapsed() float64 { return b.elapsed }

func (b *base) Set(key string, v Value) error {
	if key == "" {
		return configErrorf(b.label, key, "empty parameter name")
	}
	if b.generated {
		return configErrorf(b.label, key, "cannot change parameter after generation")
	}
	b.params[key] = v
	return nil
}

func (b *base) Get(key string) (Value, bool) {
	v, ok := b.params[key]
	return v, ok
}

func (b *base) Generate() error {
	if b.generated {
		return configErrorf(b.label, "", "already generated")
	}
	if b.engine == nil {
		return configErrorf(b.label, "", "no engine attached")
	}

	var missing []string
	for _, key := range b.required {
		if _, ok := b.params[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return configErrorf(b.label, strings.Join(missing, ","), "required parameter is missing")
	}

	b.settings = NewSettings(b.label, b.kind, b.frame, b.params.Resolve(b.frame))
	if err := b.engine.Generate(b.settings); err != nil {
		return b.engineError("generate", err)
	}
	if b.engine.Field() == nil {
		return &SolverError{Component: b.label, Op: "generate", Err: errors.New("engine produced no field")}
	}

	b.generated = true
	return nil
}

// SetFrame re-resolves frame dependent parameters for the next update.
func (b *base) SetFrame(frame int) {
	b.frame = frame
	if b.generated {
		b.settings = NewSettings(b.label, b.kind, frame, b.params.Resolve(frame))
	}
}

func (b *base) Update(dt float64) error {
	return b.advance(dt, Forcing{})
}

func (b *base) advance(dt float64, f Forcing) error {
	if !b.generated {
		return configErrorf(b.label, "", "update before generation")
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return configErrorf(b.label, "", "timestep must be positive and finite, got %g", dt)
	}

	f.Settings = b.settings
	if err := b.engine.Advance(dt, f); err != nil {
		return b.engineError("update", err)
	}

	b.steps++
	b.elapsed += dt
	return nil
}

func (b *base) WriteDisplacement(path string) error {
	if !b.generated {
		return configErrorf(b.label, "", "write before generation")
	}
	if b.writer == nil {
		return configErrorf(b.label, "", "no field writer attached")
	}
	if err := b.writer.WriteField(path, b.engine.Field()); err != nil {
		return NewIOError("write", path, err)
	}
	return nil
}

func (b *base) Field() *Field {
	if b.engine == nil {
		return nil
	}
	return b.engine.Field()
}

func (b *base) engineError(op string, err error) error {
	if errors.Is(err, ErrConfig) {
		return err
	}
	return &SolverError{Component: b.label, Op: op, Err: err}
}

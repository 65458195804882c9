package wave

import (
	"fmt"
	"strconv"
	"strings"
)

// Vec2 is a typed two component parameter such as a patch size or a lower
// left corner.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) String() string {
	return fmt.Sprintf("[%g, %g]", v.X, v.Y)
}

// ParseVec2 parses the legacy bracketed form "[40.0, 20.0]". Brackets are
// optional.
func ParseVec2(s string) (Vec2, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return Vec2{}, fmt.Errorf("expected two components, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Vec2{}, err
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{x, y}, nil
}

// Value is a parameter value: either a literal or a function of the frame
// number, resolved explicitly by whoever owns the current frame.
type Value struct {
	lit any
	fn  func(frame int) any
}

// Literal wraps a fixed value.
func Literal(v any) Value { return Value{lit: v} }

// FunctionOfFrame wraps a value that varies with the frame number.
func FunctionOfFrame(fn func(frame int) any) Value { return Value{fn: fn} }

// FrameDependent reports whether the value changes with the frame.
func (v Value) FrameDependent() bool { return v.fn != nil }

// Resolve returns the concrete value at frame.
func (v Value) Resolve(frame int) any {
	if v.fn != nil {
		return v.fn(frame)
	}
	return v.lit
}

// Params maps parameter names to values.
type Params map[string]Value

// Resolve evaluates every value at frame.
func (p Params) Resolve(frame int) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Resolve(frame)
	}
	return out
}

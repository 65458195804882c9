package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/oceansim/internal/wave"
)

// FrameExpr is a parameter that varies linearly with the frame:
// Base + Scale*(frame-Offset).
type FrameExpr struct {
	Base   float64 `yaml:"base"`
	Scale  float64 `yaml:"scale"`
	Offset float64 `yaml:"offset"`
}

func (e FrameExpr) At(frame int) float64 {
	return e.Base + e.Scale*(float64(frame)-e.Offset)
}

// ParamValue is one component parameter as written in a document. It is
// either a literal (number, bool, string or 2-vector) or a FrameExpr.
type ParamValue struct {
	lit   any
	frame *FrameExpr
}

func Literal(v any) ParamValue { return ParamValue{lit: v} }

func PerFrame(e FrameExpr) ParamValue { return ParamValue{frame: &e} }

// Raw returns the literal payload, or nil for frame expressions.
func (p ParamValue) Raw() any { return p.lit }

func (p ParamValue) FrameExpr() (FrameExpr, bool) {
	if p.frame == nil {
		return FrameExpr{}, false
	}
	return *p.frame, true
}

// Value converts the document value into a component value.
func (p ParamValue) Value() wave.Value {
	if p.frame != nil {
		e := *p.frame
		return wave.FunctionOfFrame(func(frame int) any { return e.At(frame) })
	}
	return wave.Literal(p.lit)
}

// Scaled multiplies a numeric value. Frame expressions scale both terms.
func (p ParamValue) Scaled(m float64) (ParamValue, error) {
	if p.frame != nil {
		e := *p.frame
		e.Base *= m
		e.Scale *= m
		return PerFrame(e), nil
	}
	switch v := p.lit.(type) {
	case float64:
		return Literal(v * m), nil
	case int:
		return Literal(float64(v) * m), nil
	default:
		return p, fmt.Errorf("cannot scale %T", p.lit)
	}
}

func (p *ParamValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return err
		}
		if s, ok := v.(string); ok && strings.HasPrefix(strings.TrimSpace(s), "[") {
			vec, err := wave.ParseVec2(s)
			if err != nil {
				return fmt.Errorf("line %d: %w", node.Line, err)
			}
			v = vec
		}
		*p = Literal(v)
		return nil

	case yaml.SequenceNode:
		var xs []float64
		if err := node.Decode(&xs); err != nil {
			return fmt.Errorf("line %d: vector components must be numbers", node.Line)
		}
		if len(xs) != 2 {
			return fmt.Errorf("line %d: expected a 2-vector, got %d components", node.Line, len(xs))
		}
		*p = Literal(wave.Vec2{X: xs[0], Y: xs[1]})
		return nil

	case yaml.MappingNode:
		var m struct {
			Frame *FrameExpr `yaml:"frame"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		if m.Frame == nil {
			return fmt.Errorf("line %d: mapping parameters must be {frame: {base, scale, offset}}", node.Line)
		}
		*p = PerFrame(*m.Frame)
		return nil
	}
	return fmt.Errorf("line %d: unsupported parameter value", node.Line)
}

func (p ParamValue) MarshalYAML() (any, error) {
	if p.frame != nil {
		return map[string]FrameExpr{"frame": *p.frame}, nil
	}
	if v, ok := p.lit.(wave.Vec2); ok {
		node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, x := range []float64{v.X, v.Y} {
			var n yaml.Node
			if err := n.Encode(x); err != nil {
				return nil, err
			}
			node.Content = append(node.Content, &n)
		}
		return node, nil
	}
	return p.lit, nil
}

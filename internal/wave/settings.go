package wave

import "fmt"

// Settings is the resolved parameter set handed to an Engine. The typed
// getters report malformed or missing values as ConfigError.
type Settings struct {
	Label  string
	Kind   Kind
	Frame  int
	values map[string]any
}

func NewSettings(label string, kind Kind, frame int, values map[string]any) Settings {
	if values == nil {
		values = make(map[string]any)
	}
	return Settings{Label: label, Kind: kind, Frame: frame, values: values}
}

func (s Settings) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

func (s Settings) Raw(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s Settings) missing(key string) error {
	return configErrorf(s.Label, key, "required parameter is missing")
}

func (s Settings) Float(key string) (float64, error) {
	v, ok := s.values[key]
	if !ok {
		return 0, s.missing(key)
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, configErrorf(s.Label, key, "expected a number, got %T", v)
	}
	return f, nil
}

func (s Settings) FloatOr(key string, def float64) (float64, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Float(key)
}

func (s Settings) Int(key string) (int, error) {
	f, err := s.Float(key)
	if err != nil {
		return 0, err
	}
	if f != float64(int(f)) {
		return 0, configErrorf(s.Label, key, "expected an integer, got %g", f)
	}
	return int(f), nil
}

func (s Settings) IntOr(key string, def int) (int, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Int(key)
}

func (s Settings) Bool(key string) (bool, error) {
	v, ok := s.values[key]
	if !ok {
		return false, s.missing(key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, configErrorf(s.Label, key, "expected a boolean, got %T", v)
	}
	return b, nil
}

func (s Settings) BoolOr(key string, def bool) (bool, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Bool(key)
}

func (s Settings) Text(key string) (string, error) {
	v, ok := s.values[key]
	if !ok {
		return "", s.missing(key)
	}
	str, ok := v.(string)
	if !ok {
		return "", configErrorf(s.Label, key, "expected a string, got %T", v)
	}
	return str, nil
}

func (s Settings) TextOr(key, def string) (string, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Text(key)
}

func (s Settings) Vec2(key string) (Vec2, error) {
	v, ok := s.values[key]
	if !ok {
		return Vec2{}, s.missing(key)
	}
	vec, err := toVec2(v)
	if err != nil {
		return Vec2{}, configErrorf(s.Label, key, "%v", err)
	}
	return vec, nil
}

func (s Settings) Vec2Or(key string, def Vec2) (Vec2, error) {
	if !s.Has(key) {
		return def, nil
	}
	return s.Vec2(key)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toVec2(v any) (Vec2, error) {
	switch t := v.(type) {
	case Vec2:
		return t, nil
	case *Vec2:
		if t == nil {
			return Vec2{}, fmt.Errorf("nil vector")
		}
		return *t, nil
	case [2]float64:
		return Vec2{t[0], t[1]}, nil
	case []float64:
		if len(t) != 2 {
			return Vec2{}, fmt.Errorf("expected two components, got %d", len(t))
		}
		return Vec2{t[0], t[1]}, nil
	case []any:
		if len(t) != 2 {
			return Vec2{}, fmt.Errorf("expected two components, got %d", len(t))
		}
		x, okx := toFloat(t[0])
		y, oky := toFloat(t[1])
		if !okx || !oky {
			return Vec2{}, fmt.Errorf("vector components must be numbers")
		}
		return Vec2{x, y}, nil
	case string:
		return ParseVec2(t)
	default:
		return Vec2{}, fmt.Errorf("expected a vector, got %T", v)
	}
}

package scene

import (
	"fmt"
	"sort"

	"github.com/san-kum/oceansim/internal/solver"
	"github.com/san-kum/oceansim/internal/wave"
)

// Constructor builds an ungenerated component of one kind.
type Constructor func(label string, writer wave.FieldWriter) wave.Component

type Registry struct {
	kinds map[wave.Kind]Constructor
}

func NewRegistry() *Registry {
	r := &Registry{kinds: make(map[wave.Kind]Constructor)}

	r.kinds[wave.KindSwell] = func(label string, w wave.FieldWriter) wave.Component {
		return wave.NewSwell(label, solver.NewSpectral(), w)
	}
	r.kinds[wave.KindWindChop] = func(label string, w wave.FieldWriter) wave.Component {
		return wave.NewWindChop(label, solver.NewSpectral(), w)
	}
	r.kinds[wave.KindLocalDisturbance] = func(label string, w wave.FieldWriter) wave.Component {
		return wave.NewLocalDisturbance(label, solver.NewEWave(), w)
	}

	return r
}

// Register replaces the constructor of a kind.
func (r *Registry) Register(kind wave.Kind, c Constructor) {
	r.kinds[kind] = c
}

func (r *Registry) New(kind wave.Kind, label string, w wave.FieldWriter) (wave.Component, error) {
	fn, ok := r.kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown kind: %s", kind)
	}
	return fn(label, w), nil
}

func (r *Registry) ListKinds() []string {
	names := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		names = append(names, kind.String())
	}
	sort.Strings(names)
	return names
}

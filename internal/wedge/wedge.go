// Package wedge expands parameter sweeps into independent simulation jobs.
//
// A wedge is the Cartesian product of candidate values for a set of
// component parameters. Each combination becomes a record, each record a
// run document under parms/ and a submit script under script/, and each
// script is handed to a job queue in generation order.
package wedge

import (
	"errors"
	"fmt"

	"github.com/san-kum/oceansim/internal/config"
)

var (
	ErrNoParameters    = errors.New("wedge: no parameters")
	ErrEmptyCandidates = errors.New("wedge: parameter has no candidate values")
	ErrDuplicateParam  = errors.New("wedge: duplicate parameter")
)

// Param is one swept parameter with its candidate values.
type Param struct {
	Name   string `yaml:"name"`
	Values []any  `yaml:"values"`
}

type Assignment struct {
	Name  string
	Value any
}

// Record is one combination. Values follow the parameter order.
type Record struct {
	Index  int
	Values []Assignment
}

func (r Record) Get(name string) (any, bool) {
	for _, a := range r.Values {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Name returns "<prefix>_<index>", the record's file and product token.
func (r Record) Name(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, r.Index)
}

// Document applies the record to a copy of base under one component.
func (r Record) Document(base *config.Config, component string) (*config.Config, error) {
	doc := base.Clone()
	for _, a := range r.Values {
		if err := doc.Set(component, a.Name, config.Literal(a.Value)); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func validate(params []Param) error {
	if len(params) == 0 {
		return ErrNoParameters
	}
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if seen[p.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateParam, p.Name)
		}
		seen[p.Name] = true
		if len(p.Values) == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyCandidates, p.Name)
		}
	}
	return nil
}

// Count returns the number of records Expand would produce.
func Count(params []Param) (int, error) {
	if err := validate(params); err != nil {
		return 0, err
	}
	n := 1
	for _, p := range params {
		n *= len(p.Values)
	}
	return n, nil
}

// Expand returns the Cartesian product in lexicographic order, the last
// parameter varying fastest. Indices start at 0.
func Expand(params []Param) ([]Record, error) {
	n, err := Count(params)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, n)
	expand(params, 0, make([]Assignment, 0, len(params)), &records)
	return records, nil
}

func expand(params []Param, depth int, current []Assignment, out *[]Record) {
	if depth == len(params) {
		values := make([]Assignment, len(current))
		copy(values, current)
		*out = append(*out, Record{Index: len(*out), Values: values})
		return
	}

	p := params[depth]
	for _, v := range p.Values {
		expand(params, depth+1, append(current, Assignment{Name: p.Name, Value: v}), out)
	}
}

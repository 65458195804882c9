package wedge

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/oceansim/internal/wave"
)

// Plan is a sweep described in a file:
//
//	name: swell_wedge
//	component: swell_waves
//	base: shape            # preset name or run document path
//	frames: 1-120
//	queue: brie
//	params:
//	  - {name: typicalheight, values: [0.1, 0.9]}
//	  - {name: cuspscale, values: [0.0, 4.5]}
type Plan struct {
	Name      string            `yaml:"name"`
	Component string            `yaml:"component"`
	Base      string            `yaml:"base"`
	Frames    string            `yaml:"frames"`
	Queue     string            `yaml:"queue"`
	Output    string            `yaml:"output"`
	Geometry  string            `yaml:"geometry"`
	SimStart  int               `yaml:"sim_start"`
	Env       map[string]string `yaml:"env"`
	Params    []Param           `yaml:"params"`
}

func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wave.NewIOError("read", path, err)
	}
	p := &Plan{Name: "wedge", Frames: "1"}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, &wave.ConfigError{Key: path, Reason: err.Error()}
	}
	if p.Component == "" {
		return nil, &wave.ConfigError{Key: "component", Reason: "plan names no component"}
	}
	return p, nil
}

// Template returns the job template the plan describes.
func (p *Plan) Template() JobTemplate {
	return JobTemplate{
		Frames:   p.Frames,
		Queue:    p.Queue,
		Geometry: p.Geometry,
		SimStart: p.SimStart,
		Env:      p.Env,
	}
}

// SwellPlan is the stock swell sweep: wave height, cusp and band limits of
// the swell component over a floating shape.
func SwellPlan() *Plan {
	return &Plan{
		Name:      "swell_wedge",
		Component: "swell_waves",
		Base:      "shape",
		Frames:    "1-120",
		Params: []Param{
			{Name: "typicalheight", Values: []any{0.1, 0.9}},
			{Name: "travel", Values: []any{3.0}},
			{Name: "align", Values: []any{8.0}},
			{Name: "direction", Values: []any{90.0}},
			{Name: "cuspscale", Values: []any{0.0, 4.5}},
			{Name: "longest", Values: []any{10.0, 1000.0}},
			{Name: "shortest", Values: []any{0.25, 4.0}},
			{Name: "depth", Values: []any{10.0}},
		},
	}
}

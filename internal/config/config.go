package config

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

const (
	DefaultFPS        = 24.0
	DefaultSimStart   = 1
	DefaultFormat     = "pfm"
	DefaultResolution = 512
)

type Config struct {
	FPS        float64 `yaml:"fps"`
	TimeOffset float64 `yaml:"time_offset"`
	SimStart   int     `yaml:"sim_start"`
	Format     string  `yaml:"format"`
	// Resolution is the cell count along the longest side of a disturbance
	// patch whose patchnxny is not given.
	Resolution int `yaml:"resolution"`

	Components  map[string]*ComponentConfig `yaml:"components"`
	Merge       []string                    `yaml:"merge"`
	Disturbance string                      `yaml:"disturbance,omitempty"`
	Products    []string                    `yaml:"products"`
	Geometry    GeometryConfig              `yaml:"geometry,omitempty"`
}

type ComponentConfig struct {
	Kind   string                `yaml:"kind"`
	Params map[string]ParamValue `yaml:"params"`
}

type GeometryConfig struct {
	// Prefix of the per-frame boundary meshes, "<prefix>.<0001>.obj".
	Prefix string `yaml:"prefix,omitempty"`
}

func baseConfig() *Config {
	return &Config{
		FPS:        DefaultFPS,
		SimStart:   DefaultSimStart,
		Format:     DefaultFormat,
		Resolution: DefaultResolution,
	}
}

// DefaultConfig returns the shape scene: swell and wind chop merged into a
// base ocean with one object disturbing it.
func DefaultConfig() *Config {
	return GetPreset("shape")
}

// Load reads a run document. Two layouts are accepted: the full document
// with a components section, and a flat parms document mapping component
// names to parameters, which is overlaid on DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wave.NewIOError("read", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	var probe map[string]yaml.Node
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, &wave.ConfigError{Key: "document", Reason: err.Error()}
	}

	if _, ok := probe["components"]; ok {
		cfg := baseConfig()
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, &wave.ConfigError{Key: "document", Reason: err.Error()}
		}
		return cfg, nil
	}

	var flat map[string]map[string]ParamValue
	if err := yaml.Unmarshal(data, &flat); err != nil {
		return nil, &wave.ConfigError{Key: "document", Reason: err.Error()}
	}
	cfg := DefaultConfig()
	if err := cfg.Overlay(flat); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay sets parameters per component. Empty sections for unknown
// components are ignored; anything else must name a known component.
func (c *Config) Overlay(parms map[string]map[string]ParamValue) error {
	for _, name := range sortedKeys(parms) {
		params := parms[name]
		comp, ok := c.Components[name]
		if !ok {
			if len(params) == 0 {
				continue
			}
			return &wave.ConfigError{Component: name, Reason: "unknown component"}
		}
		for k, v := range params {
			comp.Params[k] = v
		}
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return wave.NewIOError("write", path, err)
	}
	return nil
}

// Validate checks cross references and scalar bounds.
func (c *Config) Validate() error {
	if !(c.FPS > 0) {
		return &wave.ConfigError{Key: "fps", Reason: fmt.Sprintf("must be positive, got %g", c.FPS)}
	}
	if c.SimStart < 1 {
		return &wave.ConfigError{Key: "sim_start", Reason: fmt.Sprintf("must be at least 1, got %d", c.SimStart)}
	}
	if c.TimeOffset < 0 {
		return &wave.ConfigError{Key: "time_offset", Reason: "must not be negative"}
	}
	if c.Resolution < 1 {
		return &wave.ConfigError{Key: "resolution", Reason: "must be positive"}
	}
	if _, err := output.ParseFormat(c.Format); err != nil {
		return &wave.ConfigError{Key: "format", Reason: err.Error()}
	}

	for _, name := range c.ComponentNames() {
		comp := c.Components[name]
		if comp == nil {
			return &wave.ConfigError{Component: name, Reason: "empty component"}
		}
		if _, err := wave.ParseKind(comp.Kind); err != nil {
			return &wave.ConfigError{Component: name, Key: "kind", Reason: err.Error()}
		}
	}

	if len(c.Merge) == 0 {
		return &wave.ConfigError{Key: "merge", Reason: "at least one wave is required"}
	}
	for _, name := range c.Merge {
		kind, err := c.kindOf(name)
		if err != nil {
			return err
		}
		if kind == wave.KindLocalDisturbance {
			return &wave.ConfigError{Component: name, Key: "merge", Reason: "a disturbance cannot be merged"}
		}
	}

	if c.Disturbance != "" {
		kind, err := c.kindOf(c.Disturbance)
		if err != nil {
			return err
		}
		if kind != wave.KindLocalDisturbance {
			return &wave.ConfigError{Component: c.Disturbance, Key: "disturbance", Reason: fmt.Sprintf("kind %s is not a disturbance", kind)}
		}
	}

	for _, name := range c.Products {
		if _, err := c.kindOf(name); err != nil {
			return err
		}
		if name != c.Disturbance && !slices.Contains(c.Merge, name) {
			return &wave.ConfigError{Component: name, Key: "products", Reason: "product is never advanced"}
		}
	}
	return nil
}

func (c *Config) kindOf(name string) (wave.Kind, error) {
	comp, ok := c.Components[name]
	if !ok || comp == nil {
		return 0, &wave.ConfigError{Component: name, Reason: "unknown component"}
	}
	return wave.ParseKind(comp.Kind)
}

// ComponentNames returns component names in sorted order.
func (c *Config) ComponentNames() []string {
	return sortedKeys(c.Components)
}

// Set overrides one component parameter.
func (c *Config) Set(component, key string, v ParamValue) error {
	comp, ok := c.Components[component]
	if !ok {
		return &wave.ConfigError{Component: component, Key: key, Reason: "unknown component"}
	}
	if comp.Params == nil {
		comp.Params = make(map[string]ParamValue)
	}
	comp.Params[key] = v
	return nil
}

// Scale multiplies an existing numeric parameter.
func (c *Config) Scale(component, key string, m float64) error {
	comp, ok := c.Components[component]
	if !ok {
		return &wave.ConfigError{Component: component, Key: key, Reason: "unknown component"}
	}
	v, ok := comp.Params[key]
	if !ok {
		return &wave.ConfigError{Component: component, Key: key, Reason: "parameter is not set"}
	}
	scaled, err := v.Scaled(m)
	if err != nil {
		return &wave.ConfigError{Component: component, Key: key, Reason: err.Error()}
	}
	comp.Params[key] = scaled
	return nil
}

// ApplyPatch places the disturbance patch from a layout transform: the patch
// spans scale and is centered on translate. patchnxny is dropped so the
// grid is derived from the new size.
func (c *Config) ApplyPatch(scale, translate wave.Vec2) error {
	if c.Disturbance == "" {
		return &wave.ConfigError{Key: "disturbance", Reason: "no disturbance to place"}
	}
	if scale.X <= 0 || scale.Y <= 0 {
		return &wave.ConfigError{Component: c.Disturbance, Key: "patchsize", Reason: "patch scale must be positive"}
	}
	llc := wave.Vec2{X: translate.X - scale.X/2, Y: translate.Y - scale.Y/2}
	if err := c.Set(c.Disturbance, "patchsize", Literal(scale)); err != nil {
		return err
	}
	if err := c.Set(c.Disturbance, "llc", Literal(llc)); err != nil {
		return err
	}
	delete(c.Components[c.Disturbance].Params, "patchnxny")
	return nil
}

// SwellNames returns the merged components of swell kind.
func (c *Config) SwellNames() []string {
	var names []string
	for _, name := range c.Merge {
		if kind, err := c.kindOf(name); err == nil && kind == wave.KindSwell {
			names = append(names, name)
		}
	}
	return names
}

func (c *Config) Clone() *Config {
	out := *c
	out.Merge = slices.Clone(c.Merge)
	out.Products = slices.Clone(c.Products)
	out.Components = make(map[string]*ComponentConfig, len(c.Components))
	for name, comp := range c.Components {
		if comp == nil {
			continue
		}
		cc := &ComponentConfig{Kind: comp.Kind, Params: make(map[string]ParamValue, len(comp.Params))}
		for k, v := range comp.Params {
			cc.Params[k] = v
		}
		out.Components[name] = cc
	}
	return &out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package scene turns a run document into generated wave components wired
// the way the driver expects: merged waves feeding a base ocean, and an
// optional disturbance riding on it.
package scene

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/solver"
	"github.com/san-kum/oceansim/internal/wave"
)

const baseOcean = "base_ocean"

type Product struct {
	Name      string
	Label     string
	Component wave.Component
}

type Scene struct {
	Config      *config.Config
	Format      output.Format
	Components  map[string]wave.Component
	Merge       *wave.Merge
	Disturbance wave.Component
	Products    []Product
}

// Build validates cfg, creates and generates every referenced component.
// prod prefixes product labels; empty keeps component names.
func Build(cfg *config.Config, reg *Registry, prod string, log *slog.Logger) (*Scene, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	writer, err := output.NewWriter(format)
	if err != nil {
		return nil, err
	}

	s := &Scene{
		Config:     cfg,
		Format:     format,
		Components: make(map[string]wave.Component),
		Merge:      wave.NewMerge(baseOcean),
	}

	for _, name := range cfg.Merge {
		c, err := s.component(cfg, reg, name, writer)
		if err != nil {
			return nil, err
		}
		if err := c.Generate(); err != nil {
			return nil, err
		}
		log.Debug("component generated", "name", name, "kind", c.Kind())
		if err := s.Merge.AddWave(c); err != nil {
			return nil, err
		}
	}
	if err := s.Merge.Generate(); err != nil {
		return nil, err
	}

	if cfg.Disturbance != "" {
		d, err := s.component(cfg, reg, cfg.Disturbance, writer)
		if err != nil {
			return nil, err
		}
		if err := deriveResolution(cfg, d); err != nil {
			return nil, err
		}
		if err := d.Set(wave.KeySurfaceGeom, wave.Literal(s.Merge)); err != nil {
			return nil, err
		}
		if err := d.Generate(); err != nil {
			return nil, err
		}
		log.Debug("component generated", "name", cfg.Disturbance, "kind", d.Kind())
		s.Disturbance = d
	}

	for _, name := range cfg.Products {
		s.Products = append(s.Products, Product{
			Name:      name,
			Label:     output.Label(prod, name),
			Component: s.Components[name],
		})
	}
	return s, nil
}

func (s *Scene) component(cfg *config.Config, reg *Registry, name string, w wave.FieldWriter) (wave.Component, error) {
	cc := cfg.Components[name]
	kind, err := wave.ParseKind(cc.Kind)
	if err != nil {
		return nil, &wave.ConfigError{Component: name, Key: "kind", Reason: err.Error()}
	}
	c, err := reg.New(kind, name, w)
	if err != nil {
		return nil, &wave.ConfigError{Component: name, Key: "kind", Reason: err.Error()}
	}
	for _, key := range sortedParams(cc.Params) {
		if err := c.Set(key, cc.Params[key].Value()); err != nil {
			return nil, err
		}
	}
	s.Components[name] = c
	return c, nil
}

// deriveResolution fills patchnxny of a disturbance from its patch size.
func deriveResolution(cfg *config.Config, d wave.Component) error {
	if _, ok := d.Get("patchnxny"); ok {
		return nil
	}
	v, ok := d.Get("patchsize")
	if !ok {
		return nil
	}
	size, ok := v.Resolve(1).(wave.Vec2)
	if !ok {
		return &wave.ConfigError{Component: d.Label(), Key: "patchsize", Reason: "expected a 2-vector"}
	}
	return d.Set("patchnxny", wave.Literal(solver.PatchResolution(size, cfg.Resolution)))
}

// Attach registers the scene with a driver. loader supplies the boundary
// mesh of the disturbance and may be nil for scenes without one.
func (s *Scene) Attach(d *driver.Driver, loader geometry.Loader) error {
	d.SetMerge(s.Merge)
	if s.Disturbance != nil {
		if loader == nil {
			return fmt.Errorf("scene: disturbance %s needs a geometry source", s.Disturbance.Label())
		}
		d.SetDisturbance(s.Disturbance, loader)
	}
	for _, p := range s.Products {
		d.AddProduct(p.Label, p.Component)
	}
	return nil
}

func sortedParams(m map[string]config.ParamValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

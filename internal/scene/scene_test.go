package scene

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// small shrinks every spectral grid so tests stay fast.
func small(cfg *config.Config) *config.Config {
	for _, name := range cfg.Merge {
		cfg.Set(name, "patchnxny", config.Literal(wave.Vec2{X: 32, Y: 32}))
	}
	cfg.Resolution = 32
	cfg.Format = "csv"
	return cfg
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	kinds := r.ListKinds()
	if len(kinds) != 3 {
		t.Fatalf("expected 3 kinds, got %v", kinds)
	}

	c, err := r.New(wave.KindWindChop, "small_waves", nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind() != wave.KindWindChop || c.Label() != "small_waves" {
		t.Errorf("unexpected component %s/%s", c.Label(), c.Kind())
	}

	if _, err := r.New(wave.Kind(42), "x", nil); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestBuildDisplacementScene(t *testing.T) {
	s, err := Build(small(config.GetPreset("displacement")), NewRegistry(), "shot", quiet)
	if err != nil {
		t.Fatal(err)
	}
	if s.Disturbance != nil {
		t.Error("displacement scene has no disturbance")
	}
	if len(s.Merge.Waves()) != 2 || !s.Merge.Generated() {
		t.Errorf("merge not assembled: %d waves", len(s.Merge.Waves()))
	}
	if s.Products[0].Label != "shot_swell_waves" {
		t.Errorf("product label = %s", s.Products[0].Label)
	}
	if s.Format != output.FormatCSV {
		t.Errorf("format = %s", s.Format)
	}
}

func TestBuildDerivesDisturbanceGrid(t *testing.T) {
	s, err := Build(small(config.GetPreset("floating")), NewRegistry(), "", quiet)
	if err != nil {
		t.Fatal(err)
	}
	v, ok := s.Disturbance.Get("patchnxny")
	if !ok {
		t.Fatal("patchnxny not derived")
	}
	if got := v.Resolve(1); got != (wave.Vec2{X: 32, Y: 32}) {
		t.Errorf("derived patchnxny = %v", got)
	}
	if f := s.Disturbance.Field(); f == nil || f.Periodic {
		t.Error("disturbance should own a bounded field")
	}
}

func TestBuildSurfacesComponentErrors(t *testing.T) {
	cfg := small(config.GetPreset("shape"))
	delete(cfg.Components["swell_waves"].Params, "longest")

	_, err := Build(cfg, NewRegistry(), "", quiet)
	var ce *wave.ConfigError
	if !errors.As(err, &ce) || ce.Component != "swell_waves" {
		t.Errorf("expected ConfigError for swell_waves, got %v", err)
	}
}

func TestAttachAndRun(t *testing.T) {
	root := t.TempDir()
	cfg := small(config.GetPreset("shape"))
	cfg.Set(cfg.Disturbance, "patchnxny", config.Literal(wave.Vec2{X: 32, Y: 16}))
	s, err := Build(cfg, NewRegistry(), "shot", quiet)
	if err != nil {
		t.Fatal(err)
	}

	d := driver.New(driver.Options{
		Frames:     frange.MustParse("2"),
		OutputRoot: root,
		Format:     s.Format,
		Logger:     quiet,
	})
	if err := s.Attach(d, nil); err == nil {
		t.Fatal("expected error without a geometry source")
	}

	d = driver.New(driver.Options{
		Frames:     frange.MustParse("2"),
		OutputRoot: root,
		Format:     s.Format,
		Logger:     quiet,
	})
	hull := &geometry.Mesh{
		Vertices: []geometry.Vec3{{X: -1, Y: -0.5, Z: 5}, {X: 1, Y: -0.5, Z: 5}, {X: 0, Y: -0.5, Z: 7}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	if err := s.Attach(d, geometry.StaticLoader{Mesh: hull}); err != nil {
		t.Fatal(err)
	}

	res, err := d.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.FramesAdvanced != 2 || len(res.Paths) != 3 {
		t.Errorf("advanced %d frames, wrote %v", res.FramesAdvanced, res.Paths)
	}
	for _, p := range res.Paths {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing artifact %s", p)
		}
	}
	if _, err := os.Stat(output.Path(root, "shot_thing_in_water_waves", 2, "csv")); err != nil {
		t.Error("disturbance product not written")
	}
}

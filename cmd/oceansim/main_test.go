package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/wave"
)

func runFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configFile, preset, patchScale, patchTranslate = "", "", "", ""
	cmd := &cobra.Command{Use: "run"}
	cmd.Flags().StringVarP(&configFile, "config", "p", "", "")
	cmd.Flags().StringVar(&preset, "preset", "", "")
	cmd.Flags().Float64Var(&fps, "fps", config.DefaultFPS, "")
	cmd.Flags().Float64Var(&timeOffset, "time-offset", 0, "")
	cmd.Flags().IntVar(&simStart, "sim-start", config.DefaultSimStart, "")
	cmd.Flags().StringVar(&format, "format", config.DefaultFormat, "")
	cmd.Flags().Float64Var(&heightMult, "height-mult", 1, "")
	cmd.Flags().Float64Var(&cuspMult, "cusp-mult", 1, "")
	cmd.Flags().Float64Var(&capillary, "capillary", 0, "")
	cmd.Flags().Float64Var(&trimAlpha, "trim-alpha", 0, "")
	cmd.Flags().StringVar(&patchScale, "patch-scale", "", "")
	cmd.Flags().StringVar(&patchTranslate, "patch-translate", "", "")
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestLoadRunConfigOverrides(t *testing.T) {
	cmd := runFlags(t, "--fps", "30", "--height-mult", "2", "--capillary", "0.5",
		"--patch-scale", "[40, 20]", "--patch-translate", "[0, 10]")

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FPS != 30 {
		t.Errorf("expected fps 30, got %g", cfg.FPS)
	}
	base := config.DefaultConfig()
	want := base.Components["swell_waves"].Params["typicalheight"].Raw().(float64) * 2
	if got := cfg.Components["swell_waves"].Params["typicalheight"].Raw(); got != want {
		t.Errorf("expected height %v, got %v", want, got)
	}
	dist := cfg.Components[cfg.Disturbance].Params
	if got := dist["capillary"].Raw(); got != 0.5 {
		t.Errorf("expected capillary 0.5, got %v", got)
	}
	if got := dist["llc"].Raw(); got != (wave.Vec2{X: -20, Y: 0}) {
		t.Errorf("expected llc [-20, 0], got %v", got)
	}
	if cfg.Resolution != patchResolution {
		t.Errorf("expected resolution %d, got %d", patchResolution, cfg.Resolution)
	}
}

func TestLoadRunConfigRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown preset", []string{"--preset", "bathtub"}},
		{"half a patch", []string{"--patch-scale", "[40, 20]"}},
		{"bad vector", []string{"--patch-scale", "40", "--patch-translate", "[0, 0]"}},
		{"disturbance flags without one", []string{"--preset", "displacement", "--trim-alpha", "0.2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadRunConfig(runFlags(t, tt.args...))
			if !errors.Is(err, wave.ErrConfig) {
				t.Errorf("expected config error, got %v", err)
			}
		})
	}
}

func TestLoadBase(t *testing.T) {
	cfg, err := loadBase("floating")
	if err != nil || cfg == nil {
		t.Fatalf("expected floating preset, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "scene.yaml")
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	if _, err := loadBase(path); err != nil {
		t.Errorf("expected document to load: %v", err)
	}

	if _, err := loadBase("nowhere.yaml"); !errors.Is(err, wave.ErrConfig) {
		t.Errorf("expected config error, got %v", err)
	}
}

func TestJoinInts(t *testing.T) {
	if got := joinInts([]int{5, 7, 9}); got != "5 7 9" {
		t.Errorf("got %q", got)
	}
}

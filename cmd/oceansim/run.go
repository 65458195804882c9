package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/scene"
	"github.com/san-kum/oceansim/internal/storage"
	"github.com/san-kum/oceansim/internal/tui"
	"github.com/san-kum/oceansim/internal/viz"
	"github.com/san-kum/oceansim/internal/wave"
)

// patchResolution is the cell count of the longest side of a patch placed
// with --patch-scale.
const patchResolution = 1024

func runSimulation(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	frames, err := frange.Parse(frameExpr)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}

	sc, err := scene.Build(cfg, scene.NewRegistry(), prod, log)
	if err != nil {
		return err
	}

	var loader geometry.Loader
	if sc.Disturbance != nil {
		prefix := thing
		if prefix == "" {
			prefix = cfg.Geometry.Prefix
		}
		if prefix == "" {
			return &wave.ConfigError{Component: sc.Disturbance.Label(), Key: "thing", Reason: "a disturbance needs --thing or geometry.prefix"}
		}
		loader = geometry.NewSequenceLoader(prefix)
	}

	meshName := prod
	if meshName == "" {
		meshName = "surface"
	}
	d := driver.New(driver.Options{
		Frames:     frames,
		FPS:        cfg.FPS,
		SimStart:   cfg.SimStart,
		TimeOffset: cfg.TimeOffset,
		OutputRoot: outDir,
		Format:     sc.Format,
		ExportMesh: exportObj,
		MeshName:   meshName,
		Logger:     log,
	})
	if err := sc.Attach(d, loader); err != nil {
		return err
	}

	var probe *viz.Probe
	var px, py float64
	if probePoint != "" {
		p, err := wave.ParseVec2(probePoint)
		if err != nil {
			return &wave.ConfigError{Key: "probe", Reason: err.Error()}
		}
		px, py = p.X, p.Y
		probe = viz.NewProbe(px, py, cfg.FPS)
		d.AddObserver(probe)
	}

	manifest := &storage.Manifest{
		Prod:       prod,
		Started:    time.Now(),
		Frames:     frames.String(),
		FPS:        cfg.FPS,
		SimStart:   cfg.SimStart,
		TimeOffset: cfg.TimeOffset,
		Config:     configFile,
		Geometry:   thing,
		Products:   cfg.Products,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var res *driver.Result
	var runErr error
	if live {
		res, runErr = tui.Run(ctx, prod, frames.String(), px, py, func(ctx context.Context, obs driver.Observer) (*driver.Result, error) {
			d.AddObserver(obs)
			return d.Run(ctx)
		})
	} else {
		reporter := viz.NewReporter(os.Stdout, verbose)
		reporter.Start(prod, frames.String())
		d.AddObserver(reporter)
		res, runErr = d.Run(ctx)
	}

	if res == nil {
		return runErr
	}

	st := storage.New(outDir)
	manifest.Record(*res, runErr)
	path, err := st.Save(manifest)
	if err != nil {
		log.Warn("manifest not saved", "err", err)
	}
	if probe != nil {
		if _, err := st.SaveProbe(prod, probe.Samples()); err != nil {
			log.Warn("probe series not saved", "err", err)
		}
	}

	fmt.Println(viz.Summary(*res, path))
	return runErr
}

// loadRunConfig picks the run document (--config, then --preset, then the
// default scene) and applies the command-line overrides.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, &wave.ConfigError{Key: "preset", Reason: fmt.Sprintf("unknown preset %q (available: %v)", preset, config.ListPresets())}
		}
	default:
		cfg = config.DefaultConfig()
	}

	flags := cmd.Flags()
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("time-offset") {
		cfg.TimeOffset = timeOffset
	}
	if flags.Changed("sim-start") {
		cfg.SimStart = simStart
	}
	if flags.Changed("format") {
		cfg.Format = format
	}

	for _, name := range cfg.SwellNames() {
		if flags.Changed("height-mult") {
			if err := cfg.Scale(name, "typicalheight", heightMult); err != nil {
				return nil, err
			}
		}
		if flags.Changed("cusp-mult") {
			if err := cfg.Scale(name, "cuspscale", cuspMult); err != nil {
				return nil, err
			}
		}
	}

	if flags.Changed("capillary") || flags.Changed("trim-alpha") {
		if cfg.Disturbance == "" {
			return nil, &wave.ConfigError{Key: "disturbance", Reason: "--capillary and --trim-alpha need a disturbance"}
		}
		if flags.Changed("capillary") {
			if err := cfg.Set(cfg.Disturbance, "capillary", config.Literal(capillary)); err != nil {
				return nil, err
			}
		}
		if flags.Changed("trim-alpha") {
			if err := cfg.Set(cfg.Disturbance, "trimalpha", config.Literal(trimAlpha)); err != nil {
				return nil, err
			}
		}
	}

	if patchScale != "" || patchTranslate != "" {
		if patchScale == "" || patchTranslate == "" {
			return nil, &wave.ConfigError{Key: "patch-scale", Reason: "--patch-scale and --patch-translate go together"}
		}
		scale, err := wave.ParseVec2(patchScale)
		if err != nil {
			return nil, &wave.ConfigError{Key: "patch-scale", Reason: err.Error()}
		}
		translate, err := wave.ParseVec2(patchTranslate)
		if err != nil {
			return nil, &wave.ConfigError{Key: "patch-translate", Reason: err.Error()}
		}
		if err := cfg.ApplyPatch(scale, translate); err != nil {
			return nil, err
		}
		cfg.Resolution = patchResolution
	}

	return cfg, nil
}

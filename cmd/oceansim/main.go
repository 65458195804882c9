package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/scene"
	"github.com/san-kum/oceansim/internal/storage"
	"github.com/san-kum/oceansim/internal/viz"
)

var (
	logLevel string

	// run
	frameExpr      string
	configFile     string
	outDir         string
	prod           string
	thing          string
	simStart       int
	exportObj      bool
	fps            float64
	timeOffset     float64
	format         string
	live           bool
	preset         string
	heightMult     float64
	cuspMult       float64
	capillary      float64
	trimAlpha      float64
	patchScale     string
	patchTranslate string
	probePoint     string
	verbose        bool
)

// main registers the oceansim commands and exits with status 1 when a
// command returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "oceansim",
		Short:         "frame-sequential ocean surface simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "advance a scene and write the selected frames",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVarP(&frameExpr, "frames", "f", "1", "frames to write, e.g. 5-26:3,75-100")
	runCmd.Flags().StringVarP(&configFile, "config", "p", "", "run document (yaml or json)")
	runCmd.Flags().StringVarP(&outDir, "out", "o", ".", "output root")
	runCmd.Flags().StringVar(&prod, "prod", "", "product name token")
	runCmd.Flags().StringVar(&thing, "thing", "", "geometry path prefix, <prefix>.<0001>.obj")
	runCmd.Flags().IntVar(&simStart, "sim-start", config.DefaultSimStart, "first frame with boundary geometry")
	runCmd.Flags().BoolVar(&exportObj, "obj", false, "export the ocean surface as OBJ")
	runCmd.Flags().Float64Var(&fps, "fps", config.DefaultFPS, "frames per second")
	runCmd.Flags().Float64Var(&timeOffset, "time-offset", 0, "pre-roll of the base ocean, in frames")
	runCmd.Flags().StringVar(&format, "format", config.DefaultFormat, "field format (pfm, csv)")
	runCmd.Flags().BoolVar(&live, "live", false, "show a live progress view")
	runCmd.Flags().StringVar(&preset, "preset", "", "start from a named scene")
	runCmd.Flags().Float64Var(&heightMult, "height-mult", 1, "swell height multiplier")
	runCmd.Flags().Float64Var(&cuspMult, "cusp-mult", 1, "swell cusp multiplier")
	runCmd.Flags().Float64Var(&capillary, "capillary", 0, "disturbance capillary coefficient")
	runCmd.Flags().Float64Var(&trimAlpha, "trim-alpha", 0, "disturbance edge damping")
	runCmd.Flags().StringVar(&patchScale, "patch-scale", "", "disturbance patch scale [sx, sz]")
	runCmd.Flags().StringVar(&patchTranslate, "patch-translate", "", "disturbance patch center [tx, tz]")
	runCmd.Flags().StringVar(&probePoint, "probe", "", "record the surface height at [x, y] every frame")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print a banner for every advanced frame")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list named scenes and wave kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				cfg := config.GetPreset(p)
				fmt.Printf("  %-14s merge %s  disturbance %q\n", p, strings.Join(cfg.Merge, "+"), cfg.Disturbance)
			}
			fmt.Println("kinds:")
			for _, k := range scene.NewRegistry().ListKinds() {
				fmt.Printf("  %s\n", k)
			}
			return nil
		},
	}

	framesCmd := &cobra.Command{
		Use:   "frames [expr]",
		Short: "show the frames an expression selects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := frange.Parse(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("selection: %s\n", fs)
			fmt.Printf("advance to: %d\n", fs.End())
			fmt.Printf("written: %d of %d frames\n", fs.Len(), fs.End())
			fmt.Println(joinInts(fs.Frames()))
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list run manifests under an output root",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}
	listCmd.Flags().StringVarP(&outDir, "out", "o", ".", "output root")

	probeCmd := &cobra.Command{
		Use:   "probe [prod]",
		Short: "plot a recorded probe series",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotProbe,
	}
	probeCmd.Flags().StringVarP(&outDir, "out", "o", ".", "output root")

	rootCmd.AddCommand(runCmd, presetsCmd, framesCmd, listCmd, probeCmd, newWedgeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.StatusFailed.Render("error:"), err)
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(outDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROD\tFINISHED\tSTATE\tFRAMES\tADVANCED\tWRITTEN\tWALL")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.Prod,
			run.Finished.Format("2006-01-02 15:04:05"),
			run.State,
			run.Frames,
			run.FramesAdvanced,
			len(run.FramesWritten),
			run.Duration.Round(1e6),
		)
	}
	return w.Flush()
}

func plotProbe(cmd *cobra.Command, args []string) error {
	name := ""
	if len(args) > 0 {
		name = args[0]
	}
	st := storage.New(outDir)
	samples, err := st.LoadProbe(name)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("probe %q has no samples", name)
	}

	fmt.Printf("prod: %s\n", name)
	fmt.Printf("frames: %d-%d\n\n", samples[0].Frame, samples[len(samples)-1].Frame)
	fmt.Println(viz.PlotHeights(samples, "surface height over frames"))
	fmt.Println()
	fmt.Println(viz.ProbeStats(samples))
	return nil
}

func joinInts(v []int) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, " ")
}

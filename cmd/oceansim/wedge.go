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
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/wave"
	"github.com/san-kum/oceansim/internal/wedge"
)

var (
	planFile    string
	wedgeOut    string
	queueName   string
	submitCmd   string
	localJobs   int
	dryRun      bool
	jobName     string
	jobFrames   string
	executable  string
	wedgeThing  string
	wedgeFrames string
)

func newWedgeCmd() *cobra.Command {
	wedgeCmd := &cobra.Command{
		Use:   "wedge",
		Short: "generate and submit parameter sweeps",
	}
	wedgeCmd.PersistentFlags().StringVarP(&wedgeOut, "out", "o", ".", "directory the wedge folder is created in")
	wedgeCmd.PersistentFlags().StringVar(&queueName, "queue", "", "queue name")
	wedgeCmd.PersistentFlags().StringVar(&submitCmd, "submit", "cqsubmittask", "external submit command")
	wedgeCmd.PersistentFlags().IntVar(&localJobs, "local", 0, "run jobs here with this many workers instead of submitting")
	wedgeCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "write jobs but submit nothing")

	swellCmd := &cobra.Command{
		Use:   "swell",
		Short: "sweep swell parameters over a base scene",
		Args:  cobra.NoArgs,
		RunE:  runSwellWedge,
	}
	swellCmd.Flags().StringVar(&planFile, "plan", "", "sweep plan (yaml); the stock swell sweep when empty")
	swellCmd.Flags().StringVar(&wedgeFrames, "frames", "", "frames each job writes (overrides the plan)")
	swellCmd.Flags().StringVar(&wedgeThing, "thing", "", "geometry prefix passed to each job (overrides the plan)")
	swellCmd.Flags().StringVar(&executable, "exe", "oceansim", "simulator executable used in job scripts")

	framesCmd := &cobra.Command{
		Use:   "frames -- command [args...]",
		Short: "one job per frame; {frame} and {frame4} expand in the command",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFrameWedge,
	}
	framesCmd.Flags().StringVar(&jobName, "name", "export", "job name prefix")
	framesCmd.Flags().StringVarP(&jobFrames, "frames", "f", "1", "frames to export")

	wedgeCmd.AddCommand(swellCmd, framesCmd)
	return wedgeCmd
}

func runSwellWedge(cmd *cobra.Command, args []string) error {
	plan := wedge.SwellPlan()
	if planFile != "" {
		p, err := wedge.LoadPlan(planFile)
		if err != nil {
			return err
		}
		plan = p
	}
	if wedgeFrames != "" {
		plan.Frames = wedgeFrames
	}
	if wedgeThing != "" {
		plan.Geometry = wedgeThing
	}
	if queueName != "" {
		plan.Queue = queueName
	}
	if _, err := frange.Parse(plan.Frames); err != nil {
		return err
	}

	base, err := loadBase(plan.Base)
	if err != nil {
		return err
	}

	out := wedgeOut
	if plan.Output != "" && !cmd.Flags().Changed("out") {
		out = plan.Output
	}
	layout := wedge.NewLayout(out, plan.Name, time.Now())

	tmpl := plan.Template()
	tmpl.Executable = executable
	jobs, err := wedge.Prepare(layout, plan.Name+"_parms", plan.Component, base, plan.Params, tmpl)
	if err != nil {
		return err
	}
	slog.Info("wedge prepared", "dir", layout.Root, "jobs", len(jobs), "component", plan.Component)

	return submit(jobs, plan.Queue)
}

// loadBase resolves a plan's base scene: a preset name or a document path.
func loadBase(name string) (*config.Config, error) {
	if name == "" {
		return config.DefaultConfig(), nil
	}
	if cfg := config.GetPreset(name); cfg != nil {
		return cfg, nil
	}
	if _, err := os.Stat(name); err != nil {
		return nil, &wave.ConfigError{Key: "base", Reason: fmt.Sprintf("%q is neither a preset nor a readable document", name)}
	}
	return config.Load(name)
}

func runFrameWedge(cmd *cobra.Command, args []string) error {
	frames, err := frange.Parse(jobFrames)
	if err != nil {
		return err
	}
	layout := wedge.NewLayout(wedgeOut, jobName, time.Now())
	jobs, err := wedge.FrameJobs(layout, frames, wedge.FrameTemplate{
		Name:    jobName,
		Command: args,
		Queue:   queueName,
	})
	if err != nil {
		return err
	}
	slog.Info("frame jobs prepared", "dir", layout.Root, "jobs", len(jobs))
	return submit(jobs, queueName)
}

func submit(jobs []wedge.JobDescriptor, queue string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case dryRun:
		q := &wedge.DryRunQueue{}
		if _, err := wedge.SubmitAll(ctx, q, queue, jobs); err != nil {
			return err
		}
		for _, h := range q.Submitted {
			fmt.Printf("%s\t%s\t%s\n", h.ID, h.Job.Name, h.Job.Script)
		}
		return nil

	case localJobs > 0:
		q := wedge.NewLocalQueue(localJobs, wedge.RunScript)
		if _, err := wedge.SubmitAll(ctx, q, queue, jobs); err != nil {
			return err
		}
		err := q.Wait()
		slog.Info("local jobs finished", "completed", q.Completed(), "failed", err != nil)
		return err

	default:
		q := wedge.NewCommandQueue()
		q.Command = submitCmd
		handles, err := wedge.SubmitAll(ctx, q, queue, jobs)
		for _, h := range handles {
			slog.Info("submitted", "job", h.Job.Name, "id", h.ID, "queue", h.Queue)
		}
		return err
	}
}

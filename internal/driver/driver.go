// Package driver advances a scene frame by frame and writes the selected
// frames.
//
// Every integer frame from 1 to the selection end is advanced with the same
// fixed timestep, since solver state depends on every prior step. Within a
// frame the base ocean is updated before the disturbance that rides on it.
// Cancellation is observed only between frames, so an interrupted run keeps
// a valid prefix of complete frames.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

type Options struct {
	Frames     *frange.FrameSet
	FPS        float64
	SimStart   int
	TimeOffset float64

	OutputRoot string
	Format     output.Format

	// ExportMesh writes the composite surface as OBJ for selected frames.
	ExportMesh bool
	MeshName   string

	Logger *slog.Logger
}

type product struct {
	label     string
	component wave.Component
}

type Driver struct {
	opts Options
	log  *slog.Logger

	merge       *wave.Merge
	disturbance wave.Component
	loader      geometry.Loader
	products    []product
	observers   []Observer

	state State
	frame int
}

func New(opts Options) *Driver {
	if opts.FPS == 0 {
		opts.FPS = 24
	}
	if opts.SimStart == 0 {
		opts.SimStart = 1
	}
	if opts.Format == "" {
		opts.Format = output.FormatPFM
	}
	if opts.MeshName == "" {
		opts.MeshName = "ocean"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Driver{opts: opts, log: log}
}

func (d *Driver) SetMerge(m *wave.Merge) { d.merge = m }

// SetDisturbance attaches the local disturbance and the loader that supplies
// its boundary mesh each frame. A nil component runs the base ocean alone.
func (d *Driver) SetDisturbance(c wave.Component, loader geometry.Loader) {
	d.disturbance = c
	d.loader = loader
}

// AddProduct registers a component whose field is written on selected frames
// under <root>/sim/<label>.<frame>.<ext>.
func (d *Driver) AddProduct(label string, c wave.Component) {
	d.products = append(d.products, product{label: label, component: c})
}

func (d *Driver) AddObserver(o Observer) { d.observers = append(d.observers, o) }

func (d *Driver) State() State { return d.state }

// Frame returns the last frame entered.
func (d *Driver) Frame() int { return d.frame }

func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if d.state != Idle {
		return nil, ErrAlreadyRun
	}

	clock, err := d.validate()
	if err != nil {
		d.state = Failed
		return nil, err
	}

	res := &Result{Timestep: clock.Timestep}
	start := time.Now()
	end := d.opts.Frames.End()

	d.log.Info("simulation start",
		"frames", d.opts.Frames.String(),
		"end", end,
		"fps", d.opts.FPS,
		"sim_start", d.opts.SimStart,
		"products", len(d.products))

	if d.opts.TimeOffset > 0 {
		d.merge.SetFrame(1)
		if err := d.merge.Update(clock.Timestep * d.opts.TimeOffset); err != nil {
			return d.fail(res, start, &FrameError{Frame: 0, Stage: StagePreroll, Err: err})
		}
		d.log.Debug("preroll", "time", clock.Timestep*d.opts.TimeOffset)
	}

	d.state = Advancing
	for f := 1; f <= end; f++ {
		select {
		case <-ctx.Done():
			return d.fail(res, start, ctx.Err())
		default:
		}

		clock.Frame = f
		d.frame = f
		frameStart := time.Now()

		ev, err := d.step(clock)
		if err != nil {
			return d.fail(res, start, err)
		}
		res.FramesAdvanced++
		if ev.Selected {
			res.FramesWritten = append(res.FramesWritten, f)
			res.Paths = append(res.Paths, ev.Written...)
		}

		ev.End = end
		ev.Elapsed = time.Since(frameStart)
		for _, o := range d.observers {
			o.OnFrame(ev)
		}
	}

	d.state = Done
	res.State = Done
	res.Duration = time.Since(start)
	d.log.Info("simulation done", "frames", res.FramesAdvanced, "written", len(res.FramesWritten), "duration", res.Duration)
	return res, nil
}

func (d *Driver) validate() (Clock, error) {
	if d.opts.Frames == nil || d.opts.Frames.Len() == 0 {
		return Clock{}, fmt.Errorf("driver: empty frame selection")
	}
	if d.opts.TimeOffset < 0 {
		return Clock{}, fmt.Errorf("driver: time offset must not be negative, got %g", d.opts.TimeOffset)
	}
	if d.merge == nil {
		return Clock{}, ErrNoMerge
	}
	if !d.merge.Generated() {
		return Clock{}, fmt.Errorf("%w: %s", ErrNotGenerated, d.merge.Label())
	}
	if d.disturbance != nil {
		if !d.disturbance.Generated() {
			return Clock{}, fmt.Errorf("%w: %s", ErrNotGenerated, d.disturbance.Label())
		}
		if d.loader == nil {
			return Clock{}, fmt.Errorf("driver: disturbance %s has no geometry loader", d.disturbance.Label())
		}
	}
	for _, p := range d.products {
		if !p.component.Generated() {
			return Clock{}, fmt.Errorf("%w: %s", ErrNotGenerated, p.component.Label())
		}
	}
	if _, err := output.NewWriter(d.opts.Format); err != nil {
		return Clock{}, err
	}
	return NewClock(d.opts.FPS)
}

func (d *Driver) step(clock Clock) (FrameEvent, error) {
	f := clock.Frame
	ev := FrameEvent{Frame: f, Surface: d.surface()}

	d.merge.SetFrame(f)
	if d.disturbance != nil {
		d.disturbance.SetFrame(f)
	}

	if err := d.merge.Update(clock.Timestep); err != nil {
		return ev, &FrameError{Frame: f, Stage: StageMerge, Err: err}
	}

	if d.disturbance != nil {
		gf := GeometryFrame(f, d.opts.SimStart)
		ev.GeometryFrame = gf

		mesh, err := d.loader.Load(gf)
		if err != nil {
			return ev, &FrameError{Frame: f, Stage: StageGeometry, Err: wave.NewIOError("load geometry", fmt.Sprintf("frame %d", gf), err)}
		}
		if err := d.disturbance.Set(wave.KeyHeightSourceGeom, wave.Literal(mesh)); err != nil {
			return ev, &FrameError{Frame: f, Stage: StageGeometry, Err: err}
		}
		if err := d.disturbance.Set(wave.KeyComputeHeightSource, wave.Literal(true)); err != nil {
			return ev, &FrameError{Frame: f, Stage: StageGeometry, Err: err}
		}
		if err := d.disturbance.Update(clock.Timestep); err != nil {
			return ev, &FrameError{Frame: f, Stage: StageDisturbance, Err: err}
		}
	}

	if !d.opts.Frames.Contains(f) {
		d.log.Debug("frame advanced", "frame", f, "geometry_frame", ev.GeometryFrame)
		return ev, nil
	}

	written, err := d.write(f)
	if err != nil {
		return ev, &FrameError{Frame: f, Stage: StageWrite, Err: err}
	}
	ev.Selected = true
	ev.Written = written
	d.log.Debug("frame written", "frame", f, "geometry_frame", ev.GeometryFrame, "files", len(written))
	return ev, nil
}

// surface is the composite the scene renders: the base ocean plus the
// disturbance field riding on it.
func (d *Driver) surface() wave.Surface {
	if d.disturbance == nil {
		return d.merge
	}
	return composite{d.merge, fieldSurface{d.disturbance}}
}

type fieldSurface struct{ c wave.Component }

func (s fieldSurface) Sample(x, y float64) wave.Sample {
	f := s.c.Field()
	if f == nil {
		return wave.Sample{}
	}
	return f.Sample(x, y)
}

type composite []wave.Surface

func (c composite) Sample(x, y float64) wave.Sample {
	var out wave.Sample
	for _, s := range c {
		out = out.Add(s.Sample(x, y))
	}
	return out
}

func (d *Driver) write(f int) ([]string, error) {
	batch := output.NewBatch(f)
	for _, p := range d.products {
		path := output.Path(d.opts.OutputRoot, p.label, f, d.opts.Format.Ext())
		err := batch.Write(path, func(tmp string) error {
			return p.component.WriteDisplacement(tmp)
		})
		if err != nil {
			batch.Abort()
			return nil, err
		}
	}

	if d.opts.ExportMesh {
		path := output.MeshPath(d.opts.OutputRoot, d.opts.MeshName, f)
		err := batch.Write(path, func(tmp string) error {
			if err := output.WriteMesh(tmp, output.SurfaceMesh(d.merge.Field(), d.opts.MeshName)); err != nil {
				return wave.NewIOError("write", path, err)
			}
			return nil
		})
		if err != nil {
			batch.Abort()
			return nil, err
		}
	}

	paths, err := batch.Commit()
	if err != nil {
		return nil, wave.NewIOError("commit", fmt.Sprintf("frame %d", f), err)
	}
	return paths, nil
}

func (d *Driver) fail(res *Result, start time.Time, err error) (*Result, error) {
	d.state = Failed
	res.State = Failed
	res.Duration = time.Since(start)
	d.log.Error("simulation failed", "frame", d.frame, "err", err)
	return res, err
}

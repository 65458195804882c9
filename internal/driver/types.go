package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/oceansim/internal/wave"
)

var (
	// ErrAlreadyRun is returned when Run is called on a driver that left Idle.
	ErrAlreadyRun = errors.New("driver: already run")

	// ErrNoMerge indicates the driver has no base ocean to advance.
	ErrNoMerge = errors.New("driver: no merge configured")

	// ErrNotGenerated indicates a component reached the driver before its
	// field was generated.
	ErrNotGenerated = errors.New("driver: component not generated")
)

// State is the lifecycle of a run.
type State int

const (
	Idle State = iota
	Advancing
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Advancing:
		return "advancing"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stage names the step of a frame that failed.
type Stage string

const (
	StagePreroll     Stage = "preroll"
	StageMerge       Stage = "merge"
	StageGeometry    Stage = "geometry"
	StageDisturbance Stage = "disturbance"
	StageWrite       Stage = "write"
)

// FrameError wraps a failure with the frame and stage it happened in.
type FrameError struct {
	Frame int
	Stage Stage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Clock tracks the current frame and the fixed timestep.
type Clock struct {
	Frame    int
	Timestep float64
}

func NewClock(fps float64) (Clock, error) {
	if !(fps > 0) {
		return Clock{}, fmt.Errorf("fps must be positive, got %g", fps)
	}
	return Clock{Timestep: 1 / fps}, nil
}

// Time returns the simulation time at the end of the current frame.
func (c Clock) Time() float64 { return float64(c.Frame) * c.Timestep }

// GeometryFrame returns the boundary geometry frame used at frame f. Frames
// before simStart reuse the simStart geometry.
func GeometryFrame(f, simStart int) int {
	return max(f, simStart)
}

// FrameEvent is delivered to observers after every advanced frame.
type FrameEvent struct {
	Frame         int
	End           int
	GeometryFrame int
	Selected      bool
	Written       []string
	Surface       wave.Surface
	Elapsed       time.Duration
}

type Observer interface {
	OnFrame(ev FrameEvent)
}

// ObserverFunc adapts a function to an Observer.
type ObserverFunc func(FrameEvent)

func (f ObserverFunc) OnFrame(ev FrameEvent) { f(ev) }

type Result struct {
	State          State
	FramesAdvanced int
	FramesWritten  []int
	Paths          []string
	Timestep       float64
	Duration       time.Duration
}

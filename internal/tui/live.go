// Package tui shows a live view of a driver run.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/viz"
)

const (
	barWidth     = 40
	historyLimit = 120
	recentFiles  = 4
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dim        = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	frameStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2)
)

// FrameMsg carries one driver event into the program.
type FrameMsg driver.FrameEvent

// DoneMsg ends the program with the run outcome.
type DoneMsg struct {
	Result *driver.Result
	Err    error
}

// Model is the bubbletea model of a running simulation.
type Model struct {
	prod    string
	frames  string
	probeX  float64
	probeY  float64
	cancel  context.CancelFunc
	started time.Time

	frame   int
	end     int
	written int
	recent  []string
	heights []float64

	done   bool
	result *driver.Result
	err    error
}

func NewModel(prod, frames string, probeX, probeY float64, cancel context.CancelFunc) Model {
	return Model{prod: prod, frames: frames, probeX: probeX, probeY: probeY, cancel: cancel, started: time.Now()}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
		}
	case FrameMsg:
		m.frame = msg.Frame
		m.end = msg.End
		if msg.Surface != nil {
			m.heights = append(m.heights, msg.Surface.Sample(m.probeX, m.probeY).Height)
			if len(m.heights) > historyLimit {
				m.heights = m.heights[1:]
			}
		}
		if msg.Selected {
			m.written += len(msg.Written)
			m.recent = append(m.recent, msg.Written...)
			if len(m.recent) > recentFiles {
				m.recent = m.recent[len(m.recent)-recentFiles:]
			}
		}
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(viz.Spaced("simulation")) + "  " + dim.Render(m.prod) + "\n\n")
	s.WriteString(fmt.Sprintf("%s  %s %d/%d\n", viz.Spaced("frame"), viz.ProgressBar(m.frame, m.end, barWidth), m.frame, m.end))
	s.WriteString(dim.Render(fmt.Sprintf("selection %s  files %d  elapsed %s", m.frames, m.written, time.Since(m.started).Round(time.Second))) + "\n\n")
	s.WriteString(fmt.Sprintf("height at (%.1f, %.1f)\n", m.probeX, m.probeY))
	s.WriteString(viz.Sparkline(m.heights, barWidth) + "\n\n")
	for _, p := range m.recent {
		s.WriteString(dim.Render(p) + "\n")
	}

	switch {
	case m.err != nil:
		s.WriteString("\n" + viz.StatusFailed.Render(m.err.Error()))
	case m.done:
		s.WriteString("\n" + viz.StatusDone.Render("done"))
	default:
		s.WriteString("\n" + dim.Render("q: stop after this frame"))
	}
	return frameStyle.Render(s.String()) + "\n"
}

// Err returns the run error once the program has quit.
func (m Model) Err() error { return m.err }

// Run executes run in the background while the live view renders its
// frames. run must register obs on its driver.
func Run(ctx context.Context, prod, frames string, probeX, probeY float64, run func(ctx context.Context, obs driver.Observer) (*driver.Result, error)) (*driver.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(prod, frames, probeX, probeY, cancel))
	obs := driver.ObserverFunc(func(ev driver.FrameEvent) { p.Send(FrameMsg(ev)) })

	var (
		res    *driver.Result
		runErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		res, runErr = run(ctx, obs)
		p.Send(DoneMsg{Result: res, Err: runErr})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return res, fmt.Errorf("live view: %w", err)
	}
	<-finished
	return res, runErr
}

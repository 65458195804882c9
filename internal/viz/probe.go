package viz

import (
	"fmt"
	"strings"
	"sync"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/storage"
)

// Probe samples the composite surface at one world point after every
// advanced frame.
type Probe struct {
	X, Y float64
	fps  float64

	mu      sync.Mutex
	samples []storage.ProbeSample
}

func NewProbe(x, y, fps float64) *Probe {
	return &Probe{X: x, Y: y, fps: fps}
}

func (p *Probe) OnFrame(ev driver.FrameEvent) {
	if ev.Surface == nil {
		return
	}
	s := ev.Surface.Sample(p.X, p.Y)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.samples = append(p.samples, storage.ProbeSample{
		Frame:  ev.Frame,
		Time:   float64(ev.Frame) / p.fps,
		Height: s.Height,
		DispX:  s.DispX,
		DispY:  s.DispY,
	})
}

func (p *Probe) Samples() []storage.ProbeSample {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]storage.ProbeSample, len(p.samples))
	copy(out, p.samples)
	return out
}

// PlotHeights draws the height series with asciigraph.
func PlotHeights(samples []storage.ProbeSample, caption string) string {
	if len(samples) == 0 {
		return Subtle.Render("no samples")
	}
	data := storage.Heights(samples)
	if len(data) == 1 {
		data = append(data, data[0])
	}
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}

// ProbeStats summarizes a series as min, max and mean height.
func ProbeStats(samples []storage.ProbeSample) string {
	if len(samples) == 0 {
		return ""
	}
	lo, hi, sum := samples[0].Height, samples[0].Height, 0.0
	for _, s := range samples {
		lo = min(lo, s.Height)
		hi = max(hi, s.Height)
		sum += s.Height
	}
	var b strings.Builder
	b.WriteString(MetricLabel.Render("min") + MetricValue.Render(fmt.Sprintf("%.4f", lo)) + "\n")
	b.WriteString(MetricLabel.Render("max") + MetricValue.Render(fmt.Sprintf("%.4f", hi)) + "\n")
	b.WriteString(MetricLabel.Render("mean") + MetricValue.Render(fmt.Sprintf("%.4f", sum/float64(len(samples)))))
	return b.String()
}

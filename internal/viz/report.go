package viz

import (
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/oceansim/internal/driver"
)

// Reporter prints a banner per advanced frame and the files each selected
// frame produced. It implements driver.Observer.
type Reporter struct {
	w       io.Writer
	verbose bool
}

func NewReporter(w io.Writer, verbose bool) *Reporter {
	return &Reporter{w: w, verbose: verbose}
}

// Start prints the run header.
func (r *Reporter) Start(prod, frames string) {
	title := GradientText(Spaced("simulation"), oceanDeep, oceanShallow)
	fmt.Fprintln(r.w, BannerStyle.Render(title))
	fmt.Fprintln(r.w, Subtle.Render(fmt.Sprintf("prod %q  frames %s", prod, frames)))
}

func (r *Reporter) OnFrame(ev driver.FrameEvent) {
	if !ev.Selected && !r.verbose {
		return
	}
	banner := BannerStyle.Render(Spaced("frame") + fmt.Sprintf("  %d", ev.Frame))
	progress := ProgressBar(ev.Frame, ev.End, 24)
	fmt.Fprintf(r.w, "%s %s %s\n", banner, progress, Subtle.Render(ev.Elapsed.Round(1e6).String()))
	for _, p := range ev.Written {
		fmt.Fprintln(r.w, "  "+PathStyle.Render(p))
	}
}

// Summary renders the final result panel.
func Summary(res driver.Result, manifest string) string {
	var s strings.Builder
	status := StatusDone.Render(res.State.String())
	if res.State == driver.Failed {
		status = StatusFailed.Render(res.State.String())
	}
	s.WriteString(MetricLabel.Render("state") + status + "\n")
	s.WriteString(MetricLabel.Render("advanced") + MetricValue.Render(fmt.Sprintf("%d frames", res.FramesAdvanced)) + "\n")
	s.WriteString(MetricLabel.Render("written") + MetricValue.Render(fmt.Sprintf("%d frames, %d files", len(res.FramesWritten), len(res.Paths))) + "\n")
	s.WriteString(MetricLabel.Render("timestep") + MetricValue.Render(fmt.Sprintf("%.6fs", res.Timestep)) + "\n")
	s.WriteString(MetricLabel.Render("wall time") + MetricValue.Render(res.Duration.Round(1e6).String()))
	if manifest != "" {
		s.WriteString("\n" + MetricLabel.Render("manifest") + PathStyle.Render(manifest))
	}
	return PanelStyle.Render(s.String())
}

package frange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxFrame is the largest frame an expression may name; artifact names
// carry four frame digits.
const MaxFrame = 9999

// ErrParse is the sentinel wrapped by every ParseError.
var ErrParse = errors.New("frange: malformed frame expression")

// ParseError reports which clause of an expression could not be parsed.
type ParseError struct {
	Expr   string
	Clause string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Clause == "" {
		return fmt.Sprintf("frange: %q: %s", e.Expr, e.Reason)
	}
	return fmt.Sprintf("frange: %q: clause %q: %s", e.Expr, e.Clause, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// Clause is one comma separated term. A singleton N has Start == End and Step 1.
type Clause struct {
	Start int
	End   int
	Step  int
}

func (c Clause) String() string {
	switch {
	case c.Start == c.End:
		return strconv.Itoa(c.Start)
	case c.Step == 1:
		return fmt.Sprintf("%d-%d", c.Start, c.End)
	default:
		return fmt.Sprintf("%d-%d:%d", c.Start, c.End, c.Step)
	}
}

// FrameSet is the parsed form of a frame-selection expression such as
// "5-26:3,75-100". Frames holds the selected output frames, End the last
// frame a simulation has to reach. End is taken from the clause endpoints,
// so "1-10:4" selects {1,5,9} but still ends at 10.
type FrameSet struct {
	clauses []Clause
	frames  []int
	end     int
}

// Parse parses expr. See FrameSet for the grammar.
func Parse(expr string) (*FrameSet, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, &ParseError{Expr: expr, Reason: "empty expression"}
	}

	fs := &FrameSet{}
	seen := make(map[int]struct{})

	for _, raw := range strings.Split(expr, ",") {
		c, err := parseClause(strings.TrimSpace(raw))
		if err != nil {
			return nil, &ParseError{Expr: expr, Clause: strings.TrimSpace(raw), Reason: err.Error()}
		}
		fs.clauses = append(fs.clauses, c)

		for f := c.Start; ; f += c.Step {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				fs.frames = append(fs.frames, f)
			}
			if f > c.End-c.Step {
				break
			}
		}
		if c.End > fs.end {
			fs.end = c.End
		}
	}

	sort.Ints(fs.frames)
	return fs, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package level defaults.
func MustParse(expr string) *FrameSet {
	fs, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return fs
}

func parseClause(s string) (Clause, error) {
	if s == "" {
		return Clause{}, errors.New("empty clause")
	}

	rangePart, stepPart, hasStep := strings.Cut(s, ":")
	startPart, endPart, hasEnd := strings.Cut(rangePart, "-")

	if hasStep && !hasEnd {
		return Clause{}, errors.New("stride requires a range")
	}

	start, err := parseFrame(startPart)
	if err != nil {
		return Clause{}, err
	}

	c := Clause{Start: start, End: start, Step: 1}
	if !hasEnd {
		return c, nil
	}

	if c.End, err = parseFrame(endPart); err != nil {
		return Clause{}, err
	}
	if c.Start > c.End {
		return Clause{}, fmt.Errorf("start %d is after end %d", c.Start, c.End)
	}

	if hasStep {
		stepPart = strings.TrimSpace(stepPart)
		if strings.HasPrefix(stepPart, "-") && isDigits(stepPart[1:]) {
			return Clause{}, fmt.Errorf("stride must be positive, got %s", stepPart)
		}
		if !isDigits(stepPart) {
			return Clause{}, fmt.Errorf("stride %q is not an integer", stepPart)
		}
		step, err := strconv.Atoi(stepPart)
		if err != nil {
			return Clause{}, fmt.Errorf("stride %q is out of range", stepPart)
		}
		if step <= 0 {
			return Clause{}, fmt.Errorf("stride must be positive, got %d", step)
		}
		c.Step = step
	}

	return c, nil
}

func parseFrame(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !isDigits(s) {
		return 0, fmt.Errorf("frame %q is not an integer", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > MaxFrame {
		return 0, fmt.Errorf("frame %s is above %d", s, MaxFrame)
	}
	if n < 1 {
		return 0, fmt.Errorf("frame %d must be positive", n)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Frames returns the selected frames in ascending order.
func (fs *FrameSet) Frames() []int {
	out := make([]int, len(fs.frames))
	copy(out, fs.frames)
	return out
}

// End returns the largest endpoint of any clause.
func (fs *FrameSet) End() int { return fs.end }

// Len returns the number of selected frames.
func (fs *FrameSet) Len() int { return len(fs.frames) }

// Contains reports whether output is requested for frame f.
func (fs *FrameSet) Contains(f int) bool {
	i := sort.SearchInts(fs.frames, f)
	return i < len(fs.frames) && fs.frames[i] == f
}

// Clauses returns the parsed clauses in source order.
func (fs *FrameSet) Clauses() []Clause {
	out := make([]Clause, len(fs.clauses))
	copy(out, fs.clauses)
	return out
}

// String re-encodes the clauses in canonical form.
func (fs *FrameSet) String() string {
	parts := make([]string, len(fs.clauses))
	for i, c := range fs.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

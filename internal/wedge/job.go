package wedge

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/wave"
)

// JobDescriptor is everything a queue needs to run one job.
type JobDescriptor struct {
	Index      int
	Name       string
	Script     string
	Args       []string
	ConfigPath string
	OutputRoot string
	Queue      string
}

// JobTemplate describes how a record becomes a command line.
type JobTemplate struct {
	Executable string
	Frames     string
	Queue      string
	Geometry   string
	SimStart   int
	Env        map[string]string
	ExtraArgs  []string
}

func (t JobTemplate) executable() string {
	if t.Executable == "" {
		return "oceansim"
	}
	return t.Executable
}

// Build returns the descriptor of one sweep record.
func (t JobTemplate) Build(l Layout, name string, configPath string) JobDescriptor {
	args := []string{
		"run",
		"--frames", t.Frames,
		"--config", configPath,
		"--out", l.ProductsDir(),
		"--prod", name,
	}
	if t.Geometry != "" {
		args = append(args, "--thing", t.Geometry)
	}
	if t.SimStart > 0 {
		args = append(args, "--sim-start", strconv.Itoa(t.SimStart))
	}
	args = append(args, t.ExtraArgs...)

	return JobDescriptor{
		Name:       name,
		Script:     l.ScriptPath(name),
		Args:       append([]string{t.executable()}, args...),
		ConfigPath: configPath,
		OutputRoot: l.ProductsDir(),
		Queue:      t.Queue,
	}
}

// WriteScript writes the descriptor as a bash script.
func WriteScript(job JobDescriptor, env map[string]string) error {
	var sb strings.Builder
	sb.WriteString("#!/bin/bash\n")
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "export %s=%s\n", k, shellQuote(env[k]))
	}

	quoted := make([]string, len(job.Args))
	for i, a := range job.Args {
		quoted[i] = shellQuote(a)
	}
	fmt.Fprintf(&sb, "%s\n", strings.Join(quoted, " "))

	if err := os.WriteFile(job.Script, []byte(sb.String()), 0770); err != nil {
		return wave.NewIOError("write", job.Script, err)
	}
	if err := os.Chmod(job.Script, 0770); err != nil {
		return wave.NewIOError("chmod", job.Script, err)
	}
	return nil
}

// shellQuote leaves plain words alone and single quotes the rest.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	plain := strings.IndexFunc(s, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return false
		case strings.ContainsRune("-_./:,=+@%", r):
			return false
		}
		return true
	}) < 0
	if plain {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Prepare lays out a sweep on disk: one run document and one script per
// record. Descriptors come back in generation order.
func Prepare(l Layout, prefix, component string, base *config.Config, params []Param, tmpl JobTemplate) ([]JobDescriptor, error) {
	records, err := Expand(params)
	if err != nil {
		return nil, err
	}
	if _, ok := base.Components[component]; !ok {
		return nil, &wave.ConfigError{Component: component, Reason: "unknown component"}
	}
	if err := l.Create(); err != nil {
		return nil, err
	}

	jobs := make([]JobDescriptor, 0, len(records))
	for _, rec := range records {
		doc, err := rec.Document(base, component)
		if err != nil {
			return nil, err
		}
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.Index, err)
		}

		name := rec.Name(prefix)
		path := l.ParmsPath(name)
		if err := config.Save(path, doc); err != nil {
			return nil, err
		}

		job := tmpl.Build(l, name, path)
		job.Index = rec.Index
		if err := WriteScript(job, tmpl.Env); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// FrameTemplate turns one frame into a command. "{frame}" in any argument
// is replaced by the frame number, "{frame4}" by its zero padded form.
type FrameTemplate struct {
	Name    string
	Command []string
	Queue   string
	Env     map[string]string
}

// FrameJobs writes one script per selected frame, for exporters that
// process a single frame per job.
func FrameJobs(l Layout, frames *frange.FrameSet, tmpl FrameTemplate) ([]JobDescriptor, error) {
	if len(tmpl.Command) == 0 {
		return nil, &wave.ConfigError{Key: "command", Reason: "frame jobs need a command"}
	}
	if err := l.Create(); err != nil {
		return nil, err
	}

	jobs := make([]JobDescriptor, 0, frames.Len())
	for _, f := range frames.Frames() {
		r := strings.NewReplacer("{frame}", strconv.Itoa(f), "{frame4}", fmt.Sprintf("%04d", f))
		args := make([]string, len(tmpl.Command))
		for i, a := range tmpl.Command {
			args[i] = r.Replace(a)
		}
		name := fmt.Sprintf("%s_%04d", tmpl.Name, f)
		job := JobDescriptor{
			Index:      f,
			Name:       name,
			Script:     l.ScriptPath(name),
			Args:       args,
			OutputRoot: l.ProductsDir(),
			Queue:      tmpl.Queue,
		}
		if err := WriteScript(job, tmpl.Env); err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

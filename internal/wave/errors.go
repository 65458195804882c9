package wave

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure a component reports wraps exactly one of these.
var (
	// ErrConfig indicates a missing or malformed parameter, or a call made
	// in the wrong lifecycle phase.
	ErrConfig = errors.New("wave: invalid configuration")

	// ErrIO indicates a configuration read or output write failure.
	ErrIO = errors.New("wave: i/o failure")

	// ErrSolver indicates a failure inside the numeric engine.
	ErrSolver = errors.New("wave: solver failure")
)

// ConfigError names the component and key a configuration problem refers to.
type ConfigError struct {
	Component string
	Key       string
	Reason    string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s: %s", ErrConfig, e.Component, e.Reason)
	}
	return fmt.Sprintf("%s: %s.%s: %s", ErrConfig, e.Component, e.Key, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(component, key, format string, args ...any) error {
	return &ConfigError{Component: component, Key: key, Reason: fmt.Sprintf(format, args...)}
}

// IOError wraps a filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrIO, e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }

// NewIOError wraps err as an IOError unless it already is one.
func NewIOError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

// SolverError wraps an error raised by an Engine.
type SolverError struct {
	Component string
	Op        string
	Err       error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrSolver, e.Component, e.Op, e.Err)
}

func (e *SolverError) Unwrap() []error { return []error{ErrSolver, e.Err} }

package wedge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// Handle identifies a submitted job.
type Handle struct {
	ID    string
	Queue string
	Job   JobDescriptor
}

// Queue accepts jobs for execution.
type Queue interface {
	Submit(ctx context.Context, queue string, job JobDescriptor) (Handle, error)
}

// SubmitAll submits jobs in order and stops at the first failure. Handles
// of the jobs already submitted are returned with the error.
func SubmitAll(ctx context.Context, q Queue, queue string, jobs []JobDescriptor) ([]Handle, error) {
	handles := make([]Handle, 0, len(jobs))
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			return handles, ctx.Err()
		default:
		}
		name := queue
		if name == "" {
			name = job.Queue
		}
		h, err := q.Submit(ctx, name, job)
		if err != nil {
			return handles, fmt.Errorf("submit %s: %w", job.Name, err)
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// CommandQueue hands scripts to an external scheduler command. Args may
// use "{queue}" and "{script}" placeholders.
type CommandQueue struct {
	Command string
	Args    []string
}

func NewCommandQueue() *CommandQueue {
	return &CommandQueue{Command: "cqsubmittask", Args: []string{"{queue}", "{script}"}}
}

func (q *CommandQueue) Submit(ctx context.Context, queue string, job JobDescriptor) (Handle, error) {
	r := strings.NewReplacer("{queue}", queue, "{script}", job.Script)
	args := make([]string, len(q.Args))
	for i, a := range q.Args {
		args[i] = r.Replace(a)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, q.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Handle{}, fmt.Errorf("%s: %w: %s", q.Command, err, strings.TrimSpace(stderr.String()))
	}

	id := strings.TrimSpace(stdout.String())
	if id == "" {
		id = job.Name
	}
	return Handle{ID: id, Queue: queue, Job: job}, nil
}

// DryRunQueue records submissions without running anything.
type DryRunQueue struct {
	mu        sync.Mutex
	Submitted []Handle
}

func (q *DryRunQueue) Submit(_ context.Context, queue string, job JobDescriptor) (Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h := Handle{ID: fmt.Sprintf("dry-%d", len(q.Submitted)), Queue: queue, Job: job}
	q.Submitted = append(q.Submitted, h)
	return h, nil
}

// RunFunc executes one job locally.
type RunFunc func(ctx context.Context, job JobDescriptor) error

// RunScript runs the job's script with bash.
func RunScript(ctx context.Context, job JobDescriptor) error {
	out, err := exec.CommandContext(ctx, "bash", job.Script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", job.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// LocalQueue runs jobs on this machine with at most Workers in flight.
// Submit returns immediately; Wait blocks until every job finished.
type LocalQueue struct {
	run RunFunc
	sem chan struct{}
	wg  sync.WaitGroup

	mu   sync.Mutex
	errs []error
	done int
}

func NewLocalQueue(workers int, run RunFunc) *LocalQueue {
	if workers < 1 {
		workers = 1
	}
	if run == nil {
		run = RunScript
	}
	return &LocalQueue{run: run, sem: make(chan struct{}, workers)}
}

func (q *LocalQueue) Submit(ctx context.Context, queue string, job JobDescriptor) (Handle, error) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()

		select {
		case q.sem <- struct{}{}:
		case <-ctx.Done():
			q.record(fmt.Errorf("%s: %w", job.Name, ctx.Err()))
			return
		}
		defer func() { <-q.sem }()

		q.record(q.run(ctx, job))
	}()
	return Handle{ID: fmt.Sprintf("local-%d", job.Index), Queue: queue, Job: job}, nil
}

func (q *LocalQueue) record(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.done++
	if err != nil {
		q.errs = append(q.errs, err)
	}
}

// Wait blocks until all submitted jobs return and joins their errors.
func (q *LocalQueue) Wait() error {
	q.wg.Wait()
	q.mu.Lock()
	defer q.mu.Unlock()
	return errors.Join(q.errs...)
}

// Completed returns the number of finished jobs.
func (q *LocalQueue) Completed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.done
}

package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var ErrBatchClosed = errors.New("batch already committed or aborted")

// Batch stages every artifact of one frame next to its final path and
// moves them into place together. A frame that fails while staging leaves
// nothing behind.
type Batch struct {
	frame  int
	staged []staged
	closed bool
}

type staged struct {
	tmp, final string
}

func NewBatch(frame int) *Batch {
	return &Batch{frame: frame}
}

// Write stages one artifact. fn receives the temporary path to write to.
func (b *Batch) Write(final string, fn func(tmp string) error) error {
	if b.closed {
		return ErrBatchClosed
	}
	tmp := filepath.Join(filepath.Dir(final), fmt.Sprintf(".%s.partial", filepath.Base(final)))
	b.staged = append(b.staged, staged{tmp: tmp, final: final})
	return fn(tmp)
}

// Commit renames every staged file to its final path and returns the final
// paths in staging order. If any rename fails the frame is rolled back:
// finals already moved are removed, files they replaced are restored and
// the remaining temporaries are deleted.
func (b *Batch) Commit() ([]string, error) {
	if b.closed {
		return nil, ErrBatchClosed
	}
	b.closed = true

	var done []committed
	for i, s := range b.staged {
		c, err := commitOne(s)
		if err != nil {
			removeStaged(b.staged[i:])
			return nil, errors.Join(fmt.Errorf("commit frame %d: %w", b.frame, err), rollback(done))
		}
		done = append(done, c)
	}

	paths := make([]string, len(done))
	for i, c := range done {
		if c.backup != "" {
			os.Remove(c.backup)
		}
		paths[i] = c.final
	}
	return paths, nil
}

type committed struct {
	final, backup string
}

// commitOne moves an existing final aside before renaming the temporary
// over it, so a rollback can put it back.
func commitOne(s staged) (committed, error) {
	c := committed{final: s.final}
	if _, err := os.Lstat(s.final); err == nil {
		c.backup = filepath.Join(filepath.Dir(s.final), fmt.Sprintf(".%s.prev", filepath.Base(s.final)))
		if err := os.Rename(s.final, c.backup); err != nil {
			return committed{}, err
		}
	}
	if err := os.Rename(s.tmp, s.final); err != nil {
		if c.backup != "" {
			os.Rename(c.backup, s.final)
		}
		return committed{}, err
	}
	return c, nil
}

func rollback(done []committed) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		c := done[i]
		if err := os.Remove(c.final); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		if c.backup != "" {
			if err := os.Rename(c.backup, c.final); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Abort discards staged files.
func (b *Batch) Abort() {
	if b.closed {
		return
	}
	b.closed = true
	removeStaged(b.staged)
}

// Len returns the number of staged artifacts.
func (b *Batch) Len() int { return len(b.staged) }

func removeStaged(s []staged) {
	for _, st := range s {
		os.Remove(st.tmp)
	}
}

package wedge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

const timestampFormat = "2006-01-02-15-04-05"

// Layout is the directory tree of one wedge:
//
//	<out>/<name>-<timestamp>/
//	    parms/     run documents
//	    script/    submit scripts
//	    products/  {images,oceanmesh,sim,ewave_source}
type Layout struct {
	Root string
}

func NewLayout(outDir, name string, now time.Time) Layout {
	return Layout{Root: filepath.Join(outDir, fmt.Sprintf("%s-%s", name, now.Format(timestampFormat)))}
}

func (l Layout) ParmsDir() string    { return filepath.Join(l.Root, "parms") }
func (l Layout) ScriptDir() string   { return filepath.Join(l.Root, "script") }
func (l Layout) ProductsDir() string { return filepath.Join(l.Root, "products") }

// ParmsPath returns parms/<name>.yaml.
func (l Layout) ParmsPath(name string) string {
	return filepath.Join(l.ParmsDir(), name+".yaml")
}

// ScriptPath returns script/submit_<name>.sh.
func (l Layout) ScriptPath(name string) string {
	return filepath.Join(l.ScriptDir(), fmt.Sprintf("submit_%s.sh", name))
}

// Create makes the tree, group writable so farm jobs can fill products.
func (l Layout) Create() error {
	dirs := []string{
		l.Root,
		l.ParmsDir(),
		l.ScriptDir(),
		l.ProductsDir(),
		filepath.Join(l.ProductsDir(), "images"),
		filepath.Join(l.ProductsDir(), output.MeshDir),
		filepath.Join(l.ProductsDir(), output.SimDir),
		filepath.Join(l.ProductsDir(), "ewave_source"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0770); err != nil {
			return wave.NewIOError("mkdir", dir, err)
		}
		if err := os.Chmod(dir, 0770); err != nil {
			return wave.NewIOError("chmod", dir, err)
		}
	}
	return nil
}

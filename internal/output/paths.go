// Package output names and writes the per-frame artifacts of a run.
//
// Layout under an output root:
//
//	<root>/sim/<label>.<0001>.<ext>         displacement fields
//	<root>/oceanmesh/ocean_<prod>.<0001>.obj surface meshes
//	<root>/runs/<prod>.json                 run manifests
package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	SimDir  = "sim"
	MeshDir = "oceanmesh"
	RunsDir = "runs"
)

// Path returns the artifact path of a component's field at a frame.
func Path(root, label string, frame int, ext string) string {
	return filepath.Join(root, SimDir, fmt.Sprintf("%s.%04d.%s", label, frame, strings.TrimPrefix(ext, ".")))
}

// MeshPath returns the surface mesh path for a product at a frame.
func MeshPath(root, prod string, frame int) string {
	return filepath.Join(root, MeshDir, fmt.Sprintf("ocean_%s.%04d.obj", prod, frame))
}

// Label joins a product token and component label. An empty product keeps
// the component label.
func Label(prod, component string) string {
	if prod == "" {
		return component
	}
	return prod + "_" + component
}

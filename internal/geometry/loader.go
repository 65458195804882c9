package geometry

import "fmt"

// Loader resolves the boundary mesh for a frame.
type Loader interface {
	Load(frame int) (*Mesh, error)
}

// FramePath returns "<prefix>.<0001>.obj".
func FramePath(prefix string, frame int) string {
	return fmt.Sprintf("%s.%04d.obj", prefix, frame)
}

// SequenceLoader reads one OBJ file per frame from disk.
type SequenceLoader struct {
	Prefix string
}

func NewSequenceLoader(prefix string) *SequenceLoader {
	return &SequenceLoader{Prefix: prefix}
}

func (l *SequenceLoader) Load(frame int) (*Mesh, error) {
	return LoadOBJ(FramePath(l.Prefix, frame))
}

// StaticLoader returns the same mesh for every frame.
type StaticLoader struct {
	Mesh *Mesh
}

func (l StaticLoader) Load(int) (*Mesh, error) {
	if l.Mesh == nil {
		return nil, fmt.Errorf("geometry: static loader has no mesh")
	}
	return l.Mesh, nil
}

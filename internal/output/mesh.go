package output

import (
	"io"

	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/wave"
)

// SurfaceMesh turns a field into a displaced triangle grid. The water plane
// is XZ with Y up, matching the boundary meshes.
func SurfaceMesh(f *wave.Field, name string) *geometry.Mesh {
	m := &geometry.Mesh{
		Name:     name,
		Vertices: make([]geometry.Vec3, 0, f.NX*f.NY),
		Faces:    make([][3]int, 0, 2*max(f.NX-1, 0)*max(f.NY-1, 0)),
	}
	for j := 0; j < f.NY; j++ {
		for i := 0; i < f.NX; i++ {
			x, z := f.Position(i, j)
			s := f.At(i, j)
			m.Vertices = append(m.Vertices, geometry.Vec3{X: x + s.DispX, Y: s.Height, Z: z + s.DispY})
		}
	}
	for j := 0; j+1 < f.NY; j++ {
		for i := 0; i+1 < f.NX; i++ {
			a := f.Index(i, j)
			b := f.Index(i+1, j)
			c := f.Index(i+1, j+1)
			d := f.Index(i, j+1)
			m.Faces = append(m.Faces, [3]int{a, c, b}, [3]int{a, d, c})
		}
	}
	return m
}

// WriteMesh writes a mesh as OBJ, creating parent directories.
func WriteMesh(path string, m *geometry.Mesh) error {
	return writeFile(path, func(w io.Writer) error { return m.WriteOBJ(w) })
}

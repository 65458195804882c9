// Package geometry loads the per-frame boundary meshes that perturb a local
// disturbance field.
//
// Meshes are Y-up, as exported from the layout application, so the water
// plane is XZ. Frame sequences follow the "<prefix>.<0001>.obj" convention
// used by the batch exporters.
package geometry

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

type Vec3 struct {
	X, Y, Z float64
}

// Mesh is a triangle mesh. Polygons are fan triangulated on load.
type Mesh struct {
	Name     string
	Vertices []Vec3
	Faces    [][3]int
}

// Bounds returns the axis aligned bounding box of the mesh.
func (m *Mesh) Bounds() (min, max Vec3) {
	if len(m.Vertices) == 0 {
		return Vec3{}, Vec3{}
	}
	min = Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	max = Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range m.Vertices {
		min.X, max.X = math.Min(min.X, v.X), math.Max(max.X, v.X)
		min.Y, max.Y = math.Min(min.Y, v.Y), math.Max(max.Y, v.Y)
		min.Z, max.Z = math.Min(min.Z, v.Z), math.Max(max.Z, v.Z)
	}
	return min, max
}

// LoadOBJ reads a Wavefront OBJ file.
func LoadOBJ(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadOBJ(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Name = path
	return m, nil
}

// ReadOBJ parses vertex and face records. Texture coordinates, normals,
// groups and materials are ignored.
func ReadOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", line)
			}
			var xyz [3]float64
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				xyz[i] = v
			}
			m.Vertices = append(m.Vertices, Vec3{xyz[0], xyz[1], xyz[2]})

		case "f":
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: face needs at least 3 vertices", line)
			}
			idx := make([]int, 0, len(fields)-1)
			for _, tok := range fields[1:] {
				i, err := faceIndex(tok, len(m.Vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				idx = append(idx, i)
			}
			for i := 1; i+1 < len(idx); i++ {
				m.Faces = append(m.Faces, [3]int{idx[0], idx[i], idx[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// faceIndex resolves "7", "7/1", "7//3" or negative relative indices to a
// zero based vertex index.
func faceIndex(tok string, nverts int) (int, error) {
	head, _, _ := strings.Cut(tok, "/")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q", tok)
	}
	switch {
	case n > 0:
		n--
	case n < 0:
		n += nverts
	default:
		return 0, fmt.Errorf("face index 0 is invalid")
	}
	if n < 0 || n >= nverts {
		return 0, fmt.Errorf("face index %q out of range", tok)
	}
	return n, nil
}

// WriteOBJ writes the mesh as OBJ with one based indices.
func (m *Mesh) WriteOBJ(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v.X, v.Y, v.Z)
	}
	for _, f := range m.Faces {
		fmt.Fprintf(bw, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return bw.Flush()
}

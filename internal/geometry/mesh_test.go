package geometry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const quadOBJ = `# quad
v -1 0 -1
v 1 0 -1
v 1 -0.5 1
v -1 -0.5 1
vn 0 1 0
f 1//1 2//1 3//1 4//1
`

func TestReadOBJ(t *testing.T) {
	m, err := ReadOBJ(strings.NewReader(quadOBJ))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if len(m.Vertices) != 4 {
		t.Errorf("expected 4 vertices, got %d", len(m.Vertices))
	}
	if len(m.Faces) != 2 {
		t.Fatalf("expected quad split into 2 triangles, got %d", len(m.Faces))
	}
	if m.Faces[1] != [3]int{0, 2, 3} {
		t.Errorf("unexpected fan triangle %v", m.Faces[1])
	}

	min, max := m.Bounds()
	if min.Y != -0.5 || max.Y != 0 {
		t.Errorf("unexpected y bounds %v %v", min.Y, max.Y)
	}
}

func TestReadOBJNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 1 0 0\nv 0 0 1\nf -3 -2 -1\n"
	m, err := ReadOBJ(strings.NewReader(src))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if m.Faces[0] != [3]int{0, 1, 2} {
		t.Errorf("unexpected face %v", m.Faces[0])
	}
}

func TestReadOBJErrors(t *testing.T) {
	tests := map[string]string{
		"short vertex": "v 1 2\n",
		"bad float":    "v 1 x 2\n",
		"out of range": "v 0 0 0\nf 1 2 3\n",
		"zero index":   "v 0 0 0\nv 0 0 0\nv 0 0 0\nf 0 1 2\n",
		"short face":   "v 0 0 0\nf 1 1\n",
	}
	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadOBJ(strings.NewReader(src)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWriteOBJ(t *testing.T) {
	m := &Mesh{
		Name:     "tri",
		Vertices: []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	var buf bytes.Buffer
	if err := m.WriteOBJ(&buf); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), "f 1 2 3") {
		t.Errorf("expected one based face, got:\n%s", buf.String())
	}

	back, err := ReadOBJ(&buf)
	if err != nil {
		t.Fatalf("reread failed: %v", err)
	}
	if len(back.Faces) != 1 || len(back.Vertices) != 3 {
		t.Errorf("unexpected reread mesh %+v", back)
	}
}

func TestSequenceLoader(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "boat_tri")

	if got := FramePath(prefix, 7); got != prefix+".0007.obj" {
		t.Errorf("unexpected frame path %s", got)
	}

	if err := os.WriteFile(FramePath(prefix, 3), []byte(quadOBJ), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewSequenceLoader(prefix)
	m, err := l.Load(3)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(m.Faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(m.Faces))
	}

	if _, err := l.Load(4); err == nil {
		t.Error("expected error for missing frame")
	}
}

package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

const manifestExt = ".json"

// Store keeps run manifests under <root>/runs.
type Store struct {
	baseDir string
}

func New(root string) *Store {
	return &Store{baseDir: filepath.Join(root, output.RunsDir)}
}

func (s *Store) Dir() string { return s.baseDir }

func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return wave.NewIOError("mkdir", s.baseDir, err)
	}
	return nil
}

// Manifest records what one driver run did.
type Manifest struct {
	Prod           string        `json:"prod"`
	Started        time.Time     `json:"started"`
	Finished       time.Time     `json:"finished"`
	Duration       time.Duration `json:"duration"`
	Frames         string        `json:"frames"`
	FPS            float64       `json:"fps"`
	Timestep       float64       `json:"timestep"`
	SimStart       int           `json:"sim_start"`
	TimeOffset     float64       `json:"time_offset"`
	Config         string        `json:"config,omitempty"`
	Geometry       string        `json:"geometry,omitempty"`
	Products       []string      `json:"products"`
	State          string        `json:"state"`
	FramesAdvanced int           `json:"frames_advanced"`
	FramesWritten  []int         `json:"frames_written"`
	Paths          []string      `json:"paths"`
	Error          string        `json:"error,omitempty"`
}

// Record fills the run outcome from a driver result.
func (m *Manifest) Record(res driver.Result, runErr error) {
	m.State = res.State.String()
	m.FramesAdvanced = res.FramesAdvanced
	m.FramesWritten = res.FramesWritten
	m.Paths = res.Paths
	m.Timestep = res.Timestep
	m.Duration = res.Duration
	if runErr != nil {
		m.Error = runErr.Error()
	}
}

func (s *Store) path(prod string) string {
	if prod == "" {
		prod = "run"
	}
	return filepath.Join(s.baseDir, prod+manifestExt)
}

// Save writes the manifest, replacing any earlier run of the same product.
func (s *Store) Save(m *Manifest) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	if m.Finished.IsZero() {
		m.Finished = time.Now()
	}

	path := s.path(m.Prod)
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", wave.NewIOError("write", path, err)
	}
	return path, nil
}

// List returns every readable manifest, newest first. Unreadable files are
// skipped.
func (s *Store) List() ([]Manifest, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Manifest{}, nil
		}
		return nil, wave.NewIOError("read", s.baseDir, err)
	}

	runs := make([]Manifest, 0)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != manifestExt {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var m Manifest
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		runs = append(runs, m)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Finished.After(runs[j].Finished)
	})
	return runs, nil
}

func (s *Store) Load(prod string) (*Manifest, error) {
	path := s.path(prod)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wave.NewIOError("read", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &m, nil
}

// ProbeSample is the composite surface at the probe point after a frame.
type ProbeSample struct {
	Frame  int
	Time   float64
	Height float64
	DispX  float64
	DispY  float64
}

func (s *Store) probePath(prod string) string {
	return strings.TrimSuffix(s.path(prod), manifestExt) + ".probe.csv"
}

// SaveProbe writes a probe series next to the product's manifest.
func (s *Store) SaveProbe(prod string, samples []ProbeSample) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	path := s.probePath(prod)
	f, err := os.Create(path)
	if err != nil {
		return "", wave.NewIOError("create", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"frame", "time", "height", "disp_x", "disp_y"}); err != nil {
		return "", wave.NewIOError("write", path, err)
	}
	for _, p := range samples {
		row := []string{
			strconv.Itoa(p.Frame),
			strconv.FormatFloat(p.Time, 'f', 6, 64),
			strconv.FormatFloat(p.Height, 'f', 6, 64),
			strconv.FormatFloat(p.DispX, 'f', 6, 64),
			strconv.FormatFloat(p.DispY, 'f', 6, 64),
		}
		if err := w.Write(row); err != nil {
			return "", wave.NewIOError("write", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", wave.NewIOError("write", path, err)
	}
	return path, nil
}

// LoadProbe reads a series written by SaveProbe. Malformed rows are skipped.
func (s *Store) LoadProbe(prod string) ([]ProbeSample, error) {
	path := s.probePath(prod)
	file, err := os.Open(path)
	if err != nil {
		return nil, wave.NewIOError("open", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, wave.NewIOError("read", path, err)
	}
	if len(records) < 2 {
		return []ProbeSample{}, nil
	}

	samples := make([]ProbeSample, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 5 {
			continue
		}
		frame, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		var vals [4]float64
		ok := true
		for i := range vals {
			if vals[i], err = strconv.ParseFloat(rec[i+1], 64); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		samples = append(samples, ProbeSample{Frame: frame, Time: vals[0], Height: vals[1], DispX: vals[2], DispY: vals[3]})
	}
	return samples, nil
}

// Heights returns the height column of a series.
func Heights(samples []ProbeSample) []float64 {
	h := make([]float64, len(samples))
	for i, p := range samples {
		h[i] = p.Height
	}
	return h
}

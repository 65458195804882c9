package driver_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/oceansim/internal/driver"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/geometry"
	"github.com/san-kum/oceansim/internal/output"
	"github.com/san-kum/oceansim/internal/wave"
)

// scriptEngine logs every advance into a log shared by the whole scene.
type scriptEngine struct {
	label    string
	log      *[]string
	field    *wave.Field
	forcings []wave.Forcing
}

func (e *scriptEngine) Generate(wave.Settings) error {
	e.field = wave.NewField(2, 2, wave.Vec2{}, wave.Vec2{X: 2, Y: 2}, true)
	return nil
}

func (e *scriptEngine) Advance(dt float64, f wave.Forcing) error {
	*e.log = append(*e.log, e.label)
	e.forcings = append(e.forcings, f)
	for k := range e.field.Height {
		e.field.Height[k] += dt
	}
	return nil
}

func (e *scriptEngine) Field() *wave.Field { return e.field }

// flakyWriter writes CSV but fails for one frame.
type flakyWriter struct {
	failFrame int
}

func (w flakyWriter) WriteField(path string, f *wave.Field) error {
	if w.failFrame > 0 && strings.Contains(filepath.Base(path), fmt.Sprintf(".%04d.", w.failFrame)) {
		return errors.New("disk full")
	}
	return output.CSVWriter{}.WriteField(path, f)
}

type recordingLoader struct {
	loaded []int
	fail   bool
}

func (l *recordingLoader) Load(frame int) (*geometry.Mesh, error) {
	if l.fail {
		return nil, os.ErrNotExist
	}
	l.loaded = append(l.loaded, frame)
	return &geometry.Mesh{Name: fmt.Sprintf("hull.%04d", frame)}, nil
}

type scene struct {
	log     []string
	swell   *wave.Swell
	chop    *wave.WindChop
	dist    *wave.LocalDisturbance
	distEng *scriptEngine
	merge   *wave.Merge
	loader  *recordingLoader
}

func setAll(c wave.Component, keys ...string) {
	for _, k := range keys {
		Expect(c.Set(k, wave.Literal(1.0))).To(Succeed())
	}
}

func newScene(writer wave.FieldWriter) *scene {
	s := &scene{loader: &recordingLoader{}}
	s.swell = wave.NewSwell("swell_waves", &scriptEngine{label: "swell_waves", log: &s.log}, writer)
	s.chop = wave.NewWindChop("small_waves", &scriptEngine{label: "small_waves", log: &s.log}, writer)
	s.distEng = &scriptEngine{label: "ewave", log: &s.log}
	s.dist = wave.NewLocalDisturbance("ewave", s.distEng, writer)

	setAll(s.swell, "typicalheight", "travel", "align", "direction", "cuspscale", "longest", "shortest", "depth")
	setAll(s.chop, "typicalheight", "direction", "longest", "shortest", "cuspscale")
	setAll(s.dist, "patchsize", "llc", "gravity", "depth")

	Expect(s.swell.Generate()).To(Succeed())
	Expect(s.chop.Generate()).To(Succeed())

	s.merge = wave.NewMerge("base_ocean")
	Expect(s.merge.AddWave(s.swell)).To(Succeed())
	Expect(s.merge.AddWave(s.chop)).To(Succeed())
	Expect(s.merge.Generate()).To(Succeed())

	Expect(s.dist.Set(wave.KeySurfaceGeom, wave.Literal(s.merge))).To(Succeed())
	Expect(s.dist.Generate()).To(Succeed())
	return s
}

func newDriver(s *scene, expr, root string, simStart int) *driver.Driver {
	d := driver.New(driver.Options{
		Frames:     frange.MustParse(expr),
		FPS:        24,
		SimStart:   simStart,
		OutputRoot: root,
		Format:     output.FormatCSV,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	d.SetMerge(s.merge)
	d.SetDisturbance(s.dist, s.loader)
	d.AddProduct("shot_ewave", s.dist)
	d.AddProduct("shot_swell_waves", s.swell)
	return d
}

func simFiles(root string) []string {
	entries, err := os.ReadDir(filepath.Join(root, output.SimDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	Expect(err).NotTo(HaveOccurred())
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var _ = Describe("Driver", func() {
	var (
		root string
		s    *scene
	)

	BeforeEach(func() {
		root = GinkgoT().TempDir()
		s = newScene(flakyWriter{})
	})

	Context("with a sim start after the first frame", func() {
		It("clamps early geometry frames and writes every selected frame", func() {
			res, err := newDriver(s, "1-3", root, 2).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.State).To(Equal(driver.Done))
			Expect(res.FramesAdvanced).To(Equal(3))
			Expect(s.loader.loaded).To(Equal([]int{2, 2, 3}))
			Expect(res.FramesWritten).To(Equal([]int{1, 2, 3}))
			Expect(simFiles(root)).To(ConsistOf(
				"shot_ewave.0001.csv", "shot_ewave.0002.csv", "shot_ewave.0003.csv",
				"shot_swell_waves.0001.csv", "shot_swell_waves.0002.csv", "shot_swell_waves.0003.csv",
			))
		})
	})

	Context("with a strided selection", func() {
		It("advances every frame up to the end but writes only selected ones", func() {
			res, err := newDriver(s, "5-9:2", root, 1).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(res.FramesAdvanced).To(Equal(9))
			Expect(res.FramesWritten).To(Equal([]int{5, 7, 9}))
			Expect(res.Paths).To(HaveLen(6))
			Expect(simFiles(root)).To(HaveLen(6))
			Expect(s.loader.loaded).To(Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}))
		})

		It("updates each component exactly once per frame", func() {
			_, err := newDriver(s, "5-9:2", root, 1).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(s.swell.Steps()).To(Equal(9))
			Expect(s.chop.Steps()).To(Equal(9))
			Expect(s.dist.Steps()).To(Equal(9))
			Expect(s.merge.Steps()).To(Equal(9))
			Expect(s.swell.Elapsed()).To(BeNumerically("~", 9.0/24, 1e-12))
		})

		It("updates the base ocean before the disturbance", func() {
			_, err := newDriver(s, "5-9:2", root, 1).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(s.log).To(HaveLen(27))
			for i := 0; i < len(s.log); i += 3 {
				Expect(s.log[i : i+3]).To(Equal([]string{"swell_waves", "small_waves", "ewave"}))
			}
		})

		It("hands the disturbance a fresh boundary every frame", func() {
			_, err := newDriver(s, "1-4", root, 3).Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			Expect(s.distEng.forcings).To(HaveLen(4))
			for i, f := range s.distEng.forcings {
				Expect(f.ComputeSource).To(BeTrue())
				Expect(f.Source).NotTo(BeNil())
				Expect(f.Source.Name).To(Equal(fmt.Sprintf("hull.%04d", driver.GeometryFrame(i+1, 3))))
				Expect(f.Surface).To(BeIdenticalTo(s.merge))
			}
			_, pending := s.dist.Get(wave.KeyHeightSourceGeom)
			Expect(pending).To(BeFalse())
		})
	})

	It("notifies observers after each frame", func() {
		var events []driver.FrameEvent
		d := newDriver(s, "2-3", root, 1)
		d.AddObserver(driver.ObserverFunc(func(ev driver.FrameEvent) { events = append(events, ev) }))

		_, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())

		Expect(events).To(HaveLen(3))
		Expect(events[0].Selected).To(BeFalse())
		Expect(events[1].Selected).To(BeTrue())
		Expect(events[1].Written).To(HaveLen(2))
		Expect(events[2].End).To(Equal(3))
		Expect(events[2].Surface).NotTo(BeNil())
	})

	It("pre-rolls the base ocean by the time offset", func() {
		d := driver.New(driver.Options{
			Frames:     frange.MustParse("1-2"),
			FPS:        24,
			TimeOffset: 12,
			OutputRoot: root,
			Format:     output.FormatCSV,
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		d.SetMerge(s.merge)

		_, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(s.swell.Steps()).To(Equal(3))
		Expect(s.swell.Elapsed()).To(BeNumerically("~", 14.0/24, 1e-12))
	})

	It("runs the base ocean alone and exports its surface mesh", func() {
		d := driver.New(driver.Options{
			Frames:     frange.MustParse("2"),
			OutputRoot: root,
			Format:     output.FormatCSV,
			ExportMesh: true,
			MeshName:   "shot",
			Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		d.SetMerge(s.merge)
		d.AddProduct("swell_waves", s.swell)

		res, err := d.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Paths).To(ConsistOf(
			output.Path(root, "swell_waves", 2, "csv"),
			output.MeshPath(root, "shot", 2),
		))
		Expect(output.MeshPath(root, "shot", 2)).To(BeAnExistingFile())
		Expect(s.dist.Steps()).To(BeZero())
	})

	Context("when a frame fails", func() {
		It("stops with a frame error and leaves a valid prefix", func() {
			s = newScene(flakyWriter{failFrame: 7})
			d := newDriver(s, "5-9:2", root, 1)

			res, err := d.Run(context.Background())
			Expect(err).To(HaveOccurred())

			var fe *driver.FrameError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Frame).To(Equal(7))
			Expect(fe.Stage).To(Equal(driver.StageWrite))
			Expect(errors.Is(err, wave.ErrIO)).To(BeTrue())

			Expect(d.State()).To(Equal(driver.Failed))
			Expect(res.FramesWritten).To(Equal([]int{5}))
			Expect(simFiles(root)).To(ConsistOf("shot_ewave.0005.csv", "shot_swell_waves.0005.csv"))
		})

		It("reports missing geometry as an IO error", func() {
			s.loader.fail = true
			_, err := newDriver(s, "1", root, 1).Run(context.Background())

			var fe *driver.FrameError
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Stage).To(Equal(driver.StageGeometry))
			Expect(errors.Is(err, wave.ErrIO)).To(BeTrue())
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})

		It("refuses to run twice", func() {
			d := newDriver(s, "1", root, 1)
			_, err := d.Run(context.Background())
			Expect(err).NotTo(HaveOccurred())

			_, err = d.Run(context.Background())
			Expect(err).To(MatchError(driver.ErrAlreadyRun))
		})
	})

	It("stops between frames when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		d := newDriver(s, "1-10", root, 1)
		d.AddObserver(driver.ObserverFunc(func(ev driver.FrameEvent) {
			if ev.Frame == 3 {
				cancel()
			}
		}))

		res, err := d.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.FramesAdvanced).To(Equal(3))
		Expect(simFiles(root)).To(HaveLen(6))
	})

	It("rejects components that were never generated", func() {
		m := wave.NewMerge("base_ocean")
		d := driver.New(driver.Options{Frames: frange.MustParse("1")})
		d.SetMerge(m)

		_, err := d.Run(context.Background())
		Expect(err).To(MatchError(driver.ErrNotGenerated))

		_, err = driver.New(driver.Options{Frames: frange.MustParse("1")}).Run(context.Background())
		Expect(err).To(MatchError(driver.ErrNoMerge))
	})

	DescribeTable("GeometryFrame",
		func(f, simStart, want int) {
			Expect(driver.GeometryFrame(f, simStart)).To(Equal(want))
		},
		Entry("before sim start", 1, 5, 5),
		Entry("at sim start", 5, 5, 5),
		Entry("after sim start", 9, 5, 9),
	)
})

package wedge_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/oceansim/internal/config"
	"github.com/san-kum/oceansim/internal/frange"
	"github.com/san-kum/oceansim/internal/wave"
	"github.com/san-kum/oceansim/internal/wedge"
)

func swellSweep() []wedge.Param {
	return []wedge.Param{
		{Name: "typicalheight", Values: []any{0.1, 0.9}},
		{Name: "travel", Values: []any{3.0}},
		{Name: "align", Values: []any{8.0}},
		{Name: "cuspscale", Values: []any{0.0, 0.75 * 6}},
		{Name: "longest", Values: []any{10.0, 1000.0}},
		{Name: "shortest", Values: []any{0.25, 4.0}},
		{Name: "depth", Values: []any{10}},
	}
}

var _ = Describe("Expand", func() {
	It("produces the Cartesian product with the last parameter fastest", func() {
		records, err := wedge.Expand([]wedge.Param{
			{Name: "a", Values: []any{1, 2}},
			{Name: "b", Values: []any{"x", "y", "z"}},
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(6))

		var pairs [][2]any
		for i, r := range records {
			Expect(r.Index).To(Equal(i))
			a, _ := r.Get("a")
			b, _ := r.Get("b")
			pairs = append(pairs, [2]any{a, b})
		}
		Expect(pairs).To(Equal([][2]any{
			{1, "x"}, {1, "y"}, {1, "z"},
			{2, "x"}, {2, "y"}, {2, "z"},
		}))
	})

	It("expands the swell sweep into sixteen records", func() {
		records, err := wedge.Expand(swellSweep())
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(16))

		n, err := wedge.Count(swellSweep())
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(16))

		first, last := records[0], records[15]
		h, _ := first.Get("typicalheight")
		Expect(h).To(Equal(0.1))
		h, _ = last.Get("typicalheight")
		Expect(h).To(Equal(0.9))

		s0, _ := records[0].Get("shortest")
		s1, _ := records[1].Get("shortest")
		Expect(s0).To(Equal(0.25))
		Expect(s1).To(Equal(4.0))
		Expect(first.Name("swell_wedge_parms")).To(Equal("swell_wedge_parms_0"))
	})

	It("rejects empty candidate lists", func() {
		params := swellSweep()
		params[3].Values = nil
		records, err := wedge.Expand(params)
		Expect(err).To(MatchError(wedge.ErrEmptyCandidates))
		Expect(records).To(BeEmpty())
	})

	It("rejects an empty sweep and duplicate names", func() {
		_, err := wedge.Expand(nil)
		Expect(err).To(MatchError(wedge.ErrNoParameters))

		_, err = wedge.Expand([]wedge.Param{{Name: "a", Values: []any{1}}, {Name: "a", Values: []any{2}}})
		Expect(err).To(MatchError(wedge.ErrDuplicateParam))
	})
})

var _ = Describe("Record.Document", func() {
	It("overrides one component without touching the base", func() {
		base := config.DefaultConfig()
		records, err := wedge.Expand([]wedge.Param{{Name: "depth", Values: []any{25.0}}})
		Expect(err).NotTo(HaveOccurred())

		doc, err := records[0].Document(base, "swell_waves")
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Components["swell_waves"].Params["depth"].Raw()).To(Equal(25.0))
		Expect(base.Components["swell_waves"].Params["depth"].Raw()).To(Equal(10.0))

		_, err = records[0].Document(base, "ghost_waves")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Prepare", func() {
	var (
		out    string
		layout wedge.Layout
	)

	BeforeEach(func() {
		out = GinkgoT().TempDir()
		layout = wedge.NewLayout(out, "swell_wedge", time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC))
	})

	It("names the wedge directory with a timestamp", func() {
		Expect(layout.Root).To(Equal(filepath.Join(out, "swell_wedge-2026-03-04-05-06-07")))
	})

	It("writes one run document and one script per record", func() {
		tmpl := wedge.JobTemplate{
			Frames:   "1-120",
			Queue:    "brie",
			Geometry: "/assets/hand02_tri",
			Env:      map[string]string{"LD_LIBRARY_PATH": "/opt/lib"},
		}
		jobs, err := wedge.Prepare(layout, "swell_wedge_parms", "swell_waves", config.DefaultConfig(), swellSweep(), tmpl)
		Expect(err).NotTo(HaveOccurred())
		Expect(jobs).To(HaveLen(16))

		for _, dir := range []string{"parms", "script", "products/sim", "products/oceanmesh", "products/images", "products/ewave_source"} {
			Expect(filepath.Join(layout.Root, dir)).To(BeADirectory())
		}

		job := jobs[5]
		Expect(job.Index).To(Equal(5))
		Expect(job.Name).To(Equal("swell_wedge_parms_5"))
		Expect(job.ConfigPath).To(Equal(filepath.Join(layout.Root, "parms", "swell_wedge_parms_5.yaml")))
		Expect(job.Script).To(Equal(filepath.Join(layout.Root, "script", "submit_swell_wedge_parms_5.sh")))
		Expect(job.Args).To(ContainElements("--prod", "swell_wedge_parms_5", "--thing", "/assets/hand02_tri"))

		doc, err := config.Load(job.ConfigPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Components["swell_waves"].Params["longest"].Raw()).To(BeNumerically("==", 10))
		Expect(doc.Components["swell_waves"].Params["cuspscale"].Raw()).To(BeNumerically("==", 4.5))

		script, err := os.ReadFile(job.Script)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(script)).To(HavePrefix("#!/bin/bash\nexport LD_LIBRARY_PATH=/opt/lib\n"))
		Expect(string(script)).To(ContainSubstring("--config "))
		Expect(string(script)).To(ContainSubstring("swell_wedge_parms_5.yaml"))

		info, err := os.Stat(job.Script)
		Expect(err).NotTo(HaveOccurred())
		Expect(info.Mode().Perm() & 0100).NotTo(BeZero())
	})

	It("fails before writing anything for an unknown component", func() {
		_, err := wedge.Prepare(layout, "w", "ghost_waves", config.DefaultConfig(), swellSweep(), wedge.JobTemplate{Frames: "1"})
		Expect(err).To(HaveOccurred())
		Expect(layout.Root).NotTo(BeADirectory())
	})

	It("builds one job per frame for exporters", func() {
		jobs, err := wedge.FrameJobs(layout, frange.MustParse("1-3"), wedge.FrameTemplate{
			Name:    "wetmap",
			Command: []string{"mayabatch", "-frame", "{frame}", "-out", "wet.{frame4}.exr"},
			Queue:   "brie",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(jobs).To(HaveLen(3))
		Expect(jobs[2].Name).To(Equal("wetmap_0003"))
		Expect(jobs[2].Args).To(Equal([]string{"mayabatch", "-frame", "3", "-out", "wet.0003.exr"}))
		Expect(jobs[2].Script).To(BeAnExistingFile())
	})
})

var _ = Describe("Queues", func() {
	jobs := func(n int) []wedge.JobDescriptor {
		out := make([]wedge.JobDescriptor, n)
		for i := range out {
			out[i] = wedge.JobDescriptor{Index: i, Name: wedge.Record{Index: i}.Name("job"), Script: "/tmp/job.sh", Queue: "farm"}
		}
		return out
	}

	It("submits in generation order", func() {
		q := &wedge.DryRunQueue{}
		handles, err := wedge.SubmitAll(context.Background(), q, "brie", jobs(4))
		Expect(err).NotTo(HaveOccurred())
		Expect(handles).To(HaveLen(4))
		for i, h := range q.Submitted {
			Expect(h.Job.Index).To(Equal(i))
			Expect(h.Queue).To(Equal("brie"))
		}
	})

	It("falls back to each job's queue", func() {
		q := &wedge.DryRunQueue{}
		_, err := wedge.SubmitAll(context.Background(), q, "", jobs(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(q.Submitted[0].Queue).To(Equal("farm"))
	})

	It("runs an external submit command", func() {
		q := &wedge.CommandQueue{Command: "echo", Args: []string{"id-{queue}"}}
		h, err := q.Submit(context.Background(), "brie", jobs(1)[0])
		Expect(err).NotTo(HaveOccurred())
		Expect(h.ID).To(Equal("id-brie"))

		q = &wedge.CommandQueue{Command: "false"}
		handles, err := wedge.SubmitAll(context.Background(), q, "brie", jobs(3))
		Expect(err).To(HaveOccurred())
		Expect(handles).To(BeEmpty())
	})

	It("defaults to the farm submit command", func() {
		q := wedge.NewCommandQueue()
		Expect(q.Command).To(Equal("cqsubmittask"))
		Expect(q.Args).To(Equal([]string{"{queue}", "{script}"}))
	})

	It("bounds local concurrency and joins errors", func() {
		var running, peak int32
		q := wedge.NewLocalQueue(2, func(ctx context.Context, job wedge.JobDescriptor) error {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			if job.Index == 4 {
				return errors.New("solver diverged")
			}
			return nil
		})

		_, err := wedge.SubmitAll(context.Background(), q, "local", jobs(6))
		Expect(err).NotTo(HaveOccurred())

		err = q.Wait()
		Expect(err).To(MatchError(ContainSubstring("solver diverged")))
		Expect(q.Completed()).To(Equal(6))
		Expect(atomic.LoadInt32(&peak)).To(BeNumerically("<=", 2))
	})
})

var _ = Describe("LoadPlan", func() {
	It("reads a sweep description", func() {
		path := filepath.Join(GinkgoT().TempDir(), "plan.yaml")
		Expect(os.WriteFile(path, []byte(`
name: swell_wedge
component: swell_waves
base: shape
frames: 1-120
queue: brie
params:
  - {name: typicalheight, values: [0.1, 0.9]}
  - {name: depth, values: [10]}
`), 0644)).To(Succeed())

		plan, err := wedge.LoadPlan(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(plan.Params).To(HaveLen(2))
		Expect(plan.Params[1].Values).To(Equal([]any{10}))
		Expect(plan.Template().Frames).To(Equal("1-120"))

		n, err := wedge.Count(plan.Params)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("ships a sixteen record swell sweep", func() {
		plan := wedge.SwellPlan()
		Expect(plan.Component).To(Equal("swell_waves"))
		Expect(wedge.Count(plan.Params)).To(Equal(16))
	})

	It("requires a component", func() {
		path := filepath.Join(GinkgoT().TempDir(), "plan.yaml")
		Expect(os.WriteFile(path, []byte("name: x\n"), 0644)).To(Succeed())
		_, err := wedge.LoadPlan(path)
		Expect(err).To(MatchError(wave.ErrConfig))
	})
})

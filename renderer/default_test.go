package renderer

import (
	"testing"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/scene/procedural"
	"github.com/achilleasa/bihtrace/tracer"
)

func TestOptionsValidate(t *testing.T) {
	type spec struct {
		mutate func(*Options)
		expErr bool
	}
	specs := []spec{
		{func(_ *Options) {}, false},
		{func(o *Options) { o.FrameW = 0 }, true},
		{func(o *Options) { o.Supersample = 0 }, true},
		{func(o *Options) { o.Supersample = maxSupersample + 1 }, true},
		{func(o *Options) { o.Tracers = 0 }, true},
		{func(o *Options) { o.Mode = tracer.Mode(9) }, true},
		{func(o *Options) { o.ShadowSamples = 0 }, true},
		{func(o *Options) { o.ShadowSamples = 17 }, true},
	}

	for index, s := range specs {
		opts := DefaultOptions()
		s.mutate(&opts)
		if err := opts.Validate(); (err != nil) != s.expErr {
			t.Fatalf("[spec %d] expected error: %t; got %v", index, s.expErr, err)
		}
	}
}

func TestRenderMatchesSingleEngine(t *testing.T) {
	type spec struct {
		tracers   int
		mode      tracer.Mode
		scheduler tracer.BlockScheduler
	}
	specs := []spec{
		{1, tracer.ScalarMode, tracer.NaiveScheduler()},
		{3, tracer.PacketMode, tracer.NaiveScheduler()},
		{4, tracer.PacketMode, tracer.PerfectScheduler()},
	}

	// Reference frame traced by a single engine
	refScene, err := procedural.Room()
	if err != nil {
		t.Fatal(err)
	}
	refScene.Camera.SetupProjection(20, 20)
	engine, err := tracer.NewEngine(refScene, accel.BuildBIH(refScene.Store, accel.DefaultBuildOptions()), 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	engine.TraceRows(0, 20, tracer.ScalarMode)

	for index, s := range specs {
		sc, err := procedural.Room()
		if err != nil {
			t.Fatal(err)
		}

		opts := Options{
			FrameW:        20,
			FrameH:        20,
			Supersample:   1,
			Tracers:       s.tracers,
			Mode:          s.mode,
			ShadowSamples: 1,
		}
		r, err := NewDefault(sc, accel.BuildBIH(sc.Store, accel.DefaultBuildOptions()), s.scheduler, opts)
		if err != nil {
			t.Fatalf("[spec %d] unexpected error: %v", index, err)
		}

		// Render twice so the perfect scheduler uses feedback from the
		// first frame.
		for frame := 0; frame < 2; frame++ {
			if err := r.Render(); err != nil {
				r.Close()
				t.Fatalf("[spec %d] render failed: %v", index, err)
			}
		}

		stats := r.Stats()
		var rows uint32
		for _, stat := range stats.Tracers {
			rows += stat.BlockH
		}
		if rows != 20 {
			t.Fatalf("[spec %d] expected blocks to cover 20 rows; got %d", index, rows)
		}
		if stats.Counters.PrimaryRays != 400 {
			t.Fatalf("[spec %d] expected 400 primary rays; got %d", index, stats.Counters.PrimaryRays)
		}

		for idx, c := range sc.Camera.Frame() {
			if exp := refScene.Camera.Frame()[idx]; c != exp {
				t.Fatalf("[spec %d] expected pixel %d to be %v; got %v", index, idx, exp, c)
			}
		}

		img := r.Frame()
		if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 20 {
			t.Fatalf("[spec %d] expected a 20x20 image; got %v", index, b)
		}
		r.Close()
	}
}

func TestSupersampledFrame(t *testing.T) {
	sc, err := procedural.Room()
	if err != nil {
		t.Fatal(err)
	}

	opts := DefaultOptions()
	opts.FrameW, opts.FrameH = 8, 6
	opts.Supersample = 2
	opts.Tracers = 2
	opts.ShadowSamples = 1

	r, err := NewDefault(sc, accel.NewLinear(sc.Store), tracer.NaiveScheduler(), opts)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	if w, h := sc.Camera.FrameSize(); w != 16 || h != 12 {
		t.Fatalf("expected camera frame buffer to be 16x12; got %dx%d", w, h)
	}
	if err := r.Render(); err != nil {
		t.Fatal(err)
	}

	img := r.Frame()
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Fatalf("expected an 8x6 image; got %v", b)
	}
	for idx := 3; idx < len(img.Pix); idx += 4 {
		if img.Pix[idx] != 255 {
			t.Fatalf("expected opaque pixels; got alpha %d at offset %d", img.Pix[idx], idx)
		}
	}
}

func TestNewDefaultErrors(t *testing.T) {
	sc, err := procedural.Room()
	if err != nil {
		t.Fatal(err)
	}
	idx := accel.NewLinear(sc.Store)

	if _, err := NewDefault(nil, idx, tracer.NaiveScheduler(), DefaultOptions()); err != ErrSceneNotDefined {
		t.Fatalf("expected error %v; got %v", ErrSceneNotDefined, err)
	}
	if _, err := NewDefault(sc, nil, tracer.NaiveScheduler(), DefaultOptions()); err != ErrNoIndex {
		t.Fatalf("expected error %v; got %v", ErrNoIndex, err)
	}

	other, err := procedural.Soup(10, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewDefault(sc, accel.NewLinear(other.Store), tracer.NaiveScheduler(), DefaultOptions()); err != tracer.ErrIndexMismatch {
		t.Fatalf("expected error %v; got %v", tracer.ErrIndexMismatch, err)
	}

	opts := DefaultOptions()
	opts.Tracers = 0
	if _, err := NewDefault(sc, idx, tracer.NaiveScheduler(), opts); err != ErrNoTracers {
		t.Fatalf("expected error %v; got %v", ErrNoTracers, err)
	}
}

package renderer

import (
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/log"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/tracer"
	"golang.org/x/image/draw"
)

// A renderer that splits each frame into blocks and renders them in
// parallel using a pool of cpu tracers.
type defaultRenderer struct {
	sync.Mutex

	logger log.Logger

	scene     *scene.Scene
	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer
	options   Options

	// Block height assignments for the last frame.
	blockAssignments []uint32

	stats FrameStats
}

// Create a new renderer for a scene and an index built over its store.
func NewDefault(sc *scene.Scene, idx accel.Index, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}
	if idx == nil {
		return nil, ErrNoIndex
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		scene:     sc,
		scheduler: scheduler,
		options:   opts,
	}

	renderW, renderH := opts.renderSize()
	sc.Camera.SetupProjection(renderW, renderH)

	// Tracers clone a single prototype so they share the scene and index
	// but not the engine scratch buffers.
	proto, err := tracer.NewEngine(sc, idx, opts.ShadowSamples, opts.Seed)
	if err != nil {
		return nil, err
	}

	for i := 0; i < opts.Tracers; i++ {
		tr := tracer.NewCPUTracer(fmt.Sprintf("cpu-%d", i), opts.ShadowSamples, opts.Seed+int64(i))
		if err := tr.Init(renderW, renderH); err != nil {
			r.Close()
			return nil, err
		}
		tr.Update(tracer.UpdateEngine, proto)
		r.tracers = append(r.tracers, tr)
	}

	r.logger.Infof("attached %d tracers; rendering at %dx%d using %s mode", len(r.tracers), renderW, renderH, opts.Mode)
	return r, nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	r.Lock()
	defer r.Unlock()

	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Render a frame by distributing blocks to the attached tracers and waiting
// for all of them to complete.
func (r *defaultRenderer) Render() error {
	r.Lock()
	defer r.Unlock()

	if len(r.tracers) == 0 {
		return ErrNoTracers
	}

	start := time.Now()
	_, renderH := r.options.renderSize()
	r.blockAssignments = r.scheduler.Schedule(r.tracers, renderH)

	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))

	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}
		tr.Enqueue(tracer.BlockRequest{
			BlockY:   blockY,
			BlockH:   blockH,
			Mode:     r.options.Mode,
			DoneChan: doneChan,
			ErrChan:  errChan,
		})
		blockY += blockH
		pending++
	}

	var err error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case blockErr := <-errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	if err != nil {
		return err
	}

	r.updateStats(time.Since(start))
	r.logger.Debugf("rendered frame in %s", r.stats.RenderTime)
	return nil
}

func (r *defaultRenderer) updateStats(renderTime time.Duration) {
	_, renderH := r.options.renderSize()

	r.stats = FrameStats{
		Tracers:    make([]TracerStat, len(r.tracers)),
		RenderTime: renderTime,
	}
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		trStats := tr.Stats()
		stat := TracerStat{
			Id:           tr.Id(),
			BlockH:       blockH,
			FramePercent: 100.0 * float32(blockH) / float32(renderH),
		}
		// Idle tracers keep the stats of the last block they rendered
		if blockH != 0 {
			stat.RenderTime = trStats.RenderTime
			stat.UpdateTime = trStats.UpdateTime
			stat.Counters = trStats.Counters
		}
		r.stats.Tracers[idx] = stat
		r.stats.Counters.Add(stat.Counters)
	}
}

// Get render statistics for the last frame.
func (r *defaultRenderer) Stats() FrameStats {
	r.Lock()
	defer r.Unlock()
	return r.stats
}

// Convert the camera frame buffer into an image. Supersampled frames are
// scaled down to the requested frame dims.
func (r *defaultRenderer) Frame() *image.RGBA {
	r.Lock()
	defer r.Unlock()

	renderW, renderH := r.options.renderSize()
	src := image.NewRGBA(image.Rect(0, 0, int(renderW), int(renderH)))
	for y := uint32(0); y < renderH; y++ {
		for x := uint32(0); x < renderW; x++ {
			rgb := r.scene.Camera.Pixel(x, y).RGB8()
			src.SetRGBA(int(x), int(y), color.RGBA{rgb[0], rgb[1], rgb[2], 255})
		}
	}

	if r.options.Supersample == 1 {
		return src
	}

	dst := image.NewRGBA(image.Rect(0, 0, int(r.options.FrameW), int(r.options.FrameH)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

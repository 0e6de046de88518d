package tracer

import (
	"fmt"
	"sync"
	"time"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/log"
	"github.com/achilleasa/bihtrace/scene"
)

// The number of block requests that can be queued while the worker is busy.
const blockQueueSize = 4

type cpuTracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// Guards the update buffer.
	updateMu sync.Mutex

	// The tracer id.
	id string

	// Tracer options.
	samples int
	seed    int64

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[UpdateType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered frame.
	stats *Stats

	// The uploaded scene data and the engine tracing it.
	sceneData *scene.Scene
	index     accel.Index
	camera    *scene.Camera
	engine    *Engine
}

// Create a new tracer that renders blocks on a dedicated goroutine. Each
// tracer owns its engine scratch buffers; seed initializes the random
// source of the engine it builds or clones.
func NewCPUTracer(id string, samples int, seed int64) Tracer {
	return &cpuTracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		samples:      samples,
		seed:         seed,
		updateBuffer: make(map[UpdateType]interface{}, 0),
		stats:        &Stats{},
	}
}

// Get tracer id.
func (tr *cpuTracer) Id() string {
	return tr.id
}

// Get tracer flags.
func (tr *cpuTracer) Flags() Flag {
	return Local
}

// All cpu tracers run at the same speed.
func (tr *cpuTracer) Speed() uint32 {
	return 1
}

// Initialize tracer
func (tr *cpuTracer) Init(frameW, frameH uint32) error {
	tr.Lock()
	defer tr.Unlock()

	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("tracer: invalid frame dimensions %dx%d", frameW, frameH)
	}

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *cpuTracer) Close() {
	tr.Lock()
	defer tr.Unlock()

	tr.cleanup()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *cpuTracer) cleanup() {
	// If the worker is running shut it down
	if tr.closeChan != nil {
		tr.closeChan <- struct{}{}

		// wait for worker to ack close and shutdown channel
		<-tr.closeChan
		close(tr.closeChan)
		tr.closeChan = nil
		tr.blockReqChan = nil
		tr.wg.Wait()
	}

	tr.sceneData = nil
	tr.index = nil
	tr.camera = nil
	tr.engine = nil
}

// Enqueue block request.
func (tr *cpuTracer) Enqueue(blockReq BlockRequest) {
	if tr.blockReqChan == nil {
		blockReq.ErrChan <- ErrNotStarted
		return
	}

	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		blockReq.ErrChan <- fmt.Errorf("tracer %s: block request queue is full", tr.id)
	}
}

// Append a change to the tracer's update buffer.
func (tr *cpuTracer) Update(updateType UpdateType, data interface{}) {
	tr.updateMu.Lock()
	defer tr.updateMu.Unlock()

	tr.updateBuffer[updateType] = data
}

// Retrieve last frame statistics.
func (tr *cpuTracer) Stats() *Stats {
	return tr.stats
}

// Commit queued changes.
func (tr *cpuTracer) commitUpdates() error {
	tr.updateMu.Lock()
	updates := tr.updateBuffer
	tr.updateBuffer = make(map[UpdateType]interface{}, 0)
	tr.updateMu.Unlock()

	// Engine and scene changes replace the engine so they are applied first
	if data, ok := updates[UpdateEngine]; ok {
		proto, ok := data.(*Engine)
		if !ok || proto == nil {
			return ErrNoEngine
		}
		tr.engine = proto.Clone(tr.seed)
		tr.index = proto.index
		tr.camera = proto.camera
	}
	if data, ok := updates[UpdateScene]; ok {
		sc, ok := data.(*scene.Scene)
		if !ok || sc == nil {
			return ErrNoSceneData
		}
		tr.sceneData = sc
		tr.engine = nil
	}

	for updateType, data := range updates {
		switch updateType {
		case UpdateScene, UpdateEngine:
		case UpdateIndex:
			idx, ok := data.(accel.Index)
			if !ok || idx == nil {
				return ErrNoIndex
			}
			if tr.engine != nil {
				if err := tr.engine.SetIndex(idx); err != nil {
					return err
				}
			}
			tr.index = idx
		case UpdateCamera:
			camera, ok := data.(*scene.Camera)
			if !ok || camera == nil {
				return scene.ErrNoCamera
			}
			tr.camera = camera
			if tr.engine != nil {
				tr.engine.SetCamera(camera)
			}
		default:
			return fmt.Errorf("tracer: unsupported update type %d", updateType)
		}
	}

	if tr.engine == nil && tr.sceneData != nil && tr.index != nil {
		engine, err := NewEngine(tr.sceneData, tr.index, tr.samples, tr.seed)
		if err != nil {
			return err
		}
		if tr.camera != nil {
			engine.SetCamera(tr.camera)
		}
		tr.engine = engine
	}

	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *cpuTracer) startWorker() {
	tr.blockReqChan = make(chan BlockRequest, blockQueueSize)
	tr.closeChan = make(chan struct{}, 0)

	readyChan := make(chan struct{}, 0)
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes
				tr.stats.UpdateTime = 0
				if tr.hasUpdates() {
					err = tr.commitUpdates()
					if err != nil {
						blockReq.ErrChan <- err
						continue
					}
					tr.stats.UpdateTime = time.Since(startTime)
				}

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.RenderTime = time.Since(startTime)
				tr.stats.Counters = tr.engine.Counters()

				blockReq.DoneChan <- blockReq.BlockH
			case <-tr.closeChan:
				// Ack close
				tr.closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

func (tr *cpuTracer) hasUpdates() bool {
	tr.updateMu.Lock()
	defer tr.updateMu.Unlock()
	return len(tr.updateBuffer) != 0
}

// Render block.
func (tr *cpuTracer) renderBlock(blockReq *BlockRequest) error {
	if tr.engine == nil {
		if tr.sceneData == nil {
			return ErrNoSceneData
		}
		return ErrNoIndex
	}

	_, frameH := tr.engine.Camera().FrameSize()
	if blockReq.BlockY+blockReq.BlockH > frameH {
		return fmt.Errorf("tracer: block [%d, %d) exceeds frame height %d", blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, frameH)
	}

	tr.engine.ResetCounters()
	tr.engine.TraceRows(blockReq.BlockY, blockReq.BlockY+blockReq.BlockH, blockReq.Mode)
	return nil
}

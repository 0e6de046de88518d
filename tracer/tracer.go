package tracer

import "time"

type UpdateType uint8

const (
	// Replace the scene; data is a *scene.Scene.
	UpdateScene UpdateType = iota

	// Replace the spatial index; data is an accel.Index.
	UpdateIndex

	// Replace the camera; data is a *scene.Camera.
	UpdateCamera

	// Replace the engine with a clone of a prototype; data is an *Engine.
	// The clone shares the prototype's scene and index.
	UpdateEngine
)

type Flag uint8

const (
	// The tracer runs on the local machine.
	Local Flag = 1 << iota
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// How primary rays are traced.
	Mode Mode

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the last block.
	RenderTime time.Duration

	// The time for applying updates before rendering the last block.
	UpdateTime time.Duration

	// Ray counters for the last block.
	Counters Counters
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get tracer flags.
	Flags() Flag

	// Get the tracer's relative computation speed.
	Speed() uint32

	// Initialize tracer for the given frame dimensions.
	Init(frameW, frameH uint32) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Updates are applied
	// before the next block is rendered.
	Update(UpdateType, interface{})

	// Retrieve last frame statistics.
	Stats() *Stats
}

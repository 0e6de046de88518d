package renderer

import (
	"time"

	"github.com/achilleasa/bihtrace/tracer"
)

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block
	RenderTime time.Duration

	// Time spent applying scene, index and camera updates.
	UpdateTime time.Duration

	// Rays traced for the assigned block.
	Counters tracer.Counters
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Total render time for entire frame.
	RenderTime time.Duration

	// Rays traced by all tracers.
	Counters tracer.Counters
}

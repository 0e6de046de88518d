package renderer

import (
	"fmt"

	"github.com/achilleasa/bihtrace/geom"
	"github.com/achilleasa/bihtrace/tracer"
)

// The largest supported supersampling factor.
const maxSupersample = 4

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// The frame is rendered at Supersample times its dims and scaled down
	// when an image is requested.
	Supersample uint32

	// Number of cpu tracers.
	Tracers int

	// How primary rays are traced.
	Mode tracer.Mode

	// Soft shadow samples per light.
	ShadowSamples int

	// Seed for the tracer random sources. Each tracer uses Seed plus its
	// index.
	Seed int64
}

// Get the default render options.
func DefaultOptions() Options {
	return Options{
		FrameW:        512,
		FrameH:        512,
		Supersample:   1,
		Tracers:       1,
		Mode:          tracer.PacketMode,
		ShadowSamples: 4,
	}
}

// Check the options for invalid values.
func (opts Options) Validate() error {
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return fmt.Errorf("renderer: invalid frame dimensions %dx%d", opts.FrameW, opts.FrameH)
	}
	if opts.Supersample < 1 || opts.Supersample > maxSupersample {
		return fmt.Errorf("renderer: supersample factor must be in [1, %d]; got %d", maxSupersample, opts.Supersample)
	}
	if opts.Tracers < 1 {
		return ErrNoTracers
	}
	if opts.Mode != tracer.ScalarMode && opts.Mode != tracer.PacketMode {
		return fmt.Errorf("renderer: unsupported trace mode %s", opts.Mode)
	}
	if opts.ShadowSamples < 1 || opts.ShadowSamples > geom.SoftShadowSamples {
		return fmt.Errorf("renderer: shadow samples must be in [1, %d]; got %d", geom.SoftShadowSamples, opts.ShadowSamples)
	}
	return nil
}

// The dims of the frame buffer the tracers render into.
func (opts Options) renderSize() (uint32, uint32) {
	return opts.FrameW * opts.Supersample, opts.FrameH * opts.Supersample
}

package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/achilleasa/bihtrace/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a scene with a single engine in every trace mode and compare the
// resulting frames and timings.
func Bench(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	idx, err := buildIndex(ctx, sc)
	if err != nil {
		return err
	}

	frameW, frameH := uint32(ctx.Int("width")), uint32(ctx.Int("height"))
	if frameW == 0 || frameH == 0 {
		return fmt.Errorf("invalid frame dimensions %dx%d", frameW, frameH)
	}
	sc.Camera.SetupProjection(frameW, frameH)

	engine, err := tracer.NewEngine(sc, idx, ctx.Int("shadow-samples"), ctx.Int64("seed"))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mode", "Primary", "Shadow", "Secondary", "Packets", "Render time", "Mrays/s"})

	var reference []uint32
	mismatches := 0
	for _, mode := range []tracer.Mode{tracer.ScalarMode, tracer.PacketMode} {
		engine.ResetCounters()
		start := time.Now()
		engine.TraceRows(0, frameH, mode)
		elapsed := time.Since(start)

		frame := sc.Camera.Frame()
		packed := make([]uint32, len(frame))
		for i, c := range frame {
			rgb := c.RGB8()
			packed[i] = uint32(rgb[0])<<16 | uint32(rgb[1])<<8 | uint32(rgb[2])
		}
		if reference == nil {
			reference = packed
		} else {
			for i := range packed {
				if packed[i] != reference[i] {
					mismatches++
				}
			}
		}

		counters := engine.Counters()
		total := counters.PrimaryRays + counters.ShadowRays + counters.SecondaryRays
		table.Append([]string{
			mode.String(),
			fmt.Sprintf("%d", counters.PrimaryRays),
			fmt.Sprintf("%d", counters.ShadowRays),
			fmt.Sprintf("%d", counters.SecondaryRays),
			fmt.Sprintf("%d", counters.Packets),
			elapsed.String(),
			fmt.Sprintf("%2.2f", float64(total)/elapsed.Seconds()/1e6),
		})
	}

	table.Render()
	logger.Noticef("benchmark results\n%s", buf.String())

	if mismatches != 0 {
		// Soft shadows and blurred reflections draw different random
		// samples in each mode.
		logger.Warningf("%d of %d pixels differ between scalar and packet mode", mismatches, len(reference))
	}
	return nil
}

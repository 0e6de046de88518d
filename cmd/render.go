package cmd

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/achilleasa/bihtrace/renderer"
	"github.com/achilleasa/bihtrace/tracer"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	mode, err := tracer.ParseMode(ctx.String("mode"))
	if err != nil {
		return err
	}

	opts := renderer.Options{
		FrameW:        uint32(ctx.Int("width")),
		FrameH:        uint32(ctx.Int("height")),
		Supersample:   uint32(ctx.Int("supersample")),
		Tracers:       ctx.Int("tracers"),
		Mode:          mode,
		ShadowSamples: ctx.Int("shadow-samples"),
		Seed:          ctx.Int64("seed"),
	}
	if err = opts.Validate(); err != nil {
		return err
	}

	encode, err := imageEncoder(ctx.String("out"))
	if err != nil {
		return err
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	idx, err := buildIndex(ctx, sc)
	if err != nil {
		return err
	}

	var scheduler tracer.BlockScheduler
	switch ctx.String("scheduler") {
	case "naive":
		scheduler = tracer.NaiveScheduler()
	case "perfect":
		scheduler = tracer.PerfectScheduler()
	default:
		return fmt.Errorf("unknown block scheduler %q", ctx.String("scheduler"))
	}

	r, err := renderer.NewDefault(sc, idx, scheduler, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = r.Render(); err != nil {
		return err
	}

	displayFrameStats(r.Stats())

	start := time.Now()
	f, err := os.Create(ctx.String("out"))
	if err != nil {
		return err
	}
	defer f.Close()

	if err = encode(f, r.Frame()); err != nil {
		return err
	}
	logger.Noticef("wrote frame to %s in %s", ctx.String("out"), time.Since(start))

	return nil
}

// Select an image encoder by file extension.
func imageEncoder(filename string) (func(io.Writer, image.Image) error, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return png.Encode, nil
	case ".bmp":
		return bmp.Encode, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img image.Image) error {
			return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
		}, nil
	default:
		return nil, fmt.Errorf("unsupported image format %q", filepath.Ext(filename))
	}
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Primary", "Shadow", "Secondary", "Packets", "Render time"})
	for _, stat := range stats.Tracers {
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.Counters.PrimaryRays),
			fmt.Sprintf("%d", stat.Counters.ShadowRays),
			fmt.Sprintf("%d", stat.Counters.SecondaryRays),
			fmt.Sprintf("%d", stat.Counters.Packets),
			stat.RenderTime.String(),
		})
	}
	table.SetFooter([]string{
		"", "", "TOTAL",
		fmt.Sprintf("%d", stats.Counters.PrimaryRays),
		fmt.Sprintf("%d", stats.Counters.ShadowRays),
		fmt.Sprintf("%d", stats.Counters.SecondaryRays),
		fmt.Sprintf("%d", stats.Counters.Packets),
		stats.RenderTime.String(),
	})

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

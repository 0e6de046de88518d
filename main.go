package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.Int64Flag{
			Name:  "seed",
			Value: 1,
			Usage: "seed for procedural scenes and tracer random sources",
		},
		cli.StringFlag{
			Name:  "index",
			Value: "bih",
			Usage: "spatial index type (bih or linear)",
		},
		cli.IntFlag{
			Name:  "leaf-size",
			Value: accel.DefaultLeafSize,
			Usage: "max primitives per BIH leaf",
		},
		cli.IntFlag{
			Name:  "max-depth",
			Value: accel.DefaultMaxDepth,
			Usage: "max BIH depth",
		},
		cli.IntFlag{
			Name:  "bins",
			Value: accel.DefaultSplitBins,
			Usage: "number of SAH bins per axis",
		},
	}

	frameFlags := []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 512,
			Usage: "frame width",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 512,
			Usage: "frame height",
		},
		cli.IntFlag{
			Name:  "shadow-samples",
			Value: 4,
			Usage: "soft shadow samples per light",
		},
	}

	app := cli.NewApp()
	app.Name = "bihtrace"
	app.Usage = "render scenes using a bounding interval hierarchy ray tracer"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "set log level (debug, info, notice, warning or error)",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-scenes",
			Usage:  "list the built-in procedural scenes",
			Flags:  sceneFlags[:1],
			Action: cmd.ListScenes,
		},
		{
			Name:  "index",
			Usage: "build a BIH for a scene and display its statistics",
			Description: `
Build a bounding interval hierarchy over the primitives of a built-in scene
and report its shape, memory footprint and build time.`,
			ArgsUsage: "scene",
			Flags:     sceneFlags,
			Action:    cmd.IndexScene,
		},
		{
			Name:  "render",
			Usage: "render a single frame",
			Description: `
Render a single frame of a built-in scene. Frame rows are split into blocks
that are rendered in parallel by a pool of tracers. The output format is
selected by the file extension (png, bmp or tiff).`,
			ArgsUsage: "scene",
			Flags: append(append(append([]cli.Flag{}, sceneFlags...), frameFlags...),
				cli.IntFlag{
					Name:  "tracers, t",
					Value: 4,
					Usage: "number of parallel tracers",
				},
				cli.StringFlag{
					Name:  "mode, m",
					Value: "packet",
					Usage: "primary ray trace mode (scalar or packet)",
				},
				cli.StringFlag{
					Name:  "scheduler",
					Value: "perfect",
					Usage: "block scheduler (naive or perfect)",
				},
				cli.IntFlag{
					Name:  "supersample",
					Value: 1,
					Usage: "render at this multiple of the frame size and scale down",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			),
			Action: cmd.RenderFrame,
		},
		{
			Name:  "bench",
			Usage: "compare scalar and packet tracing",
			Description: `
Render a built-in scene with a single tracer in scalar and packet mode and
report ray counts, timings and any pixels that differ between the modes.`,
			ArgsUsage: "scene",
			Flags:     append(append([]cli.Flag{}, sceneFlags...), frameFlags...),
			Action:    cmd.Bench,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

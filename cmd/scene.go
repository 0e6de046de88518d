package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/bihtrace/accel"
	"github.com/achilleasa/bihtrace/scene"
	"github.com/achilleasa/bihtrace/scene/procedural"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Load the scene named by the first command argument.
func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	name := "room"
	if ctx.NArg() > 0 {
		name = ctx.Args().First()
	}

	sc, err := procedural.ByName(name, ctx.Int64("seed"))
	if err != nil {
		return nil, err
	}

	logger.Noticef("loaded scene %q with %d primitives and %d lights", name, sc.Store.Len(), len(sc.Lights))
	return sc, nil
}

func buildOptions(ctx *cli.Context) accel.BuildOptions {
	return accel.BuildOptions{
		MaxLeafSize: ctx.Int("leaf-size"),
		MaxDepth:    ctx.Int("max-depth"),
		SplitBins:   ctx.Int("bins"),
	}
}

// Build the index selected by the index flag.
func buildIndex(ctx *cli.Context, sc *scene.Scene) (accel.Index, error) {
	switch kind := ctx.String("index"); kind {
	case "bih":
		opts := buildOptions(ctx)
		if err := opts.Validate(); err != nil {
			return nil, err
		}
		bih := accel.BuildBIH(sc.Store, opts)
		logger.Infof("built BIH in %s", bih.Stats().BuildTime)
		return bih, nil
	case "linear":
		return accel.NewLinear(sc.Store), nil
	default:
		return nil, fmt.Errorf("unknown index type %q", kind)
	}
}

// Build a BIH for a scene and display its statistics.
func IndexScene(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	opts := buildOptions(ctx)
	if err = opts.Validate(); err != nil {
		return err
	}

	bih := accel.BuildBIH(sc.Store, opts)
	if err = sc.Store.Validate(); err != nil {
		return err
	}

	displayBuildStats(bih.Stats())
	return nil
}

func displayBuildStats(stats accel.BuildStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Statistic", "Value"})
	table.AppendBulk([][]string{
		{"Primitives", fmt.Sprintf("%d", stats.Primitives)},
		{"Generic nodes", fmt.Sprintf("%d", stats.GenericNodes)},
		{"Leaves", fmt.Sprintf("%d", stats.Leaves)},
		{"Empty leaves", fmt.Sprintf("%d", stats.EmptyLeaves)},
		{"Max leaf size", fmt.Sprintf("%d", stats.MaxLeafSize)},
		{"Avg leaf size", fmt.Sprintf("%2.2f", stats.AvgLeafSize)},
		{"Max depth", fmt.Sprintf("%d", stats.MaxDepth)},
		{"Blocks", fmt.Sprintf("%d", stats.Blocks)},
		{"Memory", fmt.Sprintf("%d KiB", stats.Blocks*64/1024)},
	})
	table.SetFooter([]string{"Build time", stats.BuildTime.String()})

	table.Render()
	logger.Noticef("index statistics\n%s", buf.String())
}

// List the built-in scenes.
func ListScenes(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Scene", "Primitives", "Lights"})
	for _, name := range procedural.Names() {
		sc, err := procedural.ByName(name, ctx.Int64("seed"))
		if err != nil {
			return err
		}
		table.Append([]string{name, fmt.Sprintf("%d", sc.Store.Len()), fmt.Sprintf("%d", len(sc.Lights))})
	}

	table.Render()
	logger.Noticef("available scenes\n%s", buf.String())
	return nil
}

// Command knn classifies points and draws decision boundaries from the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/go-sod/knn/internal/boundary"
	"github.com/go-sod/knn/internal/buildinfo"
	"github.com/go-sod/knn/internal/dataset"
	"github.com/go-sod/knn/internal/geom"
	"github.com/go-sod/knn/internal/logging"
	"github.com/go-sod/knn/internal/predictor"
	"github.com/go-sod/knn/internal/render"
	"github.com/go-sod/knn/internal/shutdown"
)

const usage = `usage: knn <command> [flags]

commands:
  classify  predict the label of one point
  boundary  print the decision boundary as text
  plot      render the decision boundary to an image
  version   print build information
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, done := shutdown.New()
	logger := logging.NewLoggerFromEnv()
	ctx = logging.WithLogger(ctx, logger)

	err := run(ctx, os.Args[1:], os.Stdout)
	done()
	_ = logger.Sync()
	if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
		_, _ = fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "classify":
		return runClassify(ctx, args[1:], out)
	case "boundary":
		return runBoundary(ctx, args[1:], out)
	case "plot":
		return runPlot(ctx, args[1:], out)
	case "version":
		_, err := fmt.Fprintln(out, buildinfo.Info)
		return err
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// common are the flags shared by every command.
type common struct {
	k        int
	metric   string
	p        float64
	clamp    bool
	data     string
	random   int
	seed     uint
	gridSize int
	workers  int
	bounds   boundary.Bounds
}

func (c *common) register(fs *flag.FlagSet) {
	fs.IntVar(&c.k, "k", 3, "number of neighbors")
	fs.StringVar(&c.metric, "metric", geom.MetricEuclidean.String(), "distance metric: euclidean, manhattan, minkowski or chebyshev")
	fs.Float64Var(&c.p, "p", geom.DefaultP, "minkowski exponent")
	fs.BoolVar(&c.clamp, "clamp", false, "clamp k into [1, points] and p into [1, 6] instead of rejecting them")
	fs.StringVar(&c.data, "data", "", "TOML dataset file, the built-in seed dataset when empty")
	fs.IntVar(&c.random, "random", 0, "use n random points instead of -data")
	fs.UintVar(&c.seed, "seed", 0, "seed for -random, time based when 0")
	fs.IntVar(&c.gridSize, "grid", boundary.DefaultGridSize, "grid cells per side")
	fs.IntVar(&c.workers, "workers", 0, "rows computed in parallel, one per CPU when 0")
	fs.Float64Var(&c.bounds.MinX, "min-x", boundary.DefaultBounds.MinX, "feature space lower x")
	fs.Float64Var(&c.bounds.MaxX, "max-x", boundary.DefaultBounds.MaxX, "feature space upper x")
	fs.Float64Var(&c.bounds.MinY, "min-y", boundary.DefaultBounds.MinY, "feature space lower y")
	fs.Float64Var(&c.bounds.MaxY, "max-y", boundary.DefaultBounds.MaxY, "feature space upper y")
}

func (c *common) dataset() (geom.Dataset, error) {
	switch {
	case c.random > 0 && c.data != "":
		return nil, fmt.Errorf("%w: -random and -data are mutually exclusive", errUsage)
	case c.random > 0:
		return dataset.Random(c.random, dataset.DefaultLabels, c.bounds, dataset.WithSeed(uint32(c.seed)))
	case c.data != "":
		return dataset.LoadFile(c.data)
	default:
		return dataset.Seed(), nil
	}
}

func (c *common) predictor() (*predictor.Predictor, error) {
	metric, err := geom.ParseMetric(c.metric)
	if err != nil {
		return nil, err
	}
	return predictor.New(
		predictor.WithK(c.k),
		predictor.WithMetric(metric),
		predictor.WithP(c.p),
		predictor.WithGridSize(c.gridSize),
		predictor.WithWorkers(c.workers),
		predictor.WithClampK(c.clamp),
		predictor.WithClampP(c.clamp),
		predictor.WithBounds(c.bounds),
	)
}

func parse(name string, args []string, c *common, extra func(fs *flag.FlagSet)) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	c.register(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

func runClassify(ctx context.Context, args []string, out io.Writer) error {
	var (
		c     common
		query geom.Point
	)
	if err := parse("classify", args, &c, func(fs *flag.FlagSet) {
		fs.Float64Var(&query.X, "x", 50, "query x")
		fs.Float64Var(&query.Y, "y", 50, "query y")
	}); err != nil {
		return err
	}
	ds, err := c.dataset()
	if err != nil {
		return err
	}
	p, err := c.predictor()
	if err != nil {
		return err
	}
	prediction, err := p.Predict(ctx, query, ds, predictor.Overrides{})
	if err != nil {
		return err
	}

	label, ok := prediction.Label()
	if !ok {
		label = "none"
	}
	_, _ = fmt.Fprintf(out, "query %s: %s\n", query, label)
	if !ok {
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tpoint\tlabel\tdistance")
	for i, n := range prediction.Neighbors {
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%.4f\n", i+1, n.Point, n.Label, n.Distance)
	}
	for _, lc := range prediction.Vote.Tally() {
		_, _ = fmt.Fprintf(tw, "votes\t%s\t%d\t\n", lc.Label, lc.Count)
	}
	return tw.Flush()
}

func boundaryFor(ctx context.Context, c *common) (*predictor.Boundary, geom.Dataset, error) {
	ds, err := c.dataset()
	if err != nil {
		return nil, nil, err
	}
	p, err := c.predictor()
	if err != nil {
		return nil, nil, err
	}
	b, err := p.Boundary(ctx, "", ds, predictor.Overrides{})
	if err != nil {
		return nil, nil, err
	}
	return b, ds, nil
}

func runBoundary(ctx context.Context, args []string, out io.Writer) error {
	var c common
	if err := parse("boundary", args, &c, nil); err != nil {
		return err
	}
	b, ds, err := boundaryFor(ctx, &c)
	if err != nil {
		return err
	}
	if b.Grid.Empty() {
		_, _ = fmt.Fprintln(out, "no points, no boundary")
		return nil
	}
	_, _ = fmt.Fprint(out, render.ASCII(b.Grid, ds))
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprint(out, render.Shares(b.Grid))
	return nil
}

func runPlot(ctx context.Context, args []string, out io.Writer) error {
	var (
		c    common
		path string
	)
	if err := parse("plot", args, &c, func(fs *flag.FlagSet) {
		fs.StringVar(&path, "out", "boundary.png", "output image, format from the extension")
	}); err != nil {
		return err
	}
	b, ds, err := boundaryFor(ctx, &c)
	if err != nil {
		return err
	}
	title := fmt.Sprintf("k=%d %s", b.Params.K, b.Params.Metric)
	if b.Params.Metric == geom.MetricMinkowski {
		title = fmt.Sprintf("%s p=%g", title, b.Params.P)
	}
	if err := render.SavePNG(b.Grid, ds, title, path); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

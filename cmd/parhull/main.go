// Package main is the parhull command: it times the hull construction of a point file and
// writes the result.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/stat"

	"github.com/akmonengine/parhull"
	"github.com/akmonengine/parhull/pointio"
)

const (
	// Flags.
	flagRounds   = "rounds"
	flagOut      = "out"
	flagFacets   = "facets"
	flagSTL      = "stl"
	flagWorkers  = "workers"
	flagLevels   = "levels"
	flagCellSize = "cell-size"
	flagSlack    = "slack"
	flagVerify   = "verify"
	flagDebug    = "debug"
)

func main() {
	os.Exit(runMain(os.Args, os.Stdout, golog.NewDevelopmentLogger("parhull")))
}

// runMain runs the app and returns the process exit code, reporting a failure on logger.
func runMain(args []string, out io.Writer, logger golog.Logger) int {
	if err := newApp(out).Run(args); err != nil {
		logger.Errorw("parhull failed", "error", err)
		return 1
	}
	return 0
}

func newApp(out io.Writer) *cli.App {
	var logger golog.Logger
	defaults := parhull.DefaultOptions()

	return &cli.App{
		Name:      "parhull",
		Usage:     "compute the 3-d convex hull of a point file",
		ArgsUsage: "<inFile>",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    flagRounds,
				Aliases: []string{"r"},
				Value:   1,
				Usage:   "number of timed runs",
			},
			&cli.StringFlag{
				Name:    flagOut,
				Aliases: []string{"o"},
				Usage:   "write the hull vertex indices to `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagFacets,
				Usage: "write facet index triples instead of vertex indices",
			},
			&cli.StringFlag{
				Name:  flagSTL,
				Usage: "export the hull as an STL mesh to `FILE`",
			},
			&cli.IntFlag{
				Name:    flagWorkers,
				Aliases: []string{"w"},
				Value:   defaults.Workers,
				Usage:   "worker goroutines, 1 runs serially",
				EnvVars: []string{"PARHULL_WORKERS"},
			},
			&cli.IntFlag{
				Name:    flagLevels,
				Value:   defaults.GridLevels,
				Usage:   "grid levels used to order the input, 0 disables the grid",
				EnvVars: []string{"PARHULL_LEVELS"},
			},
			&cli.Float64Flag{
				Name:    flagCellSize,
				Usage:   "finest grid cell size, 0 picks it from the input extent",
				EnvVars: []string{"PARHULL_CELL_SIZE"},
			},
			&cli.Float64Flag{
				Name:    flagSlack,
				Value:   defaults.Slack,
				Usage:   "visibility tolerance",
				EnvVars: []string{"PARHULL_SLACK"},
			},
			&cli.BoolFlag{
				Name:    flagVerify,
				Usage:   "check the mesh after every round",
				EnvVars: []string{"PARHULL_VERIFY"},
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = golog.NewDebugLogger("parhull")
			} else {
				logger = golog.NewDevelopmentLogger("parhull")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}
}

func run(c *cli.Context, logger golog.Logger) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one input file")
	}
	rounds := c.Int(flagRounds)
	if rounds < 1 {
		return errors.Errorf("--%s must be at least 1, got %d", flagRounds, rounds)
	}

	rows, err := pointio.ReadFile(c.Args().First())
	if err != nil {
		return err
	}
	points, err := parhull.FromCoords(rows)
	if err != nil {
		return err
	}

	opts := parhull.Options{
		Workers:    c.Int(flagWorkers),
		GridLevels: c.Int(flagLevels),
		CellSize:   c.Float64(flagCellSize),
		Slack:      c.Float64(flagSlack),
		Verify:     c.Bool(flagVerify),
		Logger:     logger,
	}

	var hull *parhull.Hull
	times := make([]float64, rounds)
	for i := range times {
		start := time.Now()
		hull, err = parhull.Hull3D(points, opts)
		if err != nil {
			return err
		}
		times[i] = time.Since(start).Seconds()
		fmt.Fprintf(c.App.Writer, "round-time = %f\n", times[i])
	}
	mean, std := stat.MeanStdDev(times, nil)
	if rounds == 1 {
		std = 0
	}
	logger.Infow("timing", "points", len(points), "rounds", rounds, "mean", mean, "stddev", std,
		"vertices", len(hull.Vertices), "facets", len(hull.Facets))
	fmt.Fprintf(c.App.Writer, "hull: %d vertices, %d facets, mean %f s, std-dev %f s\n",
		len(hull.Vertices), len(hull.Facets), mean, std)

	if path := c.String(flagOut); path != "" {
		err := pointio.WriteFile(path, func(w io.Writer) error {
			if c.Bool(flagFacets) {
				return pointio.WriteFacets(w, hull.Facets)
			}
			return pointio.WriteInts(w, hull.Vertices)
		})
		if err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
	}
	if path := c.String(flagSTL); path != "" {
		if err := pointio.SaveSTL(path, points, hull.Facets); err != nil {
			return err
		}
	}
	return nil
}

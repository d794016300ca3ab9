package parhull

import (
	"github.com/edaniels/golog"
	"go.uber.org/zap"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/parallel"
)

const (
	DEFAULT_WORKERS     = 1
	DEFAULT_GRID_LEVELS = 6
)

// Options tunes a hull construction. Zero fields take their default, except GridLevels
// where 0 disables the grid indexer.
type Options struct {
	// Workers is the goroutine count of every parallel pass, 1 runs everything inline.
	Workers int
	// GridLevels is the depth of the Morton grid used to order and partition the input.
	GridLevels int
	// CellSize overrides the finest grid cell edge. It must keep every axis within 65535
	// cells of the box minimum.
	CellSize float64
	// Slack is the signed volume (x6) a point needs over a facet plane to be outside it.
	// It is absolute, not relative to the input extent: scale it with the cube of the
	// point cloud size, or a small cloud is rejected as coplanar by the seed step.
	Slack float64
	// Verify checks the facet graph after every round, failing on a broken mesh.
	Verify bool
	Logger golog.Logger
}

// DefaultOptions returns options using every available CPU.
func DefaultOptions() Options {
	return Options{
		Workers:    parallel.Workers,
		GridLevels: DEFAULT_GRID_LEVELS,
		Slack:      geom.DefaultSlack,
	}
}

func (o Options) normalize() Options {
	o.Workers = max(DEFAULT_WORKERS, o.Workers)
	if o.Slack == 0 {
		o.Slack = geom.DefaultSlack
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop().Sugar()
	}
	return o
}

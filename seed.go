package parhull

import (
	"math"

	"github.com/pkg/errors"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/grid"
	"github.com/akmonengine/parhull/mesh"
	"github.com/akmonengine/parhull/parallel"
)

// seed indexes the points, builds the seed tetrahedron and hands every other point to the
// first seed facet that sees it.
func (b *Builder) seed() error {
	if len(b.points) < 4 {
		return errors.Wrapf(ErrTooFewPoints, "got %d", len(b.points))
	}

	if b.Options.GridLevels > 0 {
		g, err := grid.New(b.points, b.Options.GridLevels, b.Options.CellSize, b.Options.Workers)
		if err != nil {
			return errors.Wrap(err, "grid")
		}
		b.grid = g
		b.points = g.Points()

		buckets := make([]int, g.Levels())
		for l := range buckets {
			buckets[l] = g.Buckets(l)
		}
		b.logger.Debugw("grid built", "points", g.Len(), "cellSize", g.CellSize(), "buckets", buckets)
	}

	simplex, err := findSimplex(b.points, b.Options.Slack, b.Options.Workers)
	if err != nil {
		return err
	}
	interior := simplex[0].Pos.Add(simplex[1].Pos).Add(simplex[2].Pos).Add(simplex[3].Pos).Mul(0.25)
	b.mesh = mesh.New(interior, b.Options.Slack)

	var facets [4]*mesh.Facet
	for i, h := range b.mesh.Tetrahedron(simplex) {
		facets[i], _ = b.mesh.Get(h)
	}

	classify := func(p geom.Vertex) int {
		for _, s := range simplex {
			if p.Index == s.Index {
				return -1
			}
		}
		for i, f := range facets {
			if f.Visible(p.Pos) {
				return i
			}
		}
		return -1
	}

	var target []int
	if b.grid == nil {
		target = parallel.Map(b.Options.Workers, b.points, classify)
	} else {
		// one task per bucket of the coarsest level that keeps every worker busy
		idx := b.grid.LevelIdx(b.grid.CoarsestLevelWith(b.Options.Workers))
		target = make([]int, len(b.points))
		parallel.ForEach(b.Options.Workers, len(idx)-1, func(k int) {
			for i := idx[k]; i < idx[k+1]; i++ {
				target[i] = classify(b.points[i])
			}
		})
	}

	inside := 0
	for i, t := range target {
		if t < 0 {
			inside++
			continue
		}
		facets[t].Push(b.points[i])
	}

	b.logger.Debugw("seed",
		"simplex", []int{simplex[0].Index, simplex[1].Index, simplex[2].Index, simplex[3].Index},
		"inside", inside,
	)
	b.state = SCAN
	return nil
}

// findSimplex picks four affinely independent points: the farthest pair among the axis
// extremes, the point farthest from their line, then the point farthest from their plane.
func findSimplex(points []geom.Vertex, slack float64, workers int) ([4]geom.Vertex, error) {
	var simplex [4]geom.Vertex

	extremes := make([]geom.Vertex, 0, 6)
	for axis := 0; axis < 3; axis++ {
		less := func(p, q geom.Vertex) bool { return p.Pos[axis] < q.Pos[axis] }
		extremes = append(extremes,
			points[parallel.MaxIndex(workers, points, func(p, q geom.Vertex) bool { return less(q, p) })],
			points[parallel.MaxIndex(workers, points, less)],
		)
	}

	best := -1.0
	for i := range extremes {
		for j := i + 1; j < len(extremes); j++ {
			if d := extremes[i].Pos.Sub(extremes[j].Pos).LenSqr(); d > best {
				best = d
				simplex[0], simplex[1] = extremes[i], extremes[j]
			}
		}
	}
	if best == 0 {
		return simplex, errors.Wrap(ErrDegenerateSeed, "all points coincide")
	}

	a, ab := simplex[0].Pos, simplex[1].Pos.Sub(simplex[0].Pos)
	fromLine := func(p geom.Vertex) float64 {
		return p.Pos.Sub(a).Cross(ab).Len()
	}
	simplex[2] = points[parallel.MaxIndex(workers, points, func(p, q geom.Vertex) bool {
		return fromLine(p) < fromLine(q)
	})]
	if fromLine(simplex[2]) <= slack {
		return simplex, errors.Wrap(ErrDegenerateSeed, "all points are collinear")
	}

	fromPlane := func(p geom.Vertex) float64 {
		return math.Abs(geom.SignedVolume(simplex[0].Pos, simplex[1].Pos, simplex[2].Pos, p.Pos))
	}
	simplex[3] = points[parallel.MaxIndex(workers, points, func(p, q geom.Vertex) bool {
		return fromPlane(p) < fromPlane(q)
	})]
	if fromPlane(simplex[3]) <= slack {
		return simplex, errors.Wrap(ErrDegenerateSeed, "all points are coplanar")
	}

	return simplex, nil
}

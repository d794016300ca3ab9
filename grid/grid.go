// Package grid orders a point set along a 48-bit Morton curve and groups it into nested
// buckets, one partition per octree level.
package grid

import (
	"cmp"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/parallel"
)

// ============================================================================
// Types
// ============================================================================

const (
	// MaxRange is the largest cell coordinate a 16-bit axis slice can hold.
	MaxRange = 65535
	// KeyBits is the width of the interleaved key.
	KeyBits = 48
	// MaxLevels is the number of 3-bit slices in a key.
	MaxLevels = KeyBits / 3
)

var (
	// ErrCellOverflow is returned when a point falls in a cell beyond MaxRange on some axis.
	ErrCellOverflow = errors.New("grid id exceeds 16 bits, make the minimum cell size larger")
	// ErrInvalidLevels is returned for a level count outside [0, MaxLevels].
	ErrInvalidLevels = errors.New("invalid number of grid levels")
)

// CellKey - integer cell coordinates of a point
type CellKey struct {
	X, Y, Z uint64
}

// Grid - points sorted by Morton key, with the bucket boundaries of every level
type Grid struct {
	points   []geom.Vertex
	levels   [][]int
	cellSize float64
	min      mgl64.Vec3
}

// ============================================================================
// Constructor
// ============================================================================

// New indexes vertices into a grid of the given depth. cellSize 0 picks the smallest cell
// that keeps every axis within 16 bits. The vertices slice is not modified.
func New(vertices []geom.Vertex, levels int, cellSize float64, workers int) (*Grid, error) {
	if levels < 0 || levels > MaxLevels {
		return nil, errors.Wrapf(ErrInvalidLevels, "got %d, want [0, %d]", levels, MaxLevels)
	}

	g := &Grid{points: make([]geom.Vertex, len(vertices))}
	copy(g.points, vertices)
	if len(vertices) == 0 {
		g.levels = make([][]int, levels)
		for l := range g.levels {
			g.levels[l] = []int{0}
		}
		return g, nil
	}

	lo, hi := bounds(vertices, workers)
	g.min = lo
	extent := hi.Sub(lo)
	g.cellSize = max(extent[0], extent[1], extent[2]) / MaxRange
	if cellSize > 0 {
		g.cellSize = cellSize
	}
	if g.cellSize == 0 {
		// every point coincides
		g.cellSize = 1
	}

	err := parallel.ForErr(workers, len(g.points), func(start, end int) error {
		for i := start; i < end; i++ {
			key, err := g.computeKey(g.points[i].Pos)
			if err != nil {
				return errors.Wrapf(err, "point %d", g.points[i].Index)
			}
			g.points[i].Key = key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	parallel.Sort(workers, g.points, func(a, b geom.Vertex) int {
		return cmp.Compare(a.Key, b.Key)
	})

	n := len(g.points)
	flags := make([]int, n)
	g.levels = make([][]int, levels)
	for l := 0; l < levels; l++ {
		flags[0] = 1
		parallel.For(workers, n-1, func(start, end int) {
			for i := start + 1; i < end+1; i++ {
				if LevelLabel(g.points[i].Key, l) != LevelLabel(g.points[i-1].Key, l) {
					flags[i] = 1
				} else {
					flags[i] = 0
				}
			}
		})

		// flags becomes the bucket id of the first point of each bucket
		isStart := make([]bool, n)
		for i, f := range flags {
			isStart[i] = f == 1
		}
		buckets := parallel.Scan(workers, flags)

		offsets := make([]int, buckets+1)
		parallel.For(workers, n, func(start, end int) {
			for i := start; i < end; i++ {
				if isStart[i] {
					offsets[flags[i]] = i
				}
			}
		})
		offsets[buckets] = n
		g.levels[l] = offsets
	}

	return g, nil
}

func bounds(vertices []geom.Vertex, workers int) (mgl64.Vec3, mgl64.Vec3) {
	lo, hi := vertices[0].Pos, vertices[0].Pos
	for axis := 0; axis < 3; axis++ {
		byAxis := func(a, b geom.Vertex) bool { return a.Pos[axis] < b.Pos[axis] }
		hi[axis] = vertices[parallel.MaxIndex(workers, vertices, byAxis)].Pos[axis]
		lo[axis] = vertices[parallel.MaxIndex(workers, vertices, func(a, b geom.Vertex) bool {
			return byAxis(b, a)
		})].Pos[axis]
	}
	return lo, hi
}

// ============================================================================
// Keys
// ============================================================================

// worldToCell - floor of the offset from the box minimum, per axis
func (g *Grid) worldToCell(pos mgl64.Vec3) (CellKey, error) {
	var cell [3]uint64
	for axis := 0; axis < 3; axis++ {
		c := math.Floor((pos[axis] - g.min[axis]) / g.cellSize)
		if c < 0 || c > MaxRange {
			return CellKey{}, errors.Wrapf(ErrCellOverflow, "axis %d cell %.0f with cell size %g", axis, c, g.cellSize)
		}
		cell[axis] = uint64(c)
	}
	return CellKey{X: cell[0], Y: cell[1], Z: cell[2]}, nil
}

func (g *Grid) computeKey(pos mgl64.Vec3) (uint64, error) {
	cell, err := g.worldToCell(pos)
	if err != nil {
		return 0, err
	}
	return Interleave(cell), nil
}

// spread moves the 16 low bits of x three positions apart.
func spread(x uint64) uint64 {
	x = (x | (x << 16)) & 0x001f0000ff0000ff
	x = (x | (x << 8)) & 0x100f00f00f00f00f
	x = (x | (x << 4)) & 0x10c30c30c30c30c3
	x = (x | (x << 2)) & 0x1249249249249249
	return x
}

// Interleave builds the 48-bit Morton key of a cell; X occupies the lowest bit of every
// 3-bit group. Coordinates must not exceed MaxRange.
func Interleave(c CellKey) uint64 {
	return spread(c.X) | spread(c.Y)<<1 | spread(c.Z)<<2
}

// LevelLabel returns the label of key at level l: the key prefix down to and including the
// l-th 3-bit slice, level 0 being the coarsest. Comparing prefixes rather than lone slices
// is what makes level l+1 buckets nest in level l buckets.
func LevelLabel(key uint64, l int) uint64 {
	return key >> (KeyBits - (l+1)*3)
}

// ============================================================================
// Accessors
// ============================================================================

// Len returns the number of indexed points.
func (g *Grid) Len() int {
	return len(g.points)
}

// Levels returns the number of levels built.
func (g *Grid) Levels() int {
	return len(g.levels)
}

// CellSize returns the edge length of a finest-resolution cell.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Points returns the points in key order. The slice must not be modified.
func (g *Grid) Points() []geom.Vertex {
	return g.points
}

// Point returns the i-th point in key order.
func (g *Grid) Point(i int) geom.Vertex {
	return g.points[i]
}

// LevelIdx returns the offsets of the buckets at level l into Points, followed by Len.
// Bucket i spans [LevelIdx(l)[i], LevelIdx(l)[i+1]).
func (g *Grid) LevelIdx(l int) []int {
	return g.levels[l]
}

// Buckets returns the number of buckets at level l.
func (g *Grid) Buckets(l int) int {
	return len(g.levels[l]) - 1
}

// Level returns the first point of every bucket at level l.
func (g *Grid) Level(l int) []geom.Vertex {
	idx := g.levels[l]
	out := make([]geom.Vertex, len(idx)-1)
	for i := range out {
		out[i] = g.points[idx[i]]
	}
	return out
}

// At returns the first point of bucket i at level l.
func (g *Grid) At(l, i int) geom.Vertex {
	return g.points[g.levels[l][i]]
}

// CoarsestLevelWith returns the coarsest level holding at least n buckets, or the finest
// level when none does. It returns -1 when the grid has no levels.
func (g *Grid) CoarsestLevelWith(n int) int {
	for l := range g.levels {
		if g.Buckets(l) >= n {
			return l
		}
	}
	return len(g.levels) - 1
}

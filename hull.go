// Package parhull computes 3-d convex hulls with a parallel incremental algorithm.
//
// Every round, each facet still holding outside points proposes its furthest point as an
// apex. The apexes whose visible regions do not overlap are accepted through a lock-free
// reservation and expanded concurrently; the others wait for a later round. The build ends
// when no facet holds a point.
package parhull

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/mesh"
)

// Hull is the result of a construction, in indices of the input points.
type Hull struct {
	// Vertices are the hull vertices, sorted.
	Vertices []int
	// Facets are wound counter-clockwise seen from outside.
	Facets [][3]int
	Rounds int
}

// Validate checks that the facets bound a closed, consistently oriented surface.
func (h *Hull) Validate() error {
	return mesh.CheckTriangles(h.Facets)
}

// Hull3D computes the convex hull of points.
func Hull3D(points []mgl64.Vec3, opts Options) (*Hull, error) {
	for i, p := range points {
		if err := checkFinite(p); err != nil {
			return nil, errors.Wrapf(err, "point %d", i)
		}
	}
	return NewBuilder(geom.NewVertices(points), opts).Run()
}

// HullCoords computes the convex hull of rows of coordinates. See FromCoords.
func HullCoords(coords [][]float64, opts Options) (*Hull, error) {
	points, err := FromCoords(coords)
	if err != nil {
		return nil, err
	}
	return Hull3D(points, opts)
}

// FromCoords converts rows of coordinates into points. Every row must hold exactly 3
// finite values.
func FromCoords(coords [][]float64) ([]mgl64.Vec3, error) {
	points := make([]mgl64.Vec3, len(coords))
	for i, row := range coords {
		if len(row) != 3 {
			return nil, errors.Wrapf(ErrUnsupportedDimension, "row %d has %d coordinates, want 3", i, len(row))
		}
		points[i] = mgl64.Vec3{row[0], row[1], row[2]}
		if err := checkFinite(points[i]); err != nil {
			return nil, errors.Wrapf(err, "row %d", i)
		}
	}
	return points, nil
}

func checkFinite(p mgl64.Vec3) error {
	for axis, c := range p {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return errors.Wrapf(ErrInvalidCoordinate, "axis %d is %v", axis, c)
		}
	}
	return nil
}

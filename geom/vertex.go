// Package geom holds the point record shared by the grid indexer and the facet mesh,
// and the orientation predicates the hull is built on.
package geom

import (
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultSlack is the minimum signed volume (x6) a point needs over a facet plane to be
// classified as strictly outside it.
const DefaultSlack = 1e-5

// Vertex is an input point together with its attribute record.
// Pos never changes once the vertex is created. A vertex has no back-reference to its
// facet: the facet whose see-list holds it owns it.
type Vertex struct {
	Pos   mgl64.Vec3
	Key   uint64 // Morton key assigned by the grid indexer, 0 when no grid is used
	Index int    // position in the caller's input
}

// NewVertices wraps raw positions, keeping their input order as Index.
func NewVertices(points []mgl64.Vec3) []Vertex {
	vertices := make([]Vertex, len(points))
	for i, p := range points {
		vertices[i] = Vertex{Pos: p, Index: i}
	}
	return vertices
}

// Coincides reports whether both vertices sit at exactly the same coordinates.
func (v Vertex) Coincides(o Vertex) bool {
	return v.Pos[0] == o.Pos[0] && v.Pos[1] == o.Pos[1] && v.Pos[2] == o.Pos[2]
}

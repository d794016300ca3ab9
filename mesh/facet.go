package mesh

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/parallel"
)

// Facet is an oriented triangle of the hull boundary. A, B, C wind counter-clockwise seen
// from outside; AB, BC and CA are the facets across the matching edges.
//
// A facet exclusively owns its see-list: the points currently classified as strictly
// outside it and not yet claimed by any other live facet.
type Facet struct {
	A, B, C    geom.Vertex
	AB, BC, CA Handle
	Area       mgl64.Vec3 // outward, unnormalized

	seeList     []geom.Vertex
	reservation Reservation
	handle      Handle
	alive       bool
	slack       float64
}

// NewFacet builds a detached facet whose normal points away from interior.
func NewFacet(a, b, c geom.Vertex, interior mgl64.Vec3, slack float64) *Facet {
	f := &Facet{}
	a, b, c = orient(a, b, c, interior)
	f.init(NilHandle, a, b, c, slack)
	return f
}

// orient swaps b and c when a,b,c winds clockwise seen from the side opposite interior.
func orient(a, b, c geom.Vertex, interior mgl64.Vec3) (geom.Vertex, geom.Vertex, geom.Vertex) {
	if geom.Determinant3(a.Pos, b.Pos, c.Pos, interior) < 0 {
		b, c = c, b
	}
	return a, b, c
}

// init resets f to the triangle a,b,c, keeping the given winding.
func (f *Facet) init(h Handle, a, b, c geom.Vertex, slack float64) {
	f.A, f.B, f.C = a, b, c
	f.AB, f.BC, f.CA = NilHandle, NilHandle, NilHandle
	f.Area = geom.Area(a.Pos, b.Pos, c.Pos)
	f.seeList = nil
	f.reservation.Reset()
	f.handle = h
	f.alive = true
	f.slack = slack
}

func (f *Facet) String() string {
	return fmt.Sprintf("(%d,%d,%d)", f.A.Index, f.B.Index, f.C.Index)
}

// Handle returns the arena handle of the facet, NilHandle for a detached facet.
func (f *Facet) Handle() Handle {
	return f.handle
}

// Alive reports whether the facet is part of the mesh.
func (f *Facet) Alive() bool {
	return f.alive
}

// Vertices returns A, B, C.
func (f *Facet) Vertices() [3]geom.Vertex {
	return [3]geom.Vertex{f.A, f.B, f.C}
}

// Indices returns the input indices of A, B, C.
func (f *Facet) Indices() [3]int {
	return [3]int{f.A.Index, f.B.Index, f.C.Index}
}

// Normal returns the unit outward normal.
func (f *Facet) Normal() mgl64.Vec3 {
	return f.Area.Normalize()
}

// ============================================================================
// Predicates
// ============================================================================

// IsAdjacent reports whether both facets share an edge, whatever its direction.
func (f *Facet) IsAdjacent(o *Facet) bool {
	v := f.Vertices()
	for i := 0; i < 3; i++ {
		if o.hasEdge(v[i].Index, v[(i+1)%3].Index) {
			return true
		}
	}
	return false
}

// hasEdge reports whether u,v is an edge of f in either direction.
func (f *Facet) hasEdge(u, v int) bool {
	return f.edgeSlot(u, v) != nil
}

// SignedVolume is six times the volume of the tetrahedron f,p: positive outside f.
func (f *Facet) SignedVolume(p mgl64.Vec3) float64 {
	return geom.SignedVolumeArea(f.A.Pos, f.Area, p)
}

// Visible reports whether p is strictly outside f, by more than the slack.
// Points within the slack of the plane are never visible.
func (f *Facet) Visible(p mgl64.Vec3) bool {
	return f.SignedVolume(p) > f.slack
}

// Above reports whether p is on the outer side of f's plane, with no slack.
func (f *Facet) Above(p mgl64.Vec3) bool {
	return f.SignedVolume(p) > 0
}

// VisibleNoDup is Visible, additionally false when v sits on one of f's vertices.
func (f *Facet) VisibleNoDup(v geom.Vertex) bool {
	return f.Visible(v.Pos) && !v.Coincides(f.A) && !v.Coincides(f.B) && !v.Coincides(f.C)
}

// ============================================================================
// Adjacency
// ============================================================================

// edgeSlot returns the adjacency field of the undirected edge u,v, nil if f has no such
// edge. u and v are input indices.
func (f *Facet) edgeSlot(u, v int) *Handle {
	a, b, c := f.A.Index, f.B.Index, f.C.Index
	switch {
	case (a == u && b == v) || (a == v && b == u):
		return &f.AB
	case (b == u && c == v) || (b == v && c == u):
		return &f.BC
	case (c == u && a == v) || (c == v && a == u):
		return &f.CA
	}
	return nil
}

// Neighbor returns the facet across the edge u,v, NilHandle if f has no such edge or
// the edge is still open.
func (f *Facet) Neighbor(u, v int) Handle {
	if s := f.edgeSlot(u, v); s != nil {
		return *s
	}
	return NilHandle
}

// setNeighbor links the edge u,v to h. It returns false if f has no such edge.
func (f *Facet) setNeighbor(u, v int, h Handle) bool {
	s := f.edgeSlot(u, v)
	if s == nil {
		return false
	}
	*s = h
	return true
}

// Neighbors returns AB, BC, CA.
func (f *Facet) Neighbors() [3]Handle {
	return [3]Handle{f.AB, f.BC, f.CA}
}

// edges returns the directed edges of f with their adjacency, in winding order.
func (f *Facet) edges() [3]struct {
	u, v geom.Vertex
	n    Handle
} {
	return [3]struct {
		u, v geom.Vertex
		n    Handle
	}{
		{f.A, f.B, f.AB},
		{f.B, f.C, f.BC},
		{f.C, f.A, f.CA},
	}
}

// ============================================================================
// See-list
// ============================================================================

// Push appends v to the see-list.
func (f *Facet) Push(v geom.Vertex) {
	f.seeList = append(f.seeList, v)
}

// Clear empties the see-list.
func (f *Facet) Clear() {
	f.seeList = nil
}

// Reassign releases the current see-list and takes ownership of list.
func (f *Facet) Reassign(list []geom.Vertex) {
	f.seeList = list
}

// SeeList returns the see-list. The facet keeps ownership.
func (f *Facet) SeeList() []geom.Vertex {
	return f.seeList
}

// Len returns the see-list size.
func (f *Facet) Len() int {
	return len(f.seeList)
}

// At returns the i-th see-list point.
func (f *Facet) At(i int) geom.Vertex {
	return f.seeList[i]
}

// Furthest returns the see-list point furthest outside f, the first one on ties.
// It returns false on an empty see-list.
func (f *Facet) Furthest(workers int) (geom.Vertex, bool) {
	i := parallel.MaxIndex(workers, f.seeList, func(a, b geom.Vertex) bool {
		return f.SignedVolume(a.Pos) < f.SignedVolume(b.Pos)
	})
	if i < 0 {
		return geom.Vertex{}, false
	}
	return f.seeList[i], true
}

// ============================================================================
// Reservation
// ============================================================================

// Reserve claims f on behalf of id, the smallest id of the round winning.
func (f *Facet) Reserve(id uint64) {
	f.reservation.Reserve(id)
}

// Reserved reports whether id holds f.
func (f *Facet) Reserved(id uint64) bool {
	return f.reservation.Reserved(id)
}

// ResetReservation releases f for the next round.
func (f *Facet) ResetReservation() {
	f.reservation.Reset()
}

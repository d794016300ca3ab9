package mesh

import (
	"slices"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// ErrNotManifold is returned when a facet set does not bound a closed oriented surface.
var ErrNotManifold = errors.New("facets do not form a closed 2-manifold")

// Check verifies the adjacency of the live facets: every edge has a live neighbor that
// points back and runs the edge the other way, and the surface satisfies V - E + F = 2.
func (m *Mesh) Check() error {
	facets := m.Facets()
	for _, f := range facets {
		for _, e := range f.edges() {
			n, ok := m.Get(e.n)
			if !ok {
				return errors.Wrapf(ErrNotManifold, "facet %s edge %d-%d has no live neighbor", f, e.u.Index, e.v.Index)
			}
			if n.Neighbor(e.u.Index, e.v.Index) != f.handle {
				return errors.Wrapf(ErrNotManifold, "facet %s is not the neighbor of %s", f, n)
			}
			if !n.hasDirectedEdge(e.v.Index, e.u.Index) {
				return errors.Wrapf(ErrNotManifold, "facets %s and %s share edge %d-%d with the same winding", f, n, e.u.Index, e.v.Index)
			}
		}
	}
	return CheckTriangles(m.Triangles())
}

func (f *Facet) hasDirectedEdge(u, v int) bool {
	for _, e := range f.edges() {
		if e.u.Index == u && e.v.Index == v {
			return true
		}
	}
	return false
}

// CheckTriangles verifies that tris, given as counter-clockwise index triples, bound a
// closed oriented surface of genus 0: every directed edge occurs once together with its
// reverse, and V - E + F = 2.
func CheckTriangles(tris [][3]int) error {
	if len(tris) < 4 {
		return errors.Wrapf(ErrNotManifold, "%d facets", len(tris))
	}

	directed := make(map[[2]int]int, len(tris)*3)
	for i, t := range tris {
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			return errors.Wrapf(ErrNotManifold, "facet %d repeats a vertex: %v", i, t)
		}
		for k := 0; k < 3; k++ {
			e := [2]int{t[k], t[(k+1)%3]}
			if j, ok := directed[e]; ok {
				return errors.Wrapf(ErrNotManifold, "edge %d->%d used by facets %d and %d", e[0], e[1], j, i)
			}
			directed[e] = i
		}
	}
	for e, i := range directed {
		if _, ok := directed[[2]int{e[1], e[0]}]; !ok {
			return errors.Wrapf(ErrNotManifold, "edge %d->%d of facet %d has no opposite", e[0], e[1], i)
		}
	}

	vertices := len(lo.Uniq(lo.Flatten(lo.Map(tris, func(t [3]int, _ int) []int { return t[:] }))))
	edges := len(directed) / 2
	if chi := vertices - edges + len(tris); chi != 2 {
		return errors.Wrapf(ErrNotManifold, "euler characteristic %d (V=%d E=%d F=%d)", chi, vertices, edges, len(tris))
	}
	return nil
}

// Triangles returns the input indices of the live facets, in slot order.
func (m *Mesh) Triangles() [][3]int {
	return lo.Map(m.Facets(), func(f *Facet, _ int) [3]int {
		return f.Indices()
	})
}

// VertexIndices returns the sorted input indices of the hull vertices.
func (m *Mesh) VertexIndices() []int {
	out := lo.Uniq(lo.Flatten(lo.Map(m.Triangles(), func(t [3]int, _ int) []int { return t[:] })))
	slices.Sort(out)
	return out
}

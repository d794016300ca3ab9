package mesh

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/parallel"
)

// HorizonEdge is a boundary edge of a visible region. U→V follows the winding of the
// visible facet, Outside is the facet beyond it that the apex cannot see.
type HorizonEdge struct {
	U, V    geom.Vertex
	Outside Handle
}

// Region is the connected set of facets an apex sees, grown from the facet that owns the
// apex in its see-list.
type Region struct {
	Apex    geom.Vertex
	Owner   Handle
	Visible []Handle
	Horizon []HorizonEdge
}

// Expansion reports what applying a region changed.
type Expansion struct {
	Created    []Handle
	Removed    []Handle
	Reassigned int
	Discarded  int
}

// FindRegion walks the facets apex is above, breadth first from owner, and records the
// horizon in the order it is met. owner is part of the region even when apex lies within
// the slack of its plane.
//
// Growth uses Above rather than Visible: a neighbor the apex clears by less than the slack
// still joins the region, so every horizon edge stays convex and the region stays a disk.
//
// FindRegion only reads the mesh: concurrent calls are safe while no facet is created or
// removed.
func (m *Mesh) FindRegion(owner Handle, apex geom.Vertex) (Region, error) {
	if _, err := m.Lookup(owner); err != nil {
		return Region{}, err
	}

	r := Region{Apex: apex, Owner: owner, Visible: []Handle{owner}}
	inRegion := map[Handle]bool{owner: true}
	hidden := map[Handle]bool{}

	for i := 0; i < len(r.Visible); i++ {
		f := m.facets[r.Visible[i].Slot()]
		for _, e := range f.edges() {
			if inRegion[e.n] {
				continue
			}
			if !hidden[e.n] {
				n, err := m.Lookup(e.n)
				if err != nil {
					return Region{}, errors.Wrapf(err, "neighbor of %s across %d-%d", f, e.u.Index, e.v.Index)
				}
				if n.Above(apex.Pos) {
					inRegion[e.n] = true
					r.Visible = append(r.Visible, e.n)
					continue
				}
				hidden[e.n] = true
			}
			r.Horizon = append(r.Horizon, HorizonEdge{U: e.u, V: e.v, Outside: e.n})
		}
	}
	return r, nil
}

// Footprint returns every facet r needs exclusive access to: the region and the facets
// across its horizon. A facet across several horizon edges is listed once.
func (r Region) Footprint() []Handle {
	out := make([]Handle, 0, len(r.Visible)+len(r.Horizon))
	out = append(out, r.Visible...)
	seen := make(map[Handle]bool, len(r.Horizon))
	for _, e := range r.Horizon {
		if !seen[e.Outside] {
			seen[e.Outside] = true
			out = append(out, e.Outside)
		}
	}
	return out
}

// Reserve claims the footprint of r with its owner handle.
func (m *Mesh) Reserve(r Region) {
	for _, h := range r.Footprint() {
		m.facets[h.Slot()].Reserve(r.Owner.ID())
	}
}

// Holds reports whether the owner of r won every facet of its footprint. Call it only
// once every Reserve of the round has returned.
func (m *Mesh) Holds(r Region) bool {
	for _, h := range r.Footprint() {
		if !m.facets[h.Slot()].Reserved(r.Owner.ID()) {
			return false
		}
	}
	return true
}

// ResetReservations releases the footprint of r.
func (m *Mesh) ResetReservations(r Region) {
	for _, h := range r.Footprint() {
		m.facets[h.Slot()].ResetReservation()
	}
}

// Expand replaces the region of r by the cone from its apex to its horizon. slots must
// hold one allocated handle per horizon edge; the i-th new facet is U,V,apex of the i-th
// edge, wound like the removed facet it borders. The see-list points of the removed facets
// move to the first new facet that sees them, then to the first facet across the horizon
// that does, or are dropped as interior.
//
// Expansions of regions with disjoint footprints may run concurrently.
func (m *Mesh) Expand(r Region, slots []Handle, workers int) (Expansion, error) {
	if len(slots) != len(r.Horizon) {
		return Expansion{}, errors.Errorf("%d slots for %d horizon edges", len(slots), len(r.Horizon))
	}

	created := make([]*Facet, len(slots))
	for i, e := range r.Horizon {
		created[i] = m.createWound(slots[i], e.U, e.V, r.Apex)
	}
	m.link(slots)

	// new facets first, then the facets across the horizon, each once
	receivers := slices.Clone(created)
	seen := make(map[Handle]bool, len(r.Horizon))
	for i, e := range r.Horizon {
		outside, err := m.Lookup(e.Outside)
		if err != nil {
			return Expansion{}, errors.Wrap(err, "horizon")
		}
		outside.setNeighbor(e.U.Index, e.V.Index, slots[i])
		created[i].setNeighbor(e.U.Index, e.V.Index, e.Outside)
		if !seen[e.Outside] {
			seen[e.Outside] = true
			receivers = append(receivers, outside)
		}
	}

	var orphans []geom.Vertex
	for _, h := range r.Visible {
		for _, p := range m.facets[h.Slot()].seeList {
			if p.Index != r.Apex.Index {
				orphans = append(orphans, p)
			}
		}
	}
	target := parallel.Map(workers, orphans, func(p geom.Vertex) int {
		for i, f := range receivers {
			if f.VisibleNoDup(p) {
				return i
			}
		}
		return -1
	})

	exp := Expansion{Created: slots, Removed: r.Visible}
	for i, p := range orphans {
		if target[i] < 0 {
			exp.Discarded++
			continue
		}
		receivers[target[i]].Push(p)
		exp.Reassigned++
	}

	for _, h := range r.Visible {
		m.kill(m.facets[h.Slot()])
	}
	return exp, nil
}

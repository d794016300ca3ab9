// Package mesh stores the facet graph of a growing convex hull.
//
// Facets live in an arena and refer to each other through generation-checked handles, so
// a handle to a facet that has since been removed is detected instead of silently
// pointing at the facet that reused its slot. Slots are allocated and released only
// between parallel phases; within a phase, the facets a goroutine touches are the ones its
// reservations won.
package mesh

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/akmonengine/parhull/geom"
)

// ErrStaleHandle is returned when a handle no longer designates a live facet.
var ErrStaleHandle = errors.New("stale facet handle")

// Handle designates a facet slot at a given generation.
type Handle uint64

// NilHandle designates no facet.
const NilHandle Handle = math.MaxUint64

func newHandle(slot int, gen uint32) Handle {
	return Handle(uint64(slot)<<32 | uint64(gen))
}

// Slot returns the arena slot of h.
func (h Handle) Slot() int {
	return int(uint64(h) >> 32)
}

// Generation returns how many times the slot was released before h was issued.
func (h Handle) Generation() uint32 {
	return uint32(h)
}

// ID returns h as a reservation identity. Smaller handles win reservations.
func (h Handle) ID() uint64 {
	return uint64(h)
}

func (h Handle) String() string {
	if h == NilHandle {
		return "nil"
	}
	return fmt.Sprintf("%d:%d", h.Slot(), h.Generation())
}

// Mesh is the facet arena.
type Mesh struct {
	facets   []*Facet
	gens     []uint32
	free     []int
	live     int
	interior mgl64.Vec3
	slack    float64
}

// New returns an empty mesh. Every facet created in it is oriented away from interior.
func New(interior mgl64.Vec3, slack float64) *Mesh {
	return &Mesh{interior: interior, slack: slack}
}

// Interior returns the reference point facets are oriented against.
func (m *Mesh) Interior() mgl64.Vec3 {
	return m.interior
}

// Slack returns the visibility tolerance of the mesh facets.
func (m *Mesh) Slack() float64 {
	return m.slack
}

// Len returns the number of live facets.
func (m *Mesh) Len() int {
	return m.live
}

// Cap returns the number of slots ever allocated.
func (m *Mesh) Cap() int {
	return len(m.facets)
}

// Alloc reserves n slots, reusing released ones first, and returns their handles in
// allocation order. The facets are not live until Create is called on them.
// Alloc must not run concurrently with any other mesh call.
func (m *Mesh) Alloc(n int) []Handle {
	handles := make([]Handle, n)
	for i := range handles {
		var slot int
		if k := len(m.free); k > 0 {
			slot = m.free[k-1]
			m.free = m.free[:k-1]
		} else {
			slot = len(m.facets)
			m.facets = append(m.facets, &Facet{handle: NilHandle})
			m.gens = append(m.gens, 0)
		}
		handles[i] = newHandle(slot, m.gens[slot])
	}
	m.live += n
	return handles
}

// Create builds the facet a,b,c in the slot of h, oriented away from the mesh interior.
// Distinct handles may be created concurrently.
func (m *Mesh) Create(h Handle, a, b, c geom.Vertex) *Facet {
	a, b, c = orient(a, b, c, m.interior)
	return m.createWound(h, a, b, c)
}

// createWound builds the facet a,b,c in the slot of h as given. The caller guarantees a,b,c
// winds counter-clockwise seen from outside.
func (m *Mesh) createWound(h Handle, a, b, c geom.Vertex) *Facet {
	f := m.facets[h.Slot()]
	f.init(h, a, b, c, m.slack)
	return f
}

// Get returns the live facet designated by h.
func (m *Mesh) Get(h Handle) (*Facet, bool) {
	if h == NilHandle {
		return nil, false
	}
	slot := h.Slot()
	if slot >= len(m.facets) {
		return nil, false
	}
	f := m.facets[slot]
	if !f.alive || f.handle != h {
		return nil, false
	}
	return f, true
}

// Lookup is Get returning ErrStaleHandle for a dead or unknown handle.
func (m *Mesh) Lookup(h Handle) (*Facet, error) {
	f, ok := m.Get(h)
	if !ok {
		return nil, errors.Wrapf(ErrStaleHandle, "facet %s", h)
	}
	return f, nil
}

// kill removes f from the mesh without freeing its slot.
func (m *Mesh) kill(f *Facet) {
	f.alive = false
	f.seeList = nil
}

// Release frees the slots of removed facets for reuse. Handles of live facets are ignored.
// Release must not run concurrently with any other mesh call.
func (m *Mesh) Release(handles []Handle) {
	for _, h := range handles {
		slot := h.Slot()
		if slot >= len(m.facets) || m.gens[slot] != h.Generation() {
			continue
		}
		f := m.facets[slot]
		if f.alive {
			continue
		}
		f.handle = NilHandle
		m.gens[slot]++
		m.free = append(m.free, slot)
		m.live--
	}
}

// Live returns the handles of the live facets in slot order.
func (m *Mesh) Live() []Handle {
	out := make([]Handle, 0, m.live)
	for _, f := range m.facets {
		if f.alive {
			out = append(out, f.handle)
		}
	}
	return out
}

// Facets returns the live facets in slot order.
func (m *Mesh) Facets() []*Facet {
	out := make([]*Facet, 0, m.live)
	for _, f := range m.facets {
		if f.alive {
			out = append(out, f)
		}
	}
	return out
}

// Tetrahedron seeds an empty mesh with the four facets of the simplex v, linked to each
// other. The mesh interior should lie strictly inside the simplex.
func (m *Mesh) Tetrahedron(v [4]geom.Vertex) [4]Handle {
	hs := m.Alloc(4)
	faces := [4][3]geom.Vertex{
		{v[0], v[1], v[2]},
		{v[0], v[1], v[3]},
		{v[0], v[2], v[3]},
		{v[1], v[2], v[3]},
	}
	for i, f := range faces {
		m.Create(hs[i], f[0], f[1], f[2])
	}
	m.link(hs)
	return [4]Handle(hs)
}

// link connects every pair of facets among hs sharing an edge.
func (m *Mesh) link(hs []Handle) {
	open := make(map[[2]int]Handle, len(hs)*3)
	for _, h := range hs {
		f := m.facets[h.Slot()]
		for _, e := range f.edges() {
			key := edgeKey(e.u.Index, e.v.Index)
			if o, ok := open[key]; ok {
				f.setNeighbor(e.u.Index, e.v.Index, o)
				m.facets[o.Slot()].setNeighbor(e.u.Index, e.v.Index, h)
				delete(open, key)
				continue
			}
			open[key] = h
		}
	}
}

func edgeKey(u, v int) [2]int {
	if u > v {
		u, v = v, u
	}
	return [2]int{u, v}
}

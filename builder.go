package parhull

import (
	"fmt"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/akmonengine/parhull/geom"
	"github.com/akmonengine/parhull/grid"
	"github.com/akmonengine/parhull/mesh"
	"github.com/akmonengine/parhull/parallel"
)

// State is a phase of the builder. A round runs SCAN, PICK, RESERVE and EXPAND.
type State uint8

const (
	SEED State = iota
	SCAN
	PICK
	RESERVE
	EXPAND
	DONE
)

func (s State) String() string {
	switch s {
	case SEED:
		return "seed"
	case SCAN:
		return "scan"
	case PICK:
		return "pick"
	case RESERVE:
		return "reserve"
	case EXPAND:
		return "expand"
	case DONE:
		return "done"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// candidate is the apex a facet proposes for the current round.
type candidate struct {
	owner    mesh.Handle
	apex     geom.Vertex
	region   mesh.Region
	accepted bool
}

// Builder grows the hull of a point set one round at a time. Every state transition ends
// on a barrier: no goroutine started by a step outlives it.
type Builder struct {
	Options Options
	Events  Events

	points     []geom.Vertex
	grid       *grid.Grid
	mesh       *mesh.Mesh
	state      State
	round      int
	pending    []mesh.Handle
	candidates []candidate
	accepted   int
	err        error
	logger     golog.Logger
}

// NewBuilder prepares the construction of the hull of points. The slice is not modified.
func NewBuilder(points []geom.Vertex, opts Options) *Builder {
	opts = opts.normalize()
	return &Builder{
		Options: opts,
		Events:  NewEvents(),
		points:  points,
		logger:  opts.Logger,
	}
}

// State returns the phase the next Step runs.
func (b *Builder) State() State {
	return b.state
}

// Round returns the number of completed rounds.
func (b *Builder) Round() int {
	return b.round
}

// Mesh returns the facet graph, nil before the seed step.
func (b *Builder) Mesh() *mesh.Mesh {
	return b.mesh
}

// Grid returns the grid index, nil when disabled or before the seed step.
func (b *Builder) Grid() *grid.Grid {
	return b.grid
}

// Pending returns the facets holding points, as of the last scan.
func (b *Builder) Pending() []mesh.Handle {
	return b.pending
}

// Step runs the current phase and moves to the next one. It is a no-op once DONE.
// After an error the builder stays in the failed phase and keeps returning the error.
func (b *Builder) Step() error {
	if b.err != nil {
		return b.err
	}

	var err error
	switch b.state {
	case SEED:
		err = b.seed()
	case SCAN:
		err = b.scan()
	case PICK:
		b.pick()
	case RESERVE:
		err = b.reserve()
	case EXPAND:
		err = b.expand()
	case DONE:
		return nil
	}
	if err != nil {
		b.err = errors.Wrapf(err, "%s step of round %d", b.state, b.round)
		return b.err
	}
	return nil
}

// Run steps until DONE and returns the hull.
func (b *Builder) Run() (*Hull, error) {
	for b.state != DONE {
		if err := b.Step(); err != nil {
			return nil, err
		}
	}
	return b.Hull()
}

// Hull reads the result out of a finished builder.
func (b *Builder) Hull() (*Hull, error) {
	if b.state != DONE {
		return nil, errors.Wrapf(ErrNotDone, "builder is in %s", b.state)
	}
	return &Hull{
		Vertices: b.mesh.VertexIndices(),
		Facets:   b.mesh.Triangles(),
		Rounds:   b.round,
	}, nil
}

// ============================================================================
// Phases
// ============================================================================

// scan lists the facets still holding points, in slot order, and finishes the hull when
// there are none. A hull that fails the manifold check is never finished.
func (b *Builder) scan() error {
	if b.Options.Verify {
		if err := b.mesh.Check(); err != nil {
			return err
		}
	}

	b.pending = b.pending[:0]
	for _, f := range b.mesh.Facets() {
		if f.Len() > 0 {
			b.pending = append(b.pending, f.Handle())
		}
	}
	if len(b.pending) > 0 {
		b.state = PICK
		return nil
	}

	// the final mesh is checked even when rounds are not
	if !b.Options.Verify {
		if err := b.mesh.Check(); err != nil {
			return err
		}
	}
	b.state = DONE
	vertices := len(b.mesh.VertexIndices())
	b.logger.Infow("hull done", "rounds", b.round, "vertices", vertices, "facets", b.mesh.Len(), "accepted", b.accepted)
	b.Events.emit(HullDoneEvent{Rounds: b.round, Vertices: vertices, Facets: b.mesh.Len()})
	b.Events.flush()
	return nil
}

// pick has every pending facet propose its furthest point.
func (b *Builder) pick() {
	workers := b.Options.Workers
	inner := max(1, workers/len(b.pending))

	b.candidates = make([]candidate, len(b.pending))
	parallel.ForEach(workers, len(b.pending), func(i int) {
		f, _ := b.mesh.Get(b.pending[i])
		apex, _ := f.Furthest(inner)
		b.candidates[i] = candidate{owner: b.pending[i], apex: apex}
	})
	b.state = RESERVE
}

// reserve finds the region of every candidate, then lets them claim their footprints.
// A candidate is accepted when it holds its whole footprint after the barrier.
func (b *Builder) reserve() error {
	workers := b.Options.Workers
	n := len(b.candidates)

	errs := make([]error, n)
	parallel.ForEach(workers, n, func(i int) {
		c := &b.candidates[i]
		c.region, errs[i] = b.mesh.FindRegion(c.owner, c.apex)
	})
	if err := multierr.Combine(errs...); err != nil {
		return err
	}

	parallel.ForEach(workers, n, func(i int) {
		b.mesh.Reserve(b.candidates[i].region)
	})
	parallel.ForEach(workers, n, func(i int) {
		c := &b.candidates[i]
		c.accepted = b.mesh.Holds(c.region)
	})

	for _, c := range b.candidates {
		if c.accepted {
			b.Events.emit(ApexAcceptedEvent{
				Round:   b.round,
				Apex:    c.apex.Index,
				Owner:   c.owner,
				Visible: len(c.region.Visible),
				Horizon: len(c.region.Horizon),
			})
		} else {
			b.Events.emit(ApexDeferredEvent{Round: b.round, Apex: c.apex.Index, Owner: c.owner})
		}
	}
	b.state = EXPAND
	return nil
}

// expand applies the accepted regions concurrently. Slots are allocated up front in
// candidate order and released after the barrier, so facet handles only depend on the
// input.
func (b *Builder) expand() error {
	workers := b.Options.Workers

	var winners []*candidate
	for i := range b.candidates {
		if b.candidates[i].accepted {
			winners = append(winners, &b.candidates[i])
		}
	}

	slots := make([][]mesh.Handle, len(winners))
	for k, c := range winners {
		slots[k] = b.mesh.Alloc(len(c.region.Horizon))
	}

	inner := max(1, workers/max(1, len(winners)))
	expansions := make([]mesh.Expansion, len(winners))
	errs := make([]error, len(winners))
	parallel.ForEach(workers, len(winners), func(k int) {
		expansions[k], errs[k] = b.mesh.Expand(winners[k].region, slots[k], inner)
	})
	if err := multierr.Combine(errs...); err != nil {
		return err
	}

	parallel.ForEach(workers, len(b.candidates), func(i int) {
		b.mesh.ResetReservations(b.candidates[i].region)
	})
	discarded := 0
	for _, e := range expansions {
		b.mesh.Release(e.Removed)
		discarded += e.Discarded
	}

	b.logger.Debugw("round",
		"round", b.round,
		"candidates", len(b.candidates),
		"accepted", len(winners),
		"discarded", discarded,
		"liveFacets", b.mesh.Len(),
		"pending", len(b.pending),
	)
	b.Events.emit(RoundDoneEvent{
		Round:      b.round,
		Accepted:   len(winners),
		Deferred:   len(b.candidates) - len(winners),
		Discarded:  discarded,
		LiveFacets: b.mesh.Len(),
	})
	b.Events.flush()

	b.accepted += len(winners)
	b.round++
	b.candidates = nil
	b.state = SCAN
	return nil
}

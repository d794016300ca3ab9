package mesh

import (
	"math"

	"go.uber.org/atomic"
)

// Unreserved is the value of a slot nobody has claimed.
const Unreserved = math.MaxUint64

// Reservation is a slot claimed by the smallest identity written to it during a round.
// Reserve is wait-free and idempotent, so concurrent claimants need no lock; the outcome
// is read after the round barrier with Reserved.
type Reservation struct {
	slot atomic.Uint64
}

// NewReservation returns an unclaimed slot.
func NewReservation() *Reservation {
	r := &Reservation{}
	r.Reset()
	return r
}

// Reset releases the slot.
func (r *Reservation) Reset() {
	r.slot.Store(Unreserved)
}

// Reserve writes id into the slot if it is smaller than the current holder.
func (r *Reservation) Reserve(id uint64) {
	for {
		cur := r.slot.Load()
		if id >= cur {
			return
		}
		if r.slot.CompareAndSwap(cur, id) {
			return
		}
	}
}

// Reserved reports whether id holds the slot.
func (r *Reservation) Reserved(id uint64) bool {
	return r.slot.Load() == id
}

// Holder returns the identity holding the slot, false when it is unclaimed.
func (r *Reservation) Holder() (uint64, bool) {
	id := r.slot.Load()
	return id, id != Unreserved
}

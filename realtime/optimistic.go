package realtime

import (
	"sync"

	"github.com/Dhyanvj/BuddyUp/models"
)

// TripAggregate is the client-side view of one trip: the trip row plus
// its live participants, as read in a single aggregate fetch.
type TripAggregate struct {
	Trip         models.Trip
	Participants []models.TripParticipant
}

func (a TripAggregate) clone() TripAggregate {
	out := a
	out.Participants = append([]models.TripParticipant(nil), a.Participants...)
	return out
}

// OptimisticView reconciles provisional client-side edits against the
// authoritative aggregate. A mutation applied with Apply renders
// immediately; it survives only until the next Confirm (server truth
// wins and the overlay is discarded) or Revert (the call failed and the
// last confirmed state is restored).
type OptimisticView struct {
	mu          sync.Mutex
	confirmed   TripAggregate
	provisional *TripAggregate
}

func NewOptimisticView(confirmed TripAggregate) *OptimisticView {
	return &OptimisticView{confirmed: confirmed.clone()}
}

// Apply runs mutate against a copy of the current snapshot and makes the
// result the provisional state.
func (v *OptimisticView) Apply(mutate func(*TripAggregate)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	base := v.confirmed
	if v.provisional != nil {
		base = *v.provisional
	}
	next := base.clone()
	mutate(&next)
	v.provisional = &next
}

// Confirm installs an authoritative aggregate. Any provisional overlay is
// discarded regardless of what it contained.
func (v *OptimisticView) Confirm(a TripAggregate) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.confirmed = a.clone()
	v.provisional = nil
}

// Revert drops the provisional overlay, falling back to the last
// confirmed state.
func (v *OptimisticView) Revert() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.provisional = nil
}

// Snapshot returns the state to render: provisional if present,
// confirmed otherwise.
func (v *OptimisticView) Snapshot() TripAggregate {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.provisional != nil {
		return v.provisional.clone()
	}
	return v.confirmed.clone()
}

// Reconciling reports whether a provisional overlay is outstanding.
func (v *OptimisticView) Reconciling() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.provisional != nil
}

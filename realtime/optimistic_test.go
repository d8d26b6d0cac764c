package realtime

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Dhyanvj/BuddyUp/models"
)

func seatAggregate(available int) TripAggregate {
	return TripAggregate{
		Trip: models.Trip{
			ID:             uuid.New(),
			TotalSeats:     3,
			AvailableSeats: available,
			Status:         models.TripStatusActive,
		},
	}
}

func TestApplyRendersImmediately(t *testing.T) {
	v := NewOptimisticView(seatAggregate(3))

	v.Apply(func(a *TripAggregate) {
		a.Trip.AvailableSeats -= 2
		a.Participants = append(a.Participants, models.TripParticipant{
			Status:         models.ParticipantStatusAccepted,
			SeatsRequested: 2,
		})
	})

	snap := v.Snapshot()
	require.Equal(t, 1, snap.Trip.AvailableSeats)
	require.Len(t, snap.Participants, 1)
	require.True(t, v.Reconciling())
}

func TestConfirmDiscardsOverlay(t *testing.T) {
	v := NewOptimisticView(seatAggregate(3))
	v.Apply(func(a *TripAggregate) { a.Trip.AvailableSeats = 0 })

	// Server truth disagrees with the guess; it wins.
	v.Confirm(seatAggregate(2))

	require.Equal(t, 2, v.Snapshot().Trip.AvailableSeats)
	require.False(t, v.Reconciling())
}

func TestRevertRestoresConfirmed(t *testing.T) {
	v := NewOptimisticView(seatAggregate(3))
	v.Apply(func(a *TripAggregate) { a.Trip.Status = models.TripStatusCancelled })

	v.Revert()

	require.Equal(t, models.TripStatusActive, v.Snapshot().Trip.Status)
	require.False(t, v.Reconciling())
}

func TestApplyStacksOnProvisional(t *testing.T) {
	v := NewOptimisticView(seatAggregate(3))
	v.Apply(func(a *TripAggregate) { a.Trip.AvailableSeats-- })
	v.Apply(func(a *TripAggregate) { a.Trip.AvailableSeats-- })

	require.Equal(t, 1, v.Snapshot().Trip.AvailableSeats)

	v.Revert()
	require.Equal(t, 3, v.Snapshot().Trip.AvailableSeats)
}

func TestSnapshotIsACopy(t *testing.T) {
	v := NewOptimisticView(TripAggregate{
		Trip:         models.Trip{AvailableSeats: 3},
		Participants: []models.TripParticipant{{Status: models.ParticipantStatusPending}},
	})

	snap := v.Snapshot()
	snap.Participants[0].Status = models.ParticipantStatusAccepted

	require.Equal(t, models.ParticipantStatusPending, v.Snapshot().Participants[0].Status)
}

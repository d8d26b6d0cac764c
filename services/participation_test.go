package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

type testEnv struct {
	st      *store.MemStore
	svc     *Participation
	creator uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemStore()
	ctx := context.Background()

	creator := &models.User{FullName: "Test Creator"}
	require.NoError(t, st.SaveUser(ctx, creator))
	system := &models.User{ID: models.SystemUserID, FullName: "BuddyUp"}
	require.NoError(t, st.SaveUser(ctx, system))

	return &testEnv{
		st:      st,
		svc:     NewParticipation(st, NewFanout(st, nil), nil),
		creator: creator.ID,
	}
}

func (e *testEnv) newRider(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &models.User{FullName: name}
	require.NoError(t, e.st.SaveUser(context.Background(), u))
	return u.ID
}

func (e *testEnv) newTrip(t *testing.T, totalSeats int) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		CreatorID:      e.creator,
		Title:          "Airport Run",
		PickupLocation: "Downtown",
		DepartureTime:  time.Now().Add(48 * time.Hour),
		ServiceType:    models.ServiceTypeUber,
		TotalSeats:     totalSeats,
		AvailableSeats: totalSeats,
		Status:         models.TripStatusActive,
	}
	require.NoError(t, e.st.CreateTrip(context.Background(), trip))
	return trip
}

func (e *testEnv) seats(t *testing.T, tripID uuid.UUID) int {
	t.Helper()
	trip, err := e.st.GetTrip(context.Background(), tripID)
	require.NoError(t, err)
	return trip.AvailableSeats
}

func TestRequestToJoinCreatesPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusPending, part.Status)
	require.Equal(t, 2, part.SeatsRequested)

	// No seats move at request time.
	require.Equal(t, 3, env.seats(t, trip.ID))

	// The creator hears about it.
	ns, err := env.st.ListNotifications(ctx, env.creator, 10)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	require.Equal(t, models.NotificationTripRequest, ns[0].Type)
}

func TestRequestToJoinValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	_, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 0)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = env.svc.RequestToJoin(ctx, trip.ID, rider, 4)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = env.svc.RequestToJoin(ctx, trip.ID, env.creator, 1)
	require.ErrorIs(t, err, store.ErrValidation)

	_, err = env.svc.RequestToJoin(ctx, uuid.New(), rider, 1)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRequestToJoinTerminalTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	require.NoError(t, env.svc.Cancel(ctx, trip.ID, env.creator))

	_, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestRequestToJoinIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	first, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	second, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 2, second.SeatsRequested)

	parts, err := env.st.ListParticipants(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
}

// Seat accounting under accept, per the admission-control model: pending
// requests may oversubscribe, the accept step enforces capacity.
func TestAcceptReservesSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	x := env.newRider(t, "Rider X")
	y := env.newRider(t, "Rider Y")

	partX, err := env.svc.RequestToJoin(ctx, trip.ID, x, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, partX.ID, env.creator))
	require.Equal(t, 1, env.seats(t, trip.ID))

	got, err := env.st.GetParticipant(ctx, partX.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusAccepted, got.Status)

	// Y can still request 2 seats; the request itself never checks.
	partY, err := env.svc.RequestToJoin(ctx, trip.ID, y, 2)
	require.NoError(t, err)

	// Accepting Y must fail: only 1 seat left.
	err = env.svc.Accept(ctx, trip.ID, partY.ID, env.creator)
	require.ErrorIs(t, err, store.ErrCapacityExceeded)

	// Y stays pending and the counter is untouched.
	got, err = env.st.GetParticipant(ctx, partY.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusPending, got.Status)
	require.Equal(t, 1, env.seats(t, trip.ID))
}

func TestAcceptAuthorization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")
	stranger := env.newRider(t, "Stranger")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)

	err = env.svc.Accept(ctx, trip.ID, part.ID, stranger)
	require.ErrorIs(t, err, store.ErrForbidden)
}

func TestAcceptIsNotRepeatable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))

	// A second accept must not take seats twice.
	err = env.svc.Accept(ctx, trip.ID, part.ID, env.creator)
	require.ErrorIs(t, err, store.ErrConflict)
	require.Equal(t, 2, env.seats(t, trip.ID))
}

func TestConcurrentAccepts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 2)

	partIDs := make([]uuid.UUID, 5)
	for i := range partIDs {
		rider := env.newRider(t, "Rider")
		part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
		require.NoError(t, err)
		partIDs[i] = part.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, len(partIDs))
	for i, id := range partIDs {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			errs[i] = env.svc.Accept(ctx, trip.ID, id, env.creator)
		}(i, id)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			require.ErrorIs(t, err, store.ErrCapacityExceeded)
		}
	}
	require.Equal(t, 2, accepted)
	require.Equal(t, 0, env.seats(t, trip.ID))
}

func TestRejectMovesNoSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Reject(ctx, trip.ID, part.ID, env.creator))

	got, err := env.st.GetParticipant(ctx, part.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusRejected, got.Status)
	require.Equal(t, 3, env.seats(t, trip.ID))

	ns, err := env.st.ListNotifications(ctx, rider, 10)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	require.Equal(t, models.NotificationRequestRejected, ns[0].Type)
}

// Scenario: accepted participant leaves and their seats come back.
func TestLeaveCreditsSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	require.Equal(t, 1, env.seats(t, trip.ID))

	require.NoError(t, env.svc.Leave(ctx, trip.ID, rider))
	require.Equal(t, 3, env.seats(t, trip.ID))

	got, err := env.st.GetParticipant(ctx, part.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusLeft, got.Status)
}

func TestLeaveFromPendingIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	_, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)

	err = env.svc.Leave(ctx, trip.ID, rider)
	require.ErrorIs(t, err, store.ErrConflict)
	require.Equal(t, 3, env.seats(t, trip.ID))
}

func TestRemovePendingMovesNoSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Remove(ctx, trip.ID, part.ID, env.creator, ""))

	got, err := env.st.GetParticipant(ctx, part.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusRemoved, got.Status)
	require.Equal(t, 3, env.seats(t, trip.ID))
}

func TestRemoveAcceptedCreditsSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	require.NoError(t, env.svc.Remove(ctx, trip.ID, part.ID, env.creator, "no-show"))

	require.Equal(t, 3, env.seats(t, trip.ID))

	ns, err := env.st.ListNotifications(ctx, rider, 10)
	require.NoError(t, err)
	var removed *models.Notification
	for i := range ns {
		if ns[i].Type == models.NotificationParticipantRemoved {
			removed = &ns[i]
		}
	}
	require.NotNil(t, removed)
	require.Contains(t, removed.Body, "no-show")
}

func TestRemoveTerminalParticipantIsConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Reject(ctx, trip.ID, part.ID, env.creator))

	err = env.svc.Remove(ctx, trip.ID, part.ID, env.creator, "")
	require.ErrorIs(t, err, store.ErrConflict)
}

// Scenario: everyone on the trip hears about a cancellation once, the
// creator not at all.
func TestCancelNotifiesEveryParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 4)
	a := env.newRider(t, "Rider A")
	b := env.newRider(t, "Rider B")
	c := env.newRider(t, "Rider C")

	partA, err := env.svc.RequestToJoin(ctx, trip.ID, a, 1)
	require.NoError(t, err)
	partB, err := env.svc.RequestToJoin(ctx, trip.ID, b, 1)
	require.NoError(t, err)
	_, err = env.svc.RequestToJoin(ctx, trip.ID, c, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, partA.ID, env.creator))
	require.NoError(t, env.svc.Accept(ctx, trip.ID, partB.ID, env.creator))

	require.NoError(t, env.svc.Cancel(ctx, trip.ID, env.creator))

	got, err := env.st.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Equal(t, models.TripStatusCancelled, got.Status)

	for _, rider := range []uuid.UUID{a, b, c} {
		ns, err := env.st.ListNotifications(ctx, rider, 10)
		require.NoError(t, err)
		cancelled := 0
		for _, n := range ns {
			if n.Type == models.NotificationTripCancelled {
				cancelled++
			}
		}
		require.Equal(t, 1, cancelled)
	}
	ns, err := env.st.ListNotifications(ctx, env.creator, 50)
	require.NoError(t, err)
	for _, n := range ns {
		require.NotEqual(t, models.NotificationTripCancelled, n.Type)
	}
}

func TestCancelIsTerminal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)

	require.NoError(t, env.svc.Cancel(ctx, trip.ID, env.creator))
	require.ErrorIs(t, env.svc.Cancel(ctx, trip.ID, env.creator), store.ErrConflict)
	require.ErrorIs(t, env.svc.Complete(ctx, trip.ID, env.creator), store.ErrConflict)
}

func TestCompleteNotifiesAcceptedAndCountsTrips(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	accepted := env.newRider(t, "Accepted Rider")
	pending := env.newRider(t, "Pending Rider")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, accepted, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	_, err = env.svc.RequestToJoin(ctx, trip.ID, pending, 1)
	require.NoError(t, err)

	require.NoError(t, env.svc.Complete(ctx, trip.ID, env.creator))

	ns, err := env.st.ListNotifications(ctx, accepted, 10)
	require.NoError(t, err)
	completed := 0
	for _, n := range ns {
		if n.Type == models.NotificationTripCompleted {
			completed++
		}
	}
	require.Equal(t, 1, completed)

	ns, err = env.st.ListNotifications(ctx, pending, 10)
	require.NoError(t, err)
	for _, n := range ns {
		require.NotEqual(t, models.NotificationTripCompleted, n.Type)
	}

	creator, err := env.st.GetUser(ctx, env.creator)
	require.NoError(t, err)
	require.Equal(t, 1, creator.TotalTrips)
	rider, err := env.st.GetUser(ctx, accepted)
	require.NoError(t, err)
	require.Equal(t, 1, rider.TotalTrips)
	waiting, err := env.st.GetUser(ctx, pending)
	require.NoError(t, err)
	require.Equal(t, 0, waiting.TotalTrips)
}

// Scenario: a user who left re-requests and the same row comes back as
// pending, with no duplicate.
func TestReRequestAfterLeaveReusesRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	require.NoError(t, env.svc.Leave(ctx, trip.ID, rider))

	again, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.Equal(t, part.ID, again.ID)
	require.Equal(t, models.ParticipantStatusPending, again.Status)
	require.Equal(t, 1, again.SeatsRequested)

	parts, err := env.st.ListParticipants(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	require.Equal(t, 3, env.seats(t, trip.ID))
}

// Re-requesting while accepted forfeits the reservation: the seats come
// back in the same transaction that resets the row.
func TestReRequestFromAcceptedReleasesSeats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 2)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	require.Equal(t, 1, env.seats(t, trip.ID))

	again, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.Equal(t, part.ID, again.ID)
	require.Equal(t, models.ParticipantStatusPending, again.Status)
	require.Equal(t, 3, env.seats(t, trip.ID))
}

func TestAcceptWritesSystemMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))

	msgs, err := env.st.ListMessages(ctx, trip.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, models.MessageTypeSystem, msgs[0].MessageType)
	require.Equal(t, models.SystemUserID, msgs[0].SenderID)
	require.Contains(t, msgs[0].Content, "Rider One")
}

// gatedStore holds Accept's transaction at the door until the gate
// closes, so a competing write can commit in between.
type gatedStore struct {
	store.Store
	gate chan struct{}
}

func (g *gatedStore) Transact(ctx context.Context, fn func(store.Store) error) error {
	<-g.gate
	return g.Store.Transact(ctx, fn)
}

func TestAcceptDebitsCurrentSeatCount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 5)
	rider := env.newRider(t, "Rider One")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)

	gate := make(chan struct{})
	slow := NewParticipation(&gatedStore{Store: env.st, gate: gate}, NewFanout(env.st, nil), nil)

	done := make(chan error, 1)
	go func() { done <- slow.Accept(ctx, trip.ID, part.ID, env.creator) }()

	// The rider bumps the request to three seats while the accept is in
	// flight. The row stays pending, so the accept still goes through
	// and must debit the new seat count, not the one it first read.
	_, err = env.svc.RequestToJoin(ctx, trip.ID, rider, 3)
	require.NoError(t, err)

	close(gate)
	require.NoError(t, <-done)

	got, err := env.st.GetParticipant(ctx, part.ID)
	require.NoError(t, err)
	require.Equal(t, models.ParticipantStatusAccepted, got.Status)
	require.Equal(t, 3, got.SeatsRequested)
	require.Equal(t, 2, env.seats(t, trip.ID))
}

type failingListStore struct {
	store.Store
}

func (f *failingListStore) ListParticipants(ctx context.Context, tripID uuid.UUID, statuses ...string) ([]models.TripParticipant, error) {
	return nil, store.ErrTransient
}

func TestCancelSurvivesFanoutListFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)

	// The fan-out is best-effort once the status flipped. A failure to
	// list the recipients must not surface as a cancel error.
	svc := NewParticipation(&failingListStore{Store: env.st}, NewFanout(env.st, nil), nil)
	require.NoError(t, svc.Cancel(ctx, trip.ID, env.creator))

	got, err := env.st.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Equal(t, models.TripStatusCancelled, got.Status)
}

func TestCompleteSurvivesFanoutListFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	trip := env.newTrip(t, 3)

	svc := NewParticipation(&failingListStore{Store: env.st}, NewFanout(env.st, nil), nil)
	require.NoError(t, svc.Complete(ctx, trip.ID, env.creator))

	got, err := env.st.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Equal(t, models.TripStatusCompleted, got.Status)
}

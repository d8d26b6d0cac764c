package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()
	f := NewFanout(st, nil)

	rider := uuid.New()
	tripID := uuid.New()
	f.Notify(ctx, []uuid.UUID{rider, rider, rider}, uuid.Nil, tripID,
		models.NotificationTripUpdate, "Trip Updated", "Details changed.")

	ns, err := st.ListNotifications(ctx, rider, 10)
	require.NoError(t, err)
	require.Len(t, ns, 1)
	require.Equal(t, tripID, *ns[0].TripID)
}

func TestNotifySkipsActor(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()
	f := NewFanout(st, nil)

	actor := uuid.New()
	other := uuid.New()
	f.Notify(ctx, []uuid.UUID{actor, other}, actor, uuid.New(),
		models.NotificationTripCancelled, "Trip Cancelled", "Cancelled.")

	ns, err := st.ListNotifications(ctx, actor, 10)
	require.NoError(t, err)
	require.Empty(t, ns)

	ns, err = st.ListNotifications(ctx, other, 10)
	require.NoError(t, err)
	require.Len(t, ns, 1)
}

func TestNotifyDropsNilRecipients(t *testing.T) {
	st := store.NewMemStore()
	ctx := context.Background()
	f := NewFanout(st, nil)

	f.Notify(ctx, []uuid.UUID{uuid.Nil}, uuid.New(), uuid.New(),
		models.NotificationNewMessage, "New Message", "hi")

	ns, err := st.ListNotifications(ctx, uuid.Nil, 10)
	require.NoError(t, err)
	require.Empty(t, ns)
}

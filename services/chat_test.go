package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

func TestChatMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat := NewChat(env.st, NewFanout(env.st, nil), nil)

	trip := env.newTrip(t, 3)
	accepted := env.newRider(t, "Accepted Rider")
	pending := env.newRider(t, "Pending Rider")
	stranger := env.newRider(t, "Stranger")

	part, err := env.svc.RequestToJoin(ctx, trip.ID, accepted, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	_, err = env.svc.RequestToJoin(ctx, trip.ID, pending, 1)
	require.NoError(t, err)

	// Creator and accepted participant can write.
	_, err = chat.Send(ctx, trip.ID, env.creator, "leaving from the north exit")
	require.NoError(t, err)
	_, err = chat.Send(ctx, trip.ID, accepted, "on my way")
	require.NoError(t, err)

	// Pending requesters and strangers cannot.
	_, err = chat.Send(ctx, trip.ID, pending, "hello?")
	require.ErrorIs(t, err, store.ErrForbidden)
	_, err = chat.ListMessages(ctx, trip.ID, stranger)
	require.ErrorIs(t, err, store.ErrForbidden)

	msgs, err := chat.ListMessages(ctx, trip.ID, accepted)
	require.NoError(t, err)
	// The accept wrote a system message before the two text ones.
	require.Len(t, msgs, 3)
	require.Equal(t, models.MessageTypeSystem, msgs[0].MessageType)
	require.Equal(t, "leaving from the north exit", msgs[1].Content)
}

func TestChatSendNotifiesOtherMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat := NewChat(env.st, NewFanout(env.st, nil), nil)

	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")
	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))

	_, err = chat.Send(ctx, trip.ID, rider, "see you at eight")
	require.NoError(t, err)

	ns, err := env.st.ListNotifications(ctx, env.creator, 10)
	require.NoError(t, err)
	var found *models.Notification
	for i := range ns {
		if ns[i].Type == models.NotificationNewMessage {
			found = &ns[i]
		}
	}
	require.NotNil(t, found)
	require.Contains(t, found.Body, "Rider One")
	require.Contains(t, found.Body, "see you at eight")

	// The sender does not hear about their own message.
	ns, err = env.st.ListNotifications(ctx, rider, 10)
	require.NoError(t, err)
	for _, n := range ns {
		require.NotEqual(t, models.NotificationNewMessage, n.Type)
	}
}

func TestChatSendValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat := NewChat(env.st, NewFanout(env.st, nil), nil)
	trip := env.newTrip(t, 3)

	_, err := chat.Send(ctx, trip.ID, env.creator, "   ")
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestChatMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	chat := NewChat(env.st, NewFanout(env.st, nil), nil)

	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")
	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))

	_, err = chat.Send(ctx, trip.ID, env.creator, "first")
	require.NoError(t, err)

	require.NoError(t, chat.MarkRead(ctx, trip.ID, rider))

	msgs, err := chat.ListMessages(ctx, trip.ID, rider)
	require.NoError(t, err)
	for _, m := range msgs {
		require.Contains(t, string(m.ReadBy), rider.String())
	}
}

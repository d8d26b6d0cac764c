package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

func completedTripWithRider(t *testing.T, env *testEnv) (*models.Trip, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	trip := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")
	part, err := env.svc.RequestToJoin(ctx, trip.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, trip.ID, part.ID, env.creator))
	require.NoError(t, env.svc.Complete(ctx, trip.ID, env.creator))
	return trip, rider
}

func TestCreateReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviews := NewReviews(env.st)
	trip, rider := completedTripWithRider(t, env)

	review, err := reviews.Create(ctx, rider, CreateReviewInput{
		TripID:     trip.ID,
		RevieweeID: env.creator,
		Rating:     5,
		Comment:    "Smooth ride",
		Tags:       []string{"punctual", "friendly"},
	})
	require.NoError(t, err)
	require.Equal(t, 5, review.Rating)

	// The reviewee's aggregate rating refreshes.
	creator, err := env.st.GetUser(ctx, env.creator)
	require.NoError(t, err)
	require.Equal(t, 5.0, creator.Rating)

	listed, total, err := reviews.ListForUser(ctx, env.creator, 1, 25)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, listed, 1)
	require.Contains(t, string(listed[0].Tags), "punctual")
}

func TestReviewOnlyOncePerPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviews := NewReviews(env.st)
	trip, rider := completedTripWithRider(t, env)

	input := CreateReviewInput{TripID: trip.ID, RevieweeID: env.creator, Rating: 4}
	_, err := reviews.Create(ctx, rider, input)
	require.NoError(t, err)
	_, err = reviews.Create(ctx, rider, input)
	require.ErrorIs(t, err, store.ErrConflict)
}

func TestReviewGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reviews := NewReviews(env.st)

	// Active trip: too early.
	active := env.newTrip(t, 3)
	rider := env.newRider(t, "Rider One")
	part, err := env.svc.RequestToJoin(ctx, active.ID, rider, 1)
	require.NoError(t, err)
	require.NoError(t, env.svc.Accept(ctx, active.ID, part.ID, env.creator))

	_, err = reviews.Create(ctx, rider, CreateReviewInput{
		TripID: active.ID, RevieweeID: env.creator, Rating: 5,
	})
	require.ErrorIs(t, err, store.ErrConflict)

	trip, rode := completedTripWithRider(t, env)

	// Self review.
	_, err = reviews.Create(ctx, rode, CreateReviewInput{
		TripID: trip.ID, RevieweeID: rode, Rating: 5,
	})
	require.ErrorIs(t, err, store.ErrValidation)

	// Reviewing someone who was never on the trip.
	outsider := env.newRider(t, "Outsider")
	_, err = reviews.Create(ctx, rode, CreateReviewInput{
		TripID: trip.ID, RevieweeID: outsider, Rating: 5,
	})
	require.ErrorIs(t, err, store.ErrValidation)

	// An outsider reviewing a rider.
	_, err = reviews.Create(ctx, outsider, CreateReviewInput{
		TripID: trip.ID, RevieweeID: rode, Rating: 1,
	})
	require.ErrorIs(t, err, store.ErrValidation)
}

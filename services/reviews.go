package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

// CreateReviewInput is the post-trip review form.
type CreateReviewInput struct {
	TripID     uuid.UUID `json:"tripID" validate:"required"`
	RevieweeID uuid.UUID `json:"revieweeID" validate:"required"`
	Rating     int       `json:"rating" validate:"required,min=1,max=5"`
	Comment    string    `json:"comment" validate:"max=1000"`
	Tags       []string  `json:"tags" validate:"max=10"`
}

// Reviews lets trip members rate each other once a trip has completed.
type Reviews struct {
	store store.Store
}

func NewReviews(st store.Store) *Reviews {
	return &Reviews{store: st}
}

// rode reports whether the user was on the trip: its creator or an
// accepted participant.
func (r *Reviews) rode(ctx context.Context, trip *models.Trip, userID uuid.UUID) bool {
	if trip.CreatorID == userID {
		return true
	}
	part, err := r.store.GetParticipantByUser(ctx, trip.ID, userID)
	return err == nil && part.Status == models.ParticipantStatusAccepted
}

func (r *Reviews) Create(ctx context.Context, reviewerID uuid.UUID, input CreateReviewInput) (*models.Review, error) {
	if input.RevieweeID == reviewerID {
		return nil, fmt.Errorf("%w: you cannot review yourself", store.ErrValidation)
	}

	trip, err := r.store.GetTrip(ctx, input.TripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusCompleted {
		return nil, fmt.Errorf("%w: reviews open once the trip is completed", store.ErrConflict)
	}
	if !r.rode(ctx, trip, reviewerID) || !r.rode(ctx, trip, input.RevieweeID) {
		return nil, fmt.Errorf("%w: both users must have been on the trip", store.ErrValidation)
	}

	review := &models.Review{
		TripID:     input.TripID,
		ReviewerID: reviewerID,
		RevieweeID: input.RevieweeID,
		Rating:     input.Rating,
		Comment:    input.Comment,
	}
	if len(input.Tags) > 0 {
		raw, err := json.Marshal(input.Tags)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", store.ErrValidation, err)
		}
		review.Tags = raw
	}
	if err := r.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	if err := r.store.RecalculateUserRating(ctx, input.RevieweeID); err != nil {
		// The rating aggregate self-heals on the reviewee's next review.
		return review, nil
	}
	return review, nil
}

func (r *Reviews) ListForUser(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Review, int64, error) {
	return r.store.ListUserReviews(ctx, userID, page, perPage)
}

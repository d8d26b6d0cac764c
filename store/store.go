package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
)

// TripWithDistance is the nearby-search result shape: trip fields plus
// the distance from the search origin.
type TripWithDistance struct {
	models.Trip
	DistanceKm float64 `json:"distanceKm"`
}

// Store is the persistence boundary for the trip lifecycle. The seat
// counter methods are conditional updates executed at the store, not
// read-then-write: zero affected rows reports the reason as an error
// kind from this package.
type Store interface {
	// Transact runs fn against a transactional view of the store. If fn
	// returns an error every write inside it is rolled back.
	Transact(ctx context.Context, fn func(Store) error) error

	// Trips.
	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	// GetTripAggregate loads the trip with its creator and its live
	// (pending or accepted) participants, each with their user.
	GetTripAggregate(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	SaveTrip(ctx context.Context, trip *models.Trip) error
	// UpdateTripStatus transitions from -> to; ErrConflict when the trip
	// is not in the from status (terminal states stay terminal).
	UpdateTripStatus(ctx context.Context, id uuid.UUID, from, to string) error
	// AdjustAvailableSeats atomically applies delta, holding
	// 0 <= available_seats <= total_seats. A negative delta that would go
	// below zero reports ErrCapacityExceeded; a positive delta that would
	// exceed total_seats reports ErrConflict.
	AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) error
	SearchTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripWithDistance, error)
	ListTripsDeparting(ctx context.Context, from, to time.Time) ([]models.Trip, error)
	// ListUserTrips returns trips the user created plus participations in
	// pending or accepted status with their trips preloaded.
	ListUserTrips(ctx context.Context, userID uuid.UUID) ([]models.Trip, []models.TripParticipant, error)
	IncrementTotalTrips(ctx context.Context, userIDs []uuid.UUID) error

	// Participants.
	// UpsertParticipant inserts the row or, on (trip, user) conflict,
	// resets the existing row's seats, status and joined_at. The row's ID
	// is populated either way.
	UpsertParticipant(ctx context.Context, p *models.TripParticipant) error
	SaveParticipant(ctx context.Context, p *models.TripParticipant) error
	GetParticipant(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error)
	// GetParticipantForUpdate reads the row with a row lock. Inside a
	// transaction this pins seats_requested against concurrent
	// re-requests until the transaction commits.
	GetParticipantForUpdate(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error)
	GetParticipantByUser(ctx context.Context, tripID, userID uuid.UUID) (*models.TripParticipant, error)
	// ListParticipants filters by status when statuses are given,
	// otherwise returns every row for the trip.
	ListParticipants(ctx context.Context, tripID uuid.UUID, statuses ...string) ([]models.TripParticipant, error)
	// UpdateParticipantStatus transitions to to only when the current
	// status is one of from; ErrConflict otherwise. This is the guard
	// against double-accept races.
	UpdateParticipantStatus(ctx context.Context, id uuid.UUID, from []string, to string) error

	// Notifications.
	CreateNotifications(ctx context.Context, ns []models.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, id, userID uuid.UUID) error
	DeleteAllNotifications(ctx context.Context, userID uuid.UUID) error

	// Messages.
	CreateMessage(ctx context.Context, m *models.Message) error
	ListMessages(ctx context.Context, tripID uuid.UUID, limit int) ([]models.Message, error)
	// MarkMessagesRead adds userID to the read_by set of every message in
	// the trip that does not carry it yet.
	MarkMessagesRead(ctx context.Context, tripID, userID uuid.UUID) error

	// Reviews.
	CreateReview(ctx context.Context, r *models.Review) error
	// ListUserReviews pages through the reviews written about a user,
	// newest first, and reports the total row count.
	ListUserReviews(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Review, int64, error)
	// RecalculateUserRating refreshes the reviewee's aggregate rating.
	RecalculateUserRating(ctx context.Context, userID uuid.UUID) error

	// Users.
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	// MarkReminderSent records that reminders for (trip, window) went out
	// and reports whether this call was the first to do so.
	MarkReminderSent(ctx context.Context, tripID uuid.UUID, window string) (bool, error)
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/store"
)

// CreateTripInput is the validated trip creation form.
type CreateTripInput struct {
	Title           string    `json:"title" validate:"required,max=120"`
	Description     string    `json:"description" validate:"max=1000"`
	PickupLocation  string    `json:"pickupLocation" validate:"required,max=256"`
	PickupLat       float64   `json:"pickupLat" validate:"min=-90,max=90"`
	PickupLng       float64   `json:"pickupLng" validate:"min=-180,max=180"`
	DropoffLocation string    `json:"dropoffLocation" validate:"required,max=256"`
	DropoffLat      float64   `json:"dropoffLat" validate:"min=-90,max=90"`
	DropoffLng      float64   `json:"dropoffLng" validate:"min=-180,max=180"`
	DepartureTime   time.Time `json:"departureTime" validate:"required"`
	ServiceType     string    `json:"serviceType" validate:"required,oneof=uber bolt lyft other"`
	TotalSeats      int       `json:"totalSeats" validate:"required,min=1,max=8"`
	EstimatedCost   *float64  `json:"estimatedCost"`
}

// EditTripInput carries the fields a creator may change after creation.
// Seat totals are fixed for the life of the trip.
type EditTripInput struct {
	Title           string    `json:"title" validate:"required,max=120"`
	Description     string    `json:"description" validate:"max=1000"`
	PickupLocation  string    `json:"pickupLocation" validate:"required,max=256"`
	PickupLat       float64   `json:"pickupLat" validate:"min=-90,max=90"`
	PickupLng       float64   `json:"pickupLng" validate:"min=-180,max=180"`
	DropoffLocation string    `json:"dropoffLocation" validate:"required,max=256"`
	DropoffLat      float64   `json:"dropoffLat" validate:"min=-90,max=90"`
	DropoffLng      float64   `json:"dropoffLng" validate:"min=-180,max=180"`
	DepartureTime   time.Time `json:"departureTime" validate:"required"`
	EstimatedCost   *float64  `json:"estimatedCost"`
}

// Trips handles trip creation and edits. Participation state lives in
// Participation; this service never touches the seat counter beyond the
// initial available = total.
type Trips struct {
	store  store.Store
	fanout *Fanout
	feed   realtime.Publisher
}

func NewTrips(st store.Store, fanout *Fanout, feed realtime.Publisher) *Trips {
	return &Trips{store: st, fanout: fanout, feed: feed}
}

func (t *Trips) Create(ctx context.Context, creatorID uuid.UUID, input CreateTripInput) (*models.Trip, error) {
	if !input.DepartureTime.After(time.Now()) {
		return nil, fmt.Errorf("%w: departure time must be in the future", store.ErrValidation)
	}

	trip := &models.Trip{
		CreatorID:       creatorID,
		Title:           input.Title,
		Description:     input.Description,
		PickupLocation:  input.PickupLocation,
		PickupLat:       input.PickupLat,
		PickupLng:       input.PickupLng,
		DropoffLocation: input.DropoffLocation,
		DropoffLat:      input.DropoffLat,
		DropoffLng:      input.DropoffLng,
		DepartureTime:   input.DepartureTime,
		ServiceType:     input.ServiceType,
		TotalSeats:      input.TotalSeats,
		AvailableSeats:  input.TotalSeats,
		EstimatedCost:   input.EstimatedCost,
		Status:          models.TripStatusActive,
	}
	if err := t.store.CreateTrip(ctx, trip); err != nil {
		return nil, err
	}

	if t.feed != nil {
		t.feed.Publish(realtime.Event{
			Table:     "trips",
			Op:        realtime.OpInsert,
			TripID:    trip.ID,
			CreatorID: creatorID,
		})
	}
	return trip, nil
}

// Edit updates an active trip and tells the live participants the
// details changed.
func (t *Trips) Edit(ctx context.Context, tripID, actorID uuid.UUID, input EditTripInput) (*models.Trip, error) {
	trip, err := t.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.CreatorID != actorID {
		return nil, fmt.Errorf("%w: only the trip creator can edit the trip", store.ErrForbidden)
	}
	if trip.Status != models.TripStatusActive {
		return nil, fmt.Errorf("%w: trip is %s", store.ErrConflict, trip.Status)
	}

	trip.Title = input.Title
	trip.Description = input.Description
	trip.PickupLocation = input.PickupLocation
	trip.PickupLat = input.PickupLat
	trip.PickupLng = input.PickupLng
	trip.DropoffLocation = input.DropoffLocation
	trip.DropoffLat = input.DropoffLat
	trip.DropoffLng = input.DropoffLng
	trip.DepartureTime = input.DepartureTime
	trip.EstimatedCost = input.EstimatedCost
	if err := t.store.SaveTrip(ctx, trip); err != nil {
		return nil, err
	}

	accepted, err := t.store.ListParticipants(ctx, tripID, models.ParticipantStatusAccepted)
	if err != nil {
		log.Printf("trips: listing participants for update fan-out: %v", err)
	} else {
		recipients := make([]uuid.UUID, 0, len(accepted))
		for _, part := range accepted {
			recipients = append(recipients, part.UserID)
		}
		t.fanout.Notify(ctx, recipients, actorID, tripID,
			models.NotificationTripUpdate,
			"Trip Updated",
			fmt.Sprintf("The details of %q have changed.", trip.Title))
	}
	if t.feed != nil {
		t.feed.Publish(realtime.Event{
			Table:     "trips",
			Op:        realtime.OpUpdate,
			TripID:    trip.ID,
			CreatorID: trip.CreatorID,
		})
	}
	return trip, nil
}

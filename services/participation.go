package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/store"
)

// Participation owns the join-request lifecycle and is the only writer of
// a trip's seat counter. Seats are reserved on acceptance, not on
// request: pending requests may sum past the available seats, and the
// accept step is the admission-control gate.
type Participation struct {
	store  store.Store
	fanout *Fanout
	feed   realtime.Publisher
}

func NewParticipation(st store.Store, fanout *Fanout, feed realtime.Publisher) *Participation {
	return &Participation{store: st, fanout: fanout, feed: feed}
}

func (p *Participation) publish(table string, op realtime.Op, trip *models.Trip, userID uuid.UUID) {
	if p.feed == nil {
		return
	}
	p.feed.Publish(realtime.Event{
		Table:     table,
		Op:        op,
		TripID:    trip.ID,
		CreatorID: trip.CreatorID,
		UserID:    userID,
	})
}

func (p *Participation) systemMessage(ctx context.Context, tripID uuid.UUID, content string) {
	msg := models.Message{
		TripID:      tripID,
		SenderID:    models.SystemUserID,
		Content:     content,
		MessageType: models.MessageTypeSystem,
	}
	if err := p.store.CreateMessage(ctx, &msg); err != nil {
		// Chat history is best-effort decoration on a transition that
		// already committed.
		return
	}
}

func (p *Participation) userName(ctx context.Context, id uuid.UUID) string {
	user, err := p.store.GetUser(ctx, id)
	if err != nil || user.FullName == "" {
		return "A participant"
	}
	return user.FullName
}

// RequestToJoin creates or resets the caller's participant row to
// pending. The upsert keyed on (trip, user) makes the call idempotent and
// lets a user who previously left re-request without a duplicate row.
func (p *Participation) RequestToJoin(ctx context.Context, tripID, userID uuid.UUID, seats int) (*models.TripParticipant, error) {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.Status != models.TripStatusActive {
		return nil, fmt.Errorf("%w: trip is %s", store.ErrConflict, trip.Status)
	}
	if seats < 1 || seats > trip.TotalSeats {
		return nil, fmt.Errorf("%w: seats must be between 1 and %d", store.ErrValidation, trip.TotalSeats)
	}
	if trip.CreatorID == userID {
		return nil, fmt.Errorf("%w: the creator already occupies a seat", store.ErrValidation)
	}

	var row *models.TripParticipant
	err = p.store.Transact(ctx, func(tx store.Store) error {
		existing, err := tx.GetParticipantByUser(ctx, tripID, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err == nil && existing.Status == models.ParticipantStatusAccepted {
			// Re-requesting from accepted forfeits the reservation: the
			// seats go back before the row resets, keeping the counter
			// equal to total minus accepted seats.
			if err := tx.UpdateParticipantStatus(ctx, existing.ID,
				[]string{models.ParticipantStatusAccepted}, models.ParticipantStatusPending); err != nil {
				return err
			}
			if err := tx.AdjustAvailableSeats(ctx, tripID, existing.SeatsRequested); err != nil {
				return err
			}
			existing.Status = models.ParticipantStatusPending
			existing.SeatsRequested = seats
			existing.JoinedAt = time.Now()
			if err := tx.SaveParticipant(ctx, existing); err != nil {
				return err
			}
			row = existing
			return nil
		}

		row = &models.TripParticipant{
			TripID:         tripID,
			UserID:         userID,
			SeatsRequested: seats,
			Status:         models.ParticipantStatusPending,
			JoinedAt:       time.Now(),
		}
		return tx.UpsertParticipant(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	p.fanout.Notify(ctx, []uuid.UUID{trip.CreatorID}, userID, tripID,
		models.NotificationTripRequest,
		"New Trip Request",
		fmt.Sprintf("Someone wants to join your trip: %s", trip.Title))
	p.publish("trip_participants", realtime.OpInsert, trip, userID)
	return row, nil
}

// Accept admits a pending request and reserves its seats. The status
// transition and the seat decrement run in one transaction; the
// conditional decrement at the store is what keeps concurrent accepts
// from oversubscribing the trip.
func (p *Participation) Accept(ctx context.Context, tripID, participantID, actorID uuid.UUID) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CreatorID != actorID {
		return fmt.Errorf("%w: only the trip creator can accept requests", store.ErrForbidden)
	}
	if trip.Status != models.TripStatusActive {
		return fmt.Errorf("%w: trip is %s", store.ErrConflict, trip.Status)
	}

	part, err := p.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if part.TripID != tripID {
		return store.ErrNotFound
	}

	// The seat count is re-read inside the transaction. A concurrent
	// re-request leaves the row pending but can change seats_requested,
	// and the debit must match the row that gets accepted.
	err = p.store.Transact(ctx, func(tx store.Store) error {
		cur, err := tx.GetParticipantForUpdate(ctx, participantID)
		if err != nil {
			return err
		}
		if err := tx.UpdateParticipantStatus(ctx, participantID,
			[]string{models.ParticipantStatusPending}, models.ParticipantStatusAccepted); err != nil {
			return err
		}
		return tx.AdjustAvailableSeats(ctx, tripID, -cur.SeatsRequested)
	})
	if err != nil {
		return err
	}

	p.fanout.Notify(ctx, []uuid.UUID{part.UserID}, actorID, tripID,
		models.NotificationRequestAccepted,
		"Request Accepted!",
		fmt.Sprintf("Your request to join %q was accepted. You can now chat with the group.", trip.Title))
	p.systemMessage(ctx, tripID, fmt.Sprintf("%s joined the trip", p.userName(ctx, part.UserID)))
	p.publish("trip_participants", realtime.OpUpdate, trip, part.UserID)
	return nil
}

// Reject declines a pending request. No seats were reserved, so none move.
func (p *Participation) Reject(ctx context.Context, tripID, participantID, actorID uuid.UUID) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CreatorID != actorID {
		return fmt.Errorf("%w: only the trip creator can reject requests", store.ErrForbidden)
	}
	if trip.Status != models.TripStatusActive {
		return fmt.Errorf("%w: trip is %s", store.ErrConflict, trip.Status)
	}

	part, err := p.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if part.TripID != tripID {
		return store.ErrNotFound
	}

	if err := p.store.UpdateParticipantStatus(ctx, participantID,
		[]string{models.ParticipantStatusPending}, models.ParticipantStatusRejected); err != nil {
		return err
	}

	p.fanout.Notify(ctx, []uuid.UUID{part.UserID}, actorID, tripID,
		models.NotificationRequestRejected,
		"Request Declined",
		fmt.Sprintf("Your request to join %q was declined.", trip.Title))
	p.publish("trip_participants", realtime.OpUpdate, trip, part.UserID)
	return nil
}

// Leave is the participant's own exit. Only an accepted participant can
// leave; their seats return to the pool in the same transaction. A merely
// pending requester has nothing reserved and nothing to leave.
func (p *Participation) Leave(ctx context.Context, tripID, userID uuid.UUID) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	part, err := p.store.GetParticipantByUser(ctx, tripID, userID)
	if err != nil {
		return err
	}

	err = p.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.UpdateParticipantStatus(ctx, part.ID,
			[]string{models.ParticipantStatusAccepted}, models.ParticipantStatusLeft); err != nil {
			return err
		}
		return tx.AdjustAvailableSeats(ctx, tripID, part.SeatsRequested)
	})
	if err != nil {
		return err
	}

	p.fanout.Notify(ctx, []uuid.UUID{trip.CreatorID}, userID, tripID,
		models.NotificationParticipantLeft,
		"Participant Left",
		"A participant has left your trip.")
	p.systemMessage(ctx, tripID, fmt.Sprintf("%s left the trip", p.userName(ctx, userID)))
	p.publish("trip_participants", realtime.OpUpdate, trip, userID)
	return nil
}

// Remove is the creator kicking a participant out. Valid from pending or
// accepted; the seat credit happens only when seats were actually
// reserved, which the conditional transition from the observed prior
// status guarantees even under concurrent accepts.
func (p *Participation) Remove(ctx context.Context, tripID, participantID, actorID uuid.UUID, reason string) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CreatorID != actorID {
		return fmt.Errorf("%w: only the trip creator can remove participants", store.ErrForbidden)
	}

	part, err := p.store.GetParticipant(ctx, participantID)
	if err != nil {
		return err
	}
	if part.TripID != tripID {
		return store.ErrNotFound
	}
	prior := part.Status
	if prior != models.ParticipantStatusPending && prior != models.ParticipantStatusAccepted {
		return fmt.Errorf("%w: participant is %s", store.ErrConflict, prior)
	}

	err = p.store.Transact(ctx, func(tx store.Store) error {
		if err := tx.UpdateParticipantStatus(ctx, participantID,
			[]string{prior}, models.ParticipantStatusRemoved); err != nil {
			return err
		}
		if prior == models.ParticipantStatusAccepted {
			return tx.AdjustAvailableSeats(ctx, tripID, part.SeatsRequested)
		}
		return nil
	})
	if err != nil {
		return err
	}

	body := fmt.Sprintf("You have been removed from %q.", trip.Title)
	if reason != "" {
		body = fmt.Sprintf("You have been removed from %q. Reason: %s", trip.Title, reason)
	}
	p.fanout.Notify(ctx, []uuid.UUID{part.UserID}, actorID, tripID,
		models.NotificationParticipantRemoved,
		"Removed from Trip",
		body)
	p.publish("trip_participants", realtime.OpUpdate, trip, part.UserID)
	return nil
}

// Cancel kills an active trip. Seats stay where they are. Every
// participant hears about it once, whatever their status.
func (p *Participation) Cancel(ctx context.Context, tripID, actorID uuid.UUID) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CreatorID != actorID {
		return fmt.Errorf("%w: only the trip creator can cancel the trip", store.ErrForbidden)
	}

	if err := p.store.UpdateTripStatus(ctx, tripID, models.TripStatusActive, models.TripStatusCancelled); err != nil {
		return err
	}

	parts, err := p.store.ListParticipants(ctx, tripID)
	if err != nil {
		log.Printf("participation: listing participants for cancel fan-out: %v", err)
	} else {
		recipients := make([]uuid.UUID, 0, len(parts))
		for _, part := range parts {
			recipients = append(recipients, part.UserID)
		}
		p.fanout.Notify(ctx, recipients, actorID, tripID,
			models.NotificationTripCancelled,
			"Trip Cancelled",
			"The trip you joined has been cancelled.")
	}
	p.publish("trips", realtime.OpUpdate, trip, uuid.Nil)
	return nil
}

// Complete marks an active trip finished and prompts the accepted
// participants to review each other.
func (p *Participation) Complete(ctx context.Context, tripID, actorID uuid.UUID) error {
	trip, err := p.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if trip.CreatorID != actorID {
		return fmt.Errorf("%w: only the trip creator can complete the trip", store.ErrForbidden)
	}

	if err := p.store.UpdateTripStatus(ctx, tripID, models.TripStatusActive, models.TripStatusCompleted); err != nil {
		return err
	}

	accepted, err := p.store.ListParticipants(ctx, tripID, models.ParticipantStatusAccepted)
	if err != nil {
		log.Printf("participation: listing participants for complete fan-out: %v", err)
	} else {
		recipients := make([]uuid.UUID, 0, len(accepted))
		riders := []uuid.UUID{trip.CreatorID}
		for _, part := range accepted {
			recipients = append(recipients, part.UserID)
			riders = append(riders, part.UserID)
		}
		p.fanout.Notify(ctx, recipients, actorID, tripID,
			models.NotificationTripCompleted,
			"Trip Completed",
			"How was your trip? Leave a review!")
		if err := p.store.IncrementTotalTrips(ctx, riders); err != nil {
			log.Printf("participation: incrementing trip counters: %v", err)
		}
	}
	p.publish("trips", realtime.OpUpdate, trip, uuid.Nil)
	return nil
}

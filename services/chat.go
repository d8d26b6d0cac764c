package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/realtime"
	"github.com/Dhyanvj/BuddyUp/store"
)

// Chat handles the trip group chat. Membership means the creator or an
// accepted participant; pending requesters cannot read or write.
type Chat struct {
	store  store.Store
	fanout *Fanout
	feed   realtime.Publisher
}

func NewChat(st store.Store, fanout *Fanout, feed realtime.Publisher) *Chat {
	return &Chat{store: st, fanout: fanout, feed: feed}
}

// memberIDs returns the creator plus accepted participants of the trip.
func (c *Chat) memberIDs(ctx context.Context, trip *models.Trip) ([]uuid.UUID, error) {
	accepted, err := c.store.ListParticipants(ctx, trip.ID, models.ParticipantStatusAccepted)
	if err != nil {
		return nil, err
	}
	ids := []uuid.UUID{trip.CreatorID}
	for _, part := range accepted {
		ids = append(ids, part.UserID)
	}
	return ids, nil
}

func (c *Chat) requireMember(ctx context.Context, trip *models.Trip, userID uuid.UUID) error {
	if trip.CreatorID == userID {
		return nil
	}
	part, err := c.store.GetParticipantByUser(ctx, trip.ID, userID)
	if err != nil {
		return fmt.Errorf("%w: not a member of this trip", store.ErrForbidden)
	}
	if part.Status != models.ParticipantStatusAccepted {
		return fmt.Errorf("%w: not a member of this trip", store.ErrForbidden)
	}
	return nil
}

func (c *Chat) ListMessages(ctx context.Context, tripID, userID uuid.UUID) ([]models.Message, error) {
	trip, err := c.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := c.requireMember(ctx, trip, userID); err != nil {
		return nil, err
	}
	return c.store.ListMessages(ctx, tripID, 100)
}

// Send appends a text message and notifies every other member. The
// notification body carries a 50-character preview.
func (c *Chat) Send(ctx context.Context, tripID, senderID uuid.UUID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", store.ErrValidation)
	}

	trip, err := c.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := c.requireMember(ctx, trip, senderID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		TripID:      tripID,
		SenderID:    senderID,
		Content:     content,
		MessageType: models.MessageTypeText,
	}
	if err := c.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	members, err := c.memberIDs(ctx, trip)
	if err == nil {
		preview := content
		if len(preview) > 50 {
			preview = preview[:50] + "..."
		}
		sender := "Someone"
		if u, err := c.store.GetUser(ctx, senderID); err == nil && u.FullName != "" {
			sender = u.FullName
		}
		c.fanout.Notify(ctx, members, senderID, tripID,
			models.NotificationNewMessage,
			fmt.Sprintf("New message in %s", trip.Title),
			fmt.Sprintf("%s: %s", sender, preview))
	}

	if c.feed != nil {
		c.feed.Publish(realtime.Event{
			Table:     "messages",
			Op:        realtime.OpInsert,
			TripID:    tripID,
			CreatorID: trip.CreatorID,
			UserID:    senderID,
		})
	}
	return msg, nil
}

// MarkRead adds the caller to the read_by set of every message in the
// trip they have not read yet.
func (c *Chat) MarkRead(ctx context.Context, tripID, userID uuid.UUID) error {
	trip, err := c.store.GetTrip(ctx, tripID)
	if err != nil {
		return err
	}
	if err := c.requireMember(ctx, trip, userID); err != nil {
		return err
	}
	return c.store.MarkMessagesRead(ctx, tripID, userID)
}

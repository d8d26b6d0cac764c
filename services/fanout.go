package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

// Sink delivers a notification to a user's devices. Delivery is an
// external concern; the fan-out's own obligation ends at the Notification
// row.
type Sink interface {
	Push(ctx context.Context, userID uuid.UUID, title, body string, data map[string]string) error
}

// Fanout turns state transitions into notification records, one per
// affected user. Writes are fire-and-forget relative to the transition
// that triggered them: a failure here is logged and never rolls the
// transition back.
type Fanout struct {
	store store.Store
	sink  Sink
}

func NewFanout(st store.Store, sink Sink) *Fanout {
	return &Fanout{store: st, sink: sink}
}

// Notify writes one notification per recipient, deduplicated by user id,
// then pushes asynchronously. Recipients equal to skip are dropped, so a
// user never hears about their own action.
func (f *Fanout) Notify(ctx context.Context, recipients []uuid.UUID, skip uuid.UUID, tripID uuid.UUID, typ, title, body string) {
	seen := make(map[uuid.UUID]bool, len(recipients))
	rows := make([]models.Notification, 0, len(recipients))
	for _, r := range recipients {
		if r == uuid.Nil || r == skip || seen[r] {
			continue
		}
		seen[r] = true
		tid := tripID
		rows = append(rows, models.Notification{
			UserID: r,
			TripID: &tid,
			Type:   typ,
			Title:  title,
			Body:   body,
		})
	}
	if len(rows) == 0 {
		return
	}

	if err := f.store.CreateNotifications(ctx, rows); err != nil {
		log.Printf("fanout: writing %s notifications: %v", typ, err)
		return
	}

	if f.sink == nil {
		return
	}
	go f.push(rows, typ, tripID)
}

func (f *Fanout) push(rows []models.Notification, typ string, tripID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	data := map[string]string{"type": typ, "tripId": tripID.String()}
	for _, n := range rows {
		if err := f.sink.Push(ctx, n.UserID, n.Title, n.Body, data); err != nil {
			log.Printf("fanout: push %s to user %s: %v", typ, n.UserID, err)
		}
	}
}

package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
	"github.com/Dhyanvj/BuddyUp/store"
)

const sweepLockKey = "reminder:sweep:lock"

// Reminders sweeps upcoming departures and emits trip_reminder
// notifications at the 24 hour and 1 hour marks. The sweep is idempotent:
// a (trip, window) pair is marked in the store before its notifications
// go out, so repeated or overlapping runs never re-notify.
type Reminders struct {
	store  store.Store
	fanout *Fanout
	rdb    *redis.Client
}

func NewReminders(st store.Store, fanout *Fanout, rdb *redis.Client) *Reminders {
	return &Reminders{store: st, fanout: fanout, rdb: rdb}
}

type reminderWindow struct {
	name  string
	from  time.Duration
	to    time.Duration
	title string
	body  string
}

var reminderWindows = []reminderWindow{
	{
		name:  models.ReminderWindow24h,
		from:  23 * time.Hour,
		to:    24 * time.Hour,
		title: "Trip Tomorrow",
		body:  "Your trip %q is departing in 24 hours!",
	},
	{
		name:  models.ReminderWindow1h,
		from:  59 * time.Minute,
		to:    time.Hour,
		title: "Trip Starting Soon!",
		body:  "Your trip %q is departing in 1 hour!",
	},
}

// RunSweep is the scheduled entry point. When Redis is configured, a
// short lock keeps multiple instances from sweeping at once; the
// per-trip markers still make a lost lock harmless.
func (r *Reminders) RunSweep(ctx context.Context, now time.Time) (int, error) {
	if r.rdb != nil {
		ok, err := r.rdb.SetNX(ctx, sweepLockKey, "1", 5*time.Minute).Result()
		if err != nil {
			log.Printf("reminders: acquiring sweep lock: %v", err)
		} else if !ok {
			return 0, nil
		}
	}

	sent := 0
	for _, w := range reminderWindows {
		trips, err := r.store.ListTripsDeparting(ctx, now.Add(w.from), now.Add(w.to))
		if err != nil {
			return sent, err
		}
		for _, trip := range trips {
			first, err := r.store.MarkReminderSent(ctx, trip.ID, w.name)
			if err != nil {
				log.Printf("reminders: marking %s/%s: %v", trip.ID, w.name, err)
				continue
			}
			if !first {
				continue
			}

			accepted, err := r.store.ListParticipants(ctx, trip.ID, models.ParticipantStatusAccepted)
			if err != nil {
				log.Printf("reminders: loading participants of %s: %v", trip.ID, err)
				continue
			}
			recipients := []uuid.UUID{trip.CreatorID}
			for _, part := range accepted {
				recipients = append(recipients, part.UserID)
			}
			r.fanout.Notify(ctx, recipients, uuid.Nil, trip.ID,
				models.NotificationTripReminder,
				w.title,
				fmt.Sprintf(w.body, trip.Title))
			sent += len(recipients)
		}
	}
	return sent, nil
}

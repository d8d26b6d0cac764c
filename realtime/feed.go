package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a change notice for one store row. Clients do not receive row
// data: on any matching event they refetch the full trip aggregate, so a
// dropped or reordered event is always repaired by the next one.
type Event struct {
	Table     string    `json:"table"`
	Op        Op        `json:"op"`
	TripID    uuid.UUID `json:"tripId"`
	CreatorID uuid.UUID `json:"creatorId,omitempty"`
	// UserID is the participant the change is about, when there is one.
	UserID uuid.UUID `json:"userId,omitempty"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher is the write side of the change feed.
type Publisher interface {
	Publish(Event)
}

// Predicate scopes a subscription to the rows a client cares about.
type Predicate func(Event) bool

func ByTrip(id uuid.UUID) Predicate {
	return func(e Event) bool { return e.TripID == id }
}

func ByCreator(userID uuid.UUID) Predicate {
	return func(e Event) bool { return e.CreatorID == userID }
}

func ByParticipant(userID uuid.UUID) Predicate {
	return func(e Event) bool { return e.UserID == userID }
}

func Any(preds ...Predicate) Predicate {
	return func(e Event) bool {
		for _, p := range preds {
			if p(e) {
				return true
			}
		}
		return false
	}
}

// Subscription delivers matching events on C until Close.
type Subscription struct {
	C <-chan Event

	hub *Hub
	id  int
}

// Close releases the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.unsubscribe(s.id)
}

type subscriber struct {
	pred Predicate
	ch   chan Event
}

// Hub fans change events out to predicate-scoped subscribers. Delivery is
// non-blocking: a subscriber that cannot keep up loses events, which is
// safe under coarse invalidation.
type Hub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int]*subscriber)}
}

func (h *Hub) Subscribe(pred Predicate) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	sub := &subscriber{pred: pred, ch: make(chan Event, 16)}
	if h.closed {
		close(sub.ch)
	} else {
		h.subs[id] = sub
	}
	return &Subscription{C: sub.ch, hub: h, id: id}
}

func (h *Hub) unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if !sub.pred(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
		}
	}
}

// Close terminates every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.ch)
	}
}

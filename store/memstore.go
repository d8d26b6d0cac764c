package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Dhyanvj/BuddyUp/models"
)

// MemStore is a mutex-guarded in-memory Store with the same conditional
// semantics as GormStore. It backs the service and route tests.
type MemStore struct {
	mu sync.Mutex
	// txMu serializes transactions so a failed one can restore the
	// pre-transaction snapshot.
	txMu sync.Mutex

	trips         map[uuid.UUID]*models.Trip
	participants  map[uuid.UUID]*models.TripParticipant
	notifications map[uuid.UUID]*models.Notification
	messages      map[uuid.UUID]*models.Message
	reviews       map[uuid.UUID]*models.Review
	users         map[uuid.UUID]*models.User
	reminders     map[string]bool

	msgOrder []uuid.UUID
}

func NewMemStore() *MemStore {
	return &MemStore{
		trips:         make(map[uuid.UUID]*models.Trip),
		participants:  make(map[uuid.UUID]*models.TripParticipant),
		notifications: make(map[uuid.UUID]*models.Notification),
		messages:      make(map[uuid.UUID]*models.Message),
		reviews:       make(map[uuid.UUID]*models.Review),
		users:         make(map[uuid.UUID]*models.User),
		reminders:     make(map[string]bool),
	}
}

func (s *MemStore) snapshot() *MemStore {
	c := NewMemStore()
	for k, v := range s.trips {
		t := *v
		c.trips[k] = &t
	}
	for k, v := range s.participants {
		p := *v
		c.participants[k] = &p
	}
	for k, v := range s.notifications {
		n := *v
		c.notifications[k] = &n
	}
	for k, v := range s.messages {
		m := *v
		c.messages[k] = &m
	}
	for k, v := range s.reviews {
		r := *v
		c.reviews[k] = &r
	}
	for k, v := range s.users {
		u := *v
		c.users[k] = &u
	}
	for k, v := range s.reminders {
		c.reminders[k] = v
	}
	c.msgOrder = append([]uuid.UUID(nil), s.msgOrder...)
	return c
}

func (s *MemStore) restore(c *MemStore) {
	s.trips = c.trips
	s.participants = c.participants
	s.notifications = c.notifications
	s.messages = c.messages
	s.reviews = c.reviews
	s.users = c.users
	s.reminders = c.reminders
	s.msgOrder = c.msgOrder
}

func (s *MemStore) Transact(ctx context.Context, fn func(Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()
	if err := fn(s); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *MemStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	now := time.Now()
	trip.CreatedAt, trip.UpdatedAt = now, now
	t := *trip
	s.trips[trip.ID] = &t
	return nil
}

func (s *MemStore) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *t
	return &out, nil
}

func (s *MemStore) GetTripAggregate(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	trip, err := s.GetTrip(ctx, id)
	if err != nil {
		return nil, err
	}
	parts, err := s.ListParticipants(ctx, id, models.ParticipantStatusPending, models.ParticipantStatusAccepted)
	if err != nil {
		return nil, err
	}
	trip.Participants = parts
	s.mu.Lock()
	if creator, ok := s.users[trip.CreatorID]; ok {
		trip.Creator = *creator
	}
	s.mu.Unlock()
	return trip, nil
}

func (s *MemStore) SaveTrip(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[trip.ID]; !ok {
		return ErrNotFound
	}
	trip.UpdatedAt = time.Now()
	t := *trip
	s.trips[trip.ID] = &t
	return nil
}

func (s *MemStore) UpdateTripStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return ErrNotFound
	}
	if t.Status != from {
		return fmt.Errorf("%w: trip is not %s", ErrConflict, from)
	}
	t.Status = to
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return ErrNotFound
	}
	next := t.AvailableSeats + delta
	if next < 0 {
		return fmt.Errorf("%w: %d seat(s) no longer available", ErrCapacityExceeded, -delta)
	}
	if next > t.TotalSeats {
		return fmt.Errorf("%w: seat counter would exceed total seats", ErrConflict)
	}
	t.AvailableSeats = next
	t.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) SearchTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripWithDistance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var results []TripWithDistance
	now := time.Now()
	for _, t := range s.trips {
		if t.Status != models.TripStatusActive || !t.DepartureTime.After(now) {
			continue
		}
		d := haversineKm(lat, lng, t.PickupLat, t.PickupLng)
		if d <= radiusKm {
			trip := *t
			if creator, ok := s.users[t.CreatorID]; ok {
				trip.Creator = *creator
			}
			results = append(results, TripWithDistance{Trip: trip, DistanceKm: d})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceKm < results[j].DistanceKm })
	return results, nil
}

func (s *MemStore) ListTripsDeparting(ctx context.Context, from, to time.Time) ([]models.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var trips []models.Trip
	for _, t := range s.trips {
		if t.Status != models.TripStatusActive {
			continue
		}
		if !t.DepartureTime.Before(from) && !t.DepartureTime.After(to) {
			trips = append(trips, *t)
		}
	}
	return trips, nil
}

func (s *MemStore) ListUserTrips(ctx context.Context, userID uuid.UUID) ([]models.Trip, []models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var created []models.Trip
	for _, t := range s.trips {
		if t.CreatorID == userID {
			created = append(created, *t)
		}
	}
	sort.Slice(created, func(i, j int) bool { return created[i].DepartureTime.After(created[j].DepartureTime) })

	var joined []models.TripParticipant
	for _, p := range s.participants {
		if p.UserID != userID {
			continue
		}
		if p.Status != models.ParticipantStatusPending && p.Status != models.ParticipantStatusAccepted {
			continue
		}
		part := *p
		if t, ok := s.trips[p.TripID]; ok {
			trip := *t
			part.Trip = &trip
		}
		joined = append(joined, part)
	}
	return created, joined, nil
}

func (s *MemStore) IncrementTotalTrips(ctx context.Context, userIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			u.TotalTrips++
		}
	}
	return nil
}

func (s *MemStore) UpsertParticipant(ctx context.Context, p *models.TripParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants {
		if existing.TripID == p.TripID && existing.UserID == p.UserID {
			existing.SeatsRequested = p.SeatsRequested
			existing.Status = p.Status
			existing.JoinedAt = p.JoinedAt
			existing.UpdatedAt = time.Now()
			*p = *existing
			return nil
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = "unpaid"
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	row := *p
	s.participants[p.ID] = &row
	return nil
}

func (s *MemStore) SaveParticipant(ctx context.Context, p *models.TripParticipant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	row := *p
	s.participants[p.ID] = &row
	return nil
}

func (s *MemStore) GetParticipant(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	if u, ok := s.users[p.UserID]; ok {
		out.User = *u
	}
	return &out, nil
}

// GetParticipantForUpdate matches GetParticipant; transactions already
// serialize on txMu, which stands in for the row lock.
func (s *MemStore) GetParticipantForUpdate(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error) {
	return s.GetParticipant(ctx, id)
}

func (s *MemStore) GetParticipantByUser(ctx context.Context, tripID, userID uuid.UUID) (*models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.TripID == tripID && p.UserID == userID {
			out := *p
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) ListParticipants(ctx context.Context, tripID uuid.UUID, statuses ...string) ([]models.TripParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var parts []models.TripParticipant
	for _, p := range s.participants {
		if p.TripID != tripID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, st := range statuses {
				if p.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out := *p
		if u, ok := s.users[p.UserID]; ok {
			out.User = *u
		}
		parts = append(parts, out)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].JoinedAt.Before(parts[j].JoinedAt) })
	return parts, nil
}

func (s *MemStore) UpdateParticipantStatus(ctx context.Context, id uuid.UUID, from []string, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return ErrNotFound
	}
	for _, st := range from {
		if p.Status == st {
			p.Status = to
			p.UpdatedAt = time.Now()
			return nil
		}
	}
	return fmt.Errorf("%w: participant is no longer %v", ErrConflict, from)
}

func (s *MemStore) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range ns {
		if ns[i].ID == uuid.Nil {
			ns[i].ID = uuid.New()
		}
		ns[i].CreatedAt = time.Now()
		n := ns[i]
		s.notifications[n.ID] = &n
	}
	return nil
}

func (s *MemStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var ns []models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			ns = append(ns, *n)
		}
	}
	sort.Slice(ns, func(i, j int) bool { return ns[i].CreatedAt.After(ns[j].CreatedAt) })
	if len(ns) > limit {
		ns = ns[:limit]
	}
	return ns, nil
}

func (s *MemStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *MemStore) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	n.Read = true
	return nil
}

func (s *MemStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (s *MemStore) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *MemStore) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.UserID == userID {
			delete(s.notifications, id)
		}
	}
	return nil
}

func (s *MemStore) CreateMessage(ctx context.Context, m *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	m.CreatedAt = time.Now()
	row := *m
	s.messages[m.ID] = &row
	s.msgOrder = append(s.msgOrder, m.ID)
	return nil
}

func (s *MemStore) ListMessages(ctx context.Context, tripID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var msgs []models.Message
	for _, id := range s.msgOrder {
		m, ok := s.messages[id]
		if !ok || m.TripID != tripID {
			continue
		}
		out := *m
		if u, ok := s.users[m.SenderID]; ok {
			out.Sender = *u
		}
		msgs = append(msgs, out)
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

func (s *MemStore) MarkMessagesRead(ctx context.Context, tripID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	uid := userID.String()
	for _, m := range s.messages {
		if m.TripID != tripID {
			continue
		}
		var readers []string
		if len(m.ReadBy) > 0 {
			if err := json.Unmarshal(m.ReadBy, &readers); err != nil {
				readers = nil
			}
		}
		seen := false
		for _, r := range readers {
			if r == uid {
				seen = true
				break
			}
		}
		if seen {
			continue
		}
		readers = append(readers, uid)
		raw, err := json.Marshal(readers)
		if err != nil {
			return err
		}
		m.ReadBy = raw
	}
	return nil
}

func (s *MemStore) CreateReview(ctx context.Context, r *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reviews {
		if existing.TripID == r.TripID && existing.ReviewerID == r.ReviewerID && existing.RevieweeID == r.RevieweeID {
			return fmt.Errorf("%w: review already exists", ErrConflict)
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.CreatedAt = time.Now()
	row := *r
	s.reviews[r.ID] = &row
	return nil
}

func (s *MemStore) ListUserReviews(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var reviews []models.Review
	for _, r := range s.reviews {
		if r.RevieweeID == userID {
			out := *r
			if u, ok := s.users[r.ReviewerID]; ok {
				out.Reviewer = *u
			}
			reviews = append(reviews, out)
		}
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.After(reviews[j].CreatedAt) })
	total := int64(len(reviews))
	start := (page - 1) * perPage
	if start >= len(reviews) {
		return nil, total, nil
	}
	end := start + perPage
	if end > len(reviews) {
		end = len(reviews)
	}
	return reviews[start:end], total, nil
}

func (s *MemStore) RecalculateUserRating(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil
	}
	var sum, n float64
	for _, r := range s.reviews {
		if r.RevieweeID == userID {
			sum += float64(r.Rating)
			n++
		}
	}
	if n == 0 {
		u.Rating = 0
		return nil
	}
	u.Rating = sum / n
	return nil
}

func (s *MemStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemStore) SaveUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := *u
	s.users[u.ID] = &row
	return nil
}

func (s *MemStore) MarkReminderSent(ctx context.Context, tripID uuid.UUID, window string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tripID.String() + ":" + window
	if s.reminders[key] {
		return false, nil
	}
	s.reminders[key] = true
	return true, nil
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Dhyanvj/BuddyUp/models"
)

// GormStore is the Postgres-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// wrap translates gorm errors into this package's kinds. Sentinel errors
// produced by our own conditional updates pass through untouched.
func wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden), errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrConflict), errors.Is(err, ErrTransient):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
}

func (s *GormStore) Transact(ctx context.Context, fn func(Store) error) error {
	return wrap(s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	}))
}

func (s *GormStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	return wrap(s.db.WithContext(ctx).Create(trip).Error)
}

func (s *GormStore) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := s.db.WithContext(ctx).First(&trip, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &trip, nil
}

func (s *GormStore) GetTripAggregate(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Preload("Participants", "status IN ?", []string{models.ParticipantStatusPending, models.ParticipantStatusAccepted}).
		Preload("Participants.User").
		First(&trip, "id = ?", id).Error
	if err != nil {
		return nil, wrap(err)
	}
	return &trip, nil
}

func (s *GormStore) SaveTrip(ctx context.Context, trip *models.Trip) error {
	return wrap(s.db.WithContext(ctx).Save(trip).Error)
}

func (s *GormStore) UpdateTripStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	res := s.db.WithContext(ctx).Model(&models.Trip{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetTrip(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: trip is not %s", ErrConflict, from)
	}
	return nil
}

func (s *GormStore) AdjustAvailableSeats(ctx context.Context, id uuid.UUID, delta int) error {
	res := s.db.WithContext(ctx).Model(&models.Trip{}).
		Where("id = ? AND available_seats + ? >= 0 AND available_seats + ? <= total_seats", id, delta, delta).
		Update("available_seats", gorm.Expr("available_seats + ?", delta))
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetTrip(ctx, id); err != nil {
			return err
		}
		if delta < 0 {
			return fmt.Errorf("%w: %d seat(s) no longer available", ErrCapacityExceeded, -delta)
		}
		return fmt.Errorf("%w: seat counter would exceed total seats", ErrConflict)
	}
	return nil
}

func (s *GormStore) SearchTrips(ctx context.Context, lat, lng, radiusKm float64) ([]TripWithDistance, error) {
	latDelta, lngDelta := boundingBox(lat, radiusKm)

	var trips []models.Trip
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Where("status = ? AND departure_time > ?", models.TripStatusActive, time.Now()).
		Where("pickup_lat BETWEEN ? AND ?", lat-latDelta, lat+latDelta).
		Where("pickup_lng BETWEEN ? AND ?", lng-lngDelta, lng+lngDelta).
		Find(&trips).Error
	if err != nil {
		return nil, wrap(err)
	}

	// The bounding box is a prefilter; the exact radius check happens here.
	results := make([]TripWithDistance, 0, len(trips))
	for _, t := range trips {
		d := haversineKm(lat, lng, t.PickupLat, t.PickupLng)
		if d <= radiusKm {
			results = append(results, TripWithDistance{Trip: t, DistanceKm: d})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].DistanceKm < results[j].DistanceKm })
	return results, nil
}

func (s *GormStore) ListTripsDeparting(ctx context.Context, from, to time.Time) ([]models.Trip, error) {
	var trips []models.Trip
	err := s.db.WithContext(ctx).
		Where("status = ? AND departure_time BETWEEN ? AND ?", models.TripStatusActive, from, to).
		Find(&trips).Error
	return trips, wrap(err)
}

func (s *GormStore) ListUserTrips(ctx context.Context, userID uuid.UUID) ([]models.Trip, []models.TripParticipant, error) {
	var created []models.Trip
	err := s.db.WithContext(ctx).
		Preload("Creator").
		Preload("Participants", "status IN ?", []string{models.ParticipantStatusPending, models.ParticipantStatusAccepted}).
		Preload("Participants.User").
		Where("creator_id = ?", userID).
		Order("departure_time DESC").
		Find(&created).Error
	if err != nil {
		return nil, nil, wrap(err)
	}

	var joined []models.TripParticipant
	err = s.db.WithContext(ctx).
		Preload("Trip").
		Preload("Trip.Creator").
		Preload("Trip.Participants", "status IN ?", []string{models.ParticipantStatusPending, models.ParticipantStatusAccepted}).
		Preload("Trip.Participants.User").
		Where("user_id = ? AND status IN ?", userID, []string{models.ParticipantStatusPending, models.ParticipantStatusAccepted}).
		Find(&joined).Error
	if err != nil {
		return nil, nil, wrap(err)
	}
	return created, joined, nil
}

func (s *GormStore) IncrementTotalTrips(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	return wrap(s.db.WithContext(ctx).Model(&models.User{}).
		Where("id IN ?", userIDs).
		Update("total_trips", gorm.Expr("total_trips + 1")).Error)
}

func (s *GormStore) UpsertParticipant(ctx context.Context, p *models.TripParticipant) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "trip_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"seats_requested": p.SeatsRequested,
			"status":          p.Status,
			"joined_at":       p.JoinedAt,
			"updated_at":      time.Now(),
		}),
	}).Create(p).Error
	if err != nil {
		return wrap(err)
	}
	// On conflict the generated id was discarded; read back the live row.
	row, err := s.GetParticipantByUser(ctx, p.TripID, p.UserID)
	if err != nil {
		return err
	}
	*p = *row
	return nil
}

func (s *GormStore) SaveParticipant(ctx context.Context, p *models.TripParticipant) error {
	return wrap(s.db.WithContext(ctx).Save(p).Error)
}

func (s *GormStore) GetParticipant(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error) {
	var p models.TripParticipant
	if err := s.db.WithContext(ctx).Preload("User").First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (s *GormStore) GetParticipantForUpdate(ctx context.Context, id uuid.UUID) (*models.TripParticipant, error) {
	var p models.TripParticipant
	if err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (s *GormStore) GetParticipantByUser(ctx context.Context, tripID, userID uuid.UUID) (*models.TripParticipant, error) {
	var p models.TripParticipant
	if err := s.db.WithContext(ctx).First(&p, "trip_id = ? AND user_id = ?", tripID, userID).Error; err != nil {
		return nil, wrap(err)
	}
	return &p, nil
}

func (s *GormStore) ListParticipants(ctx context.Context, tripID uuid.UUID, statuses ...string) ([]models.TripParticipant, error) {
	q := s.db.WithContext(ctx).Preload("User").Where("trip_id = ?", tripID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var parts []models.TripParticipant
	err := q.Order("joined_at").Find(&parts).Error
	return parts, wrap(err)
}

func (s *GormStore) UpdateParticipantStatus(ctx context.Context, id uuid.UUID, from []string, to string) error {
	res := s.db.WithContext(ctx).Model(&models.TripParticipant{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := s.GetParticipant(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: participant is no longer %v", ErrConflict, from)
	}
	return nil
}

func (s *GormStore) CreateNotifications(ctx context.Context, ns []models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return wrap(s.db.WithContext(ctx).Create(&ns).Error)
}

func (s *GormStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	var ns []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&ns).Error
	return ns, wrap(err)
}

func (s *GormStore) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, wrap(err)
}

func (s *GormStore) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	return wrap(s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error)
}

func (s *GormStore) DeleteNotification(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return wrap(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) error {
	return wrap(s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.Notification{}).Error)
}

func (s *GormStore) CreateMessage(ctx context.Context, m *models.Message) error {
	return wrap(s.db.WithContext(ctx).Create(m).Error)
}

func (s *GormStore) ListMessages(ctx context.Context, tripID uuid.UUID, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var msgs []models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("trip_id = ?", tripID).
		Order("created_at DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, wrap(err)
	}
	// Reverse to chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (s *GormStore) MarkMessagesRead(ctx context.Context, tripID, userID uuid.UUID) error {
	return s.Transact(ctx, func(tx Store) error {
		g := tx.(*GormStore)
		var msgs []models.Message
		if err := g.db.WithContext(ctx).Where("trip_id = ?", tripID).Find(&msgs).Error; err != nil {
			return wrap(err)
		}
		uid := userID.String()
		for i := range msgs {
			var readers []string
			if len(msgs[i].ReadBy) > 0 {
				if err := json.Unmarshal(msgs[i].ReadBy, &readers); err != nil {
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
				return wrap(err)
			}
			if err := g.db.WithContext(ctx).Model(&models.Message{}).
				Where("id = ?", msgs[i].ID).
				Update("read_by", raw).Error; err != nil {
				return wrap(err)
			}
		}
		return nil
	})
}

func (s *GormStore) CreateReview(ctx context.Context, r *models.Review) error {
	err := s.db.WithContext(ctx).Create(r).Error
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: review already exists", ErrConflict)
	}
	return wrap(err)
}

func (s *GormStore) ListUserReviews(ctx context.Context, userID uuid.UUID, page, perPage int) ([]models.Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > 100 {
		perPage = 25
	}

	q := s.db.WithContext(ctx).Model(&models.Review{}).Where("reviewee_id = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, wrap(err)
	}

	var reviews []models.Review
	err := q.
		Preload("Reviewer").
		Order("created_at DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&reviews).Error
	return reviews, total, wrap(err)
}

func (s *GormStore) RecalculateUserRating(ctx context.Context, userID uuid.UUID) error {
	return wrap(s.db.WithContext(ctx).Exec(
		"UPDATE users SET rating = (SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE reviewee_id = ?) WHERE id = ?",
		userID, userID).Error)
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, wrap(err)
	}
	return &u, nil
}

func (s *GormStore) SaveUser(ctx context.Context, u *models.User) error {
	return wrap(s.db.WithContext(ctx).Save(u).Error)
}

func (s *GormStore) MarkReminderSent(ctx context.Context, tripID uuid.UUID, window string) (bool, error) {
	entry := models.ReminderLog{TripID: tripID, Window: window, SentAt: time.Now()}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry)
	if res.Error != nil {
		return false, wrap(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// isUniqueViolation catches Postgres unique violations that gorm does not
// translate when error translation is disabled.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	type coder interface{ SQLState() string }
	var c coder
	return errors.As(err, &c) && c.SQLState() == "23505"
}

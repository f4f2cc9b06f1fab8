package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/patrickmn/go-cache"

	"qms/guest-queue-service/internal/metrics"
	"qms/guest-queue-service/internal/models"
	"qms/guest-queue-service/internal/store"
)

// guestCache remembers registrations by mobile number and by id. Guest rows
// are never updated.
type guestCache struct {
	cache *cache.Cache
}

func newGuestCache(ttl time.Duration) *guestCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &guestCache{cache: cache.New(ttl, 2*ttl)}
}

func (c *guestCache) get(key string) (models.GuestUser, bool) {
	value, ok := c.cache.Get(key)
	if !ok {
		return models.GuestUser{}, false
	}
	guest, ok := value.(models.GuestUser)
	return guest, ok
}

func (c *guestCache) put(guest models.GuestUser) {
	c.cache.SetDefault("mobile:"+guest.MobileNumber, guest)
	c.cache.SetDefault("id:"+guest.GuestUserID, guest)
}

// CreateGuest registers a guest once per mobile number. A known number
// returns the existing guest with created=false.
func (s *Store) CreateGuest(ctx context.Context, input store.CreateGuestInput) (models.GuestUser, bool, error) {
	name := strings.TrimSpace(input.Name)
	mobile := strings.TrimSpace(input.MobileNumber)
	if name == "" {
		return models.GuestUser{}, false, store.ValidationError("name is required")
	}
	if mobile == "" {
		return models.GuestUser{}, false, store.ValidationError("mobileNumber is required")
	}

	if guest, ok := s.guests.get("mobile:" + mobile); ok {
		metrics.GuestCacheHitsTotal.Inc()
		return guest, false, nil
	}

	existing, err := scanGuest(s.pool.QueryRow(ctx, `
		SELECT guest_user_id::text, name, mobile_number, created_at
		FROM guest_users
		WHERE mobile_number = $1
	`, mobile))
	if err == nil {
		s.guests.put(existing)
		return existing, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.GuestUser{}, false, err
	}

	guest, err := scanGuest(s.pool.QueryRow(ctx, `
		INSERT INTO guest_users (guest_user_id, name, mobile_number, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING guest_user_id::text, name, mobile_number, created_at
	`, uuid.NewString(), name, mobile, s.timestamp()))
	if err != nil {
		if isUniqueViolation(err) {
			return models.GuestUser{}, false, fmt.Errorf("%w: mobile number %s registered concurrently", store.ErrConflict, mobile)
		}
		return models.GuestUser{}, false, err
	}
	s.guests.put(guest)
	return guest, true, nil
}

func (s *Store) GetGuest(ctx context.Context, guestUserID string) (models.GuestUser, error) {
	if _, err := uuid.Parse(guestUserID); err != nil {
		return models.GuestUser{}, store.ErrGuestNotFound
	}
	if guest, ok := s.guests.get("id:" + guestUserID); ok {
		metrics.GuestCacheHitsTotal.Inc()
		return guest, nil
	}
	guest, err := scanGuest(s.pool.QueryRow(ctx, `
		SELECT guest_user_id::text, name, mobile_number, created_at
		FROM guest_users
		WHERE guest_user_id = $1
	`, guestUserID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.GuestUser{}, store.ErrGuestNotFound
		}
		return models.GuestUser{}, err
	}
	s.guests.put(guest)
	return guest, nil
}

func scanGuest(row scanner) (models.GuestUser, error) {
	var guest models.GuestUser
	err := row.Scan(&guest.GuestUserID, &guest.Name, &guest.MobileNumber, &guest.CreatedAt)
	return guest, err
}

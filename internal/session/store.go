package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openkcal/openkcal/internal/models"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no live session matches the identifier. A row
// that exists but is inactive, expired, or owned by an inactive user is
// reported the same way.
var ErrNotFound = errors.New("session not found")

// Resolved is a live session joined with the owning user's identity fields.
type Resolved struct {
	SessionID        string
	UserID           uint64
	Username         string
	DailyCalorieGoal int
	ExpiresAt        time.Time
}

// Store persists login sessions. Every lookup round-trips the database so a
// logout on one instance is visible to all instances immediately.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore constructs a session Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithClock overrides the store's clock. Tests use it to probe the expiry
// boundary.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// Create inserts a new active session row.
func (s *Store) Create(ctx context.Context, id string, userID uint64, expiresAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("session store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("session store: missing id")
	}
	if userID == 0 {
		return fmt.Errorf("session store: missing user id")
	}
	record := models.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: expiresAt.UTC(),
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if errCreate := s.db.WithContext(ctx).Create(&record).Error; errCreate != nil {
		return fmt.Errorf("session store: create: %w", errCreate)
	}
	return nil
}

// Get resolves a session id to a live session joined with the owning user.
// Expiry is enforced here rather than by a background sweep: a row whose
// expires_at has passed is treated as absent even when still marked active.
func (s *Store) Get(ctx context.Context, id string) (*Resolved, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("session store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	now := s.now().UTC()
	var row struct {
		ID               string
		UserID           uint64
		Username         string
		DailyCalorieGoal int
		ExpiresAt        time.Time
	}
	errFind := s.db.WithContext(ctx).
		Table("sessions").
		Select("sessions.id, sessions.user_id, sessions.expires_at, users.username, users.daily_calorie_goal").
		Joins("JOIN users ON users.id = sessions.user_id").
		Where("sessions.id = ?", id).
		Where("sessions.active = ?", true).
		Where("sessions.expires_at > ?", now).
		Where("users.active = ?", true).
		Take(&row).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session store: get: %w", errFind)
	}

	return &Resolved{
		SessionID:        row.ID,
		UserID:           row.UserID,
		Username:         row.Username,
		DailyCalorieGoal: row.DailyCalorieGoal,
		ExpiresAt:        row.ExpiresAt,
	}, nil
}

// Invalidate clears a session's active flag. Invalidating an already-inactive
// or unknown session is not an error.
func (s *Store) Invalidate(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("session store: not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	res := s.db.WithContext(ctx).Model(&models.Session{}).
		Where("id = ?", id).
		Update("active", false)
	if res.Error != nil {
		return fmt.Errorf("session store: invalidate: %w", res.Error)
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"ccce-notify/internal/notification/domain"
)

// NotificationRepository defines the notification store operations
type NotificationRepository interface {
	// Create stores a new record, assigning an ID when empty
	Create(ctx context.Context, n *domain.Notification) error

	// FindByID returns nil, nil when the record does not exist
	FindByID(ctx context.Context, id string) (*domain.Notification, error)

	// FindPendingSystem returns pending, system-created records for a target
	FindPendingSystem(ctx context.Context, targetType domain.TargetType, targetID string) ([]*domain.Notification, error)

	// FindDue returns pending records with send_at <= now, oldest first, at most limit
	FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error)

	// MarkPending sets status=pending on a record that has no status yet
	MarkPending(ctx context.Context, id string) error

	// SaveOutcome writes a terminal outcome
	SaveOutcome(ctx context.Context, id string, outcome domain.Outcome) error
}

// TokenRepository defines the per-user device token store
type TokenRepository interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]domain.FCMToken, error)
	// DeleteUserTokens removes the given token values from one user's collection
	DeleteUserTokens(ctx context.Context, userID string, tokens []string) error
}

// DirectoryRepository provides the read-only membership and identity listings
type DirectoryRepository interface {
	ClubMemberIDs(ctx context.Context, clubID string) ([]string, error)
	EventAttendeeIDs(ctx context.Context, eventID string) ([]string, error)
	AllUserIDs(ctx context.Context) ([]string, error)
}

// EventRepository reads source events
type EventRepository interface {
	// FindByID returns nil, nil when the event does not exist
	FindByID(ctx context.Context, id string) (*domain.Event, error)
}

// Store bundles every repository a backend provides
type Store struct {
	Notifications NotificationRepository
	Tokens        TokenRepository
	Directory     DirectoryRepository
	Events        EventRepository
}

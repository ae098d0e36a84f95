package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ccce-notify/internal/notification/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// gormNotificationRepository implements NotificationRepository using GORM
type gormNotificationRepository struct {
	db *gorm.DB
}

// NewGormNotificationRepository creates a new GORM-based NotificationRepository
func NewGormNotificationRepository(db *gorm.DB) NotificationRepository {
	return &gormNotificationRepository{db: db}
}

func (r *gormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = domain.StatusPending
	}
	if n.SendAt != nil {
		sendAt := n.SendAt.UTC()
		n.SendAt = &sendAt
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *gormNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

func (r *gormNotificationRepository) FindPendingSystem(ctx context.Context, targetType domain.TargetType, targetID string) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND created_by = ? AND status = ?",
			targetType, targetID, domain.CreatedBySystem, domain.StatusPending).
		Order("send_at ASC").
		Find(&out).Error
	return out, err
}

func (r *gormNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error) {
	var out []*domain.Notification
	err := r.db.WithContext(ctx).
		Where("status = ? AND send_at IS NOT NULL AND send_at <= ?", domain.StatusPending, now.UTC()).
		Order("send_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *gormNotificationRepository) MarkPending(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND (status = '' OR status IS NULL)", id).
		Updates(map[string]interface{}{
			"status":     domain.StatusPending,
			"updated_at": time.Now().UTC(),
		}).Error
}

// SaveOutcome only moves records out of pending, so a terminal status is never overwritten
func (r *gormNotificationRepository) SaveOutcome(ctx context.Context, id string, outcome domain.Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("%w: outcome status %q is not terminal", domain.ErrInvalidInput, outcome.Status)
	}

	var sentAt interface{}
	if outcome.SentAt != nil {
		sentAt = outcome.SentAt.UTC()
	}

	res := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND (status = ? OR status = '' OR status IS NULL)", id, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":     outcome.Status,
			"sent":       outcome.Sent,
			"failed":     outcome.Failed,
			"error":      outcome.Error,
			"sent_at":    sentAt,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: no pending notification %s", domain.ErrNotFound, id)
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"ccce-notify/internal/notification/domain"

	"gorm.io/gorm"
)

type gormDirectoryRepository struct {
	db *gorm.DB
}

// NewGormDirectoryRepository creates a DirectoryRepository over the membership tables
func NewGormDirectoryRepository(db *gorm.DB) DirectoryRepository {
	return &gormDirectoryRepository{db: db}
}

func (r *gormDirectoryRepository) ClubMemberIDs(ctx context.Context, clubID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.ClubMember{}).
		Where("club_id = ?", clubID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormDirectoryRepository) EventAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.EventAttendee{}).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *gormDirectoryRepository) AllUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

type gormEventRepository struct {
	db *gorm.DB
}

// NewGormEventRepository creates a GORM-based EventRepository
func NewGormEventRepository(db *gorm.DB) EventRepository {
	return &gormEventRepository{db: db}
}

func (r *gormEventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	var ev domain.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}

// Migrate creates or updates every table the GORM backend uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Notification{},
		&domain.FCMToken{},
		&domain.Event{},
		&domain.ClubMember{},
		&domain.EventAttendee{},
		&domain.User{},
	)
}

// NewGormStore wires every GORM repository over one connection
func NewGormStore(db *gorm.DB) Store {
	return Store{
		Notifications: NewGormNotificationRepository(db),
		Tokens:        NewGormTokenRepository(db),
		Directory:     NewGormDirectoryRepository(db),
		Events:        NewGormEventRepository(db),
	}
}

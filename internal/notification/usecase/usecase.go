package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/pkg/clock"
	"ccce-notify/pkg/fcm"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
)

const (
	testNotificationTitle = "Test Notification"
	testNotificationBody  = "This is a test notification from CCCE app"
)

// NotificationUsecase is what the upstream triggers (Pub/Sub, HTTP, sweep) call into
type NotificationUsecase interface {
	// HandleNotificationCreated runs the creation trigger for a stored record
	HandleNotificationCreated(ctx context.Context, notificationID string) (DispatchResult, error)
	// HandleEventCreated schedules the reminder for a stored event
	HandleEventCreated(ctx context.Context, eventID string) (*domain.Notification, error)
	ProcessDue(ctx context.Context) (int, error)
	CreateBroadcast(ctx context.Context, callerID string, req BroadcastRequest) (*domain.Notification, DispatchResult, error)
	SendTestNotification(ctx context.Context, req TestRequest) (*TestResult, error)
	RegisterToken(ctx context.Context, userID, token, deviceInfo string) error
	// Wait blocks until background work started by dispatches has finished
	Wait()
}

// BroadcastRequest is an operator-authored message for every user
type BroadcastRequest struct {
	Title   string
	Message string
	// SendAt defaults to now
	SendAt *time.Time
}

// TestRequest sends a one-off push to a single user's devices
type TestRequest struct {
	UserID  string
	Title   string
	Message string
}

type TestResult struct {
	Sent   int
	Failed int
	Pruned int
}

// Options carries the tunables from configuration
type Options struct {
	LeadTime time.Duration
	Sweep    SweepOptions
}

type notificationUsecase struct {
	store     repository.Store
	tokens    *TokenRegistry
	multicast *MulticastDispatcher
	reminders *ReminderScheduler
	pipeline  *DispatchPipeline
	clock     clock.Clocker
	log       zerolog.Logger
}

// NewNotificationUsecase wires the engine components over one store and push transport
func NewNotificationUsecase(store repository.Store, transport PushTransport, clk clock.Clocker, opts Options) NotificationUsecase {
	resolver := NewTargetResolver(store.Directory, store.Events)
	tokens := NewTokenRegistry(store.Tokens)
	multicast := NewMulticastDispatcher(transport)
	reminders := NewReminderScheduler(store.Notifications, store.Events, clk, opts.LeadTime)
	pipeline := NewDispatchPipeline(store.Notifications, resolver, tokens, multicast, reminders, clk, opts.Sweep)

	return &notificationUsecase{
		store:     store,
		tokens:    tokens,
		multicast: multicast,
		reminders: reminders,
		pipeline:  pipeline,
		clock:     clk,
		log:       logger.Component("notification"),
	}
}

func (u *notificationUsecase) HandleNotificationCreated(ctx context.Context, notificationID string) (DispatchResult, error) {
	n, err := u.store.Notifications.FindByID(ctx, notificationID)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("load notification %s: %w", notificationID, err)
	}
	if n == nil {
		return DispatchResult{}, fmt.Errorf("%w: notification %s", domain.ErrNotFound, notificationID)
	}
	return u.pipeline.HandleCreated(ctx, n), nil
}

func (u *notificationUsecase) HandleEventCreated(ctx context.Context, eventID string) (*domain.Notification, error) {
	ev, err := u.store.Events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: event %s", domain.ErrNotFound, eventID)
	}
	return u.reminders.ScheduleForEvent(ctx, ev)
}

func (u *notificationUsecase) ProcessDue(ctx context.Context) (int, error) {
	return u.pipeline.ProcessDue(ctx)
}

func (u *notificationUsecase) CreateBroadcast(ctx context.Context, callerID string, req BroadcastRequest) (*domain.Notification, DispatchResult, error) {
	title, message := strings.TrimSpace(req.Title), strings.TrimSpace(req.Message)
	if title == "" || message == "" {
		return nil, DispatchResult{}, fmt.Errorf("%w: title and message are required", domain.ErrInvalidInput)
	}

	sendAt := u.clock.Now()
	if req.SendAt != nil && !req.SendAt.IsZero() {
		sendAt = *req.SendAt
	}

	n := &domain.Notification{
		TargetType: domain.TargetBroadcast,
		Title:      title,
		Message:    message,
		SendAt:     &sendAt,
		Status:     domain.StatusPending,
		CreatedBy:  callerID,
	}
	if err := u.store.Notifications.Create(ctx, n); err != nil {
		return nil, DispatchResult{}, fmt.Errorf("create broadcast: %w", err)
	}
	u.log.Info().Str("notification_id", n.ID).Str("created_by", callerID).Msg("broadcast created")

	return n, u.pipeline.HandleCreated(ctx, n), nil
}

// SendTestNotification pushes straight to one user's devices without a stored
// record. Rejected tokens are pruned before returning.
func (u *notificationUsecase) SendTestNotification(ctx context.Context, req TestRequest) (*TestResult, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}

	pairs := u.tokens.Collect(ctx, []string{req.UserID})
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNoTokensFound, req.UserID)
	}

	payload := fcm.NotificationData{
		Title: req.Title,
		Body:  req.Message,
		Data:  map[string]string{"test": "true"},
	}
	if payload.Title == "" {
		payload.Title = testNotificationTitle
	}
	if payload.Body == "" {
		payload.Body = testNotificationBody
	}

	res := u.multicast.SendBatched(ctx, pairs, payload)
	u.tokens.Prune(ctx, res.Invalid)

	pruned := 0
	for _, tokens := range res.Invalid {
		pruned += len(tokens)
	}
	u.log.Info().Str("user_id", req.UserID).Int("sent", res.Sent).Int("failed", res.Failed).Msg("test notification sent")
	return &TestResult{Sent: res.Sent, Failed: res.Failed, Pruned: pruned}, nil
}

func (u *notificationUsecase) RegisterToken(ctx context.Context, userID, token, deviceInfo string) error {
	if userID == "" || strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: user id and token are required", domain.ErrInvalidInput)
	}
	return u.store.Tokens.SaveToken(ctx, userID, strings.TrimSpace(token), deviceInfo)
}

func (u *notificationUsecase) Wait() {
	u.pipeline.Wait()
}

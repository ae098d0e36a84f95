package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/recurrence"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/pkg/clock"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
)

// ReminderScheduler creates pending reminder records ahead of event starts
// and chains the next occurrence of recurring events.
//
// The "already pending" check is a plain read followed by a write. Two
// concurrent calls for the same target can both pass it.
type ReminderScheduler struct {
	notifications repository.NotificationRepository
	events        repository.EventRepository
	clock         clock.Clocker
	leadTime      time.Duration
	log           zerolog.Logger
}

func NewReminderScheduler(
	notifications repository.NotificationRepository,
	events repository.EventRepository,
	clk clock.Clocker,
	leadTime time.Duration,
) *ReminderScheduler {
	if leadTime <= 0 {
		leadTime = time.Hour
	}
	return &ReminderScheduler{
		notifications: notifications,
		events:        events,
		clock:         clk,
		leadTime:      leadTime,
		log:           logger.Component("reminder"),
	}
}

// ScheduleForEvent creates the reminder for a newly created event. It returns
// nil without error when the event is skipped: no start time, starting within
// the lead time, or a pending system reminder already exists for its target.
func (s *ReminderScheduler) ScheduleForEvent(ctx context.Context, ev *domain.Event) (*domain.Notification, error) {
	if ev == nil || ev.ID == "" {
		return nil, fmt.Errorf("%w: event is required", domain.ErrInvalidInput)
	}
	log := s.log.With().Str("event_id", ev.ID).Logger()

	if ev.StartTime == nil || ev.StartTime.IsZero() {
		log.Info().Msg("event has no start time, skipping reminder")
		return nil, nil
	}
	start := *ev.StartTime
	now := s.clock.Now()
	if !start.After(now.Add(s.leadTime)) {
		log.Info().Time("start", start).Msg("event starts too soon or in the past, skipping reminder")
		return nil, nil
	}

	targetType := domain.TargetTypeForEvent(ev.EventType)
	existing, err := s.notifications.FindPendingSystem(ctx, targetType, ev.ID)
	if err != nil {
		return nil, fmt.Errorf("check pending reminders for event %s: %w", ev.ID, err)
	}
	if len(existing) > 0 {
		log.Info().Str("notification_id", existing[0].ID).Msg("reminder already pending, skipping")
		return nil, nil
	}

	n := s.newReminder(ev, targetType, start)
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create reminder for event %s: %w", ev.ID, err)
	}
	remindersScheduled.WithLabelValues("event").Inc()
	log.Info().Str("notification_id", n.ID).Time("send_at", *n.SendAt).Msg("scheduled reminder")
	return n, nil
}

// ScheduleNextOccurrence creates the reminder for the occurrence after the one
// n was sent for. The live event is re-read so rule changes since the snapshot
// apply. It returns nil without error when there is nothing to schedule.
func (s *ReminderScheduler) ScheduleNextOccurrence(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if n == nil || !n.EventData.IsRecurring() {
		return nil, nil
	}
	eventID := n.EventData.EventID
	log := s.log.With().Str("event_id", eventID).Str("notification_id", n.ID).Logger()

	ev, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if ev == nil {
		log.Info().Msg("source event is gone, not scheduling next occurrence")
		return nil, nil
	}

	rule := ev.Recurrence
	next, ok := recurrence.Next(&rule, n.EventData.StartTime)
	if !ok {
		log.Debug().Str("rule", string(rule.Type)).Msg("no further occurrence")
		return nil, nil
	}
	if rule.Ends(next) {
		log.Info().Time("next", next).Msg("next occurrence is past the recurrence end date")
		return nil, nil
	}
	sendAt := next.Add(-s.leadTime)
	if !sendAt.After(s.clock.Now()) {
		log.Info().Time("send_at", sendAt).Msg("next occurrence reminder would already be due, skipping")
		return nil, nil
	}

	targetType, targetID := n.TargetType, n.TargetID
	if targetID == "" {
		targetType, targetID = domain.TargetTypeForEvent(ev.EventType), ev.ID
	}
	existing, err := s.notifications.FindPendingSystem(ctx, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("check pending reminders for event %s: %w", eventID, err)
	}
	for _, e := range existing {
		if e.SendAt != nil && e.SendAt.Equal(sendAt) {
			log.Info().Str("existing_id", e.ID).Msg("next occurrence already scheduled")
			return nil, nil
		}
	}

	nextReminder := s.newReminder(ev, targetType, next)
	nextReminder.TargetID = targetID
	if err := s.notifications.Create(ctx, nextReminder); err != nil {
		return nil, fmt.Errorf("create next reminder for event %s: %w", eventID, err)
	}
	remindersScheduled.WithLabelValues("occurrence").Inc()
	log.Info().Str("next_id", nextReminder.ID).Time("send_at", *nextReminder.SendAt).Msg("scheduled next occurrence")
	return nextReminder, nil
}

func (s *ReminderScheduler) newReminder(ev *domain.Event, targetType domain.TargetType, start time.Time) *domain.Notification {
	sendAt := start.Add(-s.leadTime)
	return &domain.Notification{
		TargetType: targetType,
		TargetID:   ev.ID,
		Title:      reminderTitle(ev.Name, s.leadTime),
		Message:    reminderMessage(ev),
		SendAt:     &sendAt,
		Status:     domain.StatusPending,
		CreatedBy:  domain.CreatedBySystem,
		EventData:  ev.Snapshot(start),
	}
}

func reminderTitle(name string, lead time.Duration) string {
	if name == "" {
		name = "Upcoming Event"
	}
	return fmt.Sprintf("%s starts in %s", name, humanDuration(lead))
}

func reminderMessage(ev *domain.Event) string {
	name, location := ev.Name, ev.Location
	if name == "" {
		name = "Event"
	}
	if location == "" {
		location = "TBD"
	}
	return strings.TrimSpace(fmt.Sprintf("%s at %s. %s", name, location, strings.TrimSpace(ev.Description)))
}

// humanDuration renders whole hours or minutes ("1 hour", "30 minutes")
func humanDuration(d time.Duration) string {
	unit, n := "minute", int(d/time.Minute)
	if d%time.Hour == 0 {
		unit, n = "hour", int(d/time.Hour)
	}
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

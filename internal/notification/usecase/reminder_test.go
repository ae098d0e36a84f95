package usecase

import (
	"context"
	"testing"
	"time"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reminderNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func newReminderFixture(events ...*domain.Event) (*ReminderScheduler, *fakeNotifications) {
	notifications := newFakeNotifications()
	return NewReminderScheduler(notifications, newFakeEvents(events...), clock.Fixed(reminderNow), time.Hour), notifications
}

func TestReminderScheduler_ScheduleForEvent(t *testing.T) {
	start := reminderNow.Add(48 * time.Hour)
	ev := &domain.Event{
		ID:          "e1",
		Name:        "Robotics Demo",
		Description: " Bring a laptop. ",
		Location:    "Hall B",
		EventType:   domain.EventTypeClub,
		ClubID:      "robotics",
		StartTime:   &start,
		Recurrence:  domain.RecurrenceRule{Type: domain.RecurrenceWeekly, Days: []int{1}},
	}
	scheduler, store := newReminderFixture(ev)

	n, err := scheduler.ScheduleForEvent(context.Background(), ev)

	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, domain.TargetClubEvent, n.TargetType)
	assert.Equal(t, "e1", n.TargetID)
	assert.Equal(t, domain.CreatedBySystem, n.CreatedBy)
	assert.Equal(t, domain.StatusPending, n.Status)
	assert.Equal(t, "Robotics Demo starts in 1 hour", n.Title)
	assert.Equal(t, "Robotics Demo at Hall B. Bring a laptop.", n.Message)
	require.NotNil(t, n.SendAt)
	assert.True(t, start.Add(-time.Hour).Equal(*n.SendAt))
	require.NotNil(t, n.EventData)
	assert.True(t, start.Equal(n.EventData.StartTime))
	assert.True(t, n.EventData.IsRecurring())
	assert.Len(t, store.pending(), 1)
}

func TestReminderScheduler_ScheduleForEventDefaults(t *testing.T) {
	start := reminderNow.Add(3 * time.Hour)
	ev := &domain.Event{ID: "talk", EventType: "infoSession", StartTime: &start}
	scheduler, _ := newReminderFixture(ev)

	n, err := scheduler.ScheduleForEvent(context.Background(), ev)

	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, domain.TargetInfoSession, n.TargetType)
	assert.Equal(t, "Upcoming Event starts in 1 hour", n.Title)
	assert.Equal(t, "Event at TBD.", n.Message)
	assert.Nil(t, n.EventData.Recurrence)
}

func TestReminderScheduler_ScheduleForEventIsIdempotent(t *testing.T) {
	start := reminderNow.Add(24 * time.Hour)
	ev := &domain.Event{ID: "e1", EventType: domain.EventTypeClub, ClubID: "c1", StartTime: &start}
	scheduler, store := newReminderFixture(ev)

	first, err := scheduler.ScheduleForEvent(context.Background(), ev)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := scheduler.ScheduleForEvent(context.Background(), ev)
	require.NoError(t, err)
	assert.Nil(t, second)

	assert.Len(t, store.pending(), 1)
}

func TestReminderScheduler_ScheduleForEventSkips(t *testing.T) {
	t.Parallel()

	exactlyLead := reminderNow.Add(time.Hour)
	soon := reminderNow.Add(30 * time.Minute)
	past := reminderNow.Add(-time.Hour)

	tests := []struct {
		name  string
		start *time.Time
	}{
		{name: "no start time", start: nil},
		{name: "zero start time", start: &time.Time{}},
		{name: "starts within lead time", start: &soon},
		{name: "starts exactly at lead time", start: &exactlyLead},
		{name: "already started", start: &past},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev := &domain.Event{ID: "e1", StartTime: tt.start}
			scheduler, store := newReminderFixture(ev)

			n, err := scheduler.ScheduleForEvent(context.Background(), ev)

			require.NoError(t, err)
			assert.Nil(t, n)
			assert.Empty(t, store.pending())
		})
	}
}

func TestReminderScheduler_ScheduleForEventRejectsNil(t *testing.T) {
	scheduler, _ := newReminderFixture()

	_, err := scheduler.ScheduleForEvent(context.Background(), nil)

	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func sentReminder(eventID string, start time.Time, rule *domain.RecurrenceRule) *domain.Notification {
	sendAt := start.Add(-time.Hour)
	return &domain.Notification{
		ID:         "sent-1",
		TargetType: domain.TargetClubEvent,
		TargetID:   eventID,
		SendAt:     &sendAt,
		Status:     domain.StatusSent,
		CreatedBy:  domain.CreatedBySystem,
		EventData:  &domain.EventSnapshot{EventID: eventID, EventName: "Chess", StartTime: start, Recurrence: rule},
	}
}

func TestReminderScheduler_ScheduleNextOccurrence(t *testing.T) {
	current := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC) // Monday, already past
	ev := &domain.Event{
		ID: "chess", Name: "Chess Night", Location: "Room 4", EventType: domain.EventTypeClub, ClubID: "c1",
		StartTime:  &current,
		Recurrence: domain.RecurrenceRule{Type: domain.RecurrenceIntervalDays, Interval: 3},
	}
	scheduler, store := newReminderFixture(ev)
	// the snapshot says weekly; the live rule wins
	n := sentReminder("chess", current, &domain.RecurrenceRule{Type: domain.RecurrenceWeekly, Days: []int{1}})

	next, err := scheduler.ScheduleNextOccurrence(context.Background(), n)

	require.NoError(t, err)
	require.NotNil(t, next)
	wantStart := time.Date(2024, 1, 4, 18, 0, 0, 0, time.UTC)
	assert.True(t, wantStart.Equal(next.EventData.StartTime))
	assert.True(t, wantStart.Add(-time.Hour).Equal(*next.SendAt))
	assert.Equal(t, domain.TargetClubEvent, next.TargetType)
	assert.Equal(t, "chess", next.TargetID)
	assert.Equal(t, "Chess Night starts in 1 hour", next.Title)
	assert.Equal(t, domain.RecurrenceIntervalDays, next.EventData.Recurrence.Type)

	again, err := scheduler.ScheduleNextOccurrence(context.Background(), n)
	require.NoError(t, err)
	assert.Nil(t, again, "same sendAt is deduplicated")
	assert.Len(t, store.pending(), 1)
}

func TestReminderScheduler_ScheduleNextOccurrenceStops(t *testing.T) {
	t.Parallel()

	current := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	endBefore := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	weekly := &domain.RecurrenceRule{Type: domain.RecurrenceWeekly}

	tests := []struct {
		name     string
		event    *domain.Event
		snapshot *domain.RecurrenceRule
	}{
		{
			name:     "snapshot not recurring",
			event:    &domain.Event{ID: "e1", Recurrence: *weekly},
			snapshot: nil,
		},
		{
			name:     "event deleted",
			event:    &domain.Event{ID: "other"},
			snapshot: weekly,
		},
		{
			name:     "live rule switched to never",
			event:    &domain.Event{ID: "e1", Recurrence: domain.RecurrenceRule{Type: domain.RecurrenceNever}},
			snapshot: weekly,
		},
		{
			name:     "next occurrence after end date",
			event:    &domain.Event{ID: "e1", Recurrence: domain.RecurrenceRule{Type: domain.RecurrenceIntervalDays, Interval: 3, EndDate: &endBefore}},
			snapshot: weekly,
		},
		{
			name:     "next reminder already due",
			event:    &domain.Event{ID: "e1", Recurrence: domain.RecurrenceRule{Type: domain.RecurrenceIntervalDays, Interval: 1}},
			snapshot: weekly,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			scheduler, store := newReminderFixture(tt.event)
			// reminderNow is 2024-01-01 12:00, so a one-day step lands at 2024-01-02 17:00 send time.
			// Shift the clock so that reminder is already in the past.
			scheduler.clock = clock.Fixed(time.Date(2024, 1, 2, 17, 30, 0, 0, time.UTC))

			next, err := scheduler.ScheduleNextOccurrence(context.Background(), sentReminder("e1", current, tt.snapshot))

			require.NoError(t, err)
			assert.Nil(t, next)
			assert.Empty(t, store.pending())
		})
	}
}

func TestHumanDuration(t *testing.T) {
	assert.Equal(t, "1 hour", humanDuration(time.Hour))
	assert.Equal(t, "2 hours", humanDuration(2*time.Hour))
	assert.Equal(t, "30 minutes", humanDuration(30*time.Minute))
	assert.Equal(t, "1 minute", humanDuration(time.Minute))
}

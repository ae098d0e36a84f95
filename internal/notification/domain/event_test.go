package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecurrenceRule_IntervalOrDefault(t *testing.T) {
	var nilRule *RecurrenceRule
	assert.Equal(t, 1, nilRule.IntervalOrDefault())
	assert.Equal(t, 1, (&RecurrenceRule{}).IntervalOrDefault())
	assert.Equal(t, 1, (&RecurrenceRule{Interval: -4}).IntervalOrDefault())
	assert.Equal(t, 3, (&RecurrenceRule{Interval: 3}).IntervalOrDefault())
}

func TestRecurrenceRule_Ends(t *testing.T) {
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rule := &RecurrenceRule{Type: RecurrenceWeekly, EndDate: &end}

	assert.False(t, rule.Ends(end), "end date is inclusive")
	assert.True(t, rule.Ends(end.Add(time.Second)))
	assert.False(t, (&RecurrenceRule{Type: RecurrenceWeekly}).Ends(end.AddDate(10, 0, 0)))
}

func TestEventSnapshot_DoesNotShareRule(t *testing.T) {
	start := time.Date(2024, 1, 7, 18, 0, 0, 0, time.UTC)
	ev := &Event{
		ID:         "e1",
		Name:       "Chess Club",
		Location:   "Room 101",
		StartTime:  &start,
		Recurrence: RecurrenceRule{Type: RecurrenceWeekly, Days: []int{1, 3}},
	}

	snap := ev.Snapshot(start)
	ev.Recurrence.Days[0] = 5

	assert.True(t, snap.IsRecurring())
	assert.Equal(t, []int{1, 3}, snap.Recurrence.Days)
	assert.Equal(t, "e1", snap.EventID)
	assert.Equal(t, start, snap.StartTime)
}

func TestEventSnapshot_NonRecurring(t *testing.T) {
	ev := &Event{ID: "e1", Recurrence: RecurrenceRule{Type: RecurrenceNever}}

	snap := ev.Snapshot(time.Now())

	assert.Nil(t, snap.Recurrence)
	assert.False(t, snap.IsRecurring())
	var nilSnap *EventSnapshot
	assert.False(t, nilSnap.IsRecurring())
}

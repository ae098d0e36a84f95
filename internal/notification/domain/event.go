package domain

import (
	"slices"
	"time"
)

// EventTypeClub is the event type whose reminders target the owning club
const EventTypeClub = "club"

// RecurrenceType selects how the next occurrence of an event is computed
type RecurrenceType string

const (
	RecurrenceNever        RecurrenceType = "never"
	RecurrenceIntervalDays RecurrenceType = "intervalDays"
	RecurrenceWeekly       RecurrenceType = "weekly"
	RecurrenceMonthly      RecurrenceType = "monthly"
)

// RecurrenceRule describes how a source event repeats.
//
// Interval is a day count for intervalDays and a week count for weekly rules
// without Days. Monthly rules use Interval both as the month step and as the
// day of month.
type RecurrenceRule struct {
	Type     RecurrenceType `json:"type" gorm:"column:recurrence_type"`
	Interval int            `json:"interval,omitempty" gorm:"column:recurrence_interval"`
	Days     []int          `json:"days,omitempty" gorm:"column:recurrence_days;serializer:json"`
	EndDate  *time.Time     `json:"endDate,omitempty" gorm:"column:recurrence_end_date"`
}

// IsRecurring reports whether the rule produces further occurrences
func (r *RecurrenceRule) IsRecurring() bool {
	if r == nil {
		return false
	}
	switch r.Type {
	case RecurrenceIntervalDays, RecurrenceWeekly, RecurrenceMonthly:
		return true
	case RecurrenceNever:
		return false
	default:
		return false
	}
}

// IntervalOrDefault returns Interval, or 1 when it is unset or not positive
func (r *RecurrenceRule) IntervalOrDefault() int {
	if r == nil || r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// Ends reports whether t falls after the rule's inclusive end date
func (r *RecurrenceRule) Ends(t time.Time) bool {
	return r != nil && r.EndDate != nil && t.After(*r.EndDate)
}

// Clone returns a deep copy so snapshots never share slices with live events
func (r *RecurrenceRule) Clone() *RecurrenceRule {
	if r == nil {
		return nil
	}
	c := *r
	c.Days = slices.Clone(r.Days)
	if r.EndDate != nil {
		end := *r.EndDate
		c.EndDate = &end
	}
	return &c
}

// Event is a calendar event that reminders are scheduled for
type Event struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Name        string         `json:"event_name"`
	Description string         `json:"description,omitempty"`
	Location    string         `json:"main_location,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	EventType   string         `json:"event_type" gorm:"index"`
	ClubID      string         `json:"club_id,omitempty" gorm:"index"`
	Recurrence  RecurrenceRule `json:"recurrence" gorm:"embedded"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Snapshot copies the fields a reminder needs, anchored at the given occurrence start
func (e *Event) Snapshot(start time.Time) *EventSnapshot {
	s := &EventSnapshot{
		EventID:   e.ID,
		EventName: e.Name,
		StartTime: start,
		Location:  e.Location,
	}
	if e.Recurrence.IsRecurring() {
		s.Recurrence = e.Recurrence.Clone()
	}
	return s
}

// ClubMember links a user to a club's member list
type ClubMember struct {
	ClubID    string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// EventAttendee records a user attending an event
type EventAttendee struct {
	EventID   string `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// User is the identity listing used for broadcasts
type User struct {
	ID        string `json:"id" gorm:"primaryKey"`
	Email     string `json:"email" gorm:"index"`
	Name      string `json:"name"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

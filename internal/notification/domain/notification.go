package domain

import "time"

// CreatedBySystem marks records generated by the reminder scheduler
const CreatedBySystem = "system"

// DefaultTitle is used when neither the record nor its event snapshot has a title
const DefaultTitle = "CCCE Notification"

// Status represents the lifecycle state of a notification record
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusNoTargets Status = "no-targets"
	StatusNoTokens  Status = "no-tokens"
	StatusError     Status = "error"
)

// Terminal reports whether no further transition is allowed from s
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusNoTargets, StatusNoTokens, StatusError:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

// Notification is the unit of work picked up by the dispatch pipeline
type Notification struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	TargetType TargetType     `json:"target_type" gorm:"index:idx_notifications_target;not null"`
	TargetID   string         `json:"target_id,omitempty" gorm:"index:idx_notifications_target"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	SendAt     *time.Time     `json:"send_at,omitempty" gorm:"index"`
	Status     Status         `json:"status" gorm:"index;not null;default:pending"`
	CreatedBy  string         `json:"created_by" gorm:"index"`
	Sent       int            `json:"sent"`
	Failed     int            `json:"failed"`
	Error      string         `json:"error,omitempty"`
	SentAt     *time.Time     `json:"sent_at,omitempty"`
	EventData  *EventSnapshot `json:"event_data,omitempty" gorm:"serializer:json"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Target converts the stored target pair into its typed form
func (n *Notification) Target() (Target, error) {
	return NewTarget(n.TargetType, n.TargetID)
}

// DueAt reports whether the record may be dispatched at now
func (n *Notification) DueAt(now time.Time) bool {
	return n.SendAt == nil || !n.SendAt.After(now)
}

// DisplayTitle returns the push title with its fallbacks applied
func (n *Notification) DisplayTitle() string {
	if n.Title != "" {
		return n.Title
	}
	if n.EventData != nil && n.EventData.EventName != "" {
		return n.EventData.EventName
	}
	return DefaultTitle
}

// Outcome is the terminal result written back to a record
type Outcome struct {
	Status Status
	Sent   int
	Failed int
	Error  string
	SentAt *time.Time
}

// EventSnapshot is a copy of the source event taken when a reminder is scheduled
type EventSnapshot struct {
	EventID    string          `json:"eventId"`
	EventName  string          `json:"eventName,omitempty"`
	StartTime  time.Time       `json:"startTime"`
	Location   string          `json:"location,omitempty"`
	Recurrence *RecurrenceRule `json:"recurrence,omitempty"`
}

// IsRecurring reports whether the snapshotted event carried a recurrence rule
func (s *EventSnapshot) IsRecurring() bool {
	return s != nil && s.Recurrence.IsRecurring()
}

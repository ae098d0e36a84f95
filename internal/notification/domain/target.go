package domain

import "fmt"

// TargetType identifies how a notification's recipients are resolved
type TargetType string

const (
	TargetUser        TargetType = "user"
	TargetClub        TargetType = "club"
	TargetClubEvent   TargetType = "clubEvent"
	TargetInfoSession TargetType = "infoSession"
	TargetBroadcast   TargetType = "broadcast"
)

// Target is a resolved target descriptor. The set of implementations is closed:
// UserTarget, ClubTarget, ClubEventTarget, InfoSessionTarget and BroadcastTarget.
type Target interface {
	Type() TargetType
	ID() string
	isTarget()
}

type UserTarget struct{ UserID string }

type ClubTarget struct{ ClubID string }

type ClubEventTarget struct{ EventID string }

type InfoSessionTarget struct{ EventID string }

type BroadcastTarget struct{}

func (UserTarget) Type() TargetType        { return TargetUser }
func (ClubTarget) Type() TargetType        { return TargetClub }
func (ClubEventTarget) Type() TargetType   { return TargetClubEvent }
func (InfoSessionTarget) Type() TargetType { return TargetInfoSession }
func (BroadcastTarget) Type() TargetType   { return TargetBroadcast }

func (t UserTarget) ID() string        { return t.UserID }
func (t ClubTarget) ID() string        { return t.ClubID }
func (t ClubEventTarget) ID() string   { return t.EventID }
func (t InfoSessionTarget) ID() string { return t.EventID }
func (BroadcastTarget) ID() string     { return "" }

func (UserTarget) isTarget()        {}
func (ClubTarget) isTarget()        {}
func (ClubEventTarget) isTarget()   {}
func (InfoSessionTarget) isTarget() {}
func (BroadcastTarget) isTarget()   {}

// NewTarget builds a typed target. A missing id yields ErrInvalidTarget for
// every type except broadcast, which ignores it.
func NewTarget(targetType TargetType, id string) (Target, error) {
	if targetType == TargetBroadcast {
		return BroadcastTarget{}, nil
	}

	var t Target
	switch targetType {
	case TargetUser:
		t = UserTarget{UserID: id}
	case TargetClub:
		t = ClubTarget{ClubID: id}
	case TargetClubEvent:
		t = ClubEventTarget{EventID: id}
	case TargetInfoSession:
		t = InfoSessionTarget{EventID: id}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTargetType, targetType)
	}

	if id == "" {
		return nil, fmt.Errorf("%w: %s target requires an id", ErrInvalidTarget, targetType)
	}
	return t, nil
}

// TargetTypeForEvent picks the reminder target for an event. Club events reach
// the club's members; everything else reaches the event's attendees.
func TargetTypeForEvent(eventType string) TargetType {
	if eventType == EventTypeClub {
		return TargetClubEvent
	}
	return TargetInfoSession
}

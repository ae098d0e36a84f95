package usecase

import (
	"context"
	"fmt"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/repository"
)

// TargetResolver maps a target descriptor to the recipients it addresses.
// It only reads from the directory and event stores.
type TargetResolver struct {
	directory repository.DirectoryRepository
	events    repository.EventRepository
}

func NewTargetResolver(directory repository.DirectoryRepository, events repository.EventRepository) *TargetResolver {
	return &TargetResolver{directory: directory, events: events}
}

// Resolve returns the recipient ids for target in store order without duplicates.
// An empty result is not an error.
func (r *TargetResolver) Resolve(ctx context.Context, target domain.Target) ([]string, error) {
	var (
		ids []string
		err error
	)

	switch t := target.(type) {
	case domain.UserTarget:
		if t.UserID == "" {
			return nil, fmt.Errorf("%w: user target requires an id", domain.ErrInvalidTarget)
		}
		ids = []string{t.UserID}
	case domain.ClubTarget:
		ids, err = r.clubMembers(ctx, t.ClubID)
	case domain.ClubEventTarget:
		ids, err = r.clubEventMembers(ctx, t.EventID)
	case domain.InfoSessionTarget:
		if t.EventID == "" {
			return nil, fmt.Errorf("%w: infoSession target requires an id", domain.ErrInvalidTarget)
		}
		ids, err = r.directory.EventAttendeeIDs(ctx, t.EventID)
		if err != nil {
			err = fmt.Errorf("list attendees of event %s: %w", t.EventID, err)
		}
	case domain.BroadcastTarget:
		ids, err = r.directory.AllUserIDs(ctx)
		if err != nil {
			err = fmt.Errorf("list users: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownTargetType, target)
	}
	if err != nil {
		return nil, err
	}
	return uniqueIDs(ids), nil
}

func (r *TargetResolver) clubMembers(ctx context.Context, clubID string) ([]string, error) {
	if clubID == "" {
		return nil, fmt.Errorf("%w: club target requires an id", domain.ErrInvalidTarget)
	}
	ids, err := r.directory.ClubMemberIDs(ctx, clubID)
	if err != nil {
		return nil, fmt.Errorf("list members of club %s: %w", clubID, err)
	}
	return ids, nil
}

func (r *TargetResolver) clubEventMembers(ctx context.Context, eventID string) ([]string, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: clubEvent target requires an id", domain.ErrInvalidTarget)
	}
	ev, err := r.events.FindByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}
	if ev == nil {
		return nil, fmt.Errorf("%w: event %s not found", domain.ErrInvalidTarget, eventID)
	}
	if ev.ClubID == "" {
		return nil, fmt.Errorf("%w: event %s has no club", domain.ErrInvalidTarget, eventID)
	}
	return r.clubMembers(ctx, ev.ClubID)
}

// uniqueIDs drops empty and repeated ids, keeping first-seen order
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

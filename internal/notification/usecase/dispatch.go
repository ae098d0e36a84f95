package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/pkg/clock"
	"ccce-notify/pkg/fcm"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ClickAction is the click target the mobile client registers for notification taps
const ClickAction = "FLUTTER_NOTIFICATION_CLICK"

// DispatchResult describes what one dispatch attempt did
type DispatchResult struct {
	NotificationID string
	Status         domain.Status
	Sent           int
	Failed         int
	// Skipped is set when the record was not due or no longer pending
	Skipped bool
	// Err is the failure stored on the record, or a failure to persist the outcome
	Err error
	// Reason explains a no_targets or no_tokens outcome. It is not a failure.
	Reason error
	// Next is the reminder created for the following occurrence, if any
	Next *domain.Notification
}

// SweepOptions bounds the work of one due-record sweep
type SweepOptions struct {
	BatchSize   int
	Concurrency int
}

// DispatchPipeline turns pending records into terminal outcomes
type DispatchPipeline struct {
	notifications repository.NotificationRepository
	resolver      *TargetResolver
	tokens        *TokenRegistry
	multicast     *MulticastDispatcher
	reminders     *ReminderScheduler
	clock         clock.Clocker
	sweep         SweepOptions
	log           zerolog.Logger

	mu      sync.Mutex
	drained bool
	pruning sync.WaitGroup
}

func NewDispatchPipeline(
	notifications repository.NotificationRepository,
	resolver *TargetResolver,
	tokens *TokenRegistry,
	multicast *MulticastDispatcher,
	reminders *ReminderScheduler,
	clk clock.Clocker,
	sweep SweepOptions,
) *DispatchPipeline {
	if sweep.BatchSize <= 0 {
		sweep.BatchSize = 50
	}
	if sweep.Concurrency <= 0 {
		sweep.Concurrency = 10
	}
	return &DispatchPipeline{
		notifications: notifications,
		resolver:      resolver,
		tokens:        tokens,
		multicast:     multicast,
		reminders:     reminders,
		clock:         clk,
		sweep:         sweep,
		log:           logger.Component("dispatch"),
	}
}

// HandleCreated is the creation trigger: a record due in the future is only
// made sure to be pending, anything else is dispatched right away.
func (p *DispatchPipeline) HandleCreated(ctx context.Context, n *domain.Notification) DispatchResult {
	if !n.DueAt(p.clock.Now()) {
		if err := p.notifications.MarkPending(ctx, n.ID); err != nil {
			p.log.Error().Err(err).Str("notification_id", n.ID).Msg("failed to mark record pending")
			return DispatchResult{NotificationID: n.ID, Status: n.Status, Skipped: true, Err: err}
		}
		p.log.Debug().Str("notification_id", n.ID).Time("send_at", *n.SendAt).Msg("record scheduled for later")
		return DispatchResult{NotificationID: n.ID, Status: domain.StatusPending, Skipped: true}
	}
	return p.Dispatch(ctx, n)
}

// ProcessDue dispatches pending records whose send time has passed, at most
// BatchSize per call and Concurrency at a time. It returns how many records
// were picked up.
func (p *DispatchPipeline) ProcessDue(ctx context.Context) (int, error) {
	due, err := p.notifications.FindDue(ctx, p.clock.Now(), p.sweep.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("find due notifications: %w", err)
	}
	if len(due) == 0 {
		p.log.Debug().Msg("no pending notifications ready to send")
		return 0, nil
	}

	p.log.Info().Int("count", len(due)).Msg("processing due notifications")

	var g errgroup.Group
	g.SetLimit(p.sweep.Concurrency)
	for _, n := range due {
		g.Go(func() error {
			p.Dispatch(ctx, n)
			return nil
		})
	}
	_ = g.Wait()
	return len(due), nil
}

// Dispatch runs one record through resolve, collect, send and persists the
// terminal outcome. Failures end up on the record and in the result, never as
// a returned error.
func (p *DispatchPipeline) Dispatch(ctx context.Context, n *domain.Notification) DispatchResult {
	log := p.log.With().Str("notification_id", n.ID).Str("target_type", string(n.TargetType)).Logger()
	result := DispatchResult{NotificationID: n.ID, Status: n.Status}

	if n.Status.Terminal() {
		log.Debug().Str("status", string(n.Status)).Msg("record already terminal, skipping")
		result.Skipped = true
		return result
	}
	if !n.DueAt(p.clock.Now()) {
		log.Debug().Msg("record not due yet, skipping")
		result.Skipped = true
		return result
	}

	outcome, sent, err := p.deliver(ctx, n)
	if err != nil {
		log.Error().Err(err).Msg("dispatch failed")
		outcome = domain.Outcome{Status: domain.StatusError, Error: err.Error()}
		result.Err = err
	}

	if err := p.notifications.SaveOutcome(ctx, n.ID, outcome); err != nil {
		log.Error().Err(err).Str("status", string(outcome.Status)).Msg("failed to persist outcome")
		result.Err = errors.Join(result.Err, err)
		p.prune(ctx, sent)
		return result
	}

	dispatchOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	result.Status = outcome.Status
	result.Sent, result.Failed = outcome.Sent, outcome.Failed
	result.Reason = reasonFor(outcome.Status)
	n.Status = outcome.Status
	log.Info().Str("status", string(outcome.Status)).Int("sent", outcome.Sent).Int("failed", outcome.Failed).
		AnErr("reason", result.Reason).Msg("dispatch finished")

	p.prune(ctx, sent)

	if n.EventData.IsRecurring() {
		next, err := p.reminders.ScheduleNextOccurrence(ctx, n)
		if err != nil {
			log.Error().Err(err).Msg("failed to schedule next occurrence")
		}
		result.Next = next
	}
	return result
}

// Wait blocks until every background token prune has finished. Prunes
// requested after Wait has been called run inline on the dispatching goroutine.
func (p *DispatchPipeline) Wait() {
	p.mu.Lock()
	p.drained = true
	p.mu.Unlock()
	p.pruning.Wait()
}

func (p *DispatchPipeline) deliver(ctx context.Context, n *domain.Notification) (outcome domain.Outcome, sent *SendResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	target, err := n.Target()
	if err != nil {
		return outcome, nil, err
	}

	recipients, err := p.resolver.Resolve(ctx, target)
	if err != nil {
		return outcome, nil, err
	}
	if len(recipients) == 0 {
		return domain.Outcome{Status: domain.StatusNoTargets}, nil, nil
	}

	pairs := p.tokens.Collect(ctx, recipients)
	if len(pairs) == 0 {
		return domain.Outcome{Status: domain.StatusNoTokens}, nil, nil
	}

	res := p.multicast.SendBatched(ctx, pairs, payloadFor(n))
	now := p.clock.Now().UTC()
	return domain.Outcome{
		Status: domain.StatusSent,
		Sent:   res.Sent,
		Failed: res.Failed,
		SentAt: &now,
	}, &res, nil
}

// prune deletes rejected tokens in the background, detached from ctx cancellation.
// The Add happens under mu so it can never race a Wait that already started.
func (p *DispatchPipeline) prune(ctx context.Context, sent *SendResult) {
	if sent == nil || len(sent.Invalid) == 0 {
		return
	}
	invalid := sent.Invalid
	pruneCtx := context.WithoutCancel(ctx)

	p.mu.Lock()
	if p.drained {
		p.mu.Unlock()
		p.tokens.Prune(pruneCtx, invalid)
		return
	}
	p.pruning.Add(1)
	p.mu.Unlock()
	go func() {
		defer p.pruning.Done()
		p.tokens.Prune(pruneCtx, invalid)
	}()
}

func reasonFor(status domain.Status) error {
	switch status {
	case domain.StatusNoTargets:
		return domain.ErrNoTargetsResolved
	case domain.StatusNoTokens:
		return domain.ErrNoTokensFound
	default:
		return nil
	}
}

func payloadFor(n *domain.Notification) fcm.NotificationData {
	return fcm.NotificationData{
		Title: n.DisplayTitle(),
		Body:  n.Message,
		Data: map[string]string{
			"notificationId": n.ID,
			"click_action":   ClickAction,
		},
	}
}

package usecase

import (
	"context"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/pkg/fcm"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
)

// PushTransport sends one payload to a bounded list of tokens. On success the
// per-token responses are aligned by position with tokens.
type PushTransport interface {
	SendMulticast(ctx context.Context, tokens []string, data fcm.NotificationData) (*fcm.BatchResult, error)
}

// SendResult aggregates every batch of one dispatch
type SendResult struct {
	Sent   int
	Failed int
	// Invalid maps a recipient to the tokens the transport rejected individually
	Invalid       map[string][]string
	TokenFailures []*domain.TokenFailure
	BatchFailures []*domain.BatchFailure
}

// MulticastDispatcher splits token lists into transport-sized batches
type MulticastDispatcher struct {
	transport PushTransport
	batchSize int
	log       zerolog.Logger
}

func NewMulticastDispatcher(transport PushTransport) *MulticastDispatcher {
	return &MulticastDispatcher{
		transport: transport,
		batchSize: fcm.MaxMulticastTokens,
		log:       logger.Component("multicast"),
	}
}

// SendBatched sends the batches one after another. A failed batch is counted
// as failed in full and never marks its tokens invalid.
func (d *MulticastDispatcher) SendBatched(ctx context.Context, pairs []domain.TokenPair, payload fcm.NotificationData) SendResult {
	result := SendResult{Invalid: make(map[string][]string)}

	for offset := 0; offset < len(pairs); offset += d.batchSize {
		batch := pairs[offset:min(offset+d.batchSize, len(pairs))]
		tokens := make([]string, len(batch))
		for i, p := range batch {
			tokens[i] = p.Token
		}

		res, err := d.transport.SendMulticast(ctx, tokens, payload)
		if err != nil {
			result.Failed += len(batch)
			result.BatchFailures = append(result.BatchFailures, &domain.BatchFailure{Offset: offset, Size: len(batch), Err: err})
			pushTokens.WithLabelValues("batch_error").Add(float64(len(batch)))
			d.log.Warn().Err(err).Int("offset", offset).Int("size", len(batch)).Msg("multicast batch failed")
			continue
		}

		result.Sent += res.SuccessCount
		result.Failed += res.FailureCount
		pushTokens.WithLabelValues("success").Add(float64(res.SuccessCount))
		pushTokens.WithLabelValues("failure").Add(float64(res.FailureCount))

		for i, resp := range res.Responses {
			if resp.Success || i >= len(batch) {
				continue
			}
			owner := batch[i]
			result.Invalid[owner.UserID] = append(result.Invalid[owner.UserID], owner.Token)
			result.TokenFailures = append(result.TokenFailures, &domain.TokenFailure{UserID: owner.UserID, Token: owner.Token, Err: resp.Err})
		}
	}
	return result
}

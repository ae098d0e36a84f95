package usecase

import (
	"context"
	"sync"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/pkg/logger"

	"github.com/rs/zerolog"
)

// TokenRegistry gathers device tokens for recipients and deletes the ones
// the push transport rejected.
type TokenRegistry struct {
	tokens repository.TokenRepository
	log    zerolog.Logger
}

func NewTokenRegistry(tokens repository.TokenRepository) *TokenRegistry {
	return &TokenRegistry{tokens: tokens, log: logger.Component("tokens")}
}

// Collect fetches every recipient's tokens concurrently and returns each distinct
// token once, attributed to the first recipient (in input order) that holds it.
// A failed fetch counts as zero tokens for that recipient.
func (r *TokenRegistry) Collect(ctx context.Context, userIDs []string) []domain.TokenPair {
	perUser := make([][]domain.FCMToken, len(userIDs))

	var wg sync.WaitGroup
	for i, userID := range userIDs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens, err := r.tokens.GetTokensByUserID(ctx, userID)
			if err != nil {
				r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to fetch device tokens")
				return
			}
			perUser[i] = tokens
		}()
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var pairs []domain.TokenPair
	for i, tokens := range perUser {
		for _, t := range tokens {
			if t.Token == "" {
				continue
			}
			if _, dup := seen[t.Token]; dup {
				continue
			}
			seen[t.Token] = struct{}{}
			pairs = append(pairs, domain.TokenPair{UserID: userIDs[i], Token: t.Token})
		}
	}
	return pairs
}

// Prune deletes the given tokens per recipient. Recipients are handled
// concurrently and a failure for one does not stop the others.
func (r *TokenRegistry) Prune(ctx context.Context, invalid map[string][]string) {
	var wg sync.WaitGroup
	for userID, tokens := range invalid {
		if len(tokens) == 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.tokens.DeleteUserTokens(ctx, userID, tokens); err != nil {
				r.log.Error().Err(err).Str("user_id", userID).Int("tokens", len(tokens)).Msg("failed to prune tokens")
				return
			}
			prunedTokens.Add(float64(len(tokens)))
			r.log.Debug().Str("user_id", userID).Int("tokens", len(tokens)).Msg("pruned tokens")
		}()
	}
	wg.Wait()
}

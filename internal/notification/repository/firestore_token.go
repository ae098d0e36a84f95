package repository

import (
	"context"
	"fmt"
	"time"

	"ccce-notify/internal/notification/domain"

	"cloud.google.com/go/firestore"
)

const (
	usersCollection  = "users"
	tokensCollection = "fcmTokens"
)

type tokenDoc struct {
	Token      string    `firestore:"token"`
	DeviceInfo string    `firestore:"deviceInfo,omitempty"`
	CreatedAt  time.Time `firestore:"createdAt,serverTimestamp"`
}

// firestoreTokenRepository stores tokens under users/{uid}/fcmTokens
type firestoreTokenRepository struct {
	client *firestore.Client
}

// NewFirestoreTokenRepository creates a Firestore-backed TokenRepository
func NewFirestoreTokenRepository(client *firestore.Client) TokenRepository {
	return &firestoreTokenRepository{client: client}
}

func (r *firestoreTokenRepository) tokens(userID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(userID).Collection(tokensCollection)
}

func (r *firestoreTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	existing, err := r.tokens(userID).Where("token", "==", token).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return fmt.Errorf("lookup token: %w", err)
	}
	if len(existing) > 0 {
		_, err = existing[0].Ref.Set(ctx, map[string]interface{}{"deviceInfo": deviceInfo}, firestore.MergeAll)
		return err
	}
	_, _, err = r.tokens(userID).Add(ctx, tokenDoc{Token: token, DeviceInfo: deviceInfo})
	return err
}

func (r *firestoreTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]domain.FCMToken, error) {
	docs, err := r.tokens(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	out := make([]domain.FCMToken, 0, len(docs))
	for _, d := range docs {
		var doc tokenDoc
		if err := d.DataTo(&doc); err != nil || doc.Token == "" {
			continue
		}
		out = append(out, domain.FCMToken{
			ID:         d.Ref.ID,
			UserID:     userID,
			Token:      doc.Token,
			DeviceInfo: doc.DeviceInfo,
			CreatedAt:  doc.CreatedAt,
		})
	}
	return out, nil
}

// DeleteUserTokens deletes every document in the user's collection holding one of the tokens
func (r *firestoreTokenRepository) DeleteUserTokens(ctx context.Context, userID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}

	var refs []*firestore.DocumentRef
	for _, t := range tokens {
		docs, err := r.tokens(userID).Where("token", "==", t).Documents(ctx).GetAll()
		if err != nil {
			return fmt.Errorf("lookup token: %w", err)
		}
		for _, d := range docs {
			refs = append(refs, d.Ref)
		}
	}
	if len(refs) == 0 {
		return nil
	}

	bw := r.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(refs))
	for _, ref := range refs {
		job, err := bw.Delete(ref)
		if err != nil {
			bw.End()
			return fmt.Errorf("queue token delete: %w", err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
	}
	return nil
}

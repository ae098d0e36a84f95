package repository

import (
	"context"
	"fmt"
	"time"

	"ccce-notify/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const notificationsCollection = "notifications"

// notificationDoc is the Firestore shape of a notification record.
// Older records carry only uid and imply a user target.
type notificationDoc struct {
	TargetType string       `firestore:"targetType,omitempty"`
	TargetID   string       `firestore:"targetId,omitempty"`
	UID        string       `firestore:"uid,omitempty"`
	Title      string       `firestore:"title,omitempty"`
	Message    string       `firestore:"message,omitempty"`
	SendAt     *time.Time   `firestore:"sendAt,omitempty"`
	Status     string       `firestore:"status,omitempty"`
	CreatedBy  string       `firestore:"createdBy,omitempty"`
	Sent       int          `firestore:"sent,omitempty"`
	Failed     int          `firestore:"failed,omitempty"`
	Error      string       `firestore:"error,omitempty"`
	SentAt     *time.Time   `firestore:"sentAt,omitempty"`
	EventData  *snapshotDoc `firestore:"eventData,omitempty"`
	CreatedAt  time.Time    `firestore:"createdAt,serverTimestamp"`
}

type snapshotDoc struct {
	EventID            string     `firestore:"eventId"`
	EventName          string     `firestore:"eventName,omitempty"`
	StartTime          time.Time  `firestore:"startTime"`
	Location           string     `firestore:"location,omitempty"`
	RecurrenceType     string     `firestore:"recurrenceType,omitempty"`
	RecurrenceInterval int        `firestore:"recurrenceInterval,omitempty"`
	RecurrenceDays     []int      `firestore:"recurrenceDays,omitempty"`
	RecurrenceEndDate  *time.Time `firestore:"recurrenceEndDate,omitempty"`
}

// firestoreNotificationRepository implements NotificationRepository on the notifications collection
type firestoreNotificationRepository struct {
	client *firestore.Client
}

// NewFirestoreNotificationRepository creates a Firestore-backed NotificationRepository
func NewFirestoreNotificationRepository(client *firestore.Client) NotificationRepository {
	return &firestoreNotificationRepository{client: client}
}

func (r *firestoreNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if n.Status == "" {
		n.Status = domain.StatusPending
	}
	col := r.client.Collection(notificationsCollection)
	ref := col.NewDoc()
	if n.ID != "" {
		ref = col.Doc(n.ID)
	}
	if _, err := ref.Create(ctx, toNotificationDoc(n)); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	n.ID = ref.ID
	n.CreatedAt = time.Now().UTC()
	n.UpdatedAt = n.CreatedAt
	return nil
}

func (r *firestoreNotificationRepository) FindByID(ctx context.Context, id string) (*domain.Notification, error) {
	snap, err := r.client.Collection(notificationsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	return fromNotificationSnapshot(snap)
}

func (r *firestoreNotificationRepository) FindPendingSystem(ctx context.Context, targetType domain.TargetType, targetID string) ([]*domain.Notification, error) {
	docs, err := r.client.Collection(notificationsCollection).
		Where("targetType", "==", string(targetType)).
		Where("targetId", "==", targetID).
		Where("createdBy", "==", domain.CreatedBySystem).
		Where("status", "==", string(domain.StatusPending)).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromNotificationSnapshots(docs)
}

func (r *firestoreNotificationRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*domain.Notification, error) {
	docs, err := r.client.Collection(notificationsCollection).
		Where("status", "==", string(domain.StatusPending)).
		Where("sendAt", "<=", now).
		Limit(limit).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	return fromNotificationSnapshots(docs)
}

func (r *firestoreNotificationRepository) MarkPending(ctx context.Context, id string) error {
	ref := r.client.Collection(notificationsCollection).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if current, _ := snap.DataAt("status"); current != nil && current != "" {
			return nil
		}
		return tx.Set(ref, map[string]interface{}{"status": string(domain.StatusPending)}, firestore.MergeAll)
	})
}

// SaveOutcome refuses to overwrite a record that already left pending
func (r *firestoreNotificationRepository) SaveOutcome(ctx context.Context, id string, outcome domain.Outcome) error {
	if !outcome.Status.Terminal() {
		return fmt.Errorf("%w: outcome status %q is not terminal", domain.ErrInvalidInput, outcome.Status)
	}

	update := map[string]interface{}{"status": string(outcome.Status)}
	switch outcome.Status {
	case domain.StatusSent:
		update["sent"] = outcome.Sent
		update["failed"] = outcome.Failed
		update["sentAt"] = firestore.ServerTimestamp
		if outcome.SentAt != nil {
			update["sentAt"] = *outcome.SentAt
		}
	case domain.StatusError:
		update["error"] = outcome.Error
	case domain.StatusNoTargets, domain.StatusNoTokens, domain.StatusPending:
	}

	ref := r.client.Collection(notificationsCollection).Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
			}
			return err
		}
		if current, _ := snap.DataAt("status"); current != nil && current != "" && current != string(domain.StatusPending) {
			return fmt.Errorf("%w: no pending notification %s", domain.ErrNotFound, id)
		}
		return tx.Set(ref, update, firestore.MergeAll)
	})
}

func toNotificationDoc(n *domain.Notification) notificationDoc {
	doc := notificationDoc{
		TargetType: string(n.TargetType),
		TargetID:   n.TargetID,
		Title:      n.Title,
		Message:    n.Message,
		SendAt:     n.SendAt,
		Status:     string(n.Status),
		CreatedBy:  n.CreatedBy,
		Sent:       n.Sent,
		Failed:     n.Failed,
		Error:      n.Error,
		SentAt:     n.SentAt,
	}
	if s := n.EventData; s != nil {
		doc.EventData = &snapshotDoc{
			EventID:   s.EventID,
			EventName: s.EventName,
			StartTime: s.StartTime,
			Location:  s.Location,
		}
		if rule := s.Recurrence; rule != nil {
			doc.EventData.RecurrenceType = string(rule.Type)
			doc.EventData.RecurrenceInterval = rule.Interval
			doc.EventData.RecurrenceDays = rule.Days
			doc.EventData.RecurrenceEndDate = rule.EndDate
		}
	}
	return doc
}

func fromNotificationSnapshots(docs []*firestore.DocumentSnapshot) ([]*domain.Notification, error) {
	out := make([]*domain.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := fromNotificationSnapshot(d)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func fromNotificationSnapshot(snap *firestore.DocumentSnapshot) (*domain.Notification, error) {
	var doc notificationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode notification %s: %w", snap.Ref.ID, err)
	}

	n := &domain.Notification{
		ID:         snap.Ref.ID,
		TargetType: domain.TargetType(doc.TargetType),
		TargetID:   doc.TargetID,
		Title:      doc.Title,
		Message:    doc.Message,
		SendAt:     doc.SendAt,
		Status:     domain.Status(doc.Status),
		CreatedBy:  doc.CreatedBy,
		Sent:       doc.Sent,
		Failed:     doc.Failed,
		Error:      doc.Error,
		SentAt:     doc.SentAt,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  snap.UpdateTime,
	}
	if n.TargetType == "" && doc.UID != "" {
		n.TargetType = domain.TargetUser
	}
	if n.TargetID == "" {
		n.TargetID = doc.UID
	}
	if s := doc.EventData; s != nil {
		n.EventData = &domain.EventSnapshot{
			EventID:   s.EventID,
			EventName: s.EventName,
			StartTime: s.StartTime,
			Location:  s.Location,
		}
		rule := &domain.RecurrenceRule{
			Type:     domain.RecurrenceType(s.RecurrenceType),
			Interval: s.RecurrenceInterval,
			Days:     s.RecurrenceDays,
			EndDate:  s.RecurrenceEndDate,
		}
		if rule.IsRecurring() {
			n.EventData.Recurrence = rule
		}
	}
	return n, nil
}

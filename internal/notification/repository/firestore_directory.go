package repository

import (
	"context"
	"strconv"
	"strings"
	"time"

	"ccce-notify/internal/notification/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	clubsCollection     = "clubs"
	eventsCollection    = "events"
	membersCollection   = "members"
	attendingCollection = "attending"
)

type firestoreDirectoryRepository struct {
	client *firestore.Client
}

// NewFirestoreDirectoryRepository reads clubs/{id}/members, events/{id}/attending and users
func NewFirestoreDirectoryRepository(client *firestore.Client) DirectoryRepository {
	return &firestoreDirectoryRepository{client: client}
}

func (r *firestoreDirectoryRepository) ClubMemberIDs(ctx context.Context, clubID string) ([]string, error) {
	return memberIDs(ctx, r.client.Collection(clubsCollection).Doc(clubID).Collection(membersCollection))
}

func (r *firestoreDirectoryRepository) EventAttendeeIDs(ctx context.Context, eventID string) ([]string, error) {
	return memberIDs(ctx, r.client.Collection(eventsCollection).Doc(eventID).Collection(attendingCollection))
}

func (r *firestoreDirectoryRepository) AllUserIDs(ctx context.Context) ([]string, error) {
	docs, err := r.client.Collection(usersCollection).Select().Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Ref.ID)
	}
	return ids, nil
}

// memberIDs prefers the document id and falls back to a uid field
func memberIDs(ctx context.Context, col *firestore.CollectionRef) ([]string, error) {
	docs, err := col.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		id := d.Ref.ID
		if id == "" {
			if uid, err := d.DataAt("uid"); err == nil {
				id, _ = uid.(string)
			}
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// eventDoc uses loose types because events are written by several clients
type eventDoc struct {
	EventName          string        `firestore:"eventName"`
	Description        string        `firestore:"description"`
	MainLocation       string        `firestore:"mainLocation"`
	StartTime          interface{}   `firestore:"startTime"`
	EndTime            interface{}   `firestore:"endTime"`
	EventType          string        `firestore:"eventType"`
	ClubID             string        `firestore:"clubId"`
	RecurrenceType     string        `firestore:"recurrenceType"`
	RecurrenceInterval interface{}   `firestore:"recurrenceInterval"`
	RecurrenceDays     []interface{} `firestore:"recurrenceDays"`
	RecurrenceEndDate  interface{}   `firestore:"recurrenceEndDate"`
}

type firestoreEventRepository struct {
	client *firestore.Client
}

// NewFirestoreEventRepository creates a Firestore-backed EventRepository
func NewFirestoreEventRepository(client *firestore.Client) EventRepository {
	return &firestoreEventRepository{client: client}
}

func (r *firestoreEventRepository) FindByID(ctx context.Context, id string) (*domain.Event, error) {
	snap, err := r.client.Collection(eventsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc eventDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, err
	}

	ev := &domain.Event{
		ID:          snap.Ref.ID,
		Name:        doc.EventName,
		Description: doc.Description,
		Location:    doc.MainLocation,
		StartTime:   asTime(doc.StartTime),
		EndTime:     asTime(doc.EndTime),
		EventType:   strings.ToLower(strings.TrimSpace(doc.EventType)),
		ClubID:      doc.ClubID,
		Recurrence: domain.RecurrenceRule{
			Type:     domain.RecurrenceType(doc.RecurrenceType),
			Interval: asInt(doc.RecurrenceInterval),
			EndDate:  asTime(doc.RecurrenceEndDate),
		},
		CreatedAt: snap.CreateTime,
		UpdatedAt: snap.UpdateTime,
	}
	for _, d := range doc.RecurrenceDays {
		if day := asInt(d); day >= 0 && day <= 6 && d != nil {
			ev.Recurrence.Days = append(ev.Recurrence.Days, day)
		}
	}
	return ev, nil
}

// NewFirestoreStore wires every Firestore repository over one client
func NewFirestoreStore(client *firestore.Client) Store {
	return Store{
		Notifications: NewFirestoreNotificationRepository(client),
		Tokens:        NewFirestoreTokenRepository(client),
		Directory:     NewFirestoreDirectoryRepository(client),
		Events:        NewFirestoreEventRepository(client),
	}
}

// asTime returns nil for anything that is not a timestamp
func asTime(v interface{}) *time.Time {
	t, ok := v.(time.Time)
	if !ok || t.IsZero() {
		return nil
	}
	return &t
}

// asInt returns 0 for values that are not numeric; callers treat 0 as unset
func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

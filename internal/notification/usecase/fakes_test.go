package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"ccce-notify/internal/notification/domain"
	"ccce-notify/internal/notification/repository"
	"ccce-notify/pkg/fcm"
)

var errStoreDown = errors.New("store unavailable")

type fakeNotifications struct {
	mu      sync.Mutex
	seq     int
	records map[string]*domain.Notification
}

func newFakeNotifications() *fakeNotifications {
	return &fakeNotifications{records: make(map[string]*domain.Notification)}
}

func (f *fakeNotifications) Create(_ context.Context, n *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.ID == "" {
		for n.ID == "" || f.records[n.ID] != nil {
			f.seq++
			n.ID = fmt.Sprintf("n%d", f.seq)
		}
	} else if _, ok := f.records[n.ID]; ok {
		return fmt.Errorf("notification %s already exists", n.ID)
	}
	if n.Status == "" {
		n.Status = domain.StatusPending
	}
	c := *n
	f.records[n.ID] = &c
	return nil
}

// put stores a record as-is, bypassing Create defaults
func (f *fakeNotifications) put(n *domain.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *n
	f.records[n.ID] = &c
}

func (f *fakeNotifications) get(id string) *domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.records[id]
	if !ok {
		return nil
	}
	c := *n
	return &c
}

func (f *fakeNotifications) FindByID(_ context.Context, id string) (*domain.Notification, error) {
	return f.get(id), nil
}

func (f *fakeNotifications) FindPendingSystem(_ context.Context, targetType domain.TargetType, targetID string) ([]*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.records {
		if n.TargetType == targetType && n.TargetID == targetID &&
			n.CreatedBy == domain.CreatedBySystem && n.Status == domain.StatusPending {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (f *fakeNotifications) FindDue(_ context.Context, now time.Time, limit int) ([]*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.records {
		if n.Status == domain.StatusPending && n.SendAt != nil && !n.SendAt.After(now) {
			c := *n
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SendAt.Before(*out[j].SendAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeNotifications) MarkPending(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.records[id]; ok && n.Status == "" {
		n.Status = domain.StatusPending
	}
	return nil
}

func (f *fakeNotifications) SaveOutcome(_ context.Context, id string, o domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.records[id]
	if !ok || (n.Status != "" && n.Status != domain.StatusPending) {
		return fmt.Errorf("%w: no pending notification %s", domain.ErrNotFound, id)
	}
	n.Status, n.Sent, n.Failed, n.Error, n.SentAt = o.Status, o.Sent, o.Failed, o.Error, o.SentAt
	return nil
}

func (f *fakeNotifications) pending() []*domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Notification
	for _, n := range f.records {
		if n.Status == domain.StatusPending {
			c := *n
			out = append(out, &c)
		}
	}
	return out
}

type fakeTokens struct {
	mu      sync.Mutex
	byUser  map[string][]string
	failGet map[string]bool
	failDel map[string]bool
	deleted map[string][]string
}

func newFakeTokens(byUser map[string][]string) *fakeTokens {
	if byUser == nil {
		byUser = make(map[string][]string)
	}
	return &fakeTokens{
		byUser:  byUser,
		failGet: make(map[string]bool),
		failDel: make(map[string]bool),
		deleted: make(map[string][]string),
	}
}

func (f *fakeTokens) SaveToken(_ context.Context, userID, token, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !slices.Contains(f.byUser[userID], token) {
		f.byUser[userID] = append(f.byUser[userID], token)
	}
	return nil
}

func (f *fakeTokens) GetTokensByUserID(_ context.Context, userID string) ([]domain.FCMToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet[userID] {
		return nil, errStoreDown
	}
	var out []domain.FCMToken
	for _, t := range f.byUser[userID] {
		out = append(out, domain.FCMToken{UserID: userID, Token: t})
	}
	return out, nil
}

func (f *fakeTokens) DeleteUserTokens(_ context.Context, userID string, tokens []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDel[userID] {
		return errStoreDown
	}
	f.deleted[userID] = append(f.deleted[userID], tokens...)
	f.byUser[userID] = slices.DeleteFunc(f.byUser[userID], func(t string) bool {
		return slices.Contains(tokens, t)
	})
	return nil
}

func (f *fakeTokens) deletedFor(userID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.deleted[userID])
}

type fakeDirectory struct {
	clubs     map[string][]string
	attendees map[string][]string
	users     []string
	err       error
}

func (f *fakeDirectory) ClubMemberIDs(_ context.Context, clubID string) ([]string, error) {
	return f.clubs[clubID], f.err
}

func (f *fakeDirectory) EventAttendeeIDs(_ context.Context, eventID string) ([]string, error) {
	return f.attendees[eventID], f.err
}

func (f *fakeDirectory) AllUserIDs(_ context.Context) ([]string, error) {
	return f.users, f.err
}

type fakeEvents struct {
	mu     sync.Mutex
	events map[string]*domain.Event
}

func newFakeEvents(events ...*domain.Event) *fakeEvents {
	f := &fakeEvents{events: make(map[string]*domain.Event)}
	for _, ev := range events {
		f.events[ev.ID] = ev
	}
	return f
}

func (f *fakeEvents) FindByID(_ context.Context, id string) (*domain.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	c := *ev
	return &c, nil
}

// fakeTransport accepts every token except those listed in reject, and fails
// whole calls by call index listed in failCalls.
type fakeTransport struct {
	mu        sync.Mutex
	calls     [][]string
	payloads  []fcm.NotificationData
	reject    map[string]bool
	failCalls map[int]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{reject: make(map[string]bool), failCalls: make(map[int]bool)}
}

func (f *fakeTransport) SendMulticast(_ context.Context, tokens []string, data fcm.NotificationData) (*fcm.BatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := len(f.calls)
	f.calls = append(f.calls, slices.Clone(tokens))
	f.payloads = append(f.payloads, data)

	if len(tokens) > fcm.MaxMulticastTokens {
		return nil, fmt.Errorf("too many tokens: %d", len(tokens))
	}
	if f.failCalls[idx] {
		return nil, errors.New("transport unreachable")
	}

	res := &fcm.BatchResult{Responses: make([]fcm.SendResult, len(tokens))}
	for i, t := range tokens {
		if f.reject[t] {
			res.FailureCount++
			res.Responses[i] = fcm.SendResult{Err: errors.New("registration-token-not-registered")}
			continue
		}
		res.SuccessCount++
		res.Responses[i] = fcm.SendResult{Success: true}
	}
	return res, nil
}

func (f *fakeTransport) callSizes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	sizes := make([]int, len(f.calls))
	for i, c := range f.calls {
		sizes[i] = len(c)
	}
	return sizes
}

type fixture struct {
	notifications *fakeNotifications
	tokens        *fakeTokens
	directory     *fakeDirectory
	events        *fakeEvents
	transport     *fakeTransport
	now           time.Time
}

func newFixture(now time.Time) *fixture {
	return &fixture{
		notifications: newFakeNotifications(),
		tokens:        newFakeTokens(nil),
		directory:     &fakeDirectory{clubs: map[string][]string{}, attendees: map[string][]string{}},
		events:        newFakeEvents(),
		transport:     newFakeTransport(),
		now:           now,
	}
}

func (f *fixture) store() repository.Store {
	return repository.Store{
		Notifications: f.notifications,
		Tokens:        f.tokens,
		Directory:     f.directory,
		Events:        f.events,
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func tokenPairs(n int) []domain.TokenPair {
	pairs := make([]domain.TokenPair, n)
	for i := range pairs {
		pairs[i] = domain.TokenPair{UserID: fmt.Sprintf("u%d", i%7), Token: fmt.Sprintf("tok-%04d", i)}
	}
	return pairs
}

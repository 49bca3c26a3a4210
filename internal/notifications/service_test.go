package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecoa/zeladoria/internal/policy"
)

type stubStore struct {
	items map[uuid.UUID]Notification
	fail  error
}

func newStubStore(items ...Notification) *stubStore {
	s := &stubStore{items: make(map[uuid.UUID]Notification)}
	for _, n := range items {
		s.items[n.ID] = n
	}
	return s
}

func (s *stubStore) List(ctx context.Context, filter Filter) ([]Notification, error) {
	if s.fail != nil {
		return nil, s.fail
	}
	var out []Notification
	for _, n := range s.items {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *stubStore) Get(ctx context.Context, id uuid.UUID) (*Notification, error) {
	n, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &n, nil
}

func (s *stubStore) SetRead(ctx context.Context, id, userID uuid.UUID, read bool) (*Notification, error) {
	n, ok := s.items[id]
	if !ok || n.UserID != userID {
		return nil, ErrNotFound
	}
	n.IsRead = read
	s.items[id] = n
	return &n, nil
}

func newNotification(owner uuid.UUID, read bool) Notification {
	return Notification{
		ID:        uuid.New(),
		UserID:    owner,
		Title:     policy.ResponseNotificationTitle,
		Message:   policy.ResponseNotificationMessage("Equipe enviada"),
		IsRead:    read,
		CreatedAt: time.Now(),
	}
}

func TestListReturnsOnlyOwnNotifications(t *testing.T) {
	owner := &policy.Principal{ID: uuid.New(), Role: policy.RoleUser}
	other := uuid.New()
	store := newStubStore(newNotification(owner.ID, false), newNotification(owner.ID, true), newNotification(other, false))
	svc := &Service{repo: store, logger: zerolog.Nop()}

	all, err := svc.List(context.Background(), owner, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(all))
	}

	unread, err := svc.List(context.Background(), owner, true)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 1 || unread[0].IsRead {
		t.Fatalf("expected only the unread notification, got %+v", unread)
	}
}

func TestMarkReadByRecipient(t *testing.T) {
	owner := &policy.Principal{ID: uuid.New(), Role: policy.RoleUser}
	n := newNotification(owner.ID, false)
	store := newStubStore(n)
	svc := &Service{repo: store, logger: zerolog.Nop()}

	updated, err := svc.MarkRead(context.Background(), owner, n.ID, true)
	if err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if !updated.IsRead || !store.items[n.ID].IsRead {
		t.Fatal("notification must be read")
	}

	updated, err = svc.MarkRead(context.Background(), owner, n.ID, false)
	if err != nil || updated.IsRead {
		t.Fatalf("recipient must be able to flip back to unread, err=%v", err)
	}
}

func TestMarkReadByOtherPrincipalIsNotFound(t *testing.T) {
	owner := uuid.New()
	n := newNotification(owner, false)
	store := newStubStore(n)
	svc := &Service{repo: store, logger: zerolog.Nop()}

	admin := &policy.Principal{ID: uuid.New(), Role: policy.RoleAdmin}
	if _, err := svc.MarkRead(context.Background(), admin, n.ID, true); !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if store.items[n.ID].IsRead {
		t.Fatal("notification must stay unread")
	}

	if _, err := svc.MarkRead(context.Background(), admin, uuid.New(), true); !errors.Is(err, policy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing id, got %v", err)
	}
}

func TestListWrapsStoreErrors(t *testing.T) {
	store := newStubStore()
	store.fail = errors.New("conexão recusada")
	svc := &Service{repo: store, logger: zerolog.Nop()}

	_, err := svc.List(context.Background(), &policy.Principal{ID: uuid.New()}, false)
	if !errors.Is(err, policy.ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
	if _, err := svc.List(context.Background(), nil, false); !errors.Is(err, policy.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

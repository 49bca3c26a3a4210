package requests

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ecoa/zeladoria/internal/policy"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// fakeTx só implementa o que CreateResponse usa; o restante da interface fica nil.
type fakeTx struct {
	pgx.Tx
	noteErr    error
	staged     []string
	committed  []string
	rolledBack bool
	done       bool
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	switch {
	case strings.Contains(sql, "INSERT INTO request_responses"):
		t.staged = append(t.staged, "response")
		return fakeRow{values: []any{uuid.New(), args[0], args[1], args[2], now}}
	case strings.Contains(sql, "INSERT INTO notifications"):
		if t.noteErr != nil {
			return fakeRow{err: t.noteErr}
		}
		t.staged = append(t.staged, "notification")
		requestID := args[1].(uuid.UUID)
		return fakeRow{values: []any{uuid.New(), args[0], &requestID, (*string)(nil), args[2], args[3], false, now}}
	}
	return fakeRow{err: errors.New("consulta inesperada: " + sql)}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.committed = append(t.committed, t.staged...)
	t.staged = nil
	t.done = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.staged = nil
	t.rolledBack = true
	t.done = true
	return nil
}

type fakeBeginner struct{ tx *fakeTx }

func (b fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return b.tx, nil
}

func newResponseDraft(owner, requestID uuid.UUID, message string) policy.NotificationDraft {
	return policy.ResponseNotification(policy.Target{OwnerID: owner, Status: policy.StatusPending}, requestID, message)
}

func TestCreateResponseCommitsBoth(t *testing.T) {
	tx := &fakeTx{}
	repo := &Repository{tx: fakeBeginner{tx: tx}}
	owner, admin, requestID := uuid.New(), uuid.New(), uuid.New()

	resp, note, err := repo.CreateResponse(context.Background(), requestID, admin, "Equipe enviada", newResponseDraft(owner, requestID, "Equipe enviada"))
	if err != nil {
		t.Fatalf("create response: %v", err)
	}
	if resp.RequestID != requestID || resp.UserID != admin || resp.Message != "Equipe enviada" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if note.UserID != owner || note.RequestID == nil || *note.RequestID != requestID || note.IsRead {
		t.Fatalf("unexpected notification %+v", note)
	}
	if len(tx.committed) != 2 || tx.rolledBack {
		t.Fatalf("expected both rows committed, got %v rolledBack=%v", tx.committed, tx.rolledBack)
	}
}

func TestCreateResponseRollsBackWhenNotificationFails(t *testing.T) {
	tx := &fakeTx{noteErr: errors.New("check constraint")}
	repo := &Repository{tx: fakeBeginner{tx: tx}}
	owner, requestID := uuid.New(), uuid.New()

	resp, note, err := repo.CreateResponse(context.Background(), requestID, uuid.New(), "ok", newResponseDraft(owner, requestID, "ok"))
	if err == nil {
		t.Fatal("expected error")
	}
	if resp != nil || note != nil {
		t.Fatal("nothing may be returned on failure")
	}
	if len(tx.committed) != 0 || !tx.rolledBack {
		t.Fatalf("expected rollback, committed=%v", tx.committed)
	}
}

func TestCreateResponseMapsMissingRequest(t *testing.T) {
	tx := &fakeTx{noteErr: &pgconn.PgError{Code: foreignKeyViolation}}
	repo := &Repository{tx: fakeBeginner{tx: tx}}
	requestID := uuid.New()

	_, _, err := repo.CreateResponse(context.Background(), requestID, uuid.New(), "ok", newResponseDraft(uuid.New(), requestID, "ok"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !tx.rolledBack {
		t.Fatal("expected rollback")
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Fatalf("unexpected escape %q", got)
	}
}

package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type recordingTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	commitErr  error
}

func (t *recordingTx) Commit(ctx context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *recordingTx) Rollback(ctx context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type beginner struct {
	tx  *recordingTx
	err error
}

func (b beginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.tx, nil
}

func TestInTxCommits(t *testing.T) {
	tx := &recordingTx{}
	if err := InTx(context.Background(), beginner{tx: tx}, func(pgx.Tx) error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected commit only, got %+v", tx)
	}
}

func TestInTxRollsBackOnError(t *testing.T) {
	tx := &recordingTx{}
	boom := errors.New("boom")
	err := InTx(context.Background(), beginner{tx: tx}, func(pgx.Tx) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if tx.committed || !tx.rolledBack {
		t.Fatalf("expected rollback only, got %+v", tx)
	}
}

func TestInTxRollsBackOnPanic(t *testing.T) {
	tx := &recordingTx{}
	defer func() {
		if recover() == nil {
			t.Fatal("panic must propagate")
		}
		if !tx.rolledBack {
			t.Fatal("expected rollback before re-panicking")
		}
	}()
	_ = InTx(context.Background(), beginner{tx: tx}, func(pgx.Tx) error { panic("falhou") })
}

func TestInTxReportsBeginAndCommitFailures(t *testing.T) {
	down := errors.New("conexão recusada")
	if err := InTx(context.Background(), beginner{err: down}, func(pgx.Tx) error { return nil }); !errors.Is(err, down) {
		t.Fatalf("expected begin error, got %v", err)
	}

	tx := &recordingTx{commitErr: errors.New("serialization failure")}
	if err := InTx(context.Background(), beginner{tx: tx}, func(pgx.Tx) error { return nil }); !errors.Is(err, tx.commitErr) {
		t.Fatalf("expected commit error, got %v", err)
	}
}

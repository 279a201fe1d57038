package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/storage"
)

// fakeTx records how a unit ended. Only Commit and Rollback are exercised.
type fakeTx struct {
	storage.Tx
	committed, rolledBack bool
	commitErr             error
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return t.commitErr }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type fakeBeginner struct {
	txs       []*fakeTx
	commitErr []error
}

func (b *fakeBeginner) BeginTx(context.Context) (storage.Tx, error) {
	tx := &fakeTx{}
	if n := len(b.txs); n < len(b.commitErr) {
		tx.commitErr = b.commitErr[n]
	}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func fastRetries(t *testing.T) {
	t.Helper()
	prev := storage.InitialDelay
	storage.InitialDelay = time.Millisecond
	t.Cleanup(func() { storage.InitialDelay = prev })
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	b := &fakeBeginner{}
	require.NoError(t, storage.WithTx(context.Background(), b, "ok", func(storage.Tx) error { return nil }))
	require.Len(t, b.txs, 1)
	assert.True(t, b.txs[0].committed)
	assert.False(t, b.txs[0].rolledBack)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	b := &fakeBeginner{}
	boom := errors.New("boom")
	err := storage.WithTx(context.Background(), b, "fail", func(storage.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.Len(t, b.txs, 1)
	assert.False(t, b.txs[0].committed)
	assert.True(t, b.txs[0].rolledBack)
}

func TestWithTx_RetriesConflicts(t *testing.T) {
	fastRetries(t)
	b := &fakeBeginner{}
	calls := 0
	err := storage.WithTx(context.Background(), b, "retry", func(storage.Tx) error {
		calls++
		if calls < 3 {
			return errs.ErrConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, b.txs[2].committed)
}

func TestWithTx_GivesUpAfterMaxAttempts(t *testing.T) {
	fastRetries(t)
	b := &fakeBeginner{commitErr: []error{errs.ErrConflict, errs.ErrConflict, errs.ErrConflict, errs.ErrConflict}}
	err := storage.WithTx(context.Background(), b, "conflict", func(storage.Tx) error { return nil })
	require.ErrorIs(t, err, errs.ErrConflict)
	assert.Len(t, b.txs, storage.MaxAttempts)
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	b := &fakeBeginner{}
	assert.Panics(t, func() {
		_ = storage.WithTx(context.Background(), b, "panic", func(storage.Tx) error { panic("boom") })
	})
	assert.True(t, b.txs[0].rolledBack)
}

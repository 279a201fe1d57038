// Package storage defines the unit-of-work contract shared by the memory and
// postgres stores and the services that mutate ledger state.
package storage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// Tx is one atomic unit of work. Every read and write that must be
// consistent with a balance or budget change goes through it.
// Lock* methods acquire row-level write locks that are held until
// Commit or Rollback.
type Tx interface {
	LockAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	SetAccountBalance(ctx context.Context, userID, accountID uuid.UUID, balance money.Amount) error

	LockTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
	InsertTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	UpdateTransaction(ctx context.Context, t ledger.Transaction) (ledger.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, txID uuid.UUID) error

	GetCategory(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error)

	// LockBudgetScope serializes budget writers for one (owner, category).
	LockBudgetScope(ctx context.Context, userID, categoryID uuid.UUID) error
	BudgetsForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error)
	LockBudget(ctx context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error)
	InsertBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)
	UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error)

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens units of work.
type Beginner interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Retry bounds for units that fail with errs.ErrConflict.
var (
	MaxAttempts  = 3
	InitialDelay = 20 * time.Millisecond
	MaxDelay     = 250 * time.Millisecond
)

var tracer = otel.Tracer("github.com/tinoosan/finance/internal/storage")

// WithTx runs fn inside a unit of work. A nil return commits, anything else
// rolls back. Units failing with errs.ErrConflict (serialization failure,
// deadlock) are retried with backoff; fn must therefore be safe to re-run.
func WithTx(ctx context.Context, b Beginner, name string, fn func(Tx) error) error {
	ctx, span := tracer.Start(ctx, "storage.WithTx",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("unit", name)))
	defer span.End()

	delay := InitialDelay
	var err error
retry:
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err = runOnce(ctx, b, fn)
		if err == nil || !errors.Is(err, errs.ErrConflict) {
			break
		}
		span.SetAttributes(attribute.Int("attempts", attempt))
		if attempt == MaxAttempts {
			break
		}
		slog.DebugContext(ctx, "unit of work conflicted, retrying", "unit", name, "attempt", attempt, "delay", delay)
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(delay):
			delay *= 2
			if delay > MaxDelay {
				delay = MaxDelay
			}
		}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func runOnce(ctx context.Context, b Beginner, fn func(Tx) error) (err error) {
	tx, err := b.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

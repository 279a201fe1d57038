// Package spend computes a budget's spend at read time. Nothing here is cached:
// every call re-aggregates expense transactions from the store.
package spend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// Repo sums expense amounts over half-open [from, to) instants.
type Repo interface {
	SumExpenses(ctx context.Context, userID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	SumExpensesBatch(ctx context.Context, userID uuid.UUID, windows []ledger.ExpenseWindow) (map[uuid.UUID]decimal.Decimal, error)
}

// Window asks for the spend of one category over an inclusive date range.
type Window struct {
	Key        uuid.UUID
	CategoryID uuid.UUID
	Period     ledger.DateRange
}

type Service interface {
	SumExpenses(ctx context.Context, userID, categoryID uuid.UUID, period ledger.DateRange) (decimal.Decimal, error)
	// SumExpensesBatch answers many windows with one grouped aggregation, keyed by Window.Key.
	SumExpensesBatch(ctx context.Context, userID uuid.UUID, windows []Window) (map[uuid.UUID]decimal.Decimal, error)
}

type service struct {
	repo Repo
	loc  *time.Location
}

// New returns a Service that resolves calendar dates in loc (UTC when nil).
func New(repo Repo, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, loc: loc}
}

func (s *service) SumExpenses(ctx context.Context, userID, categoryID uuid.UUID, period ledger.DateRange) (decimal.Decimal, error) {
	if err := period.Validate(); err != nil {
		return decimal.Decimal{}, err
	}
	from, to := period.Bounds(s.loc)
	return s.repo.SumExpenses(ctx, userID, categoryID, from, to)
}

func (s *service) SumExpensesBatch(ctx context.Context, userID uuid.UUID, windows []Window) (map[uuid.UUID]decimal.Decimal, error) {
	if len(windows) == 0 {
		return map[uuid.UUID]decimal.Decimal{}, nil
	}
	in := make([]ledger.ExpenseWindow, 0, len(windows))
	for _, w := range windows {
		if err := w.Period.Validate(); err != nil {
			return nil, err
		}
		if w.Key == uuid.Nil {
			return nil, errs.Invalid("key", "window key is required", nil)
		}
		from, to := w.Period.Bounds(s.loc)
		in = append(in, ledger.ExpenseWindow{Key: w.Key, CategoryID: w.CategoryID, From: from, To: to})
	}
	return s.repo.SumExpensesBatch(ctx, userID, in)
}

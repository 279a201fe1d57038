// Package budget owns budget writes and the period validator that keeps the
// budgets of one (owner, category) from overlapping.
package budget

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/spend"
	"github.com/tinoosan/finance/internal/storage"
)

var overlapRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "finance_budget_overlap_rejections_total",
	Help: "Budget writes rejected because the period overlaps an existing budget",
})

type Repo interface {
	storage.Beginner
	scopeReader
	GetBudget(ctx context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error)
	ListBudgets(ctx context.Context, userID uuid.UUID, f ledger.BudgetFilter) ([]ledger.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID uuid.UUID) error
}

// scopeReader is implemented by both the store and a storage.Tx.
type scopeReader interface {
	GetCategory(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error)
	BudgetsForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error)
}

type Service interface {
	// Validate returns nil, a ValidationError or an *errs.OverlapError.
	Validate(ctx context.Context, userID, categoryID uuid.UUID, period ledger.DateRange, exclude uuid.NullUUID) error
	Create(ctx context.Context, in Input) (ledger.Budget, error)
	Update(ctx context.Context, budgetID uuid.UUID, in Input) (ledger.Budget, bool, error)
	Delete(ctx context.Context, userID, budgetID uuid.UUID) (bool, error)
	Get(ctx context.Context, userID, budgetID uuid.UUID) (Progress, bool, error)
	List(ctx context.Context, userID uuid.UUID, f ledger.BudgetFilter) ([]Progress, error)
}

type Input struct {
	UserID                uuid.UUID
	CategoryID            uuid.UUID
	Amount                decimal.Decimal
	Period                ledger.DateRange
	IsRecurring           bool
	NotificationThreshold int
}

// Progress is a budget with its read-time spend figures.
type Progress struct {
	ledger.Budget
	spend.Figures
	// ThresholdReached is set once progress reaches a non-zero notification threshold.
	ThresholdReached bool
}

type service struct {
	repo   Repo
	spend  spend.Service
	logger *slog.Logger
}

func New(repo Repo, spendSvc spend.Service, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, spend: spendSvc, logger: logger}
}

func (s *service) Validate(ctx context.Context, userID, categoryID uuid.UUID, period ledger.DateRange, exclude uuid.NullUUID) error {
	return checkPeriod(ctx, s.repo, userID, categoryID, period, exclude)
}

// checkPeriod rejects [s, e] when any other budget [s', e'] of the same
// (owner, category) satisfies s <= e' && s' <= e.
func checkPeriod(ctx context.Context, r scopeReader, userID, categoryID uuid.UUID, period ledger.DateRange, exclude uuid.NullUUID) error {
	if err := period.Validate(); err != nil {
		return err
	}
	if _, err := r.GetCategory(ctx, userID, categoryID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.Invalid("category_id", "category not found", errs.ErrCategoryNotFound)
		}
		return err
	}
	existing, err := r.BudgetsForCategory(ctx, userID, categoryID)
	if err != nil {
		return err
	}
	for _, b := range existing {
		if exclude.Valid && b.ID == exclude.UUID {
			continue
		}
		if period.Overlaps(b.Period) {
			overlapRejections.Inc()
			return &errs.OverlapError{BudgetID: b.ID}
		}
	}
	return nil
}

func validateInput(in Input) error {
	if in.UserID == uuid.Nil {
		return errs.Invalid("user_id", "required", nil)
	}
	if in.CategoryID == uuid.Nil {
		return errs.Invalid("category_id", "required", errs.ErrCategoryNotFound)
	}
	if !in.Amount.IsPos() {
		return errs.Invalid("amount", "must be greater than zero", errs.ErrInvalidAmount)
	}
	if t := in.Amount.Trim(2); t.Scale() > 2 || t.Prec()-t.Scale() > 13 {
		return errs.Invalid("amount", "must fit numeric(15,2)", errs.ErrInvalidAmount)
	}
	if in.NotificationThreshold < 0 || in.NotificationThreshold > 100 {
		return errs.Invalid("notification_threshold", "must be between 0 and 100", nil)
	}
	return in.Period.Validate()
}

func (s *service) Create(ctx context.Context, in Input) (ledger.Budget, error) {
	if err := validateInput(in); err != nil {
		return ledger.Budget{}, err
	}
	var out ledger.Budget
	err := storage.WithTx(ctx, s.repo, "budget.create", func(tx storage.Tx) error {
		if err := tx.LockBudgetScope(ctx, in.UserID, in.CategoryID); err != nil {
			return err
		}
		if err := checkPeriod(ctx, tx, in.UserID, in.CategoryID, in.Period, uuid.NullUUID{}); err != nil {
			return err
		}
		b, err := tx.InsertBudget(ctx, ledger.Budget{
			ID:                    uuid.New(),
			UserID:                in.UserID,
			CategoryID:            in.CategoryID,
			Amount:                in.Amount.Trim(2),
			Period:                in.Period,
			IsRecurring:           in.IsRecurring,
			NotificationThreshold: in.NotificationThreshold,
		})
		out = b
		return err
	})
	if err != nil {
		return ledger.Budget{}, err
	}
	s.logger.DebugContext(ctx, "budget created", "user_id", out.UserID, "budget_id", out.ID,
		"category_id", out.CategoryID, "period", out.Period.String())
	return out, nil
}

func (s *service) Update(ctx context.Context, budgetID uuid.UUID, in Input) (ledger.Budget, bool, error) {
	if err := validateInput(in); err != nil {
		return ledger.Budget{}, false, err
	}
	var (
		out   ledger.Budget
		found bool
	)
	err := storage.WithTx(ctx, s.repo, "budget.update", func(tx storage.Tx) error {
		found = false
		cur, err := tx.LockBudget(ctx, in.UserID, budgetID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if err := tx.LockBudgetScope(ctx, in.UserID, in.CategoryID); err != nil {
			return err
		}
		if err := checkPeriod(ctx, tx, in.UserID, in.CategoryID, in.Period, uuid.NullUUID{UUID: budgetID, Valid: true}); err != nil {
			return err
		}
		cur.CategoryID = in.CategoryID
		cur.Amount = in.Amount.Trim(2)
		cur.Period = in.Period
		cur.IsRecurring = in.IsRecurring
		cur.NotificationThreshold = in.NotificationThreshold
		out, err = tx.UpdateBudget(ctx, cur)
		return err
	})
	if err != nil || !found {
		return ledger.Budget{}, false, err
	}
	s.logger.DebugContext(ctx, "budget updated", "user_id", out.UserID, "budget_id", out.ID, "period", out.Period.String())
	return out, true, nil
}

func (s *service) Delete(ctx context.Context, userID, budgetID uuid.UUID) (bool, error) {
	err := s.repo.DeleteBudget(ctx, userID, budgetID)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *service) Get(ctx context.Context, userID, budgetID uuid.UUID) (Progress, bool, error) {
	b, err := s.repo.GetBudget(ctx, userID, budgetID)
	if errors.Is(err, errs.ErrNotFound) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, err
	}
	spent, err := s.spend.SumExpenses(ctx, userID, b.CategoryID, b.Period)
	if err != nil {
		return Progress{}, false, err
	}
	p, err := progressOf(b, spent)
	return p, err == nil, err
}

// List computes every budget's spend with one batched aggregation.
func (s *service) List(ctx context.Context, userID uuid.UUID, f ledger.BudgetFilter) ([]Progress, error) {
	budgets, err := s.repo.ListBudgets(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	windows := make([]spend.Window, len(budgets))
	for i, b := range budgets {
		windows[i] = spend.Window{Key: b.ID, CategoryID: b.CategoryID, Period: b.Period}
	}
	spent, err := s.spend.SumExpensesBatch(ctx, userID, windows)
	if err != nil {
		return nil, err
	}
	out := make([]Progress, 0, len(budgets))
	for _, b := range budgets {
		p, err := progressOf(b, spent[b.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func progressOf(b ledger.Budget, spent decimal.Decimal) (Progress, error) {
	fig, err := spend.Derive(b.Amount, spent)
	if err != nil {
		return Progress{}, err
	}
	threshold := decimal.MustNew(int64(b.NotificationThreshold), 0)
	reached := b.NotificationThreshold > 0 && fig.Progress.Cmp(threshold) >= 0
	return Progress{Budget: b, Figures: fig, ThresholdReached: reached}, nil
}

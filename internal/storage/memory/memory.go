// Package memory provides an in-memory Ledger Store used for development and tests.
// A unit of work holds the write lock from BeginTx until Commit or Rollback,
// which serializes every balance and budget mutation.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/storage"
)

var errTxDone = errors.New("memory: transaction already committed or rolled back")

// Store is guarded by an RWMutex for concurrent reads/writes.
type Store struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]struct{}
	accounts     map[uuid.UUID]ledger.Account
	categories   map[uuid.UUID]ledger.Category
	transactions map[uuid.UUID]ledger.Transaction
	budgets      map[uuid.UUID]ledger.Budget
	now          func() time.Time
}

// New constructs a store holding only the default system categories.
func New() *Store {
	s := &Store{now: func() time.Time { return time.Now().UTC() }}
	s.Reset()
	return s
}

// Reset drops all user data and re-seeds the default categories.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = map[uuid.UUID]struct{}{}
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.categories = map[uuid.UUID]ledger.Category{}
	s.transactions = map[uuid.UUID]ledger.Transaction{}
	s.budgets = map[uuid.UUID]ledger.Budget{}
	for _, c := range dictionary.DefaultCategories() {
		s.categories[c.ID] = c
	}
}

// Seed helpers for local dev/tests.
func (s *Store) SeedUser(u ledger.User)         { s.mu.Lock(); s.users[u.ID] = struct{}{}; s.mu.Unlock() }
func (s *Store) SeedAccount(a ledger.Account)   { s.mu.Lock(); s.accounts[a.ID] = a; s.mu.Unlock() }
func (s *Store) SeedCategory(c ledger.Category) { s.mu.Lock(); s.categories[c.ID] = c; s.mu.Unlock() }

// SeedTransaction stores t as-is without touching any balance.
func (s *Store) SeedTransaction(t ledger.Transaction) {
	s.mu.Lock()
	s.transactions[t.ID] = t
	s.mu.Unlock()
}

// Ready always succeeds for the memory store.
func (s *Store) Ready(context.Context) error { return nil }

// --- Accounts ---

func (s *Store) GetAccount(_ context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok || a.UserID != userID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// ListAccounts returns the user's accounts ordered by name.
func (s *Store) ListAccounts(_ context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0)
	for _, a := range s.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) CreateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; ok {
		return ledger.Account{}, errs.ErrConflict
	}
	now := s.now()
	a.CreatedAt, a.UpdatedAt = now, now
	s.users[a.UserID] = struct{}{}
	s.accounts[a.ID] = a
	return a, nil
}

// UpdateAccount updates name and active. The balance is owned by the mutator.
func (s *Store) UpdateAccount(_ context.Context, a ledger.Account) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.accounts[a.ID]
	if !ok || cur.UserID != a.UserID {
		return ledger.Account{}, errs.ErrNotFound
	}
	cur.Name = a.Name
	cur.Active = a.Active
	cur.UpdatedAt = s.now()
	s.accounts[a.ID] = cur
	return cur, nil
}

// --- Transactions ---

func (s *Store) GetTransaction(_ context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transactions[txID]
	if !ok || t.UserID != userID {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return t, nil
}

// ListTransactions returns matching transactions ordered by (OccurredAt, ID).
func (s *Store) ListTransactions(_ context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && f.Match(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// --- Categories ---

func (s *Store) GetCategory(_ context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.categoryLocked(userID, categoryID)
}

func (s *Store) categoryLocked(userID, categoryID uuid.UUID) (ledger.Category, error) {
	c, ok := s.categories[categoryID]
	if !ok || !c.VisibleTo(userID) {
		return ledger.Category{}, errs.ErrNotFound
	}
	return c, nil
}

// ListCategories returns system defaults plus the user's own categories.
func (s *Store) ListCategories(_ context.Context, userID uuid.UUID) ([]ledger.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.VisibleTo(userID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- Budgets ---

func (s *Store) GetBudget(_ context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[budgetID]
	if !ok || b.UserID != userID {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

// ListBudgets returns matching budgets ordered by period start.
func (s *Store) ListBudgets(_ context.Context, userID uuid.UUID, f ledger.BudgetFilter) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID && f.Match(b) {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return out, nil
}

func (s *Store) BudgetsForCategory(_ context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budgetsForCategoryLocked(userID, categoryID), nil
}

func (s *Store) budgetsForCategoryLocked(userID, categoryID uuid.UUID) []ledger.Budget {
	out := make([]ledger.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID && b.CategoryID == categoryID {
			out = append(out, b)
		}
	}
	sortBudgets(out)
	return out
}

func sortBudgets(bs []ledger.Budget) {
	sort.Slice(bs, func(i, j int) bool {
		if c := bs[i].Period.Start.Compare(bs[j].Period.Start); c != 0 {
			return c < 0
		}
		return bs[i].ID.String() < bs[j].ID.String()
	})
}

// DeleteBudget removes a budget. Budgets carry no balance effect, so no unit of work is needed.
func (s *Store) DeleteBudget(_ context.Context, userID, budgetID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[budgetID]
	if !ok || b.UserID != userID {
		return errs.ErrNotFound
	}
	delete(s.budgets, budgetID)
	return nil
}

// --- Spend aggregation ---

// SumExpenses sums expense amounts in [from, to) for one category.
func (s *Store) SumExpenses(_ context.Context, userID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sumExpensesLocked(userID, categoryID, from, to)
}

// SumExpensesBatch evaluates every window in a single pass over the user's transactions.
func (s *Store) SumExpensesBatch(_ context.Context, userID uuid.UUID, windows []ledger.ExpenseWindow) (map[uuid.UUID]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[uuid.UUID]decimal.Decimal, len(windows))
	for _, w := range windows {
		out[w.Key] = decimal.Zero
	}
	for _, t := range s.transactions {
		if t.UserID != userID || !t.CategoryID.Valid || !isExpense(t.Kind) {
			continue
		}
		for _, w := range windows {
			if t.CategoryID.UUID != w.CategoryID || !inWindow(t.OccurredAt, w.From, w.To) {
				continue
			}
			sum, err := out[w.Key].Add(t.Amount.Decimal())
			if err != nil {
				return nil, err
			}
			out[w.Key] = sum
		}
	}
	return out, nil
}

func (s *Store) sumExpensesLocked(userID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, t := range s.transactions {
		if t.UserID != userID || !t.CategoryID.Valid || t.CategoryID.UUID != categoryID {
			continue
		}
		if !isExpense(t.Kind) || !inWindow(t.OccurredAt, from, to) {
			continue
		}
		var err error
		if sum, err = sum.Add(t.Amount.Decimal()); err != nil {
			return decimal.Decimal{}, err
		}
	}
	return sum, nil
}

func isExpense(k ledger.Kind) bool { return strings.EqualFold(string(k), string(ledger.KindExpense)) }

func inWindow(at, from, to time.Time) bool { return !at.Before(from) && at.Before(to) }

// --- Units of work ---

// BeginTx acquires the write lock; it is released by Commit or Rollback.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &Tx{s: s}, nil
}

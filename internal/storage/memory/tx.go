package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// Tx is a unit of work over the memory store. Writes are applied in place and
// recorded in an undo log that Rollback replays in reverse.
type Tx struct {
	s    *Store
	undo []func()
	done bool
}

func (t *Tx) Commit(context.Context) error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

// Rollback is a no-op after Commit so it can always be deferred.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.s.mu.Unlock()
	return nil
}

func (t *Tx) LockAccount(_ context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	if t.done {
		return ledger.Account{}, errTxDone
	}
	a, ok := t.s.accounts[accountID]
	if !ok || a.UserID != userID {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (t *Tx) SetAccountBalance(_ context.Context, userID, accountID uuid.UUID, balance money.Amount) error {
	if t.done {
		return errTxDone
	}
	prev, ok := t.s.accounts[accountID]
	if !ok || prev.UserID != userID {
		return errs.ErrNotFound
	}
	next := prev
	next.Balance = balance
	next.UpdatedAt = t.s.now()
	t.s.accounts[accountID] = next
	t.undo = append(t.undo, func() { t.s.accounts[accountID] = prev })
	return nil
}

func (t *Tx) LockTransaction(_ context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	if t.done {
		return ledger.Transaction{}, errTxDone
	}
	tr, ok := t.s.transactions[txID]
	if !ok || tr.UserID != userID {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	return tr, nil
}

func (t *Tx) InsertTransaction(_ context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	if t.done {
		return ledger.Transaction{}, errTxDone
	}
	if _, ok := t.s.transactions[tr.ID]; ok {
		return ledger.Transaction{}, errs.ErrConflict
	}
	if a, ok := t.s.accounts[tr.AccountID]; !ok || a.UserID != tr.UserID {
		return ledger.Transaction{}, errs.ErrAccountNotFound
	}
	now := t.s.now()
	tr.CreatedAt, tr.UpdatedAt = now, now
	t.s.transactions[tr.ID] = tr
	id := tr.ID
	t.undo = append(t.undo, func() { delete(t.s.transactions, id) })
	return tr, nil
}

func (t *Tx) UpdateTransaction(_ context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	if t.done {
		return ledger.Transaction{}, errTxDone
	}
	prev, ok := t.s.transactions[tr.ID]
	if !ok || prev.UserID != tr.UserID {
		return ledger.Transaction{}, errs.ErrNotFound
	}
	if a, ok := t.s.accounts[tr.AccountID]; !ok || a.UserID != tr.UserID {
		return ledger.Transaction{}, errs.ErrAccountNotFound
	}
	tr.CreatedAt = prev.CreatedAt
	tr.UpdatedAt = t.s.now()
	t.s.transactions[tr.ID] = tr
	t.undo = append(t.undo, func() { t.s.transactions[prev.ID] = prev })
	return tr, nil
}

func (t *Tx) DeleteTransaction(_ context.Context, userID, txID uuid.UUID) error {
	if t.done {
		return errTxDone
	}
	prev, ok := t.s.transactions[txID]
	if !ok || prev.UserID != userID {
		return errs.ErrNotFound
	}
	delete(t.s.transactions, txID)
	t.undo = append(t.undo, func() { t.s.transactions[prev.ID] = prev })
	return nil
}

func (t *Tx) GetCategory(_ context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
	if t.done {
		return ledger.Category{}, errTxDone
	}
	return t.s.categoryLocked(userID, categoryID)
}

// LockBudgetScope is satisfied by the write lock the unit already holds.
func (t *Tx) LockBudgetScope(context.Context, uuid.UUID, uuid.UUID) error {
	if t.done {
		return errTxDone
	}
	return nil
}

func (t *Tx) BudgetsForCategory(_ context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error) {
	if t.done {
		return nil, errTxDone
	}
	return t.s.budgetsForCategoryLocked(userID, categoryID), nil
}

func (t *Tx) LockBudget(_ context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error) {
	if t.done {
		return ledger.Budget{}, errTxDone
	}
	b, ok := t.s.budgets[budgetID]
	if !ok || b.UserID != userID {
		return ledger.Budget{}, errs.ErrNotFound
	}
	return b, nil
}

func (t *Tx) InsertBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	if t.done {
		return ledger.Budget{}, errTxDone
	}
	if _, ok := t.s.budgets[b.ID]; ok || t.periodTaken(b) {
		return ledger.Budget{}, errs.ErrConflict
	}
	now := t.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	t.s.budgets[b.ID] = b
	id := b.ID
	t.undo = append(t.undo, func() { delete(t.s.budgets, id) })
	return b, nil
}

func (t *Tx) UpdateBudget(_ context.Context, b ledger.Budget) (ledger.Budget, error) {
	if t.done {
		return ledger.Budget{}, errTxDone
	}
	prev, ok := t.s.budgets[b.ID]
	if !ok || prev.UserID != b.UserID {
		return ledger.Budget{}, errs.ErrNotFound
	}
	if t.periodTaken(b) {
		return ledger.Budget{}, errs.ErrConflict
	}
	b.CreatedAt = prev.CreatedAt
	b.UpdatedAt = t.s.now()
	t.s.budgets[b.ID] = b
	t.undo = append(t.undo, func() { t.s.budgets[prev.ID] = prev })
	return b, nil
}

// periodTaken mirrors the (user, category, start, end) unique constraint.
func (t *Tx) periodTaken(b ledger.Budget) bool {
	for _, o := range t.s.budgets {
		if o.ID != b.ID && o.UserID == b.UserID && o.CategoryID == b.CategoryID && o.Period == b.Period {
			return true
		}
	}
	return false
}

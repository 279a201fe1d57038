package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

// Tx wraps a pgx.Tx. Locks taken through it are held until Commit or Rollback.
type Tx struct{ tx pgx.Tx }

func (t *Tx) Commit(ctx context.Context) error   { return mapErr(t.tx.Commit(ctx)) }
func (t *Tx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

func (t *Tx) LockAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, `
		select `+accountColumns+` from accounts
		where id = $1 and user_id = $2
		for update`, accountID, userID))
}

func (t *Tx) SetAccountBalance(ctx context.Context, userID, accountID uuid.UUID, balance money.Amount) error {
	ct, err := t.tx.Exec(ctx, `update accounts set balance = $1::numeric where id = $2 and user_id = $3`,
		balance.Decimal().String(), accountID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) LockTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	return scanTransaction(t.tx.QueryRow(ctx, `
		select `+transactionColumns+` from transactions
		where id = $1 and user_id = $2
		for update`, txID, userID))
}

func (t *Tx) InsertTransaction(ctx context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	return scanTransaction(t.tx.QueryRow(ctx, `
		insert into transactions (id, user_id, account_id, category_id, amount, currency, kind, description, location, occurred_at)
		values ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
		returning `+transactionColumns,
		tr.ID, tr.UserID, tr.AccountID, tr.CategoryID, tr.Amount.Decimal().String(), tr.Amount.Curr().Code(),
		string(tr.Kind), tr.Description, tr.Location, tr.OccurredAt))
}

func (t *Tx) UpdateTransaction(ctx context.Context, tr ledger.Transaction) (ledger.Transaction, error) {
	return scanTransaction(t.tx.QueryRow(ctx, `
		update transactions
		set account_id = $1, category_id = $2, amount = $3::numeric, currency = $4, kind = $5,
		    description = $6, location = $7, occurred_at = $8
		where id = $9 and user_id = $10
		returning `+transactionColumns,
		tr.AccountID, tr.CategoryID, tr.Amount.Decimal().String(), tr.Amount.Curr().Code(), string(tr.Kind),
		tr.Description, tr.Location, tr.OccurredAt, tr.ID, tr.UserID))
}

func (t *Tx) DeleteTransaction(ctx context.Context, userID, txID uuid.UUID) error {
	ct, err := t.tx.Exec(ctx, `delete from transactions where id = $1 and user_id = $2`, txID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (t *Tx) GetCategory(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
	return getCategory(ctx, t.tx, userID, categoryID)
}

// LockBudgetScope takes a transaction-scoped advisory lock on (owner, category).
func (t *Tx) LockBudgetScope(ctx context.Context, userID, categoryID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `select pg_advisory_xact_lock(hashtextextended($1, 0))`,
		"budget:"+userID.String()+":"+categoryID.String())
	return mapErr(err)
}

func (t *Tx) BudgetsForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error) {
	return budgetsForCategory(ctx, t.tx, userID, categoryID)
}

func (t *Tx) LockBudget(ctx context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error) {
	return scanBudget(t.tx.QueryRow(ctx, `
		select `+budgetColumns+` from budgets
		where id = $1 and user_id = $2
		for update`, budgetID, userID))
}

func (t *Tx) InsertBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	if err := ensureUser(ctx, t.tx, b.UserID); err != nil {
		return ledger.Budget{}, mapErr(err)
	}
	return scanBudget(t.tx.QueryRow(ctx, `
		insert into budgets (id, user_id, category_id, amount, start_date, end_date, is_recurring, notification_threshold)
		values ($1, $2, $3, $4::numeric, $5::date, $6::date, $7, $8)
		returning `+budgetColumns,
		b.ID, b.UserID, b.CategoryID, b.Amount.String(), b.Period.Start.String(), b.Period.End.String(),
		b.IsRecurring, b.NotificationThreshold))
}

func (t *Tx) UpdateBudget(ctx context.Context, b ledger.Budget) (ledger.Budget, error) {
	return scanBudget(t.tx.QueryRow(ctx, `
		update budgets
		set category_id = $1, amount = $2::numeric, start_date = $3::date, end_date = $4::date,
		    is_recurring = $5, notification_threshold = $6
		where id = $7 and user_id = $8
		returning `+budgetColumns,
		b.CategoryID, b.Amount.String(), b.Period.Start.String(), b.Period.End.String(),
		b.IsRecurring, b.NotificationThreshold, b.ID, b.UserID))
}

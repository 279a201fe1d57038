// Package postgres provides the pgx-backed Ledger Store. Every query filters
// by owner; units of work take row locks (SELECT ... FOR UPDATE) and release
// them on commit or rollback. Money columns are numeric(15,2) and cross the
// wire as text to keep exact decimals.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/storage"
)

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// EnsureDefaultCategories upserts the dictionary's system categories.
func (s *Store) EnsureDefaultCategories(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	for _, c := range dictionary.DefaultCategories() {
		if _, err := tx.Exec(ctx, `
			insert into categories (id, user_id, name, kind, parent_id)
			values ($1, null, $2, $3, $4)
			on conflict (id) do update set name = excluded.name, kind = excluded.kind, parent_id = excluded.parent_id
		`, c.ID, c.Name, string(c.Kind), c.ParentID); err != nil {
			return fmt.Errorf("upsert category %s: %w", c.Name, err)
		}
	}
	return tx.Commit(ctx)
}

// SeedDev inserts a single user with the dictionary's development accounts.
func (s *Store) SeedDev(ctx context.Context) (ledger.User, []ledger.Account, error) {
	user := ledger.User{ID: uuid.New()}
	accs := dictionary.DevAccounts(user.ID)
	out := make([]ledger.Account, 0, len(accs))
	for _, a := range accs {
		created, err := s.CreateAccount(ctx, a)
		if err != nil {
			return ledger.User{}, nil, err
		}
		out = append(out, created)
	}
	return user, out, nil
}

func ensureUser(ctx context.Context, q querier, userID uuid.UUID) error {
	_, err := q.Exec(ctx, `insert into users (id) values ($1) on conflict (id) do nothing`, userID)
	return err
}

// --- Accounts ---

const accountColumns = `id, user_id, name, type, currency, initial_balance::text, balance::text, active, created_at, updated_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var (
		a                ledger.Account
		typ              string
		initial, balance string
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &typ, &a.Currency, &initial, &balance, &a.Active, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, mapErr(err)
	}
	a.Type = ledger.AccountType(typ)
	a.Currency = strings.TrimSpace(a.Currency)
	var err error
	if a.InitialBalance, err = money.ParseAmount(a.Currency, initial); err != nil {
		return ledger.Account{}, err
	}
	if a.Balance, err = money.ParseAmount(a.Currency, balance); err != nil {
		return ledger.Account{}, err
	}
	return a, nil
}

func (s *Store) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1 and user_id = $2`, accountID, userID))
}

// ListAccounts returns all accounts for a user.
func (s *Store) ListAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	rows, err := s.pool.Query(ctx, `select `+accountColumns+` from accounts where user_id = $1 order by name, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateAccount inserts an account row, creating the owner row on first use.
func (s *Store) CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := ensureUser(ctx, tx, a.UserID); err != nil {
		return ledger.Account{}, err
	}
	created, err := scanAccount(tx.QueryRow(ctx, `
		insert into accounts (id, user_id, name, type, currency, initial_balance, balance, active)
		values ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8)
		returning `+accountColumns,
		a.ID, a.UserID, a.Name, string(a.Type), strings.ToUpper(a.Currency),
		a.InitialBalance.Decimal().String(), a.Balance.Decimal().String(), a.Active))
	if err != nil {
		return ledger.Account{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ledger.Account{}, mapErr(err)
	}
	return created, nil
}

// UpdateAccount updates name and active. The balance column is written only inside a unit of work.
func (s *Store) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		update accounts set name = $1, active = $2
		where id = $3 and user_id = $4
		returning `+accountColumns, a.Name, a.Active, a.ID, a.UserID))
}

// --- Transactions ---

const transactionColumns = `id, user_id, account_id, category_id, amount::text, currency, kind, description, location, occurred_at, created_at, updated_at`

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var (
		t            ledger.Transaction
		amount, curr string
		kind         string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &amount, &curr, &kind,
		&t.Description, &t.Location, &t.OccurredAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return ledger.Transaction{}, mapErr(err)
	}
	t.Kind = ledger.Kind(kind)
	var err error
	if t.Amount, err = money.ParseAmount(strings.TrimSpace(curr), amount); err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error) {
	return scanTransaction(s.pool.QueryRow(ctx, `select `+transactionColumns+` from transactions where id = $1 and user_id = $2`, txID, userID))
}

// ListTransactions returns matching transactions ordered by (occurred_at, id).
func (s *Store) ListTransactions(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.AccountID.Valid {
		add("account_id = $%d", f.AccountID.UUID)
	}
	if f.CategoryID.Valid {
		add("category_id = $%d", f.CategoryID.UUID)
	}
	if f.Kind != "" {
		add("lower(kind) = lower($%d)", string(f.Kind))
	}
	if f.From != nil {
		add("occurred_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("occurred_at < $%d", *f.To)
	}
	rows, err := s.pool.Query(ctx, `select `+transactionColumns+` from transactions where `+
		strings.Join(where, " and ")+` order by occurred_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Categories ---

const categoryColumns = `id, user_id, name, kind, parent_id`

func scanCategory(row pgx.Row) (ledger.Category, error) {
	var (
		c    ledger.Category
		kind string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &kind, &c.ParentID); err != nil {
		return ledger.Category{}, mapErr(err)
	}
	c.Kind = ledger.Kind(kind)
	return c, nil
}

func getCategory(ctx context.Context, q querier, userID, categoryID uuid.UUID) (ledger.Category, error) {
	return scanCategory(q.QueryRow(ctx, `
		select `+categoryColumns+` from categories
		where id = $1 and (user_id is null or user_id = $2)`, categoryID, userID))
}

func (s *Store) GetCategory(ctx context.Context, userID, categoryID uuid.UUID) (ledger.Category, error) {
	return getCategory(ctx, s.pool, userID, categoryID)
}

// ListCategories returns system defaults plus the user's own categories.
func (s *Store) ListCategories(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error) {
	rows, err := s.pool.Query(ctx, `
		select `+categoryColumns+` from categories
		where user_id is null or user_id = $1
		order by kind, name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// --- Budgets ---

const budgetColumns = `id, user_id, category_id, amount::text, start_date, end_date, is_recurring, notification_threshold, created_at, updated_at`

func scanBudget(row pgx.Row) (ledger.Budget, error) {
	var (
		b          ledger.Budget
		amount     string
		start, end time.Time
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.CategoryID, &amount, &start, &end,
		&b.IsRecurring, &b.NotificationThreshold, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return ledger.Budget{}, mapErr(err)
	}
	var err error
	if b.Amount, err = decimal.Parse(amount); err != nil {
		return ledger.Budget{}, err
	}
	b.Period = ledger.DateRange{Start: ledger.DateOf(start), End: ledger.DateOf(end)}
	return b, nil
}

func collectBudgets(rows pgx.Rows, err error) ([]ledger.Budget, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBudget(ctx context.Context, userID, budgetID uuid.UUID) (ledger.Budget, error) {
	return scanBudget(s.pool.QueryRow(ctx, `select `+budgetColumns+` from budgets where id = $1 and user_id = $2`, budgetID, userID))
}

func (s *Store) ListBudgets(ctx context.Context, userID uuid.UUID, f ledger.BudgetFilter) ([]ledger.Budget, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if f.CategoryID.Valid {
		args = append(args, f.CategoryID.UUID)
		where = append(where, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if f.ActiveOn != nil {
		args = append(args, f.ActiveOn.String())
		where = append(where, fmt.Sprintf("$%d::date between start_date and end_date", len(args)))
	}
	return collectBudgets(s.pool.Query(ctx, `select `+budgetColumns+` from budgets where `+
		strings.Join(where, " and ")+` order by start_date, id`, args...))
}

func budgetsForCategory(ctx context.Context, q querier, userID, categoryID uuid.UUID) ([]ledger.Budget, error) {
	return collectBudgets(q.Query(ctx, `
		select `+budgetColumns+` from budgets
		where user_id = $1 and category_id = $2
		order by start_date, id`, userID, categoryID))
}

func (s *Store) BudgetsForCategory(ctx context.Context, userID, categoryID uuid.UUID) ([]ledger.Budget, error) {
	return budgetsForCategory(ctx, s.pool, userID, categoryID)
}

func (s *Store) DeleteBudget(ctx context.Context, userID, budgetID uuid.UUID) error {
	ct, err := s.pool.Exec(ctx, `delete from budgets where id = $1 and user_id = $2`, budgetID, userID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// --- Spend aggregation ---

// SumExpenses sums expense amounts in [from, to) for one category.
func (s *Store) SumExpenses(ctx context.Context, userID, categoryID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx, `
		select coalesce(sum(amount), 0)::text
		from transactions
		where user_id = $1 and category_id = $2 and lower(kind) = 'expense'
		  and occurred_at >= $3 and occurred_at < $4`,
		userID, categoryID, from, to).Scan(&sum)
	if err != nil {
		return decimal.Decimal{}, mapErr(err)
	}
	return decimal.Parse(sum)
}

// SumExpensesBatch evaluates every window in one grouped query.
func (s *Store) SumExpensesBatch(ctx context.Context, userID uuid.UUID, windows []ledger.ExpenseWindow) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(windows))
	if len(windows) == 0 {
		return out, nil
	}
	keys := make([]uuid.UUID, len(windows))
	cats := make([]uuid.UUID, len(windows))
	froms := make([]time.Time, len(windows))
	tos := make([]time.Time, len(windows))
	for i, w := range windows {
		keys[i], cats[i], froms[i], tos[i] = w.Key, w.CategoryID, w.From, w.To
	}
	rows, err := s.pool.Query(ctx, `
		select w.key, coalesce(sum(t.amount), 0)::text
		from unnest($2::uuid[], $3::uuid[], $4::timestamptz[], $5::timestamptz[]) as w(key, category_id, from_at, to_at)
		left join transactions t
		  on t.user_id = $1
		 and t.category_id = w.category_id
		 and lower(t.kind) = 'expense'
		 and t.occurred_at >= w.from_at
		 and t.occurred_at < w.to_at
		group by w.key`, userID, keys, cats, froms, tos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key uuid.UUID
			sum string
		)
		if err := rows.Scan(&key, &sum); err != nil {
			return nil, err
		}
		d, err := decimal.Parse(sum)
		if err != nil {
			return nil, err
		}
		out[key] = d
	}
	return out, rows.Err()
}

// --- Units of work ---

// BeginTx opens a read-committed transaction; consistency comes from row and advisory locks.
func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

// Package account implements the account rules: immutable type and currency,
// an opening balance fixed at creation, editable name, soft-deactivation, and
// per-user unique (name, currency).
package account

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

type Repo interface {
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error)
}

// Writer never touches the balance after creation; that belongs to the transaction mutator.
type Writer interface {
	CreateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
	UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error)
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (ledger.Account, error)
	List(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	Get(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, bool, error)
	Rename(ctx context.Context, userID, accountID uuid.UUID, name string) (ledger.Account, error)
	Deactivate(ctx context.Context, userID, accountID uuid.UUID) error
	// Audit recomputes initial + Σincome − Σexpense and compares it with the stored balance.
	Audit(ctx context.Context, userID, accountID uuid.UUID) (Audit, error)
}

type CreateInput struct {
	UserID         uuid.UUID
	Name           string
	Type           ledger.AccountType
	Currency       string
	InitialBalance decimal.Decimal
}

type Audit struct {
	AccountID    uuid.UUID
	Stored       money.Amount
	Expected     money.Amount
	Drift        money.Amount
	Transactions int
}

// Consistent reports whether the stored balance matches the ledger.
func (a Audit) Consistent() bool { return a.Drift.IsZero() }

// ErrNameExists indicates an account with the same name and currency already exists for the user.
var ErrNameExists = errors.New("account name already exists for user")

type service struct {
	repo   Repo
	writer Writer
}

func New(repo Repo, writer Writer) Service { return &service{repo: repo, writer: writer} }

func validateCreate(in CreateInput) (CreateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.UserID == uuid.Nil {
		return in, errs.Invalid("user_id", "required", nil)
	}
	if in.Name == "" {
		return in, errs.Invalid("name", "required", nil)
	}
	if !in.Type.Valid() {
		return in, errs.Invalid("type", "must be one of cash, bank, e_wallet, credit_card", nil)
	}
	if _, err := money.ParseCurr(in.Currency); err != nil {
		return in, errs.Invalid("currency", "unknown currency code", nil)
	}
	if t := in.InitialBalance.Trim(2); t.Scale() > 2 || t.Prec()-t.Scale() > 13 {
		return in, errs.Invalid("initial_balance", "must fit numeric(15,2)", errs.ErrInvalidAmount)
	}
	return in, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (ledger.Account, error) {
	in, err := validateCreate(in)
	if err != nil {
		return ledger.Account{}, err
	}
	existing, err := s.repo.ListAccounts(ctx, in.UserID)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, a := range existing {
		if strings.EqualFold(a.Name, in.Name) && strings.EqualFold(a.Currency, in.Currency) {
			return ledger.Account{}, ErrNameExists
		}
	}
	opening, err := money.ParseAmount(in.Currency, in.InitialBalance.Trim(2).String())
	if err != nil {
		return ledger.Account{}, errs.Invalid("initial_balance", err.Error(), errs.ErrInvalidAmount)
	}
	return s.writer.CreateAccount(ctx, ledger.Account{
		ID:             uuid.New(),
		UserID:         in.UserID,
		Name:           in.Name,
		Type:           in.Type,
		Currency:       in.Currency,
		InitialBalance: opening,
		Balance:        opening,
		Active:         true,
	})
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error) {
	if userID == uuid.Nil {
		return nil, errs.ErrInvalid
	}
	return s.repo.ListAccounts(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, accountID uuid.UUID) (ledger.Account, bool, error) {
	a, err := s.repo.GetAccount(ctx, userID, accountID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Account{}, false, nil
	}
	if err != nil {
		return ledger.Account{}, false, err
	}
	return a, true, nil
}

func (s *service) Rename(ctx context.Context, userID, accountID uuid.UUID, name string) (ledger.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return ledger.Account{}, errs.Invalid("name", "required", nil)
	}
	current, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return ledger.Account{}, err
	}
	existing, err := s.repo.ListAccounts(ctx, userID)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, other := range existing {
		if other.ID != accountID && strings.EqualFold(other.Name, name) && strings.EqualFold(other.Currency, current.Currency) {
			return ledger.Account{}, ErrNameExists
		}
	}
	current.Name = name
	return s.writer.UpdateAccount(ctx, current)
}

// Deactivate sets Active=false (soft delete). Accounts are never removed.
func (s *service) Deactivate(ctx context.Context, userID, accountID uuid.UUID) error {
	if userID == uuid.Nil || accountID == uuid.Nil {
		return errs.ErrInvalid
	}
	acc, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return err
	}
	if !acc.Active {
		return nil
	}
	acc.Active = false
	_, err = s.writer.UpdateAccount(ctx, acc)
	return err
}

func (s *service) Audit(ctx context.Context, userID, accountID uuid.UUID) (Audit, error) {
	acc, err := s.repo.GetAccount(ctx, userID, accountID)
	if err != nil {
		return Audit{}, err
	}
	txs, err := s.repo.ListTransactions(ctx, userID, ledger.TransactionFilter{AccountID: uuid.NullUUID{UUID: accountID, Valid: true}})
	if err != nil {
		return Audit{}, err
	}
	expected := acc.InitialBalance
	for _, t := range txs {
		switch ledger.Kind(strings.ToLower(string(t.Kind))) {
		case ledger.KindIncome:
			expected, err = expected.Add(t.Amount)
		case ledger.KindExpense:
			expected, err = expected.Sub(t.Amount)
		}
		if err != nil {
			return Audit{}, err
		}
	}
	drift, err := acc.Balance.Sub(expected)
	if err != nil {
		return Audit{}, err
	}
	return Audit{AccountID: acc.ID, Stored: acc.Balance, Expected: expected, Drift: drift, Transactions: len(txs)}, nil
}

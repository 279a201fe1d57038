// Package transaction is the only writer of account balances. Every create,
// update and delete of a transaction applies or reverses its signed effect on
// the owning account inside one unit of work.
package transaction

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/storage"
)

// Repo defines the reads and units of work needed by the service.
type Repo interface {
	storage.Beginner
	GetTransaction(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error)
}

// Service exposes the transaction mutator and its reads.
type Service interface {
	Create(ctx context.Context, in CreateInput) (ledger.Transaction, error)
	// Update returns found=false when the transaction is absent or not owned by the caller.
	Update(ctx context.Context, in UpdateInput) (ledger.Transaction, bool, error)
	// Delete returns false when the transaction is absent or not owned by the caller.
	Delete(ctx context.Context, userID, txID uuid.UUID) (bool, error)
	Get(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, bool, error)
	List(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error)
}

type CreateInput struct {
	UserID      uuid.UUID
	AccountID   uuid.UUID
	CategoryID  uuid.NullUUID
	Amount      decimal.Decimal
	Kind        ledger.Kind
	OccurredAt  time.Time
	Description string
	Location    string
}

type UpdateInput struct {
	ID uuid.UUID
	CreateInput
}

type service struct {
	repo   Repo
	logger *slog.Logger
}

func New(repo Repo, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{repo: repo, logger: logger}
}

func (s *service) validate(in CreateInput) (ledger.Kind, error) {
	if in.UserID == uuid.Nil {
		return "", errs.Invalid("user_id", "required", nil)
	}
	if in.AccountID == uuid.Nil {
		return "", errs.Invalid("account_id", "required", errs.ErrAccountNotFound)
	}
	if in.OccurredAt.IsZero() {
		return "", errs.Invalid("date", "required", nil)
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return "", err
	}
	return ParseKind(in.Kind)
}

func (s *service) Create(ctx context.Context, in CreateInput) (out ledger.Transaction, err error) {
	defer func() { observe("create", true, err) }()
	kind, err := s.validate(in)
	if err != nil {
		return ledger.Transaction{}, err
	}
	err = storage.WithTx(ctx, s.repo, "transaction.create", func(tx storage.Tx) error {
		acc, err := lockAccount(ctx, tx, in.UserID, in.AccountID)
		if err != nil {
			return err
		}
		if err := checkCategory(ctx, tx, in.UserID, in.CategoryID); err != nil {
			return err
		}
		amount, err := toAmount(acc.Currency, in.Amount)
		if err != nil {
			return err
		}
		balance, err := apply(acc.Balance, kind, amount)
		if err != nil {
			return err
		}
		t, err := tx.InsertTransaction(ctx, ledger.Transaction{
			ID:          uuid.New(),
			UserID:      in.UserID,
			AccountID:   acc.ID,
			CategoryID:  in.CategoryID,
			Amount:      amount,
			Kind:        kind,
			Description: strings.TrimSpace(in.Description),
			Location:    strings.TrimSpace(in.Location),
			OccurredAt:  in.OccurredAt,
		})
		if err != nil {
			return err
		}
		if err := tx.SetAccountBalance(ctx, in.UserID, acc.ID, balance); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, err
	}
	s.logger.DebugContext(ctx, "transaction created",
		"user_id", out.UserID, "transaction_id", out.ID, "account_id", out.AccountID,
		"kind", out.Kind, "amount", out.Amount.String())
	return out, nil
}

func (s *service) Update(ctx context.Context, in UpdateInput) (out ledger.Transaction, found bool, err error) {
	defer func() { observe("update", found, err) }()
	kind, err := s.validate(in.CreateInput)
	if err != nil {
		return ledger.Transaction{}, false, err
	}
	var old ledger.Transaction
	err = storage.WithTx(ctx, s.repo, "transaction.update", func(tx storage.Tx) error {
		found = false
		prev, err := tx.LockTransaction(ctx, in.UserID, in.ID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		old = prev

		accounts := make(map[uuid.UUID]ledger.Account, 2)
		for _, id := range lockOrder(prev.AccountID, in.AccountID) {
			acc, err := lockAccount(ctx, tx, in.UserID, id)
			if err != nil {
				return err
			}
			accounts[id] = acc
		}
		if err := checkCategory(ctx, tx, in.UserID, in.CategoryID); err != nil {
			return err
		}

		oldAcc := accounts[prev.AccountID]
		if oldAcc.Balance, err = reverse(oldAcc.Balance, prev.Kind, prev.Amount); err != nil {
			return err
		}
		accounts[prev.AccountID] = oldAcc

		newAcc := accounts[in.AccountID]
		amount, err := toAmount(newAcc.Currency, in.Amount)
		if err != nil {
			return err
		}
		if newAcc.Balance, err = apply(newAcc.Balance, kind, amount); err != nil {
			return err
		}
		accounts[in.AccountID] = newAcc

		t := prev
		t.AccountID = in.AccountID
		t.CategoryID = in.CategoryID
		t.Amount = amount
		t.Kind = kind
		t.OccurredAt = in.OccurredAt
		t.Description = strings.TrimSpace(in.Description)
		t.Location = strings.TrimSpace(in.Location)
		if out, err = tx.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		for _, id := range lockOrder(prev.AccountID, in.AccountID) {
			if err := tx.SetAccountBalance(ctx, in.UserID, id, accounts[id].Balance); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ledger.Transaction{}, false, err
	}
	if !found {
		return ledger.Transaction{}, false, nil
	}
	s.logger.DebugContext(ctx, "transaction updated",
		"user_id", out.UserID, "transaction_id", out.ID,
		"old_account_id", old.AccountID, "new_account_id", out.AccountID,
		"old_amount", old.Amount.String(), "new_amount", out.Amount.String())
	return out, true, nil
}

func (s *service) Delete(ctx context.Context, userID, txID uuid.UUID) (found bool, err error) {
	defer func() { observe("delete", found, err) }()
	var old ledger.Transaction
	err = storage.WithTx(ctx, s.repo, "transaction.delete", func(tx storage.Tx) error {
		found = false
		prev, err := tx.LockTransaction(ctx, userID, txID)
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		acc, err := lockAccount(ctx, tx, userID, prev.AccountID)
		if err != nil {
			return err
		}
		balance, err := reverse(acc.Balance, prev.Kind, prev.Amount)
		if err != nil {
			return err
		}
		if err := tx.DeleteTransaction(ctx, userID, txID); err != nil {
			return err
		}
		if err := tx.SetAccountBalance(ctx, userID, acc.ID, balance); err != nil {
			return err
		}
		old, found = prev, true
		return nil
	})
	if err != nil {
		return false, err
	}
	if found {
		s.logger.DebugContext(ctx, "transaction deleted",
			"user_id", userID, "transaction_id", txID, "account_id", old.AccountID,
			"kind", old.Kind, "amount", old.Amount.String())
	}
	return found, nil
}

func (s *service) Get(ctx context.Context, userID, txID uuid.UUID) (ledger.Transaction, bool, error) {
	t, err := s.repo.GetTransaction(ctx, userID, txID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Transaction{}, false, nil
	}
	if err != nil {
		return ledger.Transaction{}, false, err
	}
	return t, true, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, errs.Invalid("to", "must not be before from", errs.ErrInvalidRange)
	}
	if f.Kind != "" {
		k, ok := ledger.ParseKind(string(f.Kind))
		if !ok {
			return nil, errs.Invalid("kind", "unknown kind", errs.ErrUnsupportedKind)
		}
		f.Kind = k
	}
	return s.repo.ListTransactions(ctx, userID, f)
}

func lockAccount(ctx context.Context, tx storage.Tx, userID, accountID uuid.UUID) (ledger.Account, error) {
	acc, err := tx.LockAccount(ctx, userID, accountID)
	if errors.Is(err, errs.ErrNotFound) {
		return ledger.Account{}, errs.Invalid("account_id", "account not found", errs.ErrAccountNotFound)
	}
	return acc, err
}

func checkCategory(ctx context.Context, tx storage.Tx, userID uuid.UUID, id uuid.NullUUID) error {
	if !id.Valid {
		return nil
	}
	_, err := tx.GetCategory(ctx, userID, id.UUID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Invalid("category_id", "category not found", errs.ErrCategoryNotFound)
	}
	return err
}

// lockOrder returns the distinct account ids in ascending byte order, the
// order in which row locks are taken to avoid deadlocks.
func lockOrder(a, b uuid.UUID) []uuid.UUID {
	switch c := bytes.Compare(a[:], b[:]); {
	case c == 0:
		return []uuid.UUID{a}
	case c < 0:
		return []uuid.UUID{a, b}
	default:
		return []uuid.UUID{b, a}
	}
}

func isInvalid(err error) bool { return errors.Is(err, errs.ErrInvalid) }

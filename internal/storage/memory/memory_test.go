package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
)

func TestTx_RollbackRestoresEveryWrite(t *testing.T) {
	s := New()
	ctx := context.Background()
	user, accs, err := s.SeedDev(ctx)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	acc := accs[0]

	tx, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	tr, err := tx.InsertTransaction(ctx, ledger.Transaction{ID: uuid.New(), UserID: user.ID, AccountID: acc.ID,
		Amount: money.MustParseAmount("GBP", "5.00"), Kind: ledger.KindExpense, OccurredAt: time.Now()})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.SetAccountBalance(ctx, user.ID, acc.ID, money.MustParseAmount("GBP", "95.00")); err != nil {
		t.Fatalf("set balance: %v", err)
	}
	if _, err := tx.InsertBudget(ctx, ledger.Budget{ID: uuid.New(), UserID: user.ID, CategoryID: dictionary.IDFor("food"),
		Period: ledger.DateRange{Start: ledger.NewDate(2024, 1, 1), End: ledger.NewDate(2024, 1, 31)}}); err != nil {
		t.Fatalf("insert budget: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("second rollback should be a no-op: %v", err)
	}

	if _, err := s.GetTransaction(ctx, user.ID, tr.ID); err != errs.ErrNotFound {
		t.Fatalf("transaction survived rollback: %v", err)
	}
	got, _ := s.GetAccount(ctx, user.ID, acc.ID)
	if got.Balance.Decimal().Cmp(acc.Balance.Decimal()) != 0 {
		t.Fatalf("balance = %s, want %s", got.Balance, acc.Balance)
	}
	budgets, _ := s.ListBudgets(ctx, user.ID, ledger.BudgetFilter{})
	if len(budgets) != 0 {
		t.Fatalf("budget survived rollback")
	}
}

func TestTx_CommitReleasesLockAndRejectsReuse(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx, _ := s.BeginTx(ctx)
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Commit(ctx); err == nil {
		t.Fatalf("expected error committing twice")
	}
	if _, err := tx.LockAccount(ctx, uuid.New(), uuid.New()); err == nil {
		t.Fatalf("expected error using a finished tx")
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback after commit: %v", err)
	}
	// lock must be free again
	tx2, err := s.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = tx2.Rollback(ctx)
}

func TestTx_UniqueBudgetPeriod(t *testing.T) {
	s := New()
	ctx := context.Background()
	userID := uuid.New()
	p := ledger.DateRange{Start: ledger.NewDate(2024, 1, 1), End: ledger.NewDate(2024, 1, 31)}
	tx, _ := s.BeginTx(ctx)
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.InsertBudget(ctx, ledger.Budget{ID: uuid.New(), UserID: userID, CategoryID: dictionary.IDFor("food"), Period: p}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := tx.InsertBudget(ctx, ledger.Budget{ID: uuid.New(), UserID: userID, CategoryID: dictionary.IDFor("food"), Period: p})
	if err != errs.ErrConflict {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestCategories_VisibleToOwnerAndDefaults(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	own := ledger.Category{ID: uuid.New(), UserID: uuid.NullUUID{UUID: owner, Valid: true}, Name: "Pets", Kind: ledger.KindExpense}
	s.SeedCategory(own)

	mine, _ := s.ListCategories(ctx, owner)
	theirs, _ := s.ListCategories(ctx, uuid.New())
	if len(mine) != len(theirs)+1 {
		t.Fatalf("owner sees %d, stranger sees %d", len(mine), len(theirs))
	}
	if _, err := s.GetCategory(ctx, uuid.New(), own.ID); err != errs.ErrNotFound {
		t.Fatalf("stranger resolved a private category: %v", err)
	}
	if _, err := s.GetCategory(ctx, uuid.New(), dictionary.IDFor("rent")); err != nil {
		t.Fatalf("default category not visible: %v", err)
	}
}

func TestUpdateAccount_IgnoresBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, accs, _ := s.SeedDev(ctx)
	a := accs[0]
	a.Name = "Petty cash"
	a.Balance = money.MustParseAmount("GBP", "1.00")
	got, err := s.UpdateAccount(ctx, a)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Petty cash" || got.Balance.Decimal().Cmp(accs[0].Balance.Decimal()) != 0 {
		t.Fatalf("unexpected account %+v", got)
	}
	if _, err := s.UpdateAccount(ctx, ledger.Account{ID: a.ID, UserID: uuid.New()}); err != errs.ErrNotFound {
		t.Fatalf("want not found for foreign owner, got %v", err)
	}
}

package transaction_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/transaction"
	"github.com/tinoosan/finance/internal/storage/memory"
)

type fixture struct {
	store  *memory.Store
	svc    transaction.Service
	userID uuid.UUID
	cash   ledger.Account
	bank   ledger.Account
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	st := memory.New()
	userID := uuid.New()
	st.SeedUser(ledger.User{ID: userID})
	cash := ledger.Account{ID: uuid.New(), UserID: userID, Name: "Cash", Type: ledger.AccountTypeCash, Currency: "GBP",
		InitialBalance: money.MustParseAmount("GBP", "1000.00"), Balance: money.MustParseAmount("GBP", "1000.00"), Active: true}
	bank := ledger.Account{ID: uuid.New(), UserID: userID, Name: "Bank", Type: ledger.AccountTypeBank, Currency: "GBP",
		InitialBalance: money.MustParseAmount("GBP", "0.00"), Balance: money.MustParseAmount("GBP", "0.00"), Active: true}
	st.SeedAccount(cash)
	st.SeedAccount(bank)
	return fixture{store: st, svc: transaction.New(st, nil), userID: userID, cash: cash, bank: bank}
}

func (f fixture) input(accountID uuid.UUID, kind ledger.Kind, amount string) transaction.CreateInput {
	return transaction.CreateInput{
		UserID:     f.userID,
		AccountID:  accountID,
		Amount:     decimal.MustParse(amount),
		Kind:       kind,
		OccurredAt: time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func (f fixture) requireBalance(t *testing.T, accountID uuid.UUID, want string) {
	t.Helper()
	acc, err := f.store.GetAccount(context.Background(), f.userID, accountID)
	require.NoError(t, err)
	assert.Zero(t, acc.Balance.Decimal().Cmp(decimal.MustParse(want)), "balance = %s, want %s", acc.Balance, want)
}

// requireInvariant recomputes initial + Σincome − Σexpense from persisted rows.
func (f fixture) requireInvariant(t *testing.T, accountID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	acc, err := f.store.GetAccount(ctx, f.userID, accountID)
	require.NoError(t, err)
	txs, err := f.store.ListTransactions(ctx, f.userID, ledger.TransactionFilter{AccountID: uuid.NullUUID{UUID: accountID, Valid: true}})
	require.NoError(t, err)
	want := acc.InitialBalance.Decimal()
	for _, tr := range txs {
		switch tr.Kind {
		case ledger.KindIncome:
			want, err = want.Add(tr.Amount.Decimal())
		case ledger.KindExpense:
			want, err = want.Sub(tr.Amount.Decimal())
		}
		require.NoError(t, err)
	}
	assert.Zero(t, acc.Balance.Decimal().Cmp(want), "balance %s drifted from ledger %s", acc.Balance, want)
}

func TestMutator_CreateUpdateDeleteBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	expense, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "200"))
	require.NoError(t, err)
	f.requireBalance(t, f.cash.ID, "800")

	_, err = f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindIncome, "500"))
	require.NoError(t, err)
	f.requireBalance(t, f.cash.ID, "1300")

	ok, err := f.svc.Delete(ctx, f.userID, expense.ID)
	require.NoError(t, err)
	require.True(t, ok)
	f.requireBalance(t, f.cash.ID, "1500")
	f.requireInvariant(t, f.cash.ID)
}

func TestCreate_KindIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	tr, err := f.svc.Create(context.Background(), f.input(f.cash.ID, "EXPENSE", "12.34"))
	require.NoError(t, err)
	assert.Equal(t, ledger.KindExpense, tr.Kind)
	assert.Equal(t, "GBP", tr.Amount.Curr().Code())
	f.requireBalance(t, f.cash.ID, "987.66")
}

func TestReversal_UpdateWithSameValuesIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.input(f.cash.ID, ledger.KindExpense, "75.50")
	tr, err := f.svc.Create(ctx, in)
	require.NoError(t, err)
	f.requireBalance(t, f.cash.ID, "924.50")

	_, found, err := f.svc.Update(ctx, transaction.UpdateInput{ID: tr.ID, CreateInput: in})
	require.NoError(t, err)
	require.True(t, found)
	f.requireBalance(t, f.cash.ID, "924.50")
}

func TestReversal_CreateThenDeleteRestores(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, k := range []ledger.Kind{ledger.KindIncome, ledger.KindExpense} {
		tr, err := f.svc.Create(ctx, f.input(f.cash.ID, k, "333.33"))
		require.NoError(t, err)
		ok, err := f.svc.Delete(ctx, f.userID, tr.ID)
		require.NoError(t, err)
		require.True(t, ok)
		f.requireBalance(t, f.cash.ID, "1000")
	}
}

func TestUpdate_MovesEffectBetweenAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "100"))
	require.NoError(t, err)

	in := f.input(f.bank.ID, ledger.KindIncome, "40")
	updated, found, err := f.svc.Update(ctx, transaction.UpdateInput{ID: tr.ID, CreateInput: in})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, f.bank.ID, updated.AccountID)
	assert.Equal(t, tr.CreatedAt, updated.CreatedAt)

	f.requireBalance(t, f.cash.ID, "1000")
	f.requireBalance(t, f.bank.ID, "40")
	f.requireInvariant(t, f.cash.ID)
	f.requireInvariant(t, f.bank.ID)
}

func TestStoredTransfer_CanBeUpdatedAndDeleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seed := func() ledger.Transaction {
		tr := ledger.Transaction{
			ID: uuid.New(), UserID: f.userID, AccountID: f.cash.ID,
			Amount: money.MustParseAmount("GBP", "40.00"), Kind: ledger.KindTransfer,
			OccurredAt: time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		}
		f.store.SeedTransaction(tr)
		return tr
	}

	deleted := seed()
	found, err := f.svc.Delete(ctx, f.userID, deleted.ID)
	require.NoError(t, err)
	assert.True(t, found)
	f.requireBalance(t, f.cash.ID, "1000.00")
	_, found, err = f.svc.Get(ctx, f.userID, deleted.ID)
	require.NoError(t, err)
	assert.False(t, found)

	updated := seed()
	out, found, err := f.svc.Update(ctx, transaction.UpdateInput{ID: updated.ID, CreateInput: f.input(f.cash.ID, ledger.KindExpense, "40")})
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ledger.KindExpense, out.Kind)
	f.requireBalance(t, f.cash.ID, "960.00")
	f.requireInvariant(t, f.cash.ID)

	// new transfers are still rejected
	_, err = f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindTransfer, "10"))
	require.ErrorIs(t, err, errs.ErrUnsupportedKind)
}

func TestUpdate_NotFoundIsNotAnError(t *testing.T) {
	f := newFixture(t)
	_, found, err := f.svc.Update(context.Background(), transaction.UpdateInput{ID: uuid.New(), CreateInput: f.input(f.cash.ID, ledger.KindIncome, "1")})
	require.NoError(t, err)
	assert.False(t, found)
	f.requireBalance(t, f.cash.ID, "1000")
}

func TestDelete_OtherOwnerReturnsFalse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "10"))
	require.NoError(t, err)

	ok, err := f.svc.Delete(ctx, uuid.New(), tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	f.requireBalance(t, f.cash.ID, "990")
}

func TestCreate_AccountNotFoundWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := newFixture(t)

	in := f.input(other.cash.ID, ledger.KindExpense, "10")
	_, err := f.svc.Create(ctx, in)
	require.ErrorIs(t, err, errs.ErrAccountNotFound)

	txs, err := f.store.ListTransactions(ctx, f.userID, ledger.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestUpdate_NewAccountNotOwnedRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tr, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "10"))
	require.NoError(t, err)

	_, _, err = f.svc.Update(ctx, transaction.UpdateInput{ID: tr.ID, CreateInput: f.input(uuid.New(), ledger.KindExpense, "20")})
	require.ErrorIs(t, err, errs.ErrAccountNotFound)

	f.requireBalance(t, f.cash.ID, "990")
	got, found, err := f.svc.Get(ctx, f.userID, tr.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, f.cash.ID, got.AccountID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cases := []struct {
		name   string
		kind   ledger.Kind
		amount string
		want   error
	}{
		{"zero", ledger.KindExpense, "0", errs.ErrInvalidAmount},
		{"negative", ledger.KindExpense, "-5", errs.ErrInvalidAmount},
		{"three decimals", ledger.KindExpense, "1.005", errs.ErrInvalidAmount},
		{"too many digits", ledger.KindExpense, "12345678901234", errs.ErrInvalidAmount},
		{"transfer", ledger.KindTransfer, "5", errs.ErrUnsupportedKind},
		{"unknown kind", "refund", "5", errs.ErrUnsupportedKind},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.input(f.cash.ID, tc.kind, tc.amount))
			require.ErrorIs(t, err, tc.want)
			require.ErrorIs(t, err, errs.ErrInvalid)
		})
	}
	f.requireBalance(t, f.cash.ID, "1000")
}

func TestCreate_TrailingZerosAccepted(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), f.input(f.cash.ID, ledger.KindIncome, "1.500"))
	require.NoError(t, err)
	f.requireBalance(t, f.cash.ID, "1001.50")
}

func TestCreate_CategoryVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.input(f.cash.ID, ledger.KindExpense, "5")
	in.CategoryID = uuid.NullUUID{UUID: dictionary.IDFor("groceries"), Valid: true}
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	foreign := ledger.Category{ID: uuid.New(), UserID: uuid.NullUUID{UUID: uuid.New(), Valid: true}, Name: "Theirs", Kind: ledger.KindExpense}
	f.store.SeedCategory(foreign)
	in.CategoryID = uuid.NullUUID{UUID: foreign.ID, Valid: true}
	_, err = f.svc.Create(ctx, in)
	require.ErrorIs(t, err, errs.ErrCategoryNotFound)
	f.requireBalance(t, f.cash.ID, "995")
}

func TestBalanceInvariant_MixedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []uuid.UUID
	for i := 1; i <= 12; i++ {
		kind := ledger.KindExpense
		if i%3 == 0 {
			kind = ledger.KindIncome
		}
		acc := f.cash.ID
		if i%2 == 0 {
			acc = f.bank.ID
		}
		tr, err := f.svc.Create(ctx, f.input(acc, kind, fmt.Sprintf("%d.%02d", i*7, i)))
		require.NoError(t, err)
		ids = append(ids, tr.ID)
	}
	for i, id := range ids {
		switch i % 4 {
		case 0:
			ok, err := f.svc.Delete(ctx, f.userID, id)
			require.NoError(t, err)
			require.True(t, ok)
		case 1:
			_, found, err := f.svc.Update(ctx, transaction.UpdateInput{ID: id, CreateInput: f.input(f.bank.ID, ledger.KindIncome, "19.99")})
			require.NoError(t, err)
			require.True(t, found)
		case 2:
			_, found, err := f.svc.Update(ctx, transaction.UpdateInput{ID: id, CreateInput: f.input(f.cash.ID, ledger.KindExpense, "0.01")})
			require.NoError(t, err)
			require.True(t, found)
		}
	}
	f.requireInvariant(t, f.cash.ID)
	f.requireInvariant(t, f.bank.ID)
}

func TestCreate_ConcurrentWritesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	const n = 50
	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "1"))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
	f.requireBalance(t, f.cash.ID, "950")
	f.requireInvariant(t, f.cash.ID)
}

func TestList_FiltersByKindAndRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindExpense, "1"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.input(f.cash.ID, ledger.KindIncome, "2"))
	require.NoError(t, err)

	got, err := f.svc.List(ctx, f.userID, ledger.TransactionFilter{Kind: "Income"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.KindIncome, got[0].Kind)

	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = f.svc.List(ctx, f.userID, ledger.TransactionFilter{From: &from, To: &to})
	require.ErrorIs(t, err, errs.ErrInvalidRange)
}

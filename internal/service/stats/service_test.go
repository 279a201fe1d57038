package stats_test

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/stats"
	"github.com/tinoosan/finance/internal/storage/memory"
)

func dec(s string) decimal.Decimal { return decimal.MustParse(s) }

func add(st *memory.Store, userID uuid.UUID, cat string, kind ledger.Kind, amount string, at time.Time) {
	t := ledger.Transaction{
		ID: uuid.New(), UserID: userID, AccountID: uuid.New(),
		Amount: money.MustParseAmount("EUR", amount), Kind: kind, OccurredAt: at,
	}
	if cat != "" {
		t.CategoryID = uuid.NullUUID{UUID: dictionary.IDFor(cat), Valid: true}
	}
	st.SeedTransaction(t)
}

func march() ledger.DateRange {
	return ledger.DateRange{Start: ledger.NewDate(2024, 3, 1), End: ledger.NewDate(2024, 3, 31)}
}

func seeded(t *testing.T) (*memory.Store, uuid.UUID) {
	t.Helper()
	st := memory.New()
	userID := uuid.New()
	day := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	add(st, userID, "salary", ledger.KindIncome, "2000", day(1, 9))
	add(st, userID, "groceries", ledger.KindExpense, "150", day(1, 18))
	add(st, userID, "groceries", ledger.KindExpense, "50", day(5, 12))
	add(st, userID, "rent", ledger.KindExpense, "600", day(5, 8))
	add(st, userID, "", ledger.KindExpense, "200", day(20, 23))
	// outside the range / other user
	add(st, userID, "rent", ledger.KindExpense, "999", time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC))
	add(st, uuid.New(), "rent", ledger.KindExpense, "999", day(10, 10))

	st.SeedAccount(ledger.Account{ID: uuid.New(), UserID: userID, Name: "Bank", Currency: "EUR", Active: true,
		Balance: money.MustParseAmount("EUR", "1500.25")})
	st.SeedAccount(ledger.Account{ID: uuid.New(), UserID: userID, Name: "Old", Currency: "EUR", Active: false,
		Balance: money.MustParseAmount("EUR", "1000")})
	return st, userID
}

func TestOverview(t *testing.T) {
	st, userID := seeded(t)
	ov, err := stats.New(st, time.UTC).Overview(context.Background(), userID, march())
	require.NoError(t, err)

	assert.Equal(t, 5, ov.Count)
	assert.Zero(t, ov.Income.Cmp(dec("2000")))
	assert.Zero(t, ov.Expense.Cmp(dec("1000")))
	assert.Zero(t, ov.Net.Cmp(dec("1000")))
	assert.Zero(t, ov.NetBalance.Cmp(dec("1500.25")), "net balance %s", ov.NetBalance)
	assert.Zero(t, ov.SavingsRate.Cmp(dec("50")))
	assert.Len(t, ov.Categories, 3)
	assert.Len(t, ov.Daily, 3)
}

func TestCategoryBreakdown(t *testing.T) {
	st, userID := seeded(t)
	got, err := stats.New(st, nil).CategoryBreakdown(context.Background(), userID, march())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "Rent", got[0].Name)
	assert.Zero(t, got[0].Percent.Cmp(dec("60")))
	assert.Equal(t, "Groceries", got[1].Name)
	assert.Equal(t, 2, got[1].Count)
	assert.Zero(t, got[1].Amount.Cmp(dec("200")))
	assert.Zero(t, got[1].Percent.Cmp(dec("20")))
	assert.False(t, got[2].CategoryID.Valid)
	assert.Zero(t, got[2].Percent.Cmp(dec("20")))
}

func TestCategoryBreakdown_NoExpensesIsZeroNotError(t *testing.T) {
	st := memory.New()
	userID := uuid.New()
	add(st, userID, "salary", ledger.KindIncome, "10", time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC))
	got, err := stats.New(st, nil).CategoryBreakdown(context.Background(), userID, march())
	require.NoError(t, err)
	assert.Empty(t, got)

	ov, err := stats.New(memory.New(), nil).Overview(context.Background(), userID, march())
	require.NoError(t, err)
	assert.True(t, ov.SavingsRate.IsZero())
}

func TestDailySummaries(t *testing.T) {
	st, userID := seeded(t)
	svc := stats.New(st, time.UTC)
	got, err := svc.DailySummaries(context.Background(), userID, march(), stats.DailyOptions{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, ledger.NewDate(2024, 3, 1), got[0].Date)
	assert.Equal(t, 2, got[0].Count)
	assert.Zero(t, got[0].Net.Cmp(dec("1850")))
	assert.Zero(t, got[1].Net.Cmp(dec("-650")))

	filled, err := svc.DailySummaries(context.Background(), userID, march(), stats.DailyOptions{FillGaps: true})
	require.NoError(t, err)
	assert.Len(t, filled, 31)
	assert.Equal(t, 0, filled[1].Count)
}

func TestDailySummaries_SkipsDaysWithOnlyTransfers(t *testing.T) {
	st := memory.New()
	userID := uuid.New()
	add(st, userID, "", ledger.KindTransfer, "75", time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	add(st, userID, "groceries", ledger.KindExpense, "20", time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))

	got, err := stats.New(st, time.UTC).DailySummaries(context.Background(), userID, march(), stats.DailyOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ledger.NewDate(2024, 3, 6), got[0].Date)
	assert.Equal(t, 1, got[0].Count)
}

func TestDailySummaries_ReportingTimezone(t *testing.T) {
	st, userID := seeded(t)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	got, err := stats.New(st, tokyo).DailySummaries(context.Background(), userID, march(), stats.DailyOptions{})
	require.NoError(t, err)
	// 1 Mar 18:00 UTC and 20 Mar 23:00 UTC fall on the next day in Tokyo.
	dates := make([]ledger.Date, 0, len(got))
	for _, d := range got {
		dates = append(dates, d.Date)
	}
	assert.Contains(t, dates, ledger.NewDate(2024, 3, 2))
	assert.Contains(t, dates, ledger.NewDate(2024, 3, 21))
	assert.NotContains(t, dates, ledger.NewDate(2024, 3, 20))
}

func TestInvalidRange(t *testing.T) {
	r := ledger.DateRange{Start: ledger.NewDate(2024, 4, 1), End: ledger.NewDate(2024, 3, 1)}
	_, err := stats.New(memory.New(), nil).Overview(context.Background(), uuid.New(), r)
	require.True(t, errors.Is(err, errs.ErrInvalidRange))
}

func TestPercent(t *testing.T) {
	p, err := stats.Percent(dec("5"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, p.IsZero())
}

package budget_test

import (
	"context"
	"errors"
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
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/spend"
	"github.com/tinoosan/finance/internal/storage/memory"
)

var food = dictionary.IDFor("food")

func period(sm time.Month, sd int, em time.Month, ed int) ledger.DateRange {
	return ledger.DateRange{Start: ledger.NewDate(2024, sm, sd), End: ledger.NewDate(2024, em, ed)}
}

func newService(st *memory.Store) budget.Service {
	return budget.New(st, spend.New(st, time.UTC), nil)
}

func input(userID uuid.UUID, r ledger.DateRange, amount string) budget.Input {
	return budget.Input{UserID: userID, CategoryID: food, Amount: decimal.MustParse(amount), Period: r, NotificationThreshold: 80}
}

func TestCreate_AdjacentAndOverlappingPeriods(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()

	jan, err := svc.Create(ctx, input(userID, period(1, 1, 1, 31), "500"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, input(userID, period(1, 15, 2, 15), "500"))
	var oe *errs.OverlapError
	require.True(t, errors.As(err, &oe), "want OverlapError, got %v", err)
	assert.Equal(t, jan.ID, oe.BudgetID)
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.Create(ctx, input(userID, period(2, 1, 2, 28), "500"))
	require.NoError(t, err)

	list, err := svc.List(ctx, userID, ledger.BudgetFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestValidate_Symmetry(t *testing.T) {
	ranges := []ledger.DateRange{
		period(1, 1, 1, 31),
		period(1, 31, 2, 10),
		period(1, 10, 1, 20),
		period(2, 1, 2, 28),
		period(3, 1, 3, 1),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			ab := overlapsViaService(t, a, b)
			ba := overlapsViaService(t, b, a)
			assert.Equal(t, ab, ba, "%s vs %s", a, b)
			assert.Equal(t, a.Overlaps(b), ab, "%s vs %s", a, b)
		}
	}
}

func overlapsViaService(t *testing.T, existing, candidate ledger.DateRange) bool {
	t.Helper()
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()
	_, err := svc.Create(ctx, input(userID, existing, "1"))
	require.NoError(t, err)
	err = svc.Validate(ctx, userID, food, candidate, uuid.NullUUID{})
	if err == nil {
		return false
	}
	require.ErrorIs(t, err, errs.ErrOverlap)
	return true
}

func TestValidate_SelfOverlapAndExclusion(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()
	r := period(4, 1, 4, 30)
	b, err := svc.Create(ctx, input(userID, r, "100"))
	require.NoError(t, err)

	require.ErrorIs(t, svc.Validate(ctx, userID, food, r, uuid.NullUUID{}), errs.ErrOverlap)
	require.NoError(t, svc.Validate(ctx, userID, food, r, uuid.NullUUID{UUID: b.ID, Valid: true}))

	// a different category or owner never conflicts
	require.NoError(t, svc.Validate(ctx, userID, dictionary.IDFor("rent"), r, uuid.NullUUID{}))
	require.NoError(t, svc.Validate(ctx, uuid.New(), food, r, uuid.NullUUID{}))
}

func TestValidate_RangeAndCategory(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()

	err := svc.Validate(ctx, userID, food, period(2, 1, 1, 1), uuid.NullUUID{})
	require.ErrorIs(t, err, errs.ErrInvalidRange)

	err = svc.Validate(ctx, userID, uuid.New(), period(1, 1, 1, 2), uuid.NullUUID{})
	require.ErrorIs(t, err, errs.ErrCategoryNotFound)

	mine := ledger.Category{ID: uuid.New(), UserID: uuid.NullUUID{UUID: userID, Valid: true}, Name: "Pets", Kind: ledger.KindExpense}
	st.SeedCategory(mine)
	require.NoError(t, svc.Validate(ctx, userID, mine.ID, period(1, 1, 1, 2), uuid.NullUUID{}))
	require.ErrorIs(t, svc.Validate(ctx, uuid.New(), mine.ID, period(1, 1, 1, 2), uuid.NullUUID{}), errs.ErrCategoryNotFound)
}

func TestUpdate(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()
	jan, err := svc.Create(ctx, input(userID, period(1, 1, 1, 31), "500"))
	require.NoError(t, err)
	feb, err := svc.Create(ctx, input(userID, period(2, 1, 2, 29), "500"))
	require.NoError(t, err)

	// unchanged period does not conflict with itself
	got, found, err := svc.Update(ctx, jan.ID, input(userID, jan.Period, "650"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Zero(t, got.Amount.Cmp(decimal.MustParse("650")))

	// stretching into February collides with the February budget
	_, _, err = svc.Update(ctx, jan.ID, input(userID, period(1, 1, 2, 5), "650"))
	var oe *errs.OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, feb.ID, oe.BudgetID)

	cur, found, err := svc.Get(ctx, userID, jan.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, period(1, 1, 1, 31), cur.Period)

	_, found, err = svc.Update(ctx, uuid.New(), input(userID, jan.Period, "1"))
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = svc.Update(ctx, jan.ID, input(uuid.New(), jan.Period, "1"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreate_InputValidation(t *testing.T) {
	svc := newService(memory.New())
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.Create(ctx, input(userID, period(1, 1, 1, 31), "0"))
	require.ErrorIs(t, err, errs.ErrInvalidAmount)

	in := input(userID, period(1, 1, 1, 31), "10")
	in.NotificationThreshold = 101
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.Create(ctx, input(userID, period(3, 1, 1, 31), "10"))
	require.ErrorIs(t, err, errs.ErrInvalidRange)
}

func TestCreate_ConcurrentOverlapsAdmitOne(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()
	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(day int) {
			defer wg.Done()
			_, err := svc.Create(ctx, input(userID, period(5, day, 5, 31), "10"))
			results <- err
		}(i + 1)
	}
	wg.Wait()
	close(results)
	ok := 0
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, errs.ErrOverlap)
	}
	assert.Equal(t, 1, ok)
}

func TestProgress(t *testing.T) {
	st := memory.New()
	svc := newService(st)
	ctx := context.Background()
	userID := uuid.New()
	b, err := svc.Create(ctx, input(userID, period(1, 1, 1, 31), "500"))
	require.NoError(t, err)
	other, err := svc.Create(ctx, budget.Input{UserID: userID, CategoryID: dictionary.IDFor("rent"), Amount: decimal.MustParse("1000"), Period: period(1, 1, 1, 31)})
	require.NoError(t, err)
	for _, amt := range []string{"100", "200", "300"} {
		st.SeedTransaction(ledger.Transaction{
			ID: uuid.New(), UserID: userID, AccountID: uuid.New(),
			CategoryID: uuid.NullUUID{UUID: food, Valid: true},
			Amount:     money.MustParseAmount("USD", amt),
			Kind:       ledger.KindExpense,
			OccurredAt: time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC),
		})
	}

	p, found, err := svc.Get(ctx, userID, b.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Zero(t, p.Spent.Cmp(decimal.MustParse("600")))
	assert.Zero(t, p.Progress.Cmp(decimal.MustParse("120")))
	assert.Zero(t, p.Remaining.Cmp(decimal.MustParse("-100")))
	assert.True(t, p.ThresholdReached)

	list, err := svc.List(ctx, userID, ledger.BudgetFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, p := range list {
		if p.ID == other.ID {
			assert.True(t, p.Spent.IsZero())
			assert.False(t, p.ThresholdReached)
		}
	}

	ok, err := svc.Delete(ctx, userID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.Delete(ctx, userID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

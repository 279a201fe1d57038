// Package stats builds read-only aggregate views over a user's transactions:
// totals, category breakdown and daily summaries for a date range.
package stats

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/spend"
)

var tracer = otel.Tracer("github.com/tinoosan/finance/internal/service/stats")

type Repo interface {
	ListTransactions(ctx context.Context, userID uuid.UUID, f ledger.TransactionFilter) ([]ledger.Transaction, error)
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]ledger.Account, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]ledger.Category, error)
}

type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	Count   int
}

// CategoryShare is one row of the expense breakdown. An invalid CategoryID
// groups uncategorised expenses.
type CategoryShare struct {
	CategoryID uuid.NullUUID
	Name       string
	Amount     decimal.Decimal
	Count      int
	// Percent of the range's total expense.
	Percent decimal.Decimal
}

type DailySummary struct {
	Date    ledger.Date
	Count   int
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

type Overview struct {
	Period ledger.DateRange
	Totals
	// NetBalance sums the balances of active accounts. Currencies are not converted.
	NetBalance decimal.Decimal
	// SavingsRate is Net/Income × 100, 0 without income.
	SavingsRate decimal.Decimal
	Categories  []CategoryShare
	Daily       []DailySummary
}

type DailyOptions struct {
	// FillGaps emits zero rows for days without transactions.
	FillGaps bool
}

type Service interface {
	Overview(ctx context.Context, userID uuid.UUID, r ledger.DateRange) (Overview, error)
	CategoryBreakdown(ctx context.Context, userID uuid.UUID, r ledger.DateRange) ([]CategoryShare, error)
	DailySummaries(ctx context.Context, userID uuid.UUID, r ledger.DateRange, opts DailyOptions) ([]DailySummary, error)
}

type service struct {
	repo Repo
	loc  *time.Location
}

// New returns a Service grouping by calendar day in loc (UTC when nil).
func New(repo Repo, loc *time.Location) Service {
	if loc == nil {
		loc = time.UTC
	}
	return &service{repo: repo, loc: loc}
}

// Percent is num/den × 100 rounded to 2 places, 0 whenever den is 0.
func Percent(num, den decimal.Decimal) (decimal.Decimal, error) { return spend.Percent(num, den) }

func (s *service) transactions(ctx context.Context, userID uuid.UUID, r ledger.DateRange) ([]ledger.Transaction, error) {
	from, to := r.Bounds(s.loc)
	return s.repo.ListTransactions(ctx, userID, ledger.TransactionFilter{From: &from, To: &to})
}

func (s *service) Overview(ctx context.Context, userID uuid.UUID, r ledger.DateRange) (Overview, error) {
	ctx, span := tracer.Start(ctx, "stats.Overview")
	defer span.End()
	if err := r.Validate(); err != nil {
		return Overview{}, err
	}
	var (
		txs      []ledger.Transaction
		accounts []ledger.Account
		cats     []ledger.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { txs, err = s.transactions(gctx, userID, r); return err })
	g.Go(func() (err error) { accounts, err = s.repo.ListAccounts(gctx, userID); return err })
	g.Go(func() (err error) { cats, err = s.repo.ListCategories(gctx, userID); return err })
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	out := Overview{Period: r}
	var err error
	if out.Totals, err = totals(txs); err != nil {
		return Overview{}, err
	}
	out.NetBalance = decimal.Zero
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		if out.NetBalance, err = out.NetBalance.Add(a.Balance.Decimal()); err != nil {
			return Overview{}, err
		}
	}
	if out.Totals.Income.IsPos() {
		if out.SavingsRate, err = Percent(out.Totals.Net, out.Totals.Income); err != nil {
			return Overview{}, err
		}
	}
	if out.Categories, err = breakdown(txs, cats); err != nil {
		return Overview{}, err
	}
	if out.Daily, err = daily(txs, s.loc, r, false); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func (s *service) CategoryBreakdown(ctx context.Context, userID uuid.UUID, r ledger.DateRange) ([]CategoryShare, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var (
		txs  []ledger.Transaction
		cats []ledger.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { txs, err = s.transactions(gctx, userID, r); return err })
	g.Go(func() (err error) { cats, err = s.repo.ListCategories(gctx, userID); return err })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return breakdown(txs, cats)
}

func (s *service) DailySummaries(ctx context.Context, userID uuid.UUID, r ledger.DateRange, opts DailyOptions) ([]DailySummary, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	txs, err := s.transactions(ctx, userID, r)
	if err != nil {
		return nil, err
	}
	return daily(txs, s.loc, r, opts.FillGaps)
}

func kindOf(t ledger.Transaction) ledger.Kind {
	return ledger.Kind(strings.ToLower(string(t.Kind)))
}

func totals(txs []ledger.Transaction) (Totals, error) {
	out := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	var err error
	for _, t := range txs {
		switch kindOf(t) {
		case ledger.KindIncome:
			out.Income, err = out.Income.Add(t.Amount.Decimal())
		case ledger.KindExpense:
			out.Expense, err = out.Expense.Add(t.Amount.Decimal())
		default:
			continue
		}
		if err != nil {
			return Totals{}, err
		}
		out.Count++
	}
	out.Net, err = out.Income.Sub(out.Expense)
	return out, err
}

// breakdown groups expenses by category; percentages are against the range's total expense.
func breakdown(txs []ledger.Transaction, cats []ledger.Category) ([]CategoryShare, error) {
	names := make(map[uuid.UUID]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	groups := map[uuid.NullUUID]*CategoryShare{}
	total := decimal.Zero
	var err error
	for _, t := range txs {
		if kindOf(t) != ledger.KindExpense {
			continue
		}
		key := t.CategoryID
		if !key.Valid {
			key = uuid.NullUUID{}
		}
		g, ok := groups[key]
		if !ok {
			g = &CategoryShare{CategoryID: key, Name: "Uncategorized", Amount: decimal.Zero}
			if key.Valid {
				g.Name = names[key.UUID]
			}
			groups[key] = g
		}
		if g.Amount, err = g.Amount.Add(t.Amount.Decimal()); err != nil {
			return nil, err
		}
		if total, err = total.Add(t.Amount.Decimal()); err != nil {
			return nil, err
		}
		g.Count++
	}
	out := make([]CategoryShare, 0, len(groups))
	for _, g := range groups {
		if g.Percent, err = Percent(g.Amount, total); err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Amount.Cmp(out[j].Amount); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// daily groups by calendar date in loc.
func daily(txs []ledger.Transaction, loc *time.Location, r ledger.DateRange, fill bool) ([]DailySummary, error) {
	byDay := map[ledger.Date]*DailySummary{}
	get := func(d ledger.Date) *DailySummary {
		row, ok := byDay[d]
		if !ok {
			row = &DailySummary{Date: d, Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
			byDay[d] = row
		}
		return row
	}
	var err error
	for _, t := range txs {
		var row *DailySummary
		switch kindOf(t) {
		case ledger.KindIncome:
			row = get(ledger.DateOf(t.OccurredAt.In(loc)))
			row.Income, err = row.Income.Add(t.Amount.Decimal())
		case ledger.KindExpense:
			row = get(ledger.DateOf(t.OccurredAt.In(loc)))
			row.Expense, err = row.Expense.Add(t.Amount.Decimal())
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		row.Count++
	}
	if fill {
		for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
			get(d)
		}
	}
	out := make([]DailySummary, 0, len(byDay))
	for _, row := range byDay {
		if row.Net, err = row.Income.Sub(row.Expense); err != nil {
			return nil, err
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

package v1

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/account"
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/stats"
)

// Amounts travel as decimal strings ("12.50"); requests also accept JSON numbers.

// Transactions

type transactionRequest struct {
	UserID      uuid.UUID     `json:"user_id"`
	AccountID   uuid.UUID     `json:"account_id"`
	CategoryID  uuid.NullUUID `json:"category_id"`
	Amount      json.Number   `json:"amount"`
	Kind        string        `json:"kind"`
	OccurredAt  time.Time     `json:"date"`
	Description string        `json:"description"`
	Location    string        `json:"location"`
}

type transactionResponse struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	AccountID   uuid.UUID     `json:"account_id"`
	CategoryID  uuid.NullUUID `json:"category_id"`
	Amount      string        `json:"amount"`
	Currency    string        `json:"currency"`
	Kind        ledger.Kind   `json:"kind"`
	Description string        `json:"description,omitempty"`
	Location    string        `json:"location,omitempty"`
	OccurredAt  time.Time     `json:"date"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type listTransactionsResponse struct {
	Items []transactionResponse `json:"items"`
}

// listTransactionsQuery holds validated query params for GET /v1/transactions.
type listTransactionsQuery struct {
	UserID uuid.UUID
	Filter ledger.TransactionFilter
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		AccountID:   t.AccountID,
		CategoryID:  t.CategoryID,
		Amount:      amountString(t.Amount),
		Currency:    t.Amount.Curr().Code(),
		Kind:        t.Kind,
		Description: t.Description,
		Location:    t.Location,
		OccurredAt:  t.OccurredAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// Budgets

type budgetRequest struct {
	UserID                uuid.UUID   `json:"user_id"`
	CategoryID            uuid.UUID   `json:"category_id"`
	Amount                json.Number `json:"amount"`
	StartDate             ledger.Date `json:"start_date"`
	EndDate               ledger.Date `json:"end_date"`
	IsRecurring           bool        `json:"is_recurring"`
	NotificationThreshold int         `json:"notification_threshold"`
}

type validateBudgetRequest struct {
	UserID          uuid.UUID     `json:"user_id"`
	CategoryID      uuid.UUID     `json:"category_id"`
	StartDate       ledger.Date   `json:"start_date"`
	EndDate         ledger.Date   `json:"end_date"`
	ExcludeBudgetID uuid.NullUUID `json:"exclude_budget_id"`
}

type budgetResponse struct {
	ID                    uuid.UUID   `json:"id"`
	UserID                uuid.UUID   `json:"user_id"`
	CategoryID            uuid.UUID   `json:"category_id"`
	Amount                string      `json:"amount"`
	StartDate             ledger.Date `json:"start_date"`
	EndDate               ledger.Date `json:"end_date"`
	IsRecurring           bool        `json:"is_recurring"`
	NotificationThreshold int         `json:"notification_threshold"`
	Spent                 string      `json:"spent,omitempty"`
	Remaining             string      `json:"remaining,omitempty"`
	Progress              string      `json:"progress,omitempty"`
	ThresholdReached      bool        `json:"threshold_reached"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

type listBudgetsResponse struct {
	Items []budgetResponse `json:"items"`
}

func toBudgetResponse(b ledger.Budget) budgetResponse {
	return budgetResponse{
		ID:                    b.ID,
		UserID:                b.UserID,
		CategoryID:            b.CategoryID,
		Amount:                decimalString(b.Amount),
		StartDate:             b.Period.Start,
		EndDate:               b.Period.End,
		IsRecurring:           b.IsRecurring,
		NotificationThreshold: b.NotificationThreshold,
		CreatedAt:             b.CreatedAt,
		UpdatedAt:             b.UpdatedAt,
	}
}

func toProgressResponse(p budget.Progress) budgetResponse {
	out := toBudgetResponse(p.Budget)
	out.Spent = decimalString(p.Spent)
	out.Remaining = decimalString(p.Remaining)
	out.Progress = decimalString(p.Progress)
	out.ThresholdReached = p.ThresholdReached
	return out
}

// Accounts

type postAccountRequest struct {
	UserID         uuid.UUID          `json:"user_id"`
	Name           string             `json:"name"`
	Type           ledger.AccountType `json:"type"`
	Currency       string             `json:"currency"`
	InitialBalance json.Number        `json:"initial_balance"`
}

type patchAccountRequest struct {
	Name *string `json:"name"`
}

type accountResponse struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	Name           string             `json:"name"`
	Type           ledger.AccountType `json:"type"`
	Currency       string             `json:"currency"`
	InitialBalance string             `json:"initial_balance"`
	Balance        string             `json:"balance"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type listAccountsResponse struct {
	Items []accountResponse `json:"items"`
}

type auditResponse struct {
	AccountID    uuid.UUID `json:"account_id"`
	Stored       string    `json:"stored"`
	Expected     string    `json:"expected"`
	Drift        string    `json:"drift"`
	Transactions int       `json:"transactions"`
	Consistent   bool      `json:"consistent"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		Name:           a.Name,
		Type:           a.Type,
		Currency:       a.Currency,
		InitialBalance: amountString(a.InitialBalance),
		Balance:        amountString(a.Balance),
		Active:         a.Active,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

func toAuditResponse(a account.Audit) auditResponse {
	return auditResponse{
		AccountID:    a.AccountID,
		Stored:       amountString(a.Stored),
		Expected:     amountString(a.Expected),
		Drift:        amountString(a.Drift),
		Transactions: a.Transactions,
		Consistent:   a.Consistent(),
	}
}

// Categories

type categoryResponse struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Kind     ledger.Kind   `json:"kind"`
	ParentID uuid.NullUUID `json:"parent_id"`
	System   bool          `json:"system"`
}

type listCategoriesResponse struct {
	Items []categoryResponse `json:"items"`
}

func toCategoryResponse(c ledger.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Kind: c.Kind, ParentID: c.ParentID, System: c.System()}
}

// Statistics

// statsQuery holds the validated user and resolved range for /v1/stats/*.
type statsQuery struct {
	UserID uuid.UUID
	Range  ledger.DateRange
}

type totalsResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
	Count   int    `json:"count"`
}

type categoryShareResponse struct {
	CategoryID uuid.NullUUID `json:"category_id"`
	Name       string        `json:"name"`
	Amount     string        `json:"amount"`
	Count      int           `json:"count"`
	Percent    string        `json:"percent"`
}

type dailySummaryResponse struct {
	Date    ledger.Date `json:"date"`
	Count   int         `json:"count"`
	Income  string      `json:"income"`
	Expense string      `json:"expense"`
	Net     string      `json:"net"`
}

type overviewResponse struct {
	StartDate   ledger.Date             `json:"start_date"`
	EndDate     ledger.Date             `json:"end_date"`
	Totals      totalsResponse          `json:"totals"`
	NetBalance  string                  `json:"net_balance"`
	SavingsRate string                  `json:"savings_rate"`
	Categories  []categoryShareResponse `json:"categories"`
	Daily       []dailySummaryResponse  `json:"daily"`
}

type rangeItems[T any] struct {
	StartDate ledger.Date `json:"start_date"`
	EndDate   ledger.Date `json:"end_date"`
	Items     []T         `json:"items"`
}

func toCategoryShares(in []stats.CategoryShare) []categoryShareResponse {
	out := make([]categoryShareResponse, 0, len(in))
	for _, c := range in {
		out = append(out, categoryShareResponse{
			CategoryID: c.CategoryID,
			Name:       c.Name,
			Amount:     decimalString(c.Amount),
			Count:      c.Count,
			Percent:    decimalString(c.Percent),
		})
	}
	return out
}

func toDailySummaries(in []stats.DailySummary) []dailySummaryResponse {
	out := make([]dailySummaryResponse, 0, len(in))
	for _, d := range in {
		out = append(out, dailySummaryResponse{
			Date:    d.Date,
			Count:   d.Count,
			Income:  decimalString(d.Income),
			Expense: decimalString(d.Expense),
			Net:     decimalString(d.Net),
		})
	}
	return out
}

func toOverviewResponse(o stats.Overview) overviewResponse {
	return overviewResponse{
		StartDate: o.Period.Start,
		EndDate:   o.Period.End,
		Totals: totalsResponse{
			Income:  decimalString(o.Income),
			Expense: decimalString(o.Expense),
			Net:     decimalString(o.Net),
			Count:   o.Count,
		},
		NetBalance:  decimalString(o.NetBalance),
		SavingsRate: decimalString(o.SavingsRate),
		Categories:  toCategoryShares(o.Categories),
		Daily:       toDailySummaries(o.Daily),
	}
}

// decimalString renders d with exactly two fraction digits.
func decimalString(d decimal.Decimal) string {
	return d.Round(2).Pad(2).String()
}

func amountString(a money.Amount) string { return decimalString(a.Decimal()) }

// parseAmount reads a request amount; an empty value is zero.
func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.Parse(n.String())
}

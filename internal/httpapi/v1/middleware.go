package v1

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/transaction"
)

const (
	ctxKeyTransactionBody  ctxKey = "validatedTransactionBody"
	ctxKeyListTransactions ctxKey = "validatedListTransactions"
	ctxKeyBudgetBody       ctxKey = "validatedBudgetBody"
	ctxKeyStatsRange       ctxKey = "validatedStatsRange"
)

// validateTransactionBody decodes the body of POST /v1/transactions and
// PUT /v1/transactions/{id} and stores the service input in the request
// context for the handler to use.
func (s *Server) validateTransactionBody() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req transactionRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in, ok := s.toTransactionInput(w, r, req)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyTransactionBody, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// toTransactionInput resolves the caller and converts the request; it writes
// the error response itself when it returns false. Domain rules (kind, amount,
// required fields) are left to the service.
func (s *Server) toTransactionInput(w http.ResponseWriter, r *http.Request, req transactionRequest) (transaction.CreateInput, bool) {
	userID, ok := s.resolveUser(w, r, req.UserID)
	if !ok {
		return transaction.CreateInput{}, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		unprocessable(w, "amount: not a decimal number", errs.ErrInvalidAmount.Error())
		return transaction.CreateInput{}, false
	}
	return transaction.CreateInput{
		UserID:      userID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Kind:        ledger.Kind(req.Kind),
		OccurredAt:  req.OccurredAt,
		Description: req.Description,
		Location:    req.Location,
	}, true
}

// validateListTransactions parses the optional filters of GET /v1/transactions.
// start_date and end_date are calendar dates in the reporting timezone.
func (s *Server) validateListTransactions() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := s.resolveUser(w, r, uuid.Nil)
			if !ok {
				return
			}
			q := r.URL.Query()
			var f ledger.TransactionFilter
			refs := []struct {
				param string
				dst   *uuid.NullUUID
			}{{"account_id", &f.AccountID}, {"category_id", &f.CategoryID}}
			for _, ref := range refs {
				raw := q.Get(ref.param)
				if raw == "" {
					continue
				}
				id, err := uuid.Parse(raw)
				if err != nil {
					badRequest(w, "invalid "+ref.param)
					return
				}
				*ref.dst = uuid.NullUUID{UUID: id, Valid: true}
			}
			if raw := q.Get("kind"); raw != "" {
				k, ok := ledger.ParseKind(raw)
				if !ok {
					badRequest(w, "invalid kind")
					return
				}
				f.Kind = k
			}
			if raw := q.Get("start_date"); raw != "" {
				d, err := ledger.ParseDate(raw)
				if err != nil {
					badRequest(w, "invalid start_date")
					return
				}
				from := d.In(s.loc)
				f.From = &from
			}
			if raw := q.Get("end_date"); raw != "" {
				d, err := ledger.ParseDate(raw)
				if err != nil {
					badRequest(w, "invalid end_date")
					return
				}
				to := d.AddDays(1).In(s.loc)
				f.To = &to
			}
			if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
				unprocessable(w, "start_date must not be after end_date", errs.ErrInvalidRange.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyListTransactions, listTransactionsQuery{UserID: userID, Filter: f})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validateBudgetBody decodes the body of POST /v1/budgets and
// PUT /v1/budgets/{id} into a budget.Input.
func (s *Server) validateBudgetBody() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req budgetRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			in, ok := s.toBudgetInput(w, r, req)
			if !ok {
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyBudgetBody, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) toBudgetInput(w http.ResponseWriter, r *http.Request, req budgetRequest) (budget.Input, bool) {
	userID, ok := s.resolveUser(w, r, req.UserID)
	if !ok {
		return budget.Input{}, false
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		unprocessable(w, "amount: not a decimal number", errs.ErrInvalidAmount.Error())
		return budget.Input{}, false
	}
	return budget.Input{
		UserID:                userID,
		CategoryID:            req.CategoryID,
		Amount:                amount,
		Period:                ledger.DateRange{Start: req.StartDate, End: req.EndDate},
		IsRecurring:           req.IsRecurring,
		NotificationThreshold: req.NotificationThreshold,
	}, true
}

// validateStatsRange resolves the user and the reporting range for /v1/stats/*.
func (s *Server) validateStatsRange() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := s.resolveUser(w, r, uuid.Nil)
			if !ok {
				return
			}
			rng, err := resolveRange(r.URL.Query(), s.now(), s.loc)
			if err != nil {
				s.writeServiceErr(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyStatsRange, statsQuery{UserID: userID, Range: rng})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// today is the current calendar date in the reporting timezone.
func (s *Server) today() ledger.Date { return ledger.DateOf(s.now().In(s.loc)) }

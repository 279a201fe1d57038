package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/ledger"
	"github.com/tinoosan/finance/internal/service/budget"
)

// postBudget handles POST /v1/budgets.
func (s *Server) postBudget(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyBudgetBody).(budget.Input)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
		return
	}
	b, err := s.budgetSvc.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/budgets/"+b.ID.String())
	toJSON(w, http.StatusCreated, toBudgetResponse(b))
}

// validateBudgetPeriod handles POST /v1/budgets/validate: it runs the overlap
// check without writing and answers 204 when the period is free.
func (s *Server) validateBudgetPeriod(w http.ResponseWriter, r *http.Request) {
	var req validateBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := s.resolveUser(w, r, req.UserID)
	if !ok {
		return
	}
	period := ledger.DateRange{Start: req.StartDate, End: req.EndDate}
	if err := s.budgetSvc.Validate(r.Context(), userID, req.CategoryID, period, req.ExcludeBudgetID); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putBudget handles PUT /v1/budgets/{id}; the budget's own period is excluded
// from the overlap check.
func (s *Server) putBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid budget id")
	if !ok {
		return
	}
	in, ok := r.Context().Value(ctxKeyBudgetBody).(budget.Input)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
		return
	}
	b, found, err := s.budgetSvc.Update(r.Context(), id, in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toBudgetResponse(b))
}

// deleteBudget handles DELETE /v1/budgets/{id}.
func (s *Server) deleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid budget id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	found, err := s.budgetSvc.Delete(r.Context(), userID, id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getBudget handles GET /v1/budgets/{id} with spend progress.
func (s *Server) getBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid budget id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	p, found, err := s.budgetSvc.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toProgressResponse(p))
}

// listBudgets handles GET /v1/budgets?category_id=&active=true|YYYY-MM-DD.
func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	q := r.URL.Query()
	var f ledger.BudgetFilter
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			badRequest(w, "invalid category_id")
			return
		}
		f.CategoryID = uuid.NullUUID{UUID: id, Valid: true}
	}
	switch raw := q.Get("active"); raw {
	case "", "false":
	case "true":
		today := s.today()
		f.ActiveOn = &today
	default:
		d, err := ledger.ParseDate(raw)
		if err != nil {
			badRequest(w, "invalid active")
			return
		}
		f.ActiveOn = &d
	}
	items, err := s.budgetSvc.List(r.Context(), userID, f)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listBudgetsResponse{Items: make([]budgetResponse, 0, len(items))}
	for _, p := range items {
		out.Items = append(out.Items, toProgressResponse(p))
	}
	toJSON(w, http.StatusOK, out)
}

package v1

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/service/account"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// ConflictingBudgetID is set on budget_overlap responses.
	ConflictingBudgetID *uuid.UUID `json:"conflicting_budget_id,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "bad_request") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }
func forbidden(w http.ResponseWriter, msg string)  { writeErr(w, http.StatusForbidden, msg, "forbidden") }
func conflict(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusConflict, msg, code)
}
func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeServiceErr maps a service error onto its HTTP status.
// Overlaps are checked before generic validation failures since they match ErrInvalid too.
func (s *Server) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var (
		overlap *errs.OverlapError
		invalid *errs.ValidationError
	)
	switch {
	case errors.As(err, &overlap):
		id := overlap.BudgetID
		toJSON(w, http.StatusConflict, errorResponse{Error: overlap.Error(), Code: overlap.Code(), ConflictingBudgetID: &id})
	case errors.As(err, &invalid):
		unprocessable(w, invalid.Error(), invalid.Code())
	case errors.Is(err, errs.ErrInvalidRange):
		unprocessable(w, err.Error(), errs.ErrInvalidRange.Error())
	case errors.Is(err, errs.ErrInvalid):
		unprocessable(w, err.Error(), "validation_error")
	case errors.Is(err, account.ErrNameExists):
		conflict(w, err.Error(), "name_exists")
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrConflict):
		conflict(w, "concurrent update, retry the request", errs.ErrConflict.Error())
	case errors.Is(err, errs.ErrForbidden):
		forbidden(w, "forbidden")
	default:
		s.log.ErrorContext(r.Context(), "request failed", "req_id", chimw.GetReqID(r.Context()), "path", r.URL.Path, "err", err)
		writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
	}
}

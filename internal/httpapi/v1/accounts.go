package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/errs"
	"github.com/tinoosan/finance/internal/service/account"
)

// postAccount handles POST /v1/accounts. The initial balance is fixed at creation.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req postAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := s.resolveUser(w, r, req.UserID)
	if !ok {
		return
	}
	initial, err := parseAmount(req.InitialBalance)
	if err != nil {
		unprocessable(w, "initial_balance: not a decimal number", errs.ErrInvalidAmount.Error())
		return
	}
	acc, err := s.accountSvc.Create(r.Context(), account.CreateInput{
		UserID:         userID,
		Name:           req.Name,
		Type:           req.Type,
		Currency:       req.Currency,
		InitialBalance: initial,
	})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/accounts/"+acc.ID.String())
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// listAccounts handles GET /v1/accounts.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	accs, err := s.accountSvc.List(r.Context(), userID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listAccountsResponse{Items: make([]accountResponse, 0, len(accs))}
	for _, a := range accs {
		out.Items = append(out.Items, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

// getAccount handles GET /v1/accounts/{id}.
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	acc, found, err := s.accountSvc.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// updateAccount handles PATCH /v1/accounts/{id}.
// Only the name is editable; type, currency and balances are immutable here.
func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	var req patchAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	if req.Name == nil {
		unprocessable(w, "name: required", "validation_error")
		return
	}
	acc, err := s.accountSvc.Rename(r.Context(), userID, id, *req.Name)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// deactivateAccount handles DELETE /v1/accounts/{id} by soft-deactivating (active=false).
func (s *Server) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	if err := s.accountSvc.Deactivate(r.Context(), userID, id); err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// auditAccount handles GET /v1/accounts/{id}/audit.
func (s *Server) auditAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid account id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	a, err := s.accountSvc.Audit(r.Context(), userID, id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAuditResponse(a))
}

package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/service/transaction"
)

// postTransaction handles POST /v1/transactions.
func (s *Server) postTransaction(w http.ResponseWriter, r *http.Request) {
	in, ok := r.Context().Value(ctxKeyTransactionBody).(transaction.CreateInput)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
		return
	}
	t, err := s.txSvc.Create(r.Context(), in)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/transactions/"+t.ID.String())
	toJSON(w, http.StatusCreated, toTransactionResponse(t))
}

// putTransaction handles PUT /v1/transactions/{id}: a full replacement that
// reverses the old balance effect and applies the new one atomically.
func (s *Server) putTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid transaction id")
	if !ok {
		return
	}
	in, ok := r.Context().Value(ctxKeyTransactionBody).(transaction.CreateInput)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
		return
	}
	t, found, err := s.txSvc.Update(r.Context(), transaction.UpdateInput{ID: id, CreateInput: in})
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(t))
}

// deleteTransaction handles DELETE /v1/transactions/{id}.
func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid transaction id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	found, err := s.txSvc.Delete(r.Context(), userID, id)
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

// getTransaction handles GET /v1/transactions/{id}.
func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "invalid transaction id")
	if !ok {
		return
	}
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	t, found, err := s.txSvc.Get(r.Context(), userID, id)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	if !found {
		notFound(w)
		return
	}
	toJSON(w, http.StatusOK, toTransactionResponse(t))
}

// listTransactions handles GET /v1/transactions in occurrence order.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	q, ok := r.Context().Value(ctxKeyListTransactions).(listTransactionsQuery)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
		return
	}
	txs, err := s.txSvc.List(r.Context(), q.UserID, q.Filter)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listTransactionsResponse{Items: make([]transactionResponse, 0, len(txs))}
	for _, t := range txs {
		out.Items = append(out.Items, toTransactionResponse(t))
	}
	toJSON(w, http.StatusOK, out)
}

// pathID parses the {id} URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, msg string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		badRequest(w, msg)
		return uuid.Nil, false
	}
	return id, true
}

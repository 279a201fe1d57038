package v1

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tinoosan/finance/internal/dictionary"
	"github.com/tinoosan/finance/internal/ledger"
)

// listCategories handles GET /v1/categories?kind=: the user's own categories
// plus the system defaults.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.resolveUser(w, r, uuid.Nil)
	if !ok {
		return
	}
	var kind ledger.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := ledger.ParseKind(raw)
		if !ok {
			badRequest(w, "invalid kind")
			return
		}
		kind = k
	}
	cats, err := s.categories.ListCategories(r.Context(), userID)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	out := listCategoriesResponse{Items: make([]categoryResponse, 0, len(cats))}
	for _, c := range cats {
		if kind != "" && c.Kind != kind {
			continue
		}
		out.Items = append(out.Items, toCategoryResponse(c))
	}
	toJSON(w, http.StatusOK, out)
}

// GET /v1/categories/defaults?kind=
func (s *Server) defaultCategories(w http.ResponseWriter, r *http.Request) {
	var kind *ledger.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := ledger.ParseKind(raw)
		if !ok {
			badRequest(w, "invalid kind")
			return
		}
		kind = &k
	}
	type defItem struct {
		ID       uuid.UUID     `json:"id"`
		Code     string        `json:"code"`
		Label    string        `json:"label"`
		Kind     ledger.Kind   `json:"kind"`
		ParentID uuid.NullUUID `json:"parent_id"`
	}
	out := struct {
		Items []defItem `json:"items"`
	}{Items: []defItem{}}
	for _, d := range dictionary.Defs(kind) {
		item := defItem{ID: dictionary.IDFor(d.Code), Code: d.Code, Label: d.Label, Kind: d.Kind}
		if d.Parent != "" {
			item.ParentID = uuid.NullUUID{UUID: dictionary.IDFor(d.Parent), Valid: true}
		}
		out.Items = append(out.Items, item)
	}
	toJSON(w, http.StatusOK, out)
}

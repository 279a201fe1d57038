package v1

import (
	"net/http"

	"github.com/tinoosan/finance/internal/service/stats"
)

func statsQueryFrom(w http.ResponseWriter, r *http.Request) (statsQuery, bool) {
	q, ok := r.Context().Value(ctxKeyStatsRange).(statsQuery)
	if !ok {
		writeErr(w, http.StatusInternalServerError, "validation missing", "internal_error")
	}
	return q, ok
}

// statsOverview handles GET /v1/stats/overview.
func (s *Server) statsOverview(w http.ResponseWriter, r *http.Request) {
	q, ok := statsQueryFrom(w, r)
	if !ok {
		return
	}
	o, err := s.statsSvc.Overview(r.Context(), q.UserID, q.Range)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toOverviewResponse(o))
}

// statsCategories handles GET /v1/stats/categories, the expense breakdown.
func (s *Server) statsCategories(w http.ResponseWriter, r *http.Request) {
	q, ok := statsQueryFrom(w, r)
	if !ok {
		return
	}
	shares, err := s.statsSvc.CategoryBreakdown(r.Context(), q.UserID, q.Range)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, rangeItems[categoryShareResponse]{
		StartDate: q.Range.Start,
		EndDate:   q.Range.End,
		Items:     toCategoryShares(shares),
	})
}

// statsDaily handles GET /v1/stats/daily; fill=true adds zero rows for quiet days.
func (s *Server) statsDaily(w http.ResponseWriter, r *http.Request) {
	q, ok := statsQueryFrom(w, r)
	if !ok {
		return
	}
	opts := stats.DailyOptions{FillGaps: r.URL.Query().Get("fill") == "true"}
	days, err := s.statsSvc.DailySummaries(r.Context(), q.UserID, q.Range, opts)
	if err != nil {
		s.writeServiceErr(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, rangeItems[dailySummaryResponse]{
		StartDate: q.Range.Start,
		EndDate:   q.Range.End,
		Items:     toDailySummaries(days),
	})
}

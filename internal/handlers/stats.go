package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/clickboard/internal/cache"
	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/notify"
	"github.com/scmmishra/clickboard/internal/report"
)

// StatsHandler serves the report as JSON for scripts and dashboards that
// poll it directly.
type StatsHandler struct {
	View     *report.View
	Notices  *notify.Center
	Location *time.Location
}

type statsResponse struct {
	Seq       uint64            `json:"seq"`
	State     string            `json:"state"`
	FetchedAt *time.Time        `json:"fetched_at"`
	Filter    map[string]string `json:"filter"`
	Rows      []models.LinkStat `json:"rows"`
}

func (h *StatsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", h.Stats)
		r.Post("/stats/refresh", h.Refresh)
		r.Get("/notices", h.DrainNotices)
	})
}

// Stats returns the current snapshot. Filter parameters, when present,
// replace the view's filter first.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.View.Snapshot()
	if q := r.URL.Query(); len(q) > 0 {
		loc := h.Location
		if loc == nil {
			loc = time.UTC
		}
		f, err := models.FilterFromQuery(q, loc)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap = h.View.SetFilter(r.Context(), f)
	}
	writeJSON(w, http.StatusOK, h.response(snap))
}

func (h *StatsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(h.View.Refresh(cache.Bypass(r.Context()))))
}

func (h *StatsHandler) DrainNotices(w http.ResponseWriter, r *http.Request) {
	notices := h.Notices.Drain()
	if notices == nil {
		notices = []notify.Notice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": notices})
}

func (h *StatsHandler) response(snap report.Snapshot) statsResponse {
	resp := statsResponse{
		Seq:    snap.Seq,
		State:  h.View.State().String(),
		Filter: map[string]string{},
		Rows:   snap.Visible(),
	}
	if !snap.FetchedAt.IsZero() {
		t := snap.FetchedAt.UTC()
		resp.FetchedAt = &t
	}
	for k, v := range snap.Filter.Query() {
		resp.Filter[k] = v[0]
	}
	if resp.Rows == nil {
		resp.Rows = []models.LinkStat{}
	}
	return resp
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

package web

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/montanaflynn/stats"

	"github.com/scmmishra/clickboard/internal/cache"
	"github.com/scmmishra/clickboard/internal/export"
	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/notify"
	"github.com/scmmishra/clickboard/internal/report"
	"github.com/scmmishra/clickboard/internal/sparkline"
)

type Totals struct {
	Today     int
	ThirtyDay int
	Total     int
}

type ReportData struct {
	Flash          *notify.Notice
	Notices        []notify.Notice
	Filter         models.Filter
	From, To       string
	Rows           []models.LinkStat
	Totals         Totals
	State          string
	FetchedAt      time.Time
	RefreshSeconds int
}

func sum(values []float64) int {
	s, _ := stats.Sum(values)
	return int(s)
}

func totals(rows []models.LinkStat) Totals {
	today := make([]float64, len(rows))
	thirty := make([]float64, len(rows))
	total := make([]float64, len(rows))
	for i, r := range rows {
		today[i] = float64(r.Today)
		thirty[i] = float64(r.ThirtyDay)
		total[i] = float64(r.Total)
	}
	return Totals{Today: sum(today), ThirtyDay: sum(thirty), Total: sum(total)}
}

func (h *ReportHandler) reportData(snap report.Snapshot) ReportData {
	rows := snap.Visible()
	data := ReportData{
		Filter:         snap.Filter,
		Rows:           rows,
		Totals:         totals(rows),
		State:          h.view.State().String(),
		FetchedAt:      snap.FetchedAt,
		RefreshSeconds: int(h.view.Interval().Seconds()),
	}
	if r := snap.Filter.Range; r != nil {
		if !r.From.IsZero() {
			data.From = models.FormatDate(r.From)
		}
		if !r.To.IsZero() {
			data.To = models.FormatDate(r.To)
		}
	}
	return data
}

// Report renders the table for the filter in the query string. HTMX requests
// (polling and filter changes) get only the rows partial.
func (h *ReportHandler) Report(w http.ResponseWriter, r *http.Request) {
	f, err := models.FilterFromQuery(r.URL.Query(), h.loc)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := h.reportData(h.view.SetFilter(r.Context(), f))

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := h.templates.RenderPartial(w, "templates/report_rows.html", "rows", data); err != nil {
			log.Printf("web: render rows: %v", err)
			http.Error(w, "render error", http.StatusInternalServerError)
		}
		return
	}

	data.Flash = getFlash(w, r)
	data.Notices = h.notices.Drain()
	h.templates.Render(w, "templates/report.html", data)
}

// Refresh refetches the current filter and redirects back to the report.
func (h *ReportHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	errorsBefore := h.notices.Errors()
	snap := h.view.Refresh(cache.Bypass(r.Context()))
	if r.Context().Err() == nil && h.notices.Errors() == errorsBefore {
		setFlash(w, "success", fmt.Sprintf("Report refreshed: %d links", len(snap.Visible())))
	}

	target := "/reports"
	if q := snap.Filter.Query(); len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Export downloads the visible rows. Filter parameters in the query string
// are applied first; with_country=1 adds the country column to CSV.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	q := r.URL.Query()
	withCountry := q.Get("with_country") == "1"
	q.Del("with_country")

	snap := h.view.Snapshot()
	if len(q) > 0 {
		f, err := models.FilterFromQuery(q, h.loc)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		snap = h.view.SetFilter(r.Context(), f)
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap.Visible(), withCountry); err != nil {
		log.Printf("web: export %s: %v", format, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename=\""+format.Filename()+"\"")
	w.Write(buf.Bytes())
}

// rowFromSnapshot looks up {id} among the last applied rows.
func (h *ReportHandler) rowFromSnapshot(w http.ResponseWriter, r *http.Request) (models.LinkStat, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return models.LinkStat{}, false
	}
	row, ok := models.FindByID(h.view.Snapshot().Rows, id)
	if !ok {
		http.NotFound(w, r)
		return models.LinkStat{}, false
	}
	return row, true
}

// Sparkline renders a row's trend as PNG. w and h override the default size.
func (h *ReportHandler) Sparkline(w http.ResponseWriter, r *http.Request) {
	row, ok := h.rowFromSnapshot(w, r)
	if !ok {
		return
	}

	opts := sparkline.DefaultOptions
	if n, err := strconv.Atoi(r.URL.Query().Get("w")); err == nil && n > 0 && n <= 1000 {
		opts.Width = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("h")); err == nil && n > 0 && n <= 1000 {
		opts.Height = n
	}

	var buf bytes.Buffer
	if err := sparkline.PNG(&buf, row.Sparkline, opts); err != nil {
		http.Error(w, "failed to render sparkline", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(buf.Bytes())
}

package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/clickboard/internal/notify"
	"github.com/scmmishra/clickboard/internal/report"
)

type ReportHandler struct {
	view      *report.View
	notices   *notify.Center
	loc       *time.Location
	templates *TemplateRegistry
}

// NewReportHandler renders view. Notices drained from notices are shown
// above the table on the next full page load.
func NewReportHandler(view *report.View, notices *notify.Center, loc *time.Location) (*ReportHandler, error) {
	tmpl, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.UTC
	}

	return &ReportHandler{
		view:      view,
		notices:   notices,
		loc:       loc,
		templates: tmpl,
	}, nil
}

func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/reports", http.StatusFound)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/", h.Report)
		r.Post("/refresh", h.Refresh)
		r.Get("/export.{format}", h.Export)
		r.Get("/sparkline/{id}.png", h.Sparkline)
		r.Get("/links/{id}/qr.png", h.LinkQRCode)
	})
}

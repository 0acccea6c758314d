package web_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/notify"
	"github.com/scmmishra/clickboard/internal/report"
	"github.com/scmmishra/clickboard/internal/web"
)

var testRows = []models.LinkStat{
	{ID: 1, Name: "Marketing Campaign Q1", URL: "https://s.co/q1", Sparkline: []float64{3, 5, 2, 8, 6, 9, 12}, Today: 12, ThirtyDay: 5432, Total: 20110, Country: "US"},
	{ID: 2, Name: "Newsletter Signup", URL: "https://s.co/news", Sparkline: []float64{1, 1, 2, 1, 3, 2, 4}, Today: 4, ThirtyDay: 61, Total: 300, Country: "CA"},
	{ID: 3, Name: "Uptime Probe", URL: "https://s.co/probe", Sparkline: []float64{40, 40, 40, 40, 40, 40, 40}, Today: 40, ThirtyDay: 1200, Total: 9000, IsRobot: true, Country: "DE"},
}

type stubFetcher struct {
	calls   atomic.Int32
	fail    atomic.Bool
	notices *notify.Center
}

// Fetch fails the way the stats service does: empty rows plus an error notice.
func (s *stubFetcher) Fetch(_ context.Context, f models.Filter) []models.LinkStat {
	s.calls.Add(1)
	if s.fail.Load() {
		s.notices.Error("Failed to fetch link statistics")
		return []models.LinkStat{}
	}
	return models.Apply(testRows, f)
}

type testEnv struct {
	router  *chi.Mux
	fetcher *stubFetcher
	notices *notify.Center
}

func setupRouter(t *testing.T) testEnv {
	t.Helper()

	notices := notify.NewCenter(time.Minute)
	fetcher := &stubFetcher{notices: notices}
	view := report.NewView(fetcher, time.Hour, nil)

	h, err := web.NewReportHandler(view, notices, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	t.Cleanup(view.Shutdown)
	return testEnv{router: r, fetcher: fetcher, notices: notices}
}

func get(router http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoot_RedirectsToReports(t *testing.T) {
	env := setupRouter(t)
	w := get(env.router, "/", nil)
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	if loc := w.Header().Get("Location"); loc != "/reports" {
		t.Errorf("location = %q, want /reports", loc)
	}
}

func TestReport_DefaultHidesRobots(t *testing.T) {
	env := setupRouter(t)
	w := get(env.router, "/reports", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<html") {
		t.Error("expected full page with layout")
	}
	if !strings.Contains(body, "Marketing Campaign Q1") || !strings.Contains(body, "Newsletter Signup") {
		t.Error("expected human links in table")
	}
	if strings.Contains(body, "Uptime Probe") {
		t.Error("robot link should be hidden by default")
	}
	if !strings.Contains(body, "5,432") {
		t.Error("expected thousands separator in 30 day count")
	}
	if !strings.Contains(body, "<svg") {
		t.Error("expected inline sparkline")
	}
	// Totals across visible rows: 5432 + 61.
	if !strings.Contains(body, "5,493") {
		t.Error("expected 30 day total in footer")
	}
}

func TestReport_AllTrafficShowsRobots(t *testing.T) {
	env := setupRouter(t)
	body := get(env.router, "/reports?bots=all", nil).Body.String()
	if !strings.Contains(body, "Uptime Probe") {
		t.Error("expected robot link with bots=all")
	}
}

func TestReport_HTMXPartial(t *testing.T) {
	env := setupRouter(t)
	w := get(env.router, "/reports?search=news", map[string]string{"HX-Request": "true"})

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("HTMX response should not include layout")
	}
	if !strings.Contains(body, `id="report"`) {
		t.Error("expected report section")
	}
	if !strings.Contains(body, "Newsletter Signup") || strings.Contains(body, "Marketing Campaign Q1") {
		t.Errorf("search not applied: %s", body)
	}
	if !strings.Contains(body, "every 3600s") {
		t.Error("expected polling trigger at the view interval")
	}
}

func TestReport_InvalidFilter(t *testing.T) {
	env := setupRouter(t)
	tests := []string{
		"/reports?sort=clicks",
		"/reports?dir=up",
		"/reports?bots=robots",
		"/reports?from=2024-05-10&to=2024-05-01",
		"/reports?from=yesterday",
	}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			if w := get(env.router, path, nil); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestReport_SameFilterDoesNotRefetch(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports?bots=all", nil)
	get(env.router, "/reports?bots=all", map[string]string{"HX-Request": "true"})
	if got := env.fetcher.calls.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
	get(env.router, "/reports", nil)
	if got := env.fetcher.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 after filter change", got)
	}
}

func TestReport_ShowsAndDrainsNotices(t *testing.T) {
	env := setupRouter(t)
	env.notices.Error("Failed to fetch analytics data")

	body := get(env.router, "/reports", nil).Body.String()
	if !strings.Contains(body, "Failed to fetch analytics data") {
		t.Error("expected notice on page")
	}
	body = get(env.router, "/reports", nil).Body.String()
	if strings.Contains(body, "Failed to fetch analytics data") {
		t.Error("notice should only be shown once")
	}
}

func TestRefresh_RefetchesAndFlashes(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports?country=CA", nil)

	req := httptest.NewRequest("POST", "/reports/refresh", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	if loc := w.Header().Get("Location"); loc != "/reports?country=CA" {
		t.Errorf("location = %q, want /reports?country=CA", loc)
	}
	if got := env.fetcher.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}

	cookies := w.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected flash cookie")
	}
	req = httptest.NewRequest("GET", "/reports?country=CA", nil)
	req.AddCookie(cookies[0])
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "Report refreshed: 1 links") {
		t.Error("expected flash message after refresh")
	}
}

func TestRefresh_FailureSkipsSuccessFlash(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports", nil)
	env.fetcher.fail.Store(true)

	req := httptest.NewRequest("POST", "/reports/refresh", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusSeeOther)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == "clickboard_flash" {
			t.Errorf("unexpected flash cookie after failed refresh")
		}
	}
	body := get(env.router, "/reports", nil).Body.String()
	if !strings.Contains(body, "Failed to fetch link statistics") {
		t.Error("expected error notice on page")
	}
	if strings.Contains(body, "Report refreshed") {
		t.Error("success flash shown next to error notice")
	}
}

func TestReport_PagesOnDifferentFiltersShareRecentSnapshots(t *testing.T) {
	env := setupRouter(t)
	poll := map[string]string{"HX-Request": "true"}

	for range 3 {
		us := get(env.router, "/reports?country=US", poll).Body.String()
		ca := get(env.router, "/reports?country=CA", poll).Body.String()
		if !strings.Contains(us, "Marketing Campaign Q1") || strings.Contains(us, "Newsletter Signup") {
			t.Errorf("US page shows wrong rows")
		}
		if !strings.Contains(ca, "Newsletter Signup") || strings.Contains(ca, "Marketing Campaign Q1") {
			t.Errorf("CA page shows wrong rows")
		}
	}
	if got := env.fetcher.calls.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2 for two filters", got)
	}

	w := get(env.router, "/reports/export.csv?country=US", nil)
	if !strings.Contains(w.Body.String(), "Marketing Campaign Q1") || strings.Contains(w.Body.String(), "Newsletter Signup") {
		t.Errorf("export = %q, want US rows only", w.Body.String())
	}
	if got := env.fetcher.calls.Load(); got != 2 {
		t.Errorf("fetches = %d after export, want 2", got)
	}
}

func TestExport_CSV(t *testing.T) {
	env := setupRouter(t)
	w := get(env.router, "/reports/export.csv?bots=all&sort=total&dir=desc&with_country=1", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content-type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="reports.csv"` {
		t.Errorf("content-disposition = %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3", len(records))
	}
	if got := strings.Join(records[0], ","); got != "Name,Today,30 Day,Total,Country" {
		t.Errorf("header = %q", got)
	}
	if records[1][0] != "Marketing Campaign Q1" || records[2][0] != "Uptime Probe" {
		t.Errorf("order = %v, %v", records[1], records[2])
	}
}

func TestExport_JSONUsesCurrentSnapshot(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports?search=campaign", nil)

	w := get(env.router, "/reports/export.json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var rows []models.LinkStat
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "Marketing Campaign Q1" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestExport_UnknownFormat(t *testing.T) {
	env := setupRouter(t)
	if w := get(env.router, "/reports/export.xml", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestSparkline_PNG(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports", nil)

	w := get(env.router, "/reports/sparkline/1.png?w=120&h=40", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 40 {
		t.Errorf("size = %dx%d, want 120x40", b.Dx(), b.Dy())
	}
}

func TestSparkline_NotInSnapshot(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports", nil)

	tests := []struct {
		path string
		want int
	}{
		{"/reports/sparkline/3.png", http.StatusNotFound}, // robot row is filtered out
		{"/reports/sparkline/99.png", http.StatusNotFound},
		{"/reports/sparkline/abc.png", http.StatusBadRequest},
	}
	for _, tc := range tests {
		if w := get(env.router, tc.path, nil); w.Code != tc.want {
			t.Errorf("%s: status = %d, want %d", tc.path, w.Code, tc.want)
		}
	}
}

func TestLinkQRCode(t *testing.T) {
	env := setupRouter(t)
	get(env.router, "/reports", nil)

	w := get(env.router, "/reports/links/2/qr.png?shape=circle&fg=%23112233&dl=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("content-type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="news-qr.png"` {
		t.Errorf("content-disposition = %q", cd)
	}
	if _, err := png.Decode(bytes.NewReader(w.Body.Bytes())); err != nil {
		t.Errorf("decode: %v", err)
	}
}

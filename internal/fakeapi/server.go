package fakeapi

import (
	"crypto/subtle"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/scmmishra/clickboard/internal/analytics"
	"github.com/scmmishra/clickboard/internal/models"
)

const (
	defaultPerPage = 100
	maxPerPage     = 1000
)

// Server answers the v1 workspace API for every workspace stored in DB.
// Redirects are served for any other path when Collector is set.
type Server struct {
	DB        *sql.DB
	APIKey    string
	Collector *analytics.Collector
	Logger    *log.Logger
}

func (s *Server) Routes() http.Handler {
	if s.Logger == nil {
		s.Logger = log.New(io.Discard, "", 0)
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1/workspace/{workspace}", func(r chi.Router) {
		r.Use(s.requireKey)
		r.Get("/links", s.listLinks)
		r.Get("/clicks", s.clicks)
	})

	if s.Collector != nil {
		r.NotFound(s.redirect)
	}
	return r
}

// requireKey accepts the key as a bearer token or as ?api_key=.
func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("api_key")
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			key = strings.TrimPrefix(auth, "Bearer ")
		}
		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.APIKey)) != 1 {
			jsonError(w, "invalid api key", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type linksResponse struct {
	Links      any `json:"links"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
}

func (s *Server) listLinks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		jsonError(w, "invalid page", http.StatusBadRequest)
		return
	}
	perPage, err := positiveParam(q.Get("per_page"), defaultPerPage)
	if err != nil {
		jsonError(w, "invalid per_page", http.StatusBadRequest)
		return
	}
	perPage = min(perPage, maxPerPage)

	sortBy := q.Get("sort_by")
	if sortBy != "" && sortBy != "name" && sortBy != "clicks" {
		jsonError(w, "sort_by must be name or clicks", http.StatusBadRequest)
		return
	}
	sortDir := strings.ToLower(q.Get("sort_dir"))
	if sortDir != "" && sortDir != "asc" && sortDir != "desc" {
		jsonError(w, "sort_dir must be asc or desc", http.StatusBadRequest)
		return
	}

	links, total, err := ListLinks(s.DB, LinkQuery{
		Workspace: chi.URLParam(r, "workspace"),
		Search:    q.Get("search"),
		SortBy:    sortBy,
		SortDir:   sortDir,
		Limit:     perPage,
		Offset:    (page - 1) * perPage,
	})
	if err != nil {
		s.Logger.Printf("fakeapi: list links: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := linksResponse{
		Links:      links,
		Page:       page,
		PerPage:    perPage,
		TotalPages: max(1, (total+perPage-1)/perPage),
	}
	if links == nil {
		resp.Links = []any{}
	}
	writeJSON(w, resp)
}

func (s *Server) clicks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	linkID, err := strconv.ParseInt(q.Get("link_id"), 10, 64)
	if err != nil {
		jsonError(w, "invalid link_id", http.StatusBadRequest)
		return
	}
	if f := q.Get("frequency"); f != "" && f != "day" {
		jsonError(w, "only daily frequency is supported", http.StatusBadRequest)
		return
	}
	loc := time.UTC
	if tz := q.Get("tz"); tz != "" {
		if loc, err = time.LoadLocation(tz); err != nil {
			jsonError(w, "invalid tz", http.StatusBadRequest)
			return
		}
	}
	start, err := models.ParseDate(q.Get("start"), loc)
	if err != nil {
		jsonError(w, "invalid start", http.StatusBadRequest)
		return
	}
	end, err := models.ParseDate(q.Get("end"), loc)
	if err != nil {
		jsonError(w, "invalid end", http.StatusBadRequest)
		return
	}
	if start.After(end) {
		jsonError(w, "start is after end", http.StatusBadRequest)
		return
	}
	includeBots := true
	if b := q.Get("bots"); b != "" {
		if includeBots, err = strconv.ParseBool(b); err != nil {
			jsonError(w, "invalid bots", http.StatusBadRequest)
			return
		}
	}

	if _, err := GetLink(s.DB, chi.URLParam(r, "workspace"), linkID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "link not found", http.StatusNotFound)
			return
		}
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	buckets, err := DailyClicks(s.DB, linkID, start, end, includeBots, loc)
	if err != nil {
		s.Logger.Printf("fakeapi: clicks: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"traffic": buckets})
}

// redirect resolves host + path to a stored short link.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	slug := strings.TrimPrefix(r.URL.Path, "/")
	if slug == "" {
		http.NotFound(w, r)
		return
	}

	link, err := GetLinkBySlugAndDomain(s.DB, slug, host)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !link.IsActive {
		w.WriteHeader(http.StatusGone)
		w.Write([]byte("This link is no longer active."))
		return
	}

	// RealIP has already rewritten RemoteAddr from X-Forwarded-For/X-Real-IP.
	ip, _, _ := net.SplitHostPort(r.RemoteAddr)
	if ip == "" {
		ip = r.RemoteAddr
	}

	s.Collector.Push(analytics.RawClick{
		LinkID:      link.ID,
		ClickedAt:   time.Now().UTC(),
		IP:          ip,
		UserAgent:   r.UserAgent(),
		CountryHint: r.Header.Get("CF-IPCountry"),
	})

	http.Redirect(w, r, link.Destination, http.StatusFound)
}

func positiveParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("must be a positive integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

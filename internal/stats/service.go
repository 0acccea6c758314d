// Package stats turns upstream links and click series into report rows.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scmmishra/clickboard/internal/cache"
	"github.com/scmmishra/clickboard/internal/linkly"
	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/notify"
)

// FetchFailedMessage is the notice raised when a fetch fails.
const FetchFailedMessage = "Failed to fetch link statistics"

const (
	windowDays         = 30
	defaultPageSize    = 100
	defaultConcurrency = 8
)

type Config struct {
	Location    *time.Location
	PageSize    int
	Concurrency int
	Cache       *cache.SeriesCache // optional
	Notifier    notify.Notifier
	Logger      *log.Logger
}

// Service fetches link statistics from the upstream.
type Service struct {
	upstream    linkly.Fetcher
	cache       *cache.SeriesCache
	notifier    notify.Notifier
	logger      *log.Logger
	loc         *time.Location
	pageSize    int
	concurrency int
	now         func() time.Time
}

func NewService(upstream linkly.Fetcher, cfg Config) *Service {
	s := &Service{
		upstream:    upstream,
		cache:       cfg.Cache,
		notifier:    cfg.Notifier,
		logger:      cfg.Logger,
		loc:         cfg.Location,
		pageSize:    cfg.PageSize,
		concurrency: cfg.Concurrency,
		now:         time.Now,
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	return s
}

// Location is the timezone days are bucketed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Fetch returns the rows matching f. It never fails: errors are logged,
// reported to the notifier, and turn into an empty result.
func (s *Service) Fetch(ctx context.Context, f models.Filter) []models.LinkStat {
	rows, err := s.FetchErr(ctx, f)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Printf("stats: fetch cancelled")
			return []models.LinkStat{}
		}
		s.logger.Printf("stats: fetch failed: %v", err)
		s.notifier.Error(FetchFailedMessage)
		return []models.LinkStat{}
	}
	return rows
}

// FetchErr is Fetch without the error handling.
func (s *Service) FetchErr(ctx context.Context, f models.Filter) ([]models.LinkStat, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	w := s.Window(f)

	links, err := linkly.ListAll(ctx, s.upstream, s.listOptions(f))
	if err != nil {
		return nil, err
	}
	s.logger.Printf("stats: %d links, window %s..%s", len(links), models.FormatDate(w.Start), models.FormatDate(w.End))

	// One failing sub-request fails the whole batch.
	series := make([][]linkly.Bucket, len(links))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, l := range links {
		eg.Go(func() error {
			buckets, err := s.clicks(egCtx, linkly.ClicksOptions{
				LinkID: l.ID,
				Start:  w.Start,
				End:    w.End,
				Bots:   !f.FilterRobots,
				TZ:     s.loc.String(),
			})
			if err != nil {
				return err
			}
			series[i] = buckets
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("fetch click series: %w", err)
	}

	rows := make([]models.LinkStat, 0, len(links))
	for i, l := range links {
		rows = append(rows, buildRow(l, series[i], w, f.FilterRobots))
	}
	return models.Apply(rows, f), nil
}

func (s *Service) clicks(ctx context.Context, opts linkly.ClicksOptions) ([]linkly.Bucket, error) {
	if s.cache != nil && !cache.Bypassed(ctx) {
		if b, ok := s.cache.Get(opts); ok {
			return b, nil
		}
	}
	b, err := s.upstream.Clicks(ctx, opts)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(opts, b)
	}
	return b, nil
}

func (s *Service) listOptions(f models.Filter) linkly.ListOptions {
	opts := linkly.ListOptions{PerPage: s.pageSize, Search: f.Search}
	switch f.Sort {
	case models.SortName:
		opts.SortBy = "name"
	case models.SortTotal:
		opts.SortBy = "clicks"
	}
	if opts.SortBy != "" {
		opts.SortDir = string(f.Dir)
	}
	return opts
}

// Window is an inclusive range of days, both at midnight in the service
// timezone.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of days in w.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24+0.5) + 1
}

// Window resolves the filter's date range. The end defaults to today and the
// start to 29 days before the end. Range dates count as calendar days.
func (s *Service) Window(f models.Filter) Window {
	end := calendarDay(s.now().In(s.loc), s.loc)
	var start time.Time
	if r := f.Range; r != nil {
		if !r.To.IsZero() {
			end = calendarDay(r.To, s.loc)
		}
		if !r.From.IsZero() {
			start = calendarDay(r.From, s.loc)
		}
	}
	if start.IsZero() || start.After(end) {
		start = end.AddDate(0, 0, -(windowDays - 1))
	}
	return Window{Start: start, End: end}
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// dailyCounts lays buckets out densely over w, oldest first.
func dailyCounts(buckets []linkly.Bucket, w Window) []int {
	byDay := make(map[string]int, len(buckets))
	for _, b := range buckets {
		byDay[b.Day] += b.Clicks
	}
	counts := make([]int, 0, w.Days())
	for d := w.Start; !d.After(w.End); d = d.AddDate(0, 0, 1) {
		counts = append(counts, byDay[models.FormatDate(d)])
	}
	return counts
}

func buildRow(l linkly.Link, buckets []linkly.Bucket, w Window, humanOnly bool) models.LinkStat {
	counts := dailyCounts(buckets, w)

	var today, thirty int
	if len(counts) > 0 {
		today = counts[len(counts)-1]
	}
	for _, c := range counts[max(0, len(counts)-windowDays):] {
		thirty += c
	}

	trend := make([]float64, models.TrendDays)
	tail := counts[max(0, len(counts)-models.TrendDays):]
	for i, c := range tail {
		trend[models.TrendDays-len(tail)+i] = float64(c)
	}

	total := l.ClicksTotal
	if humanOnly {
		total = l.ClicksHuman
	}

	name := l.Name
	if name == "" {
		name = l.FullURL
	}

	return models.LinkStat{
		ID:        l.ID,
		Name:      name,
		URL:       l.FullURL,
		Sparkline: trend,
		Today:     today,
		ThirtyDay: thirty,
		Total:     total,
		IsRobot:   l.Robot,
		Country:   l.Country,
	}
}

// Package report holds the state behind the report page: the current filter,
// the last applied rows, and the poller that keeps them fresh.
package report

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/scmmishra/clickboard/internal/models"
)

// DefaultInterval is how often the poller refetches.
const DefaultInterval = 5 * time.Minute

// recentFilters bounds how many other filters keep their last snapshot.
const recentFilters = 32

// Fetcher never fails; errors surface as an empty result.
type Fetcher interface {
	Fetch(ctx context.Context, f models.Filter) []models.LinkStat
}

type State int

const (
	Idle State = iota
	Fetching
	Rendered
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Rendered:
		return "rendered"
	}
	return "idle"
}

// Snapshot is one applied fetch result. It is never modified once built.
type Snapshot struct {
	Seq       uint64
	Filter    models.Filter
	Rows      []models.LinkStat
	FetchedAt time.Time
}

// Visible returns the rows whose name matches the filter's search term.
func (s Snapshot) Visible() []models.LinkStat {
	if s.Filter.Search == "" {
		return s.Rows
	}
	return models.SearchByName(s.Rows, s.Filter.Search)
}

// View serialises fetches for one report. Every fetch takes the next
// sequence number and cancels the fetch before it; a result is applied only
// if no later fetch has been issued.
type View struct {
	fetcher  Fetcher
	logger   *log.Logger
	interval time.Duration
	now      func() time.Time

	mu       sync.Mutex
	filter   models.Filter
	snap     Snapshot
	recent   *expirable.LRU[string, Snapshot]
	rendered bool
	state    State
	issued   uint64
	cancel   context.CancelFunc

	base     context.Context
	stopBase context.CancelFunc
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// NewView starts the poller. The first fetch happens on the first
// SetFilter or Refresh call.
func NewView(fetcher Fetcher, interval time.Duration, logger *log.Logger) *View {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	base, stopBase := context.WithCancel(context.Background())
	v := &View{
		fetcher:  fetcher,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		filter:   models.Filter{FilterRobots: true},
		recent:   expirable.NewLRU[string, Snapshot](recentFilters, nil, interval),
		base:     base,
		stopBase: stopBase,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go v.run()
	return v
}

// Shutdown stops the poller and cancels any fetch in flight.
func (v *View) Shutdown() {
	v.once.Do(func() {
		close(v.stop)
		v.stopBase()
		<-v.done
	})
}

func (v *View) run() {
	defer close(v.done)
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := v.fetch(v.base)
			v.logger.Printf("report: poll refreshed %d rows (seq %d)", len(snap.Rows), snap.Seq)
		case <-v.stop:
			return
		}
	}
}

// SetFilter makes f the current filter. It fetches and waits unless the
// shown snapshot already belongs to f, or f was fetched within the last
// poll interval.
func (v *View) SetFilter(ctx context.Context, f models.Filter) Snapshot {
	key := f.Key()
	v.mu.Lock()
	if v.rendered && v.snap.Filter.Key() == key {
		snap := v.adopt(v.snap)
		v.mu.Unlock()
		return snap
	}
	if snap, ok := v.recent.Get(key); ok {
		snap = v.adopt(snap)
		v.mu.Unlock()
		return snap
	}
	v.filter = f
	v.mu.Unlock()
	return v.fetch(ctx)
}

// adopt shows snap without fetching. A fetch still running for another
// filter is cancelled and can no longer replace it. Callers hold v.mu.
func (v *View) adopt(snap Snapshot) Snapshot {
	if v.cancel != nil && v.filter.Key() != snap.Filter.Key() {
		v.cancel()
		v.cancel = nil
		v.issued++
		v.state = Rendered
	}
	v.filter = snap.Filter
	v.snap = snap
	return snap
}

// Refresh refetches with the current filter.
func (v *View) Refresh(ctx context.Context) Snapshot {
	return v.fetch(ctx)
}

// Snapshot returns the last applied result.
func (v *View) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snap
}

func (v *View) Filter() models.Filter {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filter
}

// Interval is the poll period.
func (v *View) Interval() time.Duration { return v.interval }

func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// fetch runs one fetch and returns the snapshot current once it finishes,
// which is the caller's own result unless a later fetch superseded it.
func (v *View) fetch(ctx context.Context) Snapshot {
	v.mu.Lock()
	v.issued++
	seq := v.issued
	f := v.filter
	if v.cancel != nil {
		v.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	stopAfter := context.AfterFunc(v.base, cancel)
	v.cancel = cancel
	v.state = Fetching
	v.mu.Unlock()

	rows := v.fetcher.Fetch(fctx, f)

	v.mu.Lock()
	defer v.mu.Unlock()
	stopAfter()
	defer cancel()

	if seq != v.issued {
		v.logger.Printf("report: dropping stale fetch %d (latest %d)", seq, v.issued)
		return v.snap
	}
	v.cancel = nil
	if fctx.Err() != nil {
		v.logger.Printf("report: fetch %d cancelled", seq)
		v.state = v.settled()
		return v.snap
	}

	if rows == nil {
		rows = []models.LinkStat{}
	}
	v.snap = Snapshot{Seq: seq, Filter: f, Rows: rows, FetchedAt: v.now()}
	v.recent.Add(f.Key(), v.snap)
	v.rendered = true
	v.state = Rendered
	return v.snap
}

func (v *View) settled() State {
	if v.rendered {
		return Rendered
	}
	return Idle
}

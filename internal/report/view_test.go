package report

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scmmishra/clickboard/internal/models"
)

// funcFetcher counts calls and delegates to fn.
type funcFetcher struct {
	calls atomic.Int32
	fn    func(ctx context.Context, f models.Filter, call int) []models.LinkStat
}

func (f *funcFetcher) Fetch(ctx context.Context, filter models.Filter) []models.LinkStat {
	n := int(f.calls.Add(1))
	return f.fn(ctx, filter, n)
}

func rowsNamed(names ...string) []models.LinkStat {
	rows := make([]models.LinkStat, len(names))
	for i, n := range names {
		rows[i] = models.LinkStat{ID: int64(i + 1), Name: n}
	}
	return rows
}

func newTestView(t *testing.T, f Fetcher) *View {
	t.Helper()
	v := NewView(f, time.Hour, nil)
	t.Cleanup(v.Shutdown)
	return v
}

func TestView_StartsIdle(t *testing.T) {
	v := newTestView(t, &funcFetcher{})
	assert.Equal(t, Idle, v.State())
	assert.True(t, v.Filter().FilterRobots, "robots are filtered by default")
	assert.Empty(t, v.Snapshot().Rows)
}

func TestView_SetFilter_SameKeyDoesNotRefetch(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ models.Filter, _ int) []models.LinkStat {
		return rowsNamed("a")
	}}
	v := newTestView(t, fetcher)
	ctx := context.Background()

	first := v.SetFilter(ctx, models.Filter{Countries: []string{"us", "CA"}})
	second := v.SetFilter(ctx, models.Filter{Countries: []string{"ca", "US"}})

	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Equal(t, first.Seq, second.Seq)
	assert.Equal(t, Rendered, v.State())

	v.SetFilter(ctx, models.Filter{Countries: []string{"US"}})
	assert.Equal(t, int32(2), fetcher.calls.Load())
}

func TestView_Refresh_AlwaysFetchesWithCurrentFilter(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []models.Filter
	)
	fetcher := &funcFetcher{fn: func(_ context.Context, f models.Filter, _ int) []models.LinkStat {
		mu.Lock()
		seen = append(seen, f)
		mu.Unlock()
		return nil
	}}
	v := newTestView(t, fetcher)
	ctx := context.Background()

	v.SetFilter(ctx, models.Filter{Search: "docs"})
	snap := v.Refresh(ctx)
	v.Refresh(ctx)

	assert.Equal(t, int32(3), fetcher.calls.Load())
	assert.Equal(t, uint64(2), snap.Seq)
	assert.NotNil(t, snap.Rows)
	mu.Lock()
	defer mu.Unlock()
	for _, f := range seen {
		assert.Equal(t, "docs", f.Search)
	}
}

func TestView_StaleResultIsDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var firstCancelled atomic.Bool

	fetcher := &funcFetcher{fn: func(ctx context.Context, f models.Filter, call int) []models.LinkStat {
		if call == 1 {
			close(started)
			<-ctx.Done()
			firstCancelled.Store(true)
			<-release
			return rowsNamed("stale")
		}
		return rowsNamed("fresh")
	}}
	v := newTestView(t, fetcher)

	firstDone := make(chan Snapshot)
	go func() {
		firstDone <- v.SetFilter(context.Background(), models.Filter{Search: "old"})
	}()
	<-started
	assert.Equal(t, Fetching, v.State())

	latest := v.SetFilter(context.Background(), models.Filter{Search: "new"})
	require.Len(t, latest.Rows, 1)
	assert.Equal(t, "fresh", latest.Rows[0].Name)
	assert.Equal(t, uint64(2), latest.Seq)

	close(release)
	stale := <-firstDone

	assert.True(t, firstCancelled.Load(), "superseded fetch should see its context cancelled")
	assert.Equal(t, uint64(2), stale.Seq, "superseded caller gets the latest snapshot")
	assert.Equal(t, "fresh", v.Snapshot().Rows[0].Name)
	assert.Equal(t, "new", v.Snapshot().Filter.Search)
	assert.Equal(t, Rendered, v.State())
}

func TestView_PollerRefetches(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, _ models.Filter, _ int) []models.LinkStat {
		return rowsNamed("a")
	}}
	v := NewView(fetcher, 10*time.Millisecond, nil)
	defer v.Shutdown()

	require.Eventually(t, func() bool { return fetcher.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, Rendered, v.State())
}

func TestView_ShutdownCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	fetcher := &funcFetcher{fn: func(ctx context.Context, _ models.Filter, _ int) []models.LinkStat {
		close(started)
		<-ctx.Done()
		return nil
	}}
	v := NewView(fetcher, time.Hour, nil)

	done := make(chan Snapshot)
	go func() { done <- v.Refresh(context.Background()) }()
	<-started
	v.Shutdown()
	v.Shutdown() // idempotent

	select {
	case snap := <-done:
		assert.Zero(t, snap.Seq)
	case <-time.After(time.Second):
		t.Fatal("fetch was not cancelled by Shutdown")
	}
	assert.Equal(t, Idle, v.State())
}

func TestView_CallerCancelKeepsPreviousSnapshot(t *testing.T) {
	fetcher := &funcFetcher{fn: func(ctx context.Context, _ models.Filter, call int) []models.LinkStat {
		if call == 2 {
			<-ctx.Done()
			return nil
		}
		return rowsNamed("kept")
	}}
	v := newTestView(t, fetcher)

	v.Refresh(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	snap := v.Refresh(ctx)

	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, "kept", snap.Rows[0].Name)
	assert.Equal(t, Rendered, v.State())
}

func TestView_CancelledFilterChangeRefetchesOnRetry(t *testing.T) {
	fetcher := &funcFetcher{fn: func(ctx context.Context, f models.Filter, _ int) []models.LinkStat {
		if ctx.Err() != nil {
			return nil
		}
		return rowsNamed("rows-for-" + f.Search)
	}}
	v := newTestView(t, fetcher)

	v.SetFilter(context.Background(), models.Filter{Search: "a"})

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	kept := v.SetFilter(cancelled, models.Filter{Search: "b"})
	assert.Equal(t, "a", kept.Filter.Search, "cancelled change keeps the shown snapshot")

	snap := v.SetFilter(context.Background(), models.Filter{Search: "b"})
	assert.Equal(t, int32(3), fetcher.calls.Load())
	assert.Equal(t, "b", snap.Filter.Search)
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, "rows-for-b", snap.Rows[0].Name)
}

func TestView_AlternatingFiltersReuseRecentSnapshots(t *testing.T) {
	fetcher := &funcFetcher{fn: func(_ context.Context, f models.Filter, _ int) []models.LinkStat {
		return rowsNamed("rows-for-" + f.Search)
	}}
	v := newTestView(t, fetcher)
	ctx := context.Background()

	for range 3 {
		a := v.SetFilter(ctx, models.Filter{Search: "a"})
		b := v.SetFilter(ctx, models.Filter{Search: "b"})
		assert.Equal(t, "rows-for-a", a.Rows[0].Name)
		assert.Equal(t, "rows-for-b", b.Rows[0].Name)
	}
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.Equal(t, "b", v.Filter().Search)

	// A refresh replaces the recent snapshot for its filter only.
	assert.Equal(t, uint64(3), v.Refresh(ctx).Seq)
	assert.Equal(t, uint64(1), v.SetFilter(ctx, models.Filter{Search: "a"}).Seq)
	assert.Equal(t, uint64(3), v.SetFilter(ctx, models.Filter{Search: "b"}).Seq)
	assert.Equal(t, int32(3), fetcher.calls.Load())
}

func TestView_SwitchToRecentFilterDropsPendingFetch(t *testing.T) {
	started := make(chan struct{})
	fetcher := &funcFetcher{fn: func(ctx context.Context, f models.Filter, call int) []models.LinkStat {
		if call == 2 {
			close(started)
			<-ctx.Done()
			return rowsNamed("late")
		}
		return rowsNamed("rows-for-" + f.Search)
	}}
	v := newTestView(t, fetcher)
	ctx := context.Background()
	v.SetFilter(ctx, models.Filter{Search: "a"})

	pending := make(chan Snapshot)
	go func() { pending <- v.SetFilter(ctx, models.Filter{Search: "b"}) }()
	<-started

	snap := v.SetFilter(ctx, models.Filter{Search: "a"})
	assert.Equal(t, "rows-for-a", snap.Rows[0].Name)

	select {
	case got := <-pending:
		assert.Equal(t, "a", got.Filter.Search)
	case <-time.After(time.Second):
		t.Fatal("pending fetch was not cancelled")
	}
	assert.Equal(t, "a", v.Snapshot().Filter.Search)
	assert.Equal(t, Rendered, v.State())
}

func TestSnapshot_Visible(t *testing.T) {
	snap := Snapshot{
		Filter: models.Filter{Search: "CAMP"},
		Rows:   rowsNamed("Marketing Campaign", "Newsletter", "camping"),
	}
	got := snap.Visible()
	require.Len(t, got, 2)
	assert.Equal(t, "Marketing Campaign", got[0].Name)
	assert.Equal(t, "camping", got[1].Name)

	snap.Filter.Search = ""
	assert.Len(t, snap.Visible(), 3)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "fetching", Fetching.String())
	assert.Equal(t, "rendered", Rendered.String())
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/scmmishra/clickboard/internal/linkly"
)

// SeriesCache holds daily click buckets per link and window. Entries expire
// after the TTL so a refresh eventually sees new clicks.
type SeriesCache struct {
	c *expirable.LRU[string, []linkly.Bucket]
}

func New(size int, ttl time.Duration) (*SeriesCache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("cache size must be positive")
	}
	return &SeriesCache{c: expirable.NewLRU[string, []linkly.Bucket](size, nil, ttl)}, nil
}

func key(opts linkly.ClicksOptions) string {
	return fmt.Sprintf("%d/%s/%s/%t/%s",
		opts.LinkID, opts.Start.Format("2006-01-02"), opts.End.Format("2006-01-02"), opts.Bots, opts.TZ)
}

func (sc *SeriesCache) Get(opts linkly.ClicksOptions) ([]linkly.Bucket, bool) {
	return sc.c.Get(key(opts))
}

func (sc *SeriesCache) Set(opts linkly.ClicksOptions, buckets []linkly.Bucket) {
	sc.c.Add(key(opts), buckets)
}

// Purge drops every entry.
func (sc *SeriesCache) Purge() {
	sc.c.Purge()
}

func (sc *SeriesCache) Len() int {
	return sc.c.Len()
}

type bypassKey struct{}

// Bypass marks ctx so cached series are ignored on read. Fresh results are
// still stored.
func Bypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, bypassKey{}, true)
}

func Bypassed(ctx context.Context) bool {
	b, _ := ctx.Value(bypassKey{}).(bool)
	return b
}

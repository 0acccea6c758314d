package analytics

import (
	"io"
	"log"
	"strings"
	"time"

	"github.com/scmmishra/clickboard/internal/geo"
)

// RawClick is a redirect as seen on the wire.
type RawClick struct {
	LinkID    int64
	ClickedAt time.Time
	IP        string
	UserAgent string
	// CountryHint is a country supplied by a fronting proxy, used when the
	// geo database has no answer.
	CountryHint string
}

// Click is a classified click ready for storage.
type Click struct {
	LinkID    int64
	ClickedAt time.Time
	UserAgent string
	Country   string
	IsBot     bool
}

// FlushFunc persists one batch of clicks.
type FlushFunc func([]Click) error

type Collector struct {
	ch     chan RawClick
	stop   chan struct{}
	done   chan struct{}
	flushF FlushFunc
	geo    *geo.Reader
	logger *log.Logger
}

func NewCollector(flush FlushFunc, geoReader *geo.Reader, bufferSize int, flushInterval time.Duration, logger *log.Logger) *Collector {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Collector{
		ch:     make(chan RawClick, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		flushF: flush,
		geo:    geoReader,
		logger: logger,
	}
	go c.run(flushInterval)
	return c
}

// Push queues a click without blocking. The click is dropped if the buffer
// is full.
func (c *Collector) Push(click RawClick) {
	select {
	case c.ch <- click:
	default:
	}
}

// Shutdown flushes what is queued and stops the collector.
func (c *Collector) Shutdown() {
	close(c.stop)
	<-c.done
}

func (c *Collector) run(interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.flush()
		case <-c.stop:
			c.flush()
			return
		}
	}
}

func (c *Collector) flush() {
	var batch []Click
drain:
	for {
		select {
		case raw := <-c.ch:
			batch = append(batch, c.Classify(raw))
		default:
			break drain
		}
	}
	if len(batch) == 0 {
		return
	}

	if err := c.flushF(batch); err != nil {
		c.logger.Printf("analytics: flush error: %v", err)
		return
	}
	c.logger.Printf("analytics: flushed %d clicks", len(batch))
}

// Classify flags bots and resolves the visitor's country.
func (c *Collector) Classify(raw RawClick) Click {
	country := c.geo.Country(raw.IP)
	if country == "" {
		country = strings.ToUpper(strings.TrimSpace(raw.CountryHint))
	}
	return Click{
		LinkID:    raw.LinkID,
		ClickedAt: raw.ClickedAt,
		UserAgent: raw.UserAgent,
		Country:   country,
		IsBot:     IsBot(raw.UserAgent),
	}
}

package fakeapi

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"github.com/scmmishra/clickboard/internal/analytics"
	"github.com/scmmishra/clickboard/internal/slug"
)

type seedLink struct {
	slug string // empty: generated
	dest string
	name string
	home string // country most clicks come from
	// weight scales daily click volume.
	weight float64
	// botShare is the fraction of clicks from crawlers and scripts.
	botShare float64
}

var seedLinks = []seedLink{
	{"q1", "https://example.com/campaigns/q1", "Marketing Campaign Q1", "US", 5.0, 0.05},
	{"news", "https://example.com/newsletter", "Newsletter Signup", "CA", 4.0, 0.08},
	{"docs", "https://example.com/docs", "Product Documentation", "DE", 4.5, 0.10},
	{"launch", "https://example.com/blog/launch", "Launch Announcement", "GB", 3.5, 0.12},
	{"pricing", "https://example.com/pricing", "Pricing Page", "US", 3.0, 0.04},
	{"webinar", "https://example.com/events/webinar", "Spring Webinar", "IN", 2.5, 0.06},
	{"", "https://example.com/careers", "Careers", "FR", 1.5, 0.05},
	{"", "https://status.example.com/health", "Uptime Probe", "US", 3.0, 0.95},
	{"", "https://example.com/feed.xml", "RSS Feed", "NL", 2.0, 0.70},
	{"", "https://example.com/partners", "Partner Program", "AU", 1.2, 0.03},
}

type weighted[T any] struct {
	v      T
	weight float64
}

var countries = []weighted[string]{
	{"US", 25}, {"IN", 20}, {"DE", 8}, {"GB", 7}, {"BR", 6},
	{"FR", 5}, {"CA", 4}, {"AU", 3}, {"JP", 3}, {"NL", 2},
	{"SG", 2}, {"ES", 2}, {"IT", 1.5}, {"PL", 1.5}, {"SE", 1},
}

var humanAgents = []weighted[string]{
	{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", 45},
	{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_2) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15", 20},
	{"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0", 10},
	{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1", 15},
	{"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36", 10},
}

var botAgents = []weighted[string]{
	{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", 30},
	{"Mozilla/5.0 (compatible; bingbot/2.0; +http://www.bing.com/bingbot.htm)", 15},
	{"facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)", 15},
	{"Slackbot-LinkExpanding 1.0 (+https://api.slack.com/robots)", 10},
	{"curl/8.4.0", 15},
	{"Go-http-client/1.1", 15},
}

func pick[T any](rng *rand.Rand, items []weighted[T]) T {
	var total float64
	for _, item := range items {
		total += item.weight
	}
	r := rng.Float64() * total
	for _, item := range items {
		r -= item.weight
		if r <= 0 {
			return item.v
		}
	}
	return items[len(items)-1].v
}

type SeedOptions struct {
	Workspace string
	Domain    string
	Days      int
	Now       time.Time
	// Seed makes click generation repeatable.
	Seed int64
}

type SeedResult struct {
	Links  int
	Clicks int
}

// Seed creates demo links in a workspace and generates Days of clicks for
// each, ending at Now.
func Seed(db *sql.DB, opts SeedOptions) (SeedResult, error) {
	if opts.Workspace == "" || opts.Domain == "" {
		return SeedResult{}, fmt.Errorf("workspace and domain are required")
	}
	if opts.Days <= 0 {
		opts.Days = 90
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	now := opts.Now.UTC()
	first := now.AddDate(0, 0, -(opts.Days - 1))
	first = time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewSource(opts.Seed))

	var res SeedResult
	for _, sl := range seedLinks {
		link := Link{
			Workspace:   opts.Workspace,
			Slug:        sl.slug,
			Domain:      opts.Domain,
			Destination: sl.dest,
			Name:        sl.name,
			CreatedAt:   first,
		}
		if link.Slug == "" {
			s, err := slug.Unique(func(c string) (bool, error) { return SlugExists(db, c, opts.Domain) })
			if err != nil {
				return res, fmt.Errorf("slug for %q: %w", sl.name, err)
			}
			link.Slug = s
		}
		if err := CreateLink(db, &link); err != nil {
			return res, fmt.Errorf("create link %q: %w", sl.name, err)
		}
		res.Links++

		clicks := generateClicks(rng, link.ID, sl, first, now)
		for start := 0; start < len(clicks); start += 500 {
			batch := clicks[start:min(start+500, len(clicks))]
			if err := BatchInsertClicks(db, batch); err != nil {
				return res, fmt.Errorf("insert clicks for %q: %w", sl.name, err)
			}
		}
		res.Clicks += len(clicks)
	}
	return res, nil
}

func generateClicks(rng *rand.Rand, linkID int64, sl seedLink, first, now time.Time) []analytics.Click {
	base := sl.weight * 3
	totalDays := now.Sub(first).Hours() / 24

	var clicks []analytics.Click
	for day := first; day.Before(now); day = day.AddDate(0, 0, 1) {
		variance := 0.6 + rng.Float64()*0.8
		growth := 0.7 + 0.6*(day.Sub(first).Hours()/24)/max(totalDays, 1)
		weekday := 1.0
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			weekday = 0.4
		}

		n := int(base * variance * growth * weekday)
		for range n {
			// Business hours, centred on 14:00 UTC.
			hour := min(max(rng.NormFloat64()*4+14, 0), 23)
			at := time.Date(day.Year(), day.Month(), day.Day(), int(hour), rng.Intn(60), rng.Intn(60), 0, time.UTC)
			if at.After(now) {
				continue
			}

			ua := pick(rng, humanAgents)
			if rng.Float64() < sl.botShare {
				ua = pick(rng, botAgents)
			}
			country := sl.home
			if rng.Float64() < 0.4 {
				country = pick(rng, countries)
			}

			clicks = append(clicks, analytics.Click{
				LinkID:    linkID,
				ClickedAt: at,
				UserAgent: ua,
				Country:   country,
				IsBot:     analytics.IsBot(ua),
			})
		}
	}
	return clicks
}

package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// FilterFromQuery builds a Filter from report query parameters:
//
//	bots=human|all  country=US,CA  search=  from=  to=  sort=  dir=
//
// Robot traffic is hidden unless bots=all.
func FilterFromQuery(q url.Values, loc *time.Location) (Filter, error) {
	f := Filter{
		FilterRobots: q.Get("bots") != "all",
		Search:       strings.TrimSpace(q.Get("search")),
		Sort:         SortKey(q.Get("sort")),
		Dir:          SortDir(q.Get("dir")),
	}
	if b := q.Get("bots"); b != "" && b != "all" && b != "human" {
		return Filter{}, fmt.Errorf("bots must be human or all")
	}

	for _, raw := range q["country"] {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				f.Countries = append(f.Countries, strings.ToUpper(c))
			}
		}
	}

	from, to := q.Get("from"), q.Get("to")
	if from != "" || to != "" {
		r := &DateRange{}
		var err error
		if from != "" {
			if r.From, err = ParseDate(from, loc); err != nil {
				return Filter{}, err
			}
		}
		if to != "" {
			if r.To, err = ParseDate(to, loc); err != nil {
				return Filter{}, err
			}
		}
		f.Range = r
	}

	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Query encodes f back into report query parameters.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if !f.FilterRobots {
		q.Set("bots", "all")
	}
	if len(f.Countries) > 0 {
		q.Set("country", strings.Join(f.Countries, ","))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Range != nil {
		if !f.Range.From.IsZero() {
			q.Set("from", FormatDate(f.Range.From))
		}
		if !f.Range.To.IsZero() {
			q.Set("to", FormatDate(f.Range.To))
		}
	}
	if f.Sort != SortNone {
		q.Set("sort", string(f.Sort))
	}
	if f.Dir != "" {
		q.Set("dir", string(f.Dir))
	}
	return q
}

package models

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"
)

type SortKey string

const (
	SortNone      SortKey = ""
	SortName      SortKey = "name"
	SortToday     SortKey = "today"
	SortThirtyDay SortKey = "thirty_day"
	SortTotal     SortKey = "total"
)

type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days. Only the date part of
// From and To is meaningful.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Filter is the immutable set of report options. Build a new value to change
// it; Key identifies it for refetch decisions.
type Filter struct {
	FilterRobots bool
	Countries    []string
	Search       string
	Range        *DateRange
	Sort         SortKey
	Dir          SortDir
}

// Key returns a stable identity string. Two filters with equal keys produce
// the same fetch.
func (f Filter) Key() string {
	countries := make([]string, 0, len(f.Countries))
	for _, c := range f.Countries {
		countries = append(countries, strings.ToUpper(strings.TrimSpace(c)))
	}
	slices.Sort(countries)

	var from, to string
	if f.Range != nil {
		if !f.Range.From.IsZero() {
			from = f.Range.From.Format(dateLayout)
		}
		if !f.Range.To.IsZero() {
			to = f.Range.To.Format(dateLayout)
		}
	}
	return fmt.Sprintf("robots=%t|countries=%s|search=%s|range=%s..%s|sort=%s:%s",
		f.FilterRobots, strings.Join(countries, ","), strings.ToLower(f.Search), from, to, f.Sort, f.Dir)
}

func (f Filter) Validate() error {
	switch f.Sort {
	case SortNone, SortName, SortToday, SortThirtyDay, SortTotal:
	default:
		return fmt.Errorf("unknown sort key %q", f.Sort)
	}
	switch f.Dir {
	case "", Asc, Desc:
	default:
		return fmt.Errorf("unknown sort direction %q", f.Dir)
	}
	if r := f.Range; r != nil && !r.From.IsZero() && !r.To.IsZero() && r.From.After(r.To) {
		return fmt.Errorf("date range starts after it ends")
	}
	return nil
}

// Apply runs the robot, country, search and sort steps over rows and returns
// a new slice. rows is not modified.
func Apply(rows []LinkStat, f Filter) []LinkStat {
	out := make([]LinkStat, 0, len(rows))
	for _, r := range rows {
		if f.FilterRobots && r.IsRobot {
			continue
		}
		if !countryAllowed(f.Countries, r.Country) {
			continue
		}
		if !MatchName(r.Name, f.Search) {
			continue
		}
		out = append(out, r)
	}
	SortRows(out, f.Sort, f.Dir)
	return out
}

// ExcludeRobots drops every row flagged as robot traffic.
func ExcludeRobots(rows []LinkStat) []LinkStat {
	return Apply(rows, Filter{FilterRobots: true})
}

// ByCountry keeps rows whose country is in the allow-list. An empty list keeps
// everything.
func ByCountry(rows []LinkStat, countries []string) []LinkStat {
	return Apply(rows, Filter{Countries: countries})
}

// SearchByName keeps rows whose name contains term, ignoring case.
func SearchByName(rows []LinkStat, term string) []LinkStat {
	return Apply(rows, Filter{Search: term})
}

// MatchName reports whether name contains term, ignoring case. An empty term
// matches everything.
func MatchName(name, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(term))
}

func countryAllowed(allow []string, country string) bool {
	if len(allow) == 0 {
		return true
	}
	for _, c := range allow {
		if strings.EqualFold(strings.TrimSpace(c), country) {
			return true
		}
	}
	return false
}

// SortRows orders rows in place. SortNone leaves the order untouched; ties
// keep their relative order.
func SortRows(rows []LinkStat, key SortKey, dir SortDir) {
	var less func(a, b LinkStat) int
	switch key {
	case SortName:
		less = func(a, b LinkStat) int { return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)) }
	case SortToday:
		less = func(a, b LinkStat) int { return cmp.Compare(a.Today, b.Today) }
	case SortThirtyDay:
		less = func(a, b LinkStat) int { return cmp.Compare(a.ThirtyDay, b.ThirtyDay) }
	case SortTotal:
		less = func(a, b LinkStat) int { return cmp.Compare(a.Total, b.Total) }
	default:
		return
	}
	if dir == Desc {
		asc := less
		less = func(a, b LinkStat) int { return asc(b, a) }
	}
	slices.SortStableFunc(rows, less)
}

// ParseDate parses a YYYY-MM-DD day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

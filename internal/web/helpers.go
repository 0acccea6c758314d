package web

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/scmmishra/clickboard/internal/models"
	"github.com/scmmishra/clickboard/internal/sparkline"
)

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"timeAgo":     timeAgo,
		"formatNum":   formatNum,
		"truncate":    truncate,
		"countryFlag": countryFlag,
		"hostname":    hostname,
		"sparkline":   sparklineSVG,
		"sortURL":     sortURL,
		"sortMark":    sortMark,
		"exportURL":   exportURL,
		"join":        strings.Join,
	}
}

func timeAgo(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// formatNum renders counts with thousands separators: 5432 -> "5,432".
func formatNum(n int) string {
	return humanize.Comma(int64(n))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func countryFlag(code string) string {
	if len(code) != 2 {
		return code
	}
	code = strings.ToUpper(code)
	if code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return code
	}
	return string(rune(code[0])-'A'+0x1F1E6) + string(rune(code[1])-'A'+0x1F1E6)
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// sparklineSVG inlines a row's trend. SVG output only carries numbers and an
// escaped colour, so it is safe to mark as HTML.
func sparklineSVG(data []float64) template.HTML {
	return template.HTML(sparkline.SVG(data, sparkline.DefaultOptions))
}

// sortURL links a column header. Clicking the active column flips its
// direction; a new column starts ascending for names and descending for
// counts.
func sortURL(f models.Filter, key string) string {
	k := models.SortKey(key)
	dir := models.Desc
	if k == models.SortName {
		dir = models.Asc
	}
	if f.Sort == k {
		dir = models.Asc
		if f.Dir == models.Asc {
			dir = models.Desc
		}
	}
	f.Sort, f.Dir = k, dir
	return "/reports?" + f.Query().Encode()
}

func sortMark(f models.Filter, key string) string {
	if f.Sort != models.SortKey(key) {
		return ""
	}
	if f.Dir == models.Desc {
		return "▾"
	}
	return "▴"
}

func exportURL(f models.Filter, format string) string {
	q := f.Query()
	if len(q) == 0 {
		return "/reports/export." + format
	}
	return "/reports/export." + format + "?" + q.Encode()
}

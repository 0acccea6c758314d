// Package export writes report rows as CSV or JSON downloads.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/scmmishra/clickboard/internal/models"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv or json)", s)
}

// Filename is the suggested download name.
func (f Format) Filename() string {
	return "reports." + string(f)
}

func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// Write dispatches to CSV or JSON.
func Write(w io.Writer, f Format, rows []models.LinkStat, withCountry bool) error {
	switch f {
	case FormatCSV:
		return CSV(w, rows, withCountry)
	case FormatJSON:
		return JSON(w, rows)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// CSV writes a header line and one line per row, in the given order.
func CSV(w io.Writer, rows []models.LinkStat, withCountry bool) error {
	cw := csv.NewWriter(w)
	header := []string{"Name", "Today", "30 Day", "Total"}
	if withCountry {
		header = append(header, "Country")
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			singleLine(r.Name),
			strconv.Itoa(r.Today),
			strconv.Itoa(r.ThirtyDay),
			strconv.Itoa(r.Total),
		}
		if withCountry {
			rec = append(rec, r.Country)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// singleLine keeps one record per line even for names with line breaks.
func singleLine(s string) string {
	return lineBreaks.Replace(s)
}

// JSON writes rows as an indented array. No rows is written as [].
func JSON(w io.Writer, rows []models.LinkStat) error {
	if rows == nil {
		rows = []models.LinkStat{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// Package fakeapi is a local stand-in for the link-management service: it
// stores links and clicks in SQLite, serves the v1 workspace API the
// dashboard reads, and redirects short links while recording clicks.
package fakeapi

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/scmmishra/clickboard/internal/analytics"
	"github.com/scmmishra/clickboard/internal/linkly"
	"github.com/scmmishra/clickboard/internal/models"
)

type Link struct {
	ID          int64
	Workspace   string
	Slug        string
	Domain      string
	Destination string
	Name        string
	IsActive    bool
	CreatedAt   time.Time
}

func (l *Link) ShortURL() string {
	return "https://" + l.Domain + "/" + l.Slug
}

const linkColumns = `id, workspace, slug, domain, destination, name, is_active, created_at`

func CreateLink(db *sql.DB, l *Link) error {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	res, err := db.Exec(
		`INSERT INTO links (workspace, slug, domain, destination, name, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		l.Workspace, l.Slug, strings.ToLower(l.Domain), l.Destination, l.Name, l.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert link: %w", err)
	}
	id, _ := res.LastInsertId()
	l.ID = id
	l.Domain = strings.ToLower(l.Domain)
	l.IsActive = true
	return nil
}

// GetLink returns the link with id inside workspace, or sql.ErrNoRows.
func GetLink(db *sql.DB, workspace string, id int64) (*Link, error) {
	row := db.QueryRow(`SELECT `+linkColumns+` FROM links WHERE id = ? AND workspace = ?`, id, workspace)
	return scanLink(row)
}

func GetLinkBySlugAndDomain(db *sql.DB, slug, domain string) (*Link, error) {
	row := db.QueryRow(`SELECT `+linkColumns+` FROM links WHERE domain = ? AND slug = ?`, strings.ToLower(domain), slug)
	return scanLink(row)
}

func SlugExists(db *sql.DB, slug, domain string) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM links WHERE slug = ? AND domain = ?`, slug, strings.ToLower(domain)).Scan(&count)
	return count > 0, err
}

func scanLink(row *sql.Row) (*Link, error) {
	var (
		l       Link
		active  int
		created int64
	)
	if err := row.Scan(&l.ID, &l.Workspace, &l.Slug, &l.Domain, &l.Destination, &l.Name, &active, &created); err != nil {
		return nil, err
	}
	l.IsActive = active == 1
	l.CreatedAt = time.Unix(created, 0).UTC()
	return &l, nil
}

func BatchInsertClicks(db *sql.DB, clicks []analytics.Click) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO clicks (link_id, clicked_at, user_agent, country, is_bot) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range clicks {
		bot := 0
		if c.IsBot {
			bot = 1
		}
		if _, err := stmt.Exec(c.LinkID, c.ClickedAt.Unix(), c.UserAgent, c.Country, bot); err != nil {
			return fmt.Errorf("insert click: %w", err)
		}
	}

	return tx.Commit()
}

// LinkQuery selects one page of a workspace's active links.
type LinkQuery struct {
	Workspace string
	Search    string
	SortBy    string // "name", "clicks" or "" for creation order
	SortDir   string // "asc" or "desc"
	Limit     int
	Offset    int
}

// ListLinks returns a page of links with their click totals, plus the number
// of links matching the query.
func ListLinks(db *sql.DB, q LinkQuery) ([]linkly.Link, int, error) {
	where := "l.workspace = ? AND l.is_active = 1"
	args := []any{q.Workspace}
	if q.Search != "" {
		where += " AND (l.name LIKE ? OR l.slug LIKE ? OR l.destination LIKE ?)"
		s := "%" + q.Search + "%"
		args = append(args, s, s, s)
	}

	var total int
	if err := db.QueryRow("SELECT COUNT(*) FROM links l WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count links: %w", err)
	}

	dir := "ASC"
	if strings.EqualFold(q.SortDir, "desc") {
		dir = "DESC"
	}
	order := "l.id ASC"
	switch q.SortBy {
	case "name":
		order = "l.name COLLATE NOCASE " + dir + ", l.id ASC"
	case "clicks":
		order = "clicks_total " + dir + ", l.id ASC"
	}

	query := `SELECT l.id, l.slug, l.domain, l.destination, l.name,
		COUNT(c.id) AS clicks_total,
		COALESCE(SUM(c.is_bot), 0) AS clicks_bot
		FROM links l LEFT JOIN clicks c ON c.link_id = l.id
		WHERE ` + where + `
		GROUP BY l.id
		ORDER BY ` + order + `
		LIMIT ? OFFSET ?`
	args = append(args, q.Limit, q.Offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list links: %w", err)
	}
	var links []linkly.Link
	for rows.Next() {
		var (
			l            Link
			clicks, bots int
		)
		if err := rows.Scan(&l.ID, &l.Slug, &l.Domain, &l.Destination, &l.Name, &clicks, &bots); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, linkly.Link{
			ID:          l.ID,
			Name:        l.Name,
			URL:         l.Destination,
			FullURL:     l.ShortURL(),
			Robot:       clicks > 0 && bots*2 > clicks,
			ClicksTotal: clicks,
			ClicksHuman: clicks - bots,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// Second pass: the pool has a single connection, so the rows above must
	// be closed before issuing more queries.
	for i := range links {
		country, err := TopCountry(db, links[i].ID)
		if err != nil {
			return nil, 0, err
		}
		links[i].Country = country
	}
	return links, total, nil
}

// TopCountry returns the country with the most clicks on a link, ties going
// to the alphabetically first code.
func TopCountry(db *sql.DB, linkID int64) (string, error) {
	var country string
	err := db.QueryRow(`
		SELECT country FROM clicks
		WHERE link_id = ? AND country != ''
		GROUP BY country
		ORDER BY COUNT(*) DESC, country ASC
		LIMIT 1`, linkID).Scan(&country)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("top country: %w", err)
	}
	return country, nil
}

// DailyClicks buckets a link's clicks by calendar day in loc, for the days
// from start to end inclusive. Days without clicks are omitted.
func DailyClicks(db *sql.DB, linkID int64, start, end time.Time, includeBots bool, loc *time.Location) ([]linkly.Bucket, error) {
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	query := `SELECT clicked_at FROM clicks WHERE link_id = ? AND clicked_at >= ? AND clicked_at < ?`
	if !includeBots {
		query += ` AND is_bot = 0`
	}
	rows, err := db.Query(query, linkID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("daily clicks: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("scan click: %w", err)
		}
		counts[models.FormatDate(time.Unix(ts, 0).In(loc))]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buckets := make([]linkly.Bucket, 0, len(counts))
	for day, n := range counts {
		buckets = append(buckets, linkly.Bucket{Day: day, Clicks: n})
	}
	slices.SortFunc(buckets, func(a, b linkly.Bucket) int { return strings.Compare(a.Day, b.Day) })
	return buckets, nil
}

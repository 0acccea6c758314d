package models

// TrendDays is the number of daily buckets in a row's sparkline.
const TrendDays = 7

// LinkStat is one report row. Rows are built fresh on every fetch and are
// never modified afterwards.
type LinkStat struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Sparkline []float64 `json:"sparkline"`
	Today     int       `json:"today"`
	ThirtyDay int       `json:"thirty_day"`
	Total     int       `json:"total"`
	IsRobot   bool      `json:"is_robot"`
	Country   string    `json:"country"`
}

// FindByID returns the row with the given upstream link ID.
func FindByID(rows []LinkStat, id int64) (LinkStat, bool) {
	for _, r := range rows {
		if r.ID == id {
			return r, true
		}
	}
	return LinkStat{}, false
}

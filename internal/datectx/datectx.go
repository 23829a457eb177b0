// ABOUTME: Calendar context attached to deal responses: today's date, the current quarter and quarter boundaries
// ABOUTME: All dates are computed in UTC and rendered as YYYY-MM-DD

package datectx

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Range is an inclusive date range.
type Range struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// QuarterInfo holds the boundaries of every quarter in one year.
type QuarterInfo struct {
	Q1 Range `json:"q1"`
	Q2 Range `json:"q2"`
	Q3 Range `json:"q3"`
	Q4 Range `json:"q4"`
}

// Context describes "now" in calendar terms.
type Context struct {
	CurrentDate         string      `json:"current_date"`
	CurrentQuarter      string      `json:"current_quarter"`
	CurrentYear         int         `json:"current_year"`
	QuarterInfo         QuarterInfo `json:"quarter_info"`
	CurrentQuarterDates Range       `json:"current_quarter_dates"`
}

// At builds the Context for t.
func At(t time.Time) Context {
	t = t.UTC()
	year := t.Year()
	q := QuarterOf(t)

	return Context{
		CurrentDate:    t.Format(dateLayout),
		CurrentQuarter: fmt.Sprintf("Q%d %d", q, year),
		CurrentYear:    year,
		QuarterInfo: QuarterInfo{
			Q1: QuarterRange(1, year),
			Q2: QuarterRange(2, year),
			Q3: QuarterRange(3, year),
			Q4: QuarterRange(4, year),
		},
		CurrentQuarterDates: QuarterRange(q, year),
	}
}

// Now builds the Context for the current time.
func Now() Context {
	return At(time.Now())
}

// QuarterOf returns the quarter number (1-4) containing t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// QuarterRange returns the first and last day of quarter q in year.
func QuarterRange(q, year int) Range {
	first := time.Date(year, time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 3, -1)
	return Range{Start: first.Format(dateLayout), End: last.Format(dateLayout)}
}

// ParseQuarter resolves "Q1".."Q4" (case-insensitive) or "current" against now.
func ParseQuarter(s string, now time.Time) (int, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "CURRENT":
		return QuarterOf(now.UTC()), nil
	case "Q1":
		return 1, nil
	case "Q2":
		return 2, nil
	case "Q3":
		return 3, nil
	case "Q4":
		return 4, nil
	}
	return 0, fmt.Errorf("invalid quarter %q", s)
}

// Contains reports whether date (YYYY-MM-DD or a timestamp starting with
// one) falls inside r. Empty or malformed dates are outside every range.
func (r Range) Contains(date string) bool {
	if len(date) < len(dateLayout) {
		return false
	}
	day := date[:len(dateLayout)]
	if _, err := time.Parse(dateLayout, day); err != nil {
		return false
	}
	return day >= r.Start && day <= r.End
}

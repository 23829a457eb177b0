// ABOUTME: Quarter-aware deal tools: current quarter deals, quarter summaries and progress tracking
// ABOUTME: Deals are assigned to a quarter by won, close or expected close date

package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/2389/pipedrive-gateway/internal/datectx"
	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

const (
	quarterDealsDefaultLimit = 50
	quarterScanLimit         = 500
)

func quarterTools() []tool {
	return []tool{
		define("get_current_quarter_deals",
			"Get deals for the current quarter with date context (automatically uses correct quarter based on today's date)",
			currentQuarterDeals),
		define("get_quarter_summary",
			"Get comprehensive quarterly summary with key metrics and current quarter context",
			quarterSummary),
		define("get_quarterly_progress",
			"Get progress tracking for current quarter with forecasting data and date awareness",
			quarterlyProgress),
	}
}

// QuarterWindow identifies the period a quarter result covers.
type QuarterWindow struct {
	Quarter   string `json:"quarter"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Scanned   int    `json:"deals_scanned"`
	Matched   int    `json:"deals_matched"`
	Partial   bool   `json:"partial,omitempty"` // upstream had more deals than one scan page
}

// QuarterMetrics aggregates deals inside a quarter. Values are summed
// across currencies as reported.
type QuarterMetrics struct {
	TotalDeals       int     `json:"total_deals"`
	OpenDeals        int     `json:"open_deals"`
	WonDeals         int     `json:"won_deals"`
	LostDeals        int     `json:"lost_deals"`
	TotalValue       float64 `json:"total_value"`
	WonValue         float64 `json:"won_value"`
	OpenValue        float64 `json:"open_value"`
	WeightedPipeline float64 `json:"weighted_pipeline"`
	WinRate          float64 `json:"win_rate"`
}

// QuarterProgress tracks elapsed time against results.
type QuarterProgress struct {
	DaysElapsed    int     `json:"days_elapsed"`
	DaysTotal      int     `json:"days_total"`
	DaysRemaining  int     `json:"days_remaining"`
	PercentElapsed float64 `json:"percent_elapsed"`
}

// QuarterForecast projects the quarter's outcome from won value plus the
// probability-weighted open pipeline.
type QuarterForecast struct {
	WonValue         float64 `json:"won_value"`
	WeightedPipeline float64 `json:"weighted_pipeline"`
	ProjectedValue   float64 `json:"projected_value"`
}

type quarterResult struct {
	Success        bool                      `json:"success"`
	Data           any                       `json:"data,omitempty"`
	Error          string                    `json:"error,omitempty"`
	ErrorInfo      string                    `json:"error_info,omitempty"`
	Quarter        *QuarterWindow            `json:"quarter,omitempty"`
	AdditionalData *pipedrive.AdditionalData `json:"additional_data,omitempty"`
}

type quarterSummaryData struct {
	Metrics  QuarterMetrics   `json:"metrics"`
	Progress *QuarterProgress `json:"progress,omitempty"`
	Forecast *QuarterForecast `json:"forecast,omitempty"`
}

func currentQuarterDeals(ctx context.Context, c *call, a currentQuarterDealsArgs) Result {
	status := a.Status
	if status == "" {
		status = "all_not_deleted"
	}
	limit := *clamp(a.Limit, quarterDealsDefaultLimit, quarterScanLimit)

	q := datectx.QuarterOf(c.now.UTC())
	deals, window, failure := dealsInQuarter(ctx, c, q, c.now.UTC().Year(), status, a.UserID)
	if failure != nil {
		return failure.withContext(c.now)
	}

	if len(deals) > limit {
		deals = deals[:limit]
	}
	res := &quarterResult{Success: true, Data: deals, Quarter: window}
	return res.withContext(c.now)
}

func quarterSummary(ctx context.Context, c *call, a quarterSummaryArgs) Result {
	q, err := datectx.ParseQuarter(a.Quarter, c.now)
	if err != nil {
		res := &quarterResult{Error: err.Error()}
		return res.withContext(c.now)
	}
	year := c.now.UTC().Year()
	if a.Year != nil && *a.Year > 0 {
		year = *a.Year
	}

	deals, window, failure := dealsInQuarter(ctx, c, q, year, "all_not_deleted", a.UserID)
	if failure != nil {
		return failure.withContext(c.now)
	}

	data := quarterSummaryData{Metrics: computeMetrics(deals)}
	if q == datectx.QuarterOf(c.now.UTC()) && year == c.now.UTC().Year() {
		data.Progress = progressAt(q, year, c.now)
	}
	res := &quarterResult{Success: true, Data: data, Quarter: window}
	return res.withContext(c.now)
}

func quarterlyProgress(ctx context.Context, c *call, a quarterlyProgressArgs) Result {
	now := c.now.UTC()
	q, year := datectx.QuarterOf(now), now.Year()

	deals, window, failure := dealsInQuarter(ctx, c, q, year, "all_not_deleted", a.UserID)
	if failure != nil {
		return failure.withContext(c.now)
	}

	metrics := computeMetrics(deals)
	data := quarterSummaryData{Metrics: metrics, Progress: progressAt(q, year, now)}
	if a.IncludeForecast == nil || *a.IncludeForecast {
		data.Forecast = &QuarterForecast{
			WonValue:         metrics.WonValue,
			WeightedPipeline: metrics.WeightedPipeline,
			ProjectedValue:   round2(metrics.WonValue + metrics.WeightedPipeline),
		}
	}
	res := &quarterResult{Success: true, Data: data, Quarter: window}
	return res.withContext(c.now)
}

func (r *quarterResult) withContext(now time.Time) Result {
	dc := datectx.At(now)
	if r.AdditionalData == nil {
		r.AdditionalData = &pipedrive.AdditionalData{}
	}
	r.AdditionalData.DateContext = &dc
	return Result{Value: r, IsError: !r.Success}
}

// dealsInQuarter scans one page of deals and keeps those dated inside the
// quarter, preserving upstream order.
func dealsInQuarter(ctx context.Context, c *call, q, year int, status string, userID *int64) ([]pipedrive.Deal, *QuarterWindow, *quarterResult) {
	scan := quarterScanLimit
	env := c.upstream.GetDeals(ctx, pipedrive.ListParams{
		Limit:  &scan,
		Status: status,
		UserID: userID,
	})
	if !env.Success {
		return nil, nil, &quarterResult{Error: env.Error, ErrorInfo: env.ErrorInfo}
	}

	r := datectx.QuarterRange(q, year)
	matched := make([]pipedrive.Deal, 0)
	for _, d := range env.Data {
		if r.Contains(quarterDate(d)) {
			matched = append(matched, d)
		}
	}

	return matched, &QuarterWindow{
		Quarter:   fmt.Sprintf("Q%d %d", q, year),
		StartDate: r.Start,
		EndDate:   r.End,
		Scanned:   len(env.Data),
		Matched:   len(matched),
		Partial:   moreAvailable(env.AdditionalData),
	}, nil
}

// quarterDate is the date that places a deal in a quarter.
func quarterDate(d pipedrive.Deal) string {
	switch {
	case d.Status == "won" && d.WonTime != "":
		return d.WonTime
	case d.CloseTime != "":
		return d.CloseTime
	default:
		return d.ExpectedCloseDate
	}
}

func computeMetrics(deals []pipedrive.Deal) QuarterMetrics {
	var m QuarterMetrics
	for _, d := range deals {
		value := 0.0
		if d.Value != nil {
			value = *d.Value
		}
		m.TotalDeals++
		m.TotalValue += value

		switch d.Status {
		case "won":
			m.WonDeals++
			m.WonValue += value
		case "lost":
			m.LostDeals++
		default:
			m.OpenDeals++
			m.OpenValue += value
			if d.Probability != nil {
				m.WeightedPipeline += value * *d.Probability / 100
			}
		}
	}

	if closed := m.WonDeals + m.LostDeals; closed > 0 {
		m.WinRate = math.Round(float64(m.WonDeals)/float64(closed)*1000) / 10
	}
	m.TotalValue = round2(m.TotalValue)
	m.WonValue = round2(m.WonValue)
	m.OpenValue = round2(m.OpenValue)
	m.WeightedPipeline = round2(m.WeightedPipeline)
	return m
}

func progressAt(q, year int, now time.Time) *QuarterProgress {
	r := datectx.QuarterRange(q, year)
	start, _ := time.Parse("2006-01-02", r.Start)
	end, _ := time.Parse("2006-01-02", r.End)
	today := now.UTC().Truncate(24 * time.Hour)

	total := int(end.Sub(start).Hours()/24) + 1
	elapsed := int(today.Sub(start).Hours()/24) + 1
	elapsed = max(0, min(elapsed, total))

	return &QuarterProgress{
		DaysElapsed:    elapsed,
		DaysTotal:      total,
		DaysRemaining:  total - elapsed,
		PercentElapsed: math.Round(float64(elapsed)/float64(total)*1000) / 10,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

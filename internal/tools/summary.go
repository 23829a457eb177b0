// ABOUTME: Token-efficient tools that run upstream results through the optimizer
// ABOUTME: Smaller default pages, compact projections and a hard item cap per response

package tools

import (
	"context"

	"github.com/2389/pipedrive-gateway/internal/optimize"
	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

const (
	summaryDefaultLimit = 20
	summaryMaxLimit     = 50
	summaryMaxItems     = 20

	searchSummaryDefaultLimit = 10
	searchSummaryMaxLimit     = 20
	searchSummaryMaxItems     = 10

	overviewItems = 5
)

var summaryOptions = optimize.Options{MaxItems: summaryMaxItems, Summarize: true, IncludeMetadata: true}

func summaryTools() []tool {
	return []tool{
		define("get_deals_summary", "Get a summarized list of deals (optimized for token usage) - shows essential fields only",
			func(ctx context.Context, c *call, a dealsSummaryArgs) Result {
				env := c.upstream.GetDeals(ctx, pipedrive.ListParams{
					Start:  a.Start,
					Limit:  clamp(a.Limit, summaryDefaultLimit, summaryMaxLimit),
					Status: a.Status,
					UserID: a.UserID,
				})
				return optimizedResult(optimize.List(env, summaryOptions))
			}),
		define("get_persons_summary", "Get a summarized list of persons (optimized for token usage) - shows essential fields only",
			func(ctx context.Context, c *call, a contactsSummaryArgs) Result {
				env := c.upstream.GetPersons(ctx, pipedrive.ListParams{
					Start:  a.Start,
					Limit:  clamp(a.Limit, summaryDefaultLimit, summaryMaxLimit),
					UserID: a.UserID,
				})
				return optimizedResult(optimize.List(env, summaryOptions))
			}),
		define("get_organizations_summary", "Get a summarized list of organizations (optimized for token usage) - shows essential fields only",
			func(ctx context.Context, c *call, a contactsSummaryArgs) Result {
				env := c.upstream.GetOrganizations(ctx, pipedrive.ListParams{
					Start:  a.Start,
					Limit:  clamp(a.Limit, summaryDefaultLimit, summaryMaxLimit),
					UserID: a.UserID,
				})
				return optimizedResult(optimize.List(env, summaryOptions))
			}),
		define("get_activities_summary", "Get a summarized list of activities (optimized for token usage) - shows essential fields only",
			func(ctx context.Context, c *call, a activitiesSummaryArgs) Result {
				env := c.upstream.GetActivities(ctx, pipedrive.ListParams{
					Start:  a.Start,
					Limit:  clamp(a.Limit, summaryDefaultLimit, summaryMaxLimit),
					UserID: a.UserID,
					Done:   a.Done,
				})
				return optimizedResult(optimize.List(env, summaryOptions))
			}),
		define("get_overview", "Get a high-level overview with key metrics and recent items (very token-efficient)",
			overview),
		define("search_summarized", "Search across all Pipedrive items with summarized results (token-optimized)",
			func(ctx context.Context, c *call, a searchSummarizedArgs) Result {
				env := c.upstream.SearchItems(ctx, a.Term, pipedrive.SearchParams{
					ItemTypes: a.ItemTypes,
					Limit:     clamp(a.Limit, searchSummaryDefaultLimit, searchSummaryMaxLimit),
				})
				return optimizedResult(optimize.Search(env, optimize.Options{
					MaxItems:        searchSummaryMaxItems,
					Summarize:       true,
					IncludeMetadata: true,
				}))
			}),
	}
}

func optimizedResult(r *optimize.Result) Result {
	return Result{Value: r, IsError: !r.Success}
}

// overviewSection is one block of get_overview output.
type overviewSection struct {
	Count         int    `json:"count"`
	MoreAvailable bool   `json:"more_available"`
	Items         []any  `json:"items"`
	Error         string `json:"error,omitempty"`
}

type overviewResult struct {
	Success          bool             `json:"success"`
	RecentDeals      *overviewSection `json:"recent_deals,omitempty"`
	RecentActivities *overviewSection `json:"recent_activities,omitempty"`
}

// overview fetches the newest deals and activities in one call. The result
// fails only when every requested section failed.
func overview(ctx context.Context, c *call, a overviewArgs) Result {
	res := &overviewResult{}
	requested, failed := 0, 0
	limit := overviewItems
	opts := optimize.Options{MaxItems: overviewItems, Summarize: true}

	if a.IncludeDeals == nil || *a.IncludeDeals {
		requested++
		env := c.upstream.GetDeals(ctx, pipedrive.ListParams{
			Limit:  &limit,
			UserID: a.UserID,
			Sort:   "update_time DESC",
		})
		res.RecentDeals = section(optimize.List(env, opts), moreAvailable(env.AdditionalData))
		if res.RecentDeals.Error != "" {
			failed++
		}
	}

	if a.IncludeActivities == nil || *a.IncludeActivities {
		requested++
		env := c.upstream.GetActivities(ctx, pipedrive.ListParams{
			Limit:  &limit,
			UserID: a.UserID,
		})
		res.RecentActivities = section(optimize.List(env, opts), moreAvailable(env.AdditionalData))
		if res.RecentActivities.Error != "" {
			failed++
		}
	}

	res.Success = requested == 0 || failed < requested
	return Result{Value: res, IsError: !res.Success}
}

func section(r *optimize.Result, more bool) *overviewSection {
	if !r.Success {
		msg := r.Error
		if r.ErrorInfo != "" {
			msg += ": " + r.ErrorInfo
		}
		return &overviewSection{Items: []any{}, Error: msg}
	}
	items, _ := r.Data.([]any)
	if items == nil {
		items = []any{}
	}
	return &overviewSection{Count: len(items), MoreAvailable: more, Items: items}
}

func moreAvailable(a *pipedrive.AdditionalData) bool {
	return a != nil && a.Pagination != nil && a.Pagination.MoreItemsInCollection
}

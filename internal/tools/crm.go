// ABOUTME: Pass-through CRM tools: one upstream call per tool, envelope returned as is
// ABOUTME: get_deals additionally carries the current date context

package tools

import (
	"context"

	"github.com/2389/pipedrive-gateway/internal/datectx"
	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

func crmTools() []tool {
	return []tool{
		define("get_deals", "Get a list of deals from Pipedrive",
			func(ctx context.Context, c *call, a getDealsArgs) Result {
				env := c.upstream.GetDeals(ctx, a.params())
				if env.Success {
					env.WithDateContext(datectx.At(c.now))
				}
				return envelopeResult(env)
			}),
		define("get_deal", "Get a specific deal by ID",
			func(ctx context.Context, c *call, a dealIDArgs) Result {
				return envelopeResult(c.upstream.GetDeal(ctx, int64(*a.ID)))
			}),
		define("search_deals", "Search for deals",
			func(ctx context.Context, c *call, a searchDealsArgs) Result {
				return envelopeResult(c.upstream.SearchDeals(ctx, a.Term, a.params()))
			}),

		define("get_persons", "Get a list of persons from Pipedrive",
			func(ctx context.Context, c *call, a getContactsArgs) Result {
				return envelopeResult(c.upstream.GetPersons(ctx, a.params()))
			}),
		define("get_person", "Get a specific person by ID",
			func(ctx context.Context, c *call, a personIDArgs) Result {
				return envelopeResult(c.upstream.GetPerson(ctx, int64(*a.ID)))
			}),
		define("search_persons", "Search for persons",
			func(ctx context.Context, c *call, a searchPersonsArgs) Result {
				return envelopeResult(c.upstream.SearchPersons(ctx, a.Term, a.params()))
			}),

		define("get_organizations", "Get a list of organizations from Pipedrive",
			func(ctx context.Context, c *call, a getContactsArgs) Result {
				return envelopeResult(c.upstream.GetOrganizations(ctx, a.params()))
			}),
		define("get_organization", "Get a specific organization by ID",
			func(ctx context.Context, c *call, a organizationIDArgs) Result {
				return envelopeResult(c.upstream.GetOrganization(ctx, int64(*a.ID)))
			}),
		define("search_organizations", "Search for organizations",
			func(ctx context.Context, c *call, a searchOrganizationsArgs) Result {
				return envelopeResult(c.upstream.SearchOrganizations(ctx, a.Term, a.params()))
			}),

		define("get_pipelines", "Get all pipelines",
			func(ctx context.Context, c *call, _ noArgs) Result {
				return envelopeResult(c.upstream.GetPipelines(ctx))
			}),
		define("get_pipeline", "Get a specific pipeline by ID",
			func(ctx context.Context, c *call, a pipelineIDArgs) Result {
				return envelopeResult(c.upstream.GetPipeline(ctx, int64(*a.ID)))
			}),
		define("get_stages", "Get pipeline stages",
			func(ctx context.Context, c *call, a getStagesArgs) Result {
				return envelopeResult(c.upstream.GetStages(ctx, a.PipelineID))
			}),
		define("get_stage", "Get a specific stage by ID",
			func(ctx context.Context, c *call, a stageIDArgs) Result {
				return envelopeResult(c.upstream.GetStage(ctx, int64(*a.ID)))
			}),

		define("get_activities", "Get a list of activities from Pipedrive",
			func(ctx context.Context, c *call, a getActivitiesArgs) Result {
				return envelopeResult(c.upstream.GetActivities(ctx, a.params()))
			}),
		define("get_activity", "Get a specific activity by ID",
			func(ctx context.Context, c *call, a activityIDArgs) Result {
				return envelopeResult(c.upstream.GetActivity(ctx, int64(*a.ID)))
			}),

		define("get_notes", "Get a list of notes from Pipedrive",
			func(ctx context.Context, c *call, a getNotesArgs) Result {
				return envelopeResult(c.upstream.GetNotes(ctx, a.params()))
			}),
		define("get_note", "Get a specific note by ID",
			func(ctx context.Context, c *call, a noteIDArgs) Result {
				return envelopeResult(c.upstream.GetNote(ctx, int64(*a.ID)))
			}),

		define("search_items", "Search across multiple item types in Pipedrive",
			func(ctx context.Context, c *call, a searchItemsArgs) Result {
				return envelopeResult(c.upstream.SearchItems(ctx, a.Term, a.params()))
			}),

		define("get_users", "Get all users (salespersons) from Pipedrive",
			func(ctx context.Context, c *call, a getUsersArgs) Result {
				return envelopeResult(c.upstream.GetUsers(ctx, pipedrive.ListParams{
					Start: orDefault(a.Start, 0),
					Limit: clamp(a.Limit, 100, pipedrive.MaxUsersLimit),
				}))
			}),
		define("get_user", "Get details of a specific user by ID",
			func(ctx context.Context, c *call, a userIDArgs) Result {
				return envelopeResult(c.upstream.GetUser(ctx, int64(*a.ID)))
			}),
		define("get_current_user", "Get details of the current authenticated user",
			func(ctx context.Context, c *call, _ noArgs) Result {
				return envelopeResult(c.upstream.GetCurrentUser(ctx))
			}),
	}
}

// orDefault returns v, or a pointer to def when v is nil.
func orDefault(v *int, def int) *int {
	if v != nil {
		return v
	}
	return &def
}

// clamp returns v capped at ceiling, or def when v is unset or not positive.
func clamp(v *int, def, ceiling int) *int {
	n := def
	if v != nil && *v > 0 {
		n = *v
	}
	n = min(n, ceiling)
	return &n
}

// ABOUTME: Typed argument structs for every tool; struct tags drive the advertised input schemas
// ABOUTME: Conversions into pipedrive query parameter types live next to each struct

package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

// flexibleID is a resource id that decodes from a JSON number or a numeric
// string. It reflects as an integer in input schemas.
type flexibleID int64

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("id %q is not an integer", s)
		}
		*id = flexibleID(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexibleID(n)
	return nil
}

type noArgs struct{}

type getDealsArgs struct {
	Start    *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit    *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 100, max: 500)"`
	Status   string `json:"status,omitempty" jsonschema:"enum=all_not_deleted,enum=open,enum=won,enum=lost,enum=deleted" jsonschema_description:"Filter by deal status"`
	FilterID *int64 `json:"filter_id,omitempty" jsonschema_description:"Predefined filter ID"`
	UserID   *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
	PersonID *int64 `json:"person_id,omitempty" jsonschema_description:"Filter by person ID"`
	OrgID    *int64 `json:"org_id,omitempty" jsonschema_description:"Filter by organization ID"`
}

func (a getDealsArgs) params() pipedrive.ListParams {
	return pipedrive.ListParams{
		Start:    a.Start,
		Limit:    a.Limit,
		Status:   a.Status,
		FilterID: a.FilterID,
		UserID:   a.UserID,
		PersonID: a.PersonID,
		OrgID:    a.OrgID,
	}
}

type dealIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Deal ID"`
}

type searchDealsArgs struct {
	Term       string `json:"term" jsonschema:"required" jsonschema_description:"Search term"`
	Fields     string `json:"fields,omitempty" jsonschema_description:"Comma-separated fields to search in"`
	ExactMatch *bool  `json:"exact_match,omitempty" jsonschema_description:"Use exact match"`
	PersonID   *int64 `json:"person_id,omitempty" jsonschema_description:"Filter by person ID"`
	OrgID      *int64 `json:"org_id,omitempty" jsonschema_description:"Filter by organization ID"`
	Start      *int   `json:"start,omitempty" jsonschema_description:"Pagination start"`
	Limit      *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return"`
}

func (a searchDealsArgs) params() pipedrive.SearchParams {
	return pipedrive.SearchParams{
		Fields:     a.Fields,
		ExactMatch: a.ExactMatch,
		PersonID:   a.PersonID,
		OrgID:      a.OrgID,
		Start:      a.Start,
		Limit:      a.Limit,
	}
}

// getContactsArgs serves both persons and organizations listings.
type getContactsArgs struct {
	Start     *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit     *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 100, max: 500)"`
	UserID    *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
	FilterID  *int64 `json:"filter_id,omitempty" jsonschema_description:"Predefined filter ID"`
	FirstChar string `json:"first_char,omitempty" jsonschema_description:"Filter by first letter of name"`
}

func (a getContactsArgs) params() pipedrive.ListParams {
	return pipedrive.ListParams{
		Start:     a.Start,
		Limit:     a.Limit,
		UserID:    a.UserID,
		FilterID:  a.FilterID,
		FirstChar: a.FirstChar,
	}
}

type personIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Person ID"`
}

type searchPersonsArgs struct {
	Term       string `json:"term" jsonschema:"required" jsonschema_description:"Search term"`
	Fields     string `json:"fields,omitempty" jsonschema_description:"Comma-separated fields to search in"`
	ExactMatch *bool  `json:"exact_match,omitempty" jsonschema_description:"Use exact match"`
	OrgID      *int64 `json:"org_id,omitempty" jsonschema_description:"Filter by organization ID"`
	Start      *int   `json:"start,omitempty" jsonschema_description:"Pagination start"`
	Limit      *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return"`
}

func (a searchPersonsArgs) params() pipedrive.SearchParams {
	return pipedrive.SearchParams{
		Fields:     a.Fields,
		ExactMatch: a.ExactMatch,
		OrgID:      a.OrgID,
		Start:      a.Start,
		Limit:      a.Limit,
	}
}

type organizationIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Organization ID"`
}

type searchOrganizationsArgs struct {
	Term       string `json:"term" jsonschema:"required" jsonschema_description:"Search term"`
	Fields     string `json:"fields,omitempty" jsonschema_description:"Comma-separated fields to search in"`
	ExactMatch *bool  `json:"exact_match,omitempty" jsonschema_description:"Use exact match"`
	Start      *int   `json:"start,omitempty" jsonschema_description:"Pagination start"`
	Limit      *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return"`
}

func (a searchOrganizationsArgs) params() pipedrive.SearchParams {
	return pipedrive.SearchParams{
		Fields:     a.Fields,
		ExactMatch: a.ExactMatch,
		Start:      a.Start,
		Limit:      a.Limit,
	}
}

type pipelineIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Pipeline ID"`
}

type getStagesArgs struct {
	PipelineID *int64 `json:"pipeline_id,omitempty" jsonschema_description:"Filter stages by pipeline ID"`
}

type stageIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Stage ID"`
}

type getActivitiesArgs struct {
	Start    *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit    *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 100, max: 500)"`
	UserID   *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
	FilterID *int64 `json:"filter_id,omitempty" jsonschema_description:"Predefined filter ID"`
	Type     string `json:"type,omitempty" jsonschema_description:"Filter by activity type"`
	Done     *int   `json:"done,omitempty" jsonschema:"enum=0,enum=1" jsonschema_description:"Filter by completion status (0: not done, 1: done)"`
}

func (a getActivitiesArgs) params() pipedrive.ListParams {
	return pipedrive.ListParams{
		Start:    a.Start,
		Limit:    a.Limit,
		UserID:   a.UserID,
		FilterID: a.FilterID,
		Type:     a.Type,
		Done:     a.Done,
	}
}

type activityIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Activity ID"`
}

type getNotesArgs struct {
	Start                    *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit                    *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 100, max: 500)"`
	UserID                   *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
	DealID                   *int64 `json:"deal_id,omitempty" jsonschema_description:"Filter by deal ID"`
	PersonID                 *int64 `json:"person_id,omitempty" jsonschema_description:"Filter by person ID"`
	OrgID                    *int64 `json:"org_id,omitempty" jsonschema_description:"Filter by organization ID"`
	PinnedToDealFlag         *int   `json:"pinned_to_deal_flag,omitempty" jsonschema:"enum=0,enum=1" jsonschema_description:"Filter by pinned to deal flag"`
	PinnedToPersonFlag       *int   `json:"pinned_to_person_flag,omitempty" jsonschema:"enum=0,enum=1" jsonschema_description:"Filter by pinned to person flag"`
	PinnedToOrganizationFlag *int   `json:"pinned_to_organization_flag,omitempty" jsonschema:"enum=0,enum=1" jsonschema_description:"Filter by pinned to organization flag"`
}

func (a getNotesArgs) params() pipedrive.ListParams {
	return pipedrive.ListParams{
		Start:                a.Start,
		Limit:                a.Limit,
		UserID:               a.UserID,
		DealID:               a.DealID,
		PersonID:             a.PersonID,
		OrgID:                a.OrgID,
		PinnedToDeal:         a.PinnedToDealFlag,
		PinnedToPerson:       a.PinnedToPersonFlag,
		PinnedToOrganization: a.PinnedToOrganizationFlag,
	}
}

type noteIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"Note ID"`
}

type searchItemsArgs struct {
	Term                  string `json:"term" jsonschema:"required" jsonschema_description:"Search term"`
	ItemTypes             string `json:"item_types,omitempty" jsonschema_description:"Comma-separated item types to search (deal, person, organization, product, lead, file)"`
	Fields                string `json:"fields,omitempty" jsonschema_description:"Comma-separated fields to search in"`
	SearchForRelatedItems *bool  `json:"search_for_related_items,omitempty" jsonschema_description:"Include related items in search"`
	ExactMatch            *bool  `json:"exact_match,omitempty" jsonschema_description:"Use exact match"`
	IncludeFields         string `json:"include_fields,omitempty" jsonschema_description:"Comma-separated fields to include in results"`
	Start                 *int   `json:"start,omitempty" jsonschema_description:"Pagination start"`
	Limit                 *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return"`
}

func (a searchItemsArgs) params() pipedrive.SearchParams {
	return pipedrive.SearchParams{
		ItemTypes:             a.ItemTypes,
		Fields:                a.Fields,
		SearchForRelatedItems: a.SearchForRelatedItems,
		ExactMatch:            a.ExactMatch,
		IncludeFields:         a.IncludeFields,
		Start:                 a.Start,
		Limit:                 a.Limit,
	}
}

type getUsersArgs struct {
	Start *int `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit *int `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 100, max: 500)"`
}

type userIDArgs struct {
	ID *flexibleID `json:"id" jsonschema:"required" jsonschema_description:"The ID of the user to retrieve"`
}

type dealsSummaryArgs struct {
	Start  *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit  *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 20, max: 50 for summary)"`
	Status string `json:"status,omitempty" jsonschema:"enum=all_not_deleted,enum=open,enum=won,enum=lost,enum=deleted" jsonschema_description:"Filter by deal status"`
	UserID *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
}

type contactsSummaryArgs struct {
	Start  *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit  *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 20, max: 50 for summary)"`
	UserID *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
}

type activitiesSummaryArgs struct {
	Start  *int   `json:"start,omitempty" jsonschema_description:"Pagination start (default: 0)"`
	Limit  *int   `json:"limit,omitempty" jsonschema_description:"Number of items to return (default: 20, max: 50 for summary)"`
	UserID *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by user ID"`
	Done   *int   `json:"done,omitempty" jsonschema:"enum=0,enum=1" jsonschema_description:"Filter by completion status"`
}

type overviewArgs struct {
	IncludeDeals      *bool  `json:"include_deals,omitempty" jsonschema:"default=true" jsonschema_description:"Include 5 most recent deals (default: true)"`
	IncludeActivities *bool  `json:"include_activities,omitempty" jsonschema:"default=true" jsonschema_description:"Include 5 most recent activities (default: true)"`
	UserID            *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by specific user (optional)"`
}

type searchSummarizedArgs struct {
	Term      string `json:"term" jsonschema:"required" jsonschema_description:"Search term"`
	ItemTypes string `json:"item_types,omitempty" jsonschema_description:"Comma-separated list of item types to search (deal,person,organization,product)"`
	Limit     *int   `json:"limit,omitempty" jsonschema_description:"Number of results to return (default: 10, max: 20 for summary)"`
}

type currentQuarterDealsArgs struct {
	Status string `json:"status,omitempty" jsonschema:"enum=all_not_deleted,enum=open,enum=won,enum=lost" jsonschema_description:"Filter by deal status (default: all_not_deleted)"`
	UserID *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by specific user/salesperson"`
	Limit  *int   `json:"limit,omitempty" jsonschema_description:"Max number of deals to return (default: 50)"`
}

type quarterSummaryArgs struct {
	Quarter string `json:"quarter,omitempty" jsonschema:"enum=Q1,enum=Q2,enum=Q3,enum=Q4,enum=current" jsonschema_description:"Which quarter to analyze (default: current)"`
	Year    *int   `json:"year,omitempty" jsonschema_description:"Year for the quarter (default: current year)"`
	UserID  *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by specific user (optional)"`
}

type quarterlyProgressArgs struct {
	UserID          *int64 `json:"user_id,omitempty" jsonschema_description:"Filter by specific user (optional)"`
	IncludeForecast *bool  `json:"include_forecast,omitempty" jsonschema:"default=true" jsonschema_description:"Include deal probability-based forecasting (default: true)"`
}

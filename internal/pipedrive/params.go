// ABOUTME: Query parameters for Pipedrive list and search endpoints
// ABOUTME: Only fields that are set are sent upstream

package pipedrive

import (
	"net/url"
	"strconv"
)

// ListParams filters list endpoints. Each endpoint honors the subset
// Pipedrive documents for it; unset fields are omitted.
type ListParams struct {
	Start    *int
	Limit    *int
	Status   string
	FilterID *int64
	UserID   *int64
	PersonID *int64
	OrgID    *int64
	DealID   *int64
	Sort     string

	FirstChar string
	Type      string
	Done      *int

	PinnedToDeal         *int
	PinnedToPerson       *int
	PinnedToOrganization *int
}

func (p ListParams) values() url.Values {
	q := url.Values{}
	setInt(q, "start", p.Start)
	setInt(q, "limit", p.Limit)
	setString(q, "status", p.Status)
	setInt64(q, "filter_id", p.FilterID)
	setInt64(q, "user_id", p.UserID)
	setInt64(q, "person_id", p.PersonID)
	setInt64(q, "org_id", p.OrgID)
	setInt64(q, "deal_id", p.DealID)
	setString(q, "sort", p.Sort)
	setString(q, "first_char", p.FirstChar)
	setString(q, "type", p.Type)
	setInt(q, "done", p.Done)
	setInt(q, "pinned_to_deal_flag", p.PinnedToDeal)
	setInt(q, "pinned_to_person_flag", p.PinnedToPerson)
	setInt(q, "pinned_to_organization_flag", p.PinnedToOrganization)
	return q
}

// SearchParams refines search endpoints.
type SearchParams struct {
	ItemTypes             string
	Fields                string
	IncludeFields         string
	ExactMatch            *bool
	SearchForRelatedItems *bool
	PersonID              *int64
	OrgID                 *int64
	Start                 *int
	Limit                 *int
}

func (p SearchParams) values(term string) url.Values {
	q := url.Values{}
	q.Set("term", term)
	setString(q, "item_types", p.ItemTypes)
	setString(q, "fields", p.Fields)
	setString(q, "include_fields", p.IncludeFields)
	setBool(q, "exact_match", p.ExactMatch)
	setBool(q, "search_for_related_items", p.SearchForRelatedItems)
	setInt64(q, "person_id", p.PersonID)
	setInt64(q, "org_id", p.OrgID)
	setInt(q, "start", p.Start)
	setInt(q, "limit", p.Limit)
	return q
}

func setString(q url.Values, key, v string) {
	if v != "" {
		q.Set(key, v)
	}
}

func setInt(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

func setInt64(q url.Values, key string, v *int64) {
	if v != nil {
		q.Set(key, strconv.FormatInt(*v, 10))
	}
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}

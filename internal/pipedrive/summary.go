// ABOUTME: Compact projections of each resource type used by the response optimizer
// ABOUTME: Keep ids, display fields and foreign keys; drop custom fields and contact history

package pipedrive

import "encoding/json"

// NoteContentLimit caps note content in summaries.
const NoteContentLimit = 500

// DealSummary is the compact form of a Deal.
type DealSummary struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title,omitempty"`
	Value      *float64 `json:"value,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Status     string   `json:"status,omitempty"`
	StageID    *Ref     `json:"stage_id,omitempty"`
	UserID     *Ref     `json:"user_id,omitempty"`
	PersonID   *Ref     `json:"person_id,omitempty"`
	OrgID      *Ref     `json:"org_id,omitempty"`
	AddTime    string   `json:"add_time,omitempty"`
	UpdateTime string   `json:"update_time,omitempty"`
}

func (d Deal) Summary() any {
	return DealSummary{
		ID:         d.ID,
		Title:      d.Title,
		Value:      d.Value,
		Currency:   d.Currency,
		Status:     d.Status,
		StageID:    d.StageID,
		UserID:     d.UserID,
		PersonID:   d.PersonID,
		OrgID:      d.OrgID,
		AddTime:    d.AddTime,
		UpdateTime: d.UpdateTime,
	}
}

// PersonSummary keeps only the first email and phone.
type PersonSummary struct {
	ID         int64  `json:"id"`
	Name       string `json:"name,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	OrgID      *Ref   `json:"org_id,omitempty"`
	OrgName    string `json:"org_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	OwnerID    *Ref   `json:"owner_id,omitempty"`
	AddTime    string `json:"add_time,omitempty"`
	UpdateTime string `json:"update_time,omitempty"`
}

func (p Person) Summary() any {
	return PersonSummary{
		ID:         p.ID,
		Name:       p.Name,
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		OrgID:      p.OrgID,
		OrgName:    p.OrgName,
		Email:      firstValue(p.Email),
		Phone:      firstValue(p.Phone),
		OwnerID:    p.OwnerID,
		AddTime:    p.AddTime,
		UpdateTime: p.UpdateTime,
	}
}

func firstValue(fields []ContactField) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0].Value
}

// OrganizationSummary is the compact form of an Organization.
type OrganizationSummary struct {
	ID               int64  `json:"id"`
	Name             string `json:"name,omitempty"`
	OwnerID          *Ref   `json:"owner_id,omitempty"`
	PeopleCount      *int   `json:"people_count,omitempty"`
	OpenDealsCount   *int   `json:"open_deals_count,omitempty"`
	ClosedDealsCount *int   `json:"closed_deals_count,omitempty"`
	AddTime          string `json:"add_time,omitempty"`
	UpdateTime       string `json:"update_time,omitempty"`
}

func (o Organization) Summary() any {
	return OrganizationSummary{
		ID:               o.ID,
		Name:             o.Name,
		OwnerID:          o.OwnerID,
		PeopleCount:      o.PeopleCount,
		OpenDealsCount:   o.OpenDealsCount,
		ClosedDealsCount: o.ClosedDealsCount,
		AddTime:          o.AddTime,
		UpdateTime:       o.UpdateTime,
	}
}

// ActivitySummary is the compact form of an Activity.
type ActivitySummary struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Done     *bool  `json:"done,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
	UserID   *Ref   `json:"user_id,omitempty"`
	DealID   *Ref   `json:"deal_id,omitempty"`
	PersonID *Ref   `json:"person_id,omitempty"`
	OrgID    *Ref   `json:"org_id,omitempty"`
	AddTime  string `json:"add_time,omitempty"`
}

func (a Activity) Summary() any {
	return ActivitySummary{
		ID:       a.ID,
		Type:     a.Type,
		Subject:  a.Subject,
		Done:     a.Done,
		DueDate:  a.DueDate,
		UserID:   a.UserID,
		DealID:   a.DealID,
		PersonID: a.PersonID,
		OrgID:    a.OrgID,
		AddTime:  a.AddTime,
	}
}

// NoteSummary truncates content to NoteContentLimit characters.
type NoteSummary struct {
	ID       int64  `json:"id"`
	Content  string `json:"content"`
	UserID   *Ref   `json:"user_id,omitempty"`
	DealID   *Ref   `json:"deal_id,omitempty"`
	PersonID *Ref   `json:"person_id,omitempty"`
	OrgID    *Ref   `json:"org_id,omitempty"`
	AddTime  string `json:"add_time,omitempty"`
}

func (n Note) Summary() any {
	content := n.Content
	if runes := []rune(content); len(runes) > NoteContentLimit {
		content = string(runes[:NoteContentLimit]) + "..."
	}
	return NoteSummary{
		ID:       n.ID,
		Content:  content,
		UserID:   n.UserID,
		DealID:   n.DealID,
		PersonID: n.PersonID,
		OrgID:    n.OrgID,
		AddTime:  n.AddTime,
	}
}

// UserSummary is the compact form of a User.
type UserSummary struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name,omitempty"`
	Email        string          `json:"email,omitempty"`
	ActiveFlag   *bool           `json:"active_flag,omitempty"`
	IsAdmin      json.RawMessage `json:"is_admin,omitempty"`
	RoleID       *Ref            `json:"role_id,omitempty"`
	TimezoneName string          `json:"timezone_name,omitempty"`
	CompanyID    *Ref            `json:"company_id,omitempty"`
	LastLogin    string          `json:"last_login,omitempty"`
}

func (u User) Summary() any {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		ActiveFlag:   u.ActiveFlag,
		IsAdmin:      u.IsAdmin,
		RoleID:       u.RoleID,
		TimezoneName: u.TimezoneName,
		CompanyID:    u.CompanyID,
		LastLogin:    u.LastLogin,
	}
}

// PipelineSummary is the compact form of a Pipeline.
type PipelineSummary struct {
	ID      int64  `json:"id"`
	Name    string `json:"name,omitempty"`
	OrderNr *int   `json:"order_nr,omitempty"`
	Active  *bool  `json:"active,omitempty"`
}

func (p Pipeline) Summary() any {
	return PipelineSummary{ID: p.ID, Name: p.Name, OrderNr: p.OrderNr, Active: p.Active}
}

// StageSummary is the compact form of a Stage.
type StageSummary struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name,omitempty"`
	OrderNr         *int     `json:"order_nr,omitempty"`
	PipelineID      *Ref     `json:"pipeline_id,omitempty"`
	DealProbability *float64 `json:"deal_probability,omitempty"`
}

func (s Stage) Summary() any {
	return StageSummary{
		ID:              s.ID,
		Name:            s.Name,
		OrderNr:         s.OrderNr,
		PipelineID:      s.PipelineID,
		DealProbability: s.DealProbability,
	}
}

// SearchResultSummary flattens a search hit.
type SearchResultSummary struct {
	ID          int64    `json:"id"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Name        string   `json:"name,omitempty"`
	Value       *float64 `json:"value,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Status      string   `json:"status,omitempty"`
	ResultScore *float64 `json:"result_score,omitempty"`
}

func (r SearchResult) Summary() any {
	return SearchResultSummary{
		ID:          r.Item.ID,
		Type:        r.Item.Type,
		Title:       r.Item.Title,
		Name:        r.Item.Name,
		Value:       r.Item.Value,
		Currency:    r.Item.Currency,
		Status:      r.Item.Status,
		ResultScore: r.ResultScore,
	}
}

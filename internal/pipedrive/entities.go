// ABOUTME: Pipedrive resource types: explicit core fields plus an ordered Extra map for everything else
// ABOUTME: Foreign keys use Ref because the API returns either a bare id or an expanded object

package pipedrive

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref is a foreign key. Pipedrive sends either a number or an object such as
// {"value": 7, "name": "..."}; the original JSON is kept and re-emitted as is.
type Ref struct {
	ID  int64
	raw json.RawMessage
}

// NewRef builds a Ref holding a bare id.
func NewRef(id int64) *Ref {
	raw, _ := json.Marshal(id)
	return &Ref{ID: id, raw: raw}
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	r.raw = append(r.raw[:0], data...)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return json.Unmarshal(data, &r.ID)
	}

	var obj struct {
		Value *int64 `json:"value"`
		ID    *int64 `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	switch {
	case obj.Value != nil:
		r.ID = *obj.Value
	case obj.ID != nil:
		r.ID = *obj.ID
	}
	return nil
}

func (r Ref) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(r.ID)
}

// RefID returns the id behind r, or 0 when r is nil.
func RefID(r *Ref) int64 {
	if r == nil {
		return 0
	}
	return r.ID
}

// ContactField is one entry of a person's email or phone list.
type ContactField struct {
	Value   string `json:"value"`
	Primary bool   `json:"primary"`
	Label   string `json:"label,omitempty"`
}

// Deal is a sales opportunity.
type Deal struct {
	ID                int64    `json:"id"`
	Title             string   `json:"title,omitempty"`
	Value             *float64 `json:"value,omitempty"`
	Currency          string   `json:"currency,omitempty"`
	Status            string   `json:"status,omitempty"`
	Probability       *float64 `json:"probability,omitempty"`
	StageID           *Ref     `json:"stage_id,omitempty"`
	PipelineID        *Ref     `json:"pipeline_id,omitempty"`
	UserID            *Ref     `json:"user_id,omitempty"`
	PersonID          *Ref     `json:"person_id,omitempty"`
	OrgID             *Ref     `json:"org_id,omitempty"`
	ExpectedCloseDate string   `json:"expected_close_date,omitempty"`
	AddTime           string   `json:"add_time,omitempty"`
	UpdateTime        string   `json:"update_time,omitempty"`
	WonTime           string   `json:"won_time,omitempty"`
	CloseTime         string   `json:"close_time,omitempty"`

	Extra *Extra `json:"-"`
}

// Person is a contact.
type Person struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name,omitempty"`
	FirstName  string         `json:"first_name,omitempty"`
	LastName   string         `json:"last_name,omitempty"`
	OrgID      *Ref           `json:"org_id,omitempty"`
	OrgName    string         `json:"org_name,omitempty"`
	Email      []ContactField `json:"email,omitempty"`
	Phone      []ContactField `json:"phone,omitempty"`
	OwnerID    *Ref           `json:"owner_id,omitempty"`
	AddTime    string         `json:"add_time,omitempty"`
	UpdateTime string         `json:"update_time,omitempty"`

	Extra *Extra `json:"-"`
}

// Organization is a company.
type Organization struct {
	ID               int64  `json:"id"`
	Name             string `json:"name,omitempty"`
	OwnerID          *Ref   `json:"owner_id,omitempty"`
	PeopleCount      *int   `json:"people_count,omitempty"`
	OpenDealsCount   *int   `json:"open_deals_count,omitempty"`
	ClosedDealsCount *int   `json:"closed_deals_count,omitempty"`
	Address          string `json:"address,omitempty"`
	AddTime          string `json:"add_time,omitempty"`
	UpdateTime       string `json:"update_time,omitempty"`

	Extra *Extra `json:"-"`
}

// Pipeline is an ordered set of stages deals move through.
type Pipeline struct {
	ID         int64  `json:"id"`
	Name       string `json:"name,omitempty"`
	URLTitle   string `json:"url_title,omitempty"`
	OrderNr    *int   `json:"order_nr,omitempty"`
	Active     *bool  `json:"active,omitempty"`
	AddTime    string `json:"add_time,omitempty"`
	UpdateTime string `json:"update_time,omitempty"`

	Extra *Extra `json:"-"`
}

// Stage is one step of a pipeline.
type Stage struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name,omitempty"`
	OrderNr         *int     `json:"order_nr,omitempty"`
	PipelineID      *Ref     `json:"pipeline_id,omitempty"`
	PipelineName    string   `json:"pipeline_name,omitempty"`
	DealProbability *float64 `json:"deal_probability,omitempty"`
	ActiveFlag      *bool    `json:"active_flag,omitempty"`

	Extra *Extra `json:"-"`
}

// Activity is a call, meeting, task or other scheduled item.
type Activity struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Done     *bool  `json:"done,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
	DueTime  string `json:"due_time,omitempty"`
	UserID   *Ref   `json:"user_id,omitempty"`
	DealID   *Ref   `json:"deal_id,omitempty"`
	PersonID *Ref   `json:"person_id,omitempty"`
	OrgID    *Ref   `json:"org_id,omitempty"`
	AddTime  string `json:"add_time,omitempty"`

	Extra *Extra `json:"-"`
}

// Note is free text attached to a deal, person or organization.
type Note struct {
	ID         int64  `json:"id"`
	Content    string `json:"content,omitempty"`
	UserID     *Ref   `json:"user_id,omitempty"`
	DealID     *Ref   `json:"deal_id,omitempty"`
	PersonID   *Ref   `json:"person_id,omitempty"`
	OrgID      *Ref   `json:"org_id,omitempty"`
	AddTime    string `json:"add_time,omitempty"`
	UpdateTime string `json:"update_time,omitempty"`

	Extra *Extra `json:"-"`
}

// User is a member of the Pipedrive company account.
type User struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name,omitempty"`
	Email        string          `json:"email,omitempty"`
	ActiveFlag   *bool           `json:"active_flag,omitempty"`
	IsAdmin      json.RawMessage `json:"is_admin,omitempty"`
	RoleID       *Ref            `json:"role_id,omitempty"`
	TimezoneName string          `json:"timezone_name,omitempty"`
	CompanyID    *Ref            `json:"company_id,omitempty"`
	LastLogin    string          `json:"last_login,omitempty"`

	Extra *Extra `json:"-"`
}

// SearchItem is the matched entity inside a search result.
type SearchItem struct {
	ID       int64    `json:"id"`
	Type     string   `json:"type,omitempty"`
	Title    string   `json:"title,omitempty"`
	Name     string   `json:"name,omitempty"`
	Value    *float64 `json:"value,omitempty"`
	Currency string   `json:"currency,omitempty"`
	Status   string   `json:"status,omitempty"`

	Extra *Extra `json:"-"`
}

// SearchResult is one scored search hit.
type SearchResult struct {
	ResultScore *float64   `json:"result_score,omitempty"`
	Item        SearchItem `json:"item"`
}

// SearchResults holds search hits. The search endpoints wrap them as
// {"items": [...]}; a bare array is accepted too. The original shape is kept
// when re-encoding.
type SearchResults struct {
	Items []SearchResult

	wrapped bool
}

func (s *SearchResults) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		s.wrapped = false
		return json.Unmarshal(data, &s.Items)
	}

	var body struct {
		Items []SearchResult `json:"items"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return fmt.Errorf("decoding search results: %w", err)
	}
	s.Items = body.Items
	s.wrapped = true
	return nil
}

func (s SearchResults) MarshalJSON() ([]byte, error) {
	items := s.Items
	if items == nil {
		items = []SearchResult{}
	}
	if !s.wrapped {
		return json.Marshal(items)
	}
	return json.Marshal(struct {
		Items []SearchResult `json:"items"`
	}{items})
}

type (
	dealAlias         Deal
	personAlias       Person
	organizationAlias Organization
	pipelineAlias     Pipeline
	stageAlias        Stage
	activityAlias     Activity
	noteAlias         Note
	userAlias         User
	searchItemAlias   SearchItem
)

var (
	dealCore         = coreFields(Deal{})
	personCore       = coreFields(Person{})
	organizationCore = coreFields(Organization{})
	pipelineCore     = coreFields(Pipeline{})
	stageCore        = coreFields(Stage{})
	activityCore     = coreFields(Activity{})
	noteCore         = coreFields(Note{})
	userCore         = coreFields(User{})
	searchItemCore   = coreFields(SearchItem{})
)

func (d *Deal) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, dealCore, (*dealAlias)(d))
	if err != nil {
		return fmt.Errorf("decoding deal: %w", err)
	}
	d.Extra = extra
	return nil
}

func (d Deal) MarshalJSON() ([]byte, error) { return encodeWithExtra(dealAlias(d), d.Extra) }

// Attr returns an upstream attribute that has no core field.
func (d *Deal) Attr(key string) (json.RawMessage, bool) { return attr(d.Extra, key) }

func (p *Person) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, personCore, (*personAlias)(p))
	if err != nil {
		return fmt.Errorf("decoding person: %w", err)
	}
	p.Extra = extra
	return nil
}

func (p Person) MarshalJSON() ([]byte, error) { return encodeWithExtra(personAlias(p), p.Extra) }

func (o *Organization) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, organizationCore, (*organizationAlias)(o))
	if err != nil {
		return fmt.Errorf("decoding organization: %w", err)
	}
	o.Extra = extra
	return nil
}

func (o Organization) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(organizationAlias(o), o.Extra)
}

func (p *Pipeline) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, pipelineCore, (*pipelineAlias)(p))
	if err != nil {
		return fmt.Errorf("decoding pipeline: %w", err)
	}
	p.Extra = extra
	return nil
}

func (p Pipeline) MarshalJSON() ([]byte, error) { return encodeWithExtra(pipelineAlias(p), p.Extra) }

func (s *Stage) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, stageCore, (*stageAlias)(s))
	if err != nil {
		return fmt.Errorf("decoding stage: %w", err)
	}
	s.Extra = extra
	return nil
}

func (s Stage) MarshalJSON() ([]byte, error) { return encodeWithExtra(stageAlias(s), s.Extra) }

func (a *Activity) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, activityCore, (*activityAlias)(a))
	if err != nil {
		return fmt.Errorf("decoding activity: %w", err)
	}
	a.Extra = extra
	return nil
}

func (a Activity) MarshalJSON() ([]byte, error) { return encodeWithExtra(activityAlias(a), a.Extra) }

func (n *Note) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, noteCore, (*noteAlias)(n))
	if err != nil {
		return fmt.Errorf("decoding note: %w", err)
	}
	n.Extra = extra
	return nil
}

func (n Note) MarshalJSON() ([]byte, error) { return encodeWithExtra(noteAlias(n), n.Extra) }

func (u *User) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, userCore, (*userAlias)(u))
	if err != nil {
		return fmt.Errorf("decoding user: %w", err)
	}
	u.Extra = extra
	return nil
}

func (u User) MarshalJSON() ([]byte, error) { return encodeWithExtra(userAlias(u), u.Extra) }

func (s *SearchItem) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, searchItemCore, (*searchItemAlias)(s))
	if err != nil {
		return fmt.Errorf("decoding search item: %w", err)
	}
	s.Extra = extra
	return nil
}

func (s SearchItem) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(searchItemAlias(s), s.Extra)
}

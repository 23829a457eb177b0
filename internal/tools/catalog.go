// ABOUTME: Tool catalog: descriptors for tools/list and typed dispatch for tools/call
// ABOUTME: Arguments are decoded into per-tool structs and checked against the reflected schema

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

// ErrUnknownTool is returned by Call for names outside the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// Upstream is the Pipedrive API surface the tools use. *pipedrive.Client
// implements it.
type Upstream interface {
	GetDeals(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.Deal]
	GetDeal(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Deal]
	SearchDeals(ctx context.Context, term string, p pipedrive.SearchParams) *pipedrive.Envelope[*pipedrive.SearchResults]
	GetPersons(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.Person]
	GetPerson(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Person]
	SearchPersons(ctx context.Context, term string, p pipedrive.SearchParams) *pipedrive.Envelope[*pipedrive.SearchResults]
	GetOrganizations(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.Organization]
	GetOrganization(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Organization]
	SearchOrganizations(ctx context.Context, term string, p pipedrive.SearchParams) *pipedrive.Envelope[*pipedrive.SearchResults]
	GetPipelines(ctx context.Context) *pipedrive.Envelope[[]pipedrive.Pipeline]
	GetPipeline(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Pipeline]
	GetStages(ctx context.Context, pipelineID *int64) *pipedrive.Envelope[[]pipedrive.Stage]
	GetStage(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Stage]
	GetActivities(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.Activity]
	GetActivity(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Activity]
	GetNotes(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.Note]
	GetNote(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.Note]
	SearchItems(ctx context.Context, term string, p pipedrive.SearchParams) *pipedrive.Envelope[*pipedrive.SearchResults]
	GetUsers(ctx context.Context, p pipedrive.ListParams) *pipedrive.Envelope[[]pipedrive.User]
	GetUser(ctx context.Context, id int64) *pipedrive.Envelope[*pipedrive.User]
	GetCurrentUser(ctx context.Context) *pipedrive.Envelope[*pipedrive.User]
}

var _ Upstream = (*pipedrive.Client)(nil)

// Descriptor is a tool as advertised by tools/list.
type Descriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Result is a tool's payload. IsError marks an upstream failure reported
// in-band.
type Result struct {
	Value   any
	IsError bool
}

// ParamError reports arguments that failed decoding or a missing required
// argument.
type ParamError struct {
	Tool  string
	Field string // set when a required argument is missing
	Err   error  // set when decoding failed
}

func (e *ParamError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("Missing required %q parameter for %s", e.Field, e.Tool)
	}
	return fmt.Sprintf("Invalid arguments for %s: %v", e.Tool, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// call carries per-invocation dependencies into a handler.
type call struct {
	upstream Upstream
	now      time.Time
}

type tool struct {
	desc   Descriptor
	invoke func(ctx context.Context, c *call, raw json.RawMessage) (Result, error)
}

// define registers a tool whose arguments decode into A.
func define[A any](name, description string, fn func(ctx context.Context, c *call, args A) Result) tool {
	schema := reflectInputSchema[A]()
	return tool{
		desc: Descriptor{Name: name, Description: description, InputSchema: schema},
		invoke: func(ctx context.Context, c *call, raw json.RawMessage) (Result, error) {
			var args A
			if len(raw) > 0 && string(raw) != "null" {
				if err := json.Unmarshal(raw, &args); err != nil {
					return Result{}, &ParamError{Tool: name, Err: err}
				}
			}
			if field := missingRequired(&args, schema.Required); field != "" {
				return Result{}, &ParamError{Tool: name, Field: field}
			}
			return fn(ctx, c, args), nil
		},
	}
}

// Catalog is the immutable set of tools shared by all principals.
type Catalog struct {
	tools  []tool
	byName map[string]int
	now    func() time.Time
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock overrides the time source used by date-aware tools.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// NewCatalog builds the full tool catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}

	c.tools = append(c.tools, crmTools()...)
	c.tools = append(c.tools, summaryTools()...)
	c.tools = append(c.tools, quarterTools()...)

	c.byName = make(map[string]int, len(c.tools))
	for i, t := range c.tools {
		if _, dup := c.byName[t.desc.Name]; dup {
			panic("duplicate tool " + t.desc.Name)
		}
		c.byName[t.desc.Name] = i
	}
	return c
}

// Descriptors lists every tool in catalog order.
func (c *Catalog) Descriptors() []Descriptor {
	out := make([]Descriptor, len(c.tools))
	for i, t := range c.tools {
		out[i] = t.desc
	}
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.tools)
}

// Has reports whether name is in the catalog.
func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Call validates raw arguments and runs the named tool against upstream.
// Unknown names wrap ErrUnknownTool; argument problems are *ParamError. A
// panic inside the tool is returned as an error.
func (c *Catalog) Call(ctx context.Context, name string, upstream Upstream, raw json.RawMessage) (res Result, err error) {
	i, ok := c.byName[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()

	return c.tools[i].invoke(ctx, &call{upstream: upstream, now: c.now()}, raw)
}

func envelopeResult[T any](env *pipedrive.Envelope[T]) Result {
	return Result{Value: env, IsError: !env.Success}
}

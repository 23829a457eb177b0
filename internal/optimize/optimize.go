// ABOUTME: Reshapes Pipedrive envelopes to fit a language model's token budget
// ABOUTME: Projects items to compact summaries, truncates long lists and annotates what was done

package optimize

import (
	"encoding/json"
	"fmt"

	"github.com/2389/pipedrive-gateway/internal/pipedrive"
)

// DefaultMaxItems is used when Options.MaxItems is not positive.
const DefaultMaxItems = 10

const summarizedReason = "Removed heavy fields to reduce token usage"

// Summarizer is implemented by every resource type with a compact projection.
type Summarizer interface {
	Summary() any
}

// Options controls one optimization pass.
type Options struct {
	MaxItems        int
	Summarize       bool
	IncludeMetadata bool // copy additional_data (pagination, date context) to the result
}

// Meta describes the optimization applied to a Result.
type Meta struct {
	TotalCount          int    `json:"total_count"`
	ShowingFirst        int    `json:"showing_first,omitempty"`
	Truncated           bool   `json:"truncated,omitempty"`
	OptimizationApplied bool   `json:"optimization_applied"`
	OptimizationReason  string `json:"optimization_reason,omitempty"`
	FullDataAvailable   bool   `json:"full_data_available,omitempty"`
}

// Result is an optimized envelope.
type Result struct {
	Success        bool                      `json:"success"`
	Data           any                       `json:"data,omitempty"`
	Error          string                    `json:"error,omitempty"`
	ErrorInfo      string                    `json:"error_info,omitempty"`
	Meta           *Meta                     `json:"meta,omitempty"`
	AdditionalData *pipedrive.AdditionalData `json:"additional_data,omitempty"`
	RelatedObjects json.RawMessage           `json:"related_objects,omitempty"`
}

// List optimizes a list envelope.
func List[T Summarizer](env *pipedrive.Envelope[[]T], opts Options) *Result {
	if env == nil {
		return &Result{Success: false, Error: "empty response"}
	}
	if !env.Success {
		return passthrough(env)
	}
	return optimize(env.Data, true, env.AdditionalData, opts)
}

// Single optimizes an envelope carrying one entity. The result's data stays
// a single object.
func Single[T Summarizer](env *pipedrive.Envelope[*T], opts Options) *Result {
	if env == nil {
		return &Result{Success: false, Error: "empty response"}
	}
	if !env.Success {
		return passthrough(env)
	}

	var items []T
	if env.Data != nil {
		items = []T{*env.Data}
	}
	return optimize(items, false, env.AdditionalData, opts)
}

// Search optimizes a search envelope.
func Search(env *pipedrive.Envelope[*pipedrive.SearchResults], opts Options) *Result {
	if env == nil {
		return &Result{Success: false, Error: "empty response"}
	}
	if !env.Success {
		return passthrough(env)
	}

	var items []pipedrive.SearchResult
	if env.Data != nil {
		items = env.Data.Items
	}
	return optimize(items, true, env.AdditionalData, opts)
}

func passthrough[T any](env *pipedrive.Envelope[T]) *Result {
	return &Result{
		Success:        env.Success,
		Data:           env.Data,
		Error:          env.Error,
		ErrorInfo:      env.ErrorInfo,
		AdditionalData: env.AdditionalData,
		RelatedObjects: env.RelatedObjects,
	}
}

func optimize[T Summarizer](items []T, isList bool, additional *pipedrive.AdditionalData, opts Options) *Result {
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	projected := make([]any, len(items))
	for i, item := range items {
		if opts.Summarize {
			projected[i] = item.Summary()
		} else {
			projected[i] = item
		}
	}

	res := &Result{Success: true}
	if opts.IncludeMetadata {
		res.AdditionalData = additional
	}

	if len(projected) > maxItems {
		res.Data = projected[:maxItems]
		res.Meta = &Meta{
			TotalCount:          len(projected),
			ShowingFirst:        maxItems,
			Truncated:           true,
			OptimizationApplied: true,
			OptimizationReason:  fmt.Sprintf("Showing first %d items to stay within token limits", maxItems),
			FullDataAvailable:   true,
		}
		return res
	}

	switch {
	case isList:
		res.Data = projected
	case len(projected) == 1:
		res.Data = projected[0]
	}
	res.Meta = &Meta{
		TotalCount:          len(projected),
		OptimizationApplied: opts.Summarize,
	}
	if opts.Summarize {
		res.Meta.OptimizationReason = summarizedReason
	}
	return res
}

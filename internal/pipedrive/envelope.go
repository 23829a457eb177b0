// ABOUTME: Pipedrive response envelope shared by every endpoint
// ABOUTME: Failures are represented in-band with success=false, never as Go errors

package pipedrive

import (
	"encoding/json"
	"fmt"

	"github.com/2389/pipedrive-gateway/internal/datectx"
)

// Envelope is the {success, data, error, additional_data} shape Pipedrive
// wraps every response in.
type Envelope[T any] struct {
	Success        bool            `json:"success"`
	Data           T               `json:"data,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorInfo      string          `json:"error_info,omitempty"`
	AdditionalData *AdditionalData `json:"additional_data,omitempty"`
	RelatedObjects json.RawMessage `json:"related_objects,omitempty"`
}

// Pagination is Pipedrive's offset cursor.
type Pagination struct {
	Start                 int  `json:"start"`
	Limit                 int  `json:"limit"`
	MoreItemsInCollection bool `json:"more_items_in_collection"`
	NextStart             *int `json:"next_start,omitempty"`
}

// AdditionalData carries pagination, the gateway's date context and any
// other metadata the endpoint returned.
type AdditionalData struct {
	Pagination  *Pagination      `json:"pagination,omitempty"`
	DateContext *datectx.Context `json:"date_context,omitempty"`

	Extra *Extra `json:"-"`
}

type additionalDataAlias AdditionalData

var additionalDataCore = coreFields(AdditionalData{})

func (a *AdditionalData) UnmarshalJSON(data []byte) error {
	extra, err := decodeWithExtra(data, additionalDataCore, (*additionalDataAlias)(a))
	if err != nil {
		return fmt.Errorf("decoding additional_data: %w", err)
	}
	a.Extra = extra
	return nil
}

func (a AdditionalData) MarshalJSON() ([]byte, error) {
	return encodeWithExtra(additionalDataAlias(a), a.Extra)
}

// Failure builds an unsuccessful envelope.
func Failure[T any](message, info string) *Envelope[T] {
	return &Envelope[T]{Success: false, Error: message, ErrorInfo: info}
}

// WithDateContext attaches ctx under additional_data.date_context, creating
// additional_data when absent.
func (e *Envelope[T]) WithDateContext(ctx datectx.Context) *Envelope[T] {
	if e.AdditionalData == nil {
		e.AdditionalData = &AdditionalData{}
	}
	e.AdditionalData.DateContext = &ctx
	return e
}

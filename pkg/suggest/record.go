package suggest

import (
	"encoding/json"
	"errors"
)

var (
	// ErrSourceUnavailable is returned when the lookup could not reach the backend
	// or the backend answered with a non-2xx status.
	ErrSourceUnavailable = errors.New("suggestion source unavailable")

	// ErrMalformedRecord is returned when the response body is not the expected
	// shape or any item lacks the required name field. The whole response fails.
	ErrMalformedRecord = errors.New("malformed suggestion record")

	// ErrStaleResponse marks a response that arrived after a newer fragment
	// superseded it. It is never surfaced to the consumer.
	ErrStaleResponse = errors.New("stale suggestion response")

	// ErrNoPrefetch is returned by Prefetch when no prefetch URL is configured.
	ErrNoPrefetch = errors.New("prefetch not configured")

	// ErrNoSelection is returned by Control.Select for an index outside the displayed list.
	ErrNoSelection = errors.New("no suggestion at index")
)

// RawItem is one entry of a backend response.
// ID holds the raw JSON text of the id field and is nil when the backend sent none.
type RawItem struct {
	Name string
	ID   json.RawMessage
}

// Record is a normalized suggestion: the text a user sees and selects,
// plus the backend's opaque id when it supplied one.
type Record struct {
	Value string          `json:"value"`
	ID    json.RawMessage `json:"id,omitempty"`
}

// HasID reports whether the backend supplied an id for this record.
func (r Record) HasID() bool {
	return len(r.ID) > 0
}

// IDValue decodes the opaque id into a plain Go value (float64, string, map...).
// Returns nil when the record has no id.
func (r Record) IDValue() any {
	if !r.HasID() {
		return nil
	}
	var v any
	if err := json.Unmarshal(r.ID, &v); err != nil {
		return nil
	}
	return v
}

// MapFunc turns a raw backend item into a Record.
type MapFunc func(RawItem) Record

// DefaultMap maps {name, id} onto {value, id}.
func DefaultMap(item RawItem) Record {
	return Record{Value: item.Name, ID: item.ID}
}

// MapValueOnly drops the id, for deployments whose consumer only needs display text.
func MapValueOnly(item RawItem) Record {
	return Record{Value: item.Name}
}

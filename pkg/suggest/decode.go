package suggest

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Decode extracts raw items from a backend response body.
//
// The item list is read from resultsPath (a gjson path, "results" by default).
// A body whose top level is already an array is accepted as the list itself.
// Every item must carry a string under nameKey; the first one that does not
// fails the whole response with ErrMalformedRecord. A missing or null idKey
// leaves RawItem.ID nil.
func Decode(body []byte, resultsPath, nameKey, idKey string) ([]RawItem, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrMalformedRecord)
	}

	list := gjson.ParseBytes(body)
	if !list.IsArray() && resultsPath != "" {
		list = list.Get(resultsPath)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("%w: no result list at %q", ErrMalformedRecord, resultsPath)
	}

	entries := list.Array()
	items := make([]RawItem, 0, len(entries))
	for i, entry := range entries {
		name := entry.Get(nameKey)
		if name.Type != gjson.String {
			return nil, fmt.Errorf("%w: item %d has no string %q", ErrMalformedRecord, i, nameKey)
		}

		item := RawItem{Name: name.String()}
		if id := entry.Get(idKey); id.Exists() && id.Type != gjson.Null {
			item.ID = json.RawMessage(id.Raw)
		}
		items = append(items, item)
	}
	return items, nil
}

// MapItems applies fn to every item, keeping source order.
func MapItems(items []RawItem, fn MapFunc) []Record {
	if fn == nil {
		fn = DefaultMap
	}
	records := make([]Record, len(items))
	for i, item := range items {
		records[i] = fn(item)
	}
	return records
}

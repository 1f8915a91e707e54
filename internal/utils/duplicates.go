package utils

import (
	"strings"
)

// SuggestionFilter drops values that were already seen, ignoring case.
// Not safe for concurrent use; create one per render.
type SuggestionFilter struct {
	seen map[string]bool
}

// NewSuggestionFilter creates an empty filter sized for n values.
func NewSuggestionFilter(n int) *SuggestionFilter {
	return &SuggestionFilter{seen: make(map[string]bool, n)}
}

// ShouldInclude returns true the first time a value is offered and false after that.
func (f *SuggestionFilter) ShouldInclude(value string) bool {
	key := strings.ToLower(value)
	if f.seen[key] {
		return false
	}
	f.seen[key] = true
	return true
}

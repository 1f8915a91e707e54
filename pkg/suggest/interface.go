// Package suggest bridges a remote or prefetched suggestion source to a suggestion-list control.
//
// A Source knows how to ask a backend for candidates and normalize its JSON
// into Records. A Control is the consumer: it gates short fragments, runs one
// asynchronous lookup per keystroke, discards late responses, merges local
// prefetch matches with remote ones and never shows more than its limit.
//
// Matching and ranking are the backend's business. The only ordering rules
// applied here are "source order is kept" and "local matches come first".
package suggest

import "context"

// Lookup is the adapter contract a Control drives.
type Lookup interface {
	// Fetch returns the records for fragment in source order.
	// Fragments under the minimum length return nil without a lookup.
	Fetch(ctx context.Context, fragment string) ([]Record, error)

	// Prefetch loads the candidate set used before any remote round trip completes.
	Prefetch(ctx context.Context) ([]Record, error)

	// HasRemote reports whether Fetch talks to a backend at all.
	HasRemote() bool

	// HasPrefetch reports whether Prefetch is configured.
	HasPrefetch() bool
}

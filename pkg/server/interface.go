/*
Package server implements msgpack IPC for suggestion lookups.

A host (editor plugin, desktop search box, another process) writes msgpack
maps to stdin and reads msgpack maps from stdout. Each request carries an ID
that is echoed in the response.

# IPC

A fragment request mirrors one keystroke:

	{"id": "req_001", "p": "cal"}

The server answers once the lookup for that fragment completes:

	{"id": "req_001", "p": "cal", "s": [{"v": "California", "i": 5, "r": 1}], "c": 1, "t": 1450}

Staleness is keyed by fragment: a lookup whose fragment is no longer the
latest one sent gets no response at all. Typing "ca", "cal", "ca" answers
the first "ca" too if its lookup lands after the second "ca" was sent.
Fragments shorter than the configured minimum are answered immediately
with an empty list.

Selecting from the displayed list:

	{"id": "sel_001", "sel": 0}
	{"id": "sel_001", "v": "California", "i": 5}

Health:

	{"id": "h1", "cmd": "health"}
	{"id": "h1", "status": "ok", "prefetched": 120}

Errors use {"id", "e", "c"} with HTTP-like codes.
*/
package server

// Request is any message read from the host.
type Request struct {
	ID       string  `msgpack:"id"`
	Fragment *string `msgpack:"p,omitempty"`
	Select   *int    `msgpack:"sel,omitempty"`
	Command  string  `msgpack:"cmd,omitempty"`
}

// SuggestionMsg is one displayed suggestion.
type SuggestionMsg struct {
	Value string `msgpack:"v"`
	ID    any    `msgpack:"i,omitempty"`
	Rank  uint16 `msgpack:"r"`
}

// CompletionResponse is the rendered list for a fragment.
type CompletionResponse struct {
	ID          string          `msgpack:"id"`
	Fragment    string          `msgpack:"p"`
	Suggestions []SuggestionMsg `msgpack:"s"`
	Count       int             `msgpack:"c"`
	TimeTaken   int64           `msgpack:"t"` // microseconds
}

// SelectResponse carries the chosen record back to the host.
type SelectResponse struct {
	ID       string `msgpack:"id"`
	Value    string `msgpack:"v"`
	RecordID any    `msgpack:"i,omitempty"`
}

// StatusResponse answers "ready" on start and health commands.
type StatusResponse struct {
	ID         string `msgpack:"id,omitempty"`
	Status     string `msgpack:"status"`
	Prefetched int    `msgpack:"prefetched"`
}

// ErrorResponse holds basic error information
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

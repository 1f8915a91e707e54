package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/bastiangx/typeahead/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles msgpack IPC for one suggestion control.
type Server struct {
	control *suggest.Control
	dec     *msgpack.Decoder
	enc     *msgpack.Encoder
	mu      sync.Mutex // guards enc; renders arrive from lookup goroutines
	log     *log.Logger
}

// NewServer creates an IPC server reading requests from r and writing responses to w.
func NewServer(control *suggest.Control, r io.Reader, w io.Writer, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		control: control,
		dec:     msgpack.NewDecoder(r),
		enc:     msgpack.NewEncoder(w),
		log:     logger,
	}
}

// Start announces readiness and serves requests until the input closes.
// Lookups still in flight at that point are awaited before returning.
func (s *Server) Start(ctx context.Context) error {
	s.log.Debug("Starting IPC server")
	s.send(StatusResponse{Status: "ready", Prefetched: s.control.Prefetched()})

	defer s.control.Wait()
	for {
		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Errorf("Decoding request: %v", err)
			s.send(ErrorResponse{Error: "invalid msgpack request", Code: 400})
			return err
		}
		s.handleRequest(ctx, req)
	}
}

func (s *Server) handleRequest(ctx context.Context, req Request) {
	switch {
	case req.Command == "health":
		s.send(StatusResponse{ID: req.ID, Status: "ok", Prefetched: s.control.Prefetched()})
	case req.Command != "":
		s.send(ErrorResponse{ID: req.ID, Error: "unknown command: " + req.Command, Code: 400})
	case req.Select != nil:
		s.handleSelect(req.ID, *req.Select)
	case req.Fragment != nil:
		s.handleFragment(ctx, req.ID, *req.Fragment)
	default:
		s.send(ErrorResponse{ID: req.ID, Error: "missing 'p' or 'sel'", Code: 400})
	}
}

func (s *Server) handleFragment(ctx context.Context, id, fragment string) {
	start := time.Now()
	s.control.Update(ctx, fragment, func(r suggest.Render) {
		if r.Pending {
			return
		}
		s.send(completionResponse(id, r, time.Since(start)))
	})
}

func (s *Server) handleSelect(id string, index int) {
	rec, err := s.control.Select(index)
	if err != nil {
		s.log.Debugf("Select %d: %v", index, err)
		s.send(ErrorResponse{ID: id, Error: err.Error(), Code: 404})
		return
	}
	s.send(SelectResponse{ID: id, Value: rec.Value, RecordID: rec.IDValue()})
}

// completionResponse ranks suggestions by position, 1 for the first.
func completionResponse(id string, r suggest.Render, took time.Duration) CompletionResponse {
	msgs := make([]SuggestionMsg, len(r.Suggestions))
	for i, rec := range r.Suggestions {
		msgs[i] = SuggestionMsg{Value: rec.Value, ID: rec.IDValue(), Rank: uint16(i + 1)}
	}
	return CompletionResponse{
		ID:          id,
		Fragment:    r.Fragment,
		Suggestions: msgs,
		Count:       len(msgs),
		TimeTaken:   took.Microseconds(),
	}
}

func (s *Server) send(v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.Errorf("Encoding response: %v", err)
	}
}

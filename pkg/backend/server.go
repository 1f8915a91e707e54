package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/bastiangx/typeahead/internal/metrics"
	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// UserHeader names the caller. Prefetch serves their entities, remote queries everyone else's.
const UserHeader = "X-User"

// Result is one item of a response body.
type Result struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
	Kind string `json:"kind"`
}

// Response is the body of the typeahead endpoints.
type Response struct {
	Results []Result `json:"results"`
}

// Hit is one firm or company of a grouped search.
type Hit struct {
	Name string `json:"name"`
	ID   int    `json:"id"`
	Tier string `json:"tier,omitempty"`
}

// GroupedResponse is the body of GET /search.
type GroupedResponse struct {
	VC        []Hit `json:"vc"`
	AI        []Hit `json:"ai"`
	SU        []Hit `json:"su"`
	Companies []Hit `json:"companies"`
}

// Server exposes a Directory over HTTP.
type Server struct {
	dir        *Directory
	maxResults int
	log        *log.Logger
}

// NewServer creates a backend. maxResults <= 0 returns every match.
func NewServer(dir *Directory, maxResults int, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{dir: dir, maxResults: maxResults, log: logger}
}

// Router returns the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())
	r.Use(s.requestLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "entities": s.dir.Len()})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/search", s.handleSearch)
	r.Get("/search/_typeahead", s.handleQueryParam)
	r.Get("/search/_typeahead/prefetch", s.handlePrefetch)
	r.Get("/search/_typeahead/{query}", s.handleQueryPath)
	return r
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Infof("Search backend listening on %s (%d entities)", addr, s.dir.Len())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	s.respond(w, s.dir.Owned(r.Header.Get(UserHeader)))
}

func (s *Server) handleQueryParam(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'query' parameter"})
		return
	}
	s.respond(w, s.dir.Search(query, r.Header.Get(UserHeader)))
}

// handleQueryPath reads the fragment from the last path segment. chi matches
// on RawPath when the request has one, and only then is the param still escaped.
func (s *Server) handleQueryPath(w http.ResponseWriter, r *http.Request) {
	query := chi.URLParam(r, "query")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(query)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed query"})
			return
		}
		query = unescaped
	}
	s.respond(w, s.dir.Search(query, r.Header.Get(UserHeader)))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'query' parameter"})
		return
	}
	g := s.dir.SearchGrouped(query)
	writeJSON(w, http.StatusOK, GroupedResponse{
		VC:        hits(g.VC),
		AI:        hits(g.AI),
		SU:        hits(g.SU),
		Companies: hits(g.Companies),
	})
}

func hits(entities []Entity) []Hit {
	out := make([]Hit, len(entities))
	for i, e := range entities {
		out[i] = Hit{Name: e.Name, ID: e.ID, Tier: e.Tier}
	}
	return out
}

func (s *Server) respond(w http.ResponseWriter, entities []Entity) {
	if s.maxResults > 0 && len(entities) > s.maxResults {
		entities = entities[:s.maxResults]
	}
	resp := Response{Results: make([]Result, len(entities))}
	for i, e := range entities {
		resp.Results[i] = Result{Name: e.Name, ID: e.ID, Kind: e.Kind}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"took", time.Since(start),
			"req_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
	}
}

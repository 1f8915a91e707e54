package suggest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bastiangx/typeahead/internal/metrics"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/charmbracelet/log"
)

const (
	DefaultWildcard    = "%QUERY"
	DefaultMinLength   = 1
	DefaultLimit       = 10
	DefaultResultsPath = "results"
	DefaultNameKey     = "name"
	DefaultIDKey       = "id"
	DefaultTimeout     = 3 * time.Second

	maxBodySize = 4 << 20

	kindRemote   = "remote"
	kindPrefetch = "prefetch"
)

// SourceConfig parameterizes one suggestion source.
type SourceConfig struct {
	// RemoteURL is the query endpoint with Wildcard standing in for the fragment,
	// e.g. "http://host/search/_typeahead/%QUERY" or "http://host/search?query=%QUERY".
	RemoteURL string
	Wildcard  string
	// PrefetchURL is fetched once by Prefetch. Empty disables prefetching.
	PrefetchURL string

	MinLength int
	// Limit is carried for the consumer; Source never truncates.
	Limit int

	ResultsPath string
	NameKey     string
	IDKey       string
	Map         MapFunc

	Timeout time.Duration
	Client  *http.Client
}

// withDefaults fills zero values.
func (c SourceConfig) withDefaults() SourceConfig {
	if c.Wildcard == "" {
		c.Wildcard = DefaultWildcard
	}
	if c.MinLength < 1 {
		c.MinLength = DefaultMinLength
	}
	if c.Limit < 1 {
		c.Limit = DefaultLimit
	}
	if c.ResultsPath == "" {
		c.ResultsPath = DefaultResultsPath
	}
	if c.NameKey == "" {
		c.NameKey = DefaultNameKey
	}
	if c.IDKey == "" {
		c.IDKey = DefaultIDKey
	}
	if c.Map == nil {
		c.Map = DefaultMap
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	return c
}

// Source is the HTTP implementation of Lookup. It keeps no state between calls.
type Source struct {
	cfg SourceConfig
	log *log.Logger
}

var _ Lookup = (*Source)(nil)

// NewSource creates a source; zero config fields take their defaults.
func NewSource(cfg SourceConfig, logger *log.Logger) *Source {
	if logger == nil {
		logger = log.Default()
	}
	return &Source{cfg: cfg.withDefaults(), log: logger}
}

// Config returns the effective configuration.
func (s *Source) Config() SourceConfig {
	return s.cfg
}

func (s *Source) HasRemote() bool   { return s.cfg.RemoteURL != "" }
func (s *Source) HasPrefetch() bool { return s.cfg.PrefetchURL != "" }

// Fetch substitutes fragment into the remote URL, issues the lookup and maps the result.
func (s *Source) Fetch(ctx context.Context, fragment string) ([]Record, error) {
	if utils.RuneLen(fragment) < s.cfg.MinLength {
		metrics.ObserveLookup(kindRemote, metrics.OutcomeSkipped, 0)
		return nil, nil
	}
	if !s.HasRemote() {
		return nil, fmt.Errorf("%w: no remote url configured", ErrSourceUnavailable)
	}
	return s.lookup(ctx, kindRemote, ExpandURL(s.cfg.RemoteURL, s.cfg.Wildcard, fragment))
}

// Prefetch loads the whole candidate set from the prefetch URL.
func (s *Source) Prefetch(ctx context.Context) ([]Record, error) {
	if !s.HasPrefetch() {
		return nil, ErrNoPrefetch
	}
	return s.lookup(ctx, kindPrefetch, s.cfg.PrefetchURL)
}

func (s *Source) lookup(ctx context.Context, kind, target string) ([]Record, error) {
	start := time.Now()

	body, err := s.get(ctx, target)
	if err != nil {
		metrics.ObserveLookup(kind, metrics.OutcomeUnavailable, time.Since(start))
		return nil, err
	}

	items, err := Decode(body, s.cfg.ResultsPath, s.cfg.NameKey, s.cfg.IDKey)
	if err != nil {
		metrics.ObserveLookup(kind, metrics.OutcomeMalformed, time.Since(start))
		return nil, err
	}

	metrics.ObserveLookup(kind, metrics.OutcomeOK, time.Since(start))
	s.log.Debugf("%s lookup %s: %d items in %v", kind, target, len(items), time.Since(start))
	return MapItems(items, s.cfg.Map), nil
}

func (s *Source) get(ctx context.Context, target string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrSourceUnavailable, target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrSourceUnavailable, err)
	}
	return body, nil
}

// ExpandURL replaces every wildcard in template with the URL-component-escaped fragment.
// Spaces become %20 so the same template works in a path segment or a query value.
func ExpandURL(template, wildcard, fragment string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(fragment), "+", "%20")
	return strings.ReplaceAll(template, wildcard, escaped)
}

package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bastiangx/typeahead/internal/metrics"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/charmbracelet/log"
)

// ControlConfig holds the consumer-side options of a suggestion list.
type ControlConfig struct {
	MinLength int
	Limit     int
	// Fuzzy enables fuzzy matching of prefetched records when no token prefix matches.
	Fuzzy bool
}

// Render is one delivery of the displayed list for a fragment.
type Render struct {
	Fragment    string
	Suggestions []Record
	// Pending is set on the local render that precedes an outstanding remote lookup.
	Pending bool
}

// Control is the suggestion-list consumer: one instance per search box.
//
// Init must return before the first Update; the prefetch index is read-only after that.
type Control struct {
	src   Lookup
	cfg   ControlConfig
	log   *log.Logger
	index *Index

	mu        sync.Mutex
	current   string
	displayed []Record

	// deliverMu orders renders: it is held from the staleness check through
	// done, so a render for a superseded fragment can never land after the
	// render of its successor.
	deliverMu sync.Mutex
	// checked runs between the staleness check and delivery. Tests only.
	checked func(fragment string)

	inflight sync.WaitGroup
}

// NewControl creates a control over src.
func NewControl(src Lookup, cfg ControlConfig, logger *log.Logger) *Control {
	if cfg.MinLength < 1 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.Limit < 1 {
		cfg.Limit = DefaultLimit
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Control{src: src, cfg: cfg, log: logger}
}

// NewControlForSource takes min length and limit from the source's own config.
func NewControlForSource(src *Source, fuzzy bool, logger *log.Logger) *Control {
	sc := src.Config()
	return NewControl(src, ControlConfig{MinLength: sc.MinLength, Limit: sc.Limit, Fuzzy: fuzzy}, logger)
}

// Init warms the local candidate set. A failing prefetch is logged and the
// control stays remote-only.
func (c *Control) Init(ctx context.Context) {
	if !c.src.HasPrefetch() {
		return
	}
	records, err := c.src.Prefetch(ctx)
	if err != nil {
		c.log.Warnf("Prefetch failed, serving remote suggestions only: %v", err)
		return
	}
	c.index = NewIndex(records, c.cfg.Fuzzy)
	c.log.Debugf("Prefetched %d suggestions", c.index.Len())
}

// Prefetched returns the size of the local candidate set.
func (c *Control) Prefetched() int {
	return c.index.Len()
}

// Update is called on every keystroke with the whole fragment typed so far.
//
// Fragments under the minimum length clear the list and issue no lookup.
// Otherwise local matches are rendered right away (Pending) when a prefetch
// index exists, and one remote lookup runs in the background. Its render is
// dropped if fragment is no longer current by the time it lands. Remote
// failures degrade to the local matches. done may be nil; it runs one render
// at a time and must not call Update itself.
func (c *Control) Update(ctx context.Context, fragment string, done func(Render)) {
	c.deliverMu.Lock()
	c.mu.Lock()
	c.current = fragment
	if utils.RuneLen(fragment) < c.cfg.MinLength {
		c.displayed = nil
		c.mu.Unlock()
		metrics.ObserveLookup(kindRemote, metrics.OutcomeSkipped, 0)
		deliver(done, Render{Fragment: fragment})
		c.deliverMu.Unlock()
		return
	}
	c.mu.Unlock()
	c.deliverMu.Unlock()

	local := c.index.Match(fragment)

	if !c.src.HasRemote() {
		c.commit(fragment, local, nil, false, done)
		return
	}

	if c.index.Len() > 0 {
		c.commit(fragment, local, nil, true, done)
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()

		remote, err := c.src.Fetch(ctx, fragment)
		if err != nil {
			c.logLookupError(fragment, err)
			remote = nil
		}
		c.commit(fragment, local, remote, false, done)
	}()
}

// commit publishes a render unless fragment was superseded meanwhile.
func (c *Control) commit(fragment string, local, remote []Record, pending bool, done func(Render)) {
	c.deliverMu.Lock()
	defer c.deliverMu.Unlock()

	c.mu.Lock()
	if c.current != fragment {
		current := c.current
		c.mu.Unlock()
		metrics.ObserveLookup(kindRemote, metrics.OutcomeStale, 0)
		c.log.Debug("Discarding suggestions", "err", fmt.Errorf("%w: %q superseded by %q", ErrStaleResponse, fragment, current))
		return
	}
	merged := merge(c.cfg.Limit, local, remote)
	c.displayed = merged
	c.mu.Unlock()

	if c.checked != nil {
		c.checked(fragment)
	}
	deliver(done, Render{Fragment: fragment, Suggestions: cloneRecords(merged), Pending: pending})
}

func (c *Control) logLookupError(fragment string, err error) {
	switch {
	case errors.Is(err, ErrMalformedRecord):
		c.log.Warnf("Ignoring malformed response for '%s': %v", fragment, err)
	case errors.Is(err, ErrSourceUnavailable):
		c.log.Warnf("Suggestion source unavailable for '%s': %v", fragment, err)
	default:
		c.log.Errorf("Lookup failed for '%s': %v", fragment, err)
	}
}

// Current returns the fragment of the latest Update.
func (c *Control) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Suggestions returns a copy of the displayed list.
func (c *Control) Suggestions() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRecords(c.displayed)
}

// Select returns the displayed record at i (zero based).
func (c *Control) Select(i int) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.displayed) {
		return Record{}, fmt.Errorf("%w %d (%d displayed)", ErrNoSelection, i, len(c.displayed))
	}
	return c.displayed[i], nil
}

// Wait blocks until every lookup started so far has finished.
func (c *Control) Wait() {
	c.inflight.Wait()
}

// merge concatenates the lists, drops case-insensitive duplicate values and truncates to limit.
func merge(limit int, lists ...[]Record) []Record {
	size := 0
	for _, l := range lists {
		size += len(l)
	}
	filter := utils.NewSuggestionFilter(size)

	merged := make([]Record, 0, min(size, limit))
	for _, l := range lists {
		for _, rec := range l {
			if len(merged) == limit {
				return merged
			}
			if filter.ShouldInclude(rec.Value) {
				merged = append(merged, rec)
			}
		}
	}
	return merged
}

func cloneRecords(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

func deliver(done func(Render), r Render) {
	if done != nil {
		done(r)
	}
}

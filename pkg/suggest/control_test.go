package suggest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLookup answers from fixed tables; fragments with a gate block until it is closed.
type fakeLookup struct {
	mu          sync.Mutex
	calls       []string
	gates       map[string]chan struct{}
	results     map[string][]Record
	errs        map[string]error
	prefetch    []Record
	prefetchErr error
	remote      bool
	hasPrefetch bool
}

func (f *fakeLookup) Fetch(_ context.Context, fragment string) ([]Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fragment)
	gate := f.gates[fragment]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.results[fragment], f.errs[fragment]
}

func (f *fakeLookup) Prefetch(context.Context) ([]Record, error) {
	return f.prefetch, f.prefetchErr
}

func (f *fakeLookup) HasRemote() bool   { return f.remote }
func (f *fakeLookup) HasPrefetch() bool { return f.hasPrefetch }

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// recorder collects renders delivered from any goroutine.
type recorder struct {
	mu      sync.Mutex
	renders []Render
	ch      chan Render
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Render, 64)}
}

func (r *recorder) done(rd Render) {
	r.mu.Lock()
	r.renders = append(r.renders, rd)
	r.mu.Unlock()
	r.ch <- rd
}

func (r *recorder) all() []Render {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Render(nil), r.renders...)
}

func (r *recorder) next(t *testing.T) Render {
	t.Helper()
	select {
	case rd := <-r.ch:
		return rd
	case <-time.After(2 * time.Second):
		t.Fatal("no render delivered")
		return Render{}
	}
}

func recs(vals ...string) []Record {
	out := make([]Record, len(vals))
	for i, v := range vals {
		out[i] = Record{Value: v}
	}
	return out
}

func TestControlShortFragmentIssuesNoLookup(t *testing.T) {
	src := &fakeLookup{remote: true, results: map[string][]Record{"ca": recs("California")}}
	c := NewControl(src, ControlConfig{MinLength: 2, Limit: 10}, nil)
	rec := newRecorder()

	c.Update(context.Background(), "ca", rec.done)
	assert.Equal(t, recs("California"), rec.next(t).Suggestions)

	c.Update(context.Background(), "c", rec.done)
	rd := rec.next(t)
	c.Wait()

	assert.Equal(t, "c", rd.Fragment)
	assert.Empty(t, rd.Suggestions)
	assert.Empty(t, c.Suggestions())
	assert.Equal(t, 1, src.callCount())
}

func TestControlDiscardsStaleResponse(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeLookup{
		remote: true,
		gates:  map[string]chan struct{}{"ca": gate},
		results: map[string][]Record{
			"ca":  recs("Canada", "California"),
			"cal": recs("California"),
		},
	}
	c := NewControl(src, ControlConfig{Limit: 10}, nil)
	rec := newRecorder()

	c.Update(context.Background(), "ca", rec.done)
	c.Update(context.Background(), "cal", rec.done)

	rd := rec.next(t)
	assert.Equal(t, "cal", rd.Fragment)

	// the older lookup lands late and must not overwrite the display
	close(gate)
	c.Wait()

	renders := rec.all()
	require.Len(t, renders, 1)
	assert.Equal(t, recs("California"), c.Suggestions())
	assert.Equal(t, "cal", c.Current())
}

// A newer keystroke arriving between the staleness check and delivery of an
// older render must still be delivered last.
func TestControlDeliversInKeystrokeOrder(t *testing.T) {
	src := &fakeLookup{remote: true, results: map[string][]Record{"ca": recs("Canada")}}
	c := NewControl(src, ControlConfig{MinLength: 2, Limit: 10}, nil)
	rec := newRecorder()

	shorter := make(chan struct{})
	var once sync.Once
	c.checked = func(string) {
		once.Do(func() {
			go func() {
				defer close(shorter)
				c.Update(context.Background(), "c", rec.done)
			}()
			// give the newer Update every chance to overtake
			time.Sleep(50 * time.Millisecond)
		})
	}

	c.Update(context.Background(), "ca", rec.done)
	first := rec.next(t)
	second := rec.next(t)
	<-shorter
	c.Wait()

	assert.Equal(t, "ca", first.Fragment)
	assert.Equal(t, recs("Canada"), first.Suggestions)
	assert.Equal(t, "c", second.Fragment)
	assert.Empty(t, second.Suggestions)

	assert.Equal(t, "c", c.Current())
	assert.Empty(t, c.Suggestions())
}

func TestControlTruncatesToLimit(t *testing.T) {
	var many []string
	for i := 0; i < 15; i++ {
		many = append(many, fmt.Sprintf("item %02d", i))
	}
	src := &fakeLookup{remote: true, results: map[string][]Record{"item": recs(many...)}}
	c := NewControl(src, ControlConfig{Limit: 10}, nil)
	rec := newRecorder()

	c.Update(context.Background(), "item", rec.done)
	rd := rec.next(t)

	assert.Len(t, rd.Suggestions, 10)
	assert.Equal(t, recs(many[:10]...), rd.Suggestions)
}

func TestControlDegradesToEmptyOnFailure(t *testing.T) {
	for _, failure := range []error{ErrSourceUnavailable, ErrMalformedRecord, errors.New("boom")} {
		t.Run(failure.Error(), func(t *testing.T) {
			src := &fakeLookup{
				remote:  true,
				results: map[string][]Record{"a": recs("stale data")},
				errs:    map[string]error{"a": fmt.Errorf("%w: test", failure)},
			}
			c := NewControl(src, ControlConfig{}, nil)
			rec := newRecorder()

			c.Update(context.Background(), "a", rec.done)
			rd := rec.next(t)

			assert.Empty(t, rd.Suggestions)
			assert.False(t, rd.Pending)
		})
	}
}

func TestControlMergesPrefetchedAndRemote(t *testing.T) {
	src := &fakeLookup{
		remote:      true,
		hasPrefetch: true,
		prefetch:    recs("California", "Cal Poly", "Denver"),
		results:     map[string][]Record{"cal": recs("CALIFORNIA", "Calgary")},
	}
	c := NewControl(src, ControlConfig{Limit: 10}, nil)
	c.Init(context.Background())
	require.Equal(t, 3, c.Prefetched())
	rec := newRecorder()

	c.Update(context.Background(), "cal", rec.done)

	local := rec.next(t)
	assert.True(t, local.Pending)
	assert.Equal(t, recs("California", "Cal Poly"), local.Suggestions)

	final := rec.next(t)
	assert.False(t, final.Pending)
	assert.Equal(t, recs("California", "Cal Poly", "Calgary"), final.Suggestions)
}

func TestControlPrefetchOnly(t *testing.T) {
	src := &fakeLookup{hasPrefetch: true, prefetch: recs("Acme", "Acorn", "Beta")}
	c := NewControl(src, ControlConfig{Limit: 1}, nil)
	c.Init(context.Background())
	rec := newRecorder()

	c.Update(context.Background(), "ac", rec.done)
	rd := rec.next(t)

	assert.False(t, rd.Pending)
	assert.Equal(t, recs("Acme"), rd.Suggestions)
	assert.Equal(t, 0, src.callCount())
}

func TestControlPrefetchFailureFallsBackToRemote(t *testing.T) {
	src := &fakeLookup{
		remote:      true,
		hasPrefetch: true,
		prefetchErr: ErrSourceUnavailable,
		results:     map[string][]Record{"a": recs("Acme")},
	}
	c := NewControl(src, ControlConfig{}, nil)
	c.Init(context.Background())
	assert.Equal(t, 0, c.Prefetched())
	rec := newRecorder()

	c.Update(context.Background(), "a", rec.done)
	rd := rec.next(t)

	assert.False(t, rd.Pending)
	assert.Equal(t, recs("Acme"), rd.Suggestions)
}

func TestControlSelect(t *testing.T) {
	src := &fakeLookup{remote: true, results: map[string][]Record{
		"cal": {{Value: "California", ID: []byte("5")}, {Value: "Calgary"}},
	}}
	c := NewControl(src, ControlConfig{}, nil)
	rec := newRecorder()

	c.Update(context.Background(), "cal", rec.done)
	rec.next(t)

	got, err := c.Select(0)
	require.NoError(t, err)
	assert.Equal(t, "California", got.Value)
	assert.Equal(t, float64(5), got.IDValue())

	got, err = c.Select(1)
	require.NoError(t, err)
	assert.False(t, got.HasID())

	_, err = c.Select(2)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestControlUsesSourceSettings(t *testing.T) {
	src := NewSource(SourceConfig{MinLength: 3, Limit: 4}, nil)
	c := NewControlForSource(src, false, nil)
	assert.Equal(t, 3, c.cfg.MinLength)
	assert.Equal(t, 4, c.cfg.Limit)
}

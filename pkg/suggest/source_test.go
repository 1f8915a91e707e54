package suggest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

// newBackend serves body for every request and counts hits.
func newBackend(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	hits := &atomic.Int32{}
	lastURI := &atomic.Value{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastURI.Store(r.URL.RequestURI())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, hits, lastURI
}

func TestFetchMapsNameAndID(t *testing.T) {
	srv, hits, uri := newBackend(t, http.StatusOK,
		`{"results":[{"name":"California","id":5},{"name":"California Capital","id":9}]}`)

	src := NewSource(SourceConfig{RemoteURL: srv.URL + "/search/_typeahead/%QUERY"}, nil)
	got, err := src.Fetch(context.Background(), "cal")

	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Value: "California", ID: json.RawMessage("5")},
		{Value: "California Capital", ID: json.RawMessage("9")},
	}, got)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, "/search/_typeahead/cal", uri.Load())
}

func TestFetchQueryStringTemplate(t *testing.T) {
	srv, _, uri := newBackend(t, http.StatusOK, `{"results":[]}`)

	src := NewSource(SourceConfig{RemoteURL: srv.URL + "/search?query=%QUERY"}, nil)
	got, err := src.Fetch(context.Background(), "bank of a&b")

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, "/search?query=bank%20of%20a%26b", uri.Load())
}

func TestFetchBelowMinLengthIssuesNoLookup(t *testing.T) {
	srv, hits, _ := newBackend(t, http.StatusOK, `{"results":[{"name":"x"}]}`)

	src := NewSource(SourceConfig{RemoteURL: srv.URL + "/%QUERY", MinLength: 3}, nil)
	for _, fragment := range []string{"", "a", "ab", "éé"} {
		got, err := src.Fetch(context.Background(), fragment)
		assert.NoError(t, err, fragment)
		assert.Nil(t, got, fragment)
	}
	assert.Equal(t, int32(0), hits.Load())

	_, err := src.Fetch(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchPreservesOrderAndCount(t *testing.T) {
	srv, _, _ := newBackend(t, http.StatusOK,
		`{"results":[{"name":"zeta"},{"name":"alpha","id":"a-1"},{"name":"mid","id":{"k":1}}]}`)

	src := NewSource(SourceConfig{RemoteURL: srv.URL + "/%QUERY"}, nil)
	got, err := src.Fetch(context.Background(), "q")

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "zeta", got[0].Value)
	assert.Nil(t, got[0].ID)
	assert.False(t, got[0].HasID())
	assert.Equal(t, "alpha", got[1].Value)
	assert.Equal(t, "a-1", got[1].IDValue())
	assert.Equal(t, "mid", got[2].Value)
	assert.JSONEq(t, `{"k":1}`, string(got[2].ID))
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"server error", http.StatusInternalServerError, `{"results":[]}`, ErrSourceUnavailable},
		{"not found", http.StatusNotFound, ``, ErrSourceUnavailable},
		{"not json", http.StatusOK, `<html>login</html>`, ErrMalformedRecord},
		{"missing results", http.StatusOK, `{"items":[{"name":"a"}]}`, ErrMalformedRecord},
		{"results not array", http.StatusOK, `{"results":{"name":"a"}}`, ErrMalformedRecord},
		{"item without name", http.StatusOK, `{"results":[{"name":"a"},{"id":2}]}`, ErrMalformedRecord},
		{"name not string", http.StatusOK, `{"results":[{"name":7}]}`, ErrMalformedRecord},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, _, _ := newBackend(t, tc.status, tc.body)
			src := NewSource(SourceConfig{RemoteURL: srv.URL + "/%QUERY"}, nil)

			got, err := src.Fetch(context.Background(), "a")
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, got, "a failing response yields no partial list")
		})
	}
}

func TestFetchUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	src := NewSource(SourceConfig{RemoteURL: url + "/%QUERY"}, nil)
	_, err := src.Fetch(context.Background(), "a")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestFetchWithoutRemote(t *testing.T) {
	src := NewSource(SourceConfig{}, nil)
	assert.False(t, src.HasRemote())
	_, err := src.Fetch(context.Background(), "a")
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestPrefetch(t *testing.T) {
	// the original backend answered prefetch with a bare array
	srv, hits, _ := newBackend(t, http.StatusOK, `[{"name":"Acme"},{"name":"Beta Corp","id":2}]`)

	src := NewSource(SourceConfig{PrefetchURL: srv.URL + "/prefetch"}, nil)
	got, err := src.Prefetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []Record{{Value: "Acme"}, {Value: "Beta Corp", ID: json.RawMessage("2")}}, got)
	assert.Equal(t, int32(1), hits.Load())

	_, err = NewSource(SourceConfig{}, nil).Prefetch(context.Background())
	assert.ErrorIs(t, err, ErrNoPrefetch)
}

func TestCustomKeysAndMapping(t *testing.T) {
	srv, _, _ := newBackend(t, http.StatusOK, `{"data":{"hits":[{"title":"Foo","key":1}]}}`)

	src := NewSource(SourceConfig{
		RemoteURL:   srv.URL + "/%QUERY",
		ResultsPath: "data.hits",
		NameKey:     "title",
		IDKey:       "key",
		Map:         MapValueOnly,
	}, nil)
	got, err := src.Fetch(context.Background(), "f")

	require.NoError(t, err)
	assert.Equal(t, []Record{{Value: "Foo"}}, got)
}

func TestExpandURL(t *testing.T) {
	assert.Equal(t, "/t/new%20york", ExpandURL("/t/%QUERY", "%QUERY", "new york"))
	assert.Equal(t, "/t/a%2Fb?x=a%2Fb", ExpandURL("/t/%Q?x=%Q", "%Q", "a/b"))
	assert.Equal(t, "/t/plain", ExpandURL("/t/plain", "%QUERY", "ignored"))
}

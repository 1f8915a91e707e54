package suggest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func values(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}

func TestIndexMatch(t *testing.T) {
	ix := NewIndex([]Record{
		{Value: "Bank of California"},
		{Value: "California"},
		{Value: "Calgary Capital"},
		{Value: "Acme"},
		{Value: "capital capital"},
	}, false)

	tests := []struct {
		fragment string
		want     []string
	}{
		{"cal", []string{"Bank of California", "California", "Calgary Capital"}},
		{"CALI", []string{"Bank of California", "California"}},
		{"cal cap", []string{"Calgary Capital"}},
		{"cap", []string{"Calgary Capital", "capital capital"}},
		{"zzz", nil},
		{"   ", nil},
	}

	for _, tc := range tests {
		t.Run(tc.fragment, func(t *testing.T) {
			got := ix.Match(tc.fragment)
			if tc.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tc.want, values(got))
		})
	}
	assert.Equal(t, 5, ix.Len())
}

func TestIndexFuzzyFallback(t *testing.T) {
	records := []Record{{Value: "California"}, {Value: "Colorado"}}

	assert.Empty(t, NewIndex(records, false).Match("clfrn"))
	assert.Equal(t, []string{"California"}, values(NewIndex(records, true).Match("clfrn")))
}

func TestNilIndex(t *testing.T) {
	var ix *Index
	assert.Equal(t, 0, ix.Len())
	assert.Nil(t, ix.Match("a"))
}

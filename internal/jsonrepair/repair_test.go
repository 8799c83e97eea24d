package jsonrepair

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ArticlesPublisher/internal/domain"
)

func TestRepair(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "valid document is returned as-is",
			in:   `{"title": "A", "content": "B"}`,
			want: `{"title": "A", "content": "B"}`,
		},
		{
			name: "dangling partial field is stripped",
			in:   `{"title":"Go 1.25","content":"Lorem ips`,
			want: `{"title":"Go 1.25"}`,
		},
		{
			name: "open string in first field is closed",
			in:   `{"title":"Hel`,
			want: `{"title":"Hel"}`,
		},
		{
			name: "nested containers close innermost first",
			in:   `{"article":{"tags":["go","db"],"seo":{"slug":"x"`,
			want: `{"article":{"tags":["go","db"],"seo":{"slug":"x"}}}`,
		},
		{
			name: "array of objects",
			in:   `{"items":[{"a":1},{"b":"tw`,
			want: `{"items":[{"a":1},{"b":"tw"}]}`,
		},
		{
			name: "trailing comma",
			in:   `{"a":1,"b":[1,2],`,
			want: `{"a":1,"b":[1,2]}`,
		},
		{
			name: "dangling key falls back to last complete value",
			in:   `{"a":1,"content`,
			want: `{"a":1}`,
		},
		{
			name: "dangling colon",
			in:   `{"a":"x","b":`,
			want: `{"a":"x"}`,
		},
		{
			name: "partial literal",
			in:   `{"a":"x","ok":tr`,
			want: `{"a":"x"}`,
		},
		{
			name: "escape cut in the middle",
			in:   `{"a":"quote \`,
			want: `{"a":"quote "}`,
		},
		{
			name: "markdown fence without closing",
			in:   "```json\n{\"title\":\"T\",\"content\":\"C",
			want: `{"title":"T"}`,
		},
		{
			name: "prose after the object",
			in:   `{"title":"T"} hope this helps`,
			want: `{"title":"T"}`,
		},
		{
			name: "braces inside strings are ignored",
			in:   `{"code":"func() { return [1 }","n":2`,
			want: `{"code":"func() { return [1 }","n":2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Repair(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRepairUnrepairable(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "no json here", `["not","an","object"]`, "null"} {
		got, err := Repair(in)
		require.ErrorIs(t, err, domain.ErrTruncatedUnrepairable, "input %q", in)
		assert.Equal(t, in, got, "original text must be returned")
	}
}

func TestRepairKeepsCompleteFieldsAtEveryCut(t *testing.T) {
	t.Parallel()

	type field struct {
		key   string
		value any
	}
	fields := []field{
		{"title", "Kubernetes 1.31: what changed, and why \"it\" matters"},
		{"slug", "kubernetes-1-31"},
		{"views", 1234},
		{"ratio", -0.25},
		{"draft", false},
		{"meta", map[string]any{"description": "short {text} [here]", "lang": "en"}},
		{"tags", []any{"k8s", "release", map[string]any{"nested": []any{1, 2, 3}}}},
		{"content", "<p>Line one.</p>\n<p>Line two with a \\ backslash.</p>"},
		{"empty", map[string]any{}},
		{"author", nil},
	}

	var b strings.Builder
	ends := make([]int, len(fields))
	b.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		require.NoError(t, err)
		v, err := json.Marshal(f.value)
		require.NoError(t, err)
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
		ends[i] = b.Len()
	}
	b.WriteByte('}')
	full := b.String()

	var original map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(full), &original))

	for cut := 1; cut <= len(full); cut++ {
		prefix := full[:cut]
		got, err := Repair(prefix)
		require.NoError(t, err, "cut at %d: %q", cut, prefix)

		var repaired map[string]json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(got), &repaired), "cut at %d produced %q", cut, got)

		for i, f := range fields {
			if ends[i] > cut {
				break
			}
			raw, ok := repaired[f.key]
			require.True(t, ok, "cut at %d dropped complete field %q: %s", cut, f.key, got)
			assert.JSONEq(t, string(original[f.key]), string(raw), "cut at %d altered field %q", cut, f.key)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var out struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	require.NoError(t, Decode(`{"title":"T","tags":["a","b"`, &out))
	assert.Equal(t, "T", out.Title)
	assert.Equal(t, []string{"a", "b"}, out.Tags)

	err := Decode("garbage", &out)
	assert.ErrorIs(t, err, domain.ErrTruncatedUnrepairable)
}

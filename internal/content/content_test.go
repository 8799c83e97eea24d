package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHTML(t *testing.T) {
	t.Parallel()

	got, err := ToHTML("# Title\n\nSome **bold** text.")
	require.NoError(t, err)
	assert.Contains(t, got, "<h1>Title</h1>")
	assert.Contains(t, got, "<strong>bold</strong>")

	already := "<p>Already html</p>"
	got, err = ToHTML(already)
	require.NoError(t, err)
	assert.Equal(t, already, got)

	got, err = ToHTML("```markdown\nplain paragraph\n```")
	require.NoError(t, err)
	assert.Equal(t, "<p>plain paragraph</p>", got)
}

func TestToMarkdown(t *testing.T) {
	t.Parallel()

	got := ToMarkdown(`<p>Hello <strong>world</strong></p><ul><li>one</li></ul>`)
	assert.Contains(t, got, "**world**")
	assert.Contains(t, got, "- one")

	assert.Equal(t, "just text", ToMarkdown("  just text "))
}

func TestExcerpt(t *testing.T) {
	t.Parallel()

	body := "<p>" + strings.Repeat("word ", 60) + "</p><script>var x = 1;</script>"
	got := Excerpt(body, 5)
	assert.Equal(t, "word word word word word…", got)

	assert.Equal(t, "short text", Excerpt("<div>short   text</div>", 0))
}

func TestFirstImage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://cdn.example.org/a.png", FirstImage(`<p>x</p><img src="https://cdn.example.org/a.png"><img src="b.png">`))
	assert.Empty(t, FirstImage("<p>no image</p>"))
}

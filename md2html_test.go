package md2html

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDocument(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"heading and paragraph",
			"# Title\n\nSome **bold** and _italic_ text.",
			"<div><h1>Title</h1><p>Some <b>bold</b> and <i>italic</i> text.</p></div>"},
		{"code fence",
			"```\ncode here\n```",
			"<div><pre><code>code here</code></pre></div>"},
		{"code is literal",
			"```\n**not bold** _x_\n```",
			"<div><pre><code>**not bold** _x_</code></pre></div>"},
		{"unordered list",
			"- a\n- b",
			"<div><ul><li>a</li><li>b</li></ul></div>"},
		{"star list with markup",
			"* **a**\n* `b`",
			"<div><ul><li><b>a</b></li><li><code>b</code></li></ul></div>"},
		{"empty list item",
			"- \n- b",
			"<div><ul><li></li><li>b</li></ul></div>"},
		{"ordered list",
			"1. a\n2. b",
			"<div><ol><li>a</li><li>b</li></ol></div>"},
		{"ordered item containing a full stop",
			"1. Dr. Who\n2. b",
			"<div><ol><li>Dr. Who</li><li>b</li></ol></div>"},
		{"deep heading",
			"### Deep _dive_",
			"<div><h3>Deep <i>dive</i></h3></div>"},
		{"quote is flat",
			"> hello\n> **world**",
			"<div><blockquote>hello **world**</blockquote></div>"},
		{"quote marker without space",
			">no space\n>  two",
			"<div><blockquote>no space  two</blockquote></div>"},
		{"quote line without marker kept whole",
			"> first\nsecond",
			"<div><blockquote>first second</blockquote></div>"},
		{"list line without marker kept whole",
			"- a\nb",
			"<div><ul><li>a</li><li>b</li></ul></div>"},
		{"links and images",
			"See [docs](/docs/) ![logo](/logo.png)",
			`<div><p>See <a href="/docs/">docs</a> <img src="/logo.png" alt="logo"></p></div>`},
		{"block order",
			"para one\n\n## Two\n\npara three",
			"<div><p>para one</p><h2>Two</h2><p>para three</p></div>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderDocument(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInlineQuotes(t *testing.T) {
	c := New(Options{InlineQuotes: true})
	got, err := c.Render("> hello\n> **world**")
	require.NoError(t, err)
	assert.Equal(t, "<div><blockquote>hello <b>world</b></blockquote></div>", got)
}

func TestInlineRuns(t *testing.T) {
	c := New(Options{})
	cases := []struct {
		block Block
		want  []string
	}{
		{Block{Text: "## Title *x*", Kind: Heading}, []string{"Title *x*"}},
		{Block{Text: "- a\n* b\nc", Kind: UnorderedList}, []string{"a", "b", "c"}},
		{Block{Text: "1. a\n22. b", Kind: OrderedList}, []string{"a", "b"}},
		{Block{Text: "```\nx\n```", Kind: CodeBlock}, nil},
		{Block{Text: "> a", Kind: Quote}, nil},
		{Block{Text: "plain [l](/y)", Kind: Paragraph}, []string{"plain [l](/y)"}},
	}
	for _, tc := range cases {
		got, err := c.InlineRuns(tc.block)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "block %q", tc.block.Text)
	}

	got, err := New(Options{InlineQuotes: true}).InlineRuns(Block{Text: "> a\n>b", Kind: Quote})
	require.NoError(t, err)
	assert.Equal(t, []string{"a b"}, got)

	_, err = c.InlineRuns(Block{Text: "x", Kind: BlockKind(99)})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestRenderEmptyDocument(t *testing.T) {
	_, err := RenderDocument("\n\n")
	assert.True(t, errors.Is(err, ErrStructure))
}

func TestExtractTitle(t *testing.T) {
	title, err := ExtractTitle("# Title\n\nSome **bold** and _italic_ text.")
	require.NoError(t, err)
	assert.Equal(t, "Title", title)

	title, err = ExtractTitle("## Sub\n\n#  Main  \n\ntext")
	require.NoError(t, err)
	assert.Equal(t, "Main", title)

	title, err = ExtractTitle("# First line\nsecond line")
	require.NoError(t, err)
	assert.Equal(t, "First line", title)

	_, err = ExtractTitle("no heading here\n\n## only h2")
	assert.True(t, errors.Is(err, ErrTitleNotFound))
}

func TestUnknownKinds(t *testing.T) {
	c := New(Options{})
	_, err := c.Build([]Block{{Text: "x", Kind: BlockKind(99)}})
	assert.True(t, errors.Is(err, ErrUnknownKind))

	_, err = SpanNode(Span{Text: "x", Kind: SpanKind(42)})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}

func TestConvertTree(t *testing.T) {
	root, err := New(Options{}).Convert("# T\n\n[a](b)")
	require.NoError(t, err)
	require.Equal(t, "div", root.Tag)
	require.Len(t, root.Children, 2)
	link := root.Children[1].Children[0]
	assert.Equal(t, "a", link.Tag)
	href, _ := link.Attr("href")
	assert.Equal(t, "b", href)
}

func TestConverterIsSafeForConcurrentUse(t *testing.T) {
	c := New(Options{})
	done := make(chan string, 8)
	for i := 0; i < cap(done); i++ {
		go func() {
			out, _ := c.Render("# T\n\n- a\n- b")
			done <- out
		}()
	}
	for i := 0; i < cap(done); i++ {
		assert.Equal(t, "<div><h1>T</h1><ul><li>a</li><li>b</li></ul></div>", <-done)
	}
}

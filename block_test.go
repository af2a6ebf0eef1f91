package md2html

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitBlocks(t *testing.T) {
	md := "# T\n\n\n\npara\n\n  \n\nlast\r\n\r\nx"
	assert.Equal(t, []string{"# T", "para", "last", "x"}, SplitBlocks(md))
	assert.Empty(t, SplitBlocks("\n\n   \n\n"))
}

func TestClassify(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		in   string
		want BlockKind
	}{
		{"# Title", Heading},
		{"###### six", Heading},
		{"####### seven", Paragraph},
		{"#nospace", Paragraph},
		{"# a\nb", Paragraph},
		{"```\ncode here\n```", CodeBlock},
		{"```go\nx := 1\n```", CodeBlock},
		{"```\nnever closed", Paragraph},
		{"> quoted\n> more", Quote},
		{"- a\n- b", UnorderedList},
		{"* a", UnorderedList},
		{"-a", Paragraph},
		{"1. a\n2. b", OrderedList},
		{"10. ten", OrderedList},
		{"1.no space", Paragraph},
		{"plain words", Paragraph},
		{"# heading\n> quote", Quote},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Classify(tt.in), "classify %q", tt.in)
		assert.Equal(t, c.Classify(tt.in), c.Classify(tt.in), "classify %q twice", tt.in)
	}
}

func TestBlocksPreserveOrder(t *testing.T) {
	blocks := NewClassifier().Blocks("# T\n\npara\n\n- a\n\n1. b")
	assert.Equal(t, []Block{
		{Text: "# T", Kind: Heading},
		{Text: "para", Kind: Paragraph},
		{Text: "- a", Kind: UnorderedList},
		{Text: "1. b", Kind: OrderedList},
	}, blocks)
}

func TestBlockKindString(t *testing.T) {
	assert.Equal(t, "unordered_list", UnorderedList.String())
	assert.Equal(t, "BlockKind(-1)", BlockKind(-1).String())
}

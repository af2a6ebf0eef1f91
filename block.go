package md2html

import (
	"fmt"
	"regexp"
	"strings"
)

// ---- Blocks ----

// BlockKind classifies a block of Markdown.
type BlockKind int

const (
	Heading BlockKind = iota
	CodeBlock
	Quote
	UnorderedList
	OrderedList
	Paragraph
)

var blockKindNames = [...]string{"heading", "code", "quote", "unordered_list", "ordered_list", "paragraph"}

func (k BlockKind) String() string {
	if k < 0 || int(k) >= len(blockKindNames) {
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
	return blockKindNames[k]
}

// Block is a blank-line separated run of a document.
type Block struct {
	Text string
	Kind BlockKind
}

// SplitBlocks splits a document on blank lines. Blocks are trimmed and empty
// ones dropped.
func SplitBlocks(markdown string) []string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	parts := strings.Split(markdown, "\n\n")
	blocks := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			blocks = append(blocks, p)
		}
	}
	return blocks
}

type blockRule struct {
	kind    BlockKind
	pattern *regexp.Regexp
}

// Classifier maps block text to a BlockKind. Rules are tried in order and the
// first match wins; Paragraph is the fallback.
type Classifier struct {
	rules []blockRule
}

// NewClassifier returns a classifier with the standard rule set.
func NewClassifier() *Classifier {
	return &Classifier{rules: []blockRule{
		{kind: Heading, pattern: regexp.MustCompile(`\A#{1,6} [^\n]*\z`)},
		{kind: CodeBlock, pattern: regexp.MustCompile("(?ms)^\\s*```(.*?)\\n(.*?)^\\s*```")},
		{kind: Quote, pattern: regexp.MustCompile(`(?m)^>`)},
		{kind: UnorderedList, pattern: regexp.MustCompile(`(?m)^[*-] `)},
		{kind: OrderedList, pattern: regexp.MustCompile(`(?m)^\d+\. `)},
	}}
}

// Classify returns the kind of a single trimmed block.
func (c *Classifier) Classify(text string) BlockKind {
	for _, r := range c.rules {
		if r.pattern.MatchString(text) {
			return r.kind
		}
	}
	return Paragraph
}

// Blocks splits and classifies a whole document.
func (c *Classifier) Blocks(markdown string) []Block {
	texts := SplitBlocks(markdown)
	blocks := make([]Block, 0, len(texts))
	for _, t := range texts {
		blocks = append(blocks, Block{Text: t, Kind: c.Classify(t)})
	}
	return blocks
}

// Package md2html converts a small, predictable subset of Markdown into HTML.
//
// Documents are split into blank-line separated blocks (headings, fenced code,
// quotes, lists, paragraphs). Block text is split into inline spans (bold,
// italic, code, links, images) and the result is assembled into a tree of
// Nodes rooted at a single div. The tree serializes to HTML with Node.HTML,
// or to a raster preview with Preview.
//
// Not a CommonMark implementation; use EngineGoldmark when that matters.
package md2html

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
)

// ErrTitleNotFound is returned by ExtractTitle when no "# " block exists.
var ErrTitleNotFound = errors.New("md2html: title not found")

// Options configure a Converter. The zero value uses the built-in engine with
// flat block quotes.
type Options struct {
	Engine Engine
	// InlineQuotes parses bold, links etc. inside block quotes. Off by
	// default: quotes render as a single literal blockquote element.
	InlineQuotes bool
}

// Converter turns Markdown into a render tree or HTML. It holds no mutable
// state and is safe for concurrent use.
type Converter struct {
	opts       Options
	inline     *InlineParser
	blocks     *Classifier
	itemMarker *regexp.Regexp
	gm         goldmark.Markdown
}

// New returns a Converter for opts.
func New(opts Options) *Converter {
	c := &Converter{
		opts:       opts,
		inline:     NewInlineParser(),
		blocks:     NewClassifier(),
		itemMarker: regexp.MustCompile(`^\d+\. `),
	}
	if opts.Engine == EngineGoldmark {
		c.gm = newGoldmark()
	}
	return c
}

// Options returns the options c was built with.
func (c *Converter) Options() Options { return c.opts }

// Blocks splits and classifies a document.
func (c *Converter) Blocks(markdown string) []Block {
	return c.blocks.Blocks(markdown)
}

// Spans inline-parses a single text run.
func (c *Converter) Spans(text string) []Span {
	return c.inline.Parse(text)
}

// Convert builds the render tree of a document with the built-in parser,
// regardless of the configured engine.
func (c *Converter) Convert(markdown string) (*Node, error) {
	return c.Build(c.Blocks(markdown))
}

// Render returns the HTML body of a document: a single div element.
func (c *Converter) Render(markdown string) (string, error) {
	if c.opts.Engine == EngineGoldmark {
		return c.renderGoldmark(markdown)
	}
	root, err := c.Convert(markdown)
	if err != nil {
		return "", err
	}
	return root.HTML()
}

var defaultConverter = sync.OnceValue(func() *Converter { return New(Options{}) })

// RenderDocument renders markdown with the default Converter.
func RenderDocument(markdown string) (string, error) {
	return defaultConverter().Render(markdown)
}

// ExtractTitle returns the text of the first block starting with "# ". Only
// the first line of that block is used.
func ExtractTitle(markdown string) (string, error) {
	for _, block := range SplitBlocks(markdown) {
		if !strings.HasPrefix(block, "# ") {
			continue
		}
		title, _, _ := strings.Cut(block[2:], "\n")
		return strings.TrimSpace(title), nil
	}
	return "", ErrTitleNotFound
}

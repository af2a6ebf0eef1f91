package md2html

import (
	"fmt"
	"regexp"
)

// ---- Inline spans ----

// SpanKind classifies an inline fragment.
type SpanKind int

const (
	Plain SpanKind = iota
	Bold
	Italic
	Code
	Link
	Image
)

var spanKindNames = [...]string{"plain", "bold", "italic", "code", "link", "image"}

func (k SpanKind) String() string {
	if k < 0 || int(k) >= len(spanKindNames) {
		return fmt.Sprintf("SpanKind(%d)", int(k))
	}
	return spanKindNames[k]
}

// Span is a typed fragment of inline text. URL is set for Link and Image only.
type Span struct {
	Text string
	Kind SpanKind
	URL  string
}

// Markdown returns the span in the markup it was parsed from.
func (s Span) Markdown() string {
	switch s.Kind {
	case Bold:
		return "**" + s.Text + "**"
	case Italic:
		return "_" + s.Text + "_"
	case Code:
		return "`" + s.Text + "`"
	case Link:
		return "[" + s.Text + "](" + s.URL + ")"
	case Image:
		return "![" + s.Text + "](" + s.URL + ")"
	default:
		return s.Text
	}
}

// inlineRule extracts one span kind. Group 1 of pattern is the span text,
// group 2 (if any) the URL. A match directly preceded by notAfter is skipped.
type inlineRule struct {
	kind     SpanKind
	pattern  *regexp.Regexp
	notAfter byte
}

// InlineParser splits text runs into spans. The rule order is fixed: bold
// must run before italic and image before link.
type InlineParser struct {
	rules []inlineRule
}

// NewInlineParser returns a parser with the standard rule set.
func NewInlineParser() *InlineParser {
	return &InlineParser{rules: []inlineRule{
		{kind: Bold, pattern: regexp.MustCompile(`\*\*([^*]+)\*\*`)},
		{kind: Italic, pattern: regexp.MustCompile(`_([^_]+)_`)},
		{kind: Code, pattern: regexp.MustCompile("`([^`]+)`")},
		{kind: Image, pattern: regexp.MustCompile(`!\[([^\[\]()]*)\]\(([^\[\]()]+)\)`)},
		{kind: Link, pattern: regexp.MustCompile(`\[([^\[\]()]*)\]\(([^\[\]()]+)\)`), notAfter: '!'},
	}}
}

// Parse returns the spans of text in order. Unterminated markup stays plain
// and empty plain segments are never produced.
func (p *InlineParser) Parse(text string) []Span {
	if text == "" {
		return nil
	}
	spans := []Span{{Text: text, Kind: Plain}}
	for _, r := range p.rules {
		spans = r.apply(spans)
	}
	return spans
}

func (r inlineRule) apply(spans []Span) []Span {
	out := make([]Span, 0, len(spans))
	for _, s := range spans {
		if s.Kind != Plain {
			out = append(out, s)
			continue
		}
		out = r.split(out, s.Text)
	}
	return out
}

// split scans text with a cursor, appending plain and typed spans to out.
func (r inlineRule) split(out []Span, text string) []Span {
	plainFrom, cursor := 0, 0
	for cursor < len(text) {
		loc := r.pattern.FindStringSubmatchIndex(text[cursor:])
		if loc == nil {
			break
		}
		start, end := cursor+loc[0], cursor+loc[1]
		if r.notAfter != 0 && start > 0 && text[start-1] == r.notAfter {
			cursor = start + 1
			continue
		}
		if start > plainFrom {
			out = append(out, Span{Text: text[plainFrom:start], Kind: Plain})
		}
		span := Span{Text: text[cursor+loc[2] : cursor+loc[3]], Kind: r.kind}
		if len(loc) >= 6 && loc[4] >= 0 {
			span.URL = text[cursor+loc[4] : cursor+loc[5]]
		}
		out = append(out, span)
		plainFrom, cursor = end, end
	}
	if plainFrom < len(text) {
		out = append(out, Span{Text: text[plainFrom:], Kind: Plain})
	}
	return out
}

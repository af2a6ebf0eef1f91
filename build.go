package md2html

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrUnknownKind is returned when a block or span kind has no builder. It
// indicates a programming error, not bad input.
var ErrUnknownKind = errors.New("md2html: unknown kind")

// ---- Blocks -> render tree ----

// Build converts classified blocks into a root div.
func (c *Converter) Build(blocks []Block) (*Node, error) {
	children := make([]*Node, 0, len(blocks))
	for _, b := range blocks {
		n, err := c.buildBlock(b)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return Container("div", children...), nil
}

func (c *Converter) buildBlock(b Block) (*Node, error) {
	switch b.Kind {
	case Heading:
		return c.heading(b.Text)
	case CodeBlock:
		return codeNode(b.Text), nil
	case Quote:
		return c.quote(b.Text)
	case UnorderedList:
		return c.list("ul", b.Text, unorderedItem)
	case OrderedList:
		return c.list("ol", b.Text, c.orderedItem)
	case Paragraph:
		return c.container("p", b.Text)
	default:
		return nil, fmt.Errorf("%w: block %s", ErrUnknownKind, b.Kind)
	}
}

func (c *Converter) heading(text string) (*Node, error) {
	level, run := headingRun(text)
	if level == 0 {
		return c.container("p", text)
	}
	return c.container("h"+strconv.Itoa(level), run)
}

// headingRun returns the heading level and the text after the marker. Level
// 0 means text is not a valid heading.
func headingRun(text string) (int, string) {
	level := 0
	for level < len(text) && text[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return 0, text
	}
	return level, strings.TrimPrefix(text[level:], " ")
}

func codeNode(text string) *Node {
	body := strings.TrimSpace(strings.Trim(text, "`"))
	return Container("pre", Leaf("code", body))
}

func (c *Converter) quote(text string) (*Node, error) {
	joined := quoteText(text)
	if c.opts.InlineQuotes {
		return c.container("blockquote", joined)
	}
	return Leaf("blockquote", joined), nil
}

func quoteText(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !strings.HasPrefix(line, ">") {
			continue
		}
		line = line[1:]
		if r, size := utf8.DecodeRuneInString(line); size > 0 && unicode.IsSpace(r) {
			line = line[size:]
		}
		lines[i] = line
	}
	return strings.Join(lines, " ")
}

func unorderedItem(line string) string {
	if strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "- ") {
		return line[2:]
	}
	return line
}

func (c *Converter) orderedItem(line string) string {
	if loc := c.itemMarker.FindStringIndex(line); loc != nil {
		return line[loc[1]:]
	}
	return line
}

func (c *Converter) list(tag, text string, item func(string) string) (*Node, error) {
	runs := listRuns(text, item)
	items := make([]*Node, 0, len(runs))
	for _, run := range runs {
		li, err := c.container("li", run)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return Container(tag, items...), nil
}

func listRuns(text string, item func(string) string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = item(line)
	}
	return lines
}

// InlineRuns returns the text runs Build inline-parses for b, block markers
// removed, one per child element. Code blocks and flat quotes have none.
func (c *Converter) InlineRuns(b Block) ([]string, error) {
	switch b.Kind {
	case Heading:
		_, run := headingRun(b.Text)
		return []string{run}, nil
	case CodeBlock:
		return nil, nil
	case Quote:
		if !c.opts.InlineQuotes {
			return nil, nil
		}
		return []string{quoteText(b.Text)}, nil
	case UnorderedList:
		return listRuns(b.Text, unorderedItem), nil
	case OrderedList:
		return listRuns(b.Text, c.orderedItem), nil
	case Paragraph:
		return []string{b.Text}, nil
	default:
		return nil, fmt.Errorf("%w: block %s", ErrUnknownKind, b.Kind)
	}
}

// container inline-parses text into the children of a tag.
func (c *Converter) container(tag, text string) (*Node, error) {
	children, err := c.inlineNodes(text)
	if err != nil {
		return nil, err
	}
	return Container(tag, children...), nil
}

func (c *Converter) inlineNodes(text string) ([]*Node, error) {
	spans := c.inline.Parse(text)
	if len(spans) == 0 {
		return []*Node{Leaf("", "")}, nil
	}
	nodes := make([]*Node, 0, len(spans))
	for _, s := range spans {
		n, err := SpanNode(s)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// SpanNode converts a span into its leaf node.
func SpanNode(s Span) (*Node, error) {
	switch s.Kind {
	case Plain:
		return Leaf("", s.Text), nil
	case Bold:
		return Leaf("b", s.Text), nil
	case Italic:
		return Leaf("i", s.Text), nil
	case Code:
		return Leaf("code", s.Text), nil
	case Link:
		return Leaf("a", s.Text, Attr{Key: "href", Value: s.URL}), nil
	case Image:
		return Leaf("img", "", Attr{Key: "src", Value: s.URL}, Attr{Key: "alt", Value: s.Text}), nil
	default:
		return nil, fmt.Errorf("%w: span %s", ErrUnknownKind, s.Kind)
	}
}

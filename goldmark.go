package md2html

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Engine selects how Render produces HTML.
type Engine int

const (
	// EngineBuiltin uses this package's block and inline parsers.
	EngineBuiltin Engine = iota
	// EngineGoldmark delegates to goldmark with GitHub Flavored Markdown.
	EngineGoldmark
)

func (e Engine) String() string {
	switch e {
	case EngineBuiltin:
		return "builtin"
	case EngineGoldmark:
		return "goldmark"
	default:
		return fmt.Sprintf("Engine(%d)", int(e))
	}
}

// EngineByName returns an engine by name ("builtin" or "goldmark").
func EngineByName(name string) (Engine, error) {
	switch strings.ToLower(name) {
	case "builtin", "":
		return EngineBuiltin, nil
	case "goldmark":
		return EngineGoldmark, nil
	default:
		return 0, errors.New("md2html: unknown engine: " + name)
	}
}

func newGoldmark() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

func (c *Converter) renderGoldmark(markdown string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("<div>")
	if err := c.gm.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("md2html: goldmark: %w", err)
	}
	buf.WriteString("</div>")
	return buf.String(), nil
}

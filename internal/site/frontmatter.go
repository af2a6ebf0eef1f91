package site

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/yaml.v3"
)

// Frontmatter is the optional YAML header of a content page.
type Frontmatter struct {
	Title       string
	Description string
	Date        time.Time
	Draft       bool
}

// ParseFrontmatter splits a leading "---" delimited YAML header off content.
// Content without a complete header is returned unchanged with an empty
// Frontmatter. Malformed YAML or an unparsable date is an error.
func ParseFrontmatter(content string) (Frontmatter, string, error) {
	var fm Frontmatter
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return fm, content, nil
	}
	lines := strings.Split(content, "\n")
	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closing = i
			break
		}
	}
	if closing == -1 {
		return fm, content, nil
	}

	var raw map[string]any
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:closing], "\n")), &raw); err != nil {
		return fm, content, fmt.Errorf("invalid frontmatter: %w", err)
	}
	if title, ok := raw["title"].(string); ok {
		fm.Title = strings.TrimSpace(title)
	}
	if desc, ok := raw["description"].(string); ok {
		fm.Description = strings.TrimSpace(desc)
	}
	if draft, ok := raw["draft"].(bool); ok {
		fm.Draft = draft
	}
	switch v := raw["date"].(type) {
	case time.Time:
		fm.Date = v
	case string:
		t, err := dateparse.ParseAny(v, dateparse.PreferMonthFirst(false))
		if err != nil {
			return fm, content, fmt.Errorf("invalid frontmatter date %q: %w", v, err)
		}
		fm.Date = t
	}
	return fm, strings.Join(lines[closing+1:], "\n"), nil
}

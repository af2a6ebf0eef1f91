// Package linkcheck finds internal links in a generated site that point at
// files which do not exist.
package linkcheck

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/npillmayer/schuko/tracing"

	"github.com/arran4/md2html/internal/config"
)

// tracer traces with key 'md2html.linkcheck'
func tracer() tracing.Trace {
	return tracing.Select("md2html.linkcheck")
}

// Broken is a link on Page whose Target does not resolve inside the site.
type Broken struct {
	Page   string // relative to the site root, slash separated
	Target string // as written in the page
}

func (b Broken) String() string {
	return fmt.Sprintf("%s: broken link %s", b.Page, b.Target)
}

// Check parses every .html file under root and reports a[href] and img[src]
// targets that are neither external nor present on disk. Root-relative
// targets must start with basePath. The result is sorted by page and target.
func Check(ctx context.Context, root, basePath string) ([]Broken, error) {
	basePath = config.NormalizeBasePath(basePath)
	var broken []Broken
	pages := 0
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		found, err := checkPage(root, filepath.ToSlash(rel), basePath)
		if err != nil {
			return err
		}
		pages++
		broken = append(broken, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].Page != broken[j].Page {
			return broken[i].Page < broken[j].Page
		}
		return broken[i].Target < broken[j].Target
	})
	tracer().Infof("checked %d pages, %d broken links", pages, len(broken))
	return broken, nil
}

func checkPage(root, page, basePath string) ([]Broken, error) {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(page)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", page, err)
	}

	var broken []Broken
	seen := map[string]bool{}
	doc.Find("a[href], img[src]").Each(func(_ int, s *goquery.Selection) {
		target, ok := s.Attr("href")
		if !ok {
			target, _ = s.Attr("src")
		}
		if seen[target] {
			return
		}
		seen[target] = true
		if !resolves(root, page, basePath, target) {
			tracer().Debugf("%s: missing %s", page, target)
			broken = append(broken, Broken{Page: page, Target: target})
		}
	})
	return broken, nil
}

// resolves reports whether target is external or names an existing file.
func resolves(root, page, basePath, target string) bool {
	target = strings.TrimSpace(target)
	if target == "" {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Scheme != "" || u.Host != "" {
		return true
	}
	if u.Path == "" {
		// fragment or query only
		return true
	}

	var rel string
	if strings.HasPrefix(u.Path, "/") {
		if !strings.HasPrefix(u.Path, basePath) && u.Path+"/" != basePath {
			return false
		}
		rel = strings.TrimPrefix(u.Path, strings.TrimSuffix(basePath, "/"))
	} else {
		rel = path.Join(path.Dir("/"+page), u.Path)
	}
	rel = path.Clean("/" + rel)
	if strings.HasSuffix(u.Path, "/") || rel == "/" {
		rel = path.Join(rel, "index.html")
	}

	candidates := []string{rel}
	if path.Ext(rel) == "" {
		candidates = append(candidates, rel+".html", path.Join(rel, "index.html"))
	}
	for _, c := range candidates {
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(c)))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

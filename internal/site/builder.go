// Package site turns a directory of Markdown pages into a static HTML site.
package site

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"github.com/arran4/md2html"
	"github.com/arran4/md2html/internal/config"
	"github.com/arran4/md2html/internal/linkcheck"
)

// DateLayout formats the {{ Date }} placeholder.
const DateLayout = "2006-01-02"

// ErrBrokenLinks is returned by Build when link checking finds problems.
var ErrBrokenLinks = errors.New("broken links")

// Report summarizes a build.
type Report struct {
	Pages    int
	Previews int
	Assets   int
	Bytes    uint64
	Skipped  []string // drafts, relative to the content directory
	Broken   []linkcheck.Broken
}

func (r *Report) String() string {
	return fmt.Sprintf("%d pages, %d previews, %d assets, %s written, %d drafts skipped",
		r.Pages, r.Previews, r.Assets, humanize.Bytes(r.Bytes), len(r.Skipped))
}

// Builder generates the public directory from content, static and the
// page template.
type Builder struct {
	cfg     *config.Config
	conv    *md2html.Converter
	preview *md2html.PreviewOptions
}

// New creates a Builder for cfg.
func New(cfg *config.Config) (*Builder, error) {
	engine, err := md2html.EngineByName(cfg.Engine)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		cfg:  cfg,
		conv: md2html.New(md2html.Options{Engine: engine, InlineQuotes: cfg.InlineQuotes}),
	}
	if cfg.Previews.Enabled {
		th, err := md2html.ThemeByName(cfg.Previews.Theme)
		if err != nil {
			return nil, err
		}
		// Fonts are left empty: faces are not safe to share between workers.
		b.preview = &md2html.PreviewOptions{
			Width:     cfg.Previews.Width,
			MaxHeight: cfg.Previews.MaxHeight,
			Theme:     th,
			BaseDir:   cfg.Static,
		}
	}
	return b, nil
}

// ---- Steps ----

// Clean removes the public directory.
func (b *Builder) Clean() error {
	tracer().Debugf("removing %s", b.cfg.Public)
	return os.RemoveAll(b.cfg.Public)
}

// CopyStatic mirrors the static directory into public. A missing static
// directory is not an error.
func (b *Builder) CopyStatic() (int, uint64, error) {
	if _, err := os.Stat(b.cfg.Static); errors.Is(err, fs.ErrNotExist) {
		tracer().Debugf("no static directory at %s", b.cfg.Static)
		return 0, 0, nil
	}
	return copyTree(b.cfg.Static, b.cfg.Public)
}

// GeneratePage renders the Markdown file src into dst using the configured
// template. It returns false when src is a draft that was skipped.
func (b *Builder) GeneratePage(src, dst string) (bool, error) {
	tmpl, err := os.ReadFile(b.cfg.Template)
	if err != nil {
		return false, fmt.Errorf("read template: %w", err)
	}
	p, err := b.generate(src, dst, string(tmpl))
	return p != nil, err
}

// GeneratePages walks the content directory with a bounded pool of workers.
// Every .md file becomes an .html file at the mirrored path; other files
// are copied as they are.
func (b *Builder) GeneratePages(ctx context.Context) (*Report, error) {
	tmpl, err := os.ReadFile(b.cfg.Template)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	type job struct{ src, dst, rel string }
	jobs := make(chan job)
	report := &Report{}
	var (
		mu       sync.Mutex
		errs     []error
		bytes    atomic.Uint64
		pages    atomic.Int64
		previews atomic.Int64
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	for i := 0; i < b.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				p, err := b.generate(j.src, j.dst, string(tmpl))
				if err != nil {
					fail(fmt.Errorf("%s: %w", j.rel, err))
					continue
				}
				if p == nil {
					mu.Lock()
					report.Skipped = append(report.Skipped, j.rel)
					mu.Unlock()
					continue
				}
				pages.Add(1)
				bytes.Add(p.bytes)
				if p.preview {
					previews.Add(1)
				}
			}
		}()
	}

	walkErr := filepath.WalkDir(b.cfg.Content, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(b.cfg.Content, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".md") {
			n, err := copyFile(path, filepath.Join(b.cfg.Public, rel))
			if err != nil {
				return err
			}
			bytes.Add(n)
			report.Assets++
			return nil
		}
		dst := filepath.Join(b.cfg.Public, strings.TrimSuffix(rel, filepath.Ext(rel))+".html")
		select {
		case jobs <- job{src: path, dst: dst, rel: filepath.ToSlash(rel)}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	close(jobs)
	wg.Wait()

	report.Pages = int(pages.Load())
	report.Previews = int(previews.Load())
	report.Bytes = bytes.Load()
	if walkErr != nil {
		errs = append([]error{walkErr}, errs...)
	}
	return report, errors.Join(errs...)
}

// Build cleans public, copies static files and generates every page. When
// check_links is set the generated site is checked and broken links are
// reported with ErrBrokenLinks.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	if err := b.Clean(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(b.cfg.Public, 0o755); err != nil {
		return nil, err
	}
	assets, n, err := b.CopyStatic()
	if err != nil {
		return nil, fmt.Errorf("copy static: %w", err)
	}
	report, err := b.GeneratePages(ctx)
	if report != nil {
		report.Assets += assets
		report.Bytes += n
	}
	if err != nil {
		return report, err
	}
	tracer().Infof("built %s: %s", b.cfg.Public, report)

	if b.cfg.CheckLinks {
		broken, err := linkcheck.Check(ctx, b.cfg.Public, b.cfg.BasePath)
		if err != nil {
			return report, fmt.Errorf("check links: %w", err)
		}
		report.Broken = broken
		if len(broken) > 0 {
			for _, l := range broken {
				tracer().Errorf("%s", l)
			}
			return report, fmt.Errorf("%w: %d found", ErrBrokenLinks, len(broken))
		}
	}
	return report, nil
}

// ---- Pages ----

type page struct {
	bytes   uint64
	preview bool
}

// generate returns nil for a skipped draft.
func (b *Builder) generate(src, dst, tmpl string) (*page, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	fm, body, err := ParseFrontmatter(string(data))
	if err != nil {
		return nil, err
	}
	if fm.Draft && !b.cfg.Drafts {
		tracer().Infof("skipping draft %s", src)
		return nil, nil
	}

	title, err := b.title(src, fm, body)
	if err != nil {
		return nil, err
	}
	content, err := b.conv.Render(body)
	if err != nil {
		return nil, err
	}
	date := ""
	if !fm.Date.IsZero() {
		date = fm.Date.Format(DateLayout)
	}

	out := strings.NewReplacer(
		"{{ Title }}", title,
		"{{ Content }}", content,
		"{{ Date }}", date,
		"{{ Description }}", fm.Description,
	).Replace(tmpl)
	out = RewriteBasePath(out, b.cfg.BasePath)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dst, []byte(out), 0o644); err != nil {
		return nil, err
	}
	p := &page{bytes: uint64(len(out))}
	tracer().Infof("generated %s (%s)", dst, humanize.Bytes(p.bytes))

	if b.preview != nil {
		n, err := b.writePreview(body, strings.TrimSuffix(dst, filepath.Ext(dst))+".png")
		if err != nil {
			return nil, fmt.Errorf("preview: %w", err)
		}
		p.bytes += n
		p.preview = true
	}
	return p, nil
}

func (b *Builder) title(src string, fm Frontmatter, body string) (string, error) {
	if fm.Title != "" {
		return fm.Title, nil
	}
	title, err := md2html.ExtractTitle(body)
	if err == nil {
		return title, nil
	}
	if errors.Is(err, md2html.ErrTitleNotFound) && b.cfg.Titles.Fallback == "filename" {
		return TitleFromFilename(src), nil
	}
	return "", err
}

func (b *Builder) writePreview(body, dst string) (uint64, error) {
	img, err := b.conv.Preview(body, *b.preview)
	if err != nil {
		return 0, err
	}
	f, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	cw := &countingWriter{w: f}
	if err := png.Encode(cw, img); err != nil {
		f.Close()
		return 0, err
	}
	return cw.n, f.Close()
}

// RewriteBasePath points root-relative href and src attributes at basePath.
// A missing trailing slash is added.
func RewriteBasePath(html, basePath string) string {
	basePath = config.NormalizeBasePath(basePath)
	if basePath == "/" {
		return html
	}
	return strings.NewReplacer(
		`href="/`, `href="`+basePath,
		`src="/`, `src="`+basePath,
	).Replace(html)
}

// ---- Files ----

type countingWriter struct {
	w io.Writer
	n uint64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += uint64(n)
	return n, err
}

func copyTree(from, to string) (int, uint64, error) {
	files := 0
	var total uint64
	err := filepath.WalkDir(from, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(from, path)
		if err != nil {
			return err
		}
		target := filepath.Join(to, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		n, err := copyFile(path, target)
		if err != nil {
			return err
		}
		files++
		total += n
		return nil
	})
	if err == nil {
		tracer().Debugf("copied %d files (%s) from %s", files, humanize.Bytes(total), from)
	}
	return files, total, err
}

func copyFile(src, dst string) (uint64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return uint64(n), err
}

package md2html

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

func TestWrapLinesPreservesIndentation(t *testing.T) {
	fonts, err := LoadFonts(FontConfig{SizeBase: 14})
	if err != nil {
		t.Fatalf("load fonts: %v", err)
	}
	text := "    spaced  out"
	lines := wrapLines(fonts.Mono, 14, text, 140)
	if len(lines) == 0 {
		t.Fatalf("expected at least one line")
	}
	if !strings.HasPrefix(lines[0], "    ") {
		t.Fatalf("expected leading spaces to be preserved, got %q", lines[0])
	}
	joined := strings.Join(lines, "")
	if !strings.Contains(joined, "  out") {
		t.Fatalf("expected double spaces inside wrapped lines to be preserved, got %q", joined)
	}

	long := "averyverylongtokenwithoutspaces"
	longLines := wrapLines(fonts.Mono, 14, long, 80)
	if len(longLines) < 2 {
		t.Fatalf("expected long token to wrap across multiple lines, got %v", longLines)
	}
}

func TestSplitTextPreserveSpaces(t *testing.T) {
	got := splitTextPreserveSpaces("a  bc d")
	want := []string{"a", "  ", "bc", " ", "d"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func writeTestPNG(t *testing.T, dir, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{0x20, 0x80, 0x20, 0xFF})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestPreviewDrawsEveryBlockKind(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "md2html")
	defer teardown()

	dir := t.TempDir()
	writeTestPNG(t, dir, "logo.png")
	markdown := `# Title

Paragraph with **bold**, _italic_, ` + "`code`" + ` and a [link](https://example.com).

![logo](/logo.png) ![missing](/nope.png)

- Item one
- Item two

1. First
2. Second

> quoted text

` + "```\nfunc main() {}\n```"

	img, err := New(Options{}).Preview(markdown, PreviewOptions{Width: 640, BaseDir: dir})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if img.Bounds().Dx() != 640 {
		t.Fatalf("expected width 640, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() <= 48+50 {
		t.Fatalf("expected content to extend the image, got height %d", img.Bounds().Dy())
	}
}

func TestPreviewUnsupportedAndErrors(t *testing.T) {
	root := Container("div", Container("table", Leaf("", "x")))
	img, err := Preview(root, PreviewOptions{})
	if err != nil {
		t.Fatalf("unsupported tags should not fail: %v", err)
	}
	if img == nil || img.Bounds() == (image.Rectangle{}) {
		t.Fatalf("expected non-empty image")
	}

	_, err = Preview(Leaf("p", "x"), PreviewOptions{})
	if !errors.Is(err, ErrStructure) {
		t.Fatalf("expected structural error for leaf root, got %v", err)
	}
}

func TestPreviewThemeAndCrop(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("A paragraph that takes up some room.\n\n")
	}
	img, err := New(Options{}).Preview(b.String(), PreviewOptions{Theme: DarkTheme, MaxHeight: 300})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if img.Bounds().Dy() != 300 {
		t.Fatalf("expected crop to 300px, got %d", img.Bounds().Dy())
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0x12, 0x12, 0x14, 0xFF}) {
		t.Fatalf("expected dark background, got %v", got)
	}
}

func TestFootnoteNumbering(t *testing.T) {
	p := &previewer{}
	if p.ensureFootnote("a") != 1 || p.ensureFootnote("b") != 2 || p.ensureFootnote("a") != 1 {
		t.Fatalf("footnotes not deduplicated: %v", p.footnotes)
	}
	if p.ensureFootnote("  ") != 0 {
		t.Fatalf("blank destination should not get a footnote")
	}
}

func TestThemeByName(t *testing.T) {
	if th, err := ThemeByName("DARK"); err != nil || th != DarkTheme {
		t.Fatalf("expected dark theme, got %v %v", th, err)
	}
	if _, err := ThemeByName("sepia"); err == nil {
		t.Fatalf("expected error for unknown theme")
	}
}

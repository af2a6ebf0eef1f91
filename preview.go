package md2html

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// Raster previews of a render tree.
// Used for page thumbnails and social cards; draws the same element set the
// HTML renderer emits (headings, paragraphs, lists, pre/code, blockquote,
// inline b/i/code/a/img). Anything else is drawn as a warning line.

// ---- Styles & theme ----

type Theme struct {
	BG       color.Color
	FG       color.Color
	CodeBG   color.Color
	QuoteBar color.Color
	HRule    color.Color
}

var (
	// Light theme defaults
	lightTheme = Theme{
		BG:       color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		FG:       color.RGBA{0x11, 0x11, 0x11, 0xFF},
		CodeBG:   color.RGBA{0xF5, 0xF5, 0xF7, 0xFF},
		QuoteBar: color.RGBA{0xCC, 0xCC, 0xCC, 0xFF},
		HRule:    color.RGBA{0xDD, 0xDD, 0xDD, 0xFF},
	}
	// Dark theme defaults
	darkTheme = Theme{
		BG:       color.RGBA{0x12, 0x12, 0x14, 0xFF},
		FG:       color.RGBA{0xEE, 0xEE, 0xF0, 0xFF},
		CodeBG:   color.RGBA{0x1E, 0x1E, 0x22, 0xFF},
		QuoteBar: color.RGBA{0x44, 0x44, 0x48, 0xFF},
		HRule:    color.RGBA{0x33, 0x33, 0x36, 0xFF},
	}
	linkColor    = color.RGBA{0x06, 0x4F, 0xBD, 0xFF}
	warningColor = color.RGBA{0xD9, 0x51, 0x2C, 0xFF}
)

// ---- Font loading ----

type FontAndFace struct {
	Font     *truetype.Font
	Face     font.Face
	baseSize float64
}

type Fonts struct {
	Regular *FontAndFace
	Bold    *FontAndFace
	Italic  *FontAndFace
	Mono    *FontAndFace
}

func (f Fonts) complete() bool {
	return f.Regular != nil && f.Bold != nil && f.Italic != nil && f.Mono != nil
}

type FontConfig struct {
	RegularPath string
	BoldPath    string
	ItalicPath  string
	MonoPath    string
	SizeBase    float64 // paragraph font size in pt
}

func loadFontAndFace(ttfBytes []byte, size float64) (*FontAndFace, error) {
	ft, err := truetype.Parse(ttfBytes)
	if err != nil {
		return nil, err
	}
	face := truetype.NewFace(ft, &truetype.Options{Size: size, DPI: 96, Hinting: font.HintingFull})
	return &FontAndFace{
		Font:     ft,
		Face:     face,
		baseSize: size,
	}, nil
}

// loadFace reads path when set, otherwise uses the bundled fallback.
func loadFace(path string, fallback []byte, size float64) (*FontAndFace, error) {
	if path == "" {
		return loadFontAndFace(fallback, size)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return loadFontAndFace(b, size)
}

func loadFonts(cfg FontConfig) (Fonts, error) {
	var f Fonts
	var err error
	if f.Regular, err = loadFace(cfg.RegularPath, goregular.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Bold, err = loadFace(cfg.BoldPath, gobold.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Italic, err = loadFace(cfg.ItalicPath, goitalic.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	if f.Mono, err = loadFace(cfg.MonoPath, gomono.TTF, cfg.SizeBase); err != nil {
		return f, err
	}
	return f, nil
}

// ---- Layout primitives ----

type canvas struct {
	img     *image.RGBA
	dc      *freetype.Context
	w, h    int
	margin  int
	cursorY int
	th      Theme
	fonts   Fonts
	ptSize  float64
}

func newCanvas(width int, margin int, th Theme, fonts Fonts, ptSize float64) *canvas {
	// Start tall; we'll crop later
	img := image.NewRGBA(image.Rect(0, 0, width, 4096*2))
	dc := freetype.NewContext()
	dc.SetDPI(96)
	dc.SetClip(img.Bounds())
	dc.SetDst(img)
	dc.SetSrc(image.NewUniform(th.FG))
	dc.SetFont(nil)
	dc.SetFontSize(ptSize)

	draw.Draw(img, img.Bounds(), image.NewUniform(th.BG), image.Point{}, draw.Src)

	return &canvas{
		img:     img,
		dc:      dc,
		w:       width,
		h:       img.Bounds().Dy(),
		margin:  margin,
		cursorY: margin,
		th:      th,
		fonts:   fonts,
		ptSize:  ptSize,
	}
}

func (c *canvas) setFace(fnt *FontAndFace, color color.Color, size float64) {
	c.dc.SetFontSize(size)
	c.dc.SetSrc(image.NewUniform(color))
	c.dc.SetFont(fnt.Font)
}

func measureWidth(fnt *FontAndFace, size float64, s string) float64 {
	if fnt == nil || s == "" {
		return 0
	}
	// freetype.Context lacks a direct width measurement; approximate using font.Drawer
	var d font.Drawer
	d.Face = fnt.Face
	d.Src = image.NewUniform(color.Black)
	width := float64(d.MeasureString(s).Round())
	base := fnt.baseSize
	if base <= 0 {
		base = size
	}
	if base <= 0 {
		base = 1
	}
	if size <= 0 {
		size = base
	}
	if size != base {
		width *= size / base
	}
	return width
}

func (c *canvas) addVSpace(px int) { c.cursorY += px }

func (c *canvas) drawBlockquoteBar(topY, height int) {
	x0 := c.margin
	rect := image.Rect(x0, topY, x0+4, topY+height)
	draw.Draw(c.img, rect, image.NewUniform(c.th.QuoteBar), image.Point{}, draw.Src)
}

func (c *canvas) drawRule() {
	y := c.cursorY + 4
	rect := image.Rect(c.margin, y, c.w-c.margin, y+2)
	draw.Draw(c.img, rect, image.NewUniform(c.th.HRule), image.Point{}, draw.Src)
	c.cursorY = y + 10
}

func (c *canvas) drawCodeBlock(text string, left, right int, size float64) {
	pad := 10
	top := c.cursorY
	mono := c.fonts.Mono
	lines := wrapLines(mono, size, text, float64(right-left-2*pad))
	lineHeight := int(size * 1.4)
	height := len(lines)*lineHeight + 2*pad + 6
	rect := image.Rect(left, top, right, top+height)
	draw.Draw(c.img, rect, image.NewUniform(c.th.CodeBG), image.Point{}, draw.Src)

	c.setFace(mono, c.th.FG, size)
	y := top + pad + int(size)
	for _, ln := range lines {
		pt := freetype.Pt(left+pad, y)
		_, _ = c.dc.DrawString(ln, pt)
		y += lineHeight
	}
	c.cursorY = top + height + 6
}

func scaleImageToWidth(img image.Image, maxWidth int) image.Image {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	if maxWidth <= 0 || bounds.Dx() <= maxWidth {
		return img
	}
	scale := float64(maxWidth) / float64(bounds.Dx())
	height := int(float64(bounds.Dy()) * scale)
	if height <= 0 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// wrapLines breaks code text to maxWidth, keeping indentation and runs of
// spaces intact.
func wrapLines(ff *FontAndFace, size float64, text string, maxWidth float64) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Split(bufio.ScanLines)
	for scanner.Scan() {
		ln := scanner.Text()
		if ln == "" {
			lines = append(lines, "")
			continue
		}
		if maxWidth <= 0 || measureWidth(ff, size, ln) <= maxWidth {
			lines = append(lines, ln)
			continue
		}
		lines = append(lines, wrapLinePreservingSpaces(ff, size, ln, maxWidth)...)
	}
	if len(lines) == 0 {
		lines = append(lines, "")
	}
	return lines
}

func wrapLinePreservingSpaces(ff *FontAndFace, size float64, line string, maxWidth float64) []string {
	if line == "" {
		return []string{""}
	}
	var result []string
	var current strings.Builder
	var currentWidth float64

	flush := func() {
		result = append(result, current.String())
		current.Reset()
		currentWidth = 0
	}

	for _, token := range splitTextPreserveSpaces(line) {
		tokenWidth := measureWidth(ff, size, token)
		if tokenWidth > maxWidth {
			if current.Len() > 0 {
				flush()
			}
			result = append(result, breakLongToken(ff, size, token, maxWidth)...)
			continue
		}
		if currentWidth+tokenWidth > maxWidth && current.Len() > 0 {
			flush()
		}
		current.WriteString(token)
		currentWidth += tokenWidth
	}
	if current.Len() > 0 {
		flush()
	}
	if len(result) == 0 {
		result = append(result, "")
	}
	return result
}

func breakLongToken(ff *FontAndFace, size float64, token string, maxWidth float64) []string {
	var parts []string
	var current strings.Builder
	var width float64
	for _, r := range token {
		ch := string(r)
		charWidth := measureWidth(ff, size, ch)
		if width+charWidth > maxWidth && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			width = 0
		}
		current.WriteString(ch)
		width += charWidth
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	if len(parts) == 0 {
		parts = append(parts, token)
	}
	return parts
}

// splitTextPreserveSpaces splits s into alternating runs of space and
// non-space runes.
func splitTextPreserveSpaces(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	var current strings.Builder
	lastSpace := false
	for i, r := range s {
		space := unicode.IsSpace(r)
		if i > 0 && space != lastSpace {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
		lastSpace = space
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

type textToken struct {
	text      string
	font      *FontAndFace
	size      float64
	color     color.Color
	underline bool
	newline   bool
	image     image.Image
	center    bool
}

type styledWord struct {
	text      string
	font      *FontAndFace
	size      float64
	color     color.Color
	underline bool
}

type lineMetric struct {
	baseline int
	height   int
}

func (c *canvas) drawTokens(tokens []textToken, left, right int) []lineMetric {
	if len(tokens) == 0 {
		return nil
	}
	maxWidth := float64(right - left)
	var line []styledWord
	var lineWidth float64
	var lineMaxSize float64
	var metrics []lineMetric

	flush := func(force bool) {
		if len(line) == 0 {
			if force {
				heightSize := lineMaxSize
				if heightSize == 0 {
					heightSize = c.ptSize
				}
				c.cursorY += int(heightSize * 1.4)
			}
			return
		}
		baselineSize := lineMaxSize
		if baselineSize == 0 {
			baselineSize = c.ptSize
		}
		baseline := c.cursorY + int(baselineSize)
		x := left
		for _, w := range line {
			if w.font == nil {
				w.font = c.fonts.Regular
			}
			c.setFace(w.font, w.color, w.size)
			_, _ = c.dc.DrawString(w.text, freetype.Pt(x, baseline))
			width := int(measureWidth(w.font, w.size, w.text))
			if w.underline && width > 0 {
				underlineY := baseline + int(w.size*0.12)
				if underlineY <= baseline {
					underlineY = baseline + 1
				}
				rect := image.Rect(x, underlineY, x+width, underlineY+1)
				draw.Draw(c.img, rect, image.NewUniform(w.color), image.Point{}, draw.Src)
			}
			x += width
		}
		lineHeight := int(baselineSize * 1.4)
		if lineHeight <= 0 {
			lineHeight = int(c.ptSize * 1.4)
		}
		metrics = append(metrics, lineMetric{baseline: baseline, height: lineHeight})
		c.cursorY += lineHeight
		line = line[:0]
		lineWidth = 0
		lineMaxSize = 0
	}

	for _, tok := range tokens {
		if tok.newline {
			flush(true)
			continue
		}
		if tok.image != nil {
			flush(false)
			metrics = append(metrics, c.drawImage(tok, left, int(maxWidth)))
			continue
		}
		font := tok.font
		if font == nil {
			font = c.fonts.Regular
		}
		for _, seg := range splitTextPreserveSpaces(tok.text) {
			segWidth := measureWidth(font, tok.size, seg)
			word := styledWord{text: seg, font: font, size: tok.size, color: tok.color, underline: tok.underline}
			if unicode.IsSpace([]rune(seg)[0]) {
				if len(line) == 0 {
					continue
				}
				line = append(line, word)
				lineWidth += segWidth
				continue
			}
			if lineWidth+segWidth > maxWidth && len(line) > 0 {
				flush(false)
			}
			line = append(line, word)
			if tok.size > lineMaxSize {
				lineMaxSize = tok.size
			}
			lineWidth += segWidth
		}
	}
	flush(false)
	return metrics
}

func (c *canvas) drawImage(tok textToken, left, maxWidth int) lineMetric {
	img := tok.image
	if b := img.Bounds(); maxWidth > 0 && b.Dx() > maxWidth {
		img = scaleImageToWidth(img, maxWidth)
	}
	bounds := img.Bounds()
	startY := c.cursorY
	x := left
	if tok.center && maxWidth > bounds.Dx() {
		x += (maxWidth - bounds.Dx()) / 2
	}
	rect := image.Rect(x, startY, x+bounds.Dx(), startY+bounds.Dy())
	draw.Draw(c.img, rect, img, bounds.Min, draw.Over)
	baseline := startY + int(c.ptSize)
	if baseline > rect.Max.Y {
		baseline = rect.Max.Y
	}
	c.cursorY += bounds.Dy() + int(c.ptSize*0.6)
	return lineMetric{baseline: baseline, height: bounds.Dy()}
}

// ---- Render tree -> draw ----

type previewer struct {
	c              *canvas
	baseSize       float64
	linkFootnotes  bool
	imageFootnotes bool
	footnoteIndex  map[string]int
	footnotes      []string
	baseDir        string
	imageCache     map[string]image.Image
	imageResolvers map[string]imageResolver
	httpClient     *http.Client
}

type imageResolver func(dest string) (cacheKey string, loader func() (image.Image, error), err error)

const (
	listMarkerWidth = 28
	listMarkerGap   = 8
)

func (p *previewer) ensureFootnote(raw string) int {
	if strings.TrimSpace(raw) == "" {
		return 0
	}
	if p.footnoteIndex == nil {
		p.footnoteIndex = make(map[string]int)
	}
	if idx, ok := p.footnoteIndex[raw]; ok {
		return idx
	}
	idx := len(p.footnotes) + 1
	p.footnoteIndex[raw] = idx
	p.footnotes = append(p.footnotes, raw)
	return idx
}

func (p *previewer) appendFootnoteMarker(out *[]textToken, size float64, index int) {
	if index <= 0 {
		return
	}
	markerSize := size * 0.75
	if markerSize <= 0 {
		markerSize = p.baseSize * 0.75
	}
	*out = append(*out, textToken{
		text:  fmt.Sprintf("[%d]", index),
		font:  p.c.fonts.Regular,
		size:  markerSize,
		color: p.c.th.FG,
	})
}

func (p *previewer) ensureImageResolvers() {
	if p.httpClient == nil {
		p.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if p.imageResolvers != nil {
		return
	}
	p.imageResolvers = map[string]imageResolver{
		"":      p.resolveLocalImage,
		"file":  p.resolveLocalImage,
		"http":  p.resolveRemoteImage,
		"https": p.resolveRemoteImage,
	}
}

func (p *previewer) loadImage(dest string) (image.Image, error) {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return nil, errors.New("md2html: empty image source")
	}
	p.ensureImageResolvers()
	scheme := ""
	if idx := strings.Index(dest, "://"); idx != -1 {
		scheme = strings.ToLower(dest[:idx])
	}
	resolver, ok := p.imageResolvers[scheme]
	if !ok {
		return nil, fmt.Errorf("md2html: unsupported image scheme: %s", scheme)
	}
	cacheKey, loader, err := resolver(dest)
	if err != nil {
		return nil, err
	}
	if cacheKey == "" {
		cacheKey = dest
	}
	if img, ok := p.imageCache[cacheKey]; ok {
		return img, nil
	}
	if loader == nil {
		return nil, fmt.Errorf("md2html: resolver for %q returned nil loader", dest)
	}
	img, err := loader()
	if err != nil {
		return nil, err
	}
	if p.imageCache == nil {
		p.imageCache = make(map[string]image.Image)
	}
	p.imageCache[cacheKey] = img
	return img, nil
}

// resolveLocalImage resolves image sources against baseDir. Site paths such
// as "/images/a.png" are relative to baseDir; only file:// URLs may be
// absolute.
func (p *previewer) resolveLocalImage(dest string) (string, func() (image.Image, error), error) {
	raw := strings.TrimSpace(dest)
	path := strings.TrimPrefix(raw, "file://")
	if base := strings.TrimSpace(p.baseDir); base != "" && (path == raw || !filepath.IsAbs(path)) {
		path = filepath.Join(base, path)
	}
	cleaned := filepath.Clean(path)
	if abs, err := filepath.Abs(cleaned); err == nil {
		cleaned = abs
	}
	loader := func() (image.Image, error) {
		f, err := os.Open(cleaned)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
	return cleaned, loader, nil
}

func (p *previewer) resolveRemoteImage(dest string) (string, func() (image.Image, error), error) {
	url := strings.TrimSpace(dest)
	loader := func() (image.Image, error) {
		resp, err := p.httpClient.Get(url)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("md2html: fetching image %s: %s", url, resp.Status)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	}
	return url, loader, nil
}

// collectInlineTokens turns inline nodes into drawable tokens.
func (p *previewer) collectInlineTokens(nodes []*Node, fnt *FontAndFace, size float64, col color.Color, out *[]textToken) {
	if fnt == nil {
		fnt = p.c.fonts.Regular
	}
	for _, n := range nodes {
		if !n.IsLeaf() {
			p.collectInlineTokens(n.Children, fnt, size, col, out)
			continue
		}
		switch n.Tag {
		case "b":
			p.appendText(out, n.Value, p.c.fonts.Bold, size, col, false)
		case "i":
			p.appendText(out, n.Value, p.c.fonts.Italic, size, col, false)
		case "code":
			p.appendText(out, n.Value, p.c.fonts.Mono, size*0.95, col, false)
		case "a":
			p.appendText(out, n.Value, fnt, size, linkColor, true)
			if p.linkFootnotes {
				href, _ := n.Attr("href")
				p.appendFootnoteMarker(out, size, p.ensureFootnote(href))
			}
		case "img":
			src, _ := n.Attr("src")
			alt, _ := n.Attr("alt")
			if img, err := p.loadImage(src); err == nil {
				*out = append(*out, textToken{image: img, center: true})
			} else {
				tracer().Infof("preview: image %q not drawn: %v", src, err)
				fallback, fallbackColor := strings.TrimSpace(alt), p.c.th.FG
				if fallback == "" {
					fallback, fallbackColor = src, warningColor
				}
				p.appendText(out, fallback, fnt, size, fallbackColor, false)
			}
			if p.imageFootnotes {
				p.appendFootnoteMarker(out, size, p.ensureFootnote(src))
			}
		default:
			p.appendText(out, n.Value, fnt, size, col, false)
		}
	}
}

// appendText splits value on newlines so that hard breaks survive.
func (p *previewer) appendText(out *[]textToken, value string, fnt *FontAndFace, size float64, col color.Color, underline bool) {
	parts := strings.Split(value, "\n")
	for i, part := range parts {
		if part != "" {
			*out = append(*out, textToken{text: part, font: fnt, size: size, color: col, underline: underline})
		}
		if i < len(parts)-1 {
			*out = append(*out, textToken{newline: true})
		}
	}
}

func (p *previewer) drawListMarker(marker string, baseline int) {
	fnt := p.c.fonts.Regular
	p.c.setFace(fnt, p.c.th.FG, p.baseSize)
	markerLeft := p.c.margin
	markerRight := markerLeft + listMarkerWidth
	x := markerRight - int(measureWidth(fnt, p.baseSize, marker))
	if x < markerLeft {
		x = markerLeft
	}
	_, _ = p.c.dc.DrawString(marker, freetype.Pt(x, baseline))
}

func (p *previewer) renderList(list *Node) {
	contentLeft := p.c.margin + listMarkerWidth + listMarkerGap
	itemSpacing := int(p.baseSize * 0.6)
	for i, item := range list.Children {
		marker := "•"
		if list.Tag == "ol" {
			marker = strconv.Itoa(i+1) + "."
		}
		startY := p.c.cursorY
		var tokens []textToken
		p.collectInlineTokens([]*Node{item}, p.c.fonts.Regular, p.baseSize, p.c.th.FG, &tokens)
		metrics := p.c.drawTokens(tokens, contentLeft, p.c.w-p.c.margin)
		if len(metrics) > 0 {
			p.drawListMarker(marker, metrics[0].baseline)
		} else {
			p.drawListMarker(marker, startY+int(p.baseSize))
			p.c.addVSpace(int(p.baseSize * 1.4))
		}
		if i < len(list.Children)-1 {
			p.c.addVSpace(itemSpacing)
		}
	}
	p.c.addVSpace(int(p.baseSize * 0.7))
}

func (p *previewer) headingSize(level int) float64 {
	switch level { // simple scale
	case 1:
		return p.baseSize * 1.9
	case 2:
		return p.baseSize * 1.6
	case 3:
		return p.baseSize * 1.4
	case 4:
		return p.baseSize * 1.25
	default:
		return p.baseSize * 1.15
	}
}

func (p *previewer) renderUnsupported(n *Node) {
	msg := fmt.Sprintf("⚠ Unsupported: <%s>", n.Tag)
	tokens := []textToken{{text: msg, font: p.c.fonts.Regular, size: p.baseSize * 0.9, color: warningColor}}
	_ = p.c.drawTokens(tokens, p.c.margin, p.c.w-p.c.margin)
	p.c.addVSpace(int(p.baseSize * 0.6))
}

func (p *previewer) drawFootnotes() {
	if len(p.footnotes) == 0 {
		return
	}
	p.c.drawRule()
	noteSize := p.baseSize * 0.85
	for i, note := range p.footnotes {
		label := fmt.Sprintf("[%d] %s", i+1, note)
		tokens := []textToken{{text: label, font: p.c.fonts.Regular, size: noteSize, color: p.c.th.FG}}
		_ = p.c.drawTokens(tokens, p.c.margin, p.c.w-p.c.margin)
	}
}

func (p *previewer) render(root *Node) error {
	if root == nil || root.IsLeaf() {
		return &StructuralError{Reason: "preview needs a container root"}
	}
	for _, n := range root.Children {
		switch {
		case len(n.Tag) == 2 && n.Tag[0] == 'h' && n.Tag[1] >= '1' && n.Tag[1] <= '6':
			size := p.headingSize(int(n.Tag[1] - '0'))
			var tokens []textToken
			p.collectInlineTokens(n.Children, p.c.fonts.Bold, size, p.c.th.FG, &tokens)
			p.c.addVSpace(int(p.baseSize * 0.75))
			_ = p.c.drawTokens(tokens, p.c.margin, p.c.w-p.c.margin)
			p.c.addVSpace(int(p.baseSize * 0.5))
		case n.Tag == "p":
			var tokens []textToken
			p.collectInlineTokens(n.Children, p.c.fonts.Regular, p.baseSize, p.c.th.FG, &tokens)
			if len(tokens) > 0 {
				_ = p.c.drawTokens(tokens, p.c.margin, p.c.w-p.c.margin)
				p.c.addVSpace(int(p.baseSize * 0.9))
			}
		case n.Tag == "ul" || n.Tag == "ol":
			p.renderList(n)
		case n.Tag == "pre":
			p.c.addVSpace(4)
			p.c.drawCodeBlock(n.Text(), p.c.margin, p.c.w-p.c.margin, p.baseSize*0.95)
		case n.Tag == "blockquote":
			startY := p.c.cursorY
			var tokens []textToken
			p.collectInlineTokens([]*Node{n}, p.c.fonts.Regular, p.baseSize, p.c.th.FG, &tokens)
			if len(tokens) > 0 {
				p.c.addVSpace(2)
				_ = p.c.drawTokens(tokens, p.c.margin+10, p.c.w-p.c.margin)
				p.c.addVSpace(6)
				p.c.drawBlockquoteBar(startY+2, p.c.cursorY-startY-2)
			}
		default:
			p.renderUnsupported(n)
		}
	}
	p.drawFootnotes()
	return nil
}

// ---- Library entry points ----

// LightTheme and DarkTheme expose the built-in themes for convenience.
var (
	LightTheme = lightTheme
	DarkTheme  = darkTheme
)

// ThemeByName returns a built-in theme by name ("light" or "dark").
func ThemeByName(name string) (Theme, error) {
	switch strings.ToLower(name) {
	case "light", "":
		return lightTheme, nil
	case "dark":
		return darkTheme, nil
	default:
		return Theme{}, errors.New("md2html: unknown theme: " + name)
	}
}

// LoadFonts returns a Fonts set using the provided FontConfig. When no
// custom paths are supplied it falls back to Go's bundled fonts.
func LoadFonts(cfg FontConfig) (Fonts, error) {
	return loadFonts(cfg)
}

// PreviewOptions configure how a render tree is drawn.
type PreviewOptions struct {
	Width          int
	Margin         int
	BaseFontSize   float64
	Theme          Theme
	Fonts          Fonts
	LinkFootnotes  *bool
	ImageFootnotes *bool
	// BaseDir resolves relative and root-relative image sources.
	BaseDir string
	// MaxHeight crops the result; zero keeps the full document.
	MaxHeight int
}

// Preview draws root into a raster image. Zero values enable sensible
// defaults (1024px width, 48px margin, 16pt base font, light theme, bundled
// fonts).
func Preview(root *Node, opts PreviewOptions) (*image.RGBA, error) {
	if opts.Width <= 0 {
		opts.Width = 1024
	}
	if opts.Margin <= 0 {
		opts.Margin = 48
	}
	if opts.BaseFontSize <= 0 {
		opts.BaseFontSize = 16
	}
	if (opts.Theme == Theme{}) {
		opts.Theme = lightTheme
	}

	// Fill in missing fonts using the bundled defaults.
	if !opts.Fonts.complete() {
		fallback, err := LoadFonts(FontConfig{SizeBase: opts.BaseFontSize})
		if err != nil {
			return nil, err
		}
		if opts.Fonts.Regular == nil {
			opts.Fonts.Regular = fallback.Regular
		}
		if opts.Fonts.Bold == nil {
			opts.Fonts.Bold = fallback.Bold
		}
		if opts.Fonts.Italic == nil {
			opts.Fonts.Italic = fallback.Italic
		}
		if opts.Fonts.Mono == nil {
			opts.Fonts.Mono = fallback.Mono
		}
	}

	linkFootnotes := true
	if opts.LinkFootnotes != nil {
		linkFootnotes = *opts.LinkFootnotes
	}
	imageFootnotes := false
	if opts.ImageFootnotes != nil {
		imageFootnotes = *opts.ImageFootnotes
	}

	baseDir := strings.TrimSpace(opts.BaseDir)
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	} else if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	c := newCanvas(opts.Width, opts.Margin, opts.Theme, opts.Fonts, opts.BaseFontSize)
	p := &previewer{
		c:              c,
		baseSize:       opts.BaseFontSize,
		linkFootnotes:  linkFootnotes,
		imageFootnotes: imageFootnotes,
		baseDir:        baseDir,
	}
	p.ensureImageResolvers()
	if err := p.render(root); err != nil {
		return nil, err
	}

	used := c.cursorY + opts.Margin
	if used < opts.Margin+50 {
		used = opts.Margin + 50
	}
	if used > c.h {
		used = c.h
	}
	if opts.MaxHeight > 0 && used > opts.MaxHeight {
		used = opts.MaxHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, opts.Width, used))
	draw.Draw(img, img.Bounds(), c.img, image.Point{}, draw.Src)
	return img, nil
}

// Preview converts markdown with the built-in parser and draws it.
func (c *Converter) Preview(markdown string, opts PreviewOptions) (*image.RGBA, error) {
	root, err := c.Convert(markdown)
	if err != nil {
		return nil, err
	}
	return Preview(root, opts)
}

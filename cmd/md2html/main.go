package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/k0kubun/pp"
	"github.com/npillmayer/schuko/schukonf/testconfig"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/npillmayer/schuko/tracing/trace2go"

	"github.com/arran4/md2html"
	"github.com/arran4/md2html/internal/config"
	"github.com/arran4/md2html/internal/linkcheck"
	"github.com/arran4/md2html/internal/serve"
	"github.com/arran4/md2html/internal/site"
	"github.com/arran4/md2html/internal/watch"
)

// Version is set at build time via -ldflags "-X main.Version=..."
var Version = "dev"

// traceKeys are the tracers configured by the CLI.
var traceKeys = []string{
	"md2html",
	"md2html.site",
	"md2html.watch",
	"md2html.serve",
	"md2html.linkcheck",
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr, os.Getenv); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	_, _ = os.Stderr.WriteString("md2html: " + err.Error() + "\n")
	os.Exit(1)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) error {
	cmd := "build"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "build":
		return runBuild(ctx, args, stdout, stderr, getenv)
	case "watch":
		return runWatch(ctx, args, stdout, stderr, getenv, false)
	case "serve":
		return runWatch(ctx, args, stdout, stderr, getenv, true)
	case "check":
		return runCheck(ctx, args, stdout, stderr, getenv)
	case "render":
		return runRender(args, stdin, stdout, stderr)
	case "title":
		return runTitle(args, stdin, stdout, stderr)
	case "dump":
		return runDump(args, stdin, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "md2html version %s\n", Version)
		return nil
	case "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: md2html [command] [flags]

Commands:
  build     generate the site (default)
  watch     generate the site and rebuild on changes
  serve     like watch, and serve the site over HTTP
  check     report broken internal links in the generated site
  render    convert one Markdown file to HTML or an image
  title     print the title of one Markdown file
  dump      print the blocks and spans of one Markdown file
  version   print the version

Run 'md2html <command> -h' for the flags of a command.
`)
}

// ---- Tracing ----

func setupTracing(level string) {
	tracing.RegisterTraceAdapter("go", gologadapter.GetAdapter(), false)
	conf := testconfig.Conf{"tracing.adapter": "go"}
	for _, key := range traceKeys {
		conf["trace."+key] = "Info"
	}
	if err := trace2go.ConfigureRoot(conf, "trace", trace2go.ReplaceTracers(true)); err != nil {
		fmt.Fprintln(os.Stderr, "md2html: error configuring tracing")
	}
	tracing.SetTraceSelector(trace2go.Selector())
	for _, key := range traceKeys {
		t := tracing.Select(key)
		switch strings.ToLower(level) {
		case "debug":
			t.SetTraceLevel(tracing.LevelDebug)
		case "error":
			t.SetTraceLevel(tracing.LevelError)
		default:
			t.SetTraceLevel(tracing.LevelInfo)
		}
	}
}

// ---- Site commands ----

type siteFlags struct {
	config   *string
	basePath *string
	trace    *string
}

func newSiteFlags(name string, stderr io.Writer) (*flag.FlagSet, *siteFlags) {
	fs := flag.NewFlagSet("md2html "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs, &siteFlags{
		config:   fs.String("config", "", "Path to config file (default: $MD2HTML_CONFIG or ./md2html.yaml)"),
		basePath: fs.String("basepath", "", "Base path prepended to root-relative links, e.g. /repo/"),
		trace:    fs.String("trace", "", "Trace level [Debug|Info|Error] (default from config)"),
	}
}

// loadSite parses flags and loads the config. A single positional argument
// is taken as the base path.
func loadSite(fs *flag.FlagSet, sf *siteFlags, args []string, getenv func(string) string) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %v", fs.Args())
	}
	cfg, err := config.Load(*sf.config, getenv)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if fs.NArg() == 1 {
		cfg.BasePath = fs.Arg(0)
	}
	if *sf.basePath != "" {
		cfg.BasePath = *sf.basePath
	}
	cfg.BasePath = config.NormalizeBasePath(cfg.BasePath)
	if *sf.trace != "" {
		cfg.Logging.Level = strings.ToLower(*sf.trace)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	setupTracing(cfg.Logging.Level)
	return cfg, nil
}

func runBuild(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs, sf := newSiteFlags("build", stderr)
	cfg, err := loadSite(fs, sf, args, getenv)
	if err != nil {
		return flagError(err)
	}
	return build(ctx, cfg, stdout)
}

func build(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	b, err := site.New(cfg)
	if err != nil {
		return err
	}
	report, err := b.Build(ctx)
	if report != nil {
		for _, l := range report.Broken {
			fmt.Fprintln(stdout, l)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, report)
	return nil
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string, withServer bool) error {
	fs, sf := newSiteFlags("watch", stderr)
	addr := fs.String("addr", "", "Listen address for serve (default from config)")
	cfg, err := loadSite(fs, sf, args, getenv)
	if err != nil {
		return flagError(err)
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := build(ctx, cfg, stdout); err != nil {
		// keep watching so the next save can fix it
		fmt.Fprintln(stderr, "md2html:", err)
	}

	rebuild := make(chan struct{}, 1)
	w, err := watch.New([]string{cfg.Content, cfg.Static, cfg.Template}, watch.DefaultDebounce, func(string) {
		select {
		case rebuild <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() { errCh <- w.Run(ctx) }()
	if withServer {
		s, err := serve.Listen(cfg.Serve.Addr, serve.Handler(cfg.Public, cfg.BasePath, cfg.Serve.Compression))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "serving http://%s%s\n", s.Addr(), cfg.BasePath)
		go func() { errCh <- s.Serve(ctx) }()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if err != nil {
				return err
			}
		case <-rebuild:
			if err := build(ctx, cfg, stdout); err != nil {
				fmt.Fprintln(stderr, "md2html:", err)
			}
		}
	}
}

func runCheck(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs, sf := newSiteFlags("check", stderr)
	cfg, err := loadSite(fs, sf, args, getenv)
	if err != nil {
		return flagError(err)
	}
	broken, err := linkcheck.Check(ctx, cfg.Public, cfg.BasePath)
	if err != nil {
		return err
	}
	for _, l := range broken {
		fmt.Fprintln(stdout, l)
	}
	if len(broken) > 0 {
		return fmt.Errorf("%w: %d found", site.ErrBrokenLinks, len(broken))
	}
	return nil
}

// ---- File commands ----

func readInput(path string, stdin io.Reader) (string, error) {
	var data []byte
	var err error
	if path == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	return string(data), err
}

func runRender(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("md2html render", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "Input Markdown file (default: stdin if empty)")
	out := fs.String("out", "", "Output file: .html, .png or .jpg (default: HTML to stdout)")
	engine := fs.String("engine", "builtin", "HTML engine: builtin|goldmark")
	inlineQuotes := fs.Bool("inline-quotes", false, "Parse inline markup inside block quotes")
	width := fs.Int("width", 1024, "Output image width in pixels")
	margin := fs.Int("margin", 48, "Margin in pixels")
	pt := fs.Float64("pt", 16, "Base font size in points (paragraph)")
	theme := fs.String("theme", "light", "Theme: light|dark")
	fontRegular := fs.String("font", "", "Path to TTF for regular text (optional; default Go Regular)")
	fontBold := fs.String("fontbold", "", "Path to TTF for bold text (optional; default Go Bold)")
	fontItalic := fs.String("fontitalic", "", "Path to TTF for italic text (optional; default Go Italic)")
	fontMono := fs.String("fontmono", "", "Path to TTF for mono/code (optional; default Go Mono)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}

	e, err := md2html.EngineByName(*engine)
	if err != nil {
		return err
	}
	conv := md2html.New(md2html.Options{Engine: e, InlineQuotes: *inlineQuotes})
	markdown, err := readInput(*in, stdin)
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(*out))
	if *out == "" || ext == ".html" || ext == ".htm" {
		html, err := conv.Render(markdown)
		if err != nil {
			return err
		}
		if *out == "" {
			_, err = fmt.Fprintln(stdout, html)
			return err
		}
		return os.WriteFile(*out, []byte(html), 0o644)
	}

	th, err := md2html.ThemeByName(*theme)
	if err != nil {
		return err
	}
	fonts, err := md2html.LoadFonts(md2html.FontConfig{
		RegularPath: *fontRegular,
		BoldPath:    *fontBold,
		ItalicPath:  *fontItalic,
		MonoPath:    *fontMono,
		SizeBase:    *pt,
	})
	if err != nil {
		return err
	}
	baseDir := "."
	if *in != "" {
		baseDir = filepath.Dir(*in)
	}
	img, err := conv.Preview(markdown, md2html.PreviewOptions{
		Width:        *width,
		Margin:       *margin,
		BaseFontSize: *pt,
		Theme:        th,
		Fonts:        fonts,
		BaseDir:      baseDir,
	})
	if err != nil {
		return err
	}

	file, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer file.Close()
	switch ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 92})
	default:
		err = errors.New("unsupported output extension: " + ext)
	}
	if err != nil {
		return err
	}
	return file.Close()
}

func runTitle(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("md2html title", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "Input Markdown file (default: stdin if empty)")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	markdown, err := readInput(*in, stdin)
	if err != nil {
		return err
	}
	title, err := md2html.ExtractTitle(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, title)
	return err
}

type dumpBlock struct {
	Kind string
	Text string
	Runs []dumpRun
}

// dumpRun is one inline-parsed text run, block markers removed.
type dumpRun struct {
	Text  string
	Spans []dumpSpan
}

type dumpSpan struct {
	Kind string
	Text string
	URL  string
}

func runDump(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("md2html dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	in := fs.String("in", "", "Input Markdown file (default: stdin if empty)")
	color := fs.Bool("color", false, "Colorize output")
	if err := fs.Parse(args); err != nil {
		return flagError(err)
	}
	markdown, err := readInput(*in, stdin)
	if err != nil {
		return err
	}

	conv := md2html.New(md2html.Options{})
	var blocks []dumpBlock
	for _, b := range conv.Blocks(markdown) {
		db := dumpBlock{Kind: b.Kind.String(), Text: b.Text}
		runs, err := conv.InlineRuns(b)
		if err != nil {
			return err
		}
		for _, run := range runs {
			dr := dumpRun{Text: run}
			for _, s := range conv.Spans(run) {
				dr.Spans = append(dr.Spans, dumpSpan{Kind: s.Kind.String(), Text: s.Text, URL: s.URL})
			}
			db.Runs = append(db.Runs, dr)
		}
		blocks = append(blocks, db)
	}
	pp.ColoringEnabled = *color
	_, err = pp.Fprintln(stdout, blocks)
	return err
}

// flagError turns -h into a clean exit.
func flagError(err error) error {
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

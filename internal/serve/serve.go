// Package serve is a small development server for a generated site.
package serve

import (
	"compress/gzip"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzhttp"
	"github.com/npillmayer/schuko/tracing"

	"github.com/arran4/md2html/internal/config"
)

// tracer traces with key 'md2html.serve'
func tracer() tracing.Trace {
	return tracing.Select("md2html.serve")
}

// Handler serves the files under root at basePath. Requests outside
// basePath are redirected to it.
func Handler(root, basePath string, compression config.CompressionConfig) http.Handler {
	basePath = config.NormalizeBasePath(basePath)
	files := http.FileServer(http.Dir(root))
	var h http.Handler = files
	if basePath != "/" {
		prefix := strings.TrimSuffix(basePath, "/")
		mux := http.NewServeMux()
		mux.Handle(basePath, http.StripPrefix(prefix, files))
		mux.Handle("/", http.RedirectHandler(basePath, http.StatusFound))
		h = mux
	}
	return newRequestLogger(newCompressionHandler(h, compression))
}

// newCompressionHandler wraps h with gzip/zstd compression. It returns h
// unchanged when compression is disabled or the level is "none".
func newCompressionHandler(h http.Handler, cfg config.CompressionConfig) http.Handler {
	if !cfg.Enabled || cfg.Level == "none" {
		return h
	}
	var level int
	switch cfg.Level {
	case "fastest":
		level = gzip.BestSpeed
	case "best":
		level = gzip.BestCompression
	default:
		level = gzip.DefaultCompression
	}
	wrapper, err := gzhttp.NewWrapper(
		gzhttp.MinSize(cfg.MinSize),
		gzhttp.CompressionLevel(level),
	)
	if err != nil {
		tracer().Errorf("compression disabled: %v", err)
		return h
	}
	return wrapper(h)
}

// responseCapture wraps http.ResponseWriter to capture status and size
type responseCapture struct {
	http.ResponseWriter
	status int
	size   uint64
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.status = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	n, err := rc.ResponseWriter.Write(b)
	rc.size += uint64(n)
	return n, err
}

type requestLogger struct {
	handler http.Handler
}

func newRequestLogger(h http.Handler) *requestLogger {
	return &requestLogger{handler: h}
}

func (rl *requestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rc := &responseCapture{ResponseWriter: w}
	rl.handler.ServeHTTP(rc, r)
	if rc.status == 0 {
		rc.status = http.StatusOK
	}
	tracer().Infof("%s %s %d %s %s", r.Method, r.URL.Path, rc.status,
		humanize.Bytes(rc.size), time.Since(start).Round(time.Microsecond))
}

// Server serves a handler until its context is cancelled.
type Server struct {
	server   *http.Server
	listener net.Listener
}

// Listen binds addr. Use Addr to find the port when addr ends in ":0".
func Listen(addr string, h http.Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		server: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
	}, nil
}

// Addr is the bound address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		tracer().Infof("serving on http://%s", s.Addr())
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

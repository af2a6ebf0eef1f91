package serve

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arran4/md2html/internal/config"
)

func testRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	page := "<html><body>" + strings.Repeat("<p>hello world</p>", 200) + "</body></html>"
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte(page), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "index.html"), []byte("<p>docs</p>"), 0o644))
	return root
}

func TestHandlerBasePath(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "md2html.serve")
	defer teardown()

	h := Handler(testRoot(t), "/blog/", config.CompressionConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/docs/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>docs</p>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/blog/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/nope.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerBasePathWithoutTrailingSlash(t *testing.T) {
	h := Handler(testRoot(t), "/blog", config.CompressionConfig{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/docs/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>docs</p>", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/blog/", rec.Header().Get("Location"))
}

func TestHandlerCompression(t *testing.T) {
	root := testRoot(t)
	cfg := config.CompressionConfig{Enabled: true, Level: "best", MinSize: 100}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	Handler(root, "/", cfg).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	cfg.Level = "none"
	rec = httptest.NewRecorder()
	Handler(root, "/", cfg).ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
}

func TestServerShutsDownOnCancel(t *testing.T) {
	s, err := Listen("127.0.0.1:0", Handler(testRoot(t), "/", config.CompressionConfig{}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	resp, err := http.Get("http://" + s.Addr() + "/docs/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "<p>docs</p>", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

package linkcheck

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestCheck(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "md2html.linkcheck")
	defer teardown()

	root := t.TempDir()
	writeFile(t, root, "index.html", `<html><body>
<a href="/blog/">home</a>
<a href="/blog/docs/">docs</a>
<a href="/blog/missing.html">missing</a>
<a href="/elsewhere/">outside</a>
<a href="https://example.com/x">external</a>
<a href="#top">anchor</a>
<img src="/blog/images/logo.png" alt="logo">
<img src="/blog/images/gone.png" alt="gone">
</body></html>`)
	writeFile(t, root, "docs/index.html", `<a href="../index.html">up</a> <a href="page">page</a> <a href="nope.html">nope</a>`)
	writeFile(t, root, "docs/page.html", `<p>leaf</p>`)
	writeFile(t, root, "images/logo.png", "png")

	broken, err := Check(context.Background(), root, "/blog/")
	require.NoError(t, err)
	assert.Equal(t, []Broken{
		{Page: "docs/index.html", Target: "nope.html"},
		{Page: "index.html", Target: "/blog/images/gone.png"},
		{Page: "index.html", Target: "/blog/missing.html"},
		{Page: "index.html", Target: "/elsewhere/"},
	}, broken)
	assert.Equal(t, "index.html: broken link /elsewhere/", broken[3].String())
}

func TestCheckCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.html", `<p>x</p>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Check(ctx, root, "/")
	assert.ErrorIs(t, err, context.Canceled)
}

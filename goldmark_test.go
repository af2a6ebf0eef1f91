package md2html

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoldmarkEngine(t *testing.T) {
	c := New(Options{Engine: EngineGoldmark})
	got, err := c.Render("# Title\n\nSome **bold** text.\n\n| a | b |\n| - | - |\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(got, "<div>"))
	assert.True(t, strings.HasSuffix(got, "</div>"))
	assert.Contains(t, got, `<h1 id="title">Title</h1>`)
	assert.Contains(t, got, "<strong>bold</strong>")
	assert.Contains(t, got, "<table>")
}

func TestGoldmarkEngineKeepsBuiltinTree(t *testing.T) {
	root, err := New(Options{Engine: EngineGoldmark}).Convert("**x**")
	require.NoError(t, err)
	html, err := root.HTML()
	require.NoError(t, err)
	assert.Equal(t, "<div><p><b>x</b></p></div>", html)
}

func TestEngineByName(t *testing.T) {
	e, err := EngineByName("")
	require.NoError(t, err)
	assert.Equal(t, EngineBuiltin, e)
	e, err = EngineByName("GoldMark")
	require.NoError(t, err)
	assert.Equal(t, EngineGoldmark, e)
	assert.Equal(t, "goldmark", e.String())
	_, err = EngineByName("pandoc")
	assert.Error(t, err)
}

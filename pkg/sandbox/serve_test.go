package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/css", ContentType("style.css"))
	assert.Equal(t, "application/javascript", ContentType("script.js"))
	assert.Equal(t, "text/html", ContentType("index.html"))
	assert.Equal(t, "text/html", ContentType("notes.txt"))
	assert.Equal(t, "text/css", ContentType("THEME.CSS"))
}

func TestOpen(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Save("<p>served</p>", "p{}", "")
	require.NoError(t, err)

	data, err := store.Open("style.css")
	require.NoError(t, err)
	assert.Equal(t, "p{}", string(data))

	page, err := store.Open("")
	require.NoError(t, err)
	assert.Contains(t, string(page), "<p>served</p>")

	_, err = store.Open("missing.js")
	assert.Error(t, err)
}

func TestOpenStaysInsideRoot(t *testing.T) {
	store := NewStore(t.TempDir())
	_, err := store.Save("<p/>", "", "")
	require.NoError(t, err)

	// Cleaning anchors the path at the root, so traversal resolves inside it.
	data, err := store.Open("../../index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<p/>")
}

package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileArchiver(t *testing.T) {
	root := t.TempDir()
	a := NewFileArchiver(root)

	raw := []byte("<html><body>archived</body></html>")
	rel, err := a.Archive(context.Background(), ArchiveRequest{
		URL:        "https://example.com/page",
		RawContent: raw,
		Text:       "# archived",
		Metadata:   map[string]any{"title": "Archived Page"},
	})
	require.NoError(t, err)

	hash := contentHash(raw)
	assert.Equal(t, filepath.Join(hash[:2], hash), rel)

	dir := filepath.Join(root, rel)
	got, err := os.ReadFile(filepath.Join(dir, "raw.html"))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	text, err := os.ReadFile(filepath.Join(dir, "content.md"))
	require.NoError(t, err)
	assert.Equal(t, "# archived", string(text))

	metaBytes, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	require.NoError(t, err)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(metaBytes, &meta))
	assert.Equal(t, "https://example.com/page", meta["url"])
	assert.Equal(t, hash, meta["content_hash"])
	assert.Equal(t, "Archived Page", meta["title"])
	assert.Contains(t, meta, "archived_at")
}

func TestFileArchiverIdenticalContentSharesPath(t *testing.T) {
	a := NewFileArchiver(t.TempDir())

	req := ArchiveRequest{URL: "https://example.com/a", RawContent: []byte("same bytes"), Text: "t"}
	first, err := a.Archive(context.Background(), req)
	require.NoError(t, err)

	req.URL = "https://example.com/b"
	second, err := a.Archive(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

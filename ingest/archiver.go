package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArchiveRequest carries everything the archiver persists for a
// resource.
type ArchiveRequest struct {
	URL        string
	RawContent []byte
	Text       string
	Metadata   map[string]any
}

// Archiver stores raw and derived content durably and returns the
// archive path recorded on the resource.
type Archiver interface {
	Archive(ctx context.Context, req ArchiveRequest) (string, error)
}

// contentHash returns the hex SHA-256 of raw content.
func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileArchiver writes archives under a root directory, sharded by
// content hash: <root>/<hh>/<hash>/{raw.html,content.md,metadata.json}.
type FileArchiver struct {
	root string
}

// NewFileArchiver creates an archiver rooted at the given directory.
func NewFileArchiver(root string) *FileArchiver {
	return &FileArchiver{root: root}
}

// Archive implements Archiver. The returned path is relative to the
// archive root so the store stays portable across hosts.
func (a *FileArchiver) Archive(ctx context.Context, req ArchiveRequest) (string, error) {
	hash := contentHash(req.RawContent)

	rel := filepath.Join(hash[:2], hash)
	dir := filepath.Join(a.root, rel)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "raw.html"), req.RawContent, 0o644); err != nil {
		return "", fmt.Errorf("write raw content: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "content.md"), []byte(req.Text), 0o644); err != nil {
		return "", fmt.Errorf("write extracted text: %w", err)
	}

	meta := map[string]any{
		"url":          req.URL,
		"content_hash": hash,
		"archived_at":  time.Now().Format(time.RFC3339),
	}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "metadata.json"), data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata: %w", err)
	}

	return rel, nil
}

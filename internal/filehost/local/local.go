// Package local implements the file host on the local filesystem. This
// backend is intended for development and single-node deployments only. It
// emulates the hash gating of the GitHub contents API: every file's SHA-256
// is recorded next to it, and deletes must present the stored hash.
package local

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/pkg/checksum"
)

func init() {
	// Register local file host backend
	filehost.Register("local", func(cfg *config.Config) (filehost.Host, error) {
		return New(&cfg.FileHost.Local)
	})
}

// LocalHost implements filehost.Host on the local filesystem.
type LocalHost struct {
	basePath string
}

// New creates a local file host rooted at the configured base path.
func New(cfg *config.LocalFileHostConfig) (*LocalHost, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local base_path is required")
	}

	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create file host directory: %w", err)
	}

	return &LocalHost{basePath: cfg.BasePath}, nil
}

func (h *LocalHost) fullPath(path string) string {
	return filepath.Join(h.basePath, filepath.FromSlash(path))
}

// List returns every file under prefix, walking subdirectories. A missing
// prefix is an empty listing.
func (h *LocalHost) List(ctx context.Context, prefix string) ([]filehost.RemoteFile, error) {
	root := h.fullPath(prefix)

	files := []filehost.RemoteFile{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		sha, err := checksum.CalculateSHA256(f)
		f.Close()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(h.basePath, path)
		if err != nil {
			return err
		}
		files = append(files, filehost.RemoteFile{Path: filepath.ToSlash(rel), SHA: sha})
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []filehost.RemoteFile{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}

	return files, nil
}

// Upload creates or replaces the file at path.
func (h *LocalHost) Upload(ctx context.Context, path string, content []byte) filehost.UploadResult {
	fullPath := h.fullPath(path)
	replacing := false
	if _, err := os.Stat(fullPath); err == nil {
		replacing = true
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
		return filehost.UploadResult{Success: false, Message: fmt.Sprintf("failed to create directory: %v", err)}
	}

	if err := os.WriteFile(fullPath, content, 0640); err != nil {
		return filehost.UploadResult{Success: false, Message: fmt.Sprintf("failed to write file: %v", err)}
	}

	status := 201
	if replacing {
		status = 200
	}
	return filehost.UploadResult{Success: true, Status: status}
}

// Delete removes the file at path when sha matches the stored content hash.
// Deleting an absent file succeeds, matching remote delete semantics where
// the goal state is "file gone".
func (h *LocalHost) Delete(ctx context.Context, path string, sha string) bool {
	fullPath := h.fullPath(path)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return os.IsNotExist(err)
	}

	actual, err := checksum.CalculateSHA256(bytes.NewReader(data))
	if err != nil || actual != sha {
		return false
	}

	if err := os.Remove(fullPath); err != nil {
		return false
	}

	// Try to remove empty parent directories (best effort)
	dir := filepath.Dir(fullPath)
	for dir != h.basePath {
		if err := os.Remove(dir); err != nil {
			break // Directory not empty or other error, stop trying
		}
		dir = filepath.Dir(dir)
	}

	return true
}

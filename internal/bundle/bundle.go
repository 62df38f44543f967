// Package bundle handles the game archives operators upload. Each validator
// checks a specific aspect of the archive: zip structure, path traversal,
// size limits. Validation runs before any data is extracted so invalid
// bundles are rejected early without consuming scratch storage.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// MaxArchiveSize is the default maximum size for a game bundle (100MB)
	MaxArchiveSize = 100 * 1024 * 1024
)

// Validate validates a zip archive without extracting it.
func Validate(archive []byte, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxArchiveSize
	}

	if int64(len(archive)) > maxSize {
		return fmt.Errorf("archive size exceeds maximum allowed size of %d bytes", maxSize)
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("invalid zip format: %w", err)
	}

	var totalSize int64
	fileCount := 0

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}

		fileCount++
		totalSize += int64(f.UncompressedSize64)

		// Check for path traversal attacks
		if err := validatePath(f.Name); err != nil {
			return fmt.Errorf("invalid file path in archive: %w", err)
		}

		// Check uncompressed size limit (zip bomb guard)
		if totalSize > maxSize {
			return fmt.Errorf("archive contents exceed maximum allowed size of %d bytes", maxSize)
		}
	}

	if fileCount == 0 {
		return fmt.Errorf("archive is empty")
	}

	return nil
}

// validatePath checks for path traversal attacks
func validatePath(path string) error {
	// Normalize path
	path = filepath.Clean(filepath.FromSlash(path))

	// Check for absolute paths (Unix-style)
	if filepath.IsAbs(path) {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	// Check for Windows-style absolute paths (e.g. C:\...) even on non-Windows hosts.
	// Archives created on Windows machines may contain these paths.
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		return fmt.Errorf("absolute paths not allowed: %s", path)
	}

	// Check for path traversal (..)
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal not allowed: %s", path)
	}

	// Git metadata has no business on a static game site
	if strings.HasPrefix(path, ".git") {
		return fmt.Errorf("git directories not allowed in archives")
	}

	return nil
}

// Extract unpacks the archive into dest. Callers are expected to have run
// Validate first; entry paths are still cleaned defensively on the way out.
func Extract(archive []byte, dest string) error {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("invalid zip format: %w", err)
	}

	for _, f := range reader.File {
		if err := extractEntry(f, dest); err != nil {
			return err
		}
	}

	return nil
}

func extractEntry(f *zip.File, dest string) error {
	if err := validatePath(f.Name); err != nil {
		return fmt.Errorf("invalid file path in archive: %w", err)
	}

	target := filepath.Join(dest, filepath.FromSlash(f.Name))

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open archive entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}

	return nil
}

// Flatten promotes the contents of a single enclosing folder to the root of
// dir. Archives zipped as "mygame/..." end up with their index.html at the
// root, where the published URL expects it. A root with anything other than
// exactly one directory is left untouched.
func Flatten(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read extracted tree: %w", err)
	}

	if len(entries) != 1 || !entries[0].IsDir() {
		return nil
	}

	inner := filepath.Join(dir, entries[0].Name())
	children, err := os.ReadDir(inner)
	if err != nil {
		return fmt.Errorf("failed to read enclosing folder: %w", err)
	}

	for _, child := range children {
		from := filepath.Join(inner, child.Name())
		to := filepath.Join(dir, child.Name())
		if err := os.Rename(from, to); err != nil {
			return fmt.Errorf("failed to flatten %s: %w", child.Name(), err)
		}
	}

	return os.Remove(inner)
}

// Package pipeline implements game bundle processing: replace detection,
// archive extraction, upload to the file host, and catalog record writing.
// One Process call handles one bundle from archive bytes to a published-path
// catalog record, and never propagates an error; every outcome is a Result.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/brainsta/game-admin/internal/bundle"
	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/internal/slug"
	"github.com/brainsta/game-admin/internal/telemetry"
)

// Result reports the outcome of processing a single bundle.
type Result struct {
	Success  bool   `json:"success"`
	Replaced bool   `json:"replaced"`
	Uploaded int    `json:"uploaded"`
	Failed   int    `json:"failed"`
	Message  string `json:"message"`
}

// Processor runs the upload pipeline against a catalog store and a file host.
type Processor struct {
	store          catalog.Store
	host           filehost.Host
	baseURL        string
	entryPoint     string
	scratchDir     string
	maxArchiveSize int64
}

// New creates a processor from the content configuration.
func New(store catalog.Store, host filehost.Host, cfg *config.ContentConfig) *Processor {
	entryPoint := cfg.EntryPoint
	if entryPoint == "" {
		entryPoint = "index.html"
	}

	scratchDir := cfg.ScratchDir
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}

	return &Processor{
		store:          store,
		host:           host,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		entryPoint:     entryPoint,
		scratchDir:     scratchDir,
		maxArchiveSize: cfg.MaxArchiveSize,
	}
}

// Process runs one bundle through the pipeline. The returned Result carries
// an operator-readable message for every outcome; errors never propagate.
func (p *Processor) Process(ctx context.Context, title string, archive []byte, categoryID string) Result {
	title = strings.TrimSpace(title)
	if title == "" {
		return p.failure(Result{Message: "title is required"})
	}
	if len(archive) == 0 {
		return p.failure(Result{Message: "archive is required"})
	}

	if err := bundle.Validate(archive, p.maxArchiveSize); err != nil {
		return p.failure(Result{Message: err.Error()})
	}

	// Replace detection: a record with the same case-folded title wins over
	// slug equality so retitling "snake" to "Snake" replaces rather than
	// duplicates.
	existing, err := p.findExisting(ctx, title)
	if err != nil {
		return p.failure(Result{Message: fmt.Sprintf("catalog lookup failed: %v", err)})
	}

	gameSlug, err := p.resolveSlug(ctx, title, existing)
	if err != nil {
		return p.failure(Result{Message: fmt.Sprintf("slug resolution failed: %v", err)})
	}

	if existing != nil {
		p.deleteRemoteFiles(ctx, catalog.GameFromRecord(*existing).Slug)
	}

	uploaded, failed, err := p.extractAndUpload(ctx, archive, gameSlug)
	if err != nil {
		return p.failure(Result{Replaced: existing != nil, Message: err.Error()})
	}

	if failed > 0 {
		// Do not leave a half published game behind.
		p.deleteRemoteFiles(ctx, gameSlug)
		return p.failure(Result{
			Replaced: existing != nil,
			Uploaded: uploaded,
			Failed:   failed,
			Message:  fmt.Sprintf("Failed to upload %d file(s)", failed),
		})
	}
	if uploaded == 0 {
		return p.failure(Result{Replaced: existing != nil, Message: "No files were uploaded"})
	}

	fields := catalog.Game{
		Title:           title,
		TitleNormalized: strings.ToLower(title),
		Slug:            gameSlug,
		CategoryID:      categoryID,
		URL:             fmt.Sprintf("%s/%s/%s", p.baseURL, gameSlug, p.entryPoint),
		Published:       false,
	}.Fields()

	if existing != nil {
		if err := p.store.Games().Update(ctx, existing.ID, fields); err != nil {
			return p.failure(Result{Replaced: true, Uploaded: uploaded, Message: fmt.Sprintf("failed to update catalog record: %v", err)})
		}
		telemetry.GameUploadsTotal.WithLabelValues("replaced").Inc()
		return Result{Success: true, Replaced: true, Uploaded: uploaded, Message: fmt.Sprintf("Replaced with %d file(s)", uploaded)}
	}

	if _, err := p.store.Games().Add(ctx, fields); err != nil {
		return p.failure(Result{Uploaded: uploaded, Message: fmt.Sprintf("failed to add catalog record: %v", err)})
	}
	telemetry.GameUploadsTotal.WithLabelValues("created").Inc()
	return Result{Success: true, Uploaded: uploaded, Message: fmt.Sprintf("Uploaded %d file(s)", uploaded)}
}

func (p *Processor) failure(r Result) Result {
	telemetry.GameUploadsTotal.WithLabelValues("failed").Inc()
	r.Success = false
	return r
}

// findExisting looks up a record whose normalized title matches.
func (p *Processor) findExisting(ctx context.Context, title string) (*catalog.Record, error) {
	matches, err := p.store.Games().Where(ctx, catalog.FieldTitleNormalized, strings.ToLower(title))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// resolveSlug computes the slug for the upload. A replace keeps uniqueness
// against every record except the one being replaced; a colliding slug gets
// a numeric suffix instead of silently hijacking another game's files.
func (p *Processor) resolveSlug(ctx context.Context, title string, existing *catalog.Record) (string, error) {
	base := slug.Make(title)

	var lookupErr error
	taken := func(candidate string) bool {
		matches, err := p.store.Games().Where(ctx, catalog.FieldSlug, candidate)
		if err != nil {
			lookupErr = err
			return false
		}
		for _, m := range matches {
			if existing != nil && m.ID == existing.ID {
				continue
			}
			return true
		}
		return false
	}

	resolved := slug.Unique(base, taken)
	if lookupErr != nil {
		return "", lookupErr
	}
	return resolved, nil
}

// deleteRemoteFiles removes everything under gameSlug on the host.
// Best-effort: failures are logged and do not abort the pipeline.
func (p *Processor) deleteRemoteFiles(ctx context.Context, gameSlug string) {
	if gameSlug == "" {
		return
	}

	files, err := p.host.List(ctx, gameSlug)
	if err != nil {
		slog.Warn("failed to list remote files for cleanup", "slug", gameSlug, "error", err)
		return
	}

	for _, f := range files {
		if !p.host.Delete(ctx, f.Path, f.SHA) {
			slog.Warn("failed to delete remote file", "path", f.Path)
		}
	}
}

// extractAndUpload unpacks the archive into scratch storage and pushes every
// file to the host under gameSlug. Scratch storage is released whether the
// walk succeeds or not.
func (p *Processor) extractAndUpload(ctx context.Context, archive []byte, gameSlug string) (uploaded, failed int, err error) {
	scratch, err := os.MkdirTemp(p.scratchDir, gameSlug+"-")
	if err != nil {
		return 0, 0, fmt.Errorf("failed to allocate scratch storage: %w", err)
	}
	defer os.RemoveAll(scratch)

	if err := bundle.Extract(archive, scratch); err != nil {
		return 0, 0, err
	}
	if err := bundle.Flatten(scratch); err != nil {
		return 0, 0, err
	}

	walkErr := filepath.WalkDir(scratch, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(scratch, path)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		remotePath := gameSlug + "/" + filepath.ToSlash(rel)
		result := p.host.Upload(ctx, remotePath, content)
		if result.Success {
			uploaded++
			telemetry.FileUploadsTotal.WithLabelValues("success").Inc()
		} else {
			failed++
			telemetry.FileUploadsTotal.WithLabelValues("failed").Inc()
			slog.Warn("file upload failed", "path", remotePath, "status", result.Status, "message", result.Message)
		}
		return nil
	})
	if walkErr != nil {
		return uploaded, failed, fmt.Errorf("failed to walk extracted tree: %w", walkErr)
	}

	return uploaded, failed, nil
}

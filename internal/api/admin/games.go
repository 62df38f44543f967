// games.go implements HTTP handlers for the games list and lifecycle:
// upload (single and bulk), publish toggle, and delete (single and bulk).
package admin

import (
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/browse"
	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/filehost"
	"github.com/brainsta/game-admin/internal/pipeline"
	"github.com/brainsta/game-admin/internal/telemetry"
)

// uncategorized is shown when a game's category record no longer exists.
const uncategorized = "Uncategorized"

// GameHandlers handles game endpoints
type GameHandlers struct {
	store           catalog.Store
	host            filehost.Host
	processor       *pipeline.Processor
	defaultPageSize int
}

// NewGameHandlers creates a new GameHandlers instance. defaultPageSize is the
// page size used when the request does not carry one; zero selects
// browse.DefaultPageSize.
func NewGameHandlers(store catalog.Store, host filehost.Host, processor *pipeline.Processor, defaultPageSize int) *GameHandlers {
	if !browse.ValidPageSize(defaultPageSize) {
		defaultPageSize = browse.DefaultPageSize
	}
	return &GameHandlers{store: store, host: host, processor: processor, defaultPageSize: defaultPageSize}
}

// GameView is one row of the games list: the game plus its resolved
// category name.
type GameView struct {
	catalog.Game
	CategoryName string `json:"category_name"`
}

// List returns a filtered, paginated page of the games list.
// Query parameters: q (substring filter), page, page_size (5/10/20/50).
func (h *GameHandlers) List(c *gin.Context) {
	ctx := c.Request.Context()

	records, err := h.store.Games().All(ctx)
	if err != nil {
		slog.Error("failed to list games", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list games"})
		return
	}

	games := make([]catalog.Game, 0, len(records))
	for _, r := range records {
		games = append(games, catalog.GameFromRecord(r))
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.defaultPageSize)))

	result := browse.Page(games, c.Query("q"), page, pageSize)

	names, err := h.categoryNames(c)
	if err != nil {
		slog.Error("failed to resolve category names", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list games"})
		return
	}

	views := make([]GameView, 0, len(result.Games))
	for _, g := range result.Games {
		name, ok := names[g.CategoryID]
		if !ok {
			name = uncategorized
		}
		views = append(views, GameView{Game: g, CategoryName: name})
	}

	c.JSON(http.StatusOK, gin.H{
		"games":       views,
		"total":       result.Total,
		"total_pages": result.TotalPages,
		"page":        result.Page,
	})
}

// categoryNames returns a category id to name map for list rendering.
func (h *GameHandlers) categoryNames(c *gin.Context) (map[string]string, error) {
	records, err := h.store.Categories().All(c.Request.Context())
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(records))
	for _, r := range records {
		cat := catalog.CategoryFromRecord(r)
		names[cat.ID] = cat.Name
	}
	return names, nil
}

// Upload processes a single game bundle.
// Multipart form fields: title, category_id, file.
func (h *GameHandlers) Upload(c *gin.Context) {
	title := c.PostForm("title")
	categoryID := c.PostForm("category_id")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Archive file is required"})
		return
	}

	archive, err := readUpload(fileHeader)
	if err != nil {
		slog.Error("failed to read uploaded archive", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read archive"})
		return
	}

	result := h.processor.Process(c.Request.Context(), title, archive, categoryID)
	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// bulkItemResult is the outcome of one item within a bulk operation.
type bulkItemResult struct {
	Title   string `json:"title,omitempty"`
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BulkUpload processes several bundles in one request. Each bundle's title
// is derived from its filename with the extension stripped. Items are
// processed sequentially and independently; one failure does not stop the
// rest.
func (h *GameHandlers) BulkUpload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one archive file is required"})
		return
	}

	categoryID := c.PostForm("category_id")

	items := make([]bulkItemResult, 0, len(files))
	uploaded, replaced, failed := 0, 0, 0

	for _, fh := range files {
		title := strings.TrimSuffix(fh.Filename, filepath.Ext(fh.Filename))

		archive, err := readUpload(fh)
		if err != nil {
			failed++
			items = append(items, bulkItemResult{Title: title, Success: false, Message: "Failed to read archive"})
			continue
		}

		result := h.processor.Process(c.Request.Context(), title, archive, categoryID)
		switch {
		case result.Success && result.Replaced:
			replaced++
		case result.Success:
			uploaded++
		default:
			failed++
		}
		items = append(items, bulkItemResult{Title: title, Success: result.Success, Message: result.Message})
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"uploaded": uploaded,
		"replaced": replaced,
		"failed":   failed,
	})
}

type publishRequest struct {
	Published *bool `json:"published"`
}

// Publish sets the published flag on a game.
func (h *GameHandlers) Publish(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Published == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must carry a published flag"})
		return
	}

	id := c.Param("id")
	ctx := c.Request.Context()

	record, err := h.store.Games().Get(ctx, id)
	if err != nil {
		slog.Error("failed to get game", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load game"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Game not found"})
		return
	}

	if err := h.store.Games().Update(ctx, id, map[string]any{catalog.FieldPublished: *req.Published}); err != nil {
		slog.Error("failed to update game", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update game"})
		return
	}

	game := catalog.GameFromRecord(*record)
	game.Published = *req.Published
	c.JSON(http.StatusOK, gin.H{"game": game})
}

// Delete removes a game: its remote files first, then the catalog record.
// File deletion is best-effort; failures are reported but do not keep the
// record alive.
func (h *GameHandlers) Delete(c *gin.Context) {
	id := c.Param("id")

	outcome := h.deleteGame(c, id)
	if outcome.Message == "Game not found" {
		c.JSON(http.StatusNotFound, gin.H{"error": outcome.Message})
		return
	}
	if !outcome.Success {
		c.JSON(http.StatusInternalServerError, gin.H{"error": outcome.Message})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete removes several games sequentially. Items are independent;
// one failure does not stop the rest.
func (h *GameHandlers) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body must carry a non-empty ids list"})
		return
	}

	items := make([]bulkItemResult, 0, len(req.IDs))
	deleted, failed := 0, 0

	for _, id := range req.IDs {
		outcome := h.deleteGame(c, id)
		if outcome.Success {
			deleted++
		} else {
			failed++
		}
		items = append(items, outcome)
	}

	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"deleted": deleted,
		"failed":  failed,
	})
}

// deleteGame removes one game's remote files and record.
func (h *GameHandlers) deleteGame(c *gin.Context, id string) bulkItemResult {
	ctx := c.Request.Context()

	record, err := h.store.Games().Get(ctx, id)
	if err != nil {
		slog.Error("failed to get game", "id", id, "error", err)
		telemetry.GameDeletesTotal.WithLabelValues("failed").Inc()
		return bulkItemResult{ID: id, Success: false, Message: "Failed to load game"}
	}
	if record == nil {
		telemetry.GameDeletesTotal.WithLabelValues("failed").Inc()
		return bulkItemResult{ID: id, Success: false, Message: "Game not found"}
	}

	game := catalog.GameFromRecord(*record)

	if game.Slug != "" {
		files, err := h.host.List(ctx, game.Slug)
		if err != nil {
			slog.Warn("failed to list remote files for delete", "slug", game.Slug, "error", err)
		}
		for _, f := range files {
			if !h.host.Delete(ctx, f.Path, f.SHA) {
				slog.Warn("failed to delete remote file", "path", f.Path)
			}
		}
	}

	if err := h.store.Games().Delete(ctx, id); err != nil {
		slog.Error("failed to delete game record", "id", id, "error", err)
		telemetry.GameDeletesTotal.WithLabelValues("failed").Inc()
		return bulkItemResult{ID: id, Success: false, Message: "Failed to delete game record"}
	}

	telemetry.GameDeletesTotal.WithLabelValues("deleted").Inc()
	return bulkItemResult{ID: id, Title: game.Title, Success: true, Message: "Deleted"}
}

// readUpload reads a multipart file fully into memory. Bundles are capped by
// the pipeline's archive size limit, so buffering is fine.
func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

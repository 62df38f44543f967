// categories.go implements HTTP handlers for listing and creating game
// categories.
package admin

import (
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/catalog"
)

// CategoryHandlers handles category endpoints
type CategoryHandlers struct {
	store catalog.Store
}

// NewCategoryHandlers creates a new CategoryHandlers instance
func NewCategoryHandlers(store catalog.Store) *CategoryHandlers {
	return &CategoryHandlers{store: store}
}

// List returns every category, sorted by name.
func (h *CategoryHandlers) List(c *gin.Context) {
	records, err := h.store.Categories().All(c.Request.Context())
	if err != nil {
		slog.Error("failed to list categories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list categories"})
		return
	}

	categories := make([]catalog.Category, 0, len(records))
	for _, r := range records {
		categories = append(categories, catalog.CategoryFromRecord(r))
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

// Create adds a new category. Blank and duplicate names are rejected.
func (h *CategoryHandlers) Create(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name is required"})
		return
	}

	existing, err := h.store.Categories().Where(c.Request.Context(), catalog.FieldName, name)
	if err != nil {
		slog.Error("failed to check category name", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}
	if len(existing) > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Category already exists"})
		return
	}

	id, err := h.store.Categories().Add(c.Request.Context(), map[string]any{catalog.FieldName: name})
	if err != nil {
		slog.Error("failed to add category", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": catalog.Category{ID: id, Name: name}})
}

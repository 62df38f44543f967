package admin

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCategoryRouter(store *memStore) *gin.Engine {
	router := gin.New()
	h := NewCategoryHandlers(store)
	router.GET("/api/v1/categories", h.List)
	router.POST("/api/v1/categories", h.Create)
	return router
}

func TestCategoriesList_SortedByName(t *testing.T) {
	store := newMemStore()
	seedCategory(t, store, "Puzzle")
	seedCategory(t, store, "Arcade")
	seedCategory(t, store, "Strategy")
	router := newCategoryRouter(store)

	w := jsonRequest(t, router, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	categories, ok := body["categories"].([]any)
	require.True(t, ok, "response carries no categories list")
	require.Len(t, categories, 3)

	var names []string
	for _, c := range categories {
		names = append(names, c.(map[string]any)["name"].(string))
	}
	assert.Equal(t, []string{"Arcade", "Puzzle", "Strategy"}, names)
}

func TestCategoriesList_Empty(t *testing.T) {
	router := newCategoryRouter(newMemStore())

	w := jsonRequest(t, router, http.MethodGet, "/api/v1/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	categories, ok := body["categories"].([]any)
	require.True(t, ok, "categories must be a list even when empty")
	assert.Empty(t, categories)
}

func TestCategoriesCreate(t *testing.T) {
	store := newMemStore()
	router := newCategoryRouter(store)

	w := jsonRequest(t, router, http.MethodPost, "/api/v1/categories", gin.H{"name": "  Arcade  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decodeBody(t, w)
	category, ok := body["category"].(map[string]any)
	require.True(t, ok, "response carries no category")
	assert.Equal(t, "Arcade", category["name"], "name must be trimmed")
	assert.NotEmpty(t, category["id"])
}

func TestCategoriesCreate_BlankName(t *testing.T) {
	router := newCategoryRouter(newMemStore())

	w := jsonRequest(t, router, http.MethodPost, "/api/v1/categories", gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCategoriesCreate_Duplicate(t *testing.T) {
	store := newMemStore()
	seedCategory(t, store, "Arcade")
	router := newCategoryRouter(store)

	w := jsonRequest(t, router, http.MethodPost, "/api/v1/categories", gin.H{"name": "Arcade"})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

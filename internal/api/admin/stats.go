// stats.go implements the handler serving dashboard statistics.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brainsta/game-admin/internal/catalog"
)

// StatsHandlers handles the stats endpoint
type StatsHandlers struct {
	store catalog.Store
}

// NewStatsHandlers creates a new StatsHandlers instance
func NewStatsHandlers(store catalog.Store) *StatsHandlers {
	return &StatsHandlers{store: store}
}

// DashboardStats is the response for dashboard statistics
type DashboardStats struct {
	Games      int `json:"games"`
	Published  int `json:"published"`
	Drafts     int `json:"drafts"`
	Categories int `json:"categories"`
}

// Get returns catalog totals for the dashboard.
func (h *StatsHandlers) Get(c *gin.Context) {
	ctx := c.Request.Context()

	games, err := h.store.Games().All(ctx)
	if err != nil {
		slog.Error("failed to count games", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	categories, err := h.store.Categories().All(ctx)
	if err != nil {
		slog.Error("failed to count categories", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats"})
		return
	}

	stats := DashboardStats{
		Games:      len(games),
		Categories: len(categories),
	}
	for _, r := range games {
		if catalog.GameFromRecord(r).Published {
			stats.Published++
		} else {
			stats.Drafts++
		}
	}

	c.JSON(http.StatusOK, stats)
}

// Package browse implements in-memory filtering, sorting, and pagination of
// the games list. The whole catalog is small enough to hold in memory, so the
// store streams every record and this package does the rest.
package browse

import (
	"sort"
	"strings"

	"github.com/brainsta/game-admin/internal/catalog"
)

// PageSizes are the page sizes the list endpoint accepts.
var PageSizes = []int{5, 10, 20, 50}

// DefaultPageSize is used when the request names no page size.
const DefaultPageSize = 10

// PageResult is one page of the filtered games list.
type PageResult struct {
	Games      []catalog.Game `json:"games"`
	Total      int            `json:"total"`
	TotalPages int            `json:"total_pages"`
	Page       int            `json:"page"`
}

// ValidPageSize reports whether size is one of the accepted page sizes.
func ValidPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

// Page filters games by the case-insensitive query substring (matched against
// title or slug), sorts by identifier descending, and returns the requested
// page. The page number is clamped into [1, TotalPages].
func Page(games []catalog.Game, query string, page, pageSize int) PageResult {
	if !ValidPageSize(pageSize) {
		pageSize = DefaultPageSize
	}

	filtered := games
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		filtered = make([]catalog.Game, 0, len(games))
		for _, g := range games {
			if strings.Contains(strings.ToLower(g.Title), q) || strings.Contains(strings.ToLower(g.Slug), q) {
				filtered = append(filtered, g)
			}
		}
	} else {
		filtered = append([]catalog.Game(nil), games...)
	}

	// Identifiers are opaque sortable tokens issued in increasing order, so
	// descending order approximates most recently created first.
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].ID > filtered[j].ID
	})

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return PageResult{
		Games:      filtered[start:end],
		Total:      len(filtered),
		TotalPages: totalPages,
		Page:       page,
	}
}

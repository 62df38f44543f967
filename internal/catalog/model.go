// model.go defines the typed views over the games and categories collections
// and the field-name constants shared by every store backend.
package catalog

// Collection names.
const (
	GamesCollection      = "games"
	CategoriesCollection = "categories"
)

// Game document field names.
const (
	FieldTitle           = "title"
	FieldTitleNormalized = "titleNormalized"
	FieldSlug            = "slug"
	FieldCategoryID      = "categoryId"
	FieldURL             = "url"
	FieldPublished       = "published"
)

// Category document field names.
const (
	FieldName = "name"
)

// Game is the typed view of a games document.
type Game struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	TitleNormalized string `json:"title_normalized"`
	Slug            string `json:"slug"`
	CategoryID      string `json:"category_id"`
	URL             string `json:"url"`
	Published       bool   `json:"published"`
}

// Category is the typed view of a categories document.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GameFromRecord maps a raw document onto a Game. Missing or mistyped fields
// fall back to zero values; records written before a field existed must still
// be listable.
func GameFromRecord(r Record) Game {
	return Game{
		ID:              r.ID,
		Title:           stringField(r.Fields, FieldTitle),
		TitleNormalized: stringField(r.Fields, FieldTitleNormalized),
		Slug:            stringField(r.Fields, FieldSlug),
		CategoryID:      stringField(r.Fields, FieldCategoryID),
		URL:             stringField(r.Fields, FieldURL),
		Published:       boolField(r.Fields, FieldPublished),
	}
}

// Fields returns the document representation of the game, excluding the
// store-assigned identifier.
func (g Game) Fields() map[string]any {
	return map[string]any{
		FieldTitle:           g.Title,
		FieldTitleNormalized: g.TitleNormalized,
		FieldSlug:            g.Slug,
		FieldCategoryID:      g.CategoryID,
		FieldURL:             g.URL,
		FieldPublished:       g.Published,
	}
}

// CategoryFromRecord maps a raw document onto a Category.
func CategoryFromRecord(r Record) Category {
	return Category{
		ID:   r.ID,
		Name: stringField(r.Fields, FieldName),
	}
}

func stringField(fields map[string]any, key string) string {
	if v, ok := fields[key].(string); ok {
		return v
	}
	return ""
}

func boolField(fields map[string]any, key string) bool {
	if v, ok := fields[key].(bool); ok {
		return v
	}
	return false
}

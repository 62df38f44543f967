// Package catalog defines the document-store abstraction the admin backend
// keeps its game and category records in, plus the factory all store backends
// register with.
//
// New backends are added by implementing the Store interface and registering
// with the factory via an init() function in the backend's own package:
//
//	func init() {
//	    catalog.Register("mystore", func(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
//	        return New(ctx, cfg)
//	    })
//	}
//
// The router imports each backend with a blank import to trigger init(), so
// adding a backend requires no changes to the factory itself.
package catalog

import (
	"context"
	"fmt"

	"github.com/brainsta/game-admin/internal/config"
)

// Record is a single document: an opaque store-assigned identifier plus a
// free-form field map. No schema is enforced beyond what callers supply.
type Record struct {
	ID     string
	Fields map[string]any
}

// Collection is a generic document collection. Identifiers are assigned by
// the store on Add and are treated as opaque sortable tokens by callers.
type Collection interface {
	// Add inserts a new document and returns its store-assigned identifier.
	Add(ctx context.Context, fields map[string]any) (string, error)

	// All streams every document in the collection. No ordering is guaranteed;
	// callers that need an order sort in memory.
	All(ctx context.Context) ([]Record, error)

	// Get fetches a document by identifier. Returns (nil, nil) when absent.
	Get(ctx context.Context, id string) (*Record, error)

	// Update overwrites the given fields on an existing document.
	Update(ctx context.Context, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, id string) error

	// Where returns all documents whose field equals value.
	Where(ctx context.Context, field string, value any) ([]Record, error)
}

// Store exposes the two collections the catalog consists of.
type Store interface {
	Games() Collection
	Categories() Collection

	// Ping verifies the backing service is reachable; used by readiness checks.
	Ping(ctx context.Context) error

	Close() error
}

// FactoryFunc constructs a Store from application configuration.
type FactoryFunc func(ctx context.Context, cfg *config.Config) (Store, error)

var factories = make(map[string]FactoryFunc)

// Register registers a catalog store backend under the given name.
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewStore creates the catalog store selected by configuration.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	factory, ok := factories[cfg.Catalog.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported catalog backend: %s (must be 'firestore' or 'postgres')", cfg.Catalog.Backend)
	}

	return factory(ctx, cfg)
}

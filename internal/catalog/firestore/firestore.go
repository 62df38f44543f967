// Package firestore implements the catalog store on Google Cloud Firestore.
// Documents are stored as plain field maps in the games and categories
// collections; identifiers are Firestore's auto-generated document IDs.
//
// Authentication methods:
//   - credentials_file set: service account JSON key file
//   - otherwise: Application Default Credentials (ADC), which covers
//     GOOGLE_APPLICATION_CREDENTIALS, GCE/GKE metadata, and
//     gcloud auth application-default login
package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
)

func init() {
	// Register Firestore catalog backend
	catalog.Register("firestore", func(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
		return New(ctx, &cfg.Catalog.Firestore)
	})
}

// FirestoreStore implements the Store interface on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// New creates a new Firestore catalog store.
func New(ctx context.Context, cfg *config.FirestoreCatalogConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project_id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// Games returns the games collection.
func (s *FirestoreStore) Games() catalog.Collection {
	return &collection{ref: s.client.Collection(catalog.GamesCollection)}
}

// Categories returns the categories collection.
func (s *FirestoreStore) Categories() catalog.Collection {
	return &collection{ref: s.client.Collection(catalog.CategoriesCollection)}
}

// Ping verifies Firestore is reachable by reading a single document from the
// games collection. An empty collection is still a successful ping.
func (s *FirestoreStore) Ping(ctx context.Context) error {
	iter := s.client.Collection(catalog.GamesCollection).Limit(1).Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

// Close closes the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

// collection adapts a Firestore collection reference to the Collection
// interface.
type collection struct {
	ref *firestore.CollectionRef
}

func (c *collection) Add(ctx context.Context, fields map[string]any) (string, error) {
	ref, _, err := c.ref.Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", c.ref.ID, err)
	}
	return ref.ID, nil
}

func (c *collection) All(ctx context.Context) ([]catalog.Record, error) {
	return c.collect(c.ref.Documents(ctx))
}

func (c *collection) Get(ctx context.Context, id string) (*catalog.Record, error) {
	snap, err := c.ref.Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", c.ref.ID, id, err)
	}

	return &catalog.Record{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (c *collection) Update(ctx context.Context, id string, fields map[string]any) error {
	if _, err := c.ref.Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", c.ref.ID, id, err)
	}
	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	// Firestore deletes are idempotent; deleting an absent document succeeds.
	if _, err := c.ref.Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", c.ref.ID, id, err)
	}
	return nil
}

func (c *collection) Where(ctx context.Context, field string, value any) ([]catalog.Record, error) {
	return c.collect(c.ref.Where(field, "==", value).Documents(ctx))
}

func (c *collection) collect(iter *firestore.DocumentIterator) ([]catalog.Record, error) {
	defer iter.Stop()

	var records []catalog.Record
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s: %w", c.ref.ID, err)
		}
		records = append(records, catalog.Record{ID: snap.Ref.ID, Fields: snap.Data()})
	}

	return records, nil
}

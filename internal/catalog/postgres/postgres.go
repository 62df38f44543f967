// Package postgres implements the catalog store on PostgreSQL. Documents live
// in a single documents table with their fields serialized as jsonb, so the
// schema never changes when a new field is added to a record. Identifiers are
// UUIDv7, which keeps a descending sort by identifier in rough insertion
// order. Migrations are embedded in the binary so the server can apply schema
// changes on startup without external tooling.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/brainsta/game-admin/internal/catalog"
	"github.com/brainsta/game-admin/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	// Register PostgreSQL catalog backend
	catalog.Register("postgres", func(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
		return New(ctx, &cfg.Catalog.Postgres)
	})
}

// PostgresStore implements the Store interface on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// New connects to PostgreSQL and applies pending migrations.
func New(ctx context.Context, cfg *config.PostgresCatalogConfig) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MinIdleConnections)

	if err := RunMigrations(db.DB); err != nil {
		db.Close()
		return nil, err
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// RunMigrations applies all pending schema migrations.
func RunMigrations(db *sql.DB) error {
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Games returns the games collection.
func (s *PostgresStore) Games() catalog.Collection {
	return &collection{db: s.db, name: catalog.GamesCollection}
}

// Categories returns the categories collection.
func (s *PostgresStore) Categories() catalog.Collection {
	return &collection{db: s.db, name: catalog.CategoriesCollection}
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying pool for connection statistics reporting.
func (s *PostgresStore) DB() *sql.DB {
	return s.db.DB
}

// collection adapts one logical collection within the documents table to the
// Collection interface.
type collection struct {
	db   *sqlx.DB
	name string
}

func (c *collection) Add(ctx context.Context, fields map[string]any) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate document id: %w", err)
	}

	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to serialize document fields: %w", err)
	}

	query := `
		INSERT INTO documents (id, collection, fields)
		VALUES ($1, $2, $3)
	`

	if _, err := c.db.ExecContext(ctx, query, id.String(), c.name, data); err != nil {
		return "", fmt.Errorf("failed to add document to %s: %w", c.name, err)
	}

	return id.String(), nil
}

func (c *collection) All(ctx context.Context) ([]catalog.Record, error) {
	query := `
		SELECT id, fields
		FROM documents
		WHERE collection = $1
	`

	rows, err := c.db.QueryContext(ctx, query, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.name, err)
	}
	defer rows.Close()

	return c.scanRecords(rows)
}

func (c *collection) Get(ctx context.Context, id string) (*catalog.Record, error) {
	query := `
		SELECT id, fields
		FROM documents
		WHERE collection = $1 AND id = $2
	`

	var recID string
	var data []byte
	err := c.db.QueryRowContext(ctx, query, c.name, id).Scan(&recID, &data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", c.name, id, err)
	}

	fields, err := decodeFields(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", c.name, id, err)
	}

	return &catalog.Record{ID: recID, Fields: fields}, nil
}

func (c *collection) Update(ctx context.Context, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to serialize document fields: %w", err)
	}

	// jsonb || merges top-level keys, leaving fields not in the update intact.
	query := `
		UPDATE documents
		SET fields = fields || $3
		WHERE collection = $1 AND id = $2
	`

	result, err := c.db.ExecContext(ctx, query, c.name, id, data)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", c.name, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("document %s/%s not found", c.name, id)
	}

	return nil
}

func (c *collection) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`

	if _, err := c.db.ExecContext(ctx, query, c.name, id); err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", c.name, id, err)
	}

	return nil
}

func (c *collection) Where(ctx context.Context, field string, value any) ([]catalog.Record, error) {
	match, err := json.Marshal(map[string]any{field: value})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize match filter: %w", err)
	}

	// jsonb containment matches the field with its native type, so boolean
	// and string filters both work through the same query.
	query := `
		SELECT id, fields
		FROM documents
		WHERE collection = $1 AND fields @> $2
	`

	rows, err := c.db.QueryContext(ctx, query, c.name, match)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by %s: %w", c.name, field, err)
	}
	defer rows.Close()

	return c.scanRecords(rows)
}

func (c *collection) scanRecords(rows *sql.Rows) ([]catalog.Record, error) {
	var records []catalog.Record
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", c.name, err)
		}

		fields, err := decodeFields(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %s/%s: %w", c.name, id, err)
		}

		records = append(records, catalog.Record{ID: id, Fields: fields})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", c.name, err)
	}

	return records, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

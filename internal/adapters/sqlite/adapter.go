// Package sqlite provides a SQLite-backed implementation of the catalog ports.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3" // Import the driver anonymously

	"github.com/ewilliams-labs/loopmatch/internal/core/domain"
)

// Adapter implements ports.CatalogStore for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	db, err := sql.Open("sqlite3", storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	// one connection: sqlite serialises writers anyway, and ":memory:" is per connection
	db.SetMaxOpenConns(1)

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}

	// Auto-migrate on startup
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

const sampleColumns = `id, filename, name, bpm, "key", category, audio_url, drum_type`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (domain.CatalogItem, error) {
	var (
		item                         domain.CatalogItem
		name, key, category, url, dt sql.NullString
		bpm                          sql.NullFloat64
	)
	if err := row.Scan(&item.ID, &item.Filename, &name, &bpm, &key, &category, &url, &dt); err != nil {
		return domain.CatalogItem{}, err
	}
	item.Name = name.String
	item.BPM = bpm.Float64
	item.Key = key.String
	item.Category = category.String
	item.URL = url.String
	item.DrumType = dt.String
	return item, nil
}

// ListSamples returns the whole catalog in insertion order.
func (a *Adapter) ListSamples(ctx context.Context) ([]domain.CatalogItem, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT `+sampleColumns+` FROM samples ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	items := []domain.CatalogItem{}
	for rows.Next() {
		item, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate samples: %w", err)
	}
	return items, nil
}

// GetSample loads one row by id.
func (a *Adapter) GetSample(ctx context.Context, id string) (domain.CatalogItem, error) {
	row := a.db.QueryRowContext(ctx, `SELECT `+sampleColumns+` FROM samples WHERE id = ?`, id)
	item, err := scanSample(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CatalogItem{}, domain.ErrNotFound
		}
		return domain.CatalogItem{}, fmt.Errorf("failed to load sample: %w", err)
	}
	return item, nil
}

// SaveSamples upserts items by id in one transaction. Known BPM and key
// values are never overwritten by unknown ones.
func (a *Adapter) SaveSamples(ctx context.Context, items []domain.CatalogItem) error {
	// 1. Start Transaction
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	// 2. Prepare the upsert once
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO samples (`+sampleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename=excluded.filename,
			name=excluded.name,
			bpm=COALESCE(excluded.bpm, samples.bpm),
			"key"=COALESCE(excluded."key", samples."key"),
			category=excluded.category,
			audio_url=excluded.audio_url,
			drum_type=excluded.drum_type;
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample upsert: %w", err)
	}
	defer stmt.Close()

	// 3. Upsert
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			return fmt.Errorf("sample %q has no id: %w", it.Filename, domain.ErrInvalidInput)
		}
		if _, err := stmt.ExecContext(ctx,
			it.ID,
			it.Filename,
			nullString(it.Name),
			nullFloat(it.BPM),
			nullString(it.Key),
			nullString(it.Category),
			nullString(it.URL),
			nullString(it.DrumType),
		); err != nil {
			return fmt.Errorf("failed to save sample %s: %w", it.ID, err)
		}
	}

	// 4. Commit Transaction
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// UpdateSampleFeatures records analysed tempo and key. Zero bpm or empty
// key leave the stored value untouched.
func (a *Adapter) UpdateSampleFeatures(ctx context.Context, id string, bpm float64, key string) error {
	res, err := a.db.ExecContext(ctx, `
		UPDATE samples
		SET
			bpm = COALESCE(?, bpm),
			"key" = COALESCE(?, "key")
		WHERE id = ?
	`, nullFloat(bpm), nullString(key), id)
	if err != nil {
		return fmt.Errorf("failed to update sample features: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update sample features: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: f > 0}
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS samples (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		name TEXT,
		bpm REAL,
		"key" TEXT,
		category TEXT,
		audio_url TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := a.db.Exec(query); err != nil {
		return err
	}

	// columns added after the first catalog imports
	for _, stmt := range []string{
		"ALTER TABLE samples ADD COLUMN drum_type TEXT",
	} {
		if _, err := a.db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
			return err
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "duplicate column") || strings.Contains(err.Error(), "already exists"))
}

package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// The media_assets table is written by the upload collaborator; the gateway
// only ever reads it. The schema is created if absent so the gateway can
// start against a fresh database.
const assetSchema = `
CREATE TABLE IF NOT EXISTS media_assets (
	id                  TEXT PRIMARY KEY,
	owner_id            TEXT NOT NULL,
	status              TEXT NOT NULL,
	master_manifest_key TEXT,
	duration_seconds    REAL NOT NULL DEFAULT 0
);`

// SQLiteAssetRepository is an AssetRepository backed by a SQLite database.
type SQLiteAssetRepository struct {
	db *sql.DB
}

// OpenSQLiteAssetRepository opens (and if needed initializes) the asset
// database at path.
func OpenSQLiteAssetRepository(path string) (*SQLiteAssetRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open asset db: %w", err)
	}
	if _, err := db.Exec(assetSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init asset schema: %w", err)
	}
	return &SQLiteAssetRepository{db: db}, nil
}

// GetByID implements AssetRepository.GetByID.
func (r *SQLiteAssetRepository) GetByID(ctx context.Context, id string) (*MediaAsset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, status, master_manifest_key, duration_seconds
		 FROM media_assets WHERE id = ?`, id)

	var a MediaAsset
	var status string
	var masterKey sql.NullString
	err := row.Scan(&a.ID, &a.OwnerID, &status, &masterKey, &a.DurationSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query asset %s: %w", id, err)
	}

	a.Status = AssetStatus(status)
	if masterKey.Valid {
		a.MasterManifestKey = masterKey.String
	}
	return &a, nil
}

// ReadyCount implements AssetRepository.ReadyCount.
func (r *SQLiteAssetRepository) ReadyCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media_assets WHERE status = ?`, string(StatusReady)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ready assets: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (r *SQLiteAssetRepository) Close() error {
	return r.db.Close()
}

// Package database provides the persistent cache stores: a database/sql
// SQLite store for single-instance deploys and a gorm store for Postgres.
package database

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"

	_ "github.com/glebarez/go-sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

// SQLiteStore implements cache.Store on an embedded SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. ":memory:" is accepted for tests.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("error setting busy timeout: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func initializeSchema(db *sql.DB) error {
	schemaBytes, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("error reading schema file: %w", err)
	}
	if _, err := db.Exec(string(schemaBytes)); err != nil {
		return fmt.Errorf("error executing schema: %w", err)
	}
	logger.Debug("Cache schema initialized")
	return nil
}

func (s *SQLiteStore) GetImageAnalysis(ctx context.Context, hash string) (*cache.ImageAnalysisEntry, error) {
	var (
		blob                 string
		createdAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT detection_result, created_at, expires_at FROM image_analysis_cache WHERE hash = ?`, hash,
	).Scan(&blob, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query image analysis %s: %w", hash, err)
	}

	var result models.FoodDetectionResult
	if err := json.Unmarshal([]byte(blob), &result); err != nil {
		return nil, fmt.Errorf("decode image analysis %s: %w", hash, err)
	}
	return &cache.ImageAnalysisEntry{
		Hash:      hash,
		Result:    result,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}, nil
}

func (s *SQLiteStore) PutImageAnalysis(ctx context.Context, e cache.ImageAnalysisEntry) error {
	blob, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encode image analysis: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO image_analysis_cache (hash, detection_result, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			detection_result = excluded.detection_result,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, e.Hash, string(blob), e.CreatedAt.UnixMilli(), e.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert image analysis %s: %w", e.Hash, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteImageAnalysis(ctx context.Context, hash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM image_analysis_cache WHERE hash = ?`, hash)
	return err
}

func (s *SQLiteStore) GetNutrition(ctx context.Context, key string) (*cache.NutritionEntry, error) {
	var (
		blob                 string
		createdAt, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT nutrition_data, created_at, expires_at FROM nutrition_cache WHERE query_key = ?`, key,
	).Scan(&blob, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query nutrition %s: %w", key, err)
	}

	var match models.NutritionMatch
	if err := json.Unmarshal([]byte(blob), &match); err != nil {
		return nil, fmt.Errorf("decode nutrition %s: %w", key, err)
	}
	return &cache.NutritionEntry{
		QueryKey:  key,
		Match:     match,
		CreatedAt: time.UnixMilli(createdAt).UTC(),
		ExpiresAt: time.UnixMilli(expiresAt).UTC(),
	}, nil
}

func (s *SQLiteStore) PutNutrition(ctx context.Context, e cache.NutritionEntry) error {
	blob, err := json.Marshal(e.Match)
	if err != nil {
		return fmt.Errorf("encode nutrition: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO nutrition_cache (query_key, nutrition_data, source, matched_food_name, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_key) DO UPDATE SET
			nutrition_data = excluded.nutrition_data,
			source = excluded.source,
			matched_food_name = excluded.matched_food_name,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, e.QueryKey, string(blob), string(e.Match.Source), e.Match.MatchedFoodName, e.CreatedAt.UnixMilli(), e.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert nutrition %s: %w", e.QueryKey, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteNutrition(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nutrition_cache WHERE query_key = ?`, key)
	return err
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, now time.Time) (cache.CleanResult, error) {
	var res cache.CleanResult
	cutoff := now.UnixMilli()

	r, err := s.db.ExecContext(ctx, `DELETE FROM image_analysis_cache WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return res, fmt.Errorf("delete expired image analysis: %w", err)
	}
	res.ImageAnalysisDeleted, _ = r.RowsAffected()

	r, err = s.db.ExecContext(ctx, `DELETE FROM nutrition_cache WHERE expires_at <= ?`, cutoff)
	if err != nil {
		return res, fmt.Errorf("delete expired nutrition: %w", err)
	}
	res.NutritionDeleted, _ = r.RowsAffected()
	return res, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ cache.Store = (*SQLiteStore)(nil)

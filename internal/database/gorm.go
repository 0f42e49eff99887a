package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/pkg/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type imageAnalysisRow struct {
	Hash            string `gorm:"primaryKey;size:64"`
	DetectionResult string `gorm:"type:text;not null"`
	CreatedAt       int64  `gorm:"not null;autoCreateTime:false"`
	ExpiresAt       int64  `gorm:"not null;index"`
}

func (imageAnalysisRow) TableName() string { return "image_analysis_cache" }

type nutritionRow struct {
	QueryKey        string `gorm:"primaryKey;size:255"`
	NutritionData   string `gorm:"type:text;not null"`
	Source          string `gorm:"size:32;not null"`
	MatchedFoodName string `gorm:"size:255;not null;default:''"`
	CreatedAt       int64  `gorm:"not null;autoCreateTime:false"`
	ExpiresAt       int64  `gorm:"not null;index"`
}

func (nutritionRow) TableName() string { return "nutrition_cache" }

// GormStore implements cache.Store over any gorm dialector. Production
// uses Postgres so several instances share one cache.
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects with a DATABASE_URL style DSN.
func OpenPostgres(dsn string) (*GormStore, error) {
	return NewGormStore(postgres.Open(dsn))
}

// NewGormStore opens the dialector and migrates both cache tables.
func NewGormStore(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&imageAnalysisRow{}, &nutritionRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate cache tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) GetImageAnalysis(ctx context.Context, hash string) (*cache.ImageAnalysisEntry, error) {
	var row imageAnalysisRow
	if err := s.db.WithContext(ctx).First(&row, "hash = ?", hash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	var result models.FoodDetectionResult
	if err := json.Unmarshal([]byte(row.DetectionResult), &result); err != nil {
		return nil, fmt.Errorf("decode image analysis %s: %w", hash, err)
	}
	return &cache.ImageAnalysisEntry{
		Hash:      row.Hash,
		Result:    result,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(row.ExpiresAt).UTC(),
	}, nil
}

func (s *GormStore) PutImageAnalysis(ctx context.Context, e cache.ImageAnalysisEntry) error {
	blob, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("encode image analysis: %w", err)
	}
	row := imageAnalysisRow{
		Hash:            e.Hash,
		DetectionResult: string(blob),
		CreatedAt:       e.CreatedAt.UnixMilli(),
		ExpiresAt:       e.ExpiresAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *GormStore) DeleteImageAnalysis(ctx context.Context, hash string) error {
	return s.db.WithContext(ctx).Delete(&imageAnalysisRow{}, "hash = ?", hash).Error
}

func (s *GormStore) GetNutrition(ctx context.Context, key string) (*cache.NutritionEntry, error) {
	var row nutritionRow
	if err := s.db.WithContext(ctx).First(&row, "query_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cache.ErrNotFound
		}
		return nil, err
	}
	var match models.NutritionMatch
	if err := json.Unmarshal([]byte(row.NutritionData), &match); err != nil {
		return nil, fmt.Errorf("decode nutrition %s: %w", key, err)
	}
	return &cache.NutritionEntry{
		QueryKey:  row.QueryKey,
		Match:     match,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		ExpiresAt: time.UnixMilli(row.ExpiresAt).UTC(),
	}, nil
}

func (s *GormStore) PutNutrition(ctx context.Context, e cache.NutritionEntry) error {
	blob, err := json.Marshal(e.Match)
	if err != nil {
		return fmt.Errorf("encode nutrition: %w", err)
	}
	row := nutritionRow{
		QueryKey:        e.QueryKey,
		NutritionData:   string(blob),
		Source:          string(e.Match.Source),
		MatchedFoodName: e.Match.MatchedFoodName,
		CreatedAt:       e.CreatedAt.UnixMilli(),
		ExpiresAt:       e.ExpiresAt.UnixMilli(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *GormStore) DeleteNutrition(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&nutritionRow{}, "query_key = ?", key).Error
}

func (s *GormStore) DeleteExpired(ctx context.Context, now time.Time) (cache.CleanResult, error) {
	var res cache.CleanResult
	cutoff := now.UnixMilli()

	r := s.db.WithContext(ctx).Where("expires_at <= ?", cutoff).Delete(&imageAnalysisRow{})
	if r.Error != nil {
		return res, fmt.Errorf("delete expired image analysis: %w", r.Error)
	}
	res.ImageAnalysisDeleted = r.RowsAffected

	r = s.db.WithContext(ctx).Where("expires_at <= ?", cutoff).Delete(&nutritionRow{})
	if r.Error != nil {
		return res, fmt.Errorf("delete expired nutrition: %w", r.Error)
	}
	res.NutritionDeleted = r.RowsAffected
	return res, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ cache.Store = (*GormStore)(nil)

// Package cachetest holds a conformance suite every cache.Store must pass.
package cachetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-meal-analyzer/internal/cache"
	"go-meal-analyzer/pkg/models"
)

// RunStoreConformance exercises upsert, lookup, delete and expiry sweeps.
func RunStoreConformance(t *testing.T, newStore func(t *testing.T) cache.Store) {
	t.Helper()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("image analysis round trip and upsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		if _, err := s.GetImageAnalysis(ctx, "missing"); !errors.Is(err, cache.ErrNotFound) {
			t.Fatalf("missing key error = %v, want ErrNotFound", err)
		}

		first := cache.ImageAnalysisEntry{
			Hash:      "abc",
			Result:    sampleResult("apple"),
			CreatedAt: base,
			ExpiresAt: base.Add(10 * time.Minute),
		}
		if err := s.PutImageAnalysis(ctx, first); err != nil {
			t.Fatalf("PutImageAnalysis() error = %v", err)
		}
		second := first
		second.Result = sampleResult("banana")
		second.ExpiresAt = base.Add(20 * time.Minute)
		if err := s.PutImageAnalysis(ctx, second); err != nil {
			t.Fatalf("upsert error = %v", err)
		}

		got, err := s.GetImageAnalysis(ctx, "abc")
		if err != nil {
			t.Fatalf("GetImageAnalysis() error = %v", err)
		}
		if len(got.Result.Items) != 1 || got.Result.Items[0].Name != "banana" {
			t.Errorf("result = %+v, want last write", got.Result)
		}
		if !got.ExpiresAt.Equal(second.ExpiresAt) {
			t.Errorf("expires_at = %v, want %v", got.ExpiresAt, second.ExpiresAt)
		}
		if got.Result.Items[0].Portion.Value == nil || *got.Result.Items[0].Portion.Value != 120 {
			t.Errorf("portion value lost: %+v", got.Result.Items[0].Portion)
		}
		if !got.Result.PhotoQuality.IsBlurry {
			t.Error("photo quality lost")
		}

		if err := s.DeleteImageAnalysis(ctx, "abc"); err != nil {
			t.Fatalf("DeleteImageAnalysis() error = %v", err)
		}
		if _, err := s.GetImageAnalysis(ctx, "abc"); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("after delete error = %v", err)
		}
	})

	t.Run("nutrition round trip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		entry := cache.NutritionEntry{
			QueryKey: "primary_provider/apple:fruit",
			Match: models.NutritionMatch{
				Source:          models.SourcePrimaryProvider,
				Confidence:      0.8,
				Score:           130,
				MatchedFoodName: "Apple",
				ServingAmount:   100,
				ServingUnit:     "g",
				Nutrition:       models.Nutrition{Calories: models.Float(52), FatG: nil},
			},
			CreatedAt: base,
			ExpiresAt: base.Add(24 * time.Hour),
		}
		if err := s.PutNutrition(ctx, entry); err != nil {
			t.Fatalf("PutNutrition() error = %v", err)
		}
		got, err := s.GetNutrition(ctx, entry.QueryKey)
		if err != nil {
			t.Fatalf("GetNutrition() error = %v", err)
		}
		if got.Match.MatchedFoodName != "Apple" || got.Match.Source != models.SourcePrimaryProvider {
			t.Errorf("match = %+v", got.Match)
		}
		if got.Match.Nutrition.Calories == nil || *got.Match.Nutrition.Calories != 52 || got.Match.Nutrition.FatG != nil {
			t.Errorf("nutrition = %+v", got.Match.Nutrition)
		}

		if err := s.DeleteNutrition(ctx, entry.QueryKey); err != nil {
			t.Fatalf("DeleteNutrition() error = %v", err)
		}
		if _, err := s.GetNutrition(ctx, entry.QueryKey); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("after delete error = %v", err)
		}
	})

	t.Run("delete expired", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		must(t, s.PutImageAnalysis(ctx, cache.ImageAnalysisEntry{Hash: "old", Result: sampleResult("a"), CreatedAt: base, ExpiresAt: base.Add(time.Minute)}))
		must(t, s.PutImageAnalysis(ctx, cache.ImageAnalysisEntry{Hash: "new", Result: sampleResult("b"), CreatedAt: base, ExpiresAt: base.Add(time.Hour)}))
		must(t, s.PutNutrition(ctx, cache.NutritionEntry{QueryKey: "k1", CreatedAt: base, ExpiresAt: base.Add(time.Minute)}))
		must(t, s.PutNutrition(ctx, cache.NutritionEntry{QueryKey: "k2", CreatedAt: base, ExpiresAt: base.Add(2 * time.Minute)}))
		must(t, s.PutNutrition(ctx, cache.NutritionEntry{QueryKey: "k3", CreatedAt: base, ExpiresAt: base.Add(time.Hour)}))

		res, err := s.DeleteExpired(ctx, base.Add(30*time.Minute))
		if err != nil {
			t.Fatalf("DeleteExpired() error = %v", err)
		}
		if res.ImageAnalysisDeleted != 1 || res.NutritionDeleted != 2 {
			t.Errorf("deleted = %+v, want 1 image and 2 nutrition", res)
		}
		if _, err := s.GetImageAnalysis(ctx, "new"); err != nil {
			t.Errorf("live entry removed: %v", err)
		}
		if _, err := s.GetNutrition(ctx, "k3"); err != nil {
			t.Errorf("live nutrition entry removed: %v", err)
		}
	})
}

func sampleResult(name string) models.FoodDetectionResult {
	return models.FoodDetectionResult{
		Items: []models.DetectedItem{{
			Name:       name,
			Synonyms:   []string{name + "s"},
			Category:   models.CategoryFruit,
			Confidence: 0.9,
			Portion: models.Portion{
				EstimateType: models.EstimateWeightG,
				Value:        models.Float(120),
				Unit:         models.UnitGram,
				Confidence:   0.8,
			},
		}},
		PhotoQuality: models.PhotoQuality{IsBlurry: true},
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

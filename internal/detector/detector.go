// Package detector asks a vision model which foods are on the plate and
// normalizes whatever comes back into safe enum values.
package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/pkg/models"
)

// UnknownFoodName replaces empty names in model output.
const UnknownFoodName = "Unknown food"

const maxSynonyms = 5

// VisionModel returns the raw JSON reply for one photo.
type VisionModel interface {
	Generate(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// Detector wraps a VisionModel. Detection never fails: any model problem
// yields an empty result.
type Detector struct {
	model   VisionModel
	timeout time.Duration
}

func New(model VisionModel, timeout time.Duration) *Detector {
	return &Detector{model: model, timeout: timeout}
}

// Detect runs the model on an already validated and fetched photo.
func (d *Detector) Detect(ctx context.Context, image []byte, mimeType, mealType, mealTime string) models.FoodDetectionResult {
	log := logger.FromContext(ctx)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := d.model.Generate(ctx, buildPrompt(mealType, mealTime), image, mimeType)
	if err != nil {
		log.WithError(err).Warn("Vision model call failed")
		return models.FoodDetectionResult{Items: []models.DetectedItem{}}
	}

	result, err := Parse(raw)
	if err != nil {
		log.WithError(err).Warn("Vision model returned unusable output")
		return models.FoodDetectionResult{Items: []models.DetectedItem{}}
	}

	log.WithField("items", len(result.Items)).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Food detection completed")
	return result
}

type rawPortion struct {
	EstimateType string   `json:"estimate_type"`
	Value        *float64 `json:"value"`
	Unit         string   `json:"unit"`
	Confidence   float64  `json:"confidence"`
}

type rawItem struct {
	Name                     string     `json:"name"`
	Synonyms                 []string   `json:"synonyms"`
	Category                 string     `json:"category"`
	VisiblePortionDescriptor string     `json:"visible_portion_descriptor"`
	Portion                  rawPortion `json:"portion"`
	Confidence               float64    `json:"confidence"`
}

type rawResult struct {
	Items        []rawItem           `json:"items"`
	PhotoQuality models.PhotoQuality `json:"photo_quality"`
}

// Parse decodes a model reply and normalizes it.
func Parse(raw string) (models.FoodDetectionResult, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return models.FoodDetectionResult{}, fmt.Errorf("empty model response")
	}

	var parsed rawResult
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return models.FoodDetectionResult{}, fmt.Errorf("failed to parse model response: %w", err)
	}

	result := models.FoodDetectionResult{
		Items:        make([]models.DetectedItem, 0, len(parsed.Items)),
		PhotoQuality: parsed.PhotoQuality,
	}
	for _, it := range parsed.Items {
		result.Items = append(result.Items, normalizeItem(it))
	}
	return result, nil
}

func normalizeItem(it rawItem) models.DetectedItem {
	name := strings.TrimSpace(it.Name)
	if name == "" {
		name = UnknownFoodName
	}

	category := models.Category(strings.ToLower(strings.TrimSpace(it.Category)))
	if !category.Valid() {
		category = models.CategoryOther
	}

	estimate := models.EstimateType(strings.ToLower(strings.TrimSpace(it.Portion.EstimateType)))
	if !estimate.Valid() {
		estimate = models.EstimateQualitative
	}

	unit := models.Unit(strings.ToLower(strings.TrimSpace(it.Portion.Unit)))
	if !unit.ValidDetectorUnit() {
		unit = models.UnitServing
	}

	var value *float64
	if v := it.Portion.Value; v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0 {
		value = models.Float(*v)
	}

	return models.DetectedItem{
		Name:                     name,
		Synonyms:                 cleanSynonyms(name, it.Synonyms),
		Category:                 category,
		VisiblePortionDescriptor: strings.TrimSpace(it.VisiblePortionDescriptor),
		Portion: models.Portion{
			EstimateType: estimate,
			Value:        value,
			Unit:         unit,
			Confidence:   clamp01(it.Portion.Confidence),
		},
		Confidence: clamp01(it.Confidence),
	}
}

func cleanSynonyms(name string, synonyms []string) []string {
	seen := map[string]bool{strings.ToLower(name): true}
	out := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == maxSynonyms {
			break
		}
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Package followup generates clarification questions for low-confidence
// items and replays user answers onto the analyzed items.
package followup

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go-meal-analyzer/internal/logger"
	"go-meal-analyzer/internal/nutrition"
	"go-meal-analyzer/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Answer options offered to the client.
const (
	OptionYes           = "Yes"
	OptionRemove        = "No, remove it"
	OptionSomethingElse = "Something else"
	OptionSmall         = "Small"
	OptionMedium        = "Medium"
	OptionLarge         = "Large"
	OptionEnterGrams    = "Enter grams"
)

// Confidence assigned after the user answered.
const (
	ConfirmedDetectionConfidence = 1.0
	ConfirmedPortionConfidence   = 0.9
	ExactPortionConfidence       = 0.95
)

// MaxEnteredGrams bounds a typed gram amount for a single item.
const MaxEnteredGrams = 5000.0

// SizeMultipliers maps the size options to portion multipliers.
var SizeMultipliers = map[string]float64{
	OptionSmall:  0.7,
	OptionMedium: 1.0,
	OptionLarge:  1.5,
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:meal-analysis"))

// ItemID is stable for the same photo and detection index, so a cached
// re-run yields the same ids.
func ItemID(imageHash string, index int) string {
	return uuid.NewSHA1(idNamespace, []byte(imageHash+"#"+strconv.Itoa(index))).String()
}

// QuestionID is stable for an item and question type.
func QuestionID(itemID string, t models.QuestionType) string {
	return uuid.NewSHA1(idNamespace, []byte(itemID+"/"+string(t))).String()
}

// Thresholds below which a question is raised.
type Thresholds struct {
	Detection float64
	Portion   float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Detection: 0.65, Portion: 0.5}
}

// Renamer re-resolves nutrition when the user corrects an item's name.
type Renamer interface {
	Rename(ctx context.Context, item models.AnalyzedItem, name string) models.AnalyzedItem
}

// Engine creates questions and applies answers.
type Engine struct {
	thresholds Thresholds
	renamer    Renamer
}

func NewEngine(thresholds Thresholds, renamer Renamer) *Engine {
	return &Engine{thresholds: thresholds, renamer: renamer}
}

// Generate returns at most one question per item. Identity confirmation
// takes priority over the amount.
func (e *Engine) Generate(items []models.AnalyzedItem) []models.FollowupQuestion {
	questions := make([]models.FollowupQuestion, 0)
	for _, item := range items {
		switch {
		case item.DetectionConfidence < e.thresholds.Detection:
			questions = append(questions, models.FollowupQuestion{
				ID:       QuestionID(item.ID, models.QuestionChooseOne),
				ItemID:   item.ID,
				Type:     models.QuestionChooseOne,
				Question: fmt.Sprintf("Is this %s?", item.Name),
				Options:  []string{OptionYes, OptionRemove, OptionSomethingElse},
			})
		case item.Portion.Confidence < e.thresholds.Portion || item.PortionEstimate == models.EstimateNone:
			questions = append(questions, models.FollowupQuestion{
				ID:       QuestionID(item.ID, models.QuestionEnterAmount),
				ItemID:   item.ID,
				Type:     models.QuestionEnterAmount,
				Question: fmt.Sprintf("How much %s was there?", item.Name),
				Options:  []string{OptionSmall, OptionMedium, OptionLarge, OptionEnterGrams},
			})
		}
	}
	return questions
}

// Outcome is the result of replaying responses.
type Outcome struct {
	Items   []models.AnalyzedItem
	Applied []models.FollowupResponse
	Pending []models.FollowupQuestion
}

// Dedupe keeps the first response per question id.
func Dedupe(responses []models.FollowupResponse) []models.FollowupResponse {
	seen := make(map[string]bool, len(responses))
	out := make([]models.FollowupResponse, 0, len(responses))
	for _, r := range responses {
		if r.QuestionID == "" || seen[r.QuestionID] {
			continue
		}
		seen[r.QuestionID] = true
		out = append(out, r)
	}
	return out
}

// Replay applies responses to a copy of original, round by round, always
// starting from the original items. Replaying the same response set twice
// gives the same items. Responses to questions that are never raised are
// ignored.
func (e *Engine) Replay(ctx context.Context, original []models.AnalyzedItem, responses []models.FollowupResponse) Outcome {
	log := logger.FromContext(ctx)
	responses = Dedupe(responses)
	byID := make(map[string]models.FollowupResponse, len(responses))
	for _, r := range responses {
		byID[r.QuestionID] = r
	}

	items := cloneItems(original)
	applied := make([]models.FollowupResponse, 0, len(responses))
	used := make(map[string]bool, len(responses))

	for round := 0; round <= len(responses); round++ {
		progressed := false
		for _, q := range e.Generate(items) {
			r, ok := byID[q.ID]
			if !ok || used[q.ID] {
				continue
			}
			next, ok := e.apply(ctx, items, q, r.Answer)
			if !ok {
				log.WithFields(logrus.Fields{"question_id": q.ID, "answer": r.Answer.String()}).
					Debug("Follow-up answer not applicable")
				continue
			}
			items = next
			used[q.ID] = true
			applied = append(applied, r)
			progressed = true
		}
		if !progressed {
			break
		}
	}

	if ignored := len(responses) - len(applied); ignored > 0 {
		log.WithField("ignored", ignored).Debug("Follow-up responses without a matching question")
	}

	pending := make([]models.FollowupQuestion, 0)
	for _, q := range e.Generate(items) {
		if !used[q.ID] {
			pending = append(pending, q)
		}
	}
	return Outcome{Items: items, Applied: applied, Pending: pending}
}

func (e *Engine) apply(ctx context.Context, items []models.AnalyzedItem, q models.FollowupQuestion, answer models.Answer) ([]models.AnalyzedItem, bool) {
	idx := -1
	for i := range items {
		if items[i].ID == q.ItemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, false
	}

	switch q.Type {
	case models.QuestionChooseOne:
		return e.applyChoice(ctx, items, idx, answer)
	case models.QuestionEnterAmount:
		return applyAmount(items, idx, answer)
	}
	return items, false
}

func (e *Engine) applyChoice(ctx context.Context, items []models.AnalyzedItem, idx int, answer models.Answer) ([]models.AnalyzedItem, bool) {
	if answer.Number != nil && answer.Text == "" {
		return items, false
	}
	text := strings.TrimSpace(answer.Text)

	switch {
	case strings.EqualFold(text, OptionYes):
		items[idx].DetectionConfidence = ConfirmedDetectionConfidence
		return items, true
	case strings.EqualFold(text, OptionRemove), strings.EqualFold(text, "no"), strings.EqualFold(text, "remove"):
		out := make([]models.AnalyzedItem, 0, len(items)-1)
		out = append(out, items[:idx]...)
		return append(out, items[idx+1:]...), true
	case text == "", strings.EqualFold(text, OptionSomethingElse):
		// the client still owes the corrected name
		return items, false
	}

	renamed := items[idx]
	if e.renamer != nil {
		renamed = e.renamer.Rename(ctx, items[idx], text)
	}
	renamed.ID = items[idx].ID
	renamed.Name = text
	renamed.DetectionConfidence = ConfirmedDetectionConfidence
	items[idx] = renamed
	return items, true
}

func applyAmount(items []models.AnalyzedItem, idx int, answer models.Answer) ([]models.AnalyzedItem, bool) {
	item := &items[idx]

	if factor, ok := sizeMultiplier(answer); ok {
		item.EstimatedGrams = roundTenth(item.EstimatedGrams * factor)
		item.Nutrition = nutrition.MultiplyNutrition(item.Nutrition, factor)
		item.Portion.Confidence = ConfirmedPortionConfidence
		return items, true
	}

	grams, ok := answer.Numeric()
	if !ok || math.IsNaN(grams) || grams <= 0 || grams > MaxEnteredGrams {
		return items, false
	}
	if item.EstimatedGrams > 0 {
		item.Nutrition = nutrition.MultiplyNutrition(item.Nutrition, grams/item.EstimatedGrams)
	}
	item.EstimatedGrams = grams
	item.Portion = models.Portion{
		EstimateType: models.EstimateWeightG,
		Value:        models.Float(grams),
		Unit:         models.UnitGram,
		Confidence:   ExactPortionConfidence,
	}
	item.ServingDescription = strconv.FormatFloat(grams, 'f', -1, 64) + "g (entered by user)"
	return items, true
}

func sizeMultiplier(answer models.Answer) (float64, bool) {
	text := strings.TrimSpace(answer.Text)
	for option, factor := range SizeMultipliers {
		if strings.EqualFold(text, option) {
			return factor, true
		}
	}
	return 0, false
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

func cloneItems(items []models.AnalyzedItem) []models.AnalyzedItem {
	out := make([]models.AnalyzedItem, len(items))
	for i, it := range items {
		out[i] = it
		out[i].Synonyms = append([]string{}, it.Synonyms...)
		if it.Nutrition != nil {
			n := *it.Nutrition
			out[i].Nutrition = &n
		}
		if it.Portion.Value != nil {
			out[i].Portion.Value = models.Float(*it.Portion.Value)
		}
	}
	return out
}

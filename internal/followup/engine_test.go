package followup

import (
	"context"
	"encoding/json"
	"testing"

	"go-meal-analyzer/pkg/models"
)

func analyzed(id, name string, detection, portionConf float64, grams, kcal float64) models.AnalyzedItem {
	return models.AnalyzedItem{
		ID:       id,
		Name:     name,
		Synonyms: []string{},
		Category: models.CategoryOther,
		Portion: models.Portion{
			EstimateType: models.EstimateWeightG,
			Value:        models.Float(1),
			Unit:         models.UnitServing,
			Confidence:   portionConf,
		},
		PortionEstimate:     models.EstimateWeightG,
		EstimatedGrams:      grams,
		DetectionConfidence: detection,
		Nutrition: &models.Nutrition{
			Calories: models.Float(kcal),
			ProteinG: models.Float(10),
			SugarG:   nil,
		},
		NutritionSource:     models.SourcePrimaryProvider,
		NutritionConfidence: 0.8,
	}
}

type stubRenamer struct{ calls int }

func (s *stubRenamer) Rename(_ context.Context, item models.AnalyzedItem, name string) models.AnalyzedItem {
	s.calls++
	item.Nutrition = &models.Nutrition{Calories: models.Float(999)}
	item.MatchedFoodName = name + " (matched)"
	return item
}

func TestGenerate(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)

	noneEstimate := analyzed("d", "soup", 0.9, 0.8, 300, 120)
	noneEstimate.PortionEstimate = models.EstimateNone

	items := []models.AnalyzedItem{
		analyzed("a", "rice", 0.4, 0.2, 180, 230),   // both low: identity wins
		analyzed("b", "salmon", 0.9, 0.3, 150, 300), // portion low
		analyzed("c", "apple", 0.65, 0.5, 180, 94),  // exactly at thresholds
		noneEstimate,
	}

	qs := e.Generate(items)
	if len(qs) != 3 {
		t.Fatalf("questions = %d, want 3: %+v", len(qs), qs)
	}

	if qs[0].Type != models.QuestionChooseOne || qs[0].ItemID != "a" || qs[0].Question != "Is this rice?" {
		t.Errorf("first question = %+v", qs[0])
	}
	if len(qs[0].Options) != 3 || qs[0].Options[1] != OptionRemove {
		t.Errorf("choose_one options = %v", qs[0].Options)
	}
	if qs[1].Type != models.QuestionEnterAmount || qs[1].ItemID != "b" {
		t.Errorf("second question = %+v", qs[1])
	}
	if len(qs[1].Options) != 4 || qs[1].Options[3] != OptionEnterGrams {
		t.Errorf("enter_amount options = %v", qs[1].Options)
	}
	if qs[2].ItemID != "d" || qs[2].Type != models.QuestionEnterAmount {
		t.Errorf("estimate none should ask for amount: %+v", qs[2])
	}
}

func TestQuestionIDsAreDeterministic(t *testing.T) {
	if ItemID("hash", 0) != ItemID("hash", 0) || ItemID("hash", 0) == ItemID("hash", 1) {
		t.Error("ItemID must be stable per hash and index")
	}
	id := ItemID("hash", 2)
	if QuestionID(id, models.QuestionChooseOne) == QuestionID(id, models.QuestionEnterAmount) {
		t.Error("QuestionID must differ per type")
	}

	e := NewEngine(DefaultThresholds(), nil)
	items := []models.AnalyzedItem{analyzed(id, "rice", 0.3, 0.9, 100, 130)}
	if e.Generate(items)[0].ID != e.Generate(items)[0].ID {
		t.Error("regenerated questions must keep their ids")
	}
}

func TestReplay_RemovalIsIdempotent(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)
	original := []models.AnalyzedItem{
		analyzed("a", "rice", 0.9, 0.9, 180, 230),
		analyzed("b", "mystery sauce", 0.3, 0.9, 50, 80),
		analyzed("c", "salad", 0.9, 0.9, 100, 20),
	}
	qid := QuestionID("b", models.QuestionChooseOne)
	responses := []models.FollowupResponse{{QuestionID: qid, Answer: models.TextAnswer(OptionRemove)}}

	first := e.Replay(context.Background(), original, responses)
	if len(first.Items) != 2 {
		t.Fatalf("items after removal = %d, want 2", len(first.Items))
	}

	// replaying the accumulated set, with the response sent twice, still removes one
	again := e.Replay(context.Background(), original, append(first.Applied, responses...))
	if len(again.Items) != 2 {
		t.Fatalf("items after replay = %d, want 2", len(again.Items))
	}
	if len(again.Applied) != 1 {
		t.Errorf("applied = %d, want 1", len(again.Applied))
	}
	if len(original) != 3 {
		t.Error("original items must not be modified")
	}
	if len(again.Pending) != 0 {
		t.Errorf("pending = %+v", again.Pending)
	}
}

func TestReplay_SizeAnswers(t *testing.T) {
	tests := []struct {
		answer   string
		grams    float64
		calories float64
	}{
		{OptionSmall, 140, 140},
		{"medium", 200, 200},
		{OptionLarge, 300, 300},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			e := NewEngine(DefaultThresholds(), nil)
			original := []models.AnalyzedItem{analyzed("a", "pasta", 0.9, 0.3, 200, 200)}
			qid := QuestionID("a", models.QuestionEnterAmount)

			out := e.Replay(context.Background(), original, []models.FollowupResponse{{QuestionID: qid, Answer: models.TextAnswer(tt.answer)}})
			item := out.Items[0]
			if item.EstimatedGrams != tt.grams {
				t.Errorf("grams = %v, want %v", item.EstimatedGrams, tt.grams)
			}
			if *item.Nutrition.Calories != tt.calories {
				t.Errorf("calories = %v, want %v", *item.Nutrition.Calories, tt.calories)
			}
			if item.Nutrition.SugarG != nil {
				t.Error("absent nutrient must stay absent")
			}
			if item.Portion.Confidence != ConfirmedPortionConfidence {
				t.Errorf("portion confidence = %v", item.Portion.Confidence)
			}
			if len(out.Pending) != 0 {
				t.Errorf("pending = %+v", out.Pending)
			}
		})
	}
}

func TestReplay_NumericAnswerIsAuthoritative(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)
	original := []models.AnalyzedItem{analyzed("a", "steak", 0.9, 0.2, 200, 500)}
	qid := QuestionID("a", models.QuestionEnterAmount)

	for _, answer := range []models.Answer{models.NumberAnswer(250), models.TextAnswer("250g")} {
		out := e.Replay(context.Background(), original, []models.FollowupResponse{{QuestionID: qid, Answer: answer}})
		item := out.Items[0]
		want := models.Portion{EstimateType: models.EstimateWeightG, Value: models.Float(250), Unit: models.UnitGram, Confidence: ExactPortionConfidence}
		if item.Portion.EstimateType != want.EstimateType || *item.Portion.Value != 250 || item.Portion.Unit != want.Unit || item.Portion.Confidence != want.Confidence {
			t.Errorf("portion = %+v, want %+v", item.Portion, want)
		}
		if item.EstimatedGrams != 250 || *item.Nutrition.Calories != 625 {
			t.Errorf("grams %v calories %v, want 250/625", item.EstimatedGrams, *item.Nutrition.Calories)
		}
	}
}

func TestReplay_UnusableAnswersStayPending(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)
	original := []models.AnalyzedItem{
		analyzed("a", "steak", 0.9, 0.2, 200, 500),
		analyzed("b", "bread", 0.3, 0.9, 60, 160),
	}
	responses := []models.FollowupResponse{
		{QuestionID: QuestionID("a", models.QuestionEnterAmount), Answer: models.TextAnswer(OptionEnterGrams)},
		{QuestionID: QuestionID("b", models.QuestionChooseOne), Answer: models.TextAnswer(OptionSomethingElse)},
		{QuestionID: "unknown", Answer: models.TextAnswer(OptionYes)},
	}

	out := e.Replay(context.Background(), original, responses)
	if len(out.Applied) != 0 {
		t.Errorf("applied = %+v, want none", out.Applied)
	}
	if len(out.Pending) != 2 {
		t.Errorf("pending = %d, want 2", len(out.Pending))
	}
}

func TestReplay_RejectsOutOfRangeGrams(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)
	original := []models.AnalyzedItem{analyzed("a", "steak", 0.9, 0.2, 200, 500)}
	qid := QuestionID("a", models.QuestionEnterAmount)

	answers := []models.Answer{
		models.TextAnswer("NaN"),
		models.TextAnswer("nan g"),
		models.TextAnswer("1e308"),
		models.TextAnswer("+Inf"),
		models.NumberAnswer(MaxEnteredGrams + 1),
		models.NumberAnswer(-20),
	}
	for _, answer := range answers {
		out := e.Replay(context.Background(), original, []models.FollowupResponse{{QuestionID: qid, Answer: answer}})
		if len(out.Applied) != 0 || len(out.Pending) != 1 {
			t.Errorf("answer %+v: applied %d pending %d, want 0/1", answer, len(out.Applied), len(out.Pending))
		}
		item := out.Items[0]
		if item.EstimatedGrams != 200 || *item.Nutrition.Calories != 500 {
			t.Errorf("answer %+v changed the item: grams %v calories %v", answer, item.EstimatedGrams, *item.Nutrition.Calories)
		}
		if _, err := json.Marshal(out.Items); err != nil {
			t.Errorf("answer %+v: items no longer encode: %v", answer, err)
		}
	}

	out := e.Replay(context.Background(), original, []models.FollowupResponse{{QuestionID: qid, Answer: models.NumberAnswer(MaxEnteredGrams)}})
	if len(out.Applied) != 1 || out.Items[0].EstimatedGrams != MaxEnteredGrams {
		t.Errorf("upper bound should be accepted, got %+v", out.Items[0])
	}
}

func TestReplay_SecondRoundQuestion(t *testing.T) {
	e := NewEngine(DefaultThresholds(), nil)
	original := []models.AnalyzedItem{analyzed("a", "curry", 0.4, 0.2, 350, 600)}

	first := e.Replay(context.Background(), original, []models.FollowupResponse{
		{QuestionID: QuestionID("a", models.QuestionChooseOne), Answer: models.TextAnswer("yes")},
	})
	if len(first.Pending) != 1 || first.Pending[0].Type != models.QuestionEnterAmount {
		t.Fatalf("confirming identity should surface the amount question, got %+v", first.Pending)
	}
	if first.Items[0].DetectionConfidence != ConfirmedDetectionConfidence {
		t.Errorf("detection confidence = %v", first.Items[0].DetectionConfidence)
	}

	second := e.Replay(context.Background(), original, append(first.Applied, models.FollowupResponse{
		QuestionID: first.Pending[0].ID, Answer: models.TextAnswer(OptionLarge),
	}))
	if len(second.Pending) != 0 || len(second.Applied) != 2 {
		t.Errorf("pending %d applied %d, want 0/2", len(second.Pending), len(second.Applied))
	}
	if second.Items[0].EstimatedGrams != 525 {
		t.Errorf("grams = %v, want 525", second.Items[0].EstimatedGrams)
	}
}

func TestReplay_RenameUsesRenamer(t *testing.T) {
	renamer := &stubRenamer{}
	e := NewEngine(DefaultThresholds(), renamer)
	original := []models.AnalyzedItem{analyzed("a", "white rice", 0.5, 0.9, 180, 230)}

	out := e.Replay(context.Background(), original, []models.FollowupResponse{
		{QuestionID: QuestionID("a", models.QuestionChooseOne), Answer: models.TextAnswer("  cauliflower rice ")},
	})
	if renamer.calls != 1 {
		t.Fatalf("renamer calls = %d", renamer.calls)
	}
	item := out.Items[0]
	if item.Name != "cauliflower rice" || item.ID != "a" || *item.Nutrition.Calories != 999 {
		t.Errorf("renamed item = %+v", item)
	}
	if item.DetectionConfidence != ConfirmedDetectionConfidence {
		t.Errorf("detection confidence = %v", item.DetectionConfidence)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]models.FollowupResponse{
		{QuestionID: "q1", Answer: models.TextAnswer("Small")},
		{QuestionID: "", Answer: models.TextAnswer("x")},
		{QuestionID: "q1", Answer: models.TextAnswer("Large")},
		{QuestionID: "q2", Answer: models.NumberAnswer(3)},
	})
	if len(got) != 2 || got[0].Answer.Text != "Small" || got[1].QuestionID != "q2" {
		t.Errorf("Dedupe() = %+v", got)
	}
}

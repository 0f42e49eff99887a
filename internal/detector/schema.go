package detector

import (
	"fmt"
	"strings"

	"go-meal-analyzer/pkg/models"

	"cloud.google.com/go/vertexai/genai"
)

func enumStrings[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}

// detectionSchema is enforced by the model provider so the reply is always
// structurally valid JSON.
func detectionSchema() *genai.Schema {
	confidence := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc + " from 0 to 1"}
	}

	portion := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"estimate_type": {Type: genai.TypeString, Enum: enumStrings(models.EstimateTypes)},
			"value":         {Type: genai.TypeNumber, Nullable: true, Description: "numeric amount in unit, null when unknown"},
			"unit":          {Type: genai.TypeString, Enum: enumStrings(models.DetectorUnits)},
			"confidence":    confidence("certainty about the amount"),
		},
		Required: []string{"estimate_type", "value", "unit", "confidence"},
	}

	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":                       {Type: genai.TypeString, Description: "common food name, singular, no brand"},
			"synonyms":                   {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"category":                   {Type: genai.TypeString, Enum: enumStrings(models.Categories)},
			"visible_portion_descriptor": {Type: genai.TypeString},
			"portion":                    portion,
			"confidence":                 confidence("certainty the name is correct"),
		},
		Required: []string{"name", "synonyms", "category", "visible_portion_descriptor", "portion", "confidence"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"items": {Type: genai.TypeArray, Items: item},
			"photo_quality": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"is_blurry":            {Type: genai.TypeBoolean},
					"has_occlusion":        {Type: genai.TypeBoolean},
					"has_reference_object": {Type: genai.TypeBoolean},
					"lighting_issue":       {Type: genai.TypeBoolean},
				},
				Required: []string{"is_blurry", "has_occlusion", "has_reference_object", "lighting_issue"},
			},
		},
		Required: []string{"items", "photo_quality"},
	}
}

const systemPrompt = `You identify foods in meal photos for a nutrition log.
List each distinct food or drink you can see. Do not estimate calories or nutrients.
Use plain generic names ("grilled chicken breast", not a brand or dish marketing name) and give up to 3 synonyms that a nutrition database would recognise.
Estimate the amount: prefer weight_g with a gram value; use volume_ml for drinks and liquids; use qualitative with a household unit (cup, tbsp, tsp, piece, slice, serving) when weight is impractical; use none with a null value when you cannot judge the amount.
A plate is about 26 cm across, a fork about 19 cm, a can 330 ml; use any such reference object you see and report it in photo_quality.
Confidence values run from 0 to 1. Be honest: a partly hidden or ambiguous food should get a low confidence.`

// buildPrompt adds the optional meal context to the user turn.
func buildPrompt(mealType, mealTime string) string {
	var b strings.Builder
	b.WriteString("Detect the foods in this photo.")
	if mealType != "" {
		fmt.Fprintf(&b, " The user logged it as %s.", strings.ToLower(mealType))
	}
	if mealTime != "" {
		fmt.Fprintf(&b, " It was eaten at %s.", mealTime)
	}
	return b.String()
}

package models

// MealAnalysisRequest is the body of the meal analysis endpoint.
type MealAnalysisRequest struct {
	UserID            string             `json:"user_id"`
	PhotoURL          string             `json:"photo_url"`
	MealType          string             `json:"meal_type,omitempty" binding:"omitempty,oneof=breakfast lunch dinner snack"`
	MealTime          string             `json:"meal_time,omitempty"`
	FollowupResponses []FollowupResponse `json:"followup_responses,omitempty"`
	Session           *AnalysisSession   `json:"session,omitempty"`
	SkipFollowups     bool               `json:"skip_followups,omitempty"`
}

// AnalysisStatus is the outcome reported to the client.
type AnalysisStatus string

const (
	StatusComplete      AnalysisStatus = "complete"
	StatusNeedsFollowup AnalysisStatus = "needs_followup"
	StatusFailed        AnalysisStatus = "failed"
)

// MealAnalysisResponse is returned by the meal analysis endpoint.
type MealAnalysisResponse struct {
	Status        AnalysisStatus     `json:"status"`
	Items         []AnalyzedItem     `json:"items"`
	PhotoQuality  PhotoQuality       `json:"photo_quality"`
	Followups     []FollowupQuestion `json:"followups,omitempty"`
	CacheHit      bool               `json:"cache_hit"`
	Session       *AnalysisSession   `json:"session,omitempty"`
	CorrelationID string             `json:"correlation_id,omitempty"`
}

// ErrorResponse represents an error response. Items is only set, to an
// empty list, on internal failures.
type ErrorResponse struct {
	Status        AnalysisStatus  `json:"status,omitempty"`
	Items         *[]AnalyzedItem `json:"items,omitempty"`
	Error         string          `json:"error"`
	Reason        string          `json:"reason,omitempty"`
	Message       string          `json:"message,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// CacheCleanResponse reports how many expired cache rows were removed.
type CacheCleanResponse struct {
	ImageAnalysisDeleted int64 `json:"image_analysis_deleted"`
	NutritionDeleted     int64 `json:"nutrition_deleted"`
}

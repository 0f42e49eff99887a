package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// QuestionType is the kind of clarification asked for an item.
type QuestionType string

const (
	QuestionChooseOne    QuestionType = "choose_one"
	QuestionEnterAmount  QuestionType = "enter_amount"
	QuestionConfirmItems QuestionType = "confirm_items"
)

// FollowupQuestion is created after a resolver pass and consumed once.
type FollowupQuestion struct {
	ID       string       `json:"id"`
	ItemID   string       `json:"item_id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options,omitempty"`
}

// FollowupResponse is a user's answer to one question.
type FollowupResponse struct {
	QuestionID string `json:"question_id"`
	Answer     Answer `json:"answer"`
}

// Answer accepts either a JSON string or a JSON number.
type Answer struct {
	Text   string
	Number *float64
}

// TextAnswer builds a string answer.
func TextAnswer(s string) Answer {
	return Answer{Text: s}
}

// NumberAnswer builds a numeric answer.
func NumberAnswer(v float64) Answer {
	return Answer{Number: &v}
}

// Numeric returns the answer as a number. Strings such as "250" or "250g"
// count as numeric.
func (a Answer) Numeric() (float64, bool) {
	if a.Number != nil {
		return *a.Number, true
	}
	s := strings.TrimSpace(strings.ToLower(a.Text))
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "grams"), "g"))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Answer{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Answer{Text: s}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("answer must be a string or a number: %w", err)
	}
	*a = Answer{Number: &v}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Number != nil && a.Text == "" {
		return json.Marshal(*a.Number)
	}
	return json.Marshal(a.Text)
}

// String renders the answer for logs.
func (a Answer) String() string {
	if a.Number != nil && a.Text == "" {
		return strconv.FormatFloat(*a.Number, 'f', -1, 64)
	}
	return a.Text
}

// SessionState is a step of the per-analysis state machine.
type SessionState string

const (
	StateAwaitingDetection  SessionState = "awaiting_detection"
	StateAwaitingNutrition  SessionState = "awaiting_nutrition"
	StateNeedsFollowup      SessionState = "needs_followup"
	StateAwaitingReanalysis SessionState = "awaiting_reanalysis"
	StateComplete           SessionState = "complete"
	StateFailed             SessionState = "failed"
)

// AnalysisSession is the follow-up state the client threads through
// round-trips. The server keeps no copy.
type AnalysisSession struct {
	ImageHash        string             `json:"image_hash,omitempty"`
	OriginalItems    []AnalyzedItem     `json:"original_items"`
	PhotoQuality     PhotoQuality       `json:"photo_quality"`
	PendingQuestions []FollowupQuestion `json:"pending_questions"`
	AppliedResponses []FollowupResponse `json:"applied_responses"`
	State            SessionState       `json:"state"`
}

package followup

import (
	"testing"

	"go-meal-analyzer/pkg/models"
)

func TestAdvance(t *testing.T) {
	s := &models.AnalysisSession{}
	path := []models.SessionState{
		models.StateAwaitingNutrition,
		models.StateNeedsFollowup,
		models.StateAwaitingReanalysis,
		models.StateNeedsFollowup,
		models.StateAwaitingReanalysis,
		models.StateComplete,
	}
	for _, next := range path {
		if err := Advance(s, next); err != nil {
			t.Fatalf("Advance(%s) error = %v", next, err)
		}
	}
	if !Terminal(s.State) {
		t.Errorf("state %s should be terminal", s.State)
	}
	if err := Advance(s, models.StateNeedsFollowup); err == nil {
		t.Error("complete must be terminal")
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.SessionState
		ok       bool
	}{
		{models.StateAwaitingDetection, models.StateFailed, true},
		{models.StateAwaitingDetection, models.StateComplete, false},
		{models.StateAwaitingNutrition, models.StateComplete, true},
		{models.StateNeedsFollowup, models.StateFailed, true},
		{models.StateFailed, models.StateAwaitingDetection, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
	if !Resumable(models.StateNeedsFollowup) || Resumable(models.StateComplete) {
		t.Error("Resumable mismatch")
	}
}

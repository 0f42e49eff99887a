package followup

import (
	"fmt"

	"go-meal-analyzer/pkg/models"
)

var transitions = map[models.SessionState][]models.SessionState{
	models.StateAwaitingDetection:  {models.StateAwaitingNutrition, models.StateFailed},
	models.StateAwaitingNutrition:  {models.StateNeedsFollowup, models.StateComplete, models.StateFailed},
	models.StateNeedsFollowup:      {models.StateAwaitingReanalysis, models.StateComplete, models.StateFailed},
	models.StateAwaitingReanalysis: {models.StateNeedsFollowup, models.StateComplete, models.StateFailed},
}

// CanTransition reports whether from -> to is an edge of the session state
// machine. complete and failed are terminal.
func CanTransition(from, to models.SessionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves the session to state to or returns an error naming the
// illegal edge.
func Advance(s *models.AnalysisSession, to models.SessionState) error {
	if s.State == "" {
		s.State = models.StateAwaitingDetection
	}
	if !CanTransition(s.State, to) {
		return fmt.Errorf("illegal session transition %s -> %s", s.State, to)
	}
	s.State = to
	return nil
}

// Terminal reports whether no further transition is possible.
func Terminal(state models.SessionState) bool {
	return state == models.StateComplete || state == models.StateFailed
}

// Resumable reports whether a client-held session may carry new responses.
func Resumable(state models.SessionState) bool {
	return state == models.StateNeedsFollowup || state == models.StateAwaitingReanalysis
}

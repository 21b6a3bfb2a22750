package session

import (
	"time"

	"github.com/google/uuid"

	"healthsync/internal/bmi"
	"healthsync/internal/conversation"
	"healthsync/internal/habit"
)

// State is everything one user session owns.
type State struct {
	ID       uuid.UUID
	Language string

	// Window is the bounded context sent to the model.
	Window conversation.Window
	// History is the full visible transcript.
	History []conversation.Message

	BMI    []bmi.Record
	Habits habit.Progress
	// Achievements are the habit messages in the session language.
	Achievements []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// View is the JSON representation of a session.
type View struct {
	ID           uuid.UUID              `json:"id"`
	Language     string                 `json:"language"`
	History      []conversation.Message `json:"history"`
	ContextTurns int                    `json:"context_turns"`
	BMI          []bmi.Record           `json:"bmi"`
	Habits       habit.Progress         `json:"habits"`
	Achievements []string               `json:"achievements"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

func (s State) View() View {
	history := s.History
	if history == nil {
		history = []conversation.Message{}
	}
	records := s.BMI
	if records == nil {
		records = []bmi.Record{}
	}
	achievements := s.Achievements
	if achievements == nil {
		achievements = []string{}
	}
	return View{
		ID:           s.ID,
		Language:     s.Language,
		History:      history,
		ContextTurns: s.Window.Len(),
		BMI:          records,
		Habits:       s.Habits,
		Achievements: achievements,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// clone copies the slices so callers cannot alias stored state.
func (s State) clone() State {
	out := s
	out.History = append([]conversation.Message(nil), s.History...)
	out.BMI = append([]bmi.Record(nil), s.BMI...)
	out.Achievements = append([]string(nil), s.Achievements...)
	return out
}

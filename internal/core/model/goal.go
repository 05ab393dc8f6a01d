package model

import "time"

type Goal struct {
	GoalID      string    `json:"goal_id"`
	PersonaID   string    `json:"persona_id"`
	GoalType    string    `json:"goal_type"`
	Description string    `json:"description"`
	Progress    float64   `json:"progress"`
	Strategies  []string  `json:"strategies,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GoalAdvance folds a progress increment into the goal identified by
// PersonaID and Description. GoalID is used only when the goal is new.
type GoalAdvance struct {
	GoalID      string
	PersonaID   string
	GoalType    string
	Description string
	Increment   float64
	Strategies  []string
	At          time.Time
}

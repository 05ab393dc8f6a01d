package model

import "time"

// Interaction is a recorded exchange between two personas. It is not stored;
// only its effect on the owning relationship persists.
type Interaction struct {
	ID                 string    `json:"id"`
	SenderID           string    `json:"sender_id"`
	RecipientID        string    `json:"recipient_id"`
	Content            string    `json:"content"`
	EmotionalValence   float64   `json:"emotional_valence"`
	RelationshipImpact float64   `json:"relationship_impact"`
	Timestamp          time.Time `json:"timestamp"`
}

// InteractionSummary is the read-side view of recent relationship activity.
type InteractionSummary struct {
	ID               string    `json:"id"`
	From             string    `json:"from"`
	To               string    `json:"to"`
	Content          string    `json:"content"`
	EmotionalValence float64   `json:"emotional_valence"`
	InteractionCount int64     `json:"interaction_count"`
	Timestamp        time.Time `json:"timestamp"`
}

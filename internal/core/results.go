package core

import (
	"time"

	"github.com/agenthands/lila/internal/core/community"
	"github.com/agenthands/lila/internal/core/compat"
	"github.com/agenthands/lila/internal/core/goals"
	"github.com/agenthands/lila/internal/core/model"
)

type PersonaList struct {
	Personas    []model.Persona `json:"personas"`
	Count       int             `json:"count"`
	LastUpdated time.Time       `json:"last_updated"`
}

type PersonaResult struct {
	Persona     model.Persona `json:"persona"`
	LastUpdated time.Time     `json:"last_updated"`
}

type RelationshipList struct {
	Relationships []model.Relationship `json:"relationships"`
	Count         int                  `json:"count"`
	LastUpdated   time.Time            `json:"last_updated"`
}

type RelationshipResult struct {
	Relationship model.Relationship `json:"relationship"`
	LastUpdated  time.Time          `json:"last_updated"`
}

type InteractionList struct {
	Interactions []model.InteractionSummary `json:"interactions"`
	Count        int                        `json:"count"`
	LastUpdated  time.Time                  `json:"last_updated"`
}

type EmotionalClimate struct {
	RelationshipCount int       `json:"relationship_count"`
	AverageTrust      float64   `json:"average_trust"`
	AverageIntimacy   float64   `json:"average_intimacy"`
	AverageStrength   float64   `json:"average_strength"`
	AverageValence    float64   `json:"average_valence"`
	RiskFactors       []string  `json:"risk_factors"`
	Strengths         []string  `json:"strengths"`
	LastUpdated       time.Time `json:"last_updated"`
}

type CommunityList struct {
	Communities []community.Community `json:"communities"`
	Count       int                   `json:"count"`
	LastUpdated time.Time             `json:"last_updated"`
}

type GoalList struct {
	Goals []model.Goal `json:"active_goals"`
	Count int          `json:"count"`
	// CompletionRate is the mean progress across all goals.
	CompletionRate float64   `json:"completion_rate"`
	LastUpdated    time.Time `json:"last_updated"`
}

// MetricUpdate reports the requested deltas in Changes and what clamping
// actually let through in Effective.
type MetricUpdate struct {
	Success          bool     `json:"success"`
	Participants     []string `json:"participants"`
	ParticipantNames []string `json:"participant_names"`
	model.Metrics
	Changes             model.MetricDelta `json:"changes"`
	Effective           model.MetricDelta `json:"effective_changes"`
	RelationshipCreated bool              `json:"relationship_created"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

type InteractionInput struct {
	SenderID           string
	RecipientID        string
	Content            string
	EmotionalValence   float64
	RelationshipImpact float64
}

type InteractionResult struct {
	Success       bool               `json:"success"`
	InteractionID string             `json:"interaction_id"`
	Recorded      model.Interaction  `json:"recorded"`
	ContentLength int                `json:"content_length"`
	Relationship  model.Relationship `json:"relationship"`
}

type CompatibilityResult struct {
	Persona1         model.PersonaSummary `json:"persona1"`
	Persona2         model.PersonaSummary `json:"persona2"`
	RelationshipType string               `json:"relationship_type"`
	compat.Assessment
}

type StrategyRequest struct {
	PersonaID       string
	Context         string
	Situation       string
	Goals           string
	AttachmentStyle string
}

type StrategyResult struct {
	PersonaID           string                `json:"persona_id"`
	SelectedStrategy    string                `json:"selected_strategy"`
	Rule                string                `json:"rule"`
	AttachmentStyle     model.AttachmentStyle `json:"attachment_style"`
	Context             string                `json:"context"`
	Situation           string                `json:"situation,omitempty"`
	AvailableStrategies []string              `json:"available_strategies"`
	Reasoning           string                `json:"reasoning"`
}

type GoalRequest struct {
	PersonaID          string
	Goals              string
	RecentInteractions string
	// Commit folds each assessed goal into the persona's stored goals.
	Commit bool
}

type GoalProgressResult struct {
	PersonaID string `json:"persona_id"`
	goals.Assessment
	Committed  []model.Goal `json:"committed_goals,omitempty"`
	AssessedAt time.Time    `json:"assessment_timestamp"`
}

type ResponseRequest struct {
	PersonaID   string
	Context     string
	Goals       string
	Constraints string
}

type ContextualResponse struct {
	PersonaID              string                `json:"persona_id"`
	PersonaName            string                `json:"persona_name"`
	Response               string                `json:"response"`
	StrategyUsed           string                `json:"strategy_used"`
	AttachmentStyle        model.AttachmentStyle `json:"attachment_style"`
	Context                string                `json:"context"`
	PsychologicalRationale string                `json:"psychological_rationale"`
}

type CommitResult struct {
	Success      bool               `json:"success"`
	Participants []string           `json:"participants"`
	Relationship model.Relationship `json:"relationship"`
	CommittedAt  time.Time          `json:"timestamp"`
}

type FinalizeResult struct {
	Success                bool      `json:"success"`
	CommittedRelationships int       `json:"committed_relationships"`
	CommittedAt            time.Time `json:"timestamp"`
}

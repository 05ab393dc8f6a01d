package model

import "time"

const (
	MinMetric = 0.0
	MaxMetric = 10.0

	MinValence = -1.0
	MaxValence = 1.0

	// DefaultMetric is reported for a metric that was never written and is
	// the starting point of relationships created on demand.
	DefaultMetric = 5.0

	DefaultRelationshipType = "unknown"
)

// Relationship is the metric state between two personas. Persona1ID and
// Persona2ID keep the orientation the edge was stored with; lookups are
// order-insensitive.
type Relationship struct {
	Persona1ID           string     `json:"persona1_id"`
	Persona1Name         string     `json:"persona1_name,omitempty"`
	Persona2ID           string     `json:"persona2_id"`
	Persona2Name         string     `json:"persona2_name,omitempty"`
	TrustLevel           float64    `json:"trust_level"`
	IntimacyLevel        float64    `json:"intimacy_level"`
	RelationshipStrength float64    `json:"relationship_strength"`
	InteractionCount     int64      `json:"interaction_count"`
	EmotionalValence     float64    `json:"emotional_valence"`
	RelationshipType     string     `json:"relationship_type"`
	LastInteraction      *time.Time `json:"last_interaction,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Involves reports whether the relationship joins a and b in either order.
func (r Relationship) Involves(a, b string) bool {
	return (r.Persona1ID == a && r.Persona2ID == b) || (r.Persona1ID == b && r.Persona2ID == a)
}

// MetricDelta is a requested additive change to the three bounded metrics.
type MetricDelta struct {
	Trust    float64 `json:"trust_delta"`
	Intimacy float64 `json:"intimacy_delta"`
	Strength float64 `json:"strength_delta"`
}

// Metrics is the absolute value of the three bounded metrics.
type Metrics struct {
	TrustLevel           float64 `json:"trust_level"`
	IntimacyLevel        float64 `json:"intimacy_level"`
	RelationshipStrength float64 `json:"relationship_strength"`
}

func (r Relationship) Metrics() Metrics {
	return Metrics{
		TrustLevel:           r.TrustLevel,
		IntimacyLevel:        r.IntimacyLevel,
		RelationshipStrength: r.RelationshipStrength,
	}
}

package store

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/agenthands/lila/internal/core/model"
)

// Data loaded by older tooling may lack properties or carry integers where
// floats are expected, so every reader falls back to a default instead of
// failing the whole query.

type props map[string]interface{}

func mapValue(rec *neo4j.Record, key string) props {
	v, _ := rec.Get(key)
	m, _ := v.(map[string]interface{})
	return props(m)
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func boolValue(rec *neo4j.Record, key string) bool {
	v, _ := rec.Get(key)
	b, _ := v.(bool)
	return b
}

func (p props) str(key string) string {
	s, _ := p[key].(string)
	return s
}

func (p props) float(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return def
	}
}

func (p props) int(key string) int64 {
	switch v := p[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func (p props) time(key string) (time.Time, bool) {
	switch v := p[key].(type) {
	case time.Time:
		return v.UTC(), true
	case dbtype.LocalDateTime:
		return v.Time().UTC(), true
	case dbtype.Date:
		return v.Time().UTC(), true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			t, err = time.Parse("2006-01-02T15:04:05.999999", v)
		}
		return t.UTC(), err == nil
	default:
		return time.Time{}, false
	}
}

func (p props) timestamp(key string) time.Time {
	t, _ := p.time(key)
	return t
}

func (p props) strings(key string) []string {
	list, _ := p[key].([]interface{})
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func personaFromRecord(rec *neo4j.Record) model.Persona {
	p := mapValue(rec, "persona")
	return model.Persona{
		PersonaID:       p.str("persona_id"),
		Name:            p.str("name"),
		Age:             int(p.int("age")),
		Role:            p.str("role"),
		Description:     p.str("description"),
		AttachmentStyle: model.ParseAttachmentStyle(p.str("attachment_style")),
		Personality: model.Traits{
			Openness:          p.float("openness", model.DefaultTrait),
			Conscientiousness: p.float("conscientiousness", model.DefaultTrait),
			Extraversion:      p.float("extraversion", model.DefaultTrait),
			Agreeableness:     p.float("agreeableness", model.DefaultTrait),
			Neuroticism:       p.float("neuroticism", model.DefaultTrait),
		},
		CommunicationStyle: p.str("communication_style"),
		CreatedAt:          p.timestamp("created_at"),
		UpdatedAt:          p.timestamp("updated_at"),
	}
}

func relationshipFromRecord(rec *neo4j.Record) model.Relationship {
	r := mapValue(rec, "rel")
	rel := model.Relationship{
		Persona1ID:           stringValue(rec, "persona1_id"),
		Persona1Name:         stringValue(rec, "persona1_name"),
		Persona2ID:           stringValue(rec, "persona2_id"),
		Persona2Name:         stringValue(rec, "persona2_name"),
		TrustLevel:           r.float("trust_level", model.DefaultMetric),
		IntimacyLevel:        r.float("intimacy_level", model.DefaultMetric),
		RelationshipStrength: r.float("relationship_strength", model.DefaultMetric),
		InteractionCount:     r.int("interaction_count"),
		EmotionalValence:     r.float("emotional_valence", 0),
		RelationshipType:     r.str("relationship_type"),
		CreatedAt:            r.timestamp("created_at"),
		UpdatedAt:            r.timestamp("updated_at"),
	}
	if rel.RelationshipType == "" {
		rel.RelationshipType = model.DefaultRelationshipType
	}
	if t, ok := r.time("last_interaction"); ok {
		rel.LastInteraction = &t
	}
	return rel
}

func floatValue(rec *neo4j.Record, key string, def float64) float64 {
	v, _ := rec.Get(key)
	return props{key: v}.float(key, def)
}

func previousMetrics(rec *neo4j.Record) model.Metrics {
	return model.Metrics{
		TrustLevel:           floatValue(rec, "prev_trust", model.DefaultMetric),
		IntimacyLevel:        floatValue(rec, "prev_intimacy", model.DefaultMetric),
		RelationshipStrength: floatValue(rec, "prev_strength", model.DefaultMetric),
	}
}

func goalFromRecord(rec *neo4j.Record) model.Goal {
	g := mapValue(rec, "goal")
	return model.Goal{
		GoalID:      g.str("goal_id"),
		PersonaID:   g.str("persona_id"),
		GoalType:    g.str("goal_type"),
		Description: g.str("description"),
		Progress:    g.float("progress", 0),
		Strategies:  g.strings("strategies"),
		UpdatedAt:   g.timestamp("updated_at"),
	}
}

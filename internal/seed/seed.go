// Package seed loads personas and relationships into a store, either the
// built-in demo set or a family-graph JSON document.
package seed

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/store"
)

type Data struct {
	Personas      []model.Persona
	Relationships []model.Relationship
}

type Result struct {
	Personas      int `json:"personas"`
	Relationships int `json:"relationships"`
	// Existing counts relationships that were already present and left
	// untouched.
	Existing int `json:"existing"`
}

// Defaults is the demo cast used when no data file is given.
func Defaults() Data {
	return Data{
		Personas: []model.Persona{
			{
				PersonaID:       "lila",
				Name:            "Lila",
				Age:             28,
				Role:            "Psychological Intelligence Agent",
				Description:     "A curious and empathetic agent focused on understanding human psychology and relationships.",
				AttachmentStyle: model.Secure,
				Personality: model.Traits{
					Openness: 0.8, Conscientiousness: 0.75, Extraversion: 0.65, Agreeableness: 0.85, Neuroticism: 0.3,
				},
				CommunicationStyle: "empathetic",
			},
			{
				PersonaID:       "don",
				Name:            "Don",
				Age:             45,
				Role:            "Software Developer",
				Description:     "A dedicated developer who cares deeply and worries about being left out.",
				AttachmentStyle: model.Anxious,
				Personality: model.Traits{
					Openness: 0.7, Conscientiousness: 0.8, Extraversion: 0.4, Agreeableness: 0.7, Neuroticism: 0.6,
				},
				CommunicationStyle: "analytical",
			},
			{
				PersonaID:       "alex",
				Name:            "Alex",
				Age:             32,
				Role:            "Software Engineer",
				Description:     "A thoughtful engineer who values deep connections and authentic communication.",
				AttachmentStyle: model.Secure,
				Personality: model.Traits{
					Openness: 0.75, Conscientiousness: 0.85, Extraversion: 0.6, Agreeableness: 0.75, Neuroticism: 0.3,
				},
				CommunicationStyle: "analytical",
			},
		},
		Relationships: []model.Relationship{
			{
				Persona1ID: "lila", Persona2ID: "don",
				TrustLevel: 7.5, IntimacyLevel: 6.8, RelationshipStrength: 7.2,
				EmotionalValence: 0.6, RelationshipType: "romantic",
			},
			{
				Persona1ID: "lila", Persona2ID: "alex",
				TrustLevel: 7.0, IntimacyLevel: 6.0, RelationshipStrength: 6.5,
				EmotionalValence: 0.75, RelationshipType: "friendship",
			},
		},
	}
}

// Load writes every persona, then every relationship. Relationships that
// already exist are kept as they are.
func Load(ctx context.Context, s store.Store, d Data, log *zap.Logger) (Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var res Result
	for _, p := range d.Personas {
		if p.PersonaID == "" || p.Name == "" {
			return res, fmt.Errorf("persona needs an id and a name: %+v", p)
		}
		if err := s.SavePersona(ctx, p); err != nil {
			return res, fmt.Errorf("failed to save persona %q: %w", p.PersonaID, err)
		}
		res.Personas++
	}

	for _, r := range d.Relationships {
		if r.Persona1ID == r.Persona2ID {
			return res, fmt.Errorf("relationship joins %q to itself", r.Persona1ID)
		}
		_, created, err := s.EnsureRelationship(ctx, r.Persona1ID, r.Persona2ID, r)
		if err != nil {
			return res, fmt.Errorf("failed to create relationship %s-%s: %w", r.Persona1ID, r.Persona2ID, err)
		}
		if created {
			res.Relationships++
		} else {
			res.Existing++
		}
	}

	log.Info("seed data loaded",
		zap.Int("personas", res.Personas),
		zap.Int("relationships", res.Relationships),
		zap.Int("existing", res.Existing))
	return res, nil
}

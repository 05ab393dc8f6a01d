package seed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/store"
)

const familyJSON = `{
  "family_graph": {
    "nodes": [
      {"name": "Maya", "age": 34, "role": "Teacher", "description": "Calm and caring", "attachment_style": "Secure (earned)", "behavioral_style": "SC"},
      {"name": "Theo", "age": 36, "role": "Chef", "description": "Restless", "attachment_style": "Avoidant", "behavioral_style": "Di"}
    ],
    "edges": [
      {"from": "Maya", "to": "Theo", "type": "intimate partnership", "trust_level": 6.5, "strength": 8, "union_metric": 9}
    ]
  }
}`

func TestLoadDefaults(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	res, err := Load(ctx, s, Defaults(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Personas: 3, Relationships: 2}, res)

	r, err := s.FindRelationship(ctx, "don", "lila")
	require.NoError(t, err)
	assert.Equal(t, 7.5, r.TrustLevel)
	assert.Equal(t, "romantic", r.RelationshipType)

	// A second load keeps existing relationships.
	_, _, err = s.ApplyBoundedDelta(ctx, "lila", "don", model.MetricDelta{Trust: 1})
	require.NoError(t, err)
	res, err = Load(ctx, s, Defaults(), nil)
	require.NoError(t, err)
	assert.Equal(t, Result{Personas: 3, Existing: 2}, res)
	r, err = s.FindRelationship(ctx, "lila", "don")
	require.NoError(t, err)
	assert.Equal(t, 8.5, r.TrustLevel)
}

func TestLoad_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Load(ctx, store.NewMemoryStore(), Data{Personas: []model.Persona{{PersonaID: "x"}}}, nil)
	assert.Error(t, err)

	d := Defaults()
	d.Relationships = append(d.Relationships, model.Relationship{Persona1ID: "lila", Persona2ID: "ghost"})
	_, err = Load(ctx, store.NewMemoryStore(), d, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)

	d = Defaults()
	d.Personas = append(d.Personas, model.Persona{PersonaID: "lila2", Name: "Lila"})
	_, err = Load(ctx, store.NewMemoryStore(), d, nil)
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestParseFamilyGraph(t *testing.T) {
	d, err := ParseFamilyGraph(strings.NewReader(familyJSON))
	require.NoError(t, err)
	require.Len(t, d.Personas, 2)
	require.Len(t, d.Relationships, 1)

	maya := d.Personas[0]
	assert.Equal(t, "maya", maya.PersonaID)
	assert.Equal(t, model.Secure, maya.AttachmentStyle)
	assert.Equal(t, "empathetic", maya.CommunicationStyle)

	theo := d.Personas[1]
	assert.Equal(t, model.Avoidant, theo.AttachmentStyle)
	assert.Equal(t, "analytical", theo.CommunicationStyle)

	r := d.Relationships[0]
	assert.Equal(t, "maya", r.Persona1ID)
	assert.Equal(t, "theo", r.Persona2ID)
	assert.Equal(t, "intimate", r.RelationshipType)
	assert.Equal(t, 6.5, r.TrustLevel)
	assert.Equal(t, 8.0, r.IntimacyLevel)
	assert.InDelta(t, 0.9, r.EmotionalValence, 1e-9)

	res, err := Load(context.Background(), store.NewMemoryStore(), d, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Relationships)
}

func TestParseFamilyGraph_Defaults(t *testing.T) {
	d, err := ParseFamilyGraph(strings.NewReader(`{"family_graph": {"nodes": [{"name": "A"}, {"name": "B"}], "edges": [{"from": "A", "to": "B"}]}}`))
	require.NoError(t, err)
	r := d.Relationships[0]
	assert.Equal(t, 7.0, r.TrustLevel)
	assert.Equal(t, 7.0, r.RelationshipStrength)
	assert.InDelta(t, 0.7, r.EmotionalValence, 1e-9)
	assert.Equal(t, "friendship", r.RelationshipType)
	assert.Equal(t, model.Secure, d.Personas[0].AttachmentStyle)
}

func TestParseFamilyGraph_Invalid(t *testing.T) {
	_, err := ParseFamilyGraph(strings.NewReader(`{"family_graph": {"nodes": []}}`))
	assert.Error(t, err)

	_, err = ParseFamilyGraph(strings.NewReader(`not json`))
	assert.Error(t, err)

	_, err = ParseFamilyGraph(strings.NewReader(`{"family_graph": {"nodes": [{"age": 3}]}}`))
	assert.Error(t, err)
}

func TestTraitsFromDISC(t *testing.T) {
	none := TraitsFromDISC("")
	assert.Equal(t, model.Traits{Openness: 0.5, Conscientiousness: 0.5, Extraversion: 0.5, Agreeableness: 0.5, Neuroticism: 0.3}, none)

	sc := TraitsFromDISC("sc")
	assert.InDelta(t, 1.0, sc.Conscientiousness, 1e-9)
	assert.InDelta(t, 0.8, sc.Agreeableness, 1e-9)
	assert.InDelta(t, 0.3, sc.Neuroticism, 1e-9)
	assert.InDelta(t, 0.6, sc.Openness, 1e-9)

	all := TraitsFromDISC("DISC")
	assert.Equal(t, 1.0, all.Extraversion)
	for _, v := range []float64{all.Openness, all.Conscientiousness, all.Extraversion, all.Agreeableness, all.Neuroticism} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

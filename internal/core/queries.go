package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agenthands/lila/internal/core/model"
)

const (
	lowTrustThreshold    = 4.0
	highStrengthMarker   = 8.0
	interactionIDPattern = "interaction_%d"
)

func (e *Engine) AllPersonas(ctx context.Context) (out *PersonaList, err error) {
	defer e.guard("get_all_personas", &err)

	personas, err := e.Store.ListPersonas(ctx)
	if err != nil {
		return nil, e.convert("get_all_personas", err)
	}
	return &PersonaList{Personas: personas, Count: len(personas), LastUpdated: e.Now()}, nil
}

func (e *Engine) Persona(ctx context.Context, id string) (out *PersonaResult, err error) {
	defer e.guard("get_persona", &err)

	if err := requireID("persona_id", id); err != nil {
		return nil, err
	}
	p, err := e.persona(ctx, "get_persona", id)
	if err != nil {
		return nil, err
	}
	return &PersonaResult{Persona: *p, LastUpdated: e.Now()}, nil
}

func (e *Engine) AllRelationships(ctx context.Context) (out *RelationshipList, err error) {
	defer e.guard("get_all_relationships", &err)

	rels, err := e.Store.ListRelationships(ctx)
	if err != nil {
		return nil, e.convert("get_all_relationships", err)
	}
	return &RelationshipList{Relationships: rels, Count: len(rels), LastUpdated: e.Now()}, nil
}

func (e *Engine) Relationship(ctx context.Context, a, b string) (out *RelationshipResult, err error) {
	defer e.guard("get_relationship", &err)

	if err := requirePair("persona1_id", a, "persona2_id", b); err != nil {
		return nil, err
	}
	r, err := e.Store.FindRelationship(ctx, a, b)
	if err != nil {
		if isNotFound(err) {
			return nil, noRelationship(a, b)
		}
		return nil, e.convert("get_relationship", err)
	}
	return &RelationshipResult{Relationship: *r, LastUpdated: e.Now()}, nil
}

// ClampRecentLimit maps a requested count onto [1, MaxRecentLimit]; zero or
// negative asks for the default.
func ClampRecentLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultRecentLimit
	case n > MaxRecentLimit:
		return MaxRecentLimit
	default:
		return n
	}
}

// RecentInteractions summarises the most recently touched relationships.
// Interactions are not stored individually, so each relationship stands for
// its latest exchange.
func (e *Engine) RecentInteractions(ctx context.Context, limit int) (out *InteractionList, err error) {
	defer e.guard("get_recent_interactions", &err)

	rels, err := e.Store.ListRecentlyActive(ctx, ClampRecentLimit(limit))
	if err != nil {
		return nil, e.convert("get_recent_interactions", err)
	}

	list := make([]model.InteractionSummary, 0, len(rels))
	for i, r := range rels {
		ts := r.UpdatedAt
		if r.LastInteraction != nil {
			ts = *r.LastInteraction
		}
		list = append(list, model.InteractionSummary{
			ID:               fmt.Sprintf(interactionIDPattern, i+1),
			From:             r.Persona1Name,
			To:               r.Persona2Name,
			Content:          fmt.Sprintf("[Relationship interaction of type: %s]", r.RelationshipType),
			EmotionalValence: r.EmotionalValence,
			InteractionCount: r.InteractionCount,
			Timestamp:        ts,
		})
	}
	return &InteractionList{Interactions: list, Count: len(list), LastUpdated: e.Now()}, nil
}

// EmotionalClimate averages the metrics of every relationship and flags
// pairs with low trust or negative valence.
func (e *Engine) EmotionalClimate(ctx context.Context) (out *EmotionalClimate, err error) {
	defer e.guard("get_emotional_climate", &err)

	rels, err := e.Store.ListRelationships(ctx)
	if err != nil {
		return nil, e.convert("get_emotional_climate", err)
	}

	c := &EmotionalClimate{
		RelationshipCount: len(rels),
		RiskFactors:       []string{},
		Strengths:         []string{},
		LastUpdated:       e.Now(),
	}
	if len(rels) == 0 {
		return c, nil
	}

	for _, r := range rels {
		c.AverageTrust += r.TrustLevel
		c.AverageIntimacy += r.IntimacyLevel
		c.AverageStrength += r.RelationshipStrength
		c.AverageValence += r.EmotionalValence

		pair := fmt.Sprintf("%s and %s", label(r.Persona1Name, r.Persona1ID), label(r.Persona2Name, r.Persona2ID))
		if r.TrustLevel < lowTrustThreshold {
			c.RiskFactors = append(c.RiskFactors, fmt.Sprintf("Low trust (%.1f) between %s", r.TrustLevel, pair))
		}
		if r.EmotionalValence < 0 {
			c.RiskFactors = append(c.RiskFactors, fmt.Sprintf("Negative emotional valence (%.2f) between %s", r.EmotionalValence, pair))
		}
		if r.RelationshipStrength >= highStrengthMarker {
			c.Strengths = append(c.Strengths, fmt.Sprintf("Strong bond (%.1f) between %s", r.RelationshipStrength, pair))
		}
	}
	n := float64(len(rels))
	c.AverageTrust /= n
	c.AverageIntimacy /= n
	c.AverageStrength /= n
	c.AverageValence /= n
	return c, nil
}

func label(name, id string) string {
	if name == "" {
		return id
	}
	return name
}

// Communities clusters personas by relationship strength.
func (e *Engine) Communities(ctx context.Context) (out *CommunityList, err error) {
	defer e.guard("get_communities", &err)

	var (
		personas []model.Persona
		rels     []model.Relationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer e.guard("get_communities", &err)
		personas, err = e.Store.ListPersonas(gctx)
		return err
	})
	g.Go(func() (err error) {
		defer e.guard("get_communities", &err)
		rels, err = e.Store.ListRelationships(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, e.convert("get_communities", err)
	}

	groups, err := e.Detector.Detect(personas, rels)
	if err != nil {
		return nil, e.convert("get_communities", err)
	}
	e.Log.Debug("communities detected", zap.Int("count", len(groups)))
	return &CommunityList{Communities: groups, Count: len(groups), LastUpdated: e.Now()}, nil
}

func (e *Engine) ActiveGoals(ctx context.Context) (out *GoalList, err error) {
	defer e.guard("get_active_goals", &err)

	list, err := e.Store.ListGoals(ctx, "")
	if err != nil {
		return nil, e.convert("get_active_goals", err)
	}

	res := &GoalList{Goals: list, Count: len(list), LastUpdated: e.Now()}
	if len(list) > 0 {
		var sum float64
		for _, g := range list {
			sum += g.Progress
		}
		res.CompletionRate = sum / float64(len(list))
	}
	return res, nil
}

package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core/apperror"
	"github.com/agenthands/lila/internal/core/compat"
	"github.com/agenthands/lila/internal/core/goals"
	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/core/strategy"
)

const (
	DefaultRelationshipType = "romantic"
	contextPreviewRunes     = 100
)

// UpdateRelationshipMetrics applies d to the pair's relationship in one
// atomic step. A missing pair is NotFound unless the engine is configured to
// create it.
func (e *Engine) UpdateRelationshipMetrics(ctx context.Context, a, b string, d model.MetricDelta) (out *MetricUpdate, err error) {
	const op = "update_relationship_metrics"
	defer e.guard(op, &err)

	if err := requirePair("persona1_id", a, "persona2_id", b); err != nil {
		return nil, err
	}
	if !metrics.ValidDelta(d) {
		return nil, apperror.InvalidArgument("deltas must be finite numbers")
	}

	created := false
	if e.Options.CreateMissingRelationships {
		for _, id := range []string{a, b} {
			if _, err := e.persona(ctx, op, id); err != nil {
				return nil, err
			}
		}
		_, created, err = e.Store.EnsureRelationship(ctx, a, b, e.Options.DefaultRelationship)
		if err != nil {
			return nil, e.convert(op, err)
		}
		if created {
			e.Log.Info("relationship created on update",
				zap.String("persona1_id", a), zap.String("persona2_id", b))
		}
	}

	r, prev, err := e.Store.ApplyBoundedDelta(ctx, a, b, d)
	if err != nil {
		if isNotFound(err) {
			return nil, noRelationship(a, b)
		}
		return nil, e.convert(op, err)
	}

	e.Log.Info("relationship metrics updated",
		zap.String("persona1_id", a),
		zap.String("persona2_id", b),
		zap.Float64("trust_level", r.TrustLevel),
		zap.Float64("intimacy_level", r.IntimacyLevel),
		zap.Float64("relationship_strength", r.RelationshipStrength))

	return &MetricUpdate{
		Success:             true,
		Participants:        []string{a, b},
		ParticipantNames:    namesFor(r, a),
		Metrics:             r.Metrics(),
		Changes:             d,
		Effective:           metrics.Effective(prev, r.Metrics()),
		RelationshipCreated: created,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

// RecordInteraction folds one interaction into the pair's running valence
// and count. Identical calls are counted separately.
func (e *Engine) RecordInteraction(ctx context.Context, in InteractionInput) (out *InteractionResult, err error) {
	const op = "record_interaction"
	defer e.guard(op, &err)

	if err := requirePair("sender_id", in.SenderID, "recipient_id", in.RecipientID); err != nil {
		return nil, err
	}
	if err := finite("emotional_valence", in.EmotionalValence); err != nil {
		return nil, err
	}
	if in.EmotionalValence < model.MinValence || in.EmotionalValence > model.MaxValence {
		return nil, apperror.InvalidArgument("emotional_valence must be within [-1, 1], got %v", in.EmotionalValence)
	}
	if err := finite("relationship_impact", in.RelationshipImpact); err != nil {
		return nil, err
	}

	id, at := e.ids.Next(in.SenderID, in.RecipientID)
	r, err := e.Store.RecordInteractionEffect(ctx, in.SenderID, in.RecipientID, in.EmotionalValence, at)
	if err != nil {
		if isNotFound(err) {
			return nil, noRelationship(in.SenderID, in.RecipientID)
		}
		return nil, e.convert(op, err)
	}

	e.Log.Info("interaction recorded",
		zap.String("interaction_id", id),
		zap.Float64("emotional_valence", r.EmotionalValence),
		zap.Int64("interaction_count", r.InteractionCount))

	return &InteractionResult{
		Success:       true,
		InteractionID: id,
		Recorded: model.Interaction{
			ID:                 id,
			SenderID:           in.SenderID,
			RecipientID:        in.RecipientID,
			Content:            in.Content,
			EmotionalValence:   in.EmotionalValence,
			RelationshipImpact: in.RelationshipImpact,
			Timestamp:          at,
		},
		ContentLength: len([]rune(in.Content)),
		Relationship:  *r,
	}, nil
}

func (e *Engine) AnalyzeCompatibility(ctx context.Context, a, b, relationshipType string) (out *CompatibilityResult, err error) {
	const op = "analyze_persona_compatibility"
	defer e.guard(op, &err)

	if err := requirePair("persona1_id", a, "persona2_id", b); err != nil {
		return nil, err
	}
	if relationshipType == "" {
		relationshipType = DefaultRelationshipType
	}

	p1, err := e.persona(ctx, op, a)
	if err != nil {
		return nil, err
	}
	p2, err := e.persona(ctx, op, b)
	if err != nil {
		return nil, err
	}

	return &CompatibilityResult{
		Persona1:         p1.Summary(),
		Persona2:         p2.Summary(),
		RelationshipType: relationshipType,
		Assessment:       compat.Assess(p1.AttachmentStyle, p2.AttachmentStyle),
	}, nil
}

// SelectStrategy runs the strategy rule table. The attachment style comes
// from the request, defaulting to secure, not from the stored persona.
func (e *Engine) SelectStrategy(ctx context.Context, req StrategyRequest) (out *StrategyResult, err error) {
	const op = "autonomous_strategy_selection"
	defer e.guard(op, &err)

	if err := requireID("persona_id", req.PersonaID); err != nil {
		return nil, err
	}
	if _, err := e.persona(ctx, op, req.PersonaID); err != nil {
		return nil, err
	}

	style := model.ParseAttachmentStyle(req.AttachmentStyle)
	if style == "" {
		style = model.Secure
	}
	sel := strategy.Select(strategy.Input{Style: style, Context: req.Context, Goals: req.Goals})

	return &StrategyResult{
		PersonaID:           req.PersonaID,
		SelectedStrategy:    sel.Strategy,
		Rule:                sel.Rule,
		AttachmentStyle:     style,
		Context:             req.Context,
		Situation:           req.Situation,
		AvailableStrategies: sel.Available,
		Reasoning:           fmt.Sprintf("Selected by the %s rule for %s attachment style", sel.Rule, style),
	}, nil
}

func (e *Engine) AssessGoalProgress(ctx context.Context, req GoalRequest) (out *GoalProgressResult, err error) {
	const op = "assess_goal_progress"
	defer e.guard(op, &err)

	if err := requireID("persona_id", req.PersonaID); err != nil {
		return nil, err
	}
	p, err := e.persona(ctx, op, req.PersonaID)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	res := &GoalProgressResult{
		PersonaID:  req.PersonaID,
		Assessment: goals.Assess(req.Goals),
		AssessedAt: now,
	}
	if !req.Commit {
		return res, nil
	}

	// A goal named twice in one request advances once.
	seen := make(map[string]bool, len(res.Goals))
	var advs []model.GoalAdvance
	for _, gp := range res.Goals {
		if seen[gp.Goal] {
			continue
		}
		seen[gp.Goal] = true
		sel := strategy.Select(strategy.Input{Style: p.AttachmentStyle, Goals: gp.Goal})
		advs = append(advs, model.GoalAdvance{
			GoalID:      e.GoalIDGenerator(),
			PersonaID:   req.PersonaID,
			GoalType:    gp.GoalType,
			Description: gp.Goal,
			Increment:   gp.Progress,
			Strategies:  []string{sel.Strategy},
			At:          now,
		})
	}
	if len(advs) > 0 {
		committed, err := e.Store.AdvanceGoals(ctx, advs)
		if err != nil {
			return nil, e.convert(op, err)
		}
		res.Committed = committed
	}
	e.Log.Info("goal progress committed",
		zap.String("persona_id", req.PersonaID), zap.Int("goals", len(res.Committed)))
	return res, nil
}

func (e *Engine) GenerateContextualResponse(ctx context.Context, req ResponseRequest) (out *ContextualResponse, err error) {
	const op = "generate_contextual_response"
	defer e.guard(op, &err)

	if err := requireID("persona_id", req.PersonaID); err != nil {
		return nil, err
	}
	if err := requireID("context", req.Context); err != nil {
		return nil, err
	}
	p, err := e.persona(ctx, op, req.PersonaID)
	if err != nil {
		return nil, err
	}

	resp := strategy.ResponseFor(p.AttachmentStyle)
	return &ContextualResponse{
		PersonaID:              p.PersonaID,
		PersonaName:            p.Name,
		Response:               resp.Text,
		StrategyUsed:           resp.Strategy,
		AttachmentStyle:        p.AttachmentStyle,
		Context:                preview(req.Context, contextPreviewRunes),
		PsychologicalRationale: fmt.Sprintf("Response generated based on %s attachment style and context analysis", p.AttachmentStyle),
	}, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// CommitRelationshipState confirms the pair's current state. Writes are
// durable when they return, so this is a checked read.
func (e *Engine) CommitRelationshipState(ctx context.Context, a, b string) (out *CommitResult, err error) {
	const op = "commit_relationship_state"
	defer e.guard(op, &err)

	if err := requirePair("persona1_id", a, "persona2_id", b); err != nil {
		return nil, err
	}
	r, err := e.Store.FindRelationship(ctx, a, b)
	if err != nil {
		if isNotFound(err) {
			return nil, noRelationship(a, b)
		}
		return nil, e.convert(op, err)
	}
	return &CommitResult{Success: true, Participants: []string{a, b}, Relationship: *r, CommittedAt: e.Now()}, nil
}

func (e *Engine) FinalizeSession(ctx context.Context) (out *FinalizeResult, err error) {
	const op = "finalize_demo_session"
	defer e.guard(op, &err)

	if err := e.Store.Ping(ctx); err != nil {
		return nil, e.convert(op, err)
	}
	rels, err := e.Store.ListRelationships(ctx)
	if err != nil {
		return nil, e.convert(op, err)
	}
	e.Log.Info("session finalized", zap.Int("relationships", len(rels)))
	return &FinalizeResult{Success: true, CommittedRelationships: len(rels), CommittedAt: e.Now()}, nil
}

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/driver"
)

// GraphStore is the durable adapter. Each write is a single Cypher
// statement, so it commits whole or not at all.
type GraphStore struct {
	driver driver.GraphDriver
	opts   options
}

func NewGraphStore(d driver.GraphDriver, opts ...Option) *GraphStore {
	return &GraphStore{driver: d, opts: buildOptions(opts)}
}

func (s *GraphStore) write(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	res, err := s.driver.ExecuteQuery(ctx, query, params)
	return res, classify(err)
}

func (s *GraphStore) read(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	res, err := s.driver.ExecuteRead(ctx, query, params)
	return res, classify(err)
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	case driver.IsConstraintViolation(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func (s *GraphStore) FindPersona(ctx context.Context, id string) (*model.Persona, error) {
	res, err := s.read(ctx, driver.GetPersonaQuery, map[string]interface{}{"persona_id": id})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("persona %q: %w", id, ErrNotFound)
	}
	p := personaFromRecord(res.Records[0])
	return &p, nil
}

func (s *GraphStore) ListPersonas(ctx context.Context) ([]model.Persona, error) {
	res, err := s.read(ctx, driver.ListPersonasQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.Persona, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, personaFromRecord(rec))
	}
	return out, nil
}

func (s *GraphStore) SavePersona(ctx context.Context, p model.Persona) error {
	t := p.Personality.Clamp()
	params := map[string]interface{}{
		"persona_id":          p.PersonaID,
		"name":                p.Name,
		"age":                 int64(p.Age),
		"role":                p.Role,
		"description":         p.Description,
		"attachment_style":    string(p.AttachmentStyle),
		"openness":            t.Openness,
		"conscientiousness":   t.Conscientiousness,
		"extraversion":        t.Extraversion,
		"agreeableness":       t.Agreeableness,
		"neuroticism":         t.Neuroticism,
		"communication_style": p.CommunicationStyle,
		"now":                 s.opts.now(),
	}
	if _, err := s.write(ctx, driver.SavePersonaQuery, params); err != nil {
		if errors.Is(err, ErrConflict) {
			return fmt.Errorf("persona name %q: %w", p.Name, err)
		}
		return fmt.Errorf("failed to save persona %q: %w", p.PersonaID, err)
	}
	s.opts.log.Debug("persona saved", zap.String("persona_id", p.PersonaID))
	return nil
}

func pairParams(a, b string) map[string]interface{} {
	return map[string]interface{}{"persona1_id": a, "persona2_id": b}
}

func (s *GraphStore) FindRelationship(ctx context.Context, a, b string) (*model.Relationship, error) {
	res, err := s.read(ctx, driver.GetRelationshipQuery, pairParams(a, b))
	if err != nil {
		return nil, err
	}
	return firstRelationship(res, a, b)
}

func firstRelationship(res neo4j.EagerResult, a, b string) (*model.Relationship, error) {
	if len(res.Records) == 0 {
		return nil, fmt.Errorf("relationship %s-%s: %w", a, b, ErrNotFound)
	}
	r := relationshipFromRecord(res.Records[0])
	return &r, nil
}

func (s *GraphStore) ApplyBoundedDelta(ctx context.Context, a, b string, d model.MetricDelta) (*model.Relationship, model.Metrics, error) {
	params := pairParams(a, b)
	params["trust_delta"] = d.Trust
	params["intimacy_delta"] = d.Intimacy
	params["strength_delta"] = d.Strength
	params["now"] = s.opts.now()

	res, err := s.write(ctx, driver.ApplyBoundedDeltaQuery, params)
	if err != nil {
		return nil, model.Metrics{}, err
	}
	r, err := firstRelationship(res, a, b)
	if err != nil {
		return nil, model.Metrics{}, err
	}
	return r, previousMetrics(res.Records[0]), nil
}

func (s *GraphStore) RecordInteractionEffect(ctx context.Context, a, b string, valence float64, at time.Time) (*model.Relationship, error) {
	params := pairParams(a, b)
	params["valence"] = valence
	params["now"] = at

	res, err := s.write(ctx, driver.RecordInteractionEffectQuery, params)
	if err != nil {
		return nil, err
	}
	return firstRelationship(res, a, b)
}

func (s *GraphStore) ListRelationships(ctx context.Context) ([]model.Relationship, error) {
	res, err := s.read(ctx, driver.ListRelationshipsQuery, nil)
	if err != nil {
		return nil, err
	}
	return relationshipsFromResult(res), nil
}

func (s *GraphStore) ListRecentlyActive(ctx context.Context, limit int) ([]model.Relationship, error) {
	if limit <= 0 {
		return []model.Relationship{}, nil
	}
	res, err := s.read(ctx, driver.ListRecentlyActiveQuery, map[string]interface{}{"limit": int64(limit)})
	if err != nil {
		return nil, err
	}
	return relationshipsFromResult(res), nil
}

func relationshipsFromResult(res neo4j.EagerResult) []model.Relationship {
	out := make([]model.Relationship, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, relationshipFromRecord(rec))
	}
	return out
}

func (s *GraphStore) EnsureRelationship(ctx context.Context, a, b string, seed model.Relationship) (*model.Relationship, bool, error) {
	m := metrics.ClampMetrics(seed.Metrics())
	params := pairParams(a, b)
	params["trust_level"] = m.TrustLevel
	params["intimacy_level"] = m.IntimacyLevel
	params["relationship_strength"] = m.RelationshipStrength
	params["emotional_valence"] = metrics.Clamp(seed.EmotionalValence, model.MinValence, model.MaxValence)
	params["relationship_type"] = seed.RelationshipType
	params["now"] = s.opts.now()

	res, err := s.write(ctx, driver.EnsureRelationshipQuery, params)
	if err != nil {
		return nil, false, err
	}
	if len(res.Records) == 0 {
		return nil, false, fmt.Errorf("personas %q and %q: %w", a, b, ErrNotFound)
	}
	created := boolValue(res.Records[0], "created")

	r, err := s.FindRelationship(ctx, a, b)
	if err != nil {
		return nil, false, err
	}
	if created {
		s.opts.log.Info("relationship created", zap.String("persona1_id", a), zap.String("persona2_id", b))
	}
	return r, created, nil
}

func (s *GraphStore) ListGoals(ctx context.Context, personaID string) ([]model.Goal, error) {
	res, err := s.read(ctx, driver.ListGoalsQuery, map[string]interface{}{"persona_id": personaID})
	if err != nil {
		return nil, err
	}
	out := make([]model.Goal, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, goalFromRecord(rec))
	}
	return out, nil
}

func (s *GraphStore) AdvanceGoals(ctx context.Context, advs []model.GoalAdvance) ([]model.Goal, error) {
	if len(advs) == 0 {
		return []model.Goal{}, nil
	}

	batch := make([]interface{}, 0, len(advs))
	for _, adv := range advs {
		id := adv.GoalID
		if id == "" {
			id = uuid.NewString()
		}
		at := adv.At
		if at.IsZero() {
			at = s.opts.now()
		}
		strategies := adv.Strategies
		if strategies == nil {
			strategies = []string{}
		}
		batch = append(batch, map[string]interface{}{
			"persona_id":  adv.PersonaID,
			"description": adv.Description,
			"goal_id":     id,
			"goal_type":   adv.GoalType,
			"increment":   adv.Increment,
			"strategies":  strategies,
			"at":          at,
		})
	}

	res, err := s.write(ctx, driver.AdvanceGoalsQuery, map[string]interface{}{"goals": batch})
	if err != nil {
		return nil, err
	}
	// The statement writes nothing unless every persona matched.
	if len(res.Records) != len(advs) {
		return nil, fmt.Errorf("goal batch names an unknown persona: %w", ErrNotFound)
	}
	out := make([]model.Goal, 0, len(res.Records))
	for _, rec := range res.Records {
		out = append(out, goalFromRecord(rec))
	}
	return out, nil
}

func (s *GraphStore) Ping(ctx context.Context) error {
	return classify(s.driver.VerifyConnectivity(ctx))
}

func (s *GraphStore) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

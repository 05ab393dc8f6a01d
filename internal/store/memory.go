package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
)

// pairKey identifies an unordered persona pair.
type pairKey struct{ lo, hi string }

func keyOf(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// MemoryStore keeps everything in process. Map access is guarded by mu;
// read-modify-write cycles on a relationship additionally hold that pair's
// lock, so different pairs update in parallel.
type MemoryStore struct {
	opts options

	mu       sync.RWMutex
	closed   bool
	personas map[string]model.Persona
	names    map[string]string
	rels     map[pairKey]model.Relationship
	goals    map[string]map[string]model.Goal
	locks    map[pairKey]*sync.Mutex
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	return &MemoryStore{
		opts:     buildOptions(opts),
		personas: make(map[string]model.Persona),
		names:    make(map[string]string),
		rels:     make(map[pairKey]model.Relationship),
		goals:    make(map[string]map[string]model.Goal),
		locks:    make(map[pairKey]*sync.Mutex),
	}
}

func (s *MemoryStore) pairLock(k pairKey) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[k]
	if !ok {
		l = &sync.Mutex{}
		s.locks[k] = l
	}
	return l
}

func (s *MemoryStore) checkOpen() error {
	if s.closed {
		return fmt.Errorf("%w: memory store closed", ErrUnavailable)
	}
	return nil
}

func (s *MemoryStore) FindPersona(ctx context.Context, id string) (*model.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	p, ok := s.personas[id]
	if !ok {
		return nil, fmt.Errorf("persona %q: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (s *MemoryStore) FindRelationship(ctx context.Context, a, b string) (*model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.relationshipLocked(a, b)
}

// relationshipLocked expects mu to be held.
func (s *MemoryStore) relationshipLocked(a, b string) (*model.Relationship, error) {
	r, ok := s.rels[keyOf(a, b)]
	if !ok {
		return nil, fmt.Errorf("relationship %s-%s: %w", a, b, ErrNotFound)
	}
	out := s.withNames(r)
	return &out, nil
}

// withNames copies r, filling in the current persona names.
func (s *MemoryStore) withNames(r model.Relationship) model.Relationship {
	r.Persona1Name = s.personas[r.Persona1ID].Name
	r.Persona2Name = s.personas[r.Persona2ID].Name
	if r.LastInteraction != nil {
		t := *r.LastInteraction
		r.LastInteraction = &t
	}
	return r
}

// update runs fn on the pair's relationship under the pair lock and stores
// the result.
func (s *MemoryStore) update(a, b string, fn func(r *model.Relationship)) (*model.Relationship, error) {
	k := keyOf(a, b)
	l := s.pairLock(k)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	if err := s.checkOpen(); err != nil {
		s.mu.RUnlock()
		return nil, err
	}
	r, ok := s.rels[k]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("relationship %s-%s: %w", a, b, ErrNotFound)
	}

	fn(&r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.rels[k] = r
	out := s.withNames(r)
	return &out, nil
}

func (s *MemoryStore) ApplyBoundedDelta(ctx context.Context, a, b string, d model.MetricDelta) (*model.Relationship, model.Metrics, error) {
	var prev model.Metrics
	r, err := s.update(a, b, func(r *model.Relationship) {
		prev = r.Metrics()
		m := metrics.ApplyDelta(prev, d)
		r.TrustLevel = m.TrustLevel
		r.IntimacyLevel = m.IntimacyLevel
		r.RelationshipStrength = m.RelationshipStrength
		r.UpdatedAt = later(r.UpdatedAt, s.opts.now())
	})
	if err != nil {
		return nil, model.Metrics{}, err
	}
	return r, prev, nil
}

func (s *MemoryStore) RecordInteractionEffect(ctx context.Context, a, b string, valence float64, at time.Time) (*model.Relationship, error) {
	return s.update(a, b, func(r *model.Relationship) {
		r.EmotionalValence = metrics.RollingValence(r.EmotionalValence, valence)
		r.InteractionCount++
		last := at
		r.LastInteraction = &last
		r.UpdatedAt = later(r.UpdatedAt, at)
	})
}

// later keeps updated_at from moving backwards when a write stamped
// earlier acquires the pair lock after a newer one.
func later(current, t time.Time) time.Time {
	if current.After(t) {
		return current
	}
	return t
}

func (s *MemoryStore) ListPersonas(ctx context.Context) ([]model.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]model.Persona, 0, len(s.personas))
	for _, p := range s.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].PersonaID < out[j].PersonaID
	})
	return out, nil
}

func (s *MemoryStore) allRelationships() ([]model.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := make([]model.Relationship, 0, len(s.rels))
	for _, r := range s.rels {
		out = append(out, s.withNames(r))
	}
	return out, nil
}

func byPersonaIDs(a, b model.Relationship) bool {
	if a.Persona1ID != b.Persona1ID {
		return a.Persona1ID < b.Persona1ID
	}
	return a.Persona2ID < b.Persona2ID
}

func (s *MemoryStore) ListRelationships(ctx context.Context) ([]model.Relationship, error) {
	out, err := s.allRelationships()
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelationshipStrength != out[j].RelationshipStrength {
			return out[i].RelationshipStrength > out[j].RelationshipStrength
		}
		return byPersonaIDs(out[i], out[j])
	})
	return out, nil
}

func (s *MemoryStore) ListRecentlyActive(ctx context.Context, limit int) ([]model.Relationship, error) {
	out, err := s.allRelationships()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []model.Relationship{}, nil
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return byPersonaIDs(out[i], out[j])
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) EnsureRelationship(ctx context.Context, a, b string, seed model.Relationship) (*model.Relationship, bool, error) {
	k := keyOf(a, b)
	l := s.pairLock(k)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	for _, id := range []string{a, b} {
		if _, ok := s.personas[id]; !ok {
			return nil, false, fmt.Errorf("persona %q: %w", id, ErrNotFound)
		}
	}
	if r, ok := s.rels[k]; ok {
		out := s.withNames(r)
		return &out, false, nil
	}

	now := s.opts.now()
	m := metrics.ClampMetrics(seed.Metrics())
	r := model.Relationship{
		Persona1ID:           a,
		Persona2ID:           b,
		TrustLevel:           m.TrustLevel,
		IntimacyLevel:        m.IntimacyLevel,
		RelationshipStrength: m.RelationshipStrength,
		EmotionalValence:     metrics.Clamp(seed.EmotionalValence, model.MinValence, model.MaxValence),
		RelationshipType:     seed.RelationshipType,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if r.RelationshipType == "" {
		r.RelationshipType = model.DefaultRelationshipType
	}
	s.rels[k] = r
	out := s.withNames(r)
	return &out, true, nil
}

func (s *MemoryStore) SavePersona(ctx context.Context, p model.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return err
	}
	if owner, ok := s.names[p.Name]; ok && owner != p.PersonaID {
		return fmt.Errorf("persona name %q already used by %q: %w", p.Name, owner, ErrConflict)
	}

	now := s.opts.now()
	p.Personality = p.Personality.Clamp()
	p.CreatedAt = now
	if old, ok := s.personas[p.PersonaID]; ok {
		p.CreatedAt = old.CreatedAt
		delete(s.names, old.Name)
	}
	p.UpdatedAt = now
	s.personas[p.PersonaID] = p
	s.names[p.Name] = p.PersonaID
	return nil
}

func (s *MemoryStore) ListGoals(ctx context.Context, personaID string) ([]model.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	out := []model.Goal{}
	for pid, goals := range s.goals {
		if personaID != "" && pid != personaID {
			continue
		}
		for _, g := range goals {
			g.Strategies = append([]string(nil), g.Strategies...)
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PersonaID != out[j].PersonaID {
			return out[i].PersonaID < out[j].PersonaID
		}
		return out[i].Description < out[j].Description
	})
	return out, nil
}

func (s *MemoryStore) AdvanceGoals(ctx context.Context, advs []model.GoalAdvance) ([]model.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	for _, adv := range advs {
		if _, ok := s.personas[adv.PersonaID]; !ok {
			return nil, fmt.Errorf("persona %q: %w", adv.PersonaID, ErrNotFound)
		}
	}

	out := make([]model.Goal, 0, len(advs))
	for _, adv := range advs {
		g := s.advanceGoal(adv)
		g.Strategies = append([]string(nil), g.Strategies...)
		out = append(out, g)
	}
	return out, nil
}

// advanceGoal folds adv into the stored goal. Callers hold mu.
func (s *MemoryStore) advanceGoal(adv model.GoalAdvance) model.Goal {
	goals, ok := s.goals[adv.PersonaID]
	if !ok {
		goals = make(map[string]model.Goal)
		s.goals[adv.PersonaID] = goals
	}
	g, ok := goals[adv.Description]
	if !ok {
		g = model.Goal{
			GoalID:      adv.GoalID,
			PersonaID:   adv.PersonaID,
			Description: adv.Description,
		}
		if g.GoalID == "" {
			g.GoalID = uuid.NewString()
		}
	}
	g.GoalType = adv.GoalType
	g.Progress = metrics.Clamp(g.Progress+adv.Increment, 0, 1)
	g.Strategies = append([]string(nil), adv.Strategies...)
	g.UpdatedAt = adv.At
	if g.UpdatedAt.IsZero() {
		g.UpdatedAt = s.opts.now()
	}
	goals[adv.Description] = g
	return g
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpen()
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

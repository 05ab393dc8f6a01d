// Package storetest is the behavioural contract every store.Store
// implementation must satisfy. Run it from each implementation's tests.
package storetest

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/store"
)

// Factory returns an empty store whose writes are stamped by now.
type Factory func(t *testing.T, now store.Clock) store.Store

// Clock hands out strictly increasing times one second apart.
type Clock struct {
	mu sync.Mutex
	t  time.Time
}

func NewClock() *Clock {
	return &Clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// Personas returns the three personas every contract case starts from.
func Personas() []model.Persona {
	return []model.Persona{
		{PersonaID: "lila", Name: "Lila", Age: 28, Role: "Research Assistant", AttachmentStyle: model.Secure, Personality: model.DefaultTraits()},
		{PersonaID: "don", Name: "Don", Age: 45, Role: "Software Engineer", AttachmentStyle: model.Anxious, Personality: model.DefaultTraits()},
		{PersonaID: "alex", Name: "Alex", Age: 32, Role: "Designer", AttachmentStyle: model.Avoidant, Personality: model.DefaultTraits()},
	}
}

// Seed saves Personas and a lila-don relationship at trust 7, intimacy 6,
// strength 8 and valence 0.6.
func Seed(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	for _, p := range Personas() {
		require.NoError(t, s.SavePersona(ctx, p))
	}
	_, created, err := s.EnsureRelationship(ctx, "lila", "don", model.Relationship{
		TrustLevel:           7,
		IntimacyLevel:        6,
		RelationshipStrength: 8,
		EmotionalValence:     0.6,
		RelationshipType:     "romantic",
	})
	require.NoError(t, err)
	require.True(t, created)
}

func Run(t *testing.T, factory Factory) {
	ctx := context.Background()

	fresh := func(t *testing.T) store.Store {
		s := factory(t, NewClock().Now)
		Seed(t, s)
		return s
	}

	t.Run("FindPersona", func(t *testing.T) {
		s := fresh(t)
		p, err := s.FindPersona(ctx, "lila")
		require.NoError(t, err)
		assert.Equal(t, "Lila", p.Name)
		assert.Equal(t, model.Secure, p.AttachmentStyle)
		assert.Equal(t, 28, p.Age)
		assert.False(t, p.CreatedAt.IsZero())

		_, err = s.FindPersona(ctx, "nobody")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("TraitsClampedOnWrite", func(t *testing.T) {
		s := fresh(t)
		require.NoError(t, s.SavePersona(ctx, model.Persona{
			PersonaID:       "sam",
			Name:            "Sam",
			AttachmentStyle: model.Exploratory,
			Personality:     model.Traits{Openness: 1.7, Conscientiousness: -0.2, Extraversion: 0.3, Agreeableness: 1, Neuroticism: 0},
		}))
		p, err := s.FindPersona(ctx, "sam")
		require.NoError(t, err)
		assert.Equal(t, 1.0, p.Personality.Openness)
		assert.Equal(t, 0.0, p.Personality.Conscientiousness)
		assert.Equal(t, 0.3, p.Personality.Extraversion)
	})

	t.Run("NameConflict", func(t *testing.T) {
		s := fresh(t)
		err := s.SavePersona(ctx, model.Persona{PersonaID: "impostor", Name: "Lila", AttachmentStyle: model.Secure})
		assert.ErrorIs(t, err, store.ErrConflict)

		// Same id may keep or change its own name.
		p := Personas()[0]
		p.Role = "Lead Researcher"
		require.NoError(t, s.SavePersona(ctx, p))
		got, err := s.FindPersona(ctx, "lila")
		require.NoError(t, err)
		assert.Equal(t, "Lead Researcher", got.Role)
	})

	t.Run("BidirectionalLookup", func(t *testing.T) {
		s := fresh(t)
		ab, err := s.FindRelationship(ctx, "lila", "don")
		require.NoError(t, err)
		ba, err := s.FindRelationship(ctx, "don", "lila")
		require.NoError(t, err)
		assert.Equal(t, ab, ba)
		assert.True(t, ab.Involves("don", "lila"))
		assert.Equal(t, "romantic", ab.RelationshipType)
		assert.NotEmpty(t, ab.Persona1Name)
		assert.NotEmpty(t, ab.Persona2Name)

		_, err = s.FindRelationship(ctx, "lila", "alex")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("ClampAtUpperBound", func(t *testing.T) {
		s := fresh(t)
		r, prev, err := s.ApplyBoundedDelta(ctx, "don", "lila", model.MetricDelta{Trust: 5})
		require.NoError(t, err)
		assert.Equal(t, 7.0, prev.TrustLevel)
		assert.Equal(t, 10.0, r.TrustLevel)
		assert.Equal(t, 6.0, r.IntimacyLevel)
		assert.Equal(t, 8.0, r.RelationshipStrength)
	})

	t.Run("RandomDeltasStayBounded", func(t *testing.T) {
		s := fresh(t)
		rng := rand.New(rand.NewSource(42))
		want := model.Metrics{TrustLevel: 7, IntimacyLevel: 6, RelationshipStrength: 8}
		for i := 0; i < 60; i++ {
			d := model.MetricDelta{
				Trust:    randomDelta(rng),
				Intimacy: randomDelta(rng),
				Strength: randomDelta(rng),
			}
			r, prev, err := s.ApplyBoundedDelta(ctx, "lila", "don", d)
			require.NoError(t, err)
			require.InDelta(t, want.TrustLevel, prev.TrustLevel, 1e-9)
			want = metrics.ApplyDelta(want, d)

			for _, v := range []float64{r.TrustLevel, r.IntimacyLevel, r.RelationshipStrength} {
				require.GreaterOrEqual(t, v, model.MinMetric)
				require.LessOrEqual(t, v, model.MaxMetric)
			}
			require.InDelta(t, want.TrustLevel, r.TrustLevel, 1e-9)
			require.InDelta(t, want.IntimacyLevel, r.IntimacyLevel, 1e-9)
			require.InDelta(t, want.RelationshipStrength, r.RelationshipStrength, 1e-9)
		}
	})

	t.Run("ZeroDeltaTouchesUpdatedAt", func(t *testing.T) {
		s := fresh(t)
		before, err := s.FindRelationship(ctx, "lila", "don")
		require.NoError(t, err)
		after, _, err := s.ApplyBoundedDelta(ctx, "lila", "don", model.MetricDelta{})
		require.NoError(t, err)
		assert.Equal(t, before.Metrics(), after.Metrics())
		assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at %v should follow %v", after.UpdatedAt, before.UpdatedAt)
	})

	t.Run("MissingPairCreatesNothing", func(t *testing.T) {
		s := fresh(t)
		_, _, err := s.ApplyBoundedDelta(ctx, "lila", "alex", model.MetricDelta{Trust: 1})
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.RecordInteractionEffect(ctx, "alex", "lila", 0.5, time.Now())
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.FindRelationship(ctx, "alex", "lila")
		assert.ErrorIs(t, err, store.ErrNotFound)
		rels, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		assert.Len(t, rels, 1)
	})

	t.Run("RollingAverage", func(t *testing.T) {
		s := fresh(t)
		at := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)
		r, err := s.RecordInteractionEffect(ctx, "lila", "don", 0.8, at)
		require.NoError(t, err)
		assert.InDelta(t, 0.70, r.EmotionalValence, 1e-9)
		assert.Equal(t, int64(1), r.InteractionCount)
		require.NotNil(t, r.LastInteraction)
		assert.True(t, r.LastInteraction.Equal(at))

		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 40; i++ {
			v := rng.Float64()*2 - 1
			r, err = s.RecordInteractionEffect(ctx, "don", "lila", v, at.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
			require.GreaterOrEqual(t, r.EmotionalValence, model.MinValence)
			require.LessOrEqual(t, r.EmotionalValence, model.MaxValence)
		}
		assert.Equal(t, int64(41), r.InteractionCount)
	})

	t.Run("ConcurrentWritesSerialize", func(t *testing.T) {
		s := fresh(t)
		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				a, b := "lila", "don"
				if i%2 == 1 {
					a, b = b, a
				}
				if _, err := s.RecordInteractionEffect(ctx, a, b, 0.2, time.Now().UTC()); err != nil {
					errs <- err
				}
				if _, _, err := s.ApplyBoundedDelta(ctx, a, b, model.MetricDelta{Intimacy: 0.1}); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		r, err := s.FindRelationship(ctx, "lila", "don")
		require.NoError(t, err)
		assert.Equal(t, int64(n), r.InteractionCount)
		assert.InDelta(t, 8.0, r.IntimacyLevel, 1e-9)
	})

	t.Run("EnsureRelationship", func(t *testing.T) {
		s := fresh(t)
		seed := model.Relationship{
			TrustLevel:           model.DefaultMetric,
			IntimacyLevel:        model.DefaultMetric,
			RelationshipStrength: model.DefaultMetric,
			RelationshipType:     model.DefaultRelationshipType,
		}
		r, created, err := s.EnsureRelationship(ctx, "alex", "lila", seed)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, 5.0, r.TrustLevel)
		assert.Equal(t, int64(0), r.InteractionCount)
		assert.Equal(t, "unknown", r.RelationshipType)

		again, created, err := s.EnsureRelationship(ctx, "lila", "alex", seed)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, r.Persona1ID, again.Persona1ID)

		_, created, err = s.EnsureRelationship(ctx, "don", "lila", seed)
		require.NoError(t, err)
		assert.False(t, created)

		_, _, err = s.EnsureRelationship(ctx, "lila", "ghost", seed)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Ordering", func(t *testing.T) {
		s := fresh(t)
		_, _, err := s.EnsureRelationship(ctx, "alex", "don", model.Relationship{
			TrustLevel: 3, IntimacyLevel: 2, RelationshipStrength: 9.5, RelationshipType: "friendship",
		})
		require.NoError(t, err)

		personas, err := s.ListPersonas(ctx)
		require.NoError(t, err)
		require.Len(t, personas, 3)
		assert.Equal(t, []string{"Alex", "Don", "Lila"}, []string{personas[0].Name, personas[1].Name, personas[2].Name})

		rels, err := s.ListRelationships(ctx)
		require.NoError(t, err)
		require.Len(t, rels, 2)
		assert.Equal(t, 9.5, rels[0].RelationshipStrength)
		assert.Equal(t, 8.0, rels[1].RelationshipStrength)

		_, err = s.RecordInteractionEffect(ctx, "lila", "don", 0.1, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		recent, err := s.ListRecentlyActive(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.True(t, recent[0].Involves("lila", "don"))

		none, err := s.ListRecentlyActive(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Goals", func(t *testing.T) {
		s := fresh(t)
		at := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
		trust := model.GoalAdvance{
			PersonaID: "lila", GoalType: "trust", Description: "build trust", Increment: 0.15,
			Strategies: []string{"trust_building"}, At: at,
		}
		got, err := s.AdvanceGoals(ctx, []model.GoalAdvance{trust})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.NotEmpty(t, got[0].GoalID)
		assert.InDelta(t, 0.15, got[0].Progress, 1e-9)
		assert.Equal(t, []string{"trust_building"}, got[0].Strategies)
		first := got[0].GoalID

		for i := 0; i < 10; i++ {
			got, err = s.AdvanceGoals(ctx, []model.GoalAdvance{trust})
			require.NoError(t, err)
		}
		assert.Equal(t, first, got[0].GoalID)
		assert.Equal(t, 1.0, got[0].Progress)

		got, err = s.AdvanceGoals(ctx, []model.GoalAdvance{
			{PersonaID: "don", GoalType: "general", Description: "listen", Increment: 0.1, At: at},
			{PersonaID: "don", GoalType: "intimacy", Description: "deepen intimacy", Increment: 0.08, At: at},
		})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "listen", got[0].Description)
		assert.Equal(t, "deepen intimacy", got[1].Description)

		all, err := s.ListGoals(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "don", all[0].PersonaID)
		assert.Equal(t, "lila", all[2].PersonaID)

		mine, err := s.ListGoals(ctx, "lila")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, "build trust", mine[0].Description)

		none, err := s.AdvanceGoals(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("GoalBatchIsAllOrNothing", func(t *testing.T) {
		s := fresh(t)
		at := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
		_, err := s.AdvanceGoals(ctx, []model.GoalAdvance{
			{PersonaID: "lila", GoalType: "trust", Description: "build trust", Increment: 0.15, At: at},
			{PersonaID: "ghost", GoalType: "general", Description: "haunt", Increment: 0.1, At: at},
			{PersonaID: "don", GoalType: "general", Description: "listen", Increment: 0.1, At: at},
		})
		assert.ErrorIs(t, err, store.ErrNotFound)

		all, err := s.ListGoals(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("UpdatedAtNeverMovesBackwards", func(t *testing.T) {
		s := fresh(t)
		before, err := s.FindRelationship(ctx, "lila", "don")
		require.NoError(t, err)

		stale := before.UpdatedAt.Add(-time.Hour)
		r, err := s.RecordInteractionEffect(ctx, "lila", "don", 0.2, stale)
		require.NoError(t, err)
		assert.Equal(t, int64(1), r.InteractionCount)
		assert.False(t, r.UpdatedAt.Before(before.UpdatedAt))
		require.NotNil(t, r.LastInteraction)
		assert.True(t, r.LastInteraction.Equal(stale))

		r, _, err = s.ApplyBoundedDelta(ctx, "lila", "don", model.MetricDelta{Trust: 1})
		require.NoError(t, err)
		assert.True(t, r.UpdatedAt.After(before.UpdatedAt))
	})

	t.Run("Ping", func(t *testing.T) {
		s := fresh(t)
		assert.NoError(t, s.Ping(ctx))
	})
}

func randomDelta(rng *rand.Rand) float64 {
	if rng.Intn(5) == 0 {
		return (rng.Float64()*2 - 1) * 1000
	}
	return (rng.Float64()*2 - 1) * 3
}

package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/agenthands/lila/internal/core/apperror"
	"github.com/agenthands/lila/internal/core/compat"
	"github.com/agenthands/lila/internal/core/model"
	"github.com/agenthands/lila/internal/core/strategy"
	"github.com/agenthands/lila/internal/store"
	"github.com/agenthands/lila/internal/store/storetest"
)

var engineNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, opts Options) (*Engine, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(storetest.NewClock().Now))
	storetest.Seed(t, s)

	e := NewEngine(s, opts, zap.NewNop())
	e.Now = func() time.Time { return engineNow }
	goalIDs := 0
	e.GoalIDGenerator = func() string {
		goalIDs++
		return fmt.Sprintf("goal-%d", goalIDs)
	}
	return e, s
}

func TestUpdateRelationshipMetrics_ClampsAndReportsRequestedDelta(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())

	res, err := e.UpdateRelationshipMetrics(context.Background(), "lila", "don", model.MetricDelta{Trust: 5})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 10.0, res.TrustLevel)
	assert.Equal(t, 5.0, res.Changes.Trust)
	assert.Equal(t, 3.0, res.Effective.Trust)
	assert.Equal(t, 6.0, res.IntimacyLevel)
	assert.Equal(t, 0.0, res.Effective.Intimacy)
	assert.Equal(t, []string{"lila", "don"}, res.Participants)
	assert.Equal(t, []string{"Lila", "Don"}, res.ParticipantNames)
	assert.False(t, res.RelationshipCreated)
}

func TestUpdateRelationshipMetrics_ReversedPairKeepsRequestOrder(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())

	res, err := e.UpdateRelationshipMetrics(context.Background(), "don", "lila", model.MetricDelta{Strength: -20})
	require.NoError(t, err)
	assert.Equal(t, []string{"Don", "Lila"}, res.ParticipantNames)
	assert.Equal(t, 0.0, res.RelationshipStrength)
	assert.Equal(t, -20.0, res.Changes.Strength)
	assert.Equal(t, -8.0, res.Effective.Strength)
}

func TestUpdateRelationshipMetrics_MissingPairIsNotFound(t *testing.T) {
	e, s := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	_, err := e.UpdateRelationshipMetrics(ctx, "lila", "alex", model.MetricDelta{Trust: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "No relationship found between lila and alex", err.Error())

	_, err = s.FindRelationship(ctx, "lila", "alex")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateRelationshipMetrics_CreatesMissingPairWhenEnabled(t *testing.T) {
	opts := DefaultOptions()
	opts.CreateMissingRelationships = true
	e, s := newTestEngine(t, opts)
	ctx := context.Background()

	res, err := e.UpdateRelationshipMetrics(ctx, "lila", "alex", model.MetricDelta{Trust: 1, Intimacy: -6})
	require.NoError(t, err)
	assert.True(t, res.RelationshipCreated)
	assert.Equal(t, 6.0, res.TrustLevel)
	assert.Equal(t, 0.0, res.IntimacyLevel)
	assert.Equal(t, 5.0, res.RelationshipStrength)
	assert.Equal(t, -5.0, res.Effective.Intimacy)

	r, err := s.FindRelationship(ctx, "alex", "lila")
	require.NoError(t, err)
	assert.Equal(t, "unknown", r.RelationshipType)
	assert.Equal(t, 0.0, r.EmotionalValence)

	again, err := e.UpdateRelationshipMetrics(ctx, "alex", "lila", model.MetricDelta{})
	require.NoError(t, err)
	assert.False(t, again.RelationshipCreated)

	_, err = e.UpdateRelationshipMetrics(ctx, "lila", "ghost", model.MetricDelta{Trust: 1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestUpdateRelationshipMetrics_InvalidArguments(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	cases := []struct {
		name string
		a, b string
		d    model.MetricDelta
	}{
		{"empty first id", "", "don", model.MetricDelta{}},
		{"blank second id", "lila", "  ", model.MetricDelta{}},
		{"same persona", "lila", "lila", model.MetricDelta{}},
		{"nan delta", "lila", "don", model.MetricDelta{Trust: math.NaN()}},
		{"infinite delta", "lila", "don", model.MetricDelta{Strength: math.Inf(1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.UpdateRelationshipMetrics(ctx, tc.a, tc.b, tc.d)
			assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
		})
	}
}

func TestUpdateRelationshipMetrics_ZeroDeltaTouchesUpdatedAt(t *testing.T) {
	e, s := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	before, err := s.FindRelationship(ctx, "lila", "don")
	require.NoError(t, err)
	res, err := e.UpdateRelationshipMetrics(ctx, "lila", "don", model.MetricDelta{})
	require.NoError(t, err)

	assert.Equal(t, before.Metrics(), res.Metrics)
	assert.Equal(t, model.MetricDelta{}, res.Effective)
	assert.True(t, res.UpdatedAt.After(before.UpdatedAt))
}

func TestRecordInteraction_RollingAverage(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.RecordInteraction(ctx, InteractionInput{
		SenderID:         "lila",
		RecipientID:      "don",
		Content:          "I'm glad we talked today.",
		EmotionalValence: 0.8,
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "int_lila_don_1740830400000", res.InteractionID)
	assert.InDelta(t, 0.70, res.Relationship.EmotionalValence, 1e-9)
	assert.Equal(t, int64(1), res.Relationship.InteractionCount)
	assert.Equal(t, 25, res.ContentLength)
	assert.Equal(t, 0.8, res.Recorded.EmotionalValence)

	second, err := e.RecordInteraction(ctx, InteractionInput{SenderID: "lila", RecipientID: "don", Content: "I'm glad we talked today.", EmotionalValence: 0.8})
	require.NoError(t, err)
	assert.Equal(t, "int_lila_don_1740830400001", second.InteractionID)
	assert.Equal(t, int64(2), second.Relationship.InteractionCount)
}

func TestRecordInteraction_Errors(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	_, err := e.RecordInteraction(ctx, InteractionInput{SenderID: "lila", RecipientID: "don", EmotionalValence: 1.5})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = e.RecordInteraction(ctx, InteractionInput{SenderID: "lila", RecipientID: "lila"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = e.RecordInteraction(ctx, InteractionInput{SenderID: "lila", RecipientID: "don", RelationshipImpact: math.NaN()})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = e.RecordInteraction(ctx, InteractionInput{SenderID: "alex", RecipientID: "don", EmotionalValence: 0.1})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAnalyzeCompatibility(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.AnalyzeCompatibility(ctx, "lila", "don", "")
	require.NoError(t, err)
	assert.Equal(t, compat.Good, res.Level)
	assert.Equal(t, "romantic", res.RelationshipType)
	assert.Equal(t, model.Secure, res.Persona1.AttachmentStyle)
	assert.Equal(t, model.Anxious, res.Persona2.AttachmentStyle)
	assert.Len(t, res.Recommendations, 3)

	rev, err := e.AnalyzeCompatibility(ctx, "don", "lila", "friendship")
	require.NoError(t, err)
	assert.Equal(t, res.Assessment, rev.Assessment)
	assert.Equal(t, "friendship", rev.RelationshipType)

	_, err = e.AnalyzeCompatibility(ctx, "lila", "ghost", "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "Persona ghost not found", err.Error())
}

func TestSelectStrategy(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.SelectStrategy(ctx, StrategyRequest{PersonaID: "don", Context: "Our FIRST date", AttachmentStyle: "anxious"})
	require.NoError(t, err)
	assert.Equal(t, strategy.ReassuranceSeeking, res.SelectedStrategy)
	assert.Equal(t, "opening", res.Rule)

	// The stored style is not consulted; the request defaults to secure.
	res, err = e.SelectStrategy(ctx, StrategyRequest{PersonaID: "don"})
	require.NoError(t, err)
	assert.Equal(t, model.Secure, res.AttachmentStyle)
	assert.Equal(t, strategy.EmotionalBonding, res.SelectedStrategy)
	assert.Equal(t, strategy.Available(model.Secure), res.AvailableStrategies)

	res, err = e.SelectStrategy(ctx, StrategyRequest{PersonaID: "alex", Goals: "rebuild trust", AttachmentStyle: "avoidant"})
	require.NoError(t, err)
	assert.Equal(t, strategy.TrustBuilding, res.SelectedStrategy)

	_, err = e.SelectStrategy(ctx, StrategyRequest{PersonaID: "ghost"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAssessGoalProgress(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "lila", Goals: "build trust, deepen intimacy"})
	require.NoError(t, err)
	require.Len(t, res.Goals, 2)
	assert.InDelta(t, 0.115, res.Overall, 1e-9)
	assert.Empty(t, res.Committed)

	empty, err := e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "lila"})
	require.NoError(t, err)
	assert.Equal(t, 0.05, empty.Overall)
	assert.Empty(t, empty.Goals)

	active, err := e.ActiveGoals(ctx)
	require.NoError(t, err)
	assert.Zero(t, active.Count)
}

func TestAssessGoalProgress_Commit(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "don", Goals: "show vulnerability, listen more", Commit: true})
	require.NoError(t, err)
	require.Len(t, res.Committed, 2)
	assert.Equal(t, "goal-1", res.Committed[0].GoalID)
	assert.Equal(t, "vulnerability", res.Committed[0].GoalType)
	assert.InDelta(t, 0.12, res.Committed[0].Progress, 1e-9)
	assert.Equal(t, []string{strategy.VulnerableDisclosure}, res.Committed[0].Strategies)

	_, err = e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "don", Goals: "show vulnerability", Commit: true})
	require.NoError(t, err)

	active, err := e.ActiveGoals(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, active.Count)
	assert.Equal(t, "listen more", active.Goals[0].Description)
	assert.InDelta(t, 0.24, active.Goals[1].Progress, 1e-9)
	assert.InDelta(t, (0.10+0.24)/2, active.CompletionRate, 1e-9)

	_, err = e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "ghost", Goals: "trust"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAssessGoalProgress_CommitAdvancesRepeatedGoalOnce(t *testing.T) {
	e, s := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	res, err := e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "don", Goals: "trust, trust", Commit: true})
	require.NoError(t, err)
	assert.Len(t, res.Goals, 2)
	require.Len(t, res.Committed, 1)
	assert.InDelta(t, 0.15, res.Committed[0].Progress, 1e-9)

	stored, err := s.ListGoals(ctx, "don")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.InDelta(t, 0.15, stored[0].Progress, 1e-9)
}

// goalFailStore fails every goal batch after the persona lookup succeeds.
type goalFailStore struct {
	*store.MemoryStore
}

func (g *goalFailStore) AdvanceGoals(ctx context.Context, advs []model.GoalAdvance) ([]model.Goal, error) {
	return nil, fmt.Errorf("write goals: %w", store.ErrUnavailable)
}

func TestAssessGoalProgress_CommitFailureLeavesNoGoals(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	storetest.Seed(t, mem)
	e := NewEngine(&goalFailStore{MemoryStore: mem}, DefaultOptions(), zap.NewNop())

	_, err := e.AssessGoalProgress(ctx, GoalRequest{PersonaID: "don", Goals: "build trust, deepen intimacy", Commit: true})
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)

	stored, err := mem.ListGoals(ctx, "don")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestGenerateContextualResponse(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	long := strings.Repeat("é", 150)
	res, err := e.GenerateContextualResponse(ctx, ResponseRequest{PersonaID: "don", Context: long})
	require.NoError(t, err)
	assert.Equal(t, strategy.EmotionalValidation, res.StrategyUsed)
	assert.Equal(t, "Don", res.PersonaName)
	assert.Equal(t, strings.Repeat("é", 100)+"...", res.Context)

	res, err = e.GenerateContextualResponse(ctx, ResponseRequest{PersonaID: "alex", Context: "short"})
	require.NoError(t, err)
	assert.Equal(t, strategy.ThoughtfulPresence, res.StrategyUsed)
	assert.Equal(t, "short", res.Context)

	_, err = e.GenerateContextualResponse(ctx, ResponseRequest{PersonaID: "lila"})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestQueries(t *testing.T) {
	e, s := newTestEngine(t, DefaultOptions())
	ctx := context.Background()
	_, _, err := s.EnsureRelationship(ctx, "alex", "don", model.Relationship{
		TrustLevel: 3, IntimacyLevel: 2, RelationshipStrength: 4, EmotionalValence: -0.4, RelationshipType: "friendship",
	})
	require.NoError(t, err)

	personas, err := e.AllPersonas(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, personas.Count)
	assert.Equal(t, engineNow, personas.LastUpdated)

	p, err := e.Persona(ctx, "lila")
	require.NoError(t, err)
	assert.Equal(t, "Lila", p.Persona.Name)
	_, err = e.Persona(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	rels, err := e.AllRelationships(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, rels.Count)
	assert.Equal(t, 8.0, rels.Relationships[0].RelationshipStrength)

	rel, err := e.Relationship(ctx, "don", "lila")
	require.NoError(t, err)
	assert.Equal(t, 7.0, rel.Relationship.TrustLevel)
	_, err = e.Relationship(ctx, "lila", "alex")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	recent, err := e.RecentInteractions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, recent.Count)
	assert.Equal(t, "interaction_1", recent.Interactions[0].ID)
	assert.Equal(t, "[Relationship interaction of type: friendship]", recent.Interactions[0].Content)

	climate, err := e.EmotionalClimate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, climate.RelationshipCount)
	assert.InDelta(t, 5.0, climate.AverageTrust, 1e-9)
	assert.InDelta(t, 0.1, climate.AverageValence, 1e-9)
	assert.Len(t, climate.RiskFactors, 2)
	assert.Len(t, climate.Strengths, 1)

	communities, err := e.Communities(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, communities.Count)
	assert.Len(t, communities.Communities[0].Members, 3)
}

func TestClampRecentLimit(t *testing.T) {
	assert.Equal(t, 10, ClampRecentLimit(0))
	assert.Equal(t, 10, ClampRecentLimit(-3))
	assert.Equal(t, 1, ClampRecentLimit(1))
	assert.Equal(t, 50, ClampRecentLimit(500))
}

func TestCommitAndFinalize(t *testing.T) {
	e, _ := newTestEngine(t, DefaultOptions())
	ctx := context.Background()

	c, err := e.CommitRelationshipState(ctx, "don", "lila")
	require.NoError(t, err)
	assert.True(t, c.Success)
	assert.Equal(t, []string{"don", "lila"}, c.Participants)

	_, err = e.CommitRelationshipState(ctx, "don", "alex")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	f, err := e.FinalizeSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.CommittedRelationships)
}

type brokenStore struct {
	*store.MemoryStore
	err   error
	panic bool
}

func (b *brokenStore) ListPersonas(ctx context.Context) ([]model.Persona, error) {
	if b.panic {
		panic("corrupt record")
	}
	return nil, b.err
}

func TestEngine_StoreFailuresAreClassified(t *testing.T) {
	ctx := context.Background()

	closed := store.NewMemoryStore()
	storetest.Seed(t, closed)
	require.NoError(t, closed.Close(ctx))
	e := NewEngine(closed, DefaultOptions(), zap.NewNop())

	_, err := e.AllRelationships(ctx)
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	_, err = e.UpdateRelationshipMetrics(ctx, "lila", "don", model.MetricDelta{Trust: 1})
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	_, err = e.Persona(ctx, "lila")
	assert.ErrorIs(t, err, apperror.ErrStoreUnavailable)
	assert.ErrorIs(t, e.Ping(ctx), apperror.ErrStoreUnavailable)

	boom := errors.New("unexpected record shape")
	e = NewEngine(&brokenStore{MemoryStore: store.NewMemoryStore(), err: boom}, DefaultOptions(), zap.NewNop())
	_, err = e.AllPersonas(ctx)
	assert.ErrorIs(t, err, apperror.ErrInternal)
	assert.ErrorIs(t, err, boom)
	_, err = e.Communities(ctx)
	assert.ErrorIs(t, err, apperror.ErrInternal)

	e = NewEngine(&brokenStore{MemoryStore: store.NewMemoryStore(), panic: true}, DefaultOptions(), zap.NewNop())
	_, err = e.AllPersonas(ctx)
	assert.ErrorIs(t, err, apperror.ErrInternal)
}

func TestEngine_CancelledRequestIsNotInternal(t *testing.T) {
	ctx := context.Background()
	obs, logs := observer.New(zapcore.DebugLevel)

	e := NewEngine(&brokenStore{MemoryStore: store.NewMemoryStore(), err: fmt.Errorf("list personas: %w", context.Canceled)},
		DefaultOptions(), zap.New(obs))
	_, err := e.AllPersonas(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrInternal)
	assert.Equal(t, apperror.KindStoreUnavailable, apperror.KindOf(err))
	assert.Equal(t, "request cancelled", err.Error())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

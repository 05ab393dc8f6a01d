package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/prompts"
	"github.com/agenthands/lila/internal/store"
	"github.com/agenthands/lila/internal/store/storetest"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s := store.NewMemoryStore(store.WithClock(storetest.NewClock().Now))
	storetest.Seed(t, s)
	e := core.NewEngine(s, core.DefaultOptions(), zap.NewNop())
	e.Now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return New(e, prompts.Default(), zap.NewNop())
}

func callTool(t *testing.T, d *Dispatcher, name string, args map[string]interface{}) (*mcp.CallToolResult, map[string]interface{}) {
	t.Helper()
	var handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
	for _, tl := range d.tools() {
		if tl.def.Name == name {
			handler = tl.handle
		}
	}
	require.NotNil(t, handler, "tool %s not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	return res, decode(t, resultText(res))
}

func readResource(t *testing.T, d *Dispatcher, uri string) map[string]interface{} {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri

	var contents []mcp.ResourceContents
	var err error
	for _, r := range d.resources() {
		if r.def.URI == uri {
			contents, err = r.handle(context.Background(), req)
		}
	}
	if contents == nil {
		switch {
		case strings.HasPrefix(uri, "lila://personas/"):
			contents, err = d.handlePersona(context.Background(), req)
		case strings.HasPrefix(uri, "lila://interactions/recent/"):
			contents, err = d.handleRecent(context.Background(), req)
		default:
			contents, err = d.handleRelationship(context.Background(), req)
		}
	}
	require.NoError(t, err)
	require.Len(t, contents, 1)
	tc, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, uri, tc.URI)
	assert.Equal(t, "application/json", tc.MIMEType)
	return decode(t, tc.Text)
}

func resultText(r *mcp.CallToolResult) string {
	if r == nil {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decode(t *testing.T, text string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &m), text)
	return m
}

func TestRegistration(t *testing.T) {
	d := newTestDispatcher(t)

	var uris []string
	for _, r := range d.resources() {
		uris = append(uris, r.def.URI)
	}
	assert.ElementsMatch(t, []string{
		URIAllPersonas, URIAllRelationships, URIEmotionalClimate, URICommunities, URIActiveGoals,
	}, uris)
	assert.Len(t, d.templates(), 3)

	var names []string
	for _, tl := range d.tools() {
		names = append(names, tl.def.Name)
	}
	assert.ElementsMatch(t, []string{
		ToolUpdateRelationshipMetrics, ToolRecordInteraction, ToolAnalyzeCompatibility,
		ToolStrategySelection, ToolAssessGoalProgress, ToolContextualResponse,
		ToolCommitRelationshipState, ToolFinalizeSession,
	}, names)

	var promptNames []string
	for _, p := range d.promptList() {
		promptNames = append(promptNames, p.def.Name)
	}
	assert.ElementsMatch(t, []string{
		prompts.AssessAttachmentStyleName, prompts.AnalyzeEmotionalClimateName, prompts.GenerateSecureResponseName,
	}, promptNames)

	assert.NotNil(t, d.NewServer("test"))
}

func TestToolDefinitions_RequiredArguments(t *testing.T) {
	d := newTestDispatcher(t)
	for _, tl := range d.tools() {
		if tl.def.Name == ToolUpdateRelationshipMetrics {
			assert.ElementsMatch(t, []string{"persona1_id", "persona2_id"}, tl.def.InputSchema.Required)
			assert.Contains(t, tl.def.InputSchema.Properties, "trust_delta")
		}
	}
}

func TestUpdateRelationshipMetricsTool(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolUpdateRelationshipMetrics, map[string]interface{}{
		"persona1_id": "lila",
		"persona2_id": "don",
		"trust_delta": 5.0,
	})
	assert.False(t, res.IsError)
	assert.Equal(t, 10.0, body["trust_level"])
	assert.Equal(t, 5.0, body["changes"].(map[string]interface{})["trust_delta"])
	assert.Equal(t, 3.0, body["effective_changes"].(map[string]interface{})["trust_delta"])
}

func TestUpdateRelationshipMetricsTool_MissingPair(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolUpdateRelationshipMetrics, map[string]interface{}{
		"persona1_id": "lila",
		"persona2_id": "alex",
		"trust_delta": 1.0,
	})
	assert.True(t, res.IsError)
	assert.Equal(t, "No relationship found between lila and alex", body["error"])
	assert.Len(t, body, 1)
}

func TestRecordInteractionTool(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolRecordInteraction, map[string]interface{}{
		"sender_id":         "lila",
		"recipient_id":      "don",
		"content":           "I'm here for you",
		"emotional_valence": 0.8,
	})
	require.False(t, res.IsError)
	assert.Equal(t, "int_lila_don_1740830400000", body["interaction_id"])
	rel := body["relationship"].(map[string]interface{})
	assert.InDelta(t, 0.7, rel["emotional_valence"].(float64), 1e-9)

	res, body = callTool(t, d, ToolRecordInteraction, map[string]interface{}{
		"sender_id":         "lila",
		"recipient_id":      "don",
		"content":           "too much",
		"emotional_valence": 3.0,
	})
	assert.True(t, res.IsError)
	assert.Contains(t, body["error"], "emotional_valence")
}

func TestAnalyzeCompatibilityTool(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolAnalyzeCompatibility, map[string]interface{}{
		"persona1_id": "lila",
		"persona2_id": "don",
	})
	require.False(t, res.IsError)
	assert.Equal(t, "Good", body["compatibility_level"])
	assert.Equal(t, "romantic", body["relationship_type"])
}

func TestStrategyAndResponseTools(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolStrategySelection, map[string]interface{}{
		"persona_id":           "don",
		"conversation_context": "Our first date",
		"attachment_style":     "anxious",
	})
	require.False(t, res.IsError)
	assert.Equal(t, "reassurance_seeking", body["selected_strategy"])

	res, body = callTool(t, d, ToolContextualResponse, map[string]interface{}{
		"persona_id": "don",
		"context":    "Running late again",
	})
	require.False(t, res.IsError)
	assert.Equal(t, "emotional_validation", body["strategy_used"])

	res, _ = callTool(t, d, ToolContextualResponse, map[string]interface{}{"persona_id": "don"})
	assert.True(t, res.IsError)
}

func TestAssessGoalProgressTool_Commit(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolAssessGoalProgress, map[string]interface{}{
		"persona_id": "lila",
		"goals":      "build trust, deepen intimacy",
		"commit":     true,
	})
	require.False(t, res.IsError)
	assert.Len(t, body["committed_goals"], 2)

	goals := readResource(t, d, URIActiveGoals)
	assert.Equal(t, 2.0, goals["count"])
}

func TestCommitAndFinalizeTools(t *testing.T) {
	d := newTestDispatcher(t)

	res, body := callTool(t, d, ToolCommitRelationshipState, map[string]interface{}{
		"persona1_id": "don",
		"persona2_id": "lila",
	})
	require.False(t, res.IsError)
	assert.Equal(t, true, body["success"])

	res, body = callTool(t, d, ToolFinalizeSession, nil)
	require.False(t, res.IsError)
	assert.Equal(t, 1.0, body["committed_relationships"])
}

func TestResources(t *testing.T) {
	d := newTestDispatcher(t)

	all := readResource(t, d, URIAllPersonas)
	assert.Equal(t, 3.0, all["count"])

	p := readResource(t, d, "lila://personas/don")
	assert.Equal(t, "Don", p["persona"].(map[string]interface{})["name"])

	missing := readResource(t, d, "lila://personas/ghost")
	assert.Equal(t, "Persona ghost not found", missing["error"])

	rel := readResource(t, d, "lila://relationships/don/lila")
	assert.Equal(t, 7.0, rel["relationship"].(map[string]interface{})["trust_level"])

	rels := readResource(t, d, URIAllRelationships)
	assert.Equal(t, 1.0, rels["count"])

	recent := readResource(t, d, "lila://interactions/recent/5")
	assert.Equal(t, 1.0, recent["count"])

	bad := readResource(t, d, "lila://interactions/recent/many")
	assert.Contains(t, bad["error"], "count must be an integer")

	climate := readResource(t, d, URIEmotionalClimate)
	assert.Equal(t, 1.0, climate["relationship_count"])

	communities := readResource(t, d, URICommunities)
	assert.Contains(t, communities, "communities")
}

func TestPrompts(t *testing.T) {
	d := newTestDispatcher(t)

	req := mcp.GetPromptRequest{}
	req.Params.Name = prompts.AssessAttachmentStyleName
	req.Params.Arguments = map[string]string{"persona_id": "don"}
	res, err := d.assessAttachmentStyle(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text := res.Messages[0].Content.(mcp.TextContent).Text
	assert.Contains(t, text, "persona don")
	assert.Contains(t, text, "OBSERVATION PERIOD: recent")

	req.Params.Arguments = map[string]string{}
	_, err = d.assessAttachmentStyle(context.Background(), req)
	assert.Error(t, err)

	req.Params.Arguments = map[string]string{"scenario_description": "A missed call", "personas": "lila, don"}
	res, err = d.generateSecureResponse(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Messages[0].Content.(mcp.TextContent).Text, "A missed call")

	req.Params.Arguments = nil
	res, err = d.analyzeEmotionalClimate(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Messages)
}

package dispatch

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenthands/lila/internal/core"
	"github.com/agenthands/lila/internal/core/model"
)

const (
	ToolUpdateRelationshipMetrics = "update_relationship_metrics"
	ToolRecordInteraction         = "record_interaction"
	ToolAnalyzeCompatibility      = "analyze_persona_compatibility"
	ToolStrategySelection         = "autonomous_strategy_selection"
	ToolAssessGoalProgress        = "assess_goal_progress"
	ToolContextualResponse        = "generate_contextual_response"
	ToolCommitRelationshipState   = "commit_relationship_state"
	ToolFinalizeSession           = "finalize_demo_session"
)

type tool struct {
	def    mcp.Tool
	handle server.ToolHandlerFunc
}

func (d *Dispatcher) tools() []tool {
	return []tool{
		{
			def: mcp.NewTool(ToolUpdateRelationshipMetrics,
				mcp.WithDescription("Change trust, intimacy and strength between two personas. "+
					"Each metric stays within [0, 10]; the result reports requested and effective changes."),
				mcp.WithString("persona1_id", mcp.Required(), mcp.Description("First persona id")),
				mcp.WithString("persona2_id", mcp.Required(), mcp.Description("Second persona id")),
				mcp.WithNumber("trust_delta", mcp.Description("Change in trust level (default 0)")),
				mcp.WithNumber("intimacy_delta", mcp.Description("Change in intimacy level (default 0)")),
				mcp.WithNumber("strength_delta", mcp.Description("Change in relationship strength (default 0)")),
			),
			handle: d.updateRelationshipMetrics,
		},
		{
			def: mcp.NewTool(ToolRecordInteraction,
				mcp.WithDescription("Record an interaction between two personas. "+
					"Updates the running emotional valence and the interaction count."),
				mcp.WithString("sender_id", mcp.Required(), mcp.Description("Persona sending the message")),
				mcp.WithString("recipient_id", mcp.Required(), mcp.Description("Persona receiving the message")),
				mcp.WithString("content", mcp.Required(), mcp.Description("Interaction content")),
				mcp.WithNumber("emotional_valence", mcp.Description("Emotional tone in [-1, 1] (default 0)")),
				mcp.WithNumber("relationship_impact", mcp.Description("Caller's estimate of the impact (default 0)")),
			),
			handle: d.recordInteraction,
		},
		{
			def: mcp.NewTool(ToolAnalyzeCompatibility,
				mcp.WithDescription("Assess attachment-style compatibility between two personas."),
				mcp.WithString("persona1_id", mcp.Required(), mcp.Description("First persona id")),
				mcp.WithString("persona2_id", mcp.Required(), mcp.Description("Second persona id")),
				mcp.WithString("relationship_type", mcp.Description("Relationship type (default romantic)")),
			),
			handle: d.analyzeCompatibility,
		},
		{
			def: mcp.NewTool(ToolStrategySelection,
				mcp.WithDescription("Pick a relationship strategy from attachment style, context and goals."),
				mcp.WithString("persona_id", mcp.Required(), mcp.Description("Persona id")),
				mcp.WithString("conversation_context", mcp.Description("Current conversation context")),
				mcp.WithString("situation_assessment", mcp.Description("Assessment of the situation")),
				mcp.WithString("active_goals", mcp.Description("Goals being pursued")),
				mcp.WithString("attachment_style", mcp.Description("secure, anxious, avoidant or exploratory (default secure)")),
			),
			handle: d.selectStrategy,
		},
		{
			def: mcp.NewTool(ToolAssessGoalProgress,
				mcp.WithDescription("Estimate progress on comma-separated relationship goals."),
				mcp.WithString("persona_id", mcp.Required(), mcp.Description("Persona id")),
				mcp.WithString("goals", mcp.Description("Comma-separated goals")),
				mcp.WithString("recent_interactions", mcp.Description("Summary of recent interactions")),
				mcp.WithBoolean("commit", mcp.Description("Store the progress on the persona's goals (default false)")),
			),
			handle: d.assessGoalProgress,
		},
		{
			def: mcp.NewTool(ToolContextualResponse,
				mcp.WithDescription("Produce a response line suited to the persona's attachment style."),
				mcp.WithString("persona_id", mcp.Required(), mcp.Description("Persona id")),
				mcp.WithString("context", mcp.Required(), mcp.Description("Conversation context")),
				mcp.WithString("goals", mcp.Description("Goals for the response")),
				mcp.WithString("constraints", mcp.Description("Constraints on the response")),
			),
			handle: d.generateContextualResponse,
		},
		{
			def: mcp.NewTool(ToolCommitRelationshipState,
				mcp.WithDescription("Confirm the stored state of one relationship."),
				mcp.WithString("persona1_id", mcp.Required(), mcp.Description("First persona id")),
				mcp.WithString("persona2_id", mcp.Required(), mcp.Description("Second persona id")),
			),
			handle: d.commitRelationshipState,
		},
		{
			def: mcp.NewTool(ToolFinalizeSession,
				mcp.WithDescription("Confirm every relationship is stored and report how many there are."),
			),
			handle: d.finalizeSession,
		},
	}
}

func (d *Dispatcher) updateRelationshipMetrics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.UpdateRelationshipMetrics(ctx,
		req.GetString("persona1_id", ""),
		req.GetString("persona2_id", ""),
		model.MetricDelta{
			Trust:    req.GetFloat("trust_delta", 0),
			Intimacy: req.GetFloat("intimacy_delta", 0),
			Strength: req.GetFloat("strength_delta", 0),
		})
	return d.toolResult(ToolUpdateRelationshipMetrics, v, err)
}

func (d *Dispatcher) recordInteraction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.RecordInteraction(ctx, core.InteractionInput{
		SenderID:           req.GetString("sender_id", ""),
		RecipientID:        req.GetString("recipient_id", ""),
		Content:            req.GetString("content", ""),
		EmotionalValence:   req.GetFloat("emotional_valence", 0),
		RelationshipImpact: req.GetFloat("relationship_impact", 0),
	})
	return d.toolResult(ToolRecordInteraction, v, err)
}

func (d *Dispatcher) analyzeCompatibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.AnalyzeCompatibility(ctx,
		req.GetString("persona1_id", ""),
		req.GetString("persona2_id", ""),
		req.GetString("relationship_type", ""))
	return d.toolResult(ToolAnalyzeCompatibility, v, err)
}

func (d *Dispatcher) selectStrategy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.SelectStrategy(ctx, core.StrategyRequest{
		PersonaID:       req.GetString("persona_id", ""),
		Context:         req.GetString("conversation_context", ""),
		Situation:       req.GetString("situation_assessment", ""),
		Goals:           req.GetString("active_goals", ""),
		AttachmentStyle: req.GetString("attachment_style", ""),
	})
	return d.toolResult(ToolStrategySelection, v, err)
}

func (d *Dispatcher) assessGoalProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.AssessGoalProgress(ctx, core.GoalRequest{
		PersonaID:          req.GetString("persona_id", ""),
		Goals:              req.GetString("goals", ""),
		RecentInteractions: req.GetString("recent_interactions", ""),
		Commit:             req.GetBool("commit", false),
	})
	return d.toolResult(ToolAssessGoalProgress, v, err)
}

func (d *Dispatcher) generateContextualResponse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.GenerateContextualResponse(ctx, core.ResponseRequest{
		PersonaID:   req.GetString("persona_id", ""),
		Context:     req.GetString("context", ""),
		Goals:       req.GetString("goals", ""),
		Constraints: req.GetString("constraints", ""),
	})
	return d.toolResult(ToolContextualResponse, v, err)
}

func (d *Dispatcher) commitRelationshipState(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.CommitRelationshipState(ctx,
		req.GetString("persona1_id", ""),
		req.GetString("persona2_id", ""))
	return d.toolResult(ToolCommitRelationshipState, v, err)
}

func (d *Dispatcher) finalizeSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	v, err := d.engine.FinalizeSession(ctx)
	return d.toolResult(ToolFinalizeSession, v, err)
}

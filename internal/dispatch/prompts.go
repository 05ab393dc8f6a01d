package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/agenthands/lila/internal/prompts"
)

type prompt struct {
	def    mcp.Prompt
	handle server.PromptHandlerFunc
}

func (d *Dispatcher) promptList() []prompt {
	return []prompt{
		{
			def: mcp.NewPrompt(prompts.AssessAttachmentStyleName,
				mcp.WithPromptDescription("Assess a persona's attachment style from observed behaviour."),
				mcp.WithArgument("persona_id", mcp.RequiredArgument(), mcp.ArgumentDescription("Persona id")),
				mcp.WithArgument("observation_period", mcp.ArgumentDescription("Period observed (default recent)")),
				mcp.WithArgument("behavioral_examples", mcp.ArgumentDescription("Examples of behaviour")),
			),
			handle: d.assessAttachmentStyle,
		},
		{
			def: mcp.NewPrompt(prompts.AnalyzeEmotionalClimateName,
				mcp.WithPromptDescription("Analyze the emotional climate of a conversation."),
				mcp.WithArgument("conversation_text", mcp.ArgumentDescription("Conversation to analyze")),
				mcp.WithArgument("interaction_id", mcp.ArgumentDescription("Interaction id")),
				mcp.WithArgument("participants", mcp.ArgumentDescription("Participants")),
			),
			handle: d.analyzeEmotionalClimate,
		},
		{
			def: mcp.NewPrompt(prompts.GenerateSecureResponseName,
				mcp.WithPromptDescription("Generate a response that models secure attachment."),
				mcp.WithArgument("scenario_description", mcp.RequiredArgument(), mcp.ArgumentDescription("Scenario")),
				mcp.WithArgument("personas", mcp.RequiredArgument(), mcp.ArgumentDescription("Personas involved")),
				mcp.WithArgument("insecurity_triggers", mcp.ArgumentDescription("Known insecurity triggers")),
				mcp.WithArgument("growth_goals", mcp.ArgumentDescription("Growth goals")),
			),
			handle: d.generateSecureResponse,
		},
	}
}

// required checks the named arguments are present and not blank.
func required(args map[string]string, names ...string) error {
	for _, n := range names {
		if strings.TrimSpace(args[n]) == "" {
			return fmt.Errorf("%s is required", n)
		}
	}
	return nil
}

func promptResult(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role:    mcp.RoleUser,
				Content: mcp.NewTextContent(text),
			},
		},
	}
}

func (d *Dispatcher) assessAttachmentStyle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	if err := required(args, "persona_id"); err != nil {
		return nil, err
	}
	text, err := d.prompts.AssessAttachmentStyle(prompts.AttachmentInput{
		PersonaID:          args["persona_id"],
		ObservationPeriod:  args["observation_period"],
		BehavioralExamples: args["behavioral_examples"],
	})
	if err != nil {
		return nil, err
	}
	return promptResult("Attachment style assessment", text), nil
}

func (d *Dispatcher) analyzeEmotionalClimate(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	text, err := d.prompts.AnalyzeEmotionalClimate(prompts.ClimateInput{
		ConversationText: args["conversation_text"],
		InteractionID:    args["interaction_id"],
		Participants:     args["participants"],
	})
	if err != nil {
		return nil, err
	}
	return promptResult("Emotional climate analysis", text), nil
}

func (d *Dispatcher) generateSecureResponse(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	if err := required(args, "scenario_description", "personas"); err != nil {
		return nil, err
	}
	text, err := d.prompts.GenerateSecureResponse(prompts.SecureResponseInput{
		ScenarioDescription: args["scenario_description"],
		Personas:            args["personas"],
		InsecurityTriggers:  args["insecurity_triggers"],
		GrowthGoals:         args["growth_goals"],
	})
	if err != nil {
		return nil, err
	}
	return promptResult("Secure attachment response", text), nil
}

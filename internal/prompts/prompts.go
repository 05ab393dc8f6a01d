// Package prompts renders the instruction strings handed to an external
// language model. Rendering is pure: no store access and no model calls.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/agenthands/lila/internal/config"
)

const (
	AssessAttachmentStyleName   = "assess_attachment_style"
	AnalyzeEmotionalClimateName = "analyze_emotional_climate"
	GenerateSecureResponseName  = "generate_secure_response"
)

type AttachmentInput struct {
	PersonaID          string
	ObservationPeriod  string
	BehavioralExamples string
}

type ClimateInput struct {
	ConversationText string
	InteractionID    string
	Participants     string
}

type SecureResponseInput struct {
	ScenarioDescription string
	Personas            string
	InsecurityTriggers  string
	GrowthGoals         string
}

type Renderer struct {
	attachment *template.Template
	climate    *template.Template
	secure     *template.Template
}

// New parses the configured templates, falling back to the built-in text
// for any left empty.
func New(cfg config.PromptsConfig) (*Renderer, error) {
	var r Renderer
	var err error
	if r.attachment, err = parse(AssessAttachmentStyleName, cfg.AssessAttachmentStyle, defaultAssessAttachmentStyle); err != nil {
		return nil, err
	}
	if r.climate, err = parse(AnalyzeEmotionalClimateName, cfg.AnalyzeEmotionalClimate, defaultAnalyzeEmotionalClimate); err != nil {
		return nil, err
	}
	if r.secure, err = parse(GenerateSecureResponseName, cfg.GenerateSecureResponse, defaultGenerateSecureResponse); err != nil {
		return nil, err
	}
	return &r, nil
}

// Default returns a renderer over the built-in templates.
func Default() *Renderer {
	r, err := New(config.PromptsConfig{})
	if err != nil {
		panic(err)
	}
	return r
}

func parse(name, override, fallback string) (*template.Template, error) {
	text := override
	if strings.TrimSpace(text) == "" {
		text = fallback
	}
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s prompt: %w", name, err)
	}
	return t, nil
}

func execute(t *template.Template, data any) (string, error) {
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return b.String(), nil
}

func (r *Renderer) AssessAttachmentStyle(in AttachmentInput) (string, error) {
	if in.ObservationPeriod == "" {
		in.ObservationPeriod = "recent"
	}
	return execute(r.attachment, in)
}

func (r *Renderer) AnalyzeEmotionalClimate(in ClimateInput) (string, error) {
	return execute(r.climate, in)
}

func (r *Renderer) GenerateSecureResponse(in SecureResponseInput) (string, error) {
	return execute(r.secure, in)
}

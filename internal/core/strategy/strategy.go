// Package strategy selects conversational strategies from an ordered rule
// table. Rules are evaluated top to bottom and the first match wins.
package strategy

import (
	"strings"

	"github.com/agenthands/lila/internal/core/model"
)

const (
	EmotionalBonding      = "emotional_bonding"
	VulnerableDisclosure  = "vulnerable_disclosure"
	SupportiveListening   = "supportive_listening"
	TrustBuilding         = "trust_building"
	ReassuranceSeeking    = "reassurance_seeking"
	EmotionalValidation   = "emotional_validation"
	SecureBonding         = "secure_bonding"
	SafetyCreation        = "safety_creation"
	AutonomousConnection  = "autonomous_connection"
	ThoughtfulPresence    = "thoughtful_presence"
	RespectfulDistance    = "respectful_distance"
	GradualOpening        = "gradual_opening"
	GrowthOrientedSupport = "growth_oriented_support"
	PlayfulEngagement     = "playful_engagement"
	CuriousExploration    = "curious_exploration"
	AuthenticExpression   = "authentic_expression"
)

var byStyle = map[model.AttachmentStyle][]string{
	model.Secure:      {EmotionalBonding, VulnerableDisclosure, SupportiveListening, TrustBuilding},
	model.Anxious:     {ReassuranceSeeking, EmotionalValidation, SecureBonding, SafetyCreation},
	model.Avoidant:    {AutonomousConnection, ThoughtfulPresence, RespectfulDistance, GradualOpening},
	model.Exploratory: {GrowthOrientedSupport, PlayfulEngagement, CuriousExploration, AuthenticExpression},
}

// Available returns the ordered strategies for style. Unknown styles get the
// secure list.
func Available(style model.AttachmentStyle) []string {
	list, ok := byStyle[style]
	if !ok {
		list = byStyle[model.Secure]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

type Input struct {
	Style   model.AttachmentStyle
	Context string
	Goals   string
}

type Rule struct {
	Name  string
	Match func(in Input) bool
	Pick  func(style model.AttachmentStyle) string
}

func contains(s string, words ...string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func fixed(name string) func(model.AttachmentStyle) string {
	return func(model.AttachmentStyle) string { return name }
}

// Rules is the decision table in evaluation order. The final rule always
// matches.
var Rules = []Rule{
	{
		Name:  "opening",
		Match: func(in Input) bool { return contains(in.Context, "first", "new") },
		Pick: func(style model.AttachmentStyle) string {
			switch style {
			case model.Anxious:
				return ReassuranceSeeking
			case model.Avoidant:
				return ThoughtfulPresence
			default:
				return EmotionalBonding
			}
		},
	},
	{
		Name:  "depth",
		Match: func(in Input) bool { return contains(in.Context, "deep", "intimate") },
		Pick: func(style model.AttachmentStyle) string {
			if style == model.Avoidant {
				return GradualOpening
			}
			return VulnerableDisclosure
		},
	},
	{
		Name:  "trust_goal",
		Match: func(in Input) bool { return contains(in.Goals, "trust") },
		Pick:  fixed(TrustBuilding),
	},
	{
		Name:  "vulnerability_goal",
		Match: func(in Input) bool { return contains(in.Goals, "vulnerability") },
		Pick:  fixed(VulnerableDisclosure),
	},
	{
		Name:  "default",
		Match: func(Input) bool { return true },
		Pick:  func(style model.AttachmentStyle) string { return Available(style)[0] },
	},
}

type Selection struct {
	Strategy  string
	Rule      string
	Available []string
}

// Select evaluates Rules against in.
func Select(in Input) Selection {
	for _, r := range Rules {
		if r.Match(in) {
			return Selection{Strategy: r.Pick(in.Style), Rule: r.Name, Available: Available(in.Style)}
		}
	}
	// unreachable: the default rule matches everything
	return Selection{Strategy: Available(in.Style)[0], Rule: "default", Available: Available(in.Style)}
}

package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/agenthands/lila/internal/core/metrics"
	"github.com/agenthands/lila/internal/core/model"
)

type familyDocument struct {
	FamilyGraph struct {
		Nodes []familyNode `json:"nodes"`
		Edges []familyEdge `json:"edges"`
	} `json:"family_graph"`
}

type familyNode struct {
	Name            string `json:"name"`
	Age             int    `json:"age"`
	Role            string `json:"role"`
	Description     string `json:"description"`
	AttachmentStyle string `json:"attachment_style"`
	BehavioralStyle string `json:"behavioral_style"`
}

type familyEdge struct {
	From        string   `json:"from"`
	To          string   `json:"to"`
	Type        string   `json:"type"`
	TrustLevel  *float64 `json:"trust_level"`
	Strength    *float64 `json:"strength"`
	UnionMetric *float64 `json:"union_metric"`
}

const edgeDefault = 7.0

func orDefault(v *float64) float64 {
	if v == nil {
		return edgeDefault
	}
	return *v
}

// ParseFamilyGraph reads a family-graph document. Persona ids are the
// lower-cased names; edge strength doubles as intimacy and union_metric,
// on a 0-10 scale, becomes the starting valence.
func ParseFamilyGraph(r io.Reader) (Data, error) {
	var doc familyDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Data{}, fmt.Errorf("failed to decode family graph: %w", err)
	}
	if len(doc.FamilyGraph.Nodes) == 0 {
		return Data{}, fmt.Errorf("family graph has no nodes")
	}

	var d Data
	for _, n := range doc.FamilyGraph.Nodes {
		if strings.TrimSpace(n.Name) == "" {
			return Data{}, fmt.Errorf("family graph node without a name")
		}
		style := model.ParseAttachmentStyle(n.AttachmentStyle)
		if style == "" {
			style = model.Secure
		}
		d.Personas = append(d.Personas, model.Persona{
			PersonaID:          strings.ToLower(n.Name),
			Name:               n.Name,
			Age:                n.Age,
			Role:               n.Role,
			Description:        n.Description,
			AttachmentStyle:    style,
			Personality:        TraitsFromDISC(n.BehavioralStyle),
			CommunicationStyle: communicationStyle(n.BehavioralStyle),
		})
	}

	for _, e := range doc.FamilyGraph.Edges {
		relType := "friendship"
		if strings.Contains(strings.ToLower(e.Type), "intimate") {
			relType = "intimate"
		}
		strength := orDefault(e.Strength)
		d.Relationships = append(d.Relationships, model.Relationship{
			Persona1ID:           strings.ToLower(e.From),
			Persona2ID:           strings.ToLower(e.To),
			TrustLevel:           orDefault(e.TrustLevel),
			IntimacyLevel:        strength,
			RelationshipStrength: strength,
			EmotionalValence:     metrics.Clamp(orDefault(e.UnionMetric)/10, model.MinValence, model.MaxValence),
			RelationshipType:     relType,
		})
	}
	return d, nil
}

// TraitsFromDISC maps a DISC behavioural style such as "SC" or "Di" onto
// Big Five traits.
func TraitsFromDISC(style string) model.Traits {
	t := model.Traits{
		Openness:          0.5,
		Conscientiousness: 0.5,
		Extraversion:      0.5,
		Agreeableness:     0.5,
		Neuroticism:       0.3,
	}
	style = strings.ToUpper(style)

	if strings.Contains(style, "D") {
		t.Extraversion += 0.2
		t.Agreeableness -= 0.1
		t.Openness += 0.1
	}
	if strings.Contains(style, "I") {
		t.Extraversion += 0.3
		t.Openness += 0.2
		t.Agreeableness += 0.1
	}
	if strings.Contains(style, "S") {
		t.Agreeableness += 0.3
		t.Conscientiousness += 0.2
		t.Neuroticism -= 0.1
	}
	if strings.Contains(style, "C") {
		t.Conscientiousness += 0.3
		t.Openness += 0.1
		t.Neuroticism += 0.1
	}
	return t.Clamp()
}

func communicationStyle(disc string) string {
	if strings.Contains(strings.ToUpper(disc), "S") {
		return "empathetic"
	}
	return "analytical"
}

package model

import "time"

// DefaultTrait is reported for a personality trait that was never written.
const DefaultTrait = 0.5

type Traits struct {
	Openness          float64 `json:"openness"`
	Conscientiousness float64 `json:"conscientiousness"`
	Extraversion      float64 `json:"extraversion"`
	Agreeableness     float64 `json:"agreeableness"`
	Neuroticism       float64 `json:"neuroticism"`
}

// DefaultTraits returns every trait at DefaultTrait.
func DefaultTraits() Traits {
	return Traits{
		Openness:          DefaultTrait,
		Conscientiousness: DefaultTrait,
		Extraversion:      DefaultTrait,
		Agreeableness:     DefaultTrait,
		Neuroticism:       DefaultTrait,
	}
}

// Clamp returns a copy with every trait limited to [0,1].
func (t Traits) Clamp() Traits {
	return Traits{
		Openness:          clamp(t.Openness, 0, 1),
		Conscientiousness: clamp(t.Conscientiousness, 0, 1),
		Extraversion:      clamp(t.Extraversion, 0, 1),
		Agreeableness:     clamp(t.Agreeableness, 0, 1),
		Neuroticism:       clamp(t.Neuroticism, 0, 1),
	}
}

type Persona struct {
	PersonaID          string          `json:"id"`
	Name               string          `json:"name"`
	Age                int             `json:"age"`
	Role               string          `json:"role"`
	Description        string          `json:"description,omitempty"`
	AttachmentStyle    AttachmentStyle `json:"attachment_style"`
	Personality        Traits          `json:"personality"`
	CommunicationStyle string          `json:"communication_style,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// PersonaSummary is the short form of a persona embedded in analysis results.
type PersonaSummary struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	AttachmentStyle AttachmentStyle `json:"attachment_style"`
}

func (p Persona) Summary() PersonaSummary {
	return PersonaSummary{ID: p.PersonaID, Name: p.Name, AttachmentStyle: p.AttachmentStyle}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

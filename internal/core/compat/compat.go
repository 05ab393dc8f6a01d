// Package compat classifies attachment-style pairings.
package compat

import "github.com/agenthands/lila/internal/core/model"

type Level string

const (
	High        Level = "High"
	Good        Level = "Good"
	Moderate    Level = "Moderate"
	Challenging Level = "Challenging"
	Difficult   Level = "Difficult"
	Low         Level = "Low"
)

// Assessment is the style-only part of a compatibility analysis. It depends
// on the unordered pair of styles, never on argument order.
type Assessment struct {
	Level           Level    `json:"compatibility_level"`
	Analysis        string   `json:"analysis"`
	Recommendations []string `json:"recommendations"`
	Recognized      bool     `json:"recognized_pairing"`
}

type entry struct {
	level     Level
	rationale string
}

type pair struct{ a, b model.AttachmentStyle }

func key(a, b model.AttachmentStyle) pair {
	if b < a {
		a, b = b, a
	}
	return pair{a, b}
}

var table = map[pair]entry{
	key(model.Secure, model.Secure):     {High, "Both partners provide stability and emotional availability"},
	key(model.Secure, model.Anxious):    {Good, "Secure partner can provide reassurance to anxious partner"},
	key(model.Secure, model.Avoidant):   {Moderate, "Secure partner may help avoidant partner open up gradually"},
	key(model.Anxious, model.Anxious):   {Challenging, "Both partners may escalate emotional intensity"},
	key(model.Anxious, model.Avoidant):  {Difficult, "Classic pursue-withdraw dynamic may develop"},
	key(model.Avoidant, model.Avoidant): {Low, "Both partners may avoid emotional intimacy"},
}

var fallback = entry{Moderate, "Attachment style combination not in the reference table; assuming moderate compatibility"}

var recommendations = []string{
	"Focus on understanding each other's attachment needs",
	"Practice clear, consistent communication",
	"Respect differences in emotional expression and intimacy pace",
}

// Assess looks up the pairing of a and b. Pairs outside the table, including
// any involving exploratory or unrecognised styles, fall back to Moderate.
func Assess(a, b model.AttachmentStyle) Assessment {
	e, ok := table[key(a, b)]
	if !ok {
		e = fallback
	}
	recs := make([]string, len(recommendations))
	copy(recs, recommendations)
	return Assessment{
		Level:           e.level,
		Analysis:        e.rationale,
		Recommendations: recs,
		Recognized:      ok,
	}
}

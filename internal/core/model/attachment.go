package model

import "strings"

type AttachmentStyle string

const (
	Secure      AttachmentStyle = "secure"
	Anxious     AttachmentStyle = "anxious"
	Avoidant    AttachmentStyle = "avoidant"
	Exploratory AttachmentStyle = "exploratory"
)

// AttachmentStyles lists the recognised styles in canonical order.
var AttachmentStyles = []AttachmentStyle{Secure, Anxious, Avoidant, Exploratory}

// ParseAttachmentStyle normalises free text such as "Secure attachment" or
// " ANXIOUS " to its style. Unrecognised input is returned lower-cased so
// callers can still apply their own fallback.
func ParseAttachmentStyle(s string) AttachmentStyle {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return ""
	}
	return AttachmentStyle(fields[0])
}

func (s AttachmentStyle) Known() bool {
	for _, k := range AttachmentStyles {
		if s == k {
			return true
		}
	}
	return false
}

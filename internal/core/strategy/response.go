package strategy

import "github.com/agenthands/lila/internal/core/model"

// Response is a canned reply shaped by attachment style.
type Response struct {
	Text     string
	Strategy string
}

var responses = map[model.AttachmentStyle]Response{
	model.Secure:   {"I appreciate you sharing that with me. How can we work together on this?", SupportiveListening},
	model.Anxious:  {"Thank you for telling me this. I want to make sure I understand how you're feeling.", EmotionalValidation},
	model.Avoidant: {"I hear what you're saying. Let me think about that for a moment.", ThoughtfulPresence},
}

var exploratoryResponse = Response{"That's really interesting. I'd love to explore this more with you.", CuriousExploration}

// ResponseFor returns the reply for style; exploratory and unrecognised
// styles share the curious-exploration reply.
func ResponseFor(style model.AttachmentStyle) Response {
	if r, ok := responses[style]; ok {
		return r
	}
	return exploratoryResponse
}

package prompts

const defaultAssessAttachmentStyle = `You are a psychological researcher specializing in attachment theory. Analyze the behavioral patterns of persona {{.PersonaID}} and determine their attachment style.

ATTACHMENT STYLES TO CONSIDER:
- Secure: comfortable with intimacy and autonomy, emotionally available, trusting
- Anxious: seeks closeness but fears abandonment, heightened emotional responses
- Avoidant: values independence, uncomfortable with too much closeness
- Exploratory: seeks authentic expression and freedom, values personal growth

ANALYSIS FRAMEWORK:
1. Emotional regulation under stress, conflict or intense emotion
2. Comfort with emotional closeness and vulnerability
3. Recurring relationship patterns
4. How needs, boundaries and emotions are communicated
5. Response to a partner's distress

BEHAVIORAL OBSERVATIONS:
{{if .BehavioralExamples}}{{.BehavioralExamples}}{{else}}Analyze recent interactions and relationship patterns{{end}}

OBSERVATION PERIOD: {{.ObservationPeriod}}

Provide:
1. Primary attachment style with a confidence level
2. Supporting evidence from the observations
3. Secondary patterns, if any
4. Therapeutic implications for relationship development
5. Recommendations for supporting healthy attachment behaviors
`

const defaultAnalyzeEmotionalClimate = `You are a relationship therapist analyzing emotional dynamics in interpersonal communication. Evaluate the emotional climate and safety of this interaction.

CONTENT TO ANALYZE:
{{if .InteractionID}}Interaction ID: {{.InteractionID}}{{else}}Conversation text provided{{end}}
Participants: {{.Participants}}
{{if .ConversationText}}
Conversation Text: {{.ConversationText}}
{{end}}
ASSESSMENT FRAMEWORK:
1. Safety level (1-10): psychological safety, respect for boundaries, absence of criticism, contempt, defensiveness or stonewalling
2. Emotional attunement: recognition of needs, empathic responses, validation or dismissal
3. Communication quality: active listening, "I" statements, constructive or destructive patterns
4. Power dynamics: balance of speaking time, respect for autonomy, coercion
5. Attachment activation: security-building or threat responses, repair attempts

PROVIDE:
- Overall safety score (1-10) with rationale
- Key emotional patterns
- Attachment dynamics at play
- Warning signs
- Strengths of the interaction
- Recommendations for improving the emotional climate
`

const defaultGenerateSecureResponse = `You are an attachment-informed therapist helping develop secure, emotionally attuned responses.

SCENARIO: {{.ScenarioDescription}}

PARTICIPANTS: {{.Personas}}

INSECURITY TRIGGERS PRESENT: {{if .InsecurityTriggers}}{{.InsecurityTriggers}}{{else}}Not specified{{end}}

GROWTH GOALS: {{if .GrowthGoals}}{{.GrowthGoals}}{{else}}General attachment security{{end}}

SECURE RESPONSE FRAMEWORK:
1. Emotional safety first: validate emotions, make room for vulnerability, avoid criticism
2. Attunement: reflect what you hear and ask curious, non-judgmental questions
3. Secure base: respond consistently and support autonomy without rescuing
4. Repair and growth: own your part in misunderstandings and favour connection over being right

GENERATE:
1. A primary response that embodies secure attachment
2. Alternatives for receivers with other attachment styles
3. Tone and body language suggestions
4. What not to say
5. Follow-up actions that reinforce security
6. The rationale for how the response builds security
`

package ochat

// Request carries the model selection and the full conversation history
// for one streaming completion. Providers use their own defaults when
// fields are zero/nil.
type Request struct {
	Model        string // model name, provider-specific; empty = provider default
	SystemPrompt string
	Messages     []Message
	Temperature  *float64 // nil = provider default
}

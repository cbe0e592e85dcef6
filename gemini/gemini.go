// Package gemini implements [ochat.Provider] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK, translating conversation
// history into genai contents. Streaming uses the SDK's iter.Seq2 iterator,
// wrapped into the pull-based [ochat.Stream] interface; only visible text
// parts become fragments.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 65536
	providerName     = "gemini"
	modelPrefix      = "models/"
)

// Package ollama implements [ochat.Provider] for a local Ollama server.
//
// Chat completions are read from the newline-delimited JSON stream of
// POST /api/chat, one frame per call to [ochat.Stream.Next]. Model discovery
// uses GET /api/tags.
package ollama

import "strings"

const (
	// DefaultHost is where a stock Ollama install listens.
	DefaultHost  = "http://localhost:11434"
	defaultModel = "llama3.2"
	chatPath     = "/api/chat"
	tagsPath     = "/api/tags"
	providerName = "ollama"

	// maxFrameSize bounds a single NDJSON line.
	maxFrameSize = 1 << 20
)

// ParseHost normalizes an OLLAMA_HOST style value into a base URL. A bare
// host or host:port gets the http scheme; an empty value yields DefaultHost.
func ParseHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return DefaultHost
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return strings.TrimRight(host, "/")
}

// apiRequest is the JSON body sent to /api/chat.
type apiRequest struct {
	Model    string       `json:"model"`
	Messages []apiMessage `json:"messages"`
	Stream   bool         `json:"stream"`
	Options  *apiOptions  `json:"options,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// chatFrame is one line of the /api/chat response stream.
type chatFrame struct {
	Model      string     `json:"model"`
	Message    apiMessage `json:"message"`
	Done       bool       `json:"done"`
	DoneReason string     `json:"done_reason,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// tagsResponse is the body of GET /api/tags.
type tagsResponse struct {
	Models []tagsModel `json:"models"`
}

type tagsModel struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// apiErrorResponse is the JSON body returned on non-200 HTTP responses.
type apiErrorResponse struct {
	Error string `json:"error"`
}

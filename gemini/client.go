package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/fwojciec/ochat"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ ochat.Provider = (*Client)(nil)

// Client implements [ochat.Provider] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a [Client].
type Option func(*config)

type config struct {
	model string
	genai genai.ClientConfig
}

// WithModel sets the default model ID.
func WithModel(model string) Option {
	return func(c *config) { c.model = model }
}

// WithBaseURL points the SDK at a different endpoint. Useful for testing
// with httptest.
func WithBaseURL(url string) Option {
	return func(c *config) { c.genai.HTTPOptions.BaseURL = url }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	cfg := config{
		model: defaultModel,
		genai: genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		},
	}
	for _, o := range opts {
		o(&cfg)
	}
	gc, err := genai.NewClient(ctx, &cfg.genai)
	if err != nil {
		return nil, backendError(err)
	}
	return &Client{client: gc, model: cfg.model}, nil
}

// Stream sends a streaming request to the Gemini API and returns a
// [ochat.Stream] of text fragments.
func (c *Client) Stream(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	contents := ConvertMessages(req.Messages)
	iter := c.client.Models.GenerateContentStream(ctx, model, contents, buildConfig(req))
	return NewStreamFromIter(ctx, iter), nil
}

func buildConfig(req ochat.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: defaultMaxTokens,
	}

	if req.SystemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	return config
}

// ConvertMessages converts conversation history to genai Contents. Empty
// assistant replies are dropped because the API rejects contents without
// parts.
// Exported for testing.
func ConvertMessages(msgs []ochat.Message) []*genai.Content {
	result := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case ochat.RoleUser:
			result = append(result, genai.NewContentFromText(m.Content, genai.RoleUser))
		case ochat.RoleAssistant:
			if m.Content == "" {
				continue
			}
			result = append(result, genai.NewContentFromText(m.Content, genai.RoleModel))
		}
	}
	return result
}

// Models lists the models available to the API key, without the
// "models/" resource prefix.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var names []string
	for m, err := range c.client.Models.All(ctx) {
		if err != nil {
			return nil, backendError(err)
		}
		names = append(names, strings.TrimPrefix(m.Name, modelPrefix))
	}
	return names, nil
}

func backendError(err error) error {
	return &ochat.BackendError{Provider: providerName, Err: err}
}

func errorf(format string, args ...any) error {
	return backendError(fmt.Errorf(format, args...))
}

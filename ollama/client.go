package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/ochat"
)

// Interface compliance check.
var _ ochat.Provider = (*Client)(nil)

// Client implements [ochat.Provider] for the Ollama chat API.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the server base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = ParseHost(url) }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithModel sets the model used when a request does not name one.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// New creates a new Ollama [Client].
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultHost,
		model:      defaultModel,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming chat request and returns a [ochat.Stream] of
// reply fragments. An unreachable server or a rejected request (unknown
// model, bad input) is reported as a *ochat.BackendError.
func (c *Client) Stream(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, backendError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(body))
	if err != nil {
		return nil, backendError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, backendError(err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseHTTPError(resp)
	}

	return newStream(ctx, resp.Body), nil
}

func (c *Client) buildRequest(req ochat.Request) apiRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}
	apiReq := apiRequest{
		Model:    model,
		Messages: convertMessages(req.SystemPrompt, req.Messages),
		Stream:   true,
	}
	if req.Temperature != nil {
		apiReq.Options = &apiOptions{Temperature: req.Temperature}
	}
	return apiReq
}

// convertMessages maps history to API messages, with the system prompt as
// a leading system message when set.
func convertMessages(system string, msgs []ochat.Message) []apiMessage {
	result := make([]apiMessage, 0, len(msgs)+1)
	if system != "" {
		result = append(result, apiMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		result = append(result, apiMessage{Role: string(m.Role), Content: m.Content})
	}
	return result
}

// Models lists the names of the models installed on the server.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tagsPath, nil)
	if err != nil {
		return nil, backendError(err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, backendError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, backendError(fmt.Errorf("decode tags: %w", err))
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		name := m.Name
		if name == "" {
			name = m.Model
		}
		names = append(names, name)
	}
	return names, nil
}

func backendError(err error) error {
	return &ochat.BackendError{Provider: providerName, Err: err}
}

func parseHTTPError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return backendError(fmt.Errorf("HTTP %d (failed to read body: %w)", resp.StatusCode, err))
	}
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err != nil || apiErr.Error == "" {
		return backendError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}
	return backendError(errors.New(apiErr.Error))
}

package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/fwojciec/ochat"
)

// Interface compliance check.
var _ ochat.Provider = (*Client)(nil)

// Client implements [ochat.Provider] for the Anthropic Messages API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new Anthropic [Client] with the given API key and options.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Stream sends a streaming request to the Anthropic Messages API and returns
// a [ochat.Stream] of text fragments.
func (c *Client) Stream(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(buildRequest(req))
	if err != nil {
		return nil, backendError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, backendError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuth(httpReq)

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

func (c *Client) setAuth(r *http.Request) {
	r.Header.Set("X-Api-Key", c.apiKey)
	r.Header.Set("Anthropic-Version", apiVersion)
}

func buildRequest(req ochat.Request) apiRequest {
	model := req.Model
	if model == "" {
		model = defaultModel
	}
	msgs := make([]apiMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		// The API rejects empty assistant turns.
		if m.Role == ochat.RoleAssistant && m.Content == "" {
			continue
		}
		msgs = append(msgs, apiMessage{Role: string(m.Role), Content: m.Content})
	}
	return apiRequest{
		Model:       model,
		MaxTokens:   defaultMaxTokens,
		Stream:      true,
		System:      req.SystemPrompt,
		Messages:    msgs,
		Temperature: req.Temperature,
	}
}

// Models lists the model ids available to the API key, following
// pagination until the last page.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	var ids []string
	afterID := ""
	for {
		u := c.baseURL + modelsPath + "?limit=100"
		if afterID != "" {
			u += "&after_id=" + url.QueryEscape(afterID)
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, backendError(err)
		}
		c.setAuth(httpReq)

		page, err := c.modelsPage(httpReq)
		if err != nil {
			return nil, err
		}
		for _, m := range page.Data {
			ids = append(ids, m.ID)
		}
		if !page.HasMore || page.LastID == "" {
			return ids, nil
		}
		afterID = page.LastID
	}
}

func (c *Client) modelsPage(r *http.Request) (modelsResponse, error) {
	resp, err := c.httpClient.Do(r)
	if err != nil {
		return modelsResponse{}, backendError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return modelsResponse{}, parseHTTPError(resp)
	}
	var page modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return modelsResponse{}, backendError(fmt.Errorf("decode models: %w", err))
	}
	return page, nil
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
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return backendError(fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
	}
	return backendError(fmt.Errorf("%s: %s", apiErr.Error.Type, apiErr.Error.Message))
}

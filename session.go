package ochat

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
)

// SessionState is the position of a Session in its lifecycle.
type SessionState int

const (
	// SessionIdle means no conversation is selected.
	SessionIdle SessionState = iota
	// SessionActive means a conversation is selected and ready for input.
	SessionActive
	// SessionStreaming means an assistant reply is being streamed.
	SessionStreaming
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionActive:
		return "active"
	case SessionStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Session holds the active conversation and its materialized turns, and
// mediates between a Store, a Provider and the presentation layer.
//
// A Session processes one operation at a time and is not safe for
// concurrent use. The in-memory turns mirror what was persisted; they can
// only diverge when a store write fails.
type Session struct {
	store    Store
	provider Provider
	logger   *slog.Logger

	model        string
	systemPrompt string
	temperature  *float64

	state   SessionState
	active  ConversationID
	turns   []Turn
	partial string
}

// Option configures a [Session].
type Option func(*Session)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithModel sets the model name sent with every request.
// Empty string means the provider uses its default model.
func WithModel(model string) Option {
	return func(s *Session) { s.model = model }
}

// WithSystemPrompt sets a system prompt sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(s *Session) { s.systemPrompt = prompt }
}

// WithTemperature sets the sampling temperature sent with every request.
// Without it the provider's default applies.
func WithTemperature(t float64) Option {
	return func(s *Session) { s.temperature = &t }
}

// NewSession creates an idle Session over the given store and provider.
func NewSession(store Store, provider Provider, opts ...Option) *Session {
	s := &Session{
		store:    store,
		provider: provider,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState { return s.state }

// Active returns the active conversation id and whether there is one.
func (s *Session) Active() (ConversationID, bool) {
	return s.active, s.state != SessionIdle
}

// Turns returns a copy of the active conversation's turns.
func (s *Session) Turns() []Turn { return slices.Clone(s.turns) }

// Partial returns the assistant text received before the last stream
// failure. It is cleared by the next submit or conversation change.
func (s *Session) Partial() string { return s.partial }

// Model returns the model name sent with requests.
func (s *Session) Model() string { return s.model }

// SetModel changes the model used for subsequent requests.
func (s *Session) SetModel(model string) { s.model = model }

// Models lists the model names the provider can serve.
func (s *Session) Models(ctx context.Context) ([]string, error) {
	return s.provider.Models(ctx)
}

// StartNew allocates a new conversation and makes it active with an empty
// turn list.
func (s *Session) StartNew(ctx context.Context) (ConversationID, error) {
	id, err := s.store.CreateConversation(ctx)
	if err != nil {
		return 0, err
	}
	s.activate(id, nil)
	s.logger.Info("conversation started", "conversation", id)
	return id, nil
}

// Switch makes an existing conversation active, replacing the in-memory
// state of the previous one.
func (s *Session) Switch(ctx context.Context, id ConversationID) error {
	ids, err := s.store.ListConversations(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(ids, id) {
		return fmt.Errorf("conversation %d: %w", id, ErrConversationNotFound)
	}
	turns, err := s.store.LoadTurns(ctx, id)
	if err != nil {
		return err
	}
	s.activate(id, turns)
	s.logger.Info("conversation switched", "conversation", id, "turns", len(turns))
	return nil
}

func (s *Session) activate(id ConversationID, turns []Turn) {
	s.active = id
	s.turns = turns
	s.partial = ""
	s.state = SessionActive
}

func (s *Session) reset() {
	s.active = 0
	s.turns = nil
	s.partial = ""
	s.state = SessionIdle
}

// SubmitOption configures a single Submit invocation.
type SubmitOption func(*submitConfig)

type submitConfig struct {
	onDisplay func(string)
}

// WithDisplay sets a callback that receives the complete accumulated reply
// after every fragment, not just the delta. If nil or not set, fragments
// are only accumulated.
func WithDisplay(fn func(buffer string)) SubmitOption {
	return func(c *submitConfig) { c.onDisplay = fn }
}

// Submit sends a user message in the active conversation and streams the
// assistant reply.
//
// The user turn is persisted before the stream starts. The reply is
// persisted and appended only after the stream is exhausted. When the
// backend fails mid-stream the partial reply is kept in Partial but is
// neither persisted nor appended, and the session stays active so the user
// can resubmit.
//
// Calling Submit on an idle session returns ErrNoConversation.
func (s *Session) Submit(ctx context.Context, text string, opts ...SubmitOption) (Turn, error) {
	if s.state == SessionIdle {
		return Turn{}, ErrNoConversation
	}
	if strings.TrimSpace(text) == "" {
		return Turn{}, fmt.Errorf("empty message: %w", ErrValidation)
	}
	var cfg submitConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	user, err := s.store.AppendTurn(ctx, s.active, RoleUser, text)
	if err != nil {
		return Turn{}, err
	}
	s.turns = append(s.turns, user)
	s.partial = ""

	s.state = SessionStreaming
	defer func() { s.state = SessionActive }()

	req := Request{
		Model:        s.model,
		SystemPrompt: s.systemPrompt,
		Messages:     Messages(s.turns),
		Temperature:  s.temperature,
	}
	reply, err := s.drain(ctx, req, cfg.onDisplay)
	if err != nil {
		s.partial = reply
		s.logger.Warn("stream failed", "conversation", s.active, "model", s.model,
			"partial_len", len(reply), "error", err)
		return Turn{}, err
	}

	assistant, err := s.store.AppendTurn(ctx, s.active, RoleAssistant, reply)
	if err != nil {
		s.partial = reply
		return Turn{}, err
	}
	s.turns = append(s.turns, assistant)
	s.logger.Debug("reply stored", "conversation", s.active, "turn", assistant.ID, "len", len(reply))
	return assistant, nil
}

// drain pulls fragments until the stream is exhausted, returning the
// accumulated text. On failure the text received so far is returned along
// with the error.
func (s *Session) drain(ctx context.Context, req Request, onDisplay func(string)) (string, error) {
	stream, err := s.provider.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		fragment, err := stream.Next()
		if errors.Is(err, io.EOF) {
			return buf.String(), nil
		}
		if err != nil {
			return buf.String(), err
		}
		buf.WriteString(fragment)
		if onDisplay != nil {
			onDisplay(buf.String())
		}
	}
}

// Delete removes the given conversations. If the active conversation is
// among them the session becomes idle and the caller must start or switch
// to a conversation before submitting again.
func (s *Session) Delete(ctx context.Context, ids ...ConversationID) error {
	for _, id := range ids {
		if err := s.store.DeleteConversation(ctx, id); err != nil {
			return err
		}
		s.logger.Info("conversation deleted", "conversation", id)
		if s.state != SessionIdle && id == s.active {
			s.reset()
		}
	}
	return nil
}

// Conversations lists all conversations with their previews, newest first.
func (s *Session) Conversations(ctx context.Context) ([]ConversationSummary, error) {
	ids, err := s.store.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(ids, func(a, b ConversationID) int { return cmp.Compare(b, a) })
	summaries := make([]ConversationSummary, 0, len(ids))
	for _, id := range ids {
		preview, err := s.store.Preview(ctx, id)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ConversationSummary{ID: id, Preview: preview})
	}
	return summaries, nil
}

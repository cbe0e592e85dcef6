package mock

import (
	"context"

	"github.com/fwojciec/ochat"
)

// Interface compliance check.
var _ ochat.Store = (*Store)(nil)

// Store is a test double for ochat.Store.
// Set the function fields for the methods the test exercises; unset fields
// panic.
type Store struct {
	CreateConversationFn func(ctx context.Context) (ochat.ConversationID, error)
	EnsureConversationFn func(ctx context.Context, id ochat.ConversationID) error
	AppendTurnFn         func(ctx context.Context, id ochat.ConversationID, role ochat.Role, content string) (ochat.Turn, error)
	LoadTurnsFn          func(ctx context.Context, id ochat.ConversationID) ([]ochat.Turn, error)
	ListConversationsFn  func(ctx context.Context) ([]ochat.ConversationID, error)
	DeleteConversationFn func(ctx context.Context, id ochat.ConversationID) error
	PreviewFn            func(ctx context.Context, id ochat.ConversationID) (string, error)
}

// CreateConversation delegates to CreateConversationFn.
func (s *Store) CreateConversation(ctx context.Context) (ochat.ConversationID, error) {
	return s.CreateConversationFn(ctx)
}

// EnsureConversation delegates to EnsureConversationFn.
func (s *Store) EnsureConversation(ctx context.Context, id ochat.ConversationID) error {
	return s.EnsureConversationFn(ctx, id)
}

// AppendTurn delegates to AppendTurnFn.
func (s *Store) AppendTurn(ctx context.Context, id ochat.ConversationID, role ochat.Role, content string) (ochat.Turn, error) {
	return s.AppendTurnFn(ctx, id, role, content)
}

// LoadTurns delegates to LoadTurnsFn.
func (s *Store) LoadTurns(ctx context.Context, id ochat.ConversationID) ([]ochat.Turn, error) {
	return s.LoadTurnsFn(ctx, id)
}

// ListConversations delegates to ListConversationsFn.
func (s *Store) ListConversations(ctx context.Context) ([]ochat.ConversationID, error) {
	return s.ListConversationsFn(ctx)
}

// DeleteConversation delegates to DeleteConversationFn.
func (s *Store) DeleteConversation(ctx context.Context, id ochat.ConversationID) error {
	return s.DeleteConversationFn(ctx, id)
}

// Preview delegates to PreviewFn.
func (s *Store) Preview(ctx context.Context, id ochat.ConversationID) (string, error) {
	return s.PreviewFn(ctx, id)
}

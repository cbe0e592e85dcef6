package ochat

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ConversationID identifies a conversation. Ids are allocated by the Store
// and are never reused after deletion.
type ConversationID int64

func (id ConversationID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseConversationID parses a user-supplied conversation id. It accepts a
// bare decimal id as well as the "Chat <id>" label and the legacy
// "chat_<id>" table name.
func ParseConversationID(s string) (ConversationID, error) {
	s = strings.TrimSpace(s)
	if label, _, ok := strings.Cut(s, ":"); ok {
		s = strings.TrimSpace(label)
	}
	s = strings.TrimPrefix(s, "Chat ")
	s = strings.TrimPrefix(s, "chat_")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidConversationID)
	}
	return ConversationID(n), nil
}

// Preview settings.
const (
	PreviewWords      = 6
	PreviewEllipsis   = "..."
	NoResponsePreview = "No AI response"
)

// Preview shortens an assistant reply to its first PreviewWords
// whitespace-delimited tokens, appending PreviewEllipsis only when
// something was cut.
func Preview(content string) string {
	words := strings.Fields(content)
	if len(words) <= PreviewWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:PreviewWords], " ") + PreviewEllipsis
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	ID      ConversationID
	Preview string
}

// Label renders the summary the way the conversation picker shows it.
func (s ConversationSummary) Label() string {
	return fmt.Sprintf("Chat %d: %s", s.ID, s.Preview)
}

// Store persists conversations and their turns.
//
// Every I/O failure is returned as a *StorageError. LoadTurns on an unknown
// conversation returns an empty slice, and DeleteConversation on an unknown
// conversation is a no-op.
type Store interface {
	// CreateConversation allocates a new, empty conversation.
	CreateConversation(ctx context.Context) (ConversationID, error)
	// EnsureConversation creates the conversation with the given id if it
	// does not exist yet.
	EnsureConversation(ctx context.Context, id ConversationID) error
	// AppendTurn durably appends a turn. The turn's CreatedAt is greater
	// than that of every earlier turn of the conversation.
	AppendTurn(ctx context.Context, id ConversationID, role Role, content string) (Turn, error)
	// LoadTurns returns all turns of a conversation in insertion order.
	LoadTurns(ctx context.Context, id ConversationID) ([]Turn, error)
	// ListConversations returns the ids of all existing conversations.
	ListConversations(ctx context.Context) ([]ConversationID, error)
	// DeleteConversation removes a conversation and all of its turns.
	DeleteConversation(ctx context.Context, id ConversationID) error
	// Preview summarizes the first assistant turn, or returns
	// NoResponsePreview when there is none.
	Preview(ctx context.Context, id ConversationID) (string, error)
}

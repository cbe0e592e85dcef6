package ochat

import "time"

// Turn is one persisted message of a conversation. Turns are immutable once
// written and are ordered by CreatedAt, which is strictly increasing within
// a conversation.
type Turn struct {
	ID             int64
	ConversationID ConversationID
	Role           Role
	Content        string
	CreatedAt      time.Time
}

// Message returns the request-side view of the turn.
func (t Turn) Message() Message {
	return Message{Role: t.Role, Content: t.Content}
}

// Message is a role-tagged piece of conversation history sent to a Provider.
type Message struct {
	Role    Role
	Content string
}

// Messages converts turns to request messages, preserving order.
func Messages(turns []Turn) []Message {
	msgs := make([]Message, len(turns))
	for i, t := range turns {
		msgs[i] = t.Message()
	}
	return msgs
}

// Transcript is a self-contained copy of one conversation, used for export
// and import.
type Transcript struct {
	ID           ConversationID
	SystemPrompt string
	ExportedAt   time.Time
	Turns        []Turn
}

package ochat_test

import (
	"testing"

	"github.com/fwojciec/ochat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"truncates to six words", "Hello there, how can I help you today?", "Hello there, how can I help..."},
		{"exactly six words", "one two three four five six", "one two three four five six"},
		{"short reply", "Hi!", "Hi!"},
		{"collapses whitespace", "  a\tb\n\nc  ", "a b c"},
		{"empty reply", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ochat.Preview(tt.content))
		})
	}
}

func TestParseConversationID(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want ochat.ConversationID
	}{
		{"7", 7},
		{" 12 ", 12},
		{"Chat 3", 3},
		{"Chat 3: Hello there, how can I help...", 3},
		{"chat_42", 42},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ochat.ParseConversationID(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "0", "-1", "abc", "Chat x"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			t.Parallel()
			_, err := ochat.ParseConversationID(bad)
			assert.ErrorIs(t, err, ochat.ErrInvalidConversationID)
		})
	}
}

func TestConversationSummary_Label(t *testing.T) {
	t.Parallel()
	s := ochat.ConversationSummary{ID: 5, Preview: ochat.NoResponsePreview}
	assert.Equal(t, "Chat 5: No AI response", s.Label())
}

func TestParseRole(t *testing.T) {
	t.Parallel()
	r, err := ochat.ParseRole("assistant")
	require.NoError(t, err)
	assert.Equal(t, ochat.RoleAssistant, r)

	_, err = ochat.ParseRole("system")
	assert.ErrorIs(t, err, ochat.ErrValidation)
}

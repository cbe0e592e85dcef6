package ochat_test

import (
	"testing"

	"github.com/fwojciec/ochat"
	"github.com/stretchr/testify/assert"
)

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	user := ochat.Message{Role: ochat.RoleUser, Content: "hi"}
	assistant := ochat.Message{Role: ochat.RoleAssistant, Content: "hello"}
	ptr := func(f float64) *float64 { return &f }

	tests := []struct {
		name    string
		req     ochat.Request
		wantErr bool
	}{
		{"single user message", ochat.Request{Messages: []ochat.Message{user}}, false},
		{"alternating history", ochat.Request{Messages: []ochat.Message{user, assistant, user}}, false},
		{"temperature in range", ochat.Request{Messages: []ochat.Message{user}, Temperature: ptr(0.7)}, false},
		{"temperature too high", ochat.Request{Messages: []ochat.Message{user}, Temperature: ptr(2.5)}, true},
		{"negative temperature", ochat.Request{Messages: []ochat.Message{user}, Temperature: ptr(-0.1)}, true},
		{"no messages", ochat.Request{}, true},
		{"ends with assistant", ochat.Request{Messages: []ochat.Message{user, assistant}}, true},
		{"unknown role", ochat.Request{Messages: []ochat.Message{{Role: "system", Content: "x"}, user}}, true},
		{"empty user message", ochat.Request{Messages: []ochat.Message{{Role: ochat.RoleUser}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.req.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ochat.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateMessage_EmptyAssistantAllowed(t *testing.T) {
	t.Parallel()
	assert.NoError(t, ochat.ValidateMessage(ochat.Message{Role: ochat.RoleAssistant}))
}

package ochat

import "fmt"

// Validate checks universal constraints on Request.
// Provider implementations may apply additional provider-specific validation.
func (r Request) Validate() error {
	if r.Temperature != nil {
		if *r.Temperature < 0 || *r.Temperature > 2 {
			return fmt.Errorf("temperature must be in [0, 2], got %g: %w", *r.Temperature, ErrValidation)
		}
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("request has no messages: %w", ErrValidation)
	}
	for i, msg := range r.Messages {
		if err := ValidateMessage(msg); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}
	if last := r.Messages[len(r.Messages)-1]; last.Role != RoleUser {
		return fmt.Errorf("last message must be from %s, got %s: %w", RoleUser, last.Role, ErrValidation)
	}
	return nil
}

// ValidateMessage checks that a message has a known role and, for user
// messages, non-empty content. Assistant replies may be empty.
func ValidateMessage(msg Message) error {
	if !msg.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", msg.Role, ErrValidation)
	}
	if msg.Role == RoleUser && msg.Content == "" {
		return fmt.Errorf("empty %s message: %w", msg.Role, ErrValidation)
	}
	return nil
}

package mock

import (
	"io"

	"github.com/fwojciec/ochat"
)

// Interface compliance check.
var _ ochat.Stream = (*Stream)(nil)

// Stream is a test double for ochat.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. CloseFn and StateFn are nil-safe (no-op and zero
// value) because test code commonly calls defer stream.Close() and these
// methods rarely need custom behavior.
type Stream struct {
	NextFn  func() (string, error)
	StateFn func() ochat.StreamState
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (string, error) {
	return s.NextFn()
}

// State delegates to StateFn. Returns StreamStateNew when StateFn is nil.
func (s *Stream) State() ochat.StreamState {
	if s.StateFn == nil {
		return ochat.StreamStateNew
	}
	return s.StateFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Fragments returns a Stream that yields the given fragments in order and
// then io.EOF. If err is non-nil it is returned instead of io.EOF.
func Fragments(err error, fragments ...string) *Stream {
	i := 0
	state := ochat.StreamStateNew
	return &Stream{
		NextFn: func() (string, error) {
			if i < len(fragments) {
				state = ochat.StreamStateStreaming
				i++
				return fragments[i-1], nil
			}
			if err != nil {
				state = ochat.StreamStateError
				return "", err
			}
			state = ochat.StreamStateComplete
			return "", io.EOF
		},
		StateFn: func() ochat.StreamState { return state },
	}
}

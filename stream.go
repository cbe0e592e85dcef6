package ochat

import "context"

// StreamState indicates the current state of a Stream.
type StreamState int

const (
	StreamStateNew       StreamState = iota // Before Next() is ever called.
	StreamStateStreaming                    // Mid-stream, receiving fragments.
	StreamStateComplete                     // Next() returned io.EOF.
	StreamStateError                        // Next() returned non-EOF error.
	StreamStateClosed                       // Close() called before terminal state.
)

func (s StreamState) String() string {
	switch s {
	case StreamStateNew:
		return "new"
	case StreamStateStreaming:
		return "streaming"
	case StreamStateComplete:
		return "complete"
	case StreamStateError:
		return "error"
	case StreamStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is a finite, pull-based sequence of assistant text fragments.
// Each call to Next blocks until the backend has produced the next fragment,
// so the consumer controls pacing. Next returns io.EOF once the backend
// signals completion; any other error is a *BackendError and is sticky.
// Fragments returned before a failure are never retracted. A Stream cannot
// be restarted: a new logical request needs a new call to Provider.Stream.
// Cancellation flows through the context passed to Provider.Stream.
type Stream interface {
	Next() (string, error)
	State() StreamState
	Close() error
}

// Provider is a strategy pattern interface for inference backends.
type Provider interface {
	// Stream starts a streaming chat completion for the request.
	Stream(ctx context.Context, req Request) (Stream, error)
	// Models lists the model names the backend can serve.
	Models(ctx context.Context) ([]string, error)
}

package anthropic

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/ochat"
)

// stream implements [ochat.Stream] by parsing SSE events from an HTTP response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	ctx     context.Context
	state   ochat.StreamState
	err     error // terminal error, if any
}

// Interface compliance check.
var _ ochat.Stream = (*stream)(nil)

func newStream(ctx context.Context, body io.ReadCloser) *stream {
	return &stream{
		body:    body,
		scanner: bufio.NewScanner(body),
		ctx:     ctx,
		state:   ochat.StreamStateNew,
	}
}

// Next reads SSE events until the next text delta.
// Returns io.EOF when the stream completes normally.
func (s *stream) Next() (string, error) {
	switch s.state {
	case ochat.StreamStateComplete:
		return "", io.EOF
	case ochat.StreamStateError:
		return "", s.err
	case ochat.StreamStateClosed:
		return "", backendError(ochat.ErrStreamClosed)
	}

	for {
		eventType, data, err := s.readSSEEvent()
		if err != nil {
			s.terminate(err)
			return "", s.err
		}

		s.state = ochat.StreamStateStreaming

		text, err := s.processEvent(eventType, data)
		if err != nil {
			s.terminate(err)
			return "", s.err
		}

		// processEvent may set a terminal state (message_stop).
		if s.state == ochat.StreamStateComplete {
			return "", io.EOF
		}

		if text != "" {
			return text, nil
		}
		// Non-text event (ping, message_start, thinking, etc.) - keep reading.
	}
}

// State returns the current stream state.
func (s *stream) State() ochat.StreamState {
	return s.state
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	if s.state != ochat.StreamStateComplete && s.state != ochat.StreamStateError {
		s.state = ochat.StreamStateClosed
	}
	return s.body.Close()
}

// terminate records a terminal error.
func (s *stream) terminate(err error) {
	s.state = ochat.StreamStateError
	switch {
	case s.ctx.Err() != nil:
		s.err = backendError(s.ctx.Err())
	case errors.Is(err, io.EOF):
		// Normal completion via message_stop sets StreamStateComplete before
		// we get here. Raw EOF means the stream ended unexpectedly.
		s.err = backendError(fmt.Errorf("unexpected end of stream"))
	default:
		s.err = backendError(err)
	}
}

// readSSEEvent reads lines until a complete SSE event is assembled.
// Returns the event type and the data payload.
func (s *stream) readSSEEvent() (string, string, error) {
	var eventType string
	var dataBuf strings.Builder

	for s.scanner.Scan() {
		line := s.scanner.Text()

		if line == "" {
			// Empty line signals end of event.
			if dataBuf.Len() > 0 {
				return eventType, dataBuf.String(), nil
			}
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventType = strings.TrimPrefix(line, "event: ")
		} else if strings.HasPrefix(line, "data: ") {
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(line, "data: "))
		}
		// Ignore comments (lines starting with ':') and unknown fields.
	}

	if err := s.scanner.Err(); err != nil {
		return "", "", err
	}

	// Scanner exhausted without error = EOF.
	if dataBuf.Len() > 0 {
		return eventType, dataBuf.String(), nil
	}
	return "", "", io.EOF
}

// processEvent returns the text carried by an SSE event, if any.
func (s *stream) processEvent(eventType, data string) (string, error) {
	switch eventType {
	case "content_block_delta":
		var evt sseContentBlockDelta
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return "", fmt.Errorf("failed to parse content_block_delta: %w", err)
		}
		if evt.Delta.Type == "text_delta" {
			return evt.Delta.Text, nil
		}
		return "", nil
	case "message_stop":
		s.state = ochat.StreamStateComplete
		return "", nil
	case "error":
		var evt sseError
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return "", fmt.Errorf("failed to parse error event: %w", err)
		}
		return "", fmt.Errorf("%s: %s", evt.Error.Type, evt.Error.Message)
	default:
		// message_start, content_block_start/stop, message_delta, ping and
		// unknown event types carry no text.
		return "", nil
	}
}

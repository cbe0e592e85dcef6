package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fwojciec/ochat"
)

// stream implements [ochat.Stream] over an NDJSON /api/chat response body.
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
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &stream{
		body:    body,
		scanner: scanner,
		ctx:     ctx,
		state:   ochat.StreamStateNew,
	}
}

// Next returns the next non-empty content fragment. It returns io.EOF once
// the server sends its done frame.
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
		frame, err := s.readFrame()
		if err != nil {
			s.terminate(err)
			return "", s.err
		}

		s.state = ochat.StreamStateStreaming

		if frame.Error != "" {
			s.terminate(errors.New(frame.Error))
			return "", s.err
		}
		if frame.Done {
			s.state = ochat.StreamStateComplete
			// The done frame may still carry trailing content.
			if frame.Message.Content != "" {
				return frame.Message.Content, nil
			}
			return "", io.EOF
		}
		if frame.Message.Content != "" {
			return frame.Message.Content, nil
		}
		// Empty keep-alive frame, keep reading.
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
		// A normal stream ends with a done frame before the body runs out.
		s.err = backendError(io.ErrUnexpectedEOF)
	default:
		s.err = backendError(err)
	}
}

// readFrame reads and decodes the next non-blank line.
func (s *stream) readFrame() (chatFrame, error) {
	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frame chatFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			return chatFrame{}, fmt.Errorf("failed to parse frame: %w", err)
		}
		return frame, nil
	}
	if err := s.scanner.Err(); err != nil {
		return chatFrame{}, err
	}
	return chatFrame{}, io.EOF
}

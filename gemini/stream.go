package gemini

import (
	"context"
	"io"
	"iter"

	"github.com/fwojciec/ochat"
	"google.golang.org/genai"
)

// stream implements [ochat.Stream] by wrapping the genai SDK's streaming
// iterator. One response chunk may hold several text parts; they are
// queued and handed out one per Next call.
type stream struct {
	ctx     context.Context
	pull    func() (*genai.GenerateContentResponse, error, bool)
	stop    func()
	state   ochat.StreamState
	pending []string
	blocked error // reported once pending text is drained
	err     error
}

// Interface compliance check.
var _ ochat.Stream = (*stream)(nil)

// NewStreamFromIter wraps a genai response iterator as a [ochat.Stream].
// Exported for testing.
func NewStreamFromIter(ctx context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) ochat.Stream {
	next, stop := iter.Pull2(seq)
	return &stream{
		ctx:   ctx,
		pull:  next,
		stop:  stop,
		state: ochat.StreamStateNew,
	}
}

func (s *stream) Next() (string, error) {
	switch s.state {
	case ochat.StreamStateComplete:
		return "", io.EOF
	case ochat.StreamStateError:
		return "", s.err
	case ochat.StreamStateClosed:
		return "", backendError(ochat.ErrStreamClosed)
	}

	for len(s.pending) == 0 {
		if s.blocked != nil {
			s.terminate(s.blocked)
			return "", s.err
		}
		if err := s.ctx.Err(); err != nil {
			s.terminate(backendError(err))
			return "", s.err
		}
		chunk, err, ok := s.pull()
		if !ok {
			s.state = ochat.StreamStateComplete
			return "", io.EOF
		}
		if err != nil {
			s.terminate(backendError(err))
			return "", s.err
		}
		if err := s.processChunk(chunk); err != nil {
			s.terminate(err)
			return "", s.err
		}
	}

	s.state = ochat.StreamStateStreaming
	text := s.pending[0]
	s.pending = s.pending[1:]
	return text, nil
}

// processChunk queues the visible text of a chunk. Thought parts and
// non-text parts are skipped.
func (s *stream) processChunk(chunk *genai.GenerateContentResponse) error {
	if chunk == nil {
		return nil
	}
	if len(chunk.Candidates) == 0 {
		if fb := chunk.PromptFeedback; fb != nil && fb.BlockReason != "" {
			return errorf("prompt blocked: %s", fb.BlockReason)
		}
		return nil
	}
	cand := chunk.Candidates[0]
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part == nil || part.Thought || part.Text == "" {
				continue
			}
			s.pending = append(s.pending, part.Text)
		}
	}
	switch cand.FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonRecitation,
		genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent:
		s.blocked = errorf("response blocked: %s", cand.FinishReason)
	}
	return nil
}

func (s *stream) terminate(err error) {
	s.state = ochat.StreamStateError
	s.err = err
	s.pending = nil
}

func (s *stream) State() ochat.StreamState {
	return s.state
}

func (s *stream) Close() error {
	if s.state != ochat.StreamStateComplete && s.state != ochat.StreamStateError {
		s.state = ochat.StreamStateClosed
	}
	s.stop()
	return nil
}

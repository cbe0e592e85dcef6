package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ochat"
	bt "github.com/fwojciec/ochat/bubbletea"
	"github.com/fwojciec/ochat/mock"
	"github.com/stretchr/testify/require"
)

// newSession builds a session over an in-memory store whose provider
// answers every request with fragments.
func newSession(fragments ...string) *ochat.Session {
	return ochat.NewSession(mock.NewMemoryStore(), replying(fragments...))
}

func replying(fragments ...string) *mock.Provider {
	return &mock.Provider{
		StreamFn: func(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
			return mock.Fragments(nil, fragments...), nil
		},
	}
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, session *ochat.Session) bt.Model {
	t.Helper()
	return initModelWithSize(t, session, 80, 24)
}

// initModelWithSize creates a model with a custom terminal size.
func initModelWithSize(t *testing.T, session *ochat.Session, width, height int) bt.Model {
	t.Helper()
	m := bt.New(session, ochat.DefaultTheme())
	return updateModel(t, m, tea.WindowSizeMsg{Width: width, Height: height})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// key builds a key message for a special key.
func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// typeText sets the input value directly.
func typeText(m bt.Model, text string) bt.Model {
	m.Input.SetValue(text)
	return m
}

// drain runs cmd and feeds reply messages back into the model until the
// submit finishes. Batched commands are expanded.
func drain(t *testing.T, m bt.Model, cmd tea.Cmd) bt.Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case bt.ReplyMsg, bt.ReplyDoneMsg:
			updated, next := m.Update(msg)
			m = updated.(bt.Model)
			if _, done := msg.(bt.ReplyDoneMsg); done {
				return m
			}
			queue = append(queue, next)
		}
	}
	t.Fatal("submit never finished")
	return m
}

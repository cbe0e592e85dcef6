package bubbletea_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/fwojciec/ochat"
	bt "github.com/fwojciec/ochat/bubbletea"
	"github.com/fwojciec/ochat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	m := bt.New(newSession(), ochat.DefaultTheme())

	assert.False(t, m.Running())
	assert.NoError(t, m.Err())
	assert.Equal(t, "Initializing...", m.View())
}

func TestModel_WindowSize(t *testing.T) {
	t.Parallel()

	t.Run("initializes viewport beside the sidebar", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())

		// 80 columns: 20 sidebar + 1 border.
		assert.Equal(t, 59, m.Viewport.Width)
		// 24 - input(1) - status(1) - gaps(2).
		assert.Equal(t, 20, m.Viewport.Height)
		assert.Contains(t, m.View(), "Chats")
		assert.Contains(t, m.View(), "No chats yet")
	})

	t.Run("resize updates dimensions", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 200, Height: 40})

		assert.Equal(t, 200-32-1, m.Viewport.Width)
		assert.Equal(t, 36, m.Viewport.Height)
	})

	t.Run("resize re-renders content", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		session := newSession("word1 word2 word3 word4 word5 word6 word7 word8 word9 word10")
		_, err := session.StartNew(ctx)
		require.NoError(t, err)
		_, err = session.Submit(ctx, "count")
		require.NoError(t, err)

		m := initModelWithSize(t, session, 60, 20)
		narrow := bt.RenderContent(m)
		m = updateModel(t, m, tea.WindowSizeMsg{Width: 200, Height: 20})
		wide := bt.RenderContent(m)

		assert.Greater(t, strings.Count(narrow, "\n"), strings.Count(wide, "\n"))
	})
}

func TestModel_Keys(t *testing.T) {
	t.Parallel()

	t.Run("ctrl+c when idle quits", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		_, cmd := m.Update(key(tea.KeyCtrlC))

		require.NotNil(t, cmd)
		_, isQuit := cmd().(tea.QuitMsg)
		assert.True(t, isQuit)
	})

	t.Run("enter with empty input does nothing", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		updated, cmd := m.Update(key(tea.KeyEnter))

		assert.False(t, updated.(bt.Model).Running())
		assert.Nil(t, cmd)
	})

	t.Run("ctrl+n starts a chat", func(t *testing.T) {
		t.Parallel()
		session := newSession()
		m := initModel(t, session)
		m = updateModel(t, m, key(tea.KeyCtrlN))

		id, ok := session.Active()
		require.True(t, ok)
		assert.Equal(t, []ochat.ConversationSummary{{ID: id, Preview: ochat.NoResponsePreview}}, bt.Chats(m))
		assert.Contains(t, m.View(), "Chat 1:")
	})

	t.Run("tab toggles sidebar focus", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		m = updateModel(t, m, key(tea.KeyTab))
		_, focused := bt.Selected(m)
		assert.True(t, focused)
		assert.False(t, m.Input.Focused())

		m = updateModel(t, m, key(tea.KeyTab))
		_, focused = bt.Selected(m)
		assert.False(t, focused)
		assert.True(t, m.Input.Focused())
	})

	t.Run("ctrl+t cycles models", func(t *testing.T) {
		t.Parallel()
		session := newSession()
		m := initModel(t, session)
		m = updateModel(t, m, bt.ModelsMsg{Models: []string{"llama3.2", "mistral"}})

		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "llama3.2", session.Model())
		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "mistral", session.Model())
		m = updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "llama3.2", session.Model())
		assert.Contains(t, m.View(), "llama3.2 | Enter to send")
	})

	t.Run("ctrl+t without models keeps the model", func(t *testing.T) {
		t.Parallel()
		session := ochat.NewSession(mock.NewMemoryStore(), replying(), ochat.WithModel("phi3"))
		m := initModel(t, session)
		updateModel(t, m, key(tea.KeyCtrlT))
		assert.Equal(t, "phi3", session.Model())
	})

	t.Run("models error shows in status", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		m = updateModel(t, m, bt.ModelsMsg{Err: errors.New("connection refused")})
		assert.Contains(t, m.View(), "Error: connection refused")
	})
}

func TestModel_Submit(t *testing.T) {
	t.Parallel()

	t.Run("starts a chat when none is active", func(t *testing.T) {
		t.Parallel()
		session := newSession("Hel", "lo")
		m := initModel(t, session)
		m = typeText(m, "hi")

		updated, cmd := m.Update(key(tea.KeyEnter))
		m = updated.(bt.Model)
		assert.True(t, m.Running())
		assert.Empty(t, m.Input.Value())

		m = drain(t, m, cmd)
		assert.False(t, m.Running())
		require.NoError(t, m.Err())

		id, ok := session.Active()
		require.True(t, ok)
		turns := session.Turns()
		require.Len(t, turns, 2)
		assert.Equal(t, "Hello", turns[1].Content)

		content := bt.RenderContent(m)
		assert.Contains(t, content, "> ")
		assert.Contains(t, content, "hi")
		assert.Contains(t, content, "Hello")
		assert.Equal(t, []ochat.ConversationSummary{{ID: id, Preview: "Hello"}}, bt.Chats(m))
	})

	t.Run("reply messages show the accumulated buffer", func(t *testing.T) {
		t.Parallel()
		session := newSession()
		_, err := session.StartNew(context.Background())
		require.NoError(t, err)
		m := initModel(t, session)
		m = typeText(m, "hi")
		updated, _ := m.Update(key(tea.KeyEnter))
		m = updated.(bt.Model)

		m = updateModel(t, m, bt.ReplyMsg{Buffer: "Hello wor"})
		assert.Contains(t, bt.RenderContent(m), "Hello wor")
		assert.Contains(t, m.View(), "Generating...")
	})

	t.Run("backend failure keeps partial text and shows the error", func(t *testing.T) {
		t.Parallel()
		backendErr := &ochat.BackendError{Provider: "ollama", Err: errors.New("model not found")}
		session := ochat.NewSession(mock.NewMemoryStore(), &mock.Provider{
			StreamFn: func(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
				return mock.Fragments(backendErr, "Par", "tial"), nil
			},
		})
		m := initModel(t, session)
		m = typeText(m, "hi")
		updated, cmd := m.Update(key(tea.KeyEnter))
		m = drain(t, updated.(bt.Model), cmd)

		assert.ErrorIs(t, m.Err(), backendErr)
		content := bt.RenderContent(m)
		assert.Contains(t, content, "Partial")
		assert.Contains(t, content, "Error: ollama: model not found")
		require.Len(t, session.Turns(), 1, "only the user turn is stored")
		assert.Equal(t, ochat.SessionActive, session.State())
	})

	t.Run("failure before any text drops the empty reply", func(t *testing.T) {
		t.Parallel()
		session := ochat.NewSession(mock.NewMemoryStore(), &mock.Provider{
			StreamFn: func(ctx context.Context, req ochat.Request) (ochat.Stream, error) {
				return nil, &ochat.BackendError{Provider: "ollama", Err: errors.New("connection refused")}
			},
		})
		m := initModel(t, session)
		m = typeText(m, "hi")
		updated, cmd := m.Update(key(tea.KeyEnter))
		m = drain(t, updated.(bt.Model), cmd)

		content := bt.RenderContent(m)
		assert.Contains(t, content, "hi")
		assert.Contains(t, content, "connection refused")
		assert.NotContains(t, content, "\n\n\n")
	})

	t.Run("keys are ignored while streaming", func(t *testing.T) {
		t.Parallel()
		session := newSession()
		m := initModel(t, session)
		m = typeText(m, "hi")
		updated, _ := m.Update(key(tea.KeyEnter))
		m = updated.(bt.Model)

		before := bt.Chats(m)
		m = updateModel(t, m, key(tea.KeyCtrlN))
		assert.Equal(t, before, bt.Chats(m))
	})

	t.Run("ctrl+c while streaming cancels instead of quitting", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		m = typeText(m, "hi")
		updated, _ := m.Update(key(tea.KeyEnter))
		m = updated.(bt.Model)

		updated, cmd := m.Update(key(tea.KeyCtrlC))
		assert.Nil(t, cmd)
		assert.True(t, updated.(bt.Model).Running())
	})

	t.Run("cancelled reply shows no error", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, newSession())
		m = typeText(m, "hi")
		updated, _ := m.Update(key(tea.KeyEnter))
		m = updated.(bt.Model)

		m = updateModel(t, m, bt.ReplyDoneMsg{Err: &ochat.BackendError{Provider: "ollama", Err: context.Canceled}})
		assert.False(t, m.Running())
		assert.NoError(t, m.Err())
	})
}

func TestModel_Sidebar(t *testing.T) {
	t.Parallel()

	// seeded returns a session with two answered chats, the second active.
	seeded := func(t *testing.T) *ochat.Session {
		t.Helper()
		ctx := context.Background()
		session := newSession("Sure, here is an answer for you today")
		for _, q := range []string{"first question", "second question"} {
			_, err := session.StartNew(ctx)
			require.NoError(t, err)
			_, err = session.Submit(ctx, q)
			require.NoError(t, err)
		}
		return session
	}

	t.Run("lists chats newest first with previews", func(t *testing.T) {
		t.Parallel()
		m := initModelWithSize(t, seeded(t), 200, 24)

		chats := bt.Chats(m)
		require.Len(t, chats, 2)
		assert.Equal(t, ochat.ConversationID(2), chats[0].ID)
		assert.Equal(t, ochat.ConversationID(1), chats[1].ID)
		assert.Equal(t, "Sure, here is an answer for...", chats[0].Preview)
		assert.Contains(t, m.View(), "Chat 2: Sure")
	})

	t.Run("labels are truncated to the sidebar", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, seeded(t))
		assert.Contains(t, m.View(), "…")
	})

	t.Run("enter opens the selected chat", func(t *testing.T) {
		t.Parallel()
		session := seeded(t)
		m := initModel(t, session)
		assert.Contains(t, bt.RenderContent(m), "second question")

		m = updateModel(t, m, key(tea.KeyTab))
		m = updateModel(t, m, key(tea.KeyDown))
		selected, _ := bt.Selected(m)
		assert.Equal(t, 1, selected)

		m = updateModel(t, m, key(tea.KeyEnter))
		id, _ := session.Active()
		assert.Equal(t, ochat.ConversationID(1), id)
		assert.Contains(t, bt.RenderContent(m), "first question")
		assert.NotContains(t, bt.RenderContent(m), "second question")
		_, focused := bt.Selected(m)
		assert.False(t, focused)
	})

	t.Run("selection stays in range", func(t *testing.T) {
		t.Parallel()
		m := initModel(t, seeded(t))
		m = updateModel(t, m, key(tea.KeyTab))
		for range 5 {
			m = updateModel(t, m, key(tea.KeyUp))
		}
		selected, _ := bt.Selected(m)
		assert.Equal(t, 0, selected)
		for range 5 {
			m = updateModel(t, m, key(tea.KeyDown))
		}
		selected, _ = bt.Selected(m)
		assert.Equal(t, 1, selected)
	})

	t.Run("ctrl+d deletes the active chat and goes idle", func(t *testing.T) {
		t.Parallel()
		session := seeded(t)
		m := initModel(t, session)
		m = updateModel(t, m, key(tea.KeyCtrlD))

		_, ok := session.Active()
		assert.False(t, ok)
		assert.Empty(t, bt.RenderContent(m))
		require.Len(t, bt.Chats(m), 1)
		assert.Equal(t, ochat.ConversationID(1), bt.Chats(m)[0].ID)
	})

	t.Run("ctrl+d in the sidebar deletes the selected chat", func(t *testing.T) {
		t.Parallel()
		session := seeded(t)
		m := initModel(t, session)
		m = updateModel(t, m, key(tea.KeyTab))
		m = updateModel(t, m, key(tea.KeyDown))
		m = updateModel(t, m, key(tea.KeyCtrlD))

		id, ok := session.Active()
		require.True(t, ok)
		assert.Equal(t, ochat.ConversationID(2), id)
		require.Len(t, bt.Chats(m), 1)
		assert.Contains(t, bt.RenderContent(m), "second question")
	})
}

func TestModel_Program(t *testing.T) {
	t.Parallel()

	t.Run("submit streams a reply", func(t *testing.T) {
		t.Parallel()
		session := newSession("Hello", "!")
		m := bt.New(session, ochat.DefaultTheme())

		tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 24))

		tm.Type("hi")
		tm.Send(tea.KeyMsg{Type: tea.KeyEnter})

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("Hello!")) &&
				bytes.Contains(out, []byte("Enter to send"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})

		fm := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))
		final, ok := fm.(bt.Model)
		require.True(t, ok)
		assert.False(t, final.Running())
		assert.NoError(t, final.Err())
		assert.Len(t, session.Turns(), 2)
	})

	t.Run("active conversation renders on start", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		session := newSession("Hi! How can I help?")
		_, err := session.StartNew(ctx)
		require.NoError(t, err)
		_, err = session.Submit(ctx, "hello there")
		require.NoError(t, err)

		tm := teatest.NewTestModel(t, bt.New(session, ochat.DefaultTheme()),
			teatest.WithInitialTermSize(100, 24),
		)

		teatest.WaitFor(t, tm.Output(), func(out []byte) bool {
			return bytes.Contains(out, []byte("hello there")) &&
				bytes.Contains(out, []byte("Hi! How can I help?"))
		}, teatest.WithDuration(5*time.Second))

		tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		tm.WaitFinished(t, teatest.WithFinalTimeout(5*time.Second))
	})
}

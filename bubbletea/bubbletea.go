// Package bubbletea provides a Bubble Tea TUI for ochat: a conversation
// sidebar next to the active conversation, with replies rendered as they
// stream.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/ochat"
)

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. When ctx is cancelled the program quits.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// ReplyMsg carries the complete reply text received so far.
type ReplyMsg struct {
	Buffer string
}

// ReplyDoneMsg signals that a submit has finished. Turn is the stored
// assistant turn when Err is nil.
type ReplyDoneMsg struct {
	Turn ochat.Turn
	Err  error
}

// ModelsMsg delivers the model names the backend can serve.
type ModelsMsg struct {
	Models []string
	Err    error
}

package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/ochat"
	"github.com/fwojciec/ochat/goldmark"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

const (
	maxSidebarWidth = 32
	sidebarBorder   = 1
	inputHeight     = 1
	statusHeight    = 1
	sectionGaps     = 2
	modelsTimeout   = 10 * time.Second
)

// Model is the Bubble Tea model for the ochat TUI.
//
// The session is only touched from Update while no reply is streaming.
// During a reply the session belongs to the submit goroutine, and the
// model learns about progress through ReplyMsg and ReplyDoneMsg.
type Model struct {
	// Input is the message input. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable conversation pane. Exported for test access.
	Viewport viewport.Model
	// Spinner animates the status line while a reply streams.
	Spinner spinner.Model

	session  *ochat.Session
	renderer *goldmark.Renderer
	styles   Styles

	blocks    []MessageBlock
	streaming *AssistantBlock

	chats          []ochat.ConversationSummary
	selected       int
	active         ochat.ConversationID
	sidebarFocused bool
	sidebarWidth   int

	models []string

	running  bool
	cancel   context.CancelFunc
	updateCh chan string
	doneCh   chan ReplyDoneMsg
	err      error
	ready    bool
}

// New creates a TUI Model over session. The session may already have an
// active conversation, which is shown on the first render.
func New(session *ochat.Session, theme ochat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	styles := NewStyles(theme)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Accent

	return Model{
		Input:    ti,
		Spinner:  sp,
		session:  session,
		renderer: goldmark.New(theme),
		styles:   styles,
	}
}

// Running returns whether a reply is streaming.
func (m Model) Running() bool { return m.running }

// Err returns the last error, if any.
func (m Model) Err() error { return m.err }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, loadModels(m.session))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ReplyMsg:
		if m.streaming != nil {
			m.streaming.SetContent(msg.Buffer)
			m = m.refreshViewport()
		}
		if m.updateCh != nil {
			return m, listenForReply(m.updateCh, m.doneCh)
		}
		return m, nil

	case ReplyDoneMsg:
		return m.finishReply(msg)

	case ModelsMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.models = msg.Models
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())

	if m.sidebarWidth == 0 {
		return b.String()
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(m.Viewport.Height+sectionGaps), b.String())
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	m.sidebarWidth = min(maxSidebarWidth, msg.Width/4)
	mainWidth := msg.Width
	if m.sidebarWidth > 0 {
		mainWidth -= m.sidebarWidth + sidebarBorder
	}
	vpHeight := max(msg.Height-inputHeight-statusHeight-sectionGaps, 1)

	if !m.ready {
		m.Viewport = viewport.New(mainWidth, vpHeight)
		m = m.renderSession()
		m = m.refreshChats()
		m.ready = true
	} else {
		m.Viewport.Width = mainWidth
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = mainWidth
	return m.refreshViewport()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit
	}

	// Everything below touches the session, which the submit goroutine owns
	// while a reply streams.
	if m.running {
		return m, nil
	}

	switch msg.Type {
	case tea.KeyTab:
		m.sidebarFocused = !m.sidebarFocused
		if m.sidebarFocused {
			m.Input.Blur()
			if i := m.indexOf(m.active); i >= 0 {
				m.selected = i
			}
			return m, nil
		}
		return m, m.Input.Focus()

	case tea.KeyCtrlN:
		return m.startNew()

	case tea.KeyCtrlD:
		return m.deleteSelected(), nil

	case tea.KeyCtrlT:
		return m.cycleModel(), nil

	case tea.KeyUp, tea.KeyDown:
		if m.sidebarFocused {
			delta := 1
			if msg.Type == tea.KeyUp {
				delta = -1
			}
			m.selected = clampIndex(m.selected+delta, len(m.chats))
			return m, nil
		}

	case tea.KeyEnter:
		if m.sidebarFocused {
			return m.openSelected()
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	if m.sidebarFocused {
		return m, nil
	}

	// Only forward non-character keys to the viewport so typing "j" or "k"
	// does not scroll.
	var cmd tea.Cmd
	var cmds []tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) startNew() (tea.Model, tea.Cmd) {
	if _, err := m.session.StartNew(context.Background()); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.sidebarFocused = false
	m = m.renderSession()
	m = m.refreshChats()
	m = m.refreshViewport()
	return m, m.Input.Focus()
}

func (m Model) openSelected() (tea.Model, tea.Cmd) {
	if len(m.chats) == 0 {
		return m, nil
	}
	if err := m.session.Switch(context.Background(), m.chats[m.selected].ID); err != nil {
		m.err = err
		return m.refreshChats(), nil
	}
	m.err = nil
	m.sidebarFocused = false
	m = m.renderSession()
	m = m.refreshChats()
	m = m.refreshViewport()
	return m, m.Input.Focus()
}

func (m Model) deleteSelected() Model {
	if len(m.chats) == 0 {
		return m
	}
	if !m.sidebarFocused {
		// Outside the sidebar the target is the open conversation.
		i := m.indexOf(m.active)
		if _, ok := m.session.Active(); !ok || i < 0 {
			return m
		}
		m.selected = i
	}
	if err := m.session.Delete(context.Background(), m.chats[m.selected].ID); err != nil {
		m.err = err
		return m
	}
	m.err = nil
	m = m.renderSession()
	m = m.refreshChats()
	return m.refreshViewport()
}

func (m Model) cycleModel() Model {
	if len(m.models) == 0 {
		return m
	}
	i := slices.Index(m.models, m.session.Model())
	m.session.SetModel(m.models[(i+1)%len(m.models)])
	return m
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	if _, ok := m.session.Active(); !ok {
		if _, err := m.session.StartNew(context.Background()); err != nil {
			m.err = err
			return m, nil
		}
		m = m.renderSession()
		m = m.refreshChats()
	}
	m.Input.SetValue("")
	m.err = nil

	m.blocks = append(m.blocks, NewUserBlock(text, m.styles))
	m.streaming = NewAssistantBlock(m.renderer)
	m.blocks = append(m.blocks, m.streaming)
	m = m.refreshViewport()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.updateCh = make(chan string, 256)
	m.doneCh = make(chan ReplyDoneMsg, 1)
	m.running = true

	m.Input.Blur()

	return m, tea.Batch(
		startSubmit(ctx, m.session, text, m.updateCh, m.doneCh),
		listenForReply(m.updateCh, m.doneCh),
		m.Spinner.Tick,
	)
}

func (m Model) finishReply(msg ReplyDoneMsg) (tea.Model, tea.Cmd) {
	if m.cancel != nil {
		m.cancel()
	}
	m.running = false
	m.cancel = nil
	m.updateCh = nil
	m.doneCh = nil

	if msg.Err != nil {
		// A failed reply keeps whatever text arrived, but an empty
		// placeholder is dropped.
		if m.streaming != nil && m.streaming.Content() == "" && len(m.blocks) > 0 {
			m.blocks = m.blocks[:len(m.blocks)-1]
		}
		if !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
		}
	} else if m.streaming != nil {
		m.streaming.SetContent(msg.Turn.Content)
	}
	m.streaming = nil

	m = m.refreshChats()
	m = m.refreshViewport()
	return m, m.Input.Focus()
}

// renderSession rebuilds the blocks from the session's active conversation.
func (m Model) renderSession() Model {
	m.blocks = nil
	m.active, _ = m.session.Active()
	for _, turn := range m.session.Turns() {
		switch turn.Role {
		case ochat.RoleUser:
			m.blocks = append(m.blocks, NewUserBlock(turn.Content, m.styles))
		case ochat.RoleAssistant:
			b := NewAssistantBlock(m.renderer)
			b.SetContent(turn.Content)
			m.blocks = append(m.blocks, b)
		}
	}
	return m
}

// refreshChats reloads the sidebar. The selection follows the active
// conversation when there is one.
func (m Model) refreshChats() Model {
	chats, err := m.session.Conversations(context.Background())
	if err != nil {
		m.err = err
		return m
	}
	m.chats = chats
	m.active, _ = m.session.Active()
	if i := m.indexOf(m.active); i >= 0 {
		m.selected = i
	}
	m.selected = clampIndex(m.selected, len(m.chats))
	return m
}

func (m Model) refreshViewport() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	views := make([]string, 0, len(m.blocks))
	for _, block := range m.blocks {
		v := strings.TrimRight(block.View(m.Viewport.Width), "\n")
		if v != "" {
			views = append(views, v)
		}
	}
	return strings.Join(views, "\n\n")
}

func (m Model) sidebarView(height int) string {
	width := m.sidebarWidth - 1 // right padding
	lines := []string{m.styles.Accent.Render(runewidth.Truncate("Chats", width, ""))}

	rows := max(height-1, 1)
	start := 0
	if m.selected >= rows {
		start = m.selected - rows + 1
	}
	end := min(start+rows, len(m.chats))
	for i := start; i < end; i++ {
		c := m.chats[i]
		label := runewidth.Truncate(c.Label(), width, "…")
		switch {
		case m.sidebarFocused && i == m.selected:
			label = m.styles.Selected.Render(label)
		case c.ID == m.active:
			label = m.styles.UserMsg.Render(label)
		}
		lines = append(lines, label)
	}
	if len(m.chats) == 0 {
		lines = append(lines, m.styles.Muted.Render(runewidth.Truncate("No chats yet", width, "…")))
	}
	return m.styles.Sidebar.Width(m.sidebarWidth).Height(height).MaxHeight(height).Render(strings.Join(lines, "\n"))
}

func (m Model) statusLine() string {
	width := m.Viewport.Width
	if m.err != nil {
		return m.styles.Error.Render(runewidth.Truncate(fmt.Sprintf("Error: %v", m.err), width, "…"))
	}
	if m.running {
		return m.Spinner.View() + m.styles.Muted.Render(" Generating...")
	}
	model := m.session.Model()
	if model == "" {
		model = "default model"
	}
	hint := model + " | Enter to send, Tab chats, Ctrl+N new, Ctrl+D delete, Ctrl+T model, Ctrl+C quit"
	return m.styles.Muted.Render(runewidth.Truncate(hint, width, "…"))
}

func (m Model) indexOf(id ochat.ConversationID) int {
	return slices.IndexFunc(m.chats, func(c ochat.ConversationSummary) bool { return c.ID == id })
}

func clampIndex(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}

// startSubmit runs Session.Submit in a goroutine, forwarding every display
// update, and signals completion on doneCh.
func startSubmit(ctx context.Context, session *ochat.Session, text string, updateCh chan<- string, doneCh chan<- ReplyDoneMsg) tea.Cmd {
	return func() tea.Msg {
		turn, err := session.Submit(ctx, text, ochat.WithDisplay(func(buffer string) {
			select {
			case updateCh <- buffer:
			case <-ctx.Done():
			}
		}))
		close(updateCh)
		doneCh <- ReplyDoneMsg{Turn: turn, Err: err}
		return nil
	}
}

// listenForReply waits for the next display update. When the channel
// closes it reads the result from doneCh and returns ReplyDoneMsg.
func listenForReply(ch <-chan string, doneCh <-chan ReplyDoneMsg) tea.Cmd {
	return func() tea.Msg {
		buffer, ok := <-ch
		if !ok {
			return <-doneCh
		}
		return ReplyMsg{Buffer: buffer}
	}
}

// loadModels asks the backend for its model names.
func loadModels(session *ochat.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), modelsTimeout)
		defer cancel()
		models, err := session.Models(ctx)
		return ModelsMsg{Models: models, Err: err}
	}
}

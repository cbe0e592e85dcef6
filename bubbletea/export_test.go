package bubbletea

import "github.com/fwojciec/ochat"

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// Chats returns the sidebar entries.
func Chats(m Model) []ochat.ConversationSummary {
	return m.chats
}

// Selected returns the sidebar cursor and whether the sidebar has focus.
func Selected(m Model) (int, bool) {
	return m.selected, m.sidebarFocused
}

// Package goldmark renders assistant markdown to ANSI-styled terminal output
// using goldmark for parsing and lipgloss for styling.
//
// Replies are re-rendered on every streamed fragment, so a [Renderer] keeps
// one configured parser for its lifetime instead of building one per call.
package goldmark

import "github.com/fwojciec/ochat"

// defaultWidth is used when the caller has no layout yet.
const defaultWidth = 80

// Renderer renders markdown with a fixed theme.
type Renderer struct {
	r *ansiRenderer
}

// New creates a Renderer for the given theme.
func New(theme ochat.Theme) *Renderer {
	return &Renderer{r: newRenderer(theme)}
}

// Render parses markdown source and returns ANSI-styled terminal output.
// Paragraphs, quotes and list items are word-wrapped to width. Code blocks
// are rendered at full width without reflow.
func (r *Renderer) Render(source string, width int) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}
	return r.r.render([]byte(source), width)
}

// Render is a convenience wrapper for one-off rendering.
func Render(source string, width int, theme ochat.Theme) string {
	return New(theme).Render(source, width)
}

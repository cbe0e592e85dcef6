package bubbletea

import (
	"strings"

	"github.com/fwojciec/ochat/goldmark"
)

var _ MessageBlock = (*AssistantBlock)(nil)

// AssistantBlock renders an assistant reply with markdown formatting.
//
// While a reply streams, SetContent receives the complete text so far.
// Finalized paragraphs (separated by a blank line) are rendered once per
// width and cached; only the trailing unfinalized text is re-rendered.
type AssistantBlock struct {
	content  string
	renderer *goldmark.Renderer

	// finalizedRaw is the stable prefix ending at the last blank line that
	// is not inside a code fence.
	finalizedRaw     string
	finalizedByWidth map[int]string
}

// NewAssistantBlock creates a block rendering through r.
func NewAssistantBlock(r *goldmark.Renderer) *AssistantBlock {
	return &AssistantBlock{
		renderer:         r,
		finalizedByWidth: make(map[int]string),
	}
}

// Content returns the raw markdown shown by the block.
func (b *AssistantBlock) Content() string { return b.content }

// SetContent replaces the block's text. Streaming callers pass the whole
// accumulated reply each time, so the finalized cache survives as long as
// the new text extends the old.
func (b *AssistantBlock) SetContent(text string) {
	if b.finalizedRaw != "" && !strings.HasPrefix(text, b.finalizedRaw+"\n\n") {
		b.finalizedRaw = ""
		clear(b.finalizedByWidth)
	}
	b.content = text
	b.promoteFinalized()
}

func (b *AssistantBlock) View(width int) string {
	finalized := b.renderFinalized(width)
	trailing := b.trailingRaw()
	if trailing == "" {
		return finalized
	}
	rendered := b.renderer.Render(trailing, width)
	if strings.TrimSpace(rendered) == "" {
		return finalized
	}
	if finalized == "" {
		return rendered
	}
	// Rejoin independently rendered fragments with a single paragraph break
	// so there is no seam at the finalization boundary.
	return strings.TrimRight(finalized, "\n") + "\n\n" + strings.TrimLeft(rendered, "\n")
}

// promoteFinalized moves the finalized boundary to the last "\n\n" whose
// prefix has every code fence closed. Splitting inside a fence would render
// half a code block as prose.
func (b *AssistantBlock) promoteFinalized() {
	raw := b.content
	for end := len(raw); ; {
		idx := strings.LastIndex(raw[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := raw[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.finalizedRaw {
				b.finalizedRaw = candidate
				clear(b.finalizedByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantBlock) renderFinalized(width int) string {
	if b.finalizedRaw == "" {
		return ""
	}
	if cached, ok := b.finalizedByWidth[width]; ok {
		return cached
	}
	rendered := b.renderer.Render(b.finalizedRaw, width)
	b.finalizedByWidth[width] = rendered
	return rendered
}

func (b *AssistantBlock) trailingRaw() string {
	if b.finalizedRaw == "" {
		return b.content
	}
	return strings.TrimPrefix(b.content, b.finalizedRaw+"\n\n")
}

// hasUnclosedFence reports an odd number of "```" markers. Triple backticks
// inside inline code spans are miscounted; replies rarely contain them.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}

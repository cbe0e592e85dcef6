package bubbletea_test

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/ochat"
	bt "github.com/fwojciec/ochat/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestUserBlock_View(t *testing.T) {
	t.Parallel()

	t.Run("renders text with prompt prefix", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserBlock("hello world", bt.NewStyles(ochat.DefaultTheme()))
		view := block.View(80)
		assert.Contains(t, view, "> ")
		assert.Contains(t, view, "hello world")
	})

	t.Run("pads each line to full width", func(t *testing.T) {
		t.Parallel()
		block := bt.NewUserBlock("test", bt.NewStyles(ochat.DefaultTheme()))
		for _, line := range strings.Split(block.View(40), "\n") {
			assert.Equal(t, 40, lipgloss.Width(line))
		}
	})

	t.Run("wraps long text to width", func(t *testing.T) {
		t.Parallel()
		longText := "short words that keep going and going beyond the viewport width easily"
		block := bt.NewUserBlock(longText, bt.NewStyles(ochat.DefaultTheme()))
		view := block.View(30)
		assert.Contains(t, view, "easily")
		assert.Greater(t, len(strings.Split(view, "\n")), 1)
	})
}

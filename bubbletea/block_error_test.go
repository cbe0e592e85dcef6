package bubbletea_test

import (
	"errors"
	"testing"

	"github.com/fwojciec/ochat"
	bt "github.com/fwojciec/ochat/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()
	block := bt.NewErrorBlock(errors.New("something broke"), bt.NewStyles(ochat.DefaultTheme()))
	assert.Contains(t, block.View(80), "Error: something broke")
}

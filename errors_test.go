package ochat_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/fwojciec/ochat"
	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	t.Parallel()
	err := error(&ochat.StorageError{Op: "append turn", Err: fs.ErrPermission})
	assert.Equal(t, "storage: append turn: permission denied", err.Error())
	assert.ErrorIs(t, err, fs.ErrPermission)

	var se *ochat.StorageError
	assert.True(t, errors.As(err, &se))
}

func TestBackendError(t *testing.T) {
	t.Parallel()
	cause := errors.New(`model "nope" not found`)
	err := error(&ochat.BackendError{Provider: "ollama", Err: cause})
	assert.Equal(t, `ollama: model "nope" not found`, err.Error())
	assert.ErrorIs(t, err, cause)
}

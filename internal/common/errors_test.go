package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(cause, "open database")
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "open database")
}

func TestFatalInput(t *testing.T) {
	err := FatalInputError("unsupported media type")
	assert.True(t, IsFatalInput(err))
	assert.True(t, IsFatalInput(fmt.Errorf("handling upload: %w", err)))
	assert.False(t, IsFatalInput(errors.New("plain")))
	assert.False(t, IsFatalInput(nil))
}

package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct code", func(t *testing.T) {
		err := New(CodeValidation, "bad answer")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("nested code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeNotFound, "record not found")
		outer := Wrap(fmt.Errorf("load: %w", inner), CodeInternal, "failed to load")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeNotFound))
	})

	t.Run("plain error has no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestErrorIsMatchesCodeAndMessage(t *testing.T) {
	err := Wrap(errors.New("db down"), CodeInternal, "failed to save")
	require.ErrorIs(t, err, New(CodeInternal, "failed to save"))
	assert.NotErrorIs(t, err, New(CodeInternal, "other"))
	assert.Equal(t, "failed to save: db down", err.Error())
}

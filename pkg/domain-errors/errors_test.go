package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeNoMatrixRule, "no rule")
		assert.True(t, HasCode(err, CodeNoMatrixRule))
		assert.False(t, HasCode(err, CodeNotFound))
	})

	t.Run("matches inner code through wrap", func(t *testing.T) {
		inner := New(CodeRoleUnresolved, "no role")
		err := Wrap(inner, CodeValidationFailed, "classification blocked")
		assert.True(t, HasCode(err, CodeRoleUnresolved))
		assert.True(t, HasCode(err, CodeValidationFailed))
		assert.Equal(t, CodeValidationFailed, CodeOf(err))
	})

	t.Run("survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("store: %w", New(CodeConflict, "stale version"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "unused"))
	})
}

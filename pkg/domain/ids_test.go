package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "kycengine/pkg/domain-errors"
)

// TestParseCaseID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseCaseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseCaseID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseCaseID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCaseID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID with surrounding space", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseCaseID("  " + valid.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, CaseID(valid), id)
	})
}

func TestCaseID_Ref(t *testing.T) {
	id := CaseID(uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"))
	assert.Equal(t, "KYC-1B4E28BA", id.Ref())
	assert.True(t, strings.HasPrefix(NewCaseID().Ref(), "KYC-"))
}

func TestCaseID_JSON(t *testing.T) {
	id := NewCaseID()
	raw, err := json.Marshal(map[string]CaseID{"id": id})
	require.NoError(t, err)
	assert.Contains(t, string(raw), id.String())

	var decoded map[string]CaseID
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, id, decoded["id"])
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "firmgate/pkg/domain-errors"
)

func TestParseFirmID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseFirmID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseFirmID("firm-42")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("nil UUID parses but reports IsNil", func(t *testing.T) {
		id, err := ParseFirmID(uuid.Nil.String())
		require.NoError(t, err)
		assert.True(t, id.IsNil())
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		raw := uuid.New()
		id, err := ParseTokenID(raw.String())
		require.NoError(t, err)
		assert.Equal(t, TokenID(raw), id)
	})
}

func TestIDJSONRoundTrip(t *testing.T) {
	type payload struct {
		FirmID FirmID `json:"firm_id"`
	}
	in := payload{FirmID: NewFirmID()}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), in.FirmID.String())

	var out payload
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in.FirmID, out.FirmID)
}

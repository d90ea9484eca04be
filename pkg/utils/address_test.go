package utils

import (
	"errors"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidAddress(t *testing.T) {
	key := make([]byte, PublicKeyLength)
	for i := range key {
		key[i] = byte(i + 1)
	}
	valid := base58.Encode(key)

	assert.True(t, IsValidAddress(valid))
	assert.True(t, IsValidAddress("  "+valid+" "), "surrounding whitespace should be ignored")
	assert.True(t, IsValidAddress("11111111111111111111111111111111"), "system program id is 32 zero bytes")

	assert.False(t, IsValidAddress(""))
	assert.False(t, IsValidAddress("0OIl"), "characters outside the base58 alphabet")
	assert.False(t, IsValidAddress(base58.Encode(key[:20])), "short keys are rejected")
}

func TestGenerateIDIsUnique(t *testing.T) {
	first := GenerateID()
	second := GenerateID()

	require.Len(t, first, 36)
	assert.NotEqual(t, first, second)
}

func TestWrapErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapError(ErrCodeBlockchain, "Failed to fetch account", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, ErrCodeBlockchain, ErrorCode(err))
	assert.Equal(t, "BLOCKCHAIN_ERROR: Failed to fetch account (connection reset)", err.Error())
	assert.Empty(t, ErrorCode(cause))
}

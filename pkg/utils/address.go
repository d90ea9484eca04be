package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// PublicKeyLength is the size in bytes of a decoded wallet public key.
const PublicKeyLength = 32

// IsValidAddress checks if a string is a base58 encoded 32 byte public key
func IsValidAddress(address string) bool {
	address = strings.TrimSpace(address)
	if address == "" {
		return false
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(raw) == PublicKeyLength
}

// NormalizeAddress trims surrounding whitespace from a wallet address.
// Base58 is case sensitive so the address is otherwise left untouched.
func NormalizeAddress(address string) string {
	return strings.TrimSpace(address)
}

// GenerateID generates a random UUID string
func GenerateID() string {
	return uuid.NewString()
}

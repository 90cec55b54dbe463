package testutil

import (
	"mex-go/internal/encryption"
	"mex-go/internal/mex"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() mex.Encryptor {
	return encryption.NewTestEncryptor()
}

package encryption

import (
	"bytes"
	"fmt"
	"io"

	"mex-go/internal/mex"
)

// testHeader marks data written by TestEncryptor. Eight fixed bytes are
// enough to make ciphertext differ from plaintext while staying
// trivially reversible.
var testHeader = []byte("MEXENC\x00\x00")

// TestEncryptor is a deterministic stand-in for the age encryptor used
// in tests: it prepends testHeader on encrypt and strips it on decrypt,
// with no keys and no passphrase checking.
type TestEncryptor struct {
	setups int
}

var _ mex.Encryptor = (*TestEncryptor)(nil)

// NewTestEncryptor creates a new TestEncryptor.
func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

func (e *TestEncryptor) Setup(passphrase string) error {
	e.setups++
	return nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	marked := io.MultiReader(bytes.NewReader(testHeader), r)
	if _, err := io.Copy(w, marked); err != nil {
		return fmt.Errorf("test encrypt: %w", err)
	}
	return nil
}

func (e *TestEncryptor) Unlock(passphrase string) (mex.DecryptionContext, error) {
	return &TestDecryptionContext{}, nil
}

// TestDecryptionContext strips the header added by TestEncryptor.
type TestDecryptionContext struct{}

var _ mex.DecryptionContext = (*TestDecryptionContext)(nil)

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	got := make([]byte, len(testHeader))
	if _, err := io.ReadFull(r, got); err != nil {
		return fmt.Errorf("reading test header: %w", err)
	}
	if !bytes.Equal(got, testHeader) {
		return fmt.Errorf("data was not written by the test encryptor")
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("test decrypt: %w", err)
	}
	return nil
}

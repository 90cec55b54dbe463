package encryption

import (
	"bytes"
	"testing"
)

func TestTestEncryptor(t *testing.T) {
	t.Run("reports configured without any setup", func(t *testing.T) {
		t.Parallel()
		e := NewTestEncryptor()
		if !e.IsConfigured() {
			t.Error("IsConfigured() = false, want true")
		}
	})

	t.Run("counts Setup calls", func(t *testing.T) {
		t.Parallel()
		e := NewTestEncryptor()
		if err := e.Setup("whatever"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if err := e.Setup("again"); err != nil {
			t.Fatalf("Setup() error = %v", err)
		}
		if e.setups != 2 {
			t.Errorf("setups = %d, want 2", e.setups)
		}
	})

	t.Run("round trips payloads through the marker", func(t *testing.T) {
		t.Parallel()
		payloads := map[string][]byte{
			"archive bytes": []byte("PK\x03\x04fake zip content"),
			"empty":         nil,
			"nul heavy":     {0x00, 0x00, 0xff, 0x00},
		}
		for name, payload := range payloads {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				e := NewTestEncryptor()

				var sealed bytes.Buffer
				if err := e.Encrypt(bytes.NewReader(payload), &sealed); err != nil {
					t.Fatalf("Encrypt() error = %v", err)
				}
				if !bytes.HasPrefix(sealed.Bytes(), testHeader) {
					t.Fatalf("ciphertext %q does not start with the marker", sealed.Bytes())
				}
				if sealed.Len() != len(payload)+len(testHeader) {
					t.Errorf("ciphertext length = %d, want payload plus marker", sealed.Len())
				}

				ctx, err := e.Unlock("any")
				if err != nil {
					t.Fatalf("Unlock() error = %v", err)
				}
				var opened bytes.Buffer
				if err := ctx.Decrypt(bytes.NewReader(sealed.Bytes()), &opened); err != nil {
					t.Fatalf("Decrypt() error = %v", err)
				}
				if !bytes.Equal(opened.Bytes(), payload) {
					t.Errorf("round trip = %q, want %q", opened.Bytes(), payload)
				}
			})
		}
	})

	t.Run("encrypts the same input identically", func(t *testing.T) {
		t.Parallel()
		e := NewTestEncryptor()
		var a, b bytes.Buffer
		for _, buf := range []*bytes.Buffer{&a, &b} {
			if err := e.Encrypt(bytes.NewReader([]byte("stable")), buf); err != nil {
				t.Fatalf("Encrypt() error = %v", err)
			}
		}
		if !bytes.Equal(a.Bytes(), b.Bytes()) {
			t.Error("same input produced different ciphertext")
		}
	})

	t.Run("refuses data without the marker", func(t *testing.T) {
		t.Parallel()
		inputs := map[string][]byte{
			"garbage":   []byte("ZIPZIP\x00\x00archive"),
			"truncated": []byte("MEX"),
			"empty":     nil,
		}
		for name, input := range inputs {
			t.Run(name, func(t *testing.T) {
				t.Parallel()
				ctx := &TestDecryptionContext{}
				var out bytes.Buffer
				if err := ctx.Decrypt(bytes.NewReader(input), &out); err == nil {
					t.Error("Decrypt() accepted unmarked data")
				}
				if out.Len() != 0 {
					t.Errorf("Decrypt() wrote %d bytes despite failing", out.Len())
				}
			})
		}
	})
}

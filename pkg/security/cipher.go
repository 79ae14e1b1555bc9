package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrEncryption     = errors.New("encryption failed")
)

const (
	// envelopePrefix marks a value as one of ours. Values without it
	// are treated as legacy plaintext from pre-encryption records.
	envelopePrefix = "phi:v1"

	keySize = 32 // AES-256
	ivSize  = 16 // 128-bit IV
)

// DecryptState classifies what Decrypt actually did with a value
type DecryptState int

const (
	// StateDecrypted means the value was a valid envelope and was decrypted
	StateDecrypted DecryptState = iota
	// StateLegacyPlaintext means the value was not an envelope and was
	// returned unchanged
	StateLegacyPlaintext
	// StateCorrupt means the value looked like an envelope but failed
	// decoding or authentication; the raw value is returned unchanged
	StateCorrupt
)

// PHICipher applies authenticated encryption to individual PHI fields.
// One static 256-bit key sourced from the secret store; rotation is a
// separate concern.
type PHICipher struct {
	gcm cipher.AEAD
}

// NewPHICipher builds a cipher from a raw 32-byte key
func NewPHICipher(key []byte) (*PHICipher, error) {
	if len(key) != keySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrInvalidKeySize
	}

	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, ErrEncryption
	}

	return &PHICipher{gcm: gcm}, nil
}

// NewPHICipherFromBase64 builds a cipher from a base64-encoded key,
// the form keys take in the secret store.
func NewPHICipherFromBase64(encoded string) (*PHICipher, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	return NewPHICipher(key)
}

// Encrypt seals plaintext into an opaque envelope string. Empty input
// passes through empty. Output differs across calls for identical
// input because every call draws a fresh IV.
func (c *PHICipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	iv := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", ErrEncryption
	}

	sealed := c.gcm.Seal(nil, iv, []byte(plaintext), nil)

	return strings.Join([]string{
		envelopePrefix,
		base64.StdEncoding.EncodeToString(iv),
		base64.StdEncoding.EncodeToString(sealed),
	}, ":"), nil
}

// Decrypt opens an envelope produced by Encrypt. Values that do not
// carry the envelope prefix are returned unchanged as legacy
// plaintext. Envelopes that fail to decode or authenticate are also
// returned unchanged, but tagged StateCorrupt so callers can count
// corruption instead of silently reading garbage as plaintext.
func (c *PHICipher) Decrypt(value string) (string, DecryptState) {
	if value == "" || !strings.HasPrefix(value, envelopePrefix+":") {
		return value, StateLegacyPlaintext
	}

	parts := strings.SplitN(value, ":", 4)
	if len(parts) != 4 {
		return value, StateCorrupt
	}

	iv, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil || len(iv) != ivSize {
		return value, StateCorrupt
	}

	sealed, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return value, StateCorrupt
	}

	plaintext, err := c.gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return value, StateCorrupt
	}

	return string(plaintext), StateDecrypted
}

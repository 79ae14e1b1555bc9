package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCipher(t *testing.T) *PHICipher {
	t.Helper()
	key := []byte("0123456789abcdef0123456789abcdef")
	c, err := NewPHICipher(key)
	require.NoError(t, err)
	return c
}

func TestNewPHICipherRejectsBadKey(t *testing.T) {
	_, err := NewPHICipher([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = NewPHICipherFromBase64("not base64!!!")
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c := testCipher(t)

	for _, plaintext := range []string{
		"John Q. Patient",
		"+1-555-0100",
		"diagnosis: hypertension, stage 1",
		strings.Repeat("long clinical narrative ", 200),
	} {
		sealed, err := c.Encrypt(plaintext)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, "phi:v1:"))
		assert.NotContains(t, sealed[7:], plaintext)

		got, state := c.Decrypt(sealed)
		assert.Equal(t, StateDecrypted, state)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptEmptyPassesThrough(t *testing.T) {
	c := testCipher(t)

	sealed, err := c.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, sealed)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	c := testCipher(t)

	a, err := c.Encrypt("same input")
	require.NoError(t, err)
	b, err := c.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDecryptLegacyPlaintextPassesThrough(t *testing.T) {
	c := testCipher(t)

	got, state := c.Decrypt("555-867-5309")
	assert.Equal(t, StateLegacyPlaintext, state)
	assert.Equal(t, "555-867-5309", got)

	got, state = c.Decrypt("")
	assert.Equal(t, StateLegacyPlaintext, state)
	assert.Empty(t, got)
}

func TestDecryptTagsCorruptEnvelopes(t *testing.T) {
	c := testCipher(t)

	sealed, err := c.Encrypt("original value")
	require.NoError(t, err)

	// Flip a character deep in the ciphertext segment.
	tampered := sealed[:len(sealed)-2] + "!!"

	for _, value := range []string{
		"phi:v1:only-three-parts",
		"phi:v1:!!!notbase64:AAAA",
		"phi:v1:QUFBQQ==:AAAA", // IV is the wrong length
		tampered,
	} {
		got, state := c.Decrypt(value)
		assert.Equal(t, StateCorrupt, state, "value %q", value)
		assert.Equal(t, value, got, "corrupt values are returned unchanged")
	}
}

func TestDecryptWithWrongKeyIsCorrupt(t *testing.T) {
	c := testCipher(t)
	other, err := NewPHICipher([]byte("ffffffffffffffffffffffffffffffff"))
	require.NoError(t, err)

	sealed, err := c.Encrypt("secret")
	require.NoError(t, err)

	got, state := other.Decrypt(sealed)
	assert.Equal(t, StateCorrupt, state)
	assert.Equal(t, sealed, got)
}

func TestFieldBatchCodec(t *testing.T) {
	c := testCipher(t)

	record := map[string]string{
		"phone":   "+1-555-0100",
		"email":   "pat@example.test",
		"address": "",
		"name":    "left alone",
	}

	require.NoError(t, c.EncryptFields(record, ContactFields))
	assert.True(t, strings.HasPrefix(record["phone"], "phi:v1:"))
	assert.True(t, strings.HasPrefix(record["email"], "phi:v1:"))
	assert.Empty(t, record["address"])
	assert.Equal(t, "left alone", record["name"])

	// Mix in a legacy plaintext field and a corrupt envelope.
	record["emergency_contact"] = "Jane Doe 555-0199"
	record["email"] = "phi:v1:bad:envelope"

	result := c.DecryptFields(record, ContactFields)
	assert.Equal(t, "+1-555-0100", record["phone"])
	assert.Equal(t, []string{"emergency_contact"}, result.Legacy)
	assert.Equal(t, []string{"email"}, result.Corrupt)
}

package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RFC 6238 test secret, base32 form of "12345678901234567890".
const rfcSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestTOTPCodeKnownVectors(t *testing.T) {
	tests := []struct {
		unix int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1234567890, "005924"},
	}

	for _, tt := range tests {
		code, err := TOTPCode(rfcSecret, time.Unix(tt.unix, 0))
		require.NoError(t, err)
		assert.Equal(t, tt.want, code, "unix %d", tt.unix)
	}
}

func TestTOTPCodeRejectsBadSecret(t *testing.T) {
	_, err := TOTPCode("not-base32-1!", time.Now())
	assert.Error(t, err)
}

func TestVerifyTOTP(t *testing.T) {
	at := time.Unix(1234567890, 0)

	assert.True(t, VerifyTOTP(rfcSecret, "005924", at))
	assert.False(t, VerifyTOTP(rfcSecret, "000000", at))
	assert.False(t, VerifyTOTP(rfcSecret, "5924", at))

	// One step of clock skew in either direction is tolerated.
	assert.True(t, VerifyTOTP(rfcSecret, "005924", at.Add(25*time.Second)))
	assert.True(t, VerifyTOTP(rfcSecret, "005924", at.Add(-25*time.Second)))
	assert.False(t, VerifyTOTP(rfcSecret, "005924", at.Add(2*time.Minute)))
}

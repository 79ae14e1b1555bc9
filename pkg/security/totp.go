package security

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

const (
	totpDigits = 6
	totpStep   = 30 * time.Second
	// one step of clock skew either way
	totpSkew = 1
)

// TOTPCode computes the RFC 6238 code for a base32 secret at the given
// time. Exposed for enrollment flows that show the expected code.
func TOTPCode(secret string, at time.Time) (string, error) {
	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).
		DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil {
		return "", fmt.Errorf("invalid totp secret: %w", err)
	}

	counter := uint64(at.Unix()) / uint64(totpStep.Seconds())

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", code%1_000_000), nil
}

// VerifyTOTP checks a submitted code against the secret, tolerating
// one step of clock skew in either direction.
func VerifyTOTP(secret, code string, at time.Time) bool {
	if len(code) != totpDigits {
		return false
	}
	for i := -totpSkew; i <= totpSkew; i++ {
		expected, err := TOTPCode(secret, at.Add(time.Duration(i)*totpStep))
		if err != nil {
			return false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return true
		}
	}
	return false
}

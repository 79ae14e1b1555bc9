package mfa

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/pkg/metrics"
	"github.com/clinicore/phi-gate/pkg/security"
)

// TOTPVerifier checks submitted codes against the principal's enrolled
// TOTP secret. Secrets are stored sealed; seeds enrolled before the
// encryption rollout are still plaintext and remain accepted.
// Principals without a secret always fail verification.
type TOTPVerifier struct {
	principals repository.PrincipalRepository
	cipher     *security.PHICipher
	metrics    *metrics.Metrics
}

func NewTOTPVerifier(principals repository.PrincipalRepository, cipher *security.PHICipher, m *metrics.Metrics) *TOTPVerifier {
	return &TOTPVerifier{principals: principals, cipher: cipher, metrics: m}
}

func (v *TOTPVerifier) Verify(ctx context.Context, principalID uuid.UUID, code string) (bool, error) {
	principal, err := v.principals.Get(ctx, principalID)
	if err != nil {
		return false, err
	}
	if principal.MFASecret == "" {
		return false, nil
	}

	secret := principal.MFASecret
	if v.cipher != nil {
		var state security.DecryptState
		secret, state = v.cipher.Decrypt(principal.MFASecret)
		if state == security.StateCorrupt {
			if v.metrics != nil {
				v.metrics.CorruptEnvelopes.Inc()
			}
			return false, nil
		}
	}

	return security.VerifyTOTP(secret, code, time.Now()), nil
}

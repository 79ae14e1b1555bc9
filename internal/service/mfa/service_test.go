package mfa

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
	auditService "github.com/clinicore/phi-gate/internal/service/audit"
	"github.com/clinicore/phi-gate/pkg/alert"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
	"github.com/clinicore/phi-gate/pkg/logger"
	"github.com/clinicore/phi-gate/pkg/ratelimit"
)

type nopAuditRepo struct{}

func (nopAuditRepo) Create(context.Context, *model.AuditLogEntry) error { return nil }
func (nopAuditRepo) Report(context.Context, time.Time, time.Time, *model.AuditReportFilters) (*model.AuditReport, error) {
	return &model.AuditReport{}, nil
}
func (nopAuditRepo) CountPatientReadsByActor(context.Context, time.Time, int64) ([]model.ActorAccessCount, error) {
	return nil, nil
}
func (nopAuditRepo) ListFailedSince(context.Context, time.Time) ([]*model.AuditLogEntry, error) {
	return nil, nil
}
func (nopAuditRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type fixedVerifier struct {
	ok  bool
	err error
}

func (v fixedVerifier) Verify(context.Context, uuid.UUID, string) (bool, error) {
	return v.ok, v.err
}

func newGate(verifier CodeVerifier) *Service {
	auditor := auditService.NewService(nopAuditRepo{}, alert.NopNotifier{}, logger.Nop(), nil)
	limiter := ratelimit.NewMemoryLimiter(ratelimit.DefaultPolicies())
	return NewService(verifier, limiter, auditor, Config{GracePeriod: 7 * 24 * time.Hour}, nil)
}

func principalWith(role model.Role, mfaEnabled bool, age time.Duration) *model.Principal {
	return &model.Principal{
		Base:       model.Base{ID: uuid.New(), CreatedAt: time.Now().Add(-age)},
		Role:       role,
		Status:     model.PrincipalStatusActive,
		MFAEnabled: mfaEnabled,
	}
}

func TestEvaluateGateMatrix(t *testing.T) {
	gate := newGate(fixedVerifier{ok: true})

	tests := []struct {
		name string
		p    *model.Principal
		want GateResult
	}{
		{"admin without mfa must enroll", principalWith(model.RoleAdmin, false, 0), ResultSetupRequired},
		{"admin with mfa is challenged", principalWith(model.RoleAdmin, true, 0), ResultChallenge},
		{"doctor with mfa is challenged", principalWith(model.RoleDoctor, true, 0), ResultChallenge},
		{"new doctor without mfa proceeds", principalWith(model.RoleDoctor, false, 2*24*time.Hour), ResultProceed},
		{"old doctor without mfa denied", principalWith(model.RoleDoctor, false, 10*24*time.Hour), ResultDenied},
		{"nurse with mfa is challenged", principalWith(model.RoleNurse, true, 0), ResultChallenge},
		{"old nurse without mfa denied", principalWith(model.RoleNurse, false, 8*24*time.Hour), ResultDenied},
		{"lab tech without mfa proceeds", principalWith(model.RoleLabTechnician, false, 30*24*time.Hour), ResultProceed},
		{"cashier with mfa is challenged", principalWith(model.RoleCashier, true, 0), ResultChallenge},
		{"patient never gated", principalWith(model.RolePatient, false, 365*24*time.Hour), ResultProceed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Evaluate(tt.p))
		})
	}
}

func TestVerifyCode(t *testing.T) {
	gate := newGate(fixedVerifier{ok: true})
	p := principalWith(model.RoleDoctor, true, 0)

	require.NoError(t, gate.VerifyCode(context.Background(), p, "123456"))
}

func TestVerifyCodeRejectsInvalid(t *testing.T) {
	gate := newGate(fixedVerifier{ok: false})
	p := principalWith(model.RoleDoctor, true, 0)

	err := gate.VerifyCode(context.Background(), p, "000000")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthentication, apperrors.CodeOf(err))
}

func TestVerifyCodeRateLimited(t *testing.T) {
	gate := newGate(fixedVerifier{ok: false})
	p := principalWith(model.RoleDoctor, true, 0)

	var lastErr error
	for i := 0; i < 10; i++ {
		lastErr = gate.VerifyCode(context.Background(), p, "000000")
	}

	require.Error(t, lastErr)
	assert.Equal(t, apperrors.ErrRateLimited, apperrors.CodeOf(lastErr))
}

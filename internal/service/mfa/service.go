package mfa

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/audit"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
	"github.com/clinicore/phi-gate/pkg/metrics"
	"github.com/clinicore/phi-gate/pkg/ratelimit"
)

// Requirement is the per-role MFA posture
type Requirement string

const (
	RequirementNone     Requirement = "NONE"
	RequirementOptional Requirement = "OPTIONAL"
	RequirementRequired Requirement = "REQUIRED"
	RequirementEnforced Requirement = "ENFORCED"
)

// Gate outcomes
type GateResult string

const (
	// ResultProceed means no challenge is needed for this login
	ResultProceed GateResult = "PROCEED"
	// ResultChallenge means a code must be verified before a session exists
	ResultChallenge GateResult = "CHALLENGE"
	// ResultSetupRequired means the principal must enroll before logging in
	ResultSetupRequired GateResult = "SETUP_REQUIRED"
	// ResultDenied means the grace period ran out without enrollment
	ResultDenied GateResult = "DENIED"
)

// CodeVerifier validates a submitted one-time code against the
// principal's enrolled secret or device. External collaborator.
type CodeVerifier interface {
	Verify(ctx context.Context, principalID uuid.UUID, code string) (bool, error)
}

// roleRequirements maps each role to its MFA posture. Administrative
// access is never allowed without enrolled MFA; clinical roles get an
// enrollment grace period measured from account creation.
var roleRequirements = map[model.Role]Requirement{
	model.RoleAdmin:         RequirementEnforced,
	model.RoleDoctor:        RequirementRequired,
	model.RoleNurse:         RequirementRequired,
	model.RoleLabTechnician: RequirementOptional,
	model.RoleCashier:       RequirementOptional,
	model.RolePatient:       RequirementNone,
}

// Config tunes gate behavior
type Config struct {
	GracePeriod time.Duration
}

// Service enforces role-scoped MFA requirements around login
type Service struct {
	verifier CodeVerifier
	limiter  ratelimit.Limiter
	auditor  *audit.Service
	cfg      Config
	metrics  *metrics.Metrics
}

func NewService(verifier CodeVerifier, limiter ratelimit.Limiter, auditor *audit.Service, cfg Config, m *metrics.Metrics) *Service {
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = 7 * 24 * time.Hour
	}
	return &Service{
		verifier: verifier,
		limiter:  limiter,
		auditor:  auditor,
		cfg:      cfg,
		metrics:  m,
	}
}

// RequirementFor returns the posture for a role
func (s *Service) RequirementFor(role model.Role) Requirement {
	if req, ok := roleRequirements[role]; ok {
		return req
	}
	return RequirementNone
}

// Evaluate decides what the login flow must do for this principal
// before a session may be created.
func (s *Service) Evaluate(principal *model.Principal) GateResult {
	switch s.RequirementFor(principal.Role) {
	case RequirementEnforced:
		if !principal.MFAEnabled {
			return ResultSetupRequired
		}
		return ResultChallenge

	case RequirementRequired:
		if principal.MFAEnabled {
			return ResultChallenge
		}
		if time.Since(principal.CreatedAt) <= s.cfg.GracePeriod {
			return ResultProceed
		}
		return ResultDenied

	case RequirementOptional:
		if principal.MFAEnabled {
			return ResultChallenge
		}
		return ResultProceed

	default:
		return ResultProceed
	}
}

// VerifyCode checks a submitted one-time code. Verification is rate
// limited per principal; failures are audited and returned as errors.
func (s *Service) VerifyCode(ctx context.Context, principal *model.Principal, code string) error {
	allowed, err := s.limiter.Allow(ctx, principal.ID.String(), ratelimit.ClassMFAVerify)
	if err != nil {
		return apperrors.System(err)
	}
	if !allowed {
		s.logVerification(ctx, principal, false, "rate limited")
		return apperrors.RateLimited("too many verification attempts, try again later")
	}

	ok, err := s.verifier.Verify(ctx, principal.ID, code)
	if err != nil {
		s.logVerification(ctx, principal, false, "verifier error")
		return apperrors.System(fmt.Errorf("code verification: %w", err))
	}
	if !ok {
		if s.metrics != nil {
			s.metrics.MFAChallenges.WithLabelValues("failure").Inc()
		}
		s.logVerification(ctx, principal, false, "invalid code")
		return apperrors.AuthenticationFailed("invalid verification code")
	}

	if s.metrics != nil {
		s.metrics.MFAChallenges.WithLabelValues("success").Inc()
	}
	s.logVerification(ctx, principal, true, "code verified")
	return nil
}

func (s *Service) logVerification(ctx context.Context, principal *model.Principal, success bool, reason string) {
	s.auditor.Log(ctx, audit.Entry{
		ActorID:      principal.ID,
		Action:       model.AuditActionLogin,
		ResourceType: model.AuditEntitySecurity,
		ResourceID:   principal.ID.String(),
		Success:      success,
		Reason:       "mfa verification: " + reason,
		Metadata:     map[string]interface{}{"role": principal.Role},
	})
}

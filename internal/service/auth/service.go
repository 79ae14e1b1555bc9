package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/internal/service/audit"
	"github.com/clinicore/phi-gate/internal/service/mfa"
	"github.com/clinicore/phi-gate/internal/service/session"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
	"github.com/clinicore/phi-gate/pkg/metrics"
	"github.com/clinicore/phi-gate/pkg/ratelimit"
	"github.com/clinicore/phi-gate/pkg/security"
	"github.com/clinicore/phi-gate/pkg/token"
)

// Config tunes lockout behavior
type Config struct {
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockoutDuration   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxFailedAttempts: 5,
		FailureWindow:     15 * time.Minute,
		LockoutDuration:   30 * time.Minute,
	}
}

// Service verifies credentials and walks a login through rate
// limiting, lockout, password check, the MFA gate and finally session
// issuance.
type Service struct {
	principals repository.PrincipalRepository
	attempts   repository.LoginAttemptRepository
	lockouts   repository.LockoutRepository
	sessions   *session.Service
	gate       *mfa.Service
	tokens     *token.Service
	hasher     security.PasswordHasher
	limiter    ratelimit.Limiter
	auditor    *audit.Service
	cfg        Config
	metrics    *metrics.Metrics
}

func NewService(
	principals repository.PrincipalRepository,
	attempts repository.LoginAttemptRepository,
	lockouts repository.LockoutRepository,
	sessions *session.Service,
	gate *mfa.Service,
	tokens *token.Service,
	hasher security.PasswordHasher,
	limiter ratelimit.Limiter,
	auditor *audit.Service,
	cfg Config,
	m *metrics.Metrics,
) *Service {
	if cfg.MaxFailedAttempts == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		principals: principals,
		attempts:   attempts,
		lockouts:   lockouts,
		sessions:   sessions,
		gate:       gate,
		tokens:     tokens,
		hasher:     hasher,
		limiter:    limiter,
		auditor:    auditor,
		cfg:        cfg,
		metrics:    m,
	}
}

// Authenticate runs the full credential check. The ordering matters:
// rate limiting and lockout lookups happen before any password
// comparison so a locked identity costs no bcrypt work and leaks no
// timing signal about the stored hash.
func (s *Service) Authenticate(ctx context.Context, email, password, ip, userAgent string) (*model.AuthResult, error) {
	allowed, err := s.limiter.Allow(ctx, email, ratelimit.ClassLogin)
	if err != nil {
		return nil, apperrors.System(err)
	}
	if !allowed {
		s.recordAttempt(ctx, email, nil, ip, userAgent, false, model.FailureRateLimited)
		s.countLogin("rate_limited")
		return nil, apperrors.RateLimited("too many login attempts, try again later")
	}

	lockout, err := s.lockouts.FindActive(ctx, email, ip, time.Now())
	if err != nil {
		return nil, apperrors.System(err)
	}
	if lockout != nil {
		s.recordAttempt(ctx, email, nil, ip, userAgent, false, model.FailureLockedOut)
		s.countLogin("locked_out")
		return nil, apperrors.LockedOut(fmt.Sprintf("account locked until %s", lockout.UnlockAt.Format(time.RFC3339)))
	}

	principal, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		s.recordAttempt(ctx, email, nil, ip, userAgent, false, model.FailureUserNotFound)
		s.registerFailure(ctx, email, ip)
		s.countLogin("not_found")
		return nil, apperrors.AuthenticationFailed("invalid credentials")
	}

	if !principal.IsActive() {
		s.recordAttempt(ctx, email, &principal.ID, ip, userAgent, false, model.FailureInactiveAccount)
		s.countLogin("inactive")
		return nil, apperrors.AuthenticationFailed("account is not active")
	}

	if err := s.hasher.Compare(principal.PasswordHash, password); err != nil {
		s.recordAttempt(ctx, email, &principal.ID, ip, userAgent, false, model.FailureBadPassword)
		s.registerFailure(ctx, email, ip)
		s.countLogin("bad_password")
		return nil, apperrors.AuthenticationFailed("invalid credentials")
	}

	// Success clears every lockout scoped to this email or source IP.
	if err := s.lockouts.DeleteForScope(ctx, email, ip); err != nil {
		return nil, apperrors.System(err)
	}

	s.recordAttempt(ctx, email, &principal.ID, ip, userAgent, true, "")
	if err := s.principals.UpdateLastLogin(ctx, principal.ID, time.Now()); err != nil {
		return nil, apperrors.System(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      principal.ID,
		Action:       model.AuditActionLogin,
		ResourceType: model.AuditEntityPrincipal,
		ResourceID:   principal.ID.String(),
		Success:      true,
		Reason:       "credentials verified",
		IPAddress:    ip,
		UserAgent:    userAgent,
	})

	switch s.gate.Evaluate(principal) {
	case mfa.ResultSetupRequired:
		s.countLogin("mfa_setup_required")
		return &model.AuthResult{Outcome: model.AuthOutcomeMFASetup, Principal: principal}, nil

	case mfa.ResultDenied:
		s.countLogin("mfa_grace_expired")
		return nil, apperrors.AuthenticationFailed("multi-factor enrollment grace period has expired")

	case mfa.ResultChallenge:
		s.countLogin("mfa_required")
		return &model.AuthResult{Outcome: model.AuthOutcomeMFARequired, Principal: principal}, nil
	}

	return s.establishSession(ctx, principal, ip, userAgent)
}

// CompleteMFA finishes a login held at the MFA gate. A session exists
// only after the code verifies.
func (s *Service) CompleteMFA(ctx context.Context, principalID uuid.UUID, code, ip, userAgent string) (*model.AuthResult, error) {
	principal, err := s.principals.Get(ctx, principalID)
	if err != nil {
		return nil, apperrors.AuthenticationFailed("invalid credentials")
	}
	if !principal.IsActive() {
		return nil, apperrors.AuthenticationFailed("account is not active")
	}

	if err := s.gate.VerifyCode(ctx, principal, code); err != nil {
		return nil, err
	}

	return s.establishSession(ctx, principal, ip, userAgent)
}

// Logout terminates the session behind the token
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	return s.sessions.Terminate(ctx, sessionToken, model.TerminationLogout)
}

func (s *Service) establishSession(ctx context.Context, principal *model.Principal, ip, userAgent string) (*model.AuthResult, error) {
	sess, err := s.sessions.Create(ctx, principal, ip, userAgent)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.GenerateAccessToken(principal.ID, string(principal.Role))
	if err != nil {
		return nil, apperrors.System(err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(principal.ID, string(principal.Role))
	if err != nil {
		return nil, apperrors.System(err)
	}

	s.countLogin("success")

	return &model.AuthResult{
		Outcome:      model.AuthOutcomeSuccess,
		Principal:    principal,
		SessionToken: sess.Token,
		Tokens: &model.TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
		},
	}, nil
}

// registerFailure counts failures over the trailing window and creates
// the lockout when the threshold is reached. The lockout row itself
// pre-empts later attempts, so at most one row exists per episode.
func (s *Service) registerFailure(ctx context.Context, email, ip string) {
	since := time.Now().Add(-s.cfg.FailureWindow)
	count, err := s.attempts.CountFailuresSince(ctx, email, ip, since)
	if err != nil || count < s.cfg.MaxFailedAttempts {
		return
	}

	now := time.Now()
	lockout := &model.Lockout{
		ID:             uuid.New(),
		Email:          &email,
		IPAddress:      &ip,
		Reason:         fmt.Sprintf("%d failed login attempts within %s", count, s.cfg.FailureWindow),
		FailedAttempts: count,
		UnlockAt:       now.Add(s.cfg.LockoutDuration),
		CreatedAt:      now,
	}

	if err := s.lockouts.Create(ctx, lockout); err != nil {
		return
	}

	if s.metrics != nil {
		s.metrics.LockoutsCreated.Inc()
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      uuid.Nil,
		Action:       model.AuditActionCreate,
		ResourceType: model.AuditEntitySecurity,
		ResourceID:   lockout.ID.String(),
		Success:      true,
		Reason:       lockout.Reason,
		Severity:     model.SeverityHigh,
		Metadata:     map[string]interface{}{"email": email, "ip": ip, "unlock_at": lockout.UnlockAt},
		IPAddress:    ip,
	})
}

func (s *Service) recordAttempt(ctx context.Context, email string, principalID *uuid.UUID, ip, userAgent string, success bool, failureReason string) {
	attempt := &model.LoginAttempt{
		ID:          uuid.New(),
		Email:       email,
		PrincipalID: principalID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		Success:     success,
		CreatedAt:   time.Now(),
	}
	if failureReason != "" {
		attempt.FailureReason = &failureReason
	}

	// Attempt records feed the lockout window; a write failure here is
	// logged through the audit side channel rather than failing login.
	if err := s.attempts.Create(ctx, attempt); err != nil && !errors.Is(err, context.Canceled) {
		s.auditor.Log(ctx, audit.Entry{
			ActorID:      uuid.Nil,
			Action:       model.AuditActionCreate,
			ResourceType: model.AuditEntitySecurity,
			ResourceID:   attempt.ID.String(),
			Success:      false,
			Reason:       "failed to persist login attempt",
			ErrorMessage: err.Error(),
		})
	}
}

func (s *Service) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

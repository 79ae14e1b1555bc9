package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/internal/service/audit"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
	"github.com/clinicore/phi-gate/pkg/metrics"
)

const (
	// timeoutWarningThreshold is how close to expiry a validation
	// starts flagging the caller to warn the user.
	timeoutWarningThreshold = 5 * time.Minute

	// idleCap deactivates sessions with no activity for a day even if
	// renewals kept the expiry alive.
	idleCap = 24 * time.Hour

	sessionTokenBytes = 32
)

// Config tunes session lifecycle behavior
type Config struct {
	Timeout         time.Duration
	MaxConcurrent   int
	AllowConcurrent bool
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:         30 * time.Minute,
		MaxConcurrent:   3,
		AllowConcurrent: true,
		CleanupInterval: 5 * time.Minute,
	}
}

// Service manages login sessions: issuance, renew-on-access
// validation, termination and periodic cleanup.
type Service struct {
	sessions repository.SessionRepository
	lockouts repository.LockoutRepository
	auditor  *audit.Service
	cfg      Config
	metrics  *metrics.Metrics
}

func NewService(sessions repository.SessionRepository, lockouts repository.LockoutRepository,
	auditor *audit.Service, cfg Config, m *metrics.Metrics) *Service {
	if cfg.Timeout == 0 {
		cfg = DefaultConfig()
	}
	return &Service{
		sessions: sessions,
		lockouts: lockouts,
		auditor:  auditor,
		cfg:      cfg,
		metrics:  m,
	}
}

// Create issues a new session for the principal. When concurrent
// sessions are disallowed every other active session is displaced
// first; otherwise the concurrency ceiling applies.
func (s *Service) Create(ctx context.Context, principal *model.Principal, ip, userAgent string) (*model.Session, error) {
	if !s.cfg.AllowConcurrent {
		if err := s.TerminateAll(ctx, principal.ID, model.TerminationDisplaced); err != nil {
			return nil, apperrors.System(err)
		}
	} else if s.cfg.MaxConcurrent > 0 {
		active, err := s.sessions.ListActiveByPrincipal(ctx, principal.ID)
		if err != nil {
			return nil, apperrors.System(err)
		}
		if len(active) >= s.cfg.MaxConcurrent {
			return nil, apperrors.Conflict(fmt.Sprintf("concurrent session limit of %d reached", s.cfg.MaxConcurrent))
		}
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, apperrors.System(err)
	}

	now := time.Now()
	session := &model.Session{
		ID:             uuid.New(),
		Token:          token,
		PrincipalID:    principal.ID,
		IPAddress:      ip,
		UserAgent:      userAgent,
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.cfg.Timeout),
		LastActivityAt: now,
		Active:         true,
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.System(err)
	}

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.ActiveSessions.Inc()
	}

	return session, nil
}

// Validate checks a session token and, when valid, slides the expiry
// forward by the full timeout window (renew-on-access).
func (s *Service) Validate(ctx context.Context, token string) (*model.SessionStatus, error) {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return &model.SessionStatus{Valid: false}, nil
	}

	now := time.Now()
	if !session.Active || session.ExpiresAt.Before(now) {
		return &model.SessionStatus{Valid: false}, nil
	}

	remaining := session.ExpiresAt.Sub(now)
	status := &model.SessionStatus{
		Valid:               true,
		Session:             session,
		PrincipalID:         session.PrincipalID,
		MinutesUntilTimeout: int(remaining.Minutes()),
		TimeoutWarning:      remaining <= timeoutWarningThreshold,
	}

	newExpiry := now.Add(s.cfg.Timeout)
	if err := s.sessions.ExtendExpiry(ctx, session.ID, newExpiry, now); err != nil {
		// Renewal failure leaves the old expiry in place; the session
		// is still valid for this request.
		return status, nil
	}
	session.ExpiresAt = newExpiry
	session.LastActivityAt = now

	return status, nil
}

// Terminate deactivates the session behind a token. Idempotent:
// terminating an already-dead session is a no-op.
func (s *Service) Terminate(ctx context.Context, token, reason string) error {
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil
	}
	if !session.Active {
		return nil
	}

	if err := s.sessions.Terminate(ctx, session.ID, reason, time.Now()); err != nil {
		return apperrors.System(err)
	}

	if s.metrics != nil {
		s.metrics.SessionsTerminated.WithLabelValues(reason).Inc()
		s.metrics.ActiveSessions.Dec()
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      session.PrincipalID,
		Action:       model.AuditActionLogout,
		ResourceType: model.AuditEntitySession,
		ResourceID:   session.ID.String(),
		Success:      true,
		Reason:       reason,
		IPAddress:    session.IPAddress,
		UserAgent:    session.UserAgent,
	})

	return nil
}

// TerminateAll deactivates every active session of a principal
func (s *Service) TerminateAll(ctx context.Context, principalID uuid.UUID, reason string) error {
	active, err := s.sessions.ListActiveByPrincipal(ctx, principalID)
	if err != nil {
		return apperrors.System(err)
	}

	now := time.Now()
	for _, session := range active {
		if err := s.sessions.Terminate(ctx, session.ID, reason, now); err != nil {
			return apperrors.System(err)
		}
		if s.metrics != nil {
			s.metrics.SessionsTerminated.WithLabelValues(reason).Inc()
			s.metrics.ActiveSessions.Dec()
		}
		s.auditor.Log(ctx, audit.Entry{
			ActorID:      principalID,
			Action:       model.AuditActionLogout,
			ResourceType: model.AuditEntitySession,
			ResourceID:   session.ID.String(),
			Success:      true,
			Reason:       reason,
		})
	}

	return nil
}

// CleanupExpired is the periodic batch pass run by the worker: it
// deactivates sessions past expiry or idle beyond the cap, and sweeps
// lockouts whose unlock time has passed.
func (s *Service) CleanupExpired(ctx context.Context) (sessions, lockouts int64, err error) {
	now := time.Now()

	sessions, err = s.sessions.DeactivateExpired(ctx, now, now.Add(-idleCap))
	if err != nil {
		return 0, 0, fmt.Errorf("session cleanup: %w", err)
	}

	lockouts, err = s.lockouts.DeleteExpired(ctx, now)
	if err != nil {
		return sessions, 0, fmt.Errorf("lockout cleanup: %w", err)
	}

	return sessions, lockouts, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

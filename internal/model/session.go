package model

import (
	"time"

	"github.com/google/uuid"
)

// Session termination reasons
const (
	TerminationLogout     = "user logout"
	TerminationExpired    = "session expired"
	TerminationIdle       = "idle timeout"
	TerminationDisplaced  = "new session created"
	TerminationAdminForce = "terminated by administrator"
)

// Session is a server-side login session keyed by an opaque
// high-entropy token. The signed access token minted alongside it is a
// separate artifact (pkg/token) and is never stored here.
type Session struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Token             string     `json:"-" db:"token"`
	PrincipalID       uuid.UUID  `json:"principal_id" db:"principal_id"`
	IPAddress         string     `json:"ip_address" db:"ip_address"`
	UserAgent         string     `json:"user_agent" db:"user_agent"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	ExpiresAt         time.Time  `json:"expires_at" db:"expires_at"`
	LastActivityAt    time.Time  `json:"last_activity_at" db:"last_activity_at"`
	Active            bool       `json:"active" db:"active"`
	TerminatedAt      *time.Time `json:"terminated_at,omitempty" db:"terminated_at"`
	TerminationReason *string    `json:"termination_reason,omitempty" db:"termination_reason"`
}

// SessionStatus is the result of validating a session token
type SessionStatus struct {
	Valid               bool      `json:"valid"`
	Session             *Session  `json:"session,omitempty"`
	MinutesUntilTimeout int       `json:"minutes_until_timeout"`
	TimeoutWarning      bool      `json:"timeout_warning"`
	PrincipalID         uuid.UUID `json:"principal_id,omitempty"`
}

// LoginAttempt is an append-only record of an authentication attempt
type LoginAttempt struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Email         string     `json:"email" db:"email"`
	PrincipalID   *uuid.UUID `json:"principal_id,omitempty" db:"principal_id"`
	IPAddress     string     `json:"ip_address" db:"ip_address"`
	UserAgent     string     `json:"user_agent" db:"user_agent"`
	Success       bool       `json:"success" db:"success"`
	FailureReason *string    `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// Login failure reasons recorded on attempts
const (
	FailureUserNotFound    = "user not found"
	FailureBadPassword     = "invalid password"
	FailureInactiveAccount = "account inactive"
	FailureLockedOut       = "account locked"
	FailureRateLimited     = "rate limited"
)

// Lockout blocks authentication for an email and/or source IP once the
// sliding-window failure threshold is reached. Rows past UnlockAt are
// dead and lazily deleted on the next lookup.
type Lockout struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Email          *string   `json:"email,omitempty" db:"email"`
	IPAddress      *string   `json:"ip_address,omitempty" db:"ip_address"`
	Reason         string    `json:"reason" db:"reason"`
	FailedAttempts int       `json:"failed_attempts" db:"failed_attempts"`
	UnlockAt       time.Time `json:"unlock_at" db:"unlock_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Expired reports whether the lockout no longer blocks anything
func (l *Lockout) Expired(now time.Time) bool {
	return l.UnlockAt.Before(now)
}

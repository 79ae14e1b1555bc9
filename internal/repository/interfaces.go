package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
)

// All repository interfaces in one file
type (
	// PrincipalRepository handles identity lookups
	PrincipalRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Principal, error)
		GetByEmail(ctx context.Context, email string) (*model.Principal, error)
		Create(ctx context.Context, principal *model.Principal) error
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		GetByToken(ctx context.Context, token string) (*model.Session, error)
		ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt, lastActivity time.Time) error
		Terminate(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
		ListActiveByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*model.Session, error)
		DeactivateExpired(ctx context.Context, now time.Time, idleCutoff time.Time) (int64, error)
	}

	LoginAttemptRepository interface {
		Create(ctx context.Context, attempt *model.LoginAttempt) error
		CountFailuresSince(ctx context.Context, email, ip string, since time.Time) (int, error)
	}

	LockoutRepository interface {
		Create(ctx context.Context, lockout *model.Lockout) error
		// FindActive returns the first lockout matching email or ip that
		// has not passed UnlockAt; expired rows encountered on the way
		// are deleted.
		FindActive(ctx context.Context, email, ip string, now time.Time) (*model.Lockout, error)
		DeleteForScope(ctx context.Context, email, ip string) error
		DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	}

	ConsentRepository interface {
		Create(ctx context.Context, record *model.ConsentRecord) error
		Update(ctx context.Context, record *model.ConsentRecord) error
		// GetActive returns the most recently granted active record for
		// the pair, or nil when none exists.
		GetActive(ctx context.Context, patientID uuid.UUID, consentType model.ConsentType, now time.Time) (*model.ConsentRecord, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ConsentRecord, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, entry *model.AuditLogEntry) error
		Report(ctx context.Context, start, end time.Time, filters *model.AuditReportFilters) (*model.AuditReport, error)
		CountPatientReadsByActor(ctx context.Context, since time.Time, minCount int64) ([]model.ActorAccessCount, error)
		ListFailedSince(ctx context.Context, since time.Time) ([]*model.AuditLogEntry, error)
		DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// RelationshipRepository backs the treatment-relationship stage and
	// the personal-representative check on consent revocation
	RelationshipRepository interface {
		HasTreatingAppointment(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
		SharesCareUnit(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error)
		HasActiveLabOrder(ctx context.Context, patientID uuid.UUID) (bool, error)
		IsAuthorizedRepresentative(ctx context.Context, patientID, callerID uuid.UUID) (bool, error)
	}
)

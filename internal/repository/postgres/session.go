package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

type sessionRepository struct {
	BaseRepository
}

func NewSessionRepository(base BaseRepository) repository.SessionRepository {
	return &sessionRepository{base}
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
        INSERT INTO sessions (
            id, token, principal_id, ip_address, user_agent,
            created_at, expires_at, last_activity_at, active
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		session.ID,
		session.Token,
		session.PrincipalID,
		session.IPAddress,
		session.UserAgent,
		session.CreatedAt,
		session.ExpiresAt,
		session.LastActivityAt,
		session.Active,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (*model.Session, error) {
	query := `SELECT * FROM sessions WHERE token = $1`

	var session model.Session
	if err := r.GetDB().GetContext(ctx, &session, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// ExtendExpiry slides the expiry forward; the WHERE clause keeps it
// from ever moving expiry backwards under concurrent validation.
func (r *sessionRepository) ExtendExpiry(ctx context.Context, id uuid.UUID, expiresAt, lastActivity time.Time) error {
	query := `
        UPDATE sessions
        SET expires_at = $2, last_activity_at = $3
        WHERE id = $1 AND active = true AND expires_at < $2
    `

	if _, err := r.GetDB().ExecContext(ctx, query, id, expiresAt, lastActivity); err != nil {
		return fmt.Errorf("failed to extend session: %w", err)
	}

	return nil
}

func (r *sessionRepository) Terminate(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	query := `
        UPDATE sessions
        SET active = false, terminated_at = $2, termination_reason = $3
        WHERE id = $1 AND active = true
    `

	if _, err := r.GetDB().ExecContext(ctx, query, id, at, reason); err != nil {
		return fmt.Errorf("failed to terminate session: %w", err)
	}

	return nil
}

func (r *sessionRepository) ListActiveByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*model.Session, error) {
	query := `
        SELECT * FROM sessions
        WHERE principal_id = $1 AND active = true AND expires_at > now()
        ORDER BY created_at DESC
    `

	var sessions []*model.Session
	if err := r.GetDB().SelectContext(ctx, &sessions, query, principalID); err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time, idleCutoff time.Time) (int64, error) {
	query := `
        UPDATE sessions
        SET active = false,
            terminated_at = $1,
            termination_reason = CASE WHEN expires_at < $1 THEN $3 ELSE $4 END
        WHERE active = true AND (expires_at < $1 OR last_activity_at < $2)
    `

	result, err := r.GetDB().ExecContext(ctx, query, now, idleCutoff,
		model.TerminationExpired, model.TerminationIdle)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired sessions: %w", err)
	}

	return result.RowsAffected()
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

type lockoutRepository struct {
	BaseRepository
}

func NewLockoutRepository(base BaseRepository) repository.LockoutRepository {
	return &lockoutRepository{base}
}

func (r *lockoutRepository) Create(ctx context.Context, lockout *model.Lockout) error {
	query := `
        INSERT INTO lockouts (
            id, email, ip_address, reason, failed_attempts, unlock_at, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	var email *string
	if lockout.Email != nil {
		lowered := strings.ToLower(*lockout.Email)
		email = &lowered
	}

	_, err := r.GetDB().ExecContext(ctx, query,
		lockout.ID,
		email,
		lockout.IPAddress,
		lockout.Reason,
		lockout.FailedAttempts,
		lockout.UnlockAt,
		lockout.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create lockout: %w", err)
	}

	return nil
}

// FindActive looks up a live lockout for the email or IP. Expired rows
// are lazily swept first so they never block a login.
func (r *lockoutRepository) FindActive(ctx context.Context, email, ip string, now time.Time) (*model.Lockout, error) {
	sweep := `DELETE FROM lockouts WHERE unlock_at < $1`
	if _, err := r.GetDB().ExecContext(ctx, sweep, now); err != nil {
		return nil, fmt.Errorf("failed to sweep expired lockouts: %w", err)
	}

	query := `
        SELECT * FROM lockouts
        WHERE unlock_at >= $3 AND (lower(email) = $1 OR ip_address = $2)
        ORDER BY unlock_at DESC
        LIMIT 1
    `

	var lockout model.Lockout
	if err := r.GetDB().GetContext(ctx, &lockout, query, strings.ToLower(email), ip, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find lockout: %w", err)
	}

	return &lockout, nil
}

func (r *lockoutRepository) DeleteForScope(ctx context.Context, email, ip string) error {
	query := `DELETE FROM lockouts WHERE lower(email) = $1 OR ip_address = $2`

	if _, err := r.GetDB().ExecContext(ctx, query, strings.ToLower(email), ip); err != nil {
		return fmt.Errorf("failed to clear lockouts: %w", err)
	}

	return nil
}

func (r *lockoutRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM lockouts WHERE unlock_at < $1`

	result, err := r.GetDB().ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired lockouts: %w", err)
	}

	return result.RowsAffected()
}

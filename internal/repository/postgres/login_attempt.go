package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

type loginAttemptRepository struct {
	BaseRepository
}

func NewLoginAttemptRepository(base BaseRepository) repository.LoginAttemptRepository {
	return &loginAttemptRepository{base}
}

func (r *loginAttemptRepository) Create(ctx context.Context, attempt *model.LoginAttempt) error {
	query := `
        INSERT INTO login_attempts (
            id, email, principal_id, ip_address, user_agent,
            success, failure_reason, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		attempt.ID,
		strings.ToLower(attempt.Email),
		attempt.PrincipalID,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.Success,
		attempt.FailureReason,
		attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	return nil
}

// CountFailuresSince counts failures for the email OR the source IP in
// the trailing window; either dimension reaching the threshold locks.
func (r *loginAttemptRepository) CountFailuresSince(ctx context.Context, email, ip string, since time.Time) (int, error) {
	query := `
        SELECT COUNT(*) FROM login_attempts
        WHERE success = false
          AND created_at >= $3
          AND (lower(email) = $1 OR ip_address = $2)
    `

	var count int
	if err := r.GetDB().GetContext(ctx, &count, query, strings.ToLower(email), ip, since); err != nil {
		return 0, fmt.Errorf("failed to count login failures: %w", err)
	}

	return count, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

var ErrNotFound = errors.New("not found")

type principalRepository struct {
	BaseRepository
}

func NewPrincipalRepository(base BaseRepository) repository.PrincipalRepository {
	return &principalRepository{base}
}

func (r *principalRepository) Get(ctx context.Context, id uuid.UUID) (*model.Principal, error) {
	query := `SELECT * FROM principals WHERE id = $1 AND deleted_at IS NULL`

	var principal model.Principal
	if err := r.GetDB().GetContext(ctx, &principal, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get principal: %w", err)
	}

	return &principal, nil
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*model.Principal, error) {
	query := `SELECT * FROM principals WHERE lower(email) = $1 AND deleted_at IS NULL`

	var principal model.Principal
	if err := r.GetDB().GetContext(ctx, &principal, query, strings.ToLower(email)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get principal by email: %w", err)
	}

	return &principal, nil
}

func (r *principalRepository) Create(ctx context.Context, principal *model.Principal) error {
	query := `
        INSERT INTO principals (
            id, email, name, password_hash, role, status,
            department_id, mfa_enabled, mfa_secret, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		principal.ID,
		strings.ToLower(principal.Email),
		principal.Name,
		principal.PasswordHash,
		principal.Role,
		principal.Status,
		principal.DepartmentID,
		principal.MFAEnabled,
		principal.MFASecret,
		principal.CreatedAt,
		principal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create principal: %w", err)
	}

	return nil
}

func (r *principalRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE principals SET last_login_at = $2, updated_at = $2 WHERE id = $1`

	if _, err := r.GetDB().ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}

	return nil
}

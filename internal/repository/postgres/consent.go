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

type consentRepository struct {
	BaseRepository
}

func NewConsentRepository(base BaseRepository) repository.ConsentRepository {
	return &consentRepository{base}
}

func (r *consentRepository) Create(ctx context.Context, record *model.ConsentRecord) error {
	query := `
        INSERT INTO consent_records (
            id, patient_id, consent_type, status, consent_text, version,
            granted_at, revoked_at, expires_at, granted_by, digital_signature,
            legal_basis, purpose_of_use, data_categories, restrictions
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
    `

	_, err := r.GetDB().ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.ConsentType,
		record.Status,
		record.ConsentText,
		record.Version,
		record.GrantedAt,
		record.RevokedAt,
		record.ExpiresAt,
		record.GrantedBy,
		record.DigitalSignature,
		record.LegalBasis,
		record.PurposeOfUse,
		record.DataCategories,
		record.Restrictions,
	)
	if err != nil {
		return fmt.Errorf("failed to create consent record: %w", err)
	}

	return nil
}

func (r *consentRepository) Update(ctx context.Context, record *model.ConsentRecord) error {
	query := `
        UPDATE consent_records
        SET status = $2, revoked_at = $3, revocation_reason = $4, restrictions = $5
        WHERE id = $1
    `

	result, err := r.GetDB().ExecContext(ctx, query,
		record.ID,
		record.Status,
		record.RevokedAt,
		record.RevocationReason,
		record.Restrictions,
	)
	if err != nil {
		return fmt.Errorf("failed to update consent record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *consentRepository) GetActive(ctx context.Context, patientID uuid.UUID, consentType model.ConsentType, now time.Time) (*model.ConsentRecord, error) {
	query := `
        SELECT * FROM consent_records
        WHERE patient_id = $1
          AND consent_type = $2
          AND status = $3
          AND (expires_at IS NULL OR expires_at > $4)
        ORDER BY granted_at DESC
        LIMIT 1
    `

	var record model.ConsentRecord
	err := r.GetDB().GetContext(ctx, &record, query, patientID, consentType, model.ConsentStatusGranted, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active consent: %w", err)
	}

	return &record, nil
}

func (r *consentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ConsentRecord, error) {
	query := `
        SELECT * FROM consent_records
        WHERE patient_id = $1
        ORDER BY granted_at DESC
    `

	var records []*model.ConsentRecord
	if err := r.GetDB().SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list consent records: %w", err)
	}

	return records, nil
}

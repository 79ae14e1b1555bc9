package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
)

func TestConsentCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsentRepository(NewBaseRepository(db))

	record := &model.ConsentRecord{
		ID:               uuid.New(),
		PatientID:        uuid.New(),
		ConsentType:      model.ConsentHIPAAPrivacy,
		Status:           model.ConsentStatusGranted,
		ConsentText:      "privacy practices acknowledged",
		Version:          "1.0",
		GrantedAt:        time.Now(),
		GrantedBy:        uuid.New(),
		DigitalSignature: "deadbeef",
		DataCategories:   pq.StringArray{"LAB_RESULTS"},
	}

	mock.ExpectExec(`INSERT INTO consent_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), record))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentGetActive(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsentRepository(NewBaseRepository(db))

	patientID := uuid.New()
	now := time.Now()
	recordID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "patient_id", "consent_type", "status", "consent_text", "version",
		"granted_at", "revoked_at", "expires_at", "granted_by", "digital_signature",
		"legal_basis", "purpose_of_use", "data_categories", "restrictions", "revocation_reason",
	}).AddRow(
		recordID, patientID, string(model.ConsentTreatment), string(model.ConsentStatusGranted),
		"treatment consent", "1.0", now.Add(-time.Hour), nil, nil, patientID,
		"deadbeef", "", "{}", "{}", "{}", nil,
	)

	mock.ExpectQuery(`SELECT \* FROM consent_records`).
		WithArgs(patientID, model.ConsentTreatment, model.ConsentStatusGranted, now).
		WillReturnRows(rows)

	record, err := repo.GetActive(context.Background(), patientID, model.ConsentTreatment, now)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, recordID, record.ID)
	assert.True(t, record.IsActive(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentGetActiveReturnsNilWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsentRepository(NewBaseRepository(db))

	patientID := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT \* FROM consent_records`).
		WithArgs(patientID, model.ConsentResearch, model.ConsentStatusGranted, now).
		WillReturnError(sql.ErrNoRows)

	record, err := repo.GetActive(context.Background(), patientID, model.ConsentResearch, now)
	require.NoError(t, err)
	assert.Nil(t, record)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsentUpdateMissingRowIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConsentRepository(NewBaseRepository(db))

	now := time.Now()
	reason := "changed my mind"
	record := &model.ConsentRecord{
		ID:               uuid.New(),
		Status:           model.ConsentStatusRevoked,
		RevokedAt:        &now,
		RevocationReason: &reason,
	}

	mock.ExpectExec(`UPDATE consent_records`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), record)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

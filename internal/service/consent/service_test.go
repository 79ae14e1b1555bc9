package consent

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
	auditService "github.com/clinicore/phi-gate/internal/service/audit"
	"github.com/clinicore/phi-gate/pkg/alert"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
	"github.com/clinicore/phi-gate/pkg/logger"
)

type memoryConsents struct {
	records map[uuid.UUID]*model.ConsentRecord
}

func newMemoryConsents() *memoryConsents {
	return &memoryConsents{records: make(map[uuid.UUID]*model.ConsentRecord)}
}

func (m *memoryConsents) Create(_ context.Context, record *model.ConsentRecord) error {
	m.records[record.ID] = record
	return nil
}

func (m *memoryConsents) Update(_ context.Context, record *model.ConsentRecord) error {
	m.records[record.ID] = record
	return nil
}

func (m *memoryConsents) GetActive(_ context.Context, patientID uuid.UUID, typ model.ConsentType, now time.Time) (*model.ConsentRecord, error) {
	var newest *model.ConsentRecord
	for _, r := range m.records {
		if r.PatientID != patientID || r.ConsentType != typ || !r.IsActive(now) {
			continue
		}
		if newest == nil || r.GrantedAt.After(newest.GrantedAt) {
			newest = r
		}
	}
	return newest, nil
}

func (m *memoryConsents) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*model.ConsentRecord, error) {
	var out []*model.ConsentRecord
	for _, r := range m.records {
		if r.PatientID == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memoryAudits struct {
	entries []*model.AuditLogEntry
}

func (m *memoryAudits) Create(_ context.Context, entry *model.AuditLogEntry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryAudits) Report(context.Context, time.Time, time.Time, *model.AuditReportFilters) (*model.AuditReport, error) {
	return &model.AuditReport{}, nil
}

func (m *memoryAudits) CountPatientReadsByActor(context.Context, time.Time, int64) ([]model.ActorAccessCount, error) {
	return nil, nil
}

func (m *memoryAudits) ListFailedSince(context.Context, time.Time) ([]*model.AuditLogEntry, error) {
	return nil, nil
}

func (m *memoryAudits) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

type staticReps struct{ ok bool }

func (r staticReps) IsAuthorizedRepresentative(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return r.ok, nil
}

func newConsentFixture(reps RepresentativeChecker) (*Service, *memoryConsents, *memoryAudits) {
	repo := newMemoryConsents()
	audits := &memoryAudits{}
	auditor := auditService.NewService(audits, alert.NopNotifier{}, logger.Nop(), nil)
	return NewService(repo, auditor, reps), repo, audits
}

func TestGrantRecordsSignedConsent(t *testing.T) {
	svc, _, audits := newConsentFixture(staticReps{})
	patientID := uuid.New()

	record, err := svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentHIPAAPrivacy,
		ConsentText: "I consent to the use of my health information.",
	})

	require.NoError(t, err)
	assert.Equal(t, model.ConsentStatusGranted, record.Status)
	assert.Equal(t, "1.0", record.Version)
	assert.Len(t, record.DigitalSignature, 64)
	assert.True(t, record.IsActive(time.Now()))
	require.Len(t, audits.entries, 1)
	assert.Equal(t, model.AuditActionCreate, audits.entries[0].Action)
}

func TestGrantRejectsDuplicateActiveConsent(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{})
	patientID := uuid.New()

	req := &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		ConsentText: "treatment consent",
	}

	_, err := svc.Grant(context.Background(), patientID, req)
	require.NoError(t, err)

	_, err = svc.Grant(context.Background(), patientID, req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
}

func TestGrantRejectsPastExpiry(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{})
	patientID := uuid.New()
	past := time.Now().Add(-time.Hour)

	_, err := svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentResearch,
		ConsentText: "research consent",
		ExpiresAt:   &past,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrValidation, apperrors.CodeOf(err))
}

func TestRevokeThenRegrant(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{})
	patientID := uuid.New()

	req := &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentDataSharing,
		ConsentText: "data sharing consent",
	}

	_, err := svc.Grant(context.Background(), patientID, req)
	require.NoError(t, err)

	revoked, err := svc.Revoke(context.Background(), patientID, &model.RevokeConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentDataSharing,
		Reason:      "changed my mind",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConsentStatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)
	assert.Contains(t, revoked.Restrictions, "REVOKED_BY_"+patientID.String())

	check, err := svc.Check(context.Background(), patientID, model.ConsentDataSharing)
	require.NoError(t, err)
	assert.False(t, check.HasConsent)

	// The revoked record no longer blocks a fresh grant.
	_, err = svc.Grant(context.Background(), patientID, req)
	require.NoError(t, err)
}

func TestRevokeRequiresPatientOrRepresentative(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{ok: false})
	patientID := uuid.New()

	_, err := svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		ConsentText: "treatment consent",
	})
	require.NoError(t, err)

	_, err = svc.Revoke(context.Background(), uuid.New(), &model.RevokeConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		Reason:      "not mine to revoke",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthorization, apperrors.CodeOf(err))
}

func TestRevokeByAuthorizedRepresentative(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{ok: true})
	patientID := uuid.New()

	_, err := svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		ConsentText: "treatment consent",
	})
	require.NoError(t, err)

	revoked, err := svc.Revoke(context.Background(), uuid.New(), &model.RevokeConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		Reason:      "guardian decision",
	})
	require.NoError(t, err)
	assert.Equal(t, model.ConsentStatusRevoked, revoked.Status)
}

func TestCheckExpiredConsentIsInactive(t *testing.T) {
	svc, repo, _ := newConsentFixture(staticReps{})
	patientID := uuid.New()
	expired := time.Now().Add(-time.Minute)

	repo.records[uuid.New()] = &model.ConsentRecord{
		ID:          uuid.New(),
		PatientID:   patientID,
		ConsentType: model.ConsentTreatment,
		Status:      model.ConsentStatusGranted,
		GrantedAt:   time.Now().Add(-time.Hour),
		ExpiresAt:   &expired,
	}

	check, err := svc.Check(context.Background(), patientID, model.ConsentTreatment)
	require.NoError(t, err)
	assert.False(t, check.HasConsent)
}

func TestValidateDataAccess(t *testing.T) {
	svc, _, _ := newConsentFixture(staticReps{})
	patientID := uuid.New()

	// No baseline privacy consent at all.
	ok, reason, err := svc.ValidateDataAccess(context.Background(), patientID, model.CategoryLabResults, "treatment")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "HIPAA privacy")

	_, err = svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentHIPAAPrivacy,
		ConsentText: "privacy practices acknowledged",
	})
	require.NoError(t, err)

	// Baseline only: absent a data-sharing record this path allows.
	ok, _, err = svc.ValidateDataAccess(context.Background(), patientID, model.CategoryLabResults, "treatment")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:      patientID,
		ConsentType:    model.ConsentDataSharing,
		ConsentText:    "sharing limited to lab results for treatment",
		DataCategories: []string{string(model.CategoryLabResults)},
		PurposeOfUse:   []string{"treatment"},
	})
	require.NoError(t, err)

	ok, _, err = svc.ValidateDataAccess(context.Background(), patientID, model.CategoryLabResults, "treatment")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, reason, err = svc.ValidateDataAccess(context.Background(), patientID, model.CategoryDiagnosis, "treatment")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "outside the patient's data-sharing consent")

	ok, reason, err = svc.ValidateDataAccess(context.Background(), patientID, model.CategoryLabResults, "marketing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, reason, "purpose marketing")
}

func TestGetHistoryAuditsTheRead(t *testing.T) {
	svc, _, audits := newConsentFixture(staticReps{})
	patientID := uuid.New()

	_, err := svc.Grant(context.Background(), patientID, &model.GrantConsentRequest{
		PatientID:   patientID,
		ConsentType: model.ConsentHIPAAPrivacy,
		ConsentText: "privacy practices acknowledged",
	})
	require.NoError(t, err)

	caller := uuid.New()
	records, err := svc.GetHistory(context.Background(), caller, patientID)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	var readEntries int
	for _, e := range audits.entries {
		if e.Action == model.AuditActionRead && e.ActorID == caller {
			readEntries++
		}
	}
	assert.Equal(t, 1, readEntries)
}

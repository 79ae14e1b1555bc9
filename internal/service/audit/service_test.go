package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/pkg/logger"
)

type recordingRepo struct {
	entries   []*model.AuditLogEntry
	createErr error
	reads     []model.ActorAccessCount
	failed    []*model.AuditLogEntry
}

func (r *recordingRepo) Create(_ context.Context, entry *model.AuditLogEntry) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *recordingRepo) Report(_ context.Context, start, end time.Time, _ *model.AuditReportFilters) (*model.AuditReport, error) {
	return &model.AuditReport{WindowStart: start, WindowEnd: end}, nil
}

func (r *recordingRepo) CountPatientReadsByActor(context.Context, time.Time, int64) ([]model.ActorAccessCount, error) {
	return r.reads, nil
}

func (r *recordingRepo) ListFailedSince(context.Context, time.Time) ([]*model.AuditLogEntry, error) {
	return r.failed, nil
}

func (r *recordingRepo) DeleteBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *recordingRepo) byAction(action string) []*model.AuditLogEntry {
	var out []*model.AuditLogEntry
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type recordingNotifier struct {
	events []string
	err    error
}

func (n *recordingNotifier) Notify(event, _, _ string) error {
	n.events = append(n.events, event)
	return n.err
}

func newAuditFixture() (*Service, *recordingRepo, *recordingNotifier) {
	repo := &recordingRepo{}
	notifier := &recordingNotifier{}
	return NewService(repo, notifier, logger.Nop(), nil), repo, notifier
}

func TestLogWritesEntryWithDefaults(t *testing.T) {
	svc, repo, _ := newAuditFixture()
	actorID := uuid.New()

	svc.Log(context.Background(), Entry{
		ActorID:      actorID,
		Action:       model.AuditActionUpdate,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   "r1",
		Success:      true,
	})

	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, actorID, entry.ActorID)
	assert.Equal(t, model.SeverityLow, entry.Severity)
	assert.NotEqual(t, uuid.Nil, entry.ID)
}

func TestLogFailureDefaultsToMediumSeverity(t *testing.T) {
	svc, repo, _ := newAuditFixture()

	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionUpdate,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   "r1",
		Success:      false,
		ErrorMessage: "store rejected the update",
	})

	require.Len(t, repo.entries, 1)
	assert.Equal(t, model.SeverityMedium, repo.entries[0].Severity)
	require.NotNil(t, repo.entries[0].ErrorMessage)
}

func TestHighRiskActionRaisesSecurityAlert(t *testing.T) {
	svc, repo, notifier := newAuditFixture()

	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionExport,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   "p1",
		Success:      true,
	})

	alerts := repo.byAction(model.AuditEventSecurityAlert)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)
	assert.Equal(t, []string{model.AuditEventSecurityAlert}, notifier.events)
}

func TestPatientReadWritesAccessCompanion(t *testing.T) {
	svc, repo, notifier := newAuditFixture()
	patientID := uuid.New()

	// Self-access: LOW risk, no alert.
	svc.Log(context.Background(), Entry{
		ActorID:      patientID,
		Action:       model.AuditActionRead,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Success:      true,
	})

	companions := repo.byAction(model.AuditEventPatientDataAccess)
	require.Len(t, companions, 1)
	assert.Equal(t, model.SeverityLow, companions[0].Severity)
	assert.Empty(t, notifier.events)
}

func TestUnexplainedForeignReadRaisesAlert(t *testing.T) {
	svc, repo, notifier := newAuditFixture()
	patientID := uuid.New()

	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionRead,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Success:      true,
		// no Reason given
	})

	companions := repo.byAction(model.AuditEventPatientDataAccess)
	require.Len(t, companions, 1)
	assert.Equal(t, model.SeverityMedium, companions[0].Severity)

	alerts := repo.byAction(model.AuditEventUnauthorizedAccess)
	require.Len(t, alerts, 1)
	assert.Equal(t, []string{model.AuditEventUnauthorizedAccess}, notifier.events)
}

func TestForeignReadWithReasonDoesNotAlert(t *testing.T) {
	svc, repo, notifier := newAuditFixture()
	patientID := uuid.New()

	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionRead,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Reason:       "follow-up visit chart review",
		Success:      true,
	})

	assert.Empty(t, repo.byAction(model.AuditEventUnauthorizedAccess))
	assert.Empty(t, notifier.events)
}

func TestLogSurvivesStoreFailure(t *testing.T) {
	svc, repo, _ := newAuditFixture()
	repo.createErr = errors.New("audit store down")

	// Must not panic or propagate.
	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionCreate,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   "r1",
		Success:      true,
	})

	assert.Empty(t, repo.entries)
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	svc, repo, notifier := newAuditFixture()
	notifier.err = errors.New("smtp down")

	svc.Log(context.Background(), Entry{
		ActorID:      uuid.New(),
		Action:       model.AuditActionDelete,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   "p1",
		Success:      true,
	})

	// The alert row still lands even though fanout failed.
	assert.Len(t, repo.byAction(model.AuditEventSecurityAlert), 1)
}

func TestGenerateAuditReportValidatesWindow(t *testing.T) {
	svc, _, _ := newAuditFixture()
	now := time.Now()

	_, err := svc.GenerateAuditReport(context.Background(), now, now.Add(-time.Hour), nil)
	require.Error(t, err)

	report, err := svc.GenerateAuditReport(context.Background(), now.Add(-time.Hour), now, nil)
	require.NoError(t, err)
	assert.Equal(t, now, report.WindowEnd)
}

func TestDetectSuspiciousActivity(t *testing.T) {
	svc, repo, _ := newAuditFixture()
	hot := uuid.New()
	repo.reads = []model.ActorAccessCount{{ActorID: hot, Count: 73}}
	repo.failed = []*model.AuditLogEntry{{ID: uuid.New(), Success: false}}

	report, err := svc.DetectSuspiciousActivity(context.Background())
	require.NoError(t, err)
	require.Len(t, report.HighVolumeReads, 1)
	assert.Equal(t, hot, report.HighVolumeReads[0].ActorID)
	assert.Len(t, report.FailedActions, 1)
}

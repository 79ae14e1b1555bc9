package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/pkg/alert"
	"github.com/clinicore/phi-gate/pkg/logger"
	"github.com/clinicore/phi-gate/pkg/metrics"
)

const (
	// highVolumeThreshold is the patient-read count per actor in the
	// trailing 24h window that flags an access pattern for review.
	highVolumeThreshold = 50

	suspiciousWindow = 24 * time.Hour
)

// highRiskActions trigger an immediate security alert on top of the
// regular entry.
var highRiskActions = map[string]bool{
	model.AuditActionExport: true,
	model.AuditActionDelete: true,
	model.AuditActionPrint:  true,
}

// Entry is one auditable event. ActorID, Action, ResourceType and
// ResourceID are required; the rest refine classification.
type Entry struct {
	ActorID      uuid.UUID
	Action       string
	ResourceType string
	ResourceID   string
	PatientID    *uuid.UUID
	PHIAccessed  bool
	Reason       string
	Success      bool
	ErrorMessage string
	Severity     string
	Metadata     interface{}
	IPAddress    string
	UserAgent    string
}

// Service is the append-only audit trail plus its alerting side
// effects. Writes are best-effort: a persistence failure is mirrored
// to the process log instead of propagating to the caller, because a
// broken audit store must not take clinical operations down with it.
type Service struct {
	repo     repository.AuditRepository
	notifier alert.Notifier
	log      *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(repo repository.AuditRepository, notifier alert.Notifier, log *logger.Logger, m *metrics.Metrics) *Service {
	if notifier == nil {
		notifier = alert.NopNotifier{}
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log.WithComponent("audit"),
		metrics:  m,
	}
}

// Log appends an entry and fires whatever alerting the entry warrants.
// It never returns an error.
func (s *Service) Log(ctx context.Context, e Entry) {
	entry := s.buildEntry(e)
	s.append(ctx, entry)

	if highRiskActions[e.Action] {
		s.raiseAlert(ctx, e, model.AuditEventSecurityAlert,
			fmt.Sprintf("high-risk action %s on %s %s", e.Action, e.ResourceType, e.ResourceID))
	}

	if e.Action == model.AuditActionRead && e.PatientID != nil {
		s.logPatientAccess(ctx, e)
	}
}

// buildEntry fills in identity and defaults; severity defaults by
// success flag when the caller didn't classify.
func (s *Service) buildEntry(e Entry) *model.AuditLogEntry {
	severity := e.Severity
	if severity == "" {
		severity = model.SeverityLow
		if !e.Success {
			severity = model.SeverityMedium
		}
	}

	var metadata json.RawMessage
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			metadata = raw
		}
	}

	var errMsg *string
	if e.ErrorMessage != "" {
		errMsg = &e.ErrorMessage
	}

	return &model.AuditLogEntry{
		ID:           uuid.New(),
		ActorID:      e.ActorID,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Action:       e.Action,
		PatientID:    e.PatientID,
		PHIAccessed:  e.PHIAccessed,
		Success:      e.Success,
		Reason:       e.Reason,
		ErrorMessage: errMsg,
		Severity:     severity,
		Metadata:     metadata,
		IPAddress:    e.IPAddress,
		UserAgent:    e.UserAgent,
		CreatedAt:    time.Now(),
	}
}

// append writes the row; on failure the entry is mirrored to the
// process log tagged AUDIT_FAILURE as the last-resort side channel.
func (s *Service) append(ctx context.Context, entry *model.AuditLogEntry) {
	if err := s.repo.Create(ctx, entry); err != nil {
		if s.metrics != nil {
			s.metrics.AuditWriteFailures.Inc()
		}
		s.log.Error(err, model.AuditEventAuditFailure, map[string]interface{}{
			"actor_id":      entry.ActorID.String(),
			"action":        entry.Action,
			"resource_type": entry.ResourceType,
			"resource_id":   entry.ResourceID,
			"reason":        entry.Reason,
		})
		return
	}
	if s.metrics != nil {
		s.metrics.AuditWrites.WithLabelValues(entry.ResourceType).Inc()
	}
}

// logPatientAccess writes the PATIENT_DATA_ACCESS companion record for
// any read tied to a patient, classifying self-access and risk. A
// non-self read with no stated reason additionally raises an
// unauthorized-access alert for review.
func (s *Service) logPatientAccess(ctx context.Context, e Entry) {
	isOwnData := e.PatientID != nil && e.ActorID == *e.PatientID

	risk := model.SeverityMedium
	if isOwnData {
		risk = model.SeverityLow
	}

	s.append(ctx, s.buildEntry(Entry{
		ActorID:      e.ActorID,
		Action:       model.AuditEventPatientDataAccess,
		ResourceType: model.AuditEntityPatient,
		ResourceID:   e.PatientID.String(),
		PatientID:    e.PatientID,
		PHIAccessed:  true,
		Reason:       e.Reason,
		Success:      true,
		Severity:     risk,
		Metadata: map[string]interface{}{
			"is_own_data": isOwnData,
			"risk_level":  risk,
			"source":      e.ResourceType,
		},
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
	}))

	if !isOwnData && e.Reason == "" {
		s.raiseAlert(ctx, e, model.AuditEventUnauthorizedAccess,
			fmt.Sprintf("patient data read without stated reason by %s", e.ActorID))
	}
}

// raiseAlert writes the dedicated alert row and fans out to the
// security channel. Fanout failures are logged only.
func (s *Service) raiseAlert(ctx context.Context, e Entry, event, detail string) {
	if s.metrics != nil {
		s.metrics.SecurityAlerts.WithLabelValues(event).Inc()
	}

	s.append(ctx, s.buildEntry(Entry{
		ActorID:      e.ActorID,
		Action:       event,
		ResourceType: model.AuditEntitySecurity,
		ResourceID:   e.ResourceID,
		PatientID:    e.PatientID,
		Reason:       detail,
		Success:      true,
		Severity:     model.SeverityHigh,
		Metadata: map[string]interface{}{
			"origin_action":   e.Action,
			"origin_resource": e.ResourceType,
		},
		IPAddress: e.IPAddress,
		UserAgent: e.UserAgent,
	}))

	if err := s.notifier.Notify(event, detail, fmt.Sprintf("actor=%s resource=%s/%s", e.ActorID, e.ResourceType, e.ResourceID)); err != nil {
		s.log.Error(err, "security alert notification failed", map[string]interface{}{"event": event})
	}
}

// GenerateAuditReport summarizes activity over the window
func (s *Service) GenerateAuditReport(ctx context.Context, start, end time.Time, filters *model.AuditReportFilters) (*model.AuditReport, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("report window end precedes start")
	}
	return s.repo.Report(ctx, start, end, filters)
}

// DetectSuspiciousActivity flags actors with high-volume patient reads
// over the trailing 24 hours and lists all unsuccessful records.
func (s *Service) DetectSuspiciousActivity(ctx context.Context) (*model.SuspiciousActivityReport, error) {
	since := time.Now().Add(-suspiciousWindow)

	highVolume, err := s.repo.CountPatientReadsByActor(ctx, since, highVolumeThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to scan read volume: %w", err)
	}

	failed, err := s.repo.ListFailedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed actions: %w", err)
	}

	return &model.SuspiciousActivityReport{
		GeneratedAt:     time.Now(),
		HighVolumeReads: highVolume,
		FailedActions:   failed,
	}, nil
}

package consent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
	"github.com/clinicore/phi-gate/internal/service/audit"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
)

// RepresentativeChecker answers whether a caller is an authorized
// representative of a patient (healthcare proxy, legal guardian).
// Lookup is delegated; this core only consumes the answer.
type RepresentativeChecker interface {
	IsAuthorizedRepresentative(ctx context.Context, patientID, callerID uuid.UUID) (bool, error)
}

// Service is the patient consent ledger
type Service struct {
	repo    repository.ConsentRepository
	auditor *audit.Service
	reps    RepresentativeChecker
}

func NewService(repo repository.ConsentRepository, auditor *audit.Service, reps RepresentativeChecker) *Service {
	return &Service{
		repo:    repo,
		auditor: auditor,
		reps:    reps,
	}
}

// Grant records a new consent. At most one active record may exist per
// (patient, type); a second grant is rejected until the first is
// revoked or expires.
func (s *Service) Grant(ctx context.Context, grantorID uuid.UUID, req *model.GrantConsentRequest) (*model.ConsentRecord, error) {
	now := time.Now()

	existing, err := s.repo.GetActive(ctx, req.PatientID, req.ConsentType, now)
	if err != nil {
		return nil, apperrors.System(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict(fmt.Sprintf("active %s consent already exists for patient", req.ConsentType))
	}

	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, apperrors.Validation("consent expiry must be in the future", nil)
	}

	version := req.Version
	if version == "" {
		version = "1.0"
	}

	record := &model.ConsentRecord{
		ID:               uuid.New(),
		PatientID:        req.PatientID,
		ConsentType:      req.ConsentType,
		Status:           model.ConsentStatusGranted,
		ConsentText:      req.ConsentText,
		Version:          version,
		GrantedAt:        now,
		ExpiresAt:        req.ExpiresAt,
		GrantedBy:        grantorID,
		DigitalSignature: signature(req.PatientID, req.ConsentType, now, grantorID),
		LegalBasis:       req.LegalBasis,
		PurposeOfUse:     req.PurposeOfUse,
		DataCategories:   req.DataCategories,
		Restrictions:     req.Restrictions,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, apperrors.System(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      grantorID,
		Action:       model.AuditActionCreate,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   record.ID.String(),
		PatientID:    &req.PatientID,
		Success:      true,
		Reason:       fmt.Sprintf("consent %s granted", req.ConsentType),
		Metadata: map[string]interface{}{
			"consent_type": req.ConsentType,
			"version":      version,
			"expires_at":   req.ExpiresAt,
		},
	})

	return record, nil
}

// Revoke transitions the active grant for (patient, type) to REVOKED.
// Only the patient or an authorized representative may revoke.
func (s *Service) Revoke(ctx context.Context, callerID uuid.UUID, req *model.RevokeConsentRequest) (*model.ConsentRecord, error) {
	if callerID != req.PatientID {
		authorized, err := s.callerRepresentsPatient(ctx, req.PatientID, callerID)
		if err != nil {
			return nil, apperrors.System(err)
		}
		if !authorized {
			return nil, apperrors.AccessDenied("only the patient or an authorized representative may revoke consent")
		}
	}

	now := time.Now()

	record, err := s.repo.GetActive(ctx, req.PatientID, req.ConsentType, now)
	if err != nil {
		return nil, apperrors.System(err)
	}
	if record == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("active %s consent", req.ConsentType), nil)
	}

	record.Status = model.ConsentStatusRevoked
	record.RevokedAt = &now
	record.RevocationReason = &req.Reason
	record.Restrictions = append(record.Restrictions, "REVOKED_BY_"+callerID.String())

	if err := s.repo.Update(ctx, record); err != nil {
		return nil, apperrors.System(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      callerID,
		Action:       model.AuditActionUpdate,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   record.ID.String(),
		PatientID:    &req.PatientID,
		Success:      true,
		Reason:       fmt.Sprintf("consent %s revoked: %s", req.ConsentType, req.Reason),
		Metadata: map[string]interface{}{
			"consent_type": req.ConsentType,
			"revoked_at":   now,
		},
	})

	return record, nil
}

// Check answers whether the patient holds an active consent of the
// given type right now.
func (s *Service) Check(ctx context.Context, patientID uuid.UUID, consentType model.ConsentType) (*model.ConsentCheck, error) {
	record, err := s.repo.GetActive(ctx, patientID, consentType, time.Now())
	if err != nil {
		return nil, apperrors.System(err)
	}

	if record == nil {
		return &model.ConsentCheck{HasConsent: false, Restrictions: []string{}}, nil
	}

	return &model.ConsentCheck{
		HasConsent:   true,
		Consent:      record,
		Restrictions: record.Restrictions,
	}, nil
}

// ValidateDataAccess applies consent rules to a concrete category and
// purpose. The baseline HIPAA privacy consent is always required. When
// a data-sharing consent exists its category and purpose lists bind;
// when none exists this path allows by default, which is looser than
// the decision engine's consent stage and kept intentionally distinct.
func (s *Service) ValidateDataAccess(ctx context.Context, patientID uuid.UUID, category model.DataCategory, purpose string) (bool, string, error) {
	now := time.Now()

	baseline, err := s.repo.GetActive(ctx, patientID, model.ConsentHIPAAPrivacy, now)
	if err != nil {
		return false, "", apperrors.System(err)
	}
	if baseline == nil {
		return false, "patient has not granted HIPAA privacy consent", nil
	}

	sharing, err := s.repo.GetActive(ctx, patientID, model.ConsentDataSharing, now)
	if err != nil {
		return false, "", apperrors.System(err)
	}
	if sharing == nil {
		return true, "", nil
	}

	if !contains(sharing.DataCategories, string(category)) {
		return false, fmt.Sprintf("data category %s is outside the patient's data-sharing consent", category), nil
	}
	if purpose != "" && len(sharing.PurposeOfUse) > 0 && !contains(sharing.PurposeOfUse, purpose) {
		return false, fmt.Sprintf("purpose %s is outside the patient's data-sharing consent", purpose), nil
	}

	return true, "", nil
}

// GetHistory lists a patient's consent records newest first. The read
// itself is audited.
func (s *Service) GetHistory(ctx context.Context, callerID, patientID uuid.UUID) ([]*model.ConsentRecord, error) {
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.System(err)
	}

	s.auditor.Log(ctx, audit.Entry{
		ActorID:      callerID,
		Action:       model.AuditActionRead,
		ResourceType: model.AuditEntityConsent,
		ResourceID:   patientID.String(),
		PatientID:    &patientID,
		Success:      true,
		Reason:       "consent history reviewed",
		Metadata:     map[string]interface{}{"record_count": len(records)},
	})

	return records, nil
}

func (s *Service) callerRepresentsPatient(ctx context.Context, patientID, callerID uuid.UUID) (bool, error) {
	if s.reps == nil {
		return false, nil
	}
	return s.reps.IsAuthorizedRepresentative(ctx, patientID, callerID)
}

// signature binds the grant to patient, type, time and grantor so a
// tampered row no longer verifies.
func signature(patientID uuid.UUID, consentType model.ConsentType, at time.Time, grantor uuid.UUID) string {
	payload := fmt.Sprintf("%s|%s|%d|%s", patientID, consentType, at.UnixNano(), grantor)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

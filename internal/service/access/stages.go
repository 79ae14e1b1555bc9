package access

import (
	"context"
	"fmt"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/audit"
)

// sensitiveCategories additionally require treatment consent when the
// requester is not the patient.
var sensitiveCategories = map[model.DataCategory]bool{
	model.CategoryMedicalHistory: true,
	model.CategoryDiagnosis:      true,
	model.CategoryPrescriptions:  true,
}

// minimumNecessary is the static per-role allow-list of data
// categories. A category outside the requester's list is denied no
// matter what earlier stages concluded.
var minimumNecessary = map[model.Role][]model.DataCategory{
	model.RolePatient: {
		model.CategoryDemographics, model.CategoryMedicalHistory, model.CategoryDiagnosis,
		model.CategoryPrescriptions, model.CategoryLabResults, model.CategoryAppointments,
		model.CategoryBillingInfo, model.CategoryInsuranceInfo, model.CategoryContactInfo,
		model.CategoryMentalHealth,
	},
	model.RoleDoctor: {
		model.CategoryDemographics, model.CategoryMedicalHistory, model.CategoryDiagnosis,
		model.CategoryPrescriptions, model.CategoryLabResults, model.CategoryAppointments,
		model.CategoryContactInfo, model.CategoryMentalHealth,
	},
	model.RoleNurse: {
		model.CategoryDemographics, model.CategoryMedicalHistory, model.CategoryDiagnosis,
		model.CategoryPrescriptions, model.CategoryLabResults, model.CategoryAppointments,
		model.CategoryContactInfo,
	},
	model.RoleLabTechnician: {
		model.CategoryDemographics, model.CategoryLabResults,
	},
	model.RoleCashier: {
		model.CategoryDemographics, model.CategoryBillingInfo, model.CategoryInsuranceInfo,
	},
	model.RoleAdmin: {
		model.CategoryDemographics, model.CategoryMedicalHistory, model.CategoryDiagnosis,
		model.CategoryPrescriptions, model.CategoryLabResults, model.CategoryAppointments,
		model.CategoryBillingInfo, model.CategoryInsuranceInfo, model.CategoryContactInfo,
		model.CategoryMentalHealth,
	},
}

// billingCategories are the only categories billing staff may touch
var billingCategories = map[model.DataCategory]bool{
	model.CategoryDemographics:  true,
	model.CategoryBillingInfo:   true,
	model.CategoryInsuranceInfo: true,
}

// emergencyStage handles break-glass access. The heightened audit
// entry is written before the grant is returned, so an abandoned
// caller still leaves the trace behind. The grant is read-only and
// skips every remaining stage.
func (e *Engine) emergencyStage(ctx context.Context, ec *evalContext) (*model.AccessDecision, error) {
	if !ec.req.EmergencyOverride {
		return nil, nil
	}

	e.auditor.Log(ctx, audit.Entry{
		ActorID:      ec.req.RequesterID,
		Action:       model.AuditEventBreakGlass,
		ResourceType: model.AuditEntityAccessControl,
		ResourceID:   ec.req.PatientID.String(),
		PatientID:    &ec.req.PatientID,
		PHIAccessed:  true,
		Success:      true,
		Severity:     model.SeverityCritical,
		Reason:       "emergency override invoked",
		Metadata: map[string]interface{}{
			"emergencyOverride": true,
			"requester_role":    ec.req.RequesterRole,
			"data_category":     ec.req.DataCategory,
			"operation":         ec.req.Operation,
			"justification":     ec.req.BusinessJustification,
		},
	})

	if e.metrics != nil {
		e.metrics.EmergencyAccess.Inc()
	}

	return &model.AccessDecision{
		Allowed:       true,
		AccessLevel:   model.AccessLevelRead,
		Restrictions:  []string{model.RestrictionEmergencyAccess, model.RestrictionImmediateAudit},
		Reason:        "emergency access granted",
		AuditRequired: true,
	}, nil
}

// rolePolicyStage applies the base role policy. Clinical roles pass
// provisionally and face the relationship and consent stages next.
func (e *Engine) rolePolicyStage(_ context.Context, ec *evalContext) (*model.AccessDecision, error) {
	req := ec.req

	if req.SelfAccess() {
		ec.restrict(model.RestrictionOwnDataOnly)
		return nil, nil
	}

	switch req.RequesterRole {
	case model.RoleAdmin:
		if req.BusinessJustification == "" {
			return model.Deny("administrative access requires a business justification"), nil
		}
		ec.restrict(model.RestrictionAdminAccess, model.RestrictionRequiresJustif)
		return nil, nil

	case model.RoleDoctor, model.RoleNurse, model.RoleLabTechnician:
		ec.restrict(model.RestrictionTreatmentPurpose)
		return nil, nil

	case model.RoleCashier:
		if !billingCategories[req.DataCategory] {
			return model.Deny(fmt.Sprintf("billing staff may not access %s", req.DataCategory)), nil
		}
		ec.restrict(model.RestrictionBillingPurpose, model.RestrictionLimitedDataAccess)
		return nil, nil

	default:
		return model.Deny(fmt.Sprintf("role %s is not authorized for patient data access", req.RequesterRole)), nil
	}
}

// relationshipStage requires clinical requesters to hold an actual
// treatment relationship with the patient.
func (e *Engine) relationshipStage(ctx context.Context, ec *evalContext) (*model.AccessDecision, error) {
	req := ec.req
	if req.SelfAccess() || !req.RequesterRole.IsClinical() {
		return nil, nil
	}

	switch req.RequesterRole {
	case model.RoleDoctor:
		ok, err := e.relationships.HasTreatingAppointment(ctx, req.RequesterID, req.PatientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return model.Deny("no treatment relationship: no scheduled or completed appointment with this patient"), nil
		}

	case model.RoleNurse:
		ok, err := e.relationships.SharesCareUnit(ctx, req.RequesterID, req.PatientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return model.Deny("no treatment relationship: patient is not assigned to your care unit"), nil
		}

	case model.RoleLabTechnician:
		ok, err := e.relationships.HasActiveLabOrder(ctx, req.PatientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return model.Deny("no treatment relationship: no active lab order for this patient"), nil
		}
	}

	return nil, nil
}

// consentStage requires the baseline HIPAA privacy consent, and for
// sensitive categories read by anyone but the patient, the treatment
// consent on top.
func (e *Engine) consentStage(ctx context.Context, ec *evalContext) (*model.AccessDecision, error) {
	req := ec.req

	privacy, err := e.consents.Check(ctx, req.PatientID, model.ConsentHIPAAPrivacy)
	if err != nil {
		return nil, err
	}
	if !privacy.HasConsent {
		return model.Deny("patient has not granted HIPAA privacy consent"), nil
	}

	if sensitiveCategories[req.DataCategory] && !req.SelfAccess() {
		treatment, err := e.consents.Check(ctx, req.PatientID, model.ConsentTreatment)
		if err != nil {
			return nil, err
		}
		if !treatment.HasConsent {
			return model.Deny(fmt.Sprintf("access to %s requires active treatment consent", req.DataCategory)), nil
		}
	}

	return nil, nil
}

// minimumNecessaryStage denies categories outside the requester
// role's allow-list.
func (e *Engine) minimumNecessaryStage(_ context.Context, ec *evalContext) (*model.AccessDecision, error) {
	req := ec.req

	allowed, ok := minimumNecessary[req.RequesterRole]
	if !ok {
		return model.Deny(fmt.Sprintf("role %s has no data access profile", req.RequesterRole)), nil
	}

	for _, category := range allowed {
		if category == req.DataCategory {
			return nil, nil
		}
	}

	return model.Deny(fmt.Sprintf("category %s exceeds the minimum necessary for role %s", req.DataCategory, req.RequesterRole)), nil
}

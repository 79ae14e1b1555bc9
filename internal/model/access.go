package model

import (
	"github.com/google/uuid"
)

// Operation is the action a requester wants to perform on PHI
type Operation string

const (
	OperationRead   Operation = "READ"
	OperationWrite  Operation = "WRITE"
	OperationDelete Operation = "DELETE"
)

// DataCategory classifies PHI for minimum-necessary evaluation
type DataCategory string

const (
	CategoryDemographics   DataCategory = "DEMOGRAPHICS"
	CategoryMedicalHistory DataCategory = "MEDICAL_HISTORY"
	CategoryDiagnosis      DataCategory = "DIAGNOSIS"
	CategoryPrescriptions  DataCategory = "PRESCRIPTIONS"
	CategoryLabResults     DataCategory = "LAB_RESULTS"
	CategoryAppointments   DataCategory = "APPOINTMENTS"
	CategoryBillingInfo    DataCategory = "BILLING_INFO"
	CategoryInsuranceInfo  DataCategory = "INSURANCE_INFO"
	CategoryContactInfo    DataCategory = "CONTACT_INFO"
	CategoryMentalHealth   DataCategory = "MENTAL_HEALTH"
)

// AccessLevel is the breadth of access a decision grants
type AccessLevel string

const (
	AccessLevelNone  AccessLevel = "NONE"
	AccessLevelRead  AccessLevel = "READ"
	AccessLevelWrite AccessLevel = "WRITE"
	AccessLevelFull  AccessLevel = "FULL"
)

// Restriction tags attached to allow decisions
const (
	RestrictionOwnDataOnly       = "OWN_DATA_ONLY"
	RestrictionAdminAccess       = "ADMIN_ACCESS"
	RestrictionRequiresJustif    = "REQUIRES_JUSTIFICATION"
	RestrictionTreatmentPurpose  = "TREATMENT_PURPOSE_ONLY"
	RestrictionBillingPurpose    = "BILLING_PURPOSE_ONLY"
	RestrictionLimitedDataAccess = "LIMITED_DATA_ACCESS"
	RestrictionEmergencyAccess   = "EMERGENCY_ACCESS"
	RestrictionImmediateAudit    = "IMMEDIATE_AUDIT_REQUIRED"
	RestrictionMinimumNecessary  = "MINIMUM_NECESSARY"
	RestrictionAuditRequired     = "AUDIT_REQUIRED"
)

// AccessRequest is the input to the access decision pipeline
type AccessRequest struct {
	RequesterID           uuid.UUID    `json:"requester_id" binding:"required"`
	RequesterRole         Role         `json:"requester_role" binding:"required,principalrole"`
	PatientID             uuid.UUID    `json:"patient_id" binding:"required"`
	DataCategory          DataCategory `json:"data_category" binding:"required,datacategory"`
	Operation             Operation    `json:"operation" binding:"required,oneof=READ WRITE DELETE"`
	BusinessJustification string       `json:"business_justification"`
	EmergencyOverride     bool         `json:"emergency_override"`
}

// SelfAccess reports whether the requester is the patient
func (r *AccessRequest) SelfAccess() bool {
	return r.RequesterID == r.PatientID
}

// AccessDecision is the outcome of evaluating an AccessRequest. It is
// never persisted; enforcement turns it into an audit entry.
type AccessDecision struct {
	Allowed       bool        `json:"allowed"`
	AccessLevel   AccessLevel `json:"access_level"`
	Restrictions  []string    `json:"restrictions"`
	Reason        string      `json:"reason"`
	AuditRequired bool        `json:"audit_required"`
}

// Deny builds a denial with the given reason
func Deny(reason string) *AccessDecision {
	return &AccessDecision{
		Allowed:       false,
		AccessLevel:   AccessLevelNone,
		Restrictions:  []string{},
		Reason:        reason,
		AuditRequired: true,
	}
}

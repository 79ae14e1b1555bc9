package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ConsentType enumerates the consent instruments a patient can grant
type ConsentType string

const (
	ConsentHIPAAPrivacy       ConsentType = "hipaa_privacy"
	ConsentTreatment          ConsentType = "treatment"
	ConsentDataSharing        ConsentType = "data_sharing"
	ConsentResearch           ConsentType = "research"
	ConsentMarketing          ConsentType = "marketing"
	ConsentTelehealth         ConsentType = "telehealth"
	ConsentEmergencyContact   ConsentType = "emergency_contact"
	ConsentBillingDisclosure  ConsentType = "billing_disclosure"
	ConsentThirdPartyAccess   ConsentType = "third_party_access"
	ConsentMentalHealthAccess ConsentType = "mental_health_access"
)

// ConsentStatus is the lifecycle state of a consent record
type ConsentStatus string

const (
	ConsentStatusGranted ConsentStatus = "GRANTED"
	ConsentStatusDenied  ConsentStatus = "DENIED"
	ConsentStatusRevoked ConsentStatus = "REVOKED"
	ConsentStatusExpired ConsentStatus = "EXPIRED"
	ConsentStatusPending ConsentStatus = "PENDING"
)

// ConsentRecord is one grant of a consent type by a patient. At most
// one active (GRANTED, unexpired) record exists per (patient, type).
type ConsentRecord struct {
	ID               uuid.UUID      `json:"id" db:"id"`
	PatientID        uuid.UUID      `json:"patient_id" db:"patient_id"`
	ConsentType      ConsentType    `json:"consent_type" db:"consent_type"`
	Status           ConsentStatus  `json:"status" db:"status"`
	ConsentText      string         `json:"consent_text" db:"consent_text"`
	Version          string         `json:"version" db:"version"`
	GrantedAt        time.Time      `json:"granted_at" db:"granted_at"`
	RevokedAt        *time.Time     `json:"revoked_at,omitempty" db:"revoked_at"`
	ExpiresAt        *time.Time     `json:"expires_at,omitempty" db:"expires_at"`
	GrantedBy        uuid.UUID      `json:"granted_by" db:"granted_by"`
	DigitalSignature string         `json:"digital_signature" db:"digital_signature"`
	LegalBasis       string         `json:"legal_basis" db:"legal_basis"`
	PurposeOfUse     pq.StringArray `json:"purpose_of_use" db:"purpose_of_use"`
	DataCategories   pq.StringArray `json:"data_categories" db:"data_categories"`
	Restrictions     pq.StringArray `json:"restrictions" db:"restrictions"`
	RevocationReason *string        `json:"revocation_reason,omitempty" db:"revocation_reason"`
}

// IsActive reports whether the record currently grants consent
func (c *ConsentRecord) IsActive(now time.Time) bool {
	if c.Status != ConsentStatusGranted {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}

// ConsentCheck is the answer to "does patient P consent to type T?"
type ConsentCheck struct {
	HasConsent   bool           `json:"has_consent"`
	Consent      *ConsentRecord `json:"consent,omitempty"`
	Restrictions []string       `json:"restrictions"`
}

// GrantConsentRequest is the inbound payload for recording a grant
type GrantConsentRequest struct {
	PatientID      uuid.UUID   `json:"patient_id" binding:"required"`
	ConsentType    ConsentType `json:"consent_type" binding:"required,consenttype"`
	ConsentText    string      `json:"consent_text" binding:"required"`
	Version        string      `json:"version"`
	LegalBasis     string      `json:"legal_basis"`
	PurposeOfUse   []string    `json:"purpose_of_use"`
	DataCategories []string    `json:"data_categories"`
	Restrictions   []string    `json:"restrictions"`
	ExpiresAt      *time.Time  `json:"expires_at"`
}

// RevokeConsentRequest is the inbound payload for revoking a grant
type RevokeConsentRequest struct {
	PatientID   uuid.UUID   `json:"patient_id" binding:"required"`
	ConsentType ConsentType `json:"consent_type" binding:"required,consenttype"`
	Reason      string      `json:"reason" binding:"required"`
}

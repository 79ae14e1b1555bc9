package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type AuditLogEntry struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      uuid.UUID       `json:"actor_id" db:"actor_id"`
	ResourceType string          `json:"resource_type" db:"resource_type"`
	ResourceID   string          `json:"resource_id" db:"resource_id"`
	Action       string          `json:"action" db:"action"`
	PatientID    *uuid.UUID      `json:"patient_id,omitempty" db:"patient_id"`
	PHIAccessed  bool            `json:"phi_accessed" db:"phi_accessed"`
	Success      bool            `json:"success" db:"success"`
	Reason       string          `json:"reason" db:"reason"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	Severity     string          `json:"severity" db:"severity"`
	Metadata     json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionCreate = "CREATE"
	AuditActionRead   = "READ"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"
	AuditActionExport = "EXPORT"
	AuditActionPrint  = "PRINT"
	AuditActionLogin  = "LOGIN"
	AuditActionLogout = "LOGOUT"

	// Entity types
	AuditEntityPrincipal     = "principal"
	AuditEntityPatient       = "patient"
	AuditEntitySession       = "session"
	AuditEntityConsent       = "consent"
	AuditEntityAccessControl = "access_control"
	AuditEntitySecurity      = "security"

	// Security event classifications
	AuditEventSecurityAlert      = "SECURITY_ALERT"
	AuditEventPatientDataAccess  = "PATIENT_DATA_ACCESS"
	AuditEventUnauthorizedAccess = "UNAUTHORIZED_ACCESS_ATTEMPT"
	AuditEventBreakGlass         = "BREAK_GLASS_ACCESS"
	AuditEventAuditFailure       = "AUDIT_FAILURE"

	// Severities
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// AuditReport summarizes activity over a reporting window
type AuditReport struct {
	WindowStart  time.Time      `json:"window_start"`
	WindowEnd    time.Time      `json:"window_end"`
	TotalActions int64          `json:"total_actions"`
	UniqueActors int64          `json:"unique_actors"`
	ActionCounts map[string]int `json:"action_counts"`
}

// AuditReportFilters narrows report queries
type AuditReportFilters struct {
	ActorID      *uuid.UUID
	PatientID    *uuid.UUID
	ResourceType string
	Action       string
}

// ActorAccessCount pairs an actor with their patient-read volume
type ActorAccessCount struct {
	ActorID uuid.UUID `json:"actor_id" db:"actor_id"`
	Count   int64     `json:"count" db:"count"`
}

// SuspiciousActivityReport flags anomalous access patterns
type SuspiciousActivityReport struct {
	GeneratedAt     time.Time          `json:"generated_at"`
	HighVolumeReads []ActorAccessCount `json:"high_volume_reads"`
	FailedActions   []*AuditLogEntry   `json:"failed_actions"`
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of roles this core recognizes. Role strings
// arriving from the identity provider are normalized exactly once via
// ParseRole; nothing downstream compares raw strings.
type Role string

const (
	RolePatient       Role = "patient"
	RoleDoctor        Role = "doctor"
	RoleNurse         Role = "nurse"
	RoleLabTechnician Role = "lab_technician"
	RoleCashier       Role = "cashier"
	RoleAdmin         Role = "admin"
	RoleUnknown       Role = "unknown"
)

// ParseRole normalizes a raw role claim into the closed Role set.
// Unrecognized values map to RoleUnknown, which every policy denies.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RolePatient:
		return RolePatient
	case RoleDoctor:
		return RoleDoctor
	case RoleNurse:
		return RoleNurse
	case RoleLabTechnician:
		return RoleLabTechnician
	case RoleCashier:
		return RoleCashier
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// IsClinical reports whether the role delivers direct care and is
// therefore subject to the treatment-relationship check.
func (r Role) IsClinical() bool {
	return r == RoleDoctor || r == RoleNurse || r == RoleLabTechnician
}

// Principal status constants
const (
	PrincipalStatusActive   = "active"
	PrincipalStatusInactive = "inactive"
)

// Principal represents an authenticated identity known to the platform
type Principal struct {
	Base
	Email        string     `json:"email" db:"email"`
	Name         string     `json:"name" db:"name"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Role         Role       `json:"role" db:"role"`
	Status       string     `json:"status" db:"status"`
	DepartmentID *uuid.UUID `json:"department_id" db:"department_id"`
	MFAEnabled   bool       `json:"mfa_enabled" db:"mfa_enabled"`
	MFASecret    string     `json:"-" db:"mfa_secret"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}

// IsActive reports whether the principal may authenticate
func (p *Principal) IsActive() bool {
	return p.Status == PrincipalStatusActive
}

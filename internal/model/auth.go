package model

import (
	"github.com/google/uuid"
)

// LoginRequest is the credential payload for authentication
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MFAVerifyRequest carries a submitted one-time code
type MFAVerifyRequest struct {
	PrincipalID uuid.UUID `json:"principal_id" binding:"required"`
	Code        string    `json:"code" binding:"required,len=6,numeric"`
}

// TokenPair is the signed access/refresh token pair minted after a
// session is established. Distinct from the opaque session token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthOutcome classifies the result of an authentication attempt
type AuthOutcome string

const (
	AuthOutcomeSuccess     AuthOutcome = "success"
	AuthOutcomeMFARequired AuthOutcome = "mfa_required"
	AuthOutcomeMFASetup    AuthOutcome = "mfa_setup_required"
)

// AuthResult is returned by a successful (or MFA-pending)
// authentication. No session or tokens exist until MFA clears.
type AuthResult struct {
	Outcome      AuthOutcome `json:"outcome"`
	Principal    *Principal  `json:"principal,omitempty"`
	SessionToken string      `json:"session_token,omitempty"`
	Tokens       *TokenPair  `json:"tokens,omitempty"`
}

package handler

import (
	"net/http"

	apperrors "github.com/clinicore/phi-gate/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// StatusFor maps an application error to its HTTP status
func StatusFor(err error) int {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrAuthentication:
		return http.StatusUnauthorized
	case apperrors.ErrAuthorization, apperrors.ErrConsentMissing, apperrors.ErrLockedOut:
		return http.StatusForbidden
	case apperrors.ErrValidation:
		return http.StatusBadRequest
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrConflict:
		return http.StatusConflict
	case apperrors.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

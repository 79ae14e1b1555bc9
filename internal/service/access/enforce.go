package access

import (
	"context"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/service/audit"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
)

// EnforceAccess evaluates the request and converts a denial into an
// error for exception-oriented callers. Exactly one audit entry is
// written per call, allowed or denied, before anything is returned.
func (e *Engine) EnforceAccess(ctx context.Context, req *model.AccessRequest) (*model.AccessDecision, error) {
	decision := e.CheckAccess(ctx, req)

	e.auditor.Log(ctx, audit.Entry{
		ActorID:      req.RequesterID,
		Action:       string(req.Operation),
		ResourceType: model.AuditEntityAccessControl,
		ResourceID:   req.PatientID.String(),
		PatientID:    &req.PatientID,
		PHIAccessed:  decision.Allowed,
		Success:      decision.Allowed,
		Reason:       decision.Reason,
		Metadata: map[string]interface{}{
			"allowed":         decision.Allowed,
			"access_level":    decision.AccessLevel,
			"restrictions":    decision.Restrictions,
			"data_categories": []string{string(req.DataCategory)},
			"operation":       req.Operation,
			"requester_role":  req.RequesterRole,
			"justification":   req.BusinessJustification,
		},
	})

	if !decision.Allowed {
		return decision, apperrors.AccessDenied(decision.Reason)
	}

	return decision, nil
}

package access

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/phi-gate/internal/model"
	apperrors "github.com/clinicore/phi-gate/pkg/errors"
)

func TestEnforceAccessDeniedReturnsError(t *testing.T) {
	f := newEngineFixture()

	_, err := f.engine.EnforceAccess(context.Background(), &model.AccessRequest{
		RequesterID:   uuid.New(),
		RequesterRole: model.RoleCashier,
		PatientID:     uuid.New(),
		DataCategory:  model.CategoryDiagnosis,
		Operation:     model.OperationRead,
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrAuthorization, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "Access denied")
}

func TestEnforceAccessWritesOneDecisionEntry(t *testing.T) {
	f := newEngineFixture()

	patientID := uuid.New()
	f.consents.grant(patientID, model.ConsentHIPAAPrivacy)

	decision, err := f.engine.EnforceAccess(context.Background(), &model.AccessRequest{
		RequesterID:   patientID,
		RequesterRole: model.RolePatient,
		PatientID:     patientID,
		DataCategory:  model.CategoryDemographics,
		Operation:     model.OperationRead,
	})

	require.NoError(t, err)
	require.True(t, decision.Allowed)

	entries := f.audits.byAction(string(model.OperationRead))
	require.Len(t, entries, 1)
	assert.True(t, entries[0].PHIAccessed)
	assert.Equal(t, patientID.String(), entries[0].ResourceID)
}

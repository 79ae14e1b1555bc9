package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/phi-gate/internal/model"
	"github.com/clinicore/phi-gate/internal/repository"
)

type relationshipRepository struct {
	BaseRepository
}

func NewRelationshipRepository(base BaseRepository) repository.RelationshipRepository {
	return &relationshipRepository{base}
}

func (r *relationshipRepository) HasTreatingAppointment(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM appointments
            WHERE doctor_id = $1 AND patient_id = $2 AND status IN ($3, $4)
        )
    `

	var exists bool
	err := r.GetDB().GetContext(ctx, &exists, query, doctorID, patientID,
		model.AppointmentStatusScheduled, model.AppointmentStatusCompleted)
	if err != nil {
		return false, fmt.Errorf("failed to check appointments: %w", err)
	}

	return exists, nil
}

// SharesCareUnit matches the nurse's department against the unit the
// patient is currently assigned to.
func (r *relationshipRepository) SharesCareUnit(ctx context.Context, nurseID, patientID uuid.UUID) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1
            FROM principals p
            JOIN care_assignments ca ON ca.department_id = p.department_id
            WHERE p.id = $1 AND ca.patient_id = $2 AND ca.released_at IS NULL
        )
    `

	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, nurseID, patientID); err != nil {
		return false, fmt.Errorf("failed to check care unit: %w", err)
	}

	return exists, nil
}

func (r *relationshipRepository) IsAuthorizedRepresentative(ctx context.Context, patientID, callerID uuid.UUID) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM patient_representatives
            WHERE patient_id = $1 AND representative_id = $2 AND revoked_at IS NULL
        )
    `

	var exists bool
	if err := r.GetDB().GetContext(ctx, &exists, query, patientID, callerID); err != nil {
		return false, fmt.Errorf("failed to check representative: %w", err)
	}

	return exists, nil
}

func (r *relationshipRepository) HasActiveLabOrder(ctx context.Context, patientID uuid.UUID) (bool, error) {
	query := `
        SELECT EXISTS (
            SELECT 1 FROM lab_orders
            WHERE patient_id = $1 AND status IN ($2, $3)
        )
    `

	var exists bool
	err := r.GetDB().GetContext(ctx, &exists, query, patientID,
		model.LabOrderStatusOrdered, model.LabOrderStatusCollected)
	if err != nil {
		return false, fmt.Errorf("failed to check lab orders: %w", err)
	}

	return exists, nil
}

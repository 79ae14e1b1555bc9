package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "SCHEDULED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
	AppointmentStatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Appointment is consulted read-only by the relationship stage: a
// doctor holds a treatment relationship with a patient while a
// scheduled or completed appointment exists between them.
type Appointment struct {
	ID        uuid.UUID         `db:"id" json:"id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Status    AppointmentStatus `db:"status" json:"status"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// Establishes reports whether this appointment establishes a
// treatment relationship for access purposes.
func (a *Appointment) Establishes() bool {
	return a.Status == AppointmentStatusScheduled || a.Status == AppointmentStatusCompleted
}

type LabOrderStatus string

const (
	LabOrderStatusOrdered   LabOrderStatus = "ORDERED"
	LabOrderStatusCollected LabOrderStatus = "COLLECTED"
	LabOrderStatusResulted  LabOrderStatus = "RESULTED"
	LabOrderStatusCancelled LabOrderStatus = "CANCELLED"
)

// LabOrder backs the lab technician relationship check
type LabOrder struct {
	ID           uuid.UUID      `db:"id" json:"id"`
	PatientID    uuid.UUID      `db:"patient_id" json:"patient_id"`
	OrderedBy    uuid.UUID      `db:"ordered_by" json:"ordered_by"`
	TechnicianID *uuid.UUID     `db:"technician_id" json:"technician_id,omitempty"`
	Status       LabOrderStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// ActiveForAccess reports whether the order still justifies technician
// access to the patient's specimens and results.
func (o *LabOrder) ActiveForAccess() bool {
	return o.Status == LabOrderStatusOrdered || o.Status == LabOrderStatusCollected
}

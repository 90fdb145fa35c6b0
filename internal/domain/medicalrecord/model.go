package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

type MedicalRecord struct {
	ID               uuid.UUID `json:"id"`
	PatientID        uuid.UUID `json:"patientId"`
	DoctorID         uuid.UUID `json:"doctorId"`
	DoctorName       string    `json:"doctorName,omitempty"`
	DoctorSpeciality string    `json:"doctorSpeciality,omitempty"`
	Reason           string    `json:"reason"`
	History          string    `json:"history"`
	PhysicalExam     string    `json:"physicalExam"`
	Diagnosis        string    `json:"diagnosis"`
	Analysis         string    `json:"analysis"`
	ManagementPlan   string    `json:"managementPlan"`
	Version          int       `json:"version"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// CreateInput is the body of POST /api/patients/:id/medical-records.
type CreateInput struct {
	Reason         string `json:"reason" validate:"required,min=3,max=2000"`
	History        string `json:"history" validate:"max=10000"`
	PhysicalExam   string `json:"physicalExam" validate:"max=10000"`
	Diagnosis      string `json:"diagnosis" validate:"max=10000"`
	Analysis       string `json:"analysis" validate:"max=10000"`
	ManagementPlan string `json:"managementPlan" validate:"max=10000"`
}

package patient

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusForgotten = "forgotten"
)

type Patient struct {
	ID               uuid.UUID  `json:"id"`
	Name             string     `json:"name"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email,omitempty"`
	BirthDate        string     `json:"birthDate,omitempty"`
	Gender           string     `json:"gender,omitempty"`
	Address          string     `json:"address,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	EmergencyPhone   string     `json:"emergencyPhone,omitempty"`
	IsActive         bool       `json:"isActive"`
	Status           string     `json:"status"`
	CreatedBy        *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// CreateInput is the body of POST /api/patients.
type CreateInput struct {
	Name             string `json:"name" validate:"required,min=2,max=100"`
	Phone            string `json:"phone" validate:"required,min=10,max=15"`
	Email            string `json:"email" validate:"omitempty,email,max=255"`
	BirthDate        string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Gender           string `json:"gender" validate:"omitempty,oneof=M F O"`
	Address          string `json:"address" validate:"max=500"`
	EmergencyContact string `json:"emergencyContact" validate:"max=100"`
	EmergencyPhone   string `json:"emergencyPhone" validate:"omitempty,min=10,max=15"`
}

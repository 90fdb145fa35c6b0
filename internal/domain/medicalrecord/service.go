package medicalrecord

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/clinrec/clinrec/internal/domain/patient"
	"github.com/clinrec/clinrec/internal/platform/db"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

var ErrPatientNotFound = errors.New("patient not found")

// PatientLookup is satisfied by patient.Repository.
type PatientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo      Repository
	patients  PatientLookup
	tx        db.Beginner
	validator *validate.Validator
}

// NewService wires the service. tx may be nil, in which case the patient
// check and the insert run without a surrounding transaction.
func NewService(repo Repository, patients PatientLookup, tx db.Beginner) *Service {
	return &Service{repo: repo, patients: patients, tx: tx, validator: validate.New()}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return db.RunInTx(ctx, s.tx, fn)
}

func (s *Service) requireActivePatient(ctx context.Context, id uuid.UUID) error {
	p, err := s.patients.GetByID(ctx, id)
	if errors.Is(err, patient.ErrNotFound) {
		return ErrPatientNotFound
	}
	if err != nil {
		return err
	}
	if !p.IsActive || p.Status != patient.StatusActive {
		return ErrPatientNotFound
	}
	return nil
}

// List returns the patient's active records, newest first.
func (s *Service) List(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	if err := s.requireActivePatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListByPatient(ctx, patientID)
}

// Create stores a new record for an active patient, authored by doctorID.
func (s *Service) Create(ctx context.Context, patientID, doctorID uuid.UUID, in CreateInput) (*MedicalRecord, error) {
	in = trim(in)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	rec := &MedicalRecord{
		PatientID:      patientID,
		DoctorID:       doctorID,
		Reason:         in.Reason,
		History:        in.History,
		PhysicalExam:   in.PhysicalExam,
		Diagnosis:      in.Diagnosis,
		Analysis:       in.Analysis,
		ManagementPlan: in.ManagementPlan,
		Version:        1,
		IsActive:       true,
	}
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.requireActivePatient(ctx, patientID); err != nil {
			return err
		}
		return s.repo.Create(ctx, rec)
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func trim(in CreateInput) CreateInput {
	in.Reason = strings.TrimSpace(in.Reason)
	in.History = strings.TrimSpace(in.History)
	in.PhysicalExam = strings.TrimSpace(in.PhysicalExam)
	in.Diagnosis = strings.TrimSpace(in.Diagnosis)
	in.Analysis = strings.TrimSpace(in.Analysis)
	in.ManagementPlan = strings.TrimSpace(in.ManagementPlan)
	return in
}

package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/clinrec/clinrec/internal/platform/middleware"
	"github.com/clinrec/clinrec/internal/platform/validate"
)

type Service struct {
	repo      Repository
	validator *validate.Validator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: validate.New()}
}

// Create sanitizes and validates in, then stores an active patient.
func (s *Service) Create(ctx context.Context, in CreateInput, createdBy *uuid.UUID) (*Patient, error) {
	in = sanitize(in)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	p := &Patient{
		Name:             in.Name,
		Phone:            in.Phone,
		Email:            in.Email,
		BirthDate:        in.BirthDate,
		Gender:           in.Gender,
		Address:          in.Address,
		EmergencyContact: in.EmergencyContact,
		EmergencyPhone:   in.EmergencyPhone,
		IsActive:         true,
		Status:           StatusActive,
		CreatedBy:        createdBy,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListActive(ctx)
}

func sanitize(in CreateInput) CreateInput {
	in.Name = middleware.SanitizeString(in.Name)
	in.Phone = middleware.SanitizeString(in.Phone)
	in.Email = strings.ToLower(middleware.SanitizeString(in.Email))
	in.BirthDate = strings.TrimSpace(in.BirthDate)
	in.Gender = strings.ToUpper(strings.TrimSpace(in.Gender))
	in.Address = middleware.SanitizeString(in.Address)
	in.EmergencyContact = middleware.SanitizeString(in.EmergencyContact)
	in.EmergencyPhone = middleware.SanitizeString(in.EmergencyPhone)
	return in
}

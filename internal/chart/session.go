package chart

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinrec/clinrec/internal/platform/snapshot"
)

var (
	ErrUnknownPatient = errors.New("unknown patient")
	ErrMissingField   = errors.New("required field missing")
)

// Session ties a Store to a snapshot backend. Open hydrates the store once;
// every Apply writes the full resulting state back under StorageKey. Snapshot
// failures are logged and never surface to the caller: the in-memory state
// stays authoritative.
type Session struct {
	store     *Store
	snapshots snapshot.Store
	logger    zerolog.Logger
	ids       *IDGenerator
}

func NewSession(snapshots snapshot.Store, logger zerolog.Logger) *Session {
	return &Session{
		store:     NewStore(),
		snapshots: snapshots,
		logger:    logger,
		ids:       NewIDGenerator(),
	}
}

// WithIDGenerator replaces the id source. Used by tests to pin the clock.
func (s *Session) WithIDGenerator(g *IDGenerator) *Session {
	s.ids = g
	return s
}

// Open loads the persisted snapshot into the store. A missing snapshot leaves
// the chart empty. A snapshot that cannot be read or parsed is logged and the
// chart starts empty.
func (s *Session) Open(ctx context.Context) State {
	data, err := s.snapshots.Load(ctx, StorageKey)
	if errors.Is(err, snapshot.ErrNotFound) {
		return s.store.State()
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", StorageKey).Msg("failed to load chart snapshot")
		return s.store.State()
	}
	st, err := Decode(data)
	if err != nil {
		s.logger.Error().Err(err).Str("key", StorageKey).Msg("failed to parse chart snapshot")
		return s.store.State()
	}
	return s.store.Dispatch(SetState{State: st})
}

// State returns the current chart.
func (s *Session) State() State {
	return s.store.State()
}

// Apply dispatches a and persists the resulting state.
func (s *Session) Apply(ctx context.Context, a Action) State {
	next := s.store.Dispatch(a)
	s.persist(ctx, next)
	return next
}

func (s *Session) persist(ctx context.Context, st State) {
	data, err := Encode(st)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode chart snapshot")
		return
	}
	if err := s.snapshots.Save(ctx, StorageKey, data); err != nil {
		s.logger.Error().Err(err).Str("key", StorageKey).Msg("failed to save chart snapshot")
	}
}

// VisitInput is the form data for a new visit. When PatientID is empty a new
// patient is registered with Name and BirthDate.
type VisitInput struct {
	PatientID      string
	Name           string
	BirthDate      string
	ReasonForVisit string
	History        string
	PhysicalExam   string
	Diagnosis      string
	Analysis       string
	ManagementPlan string
}

// RegisterVisit builds an AddPatientAndRecord action from the input and
// applies it.
func (s *Session) RegisterVisit(ctx context.Context, in VisitInput) (Patient, ClinicalRecord, error) {
	var p Patient
	if in.PatientID != "" {
		found, ok := FindPatient(s.State(), in.PatientID)
		if !ok {
			return Patient{}, ClinicalRecord{}, fmt.Errorf("%w: %s", ErrUnknownPatient, in.PatientID)
		}
		p = found
	} else {
		if in.Name == "" || in.BirthDate == "" {
			return Patient{}, ClinicalRecord{}, fmt.Errorf("%w: name and birth date", ErrMissingField)
		}
		if _, err := ParseBirthDate(in.BirthDate); err != nil {
			return Patient{}, ClinicalRecord{}, err
		}
		id := s.ids.PatientID()
		for s.State().HasPatient(id) {
			id = s.ids.PatientID()
		}
		p = Patient{ID: id, Name: in.Name, BirthDate: in.BirthDate}
	}
	if in.ReasonForVisit == "" {
		return Patient{}, ClinicalRecord{}, fmt.Errorf("%w: reason for visit", ErrMissingField)
	}

	rec := ClinicalRecord{
		ID:             s.ids.RecordID(),
		PatientID:      p.ID,
		CreatedAt:      s.ids.Timestamp(),
		ReasonForVisit: in.ReasonForVisit,
		History:        in.History,
		PhysicalExam:   in.PhysicalExam,
		Diagnosis:      in.Diagnosis,
		Analysis:       in.Analysis,
		ManagementPlan: in.ManagementPlan,
	}
	s.Apply(ctx, AddPatientAndRecord{Patient: p, Record: rec})
	return p, rec, nil
}

// Prescribe appends a prescription for an existing patient.
func (s *Session) Prescribe(ctx context.Context, patientID, medications, indications string) (Prescription, error) {
	if !s.State().HasPatient(patientID) {
		return Prescription{}, fmt.Errorf("%w: %s", ErrUnknownPatient, patientID)
	}
	if medications == "" {
		return Prescription{}, fmt.Errorf("%w: medications", ErrMissingField)
	}
	id := s.ids.PrescriptionID()
	for _, taken := FindPrescription(s.State(), id); taken; _, taken = FindPrescription(s.State(), id) {
		id = s.ids.PrescriptionID()
	}
	pres := Prescription{
		ID:          id,
		PatientID:   patientID,
		CreatedAt:   s.ids.Timestamp(),
		Medications: medications,
		Indications: indications,
	}
	s.Apply(ctx, AddPrescription{Prescription: pres})
	return pres, nil
}

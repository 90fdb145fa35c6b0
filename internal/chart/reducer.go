package chart

// Action is a state transition. The set of actions is closed: only the types
// in this package implement it.
type Action interface {
	action()
}

// AddPatientAndRecord registers a visit. The patient is appended only when its
// id is new; the record is always appended, so replaying the same action adds
// a second copy of the record.
type AddPatientAndRecord struct {
	Patient Patient
	Record  ClinicalRecord
}

// AddPrescription appends a prescription.
type AddPrescription struct {
	Prescription Prescription
}

// SetState replaces the whole state. Used when hydrating from a snapshot.
type SetState struct {
	State State
}

func (AddPatientAndRecord) action() {}
func (AddPrescription) action()     {}
func (SetState) action()            {}

// Reduce returns the state that results from applying a to s. It never
// mutates s: every collection it touches is copied first.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case AddPatientAndRecord:
		next := State{
			Patients:      s.Patients,
			Records:       appendCopy(s.Records, act.Record),
			Prescriptions: s.Prescriptions,
		}
		if !s.HasPatient(act.Patient.ID) {
			next.Patients = appendCopy(s.Patients, act.Patient)
		}
		return normalize(next)
	case AddPrescription:
		return normalize(State{
			Patients:      s.Patients,
			Records:       s.Records,
			Prescriptions: appendCopy(s.Prescriptions, act.Prescription),
		})
	case SetState:
		return normalize(State{
			Patients:      append([]Patient(nil), act.State.Patients...),
			Records:       append([]ClinicalRecord(nil), act.State.Records...),
			Prescriptions: append([]Prescription(nil), act.State.Prescriptions...),
		})
	default:
		return s
	}
}

func appendCopy[T any](src []T, v T) []T {
	out := make([]T, len(src), len(src)+1)
	copy(out, src)
	return append(out, v)
}

func normalize(s State) State {
	if s.Patients == nil {
		s.Patients = []Patient{}
	}
	if s.Records == nil {
		s.Records = []ClinicalRecord{}
	}
	if s.Prescriptions == nil {
		s.Prescriptions = []Prescription{}
	}
	return s
}

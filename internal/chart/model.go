// Package chart holds the local clinical chart: the patient, visit record and
// prescription collections, the reducer that transitions them, the session that
// persists them as a single snapshot, and the read-only views derived from them.
package chart

// Patient is a registered patient. ID is opaque and timestamp-derived.
type Patient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BirthDate string `json:"birthDate"`
}

// ClinicalRecord is one visit note for a patient.
type ClinicalRecord struct {
	ID             string `json:"id"`
	PatientID      string `json:"patientId"`
	CreatedAt      string `json:"createdAt"`
	ReasonForVisit string `json:"reasonForVisit"`
	History        string `json:"history"`
	PhysicalExam   string `json:"physicalExam"`
	Diagnosis      string `json:"diagnosis"`
	Analysis       string `json:"analysis"`
	ManagementPlan string `json:"managementPlan"`
}

// Prescription is a free-text medication order for a patient.
type Prescription struct {
	ID          string `json:"id"`
	PatientID   string `json:"patientId"`
	CreatedAt   string `json:"createdAt"`
	Medications string `json:"medications"`
	Indications string `json:"indications"`
}

// State is the whole chart. Slice order is insertion order and entries are
// never removed.
type State struct {
	Patients      []Patient        `json:"patients"`
	Records       []ClinicalRecord `json:"records"`
	Prescriptions []Prescription   `json:"prescriptions"`
}

// EmptyState returns a state with non-nil empty collections.
func EmptyState() State {
	return State{
		Patients:      []Patient{},
		Records:       []ClinicalRecord{},
		Prescriptions: []Prescription{},
	}
}

// HasPatient reports whether a patient with the given id is registered.
func (s State) HasPatient(id string) bool {
	for _, p := range s.Patients {
		if p.ID == id {
			return true
		}
	}
	return false
}

package chart

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultLocale is the collation used for patient lists.
var DefaultLocale = language.Spanish

// DashboardCounts are the totals shown on the dashboard.
type DashboardCounts struct {
	Patients      int `json:"patients"`
	Records       int `json:"records"`
	Prescriptions int `json:"prescriptions"`
}

func Dashboard(s State) DashboardCounts {
	return DashboardCounts{
		Patients:      len(s.Patients),
		Records:       len(s.Records),
		Prescriptions: len(s.Prescriptions),
	}
}

// FilterPatients returns the patients whose name contains term, ignoring
// case, sorted by name in DefaultLocale. An empty term returns every patient.
func FilterPatients(s State, term string) []Patient {
	return FilterPatientsIn(DefaultLocale, s, term)
}

// FilterPatientsIn is FilterPatients with an explicit collation locale.
func FilterPatientsIn(tag language.Tag, s State, term string) []Patient {
	fold := cases.Fold()
	needle := fold.String(term)

	out := make([]Patient, 0, len(s.Patients))
	for _, p := range s.Patients {
		if needle == "" || strings.Contains(fold.String(p.Name), needle) {
			out = append(out, p)
		}
	}

	col := collate.New(tag, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b Patient) int {
		return col.CompareString(a.Name, b.Name)
	})
	return out
}

// FindPatient looks a patient up by id.
func FindPatient(s State, id string) (Patient, bool) {
	for _, p := range s.Patients {
		if p.ID == id {
			return p, true
		}
	}
	return Patient{}, false
}

// FindPrescription looks a prescription up by id.
func FindPrescription(s State, id string) (Prescription, bool) {
	for _, p := range s.Prescriptions {
		if p.ID == id {
			return p, true
		}
	}
	return Prescription{}, false
}

// ParseBirthDate parses an ISO YYYY-MM-DD date.
func ParseBirthDate(v string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid birth date %q: expected YYYY-MM-DD", v)
	}
	return t, nil
}

// PatientAge returns the age in whole years at now.
func PatientAge(birthDate string, now time.Time) (int, error) {
	b, err := ParseBirthDate(birthDate)
	if err != nil {
		return 0, err
	}
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return age, nil
}

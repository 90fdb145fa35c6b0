package chart

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTmpl = template.Must(
	template.New("prescription.html").Funcs(template.FuncMap{
		"lines": func(s string) []string { return strings.Split(s, "\n") },
	}).ParseFS(templateFS, "templates/prescription.html"),
)

// Prescriber identifies the physician printed on the document header.
type Prescriber struct {
	Name       string
	Speciality string
}

// DefaultPrescriber is used when no physician is configured.
var DefaultPrescriber = Prescriber{Name: "Dr. Asistente Virtual", Speciality: "Medicina General"}

// PrescriptionDocument is everything a printed prescription shows.
type PrescriptionDocument struct {
	Prescriber   Prescriber
	Patient      Patient
	Prescription Prescription
}

// Date is the prescription date as dd/mm/yyyy.
func (d PrescriptionDocument) Date() string {
	t := parseCreatedAt(d.Prescription.CreatedAt)
	if t.IsZero() {
		return d.Prescription.CreatedAt
	}
	return t.Format("02/01/2006")
}

// FileName is the suggested name for the rendered document.
func (d PrescriptionDocument) FileName() string {
	name := strings.Join(strings.Fields(d.Patient.Name), "_")
	return fmt.Sprintf("formula_%s_%s.html", name, strings.ReplaceAll(d.Date(), "/", "-"))
}

// NewPrescriptionDocument assembles the document for prescriptionID from s.
func NewPrescriptionDocument(s State, prescriptionID string, by Prescriber) (PrescriptionDocument, error) {
	pres, ok := FindPrescription(s, prescriptionID)
	if !ok {
		return PrescriptionDocument{}, fmt.Errorf("prescription %s not found", prescriptionID)
	}
	p, ok := FindPatient(s, pres.PatientID)
	if !ok {
		return PrescriptionDocument{}, fmt.Errorf("%w: %s", ErrUnknownPatient, pres.PatientID)
	}
	if by.Name == "" {
		by = DefaultPrescriber
	}
	return PrescriptionDocument{Prescriber: by, Patient: p, Prescription: pres}, nil
}

// RenderPrescription writes the printable HTML prescription to w.
func RenderPrescription(w io.Writer, doc PrescriptionDocument) error {
	if err := documentTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("render prescription: %w", err)
	}
	return nil
}

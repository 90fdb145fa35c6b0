package chart

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/language"
)

func chartWithPatients(names ...string) State {
	s := EmptyState()
	for i, n := range names {
		id := "P" + string(rune('A'+i))
		s = Reduce(s, AddPatientAndRecord{
			Patient: Patient{ID: id, Name: n, BirthDate: "2000-01-01"},
			Record:  sampleRecord("R"+id, id, "2024-01-01T10:00:00.000Z"),
		})
	}
	return s
}

func patientNames(ps []Patient) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func TestDashboard(t *testing.T) {
	s := chartWithPatients("Ana", "Luis")
	s = Reduce(s, AddPrescription{Prescription: Prescription{ID: "PRES1", PatientID: "PA"}})
	got := Dashboard(s)
	if got.Patients != 2 || got.Records != 2 || got.Prescriptions != 1 {
		t.Errorf("unexpected counts %+v", got)
	}
}

func TestFilterPatients_EmptyTermReturnsAllSorted(t *testing.T) {
	s := chartWithPatients("carlos", "Ana", "Beatriz")
	got := patientNames(FilterPatients(s, ""))
	want := []string{"Ana", "Beatriz", "carlos"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterPatients_CaseInsensitiveSubstring(t *testing.T) {
	s := chartWithPatients("María López", "Mario Ruiz", "Ana Marín")
	got := patientNames(FilterPatients(s, "MAR"))
	want := []string{"Ana Marín", "María López", "Mario Ruiz"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestFilterPatients_NoMatch(t *testing.T) {
	s := chartWithPatients("Ana", "Luis")
	got := FilterPatients(s, "zzz")
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestFilterPatients_SpanishCollation(t *testing.T) {
	s := chartWithPatients("Ñandú", "Nora", "Óscar", "Zoe")
	got := patientNames(FilterPatientsIn(language.Spanish, s, ""))
	want := []string{"Nora", "Ñandú", "Óscar", "Zoe"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestPatientAge(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		birth string
		want  int
	}{
		{"1990-06-15", 34},
		{"1990-06-16", 33},
		{"2024-01-01", 0},
	}
	for _, tt := range tests {
		got, err := PatientAge(tt.birth, now)
		if err != nil {
			t.Fatalf("PatientAge(%s): %v", tt.birth, err)
		}
		if got != tt.want {
			t.Errorf("PatientAge(%s) = %d, want %d", tt.birth, got, tt.want)
		}
	}
	if _, err := PatientAge("15/06/1990", now); err == nil {
		t.Error("expected error for invalid date")
	}
}

func TestTimeline_NewestFirst(t *testing.T) {
	s := EmptyState()
	p := samplePatient()
	s = Reduce(s, AddPatientAndRecord{Patient: p, Record: sampleRecord("R1", p.ID, "2024-01-01T10:00:00.000Z")})
	s = Reduce(s, AddPatientAndRecord{Patient: p, Record: sampleRecord("R2", p.ID, "2024-01-03T10:00:00.000Z")})
	s = Reduce(s, AddPrescription{Prescription: Prescription{ID: "PRES1", PatientID: p.ID, CreatedAt: "2024-01-02T10:00:00.000Z"}})
	s = Reduce(s, AddPrescription{Prescription: Prescription{ID: "PRES2", PatientID: "other", CreatedAt: "2024-01-05T10:00:00.000Z"}})

	items := Timeline(s, p.ID)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	wantKinds := []ItemKind{KindRecord, KindPrescription, KindRecord}
	wantIDs := []string{"R2", "PRES1", "R1"}
	for i, it := range items {
		if it.Kind != wantKinds[i] {
			t.Errorf("item %d: expected kind %s, got %s", i, wantKinds[i], it.Kind)
		}
		var id string
		switch it.Kind {
		case KindRecord:
			if it.Prescription != nil {
				t.Errorf("item %d: record item carries a prescription", i)
			}
			id = it.Record.ID
		case KindPrescription:
			if it.Record != nil {
				t.Errorf("item %d: prescription item carries a record", i)
			}
			id = it.Prescription.ID
		}
		if id != wantIDs[i] {
			t.Errorf("item %d: expected %s, got %s", i, wantIDs[i], id)
		}
	}
	for i := 1; i < len(items); i++ {
		if parseCreatedAt(items[i-1].CreatedAt).Before(parseCreatedAt(items[i].CreatedAt)) {
			t.Errorf("timeline not descending at %d", i)
		}
	}
}

func TestTimeline_TiesKeepRecordsFirst(t *testing.T) {
	s := EmptyState()
	p := samplePatient()
	ts := "2024-01-01T10:00:00.000Z"
	s = Reduce(s, AddPrescription{Prescription: Prescription{ID: "PRES1", PatientID: p.ID, CreatedAt: ts}})
	s = Reduce(s, AddPatientAndRecord{Patient: p, Record: sampleRecord("R1", p.ID, ts)})

	items := Timeline(s, p.ID)
	if len(items) != 2 || items[0].Kind != KindRecord {
		t.Errorf("expected record first on equal timestamps, got %+v", items)
	}
}

func TestTimeline_UnknownPatient(t *testing.T) {
	items := Timeline(chartWithPatients("Ana"), "nobody")
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty timeline, got %#v", items)
	}
}

func TestRenderPrescription(t *testing.T) {
	p := samplePatient()
	s := Reduce(EmptyState(), AddPatientAndRecord{Patient: p, Record: sampleRecord("R1", p.ID, "2024-01-01T10:00:00.000Z")})
	s = Reduce(s, AddPrescription{Prescription: Prescription{
		ID: "PRES1", PatientID: p.ID, CreatedAt: "2024-02-09T15:04:05.000Z",
		Medications: "Amoxicilina 500mg\n<b>cada 8h</b>", Indications: "Tomar con agua",
	}})

	doc, err := NewPrescriptionDocument(s, "PRES1", Prescriber{})
	if err != nil {
		t.Fatalf("NewPrescriptionDocument: %v", err)
	}
	if doc.Prescriber != DefaultPrescriber {
		t.Errorf("expected default prescriber, got %+v", doc.Prescriber)
	}
	if doc.FileName() != "formula_Ana_Gómez_09-02-2024.html" {
		t.Errorf("unexpected file name %s", doc.FileName())
	}

	var buf bytes.Buffer
	if err := RenderPrescription(&buf, doc); err != nil {
		t.Fatalf("RenderPrescription: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Fórmula Médica", "Ana Gómez", "09/02/2024", "Rp/", "Amoxicilina 500mg", "Firma del Médico"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected document to contain %q", want)
		}
	}
	if strings.Contains(out, "<b>cada 8h</b>") {
		t.Error("expected medication text to be escaped")
	}
}

func TestNewPrescriptionDocument_NotFound(t *testing.T) {
	if _, err := NewPrescriptionDocument(EmptyState(), "PRES0", DefaultPrescriber); err == nil {
		t.Error("expected error for unknown prescription")
	}
}

func TestFilterPatients_WhitespaceTermIsLiteral(t *testing.T) {
	s := chartWithPatients("Ana Marín", "Luis", "Zoe Ruiz")
	got := patientNames(FilterPatients(s, " "))
	want := []string{"Ana Marín", "Zoe Ruiz"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

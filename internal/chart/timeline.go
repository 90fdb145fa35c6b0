package chart

import (
	"slices"
	"time"
)

// ItemKind tags a timeline entry.
type ItemKind string

const (
	KindRecord       ItemKind = "record"
	KindPrescription ItemKind = "prescription"
)

// TimelineItem is one entry of a patient timeline. Exactly one of Record and
// Prescription is set, matching Kind.
type TimelineItem struct {
	Kind         ItemKind        `json:"kind"`
	CreatedAt    string          `json:"createdAt"`
	Record       *ClinicalRecord `json:"record,omitempty"`
	Prescription *Prescription   `json:"prescription,omitempty"`
}

// Timeline merges a patient's records and prescriptions, newest first. Items
// with equal timestamps keep records before prescriptions, each in insertion
// order.
func Timeline(s State, patientID string) []TimelineItem {
	items := make([]TimelineItem, 0)
	for i := range s.Records {
		if s.Records[i].PatientID != patientID {
			continue
		}
		r := s.Records[i]
		items = append(items, TimelineItem{Kind: KindRecord, CreatedAt: r.CreatedAt, Record: &r})
	}
	for i := range s.Prescriptions {
		if s.Prescriptions[i].PatientID != patientID {
			continue
		}
		p := s.Prescriptions[i]
		items = append(items, TimelineItem{Kind: KindPrescription, CreatedAt: p.CreatedAt, Prescription: &p})
	}

	slices.SortStableFunc(items, func(a, b TimelineItem) int {
		return parseCreatedAt(b.CreatedAt).Compare(parseCreatedAt(a.CreatedAt))
	})
	return items
}

// parseCreatedAt accepts any RFC 3339 timestamp. Unparseable values sort as
// the zero time, after every valid entry.
func parseCreatedAt(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

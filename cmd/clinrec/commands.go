package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinrec/clinrec/internal/chart"
)

var renderPrescription = chart.RenderPrescription

func registerCmd(a *app) *cobra.Command {
	var in chart.VisitInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a visit, creating the patient when --patient-id is omitted",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, rec, err := a.session.RegisterVisit(cmd.Context(), in)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patient:  %s  %s\n", p.ID, p.Name)
			fmt.Fprintf(out, "Record:   %s  %s\n", rec.ID, rec.CreatedAt)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.PatientID, "patient-id", "", "Existing patient id")
	f.StringVar(&in.Name, "name", "", "Patient full name (new patients)")
	f.StringVar(&in.BirthDate, "birth-date", "", "Birth date YYYY-MM-DD (new patients)")
	f.StringVar(&in.ReasonForVisit, "reason", "", "Reason for visit")
	f.StringVar(&in.History, "history", "", "Current illness history")
	f.StringVar(&in.PhysicalExam, "exam", "", "Physical exam findings")
	f.StringVar(&in.Diagnosis, "diagnosis", "", "Diagnosis")
	f.StringVar(&in.Analysis, "analysis", "", "Analysis")
	f.StringVar(&in.ManagementPlan, "plan", "", "Management plan")
	cmd.MarkFlagRequired("reason")
	return cmd
}

func prescribeCmd(a *app) *cobra.Command {
	var patientID, medications, indications string
	cmd := &cobra.Command{
		Use:   "prescribe",
		Short: "Write a prescription for an existing patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			pres, err := a.session.Prescribe(cmd.Context(), patientID, medications, indications)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Prescription: %s  %s\n", pres.ID, pres.CreatedAt)
			return nil
		},
	}
	cmd.Flags().StringVar(&patientID, "patient-id", "", "Patient id")
	cmd.Flags().StringVar(&medications, "medications", "", "Medications, one per line")
	cmd.Flags().StringVar(&indications, "indications", "", "Indications for the patient")
	cmd.MarkFlagRequired("patient-id")
	cmd.MarkFlagRequired("medications")
	return cmd
}

func patientsCmd(a *app) *cobra.Command {
	var term string
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List patients sorted by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			patients := chart.FilterPatientsIn(a.cfg.Language(), a.session.State(), term)
			if len(patients) == 0 {
				fmt.Fprintln(out, "No patients found.")
				return nil
			}
			fmt.Fprintf(out, "%-16s %-36s %-12s %s\n", "ID", "NAME", "BIRTH DATE", "AGE")
			for _, p := range patients {
				age := "-"
				if n, err := chart.PatientAge(p.BirthDate, a.now()); err == nil {
					age = fmt.Sprint(n)
				}
				fmt.Fprintf(out, "%-16s %-36s %-12s %s\n", p.ID, p.Name, p.BirthDate, age)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&term, "search", "", "Case-insensitive name filter")
	return cmd
}

func timelineCmd(a *app) *cobra.Command {
	var patientID string
	cmd := &cobra.Command{
		Use:   "timeline",
		Short: "Show a patient's visits and prescriptions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := a.session.State()
			p, ok := chart.FindPatient(st, patientID)
			if !ok {
				return fmt.Errorf("%w: %s", chart.ErrUnknownPatient, patientID)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", p.Name, p.ID)
			items := chart.Timeline(st, patientID)
			if len(items) == 0 {
				fmt.Fprintln(out, "No entries.")
				return nil
			}
			for _, item := range items {
				writeTimelineItem(out, item)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&patientID, "patient-id", "", "Patient id")
	cmd.MarkFlagRequired("patient-id")
	return cmd
}

func writeTimelineItem(w io.Writer, item chart.TimelineItem) {
	switch item.Kind {
	case chart.KindRecord:
		r := item.Record
		fmt.Fprintf(w, "\n[%s] Visit %s\n", item.CreatedAt, r.ID)
		field(w, "Reason", r.ReasonForVisit)
		field(w, "History", r.History)
		field(w, "Exam", r.PhysicalExam)
		field(w, "Diagnosis", r.Diagnosis)
		field(w, "Analysis", r.Analysis)
		field(w, "Plan", r.ManagementPlan)
	case chart.KindPrescription:
		p := item.Prescription
		fmt.Fprintf(w, "\n[%s] Prescription %s\n", item.CreatedAt, p.ID)
		field(w, "Medications", p.Medications)
		field(w, "Indications", p.Indications)
	}
}

func field(w io.Writer, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(w, "  %-12s %s\n", label+":", strings.ReplaceAll(value, "\n", "\n               "))
}

func dashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show chart totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			d := chart.Dashboard(a.session.State())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Patients:       %d\n", d.Patients)
			fmt.Fprintf(out, "Records:        %d\n", d.Records)
			fmt.Fprintf(out, "Prescriptions:  %d\n", d.Prescriptions)
			return nil
		},
	}
}

func printCmd(a *app) *cobra.Command {
	var prescriptionID, outPath string
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Render a prescription as printable HTML",
		Long: "Render a prescription as printable HTML. Without --out the document is " +
			"written to the suggested file name in the current directory; --out - writes to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := chart.NewPrescriptionDocument(a.session.State(), prescriptionID, a.prescriber())
			if err != nil {
				return err
			}
			if outPath == "-" {
				return renderPrescription(cmd.OutOrStdout(), doc)
			}
			if outPath == "" {
				outPath = doc.FileName()
			}
			if err := writeDocument(outPath, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&prescriptionID, "prescription-id", "", "Prescription id")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file, or - for stdout")
	cmd.MarkFlagRequired("prescription-id")
	return cmd
}

func writeDocument(path string, doc chart.PrescriptionDocument) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if err := renderPrescription(f, doc); err != nil {
		return errors.Join(err, os.Remove(path))
	}
	return nil
}

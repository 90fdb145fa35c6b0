package medicalrecord

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinrec/clinrec/internal/platform/db"
)

type RepoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) *RepoPG {
	return &RepoPG{pool: pool}
}

func (r *RepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const recordCols = `m.id, m.patient_id, m.doctor_id, COALESCE(u.name, ''), COALESCE(u.speciality, ''),
	m.reason, m.history, m.physical_exam, m.diagnosis, m.analysis, m.management_plan,
	m.version, m.is_active, m.created_at, m.updated_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var m MedicalRecord
	if err := row.Scan(
		&m.ID, &m.PatientID, &m.DoctorID, &m.DoctorName, &m.DoctorSpeciality,
		&m.Reason, &m.History, &m.PhysicalExam, &m.Diagnosis, &m.Analysis, &m.ManagementPlan,
		&m.Version, &m.IsActive, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("scan medical record: %w", err)
	}
	return &m, nil
}

func (r *RepoPG) Create(ctx context.Context, m *MedicalRecord) error {
	m.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, reason, history, physical_exam,
			diagnosis, analysis, management_plan, version, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		m.ID, m.PatientID, m.DoctorID, m.Reason, m.History, m.PhysicalExam,
		m.Diagnosis, m.Analysis, m.ManagementPlan, m.Version, m.IsActive,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert medical record: %w", err)
	}
	return nil
}

func (r *RepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	q := fmt.Sprintf(`SELECT %s FROM medical_records m
		LEFT JOIN users u ON u.id = m.doctor_id
		WHERE m.patient_id = $1 AND m.is_active
		ORDER BY m.created_at DESC`, recordCols)
	rows, err := r.conn(ctx).Query(ctx, q, patientID)
	if err != nil {
		return nil, fmt.Errorf("list medical records: %w", err)
	}
	defer rows.Close()

	items := []*MedicalRecord{}
	for rows.Next() {
		m, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate medical records: %w", err)
	}
	return items, nil
}

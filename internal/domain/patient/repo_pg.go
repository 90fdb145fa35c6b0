package patient

import (
	"context"
	"errors"
	"fmt"
	"time"

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

const patientCols = `id, name, phone, COALESCE(email, ''), birth_date, COALESCE(gender, ''),
	address, emergency_contact, emergency_phone, is_active, status, created_by, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var birth *time.Time
	err := row.Scan(
		&p.ID, &p.Name, &p.Phone, &p.Email, &birth, &p.Gender,
		&p.Address, &p.EmergencyContact, &p.EmergencyPhone, &p.IsActive, &p.Status, &p.CreatedBy,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	if birth != nil {
		p.BirthDate = birth.Format(time.DateOnly)
	}
	return &p, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *RepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	var birth *time.Time
	if p.BirthDate != "" {
		t, err := time.Parse(time.DateOnly, p.BirthDate)
		if err != nil {
			return fmt.Errorf("parse birth date: %w", err)
		}
		birth = &t
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, name, phone, email, birth_date, gender, address,
			emergency_contact, emergency_phone, is_active, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`,
		p.ID, p.Name, p.Phone, nullable(p.Email), birth, nullable(p.Gender), p.Address,
		p.EmergencyContact, p.EmergencyPhone, p.IsActive, p.Status, p.CreatedBy,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *RepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	q := fmt.Sprintf("SELECT %s FROM patients WHERE id = $1", patientCols)
	return scanPatient(r.conn(ctx).QueryRow(ctx, q, id))
}

func (r *RepoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	q := fmt.Sprintf(`SELECT %s FROM patients WHERE is_active AND status = 'active'
		ORDER BY created_at DESC`, patientCols)
	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	items := []*Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return items, nil
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const academyColumns = `id, name, email, phone, address, city, contact_person, password_hash, status, reviewed_by, reviewed_at, created_at`

func scanAcademy(row scanner) (Academy, error) {
	var i Academy
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.City,
		&i.ContactPerson,
		&i.PasswordHash,
		&i.Status,
		&i.ReviewedBy,
		&i.ReviewedAt,
		&i.CreatedAt,
	)
	return i, err
}

const createAcademy = `
INSERT INTO academies (name, email, phone, address, city, contact_person, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + academyColumns

type CreateAcademyParams struct {
	Name          string
	Email         string
	Phone         string
	Address       string
	City          string
	ContactPerson string
	PasswordHash  string
}

func (q *Queries) CreateAcademy(ctx context.Context, arg CreateAcademyParams) (Academy, error) {
	row := q.db.QueryRow(ctx, createAcademy,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.City,
		arg.ContactPerson,
		arg.PasswordHash,
	)
	return scanAcademy(row)
}

const getAcademy = `SELECT ` + academyColumns + ` FROM academies WHERE id = $1`

func (q *Queries) GetAcademy(ctx context.Context, id uuid.UUID) (Academy, error) {
	return scanAcademy(q.db.QueryRow(ctx, getAcademy, id))
}

const getAcademyForUpdate = `SELECT ` + academyColumns + ` FROM academies WHERE id = $1 FOR UPDATE`

func (q *Queries) GetAcademyForUpdate(ctx context.Context, id uuid.UUID) (Academy, error) {
	return scanAcademy(q.db.QueryRow(ctx, getAcademyForUpdate, id))
}

const listAcademies = `
SELECT ` + academyColumns + ` FROM academies
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC`

func (q *Queries) ListAcademies(ctx context.Context, status pgtype.Text) ([]Academy, error) {
	rows, err := q.db.Query(ctx, listAcademies, status)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAcademy)
}

const updateAcademyStatus = `
UPDATE academies
SET status = $2, reviewed_by = $3, reviewed_at = now()
WHERE id = $1
RETURNING ` + academyColumns

type UpdateAcademyStatusParams struct {
	ID         uuid.UUID
	Status     string
	ReviewedBy uuid.UUID
}

func (q *Queries) UpdateAcademyStatus(ctx context.Context, arg UpdateAcademyStatusParams) (Academy, error) {
	return scanAcademy(q.db.QueryRow(ctx, updateAcademyStatus, arg.ID, arg.Status, arg.ReviewedBy))
}

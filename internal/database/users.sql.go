package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, academy_id, email, hashed_password, full_name, role, phone, is_active, created_at, updated_at`

func scanUser(row scanner) (User, error) {
	var i User
	err := row.Scan(
		&i.ID,
		&i.AcademyID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.Phone,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createUser = `
INSERT INTO users (academy_id, email, hashed_password, full_name, role, phone)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + userColumns

type CreateUserParams struct {
	AcademyID      pgtype.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Phone          string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.AcademyID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
		arg.Phone,
	)
	return scanUser(row)
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND is_active = true`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND is_active = true`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const listUsers = `
SELECT ` + userColumns + ` FROM users
WHERE is_active = true
  AND ($1::uuid IS NULL OR academy_id = $1)
  AND ($2::text IS NULL OR role = $2)
ORDER BY full_name`

type ListUsersParams struct {
	AcademyID pgtype.UUID
	Role      pgtype.Text
}

func (q *Queries) ListUsers(ctx context.Context, arg ListUsersParams) ([]User, error) {
	rows, err := q.db.Query(ctx, listUsers, arg.AcademyID, arg.Role)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

const updateUser = `
UPDATE users
SET full_name = $2, phone = $3, role = $4,
    hashed_password = COALESCE($5, hashed_password),
    updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + userColumns

// UpdateUserParams replaces the profile fields. A null HashedPassword keeps
// the current password.
type UpdateUserParams struct {
	ID             uuid.UUID
	FullName       string
	Phone          string
	Role           string
	HashedPassword pgtype.Text
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	return scanUser(q.db.QueryRow(ctx, updateUser,
		arg.ID,
		arg.FullName,
		arg.Phone,
		arg.Role,
		arg.HashedPassword,
	))
}

const softDeleteUser = `
UPDATE users SET is_active = false, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING id`

func (q *Queries) SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteUser, id).Scan(&out)
	return out, err
}

const countUsersByRole = `SELECT count(*) FROM users WHERE role = $1 AND is_active = true`

func (q *Queries) CountUsersByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countUsersByRole, role).Scan(&n)
	return n, err
}

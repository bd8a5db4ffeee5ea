package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const playerColumns = `id, academy_id, user_id, parent_id, full_name, date_of_birth, position, jersey_number, height_cm, weight_kg, dominant_foot, status, notes, created_at, updated_at`

func scanPlayer(row scanner) (Player, error) {
	var i Player
	err := row.Scan(
		&i.ID,
		&i.AcademyID,
		&i.UserID,
		&i.ParentID,
		&i.FullName,
		&i.DateOfBirth,
		&i.Position,
		&i.JerseyNumber,
		&i.HeightCm,
		&i.WeightKg,
		&i.DominantFoot,
		&i.Status,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPlayer = `
INSERT INTO players (academy_id, user_id, parent_id, full_name, date_of_birth, position, jersey_number, height_cm, weight_kg, dominant_foot, status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + playerColumns

type CreatePlayerParams struct {
	AcademyID    uuid.UUID
	UserID       pgtype.UUID
	ParentID     pgtype.UUID
	FullName     string
	DateOfBirth  pgtype.Date
	Position     string
	JerseyNumber pgtype.Int4
	HeightCm     pgtype.Numeric
	WeightKg     pgtype.Numeric
	DominantFoot string
	Status       string
	Notes        string
}

func (q *Queries) CreatePlayer(ctx context.Context, arg CreatePlayerParams) (Player, error) {
	row := q.db.QueryRow(ctx, createPlayer,
		arg.AcademyID,
		arg.UserID,
		arg.ParentID,
		arg.FullName,
		arg.DateOfBirth,
		arg.Position,
		arg.JerseyNumber,
		arg.HeightCm,
		arg.WeightKg,
		arg.DominantFoot,
		arg.Status,
		arg.Notes,
	)
	return scanPlayer(row)
}

const getPlayer = `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

func (q *Queries) GetPlayer(ctx context.Context, id uuid.UUID) (Player, error) {
	return scanPlayer(q.db.QueryRow(ctx, getPlayer, id))
}

const listPlayers = `
SELECT ` + playerColumns + ` FROM players
WHERE ($1::uuid IS NULL OR academy_id = $1)
  AND ($2::text IS NULL OR full_name ILIKE '%' || $2 || '%')
  AND ($3::uuid IS NULL OR parent_id = $3 OR user_id = $3)
ORDER BY full_name
LIMIT $4 OFFSET $5`

type ListPlayersParams struct {
	AcademyID pgtype.UUID
	Search    pgtype.Text
	LinkedTo  pgtype.UUID
	Limit     int32
	Offset    int32
}

func (q *Queries) ListPlayers(ctx context.Context, arg ListPlayersParams) ([]Player, error) {
	rows, err := q.db.Query(ctx, listPlayers, arg.AcademyID, arg.Search, arg.LinkedTo, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPlayer)
}

const listPlayersByIDs = `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1::uuid[]) ORDER BY full_name`

func (q *Queries) ListPlayersByIDs(ctx context.Context, ids []uuid.UUID) ([]Player, error) {
	rows, err := q.db.Query(ctx, listPlayersByIDs, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPlayer)
}

const updatePlayer = `
UPDATE players
SET parent_id = $2, full_name = $3, date_of_birth = $4, position = $5, jersey_number = $6,
    height_cm = $7, weight_kg = $8, dominant_foot = $9, status = $10, notes = $11, updated_at = now()
WHERE id = $1
RETURNING ` + playerColumns

type UpdatePlayerParams struct {
	ID           uuid.UUID
	ParentID     pgtype.UUID
	FullName     string
	DateOfBirth  pgtype.Date
	Position     string
	JerseyNumber pgtype.Int4
	HeightCm     pgtype.Numeric
	WeightKg     pgtype.Numeric
	DominantFoot string
	Status       string
	Notes        string
}

func (q *Queries) UpdatePlayer(ctx context.Context, arg UpdatePlayerParams) (Player, error) {
	row := q.db.QueryRow(ctx, updatePlayer,
		arg.ID,
		arg.ParentID,
		arg.FullName,
		arg.DateOfBirth,
		arg.Position,
		arg.JerseyNumber,
		arg.HeightCm,
		arg.WeightKg,
		arg.DominantFoot,
		arg.Status,
		arg.Notes,
	)
	return scanPlayer(row)
}

const deletePlayer = `DELETE FROM players WHERE id = $1 RETURNING id`

func (q *Queries) DeletePlayer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deletePlayer, id).Scan(&out)
	return out, err
}

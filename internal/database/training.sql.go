package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const trainingProgramColumns = `id, academy_id, coach_id, title, description, focus_area, level, starts_on, ends_on, sessions_per_week, created_at, updated_at`

func scanTrainingProgram(row scanner) (TrainingProgram, error) {
	var i TrainingProgram
	err := row.Scan(
		&i.ID,
		&i.AcademyID,
		&i.CoachID,
		&i.Title,
		&i.Description,
		&i.FocusArea,
		&i.Level,
		&i.StartsOn,
		&i.EndsOn,
		&i.SessionsPerWeek,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createTrainingProgram = `
INSERT INTO training_programs (academy_id, coach_id, title, description, focus_area, level, starts_on, ends_on, sessions_per_week)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING ` + trainingProgramColumns

type CreateTrainingProgramParams struct {
	AcademyID       uuid.UUID
	CoachID         pgtype.UUID
	Title           string
	Description     string
	FocusArea       string
	Level           string
	StartsOn        pgtype.Date
	EndsOn          pgtype.Date
	SessionsPerWeek int32
}

func (q *Queries) CreateTrainingProgram(ctx context.Context, arg CreateTrainingProgramParams) (TrainingProgram, error) {
	row := q.db.QueryRow(ctx, createTrainingProgram,
		arg.AcademyID,
		arg.CoachID,
		arg.Title,
		arg.Description,
		arg.FocusArea,
		arg.Level,
		arg.StartsOn,
		arg.EndsOn,
		arg.SessionsPerWeek,
	)
	return scanTrainingProgram(row)
}

const getTrainingProgram = `SELECT ` + trainingProgramColumns + ` FROM training_programs WHERE id = $1`

func (q *Queries) GetTrainingProgram(ctx context.Context, id uuid.UUID) (TrainingProgram, error) {
	return scanTrainingProgram(q.db.QueryRow(ctx, getTrainingProgram, id))
}

const listTrainingPrograms = `
SELECT ` + trainingProgramColumns + ` FROM training_programs
WHERE ($1::uuid IS NULL OR academy_id = $1)
  AND ($2::uuid IS NULL OR coach_id = $2)
ORDER BY created_at DESC`

type ListTrainingProgramsParams struct {
	AcademyID pgtype.UUID
	CoachID   pgtype.UUID
}

func (q *Queries) ListTrainingPrograms(ctx context.Context, arg ListTrainingProgramsParams) ([]TrainingProgram, error) {
	rows, err := q.db.Query(ctx, listTrainingPrograms, arg.AcademyID, arg.CoachID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTrainingProgram)
}

const updateTrainingProgram = `
UPDATE training_programs
SET coach_id = $2, title = $3, description = $4, focus_area = $5, level = $6,
    starts_on = $7, ends_on = $8, sessions_per_week = $9, updated_at = now()
WHERE id = $1
RETURNING ` + trainingProgramColumns

type UpdateTrainingProgramParams struct {
	ID              uuid.UUID
	CoachID         pgtype.UUID
	Title           string
	Description     string
	FocusArea       string
	Level           string
	StartsOn        pgtype.Date
	EndsOn          pgtype.Date
	SessionsPerWeek int32
}

func (q *Queries) UpdateTrainingProgram(ctx context.Context, arg UpdateTrainingProgramParams) (TrainingProgram, error) {
	row := q.db.QueryRow(ctx, updateTrainingProgram,
		arg.ID,
		arg.CoachID,
		arg.Title,
		arg.Description,
		arg.FocusArea,
		arg.Level,
		arg.StartsOn,
		arg.EndsOn,
		arg.SessionsPerWeek,
	)
	return scanTrainingProgram(row)
}

const deleteTrainingProgram = `DELETE FROM training_programs WHERE id = $1 RETURNING id`

func (q *Queries) DeleteTrainingProgram(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deleteTrainingProgram, id).Scan(&out)
	return out, err
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const attendanceColumns = `id, event_id, player_id, status, notes, recorded_by, created_at`

func scanAttendance(row scanner) (Attendance, error) {
	var i Attendance
	err := row.Scan(
		&i.ID,
		&i.EventID,
		&i.PlayerID,
		&i.Status,
		&i.Notes,
		&i.RecordedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createAttendance = `
INSERT INTO attendance (event_id, player_id, status, notes, recorded_by)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + attendanceColumns

type CreateAttendanceParams struct {
	EventID    uuid.UUID
	PlayerID   uuid.UUID
	Status     string
	Notes      string
	RecordedBy uuid.UUID
}

func (q *Queries) CreateAttendance(ctx context.Context, arg CreateAttendanceParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, createAttendance, arg.EventID, arg.PlayerID, arg.Status, arg.Notes, arg.RecordedBy)
	return scanAttendance(row)
}

const getAttendance = `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`

func (q *Queries) GetAttendance(ctx context.Context, id uuid.UUID) (Attendance, error) {
	return scanAttendance(q.db.QueryRow(ctx, getAttendance, id))
}

const listAttendance = `
SELECT ` + attendanceColumns + ` FROM attendance
WHERE ($1::uuid IS NULL OR event_id = $1)
  AND ($2::uuid IS NULL OR player_id = $2)
ORDER BY created_at`

type ListAttendanceParams struct {
	EventID  pgtype.UUID
	PlayerID pgtype.UUID
}

func (q *Queries) ListAttendance(ctx context.Context, arg ListAttendanceParams) ([]Attendance, error) {
	rows, err := q.db.Query(ctx, listAttendance, arg.EventID, arg.PlayerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttendance)
}

const updateAttendance = `
UPDATE attendance SET status = $2, notes = $3
WHERE id = $1
RETURNING ` + attendanceColumns

type UpdateAttendanceParams struct {
	ID     uuid.UUID
	Status string
	Notes  string
}

func (q *Queries) UpdateAttendance(ctx context.Context, arg UpdateAttendanceParams) (Attendance, error) {
	return scanAttendance(q.db.QueryRow(ctx, updateAttendance, arg.ID, arg.Status, arg.Notes))
}

const deleteAttendance = `DELETE FROM attendance WHERE id = $1 RETURNING id`

func (q *Queries) DeleteAttendance(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deleteAttendance, id).Scan(&out)
	return out, err
}

const summarizeAttendanceByPlayers = `
SELECT player_id,
       count(*)::int AS total,
       count(*) FILTER (WHERE status = 'present')::int AS present,
       count(*) FILTER (WHERE status = 'late')::int AS late,
       count(*) FILTER (WHERE status = 'absent')::int AS absent
FROM attendance
WHERE player_id = ANY($1::uuid[])
GROUP BY player_id`

type AttendanceSummary struct {
	PlayerID uuid.UUID `json:"player_id"`
	Total    int32     `json:"total"`
	Present  int32     `json:"present"`
	Late     int32     `json:"late"`
	Absent   int32     `json:"absent"`
}

func (q *Queries) SummarizeAttendanceByPlayers(ctx context.Context, playerIDs []uuid.UUID) ([]AttendanceSummary, error) {
	rows, err := q.db.Query(ctx, summarizeAttendanceByPlayers, playerIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (AttendanceSummary, error) {
		var i AttendanceSummary
		err := row.Scan(&i.PlayerID, &i.Total, &i.Present, &i.Late, &i.Absent)
		return i, err
	})
}

package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const eventColumns = `id, academy_id, title, description, event_type, location, starts_at, ends_at, created_by, created_at`

func scanEvent(row scanner) (Event, error) {
	var i Event
	err := row.Scan(
		&i.ID,
		&i.AcademyID,
		&i.Title,
		&i.Description,
		&i.EventType,
		&i.Location,
		&i.StartsAt,
		&i.EndsAt,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createEvent = `
INSERT INTO events (academy_id, title, description, event_type, location, starts_at, ends_at, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + eventColumns

type CreateEventParams struct {
	AcademyID   uuid.UUID
	Title       string
	Description string
	EventType   string
	Location    string
	StartsAt    time.Time
	EndsAt      pgtype.Timestamptz
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (Event, error) {
	row := q.db.QueryRow(ctx, createEvent,
		arg.AcademyID,
		arg.Title,
		arg.Description,
		arg.EventType,
		arg.Location,
		arg.StartsAt,
		arg.EndsAt,
		arg.CreatedBy,
	)
	return scanEvent(row)
}

const getEvent = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

func (q *Queries) GetEvent(ctx context.Context, id uuid.UUID) (Event, error) {
	return scanEvent(q.db.QueryRow(ctx, getEvent, id))
}

const listEvents = `
SELECT ` + eventColumns + ` FROM events
WHERE ($1::uuid IS NULL OR academy_id = $1)
  AND ($2::timestamptz IS NULL OR starts_at >= $2)
  AND ($3::timestamptz IS NULL OR starts_at < $3)
ORDER BY starts_at`

type ListEventsParams struct {
	AcademyID pgtype.UUID
	From      pgtype.Timestamptz
	To        pgtype.Timestamptz
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.Query(ctx, listEvents, arg.AcademyID, arg.From, arg.To)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanEvent)
}

const updateEvent = `
UPDATE events
SET title = $2, description = $3, event_type = $4, location = $5, starts_at = $6, ends_at = $7
WHERE id = $1
RETURNING ` + eventColumns

type UpdateEventParams struct {
	ID          uuid.UUID
	Title       string
	Description string
	EventType   string
	Location    string
	StartsAt    time.Time
	EndsAt      pgtype.Timestamptz
}

func (q *Queries) UpdateEvent(ctx context.Context, arg UpdateEventParams) (Event, error) {
	row := q.db.QueryRow(ctx, updateEvent,
		arg.ID,
		arg.Title,
		arg.Description,
		arg.EventType,
		arg.Location,
		arg.StartsAt,
		arg.EndsAt,
	)
	return scanEvent(row)
}

const deleteEvent = `DELETE FROM events WHERE id = $1 RETURNING id`

func (q *Queries) DeleteEvent(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deleteEvent, id).Scan(&out)
	return out, err
}

package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const playerComparisonColumns = `id, scout_id, player_ids, snapshot, notes, created_at`

func scanPlayerComparison(row scanner) (PlayerComparison, error) {
	var i PlayerComparison
	err := row.Scan(&i.ID, &i.ScoutID, &i.PlayerIds, &i.Snapshot, &i.Notes, &i.CreatedAt)
	return i, err
}

const createPlayerComparison = `
INSERT INTO player_comparisons (scout_id, player_ids, snapshot, notes)
VALUES ($1, $2, $3, $4)
RETURNING ` + playerComparisonColumns

type CreatePlayerComparisonParams struct {
	ScoutID   uuid.UUID
	PlayerIds []uuid.UUID
	Snapshot  []byte
	Notes     string
}

func (q *Queries) CreatePlayerComparison(ctx context.Context, arg CreatePlayerComparisonParams) (PlayerComparison, error) {
	row := q.db.QueryRow(ctx, createPlayerComparison, arg.ScoutID, arg.PlayerIds, arg.Snapshot, arg.Notes)
	return scanPlayerComparison(row)
}

const getPlayerComparison = `SELECT ` + playerComparisonColumns + ` FROM player_comparisons WHERE id = $1`

func (q *Queries) GetPlayerComparison(ctx context.Context, id uuid.UUID) (PlayerComparison, error) {
	return scanPlayerComparison(q.db.QueryRow(ctx, getPlayerComparison, id))
}

const listPlayerComparisons = `
SELECT ` + playerComparisonColumns + ` FROM player_comparisons
WHERE ($1::uuid IS NULL OR scout_id = $1)
ORDER BY created_at DESC`

func (q *Queries) ListPlayerComparisons(ctx context.Context, scoutID pgtype.UUID) ([]PlayerComparison, error) {
	rows, err := q.db.Query(ctx, listPlayerComparisons, scoutID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPlayerComparison)
}

const deletePlayerComparison = `DELETE FROM player_comparisons WHERE id = $1 RETURNING id`

func (q *Queries) DeletePlayerComparison(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deletePlayerComparison, id).Scan(&out)
	return out, err
}

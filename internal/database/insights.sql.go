package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const aiInsightColumns = `id, player_id, insight_type, title, summary, score, created_by, created_at`

func scanAiInsight(row scanner) (AiInsight, error) {
	var i AiInsight
	err := row.Scan(
		&i.ID,
		&i.PlayerID,
		&i.InsightType,
		&i.Title,
		&i.Summary,
		&i.Score,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createAiInsight = `
INSERT INTO ai_insights (player_id, insight_type, title, summary, score, created_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + aiInsightColumns

type CreateAiInsightParams struct {
	PlayerID    uuid.UUID
	InsightType string
	Title       string
	Summary     string
	Score       pgtype.Numeric
	CreatedBy   uuid.UUID
}

func (q *Queries) CreateAiInsight(ctx context.Context, arg CreateAiInsightParams) (AiInsight, error) {
	row := q.db.QueryRow(ctx, createAiInsight,
		arg.PlayerID,
		arg.InsightType,
		arg.Title,
		arg.Summary,
		arg.Score,
		arg.CreatedBy,
	)
	return scanAiInsight(row)
}

const getAiInsight = `SELECT ` + aiInsightColumns + ` FROM ai_insights WHERE id = $1`

func (q *Queries) GetAiInsight(ctx context.Context, id uuid.UUID) (AiInsight, error) {
	return scanAiInsight(q.db.QueryRow(ctx, getAiInsight, id))
}

const listAiInsights = `
SELECT i.id, i.player_id, i.insight_type, i.title, i.summary, i.score, i.created_by, i.created_at
FROM ai_insights i
JOIN players p ON p.id = i.player_id
WHERE ($1::uuid IS NULL OR i.player_id = $1)
  AND ($2::uuid IS NULL OR p.academy_id = $2)
ORDER BY i.created_at DESC`

type ListAiInsightsParams struct {
	PlayerID  pgtype.UUID
	AcademyID pgtype.UUID
}

func (q *Queries) ListAiInsights(ctx context.Context, arg ListAiInsightsParams) ([]AiInsight, error) {
	rows, err := q.db.Query(ctx, listAiInsights, arg.PlayerID, arg.AcademyID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAiInsight)
}

const deleteAiInsight = `DELETE FROM ai_insights WHERE id = $1 RETURNING id`

func (q *Queries) DeleteAiInsight(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deleteAiInsight, id).Scan(&out)
	return out, err
}

const averageInsightScores = `
SELECT player_id, insight_type, avg(score)::numeric(5,2)
FROM ai_insights
WHERE player_id = ANY($1::uuid[])
GROUP BY player_id, insight_type`

type InsightScore struct {
	PlayerID    uuid.UUID
	InsightType string
	Average     pgtype.Numeric
}

func (q *Queries) AverageInsightScores(ctx context.Context, playerIDs []uuid.UUID) ([]InsightScore, error) {
	rows, err := q.db.Query(ctx, averageInsightScores, playerIDs)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row scanner) (InsightScore, error) {
		var i InsightScore
		err := row.Scan(&i.PlayerID, &i.InsightType, &i.Average)
		return i, err
	})
}

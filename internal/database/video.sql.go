package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const videoAnalysisColumns = `id, player_id, video_url, status, progress, result, error, requested_by, created_at, started_at, completed_at`

func scanVideoAnalysis(row scanner) (VideoAnalysis, error) {
	var i VideoAnalysis
	err := row.Scan(
		&i.ID,
		&i.PlayerID,
		&i.VideoUrl,
		&i.Status,
		&i.Progress,
		&i.Result,
		&i.Error,
		&i.RequestedBy,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
	)
	return i, err
}

const createVideoAnalysis = `
INSERT INTO video_analyses (player_id, video_url, requested_by)
VALUES ($1, $2, $3)
RETURNING ` + videoAnalysisColumns

type CreateVideoAnalysisParams struct {
	PlayerID    uuid.UUID
	VideoUrl    string
	RequestedBy uuid.UUID
}

func (q *Queries) CreateVideoAnalysis(ctx context.Context, arg CreateVideoAnalysisParams) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, createVideoAnalysis, arg.PlayerID, arg.VideoUrl, arg.RequestedBy))
}

const getVideoAnalysis = `SELECT ` + videoAnalysisColumns + ` FROM video_analyses WHERE id = $1`

func (q *Queries) GetVideoAnalysis(ctx context.Context, id uuid.UUID) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, getVideoAnalysis, id))
}

const listVideoAnalyses = `
SELECT ` + videoAnalysisColumns + ` FROM video_analyses
WHERE ($1::uuid IS NULL OR player_id = $1)
  AND ($2::uuid IS NULL OR requested_by = $2)
ORDER BY created_at DESC`

type ListVideoAnalysesParams struct {
	PlayerID    pgtype.UUID
	RequestedBy pgtype.UUID
}

func (q *Queries) ListVideoAnalyses(ctx context.Context, arg ListVideoAnalysesParams) ([]VideoAnalysis, error) {
	rows, err := q.db.Query(ctx, listVideoAnalyses, arg.PlayerID, arg.RequestedBy)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVideoAnalysis)
}

// StartVideoAnalysis moves a queued (or interrupted) job to processing. It
// returns pgx.ErrNoRows when the job was cancelled or already finished.
const startVideoAnalysis = `
UPDATE video_analyses
SET status = 'processing', started_at = COALESCE(started_at, now())
WHERE id = $1 AND status IN ('queued', 'processing')
RETURNING ` + videoAnalysisColumns

func (q *Queries) StartVideoAnalysis(ctx context.Context, id uuid.UUID) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, startVideoAnalysis, id))
}

const updateVideoAnalysisProgress = `
UPDATE video_analyses SET progress = $2, result = $3
WHERE id = $1 AND status = 'processing'`

type UpdateVideoAnalysisProgressParams struct {
	ID       uuid.UUID
	Progress int32
	Result   []byte
}

func (q *Queries) UpdateVideoAnalysisProgress(ctx context.Context, arg UpdateVideoAnalysisProgressParams) error {
	_, err := q.db.Exec(ctx, updateVideoAnalysisProgress, arg.ID, arg.Progress, arg.Result)
	return err
}

const completeVideoAnalysis = `
UPDATE video_analyses
SET status = 'completed', progress = 100, result = $2, completed_at = now()
WHERE id = $1 AND status = 'processing'
RETURNING ` + videoAnalysisColumns

func (q *Queries) CompleteVideoAnalysis(ctx context.Context, id uuid.UUID, result []byte) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, completeVideoAnalysis, id, result))
}

const failVideoAnalysis = `
UPDATE video_analyses
SET status = 'failed', error = $2, completed_at = now()
WHERE id = $1 AND status IN ('queued', 'processing')
RETURNING ` + videoAnalysisColumns

func (q *Queries) FailVideoAnalysis(ctx context.Context, id uuid.UUID, reason string) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, failVideoAnalysis, id, reason))
}

const cancelVideoAnalysis = `
UPDATE video_analyses
SET status = 'cancelled', completed_at = now()
WHERE id = $1 AND status IN ('queued', 'processing')
RETURNING ` + videoAnalysisColumns

func (q *Queries) CancelVideoAnalysis(ctx context.Context, id uuid.UUID) (VideoAnalysis, error) {
	return scanVideoAnalysis(q.db.QueryRow(ctx, cancelVideoAnalysis, id))
}

const listResumableVideoAnalyses = `
SELECT ` + videoAnalysisColumns + ` FROM video_analyses
WHERE status IN ('queued', 'processing')
ORDER BY created_at`

func (q *Queries) ListResumableVideoAnalyses(ctx context.Context) ([]VideoAnalysis, error) {
	rows, err := q.db.Query(ctx, listResumableVideoAnalyses)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanVideoAnalysis)
}

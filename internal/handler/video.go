package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/ascend-academy/api/internal/analysis"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// VideoStore defines the database methods needed by video analysis handlers.
type VideoStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (database.Player, error)
	CreateVideoAnalysis(ctx context.Context, arg database.CreateVideoAnalysisParams) (database.VideoAnalysis, error)
	GetVideoAnalysis(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error)
	ListVideoAnalyses(ctx context.Context, arg database.ListVideoAnalysesParams) ([]database.VideoAnalysis, error)
	CancelVideoAnalysis(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error)
}

// AnalysisQueue schedules and cancels background jobs. Satisfied by *analysis.Queue.
type AnalysisQueue interface {
	Enqueue(id uuid.UUID) error
	Cancel(ctx context.Context, id uuid.UUID) (database.VideoAnalysis, error)
}

// VideoAnalysisHandler handles the /ai-insights/video-analysis endpoints.
type VideoAnalysisHandler struct {
	store VideoStore
	queue AnalysisQueue
}

// NewVideoAnalysisHandler creates a new VideoAnalysisHandler.
func NewVideoAnalysisHandler(store VideoStore, queue AnalysisQueue) *VideoAnalysisHandler {
	return &VideoAnalysisHandler{store: store, queue: queue}
}

// RegisterRoutes registers video analysis endpoints.
func (h *VideoAnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/cancel", h.Cancel)
}

// --- Request / Response types ---

type createVideoAnalysisRequest struct {
	PlayerID string `json:"player_id"`
	VideoURL string `json:"video_url"`
}

type videoAnalysisResponse struct {
	ID          uuid.UUID       `json:"id"`
	PlayerID    uuid.UUID       `json:"player_id"`
	VideoURL    string          `json:"video_url"`
	Status      string          `json:"status"`
	Progress    int32           `json:"progress"`
	Result      json.RawMessage `json:"result"`
	Error       string          `json:"error,omitempty"`
	RequestedBy uuid.UUID       `json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at"`
}

func toVideoAnalysisResponse(v database.VideoAnalysis) videoAnalysisResponse {
	result := v.Result
	if len(result) == 0 {
		result = json.RawMessage("{}")
	}
	return videoAnalysisResponse{
		ID:          v.ID,
		PlayerID:    v.PlayerID,
		VideoURL:    v.VideoUrl,
		Status:      v.Status,
		Progress:    v.Progress,
		Result:      result,
		Error:       v.Error,
		RequestedBy: v.RequestedBy,
		CreatedAt:   v.CreatedAt,
		StartedAt:   timePtr(v.StartedAt),
		CompletedAt: timePtr(v.CompletedAt),
	}
}

// --- Handlers ---

// List returns jobs for ?player_id=, or the caller's own requests when no
// player is given.
func (h *VideoAnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	playerID, err := optionalUUID(r.URL.Query().Get("player_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player_id"})
		return
	}

	params := database.ListVideoAnalysesParams{PlayerID: playerID}
	if playerID.Valid {
		if _, ok := loadPlayer(w, r, h.store, playerID.Bytes); !ok {
			return
		}
	} else if claims.Role != enum.RoleSuperAdmin {
		params.RequestedBy = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	jobs, err := h.store.ListVideoAnalyses(r.Context(), params)
	if err != nil {
		internalError(w, "list video analyses", err)
		return
	}

	resp := make([]videoAnalysisResponse, len(jobs))
	for i, v := range jobs {
		resp[i] = toVideoAnalysisResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a job with its current progress and partial result.
func (h *VideoAnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toVideoAnalysisResponse(job))
}

// Create persists a job and hands it to the worker pool. When the queue is
// full the job is cancelled straight away and the client is asked to retry.
func (h *VideoAnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createVideoAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid player_id is required"})
		return
	}
	if !isVideoURL(req.VideoURL) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "video_url must be an http or https URL"})
		return
	}
	if _, ok := loadPlayer(w, r, h.store, playerID); !ok {
		return
	}

	job, err := h.store.CreateVideoAnalysis(r.Context(), database.CreateVideoAnalysisParams{
		PlayerID:    playerID,
		VideoUrl:    req.VideoURL,
		RequestedBy: claims.UserID,
	})
	if err != nil {
		internalError(w, "create video analysis", err)
		return
	}

	if err := h.queue.Enqueue(job.ID); err != nil {
		if errors.Is(err, analysis.ErrQueueFull) {
			if _, cerr := h.store.CancelVideoAnalysis(r.Context(), job.ID); cerr != nil {
				log.Printf("ERROR: cancel rejected analysis %s: %v", job.ID, cerr)
			}
			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analysis queue is full, try again later"})
			return
		}
		internalError(w, "enqueue video analysis", err)
		return
	}

	writeJSON(w, http.StatusAccepted, toVideoAnalysisResponse(job))
}

// Cancel stops a queued or running job.
func (h *VideoAnalysisHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	job, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	cancelled, err := h.queue.Cancel(r.Context(), job.ID)
	if err != nil {
		if errors.Is(err, analysis.ErrNotCancellable) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "analysis is already " + job.Status})
			return
		}
		internalError(w, "cancel video analysis", err)
		return
	}

	writeJSON(w, http.StatusOK, toVideoAnalysisResponse(cancelled))
}

func (h *VideoAnalysisHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.VideoAnalysis, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid analysis ID"})
		return database.VideoAnalysis{}, false
	}

	job, err := h.store.GetVideoAnalysis(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "analysis not found"})
			return database.VideoAnalysis{}, false
		}
		internalError(w, "get video analysis", err)
		return database.VideoAnalysis{}, false
	}

	if _, ok := loadPlayer(w, r, h.store, job.PlayerID); !ok {
		return database.VideoAnalysis{}, false
	}
	return job, true
}

func isVideoURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

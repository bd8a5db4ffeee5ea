package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var maxInsightScore = decimal.NewFromInt(100)

// InsightStore defines the database methods needed by AI insight handlers.
type InsightStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (database.Player, error)
	CreateAiInsight(ctx context.Context, arg database.CreateAiInsightParams) (database.AiInsight, error)
	GetAiInsight(ctx context.Context, id uuid.UUID) (database.AiInsight, error)
	ListAiInsights(ctx context.Context, arg database.ListAiInsightsParams) ([]database.AiInsight, error)
	DeleteAiInsight(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// InsightHandler handles the /ai-insights endpoints.
type InsightHandler struct {
	store InsightStore
}

// NewInsightHandler creates a new InsightHandler.
func NewInsightHandler(store InsightStore) *InsightHandler {
	return &InsightHandler{store: store}
}

// RegisterRoutes registers AI insight endpoints.
func (h *InsightHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createInsightRequest struct {
	PlayerID    string `json:"player_id"`
	InsightType string `json:"insight_type"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Score       string `json:"score"`
}

type insightResponse struct {
	ID          uuid.UUID `json:"id"`
	PlayerID    uuid.UUID `json:"player_id"`
	InsightType string    `json:"insight_type"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Score       string    `json:"score"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toInsightResponse(i database.AiInsight) insightResponse {
	return insightResponse{
		ID:          i.ID,
		PlayerID:    i.PlayerID,
		InsightType: i.InsightType,
		Title:       i.Title,
		Summary:     i.Summary,
		Score:       numericToString(i.Score),
		CreatedBy:   i.CreatedBy,
		CreatedAt:   i.CreatedAt,
	}
}

// --- Handlers ---

// List returns insights in the caller's academy, optionally for one ?player_id=.
func (h *InsightHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	playerID, err := optionalUUID(r.URL.Query().Get("player_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player_id"})
		return
	}
	if playerID.Valid {
		if _, ok := loadPlayer(w, r, h.store, playerID.Bytes); !ok {
			return
		}
	}

	insights, err := h.store.ListAiInsights(r.Context(), database.ListAiInsightsParams{
		PlayerID:  playerID,
		AcademyID: academyScope(claims),
	})
	if err != nil {
		internalError(w, "list ai insights", err)
		return
	}

	resp := make([]insightResponse, len(insights))
	for i, in := range insights {
		resp[i] = toInsightResponse(in)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *InsightHandler) Get(w http.ResponseWriter, r *http.Request) {
	insight, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toInsightResponse(insight))
}

// Create records an insight about a player. score is a 0-100 decimal string.
func (h *InsightHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createInsightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.PlayerID == "" || req.InsightType == "" || req.Title == "" || req.Score == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player_id, insight_type, title, and score are required"})
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player_id"})
		return
	}
	if !enum.IsValid(req.InsightType, enum.InsightTypes...) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid insight_type"})
		return
	}
	score, err := optionalNumeric(req.Score)
	if err != nil || numericToDecimal(score).GreaterThan(maxInsightScore) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "score must be a number between 0 and 100"})
		return
	}

	if _, ok := loadPlayer(w, r, h.store, playerID); !ok {
		return
	}

	insight, err := h.store.CreateAiInsight(r.Context(), database.CreateAiInsightParams{
		PlayerID:    playerID,
		InsightType: req.InsightType,
		Title:       req.Title,
		Summary:     req.Summary,
		Score:       score,
		CreatedBy:   claims.UserID,
	})
	if err != nil {
		internalError(w, "create ai insight", err)
		return
	}

	writeJSON(w, http.StatusCreated, toInsightResponse(insight))
}

func (h *InsightHandler) Delete(w http.ResponseWriter, r *http.Request) {
	insight, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteAiInsight(r.Context(), insight.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "insight not found"})
			return
		}
		internalError(w, "delete ai insight", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *InsightHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.AiInsight, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid insight ID"})
		return database.AiInsight{}, false
	}

	insight, err := h.store.GetAiInsight(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "insight not found"})
			return database.AiInsight{}, false
		}
		internalError(w, "get ai insight", err)
		return database.AiInsight{}, false
	}

	if _, ok := loadPlayer(w, r, h.store, insight.PlayerID); !ok {
		return database.AiInsight{}, false
	}
	return insight, true
}

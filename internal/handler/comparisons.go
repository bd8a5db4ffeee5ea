package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

const (
	minComparedPlayers = 2
	maxComparedPlayers = 5
)

// ComparisonStore defines the database methods needed by player comparison handlers.
type ComparisonStore interface {
	ListPlayersByIDs(ctx context.Context, ids []uuid.UUID) ([]database.Player, error)
	SummarizeAttendanceByPlayers(ctx context.Context, playerIDs []uuid.UUID) ([]database.AttendanceSummary, error)
	AverageInsightScores(ctx context.Context, playerIDs []uuid.UUID) ([]database.InsightScore, error)
	CreatePlayerComparison(ctx context.Context, arg database.CreatePlayerComparisonParams) (database.PlayerComparison, error)
	GetPlayerComparison(ctx context.Context, id uuid.UUID) (database.PlayerComparison, error)
	ListPlayerComparisons(ctx context.Context, scoutID pgtype.UUID) ([]database.PlayerComparison, error)
	DeletePlayerComparison(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ComparisonHandler handles the /player-comparison endpoints.
type ComparisonHandler struct {
	store ComparisonStore
}

// NewComparisonHandler creates a new ComparisonHandler.
func NewComparisonHandler(store ComparisonStore) *ComparisonHandler {
	return &ComparisonHandler{store: store}
}

// RegisterRoutes registers player comparison endpoints.
func (h *ComparisonHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createComparisonRequest struct {
	PlayerIDs []string `json:"player_ids"`
	Notes     string   `json:"notes"`
}

type comparisonResponse struct {
	ID        uuid.UUID       `json:"id"`
	ScoutID   uuid.UUID       `json:"scout_id"`
	PlayerIDs []uuid.UUID     `json:"player_ids"`
	Snapshot  json.RawMessage `json:"snapshot"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

// playerSnapshot is the frozen view of one player at comparison time.
type playerSnapshot struct {
	PlayerID      uuid.UUID          `json:"player_id"`
	FullName      string             `json:"full_name"`
	Position      string             `json:"position"`
	Status        string             `json:"status"`
	JerseyNumber  *int32             `json:"jersey_number"`
	HeightCm      *string            `json:"height_cm"`
	WeightKg      *string            `json:"weight_kg"`
	DominantFoot  string             `json:"dominant_foot"`
	Attendance    attendanceSnapshot `json:"attendance"`
	InsightScores map[string]string  `json:"insight_scores"`
}

type attendanceSnapshot struct {
	Total   int32  `json:"total"`
	Present int32  `json:"present"`
	Late    int32  `json:"late"`
	Absent  int32  `json:"absent"`
	Rate    string `json:"rate"`
}

func toComparisonResponse(c database.PlayerComparison) comparisonResponse {
	return comparisonResponse{
		ID:        c.ID,
		ScoutID:   c.ScoutID,
		PlayerIDs: c.PlayerIds,
		Snapshot:  c.Snapshot,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
	}
}

// --- Handlers ---

// List returns saved comparisons. Only a super_admin sees other scouts' work.
func (h *ComparisonHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var scoutID pgtype.UUID
	if claims.Role != enum.RoleSuperAdmin {
		scoutID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	comparisons, err := h.store.ListPlayerComparisons(r.Context(), scoutID)
	if err != nil {
		internalError(w, "list player comparisons", err)
		return
	}

	resp := make([]comparisonResponse, len(comparisons))
	for i, c := range comparisons {
		resp[i] = toComparisonResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ComparisonHandler) Get(w http.ResponseWriter, r *http.Request) {
	comparison, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toComparisonResponse(comparison))
}

// Create snapshots 2 to 5 players side by side. The snapshot is stored so
// later edits to the players do not change a saved comparison.
func (h *ComparisonHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createComparisonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	ids, msg := parseComparedPlayers(req.PlayerIDs)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	players, err := h.store.ListPlayersByIDs(r.Context(), ids)
	if err != nil {
		internalError(w, "create comparison: list players", err)
		return
	}
	byID := make(map[uuid.UUID]database.Player, len(players))
	for _, p := range players {
		if inAcademy(claims, p.AcademyID) {
			byID[p.ID] = p
		}
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "player " + id.String() + " not found"})
			return
		}
	}

	summaries, err := h.store.SummarizeAttendanceByPlayers(r.Context(), ids)
	if err != nil {
		internalError(w, "create comparison: attendance", err)
		return
	}
	scores, err := h.store.AverageInsightScores(r.Context(), ids)
	if err != nil {
		internalError(w, "create comparison: insight scores", err)
		return
	}

	snapshot, err := json.Marshal(buildSnapshot(ids, byID, summaries, scores))
	if err != nil {
		internalError(w, "create comparison: marshal snapshot", err)
		return
	}

	comparison, err := h.store.CreatePlayerComparison(r.Context(), database.CreatePlayerComparisonParams{
		ScoutID:   claims.UserID,
		PlayerIds: ids,
		Snapshot:  snapshot,
		Notes:     req.Notes,
	})
	if err != nil {
		internalError(w, "create player comparison", err)
		return
	}

	writeJSON(w, http.StatusCreated, toComparisonResponse(comparison))
}

func (h *ComparisonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	comparison, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeletePlayerComparison(r.Context(), comparison.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "comparison not found"})
			return
		}
		internalError(w, "delete player comparison", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *ComparisonHandler) loadOwned(w http.ResponseWriter, r *http.Request) (database.PlayerComparison, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid comparison ID"})
		return database.PlayerComparison{}, false
	}

	comparison, err := h.store.GetPlayerComparison(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "comparison not found"})
			return database.PlayerComparison{}, false
		}
		internalError(w, "get player comparison", err)
		return database.PlayerComparison{}, false
	}
	if claims.Role != enum.RoleSuperAdmin && comparison.ScoutID != claims.UserID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "comparison not found"})
		return database.PlayerComparison{}, false
	}
	return comparison, true
}

// parseComparedPlayers keeps input order and rejects duplicates.
func parseComparedPlayers(raw []string) ([]uuid.UUID, string) {
	if len(raw) < minComparedPlayers || len(raw) > maxComparedPlayers {
		return nil, "player_ids must contain between 2 and 5 players"
	}
	ids := make([]uuid.UUID, 0, len(raw))
	seen := make(map[uuid.UUID]bool, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, "invalid player id: " + s
		}
		if seen[id] {
			return nil, "player_ids must be distinct"
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, ""
}

func buildSnapshot(ids []uuid.UUID, players map[uuid.UUID]database.Player, summaries []database.AttendanceSummary, scores []database.InsightScore) []playerSnapshot {
	attendance := make(map[uuid.UUID]database.AttendanceSummary, len(summaries))
	for _, s := range summaries {
		attendance[s.PlayerID] = s
	}
	averages := make(map[uuid.UUID]map[string]string)
	for _, s := range scores {
		if averages[s.PlayerID] == nil {
			averages[s.PlayerID] = make(map[string]string)
		}
		averages[s.PlayerID][s.InsightType] = numericToString(s.Average)
	}

	out := make([]playerSnapshot, len(ids))
	for i, id := range ids {
		p := players[id]
		a := attendance[id]

		var jersey *int32
		if p.JerseyNumber.Valid {
			n := p.JerseyNumber.Int32
			jersey = &n
		}
		insightScores := averages[id]
		if insightScores == nil {
			insightScores = map[string]string{}
		}

		out[i] = playerSnapshot{
			PlayerID:     p.ID,
			FullName:     p.FullName,
			Position:     p.Position,
			Status:       p.Status,
			JerseyNumber: jersey,
			HeightCm:     numericPtr(p.HeightCm),
			WeightKg:     numericPtr(p.WeightKg),
			DominantFoot: p.DominantFoot,
			Attendance: attendanceSnapshot{
				Total:   a.Total,
				Present: a.Present,
				Late:    a.Late,
				Absent:  a.Absent,
				Rate:    attendanceRate(a),
			},
			InsightScores: insightScores,
		}
	}
	return out
}

// attendanceRate counts late arrivals as attended, as a percentage.
func attendanceRate(a database.AttendanceSummary) string {
	if a.Total == 0 {
		return "0.00"
	}
	attended := decimal.NewFromInt32(a.Present + a.Late)
	return attended.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt32(a.Total)).StringFixed(2)
}

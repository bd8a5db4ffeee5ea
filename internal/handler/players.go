package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// PlayerStore defines the database methods needed by player handlers.
type PlayerStore interface {
	CreatePlayer(ctx context.Context, arg database.CreatePlayerParams) (database.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (database.Player, error)
	ListPlayers(ctx context.Context, arg database.ListPlayersParams) ([]database.Player, error)
	UpdatePlayer(ctx context.Context, arg database.UpdatePlayerParams) (database.Player, error)
	DeletePlayer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// playerGetter is the lookup shared by every handler that checks a player
// belongs to the caller's academy.
type playerGetter interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (database.Player, error)
}

// PlayerHandler handles the /players_management endpoints.
type PlayerHandler struct {
	store PlayerStore
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(store PlayerStore) *PlayerHandler {
	return &PlayerHandler{store: store}
}

// RegisterRoutes registers player CRUD endpoints.
func (h *PlayerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type playerRequest struct {
	AcademyID    string `json:"academy_id"`
	UserID       string `json:"user_id"`
	ParentID     string `json:"parent_id"`
	FullName     string `json:"full_name"`
	DateOfBirth  string `json:"date_of_birth"`
	Position     string `json:"position"`
	JerseyNumber *int32 `json:"jersey_number"`
	HeightCm     string `json:"height_cm"`
	WeightKg     string `json:"weight_kg"`
	DominantFoot string `json:"dominant_foot"`
	Status       string `json:"status"`
	Notes        string `json:"notes"`
}

type playerResponse struct {
	ID           uuid.UUID  `json:"id"`
	AcademyID    uuid.UUID  `json:"academy_id"`
	UserID       *uuid.UUID `json:"user_id"`
	ParentID     *uuid.UUID `json:"parent_id"`
	FullName     string     `json:"full_name"`
	DateOfBirth  *string    `json:"date_of_birth"`
	Position     string     `json:"position"`
	JerseyNumber *int32     `json:"jersey_number"`
	HeightCm     *string    `json:"height_cm"`
	WeightKg     *string    `json:"weight_kg"`
	DominantFoot string     `json:"dominant_foot"`
	Status       string     `json:"status"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func toPlayerResponse(p database.Player) playerResponse {
	resp := playerResponse{
		ID:           p.ID,
		AcademyID:    p.AcademyID,
		UserID:       uuidPtr(p.UserID),
		ParentID:     uuidPtr(p.ParentID),
		FullName:     p.FullName,
		DateOfBirth:  datePtr(p.DateOfBirth),
		Position:     p.Position,
		HeightCm:     numericPtr(p.HeightCm),
		WeightKg:     numericPtr(p.WeightKg),
		DominantFoot: p.DominantFoot,
		Status:       p.Status,
		Notes:        p.Notes,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.JerseyNumber.Valid {
		n := p.JerseyNumber.Int32
		resp.JerseyNumber = &n
	}
	return resp
}

// playerFields is the validated, DB-typed form of a playerRequest.
type playerFields struct {
	userID       pgtype.UUID
	parentID     pgtype.UUID
	dateOfBirth  pgtype.Date
	jerseyNumber pgtype.Int4
	heightCm     pgtype.Numeric
	weightKg     pgtype.Numeric
	status       string
}

func parsePlayerRequest(req *playerRequest) (playerFields, string) {
	var f playerFields
	var err error

	req.FullName = strings.TrimSpace(req.FullName)
	if req.FullName == "" {
		return f, "full_name is required"
	}
	if f.userID, err = optionalUUID(req.UserID); err != nil {
		return f, "invalid user_id"
	}
	if f.parentID, err = optionalUUID(req.ParentID); err != nil {
		return f, "invalid parent_id"
	}
	if f.dateOfBirth, err = optionalDate(req.DateOfBirth); err != nil {
		return f, "date_of_birth must be YYYY-MM-DD"
	}
	if req.JerseyNumber != nil {
		if *req.JerseyNumber < 0 || *req.JerseyNumber > 99 {
			return f, "jersey_number must be between 0 and 99"
		}
		f.jerseyNumber = pgtype.Int4{Int32: *req.JerseyNumber, Valid: true}
	}
	if f.heightCm, err = optionalNumeric(req.HeightCm); err != nil {
		return f, "invalid height_cm"
	}
	if f.weightKg, err = optionalNumeric(req.WeightKg); err != nil {
		return f, "invalid weight_kg"
	}
	if !enum.IsValid(req.DominantFoot, "", "left", "right", "both") {
		return f, "dominant_foot must be left, right, or both"
	}
	f.status = req.Status
	if f.status == "" {
		f.status = enum.PlayerStatusActive
	}
	if !enum.IsValid(f.status, enum.PlayerStatuses...) {
		return f, "invalid status"
	}
	return f, ""
}

// --- Handlers ---

// List returns players in the caller's academy. Players and parents only
// see the players linked to their own account.
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	q := r.URL.Query()

	params := database.ListPlayersParams{
		AcademyID: academyScope(claims),
		Search:    optionalText(strings.TrimSpace(q.Get("search"))),
	}
	if claims.Role == enum.RoleSuperAdmin {
		id, err := optionalUUID(q.Get("academy_id"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy_id"})
			return
		}
		params.AcademyID = id
	}
	if isFamily(claims) {
		params.LinkedTo = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	limit, offset, ok := parsePage(w, r)
	if !ok {
		return
	}
	params.Limit, params.Offset = limit, offset

	players, err := h.store.ListPlayers(r.Context(), params)
	if err != nil {
		internalError(w, "list players", err)
		return
	}

	resp := make([]playerResponse, len(players))
	for i, p := range players {
		resp[i] = toPlayerResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single player.
func (h *PlayerHandler) Get(w http.ResponseWriter, r *http.Request) {
	player, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

// Create adds a player to the caller's academy.
func (h *PlayerHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, msg := parsePlayerRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	academyID := claims.AcademyID
	if claims.Role == enum.RoleSuperAdmin {
		id, err := uuid.Parse(req.AcademyID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy_id is required"})
			return
		}
		academyID = id
	}
	if academyID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy_id is required"})
		return
	}

	player, err := h.store.CreatePlayer(r.Context(), database.CreatePlayerParams{
		AcademyID:    academyID,
		UserID:       fields.userID,
		ParentID:     fields.parentID,
		FullName:     req.FullName,
		DateOfBirth:  fields.dateOfBirth,
		Position:     req.Position,
		JerseyNumber: fields.jerseyNumber,
		HeightCm:     fields.heightCm,
		WeightKg:     fields.weightKg,
		DominantFoot: req.DominantFoot,
		Status:       fields.status,
		Notes:        req.Notes,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "referenced academy, user, or parent does not exist"})
			return
		}
		internalError(w, "create player", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

// Update replaces a player's profile. The owning academy and linked user
// account cannot be changed.
func (h *PlayerHandler) Update(w http.ResponseWriter, r *http.Request) {
	player, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var req playerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, msg := parsePlayerRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	updated, err := h.store.UpdatePlayer(r.Context(), database.UpdatePlayerParams{
		ID:           player.ID,
		ParentID:     fields.parentID,
		FullName:     req.FullName,
		DateOfBirth:  fields.dateOfBirth,
		Position:     req.Position,
		JerseyNumber: fields.jerseyNumber,
		HeightCm:     fields.heightCm,
		WeightKg:     fields.weightKg,
		DominantFoot: req.DominantFoot,
		Status:       fields.status,
		Notes:        req.Notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parent does not exist"})
			return
		}
		internalError(w, "update player", err)
		return
	}

	writeJSON(w, http.StatusOK, toPlayerResponse(updated))
}

// Delete removes a player and, through cascades, their attendance and insights.
func (h *PlayerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	player, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeletePlayer(r.Context(), player.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
			return
		}
		internalError(w, "delete player", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *PlayerHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.Player, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player ID"})
		return database.Player{}, false
	}
	return loadPlayer(w, r, h.store, id)
}

// loadPlayer fetches a player the caller is allowed to see, writing 404
// otherwise.
func loadPlayer(w http.ResponseWriter, r *http.Request, store playerGetter, id uuid.UUID) (database.Player, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	player, err := store.GetPlayer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
			return database.Player{}, false
		}
		internalError(w, "get player", err)
		return database.Player{}, false
	}
	if !canSeePlayer(claims, player) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "player not found"})
		return database.Player{}, false
	}
	return player, true
}

func canSeePlayer(c *auth.Claims, p database.Player) bool {
	if !inAcademy(c, p.AcademyID) {
		return false
	}
	if isFamily(c) {
		self := pgtype.UUID{Bytes: c.UserID, Valid: true}
		return p.UserID == self || p.ParentID == self
	}
	return true
}

// isFamily reports whether the caller only sees players linked to them.
func isFamily(c *auth.Claims) bool {
	return c.Role == enum.RolePlayer || c.Role == enum.RoleParent
}

func parsePage(w http.ResponseWriter, r *http.Request) (limit, offset int32, ok bool) {
	limit = defaultPageSize
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPageSize {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 200"})
			return 0, 0, false
		}
		limit = int32(n)
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "offset must be non-negative"})
			return 0, 0, false
		}
		offset = int32(n)
	}
	return limit, offset, true
}

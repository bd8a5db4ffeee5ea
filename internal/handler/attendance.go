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
)

// AttendanceStore defines the database methods needed by attendance handlers.
type AttendanceStore interface {
	GetEvent(ctx context.Context, id uuid.UUID) (database.Event, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (database.Player, error)
	CreateAttendance(ctx context.Context, arg database.CreateAttendanceParams) (database.Attendance, error)
	GetAttendance(ctx context.Context, id uuid.UUID) (database.Attendance, error)
	ListAttendance(ctx context.Context, arg database.ListAttendanceParams) ([]database.Attendance, error)
	UpdateAttendance(ctx context.Context, arg database.UpdateAttendanceParams) (database.Attendance, error)
	DeleteAttendance(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// AttendanceHandler handles the /attandance_management endpoints.
type AttendanceHandler struct {
	store AttendanceStore
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(store AttendanceStore) *AttendanceHandler {
	return &AttendanceHandler{store: store}
}

// RegisterRoutes registers attendance endpoints.
func (h *AttendanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createAttendanceRequest struct {
	EventID  string `json:"event_id"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
	Notes    string `json:"notes"`
}

type updateAttendanceRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type attendanceResponse struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
	RecordedBy uuid.UUID `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

func toAttendanceResponse(a database.Attendance) attendanceResponse {
	return attendanceResponse{
		ID:         a.ID,
		EventID:    a.EventID,
		PlayerID:   a.PlayerID,
		Status:     a.Status,
		Notes:      a.Notes,
		RecordedBy: a.RecordedBy,
		CreatedAt:  a.CreatedAt,
	}
}

// --- Handlers ---

// List returns attendance filtered by ?event_id= and/or ?player_id=. Only a
// super_admin may list without a filter.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	eventID, err := optionalUUID(r.URL.Query().Get("event_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event_id"})
		return
	}
	playerID, err := optionalUUID(r.URL.Query().Get("player_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid player_id"})
		return
	}

	if !eventID.Valid && !playerID.Valid && claims.Role != enum.RoleSuperAdmin {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "event_id or player_id is required"})
		return
	}
	if eventID.Valid {
		if _, ok := loadEvent(w, r, h.store, eventID.Bytes); !ok {
			return
		}
	}
	if playerID.Valid {
		if _, ok := loadPlayer(w, r, h.store, playerID.Bytes); !ok {
			return
		}
	}

	records, err := h.store.ListAttendance(r.Context(), database.ListAttendanceParams{
		EventID:  eventID,
		PlayerID: playerID,
	})
	if err != nil {
		internalError(w, "list attendance", err)
		return
	}

	resp := make([]attendanceResponse, 0, len(records))
	for _, a := range records {
		resp = append(resp, toAttendanceResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create records one player's attendance at one event.
func (h *AttendanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req createAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	eventID, err := uuid.Parse(req.EventID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid event_id is required"})
		return
	}
	playerID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid player_id is required"})
		return
	}
	if !enum.IsValid(req.Status, enum.AttendanceStatuses...) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be one of present, absent, late"})
		return
	}

	event, ok := loadEvent(w, r, h.store, eventID)
	if !ok {
		return
	}
	player, ok := loadPlayer(w, r, h.store, playerID)
	if !ok {
		return
	}
	if event.AcademyID != player.AcademyID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "player does not belong to the event's academy"})
		return
	}

	record, err := h.store.CreateAttendance(r.Context(), database.CreateAttendanceParams{
		EventID:    eventID,
		PlayerID:   playerID,
		Status:     req.Status,
		Notes:      req.Notes,
		RecordedBy: claims.UserID,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "attendance already recorded for this player and event"})
			return
		}
		internalError(w, "create attendance", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAttendanceResponse(record))
}

// Update changes the status or notes of a record.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var req updateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if !enum.IsValid(req.Status, enum.AttendanceStatuses...) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be one of present, absent, late"})
		return
	}

	updated, err := h.store.UpdateAttendance(r.Context(), database.UpdateAttendanceParams{
		ID:     record.ID,
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "attendance record not found"})
			return
		}
		internalError(w, "update attendance", err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceResponse(updated))
}

// Delete removes a record.
func (h *AttendanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	record, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteAttendance(r.Context(), record.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "attendance record not found"})
			return
		}
		internalError(w, "delete attendance", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// loadVisible resolves {id} and checks its event belongs to the caller's academy.
func (h *AttendanceHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.Attendance, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid attendance ID"})
		return database.Attendance{}, false
	}

	record, err := h.store.GetAttendance(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "attendance record not found"})
			return database.Attendance{}, false
		}
		internalError(w, "get attendance", err)
		return database.Attendance{}, false
	}

	if _, ok := loadEvent(w, r, h.store, record.EventID); !ok {
		return database.Attendance{}, false
	}
	return record, true
}

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
	"github.com/jackc/pgx/v5/pgtype"
)

// EventStore defines the database methods needed by event handlers.
type EventStore interface {
	CreateEvent(ctx context.Context, arg database.CreateEventParams) (database.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (database.Event, error)
	ListEvents(ctx context.Context, arg database.ListEventsParams) ([]database.Event, error)
	UpdateEvent(ctx context.Context, arg database.UpdateEventParams) (database.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// EventHandler handles the /event_management endpoints.
type EventHandler struct {
	store EventStore
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(store EventStore) *EventHandler {
	return &EventHandler{store: store}
}

// RegisterRoutes registers event CRUD endpoints.
func (h *EventHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type eventRequest struct {
	AcademyID   string `json:"academy_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	EventType   string `json:"event_type"`
	Location    string `json:"location"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
}

type eventResponse struct {
	ID          uuid.UUID  `json:"id"`
	AcademyID   uuid.UUID  `json:"academy_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	EventType   string     `json:"event_type"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toEventResponse(e database.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		AcademyID:   e.AcademyID,
		Title:       e.Title,
		Description: e.Description,
		EventType:   e.EventType,
		Location:    e.Location,
		StartsAt:    e.StartsAt,
		EndsAt:      timePtr(e.EndsAt),
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func parseEventRequest(req *eventRequest) (time.Time, pgtype.Timestamptz, string) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.EventType == "" || req.StartsAt == "" {
		return time.Time{}, pgtype.Timestamptz{}, "title, event_type, and starts_at are required"
	}
	if !enum.IsValid(req.EventType, enum.EventTypes...) {
		return time.Time{}, pgtype.Timestamptz{}, "invalid event_type"
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		return time.Time{}, pgtype.Timestamptz{}, "starts_at must be RFC 3339 or YYYY-MM-DD"
	}
	endsAt, err := optionalTimestamp(req.EndsAt)
	if err != nil {
		return time.Time{}, pgtype.Timestamptz{}, "ends_at must be RFC 3339 or YYYY-MM-DD"
	}
	if endsAt.Valid && endsAt.Time.Before(startsAt) {
		return time.Time{}, pgtype.Timestamptz{}, "ends_at must not be before starts_at"
	}
	return startsAt, endsAt, ""
}

// --- Handlers ---

// List returns the caller's academy events, optionally bounded by
// ?from= (inclusive) and ?to= (exclusive) on starts_at.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	from, err := optionalTimestamp(r.URL.Query().Get("from"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from"})
		return
	}
	to, err := optionalTimestamp(r.URL.Query().Get("to"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid to"})
		return
	}

	events, err := h.store.ListEvents(r.Context(), database.ListEventsParams{
		AcademyID: academyScope(claims),
		From:      from,
		To:        to,
	})
	if err != nil {
		internalError(w, "list events", err)
		return
	}

	resp := make([]eventResponse, len(events))
	for i, e := range events {
		resp[i] = toEventResponse(e)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single event.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// Create schedules an event for the caller's academy.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	startsAt, endsAt, msg := parseEventRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	academyID := claims.AcademyID
	if claims.Role == enum.RoleSuperAdmin {
		if id, err := uuid.Parse(req.AcademyID); err == nil {
			academyID = id
		}
	}
	if academyID == uuid.Nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy_id is required"})
		return
	}

	event, err := h.store.CreateEvent(r.Context(), database.CreateEventParams{
		AcademyID:   academyID,
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		CreatedBy:   claims.UserID,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy does not exist"})
			return
		}
		internalError(w, "create event", err)
		return
	}

	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

// Update replaces an event's details.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	startsAt, endsAt, msg := parseEventRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	updated, err := h.store.UpdateEvent(r.Context(), database.UpdateEventParams{
		ID:          event.ID,
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
		Location:    req.Location,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
			return
		}
		internalError(w, "update event", err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponse(updated))
}

// Delete removes an event together with its attendance records.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	event, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteEvent(r.Context(), event.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
			return
		}
		internalError(w, "delete event", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *EventHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.Event, bool) {
	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event ID"})
		return database.Event{}, false
	}
	return loadEvent(w, r, h.store, id)
}

type eventGetter interface {
	GetEvent(ctx context.Context, id uuid.UUID) (database.Event, error)
}

func loadEvent(w http.ResponseWriter, r *http.Request, store eventGetter, id uuid.UUID) (database.Event, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	event, err := store.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
			return database.Event{}, false
		}
		internalError(w, "get event", err)
		return database.Event{}, false
	}
	if !inAcademy(claims, event.AcademyID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "event not found"})
		return database.Event{}, false
	}
	return event, true
}

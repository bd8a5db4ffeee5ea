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

// TrainingStore defines the database methods needed by training program handlers.
type TrainingStore interface {
	CreateTrainingProgram(ctx context.Context, arg database.CreateTrainingProgramParams) (database.TrainingProgram, error)
	GetTrainingProgram(ctx context.Context, id uuid.UUID) (database.TrainingProgram, error)
	ListTrainingPrograms(ctx context.Context, arg database.ListTrainingProgramsParams) ([]database.TrainingProgram, error)
	UpdateTrainingProgram(ctx context.Context, arg database.UpdateTrainingProgramParams) (database.TrainingProgram, error)
	DeleteTrainingProgram(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type TrainingHandler struct {
	store TrainingStore
}

func NewTrainingHandler(store TrainingStore) *TrainingHandler {
	return &TrainingHandler{store: store}
}

func (h *TrainingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type trainingRequest struct {
	AcademyID       string `json:"academy_id"`
	CoachID         string `json:"coach_id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	FocusArea       string `json:"focus_area"`
	Level           string `json:"level"`
	StartsOn        string `json:"starts_on"`
	EndsOn          string `json:"ends_on"`
	SessionsPerWeek int32  `json:"sessions_per_week"`
}

type trainingResponse struct {
	ID              uuid.UUID  `json:"id"`
	AcademyID       uuid.UUID  `json:"academy_id"`
	CoachID         *uuid.UUID `json:"coach_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FocusArea       string     `json:"focus_area"`
	Level           string     `json:"level"`
	StartsOn        *string    `json:"starts_on"`
	EndsOn          *string    `json:"ends_on"`
	SessionsPerWeek int32      `json:"sessions_per_week"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toTrainingResponse(t database.TrainingProgram) trainingResponse {
	return trainingResponse{
		ID:              t.ID,
		AcademyID:       t.AcademyID,
		CoachID:         uuidPtr(t.CoachID),
		Title:           t.Title,
		Description:     t.Description,
		FocusArea:       t.FocusArea,
		Level:           t.Level,
		StartsOn:        datePtr(t.StartsOn),
		EndsOn:          datePtr(t.EndsOn),
		SessionsPerWeek: t.SessionsPerWeek,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type trainingFields struct {
	coachID  pgtype.UUID
	startsOn pgtype.Date
	endsOn   pgtype.Date
}

func parseTrainingRequest(req *trainingRequest) (trainingFields, string) {
	var f trainingFields
	var err error

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" || req.Level == "" {
		return f, "title and level are required"
	}
	if !enum.IsValid(req.Level, enum.Levels...) {
		return f, "level must be beginner, intermediate, or advanced"
	}
	if req.SessionsPerWeek == 0 {
		req.SessionsPerWeek = 1
	}
	if req.SessionsPerWeek < 1 || req.SessionsPerWeek > 14 {
		return f, "sessions_per_week must be between 1 and 14"
	}
	if f.coachID, err = optionalUUID(req.CoachID); err != nil {
		return f, "invalid coach_id"
	}
	if f.startsOn, err = optionalDate(req.StartsOn); err != nil {
		return f, "starts_on must be YYYY-MM-DD"
	}
	if f.endsOn, err = optionalDate(req.EndsOn); err != nil {
		return f, "ends_on must be YYYY-MM-DD"
	}
	if f.startsOn.Valid && f.endsOn.Valid && f.endsOn.Time.Before(f.startsOn.Time) {
		return f, "ends_on must not be before starts_on"
	}
	return f, ""
}

// --- Handlers ---

// List returns the caller's academy programs, optionally for one ?coach_id=.
func (h *TrainingHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	coachID, err := optionalUUID(r.URL.Query().Get("coach_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid coach_id"})
		return
	}

	programs, err := h.store.ListTrainingPrograms(r.Context(), database.ListTrainingProgramsParams{
		AcademyID: academyScope(claims),
		CoachID:   coachID,
	})
	if err != nil {
		internalError(w, "list training programs", err)
		return
	}

	resp := make([]trainingResponse, len(programs))
	for i, t := range programs {
		resp[i] = toTrainingResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TrainingHandler) Get(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toTrainingResponse(program))
}

// Create adds a program. A coach creating a program without coach_id is
// assigned to it.
func (h *TrainingHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, msg := parseTrainingRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if !fields.coachID.Valid && claims.Role == enum.RoleCoach {
		fields.coachID = pgtype.UUID{Bytes: claims.UserID, Valid: true}
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

	program, err := h.store.CreateTrainingProgram(r.Context(), database.CreateTrainingProgramParams{
		AcademyID:       academyID,
		CoachID:         fields.coachID,
		Title:           req.Title,
		Description:     req.Description,
		FocusArea:       req.FocusArea,
		Level:           req.Level,
		StartsOn:        fields.startsOn,
		EndsOn:          fields.endsOn,
		SessionsPerWeek: req.SessionsPerWeek,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy or coach does not exist"})
			return
		}
		internalError(w, "create training program", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTrainingResponse(program))
}

func (h *TrainingHandler) Update(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var req trainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	fields, msg := parseTrainingRequest(&req)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	updated, err := h.store.UpdateTrainingProgram(r.Context(), database.UpdateTrainingProgramParams{
		ID:              program.ID,
		CoachID:         fields.coachID,
		Title:           req.Title,
		Description:     req.Description,
		FocusArea:       req.FocusArea,
		Level:           req.Level,
		StartsOn:        fields.startsOn,
		EndsOn:          fields.endsOn,
		SessionsPerWeek: req.SessionsPerWeek,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "training program not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "coach does not exist"})
			return
		}
		internalError(w, "update training program", err)
		return
	}

	writeJSON(w, http.StatusOK, toTrainingResponse(updated))
}

func (h *TrainingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	program, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	if _, err := h.store.DeleteTrainingProgram(r.Context(), program.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "training program not found"})
			return
		}
		internalError(w, "delete training program", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TrainingHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.TrainingProgram, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid training program ID"})
		return database.TrainingProgram{}, false
	}

	program, err := h.store.GetTrainingProgram(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "training program not found"})
			return database.TrainingProgram{}, false
		}
		internalError(w, "get training program", err)
		return database.TrainingProgram{}, false
	}
	if !inAcademy(claims, program.AcademyID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "training program not found"})
		return database.TrainingProgram{}, false
	}
	return program, true
}

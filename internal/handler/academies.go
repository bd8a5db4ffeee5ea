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
	"github.com/ascend-academy/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// AcademyStore defines the database methods needed by academy handlers.
type AcademyStore interface {
	CreateAcademy(ctx context.Context, arg database.CreateAcademyParams) (database.Academy, error)
	GetAcademy(ctx context.Context, id uuid.UUID) (database.Academy, error)
	ListAcademies(ctx context.Context, status pgtype.Text) ([]database.Academy, error)
}

// AcademyReviewer runs the approval workflow. Satisfied by *service.AcademyService.
type AcademyReviewer interface {
	Review(ctx context.Context, academyID, reviewerID uuid.UUID, action string) (*service.ReviewResult, error)
}

// AcademyHandler handles academy registration and the admin approval queue.
type AcademyHandler struct {
	store    AcademyStore
	reviewer AcademyReviewer
}

// NewAcademyHandler creates a new AcademyHandler.
func NewAcademyHandler(store AcademyStore, reviewer AcademyReviewer) *AcademyHandler {
	return &AcademyHandler{store: store, reviewer: reviewer}
}

// RegisterRoutes registers the public registration endpoint.
func (h *AcademyHandler) RegisterRoutes(r chi.Router) {
	r.Post("/academy-registration", h.Register)
}

// RegisterApprovalRoutes registers the review endpoints. Expected to be
// mounted at /admin-approvals behind the approvals policy.
func (h *AcademyHandler) RegisterApprovalRoutes(r chi.Router) {
	r.Get("/", h.ListApprovals)
	r.Post("/", h.ReviewFromBody)
	r.Get("/{id}", h.GetApproval)
	r.Post("/{id}", h.Review)
}

// --- Request / Response types ---

type registerAcademyRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	City          string `json:"city"`
	ContactPerson string `json:"contact_person"`
}

type reviewRequest struct {
	AcademyID string `json:"academy_id"`
	Action    string `json:"action"`
}

type academyResponse struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Phone         string     `json:"phone"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	ContactPerson string     `json:"contact_person"`
	Status        string     `json:"status"`
	ReviewedBy    *uuid.UUID `json:"reviewed_by"`
	ReviewedAt    *time.Time `json:"reviewed_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

type reviewResponse struct {
	Academy academyResponse `json:"academy"`
	Admin   *userResponse   `json:"admin,omitempty"`
}

func toAcademyResponse(a database.Academy) academyResponse {
	return academyResponse{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone,
		Address:       a.Address,
		City:          a.City,
		ContactPerson: a.ContactPerson,
		Status:        a.Status,
		ReviewedBy:    uuidPtr(a.ReviewedBy),
		ReviewedAt:    timePtr(a.ReviewedAt),
		CreatedAt:     a.CreatedAt,
	}
}

// --- Handlers ---

// Register records a pending academy. The password is hashed now and reused
// for the admin account created on approval.
func (h *AcademyHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerAcademyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name, email, and password are required"})
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid email format"})
		return
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, "register academy: hash password", err)
		return
	}

	academy, err := h.store.CreateAcademy(r.Context(), database.CreateAcademyParams{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
		City:          req.City,
		ContactPerson: req.ContactPerson,
		PasswordHash:  string(hashed),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "an academy with this email is already registered"})
			return
		}
		internalError(w, "register academy", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAcademyResponse(academy))
}

// ListApprovals lists academies, optionally filtered by ?status=.
func (h *AcademyHandler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && !enum.IsValid(status, enum.AcademyStatusPending, enum.AcademyStatusApproved, enum.AcademyStatusRejected) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	academies, err := h.store.ListAcademies(r.Context(), optionalText(status))
	if err != nil {
		internalError(w, "list academies", err)
		return
	}

	resp := make([]academyResponse, len(academies))
	for i, a := range academies {
		resp[i] = toAcademyResponse(a)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetApproval returns a single academy from the queue.
func (h *AcademyHandler) GetApproval(w http.ResponseWriter, r *http.Request) {
	academyID, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy ID"})
		return
	}

	academy, err := h.store.GetAcademy(r.Context(), academyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Academy not found"})
			return
		}
		internalError(w, "get academy", err)
		return
	}
	writeJSON(w, http.StatusOK, toAcademyResponse(academy))
}

// ReviewFromBody is Review with the academy id in the body.
func (h *AcademyHandler) ReviewFromBody(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	academyID, err := uuid.Parse(req.AcademyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy_id"})
		return
	}
	h.review(w, r, academyID, req.Action)
}

// Review approves or rejects the {id} academy.
func (h *AcademyHandler) Review(w http.ResponseWriter, r *http.Request) {
	academyID, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy ID"})
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	h.review(w, r, academyID, req.Action)
}

func (h *AcademyHandler) review(w http.ResponseWriter, r *http.Request, academyID uuid.UUID, action string) {
	claims := middleware.ClaimsFromContext(r.Context())

	result, err := h.reviewer.Review(r.Context(), academyID, claims.UserID, action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReviewVerb):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "action must be approve or reject"})
		case errors.Is(err, service.ErrAcademyNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Academy not found"})
		case errors.Is(err, service.ErrAlreadyReviewed):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy has already been reviewed"})
		case isUniqueViolation(err):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "a user with the academy email already exists"})
		default:
			internalError(w, "review academy", err)
		}
		return
	}

	resp := reviewResponse{Academy: toAcademyResponse(result.Academy)}
	if result.Admin != nil {
		admin := toUserResponse(*result.Admin)
		resp.Admin = &admin
	}
	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

const (
	demoPassword  = "demo12345"
	demoEmailHost = "demo.ascend.local"
)

// demoRoles are the roles /demo-user hands out. Administrative roles are never
// available without a login.
var demoRoles = []string{enum.RoleCoach, enum.RolePlayer, enum.RoleScout, enum.RoleParent}

// BootstrapStore defines the database methods needed by the bootstrap endpoints.
type BootstrapStore interface {
	CountUsersByRole(ctx context.Context, role string) (int64, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	CreatePlayer(ctx context.Context, arg database.CreatePlayerParams) (database.Player, error)
}

// Pinger reports database reachability. Satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BootstrapHandler serves the first-run and diagnostic endpoints. The router
// only mounts it when bootstrap is enabled.
type BootstrapHandler struct {
	store BootstrapStore
	db    Pinger
}

func NewBootstrapHandler(store BootstrapStore, db Pinger) *BootstrapHandler {
	return &BootstrapHandler{store: store, db: db}
}

func (h *BootstrapHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", h.Test)
	r.Post("/setup", h.Setup)
	r.Post("/create-admin", h.CreateAdmin)
	r.Post("/demo-user", h.DemoUser)
	r.Post("/demo-player", h.DemoPlayer)
}

// --- Request / Response types ---

type adminRequest struct {
	AcademyID string `json:"academy_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Phone     string `json:"phone"`
}

type setupResponse struct {
	SuperAdminExists bool          `json:"super_admin_exists"`
	Created          *userResponse `json:"created,omitempty"`
}

type demoUserRequest struct {
	AcademyID string `json:"academy_id"`
	Role      string `json:"role"`
}

type demoUserResponse struct {
	User     userResponse `json:"user"`
	Password string       `json:"password"`
}

type demoPlayerRequest struct {
	AcademyID string `json:"academy_id"`
	FullName  string `json:"full_name"`
	Position  string `json:"position"`
}

// --- Handlers ---

// Test pings the database.
func (h *BootstrapHandler) Test(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "database": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": "connected"})
}

// Setup reports whether a super_admin exists and, when none does, creates
// one from the request body. An empty body only reports.
func (h *BootstrapHandler) Setup(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountUsersByRole(r.Context(), enum.RoleSuperAdmin)
	if err != nil {
		internalError(w, "setup: count super admins", err)
		return
	}
	if n > 0 {
		writeJSON(w, http.StatusOK, setupResponse{SuperAdminExists: true})
		return
	}

	var req adminRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}
	if req.Email == "" && req.Password == "" {
		writeJSON(w, http.StatusOK, setupResponse{SuperAdminExists: false})
		return
	}

	user, ok := h.createAccount(w, r, req, enum.RoleSuperAdmin, pgtype.UUID{})
	if !ok {
		return
	}
	resp := toUserResponse(user)
	writeJSON(w, http.StatusCreated, setupResponse{SuperAdminExists: true, Created: &resp})
}

// CreateAdmin creates an academy admin, or a super_admin when no academy_id
// is given. It is refused once any super_admin exists; from then on accounts
// are managed through the authenticated /users routes.
func (h *BootstrapHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountUsersByRole(r.Context(), enum.RoleSuperAdmin)
	if err != nil {
		internalError(w, "create admin: count super admins", err)
		return
	}
	if n > 0 {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "platform is already set up"})
		return
	}

	var req adminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	academyID, err := optionalUUID(req.AcademyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy_id"})
		return
	}
	role := enum.RoleAdmin
	if !academyID.Valid {
		role = enum.RoleSuperAdmin
	}

	user, ok := h.createAccount(w, r, req, role, academyID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// DemoUser creates a throwaway account with a generated email and a fixed
// password, returned in the response.
func (h *BootstrapHandler) DemoUser(w http.ResponseWriter, r *http.Request) {
	var req demoUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Role == "" {
		req.Role = enum.RoleCoach
	}
	if !enum.IsValid(req.Role, demoRoles...) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}
	academyID, err := uuid.Parse(req.AcademyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid academy_id is required"})
		return
	}

	account := adminRequest{
		Email:    "demo-" + req.Role + "-" + uuid.NewString()[:8] + "@" + demoEmailHost,
		Password: demoPassword,
		FullName: "Demo " + strings.ReplaceAll(req.Role, "_", " "),
	}
	user, ok := h.createAccount(w, r, account, req.Role, pgtype.UUID{Bytes: academyID, Valid: true})
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, demoUserResponse{User: toUserResponse(user), Password: demoPassword})
}

func (h *BootstrapHandler) DemoPlayer(w http.ResponseWriter, r *http.Request) {
	var req demoPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	academyID, err := uuid.Parse(req.AcademyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "valid academy_id is required"})
		return
	}
	if req.FullName == "" {
		req.FullName = "Demo Player " + uuid.NewString()[:4]
	}
	if req.Position == "" {
		req.Position = "midfielder"
	}

	player, err := h.store.CreatePlayer(r.Context(), database.CreatePlayerParams{
		AcademyID:    academyID,
		FullName:     req.FullName,
		Position:     req.Position,
		DominantFoot: "right",
		Status:       enum.PlayerStatusActive,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy does not exist"})
			return
		}
		internalError(w, "create demo player", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlayerResponse(player))
}

func (h *BootstrapHandler) createAccount(w http.ResponseWriter, r *http.Request, req adminRequest, role string, academyID pgtype.UUID) (database.User, bool) {
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, password, and full_name are required"})
		return database.User{}, false
	}
	if len(req.Password) < minPasswordLength {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
		return database.User{}, false
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, "bootstrap: hash password", err)
		return database.User{}, false
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		AcademyID:      academyID,
		Email:          req.Email,
		HashedPassword: string(hash),
		FullName:       req.FullName,
		Role:           role,
		Phone:          req.Phone,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
			return database.User{}, false
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy does not exist"})
			return database.User{}, false
		}
		internalError(w, "bootstrap: create user", err)
		return database.User{}, false
	}
	return user, true
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
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
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	ListUsers(ctx context.Context, arg database.ListUsersParams) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	SoftDeleteUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// UserHandler handles user account endpoints. Admins manage the accounts of
// their academy; everyone else can only see and edit their own.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints. Expected to be mounted at /users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	AcademyID string `json:"academy_id"`
}

type updateUserRequest struct {
	FullName *string `json:"full_name"`
	Phone    *string `json:"phone"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

type userDetailResponse struct {
	userResponse
	IsActive  bool      `json:"is_active"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		userResponse: toUserResponse(u),
		IsActive:     u.IsActive,
		UpdatedAt:    u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns the caller's academy users for admins, or just the caller.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	if !isAdmin(claims) {
		user, err := h.store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				writeJSON(w, http.StatusOK, []userDetailResponse{})
				return
			}
			internalError(w, "list users: get self", err)
			return
		}
		writeJSON(w, http.StatusOK, []userDetailResponse{toUserDetailResponse(user)})
		return
	}

	role := r.URL.Query().Get("role")
	if role != "" && !enum.IsValid(role, enum.Roles...) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	users, err := h.store.ListUsers(r.Context(), database.ListUsersParams{
		AcademyID: academyScope(claims),
		Role:      optionalText(role),
	})
	if err != nil {
		internalError(w, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single user visible to the caller.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Create adds an account to the caller's academy. Admin only.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if !isAdmin(claims) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email, password, full_name, and role are required"})
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
	if !canAssignRole(claims, req.Role) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
		return
	}

	academyID := academyScope(claims)
	if claims.Role == enum.RoleSuperAdmin {
		id, err := optionalUUID(req.AcademyID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid academy_id"})
			return
		}
		academyID = id
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(w, "create user: hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		AcademyID:      academyID,
		Email:          req.Email,
		HashedPassword: string(hashed),
		FullName:       req.FullName,
		Role:           req.Role,
		Phone:          req.Phone,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email already exists"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "academy does not exist"})
			return
		}
		internalError(w, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update edits profile fields. Only admins may change a role.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	user, ok := h.loadVisible(w, r)
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	params := database.UpdateUserParams{
		ID:       user.ID,
		FullName: user.FullName,
		Phone:    user.Phone,
		Role:     user.Role,
	}
	if req.FullName != nil {
		if strings.TrimSpace(*req.FullName) == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "full_name must not be empty"})
			return
		}
		params.FullName = *req.FullName
	}
	if req.Phone != nil {
		params.Phone = *req.Phone
	}
	if req.Role != nil && *req.Role != user.Role {
		if !isAdmin(claims) || user.ID == claims.UserID {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "cannot change role"})
			return
		}
		if !canAssignRole(claims, *req.Role) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid role"})
			return
		}
		params.Role = *req.Role
	}
	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at least 6 characters"})
			return
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "password must be at most 72 bytes"})
				return
			}
			internalError(w, "update user: hash password", err)
			return
		}
		params.HashedPassword = pgtype.Text{String: string(hashed), Valid: true}
	}

	updated, err := h.store.UpdateUser(r.Context(), params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		internalError(w, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDetailResponse(updated))
}

// Delete deactivates an account. Admins cannot deactivate themselves.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())

	user, ok := h.loadVisible(w, r)
	if !ok {
		return
	}
	if !isAdmin(claims) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		return
	}
	if user.ID == claims.UserID {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cannot delete your own account"})
		return
	}

	if _, err := h.store.SoftDeleteUser(r.Context(), user.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return
		}
		internalError(w, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// loadVisible fetches the {id} user and writes 404 when the caller may not
// see it, so foreign accounts are indistinguishable from missing ones.
func (h *UserHandler) loadVisible(w http.ResponseWriter, r *http.Request) (database.User, bool) {
	claims := middleware.ClaimsFromContext(r.Context())

	id, err := urlUUID(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user ID"})
		return database.User{}, false
	}

	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
			return database.User{}, false
		}
		internalError(w, "get user", err)
		return database.User{}, false
	}

	if !canSeeUser(claims, user) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return database.User{}, false
	}
	return user, true
}

func canSeeUser(c *auth.Claims, u database.User) bool {
	if u.ID == c.UserID || c.Role == enum.RoleSuperAdmin {
		return true
	}
	return c.Role == enum.RoleAdmin && u.AcademyID == (pgtype.UUID{Bytes: c.AcademyID, Valid: true})
}

// canAssignRole limits which roles the caller may hand out. Only a
// super_admin can create another super_admin.
func canAssignRole(c *auth.Claims, role string) bool {
	if !enum.IsValid(role, enum.Roles...) {
		return false
	}
	return role != enum.RoleSuperAdmin || c.Role == enum.RoleSuperAdmin
}

package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func (m *mockUserStore) add(academyID pgtype.UUID, email, role string) database.User {
	u := database.User{
		ID:        uuid.New(),
		AcademyID: academyID,
		Email:     email,
		FullName:  "User " + email,
		Role:      role,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserStore) GetUserByID(_ context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *mockUserStore) ListUsers(_ context.Context, arg database.ListUsersParams) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		if !u.IsActive {
			continue
		}
		if arg.AcademyID.Valid && u.AcademyID != arg.AcademyID {
			continue
		}
		if arg.Role.Valid && u.Role != arg.Role.String {
			continue
		}
		result = append(result, u)
	}
	return result, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range m.users {
		if u.Email == arg.Email {
			return database.User{}, errUniqueViolation
		}
	}
	u := database.User{
		ID:             uuid.New(),
		AcademyID:      arg.AcademyID,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		Phone:          arg.Phone,
		IsActive:       true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	u.FullName = arg.FullName
	u.Phone = arg.Phone
	u.Role = arg.Role
	if arg.HashedPassword.Valid {
		u.HashedPassword = arg.HashedPassword.String
	}
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) SoftDeleteUser(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.IsActive = false
	m.users[id] = u
	return id, nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore, caller *auth.Claims) *chi.Mux {
	return mount(caller, "/users", handler.NewUserHandler(store).RegisterRoutes)
}

// academyAdmin returns an admin stored in store together with its claims.
func academyAdmin(store *mockUserStore) (database.User, *auth.Claims) {
	academyID := uuid.New()
	admin := store.add(pgtype.UUID{Bytes: academyID, Valid: true}, "admin@test.com", enum.RoleAdmin)
	c := claimsFor(enum.RoleAdmin, academyID)
	c.UserID = admin.ID
	return admin, c
}

// --- List tests ---

func TestListUsers_AdminSeesOwnAcademy(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)
	store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)
	store.add(pgtype.UUID{Bytes: uuid.New(), Valid: true}, "other@test.com", enum.RoleCoach)

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users", nil)
	expectStatus(t, rr, http.StatusOK)

	if got := len(decodeList(t, rr)); got != 2 {
		t.Errorf("users: got %d, want 2", got)
	}
}

func TestListUsers_FilterByRole(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)
	store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)
	store.add(admin.AcademyID, "scout@test.com", enum.RoleScout)

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users?role=scout", nil)
	expectStatus(t, rr, http.StatusOK)

	users := decodeList(t, rr)
	if len(users) != 1 || users[0]["role"] != enum.RoleScout {
		t.Errorf("expected only the scout, got %v", users)
	}
}

func TestListUsers_NonAdminSeesOnlySelf(t *testing.T) {
	store := newMockUserStore()
	admin, _ := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)
	caller := claimsFor(enum.RoleCoach, admin.AcademyID.Bytes)
	caller.UserID = coach.ID

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users", nil)
	expectStatus(t, rr, http.StatusOK)

	users := decodeList(t, rr)
	if len(users) != 1 || users[0]["id"] != coach.ID.String() {
		t.Errorf("expected only the caller, got %v", users)
	}
}

func TestListUsers_ExcludesHashedPassword(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users", nil)
	expectStatus(t, rr, http.StatusOK)

	for _, u := range decodeList(t, rr) {
		if _, exists := u["hashed_password"]; exists {
			t.Error("response must not contain hashed_password")
		}
	}
}

// --- Get tests ---

func TestGetUser_OtherAcademyIsNotFound(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)
	other := store.add(pgtype.UUID{Bytes: uuid.New(), Valid: true}, "other@test.com", enum.RoleCoach)

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users/"+other.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestGetUser_InvalidID(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "GET", "/users/not-a-uuid", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Create tests ---

func TestCreateUser_Valid(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "POST", "/users", map[string]string{
		"email":     "new.coach@test.com",
		"password":  "secret123",
		"full_name": "New Coach",
		"role":      enum.RoleCoach,
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeObject(t, rr)
	if resp["academy_id"] != uuid.UUID(admin.AcademyID.Bytes).String() {
		t.Errorf("academy_id: got %v, want caller's academy", resp["academy_id"])
	}

	id := uuid.MustParse(resp["id"].(string))
	if err := bcrypt.CompareHashAndPassword([]byte(store.users[id].HashedPassword), []byte("secret123")); err != nil {
		t.Error("stored password is not a bcrypt hash of the input")
	}
}

func TestCreateUser_NonAdminForbidden(t *testing.T) {
	store := newMockUserStore()
	caller := claimsFor(enum.RoleCoach, uuid.New())

	rr := doRequest(t, setupUserRouter(store, caller), "POST", "/users", map[string]string{
		"email":     "x@test.com",
		"password":  "secret123",
		"full_name": "X",
		"role":      enum.RoleCoach,
	})
	expectStatus(t, rr, http.StatusForbidden)
}

func TestCreateUser_AdminCannotCreateSuperAdmin(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "POST", "/users", map[string]string{
		"email":     "boss@test.com",
		"password":  "secret123",
		"full_name": "Boss",
		"role":      enum.RoleSuperAdmin,
	})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCreateUser_Validation(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)
	router := setupUserRouter(store, caller)

	cases := map[string]map[string]string{
		"missing role":   {"email": "a@test.com", "password": "secret123", "full_name": "A"},
		"bad email":      {"email": "not-an-email", "password": "secret123", "full_name": "A", "role": "coach"},
		"short password": {"email": "a@test.com", "password": "123", "full_name": "A", "role": "coach"},
		"unknown role":   {"email": "a@test.com", "password": "secret123", "full_name": "A", "role": "janitor"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/users", body)
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	_, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "POST", "/users", map[string]string{
		"email":     "admin@test.com",
		"password":  "secret123",
		"full_name": "Dup",
		"role":      enum.RoleCoach,
	})
	expectStatus(t, rr, http.StatusBadRequest)

	if got := decodeObject(t, rr)["error"]; got != "email already exists" {
		t.Errorf("error: got %v", got)
	}
}

// --- Update tests ---

func TestUpdateUser_SelfCanEditProfile(t *testing.T) {
	store := newMockUserStore()
	admin, _ := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)
	caller := claimsFor(enum.RoleCoach, admin.AcademyID.Bytes)
	caller.UserID = coach.ID

	rr := doRequest(t, setupUserRouter(store, caller), "PUT", "/users/"+coach.ID.String(), map[string]string{
		"full_name": "Renamed Coach",
		"phone":     "0800",
	})
	expectStatus(t, rr, http.StatusOK)

	if got := store.users[coach.ID].FullName; got != "Renamed Coach" {
		t.Errorf("full_name: got %q", got)
	}
}

func TestUpdateUser_SelfCannotChangeRole(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "PUT", "/users/"+admin.ID.String(), map[string]string{
		"role": enum.RoleCoach,
	})
	expectStatus(t, rr, http.StatusForbidden)
}

func TestUpdateUser_AdminChangesRoleAndPassword(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)

	rr := doRequest(t, setupUserRouter(store, caller), "PUT", "/users/"+coach.ID.String(), map[string]string{
		"role":     enum.RoleScout,
		"password": "newpass1",
	})
	expectStatus(t, rr, http.StatusOK)

	updated := store.users[coach.ID]
	if updated.Role != enum.RoleScout {
		t.Errorf("role: got %q, want scout", updated.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(updated.HashedPassword), []byte("newpass1")); err != nil {
		t.Error("password was not updated")
	}
}

func TestUpdateUser_RejectedPasswordLeavesProfileUnchanged(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)

	rr := doRequest(t, setupUserRouter(store, caller), "PUT", "/users/"+coach.ID.String(), map[string]string{
		"full_name": "Renamed Coach",
		"password":  strings.Repeat("x", 80),
	})
	expectStatus(t, rr, http.StatusBadRequest)

	if got := store.users[coach.ID].FullName; got != coach.FullName {
		t.Errorf("full_name: got %q, want %q", got, coach.FullName)
	}
}

// --- Delete tests ---

func TestDeleteUser_SoftDeletes(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)

	rr := doRequest(t, setupUserRouter(store, caller), "DELETE", "/users/"+coach.ID.String(), nil)
	expectStatus(t, rr, http.StatusNoContent)

	u, exists := store.users[coach.ID]
	if !exists {
		t.Fatal("soft delete must keep the row")
	}
	if u.IsActive {
		t.Error("user should be inactive")
	}
}

func TestDeleteUser_CannotDeleteSelf(t *testing.T) {
	store := newMockUserStore()
	admin, caller := academyAdmin(store)

	rr := doRequest(t, setupUserRouter(store, caller), "DELETE", "/users/"+admin.ID.String(), nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestDeleteUser_NonAdminForbidden(t *testing.T) {
	store := newMockUserStore()
	admin, _ := academyAdmin(store)
	coach := store.add(admin.AcademyID, "coach@test.com", enum.RoleCoach)
	caller := claimsFor(enum.RoleCoach, admin.AcademyID.Bytes)
	caller.UserID = coach.ID

	rr := doRequest(t, setupUserRouter(store, caller), "DELETE", "/users/"+coach.ID.String(), nil)
	expectStatus(t, rr, http.StatusForbidden)
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Claims ---

func claimsFor(role string, academyID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:    uuid.New(),
		Email:     role + "@test.com",
		Role:      role,
		AcademyID: academyID,
	}
}

func superAdmin() *auth.Claims {
	return claimsFor(enum.RoleSuperAdmin, uuid.Nil)
}

// asCaller injects claims the way Authenticate would after a valid token.
func asCaller(c *auth.Claims) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithClaims(r.Context(), c)))
		})
	}
}

// mount builds a router with register mounted at path, called as c.
func mount(c *auth.Claims, path string, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(asCaller(c))
	r.Route(path, register)
	return r
}

// --- HTTP helpers ---

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var resp []map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

// --- Postgres errors ---

var (
	errUniqueViolation     = &pgconn.PgError{Code: "23505"}
	errForeignKeyViolation = &pgconn.PgError{Code: "23503"}
)

// --- Shared player lookup ---

// playerMap backs every mock whose handler checks player visibility.
type playerMap map[uuid.UUID]database.Player

func (m playerMap) GetPlayer(_ context.Context, id uuid.UUID) (database.Player, error) {
	p, ok := m[id]
	if !ok {
		return database.Player{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m playerMap) add(academyID uuid.UUID, name string) database.Player {
	p := database.Player{
		ID:           uuid.New(),
		AcademyID:    academyID,
		FullName:     name,
		Position:     "forward",
		DominantFoot: "right",
		Status:       enum.PlayerStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m[p.ID] = p
	return p
}

func linkedTo(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

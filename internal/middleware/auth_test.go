package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ascend-academy/api/internal/auth"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, time.Hour, uuid.New(), role+"@test.com", role, uuid.New())
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, _ := auth.GenerateToken(testSecret, time.Hour, userID, "coach@test.com", "coach", uuid.New())

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != userID {
			t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
		}
		if claims.Email != "coach@test.com" {
			t.Errorf("email: got %v", claims.Email)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidFormat(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthorize_PolicyTable(t *testing.T) {
	policy := middleware.DefaultPolicy()

	tests := []struct {
		name     string
		resource string
		method   string
		role     string
		want     int
	}{
		{"coach reads players", middleware.ResourcePlayers, "GET", "coach", http.StatusOK},
		{"coach creates players", middleware.ResourcePlayers, "POST", "coach", http.StatusOK},
		{"coach cannot delete players", middleware.ResourcePlayers, "DELETE", "coach", http.StatusForbidden},
		{"parent cannot create events", middleware.ResourceEvents, "POST", "parent", http.StatusForbidden},
		{"scout reads insights", middleware.ResourceInsights, "GET", "scout", http.StatusOK},
		{"scout cannot read attendance", middleware.ResourceAttendance, "GET", "scout", http.StatusForbidden},
		{"admin uses ledger", middleware.ResourceLedger, "POST", "admin", http.StatusOK},
		{"coach cannot read ledger", middleware.ResourceLedger, "GET", "coach", http.StatusForbidden},
		{"player cannot approve academies", middleware.ResourceApprovals, "POST", "player", http.StatusForbidden},
		{"super admin approves academies", middleware.ResourceApprovals, "POST", "super_admin", http.StatusOK},
		{"video analysis has no delete", middleware.ResourceVideoAnalysis, "DELETE", "super_admin", http.StatusForbidden},
		{"unknown resource denied", "nope", "GET", "super_admin", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := middleware.Authenticate(testSecret)(middleware.Authorize(policy, tt.resource)(inner))

			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tokenFor(t, tt.role))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestAuthorize_WithoutClaims(t *testing.T) {
	handler := middleware.Authorize(middleware.DefaultPolicy(), middleware.ResourcePlayers)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestOperationFor(t *testing.T) {
	cases := map[string]middleware.Operation{
		"GET":     middleware.OpRead,
		"HEAD":    middleware.OpRead,
		"POST":    middleware.OpCreate,
		"PUT":     middleware.OpUpdate,
		"PATCH":   middleware.OpUpdate,
		"DELETE":  middleware.OpDelete,
		"OPTIONS": middleware.OpRead,
	}
	for method, want := range cases {
		if got := middleware.OperationFor(method); got != want {
			t.Errorf("%s: got %s, want %s", method, got, want)
		}
	}
}

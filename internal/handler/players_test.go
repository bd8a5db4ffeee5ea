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
)

// --- Mock store ---

type mockPlayerStore struct {
	playerMap
	lastList database.ListPlayersParams
}

func newMockPlayerStore() *mockPlayerStore {
	return &mockPlayerStore{playerMap: make(playerMap)}
}

func (m *mockPlayerStore) CreatePlayer(_ context.Context, arg database.CreatePlayerParams) (database.Player, error) {
	p := database.Player{
		ID:           uuid.New(),
		AcademyID:    arg.AcademyID,
		UserID:       arg.UserID,
		ParentID:     arg.ParentID,
		FullName:     arg.FullName,
		DateOfBirth:  arg.DateOfBirth,
		Position:     arg.Position,
		JerseyNumber: arg.JerseyNumber,
		HeightCm:     arg.HeightCm,
		WeightKg:     arg.WeightKg,
		DominantFoot: arg.DominantFoot,
		Status:       arg.Status,
		Notes:        arg.Notes,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	m.playerMap[p.ID] = p
	return p, nil
}

func (m *mockPlayerStore) ListPlayers(_ context.Context, arg database.ListPlayersParams) ([]database.Player, error) {
	m.lastList = arg
	var result []database.Player
	for _, p := range m.playerMap {
		if arg.AcademyID.Valid && p.AcademyID != uuid.UUID(arg.AcademyID.Bytes) {
			continue
		}
		if arg.Search.Valid && !strings.Contains(strings.ToLower(p.FullName), strings.ToLower(arg.Search.String)) {
			continue
		}
		if arg.LinkedTo.Valid && p.UserID != arg.LinkedTo && p.ParentID != arg.LinkedTo {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (m *mockPlayerStore) UpdatePlayer(_ context.Context, arg database.UpdatePlayerParams) (database.Player, error) {
	p, ok := m.playerMap[arg.ID]
	if !ok {
		return database.Player{}, pgx.ErrNoRows
	}
	p.ParentID = arg.ParentID
	p.FullName = arg.FullName
	p.Position = arg.Position
	p.JerseyNumber = arg.JerseyNumber
	p.DominantFoot = arg.DominantFoot
	p.Status = arg.Status
	p.Notes = arg.Notes
	m.playerMap[p.ID] = p
	return p, nil
}

func (m *mockPlayerStore) DeletePlayer(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.playerMap[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.playerMap, id)
	return id, nil
}

func setupPlayerRouter(store *mockPlayerStore, caller *auth.Claims) *chi.Mux {
	return mount(caller, "/players_management", handler.NewPlayerHandler(store).RegisterRoutes)
}

// --- List tests ---

func TestListPlayers_ScopedToAcademy(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()
	store.add(academyID, "Kofi Mensah")
	store.add(academyID, "Ama Boateng")
	store.add(uuid.New(), "Elsewhere")

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, academyID)), "GET", "/players_management", nil)
	expectStatus(t, rr, http.StatusOK)

	if got := len(decodeList(t, rr)); got != 2 {
		t.Errorf("players: got %d, want 2", got)
	}
	if store.lastList.Limit != 50 {
		t.Errorf("default limit: got %d, want 50", store.lastList.Limit)
	}
}

func TestListPlayers_TokenWithoutAcademySeesNothing(t *testing.T) {
	store := newMockPlayerStore()
	store.add(uuid.New(), "Kofi Mensah")
	store.add(uuid.New(), "Ama Boateng")

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, uuid.Nil)), "GET", "/players_management", nil)
	expectStatus(t, rr, http.StatusOK)
	if got := len(decodeList(t, rr)); got != 0 {
		t.Errorf("players: got %d, want 0", got)
	}
	if !store.lastList.AcademyID.Valid {
		t.Error("list must be filtered by academy")
	}
}

func TestListPlayers_Search(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()
	store.add(academyID, "Kofi Mensah")
	store.add(academyID, "Ama Boateng")

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, academyID)), "GET", "/players_management?search=kofi", nil)
	expectStatus(t, rr, http.StatusOK)

	players := decodeList(t, rr)
	if len(players) != 1 || players[0]["full_name"] != "Kofi Mensah" {
		t.Errorf("search result: %v", players)
	}
}

func TestListPlayers_ParentSeesOnlyLinked(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()
	parent := claimsFor(enum.RoleParent, academyID)

	child := store.add(academyID, "Child")
	child.ParentID = linkedTo(parent.UserID)
	store.playerMap[child.ID] = child
	store.add(academyID, "Someone Else")

	rr := doRequest(t, setupPlayerRouter(store, parent), "GET", "/players_management", nil)
	expectStatus(t, rr, http.StatusOK)

	players := decodeList(t, rr)
	if len(players) != 1 || players[0]["id"] != child.ID.String() {
		t.Errorf("expected only the linked child, got %v", players)
	}
}

func TestListPlayers_InvalidLimit(t *testing.T) {
	store := newMockPlayerStore()
	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, uuid.New())), "GET", "/players_management?limit=1000", nil)
	expectStatus(t, rr, http.StatusBadRequest)
}

// --- Create tests ---

func TestCreatePlayer_Valid(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleAdmin, academyID)), "POST", "/players_management", map[string]interface{}{
		"full_name":     "Kofi Mensah",
		"date_of_birth": "2010-04-12",
		"position":      "winger",
		"jersey_number": 7,
		"height_cm":     "151.5",
		"dominant_foot": "left",
	})
	expectStatus(t, rr, http.StatusCreated)

	resp := decodeObject(t, rr)
	if resp["academy_id"] != academyID.String() {
		t.Errorf("academy_id: got %v, want %s", resp["academy_id"], academyID)
	}
	if resp["status"] != enum.PlayerStatusActive {
		t.Errorf("status: got %v, want active", resp["status"])
	}
	if resp["date_of_birth"] != "2010-04-12" {
		t.Errorf("date_of_birth: got %v", resp["date_of_birth"])
	}
	if resp["height_cm"] != "151.50" {
		t.Errorf("height_cm: got %v, want 151.50", resp["height_cm"])
	}
	if resp["jersey_number"] != float64(7) {
		t.Errorf("jersey_number: got %v", resp["jersey_number"])
	}
}

func TestCreatePlayer_SuperAdminNeedsAcademy(t *testing.T) {
	store := newMockPlayerStore()
	rr := doRequest(t, setupPlayerRouter(store, superAdmin()), "POST", "/players_management", map[string]interface{}{
		"full_name": "No Academy",
	})
	expectStatus(t, rr, http.StatusBadRequest)
}

func TestCreatePlayer_Validation(t *testing.T) {
	store := newMockPlayerStore()
	router := setupPlayerRouter(store, claimsFor(enum.RoleAdmin, uuid.New()))

	cases := map[string]map[string]interface{}{
		"missing name":  {"position": "keeper"},
		"bad jersey":    {"full_name": "A", "jersey_number": 120},
		"bad foot":      {"full_name": "A", "dominant_foot": "neither"},
		"bad status":    {"full_name": "A", "status": "retired"},
		"bad date":      {"full_name": "A", "date_of_birth": "12/04/2010"},
		"negative size": {"full_name": "A", "weight_kg": "-3"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rr := doRequest(t, router, "POST", "/players_management", body)
			expectStatus(t, rr, http.StatusBadRequest)
		})
	}
}

// --- Get / Update / Delete tests ---

func TestGetPlayer_OtherAcademyIsNotFound(t *testing.T) {
	store := newMockPlayerStore()
	p := store.add(uuid.New(), "Elsewhere")

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, uuid.New())), "GET", "/players_management/"+p.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}

func TestGetPlayer_SuperAdminSeesAll(t *testing.T) {
	store := newMockPlayerStore()
	p := store.add(uuid.New(), "Anywhere")

	rr := doRequest(t, setupPlayerRouter(store, superAdmin()), "GET", "/players_management/"+p.ID.String(), nil)
	expectStatus(t, rr, http.StatusOK)
}

func TestUpdatePlayer_Valid(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()
	p := store.add(academyID, "Kofi")

	rr := doRequest(t, setupPlayerRouter(store, claimsFor(enum.RoleCoach, academyID)), "PUT", "/players_management/"+p.ID.String(), map[string]interface{}{
		"full_name": "Kofi Mensah",
		"status":    enum.PlayerStatusInjured,
	})
	expectStatus(t, rr, http.StatusOK)

	if got := store.playerMap[p.ID].Status; got != enum.PlayerStatusInjured {
		t.Errorf("status: got %q, want injured", got)
	}
}

func TestDeletePlayer(t *testing.T) {
	store := newMockPlayerStore()
	academyID := uuid.New()
	p := store.add(academyID, "Kofi")
	router := setupPlayerRouter(store, claimsFor(enum.RoleAdmin, academyID))

	rr := doRequest(t, router, "DELETE", "/players_management/"+p.ID.String(), nil)
	expectStatus(t, rr, http.StatusNoContent)

	rr = doRequest(t, router, "DELETE", "/players_management/"+p.ID.String(), nil)
	expectStatus(t, rr, http.StatusNotFound)
}

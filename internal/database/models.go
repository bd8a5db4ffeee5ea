package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Academy struct {
	ID            uuid.UUID          `json:"id"`
	Name          string             `json:"name"`
	Email         string             `json:"email"`
	Phone         string             `json:"phone"`
	Address       string             `json:"address"`
	City          string             `json:"city"`
	ContactPerson string             `json:"contact_person"`
	PasswordHash  string             `json:"password_hash"`
	Status        string             `json:"status"`
	ReviewedBy    pgtype.UUID        `json:"reviewed_by"`
	ReviewedAt    pgtype.Timestamptz `json:"reviewed_at"`
	CreatedAt     time.Time          `json:"created_at"`
}

type User struct {
	ID             uuid.UUID   `json:"id"`
	AcademyID      pgtype.UUID `json:"academy_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           string      `json:"role"`
	Phone          string      `json:"phone"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Player struct {
	ID           uuid.UUID      `json:"id"`
	AcademyID    uuid.UUID      `json:"academy_id"`
	UserID       pgtype.UUID    `json:"user_id"`
	ParentID     pgtype.UUID    `json:"parent_id"`
	FullName     string         `json:"full_name"`
	DateOfBirth  pgtype.Date    `json:"date_of_birth"`
	Position     string         `json:"position"`
	JerseyNumber pgtype.Int4    `json:"jersey_number"`
	HeightCm     pgtype.Numeric `json:"height_cm"`
	WeightKg     pgtype.Numeric `json:"weight_kg"`
	DominantFoot string         `json:"dominant_foot"`
	Status       string         `json:"status"`
	Notes        string         `json:"notes"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type Event struct {
	ID          uuid.UUID          `json:"id"`
	AcademyID   uuid.UUID          `json:"academy_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	EventType   string             `json:"event_type"`
	Location    string             `json:"location"`
	StartsAt    time.Time          `json:"starts_at"`
	EndsAt      pgtype.Timestamptz `json:"ends_at"`
	CreatedBy   uuid.UUID          `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
}

type Attendance struct {
	ID         uuid.UUID `json:"id"`
	EventID    uuid.UUID `json:"event_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes"`
	RecordedBy uuid.UUID `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type TrainingProgram struct {
	ID              uuid.UUID   `json:"id"`
	AcademyID       uuid.UUID   `json:"academy_id"`
	CoachID         pgtype.UUID `json:"coach_id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	FocusArea       string      `json:"focus_area"`
	Level           string      `json:"level"`
	StartsOn        pgtype.Date `json:"starts_on"`
	EndsOn          pgtype.Date `json:"ends_on"`
	SessionsPerWeek int32       `json:"sessions_per_week"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

type Conversation struct {
	ID            uuid.UUID `json:"id"`
	ParticipantA  uuid.UUID `json:"participant_a"`
	ParticipantB  uuid.UUID `json:"participant_b"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type Message struct {
	ID             uuid.UUID          `json:"id"`
	ConversationID uuid.UUID          `json:"conversation_id"`
	SenderID       uuid.UUID          `json:"sender_id"`
	Body           string             `json:"body"`
	ReadAt         pgtype.Timestamptz `json:"read_at"`
	CreatedAt      time.Time          `json:"created_at"`
}

type AiInsight struct {
	ID          uuid.UUID      `json:"id"`
	PlayerID    uuid.UUID      `json:"player_id"`
	InsightType string         `json:"insight_type"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Score       pgtype.Numeric `json:"score"`
	CreatedBy   uuid.UUID      `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

type VideoAnalysis struct {
	ID          uuid.UUID          `json:"id"`
	PlayerID    uuid.UUID          `json:"player_id"`
	VideoUrl    string             `json:"video_url"`
	Status      string             `json:"status"`
	Progress    int32              `json:"progress"`
	Result      json.RawMessage    `json:"result"`
	Error       string             `json:"error"`
	RequestedBy uuid.UUID          `json:"requested_by"`
	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   pgtype.Timestamptz `json:"started_at"`
	CompletedAt pgtype.Timestamptz `json:"completed_at"`
}

type PlayerComparison struct {
	ID        uuid.UUID       `json:"id"`
	ScoutID   uuid.UUID       `json:"scout_id"`
	PlayerIds []uuid.UUID     `json:"player_ids"`
	Snapshot  json.RawMessage `json:"snapshot"`
	Notes     string          `json:"notes"`
	CreatedAt time.Time       `json:"created_at"`
}

// Dealer and Supplier share a shape; Balance is the cached running balance
// and always equals the balance of the latest ledger transaction.
type Dealer struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	ContactPerson string         `json:"contact_person"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	Address       string         `json:"address"`
	Balance       pgtype.Numeric `json:"balance"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Supplier struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	ContactPerson string         `json:"contact_person"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email"`
	Address       string         `json:"address"`
	Balance       pgtype.Numeric `json:"balance"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type Tax struct {
	ID         uuid.UUID      `json:"id"`
	Name       string         `json:"name"`
	TaxNumber  string         `json:"tax_number"`
	Percentage pgtype.Numeric `json:"percentage"`
	CreatedAt  time.Time      `json:"created_at"`
}

type Sale struct {
	ID                 uuid.UUID      `json:"id"`
	SupplierID         uuid.UUID      `json:"supplier_id"`
	ProductID          uuid.UUID      `json:"product_id"`
	TaxID              pgtype.UUID    `json:"tax_id"`
	VehicleNo          string         `json:"vehicle_no"`
	Weight             pgtype.Numeric `json:"weight"`
	NoOfBags           int32          `json:"no_of_bags"`
	Rate               pgtype.Numeric `json:"rate"`
	GrossTotal         pgtype.Numeric `json:"gross_total"`
	TaxAmount          pgtype.Numeric `json:"tax_amount"`
	Expenses           pgtype.Numeric `json:"expenses"`
	NetTotal           pgtype.Numeric `json:"net_total"`
	SupplierPreBalance pgtype.Numeric `json:"supplier_pre_balance"`
	SupplierBalance    pgtype.Numeric `json:"supplier_balance"`
	Details            string         `json:"details"`
	SaleDate           pgtype.Date    `json:"sale_date"`
	CreatedBy          pgtype.UUID    `json:"created_by"`
	CreatedAt          time.Time      `json:"created_at"`
}

type SaleDetail struct {
	ID               uuid.UUID      `json:"id"`
	SaleID           uuid.UUID      `json:"sale_id"`
	DealerID         uuid.UUID      `json:"dealer_id"`
	TaxID            pgtype.UUID    `json:"tax_id"`
	NoOfBags         int32          `json:"no_of_bags"`
	Weight           pgtype.Numeric `json:"weight"`
	Rate             pgtype.Numeric `json:"rate"`
	GrossTotal       pgtype.Numeric `json:"gross_total"`
	TaxAmount        pgtype.Numeric `json:"tax_amount"`
	NetTotal         pgtype.Numeric `json:"net_total"`
	DealerPreBalance pgtype.Numeric `json:"dealer_pre_balance"`
	DealerBalance    pgtype.Numeric `json:"dealer_balance"`
	CreatedAt        time.Time      `json:"created_at"`
}

type DealerTransaction struct {
	ID         uuid.UUID      `json:"id"`
	DealerID   uuid.UUID      `json:"dealer_id"`
	SaleID     pgtype.UUID    `json:"sale_id"`
	PreBalance pgtype.Numeric `json:"pre_balance"`
	AmountIn   pgtype.Numeric `json:"amount_in"`
	AmountOut  pgtype.Numeric `json:"amount_out"`
	Balance    pgtype.Numeric `json:"balance"`
	Details    string         `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

type SupplierTransaction struct {
	ID         uuid.UUID      `json:"id"`
	SupplierID uuid.UUID      `json:"supplier_id"`
	SaleID     pgtype.UUID    `json:"sale_id"`
	PreBalance pgtype.Numeric `json:"pre_balance"`
	AmountIn   pgtype.Numeric `json:"amount_in"`
	AmountOut  pgtype.Numeric `json:"amount_out"`
	Balance    pgtype.Numeric `json:"balance"`
	Details    string         `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

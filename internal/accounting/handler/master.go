package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Store interfaces ---

// DealerStore defines the database methods needed by dealer handlers.
type DealerStore interface {
	ListDealers(ctx context.Context, search pgtype.Text) ([]database.Dealer, error)
	GetDealer(ctx context.Context, id uuid.UUID) (database.Dealer, error)
	UpdateDealer(ctx context.Context, arg database.UpdatePartyParams) (database.Dealer, error)
	SoftDeleteDealer(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// SupplierStore defines the database methods needed by supplier handlers.
type SupplierStore interface {
	ListSuppliers(ctx context.Context, search pgtype.Text) ([]database.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (database.Supplier, error)
	UpdateSupplier(ctx context.Context, arg database.UpdatePartyParams) (database.Supplier, error)
	SoftDeleteSupplier(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ProductStore defines the database methods needed by product handlers.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// TaxStore defines the database methods needed by tax handlers.
type TaxStore interface {
	ListTaxes(ctx context.Context) ([]database.Tax, error)
	GetTax(ctx context.Context, id uuid.UUID) (database.Tax, error)
	CreateTax(ctx context.Context, arg database.CreateTaxParams) (database.Tax, error)
	UpdateTax(ctx context.Context, arg database.UpdateTaxParams) (database.Tax, error)
	DeleteTax(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// MasterStore is the union used by MasterHandler. Satisfied by *database.Queries.
type MasterStore interface {
	DealerStore
	SupplierStore
	ProductStore
	TaxStore
}

// PartyCreator creates dealers and suppliers with an opening balance.
// Satisfied by *service.LedgerService.
type PartyCreator interface {
	CreateDealer(ctx context.Context, arg database.CreatePartyParams, opening decimal.Decimal) (database.Dealer, error)
	CreateSupplier(ctx context.Context, arg database.CreatePartyParams, opening decimal.Decimal) (database.Supplier, error)
}

// --- MasterHandler ---

// MasterHandler handles CRUD endpoints for ledger master data.
type MasterHandler struct {
	store   MasterStore
	parties PartyCreator
}

// NewMasterHandler creates a new MasterHandler.
func NewMasterHandler(store MasterStore, parties PartyCreator) *MasterHandler {
	return &MasterHandler{store: store, parties: parties}
}

// --- Request / Response types for dealers and suppliers ---

type partyRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	Balance       string `json:"balance"`
}

type partyResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	Balance       string    `json:"balance"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toDealerResponse(d database.Dealer) partyResponse {
	return partyResponse{
		ID:            d.ID,
		Name:          d.Name,
		ContactPerson: d.ContactPerson,
		Phone:         d.Phone,
		Email:         d.Email,
		Address:       d.Address,
		Balance:       numericToString(d.Balance),
		IsActive:      d.IsActive,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func toSupplierResponse(s database.Supplier) partyResponse {
	return toDealerResponse(database.Dealer(s))
}

func (req partyRequest) params() database.CreatePartyParams {
	return database.CreatePartyParams{
		Name:          strings.TrimSpace(req.Name),
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
	}
}

// --- Request / Response types for products and taxes ---

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Unit        string `json:"unit"`
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Unit        string    `json:"unit"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProductResponse(p database.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Unit:        p.Unit,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

type taxRequest struct {
	Name       string `json:"name"`
	TaxNumber  string `json:"tax_number"`
	Percentage string `json:"percentage"`
}

type taxResponse struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TaxNumber  string    `json:"tax_number"`
	Percentage string    `json:"percentage"`
	CreatedAt  time.Time `json:"created_at"`
}

func toTaxResponse(t database.Tax) taxResponse {
	return taxResponse{
		ID:         t.ID,
		Name:       t.Name,
		TaxNumber:  t.TaxNumber,
		Percentage: numericToString(t.Percentage),
		CreatedAt:  t.CreatedAt,
	}
}

// --- Helper functions ---

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// numericToString renders a numeric with 2 decimal places; NULL renders as "0.00".
func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	s, ok := val.(string)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// parseAmount parses an optional non-negative decimal string; "" is zero.
// More than 2 decimal places or more than 12 integer digits is rejected.
func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() || !service.FitsAmount(d) {
		return decimal.Zero, false
	}
	return d, true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func internalError(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func searchParam(r *http.Request) pgtype.Text {
	s := strings.TrimSpace(r.URL.Query().Get("search"))
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// --- Dealer Routes ---

// RegisterDealerRoutes registers dealer CRUD endpoints.
func (h *MasterHandler) RegisterDealerRoutes(r chi.Router) {
	r.Get("/", h.ListDealers)
	r.Post("/", h.CreateDealer)
	r.Get("/{id}", h.GetDealer)
	r.Put("/{id}", h.UpdateDealer)
	r.Delete("/{id}", h.DeleteDealer)
}

// ListDealers returns active dealers, optionally filtered by ?search=.
func (h *MasterHandler) ListDealers(w http.ResponseWriter, r *http.Request) {
	dealers, err := h.store.ListDealers(r.Context(), searchParam(r))
	if err != nil {
		internalError(w, "list dealers", err)
		return
	}

	resp := make([]partyResponse, len(dealers))
	for i, d := range dealers {
		resp[i] = toDealerResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateDealer adds a dealer. A non-zero balance is booked as an opening
// balance transaction.
func (h *MasterHandler) CreateDealer(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	opening, ok := parseAmount(req.Balance)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "balance must be a non-negative amount with at most 2 decimal places"})
		return
	}

	dealer, err := h.parties.CreateDealer(r.Context(), req.params(), opening)
	if err != nil {
		if status, msg := ledgerError(err); status != 0 {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		internalError(w, "create dealer", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDealerResponse(dealer))
}

func (h *MasterHandler) GetDealer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dealer ID"})
		return
	}

	dealer, err := h.store.GetDealer(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dealer not found"})
			return
		}
		internalError(w, "get dealer", err)
		return
	}

	writeJSON(w, http.StatusOK, toDealerResponse(dealer))
}

// UpdateDealer changes contact details. The balance only moves through the ledger.
func (h *MasterHandler) UpdateDealer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dealer ID"})
		return
	}

	var req partyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	p := req.params()
	dealer, err := h.store.UpdateDealer(r.Context(), database.UpdatePartyParams{
		ID:            id,
		Name:          p.Name,
		ContactPerson: p.ContactPerson,
		Phone:         p.Phone,
		Email:         p.Email,
		Address:       p.Address,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dealer not found"})
			return
		}
		internalError(w, "update dealer", err)
		return
	}

	writeJSON(w, http.StatusOK, toDealerResponse(dealer))
}

// DeleteDealer soft-deletes a dealer; its ledger history stays.
func (h *MasterHandler) DeleteDealer(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dealer ID"})
		return
	}

	if _, err := h.store.SoftDeleteDealer(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Dealer not found"})
			return
		}
		internalError(w, "delete dealer", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Supplier Routes ---

// RegisterSupplierRoutes registers supplier CRUD endpoints.
func (h *MasterHandler) RegisterSupplierRoutes(r chi.Router) {
	r.Get("/", h.ListSuppliers)
	r.Post("/", h.CreateSupplier)
	r.Get("/{id}", h.GetSupplier)
	r.Put("/{id}", h.UpdateSupplier)
	r.Delete("/{id}", h.DeleteSupplier)
}

func (h *MasterHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.store.ListSuppliers(r.Context(), searchParam(r))
	if err != nil {
		internalError(w, "list suppliers", err)
		return
	}

	resp := make([]partyResponse, len(suppliers))
	for i, s := range suppliers {
		resp[i] = toSupplierResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MasterHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req partyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	opening, ok := parseAmount(req.Balance)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "balance must be a non-negative amount with at most 2 decimal places"})
		return
	}

	supplier, err := h.parties.CreateSupplier(r.Context(), req.params(), opening)
	if err != nil {
		if status, msg := ledgerError(err); status != 0 {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		internalError(w, "create supplier", err)
		return
	}

	writeJSON(w, http.StatusCreated, toSupplierResponse(supplier))
}

func (h *MasterHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier ID"})
		return
	}

	supplier, err := h.store.GetSupplier(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Supplier not found"})
			return
		}
		internalError(w, "get supplier", err)
		return
	}

	writeJSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *MasterHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier ID"})
		return
	}

	var req partyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	p := req.params()
	supplier, err := h.store.UpdateSupplier(r.Context(), database.UpdatePartyParams{
		ID:            id,
		Name:          p.Name,
		ContactPerson: p.ContactPerson,
		Phone:         p.Phone,
		Email:         p.Email,
		Address:       p.Address,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Supplier not found"})
			return
		}
		internalError(w, "update supplier", err)
		return
	}

	writeJSON(w, http.StatusOK, toSupplierResponse(supplier))
}

func (h *MasterHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier ID"})
		return
	}

	if _, err := h.store.SoftDeleteSupplier(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Supplier not found"})
			return
		}
		internalError(w, "delete supplier", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Product Routes ---

// RegisterProductRoutes registers product CRUD endpoints.
func (h *MasterHandler) RegisterProductRoutes(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Post("/", h.CreateProduct)
	r.Get("/{id}", h.GetProduct)
	r.Put("/{id}", h.UpdateProduct)
	r.Delete("/{id}", h.DeleteProduct)
}

func (h *MasterHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		internalError(w, "list products", err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MasterHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		req.Unit = "kg"
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product name already exists"})
			return
		}
		internalError(w, "create product", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

func (h *MasterHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
			return
		}
		internalError(w, "get product", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *MasterHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	if req.Unit == "" {
		req.Unit = "kg"
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Unit:        req.Unit,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product name already exists"})
			return
		}
		internalError(w, "update product", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

func (h *MasterHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.SoftDeleteProduct(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
			return
		}
		internalError(w, "delete product", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Tax Routes ---

// RegisterTaxRoutes registers tax CRUD endpoints.
func (h *MasterHandler) RegisterTaxRoutes(r chi.Router) {
	r.Get("/", h.ListTaxes)
	r.Post("/", h.CreateTax)
	r.Get("/{id}", h.GetTax)
	r.Put("/{id}", h.UpdateTax)
	r.Delete("/{id}", h.DeleteTax)
}

func (h *MasterHandler) ListTaxes(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.store.ListTaxes(r.Context())
	if err != nil {
		internalError(w, "list taxes", err)
		return
	}

	resp := make([]taxResponse, len(taxes))
	for i, t := range taxes {
		resp[i] = toTaxResponse(t)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MasterHandler) CreateTax(w http.ResponseWriter, r *http.Request) {
	var req taxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tax, err := h.store.CreateTax(r.Context(), params)
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tax_number already exists"})
			return
		}
		internalError(w, "create tax", err)
		return
	}

	writeJSON(w, http.StatusCreated, toTaxResponse(tax))
}

func (h *MasterHandler) GetTax(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tax ID"})
		return
	}

	tax, err := h.store.GetTax(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Tax not found"})
			return
		}
		internalError(w, "get tax", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaxResponse(tax))
}

func (h *MasterHandler) UpdateTax(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tax ID"})
		return
	}

	var req taxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	params, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	tax, err := h.store.UpdateTax(r.Context(), database.UpdateTaxParams{
		ID:         id,
		Name:       params.Name,
		TaxNumber:  params.TaxNumber,
		Percentage: params.Percentage,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Tax not found"})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tax_number already exists"})
			return
		}
		internalError(w, "update tax", err)
		return
	}

	writeJSON(w, http.StatusOK, toTaxResponse(tax))
}

// DeleteTax removes a tax. Taxes referenced by a sale cannot be deleted.
func (h *MasterHandler) DeleteTax(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tax ID"})
		return
	}

	if _, err := h.store.DeleteTax(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Tax not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tax is referenced by existing sales"})
			return
		}
		internalError(w, "delete tax", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

var maxTaxPercentage = decimal.NewFromInt(100)

func (req taxRequest) validate() (database.CreateTaxParams, string) {
	name := strings.TrimSpace(req.Name)
	number := strings.TrimSpace(req.TaxNumber)
	if name == "" || number == "" || req.Percentage == "" {
		return database.CreateTaxParams{}, "name, tax_number, and percentage are required"
	}
	pct, ok := parseAmount(req.Percentage)
	if !ok || pct.GreaterThan(maxTaxPercentage) {
		return database.CreateTaxParams{}, "percentage must be a number between 0 and 100"
	}
	return database.CreateTaxParams{
		Name:       name,
		TaxNumber:  number,
		Percentage: decimalToNumeric(pct),
	}, ""
}

// ledgerError maps ledger service errors to a status and message.
func ledgerError(err error) (int, string) {
	var verr *service.ValidationError
	var missing *service.MissingDealersError
	switch {
	case errors.Is(err, service.ErrDealerNotFound):
		return http.StatusNotFound, "Dealer not found"
	case errors.Is(err, service.ErrSupplierNotFound):
		return http.StatusNotFound, "Supplier not found"
	case errors.Is(err, service.ErrProductNotFound):
		return http.StatusNotFound, "Product not found"
	case errors.Is(err, service.ErrTaxNotFound):
		return http.StatusNotFound, "Tax not found"
	case errors.As(err, &missing):
		return http.StatusNotFound, missing.Error()
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, service.ErrNegativeAmount),
		errors.Is(err, service.ErrEmptyMovement),
		errors.Is(err, service.ErrNegativeOpening),
		errors.Is(err, service.ErrEmptySaleDetails):
		return http.StatusBadRequest, err.Error()
	}
	return 0, ""
}

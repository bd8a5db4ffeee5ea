package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/middleware"
	"github.com/ascend-academy/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Store interfaces ---

// SalesStore defines the read-side database methods for sales.
type SalesStore interface {
	ListSales(ctx context.Context, arg database.ListSalesParams) ([]database.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (database.Sale, error)
	ListSaleDetails(ctx context.Context, arg database.ListSaleDetailsParams) ([]database.SaleDetail, error)
	GetSaleDetail(ctx context.Context, id uuid.UUID) (database.SaleDetail, error)
}

// SaleCreator runs the atomic sale workflow. Satisfied by *service.SaleService.
type SaleCreator interface {
	CreateSale(ctx context.Context, req service.CreateSaleRequest) (*service.CreateSaleResult, error)
}

// --- SalesHandler ---

type SalesHandler struct {
	store   SalesStore
	creator SaleCreator
}

func NewSalesHandler(store SalesStore, creator SaleCreator) *SalesHandler {
	return &SalesHandler{store: store, creator: creator}
}

// RegisterSaleRoutes registers sale endpoints. Sales are immutable once created.
func (h *SalesHandler) RegisterSaleRoutes(r chi.Router) {
	r.Get("/", h.ListSales)
	r.Post("/", h.CreateSale)
	r.Get("/{id}", h.GetSale)
}

// RegisterSaleDetailRoutes registers read-only sale detail endpoints.
func (h *SalesHandler) RegisterSaleDetailRoutes(r chi.Router) {
	r.Get("/", h.ListSaleDetails)
	r.Get("/{id}", h.GetSaleDetail)
}

// --- Request / Response types ---

var (
	requiredSaleFields = []string{
		"supplier_id", "product_id", "vehicle_no", "weight", "no_of_bags",
		"rate", "gross_total", "net_total",
	}
	requiredLineFields = []string{
		"dealer_id", "no_of_bags", "weight", "rate", "gross_total", "net_total",
	}
)

type saleResponse struct {
	ID                 uuid.UUID  `json:"id"`
	SupplierID         uuid.UUID  `json:"supplier_id"`
	ProductID          uuid.UUID  `json:"product_id"`
	TaxID              *uuid.UUID `json:"tax_id"`
	VehicleNo          string     `json:"vehicle_no"`
	Weight             string     `json:"weight"`
	NoOfBags           int32      `json:"no_of_bags"`
	Rate               string     `json:"rate"`
	GrossTotal         string     `json:"gross_total"`
	TaxAmount          string     `json:"tax_amount"`
	Expenses           string     `json:"expenses"`
	NetTotal           string     `json:"net_total"`
	SupplierPreBalance string     `json:"supplier_pre_balance"`
	SupplierBalance    string     `json:"supplier_balance"`
	Details            string     `json:"details"`
	SaleDate           string     `json:"sale_date"`
	CreatedBy          *uuid.UUID `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
}

type saleDetailResponse struct {
	ID               uuid.UUID  `json:"id"`
	SaleID           uuid.UUID  `json:"sale_id"`
	DealerID         uuid.UUID  `json:"dealer_id"`
	TaxID            *uuid.UUID `json:"tax_id"`
	NoOfBags         int32      `json:"no_of_bags"`
	Weight           string     `json:"weight"`
	Rate             string     `json:"rate"`
	GrossTotal       string     `json:"gross_total"`
	TaxAmount        string     `json:"tax_amount"`
	NetTotal         string     `json:"net_total"`
	DealerPreBalance string     `json:"dealer_pre_balance"`
	DealerBalance    string     `json:"dealer_balance"`
	CreatedAt        time.Time  `json:"created_at"`
}

type saleWithDetailsResponse struct {
	saleResponse
	SaleDetails []saleDetailResponse `json:"sale_details"`
}

type createSaleResponse struct {
	SaleID        uuid.UUID               `json:"sale_id"`
	SaleDetailIDs []uuid.UUID             `json:"sale_detail_ids"`
	Sale          saleWithDetailsResponse `json:"sale"`
}

func toSaleResponse(s database.Sale) saleResponse {
	resp := saleResponse{
		ID:                 s.ID,
		SupplierID:         s.SupplierID,
		ProductID:          s.ProductID,
		VehicleNo:          s.VehicleNo,
		Weight:             numericToString(s.Weight),
		NoOfBags:           s.NoOfBags,
		Rate:               numericToString(s.Rate),
		GrossTotal:         numericToString(s.GrossTotal),
		TaxAmount:          numericToString(s.TaxAmount),
		Expenses:           numericToString(s.Expenses),
		NetTotal:           numericToString(s.NetTotal),
		SupplierPreBalance: numericToString(s.SupplierPreBalance),
		SupplierBalance:    numericToString(s.SupplierBalance),
		Details:            s.Details,
		CreatedAt:          s.CreatedAt,
	}
	resp.TaxID = uuidPtr(s.TaxID)
	resp.CreatedBy = uuidPtr(s.CreatedBy)
	if s.SaleDate.Valid {
		resp.SaleDate = s.SaleDate.Time.Format("2006-01-02")
	}
	return resp
}

func toSaleDetailResponse(d database.SaleDetail) saleDetailResponse {
	return saleDetailResponse{
		ID:               d.ID,
		SaleID:           d.SaleID,
		DealerID:         d.DealerID,
		TaxID:            uuidPtr(d.TaxID),
		NoOfBags:         d.NoOfBags,
		Weight:           numericToString(d.Weight),
		Rate:             numericToString(d.Rate),
		GrossTotal:       numericToString(d.GrossTotal),
		TaxAmount:        numericToString(d.TaxAmount),
		NetTotal:         numericToString(d.NetTotal),
		DealerPreBalance: numericToString(d.DealerPreBalance),
		DealerBalance:    numericToString(d.DealerBalance),
		CreatedAt:        d.CreatedAt,
	}
}

func toSaleWithDetails(s database.Sale, details []database.SaleDetail) saleWithDetailsResponse {
	resp := saleWithDetailsResponse{
		saleResponse: toSaleResponse(s),
		SaleDetails:  make([]saleDetailResponse, len(details)),
	}
	for i, d := range details {
		resp.SaleDetails[i] = toSaleDetailResponse(d)
	}
	return resp
}

// --- Helper functions ---

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		fmt.Sscanf(v, "%d", &offset)
	}
	if limit < 1 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func uuidPtr(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func queryUUID(r *http.Request, name string) (pgtype.UUID, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

// saleFields reads a decoded JSON object, recording every key it cannot use.
// Numbers may be sent as JSON numbers or strings.
type saleFields struct {
	obj     map[string]any
	prefix  string
	invalid *[]string
}

func (f saleFields) missing(keys []string) []string {
	var out []string
	for _, k := range keys {
		v, ok := f.obj[k]
		if !ok || v == nil || v == "" {
			out = append(out, f.prefix+k)
		}
	}
	return out
}

func (f saleFields) bad(key string) {
	*f.invalid = append(*f.invalid, f.prefix+key)
}

func (f saleFields) str(key string) string {
	switch v := f.obj[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	f.bad(key)
	return ""
}

func (f saleFields) uuid(key string) uuid.UUID {
	id, err := uuid.Parse(f.str(key))
	if err != nil {
		f.bad(key)
	}
	return id
}

func (f saleFields) optionalUUID(key string) pgtype.UUID {
	s := f.str(key)
	if s == "" {
		return pgtype.UUID{}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		f.bad(key)
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func (f saleFields) decimal(key string) decimal.Decimal {
	s := f.str(key)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		f.bad(key)
		return decimal.Zero
	}
	return d
}

func (f saleFields) int32(key string) int32 {
	d := f.decimal(key)
	if !d.IsInteger() || d.GreaterThan(decimal.NewFromInt32(1<<31-1)) || d.LessThan(decimal.NewFromInt32(-1<<31)) {
		f.bad(key)
		return 0
	}
	return int32(d.IntPart())
}

// parseSaleRequest checks presence first, then well-formedness. Range checks
// are left to the sale service.
func parseSaleRequest(body map[string]any) (service.CreateSaleRequest, []string, []string) {
	var invalid []string
	top := saleFields{obj: body, invalid: &invalid}

	missing := top.missing(requiredSaleFields)
	rawLines, _ := body["sale_details"].([]any)
	if len(rawLines) == 0 {
		missing = append(missing, "sale_details")
	}

	lines := make([]saleFields, len(rawLines))
	for i, raw := range rawLines {
		obj, ok := raw.(map[string]any)
		if !ok {
			obj = map[string]any{}
		}
		lines[i] = saleFields{obj: obj, prefix: fmt.Sprintf("sale_details[%d].", i), invalid: &invalid}
		missing = append(missing, lines[i].missing(requiredLineFields)...)
	}
	if len(missing) > 0 {
		return service.CreateSaleRequest{}, missing, nil
	}

	req := service.CreateSaleRequest{
		SupplierID: top.uuid("supplier_id"),
		ProductID:  top.uuid("product_id"),
		TaxID:      top.optionalUUID("tax_id"),
		VehicleNo:  top.str("vehicle_no"),
		Weight:     top.decimal("weight"),
		NoOfBags:   top.int32("no_of_bags"),
		Rate:       top.decimal("rate"),
		GrossTotal: top.decimal("gross_total"),
		TaxAmount:  top.decimal("tax_amount"),
		Expenses:   top.decimal("expenses"),
		NetTotal:   top.decimal("net_total"),
		Details:    top.str("details"),
		Lines:      make([]service.SaleLineRequest, len(lines)),
	}
	if s := top.str("sale_date"); s != "" {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			top.bad("sale_date")
		}
		req.SaleDate = pgtype.Date{Time: d, Valid: err == nil}
	}
	for i, f := range lines {
		req.Lines[i] = service.SaleLineRequest{
			DealerID:   f.uuid("dealer_id"),
			TaxID:      f.optionalUUID("tax_id"),
			NoOfBags:   f.int32("no_of_bags"),
			Weight:     f.decimal("weight"),
			Rate:       f.decimal("rate"),
			GrossTotal: f.decimal("gross_total"),
			TaxAmount:  f.decimal("tax_amount"),
			NetTotal:   f.decimal("net_total"),
		}
	}
	return req, nil, invalid
}

// --- Handlers ---

// ListSales returns sales newest first, optionally for one ?supplier_id=.
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	supplierID, err := queryUUID(r, "supplier_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier_id"})
		return
	}

	sales, err := h.store.ListSales(r.Context(), database.ListSalesParams{
		SupplierID: supplierID,
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		internalError(w, "list sales", err)
		return
	}

	resp := make([]saleResponse, len(sales))
	for i, s := range sales {
		resp[i] = toSaleResponse(s)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSale returns a sale with its dealer allocations.
func (h *SalesHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale ID"})
		return
	}

	sale, err := h.store.GetSale(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sale not found"})
			return
		}
		internalError(w, "get sale", err)
		return
	}

	details, err := h.store.ListSaleDetails(r.Context(), database.ListSaleDetailsParams{
		SaleID: pgtype.UUID{Bytes: sale.ID, Valid: true},
	})
	if err != nil {
		internalError(w, "get sale: list details", err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleWithDetails(sale, details))
}

// CreateSale books a sale and its dealer allocations in one unit of work.
func (h *SalesHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	req, missing, invalid := parseSaleRequest(body)
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "missing required fields", "details": missing})
		return
	}
	if len(invalid) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid fields", "details": invalid})
		return
	}
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil {
		req.CreatedBy = pgtype.UUID{Bytes: claims.UserID, Valid: true}
	}

	result, err := h.creator.CreateSale(r.Context(), req)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid fields", "details": verr.Fields})
			return
		}
		var missingDealers *service.MissingDealersError
		if errors.As(err, &missingDealers) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Dealer not found", "details": missingDealers.IDs})
			return
		}
		if status, msg := ledgerError(err); status != 0 {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
		internalError(w, "create sale", err)
		return
	}

	resp := createSaleResponse{
		SaleID:        result.Sale.ID,
		SaleDetailIDs: make([]uuid.UUID, len(result.Details)),
		Sale:          toSaleWithDetails(result.Sale, result.Details),
	}
	for i, d := range result.Details {
		resp.SaleDetailIDs[i] = d.ID
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListSaleDetails returns allocations for ?sale_id= or ?dealer_id=.
func (h *SalesHandler) ListSaleDetails(w http.ResponseWriter, r *http.Request) {
	saleID, err := queryUUID(r, "sale_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale_id"})
		return
	}
	dealerID, err := queryUUID(r, "dealer_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dealer_id"})
		return
	}
	if !saleID.Valid && !dealerID.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sale_id or dealer_id is required"})
		return
	}

	details, err := h.store.ListSaleDetails(r.Context(), database.ListSaleDetailsParams{
		SaleID:   saleID,
		DealerID: dealerID,
	})
	if err != nil {
		internalError(w, "list sale details", err)
		return
	}

	resp := make([]saleDetailResponse, len(details))
	for i, d := range details {
		resp[i] = toSaleDetailResponse(d)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *SalesHandler) GetSaleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sale detail ID"})
		return
	}

	detail, err := h.store.GetSaleDetail(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sale detail not found"})
			return
		}
		internalError(w, "get sale detail", err)
		return
	}

	writeJSON(w, http.StatusOK, toSaleDetailResponse(detail))
}

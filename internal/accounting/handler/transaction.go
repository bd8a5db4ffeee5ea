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
	"github.com/ascend-academy/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// --- Store interfaces ---

// TransactionStore defines the read-side database methods for ledger entries.
type TransactionStore interface {
	GetDealer(ctx context.Context, id uuid.UUID) (database.Dealer, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (database.Supplier, error)
	GetDealerTransaction(ctx context.Context, id uuid.UUID) (database.DealerTransaction, error)
	ListDealerTransactions(ctx context.Context, dealerID pgtype.UUID) ([]database.DealerTransaction, error)
	GetSupplierTransaction(ctx context.Context, id uuid.UUID) (database.SupplierTransaction, error)
	ListSupplierTransactions(ctx context.Context, supplierID pgtype.UUID) ([]database.SupplierTransaction, error)
}

// TransactionRecorder applies a manual movement. Satisfied by *service.LedgerService.
type TransactionRecorder interface {
	RecordTransaction(ctx context.Context, acct service.Account, mv service.Movement) (service.Entry, error)
}

// --- TransactionHandler ---

type TransactionHandler struct {
	store    TransactionStore
	recorder TransactionRecorder
}

func NewTransactionHandler(store TransactionStore, recorder TransactionRecorder) *TransactionHandler {
	return &TransactionHandler{store: store, recorder: recorder}
}

// RegisterDealerTransactionRoutes registers dealer ledger endpoints.
// Entries are append-only, so there is no update or delete.
func (h *TransactionHandler) RegisterDealerTransactionRoutes(r chi.Router) {
	r.Get("/", h.ListDealerTransactions)
	r.Post("/", h.CreateDealerTransaction)
	r.Get("/{id}", h.GetDealerTransaction)
}

// RegisterSupplierTransactionRoutes registers supplier ledger endpoints.
func (h *TransactionHandler) RegisterSupplierTransactionRoutes(r chi.Router) {
	r.Get("/", h.ListSupplierTransactions)
	r.Post("/", h.CreateSupplierTransaction)
	r.Get("/{id}", h.GetSupplierTransaction)
}

// RegisterSupplierStatementRoutes registers the supplier statement endpoints.
func (h *TransactionHandler) RegisterSupplierStatementRoutes(r chi.Router) {
	r.Post("/", h.CreateSupplierStatementEntry)
	r.Get("/{supplier_id}", h.GetSupplierStatement)
}

// --- Request / Response types ---

type movementRequest struct {
	DealerID   string      `json:"dealer_id"`
	SupplierID string      `json:"supplier_id"`
	AmountIn   json.Number `json:"amount_in"`
	AmountOut  json.Number `json:"amount_out"`
	Details    string      `json:"details"`
}

type transactionResponse struct {
	ID         uuid.UUID  `json:"id"`
	DealerID   *uuid.UUID `json:"dealer_id,omitempty"`
	SupplierID *uuid.UUID `json:"supplier_id,omitempty"`
	SaleID     *uuid.UUID `json:"sale_id"`
	PreBalance string     `json:"pre_balance"`
	AmountIn   string     `json:"amount_in"`
	AmountOut  string     `json:"amount_out"`
	Balance    string     `json:"balance"`
	Details    string     `json:"details"`
	CreatedAt  time.Time  `json:"created_at"`
}

type supplierTransactionWithSupplier struct {
	transactionResponse
	Supplier partyResponse `json:"supplier"`
}

type supplierStatementResponse struct {
	Supplier     partyResponse         `json:"supplier"`
	Transactions []transactionResponse `json:"transactions"`
}

func toEntryResponse(e service.Entry) transactionResponse {
	id := e.Account.ID
	resp := transactionResponse{
		ID:         e.ID,
		SaleID:     uuidPtr(e.SaleID),
		PreBalance: e.PreBalance.StringFixed(2),
		AmountIn:   e.AmountIn.StringFixed(2),
		AmountOut:  e.AmountOut.StringFixed(2),
		Balance:    e.Balance.StringFixed(2),
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
	if e.Account.Kind == enum.AccountDealer {
		resp.DealerID = &id
	} else {
		resp.SupplierID = &id
	}
	return resp
}

// toMovement resolves the account for kind and parses the amounts.
// It returns a client-facing message on failure.
func (req movementRequest) toMovement(kind string) (service.Account, service.Movement, string) {
	raw, field := req.DealerID, "dealer_id"
	if kind == enum.AccountSupplier {
		raw, field = req.SupplierID, "supplier_id"
	}
	if strings.TrimSpace(raw) == "" {
		return service.Account{}, service.Movement{}, field + " is required"
	}
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return service.Account{}, service.Movement{}, "invalid " + field
	}

	in, okIn := parseAmount(req.AmountIn.String())
	out, okOut := parseAmount(req.AmountOut.String())
	if !okIn || !okOut {
		return service.Account{}, service.Movement{}, "amount_in and amount_out must be non-negative amounts with at most 2 decimal places"
	}
	return service.Account{Kind: kind, ID: id}, service.Movement{
		AmountIn:  in,
		AmountOut: out,
		Details:   strings.TrimSpace(req.Details),
	}, ""
}

// --- Handlers ---

func (h *TransactionHandler) record(w http.ResponseWriter, r *http.Request, kind string) (service.Entry, bool) {
	var req movementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return service.Entry{}, false
	}
	acct, mv, msg := req.toMovement(kind)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return service.Entry{}, false
	}

	entry, err := h.recorder.RecordTransaction(r.Context(), acct, mv)
	if err != nil {
		if status, msg := ledgerError(err); status != 0 {
			writeJSON(w, status, map[string]string{"error": msg})
			return service.Entry{}, false
		}
		internalError(w, "record "+kind+" transaction", err)
		return service.Entry{}, false
	}
	return entry, true
}

// ListDealerTransactions returns dealer entries oldest first, optionally for one ?dealer_id=.
func (h *TransactionHandler) ListDealerTransactions(w http.ResponseWriter, r *http.Request) {
	dealerID, err := queryUUID(r, "dealer_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dealer_id"})
		return
	}

	txns, err := h.store.ListDealerTransactions(r.Context(), dealerID)
	if err != nil {
		internalError(w, "list dealer transactions", err)
		return
	}

	resp := make([]transactionResponse, len(txns))
	for i, t := range txns {
		resp[i] = toEntryResponse(service.DealerEntry(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TransactionHandler) GetDealerTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction ID"})
		return
	}

	txn, err := h.store.GetDealerTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transaction not found"})
			return
		}
		internalError(w, "get dealer transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(service.DealerEntry(txn)))
}

// CreateDealerTransaction records a manual dealer movement.
func (h *TransactionHandler) CreateDealerTransaction(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.record(w, r, enum.AccountDealer)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// ListSupplierTransactions returns supplier entries oldest first, optionally for one ?supplier_id=.
func (h *TransactionHandler) ListSupplierTransactions(w http.ResponseWriter, r *http.Request) {
	supplierID, err := queryUUID(r, "supplier_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid supplier_id"})
		return
	}

	txns, err := h.store.ListSupplierTransactions(r.Context(), supplierID)
	if err != nil {
		internalError(w, "list supplier transactions", err)
		return
	}

	resp := make([]transactionResponse, len(txns))
	for i, t := range txns {
		resp[i] = toEntryResponse(service.SupplierEntry(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TransactionHandler) GetSupplierTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction ID"})
		return
	}

	txn, err := h.store.GetSupplierTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Transaction not found"})
			return
		}
		internalError(w, "get supplier transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, toEntryResponse(service.SupplierEntry(txn)))
}

// CreateSupplierTransaction records a manual supplier movement.
func (h *TransactionHandler) CreateSupplierTransaction(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.record(w, r, enum.AccountSupplier)
	if !ok {
		return
	}
	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// CreateSupplierStatementEntry records a supplier movement and returns it
// joined with the supplier's updated row.
func (h *TransactionHandler) CreateSupplierStatementEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.record(w, r, enum.AccountSupplier)
	if !ok {
		return
	}

	supplier, err := h.store.GetSupplier(r.Context(), entry.Account.ID)
	if err != nil {
		internalError(w, "supplier statement: get supplier", err)
		return
	}

	writeJSON(w, http.StatusCreated, supplierTransactionWithSupplier{
		transactionResponse: toEntryResponse(entry),
		Supplier:            toSupplierResponse(supplier),
	})
}

// GetSupplierStatement returns a supplier with its full ledger, oldest first.
func (h *TransactionHandler) GetSupplierStatement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "supplier_id"))
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
		internalError(w, "supplier statement: get supplier", err)
		return
	}

	txns, err := h.store.ListSupplierTransactions(r.Context(), pgtype.UUID{Bytes: id, Valid: true})
	if err != nil {
		internalError(w, "supplier statement: list transactions", err)
		return
	}

	resp := supplierStatementResponse{
		Supplier:     toSupplierResponse(supplier),
		Transactions: make([]transactionResponse, len(txns)),
	}
	for i, t := range txns {
		resp.Transactions[i] = toEntryResponse(service.SupplierEntry(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

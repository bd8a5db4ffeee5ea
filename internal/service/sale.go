package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the sale service.
var (
	ErrEmptySaleDetails = errors.New("sale_details must contain at least one line")
	ErrProductNotFound  = errors.New("product not found")
	ErrTaxNotFound      = errors.New("tax not found")
)

// MissingDealersError reports every dealer referenced by a sale that does not exist.
type MissingDealersError struct {
	IDs []uuid.UUID
}

func (e *MissingDealersError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return "dealers not found: " + strings.Join(ids, ", ")
}

// SaleStore defines the DB methods needed to create a sale.
// Satisfied by *database.Queries (and its WithTx variant).
type SaleStore interface {
	LedgerStore
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetTax(ctx context.Context, id uuid.UUID) (database.Tax, error)
	LockDealers(ctx context.Context, ids []uuid.UUID) ([]database.Dealer, error)
	CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error)
	SetSaleSupplierBalances(ctx context.Context, arg database.SetSaleSupplierBalancesParams) (database.Sale, error)
	CreateSaleDetail(ctx context.Context, arg database.CreateSaleDetailParams) (database.SaleDetail, error)
}

// NewSaleStore creates a SaleStore from a DBTX (pool or tx).
type NewSaleStore func(db database.DBTX) SaleStore

// CreateSaleRequest is the parsed input for creating a sale.
type CreateSaleRequest struct {
	SupplierID uuid.UUID
	ProductID  uuid.UUID
	TaxID      pgtype.UUID
	VehicleNo  string
	Weight     decimal.Decimal
	NoOfBags   int32
	Rate       decimal.Decimal
	GrossTotal decimal.Decimal
	TaxAmount  decimal.Decimal
	Expenses   decimal.Decimal
	NetTotal   decimal.Decimal
	Details    string
	SaleDate   pgtype.Date
	CreatedBy  pgtype.UUID
	Lines      []SaleLineRequest
}

// SaleLineRequest allocates part of a sale to one dealer.
type SaleLineRequest struct {
	DealerID   uuid.UUID
	TaxID      pgtype.UUID
	NoOfBags   int32
	Weight     decimal.Decimal
	Rate       decimal.Decimal
	GrossTotal decimal.Decimal
	TaxAmount  decimal.Decimal
	NetTotal   decimal.Decimal
}

// CreateSaleResult is the created sale with its lines and ledger entries.
type CreateSaleResult struct {
	Sale          database.Sale
	Details       []database.SaleDetail
	SupplierEntry Entry
	DealerEntries []Entry
}

// SaleService handles sale creation.
type SaleService struct {
	pool     TxBeginner
	newStore NewSaleStore
	ledger   *LedgerService
	timeout  time.Duration
}

// NewSaleService creates a new SaleService. timeout bounds the whole unit of
// work; zero means no extra deadline.
func NewSaleService(pool TxBeginner, newStore NewSaleStore, ledger *LedgerService, timeout time.Duration) *SaleService {
	return &SaleService{pool: pool, newStore: newStore, ledger: ledger, timeout: timeout}
}

// CreateSale inserts the sale header, credits the supplier with the net total
// and credits each line's dealer with the line net total, all atomically.
func (s *SaleService) CreateSale(ctx context.Context, req CreateSaleRequest) (*CreateSaleResult, error) {
	if err := validateSale(req); err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Resolve references ---
	if _, err := store.GetProduct(ctx, req.ProductID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	if err := checkTaxes(ctx, store, req); err != nil {
		return nil, err
	}
	if _, err := store.GetSupplierForUpdate(ctx, req.SupplierID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("lock supplier: %w", err)
	}
	if err := lockDealers(ctx, store, req.Lines); err != nil {
		return nil, err
	}

	// --- Header ---
	sale, err := store.CreateSale(ctx, database.CreateSaleParams{
		SupplierID: req.SupplierID,
		ProductID:  req.ProductID,
		TaxID:      req.TaxID,
		VehicleNo:  req.VehicleNo,
		Weight:     decimalToNumeric(req.Weight),
		NoOfBags:   req.NoOfBags,
		Rate:       decimalToNumeric(req.Rate),
		GrossTotal: decimalToNumeric(req.GrossTotal),
		TaxAmount:  decimalToNumeric(req.TaxAmount),
		Expenses:   decimalToNumeric(req.Expenses),
		NetTotal:   decimalToNumeric(req.NetTotal),
		Details:    req.Details,
		SaleDate:   req.SaleDate,
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	saleRef := pgtype.UUID{Bytes: sale.ID, Valid: true}
	details := fmt.Sprintf("Sale %s, vehicle %s", shortID(sale.ID), req.VehicleNo)

	// --- Supplier ledger ---
	supplierEntry, err := s.ledger.Apply(ctx, store, Account{Kind: enum.AccountSupplier, ID: req.SupplierID}, Movement{
		AmountIn: req.NetTotal,
		Details:  details,
		SaleID:   saleRef,
	})
	if err != nil {
		return nil, err
	}
	sale, err = store.SetSaleSupplierBalances(ctx, database.SetSaleSupplierBalancesParams{
		ID:                 sale.ID,
		SupplierPreBalance: decimalToNumeric(supplierEntry.PreBalance),
		SupplierBalance:    decimalToNumeric(supplierEntry.Balance),
	})
	if err != nil {
		return nil, fmt.Errorf("set sale supplier balances: %w", err)
	}

	// --- Lines, in input order ---
	result := &CreateSaleResult{
		Sale:          sale,
		SupplierEntry: supplierEntry,
		Details:       make([]database.SaleDetail, 0, len(req.Lines)),
		DealerEntries: make([]Entry, 0, len(req.Lines)),
	}
	for i, line := range req.Lines {
		entry, err := s.ledger.Apply(ctx, store, Account{Kind: enum.AccountDealer, ID: line.DealerID}, Movement{
			AmountIn: line.NetTotal,
			Details:  details,
			SaleID:   saleRef,
		})
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		detail, err := store.CreateSaleDetail(ctx, database.CreateSaleDetailParams{
			SaleID:           sale.ID,
			DealerID:         line.DealerID,
			TaxID:            line.TaxID,
			NoOfBags:         line.NoOfBags,
			Weight:           decimalToNumeric(line.Weight),
			Rate:             decimalToNumeric(line.Rate),
			GrossTotal:       decimalToNumeric(line.GrossTotal),
			TaxAmount:        decimalToNumeric(line.TaxAmount),
			NetTotal:         decimalToNumeric(line.NetTotal),
			DealerPreBalance: decimalToNumeric(entry.PreBalance),
			DealerBalance:    decimalToNumeric(entry.Balance),
		})
		if err != nil {
			return nil, fmt.Errorf("create sale detail %d: %w", i, err)
		}
		result.Details = append(result.Details, detail)
		result.DealerEntries = append(result.DealerEntries, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// validateSale range-checks every numeric field. Presence is the caller's job.
func validateSale(req CreateSaleRequest) error {
	if len(req.Lines) == 0 {
		return ErrEmptySaleDetails
	}

	var bad []string
	if req.NoOfBags <= 0 {
		bad = append(bad, "no_of_bags")
	}
	for name, v := range map[string]decimal.Decimal{
		"weight":      req.Weight,
		"rate":        req.Rate,
		"gross_total": req.GrossTotal,
		"tax_amount":  req.TaxAmount,
		"expenses":    req.Expenses,
		"net_total":   req.NetTotal,
	} {
		if v.IsNegative() || !FitsAmount(v) {
			bad = append(bad, name)
		}
	}
	for i, line := range req.Lines {
		prefix := fmt.Sprintf("sale_details[%d].", i)
		if line.NoOfBags <= 0 {
			bad = append(bad, prefix+"no_of_bags")
		}
		for name, v := range map[string]decimal.Decimal{
			"weight":      line.Weight,
			"rate":        line.Rate,
			"gross_total": line.GrossTotal,
			"tax_amount":  line.TaxAmount,
			"net_total":   line.NetTotal,
		} {
			if v.IsNegative() || !FitsAmount(v) {
				bad = append(bad, prefix+name)
			}
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return &ValidationError{Fields: bad}
	}
	return nil
}

func checkTaxes(ctx context.Context, store SaleStore, req CreateSaleRequest) error {
	seen := map[uuid.UUID]bool{}
	ids := []pgtype.UUID{req.TaxID}
	for _, line := range req.Lines {
		ids = append(ids, line.TaxID)
	}
	for _, id := range ids {
		if !id.Valid || seen[id.Bytes] {
			continue
		}
		seen[id.Bytes] = true
		if _, err := store.GetTax(ctx, id.Bytes); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTaxNotFound
			}
			return fmt.Errorf("get tax: %w", err)
		}
	}
	return nil
}

// lockDealers locks the distinct dealer set and reports the missing ones in
// the order they first appear in the request.
func lockDealers(ctx context.Context, store SaleStore, lines []SaleLineRequest) error {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, line := range lines {
		if !seen[line.DealerID] {
			seen[line.DealerID] = true
			ids = append(ids, line.DealerID)
		}
	}

	dealers, err := store.LockDealers(ctx, ids)
	if err != nil {
		return fmt.Errorf("lock dealers: %w", err)
	}
	found := make(map[uuid.UUID]bool, len(dealers))
	for _, d := range dealers {
		found[d.ID] = true
	}

	var missing []uuid.UUID
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return &MissingDealersError{IDs: missing}
	}
	return nil
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

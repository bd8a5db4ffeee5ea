package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/ascend-academy/api/internal/accounting/handler"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- In-memory ledger database ---

// ledgerState is one committed view. Transactions work on a clone that
// Commit swaps in, so a failed sale leaves nothing behind.
type ledgerState struct {
	dealers      map[uuid.UUID]database.Dealer
	suppliers    map[uuid.UUID]database.Supplier
	products     map[uuid.UUID]database.Product
	taxes        map[uuid.UUID]database.Tax
	dealerTxns   []database.DealerTransaction
	supplierTxns []database.SupplierTransaction
	sales        []database.Sale
	saleDetails  []database.SaleDetail
}

func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		dealers:   make(map[uuid.UUID]database.Dealer, len(s.dealers)),
		suppliers: make(map[uuid.UUID]database.Supplier, len(s.suppliers)),
		products:  make(map[uuid.UUID]database.Product, len(s.products)),
		taxes:     make(map[uuid.UUID]database.Tax, len(s.taxes)),
	}
	for k, v := range s.dealers {
		c.dealers[k] = v
	}
	for k, v := range s.suppliers {
		c.suppliers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.taxes {
		c.taxes[k] = v
	}
	c.dealerTxns = append([]database.DealerTransaction(nil), s.dealerTxns...)
	c.supplierTxns = append([]database.SupplierTransaction(nil), s.supplierTxns...)
	c.sales = append([]database.Sale(nil), s.sales...)
	c.saleDetails = append([]database.SaleDetail(nil), s.saleDetails...)
	return c
}

// ledgerDB implements service.TxBeginner.
type ledgerDB struct {
	state *ledgerState
}

func newLedgerDB() *ledgerDB {
	return &ledgerDB{state: (&ledgerState{}).clone()}
}

func (db *ledgerDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{db: db, work: db.state.clone()}, nil
}

// fakeTx only implements Commit and Rollback; any query through it panics
// on the nil embedded Tx.
type fakeTx struct {
	pgx.Tx
	db   *ledgerDB
	work *ledgerState
	done bool
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.db.state = tx.work
	tx.done = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	if tx.done {
		return pgx.ErrTxClosed
	}
	tx.done = true
	return nil
}

// memLedger implements every store the accounting handlers and the ledger
// services need. Pool-bound values read the committed state.
type memLedger struct {
	db   *ledgerDB
	work *ledgerState
}

func (m *memLedger) st() *ledgerState {
	if m.work != nil {
		return m.work
	}
	return m.db.state
}

func (db *ledgerDB) store() *memLedger { return &memLedger{db: db} }

func (db *ledgerDB) ledgerStore(tx database.DBTX) service.LedgerStore {
	return &memLedger{work: tx.(*fakeTx).work}
}

func (db *ledgerDB) saleStore(tx database.DBTX) service.SaleStore {
	return &memLedger{work: tx.(*fakeTx).work}
}

func numeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}

// --- Parties ---

func (m *memLedger) CreateDealer(_ context.Context, arg database.CreatePartyParams) (database.Dealer, error) {
	d := database.Dealer{
		ID: uuid.New(), Name: arg.Name, ContactPerson: arg.ContactPerson, Phone: arg.Phone,
		Email: arg.Email, Address: arg.Address, Balance: numeric("0"), IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.st().dealers[d.ID] = d
	return d, nil
}

func (m *memLedger) GetDealer(_ context.Context, id uuid.UUID) (database.Dealer, error) {
	d, ok := m.st().dealers[id]
	if !ok || !d.IsActive {
		return database.Dealer{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memLedger) GetDealerForUpdate(ctx context.Context, id uuid.UUID) (database.Dealer, error) {
	return m.GetDealer(ctx, id)
}

func (m *memLedger) LockDealers(_ context.Context, ids []uuid.UUID) ([]database.Dealer, error) {
	var result []database.Dealer
	for _, id := range ids {
		if d, ok := m.st().dealers[id]; ok && d.IsActive {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID.String() < result[j].ID.String() })
	return result, nil
}

func (m *memLedger) ListDealers(_ context.Context, search pgtype.Text) ([]database.Dealer, error) {
	result := []database.Dealer{}
	for _, d := range m.st().dealers {
		if !d.IsActive {
			continue
		}
		if search.Valid && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(search.String)) {
			continue
		}
		result = append(result, d)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memLedger) UpdateDealer(_ context.Context, arg database.UpdatePartyParams) (database.Dealer, error) {
	d, ok := m.st().dealers[arg.ID]
	if !ok || !d.IsActive {
		return database.Dealer{}, pgx.ErrNoRows
	}
	d.Name, d.ContactPerson, d.Phone, d.Email, d.Address = arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address
	d.UpdatedAt = time.Now()
	m.st().dealers[d.ID] = d
	return d, nil
}

func (m *memLedger) UpdateDealerBalance(_ context.Context, arg database.UpdateBalanceParams) error {
	d := m.st().dealers[arg.ID]
	d.Balance = arg.Balance
	m.st().dealers[arg.ID] = d
	return nil
}

func (m *memLedger) SoftDeleteDealer(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	d, ok := m.st().dealers[id]
	if !ok || !d.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	d.IsActive = false
	m.st().dealers[id] = d
	return id, nil
}

func (m *memLedger) CreateSupplier(_ context.Context, arg database.CreatePartyParams) (database.Supplier, error) {
	s := database.Supplier{
		ID: uuid.New(), Name: arg.Name, ContactPerson: arg.ContactPerson, Phone: arg.Phone,
		Email: arg.Email, Address: arg.Address, Balance: numeric("0"), IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	m.st().suppliers[s.ID] = s
	return s, nil
}

func (m *memLedger) GetSupplier(_ context.Context, id uuid.UUID) (database.Supplier, error) {
	s, ok := m.st().suppliers[id]
	if !ok || !s.IsActive {
		return database.Supplier{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *memLedger) GetSupplierForUpdate(ctx context.Context, id uuid.UUID) (database.Supplier, error) {
	return m.GetSupplier(ctx, id)
}

func (m *memLedger) ListSuppliers(_ context.Context, search pgtype.Text) ([]database.Supplier, error) {
	result := []database.Supplier{}
	for _, s := range m.st().suppliers {
		if !s.IsActive {
			continue
		}
		if search.Valid && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(search.String)) {
			continue
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *memLedger) UpdateSupplier(_ context.Context, arg database.UpdatePartyParams) (database.Supplier, error) {
	s, ok := m.st().suppliers[arg.ID]
	if !ok || !s.IsActive {
		return database.Supplier{}, pgx.ErrNoRows
	}
	s.Name, s.ContactPerson, s.Phone, s.Email, s.Address = arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address
	s.UpdatedAt = time.Now()
	m.st().suppliers[s.ID] = s
	return s, nil
}

func (m *memLedger) UpdateSupplierBalance(_ context.Context, arg database.UpdateBalanceParams) error {
	s := m.st().suppliers[arg.ID]
	s.Balance = arg.Balance
	m.st().suppliers[arg.ID] = s
	return nil
}

func (m *memLedger) SoftDeleteSupplier(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	s, ok := m.st().suppliers[id]
	if !ok || !s.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	s.IsActive = false
	m.st().suppliers[id] = s
	return id, nil
}

// --- Ledger entries ---

func (m *memLedger) CreateDealerTransaction(_ context.Context, arg database.CreateLedgerTransactionParams) (database.DealerTransaction, error) {
	t := database.DealerTransaction{
		ID: uuid.New(), DealerID: arg.AccountID, SaleID: arg.SaleID, PreBalance: arg.PreBalance,
		AmountIn: arg.AmountIn, AmountOut: arg.AmountOut, Balance: arg.Balance, Details: arg.Details,
		CreatedAt: time.Now(),
	}
	m.st().dealerTxns = append(m.st().dealerTxns, t)
	return t, nil
}

func (m *memLedger) GetDealerTransaction(_ context.Context, id uuid.UUID) (database.DealerTransaction, error) {
	for _, t := range m.st().dealerTxns {
		if t.ID == id {
			return t, nil
		}
	}
	return database.DealerTransaction{}, pgx.ErrNoRows
}

func (m *memLedger) ListDealerTransactions(_ context.Context, dealerID pgtype.UUID) ([]database.DealerTransaction, error) {
	result := []database.DealerTransaction{}
	for _, t := range m.st().dealerTxns {
		if dealerID.Valid && t.DealerID != uuid.UUID(dealerID.Bytes) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (m *memLedger) CreateSupplierTransaction(_ context.Context, arg database.CreateLedgerTransactionParams) (database.SupplierTransaction, error) {
	t := database.SupplierTransaction{
		ID: uuid.New(), SupplierID: arg.AccountID, SaleID: arg.SaleID, PreBalance: arg.PreBalance,
		AmountIn: arg.AmountIn, AmountOut: arg.AmountOut, Balance: arg.Balance, Details: arg.Details,
		CreatedAt: time.Now(),
	}
	m.st().supplierTxns = append(m.st().supplierTxns, t)
	return t, nil
}

func (m *memLedger) GetSupplierTransaction(_ context.Context, id uuid.UUID) (database.SupplierTransaction, error) {
	for _, t := range m.st().supplierTxns {
		if t.ID == id {
			return t, nil
		}
	}
	return database.SupplierTransaction{}, pgx.ErrNoRows
}

func (m *memLedger) ListSupplierTransactions(_ context.Context, supplierID pgtype.UUID) ([]database.SupplierTransaction, error) {
	result := []database.SupplierTransaction{}
	for _, t := range m.st().supplierTxns {
		if supplierID.Valid && t.SupplierID != uuid.UUID(supplierID.Bytes) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

// --- Products and taxes ---

var errUniqueViolation = &pgconn.PgError{Code: "23505"}
var errForeignKeyViolation = &pgconn.PgError{Code: "23503"}

func (m *memLedger) CreateProduct(_ context.Context, arg database.CreateProductParams) (database.Product, error) {
	for _, p := range m.st().products {
		if p.Name == arg.Name {
			return database.Product{}, errUniqueViolation
		}
	}
	p := database.Product{ID: uuid.New(), Name: arg.Name, Description: arg.Description, Unit: arg.Unit, IsActive: true, CreatedAt: time.Now()}
	m.st().products[p.ID] = p
	return p, nil
}

func (m *memLedger) GetProduct(_ context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := m.st().products[id]
	if !ok || !p.IsActive {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memLedger) ListProducts(_ context.Context) ([]database.Product, error) {
	result := []database.Product{}
	for _, p := range m.st().products {
		if p.IsActive {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *memLedger) UpdateProduct(_ context.Context, arg database.UpdateProductParams) (database.Product, error) {
	p, ok := m.st().products[arg.ID]
	if !ok || !p.IsActive {
		return database.Product{}, pgx.ErrNoRows
	}
	p.Name, p.Description, p.Unit = arg.Name, arg.Description, arg.Unit
	m.st().products[p.ID] = p
	return p, nil
}

func (m *memLedger) SoftDeleteProduct(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	p, ok := m.st().products[id]
	if !ok || !p.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	p.IsActive = false
	m.st().products[id] = p
	return id, nil
}

func (m *memLedger) CreateTax(_ context.Context, arg database.CreateTaxParams) (database.Tax, error) {
	for _, t := range m.st().taxes {
		if t.TaxNumber == arg.TaxNumber {
			return database.Tax{}, errUniqueViolation
		}
	}
	t := database.Tax{ID: uuid.New(), Name: arg.Name, TaxNumber: arg.TaxNumber, Percentage: arg.Percentage, CreatedAt: time.Now()}
	m.st().taxes[t.ID] = t
	return t, nil
}

func (m *memLedger) GetTax(_ context.Context, id uuid.UUID) (database.Tax, error) {
	t, ok := m.st().taxes[id]
	if !ok {
		return database.Tax{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memLedger) ListTaxes(_ context.Context) ([]database.Tax, error) {
	result := []database.Tax{}
	for _, t := range m.st().taxes {
		result = append(result, t)
	}
	return result, nil
}

func (m *memLedger) UpdateTax(_ context.Context, arg database.UpdateTaxParams) (database.Tax, error) {
	t, ok := m.st().taxes[arg.ID]
	if !ok {
		return database.Tax{}, pgx.ErrNoRows
	}
	t.Name, t.TaxNumber, t.Percentage = arg.Name, arg.TaxNumber, arg.Percentage
	m.st().taxes[t.ID] = t
	return t, nil
}

func (m *memLedger) DeleteTax(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	if _, ok := m.st().taxes[id]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	for _, s := range m.st().sales {
		if s.TaxID.Valid && s.TaxID.Bytes == id {
			return uuid.Nil, errForeignKeyViolation
		}
	}
	delete(m.st().taxes, id)
	return id, nil
}

// --- Sales ---

func (m *memLedger) CreateSale(_ context.Context, arg database.CreateSaleParams) (database.Sale, error) {
	s := database.Sale{
		ID: uuid.New(), SupplierID: arg.SupplierID, ProductID: arg.ProductID, TaxID: arg.TaxID,
		VehicleNo: arg.VehicleNo, Weight: arg.Weight, NoOfBags: arg.NoOfBags, Rate: arg.Rate,
		GrossTotal: arg.GrossTotal, TaxAmount: arg.TaxAmount, Expenses: arg.Expenses, NetTotal: arg.NetTotal,
		SupplierPreBalance: numeric("0"), SupplierBalance: numeric("0"),
		Details: arg.Details, SaleDate: arg.SaleDate, CreatedBy: arg.CreatedBy, CreatedAt: time.Now(),
	}
	m.st().sales = append(m.st().sales, s)
	return s, nil
}

func (m *memLedger) SetSaleSupplierBalances(_ context.Context, arg database.SetSaleSupplierBalancesParams) (database.Sale, error) {
	for i, s := range m.st().sales {
		if s.ID == arg.ID {
			s.SupplierPreBalance = arg.SupplierPreBalance
			s.SupplierBalance = arg.SupplierBalance
			m.st().sales[i] = s
			return s, nil
		}
	}
	return database.Sale{}, pgx.ErrNoRows
}

func (m *memLedger) GetSale(_ context.Context, id uuid.UUID) (database.Sale, error) {
	for _, s := range m.st().sales {
		if s.ID == id {
			return s, nil
		}
	}
	return database.Sale{}, pgx.ErrNoRows
}

func (m *memLedger) ListSales(_ context.Context, arg database.ListSalesParams) ([]database.Sale, error) {
	result := []database.Sale{}
	for i := len(m.st().sales) - 1; i >= 0; i-- {
		s := m.st().sales[i]
		if arg.SupplierID.Valid && s.SupplierID != uuid.UUID(arg.SupplierID.Bytes) {
			continue
		}
		result = append(result, s)
	}
	if int(arg.Offset) >= len(result) {
		return []database.Sale{}, nil
	}
	result = result[arg.Offset:]
	if int(arg.Limit) < len(result) {
		result = result[:arg.Limit]
	}
	return result, nil
}

func (m *memLedger) CreateSaleDetail(_ context.Context, arg database.CreateSaleDetailParams) (database.SaleDetail, error) {
	d := database.SaleDetail{
		ID: uuid.New(), SaleID: arg.SaleID, DealerID: arg.DealerID, TaxID: arg.TaxID, NoOfBags: arg.NoOfBags,
		Weight: arg.Weight, Rate: arg.Rate, GrossTotal: arg.GrossTotal, TaxAmount: arg.TaxAmount, NetTotal: arg.NetTotal,
		DealerPreBalance: arg.DealerPreBalance, DealerBalance: arg.DealerBalance, CreatedAt: time.Now(),
	}
	m.st().saleDetails = append(m.st().saleDetails, d)
	return d, nil
}

func (m *memLedger) GetSaleDetail(_ context.Context, id uuid.UUID) (database.SaleDetail, error) {
	for _, d := range m.st().saleDetails {
		if d.ID == id {
			return d, nil
		}
	}
	return database.SaleDetail{}, pgx.ErrNoRows
}

func (m *memLedger) ListSaleDetails(_ context.Context, arg database.ListSaleDetailsParams) ([]database.SaleDetail, error) {
	result := []database.SaleDetail{}
	for _, d := range m.st().saleDetails {
		if arg.SaleID.Valid && d.SaleID != uuid.UUID(arg.SaleID.Bytes) {
			continue
		}
		if arg.DealerID.Valid && d.DealerID != uuid.UUID(arg.DealerID.Bytes) {
			continue
		}
		result = append(result, d)
	}
	return result, nil
}

// --- Dashboard aggregates ---

func (m *memLedger) GetPartyTotals(_ context.Context) (database.GetPartyTotalsRow, error) {
	var row database.GetPartyTotalsRow
	dealers, suppliers := decimal.Zero, decimal.Zero
	for _, d := range m.st().dealers {
		if d.IsActive {
			row.DealerCount++
			dealers = dealers.Add(toDecimal(d.Balance))
		}
	}
	for _, s := range m.st().suppliers {
		if s.IsActive {
			row.SupplierCount++
			suppliers = suppliers.Add(toDecimal(s.Balance))
		}
	}
	row.DealerBalance = dealers.String()
	row.SupplierBalance = suppliers.String()
	return row, nil
}

func (m *memLedger) GetSalesSummary(_ context.Context, arg database.GetSalesSummaryParams) (database.GetSalesSummaryRow, error) {
	var row database.GetSalesSummaryRow
	weight, gross, expenses, net := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, s := range m.st().sales {
		if s.SaleDate.Time.Before(arg.PeriodStart.Time) || !s.SaleDate.Time.Before(arg.PeriodEnd.Time) {
			continue
		}
		row.SaleCount++
		weight = weight.Add(toDecimal(s.Weight))
		gross = gross.Add(toDecimal(s.GrossTotal))
		expenses = expenses.Add(toDecimal(s.Expenses))
		net = net.Add(toDecimal(s.NetTotal))
	}
	row.Weight, row.GrossTotal, row.Expenses, row.NetTotal = weight.String(), gross.String(), expenses.String(), net.String()
	return row, nil
}

func toDecimal(n pgtype.Numeric) decimal.Decimal {
	v, err := n.Value()
	if err != nil || v == nil {
		return decimal.Zero
	}
	return decimal.RequireFromString(v.(string))
}

// --- Router and request helpers ---

// newLedgerRouter mounts every accounting handler over one in-memory database,
// wired to the real ledger and sale services.
func newLedgerRouter(db *ledgerDB) *chi.Mux {
	ledger := service.NewLedgerService(db, db.ledgerStore)
	sales := service.NewSaleService(db, db.saleStore, ledger, time.Second)
	store := db.store()

	master := handler.NewMasterHandler(store, ledger)
	saleHandler := handler.NewSalesHandler(store, sales)
	txns := handler.NewTransactionHandler(store, ledger)
	dashboard := handler.NewDashboardHandler(store)

	r := chi.NewRouter()
	r.Route("/dealer_management", master.RegisterDealerRoutes)
	r.Route("/supplier_management", master.RegisterSupplierRoutes)
	r.Route("/product_management", master.RegisterProductRoutes)
	r.Route("/tax_management", master.RegisterTaxRoutes)
	r.Route("/sale", saleHandler.RegisterSaleRoutes)
	r.Route("/sale_details", saleHandler.RegisterSaleDetailRoutes)
	r.Route("/dealer_transactions", txns.RegisterDealerTransactionRoutes)
	r.Route("/supplier_transactions", txns.RegisterSupplierTransactionRoutes)
	r.Route("/supplier_trnx", txns.RegisterSupplierStatementRoutes)
	r.Route("/ledger_dashboard", dashboard.RegisterRoutes)
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var v []interface{}
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// createParty posts a dealer or supplier and returns its id.
func createParty(t *testing.T, router http.Handler, path, name, balance string) string {
	t.Helper()
	rr := doRequest(t, router, "POST", path, map[string]string{"name": name, "balance": balance})
	expectStatus(t, rr, http.StatusCreated)
	return decodeObject(t, rr)["id"].(string)
}

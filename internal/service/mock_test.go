package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- In-memory database ---

// memState is one consistent view of the fake database. Each transaction
// works on a clone and Commit swaps it in, so a rolled back transaction
// leaves nothing behind.
type memState struct {
	dealers      map[uuid.UUID]database.Dealer
	suppliers    map[uuid.UUID]database.Supplier
	products     map[uuid.UUID]database.Product
	taxes        map[uuid.UUID]database.Tax
	academies    map[uuid.UUID]database.Academy
	users        []database.User
	dealerTxns   []database.DealerTransaction
	supplierTxns []database.SupplierTransaction
	sales        []database.Sale
	saleDetails  []database.SaleDetail
}

func newMemState() *memState {
	return &memState{
		dealers:   map[uuid.UUID]database.Dealer{},
		suppliers: map[uuid.UUID]database.Supplier{},
		products:  map[uuid.UUID]database.Product{},
		taxes:     map[uuid.UUID]database.Tax{},
		academies: map[uuid.UUID]database.Academy{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
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
	for k, v := range s.academies {
		c.academies[k] = v
	}
	c.users = append([]database.User(nil), s.users...)
	c.dealerTxns = append([]database.DealerTransaction(nil), s.dealerTxns...)
	c.supplierTxns = append([]database.SupplierTransaction(nil), s.supplierTxns...)
	c.sales = append([]database.Sale(nil), s.sales...)
	c.saleDetails = append([]database.SaleDetail(nil), s.saleDetails...)
	return c
}

// memDB implements TxBeginner.
type memDB struct {
	state     *memState
	beginErr  error
	commitErr error

	// failOn makes the named store method return errInjected.
	failOn string
}

var errInjected = errors.New("injected failure")

func newMemDB() *memDB {
	return &memDB{state: newMemState()}
}

func (m *memDB) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}
	return &mockTx{db: m, work: m.state.clone()}, nil
}

func (m *memDB) ledgerStore(db database.DBTX) LedgerStore { return m.store(db) }
func (m *memDB) saleStore(db database.DBTX) SaleStore     { return m.store(db) }
func (m *memDB) academyStore(db database.DBTX) AcademyStore {
	return m.store(db)
}

func (m *memDB) store(db database.DBTX) *memStore {
	tx := db.(*mockTx)
	return &memStore{st: tx.work, failOn: m.failOn}
}

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	db   *memDB
	work *memState
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.db.commitErr != nil {
		return m.db.commitErr
	}
	m.db.state = m.work
	return nil
}
func (m *mockTx) Rollback(ctx context.Context) error { return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// memStore implements LedgerStore, SaleStore and AcademyStore over a memState.
type memStore struct {
	st     *memState
	failOn string
}

func (s *memStore) fail(method string) error {
	if s.failOn == method {
		return errInjected
	}
	return nil
}

func (s *memStore) CreateDealer(ctx context.Context, arg database.CreatePartyParams) (database.Dealer, error) {
	if err := s.fail("CreateDealer"); err != nil {
		return database.Dealer{}, err
	}
	d := database.Dealer{
		ID: uuid.New(), Name: arg.Name, ContactPerson: arg.ContactPerson, Phone: arg.Phone,
		Email: arg.Email, Address: arg.Address, Balance: makeNumeric("0"), IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.st.dealers[d.ID] = d
	return d, nil
}

func (s *memStore) CreateSupplier(ctx context.Context, arg database.CreatePartyParams) (database.Supplier, error) {
	if err := s.fail("CreateSupplier"); err != nil {
		return database.Supplier{}, err
	}
	d := database.Supplier{
		ID: uuid.New(), Name: arg.Name, ContactPerson: arg.ContactPerson, Phone: arg.Phone,
		Email: arg.Email, Address: arg.Address, Balance: makeNumeric("0"), IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.st.suppliers[d.ID] = d
	return d, nil
}

func (s *memStore) GetDealerForUpdate(ctx context.Context, id uuid.UUID) (database.Dealer, error) {
	d, ok := s.st.dealers[id]
	if !ok || !d.IsActive {
		return database.Dealer{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *memStore) GetSupplierForUpdate(ctx context.Context, id uuid.UUID) (database.Supplier, error) {
	d, ok := s.st.suppliers[id]
	if !ok || !d.IsActive {
		return database.Supplier{}, pgx.ErrNoRows
	}
	return d, nil
}

func (s *memStore) CreateDealerTransaction(ctx context.Context, arg database.CreateLedgerTransactionParams) (database.DealerTransaction, error) {
	if err := s.fail("CreateDealerTransaction"); err != nil {
		return database.DealerTransaction{}, err
	}
	t := database.DealerTransaction{
		ID: uuid.New(), DealerID: arg.AccountID, SaleID: arg.SaleID, PreBalance: arg.PreBalance,
		AmountIn: arg.AmountIn, AmountOut: arg.AmountOut, Balance: arg.Balance, Details: arg.Details,
		CreatedAt: time.Now(),
	}
	s.st.dealerTxns = append(s.st.dealerTxns, t)
	return t, nil
}

func (s *memStore) CreateSupplierTransaction(ctx context.Context, arg database.CreateLedgerTransactionParams) (database.SupplierTransaction, error) {
	if err := s.fail("CreateSupplierTransaction"); err != nil {
		return database.SupplierTransaction{}, err
	}
	t := database.SupplierTransaction{
		ID: uuid.New(), SupplierID: arg.AccountID, SaleID: arg.SaleID, PreBalance: arg.PreBalance,
		AmountIn: arg.AmountIn, AmountOut: arg.AmountOut, Balance: arg.Balance, Details: arg.Details,
		CreatedAt: time.Now(),
	}
	s.st.supplierTxns = append(s.st.supplierTxns, t)
	return t, nil
}

func (s *memStore) UpdateDealerBalance(ctx context.Context, arg database.UpdateBalanceParams) error {
	if err := s.fail("UpdateDealerBalance"); err != nil {
		return err
	}
	d := s.st.dealers[arg.ID]
	d.Balance = arg.Balance
	s.st.dealers[arg.ID] = d
	return nil
}

func (s *memStore) UpdateSupplierBalance(ctx context.Context, arg database.UpdateBalanceParams) error {
	if err := s.fail("UpdateSupplierBalance"); err != nil {
		return err
	}
	d := s.st.suppliers[arg.ID]
	d.Balance = arg.Balance
	s.st.suppliers[arg.ID] = d
	return nil
}

func (s *memStore) GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error) {
	p, ok := s.st.products[id]
	if !ok {
		return database.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (s *memStore) GetTax(ctx context.Context, id uuid.UUID) (database.Tax, error) {
	t, ok := s.st.taxes[id]
	if !ok {
		return database.Tax{}, pgx.ErrNoRows
	}
	return t, nil
}

func (s *memStore) LockDealers(ctx context.Context, ids []uuid.UUID) ([]database.Dealer, error) {
	out := []database.Dealer{}
	for _, id := range ids {
		if d, ok := s.st.dealers[id]; ok && d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (s *memStore) CreateSale(ctx context.Context, arg database.CreateSaleParams) (database.Sale, error) {
	if err := s.fail("CreateSale"); err != nil {
		return database.Sale{}, err
	}
	sale := database.Sale{
		ID: uuid.New(), SupplierID: arg.SupplierID, ProductID: arg.ProductID, TaxID: arg.TaxID,
		VehicleNo: arg.VehicleNo, Weight: arg.Weight, NoOfBags: arg.NoOfBags, Rate: arg.Rate,
		GrossTotal: arg.GrossTotal, TaxAmount: arg.TaxAmount, Expenses: arg.Expenses, NetTotal: arg.NetTotal,
		SupplierPreBalance: makeNumeric("0"), SupplierBalance: makeNumeric("0"),
		Details: arg.Details, SaleDate: arg.SaleDate, CreatedBy: arg.CreatedBy, CreatedAt: time.Now(),
	}
	s.st.sales = append(s.st.sales, sale)
	return sale, nil
}

func (s *memStore) SetSaleSupplierBalances(ctx context.Context, arg database.SetSaleSupplierBalancesParams) (database.Sale, error) {
	for i := range s.st.sales {
		if s.st.sales[i].ID == arg.ID {
			s.st.sales[i].SupplierPreBalance = arg.SupplierPreBalance
			s.st.sales[i].SupplierBalance = arg.SupplierBalance
			return s.st.sales[i], nil
		}
	}
	return database.Sale{}, pgx.ErrNoRows
}

func (s *memStore) CreateSaleDetail(ctx context.Context, arg database.CreateSaleDetailParams) (database.SaleDetail, error) {
	if err := s.fail("CreateSaleDetail"); err != nil {
		return database.SaleDetail{}, err
	}
	d := database.SaleDetail{
		ID: uuid.New(), SaleID: arg.SaleID, DealerID: arg.DealerID, TaxID: arg.TaxID,
		NoOfBags: arg.NoOfBags, Weight: arg.Weight, Rate: arg.Rate, GrossTotal: arg.GrossTotal,
		TaxAmount: arg.TaxAmount, NetTotal: arg.NetTotal,
		DealerPreBalance: arg.DealerPreBalance, DealerBalance: arg.DealerBalance, CreatedAt: time.Now(),
	}
	s.st.saleDetails = append(s.st.saleDetails, d)
	return d, nil
}

func (s *memStore) GetAcademyForUpdate(ctx context.Context, id uuid.UUID) (database.Academy, error) {
	a, ok := s.st.academies[id]
	if !ok {
		return database.Academy{}, pgx.ErrNoRows
	}
	return a, nil
}

func (s *memStore) UpdateAcademyStatus(ctx context.Context, arg database.UpdateAcademyStatusParams) (database.Academy, error) {
	a, ok := s.st.academies[arg.ID]
	if !ok {
		return database.Academy{}, pgx.ErrNoRows
	}
	a.Status = arg.Status
	a.ReviewedBy = pgtype.UUID{Bytes: arg.ReviewedBy, Valid: true}
	a.ReviewedAt = pgtype.Timestamptz{Time: time.Now(), Valid: true}
	s.st.academies[arg.ID] = a
	return a, nil
}

func (s *memStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	if err := s.fail("CreateUser"); err != nil {
		return database.User{}, err
	}
	u := database.User{
		ID: uuid.New(), AcademyID: arg.AcademyID, Email: arg.Email, HashedPassword: arg.HashedPassword,
		FullName: arg.FullName, Role: arg.Role, Phone: arg.Phone, IsActive: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.st.users = append(s.st.users, u)
	return u, nil
}

// --- Fixtures ---

func (m *memDB) addDealer(balance string) uuid.UUID {
	id := uuid.New()
	m.state.dealers[id] = database.Dealer{ID: id, Name: "Dealer " + id.String()[:4], Balance: makeNumeric(balance), IsActive: true}
	return id
}

func (m *memDB) addSupplier(balance string) uuid.UUID {
	id := uuid.New()
	m.state.suppliers[id] = database.Supplier{ID: id, Name: "Supplier " + id.String()[:4], Balance: makeNumeric(balance), IsActive: true}
	return id
}

func (m *memDB) addProduct() uuid.UUID {
	id := uuid.New()
	m.state.products[id] = database.Product{ID: id, Name: "Wheat", Unit: "kg", IsActive: true}
	return id
}

func (m *memDB) addAcademy(status string) uuid.UUID {
	id := uuid.New()
	m.state.academies[id] = database.Academy{
		ID: id, Name: "North Stars FC", Email: "office@northstars.test", ContactPerson: "Sam Lee",
		PasswordHash: "$2a$10$storedhash", Status: status,
	}
	return id
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

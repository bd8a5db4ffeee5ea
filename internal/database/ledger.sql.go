package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const dealerColumns = `id, name, contact_person, phone, email, address, balance, is_active, created_at, updated_at`

func scanDealer(row scanner) (Dealer, error) {
	var i Dealer
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ContactPerson,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.Balance,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type CreatePartyParams struct {
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

type UpdatePartyParams struct {
	ID            uuid.UUID
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	Address       string
}

type UpdateBalanceParams struct {
	ID      uuid.UUID
	Balance pgtype.Numeric
}

const createDealer = `
INSERT INTO dealers (name, contact_person, phone, email, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + dealerColumns

func (q *Queries) CreateDealer(ctx context.Context, arg CreatePartyParams) (Dealer, error) {
	row := q.db.QueryRow(ctx, createDealer, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanDealer(row)
}

const getDealer = `SELECT ` + dealerColumns + ` FROM dealers WHERE id = $1 AND is_active = true`

func (q *Queries) GetDealer(ctx context.Context, id uuid.UUID) (Dealer, error) {
	return scanDealer(q.db.QueryRow(ctx, getDealer, id))
}

const getDealerForUpdate = getDealer + ` FOR UPDATE`

func (q *Queries) GetDealerForUpdate(ctx context.Context, id uuid.UUID) (Dealer, error) {
	return scanDealer(q.db.QueryRow(ctx, getDealerForUpdate, id))
}

// LockDealers row-locks every active dealer in ids in a stable order so that
// concurrent sales touching overlapping dealer sets cannot deadlock.
const lockDealers = `
SELECT ` + dealerColumns + ` FROM dealers
WHERE id = ANY($1::uuid[]) AND is_active = true
ORDER BY id
FOR UPDATE`

func (q *Queries) LockDealers(ctx context.Context, ids []uuid.UUID) ([]Dealer, error) {
	rows, err := q.db.Query(ctx, lockDealers, ids)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDealer)
}

const listDealers = `
SELECT ` + dealerColumns + ` FROM dealers
WHERE is_active = true AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%')
ORDER BY name`

func (q *Queries) ListDealers(ctx context.Context, search pgtype.Text) ([]Dealer, error) {
	rows, err := q.db.Query(ctx, listDealers, search)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDealer)
}

const updateDealer = `
UPDATE dealers
SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + dealerColumns

func (q *Queries) UpdateDealer(ctx context.Context, arg UpdatePartyParams) (Dealer, error) {
	row := q.db.QueryRow(ctx, updateDealer, arg.ID, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanDealer(row)
}

const updateDealerBalance = `UPDATE dealers SET balance = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateDealerBalance(ctx context.Context, arg UpdateBalanceParams) error {
	_, err := q.db.Exec(ctx, updateDealerBalance, arg.ID, arg.Balance)
	return err
}

const softDeleteDealer = `UPDATE dealers SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true RETURNING id`

func (q *Queries) SoftDeleteDealer(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteDealer, id).Scan(&out)
	return out, err
}

const supplierColumns = dealerColumns

func scanSupplier(row scanner) (Supplier, error) {
	var i Supplier
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.ContactPerson,
		&i.Phone,
		&i.Email,
		&i.Address,
		&i.Balance,
		&i.IsActive,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createSupplier = `
INSERT INTO suppliers (name, contact_person, phone, email, address)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + supplierColumns

func (q *Queries) CreateSupplier(ctx context.Context, arg CreatePartyParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, createSupplier, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

const getSupplier = `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1 AND is_active = true`

func (q *Queries) GetSupplier(ctx context.Context, id uuid.UUID) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, getSupplier, id))
}

const getSupplierForUpdate = getSupplier + ` FOR UPDATE`

func (q *Queries) GetSupplierForUpdate(ctx context.Context, id uuid.UUID) (Supplier, error) {
	return scanSupplier(q.db.QueryRow(ctx, getSupplierForUpdate, id))
}

const listSuppliers = `
SELECT ` + supplierColumns + ` FROM suppliers
WHERE is_active = true AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%')
ORDER BY name`

func (q *Queries) ListSuppliers(ctx context.Context, search pgtype.Text) ([]Supplier, error) {
	rows, err := q.db.Query(ctx, listSuppliers, search)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSupplier)
}

const updateSupplier = `
UPDATE suppliers
SET name = $2, contact_person = $3, phone = $4, email = $5, address = $6, updated_at = now()
WHERE id = $1 AND is_active = true
RETURNING ` + supplierColumns

func (q *Queries) UpdateSupplier(ctx context.Context, arg UpdatePartyParams) (Supplier, error) {
	row := q.db.QueryRow(ctx, updateSupplier, arg.ID, arg.Name, arg.ContactPerson, arg.Phone, arg.Email, arg.Address)
	return scanSupplier(row)
}

const updateSupplierBalance = `UPDATE suppliers SET balance = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateSupplierBalance(ctx context.Context, arg UpdateBalanceParams) error {
	_, err := q.db.Exec(ctx, updateSupplierBalance, arg.ID, arg.Balance)
	return err
}

const softDeleteSupplier = `UPDATE suppliers SET is_active = false, updated_at = now() WHERE id = $1 AND is_active = true RETURNING id`

func (q *Queries) SoftDeleteSupplier(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteSupplier, id).Scan(&out)
	return out, err
}

// --- ledger transactions ---

type CreateLedgerTransactionParams struct {
	AccountID  uuid.UUID
	SaleID     pgtype.UUID
	PreBalance pgtype.Numeric
	AmountIn   pgtype.Numeric
	AmountOut  pgtype.Numeric
	Balance    pgtype.Numeric
	Details    string
}

const dealerTransactionColumns = `id, dealer_id, sale_id, pre_balance, amount_in, amount_out, balance, details, created_at`

func scanDealerTransaction(row scanner) (DealerTransaction, error) {
	var i DealerTransaction
	err := row.Scan(
		&i.ID,
		&i.DealerID,
		&i.SaleID,
		&i.PreBalance,
		&i.AmountIn,
		&i.AmountOut,
		&i.Balance,
		&i.Details,
		&i.CreatedAt,
	)
	return i, err
}

const createDealerTransaction = `
INSERT INTO dealer_transactions (dealer_id, sale_id, pre_balance, amount_in, amount_out, balance, details)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + dealerTransactionColumns

func (q *Queries) CreateDealerTransaction(ctx context.Context, arg CreateLedgerTransactionParams) (DealerTransaction, error) {
	row := q.db.QueryRow(ctx, createDealerTransaction,
		arg.AccountID,
		arg.SaleID,
		arg.PreBalance,
		arg.AmountIn,
		arg.AmountOut,
		arg.Balance,
		arg.Details,
	)
	return scanDealerTransaction(row)
}

const getDealerTransaction = `SELECT ` + dealerTransactionColumns + ` FROM dealer_transactions WHERE id = $1`

func (q *Queries) GetDealerTransaction(ctx context.Context, id uuid.UUID) (DealerTransaction, error) {
	return scanDealerTransaction(q.db.QueryRow(ctx, getDealerTransaction, id))
}

const listDealerTransactions = `
SELECT ` + dealerTransactionColumns + ` FROM dealer_transactions
WHERE ($1::uuid IS NULL OR dealer_id = $1)
ORDER BY created_at, id`

func (q *Queries) ListDealerTransactions(ctx context.Context, dealerID pgtype.UUID) ([]DealerTransaction, error) {
	rows, err := q.db.Query(ctx, listDealerTransactions, dealerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanDealerTransaction)
}

const supplierTransactionColumns = `id, supplier_id, sale_id, pre_balance, amount_in, amount_out, balance, details, created_at`

func scanSupplierTransaction(row scanner) (SupplierTransaction, error) {
	var i SupplierTransaction
	err := row.Scan(
		&i.ID,
		&i.SupplierID,
		&i.SaleID,
		&i.PreBalance,
		&i.AmountIn,
		&i.AmountOut,
		&i.Balance,
		&i.Details,
		&i.CreatedAt,
	)
	return i, err
}

const createSupplierTransaction = `
INSERT INTO supplier_transactions (supplier_id, sale_id, pre_balance, amount_in, amount_out, balance, details)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + supplierTransactionColumns

func (q *Queries) CreateSupplierTransaction(ctx context.Context, arg CreateLedgerTransactionParams) (SupplierTransaction, error) {
	row := q.db.QueryRow(ctx, createSupplierTransaction,
		arg.AccountID,
		arg.SaleID,
		arg.PreBalance,
		arg.AmountIn,
		arg.AmountOut,
		arg.Balance,
		arg.Details,
	)
	return scanSupplierTransaction(row)
}

const getSupplierTransaction = `SELECT ` + supplierTransactionColumns + ` FROM supplier_transactions WHERE id = $1`

func (q *Queries) GetSupplierTransaction(ctx context.Context, id uuid.UUID) (SupplierTransaction, error) {
	return scanSupplierTransaction(q.db.QueryRow(ctx, getSupplierTransaction, id))
}

const listSupplierTransactions = `
SELECT ` + supplierTransactionColumns + ` FROM supplier_transactions
WHERE ($1::uuid IS NULL OR supplier_id = $1)
ORDER BY created_at, id`

func (q *Queries) ListSupplierTransactions(ctx context.Context, supplierID pgtype.UUID) ([]SupplierTransaction, error) {
	rows, err := q.db.Query(ctx, listSupplierTransactions, supplierID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSupplierTransaction)
}

// --- products ---

const productColumns = `id, name, description, unit, is_active, created_at`

func scanProduct(row scanner) (Product, error) {
	var i Product
	err := row.Scan(&i.ID, &i.Name, &i.Description, &i.Unit, &i.IsActive, &i.CreatedAt)
	return i, err
}

const createProduct = `
INSERT INTO products (name, description, unit) VALUES ($1, $2, $3)
RETURNING ` + productColumns

type CreateProductParams struct {
	Name        string
	Description string
	Unit        string
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, createProduct, arg.Name, arg.Description, arg.Unit))
}

const getProduct = `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND is_active = true`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const listProducts = `SELECT ` + productColumns + ` FROM products WHERE is_active = true ORDER BY name`

func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanProduct)
}

const updateProduct = `
UPDATE products SET name = $2, description = $3, unit = $4
WHERE id = $1 AND is_active = true
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID          uuid.UUID
	Name        string
	Description string
	Unit        string
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, updateProduct, arg.ID, arg.Name, arg.Description, arg.Unit))
}

const softDeleteProduct = `UPDATE products SET is_active = false WHERE id = $1 AND is_active = true RETURNING id`

func (q *Queries) SoftDeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteProduct, id).Scan(&out)
	return out, err
}

// --- taxes ---

const taxColumns = `id, name, tax_number, percentage, created_at`

func scanTax(row scanner) (Tax, error) {
	var i Tax
	err := row.Scan(&i.ID, &i.Name, &i.TaxNumber, &i.Percentage, &i.CreatedAt)
	return i, err
}

const createTax = `
INSERT INTO taxes (name, tax_number, percentage) VALUES ($1, $2, $3)
RETURNING ` + taxColumns

type CreateTaxParams struct {
	Name       string
	TaxNumber  string
	Percentage pgtype.Numeric
}

func (q *Queries) CreateTax(ctx context.Context, arg CreateTaxParams) (Tax, error) {
	return scanTax(q.db.QueryRow(ctx, createTax, arg.Name, arg.TaxNumber, arg.Percentage))
}

const getTax = `SELECT ` + taxColumns + ` FROM taxes WHERE id = $1`

func (q *Queries) GetTax(ctx context.Context, id uuid.UUID) (Tax, error) {
	return scanTax(q.db.QueryRow(ctx, getTax, id))
}

const listTaxes = `SELECT ` + taxColumns + ` FROM taxes ORDER BY name`

func (q *Queries) ListTaxes(ctx context.Context) ([]Tax, error) {
	rows, err := q.db.Query(ctx, listTaxes)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTax)
}

const updateTax = `
UPDATE taxes SET name = $2, tax_number = $3, percentage = $4
WHERE id = $1
RETURNING ` + taxColumns

type UpdateTaxParams struct {
	ID         uuid.UUID
	Name       string
	TaxNumber  string
	Percentage pgtype.Numeric
}

func (q *Queries) UpdateTax(ctx context.Context, arg UpdateTaxParams) (Tax, error) {
	return scanTax(q.db.QueryRow(ctx, updateTax, arg.ID, arg.Name, arg.TaxNumber, arg.Percentage))
}

const deleteTax = `DELETE FROM taxes WHERE id = $1 RETURNING id`

func (q *Queries) DeleteTax(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var out uuid.UUID
	err := q.db.QueryRow(ctx, deleteTax, id).Scan(&out)
	return out, err
}

const getPartyTotals = `
SELECT
    (SELECT COUNT(*) FROM dealers WHERE is_active = true),
    (SELECT COALESCE(SUM(balance), 0)::text FROM dealers WHERE is_active = true),
    (SELECT COUNT(*) FROM suppliers WHERE is_active = true),
    (SELECT COALESCE(SUM(balance), 0)::text FROM suppliers WHERE is_active = true)`

type GetPartyTotalsRow struct {
	DealerCount     int64
	DealerBalance   string
	SupplierCount   int64
	SupplierBalance string
}

func (q *Queries) GetPartyTotals(ctx context.Context) (GetPartyTotalsRow, error) {
	var i GetPartyTotalsRow
	err := q.db.QueryRow(ctx, getPartyTotals).Scan(
		&i.DealerCount,
		&i.DealerBalance,
		&i.SupplierCount,
		&i.SupplierBalance,
	)
	return i, err
}

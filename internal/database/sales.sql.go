package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const saleColumns = `id, supplier_id, product_id, tax_id, vehicle_no, weight, no_of_bags, rate, gross_total, tax_amount, expenses, net_total, supplier_pre_balance, supplier_balance, details, sale_date, created_by, created_at`

func scanSale(row scanner) (Sale, error) {
	var i Sale
	err := row.Scan(
		&i.ID,
		&i.SupplierID,
		&i.ProductID,
		&i.TaxID,
		&i.VehicleNo,
		&i.Weight,
		&i.NoOfBags,
		&i.Rate,
		&i.GrossTotal,
		&i.TaxAmount,
		&i.Expenses,
		&i.NetTotal,
		&i.SupplierPreBalance,
		&i.SupplierBalance,
		&i.Details,
		&i.SaleDate,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createSale = `
INSERT INTO sales (supplier_id, product_id, tax_id, vehicle_no, weight, no_of_bags, rate,
                   gross_total, tax_amount, expenses, net_total, details, sale_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13::date, CURRENT_DATE), $14)
RETURNING ` + saleColumns

type CreateSaleParams struct {
	SupplierID uuid.UUID
	ProductID  uuid.UUID
	TaxID      pgtype.UUID
	VehicleNo  string
	Weight     pgtype.Numeric
	NoOfBags   int32
	Rate       pgtype.Numeric
	GrossTotal pgtype.Numeric
	TaxAmount  pgtype.Numeric
	Expenses   pgtype.Numeric
	NetTotal   pgtype.Numeric
	Details    string
	SaleDate   pgtype.Date
	CreatedBy  pgtype.UUID
}

func (q *Queries) CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error) {
	row := q.db.QueryRow(ctx, createSale,
		arg.SupplierID,
		arg.ProductID,
		arg.TaxID,
		arg.VehicleNo,
		arg.Weight,
		arg.NoOfBags,
		arg.Rate,
		arg.GrossTotal,
		arg.TaxAmount,
		arg.Expenses,
		arg.NetTotal,
		arg.Details,
		arg.SaleDate,
		arg.CreatedBy,
	)
	return scanSale(row)
}

const setSaleSupplierBalances = `
UPDATE sales SET supplier_pre_balance = $2, supplier_balance = $3
WHERE id = $1
RETURNING ` + saleColumns

type SetSaleSupplierBalancesParams struct {
	ID                 uuid.UUID
	SupplierPreBalance pgtype.Numeric
	SupplierBalance    pgtype.Numeric
}

func (q *Queries) SetSaleSupplierBalances(ctx context.Context, arg SetSaleSupplierBalancesParams) (Sale, error) {
	row := q.db.QueryRow(ctx, setSaleSupplierBalances, arg.ID, arg.SupplierPreBalance, arg.SupplierBalance)
	return scanSale(row)
}

const getSale = `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

func (q *Queries) GetSale(ctx context.Context, id uuid.UUID) (Sale, error) {
	return scanSale(q.db.QueryRow(ctx, getSale, id))
}

const listSales = `
SELECT ` + saleColumns + ` FROM sales
WHERE ($1::uuid IS NULL OR supplier_id = $1)
ORDER BY sale_date DESC, created_at DESC
LIMIT $2 OFFSET $3`

type ListSalesParams struct {
	SupplierID pgtype.UUID
	Limit      int32
	Offset     int32
}

func (q *Queries) ListSales(ctx context.Context, arg ListSalesParams) ([]Sale, error) {
	rows, err := q.db.Query(ctx, listSales, arg.SupplierID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSale)
}

const saleDetailColumns = `id, sale_id, dealer_id, tax_id, no_of_bags, weight, rate, gross_total, tax_amount, net_total, dealer_pre_balance, dealer_balance, created_at`

func scanSaleDetail(row scanner) (SaleDetail, error) {
	var i SaleDetail
	err := row.Scan(
		&i.ID,
		&i.SaleID,
		&i.DealerID,
		&i.TaxID,
		&i.NoOfBags,
		&i.Weight,
		&i.Rate,
		&i.GrossTotal,
		&i.TaxAmount,
		&i.NetTotal,
		&i.DealerPreBalance,
		&i.DealerBalance,
		&i.CreatedAt,
	)
	return i, err
}

const createSaleDetail = `
INSERT INTO sale_details (sale_id, dealer_id, tax_id, no_of_bags, weight, rate, gross_total,
                          tax_amount, net_total, dealer_pre_balance, dealer_balance)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + saleDetailColumns

type CreateSaleDetailParams struct {
	SaleID           uuid.UUID
	DealerID         uuid.UUID
	TaxID            pgtype.UUID
	NoOfBags         int32
	Weight           pgtype.Numeric
	Rate             pgtype.Numeric
	GrossTotal       pgtype.Numeric
	TaxAmount        pgtype.Numeric
	NetTotal         pgtype.Numeric
	DealerPreBalance pgtype.Numeric
	DealerBalance    pgtype.Numeric
}

func (q *Queries) CreateSaleDetail(ctx context.Context, arg CreateSaleDetailParams) (SaleDetail, error) {
	row := q.db.QueryRow(ctx, createSaleDetail,
		arg.SaleID,
		arg.DealerID,
		arg.TaxID,
		arg.NoOfBags,
		arg.Weight,
		arg.Rate,
		arg.GrossTotal,
		arg.TaxAmount,
		arg.NetTotal,
		arg.DealerPreBalance,
		arg.DealerBalance,
	)
	return scanSaleDetail(row)
}

const getSaleDetail = `SELECT ` + saleDetailColumns + ` FROM sale_details WHERE id = $1`

func (q *Queries) GetSaleDetail(ctx context.Context, id uuid.UUID) (SaleDetail, error) {
	return scanSaleDetail(q.db.QueryRow(ctx, getSaleDetail, id))
}

const listSaleDetails = `
SELECT ` + saleDetailColumns + ` FROM sale_details
WHERE ($1::uuid IS NULL OR sale_id = $1)
  AND ($2::uuid IS NULL OR dealer_id = $2)
ORDER BY created_at, id`

type ListSaleDetailsParams struct {
	SaleID   pgtype.UUID
	DealerID pgtype.UUID
}

func (q *Queries) ListSaleDetails(ctx context.Context, arg ListSaleDetailsParams) ([]SaleDetail, error) {
	rows, err := q.db.Query(ctx, listSaleDetails, arg.SaleID, arg.DealerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSaleDetail)
}

const getSalesSummary = `
SELECT COUNT(*),
       COALESCE(SUM(weight), 0)::text,
       COALESCE(SUM(gross_total), 0)::text,
       COALESCE(SUM(expenses), 0)::text,
       COALESCE(SUM(net_total), 0)::text
FROM sales
WHERE sale_date >= $1 AND sale_date < $2`

type GetSalesSummaryParams struct {
	PeriodStart pgtype.Date
	PeriodEnd   pgtype.Date
}

type GetSalesSummaryRow struct {
	SaleCount  int64
	Weight     string
	GrossTotal string
	Expenses   string
	NetTotal   string
}

func (q *Queries) GetSalesSummary(ctx context.Context, arg GetSalesSummaryParams) (GetSalesSummaryRow, error) {
	var i GetSalesSummaryRow
	err := q.db.QueryRow(ctx, getSalesSummary, arg.PeriodStart, arg.PeriodEnd).Scan(
		&i.SaleCount,
		&i.Weight,
		&i.GrossTotal,
		&i.Expenses,
		&i.NetTotal,
	)
	return i, err
}

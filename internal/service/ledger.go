package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the ledger service.
var (
	ErrDealerNotFound   = errors.New("dealer not found")
	ErrSupplierNotFound = errors.New("supplier not found")
	ErrUnknownAccount   = errors.New("unknown account kind")
	ErrNegativeAmount   = errors.New("amount_in and amount_out must be non-negative")
	ErrEmptyMovement    = errors.New("amount_in or amount_out must be greater than zero")
	ErrNegativeOpening  = errors.New("opening balance must be non-negative")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ValidationError lists the request fields that failed a range or format check.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid fields: " + strings.Join(e.Fields, ", ")
}

// MaxAmount is the largest magnitude a NUMERIC(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// FitsAmount reports whether d is stored exactly by a NUMERIC(14,2) column.
func FitsAmount(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2)) && d.Abs().LessThanOrEqual(MaxAmount)
}

// LedgerStore defines the DB methods needed to move a dealer or supplier
// balance. Satisfied by *database.Queries (and its WithTx variant).
type LedgerStore interface {
	CreateDealer(ctx context.Context, arg database.CreatePartyParams) (database.Dealer, error)
	CreateSupplier(ctx context.Context, arg database.CreatePartyParams) (database.Supplier, error)
	GetDealerForUpdate(ctx context.Context, id uuid.UUID) (database.Dealer, error)
	GetSupplierForUpdate(ctx context.Context, id uuid.UUID) (database.Supplier, error)
	CreateDealerTransaction(ctx context.Context, arg database.CreateLedgerTransactionParams) (database.DealerTransaction, error)
	CreateSupplierTransaction(ctx context.Context, arg database.CreateLedgerTransactionParams) (database.SupplierTransaction, error)
	UpdateDealerBalance(ctx context.Context, arg database.UpdateBalanceParams) error
	UpdateSupplierBalance(ctx context.Context, arg database.UpdateBalanceParams) error
}

// NewLedgerStore creates a LedgerStore from a DBTX (pool or tx).
type NewLedgerStore func(db database.DBTX) LedgerStore

// Account identifies the dealer or supplier whose balance moves.
type Account struct {
	Kind string
	ID   uuid.UUID
}

// Movement is one signed change to an account balance.
type Movement struct {
	AmountIn  decimal.Decimal
	AmountOut decimal.Decimal
	Details   string
	SaleID    pgtype.UUID
}

// Validate checks a manually entered movement. Both amounts may be positive
// at once; a movement that changes nothing is rejected.
func (m Movement) Validate() error {
	if err := m.check(); err != nil {
		return err
	}
	if m.AmountIn.IsZero() && m.AmountOut.IsZero() {
		return ErrEmptyMovement
	}
	return nil
}

// check rejects negative amounts and amounts the ledger columns would round.
func (m Movement) check() error {
	if m.AmountIn.IsNegative() || m.AmountOut.IsNegative() {
		return ErrNegativeAmount
	}
	var bad []string
	if !FitsAmount(m.AmountIn) {
		bad = append(bad, "amount_in")
	}
	if !FitsAmount(m.AmountOut) {
		bad = append(bad, "amount_out")
	}
	if len(bad) > 0 {
		return &ValidationError{Fields: bad}
	}
	return nil
}

// Entry is the ledger row written by Apply.
type Entry struct {
	ID         uuid.UUID
	Account    Account
	SaleID     pgtype.UUID
	PreBalance decimal.Decimal
	AmountIn   decimal.Decimal
	AmountOut  decimal.Decimal
	Balance    decimal.Decimal
	Details    string
	CreatedAt  time.Time
}

// LedgerService is the only code path that changes a dealer or supplier balance.
type LedgerService struct {
	pool     TxBeginner
	newStore NewLedgerStore
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(pool TxBeginner, newStore NewLedgerStore) *LedgerService {
	return &LedgerService{pool: pool, newStore: newStore}
}

// Apply moves the balance of acct by mv using store, which must be bound to
// an open transaction. The current balance is locked and re-read on every
// call, so repeated movements on one account inside a transaction chain.
func (s *LedgerService) Apply(ctx context.Context, store LedgerStore, acct Account, mv Movement) (Entry, error) {
	if err := mv.check(); err != nil {
		return Entry{}, err
	}

	switch acct.Kind {
	case enum.AccountDealer:
		dealer, err := store.GetDealerForUpdate(ctx, acct.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Entry{}, ErrDealerNotFound
			}
			return Entry{}, fmt.Errorf("lock dealer: %w", err)
		}
		params, err := ledgerParams(acct.ID, numericToDecimal(dealer.Balance), mv)
		if err != nil {
			return Entry{}, err
		}
		txn, err := store.CreateDealerTransaction(ctx, params)
		if err != nil {
			return Entry{}, fmt.Errorf("create dealer transaction: %w", err)
		}
		if err := store.UpdateDealerBalance(ctx, database.UpdateBalanceParams{ID: acct.ID, Balance: params.Balance}); err != nil {
			return Entry{}, fmt.Errorf("update dealer balance: %w", err)
		}
		return DealerEntry(txn), nil

	case enum.AccountSupplier:
		supplier, err := store.GetSupplierForUpdate(ctx, acct.ID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return Entry{}, ErrSupplierNotFound
			}
			return Entry{}, fmt.Errorf("lock supplier: %w", err)
		}
		params, err := ledgerParams(acct.ID, numericToDecimal(supplier.Balance), mv)
		if err != nil {
			return Entry{}, err
		}
		txn, err := store.CreateSupplierTransaction(ctx, params)
		if err != nil {
			return Entry{}, fmt.Errorf("create supplier transaction: %w", err)
		}
		if err := store.UpdateSupplierBalance(ctx, database.UpdateBalanceParams{ID: acct.ID, Balance: params.Balance}); err != nil {
			return Entry{}, fmt.Errorf("update supplier balance: %w", err)
		}
		return SupplierEntry(txn), nil
	}
	return Entry{}, ErrUnknownAccount
}

// RecordTransaction validates mv and applies it in its own transaction.
func (s *LedgerService) RecordTransaction(ctx context.Context, acct Account, mv Movement) (Entry, error) {
	if err := mv.Validate(); err != nil {
		return Entry{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Entry{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	entry, err := s.Apply(ctx, s.newStore(tx), acct, mv)
	if err != nil {
		return Entry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Entry{}, fmt.Errorf("commit tx: %w", err)
	}
	return entry, nil
}

// CreateDealer inserts a dealer at zero and books a non-zero opening balance
// as its first ledger entry.
func (s *LedgerService) CreateDealer(ctx context.Context, arg database.CreatePartyParams, opening decimal.Decimal) (database.Dealer, error) {
	if opening.IsNegative() {
		return database.Dealer{}, ErrNegativeOpening
	}
	if !FitsAmount(opening) {
		return database.Dealer{}, &ValidationError{Fields: []string{"balance"}}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Dealer{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	dealer, err := store.CreateDealer(ctx, arg)
	if err != nil {
		return database.Dealer{}, fmt.Errorf("create dealer: %w", err)
	}
	if opening.IsPositive() {
		entry, err := s.Apply(ctx, store, Account{Kind: enum.AccountDealer, ID: dealer.ID}, Movement{AmountIn: opening, Details: "Opening balance"})
		if err != nil {
			return database.Dealer{}, err
		}
		dealer.Balance = decimalToNumeric(entry.Balance)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Dealer{}, fmt.Errorf("commit tx: %w", err)
	}
	return dealer, nil
}

// CreateSupplier is CreateDealer for suppliers.
func (s *LedgerService) CreateSupplier(ctx context.Context, arg database.CreatePartyParams, opening decimal.Decimal) (database.Supplier, error) {
	if opening.IsNegative() {
		return database.Supplier{}, ErrNegativeOpening
	}
	if !FitsAmount(opening) {
		return database.Supplier{}, &ValidationError{Fields: []string{"balance"}}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Supplier{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	supplier, err := store.CreateSupplier(ctx, arg)
	if err != nil {
		return database.Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	if opening.IsPositive() {
		entry, err := s.Apply(ctx, store, Account{Kind: enum.AccountSupplier, ID: supplier.ID}, Movement{AmountIn: opening, Details: "Opening balance"})
		if err != nil {
			return database.Supplier{}, err
		}
		supplier.Balance = decimalToNumeric(entry.Balance)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Supplier{}, fmt.Errorf("commit tx: %w", err)
	}
	return supplier, nil
}

// DealerEntry converts a stored dealer transaction to an Entry.
func DealerEntry(t database.DealerTransaction) Entry {
	return Entry{
		ID:         t.ID,
		Account:    Account{Kind: enum.AccountDealer, ID: t.DealerID},
		SaleID:     t.SaleID,
		PreBalance: numericToDecimal(t.PreBalance),
		AmountIn:   numericToDecimal(t.AmountIn),
		AmountOut:  numericToDecimal(t.AmountOut),
		Balance:    numericToDecimal(t.Balance),
		Details:    t.Details,
		CreatedAt:  t.CreatedAt,
	}
}

// SupplierEntry converts a stored supplier transaction to an Entry.
func SupplierEntry(t database.SupplierTransaction) Entry {
	return Entry{
		ID:         t.ID,
		Account:    Account{Kind: enum.AccountSupplier, ID: t.SupplierID},
		SaleID:     t.SaleID,
		PreBalance: numericToDecimal(t.PreBalance),
		AmountIn:   numericToDecimal(t.AmountIn),
		AmountOut:  numericToDecimal(t.AmountOut),
		Balance:    numericToDecimal(t.Balance),
		Details:    t.Details,
		CreatedAt:  t.CreatedAt,
	}
}

func ledgerParams(id uuid.UUID, pre decimal.Decimal, mv Movement) (database.CreateLedgerTransactionParams, error) {
	balance := pre.Add(mv.AmountIn).Sub(mv.AmountOut)
	if !FitsAmount(balance) {
		return database.CreateLedgerTransactionParams{}, &ValidationError{Fields: []string{"balance"}}
	}
	return database.CreateLedgerTransactionParams{
		AccountID:  id,
		SaleID:     mv.SaleID,
		PreBalance: decimalToNumeric(pre),
		AmountIn:   decimalToNumeric(mv.AmountIn),
		AmountOut:  decimalToNumeric(mv.AmountOut),
		Balance:    decimalToNumeric(balance),
		Details:    mv.Details,
	}, nil
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
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

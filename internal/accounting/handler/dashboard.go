package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/ascend-academy/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// --- Store interface ---

// DashboardStore defines the database methods needed by the ledger dashboard.
type DashboardStore interface {
	GetPartyTotals(ctx context.Context) (database.GetPartyTotalsRow, error)
	GetSalesSummary(ctx context.Context, arg database.GetSalesSummaryParams) (database.GetSalesSummaryRow, error)
	ListSales(ctx context.Context, arg database.ListSalesParams) ([]database.Sale, error)
}

// --- DashboardHandler ---

// DashboardHandler serves the ledger overview.
type DashboardHandler struct {
	store DashboardStore
	now   func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store, now: time.Now}
}

// RegisterRoutes registers dashboard endpoints.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.GetDashboard)
}

// --- Response types ---

type dashboardResponse struct {
	Dealers      partyTotalsResponse  `json:"dealers"`
	Suppliers    partyTotalsResponse  `json:"suppliers"`
	MonthlySales salesSummaryResponse `json:"monthly_sales"`
	RecentSales  []saleResponse       `json:"recent_sales"`
}

type partyTotalsResponse struct {
	Count   int64  `json:"count"`
	Balance string `json:"balance"`
}

type salesSummaryResponse struct {
	Period     string `json:"period"`
	Count      int64  `json:"count"`
	Weight     string `json:"weight"`
	GrossTotal string `json:"gross_total"`
	Expenses   string `json:"expenses"`
	NetTotal   string `json:"net_total"`
}

// --- Handler ---

// GetDashboard returns outstanding dealer and supplier balances, the sales
// summary for ?month=YYYY-MM (default: the current month, UTC) and the ten
// latest sales.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	monthStart, ok := parseMonth(r.URL.Query().Get("month"), h.now().UTC())
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "month must be YYYY-MM"})
		return
	}
	monthEnd := monthStart.AddDate(0, 1, 0)

	totals, err := h.store.GetPartyTotals(ctx)
	if err != nil {
		internalError(w, "get party totals", err)
		return
	}

	summary, err := h.store.GetSalesSummary(ctx, database.GetSalesSummaryParams{
		PeriodStart: pgtype.Date{Time: monthStart, Valid: true},
		PeriodEnd:   pgtype.Date{Time: monthEnd, Valid: true},
	})
	if err != nil {
		internalError(w, "get sales summary", err)
		return
	}

	recent, err := h.store.ListSales(ctx, database.ListSalesParams{Limit: 10})
	if err != nil {
		internalError(w, "get recent sales", err)
		return
	}

	resp := dashboardResponse{
		Dealers:      partyTotalsResponse{Count: totals.DealerCount, Balance: fixed(totals.DealerBalance)},
		Suppliers:    partyTotalsResponse{Count: totals.SupplierCount, Balance: fixed(totals.SupplierBalance)},
		MonthlySales: buildSalesSummary(summary, monthStart.Format("2006-01")),
		RecentSales:  make([]saleResponse, len(recent)),
	}
	for i, s := range recent {
		resp.RecentSales[i] = toSaleResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Response builders ---

func parseMonth(s string, now time.Time) (time.Time, bool) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// fixed renders an aggregate returned as text with 2 decimal places.
func fixed(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero.StringFixed(2)
	}
	return d.StringFixed(2)
}

func buildSalesSummary(row database.GetSalesSummaryRow, period string) salesSummaryResponse {
	return salesSummaryResponse{
		Period:     period,
		Count:      row.SaleCount,
		Weight:     fixed(row.Weight),
		GrossTotal: fixed(row.GrossTotal),
		Expenses:   fixed(row.Expenses),
		NetTotal:   fixed(row.NetTotal),
	}
}

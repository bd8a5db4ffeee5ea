package router

import (
	"log"
	"net/http"

	accthandler "github.com/ascend-academy/api/internal/accounting/handler"
	"github.com/ascend-academy/api/internal/analysis"
	"github.com/ascend-academy/api/internal/config"
	"github.com/ascend-academy/api/internal/database"
	"github.com/ascend-academy/api/internal/handler"
	mw "github.com/ascend-academy/api/internal/middleware"
	"github.com/ascend-academy/api/internal/service"
	"github.com/ascend-academy/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Every authenticated resource is guarded by the policy table.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, queue *analysis.Queue) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	policy := mw.DefaultPolicy()

	// Services
	academyService := service.NewAcademyService(pool, func(db database.DBTX) service.AcademyStore {
		return database.New(db)
	})
	ledgerService := service.NewLedgerService(pool, func(db database.DBTX) service.LedgerStore {
		return database.New(db)
	})
	saleService := service.NewSaleService(pool, func(db database.DBTX) service.SaleStore {
		return database.New(db)
	}, ledgerService, cfg.SaleTxTimeout)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret, cfg.TokenTTL)
	authHandler.RegisterRoutes(r)

	academyHandler := handler.NewAcademyHandler(queries, academyService)
	academyHandler.RegisterRoutes(r)

	if cfg.EnableBootstrap {
		handler.NewBootstrapHandler(queries, pool).RegisterRoutes(r)
		log.Println("WARNING: bootstrap endpoints are enabled")
	}

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		guarded := func(path, resource string, register func(chi.Router)) {
			r.Route(path, func(r chi.Router) {
				r.Use(mw.Authorize(policy, resource))
				register(r)
			})
		}

		guarded("/admin-approvals", mw.ResourceApprovals, academyHandler.RegisterApprovalRoutes)
		guarded("/users", mw.ResourceUsers, handler.NewUserHandler(queries).RegisterRoutes)
		guarded("/players_management", mw.ResourcePlayers, handler.NewPlayerHandler(queries).RegisterRoutes)
		guarded("/event_management", mw.ResourceEvents, handler.NewEventHandler(queries).RegisterRoutes)
		guarded("/attandance_management", mw.ResourceAttendance, handler.NewAttendanceHandler(queries).RegisterRoutes)
		guarded("/training_programs", mw.ResourceTraining, handler.NewTrainingHandler(queries).RegisterRoutes)
		guarded("/messaging", mw.ResourceMessaging, handler.NewMessagingHandler(queries, hub).RegisterRoutes)

		guarded("/ai-insights/video-analysis", mw.ResourceVideoAnalysis, handler.NewVideoAnalysisHandler(queries, queue).RegisterRoutes)
		guarded("/ai-insights", mw.ResourceInsights, handler.NewInsightHandler(queries).RegisterRoutes)
		guarded("/player-comparison", mw.ResourceComparisons, handler.NewComparisonHandler(queries).RegisterRoutes)

		// Ledger
		masterHandler := accthandler.NewMasterHandler(queries, ledgerService)
		salesHandler := accthandler.NewSalesHandler(queries, saleService)
		transactionHandler := accthandler.NewTransactionHandler(queries, ledgerService)
		dashboardHandler := accthandler.NewDashboardHandler(queries)

		guarded("/dealer_management", mw.ResourceLedger, masterHandler.RegisterDealerRoutes)
		guarded("/supplier_management", mw.ResourceLedger, masterHandler.RegisterSupplierRoutes)
		guarded("/product_management", mw.ResourceLedger, masterHandler.RegisterProductRoutes)
		guarded("/tax_management", mw.ResourceLedger, masterHandler.RegisterTaxRoutes)
		guarded("/sale", mw.ResourceLedger, salesHandler.RegisterSaleRoutes)
		guarded("/sale_details", mw.ResourceLedger, salesHandler.RegisterSaleDetailRoutes)
		guarded("/dealer_transactions", mw.ResourceLedger, transactionHandler.RegisterDealerTransactionRoutes)
		guarded("/supplier_transactions", mw.ResourceLedger, transactionHandler.RegisterSupplierTransactionRoutes)
		guarded("/supplier_trnx", mw.ResourceLedger, transactionHandler.RegisterSupplierStatementRoutes)
		guarded("/ledger_dashboard", mw.ResourceLedger, dashboardHandler.RegisterRoutes)
	})

	log.Println("Router initialized with all handlers")
	return r
}

package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/tablepos/internal/catalog"
	"github.com/kiwari-pos/tablepos/internal/config"
	"github.com/kiwari-pos/tablepos/internal/database"
	"github.com/kiwari-pos/tablepos/internal/enum"
	"github.com/kiwari-pos/tablepos/internal/handler"
	"github.com/kiwari-pos/tablepos/internal/logger"
	"github.com/kiwari-pos/tablepos/internal/metrics"
	mw "github.com/kiwari-pos/tablepos/internal/middleware"
	"github.com/kiwari-pos/tablepos/internal/service"
	"github.com/kiwari-pos/tablepos/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the data service routes are built from.
// Cache, Logger, Metrics and Gatherer may be nil.
type Deps struct {
	Queries  *database.Queries
	Pool     *pgxpool.Pool
	Hub      *ws.Hub
	Cache    catalog.Cache
	Logger   *logger.Logger
	Metrics  *metrics.Server
	Gatherer prometheus.Gatherer
}

// New creates a Chi router with all application routes wired up.
// Applies authentication, profile binding, and role-based middleware as needed.
func New(cfg *config.Config, deps Deps) chi.Router {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	queries := deps.Queries

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(log))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.App.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", health(deps.Pool))
	r.Method(http.MethodGet, "/metrics", metricsHandler(deps.Gatherer))

	authHandler := handler.NewAuthHandler(queries, cfg.JWT, log)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/kitchen", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(deps.Hub, cfg.JWT.Secret, w, r)
	})

	// Services own the write transactions; handlers read through queries.
	shiftService := service.NewShiftService(deps.Pool, func(db database.DBTX) service.ShiftStore {
		return database.New(db)
	}, deps.Metrics)
	kitchenService := service.NewKitchenService(deps.Pool, func(db database.DBTX) service.KitchenStore {
		return database.New(db)
	}, deps.Metrics)
	tableService := service.NewTableService(deps.Pool, func(db database.DBTX) service.TableStore {
		return database.New(db)
	}, deps.Metrics)
	invoiceService := service.NewInvoiceService(deps.Pool, func(db database.DBTX) service.InvoiceStore {
		return database.New(db)
	}, deps.Metrics)
	items := catalog.New(queries, deps.Cache, log, deps.Metrics)

	var pub handler.Publisher
	if deps.Hub != nil {
		pub = deps.Hub
	}

	// Protected routes (require a user bound to a POS profile)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWT.Secret))
		r.Use(mw.RequireProfile)

		handler.NewSessionHandler(shiftService, log).RegisterRoutes(r)

		tableHandler := handler.NewTableHandler(queries, tableService, kitchenService, pub, log)
		r.Route("/tables", tableHandler.RegisterRoutes)

		itemHandler := handler.NewItemHandler(items, queries, log)
		r.Route("/items", itemHandler.RegisterRoutes)

		customerHandler := handler.NewCustomerHandler(queries, log)
		r.Route("/customers", customerHandler.RegisterRoutes)

		// Money-handling routes are closed to kitchen accounts.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleManager, enum.UserRoleCashier))

			shiftHandler := handler.NewShiftHandler(shiftService, log)
			r.Route("/shifts", shiftHandler.RegisterRoutes)

			invoiceHandler := handler.NewInvoiceHandler(queries, invoiceService, pub, log)
			r.Route("/invoices", invoiceHandler.RegisterRoutes)
		})
	})

	log.Info(context.Background(), "router initialized")
	return r
}

func health(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"degraded","database":"unreachable"}`))
				return
			}
		}
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

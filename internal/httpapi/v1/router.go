// Package v1 wires the HTTP surface of the finance service.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tinoosan/finance/internal/service/account"
	"github.com/tinoosan/finance/internal/service/budget"
	"github.com/tinoosan/finance/internal/service/spend"
	"github.com/tinoosan/finance/internal/service/stats"
	"github.com/tinoosan/finance/internal/service/transaction"
)

// Options configures the server beyond its store.
type Options struct {
	// Location is the reporting timezone used for budget windows, daily
	// grouping and range shorthands. UTC when nil.
	Location *time.Location
	Auth     AuthConfig
	// Now is the clock used to resolve range shorthands. time.Now when nil.
	Now func() time.Time
}

// Server wires handlers and middleware using Chi.
type Server struct {
	txSvc      transaction.Service
	budgetSvc  budget.Service
	statsSvc   stats.Service
	accountSvc account.Service
	categories CategoryReader
	ready      ReadyChecker
	loc        *time.Location
	now        func() time.Time
	log        *slog.Logger
	rt         *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
// The logger is used by request/response logging and panic recovery.
func New(store Store, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	r.Use(otelhttp.NewMiddleware("finance.http"))
	if auth := authJWT(opts.Auth); auth != nil {
		r.Use(auth)
	}

	spendSvc := spend.New(store, loc)
	s := &Server{
		txSvc:      transaction.New(store, logger),
		budgetSvc:  budget.New(store, spendSvc, logger),
		statsSvc:   stats.New(store, loc),
		accountSvc: account.New(store, store),
		categories: store,
		ready:      store,
		loc:        loc,
		now:        now,
		log:        logger,
		rt:         r,
	}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

// routes declares the public HTTP API endpoints and attaches any per-route middleware.
func (s *Server) routes() {
	// Transactions
	s.rt.With(s.validateTransactionBody()).Post("/v1/transactions", s.postTransaction)
	s.rt.With(s.validateListTransactions()).Get("/v1/transactions", s.listTransactions)
	s.rt.Get("/v1/transactions/{id}", s.getTransaction)
	s.rt.With(s.validateTransactionBody()).Put("/v1/transactions/{id}", s.putTransaction)
	s.rt.Delete("/v1/transactions/{id}", s.deleteTransaction)
	// Budgets
	s.rt.With(s.validateBudgetBody()).Post("/v1/budgets", s.postBudget)
	s.rt.Post("/v1/budgets/validate", s.validateBudgetPeriod)
	s.rt.Get("/v1/budgets", s.listBudgets)
	s.rt.Get("/v1/budgets/{id}", s.getBudget)
	s.rt.With(s.validateBudgetBody()).Put("/v1/budgets/{id}", s.putBudget)
	s.rt.Delete("/v1/budgets/{id}", s.deleteBudget)
	// Statistics
	s.rt.With(s.validateStatsRange()).Get("/v1/stats/overview", s.statsOverview)
	s.rt.With(s.validateStatsRange()).Get("/v1/stats/categories", s.statsCategories)
	s.rt.With(s.validateStatsRange()).Get("/v1/stats/daily", s.statsDaily)
	// Accounts
	s.rt.Post("/v1/accounts", s.postAccount)
	s.rt.Get("/v1/accounts", s.listAccounts)
	s.rt.Get("/v1/accounts/{id}", s.getAccount)
	s.rt.Get("/v1/accounts/{id}/audit", s.auditAccount)
	s.rt.Patch("/v1/accounts/{id}", s.updateAccount)
	s.rt.Delete("/v1/accounts/{id}", s.deactivateAccount)
	// Categories
	s.rt.Get("/v1/categories", s.listCategories)
	s.rt.Get("/v1/categories/defaults", s.defaultCategories)
	// Health and metrics (unversioned)
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())
}

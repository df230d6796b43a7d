package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerloom/ledgerloom/internal/coa"
	"github.com/ledgerloom/ledgerloom/internal/engagement"
	"github.com/ledgerloom/ledgerloom/internal/observability"
	"github.com/ledgerloom/ledgerloom/internal/statement"
	"github.com/ledgerloom/ledgerloom/internal/trialbalance"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AccountsHandler     *coa.Handler
	EngagementHandler   *engagement.Handler
	TrialBalanceHandler *trialbalance.Handler
	StatementHandler    *statement.Handler
	Metrics             *observability.Metrics
}

// NewRouter constructs the chi.Router for the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/accounts", params.AccountsHandler.MountRoutes)
	r.Route("/works", func(r chi.Router) {
		params.EngagementHandler.MountRoutes(r)
		params.TrialBalanceHandler.MountRoutes(r)
		params.StatementHandler.MountWorkRoutes(r)
	})
	r.Route("/report-templates", params.StatementHandler.MountTemplateRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// Package app wires the command, saga, projection and query components on
// top of the infrastructure dependencies the initializer provides.
package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/amirasaad/payproc/pkg/cache"
	"github.com/amirasaad/payproc/pkg/config"
	"github.com/amirasaad/payproc/pkg/coordinator"
	"github.com/amirasaad/payproc/pkg/eventbus"
	"github.com/amirasaad/payproc/pkg/eventstore"
	"github.com/amirasaad/payproc/pkg/projection"
	"github.com/amirasaad/payproc/pkg/provider"
	"github.com/amirasaad/payproc/pkg/query"
	"github.com/amirasaad/payproc/pkg/repository"
	repotransaction "github.com/amirasaad/payproc/pkg/repository/transaction"
	"github.com/amirasaad/payproc/pkg/saga"
)

// Deps holds the infrastructure dependencies the application is built
// from. DB is nil when running fully in memory.
type Deps struct {
	DB       *gorm.DB
	Store    eventstore.Store
	ReadRepo repotransaction.Repository
	Cache    cache.TransactionCache
	Gateway  provider.PaymentGateway
	EventBus eventbus.Bus
	Logger   *slog.Logger
}

// App is the composed application.
type App struct {
	Deps        *Deps
	Config      *config.App
	Coordinator *coordinator.Coordinator
	Query       *query.Service
	Projector   *projection.Projector
}

// New builds the application and registers the projector and saga on the
// event bus. The projector registers first: the saga reads the projected
// row to recover the payment amount, so for any event delivered to both
// the row must be written before the saga reacts.
func New(deps *Deps, cfg *config.App) *App {
	repo := repository.NewAggregateRepository(deps.Store, deps.Logger)

	coord := coordinator.New(
		repo,
		deps.EventBus,
		deps.Gateway,
		coordinator.Config{
			MaxRetries:           cfg.Coordinator.MaxRetries,
			RetryInitialInterval: cfg.Coordinator.RetryInitialInterval,
			MaxConcurrent:        cfg.Coordinator.MaxConcurrent,
		},
		deps.Logger,
	)
	qs := query.New(deps.ReadRepo, deps.Cache, cfg.Cache.TTL, deps.Logger)
	proj := projection.New(deps.ReadRepo, deps.Cache, deps.Logger)

	proj.Register(deps.EventBus)
	saga.Register(deps.EventBus, coord, qs, deps.Gateway.Name(), deps.Logger)

	return &App{
		Deps:        deps,
		Config:      cfg,
		Coordinator: coord,
		Query:       qs,
		Projector:   proj,
	}
}

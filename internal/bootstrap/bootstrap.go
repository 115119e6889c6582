// Package bootstrap arma el grafo de dependencias compartido por la API y la CLI.
package bootstrap

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/application/dbtools"
	"github.com/jhoicas/stoir-api/internal/application/inventory"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlrepo"
	"github.com/jhoicas/stoir-api/internal/infrastructure/storage"
	"github.com/jhoicas/stoir-api/pkg/config"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

// App almacenamiento abierto más los servicios que lo usan.
type App struct {
	Backend *storage.Backend
	Engine  *inventory.LedgerEngine
	DBTools *dbtools.Service
}

// Build abre el almacenamiento configurado y construye motor y herramientas de base.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	backend, err := storage.Open(ctx, cfg.DB, log, m)
	if err != nil {
		return nil, err
	}

	runner := sqlrepo.NewTxRunner(backend.DB)
	reads := sqlrepo.Bind(backend.DB)

	opts := inventory.OptionsFromConfig(cfg.Ledger)
	opts.Log = log
	opts.Metrics = m
	engine := inventory.NewLedgerEngine(runner, reads, opts)

	// Un *sqlite.DB nil dentro de la interfaz no sería nil.
	var embedded dbtools.Embedded
	if backend.Embedded != nil {
		embedded = backend.Embedded
	}
	tools := dbtools.NewService(backend.DB, embedded, engine, runner, reads, log)

	return &App{Backend: backend, Engine: engine, DBTools: tools}, nil
}

// Close cierra el almacenamiento con el flush final.
func (a *App) Close(ctx context.Context) error {
	return a.Backend.Close(ctx)
}

// Package storage elige el motor una sola vez al arrancar y entrega la fachada ya aprovisionada.
package storage

import (
	"context"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stoir-api/internal/infrastructure/schema"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/stoir-api/pkg/config"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

// Backend fachada activa. Embedded solo está presente con el motor SQLite
// (respaldo, restauración y reset de archivo).
type Backend struct {
	DB       sqldb.DB
	Embedded *sqlite.DB
	Schema   schema.Report
}

// Provider motor activo.
func (b *Backend) Provider() sqldb.Provider { return b.DB.Provider() }

// Open abre el motor configurado y aplica esquema y migraciones.
func Open(ctx context.Context, cfg config.DBConfig, log *logger.Logger, m *metrics.Metrics) (*Backend, error) {
	if log == nil {
		log = logger.Nop()
	}

	b := &Backend{}
	switch cfg.Provider {
	case config.ProviderPostgres:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("conectar PostgreSQL: %w", err)
		}
		b.DB = postgres.New(pool, log, m)
	case config.ProviderSQLite, "":
		db, err := sqlite.Open(ctx, sqlite.Options{Path: cfg.SQLitePath(), Log: log, Metrics: m})
		if err != nil {
			return nil, fmt.Errorf("abrir SQLite: %w", err)
		}
		b.DB = db
		b.Embedded = db
	default:
		return nil, fmt.Errorf("proveedor de base de datos desconocido %q", cfg.Provider)
	}

	report, err := schema.Ensure(ctx, b.DB, log)
	if err != nil {
		_ = b.DB.Close(ctx, sqldb.CloseOptions{Save: false})
		return nil, fmt.Errorf("aprovisionar esquema: %w", err)
	}
	b.Schema = report
	log.Info().
		Str("provider", string(b.DB.Provider())).
		Bool("schema_created", report.Created).
		Int("migrations", len(report.Migrations)).
		Msg("almacenamiento listo")
	return b, nil
}

// Close cierra la fachada con flush final (salvo que se haya suprimido).
func (b *Backend) Close(ctx context.Context) error {
	return b.DB.Close(ctx, sqldb.CloseOptions{Save: true})
}

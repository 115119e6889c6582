// Package schema aprovisiona el esquema lógico (mismas tablas en ambos motores) y aplica
// las migraciones aditivas.
package schema

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/pkg/logger"
)

// MarkerTable tabla cuya existencia indica un esquema ya aprovisionado.
const MarkerTable = "items"

var (
	//go:embed sql/sqlite.sql
	sqliteDDL string
	//go:embed sql/postgres.sql
	postgresDDL string
)

// ResetOrder orden de TRUNCATE que respeta las FK (detalle, cabecera, kardex, maestros).
var ResetOrder = []string{
	"stock_count_lines",
	"stock_counts",
	"customer_claim_lines",
	"customer_claims",
	"stock_issue_lines",
	"stock_issues",
	"stock_receipt_lines",
	"stock_receipts",
	"stock_ledger",
	"items",
	"customers",
	"suppliers",
	"categories",
	"areas",
}

// Report resultado de Ensure.
type Report struct {
	Created    bool    // se ejecutó el DDL base
	Migrations []int64 // versiones aplicadas en esta ejecución
}

// stdDB lo implementan las fachadas que pueden exponer un *sql.DB para goose.
type stdDB interface {
	StdDB() (*sql.DB, error)
}

// DDL devuelve el script base para el proveedor.
func DDL(p sqldb.Provider) string {
	if p == sqldb.Postgres {
		return postgresDDL
	}
	return sqliteDDL
}

// Exists comprueba si la tabla marcador existe.
func Exists(ctx context.Context, db sqldb.Querier, p sqldb.Provider) (bool, error) {
	var (
		row sqldb.Row
		err error
	)
	switch p {
	case sqldb.Postgres:
		row, err = db.Get(ctx, "SELECT to_regclass(?)::text AS t", "public."+MarkerTable)
		if err != nil {
			return false, fmt.Errorf("detect schema: %w", err)
		}
		return row != nil && row.Has("t"), nil
	default:
		row, err = db.Get(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", MarkerTable)
		if err != nil {
			return false, fmt.Errorf("detect schema: %w", err)
		}
		return row != nil, nil
	}
}

// Ensure es idempotente: si el esquema existe no toca el DDL base; después corre las migraciones.
func Ensure(ctx context.Context, db sqldb.DB, log *logger.Logger) (Report, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("schema")

	var report Report
	exists, err := Exists(ctx, db, db.Provider())
	if err != nil {
		return report, err
	}
	if !exists {
		if err := db.Exec(ctx, DDL(db.Provider())); err != nil {
			return report, fmt.Errorf("create schema: %w", err)
		}
		report.Created = true
		log.Info().Str("provider", string(db.Provider())).Msg("esquema creado")
	}

	sdb, ok := db.(stdDB)
	if !ok {
		log.Warn().Msg("fachada sin *sql.DB, migraciones omitidas")
		return report, nil
	}
	std, err := sdb.StdDB()
	if err != nil {
		return report, fmt.Errorf("migrations handle: %w", err)
	}
	applied, err := Migrate(ctx, std, db.Provider(), log)
	if err != nil {
		return report, err
	}
	report.Migrations = applied

	if len(applied) > 0 {
		if err := db.Save(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

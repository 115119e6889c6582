package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/pkg/logger"
)

// addColumn migración aditiva: columna nullable nueva.
type addColumn struct {
	version int64
	table   string
	column  string
	typ     string
}

// columnMigrations lista ordenada. Solo se agregan al final.
var columnMigrations = []addColumn{
	{version: 1, table: "customers", column: "contact_person", typ: "TEXT"},
	{version: 2, table: "suppliers", column: "email", typ: "TEXT"},
	{version: 3, table: "stock_ledger", column: "created_by", typ: "TEXT"},
}

func (m addColumn) statement(p sqldb.Provider) string {
	if p == sqldb.Postgres {
		return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", m.table, m.column, m.typ)
	}
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.table, m.column, m.typ)
}

// Migrate aplica las migraciones pendientes con goose (tabla goose_db_version).
// Una columna que ya existe (bases creadas antes del control de versiones) se da por aplicada.
func Migrate(ctx context.Context, db *sql.DB, p sqldb.Provider, log *logger.Logger) ([]int64, error) {
	if log == nil {
		log = logger.Nop()
	}
	dialect := goose.DialectSQLite3
	if p == sqldb.Postgres {
		dialect = goose.DialectPostgres
	}

	migrations := make([]*goose.Migration, 0, len(columnMigrations))
	for _, m := range columnMigrations {
		m := m
		up := &goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, m.statement(p))
			if isDuplicateColumn(err) {
				log.Debug().Str("table", m.table).Str("column", m.column).Msg("columna ya existe, migración absorbida")
				return nil
			}
			return err
		}}
		migrations = append(migrations, goose.NewGoMigration(m.version, up, nil))
	}

	provider, err := goose.NewProvider(dialect, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations...),
	)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
		log.Info().Int64("version", r.Source.Version).Dur("took", r.Duration).Msg("migración aplicada")
	}
	return applied, nil
}

func isDuplicateColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "42701"
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		return strings.Contains(strings.ToLower(se.Error()), "duplicate column name")
	}
	return strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}

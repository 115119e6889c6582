package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"

	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

var _ sqldb.DB = (*DB)(nil)

// Options configuración del motor embebido.
type Options struct {
	// Path archivo del snapshot. Vacío = solo memoria (sin persistencia).
	Path    string
	Log     *logger.Logger
	Metrics *metrics.Metrics
}

// DB base SQLite en memoria con persistencia por snapshot completo.
// Todas las operaciones se serializan con mu, en orden de llegada.
type DB struct {
	mu              sync.Mutex
	db              *sql.DB
	path            string
	log             *logger.Logger
	metrics         *metrics.Metrics
	closed          bool
	skipSaveOnClose bool
}

// Open crea la base en memoria y, si Path existe, carga su contenido.
func Open(ctx context.Context, opts Options) (*DB, error) {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	sqlDB, err := sql.Open("sqlite3", ":memory:?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Una sola conexión: la base vive en ella y desaparece si se recicla.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	d := &DB{
		db:      sqlDB,
		path:    opts.Path,
		log:     log.Component("sqlite"),
		metrics: opts.Metrics,
	}

	if opts.Path != "" {
		image, err := os.ReadFile(opts.Path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			d.log.Info().Str("path", opts.Path).Msg("archivo no existe, se crea base nueva")
		case err != nil:
			sqlDB.Close()
			return nil, fmt.Errorf("read snapshot: %w", err)
		default:
			if err := d.load(ctx, image); err != nil {
				sqlDB.Close()
				return nil, err
			}
			d.log.Info().Str("path", opts.Path).Int("bytes", len(image)).Msg("snapshot cargado")
		}
	}

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return d, nil
}

// Provider implementa sqldb.DB.
func (d *DB) Provider() sqldb.Provider { return sqldb.SQLite }

// Path ruta del archivo de snapshot ("" si es solo memoria).
func (d *DB) Path() string { return d.path }

// StdDB expone el *sql.DB para herramientas de migración. No usar en paralelo con la fachada.
func (d *DB) StdDB() (*sql.DB, error) { return d.db, nil }

func (d *DB) lock(ctx context.Context) error {
	if sqldb.InTransaction(ctx, d) {
		return domain.ErrNestedTransaction
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return domain.ErrClosed
	}
	return nil
}

func (d *DB) Get(ctx context.Context, stmt string, args ...any) (sqldb.Row, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	d.metrics.Statement(string(sqldb.SQLite), "get")
	return queryOne(ctx, d.db, stmt, args)
}

func (d *DB) All(ctx context.Context, stmt string, args ...any) ([]sqldb.Row, error) {
	if err := d.lock(ctx); err != nil {
		return nil, err
	}
	defer d.mu.Unlock()
	d.metrics.Statement(string(sqldb.SQLite), "all")
	return queryAll(ctx, d.db, stmt, args)
}

// Exec fuera de transacción persiste inmediatamente.
func (d *DB) Exec(ctx context.Context, stmt string) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()
	d.metrics.Statement(string(sqldb.SQLite), "exec")
	if _, err := d.db.ExecContext(ctx, sqldb.Translate(sqldb.SQLite, stmt)); err != nil {
		return classify(err)
	}
	return d.saveLocked(ctx)
}

// Run fuera de transacción persiste inmediatamente.
func (d *DB) Run(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	if err := d.lock(ctx); err != nil {
		return sqldb.Result{}, err
	}
	defer d.mu.Unlock()
	d.metrics.Statement(string(sqldb.SQLite), "run")
	res, err := run(ctx, d.db, stmt, args)
	if err != nil {
		return res, err
	}
	return res, d.saveLocked(ctx)
}

// Transaction mantiene el lock durante cuerpo, commit y flush.
func (d *DB) Transaction(ctx context.Context, fn sqldb.TxFunc) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		_ = tx.Rollback()
		d.metrics.Transaction(string(sqldb.SQLite), "rollback")
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err := fn(sqldb.WithTxMarker(ctx, d), &txQuerier{tx: tx, metrics: d.metrics}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	done = true
	d.metrics.Transaction(string(sqldb.SQLite), "commit")

	return d.saveLocked(ctx)
}

// Save flush del snapshot al archivo.
func (d *DB) Save(ctx context.Context) error {
	if err := d.lock(ctx); err != nil {
		return err
	}
	defer d.mu.Unlock()
	return d.saveLocked(ctx)
}

// SuppressSaveOnClose evita que Close sobrescriba un archivo que fue rotado o reemplazado.
func (d *DB) SuppressSaveOnClose() {
	d.mu.Lock()
	d.skipSaveOnClose = true
	d.mu.Unlock()
}

// Close hace flush (salvo opts.Save=false o SuppressSaveOnClose) y libera la conexión.
func (d *DB) Close(ctx context.Context, opts sqldb.CloseOptions) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	var err error
	if opts.Save && !d.skipSaveOnClose {
		err = multierr.Append(err, d.saveLocked(ctx))
	}
	err = multierr.Append(err, d.db.Close())
	d.log.Info().Bool("saved", opts.Save && !d.skipSaveOnClose).Msg("base embebida cerrada")
	return err
}

// ──────────────────────────────────────────────────────────────────────────────
// Ejecución compartida entre la fachada y la transacción
// ──────────────────────────────────────────────────────────────────────────────

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type txQuerier struct {
	tx      *sql.Tx
	metrics *metrics.Metrics
}

func (q *txQuerier) Get(ctx context.Context, stmt string, args ...any) (sqldb.Row, error) {
	q.metrics.Statement(string(sqldb.SQLite), "get")
	return queryOne(ctx, q.tx, stmt, args)
}

func (q *txQuerier) All(ctx context.Context, stmt string, args ...any) ([]sqldb.Row, error) {
	q.metrics.Statement(string(sqldb.SQLite), "all")
	return queryAll(ctx, q.tx, stmt, args)
}

func (q *txQuerier) Exec(ctx context.Context, stmt string) error {
	q.metrics.Statement(string(sqldb.SQLite), "exec")
	_, err := q.tx.ExecContext(ctx, sqldb.Translate(sqldb.SQLite, stmt))
	return classify(err)
}

func (q *txQuerier) Run(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	q.metrics.Statement(string(sqldb.SQLite), "run")
	return run(ctx, q.tx, stmt, args)
}

func run(ctx context.Context, e execer, stmt string, args []any) (sqldb.Result, error) {
	res, err := e.ExecContext(ctx, sqldb.Translate(sqldb.SQLite, stmt), args...)
	if err != nil {
		return sqldb.Result{}, classify(err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return sqldb.Result{}, err
	}
	out := sqldb.Result{ChangedRows: changed}
	if isInsert(stmt) && changed > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return sqldb.Result{}, err
		}
		out.InsertedID = id
		out.HasInsertedID = true
	}
	return out, nil
}

func queryOne(ctx context.Context, e execer, stmt string, args []any) (sqldb.Row, error) {
	rows, err := queryAll(ctx, e, stmt, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func queryAll(ctx context.Context, e execer, stmt string, args []any) ([]sqldb.Row, error) {
	rows, err := e.QueryContext(ctx, sqldb.Translate(sqldb.SQLite, stmt), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []sqldb.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(sqldb.Row, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out = append(out, row)
	}
	return out, classify(rows.Err())
}

func isInsert(stmt string) bool {
	s := strings.TrimSpace(stmt)
	return len(s) >= 6 && strings.EqualFold(s[:6], "INSERT")
}

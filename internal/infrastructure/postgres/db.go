package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"

	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
	"github.com/jhoicas/stoir-api/pkg/logger"
	"github.com/jhoicas/stoir-api/pkg/metrics"
)

var _ sqldb.DB = (*DB)(nil)

// DB fachada sobre un pgxpool. La durabilidad es la del propio motor (WAL); Save es no-op.
type DB struct {
	pool    *pgxpool.Pool
	log     *logger.Logger
	metrics *metrics.Metrics

	stdOnce sync.Once
	std     *sql.DB
}

// New envuelve un pool ya creado (ver NewPool). El pool pasa a ser propiedad de DB.
func New(pool *pgxpool.Pool, log *logger.Logger, m *metrics.Metrics) *DB {
	if log == nil {
		log = logger.Nop()
	}
	return &DB{pool: pool, log: log.Component("postgres"), metrics: m}
}

// Provider implementa sqldb.DB.
func (d *DB) Provider() sqldb.Provider { return sqldb.Postgres }

// Pool acceso directo al pool (tests, herramientas).
func (d *DB) Pool() *pgxpool.Pool { return d.pool }

// StdDB *sql.DB sobre el mismo pool, para herramientas que usan database/sql (migraciones).
func (d *DB) StdDB() (*sql.DB, error) {
	d.stdOnce.Do(func() {
		d.std = stdlib.OpenDBFromPool(d.pool)
	})
	return d.std, nil
}

func (d *DB) guard(ctx context.Context) error {
	if sqldb.InTransaction(ctx, d) {
		return domain.ErrNestedTransaction
	}
	return nil
}

func (d *DB) Get(ctx context.Context, stmt string, args ...any) (sqldb.Row, error) {
	if err := d.guard(ctx); err != nil {
		return nil, err
	}
	d.metrics.Statement(string(sqldb.Postgres), "get")
	return queryOne(ctx, d.pool, stmt, args)
}

func (d *DB) All(ctx context.Context, stmt string, args ...any) ([]sqldb.Row, error) {
	if err := d.guard(ctx); err != nil {
		return nil, err
	}
	d.metrics.Statement(string(sqldb.Postgres), "all")
	return queryAll(ctx, d.pool, stmt, args)
}

func (d *DB) Exec(ctx context.Context, stmt string) error {
	if err := d.guard(ctx); err != nil {
		return err
	}
	d.metrics.Statement(string(sqldb.Postgres), "exec")
	_, err := d.pool.Exec(ctx, stmt)
	return classify(err)
}

func (d *DB) Run(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	if err := d.guard(ctx); err != nil {
		return sqldb.Result{}, err
	}
	d.metrics.Statement(string(sqldb.Postgres), "run")
	return run(ctx, d.pool, stmt, args)
}

// Transaction toma una conexión del pool durante todo el cuerpo y la devuelve al terminar.
func (d *DB) Transaction(ctx context.Context, fn sqldb.TxFunc) error {
	if err := d.guard(ctx); err != nil {
		return err
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	done := false
	defer func() {
		if done {
			return
		}
		_ = tx.Rollback(context.WithoutCancel(ctx))
		d.metrics.Transaction(string(sqldb.Postgres), "rollback")
		if p := recover(); p != nil {
			panic(p)
		}
	}()

	if err := fn(sqldb.WithTxMarker(ctx, d), &txQuerier{tx: tx, metrics: d.metrics}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}
	done = true
	d.metrics.Transaction(string(sqldb.Postgres), "commit")
	return nil
}

// Save no-op: el commit ya es durable.
func (d *DB) Save(context.Context) error { return nil }

// Close cierra el pool (y el *sql.DB puente si se abrió).
func (d *DB) Close(context.Context, sqldb.CloseOptions) error {
	var err error
	if d.std != nil {
		err = multierr.Append(err, d.std.Close())
	}
	d.pool.Close()
	d.log.Info().Msg("pool PostgreSQL cerrado")
	return err
}

// ──────────────────────────────────────────────────────────────────────────────

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txQuerier struct {
	tx      pgx.Tx
	metrics *metrics.Metrics
}

func (q *txQuerier) Get(ctx context.Context, stmt string, args ...any) (sqldb.Row, error) {
	q.metrics.Statement(string(sqldb.Postgres), "get")
	return queryOne(ctx, q.tx, stmt, args)
}

func (q *txQuerier) All(ctx context.Context, stmt string, args ...any) ([]sqldb.Row, error) {
	q.metrics.Statement(string(sqldb.Postgres), "all")
	return queryAll(ctx, q.tx, stmt, args)
}

func (q *txQuerier) Exec(ctx context.Context, stmt string) error {
	q.metrics.Statement(string(sqldb.Postgres), "exec")
	_, err := q.tx.Exec(ctx, stmt)
	return classify(err)
}

func (q *txQuerier) Run(ctx context.Context, stmt string, args ...any) (sqldb.Result, error) {
	q.metrics.Statement(string(sqldb.Postgres), "run")
	return run(ctx, q.tx, stmt, args)
}

func queryOne(ctx context.Context, q pgxQuerier, stmt string, args []any) (sqldb.Row, error) {
	rows, err := queryAll(ctx, q, stmt, args)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func queryAll(ctx context.Context, q pgxQuerier, stmt string, args []any) ([]sqldb.Row, error) {
	rows, err := q.Query(ctx, sqldb.Translate(sqldb.Postgres, stmt), args...)
	if err != nil {
		return nil, classify(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]sqldb.Row, len(maps))
	for i, m := range maps {
		out[i] = sqldb.Row(m)
	}
	return out, nil
}

// run emula last-insert-id añadiendo RETURNING id a los INSERT que no lo piden.
func run(ctx context.Context, q pgxQuerier, stmt string, args []any) (sqldb.Result, error) {
	text := sqldb.Translate(sqldb.Postgres, stmt)
	if !sqldb.NeedsReturningID(text) {
		tag, err := q.Exec(ctx, text, args...)
		if err != nil {
			return sqldb.Result{}, classify(err)
		}
		return sqldb.Result{ChangedRows: tag.RowsAffected()}, nil
	}

	rows, err := q.Query(ctx, sqldb.WithReturningID(text), args...)
	if err != nil {
		return sqldb.Result{}, classify(err)
	}
	var res sqldb.Result
	for rows.Next() {
		if res.HasInsertedID {
			continue
		}
		if err := rows.Scan(&res.InsertedID); err != nil {
			rows.Close()
			return sqldb.Result{}, err
		}
		res.HasInsertedID = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return sqldb.Result{}, classify(err)
	}
	res.ChangedRows = rows.CommandTag().RowsAffected()
	return res, nil
}

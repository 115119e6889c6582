// Package sqldb define el contrato uniforme de acceso a datos (get/all/exec/run/transaction)
// compartido por el motor embebido (SQLite) y el relacional (PostgreSQL).
//
// Las sentencias se escriben siempre con marcadores posicionales "?"; cada backend las
// traduce a su sintaxis nativa con Translate.
package sqldb

import (
	"context"
)

// Provider identifica el motor activo.
type Provider string

const (
	SQLite   Provider = "sqlite"
	Postgres Provider = "postgres"
)

// Result respuesta de Run, idéntica en ambos motores.
type Result struct {
	ChangedRows   int64
	InsertedID    int64
	HasInsertedID bool
}

// CloseOptions controla el cierre. Save=false evita el flush final (reset/restore).
type CloseOptions struct {
	Save bool
}

// Querier operaciones de consulta; lo implementan la fachada y el handle de transacción.
type Querier interface {
	// Get devuelve la primera fila o nil si no hay resultados.
	Get(ctx context.Context, stmt string, args ...any) (Row, error)
	All(ctx context.Context, stmt string, args ...any) ([]Row, error)
	// Exec aplica DDL o un script sin parámetros ni resultado.
	Exec(ctx context.Context, stmt string) error
	Run(ctx context.Context, stmt string, args ...any) (Result, error)
}

// TxFunc cuerpo de una transacción. ctx queda marcado como "dentro de transacción".
type TxFunc func(ctx context.Context, tx Querier) error

// DB fachada completa.
type DB interface {
	Querier
	// Transaction ejecuta fn con un Querier atado a una conexión; Commit si fn devuelve nil,
	// Rollback en cualquier otro caso. No se admite anidar.
	Transaction(ctx context.Context, fn TxFunc) error
	// Save persiste el estado (flush del snapshot embebido; no-op en PostgreSQL).
	Save(ctx context.Context) error
	Close(ctx context.Context, opts CloseOptions) error
	Provider() Provider
}

type txKey struct{}

// WithTxMarker marca ctx como perteneciente a una transacción abierta sobre owner.
func WithTxMarker(ctx context.Context, owner any) context.Context {
	return context.WithValue(ctx, txKey{}, owner)
}

// InTransaction indica si ctx pertenece a una transacción abierta sobre owner.
func InTransaction(ctx context.Context, owner any) bool {
	v := ctx.Value(txKey{})
	return v != nil && v == owner
}

package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

// Códigos SQLSTATE de violación de integridad.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
)

// classify traduce violaciones de restricción a errores de dominio; el resto pasa intacto.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return sqldb.Duplicate(pgErr.ConstraintName, err)
	case codeForeignKeyViolation, codeCheckViolation, codeNotNullViolation:
		return sqldb.Conflict(pgErr.ConstraintName, err)
	}
	return err
}

package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

// classify traduce violaciones de restricción a errores de dominio; el resto pasa intacto.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return sqldb.Duplicate(se.Error(), err)
	default:
		return sqldb.Conflict(se.Error(), err)
	}
}

package sqldb

import (
	"fmt"

	"github.com/jhoicas/stoir-api/internal/domain"
)

// ConstraintError violación de restricción reportada por el motor.
// errors.Is(err, domain.ErrDuplicate|domain.ErrConflict) funciona, y errors.As sigue
// alcanzando el error del driver.
type ConstraintError struct {
	Kind       error // domain.ErrDuplicate o domain.ErrConflict
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Constraint, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// Duplicate envuelve una violación de unicidad.
func Duplicate(constraint string, err error) error {
	return &ConstraintError{Kind: domain.ErrDuplicate, Constraint: constraint, Err: err}
}

// Conflict envuelve una violación de FK/CHECK/NOT NULL.
func Conflict(constraint string, err error) error {
	return &ConstraintError{Kind: domain.ErrConflict, Constraint: constraint, Err: err}
}

package repository

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// MovementRepository persistencia de documentos de movimiento y sus detalles.
type MovementRepository interface {
	// CreateHeader inserta la cabecera y asigna doc.ID. Número repetido: domain.ErrDuplicate.
	CreateHeader(ctx context.Context, doc *entity.MovementDocument) error
	// FindByNumber devuelve la cabecera sin líneas o domain.ErrNotFound.
	FindByNumber(ctx context.Context, kind entity.DocumentKind, number string) (*entity.MovementDocument, error)
	AddLine(ctx context.Context, kind entity.DocumentKind, documentID int64, line entity.MovementLine) error
	Lines(ctx context.Context, kind entity.DocumentKind, documentID int64) ([]entity.MovementLine, error)
}

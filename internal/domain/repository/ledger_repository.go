package repository

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// LedgerRepository kardex: solo se agregan filas.
type LedgerRepository interface {
	Append(ctx context.Context, entry *entity.LedgerEntry) error
	// ListForItem devuelve las entradas del artículo ordenadas por (occurred_at, id).
	// limit <= 0 significa sin límite.
	ListForItem(ctx context.Context, itemCode string, limit, offset int) ([]entity.LedgerEntry, error)
	CountForItem(ctx context.Context, itemCode string) (int64, error)
}

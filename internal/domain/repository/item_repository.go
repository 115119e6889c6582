package repository

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// ItemRepository define el puerto de persistencia para artículos (DIP).
type ItemRepository interface {
	// GetForUpdate lee el artículo bloqueando su fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, code string) (*entity.Item, error)
	Get(ctx context.Context, code string) (*entity.Item, error)
	UpdateStock(ctx context.Context, code string, stock int64) error
	List(ctx context.Context) ([]*entity.Item, error)
	Count(ctx context.Context) (int64, error)
	// InsertIfAbsent crea el artículo con stock 0; devuelve false si el código ya existía.
	InsertIfAbsent(ctx context.Context, item *entity.Item) (bool, error)
}

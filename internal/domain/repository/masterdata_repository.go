package repository

import (
	"context"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// MasterDataRepository datos maestros. Los Insert* ignoran códigos existentes y
// devuelven si la fila se creó.
type MasterDataRepository interface {
	InsertArea(ctx context.Context, a entity.Area) (bool, error)
	InsertCategory(ctx context.Context, c entity.Category) (bool, error)
	InsertSupplier(ctx context.Context, s entity.Supplier) (bool, error)
	InsertCustomer(ctx context.Context, c entity.Customer) (bool, error)
}

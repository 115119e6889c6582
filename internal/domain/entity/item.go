package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item artículo del catálogo. Stock solo lo modifica el motor de kardex.
type Item struct {
	ID               int64
	Code             string // código único
	Name             string
	CategoryCode     string
	Unit             string
	Stock            int64 // invariante: >= 0
	ReorderThreshold int64
	PurchasePrice    *decimal.Decimal
	SalePrice        *decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BelowThreshold indica si el stock está en o por debajo del mínimo.
func (i *Item) BelowThreshold() bool {
	return i.Stock <= i.ReorderThreshold
}

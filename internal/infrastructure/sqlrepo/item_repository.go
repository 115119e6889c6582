package sqlrepo

import (
	"context"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/domain/repository"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

var _ repository.ItemRepository = (*ItemRepo)(nil)

const itemColumns = `id, code, name, category_code, unit, stock, reorder_threshold,
	purchase_price, sale_price, created_at, updated_at`

// ItemRepo implementación de ItemRepository (usable con la fachada o con una tx).
type ItemRepo struct {
	q sqldb.Querier
}

// NewItemRepository construye el adaptador. Pasar la fachada o el Querier de una tx.
func NewItemRepository(q sqldb.Querier) *ItemRepo {
	return &ItemRepo{q: q}
}

// GetForUpdate en PostgreSQL bloquea la fila (SELECT ... FOR UPDATE); en SQLite el
// sufijo se descarta porque las operaciones ya van serializadas.
func (r *ItemRepo) GetForUpdate(ctx context.Context, code string) (*entity.Item, error) {
	row, err := r.q.Get(ctx, `SELECT `+itemColumns+` FROM items WHERE code = ? FOR UPDATE`, code)
	if err != nil {
		return nil, fmt.Errorf("get item for update: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("item %s: %w", code, domain.ErrNotFound)
	}
	return scanItem(row), nil
}

func (r *ItemRepo) Get(ctx context.Context, code string) (*entity.Item, error) {
	row, err := r.q.Get(ctx, `SELECT `+itemColumns+` FROM items WHERE code = ?`, code)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("item %s: %w", code, domain.ErrNotFound)
	}
	return scanItem(row), nil
}

func (r *ItemRepo) UpdateStock(ctx context.Context, code string, stock int64) error {
	res, err := r.q.Run(ctx, `UPDATE items SET stock = ? WHERE code = ?`, stock, code)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if res.ChangedRows == 0 {
		return fmt.Errorf("item %s: %w", code, domain.ErrNotFound)
	}
	return nil
}

// List todos los artículos ordenados por código.
func (r *ItemRepo) List(ctx context.Context) ([]*entity.Item, error) {
	rows, err := r.q.All(ctx, `SELECT `+itemColumns+` FROM items ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]*entity.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, scanItem(row))
	}
	return items, nil
}

func (r *ItemRepo) Count(ctx context.Context) (int64, error) {
	row, err := r.q.Get(ctx, `SELECT COUNT(*) AS n FROM items`)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return row.Int64("n"), nil
}

// InsertIfAbsent crea el artículo siempre con stock 0; el stock inicial entra por el kardex.
func (r *ItemRepo) InsertIfAbsent(ctx context.Context, item *entity.Item) (bool, error) {
	res, err := r.q.Run(ctx, `
		INSERT INTO items (code, name, category_code, unit, stock, reorder_threshold, purchase_price, sale_price)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		item.Code, item.Name, nullString(item.CategoryCode), nullString(item.Unit),
		item.ReorderThreshold, nullDecimal(item.PurchasePrice), nullDecimal(item.SalePrice),
	)
	if err != nil {
		return false, fmt.Errorf("insert item: %w", err)
	}
	if res.HasInsertedID {
		item.ID = res.InsertedID
	}
	return res.ChangedRows > 0, nil
}

func scanItem(row sqldb.Row) *entity.Item {
	return &entity.Item{
		ID:               row.Int64("id"),
		Code:             row.String("code"),
		Name:             row.String("name"),
		CategoryCode:     row.String("category_code"),
		Unit:             row.String("unit"),
		Stock:            row.Int64("stock"),
		ReorderThreshold: row.Int64("reorder_threshold"),
		PurchasePrice:    row.Decimal("purchase_price"),
		SalePrice:        row.Decimal("sale_price"),
		CreatedAt:        row.Time("created_at"),
		UpdatedAt:        row.Time("updated_at"),
	}
}

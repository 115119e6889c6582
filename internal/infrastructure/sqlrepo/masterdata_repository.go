package sqlrepo

import (
	"context"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/domain/repository"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

var _ repository.MasterDataRepository = (*MasterDataRepo)(nil)

// MasterDataRepo áreas, categorías, proveedores y clientes. Solo alta idempotente por código.
type MasterDataRepo struct {
	q sqldb.Querier
}

func NewMasterDataRepository(q sqldb.Querier) *MasterDataRepo {
	return &MasterDataRepo{q: q}
}

func (r *MasterDataRepo) insert(ctx context.Context, table, stmt string, args ...any) (bool, error) {
	res, err := r.q.Run(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", table, err)
	}
	return res.ChangedRows > 0, nil
}

func (r *MasterDataRepo) InsertArea(ctx context.Context, a entity.Area) (bool, error) {
	return r.insert(ctx, "areas",
		`INSERT INTO areas (code, name) VALUES (?, ?) ON CONFLICT (code) DO NOTHING`,
		a.Code, a.Name)
}

func (r *MasterDataRepo) InsertCategory(ctx context.Context, c entity.Category) (bool, error) {
	return r.insert(ctx, "categories",
		`INSERT INTO categories (code, name) VALUES (?, ?) ON CONFLICT (code) DO NOTHING`,
		c.Code, c.Name)
}

func (r *MasterDataRepo) InsertSupplier(ctx context.Context, s entity.Supplier) (bool, error) {
	return r.insert(ctx, "suppliers",
		`INSERT INTO suppliers (code, name, phone, email, address) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		s.Code, s.Name, nullString(s.Phone), nullString(s.Email), nullString(s.Address))
}

func (r *MasterDataRepo) InsertCustomer(ctx context.Context, c entity.Customer) (bool, error) {
	return r.insert(ctx, "customers",
		`INSERT INTO customers (code, name, area_code, phone, contact_person, address) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (code) DO NOTHING`,
		c.Code, c.Name, nullString(c.AreaCode), nullString(c.Phone), nullString(c.ContactPerson), nullString(c.Address))
}

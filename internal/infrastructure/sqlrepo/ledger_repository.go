package sqlrepo

import (
	"context"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/domain/repository"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo kardex (stock_ledger).
type LedgerRepo struct {
	q sqldb.Querier
}

func NewLedgerRepository(q sqldb.Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Append agrega una entrada y asigna entry.ID.
func (r *LedgerRepo) Append(ctx context.Context, e *entity.LedgerEntry) error {
	res, err := r.q.Run(ctx, `
		INSERT INTO stock_ledger (occurred_at, ref_type, ref_no, item_code, qty_in, qty_out, balance_after, note, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.OccurredAt.UTC(), e.RefType, nullString(e.RefNo), e.ItemCode,
		e.QtyIn, e.QtyOut, e.BalanceAfter, nullString(e.Note), nullString(e.CreatedBy),
	)
	if err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	e.ID = res.InsertedID
	return nil
}

func (r *LedgerRepo) ListForItem(ctx context.Context, itemCode string, limit, offset int) ([]entity.LedgerEntry, error) {
	stmt := `
		SELECT id, occurred_at, ref_type, ref_no, item_code, qty_in, qty_out, balance_after, note, created_by
		FROM stock_ledger WHERE item_code = ?
		ORDER BY occurred_at, id`
	args := []any{itemCode}
	if limit > 0 {
		stmt += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := r.q.All(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger: %w", err)
	}
	entries := make([]entity.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, entity.LedgerEntry{
			ID:           row.Int64("id"),
			OccurredAt:   row.Time("occurred_at"),
			RefType:      row.String("ref_type"),
			RefNo:        row.String("ref_no"),
			ItemCode:     row.String("item_code"),
			QtyIn:        row.Int64("qty_in"),
			QtyOut:       row.Int64("qty_out"),
			BalanceAfter: row.Int64("balance_after"),
			Note:         row.String("note"),
			CreatedBy:    row.String("created_by"),
		})
	}
	return entries, nil
}

func (r *LedgerRepo) CountForItem(ctx context.Context, itemCode string) (int64, error) {
	row, err := r.q.Get(ctx, `SELECT COUNT(*) AS n FROM stock_ledger WHERE item_code = ?`, itemCode)
	if err != nil {
		return 0, fmt.Errorf("count ledger: %w", err)
	}
	return row.Int64("n"), nil
}

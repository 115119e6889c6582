package sqlrepo

import (
	"context"
	"fmt"

	"github.com/jhoicas/stoir-api/internal/domain"
	"github.com/jhoicas/stoir-api/internal/domain/entity"
	"github.com/jhoicas/stoir-api/internal/domain/repository"
	"github.com/jhoicas/stoir-api/internal/infrastructure/sqldb"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo cabeceras y detalles de los cuatro tipos de documento.
type MovementRepo struct {
	q sqldb.Querier
}

func NewMovementRepository(q sqldb.Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

func tablesFor(kind entity.DocumentKind) (kindTables, error) {
	t, ok := tablesByKind[kind]
	if !ok {
		return kindTables{}, fmt.Errorf("tipo de documento %q: %w", kind, domain.ErrInvalidInput)
	}
	return t, nil
}

// CreateHeader inserta la cabecera y asigna doc.ID.
func (r *MovementRepo) CreateHeader(ctx context.Context, doc *entity.MovementDocument) error {
	t, err := tablesFor(doc.Kind)
	if err != nil {
		return err
	}
	var (
		stmt string
		args []any
	)
	if t.partner != "" {
		stmt = fmt.Sprintf(`INSERT INTO %s (number, doc_date, %s, note) VALUES (?, ?, ?, ?)`, t.header, t.partner)
		args = []any{doc.Number, docDate(doc.Date), nullString(doc.PartnerCode), nullString(doc.Note)}
	} else {
		stmt = fmt.Sprintf(`INSERT INTO %s (number, doc_date, note) VALUES (?, ?, ?)`, t.header)
		args = []any{doc.Number, docDate(doc.Date), nullString(doc.Note)}
	}
	res, err := r.q.Run(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("create %s: %w", t.header, err)
	}
	doc.ID = res.InsertedID
	doc.Date = docDate(doc.Date)
	return nil
}

// FindByNumber cabecera sin líneas.
func (r *MovementRepo) FindByNumber(ctx context.Context, kind entity.DocumentKind, number string) (*entity.MovementDocument, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	partner := "NULL"
	if t.partner != "" {
		partner = t.partner
	}
	row, err := r.q.Get(ctx, fmt.Sprintf(
		`SELECT id, number, doc_date, %s AS partner_code, note, created_at FROM %s WHERE number = ?`,
		partner, t.header), number)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.header, err)
	}
	if row == nil {
		return nil, fmt.Errorf("documento %s: %w", number, domain.ErrNotFound)
	}
	return &entity.MovementDocument{
		ID:          row.Int64("id"),
		Kind:        kind,
		Number:      row.String("number"),
		Date:        row.Time("doc_date"),
		PartnerCode: row.String("partner_code"),
		Note:        row.String("note"),
		CreatedAt:   row.Time("created_at"),
	}, nil
}

// AddLine escribe el detalle. En ajustes usa system/physical/difference; en el resto Quantity.
func (r *MovementRepo) AddLine(ctx context.Context, kind entity.DocumentKind, documentID int64, line entity.MovementLine) error {
	t, err := tablesFor(kind)
	if err != nil {
		return err
	}
	var (
		stmt string
		args []any
	)
	switch kind {
	case entity.KindAdjustment:
		stmt = `INSERT INTO stock_count_lines (document_id, item_code, system_qty, physical_qty, difference, note)
			VALUES (?, ?, ?, ?, ?, ?)`
		args = []any{documentID, line.ItemCode, line.SystemQty, line.PhysicalQty, line.Difference, nullString(line.Note)}
	case entity.KindClaim:
		stmt = `INSERT INTO customer_claim_lines (document_id, item_code, quantity) VALUES (?, ?, ?)`
		args = []any{documentID, line.ItemCode, line.Quantity}
	default:
		stmt = fmt.Sprintf(`INSERT INTO %s (document_id, item_code, quantity, unit_price) VALUES (?, ?, ?, ?)`, t.lines)
		args = []any{documentID, line.ItemCode, line.Quantity, nullDecimal(line.UnitPrice)}
	}
	if _, err := r.q.Run(ctx, stmt, args...); err != nil {
		return fmt.Errorf("add %s: %w", t.lines, err)
	}
	return nil
}

// Lines detalle del documento en orden de inserción.
func (r *MovementRepo) Lines(ctx context.Context, kind entity.DocumentKind, documentID int64) ([]entity.MovementLine, error) {
	t, err := tablesFor(kind)
	if err != nil {
		return nil, err
	}
	var stmt string
	switch kind {
	case entity.KindAdjustment:
		stmt = `SELECT item_code, physical_qty AS quantity, NULL AS unit_price, system_qty, physical_qty, difference, note
			FROM stock_count_lines WHERE document_id = ? ORDER BY id`
	case entity.KindClaim:
		stmt = `SELECT item_code, quantity, NULL AS unit_price FROM customer_claim_lines WHERE document_id = ? ORDER BY id`
	default:
		stmt = fmt.Sprintf(`SELECT item_code, quantity, unit_price FROM %s WHERE document_id = ? ORDER BY id`, t.lines)
	}
	rows, err := r.q.All(ctx, stmt, documentID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.lines, err)
	}
	lines := make([]entity.MovementLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, entity.MovementLine{
			ItemCode:    row.String("item_code"),
			Quantity:    row.Int64("quantity"),
			UnitPrice:   row.Decimal("unit_price"),
			SystemQty:   row.Int64("system_qty"),
			PhysicalQty: row.Int64("physical_qty"),
			Difference:  row.Int64("difference"),
			Note:        row.String("note"),
		})
	}
	return lines, nil
}

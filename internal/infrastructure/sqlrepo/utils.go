// Package sqlrepo implementa los puertos de repositorio sobre la fachada sqldb.
// Las mismas sentencias (con "?") sirven para SQLite y PostgreSQL.
package sqlrepo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// nullString convierte "" en NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return *d
}

// docDate fecha de documento a medianoche UTC.
func docDate(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// kindTables tablas y columna de contraparte de cada tipo de documento.
type kindTables struct {
	header  string
	lines   string
	partner string // "" si el documento no tiene contraparte
}

var tablesByKind = map[entity.DocumentKind]kindTables{
	entity.KindReceipt:    {header: "stock_receipts", lines: "stock_receipt_lines", partner: "supplier_code"},
	entity.KindIssue:      {header: "stock_issues", lines: "stock_issue_lines", partner: "customer_code"},
	entity.KindAdjustment: {header: "stock_counts", lines: "stock_count_lines"},
	entity.KindClaim:      {header: "customer_claims", lines: "customer_claim_lines", partner: "customer_code"},
}

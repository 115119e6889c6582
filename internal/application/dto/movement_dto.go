package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// MovementLineRequest línea del documento. En ajustes Quantity es el conteo físico.
type MovementLineRequest struct {
	ItemCode  string           `json:"item_code" validate:"required,max=64"`
	Quantity  int64            `json:"quantity" validate:"min=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Note      string           `json:"note,omitempty" validate:"max=500"`
}

// ApplyMovementRequest body para POST /api/movements/:kind.
type ApplyMovementRequest struct {
	Number      string                `json:"number,omitempty" validate:"max=64"`
	Date        string                `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PartnerCode string                `json:"partner_code,omitempty" validate:"max=64"`
	Note        string                `json:"note,omitempty" validate:"max=500"`
	CreatedBy   string                `json:"created_by,omitempty" validate:"max=100"`
	Lines       []MovementLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ParsedDate fecha del documento (cero si no se envió o es inválida).
func (r ApplyMovementRequest) ParsedDate() time.Time {
	if r.Date == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MovementLineResponse una línea del documento.
type MovementLineResponse struct {
	ItemCode    string           `json:"item_code"`
	Quantity    int64            `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	SystemQty   *int64           `json:"system_qty,omitempty"`
	PhysicalQty *int64           `json:"physical_qty,omitempty"`
	Difference  *int64           `json:"difference,omitempty"`
	Note        string           `json:"note,omitempty"`
}

// DocumentResponse cabecera con sus líneas.
type DocumentResponse struct {
	Kind        string                 `json:"kind"`
	Number      string                 `json:"number"`
	Date        string                 `json:"date"`
	PartnerCode string                 `json:"partner_code,omitempty"`
	Note        string                 `json:"note,omitempty"`
	Lines       []MovementLineResponse `json:"lines"`
}

// AppliedLineResponse resultado por línea.
type AppliedLineResponse struct {
	ItemCode     string `json:"item_code"`
	Requested    int64  `json:"requested"`
	Applied      int64  `json:"applied"`
	QtyIn        int64  `json:"qty_in"`
	QtyOut       int64  `json:"qty_out"`
	BalanceAfter int64  `json:"balance_after"`
	Clamped      bool   `json:"clamped,omitempty"`
	Skipped      bool   `json:"skipped,omitempty"`
}

// MovementResponse respuesta de POST /api/movements/:kind.
type MovementResponse struct {
	Document DocumentResponse      `json:"document"`
	Lines    []AppliedLineResponse `json:"lines"`
	Skipped  bool                  `json:"skipped,omitempty"`
}

// LedgerEntryResponse fila del kardex.
type LedgerEntryResponse struct {
	ID           int64     `json:"id"`
	OccurredAt   time.Time `json:"occurred_at"`
	RefType      string    `json:"ref_type"`
	RefNo        string    `json:"ref_no,omitempty"`
	QtyIn        int64     `json:"qty_in"`
	QtyOut       int64     `json:"qty_out"`
	BalanceAfter int64     `json:"balance_after"`
	Note         string    `json:"note,omitempty"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

// LedgerResponse kardex paginado de un artículo.
type LedgerResponse struct {
	ItemCode string                `json:"item_code"`
	Stock    int64                 `json:"stock"`
	Entries  []LedgerEntryResponse `json:"entries"`
	Page     PageResponse          `json:"page"`
}

// ToDocumentResponse mapea la entidad.
func ToDocumentResponse(doc entity.MovementDocument) DocumentResponse {
	out := DocumentResponse{
		Kind:        string(doc.Kind),
		Number:      doc.Number,
		PartnerCode: doc.PartnerCode,
		Note:        doc.Note,
		Lines:       make([]MovementLineResponse, 0, len(doc.Lines)),
	}
	if !doc.Date.IsZero() {
		out.Date = doc.Date.Format("2006-01-02")
	}
	for _, l := range doc.Lines {
		line := MovementLineResponse{ItemCode: l.ItemCode, Quantity: l.Quantity, UnitPrice: l.UnitPrice, Note: l.Note}
		if doc.Kind == entity.KindAdjustment {
			system, physical, diff := l.SystemQty, l.PhysicalQty, l.Difference
			line.SystemQty, line.PhysicalQty, line.Difference = &system, &physical, &diff
		}
		out.Lines = append(out.Lines, line)
	}
	return out
}

// ToMovementResponse mapea el resultado del motor.
func ToMovementResponse(res *entity.MovementResult) MovementResponse {
	out := MovementResponse{
		Document: ToDocumentResponse(res.Document),
		Lines:    make([]AppliedLineResponse, 0, len(res.Lines)),
		Skipped:  res.Skipped,
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, AppliedLineResponse{
			ItemCode:     l.ItemCode,
			Requested:    l.Requested,
			Applied:      l.Applied,
			QtyIn:        l.QtyIn,
			QtyOut:       l.QtyOut,
			BalanceAfter: l.BalanceAfter,
			Clamped:      l.Clamped,
			Skipped:      l.Skipped,
		})
	}
	return out
}

// ToLedgerEntries mapea entradas del kardex.
func ToLedgerEntries(entries []entity.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:           e.ID,
			OccurredAt:   e.OccurredAt,
			RefType:      e.RefType,
			RefNo:        e.RefNo,
			QtyIn:        e.QtyIn,
			QtyOut:       e.QtyOut,
			BalanceAfter: e.BalanceAfter,
			Note:         e.Note,
			CreatedBy:    e.CreatedBy,
		})
	}
	return out
}

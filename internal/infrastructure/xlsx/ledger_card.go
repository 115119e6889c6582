// Package xlsx exporta el kardex de un artículo a una hoja de cálculo.
package xlsx

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

// SheetName nombre de la hoja generada.
const SheetName = "Kardex"

var ledgerHeader = []any{"Fecha", "Tipo", "Documento", "Entrada", "Salida", "Saldo", "Nota", "Usuario"}

// LedgerWorkbook arma la tarjeta de kardex: encabezado fijo y una fila por entrada, en el
// orden recibido. La fila final resume stock actual del artículo.
func LedgerWorkbook(item *entity.Item, entries []entity.LedgerEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(SheetName, "A1", "H1", bold); err != nil {
		return nil, err
	}

	row := 2
	for _, e := range entries {
		values := []any{
			e.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
			e.RefType,
			e.RefNo,
			e.QtyIn,
			e.QtyOut,
			e.BalanceAfter,
			e.Note,
			e.CreatedBy,
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, err
	}
	summary := []any{"Stock actual", item.Code, item.Name, nil, nil, item.Stock}
	if err := f.SetSheetRow(SheetName, cell, &summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "A", 20); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "C", "C", 28); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "G", "G", 36); err != nil {
		return nil, err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName nombre de descarga sugerido.
func FileName(item *entity.Item) string {
	return fmt.Sprintf("kardex_%s.xlsx", item.Code)
}

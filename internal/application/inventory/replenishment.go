package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// ReorderSuggestion artículo en o bajo su mínimo con la reposición sugerida.
type ReorderSuggestion struct {
	ItemCode         string          `json:"item_code"`
	Name             string          `json:"name"`
	Unit             string          `json:"unit,omitempty"`
	Stock            int64           `json:"stock"`
	ReorderThreshold int64           `json:"reorder_threshold"`
	Shortage         int64           `json:"shortage"`      // mínimo - stock (>= 0)
	SuggestedQty     int64           `json:"suggested_qty"` // hasta el doble del mínimo
	EstimatedCost    decimal.Decimal `json:"estimated_cost"`
}

// ReorderList artículos con stock <= mínimo, los de mayor faltante primero.
// El costo estimado usa el precio de compra (0 si no tiene).
func (e *LedgerEngine) ReorderList(ctx context.Context) ([]ReorderSuggestion, error) {
	items, err := e.reads.Items.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ReorderSuggestion, 0)
	for _, it := range items {
		if !it.BelowThreshold() {
			continue
		}
		suggested := max(it.ReorderThreshold*2-it.Stock, 0)
		cost := decimal.Zero
		if it.PurchasePrice != nil {
			cost = it.PurchasePrice.Mul(decimal.NewFromInt(suggested)).Round(2)
		}
		out = append(out, ReorderSuggestion{
			ItemCode:         it.Code,
			Name:             it.Name,
			Unit:             it.Unit,
			Stock:            it.Stock,
			ReorderThreshold: it.ReorderThreshold,
			Shortage:         max(it.ReorderThreshold-it.Stock, 0),
			SuggestedQty:     suggested,
			EstimatedCost:    cost,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Shortage != out[j].Shortage {
			return out[i].Shortage > out[j].Shortage
		}
		return out[i].ItemCode < out[j].ItemCode
	})
	return out, nil
}

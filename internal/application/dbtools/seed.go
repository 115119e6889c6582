package dbtools

import (
	_ "embed"
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/stoir-api/internal/domain/entity"
)

//go:embed seed.yaml
var seedYAML []byte

// seedItem artículo demo con su stock de apertura.
type seedItem struct {
	Code             string `yaml:"code"`
	Name             string `yaml:"name"`
	CategoryCode     string `yaml:"category_code"`
	Unit             string `yaml:"unit"`
	Stock            int64  `yaml:"stock"`
	ReorderThreshold int64  `yaml:"reorder_threshold"`
	PurchasePrice    int64  `yaml:"purchase_price"`
	SalePrice        int64  `yaml:"sale_price"`
}

func (s seedItem) entity() *entity.Item {
	buy := decimal.NewFromInt(s.PurchasePrice)
	sell := decimal.NewFromInt(s.SalePrice)
	return &entity.Item{
		Code:             s.Code,
		Name:             s.Name,
		CategoryCode:     s.CategoryCode,
		Unit:             s.Unit,
		ReorderThreshold: s.ReorderThreshold,
		PurchasePrice:    &buy,
		SalePrice:        &sell,
	}
}

// SeedData datos demo embebidos.
type SeedData struct {
	Areas      []entity.Area     `yaml:"areas"`
	Categories []entity.Category `yaml:"categories"`
	Suppliers  []entity.Supplier `yaml:"suppliers"`
	Customers  []entity.Customer `yaml:"customers"`
	Items      []seedItem        `yaml:"items"`
}

// LoadSeedData decodifica el YAML embebido.
func LoadSeedData() (*SeedData, error) {
	var data SeedData
	if err := yaml.Unmarshal(seedYAML, &data); err != nil {
		return nil, fmt.Errorf("decode seed data: %w", err)
	}
	return &data, nil
}

package entity

// Area zona comercial de clientes.
type Area struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Category categoría de artículos.
type Category struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// Supplier proveedor (documentos de entrada).
type Supplier struct {
	Code    string `yaml:"code"`
	Name    string `yaml:"name"`
	Phone   string `yaml:"phone"`
	Email   string `yaml:"email"`
	Address string `yaml:"address"`
}

// Customer cliente (salidas y reclamos).
type Customer struct {
	Code          string `yaml:"code"`
	Name          string `yaml:"name"`
	AreaCode      string `yaml:"area_code"`
	Phone         string `yaml:"phone"`
	ContactPerson string `yaml:"contact_person"`
	Address       string `yaml:"address"`
}

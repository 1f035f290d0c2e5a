package fixtures

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vladislavdragonenkov/comptoirs/internal/domain"
)

// Формат файла набора данных. Денежные значения записываются строками,
// даты в виде YYYY-MM-DD.
type yamlDataset struct {
	Categories []yamlCategory `yaml:"categories"`
	Products   []yamlProduct  `yaml:"products"`
	Customers  []yamlCustomer `yaml:"customers"`
	Orders     []yamlOrder    `yaml:"orders"`
}

type yamlCategory struct {
	Code        int64  `yaml:"code"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

type yamlProduct struct {
	Reference       int64  `yaml:"reference"`
	Name            string `yaml:"name"`
	Category        int64  `yaml:"category"`
	QuantityPerUnit string `yaml:"quantity_per_unit"`
	UnitPrice       string `yaml:"unit_price"`
	UnitsInStock    int32  `yaml:"units_in_stock"`
	UnitsOnOrder    int32  `yaml:"units_on_order"`
	Discontinued    bool   `yaml:"discontinued"`
}

type yamlCustomer struct {
	Code        string `yaml:"code"`
	CompanyName string `yaml:"company_name"`
	ContactName string `yaml:"contact_name"`
}

type yamlOrder struct {
	ID        int64      `yaml:"id"`
	Customer  string     `yaml:"customer"`
	EntryDate string     `yaml:"entry_date"`
	ShippedAt string     `yaml:"shipped_at"`
	Discount  string     `yaml:"discount"`
	Freight   string     `yaml:"freight"`
	Lines     []yamlLine `yaml:"lines"`
}

type yamlLine struct {
	ID       int64 `yaml:"id"`
	Product  int64 `yaml:"product"`
	Quantity int32 `yaml:"quantity"`
}

// LoadYAMLFile читает набор данных из файла.
func LoadYAMLFile(path string) (Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := LoadYAML(bytes.NewReader(raw))
	if err != nil {
		return Dataset{}, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// LoadYAML разбирает набор данных. Неизвестные поля считаются ошибкой.
func LoadYAML(r io.Reader) (Dataset, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc yamlDataset
	if err := dec.Decode(&doc); err != nil {
		return Dataset{}, fmt.Errorf("decode yaml: %w", err)
	}
	return doc.toDataset()
}

func (d yamlDataset) toDataset() (Dataset, error) {
	ds := Dataset{
		Categories: make([]domain.Category, 0, len(d.Categories)),
		Products:   make([]domain.Product, 0, len(d.Products)),
		Customers:  make([]domain.Customer, 0, len(d.Customers)),
		Orders:     make([]domain.Order, 0, len(d.Orders)),
	}

	for _, c := range d.Categories {
		ds.Categories = append(ds.Categories, domain.Category{Code: c.Code, Label: c.Label, Description: c.Description})
	}

	for _, p := range d.Products {
		price, err := parseDecimal(p.UnitPrice)
		if err != nil {
			return Dataset{}, fmt.Errorf("product %d unit_price: %w", p.Reference, err)
		}
		ds.Products = append(ds.Products, domain.Product{
			Reference:       p.Reference,
			Name:            p.Name,
			CategoryCode:    p.Category,
			QuantityPerUnit: p.QuantityPerUnit,
			UnitPrice:       price,
			UnitsInStock:    p.UnitsInStock,
			UnitsOnOrder:    p.UnitsOnOrder,
			Discontinued:    p.Discontinued,
		})
	}

	for _, c := range d.Customers {
		ds.Customers = append(ds.Customers, domain.Customer{Code: c.Code, CompanyName: c.CompanyName, ContactName: c.ContactName})
	}

	for _, o := range d.Orders {
		order, err := o.toOrder()
		if err != nil {
			return Dataset{}, fmt.Errorf("order %d: %w", o.ID, err)
		}
		ds.Orders = append(ds.Orders, order)
	}
	return ds, nil
}

func (o yamlOrder) toOrder() (domain.Order, error) {
	entry, err := time.Parse(time.DateOnly, o.EntryDate)
	if err != nil {
		return domain.Order{}, fmt.Errorf("entry_date: %w", err)
	}
	discount, err := parseDecimal(o.Discount)
	if err != nil {
		return domain.Order{}, fmt.Errorf("discount: %w", err)
	}
	freight, err := parseDecimal(o.Freight)
	if err != nil {
		return domain.Order{}, fmt.Errorf("freight: %w", err)
	}

	order := domain.Order{
		ID:           o.ID,
		CustomerCode: o.Customer,
		EntryDate:    entry,
		Discount:     discount,
		Freight:      freight,
		Lines:        make([]domain.Line, 0, len(o.Lines)),
	}
	if o.ShippedAt != "" {
		shipped, err := time.Parse(time.DateOnly, o.ShippedAt)
		if err != nil {
			return domain.Order{}, fmt.Errorf("shipped_at: %w", err)
		}
		order.ShippedAt = &shipped
	}
	for _, l := range o.Lines {
		order.Lines = append(order.Lines, domain.Line{ID: l.ID, OrderID: o.ID, ProductRef: l.Product, Quantity: l.Quantity})
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		return domain.Order{}, errs[0]
	}
	return order, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

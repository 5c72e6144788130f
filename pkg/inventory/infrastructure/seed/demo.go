package seed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"inventory/pkg/inventory/domain/model"
)

// namespace for deterministic demo product ids derived from barcodes
var productNamespace = uuid.MustParse("6f1c8c2e-5a0b-4c1e-9d7e-2b3f4a5c6d7e")

type demoProduct struct {
	name        string
	description string
	category    string
	price       string
	barcode     string
	quantity    int
	minStock    int
}

var demoCatalog = []demoProduct{
	{"Wireless Mouse", "Ergonomic wireless mouse with USB receiver", "Electronics", "25.99", "ELC001", 50, 10},
	{"USB-C Cable", "Fast charging USB-C cable 2m", "Electronics", "12.99", "ELC002", 100, 20},
	{"Bluetooth Speaker", "Portable Bluetooth speaker with 10hr battery", "Electronics", "45.00", "ELC003", 30, 5},
	{"Phone Case", "Protective phone case for iPhone", "Electronics", "15.99", "ELC004", 75, 15},

	{"Coca Cola 500ml", "Refreshing cola drink", "Beverages", "1.99", "BEV001", 200, 50},
	{"Water Bottle 1L", "Pure mineral water", "Beverages", "0.99", "BEV002", 300, 100},
	{"Orange Juice 1L", "100% pure orange juice", "Beverages", "3.49", "BEV003", 80, 20},

	{"Potato Chips", "Crispy salted potato chips", "Snacks", "2.49", "SNK001", 150, 30},
	{"Chocolate Bar", "Milk chocolate bar 100g", "Snacks", "1.79", "SNK002", 120, 40},
	{"Granola Bar", "Healthy granola bar with nuts", "Snacks", "2.99", "SNK003", 90, 25},

	{"Notebook A5", "Ruled notebook 100 pages", "Stationery", "4.99", "STA001", 60, 15},
	{"Ballpoint Pen Pack", "Pack of 10 blue pens", "Stationery", "5.99", "STA002", 40, 10},
	{"Sticky Notes", "Pack of 3 colorful sticky note pads", "Stationery", "3.49", "STA003", 70, 20},

	{"Hand Sanitizer", "Antibacterial hand sanitizer 250ml", "Personal Care", "4.99", "PC001", 100, 30},
	{"Tissues Box", "Soft facial tissues 200 count", "Personal Care", "2.99", "PC002", 80, 25},
	{"Soap Bar", "Moisturizing soap bar", "Personal Care", "1.99", "PC003", 120, 40},
}

func ProductID(barcode string) uuid.UUID {
	return uuid.NewSHA1(productNamespace, []byte(barcode))
}

// LoadDemoCatalog adds the demo products that are not there yet together
// with their stock rows. It returns how many were created.
func LoadDemoCatalog(ctx context.Context, uow model.UnitOfWork) (int, error) {
	created := 0
	err := uow.Execute(ctx, func(provider model.RepositoryProvider) error {
		now := time.Now().UTC()
		for _, item := range demoCatalog {
			id := ProductID(item.barcode)
			_, err := provider.Products().Find(ctx, id)
			if err == nil {
				continue
			}
			if !errors.Is(err, model.ErrProductNotFound) {
				return err
			}

			product := &model.Product{
				ID:          id,
				Name:        item.name,
				Description: item.description,
				Category:    item.category,
				Barcode:     item.barcode,
				Price:       decimal.RequireFromString(item.price),
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := provider.Products().Store(ctx, product); err != nil {
				return errors.WithMessagef(err, "seed %s", item.barcode)
			}
			if err := provider.Stock().Create(ctx, &model.StockRecord{
				ProductID:     id,
				Quantity:      item.quantity,
				MinStockLevel: item.minStock,
				UpdatedAt:     now,
			}); err != nil {
				return errors.WithMessagef(err, "seed stock for %s", item.barcode)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

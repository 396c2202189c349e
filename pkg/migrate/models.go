package migrate

import "github.com/angelmondragon/marketplace-payments/pkg/db/models"

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&models.StockLocation{},
		&models.Variant{},
		&models.Seller{},
		&models.Price{},
		&models.StockItem{},
		&models.Order{},
		&models.LineItem{},
		&models.Shipment{},
		&models.Payment{},
		&models.PaymentSource{},
		&models.Refund{},
		&models.OutboxEvent{},
	}
}

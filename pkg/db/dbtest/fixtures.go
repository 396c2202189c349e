package dbtest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

// Line describes one order line item. A non-zero Percentage creates a new
// seller with that platform percentage and assigns it to the line.
type Line struct {
	Total      decimal.Decimal
	Percentage decimal.Decimal
}

// PaymentOptions configures SeedPayment. Zero values fall back to a USD 100.00
// PayPal payment in pending.
type PaymentOptions struct {
	Processor       enums.PaymentProcessor
	Status          enums.PaymentSourceStatus
	Currency        string
	Total           decimal.Decimal
	AuthorizationID string
	CaptureID       string
	RefundedAmount  decimal.Decimal
	Lines           []Line
}

type PaymentFixture struct {
	Order   *models.Order
	Payment *models.Payment
	Source  *models.PaymentSource
	Sellers []*models.Seller
}

// SeedPayment inserts an order with its line items, sellers, payment and source.
func SeedPayment(t testing.TB, conn *gorm.DB, opts PaymentOptions) *PaymentFixture {
	t.Helper()
	if opts.Processor == "" {
		opts.Processor = enums.PaymentProcessorPayPal
	}
	if opts.Status == "" {
		opts.Status = enums.PaymentSourceStatusPending
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.Total.IsZero() {
		opts.Total = decimal.NewFromInt(100)
	}

	fx := &PaymentFixture{}
	fx.Order = &models.Order{Number: "R" + uuid.NewString()[:8], Currency: opts.Currency, Total: opts.Total}
	mustCreate(t, conn, fx.Order)

	for _, line := range opts.Lines {
		item := &models.LineItem{
			OrderID:   fx.Order.ID,
			VariantID: uuid.New(),
			Quantity:  1,
			Price:     line.Total,
			Total:     line.Total,
		}
		if !line.Percentage.IsZero() {
			location := &models.StockLocation{Name: "loc-" + uuid.NewString()[:6]}
			mustCreate(t, conn, location)
			seller := &models.Seller{
				Name:            "seller-" + uuid.NewString()[:6],
				Percentage:      line.Percentage,
				StockLocationID: location.ID,
			}
			mustCreate(t, conn, seller)
			fx.Sellers = append(fx.Sellers, seller)
			item.SellerID = &seller.ID
		}
		mustCreate(t, conn, item)
	}

	fx.Payment = &models.Payment{OrderID: fx.Order.ID, Amount: opts.Total}
	mustCreate(t, conn, fx.Payment)

	fx.Source = &models.PaymentSource{
		PaymentID:       fx.Payment.ID,
		Processor:       opts.Processor,
		ExternalOrderID: "EXT-" + uuid.NewString()[:8],
		ResponseStatus:  opts.Status,
		RefundedAmount:  opts.RefundedAmount,
	}
	if opts.AuthorizationID != "" {
		fx.Source.AuthorizationID = &opts.AuthorizationID
	}
	if opts.CaptureID != "" {
		fx.Source.CaptureID = &opts.CaptureID
	}
	mustCreate(t, conn, fx.Source)
	return fx
}

func mustCreate(t testing.TB, conn *gorm.DB, value any) {
	t.Helper()
	if err := conn.Create(value).Error; err != nil {
		t.Fatalf("seed %T: %v", value, err)
	}
}

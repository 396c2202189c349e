package pricing

import (
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

// SellerPrice is a price plus a buffered seller stock availability write.
// The write is applied by Service.Save together with the price.
type SellerPrice struct {
	Price   *models.Price
	pending *int
}

func NewSellerPrice(price *models.Price) *SellerPrice {
	return &SellerPrice{Price: price}
}

// SetSellerStockAvailability buffers count as the new on-hand count.
func (sp *SellerPrice) SetSellerStockAvailability(count int) {
	sp.pending = &count
}

// PendingAvailability returns the buffered count, if any.
func (sp *SellerPrice) PendingAvailability() (int, bool) {
	if sp.pending == nil {
		return 0, false
	}
	return *sp.pending, true
}

// Validate reports field errors for the buffered write.
func (sp *SellerPrice) Validate() error {
	if sp == nil || sp.Price == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	count, ok := sp.PendingAvailability()
	if !ok {
		return nil
	}
	details := map[string]string{}
	if sp.Price.SellerID == nil {
		details["seller"] = "blank"
	}
	if count < 0 {
		details["seller_stock_availability"] = "must be at least 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

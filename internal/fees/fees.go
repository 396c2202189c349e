// Package fees computes the platform's share of each seller's sale.
package fees

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
)

var hundred = decimal.NewFromInt(100)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "HUF": {}, "JPY": {}, "KMF": {},
	"KRW": {}, "MGA": {}, "PYG": {}, "RWF": {}, "TWD": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// PlatformFee is the fee withheld from one seller. SellerID is zero when the
// fee was computed outside an order context.
type PlatformFee struct {
	SellerID     uuid.UUID
	CurrencyCode string
	Value        decimal.Decimal
}

// String renders the value with the currency's precision, e.g. "10.00".
func (f PlatformFee) String() string {
	return f.Value.StringFixed(Precision(f.CurrencyCode))
}

// Precision is the number of minor-unit digits for a currency.
func Precision(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[strings.ToUpper(strings.TrimSpace(currency))]; ok {
		return 0
	}
	return 2
}

// Fee returns round(total * percentage / 100) rounded half-up to the
// currency's precision.
func Fee(total decimal.Decimal, currency string, percentage decimal.Decimal) PlatformFee {
	value := total.Mul(percentage).Div(hundred).Round(Precision(currency))
	return PlatformFee{
		CurrencyCode: strings.ToUpper(strings.TrimSpace(currency)),
		Value:        value,
	}
}

// ToMinorUnits converts an amount to the processor's integer representation.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	precision := Precision(currency)
	return amount.Round(precision).Shift(precision).IntPart()
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(units int64, currency string) decimal.Decimal {
	return decimal.New(units, -Precision(currency))
}

// ForOrder returns one fee per distinct seller on the order, in the order the
// sellers first appear on its line items. Every seller's fee is its percentage
// of the order total, shipping and tax included.
func ForOrder(order *models.Order, sellers map[uuid.UUID]*models.Seller) ([]PlatformFee, error) {
	if order == nil {
		return nil, fmt.Errorf("order is required")
	}

	seen := map[uuid.UUID]struct{}{}
	var ordered []uuid.UUID
	for _, item := range order.LineItems {
		if item.SellerID == nil {
			continue
		}
		if _, ok := seen[*item.SellerID]; ok {
			continue
		}
		seen[*item.SellerID] = struct{}{}
		ordered = append(ordered, *item.SellerID)
	}

	fees := make([]PlatformFee, 0, len(ordered))
	for _, id := range ordered {
		seller, ok := sellers[id]
		if !ok || seller == nil {
			return nil, fmt.Errorf("seller %s not loaded", id)
		}
		fee := Fee(order.Total, order.Currency, seller.Percentage)
		fee.SellerID = id
		fees = append(fees, fee)
	}
	return fees, nil
}

// Total sums fee values.
func Total(fees []PlatformFee) decimal.Decimal {
	sum := decimal.Zero
	for _, f := range fees {
		sum = sum.Add(f.Value)
	}
	return sum
}

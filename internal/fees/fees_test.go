package fees

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFeeRoundsHalfUp(t *testing.T) {
	cases := []struct {
		total, pct, currency, want string
	}{
		{"100.00", "10", "USD", "10.00"},
		{"33.33", "15", "USD", "5.00"},
		{"0.10", "5", "usd", "0.01"},
		{"0.30", "5", "USD", "0.02"},
		{"19.99", "0", "EUR", "0.00"},
		{"250.00", "100", "USD", "250.00"},
		{"1005", "1", "JPY", "10"},
		{"1000", "12.5", "JPY", "125"},
	}
	for _, tc := range cases {
		fee := Fee(dec(tc.total), tc.currency, dec(tc.pct))
		assert.Equal(t, tc.want, fee.String(), "total=%s pct=%s", tc.total, tc.pct)
	}
}

func TestFeeNormalizesCurrency(t *testing.T) {
	fee := Fee(dec("10"), " usd ", dec("10"))
	assert.Equal(t, "USD", fee.CurrencyCode)
}

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1050), ToMinorUnits(dec("10.5"), "USD"))
	assert.Equal(t, int64(125), ToMinorUnits(dec("125"), "JPY"))
	assert.True(t, dec("10.50").Equal(FromMinorUnits(1050, "USD")))
	assert.True(t, dec("125").Equal(FromMinorUnits(125, "JPY")))
}

func TestForOrderOneFeePerSeller(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	sellers := map[uuid.UUID]*models.Seller{
		a: {ID: a, Percentage: dec("10")},
		b: {ID: b, Percentage: dec("20")},
	}
	order := &models.Order{
		Currency: "USD",
		Total:    dec("60.00"),
		LineItems: []models.LineItem{
			{SellerID: &a, Total: dec("10.00")},
			{SellerID: &b, Total: dec("30.00")},
			{SellerID: &a, Total: dec("20.00")},
		},
	}

	got, err := ForOrder(order, sellers)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].SellerID)
	assert.Equal(t, "6.00", got[0].String())
	assert.Equal(t, b, got[1].SellerID)
	assert.Equal(t, "12.00", got[1].String())
	assert.Equal(t, "18.00", Total(got).StringFixed(2))
}

func TestForOrderUsesOrderTotalWithPlatformLines(t *testing.T) {
	a := uuid.New()
	order := &models.Order{
		Currency: "USD",
		Total:    dec("100.00"),
		LineItems: []models.LineItem{
			{SellerID: &a, Total: dec("70.00")},
			{Total: dec("20.00")},
		},
	}
	got, err := ForOrder(order, map[uuid.UUID]*models.Seller{a: {ID: a, Percentage: dec("10")}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10.00", got[0].String())
}

func TestForOrderMissingSeller(t *testing.T) {
	a := uuid.New()
	order := &models.Order{Currency: "USD", LineItems: []models.LineItem{{SellerID: &a}}}
	_, err := ForOrder(order, nil)
	assert.Error(t, err)

	got, err := ForOrder(&models.Order{Currency: "USD", LineItems: []models.LineItem{{}}}, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

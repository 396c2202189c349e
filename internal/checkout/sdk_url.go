// Package checkout builds the client-side bootstrap for the processor's
// payment buttons.
package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

const (
	sdkBaseURL = "https://www.paypal.com/sdk/js"

	// ConfirmStep is the checkout step that makes buyers review before paying.
	ConfirmStep = "confirm"
)

// Preferences are the storefront settings that shape the SDK bootstrap.
type Preferences struct {
	ClientID               string
	DisplayCreditMessaging bool
}

// SDKURL returns the PayPal JS SDK URL for order. Payments are committed in
// the popup only when no separate confirm step follows it.
func SDKURL(order *models.Order, prefs Preferences) string {
	components := []string{"buttons"}
	if prefs.DisplayCreditMessaging {
		components = append(components, "messages")
	}
	commit := true
	currency := ""
	if order != nil {
		commit = !order.HasCheckoutStep(ConfirmStep)
		currency = strings.ToUpper(order.Currency)
	}

	query := url.Values{}
	query.Set("client-id", prefs.ClientID)
	query.Set("currency", currency)
	query.Set("intent", "authorize")
	query.Set("commit", strconv.FormatBool(commit))
	query.Set("components", strings.Join(components, ","))
	return sdkBaseURL + "?" + query.Encode()
}

type orderReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

type Service interface {
	SDKURL(ctx context.Context, orderID uuid.UUID) (string, error)
}

type service struct {
	orders orderReader
	prefs  Preferences
}

func NewService(orders orderReader, prefs Preferences) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if strings.TrimSpace(prefs.ClientID) == "" {
		return nil, fmt.Errorf("paypal client id required")
	}
	return &service{orders: orders, prefs: prefs}, nil
}

func (s *service) SDKURL(ctx context.Context, orderID uuid.UUID) (string, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return SDKURL(order, s.prefs), nil
}

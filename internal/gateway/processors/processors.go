// Package processors selects the processor adapter for a deployment.
package processors

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/marketplace-payments/internal/gateway"
	"github.com/angelmondragon/marketplace-payments/internal/gateway/paypalgw"
	"github.com/angelmondragon/marketplace-payments/internal/gateway/squaregw"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
	"github.com/angelmondragon/marketplace-payments/pkg/square"
)

// New builds the adapter named by PAYMENTS_GATEWAY_PROCESSOR. ctx must outlive
// the adapter because the PayPal token source refreshes on it.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (gateway.Processor, error) {
	name := enums.PaymentProcessor(strings.ToLower(strings.TrimSpace(cfg.Gateway.Processor)))
	switch name {
	case enums.PaymentProcessorPayPal:
		exec, err := paypal.NewHTTPExecutor(ctx, cfg.PayPal, cfg.Gateway.Timeout)
		if err != nil {
			return nil, fmt.Errorf("paypal executor: %w", err)
		}
		proc, err := paypalgw.New(exec, cfg.PayPal, logg)
		if err != nil {
			return nil, err
		}
		return proc, nil
	case enums.PaymentProcessorSquare:
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			return nil, fmt.Errorf("square client: %w", err)
		}
		proc, err := squaregw.New(squaregw.NewSquareClient(client), cfg.Square.LocationID)
		if err != nil {
			return nil, err
		}
		return proc, nil
	default:
		return nil, fmt.Errorf("unknown processor %q", cfg.Gateway.Processor)
	}
}

package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/marketplace-payments/internal/webhooks"
)

const maxWebhookBody = 1 << 20

// DeliveryReceiver reconciles a normalized processor delivery.
type DeliveryReceiver interface {
	Receive(ctx context.Context, event webhooks.Event) webhooks.Result
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
}

package webhooks

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/internal/webhooks"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
	"github.com/angelmondragon/marketplace-payments/pkg/paypal"
)

// PayPalExecutor sends the verify-webhook-signature call.
type PayPalExecutor interface {
	Execute(ctx context.Context, req *paypal.Request) (*paypal.Response, error)
}

// PayPalWebhook verifies and reconciles PayPal payment notifications. When
// webhookID is empty the signature round trip is skipped.
func PayPalWebhook(svc DeliveryReceiver, exec PayPalExecutor, webhookID string, logg *logger.Logger) http.HandlerFunc {
	webhookID = strings.TrimSpace(webhookID)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		payload, err := readBody(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		if webhookID != "" {
			if err := verifyPayPal(ctx, exec, webhookID, r.Header, payload); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		raw, err := paypal.ParseWebhookEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode event"))
			return
		}

		result := svc.Receive(ctx, webhooks.FromPayPal(raw))
		responses.WriteRaw(w, http.StatusOK, result)
	}
}

func verifyPayPal(ctx context.Context, exec PayPalExecutor, webhookID string, headers http.Header, payload []byte) error {
	if exec == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "paypal client unavailable")
	}
	req, err := paypal.VerifyWebhookSignature(webhookID, headers, payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "paypal signature missing")
	}
	resp, err := exec.Execute(ctx, req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify paypal signature")
	}
	ok, err := paypal.SignatureVerified(resp)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode paypal verification")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paypal signature")
	}
	return nil
}

package checkout

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/api/validators"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

type sdkURLBuilder interface {
	SDKURL(ctx context.Context, orderID uuid.UUID) (string, error)
}

type SDKURLResponse struct {
	URL string `json:"url"`
}

// SDKURL returns the script URL the storefront loads to render payment buttons.
func SDKURL(svc sdkURLBuilder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "paypal checkout is not configured"))
			return
		}
		orderID, err := validators.UUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		url, err := svc.SDKURL(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, SDKURLResponse{URL: url})
	}
}

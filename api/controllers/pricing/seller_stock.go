package pricing

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/api/middleware"
	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/api/validators"
	internalpricing "github.com/angelmondragon/marketplace-payments/internal/pricing"
	"github.com/angelmondragon/marketplace-payments/pkg/auth"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

type priceManager interface {
	GetPrice(ctx context.Context, id uuid.UUID) (*models.Price, error)
	SellerStockAvailability(ctx context.Context, price *models.Price) (*int, error)
	Save(ctx context.Context, sp *internalpricing.SellerPrice) error
	CanManage(actor auth.Actor, price *models.Price) bool
}

type updateSellerStockRequest struct {
	SellerStockAvailability *int `json:"seller_stock_availability" validate:"required"`
}

// SellerStockResponse reports the stock a seller's price is fulfilled from.
// SellerStockAvailability is null for prices without a seller.
type SellerStockResponse struct {
	PriceID                 uuid.UUID  `json:"price_id"`
	VariantID               uuid.UUID  `json:"variant_id"`
	SellerID                *uuid.UUID `json:"seller_id"`
	SellerStockAvailability *int       `json:"seller_stock_availability"`
}

// GetSellerStock returns the seller-scoped availability for a price.
func GetSellerStock(svc priceManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		price, err := managedPrice(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		count, err := svc.SellerStockAvailability(ctx, price)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, toResponse(price, count))
	}
}

// UpdateSellerStock sets the on-hand count at the seller's stock location
// and saves the price in the same transaction.
func UpdateSellerStock(svc priceManager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		price, err := managedPrice(r, svc)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateSellerStockRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sp := internalpricing.NewSellerPrice(price)
		sp.SetSellerStockAvailability(*req.SellerStockAvailability)
		if err := svc.Save(ctx, sp); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		count := *req.SellerStockAvailability
		responses.WriteSuccess(w, toResponse(price, &count))
	}
}

func managedPrice(r *http.Request, svc priceManager) (*models.Price, error) {
	if svc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable")
	}
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := validators.UUIDParam(r, "priceId")
	if err != nil {
		return nil, err
	}
	price, err := svc.GetPrice(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !svc.CanManage(actor, price) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "price belongs to another seller")
	}
	return price, nil
}

func toResponse(price *models.Price, count *int) SellerStockResponse {
	return SellerStockResponse{
		PriceID:                 price.ID,
		VariantID:               price.VariantID,
		SellerID:                price.SellerID,
		SellerStockAvailability: count,
	}
}

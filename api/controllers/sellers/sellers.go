package sellers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/api/validators"
	internalsellers "github.com/angelmondragon/marketplace-payments/internal/sellers"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

const maxNameLength = 120

type sellerCreator interface {
	Create(ctx context.Context, input internalsellers.CreateSellerInput) (*models.Seller, error)
}

type createSellerRequest struct {
	Name            string           `json:"name" validate:"required"`
	Percentage      *decimal.Decimal `json:"percentage" validate:"required,gte=0,lte=100"`
	StockLocationID *uuid.UUID       `json:"stock_location_id"`
	MerchantID      *string          `json:"merchant_id"`
}

// SellerResponse is the public view of a seller.
type SellerResponse struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Percentage      decimal.Decimal `json:"percentage"`
	StockLocationID uuid.UUID       `json:"stock_location_id"`
	MerchantID      *string         `json:"merchant_id,omitempty"`
}

// Create registers a seller. Percentage must fall within 0..100.
func Create(svc sellerCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sellers service unavailable"))
			return
		}

		var req createSellerRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		seller, err := svc.Create(ctx, internalsellers.CreateSellerInput{
			Name:            validators.Text(req.Name, maxNameLength),
			Percentage:      *req.Percentage,
			StockLocationID: req.StockLocationID,
			MerchantID:      req.MerchantID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithSellerID(ctx, seller.ID.String()), "seller created")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, SellerResponse{
			ID:              seller.ID,
			Name:            seller.Name,
			Percentage:      seller.Percentage,
			StockLocationID: seller.StockLocationID,
			MerchantID:      seller.MerchantID,
		})
	}
}

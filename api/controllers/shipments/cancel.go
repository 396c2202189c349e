package shipments

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-payments/api/responses"
	"github.com/angelmondragon/marketplace-payments/api/validators"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

type shipmentCanceler interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	Cancel(ctx context.Context, shipment *models.Shipment) (bool, error)
}

type CancelResponse struct {
	ShipmentID uuid.UUID `json:"shipment_id"`
	Number     string    `json:"number"`
	State      string    `json:"state"`
	Canceled   bool      `json:"canceled"`
}

// Cancel cancels a ready shipment. A shipment in any other state is left
// alone and reported with canceled=false.
func Cancel(svc shipmentCanceler, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipments service unavailable"))
			return
		}
		id, err := validators.UUIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		shipment, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		canceled, err := svc.Cancel(ctx, shipment)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, CancelResponse{
			ShipmentID: shipment.ID,
			Number:     shipment.Number,
			State:      string(shipment.State),
			Canceled:   canceled,
		})
	}
}

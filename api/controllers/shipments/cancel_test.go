package shipments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshipments "github.com/angelmondragon/marketplace-payments/internal/shipments"
	"github.com/angelmondragon/marketplace-payments/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

func cancelRouter(t *testing.T) (http.Handler, func(state enums.ShipmentState) *models.Shipment) {
	t.Helper()
	client := dbtest.Open(t)
	conn := client.DB()
	svc, err := internalshipments.NewService(internalshipments.NewRepository(conn), nil)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Post("/shipments/{shipmentId}/cancel", Cancel(svc, nil))

	seed := func(state enums.ShipmentState) *models.Shipment {
		shipment := &models.Shipment{OrderID: uuid.New(), Number: "H" + uuid.NewString()[:8], State: state}
		require.NoError(t, conn.Create(shipment).Error)
		return shipment
	}
	return r, seed
}

func cancel(h http.Handler, id string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/shipments/"+id+"/cancel", nil))
	return rec
}

func readCancel(t *testing.T, rec *httptest.ResponseRecorder) CancelResponse {
	t.Helper()
	var env struct {
		Data CancelResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env.Data
}

func TestCancelReadyShipment(t *testing.T) {
	h, seed := cancelRouter(t)
	shipment := seed(enums.ShipmentStateReady)

	rec := cancel(h, shipment.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := readCancel(t, rec)
	assert.True(t, out.Canceled)
	assert.Equal(t, "canceled", out.State)

	rec = cancel(h, shipment.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, readCancel(t, rec).Canceled)
}

func TestCancelShippedShipmentIsNoop(t *testing.T) {
	h, seed := cancelRouter(t)
	shipment := seed(enums.ShipmentStateShipped)

	rec := cancel(h, shipment.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	out := readCancel(t, rec)
	assert.False(t, out.Canceled)
	assert.Equal(t, "shipped", out.State)
}

func TestCancelUnknownShipment(t *testing.T) {
	h, _ := cancelRouter(t)
	assert.Equal(t, http.StatusNotFound, cancel(h, uuid.NewString()).Code)
	assert.Equal(t, http.StatusBadRequest, cancel(h, "nope").Code)
}

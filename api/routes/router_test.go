package routes

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-payments/api/controllers"
	internalsellers "github.com/angelmondragon/marketplace-payments/internal/sellers"
	"github.com/angelmondragon/marketplace-payments/pkg/auth"
	"github.com/angelmondragon/marketplace-payments/pkg/config"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	"github.com/angelmondragon/marketplace-payments/pkg/redis"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSellers struct{ created int }

func (s *stubSellers) Create(_ context.Context, input internalsellers.CreateSellerInput) (*models.Seller, error) {
	s.created++
	return &models.Seller{ID: uuid.New(), Name: input.Name, Percentage: input.Percentage, StockLocationID: uuid.New()}, nil
}

func (s *stubSellers) Get(context.Context, uuid.UUID) (*models.Seller, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSellers) GetMany(context.Context, []uuid.UUID) (map[uuid.UUID]*models.Seller, error) {
	return nil, errors.New("not implemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", AllowedOrigins: []string{"https://shop.example"}},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "payments-test", ExpirationMinutes: 5},
	}
}

func token(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	actor := auth.Actor{ID: uuid.New(), Role: role}
	if role == enums.ActorRoleSeller {
		sellerID := uuid.New()
		actor.SellerID = &sellerID
	}
	raw, err := auth.MintAccessToken(cfg.JWT, time.Now(), actor)
	require.NoError(t, err)
	return raw
}

func newTestRouter(t *testing.T, sellers *stubSellers, ready map[string]controllers.Pinger) (http.Handler, *config.Config) {
	t.Helper()
	cfg := testConfig()
	mr := miniredis.RunT(t)
	store := redis.NewFromRedis(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = store.Close() })

	deps := Dependencies{
		Config:      cfg,
		Ready:       ready,
		Idempotency: store,
		Gatherer:    prometheus.NewRegistry(),
	}
	if sellers != nil {
		deps.Sellers = sellers
	}
	return NewRouter(deps), cfg
}

func do(h http.Handler, method, path, bearer, idemKey, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	h, _ := newTestRouter(t, nil, map[string]controllers.Pinger{"db": stubPinger{}})
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/live", "", "", "").Code)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health/ready", "", "", "").Code)

	h, _ = newTestRouter(t, nil, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("down")}})
	assert.Equal(t, http.StatusServiceUnavailable, do(h, http.MethodGet, "/health/ready", "", "", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders/"+uuid.NewString()+"/checkout/sdk-url", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/orders/"+uuid.NewString()+"/checkout/sdk-url", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)
	rec := do(h, http.MethodGet, "/metrics", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	h, cfg := newTestRouter(t, &stubSellers{}, nil)
	path := "/api/v1/payments/" + uuid.NewString() + "/capture"

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, path, "", "k1", "").Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodPost, path, token(t, cfg, enums.ActorRoleSeller), "k1", "").Code)
	assert.Equal(t, http.StatusForbidden, do(h, http.MethodPost, "/api/v1/sellers", token(t, cfg, enums.ActorRoleSeller), "k1", "{}").Code)
}

func TestAdminRoutesRequireIdempotencyKey(t *testing.T) {
	sellers := &stubSellers{}
	h, cfg := newTestRouter(t, sellers, nil)
	admin := token(t, cfg, enums.ActorRoleAdmin)

	rec := do(h, http.MethodPost, "/api/v1/sellers", admin, "", `{"name":"Acme","percentage":10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Idempotency-Key")
	assert.Zero(t, sellers.created)
}

func TestCreateSellerReplaysByIdempotencyKey(t *testing.T) {
	sellers := &stubSellers{}
	h, cfg := newTestRouter(t, sellers, nil)
	admin := token(t, cfg, enums.ActorRoleAdmin)
	body := `{"name":"Acme","percentage":10}`

	first := do(h, http.MethodPost, "/api/v1/sellers", admin, "seller-1", body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := do(h, http.MethodPost, "/api/v1/sellers", admin, "seller-1", body)
	require.Equal(t, http.StatusCreated, second.Code)

	assert.Equal(t, 1, sellers.created)
	assert.Equal(t, first.Body.String(), second.Body.String())

	conflict := do(h, http.MethodPost, "/api/v1/sellers", admin, "seller-1", `{"name":"Other","percentage":10}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestWebhookRoutesArePublic(t *testing.T) {
	h, _ := newTestRouter(t, nil, nil)
	rec := do(h, http.MethodPost, "/api/v1/webhooks/square", "", "", `{"event_id":"EV-1"}`)
	// No receiver wired: the route exists and fails closed without asking for a token.
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "UNAUTHORIZED"))
}

func TestPricesAllowSellers(t *testing.T) {
	h, cfg := newTestRouter(t, nil, nil)
	path := "/api/v1/prices/" + uuid.NewString() + "/seller-stock"

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodGet, path, "", "", "").Code)
	// Pricing is not wired here, so an authorised seller reaches the handler.
	assert.Equal(t, http.StatusInternalServerError, do(h, http.MethodGet, path, token(t, cfg, enums.ActorRoleSeller), "", "").Code)
}

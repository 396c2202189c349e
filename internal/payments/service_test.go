package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db"
	"github.com/angelmondragon/marketplace-payments/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/outbox"
)

type harness struct {
	client *db.Client
	repo   *Repository
	svc    Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc, err := NewService(client, repo, outbox.NewService(outbox.NewRepository(client.DB()), nil), nil)
	require.NoError(t, err)
	return &harness{client: client, repo: repo, svc: svc}
}

func (h *harness) seedSource(t *testing.T, status enums.PaymentSourceStatus) *models.PaymentSource {
	t.Helper()
	conn := h.client.DB()
	order := &models.Order{Number: "R" + uuid.NewString()[:8], Currency: "USD", Total: decimal.NewFromInt(100)}
	require.NoError(t, conn.Create(order).Error)
	payment := &models.Payment{OrderID: order.ID, Amount: order.Total}
	require.NoError(t, conn.Create(payment).Error)
	source := &models.PaymentSource{
		PaymentID:       payment.ID,
		Processor:       enums.PaymentProcessorPayPal,
		ExternalOrderID: "ORDER-" + uuid.NewString()[:8],
		ResponseStatus:  status,
	}
	require.NoError(t, conn.Create(source).Error)
	return source
}

func (h *harness) outboxCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.client.DB().Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func TestApplyAuthorizeStoresIdentifierAndEmits(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, pending)

	result, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventAuthorized, AuthorizationID: "AUTH-1"})
	require.NoError(t, err)
	assert.True(t, result.Changed())
	assert.Equal(t, authorized, result.Source.ResponseStatus)
	require.NotNil(t, result.Source.AuthorizationID)
	assert.Equal(t, "AUTH-1", *result.Source.AuthorizationID)
	assert.Equal(t, int64(1), h.outboxCount(t))

	stored, err := h.svc.GetSource(context.Background(), source.ID)
	require.NoError(t, err)
	assert.Equal(t, authorized, stored.ResponseStatus)
}

func TestApplyCaptureTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, authorized)
	ctx := context.Background()

	_, err := h.svc.Apply(ctx, source.ID, Change{Event: EventCaptured, CaptureID: "CAP-1"})
	require.NoError(t, err)

	result, err := h.svc.Apply(ctx, source.ID, Change{Event: EventCaptureConfirmed, CaptureID: "CAP-OTHER"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)
	assert.Equal(t, "CAP-1", *result.Source.CaptureID)
	assert.Equal(t, int64(1), h.outboxCount(t))
}

func TestApplyNoopFillsBlankCaptureID(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, completed)

	result, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventCaptureConfirmed, CaptureID: "CAP-9"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)
	require.NotNil(t, result.Source.CaptureID)
	assert.Equal(t, "CAP-9", *result.Source.CaptureID)
	assert.Zero(t, h.outboxCount(t))
}

func TestApplyStaleEventDoesNotRegress(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, completed)

	result, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventAuthorized, AuthorizationID: "AUTH-LATE"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeStale, result.Outcome)

	stored, err := h.svc.GetSource(context.Background(), source.ID)
	require.NoError(t, err)
	assert.Equal(t, completed, stored.ResponseStatus)
	assert.Nil(t, stored.AuthorizationID)
}

func TestApplyInvalidTransition(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, pending)

	_, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventVoided})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}

func TestApplyFailureRecordsReason(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, authorized)

	result, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventCaptureDenied, FailureReason: "INSTRUMENT_DECLINED"})
	require.NoError(t, err)
	assert.Equal(t, failed, result.Source.ResponseStatus)
	require.NotNil(t, result.Source.FailureReason)
	assert.Equal(t, "INSTRUMENT_DECLINED", *result.Source.FailureReason)
}

func TestApplyRefundRecordsRefundRow(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, completed)
	ctx := context.Background()

	_, err := h.svc.Apply(ctx, source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundID:       "REF-1",
		RefundedAmount: decimal.NewFromInt(40),
		Refund:         &models.Refund{PaymentID: source.PaymentID, Amount: decimal.NewFromInt(40)},
	})
	require.NoError(t, err)

	result, err := h.svc.Apply(ctx, source.ID, Change{
		Event:          EventRefunded,
		RefundID:       "REF-2",
		RefundedAmount: decimal.NewFromInt(60),
		Refund:         &models.Refund{PaymentID: source.PaymentID, Amount: decimal.NewFromInt(60)},
	})
	require.NoError(t, err)
	assert.Equal(t, refunded, result.Source.ResponseStatus)
	assert.True(t, result.Source.RefundedAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "REF-1", *result.Source.RefundID)

	var refunds int64
	require.NoError(t, h.client.DB().Model(&models.Refund{}).Where("payment_id = ?", source.PaymentID).Count(&refunds).Error)
	assert.Equal(t, int64(2), refunds)
	assert.Equal(t, int64(2), h.outboxCount(t))
}

func TestApplyUnknownSource(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Apply(context.Background(), uuid.New(), Change{Event: EventAuthorized})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

type flakyRepo struct {
	*Repository
	losses int
	calls  int
}

func (f *flakyRepo) CompareAndSwapTx(tx *gorm.DB, expected *models.PaymentSource, updates map[string]any) (bool, error) {
	f.calls++
	if f.calls <= f.losses {
		return false, nil
	}
	return f.Repository.CompareAndSwapTx(tx, expected, updates)
}

// staleReadRepo hands the first reader a refunded amount from before another
// writer's refund committed.
type staleReadRepo struct {
	*Repository
	staleAmount decimal.Decimal
	reads       int
}

func (r *staleReadRepo) FindSourceByIDTx(tx *gorm.DB, id uuid.UUID) (*models.PaymentSource, error) {
	source, err := r.Repository.FindSourceByIDTx(tx, id)
	r.reads++
	if err == nil && r.reads == 1 {
		source.RefundedAmount = r.staleAmount
	}
	return source, err
}

func (h *harness) partiallyRefunded(t *testing.T, amount decimal.Decimal) *models.PaymentSource {
	t.Helper()
	source := h.seedSource(t, completed)
	_, err := h.svc.Apply(context.Background(), source.ID, Change{Event: EventPartiallyRefunded, RefundedAmount: amount})
	require.NoError(t, err)
	return source
}

func (h *harness) commitRefundedAmount(t *testing.T, source *models.PaymentSource, total decimal.Decimal) {
	t.Helper()
	require.NoError(t, h.client.DB().Model(&models.PaymentSource{}).
		Where("id = ?", source.ID).Update("refunded_amount", total).Error)
}

func TestApplyConcurrentPartialRefundsKeepBothAmounts(t *testing.T) {
	h := newHarness(t)
	source := h.partiallyRefunded(t, decimal.NewFromInt(10))
	h.commitRefundedAmount(t, source, decimal.NewFromInt(30))
	repo := &staleReadRepo{Repository: h.repo, staleAmount: decimal.NewFromInt(10)}
	svc, err := NewService(h.client, repo, outbox.NewService(outbox.NewRepository(h.client.DB()), nil), nil)
	require.NoError(t, err)

	result, err := svc.Apply(context.Background(), source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundedAmount: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.reads)
	assert.Equal(t, partiallyRefunded, result.Source.ResponseStatus)

	stored, err := h.svc.GetSource(context.Background(), source.ID)
	require.NoError(t, err)
	assert.Equal(t, "60.00", stored.RefundedAmount.StringFixed(2))
}

func TestApplyConcurrentPartialRefundsReachFullRefund(t *testing.T) {
	h := newHarness(t)
	source := h.partiallyRefunded(t, decimal.NewFromInt(40))
	h.commitRefundedAmount(t, source, decimal.NewFromInt(70))
	repo := &staleReadRepo{Repository: h.repo, staleAmount: decimal.NewFromInt(40)}
	svc, err := NewService(h.client, repo, outbox.NewService(outbox.NewRepository(h.client.DB()), nil), nil)
	require.NoError(t, err)

	result, err := svc.Apply(context.Background(), source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundedAmount: decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	assert.Equal(t, refunded, result.Source.ResponseStatus)
	assert.Equal(t, "100.00", result.Source.RefundedAmount.StringFixed(2))
}

func TestApplyRefundBeyondBalanceFails(t *testing.T) {
	h := newHarness(t)
	source := h.partiallyRefunded(t, decimal.NewFromInt(80))

	_, err := h.svc.Apply(context.Background(), source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundedAmount: decimal.NewFromInt(30),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestApplyRefundWithRecordedProcessorIDIsNoop(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, completed)
	ctx := context.Background()
	processorID := "REF-9"

	_, err := h.svc.Apply(ctx, source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundedAmount: decimal.NewFromInt(25),
		Refund:         &models.Refund{PaymentID: source.PaymentID, ProcessorRefundID: &processorID},
	})
	require.NoError(t, err)

	result, err := h.svc.Apply(ctx, source.ID, Change{
		Event:          EventPartiallyRefunded,
		RefundedAmount: decimal.NewFromInt(25),
		Refund:         &models.Refund{PaymentID: source.PaymentID, ProcessorRefundID: &processorID},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoop, result.Outcome)
	assert.Equal(t, "25.00", result.Source.RefundedAmount.StringFixed(2))

	var stored models.Refund
	require.NoError(t, h.client.DB().Where("processor_refund_id = ?", processorID).First(&stored).Error)
	assert.Equal(t, "25.00", stored.Amount.StringFixed(2))
}

func TestApplyRetriesLostCompareAndSwap(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, authorized)
	repo := &flakyRepo{Repository: h.repo, losses: 1}
	svc, err := NewService(h.client, repo, outbox.NewService(outbox.NewRepository(h.client.DB()), nil), nil)
	require.NoError(t, err)

	result, err := svc.Apply(context.Background(), source.ID, Change{Event: EventCaptured, CaptureID: "CAP-1"})
	require.NoError(t, err)
	assert.Equal(t, completed, result.Source.ResponseStatus)
	assert.Equal(t, 2, repo.calls)
	assert.Equal(t, int64(1), h.outboxCount(t))
}

func TestApplyGivesUpAfterRepeatedConflicts(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, authorized)
	repo := &flakyRepo{Repository: h.repo, losses: maxCASAttempts}
	svc, err := NewService(h.client, repo, outbox.NewService(outbox.NewRepository(h.client.DB()), nil), nil)
	require.NoError(t, err)

	_, err = svc.Apply(context.Background(), source.ID, Change{Event: EventCaptured})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
	assert.Zero(t, h.outboxCount(t))
}

func TestResolveLookupPrecedence(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	byCapture := h.seedSource(t, completed)
	byAuth := h.seedSource(t, authorized)
	require.NoError(t, h.client.DB().Model(byCapture).Update("capture_id", "CAP-1").Error)
	require.NoError(t, h.client.DB().Model(byAuth).Update("authorization_id", "AUTH-2").Error)

	got, err := h.svc.Resolve(ctx, Lookup{CaptureID: "CAP-1", AuthorizationID: "AUTH-2"})
	require.NoError(t, err)
	assert.Equal(t, byCapture.ID, got.ID)

	got, err = h.svc.Resolve(ctx, Lookup{CaptureID: "CAP-unknown", AuthorizationID: "AUTH-2"})
	require.NoError(t, err)
	assert.Equal(t, byAuth.ID, got.ID)

	got, err = h.svc.Resolve(ctx, Lookup{ExternalOrderID: byAuth.ExternalOrderID})
	require.NoError(t, err)
	assert.Equal(t, byAuth.ID, got.ID)

	_, err = h.svc.Resolve(ctx, Lookup{CaptureID: "nope"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListForReconcile(t *testing.T) {
	h := newHarness(t)
	stuck := h.seedSource(t, pending)
	done := h.seedSource(t, completed)
	fresh := h.seedSource(t, failed)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, h.client.DB().Model(&models.PaymentSource{}).Where("id IN ?", []uuid.UUID{stuck.ID, done.ID}).UpdateColumn("updated_at", old).Error)

	rows, err := h.svc.ListForReconcile(context.Background(), time.Now().UTC().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stuck.ID, rows[0].ID)
	assert.NotEqual(t, fresh.ID, rows[0].ID)
}

func TestGetPaymentPreloadsOrder(t *testing.T) {
	h := newHarness(t)
	source := h.seedSource(t, pending)

	payment, err := h.svc.GetPayment(context.Background(), source.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, payment.Source)
	require.NotNil(t, payment.Order)
	assert.Equal(t, source.ID, payment.Source.ID)
}

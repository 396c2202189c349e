package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

// Repository handles payment and payment source persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Lookup lists processor identifiers to resolve a source by, tried in field order.
type Lookup struct {
	CaptureID       string
	AuthorizationID string
	ExternalOrderID string
}

func (r *Repository) FindSourceByID(ctx context.Context, id uuid.UUID) (*models.PaymentSource, error) {
	return r.findSourceTx(r.db.WithContext(ctx), "id = ?", id)
}

// FindSourceByIDTx reads through tx so the row is consistent with the CAS that follows.
func (r *Repository) FindSourceByIDTx(tx *gorm.DB, id uuid.UUID) (*models.PaymentSource, error) {
	return r.findSourceTx(tx, "id = ?", id)
}

// FindPayment loads a payment with its source, order, line items and shipments.
func (r *Repository) FindPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Source").
		Preload("Order").
		Preload("Order.LineItems").
		Preload("Order.Shipments").
		Where("id = ?", id).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindSourceByLookup returns the first source matching the lookup, or
// gorm.ErrRecordNotFound.
func (r *Repository) FindSourceByLookup(ctx context.Context, lookup Lookup) (*models.PaymentSource, error) {
	conn := r.db.WithContext(ctx)
	candidates := []struct {
		column string
		value  string
	}{
		{"capture_id", lookup.CaptureID},
		{"authorization_id", lookup.AuthorizationID},
		{"external_order_id", lookup.ExternalOrderID},
	}
	for _, c := range candidates {
		if c.value == "" {
			continue
		}
		source, err := r.findSourceTx(conn, c.column+" = ?", c.value)
		if err == nil {
			return source, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ListForReconcile returns sources in statuses that the processor may have
// moved on since, untouched for at least olderThan.
func (r *Repository) ListForReconcile(ctx context.Context, statuses []enums.PaymentSourceStatus, olderThan time.Time, limit int) ([]models.PaymentSource, error) {
	var rows []models.PaymentSource
	err := r.db.WithContext(ctx).
		Where("response_status IN ? AND updated_at < ?", statuses, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// CompareAndSwapTx applies updates only while the row still has the status
// and refunded amount that were read as expected.
func (r *Repository) CompareAndSwapTx(tx *gorm.DB, expected *models.PaymentSource, updates map[string]any) (bool, error) {
	res := tx.Model(&models.PaymentSource{}).
		Where("id = ? AND response_status = ? AND refunded_amount = ?",
			expected.ID, expected.ResponseStatus, expected.RefundedAmount).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindPaymentTx loads the bare payment row through tx.
func (r *Repository) FindPaymentTx(tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.Where("id = ?", id).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *Repository) CreateRefundTx(tx *gorm.DB, refund *models.Refund) error {
	return tx.Create(refund).Error
}

func (r *Repository) findSourceTx(tx *gorm.DB, query string, arg any) (*models.PaymentSource, error) {
	var source models.PaymentSource
	if err := tx.Where(query, arg).First(&source).Error; err != nil {
		return nil, err
	}
	return &source, nil
}

// RefundExists reports whether a refund with the processor's refund id is stored.
func (r *Repository) RefundExists(ctx context.Context, processorRefundID string) (bool, error) {
	return r.RefundExistsTx(r.db.WithContext(ctx), processorRefundID)
}

func (r *Repository) RefundExistsTx(tx *gorm.DB, processorRefundID string) (bool, error) {
	var count int64
	err := tx.Model(&models.Refund{}).
		Where("processor_refund_id = ?", processorRefundID).
		Count(&count).Error
	return count > 0, err
}

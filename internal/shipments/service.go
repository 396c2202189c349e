// Package shipments implements the one shipment transition payments need:
// cancelling a shipment that is ready but not yet shipped.
package shipments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
	"github.com/angelmondragon/marketplace-payments/pkg/logger"
)

// Repository handles shipment persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// Cancel moves ready -> canceled and reports whether a row changed.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Shipment{}).
		Where("id = ? AND state = ?", id, enums.ShipmentStateReady).
		Update("state", enums.ShipmentStateCanceled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ListReadyForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error) {
	var rows []models.Shipment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND state = ?", orderID, enums.ShipmentStateReady).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

type repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
	ListReadyForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Shipment, error)
}

type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error)
	Cancel(ctx context.Context, shipment *models.Shipment) (bool, error)
	CancelReadyForOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

type service struct {
	repo repository
	logg *logger.Logger
}

func NewService(repo repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shipment repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	shipment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipment")
	}
	return shipment, nil
}

// Cancel returns false without error when the shipment is not ready.
// The conditional update makes the check and the write one step.
func (s *service) Cancel(ctx context.Context, shipment *models.Shipment) (bool, error) {
	if shipment == nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "shipment is required")
	}
	if shipment.State != enums.ShipmentStateReady {
		return false, nil
	}
	ok, err := s.repo.Cancel(ctx, shipment.ID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel shipment")
	}
	if ok {
		shipment.State = enums.ShipmentStateCanceled
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "shipment_id", shipment.ID.String()), "shipment canceled")
		}
	}
	return ok, nil
}

// CancelReadyForOrder cancels every ready shipment of the order and returns
// how many were canceled.
func (s *service) CancelReadyForOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	rows, err := s.repo.ListReadyForOrder(ctx, orderID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ready shipments")
	}
	canceled := 0
	for i := range rows {
		ok, err := s.Cancel(ctx, &rows[i])
		if err != nil {
			return canceled, err
		}
		if ok {
			canceled++
		}
	}
	return canceled, nil
}

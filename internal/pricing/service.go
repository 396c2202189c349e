// Package pricing resolves seller-scoped stock for prices.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/auth"
	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	"github.com/angelmondragon/marketplace-payments/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	FindPrice(ctx context.Context, id uuid.UUID) (*models.Price, error)
	FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindStockItem(ctx context.Context, variantID, locationID uuid.UUID) (*models.StockItem, error)
	SavePriceTx(tx *gorm.DB, price *models.Price) error
	UpsertStockItemTx(tx *gorm.DB, item *models.StockItem) error
}

// Service resolves the stock record a seller's price is fulfilled from.
type Service interface {
	GetPrice(ctx context.Context, id uuid.UUID) (*models.Price, error)
	SellerStockItem(ctx context.Context, price *models.Price) (*models.StockItem, error)
	SellerStockAvailability(ctx context.Context, price *models.Price) (*int, error)
	Save(ctx context.Context, sp *SellerPrice) error
	CanManage(actor auth.Actor, price *models.Price) bool
}

type service struct {
	db   txRunner
	repo repository
}

func NewService(db txRunner, repo repository) (Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{db: db, repo: repo}, nil
}

func (s *service) GetPrice(ctx context.Context, id uuid.UUID) (*models.Price, error) {
	price, err := s.repo.FindPrice(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price")
	}
	return price, nil
}

// SellerStockItem returns nil for prices without a seller. Otherwise it
// returns the stored item at the seller's stock location, or a new unsaved
// item scoped to that location.
func (s *service) SellerStockItem(ctx context.Context, price *models.Price) (*models.StockItem, error) {
	seller, err := s.sellerFor(ctx, price)
	if err != nil || seller == nil {
		return nil, err
	}
	item, err := s.repo.FindStockItem(ctx, price.VariantID, seller.StockLocationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller stock item")
	}
	if item != nil {
		return item, nil
	}
	return &models.StockItem{
		VariantID:       price.VariantID,
		StockLocationID: seller.StockLocationID,
	}, nil
}

// SellerStockAvailability is nil when the price has no seller, 0 when no stock
// row exists yet, and the stored count otherwise.
func (s *service) SellerStockAvailability(ctx context.Context, price *models.Price) (*int, error) {
	item, err := s.SellerStockItem(ctx, price)
	if err != nil || item == nil {
		return nil, err
	}
	count := 0
	if item.Persisted() {
		count = item.CountOnHand
	}
	return &count, nil
}

// Save persists the price and applies any buffered availability in one
// transaction. Validation failures write nothing.
func (s *service) Save(ctx context.Context, sp *SellerPrice) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	count, hasPending := sp.PendingAvailability()

	var seller *models.Seller
	if hasPending {
		var err error
		seller, err = s.sellerFor(ctx, sp.Price)
		if err != nil {
			return err
		}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SavePriceTx(tx, sp.Price); err != nil {
			return err
		}
		if !hasPending {
			return nil
		}
		return s.repo.UpsertStockItemTx(tx, &models.StockItem{
			VariantID:       sp.Price.VariantID,
			StockLocationID: seller.StockLocationID,
			CountOnHand:     count,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save seller price")
	}
	sp.pending = nil
	return nil
}

// CanManage lets admins manage every price and sellers only their own.
func (s *service) CanManage(actor auth.Actor, price *models.Price) bool {
	if price == nil {
		return false
	}
	if actor.IsAdmin() {
		return true
	}
	if actor.Role != enums.ActorRoleSeller || actor.SellerID == nil || price.SellerID == nil {
		return false
	}
	return *actor.SellerID == *price.SellerID
}

func (s *service) sellerFor(ctx context.Context, price *models.Price) (*models.Seller, error) {
	if price == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	if price.SellerID == nil {
		return nil, nil
	}
	if price.Seller != nil && price.Seller.ID == *price.SellerID {
		return price.Seller, nil
	}
	seller, err := s.repo.FindSeller(ctx, *price.SellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	price.Seller = seller
	return seller, nil
}

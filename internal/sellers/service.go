package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-payments/pkg/errors"
)

var maxPercentage = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type repository interface {
	CreateTx(tx *gorm.DB, seller *models.Seller, location *models.StockLocation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Seller, error)
	StockLocationExists(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateSellerInput describes a new marketplace seller. A stock location is
// created for the seller when StockLocationID is nil.
type CreateSellerInput struct {
	Name            string
	Percentage      decimal.Decimal
	StockLocationID *uuid.UUID
	MerchantID      *string
}

type Service interface {
	Create(ctx context.Context, input CreateSellerInput) (*models.Seller, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Seller, error)
	GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Seller, error)
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
		return nil, fmt.Errorf("seller repository required")
	}
	return &service{db: db, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateSellerInput) (*models.Seller, error) {
	if details := validateCreate(input); len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}

	seller := &models.Seller{
		Name:       strings.TrimSpace(input.Name),
		Percentage: input.Percentage,
		MerchantID: trimmedPtr(input.MerchantID),
	}

	var location *models.StockLocation
	if input.StockLocationID != nil {
		exists, err := s.repo.StockLocationExists(ctx, *input.StockLocationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check stock location")
		}
		if !exists {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").
				WithDetails(map[string]string{"stock_location_id": "does not exist"})
		}
		seller.StockLocationID = *input.StockLocationID
	} else {
		location = &models.StockLocation{Name: seller.Name}
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.CreateTx(tx, seller, location)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
	}
	return seller, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	seller, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return seller, nil
}

func (s *service) GetMany(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Seller, error) {
	sellers, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sellers")
	}
	return sellers, nil
}

func validateCreate(input CreateSellerInput) map[string]string {
	details := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		details["name"] = "is required"
	}
	if input.Percentage.IsNegative() || input.Percentage.GreaterThan(maxPercentage) {
		details["percentage"] = "must be between 0 and 100"
	}
	return details
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

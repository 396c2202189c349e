package sellers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
)

// Repository handles seller persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx inserts the seller and, when needed, its stock location.
func (r *Repository) CreateTx(tx *gorm.DB, seller *models.Seller, location *models.StockLocation) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if location != nil {
		if err := tx.Create(location).Error; err != nil {
			return err
		}
		seller.StockLocationID = location.ID
	}
	return tx.Create(seller).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// FindByIDs loads sellers keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Seller, error) {
	out := make(map[uuid.UUID]*models.Seller, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Seller
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

func (r *Repository) StockLocationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.StockLocation{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

package pricing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/marketplace-payments/pkg/db/models"
)

// Repository handles price and stock item persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindPrice loads a price with its seller.
func (r *Repository) FindPrice(ctx context.Context, id uuid.UUID) (*models.Price, error) {
	var price models.Price
	if err := r.db.WithContext(ctx).Preload("Seller").Where("id = ?", id).First(&price).Error; err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *Repository) FindSeller(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	var seller models.Seller
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
}

// FindStockItem returns nil without error when no row exists.
func (r *Repository) FindStockItem(ctx context.Context, variantID, locationID uuid.UUID) (*models.StockItem, error) {
	var item models.StockItem
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND stock_location_id = ?", variantID, locationID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *Repository) SavePriceTx(tx *gorm.DB, price *models.Price) error {
	return tx.Omit(clause.Associations).Save(price).Error
}

// UpsertStockItemTx sets count_on_hand for (variant, location) in one
// statement so concurrent first writes cannot create duplicates.
func (r *Repository) UpsertStockItemTx(tx *gorm.DB, item *models.StockItem) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "variant_id"}, {Name: "stock_location_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"count_on_hand", "updated_at"}),
	}).Create(item).Error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockItem tracks on-hand units of a variant at one stock location.
type StockItem struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	VariantID       uuid.UUID `gorm:"column:variant_id;type:uuid;not null;uniqueIndex:ux_stock_items_variant_location,priority:1"`
	StockLocationID uuid.UUID `gorm:"column:stock_location_id;type:uuid;not null;uniqueIndex:ux_stock_items_variant_location,priority:2"`
	CountOnHand     int       `gorm:"column:count_on_hand;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *StockItem) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

// Persisted reports whether the item has been written to storage.
func (s *StockItem) Persisted() bool {
	return s != nil && !s.CreatedAt.IsZero()
}

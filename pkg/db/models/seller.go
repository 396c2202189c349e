package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seller is a marketplace participant that owns prices and receives the net of each sale.
type Seller struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name            string          `gorm:"column:name;not null"`
	Percentage      decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	StockLocationID uuid.UUID       `gorm:"column:stock_location_id;type:uuid;not null"`
	MerchantID      *string         `gorm:"column:merchant_id"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Seller) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	return nil
}

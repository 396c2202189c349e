package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Variant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SKU       string    `gorm:"column:sku;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (v *Variant) BeforeCreate(*gorm.DB) error {
	assignID(&v.ID)
	return nil
}

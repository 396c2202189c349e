package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StockLocation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (l *StockLocation) BeforeCreate(*gorm.DB) error {
	assignID(&l.ID)
	return nil
}

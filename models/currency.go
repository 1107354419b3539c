package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Currency struct {
	Code              string          `gorm:"primaryKey;size:3" json:"code"`
	Name              string          `gorm:"not null" json:"name"`
	Symbol            string          `gorm:"size:8;not null" json:"symbol"`
	ExchangeRateToINR decimal.Decimal `gorm:"column:exchange_rate_to_inr;type:decimal(15,6);not null" json:"exchange_rate_to_inr"`
	IsDefault         bool            `gorm:"default:false" json:"is_default"`
	RateUpdatedAt     time.Time       `json:"rate_updated_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

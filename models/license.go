package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const CurrencyINR = "INR"

type License struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	ClientID *uint   `gorm:"index" json:"client_id"`
	Client   *Client `gorm:"foreignKey:ClientID" json:"client,omitempty"`

	ToolName        string `gorm:"not null" json:"tool_name"`
	Vendor          string `json:"vendor"`
	ToolDescription string `gorm:"type:text" json:"tool_description"`

	CostPerUser  decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"cost_per_user"`
	Quantity     int             `gorm:"not null;default:1" json:"quantity"`
	TotalCost    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_cost"`
	TotalCostINR decimal.Decimal `gorm:"column:total_cost_inr;type:decimal(15,2);not null;default:0" json:"total_cost_inr"`
	CurrencyCode string          `gorm:"size:3;not null;default:'INR'" json:"currency_code"`

	PurchaseDate   *Date   `gorm:"type:date" json:"purchase_date"`
	ExpirationDate Date    `gorm:"type:date;index;not null" json:"expiration_date"`
	SerialNo       *string `gorm:"size:191;uniqueIndex" json:"serial_no"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (License) TableName() string {
	return "license_purchases"
}

// BeforeSave keeps totals consistent: the INR column is authoritative for
// INR purchases, total_cost for everything else.
func (l *License) BeforeSave(tx *gorm.DB) (err error) {
	l.CurrencyCode = strings.ToUpper(strings.TrimSpace(l.CurrencyCode))
	if l.CurrencyCode == "" {
		l.CurrencyCode = CurrencyINR
	}
	if l.Quantity <= 0 {
		l.Quantity = 1
	}
	if l.TotalCost.IsZero() {
		l.TotalCost = l.CostPerUser.Mul(decimal.NewFromInt(int64(l.Quantity)))
	}
	if l.CurrencyCode == CurrencyINR {
		l.TotalCostINR = l.TotalCost
	}
	if l.SerialNo != nil && strings.TrimSpace(*l.SerialNo) == "" {
		l.SerialNo = nil
	}
	return
}

// AuthoritativeTotal returns the amount that is the source of truth for
// this license together with its currency.
func (l *License) AuthoritativeTotal() (decimal.Decimal, string) {
	if l.CurrencyCode == CurrencyINR {
		if l.TotalCostINR.IsZero() {
			return l.TotalCost, CurrencyINR
		}
		return l.TotalCostINR, CurrencyINR
	}
	return l.TotalCost, l.CurrencyCode
}

// DaysRemaining counts calendar days from today until expiry.
func (l *License) DaysRemaining(today Date) int {
	return today.DaysUntil(l.ExpirationDate)
}

func (l *License) Serial() string {
	if l.SerialNo == nil {
		return ""
	}
	return *l.SerialNo
}

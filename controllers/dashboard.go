package controllers

import (
	"net/http"

	"licensepro-backend/clock"
	"licensepro-backend/currency"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardOverview struct {
	TotalClients        int64                `json:"total_clients"`
	TotalLicenses       int64                `json:"total_licenses"`
	ExpiredLicenses     int64                `json:"expired_licenses"`
	ExpiringSoon        int64                `json:"expiring_soon"`
	TotalSpendINR       decimal.Decimal      `json:"total_spend_inr"`
	TotalSpendDisplay   string               `json:"total_spend_display"`
	UpcomingExpirations []UpcomingExpiration `json:"upcoming_expirations"`
	RecentNotifications []RecentNotification `json:"recent_notifications"`
}

type UpcomingExpiration struct {
	LicenseID      uint   `json:"license_id"`
	ToolName       string `json:"tool_name"`
	ClientName     string `json:"client_name"`
	ExpirationDate string `json:"expiration_date"`
	DaysRemaining  int    `json:"days_remaining"`
	Date           string `json:"date"` // e.g. "Tomorrow", "3 days"
}

type RecentNotification struct {
	LicenseID        uint   `json:"license_id"`
	NotificationType string `json:"notification_type"`
	Recipient        string `json:"recipient"`
	Status           string `json:"status"`
	SentAt           string `json:"sent_at"` // e.g. "Today", "2 days ago"
}

type DashboardController struct {
	DB       *gorm.DB
	Clock    clock.Clock
	Timezone Timezone
}

// sumINR adds up total_cost_inr over q.
func sumINR(q *gorm.DB) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := q.Select("COALESCE(SUM(total_cost_inr), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Decimal, nil
}

// GET /api/dashboard
func (dc *DashboardController) GetDashboardOverview(c *gin.Context) {
	today, loc := localToday(c.Request.Context(), dc.Clock, dc.Timezone)
	soon := today.AddDays(expiringSoonDays)
	db := dc.DB.WithContext(c.Request.Context())

	overview := DashboardOverview{
		UpcomingExpirations: []UpcomingExpiration{},
		RecentNotifications: []RecentNotification{},
	}

	if err := db.Model(&models.Client{}).Count(&overview.TotalClients).Error; err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	db.Model(&models.License{}).Count(&overview.TotalLicenses)
	db.Model(&models.License{}).Where("expiration_date < ?", today).Count(&overview.ExpiredLicenses)
	db.Model(&models.License{}).Where("expiration_date BETWEEN ? AND ?", today, soon).Count(&overview.ExpiringSoon)

	total, err := sumINR(db.Model(&models.License{}))
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	overview.TotalSpendINR = total
	overview.TotalSpendDisplay = currency.Format(total, models.CurrencyINR)

	// Upcoming expirations (next 30 days)
	var upcoming []models.License
	db.Preload("Client").
		Where("expiration_date BETWEEN ? AND ?", today, soon).
		Order("expiration_date, id").
		Limit(10).
		Find(&upcoming)
	for _, l := range upcoming {
		days := l.DaysRemaining(today)
		e := UpcomingExpiration{
			LicenseID:      l.ID,
			ToolName:       l.ToolName,
			ExpirationDate: l.ExpirationDate.String(),
			DaysRemaining:  days,
			Date:           utils.RelativeDays(days),
		}
		if l.Client != nil {
			e.ClientName = l.Client.Name
		}
		overview.UpcomingExpirations = append(overview.UpcomingExpirations, e)
	}

	// Last few notification attempts
	var records []models.NotificationRecord
	db.Order("email_sent_at DESC, id DESC").Limit(5).Find(&records)
	for _, r := range records {
		sent := models.NewDate(r.EmailSentAt.In(loc))
		overview.RecentNotifications = append(overview.RecentNotifications, RecentNotification{
			LicenseID:        r.LicenseID,
			NotificationType: r.NotificationType,
			Recipient:        r.Recipient,
			Status:           r.EmailStatus,
			SentAt:           utils.RelativeDays(today.DaysUntil(sent)),
		})
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", overview)
}

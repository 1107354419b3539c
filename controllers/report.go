// controllers/report.go
package controllers

import (
	"net/http"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ReportController handles license spend reporting. All amounts are in INR
// and bucketed by purchase date.
type ReportController struct {
	DB       *gorm.DB
	Clock    clock.Clock
	Timezone Timezone
}

// SpendSummary represents the analytics data
type SpendSummary struct {
	CurrentMonthSpend   float64         `json:"current_month_spend"`
	MonthGrowth         float64         `json:"month_growth"`
	CurrentQuarterSpend float64         `json:"current_quarter_spend"`
	QuarterGrowth       float64         `json:"quarter_growth"`
	CurrentYearSpend    float64         `json:"current_year_spend"`
	YearGrowth          float64         `json:"year_growth"`
	TopVendors          []VendorSummary `json:"top_vendors"`
	TopClients          []ClientSummary `json:"top_clients"`
	QuickStats          QuickStatistics `json:"quick_stats"`
}

type VendorSummary struct {
	Vendor   string  `json:"vendor"`
	Licenses int     `json:"licenses"`
	Spend    float64 `json:"spend"`
}

type ClientSummary struct {
	Name     string  `json:"name"`
	Licenses int     `json:"licenses"`
	Spend    float64 `json:"spend"`
}

type QuickStatistics struct {
	TotalLicenses   int     `json:"total_licenses"`
	ActiveLicenses  int     `json:"active_licenses"`
	TotalSeats      int     `json:"total_seats"`
	AvgLicenseValue float64 `json:"avg_license_value"`
}

type spendPeriod struct {
	current, previous float64
}

type spendRange struct {
	start, end time.Time
	out        *float64
}

// GetReportAnalytics returns the spend summary
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	date, _ := localToday(c.Request.Context(), rc.Clock, rc.Timezone)
	today := date.Time
	currentYear, currentMonth, _ := today.Date()

	// Calculate date ranges
	firstOfMonth := time.Date(currentYear, currentMonth, 1, 0, 0, 0, 0, time.UTC)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)
	firstOfYear := time.Date(currentYear, 1, 1, 0, 0, 0, 0, time.UTC)
	lastOfYear := time.Date(currentYear, 12, 31, 0, 0, 0, 0, time.UTC)

	var month, quarter, year spendPeriod
	ranges := []spendRange{
		{firstOfMonth, lastOfMonth, &month.current},
		{firstOfMonth.AddDate(0, -1, 0), firstOfMonth.AddDate(0, 0, -1), &month.previous},
		{rc.getQuarterStart(today), rc.getQuarterEnd(today), &quarter.current},
		{rc.getQuarterStart(today).AddDate(0, -3, 0), rc.getQuarterStart(today).AddDate(0, 0, -1), &quarter.previous},
		{firstOfYear, lastOfYear, &year.current},
		{firstOfYear.AddDate(-1, 0, 0), lastOfYear.AddDate(-1, 0, 0), &year.previous},
	}

	for _, r := range ranges {
		spend, err := rc.getSpend(r.start, r.end)
		if err != nil {
			c.Error(err)
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get license spend")
			return
		}
		*r.out = spend
	}

	topVendors, err := rc.getTopVendors(firstOfYear, lastOfYear, 5)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top vendors")
		return
	}

	topClients, err := rc.getTopClients(firstOfYear, lastOfYear, 5)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get top clients")
		return
	}

	quickStats, err := rc.getQuickStatistics(models.NewDate(today))
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to get quick statistics")
		return
	}

	summary := SpendSummary{
		CurrentMonthSpend:   month.current,
		MonthGrowth:         rc.calculateGrowthPercentage(month.current, month.previous),
		CurrentQuarterSpend: quarter.current,
		QuarterGrowth:       rc.calculateGrowthPercentage(quarter.current, quarter.previous),
		CurrentYearSpend:    year.current,
		YearGrowth:          rc.calculateGrowthPercentage(year.current, year.previous),
		TopVendors:          topVendors,
		TopClients:          topClients,
		QuickStats:          quickStats,
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", summary)
}

// Helper functions for reports

func (rc *ReportController) getSpend(start, end time.Time) (float64, error) {
	var total float64
	err := rc.DB.Model(&models.License{}).
		Where("purchase_date BETWEEN ? AND ?", models.NewDate(start), models.NewDate(end)).
		Select("COALESCE(SUM(total_cost_inr), 0)").
		Scan(&total).Error
	return total, err
}

func (rc *ReportController) getQuarterStart(date time.Time) time.Time {
	quarter := (int(date.Month())-1)/3 + 1
	startMonth := time.Month((quarter-1)*3 + 1)
	return time.Date(date.Year(), startMonth, 1, 0, 0, 0, 0, date.Location())
}

func (rc *ReportController) getQuarterEnd(date time.Time) time.Time {
	return rc.getQuarterStart(date).AddDate(0, 3, -1)
}

func (rc *ReportController) calculateGrowthPercentage(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / previous) * 100
}

func (rc *ReportController) getTopVendors(start, end time.Time, limit int) ([]VendorSummary, error) {
	vendors := []VendorSummary{}

	err := rc.DB.Model(&models.License{}).
		Select("vendor, COUNT(id) as licenses, SUM(total_cost_inr) as spend").
		Where("purchase_date BETWEEN ? AND ? AND vendor <> ''", models.NewDate(start), models.NewDate(end)).
		Group("vendor").
		Order("spend DESC").
		Limit(limit).
		Scan(&vendors).Error

	return vendors, err
}

func (rc *ReportController) getTopClients(start, end time.Time, limit int) ([]ClientSummary, error) {
	clients := []ClientSummary{}

	err := rc.DB.Table("license_purchases").
		Select("clients.name, COUNT(license_purchases.id) as licenses, SUM(license_purchases.total_cost_inr) as spend").
		Joins("JOIN clients ON clients.id = license_purchases.client_id").
		Where("license_purchases.purchase_date BETWEEN ? AND ? AND clients.deleted_at IS NULL", models.NewDate(start), models.NewDate(end)).
		Group("clients.name").
		Order("spend DESC").
		Limit(limit).
		Scan(&clients).Error

	return clients, err
}

func (rc *ReportController) getQuickStatistics(today models.Date) (QuickStatistics, error) {
	var stats QuickStatistics

	var totalLicenses int64
	if err := rc.DB.Model(&models.License{}).Count(&totalLicenses).Error; err != nil {
		return stats, err
	}
	stats.TotalLicenses = int(totalLicenses)

	var activeLicenses int64
	if err := rc.DB.Model(&models.License{}).
		Where("expiration_date >= ?", today).
		Count(&activeLicenses).Error; err != nil {
		return stats, err
	}
	stats.ActiveLicenses = int(activeLicenses)

	var seats int
	if err := rc.DB.Model(&models.License{}).
		Where("expiration_date >= ?", today).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&seats).Error; err != nil {
		return stats, err
	}
	stats.TotalSeats = seats

	var totalSpend float64
	if err := rc.DB.Model(&models.License{}).
		Select("COALESCE(SUM(total_cost_inr), 0)").
		Scan(&totalSpend).Error; err != nil {
		return stats, err
	}
	if stats.TotalLicenses > 0 {
		stats.AvgLicenseValue = totalSpend / float64(stats.TotalLicenses)
	}

	return stats, nil
}

package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const expiringSoonDays = 30

// CreateLicenseInput defines the expected JSON structure for creating a license
type CreateLicenseInput struct {
	ClientID        *uint            `json:"client_id"`
	ToolName        string           `json:"tool_name" binding:"required"`
	Vendor          string           `json:"vendor"`
	ToolDescription string           `json:"tool_description"`
	CostPerUser     decimal.Decimal  `json:"cost_per_user"`
	Quantity        int              `json:"quantity" binding:"min=0"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	CurrencyCode    string           `json:"currency_code"`
	PurchaseDate    *models.Date     `json:"purchase_date"`
	ExpirationDate  models.Date      `json:"expiration_date"`
	SerialNo        *string          `json:"serial_no"`
}

// UpdateLicenseInput defines the expected JSON structure for updating a license
type UpdateLicenseInput struct {
	ClientID        *uint            `json:"client_id"`
	ToolName        *string          `json:"tool_name"`
	Vendor          *string          `json:"vendor"`
	ToolDescription *string          `json:"tool_description"`
	CostPerUser     *decimal.Decimal `json:"cost_per_user"`
	Quantity        *int             `json:"quantity" binding:"omitempty,min=1"`
	TotalCost       *decimal.Decimal `json:"total_cost"`
	CurrencyCode    *string          `json:"currency_code"`
	PurchaseDate    *models.Date     `json:"purchase_date"`
	ExpirationDate  *models.Date     `json:"expiration_date"`
	SerialNo        *string          `json:"serial_no"`
}

// LicenseView is a license as the API shows it, with its days remaining
// relative to today.
type LicenseView struct {
	models.License
	DaysRemaining int    `json:"days_remaining"`
	Status        string `json:"status"`
}

type LicenseController struct {
	DB       *gorm.DB
	Currency *currency.Service
	Clock    clock.Clock
	Timezone Timezone
}

func (lc *LicenseController) today(c *gin.Context) models.Date {
	today, _ := localToday(c.Request.Context(), lc.Clock, lc.Timezone)
	return today
}

func newLicenseView(l models.License, today models.Date) LicenseView {
	days := l.DaysRemaining(today)
	status := "active"
	switch {
	case days < 0:
		status = "expired"
	case days <= expiringSoonDays:
		status = "expiring_soon"
	}
	return LicenseView{License: l, DaysRemaining: days, Status: status}
}

// checkClient verifies a referenced client exists.
func (lc *LicenseController) checkClient(c *gin.Context, id *uint) bool {
	if id == nil {
		return true
	}
	var client models.Client
	if err := lc.DB.First(&client, *id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusBadRequest, "Client not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return false
	}
	return true
}

// priceInINR fills total_cost_inr for purchases in a foreign currency. When
// no rate is stored the column stays zero and a warning is returned.
func (lc *LicenseController) priceInINR(c *gin.Context, l *models.License) (string, error) {
	l.CurrencyCode = strings.ToUpper(strings.TrimSpace(l.CurrencyCode))
	if l.CurrencyCode == "" || l.CurrencyCode == models.CurrencyINR {
		return "", nil
	}
	if _, err := lc.Currency.Get(c.Request.Context(), l.CurrencyCode); err != nil {
		return "", err
	}

	total := l.TotalCost
	if total.IsZero() {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		total = l.CostPerUser.Mul(decimal.NewFromInt(int64(qty)))
	}

	conv, err := lc.Currency.Convert(c.Request.Context(), total, l.CurrencyCode, models.CurrencyINR, lc.Clock.Now())
	if err != nil {
		l.TotalCostINR = decimal.Zero
		return fmt.Sprintf("no %s to INR rate, total_cost_inr left at zero", l.CurrencyCode), nil
	}
	l.TotalCostINR = conv.Amount.Round(2)
	if conv.Stale {
		return fmt.Sprintf("%s to INR rate last updated %s is stale", l.CurrencyCode, conv.RateUpdatedAt.Format(models.DateLayout)), nil
	}
	return "", nil
}

func (lc *LicenseController) save(c *gin.Context, l *models.License, status int, message string) {
	warning, err := lc.priceInINR(c, l)
	if err != nil {
		if errors.Is(err, currency.ErrRateUnavailable) {
			utils.RespondWithError(c, http.StatusBadRequest, "Unsupported currency "+l.CurrencyCode)
		} else {
			c.Error(err)
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := lc.DB.Omit(clause.Associations).Save(l).Error; err != nil {
		if config.IsDuplicateKeyErr(err) {
			utils.RespondWithError(c, http.StatusConflict, "A license with this serial number already exists")
			return
		}
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save license")
		return
	}
	lc.DB.Preload("Client").First(l, l.ID)

	data := gin.H{"license": newLicenseView(*l, lc.today(c))}
	if warning != "" {
		data["warnings"] = []string{warning}
	}
	utils.RespondWithSuccess(c, status, message, data)
}

// CreateLicense records a license purchase
func (lc *LicenseController) CreateLicense(c *gin.Context) {
	var input CreateLicenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if strings.TrimSpace(input.ToolName) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "tool_name is required")
		return
	}
	if input.ExpirationDate.IsZero() {
		utils.RespondWithError(c, http.StatusBadRequest, "expiration_date is required")
		return
	}
	if input.CostPerUser.IsNegative() || (input.TotalCost != nil && input.TotalCost.IsNegative()) {
		utils.RespondWithError(c, http.StatusBadRequest, "Costs cannot be negative")
		return
	}
	if !lc.checkClient(c, input.ClientID) {
		return
	}

	license := models.License{
		ClientID:        input.ClientID,
		ToolName:        strings.TrimSpace(input.ToolName),
		Vendor:          input.Vendor,
		ToolDescription: input.ToolDescription,
		CostPerUser:     input.CostPerUser,
		Quantity:        input.Quantity,
		CurrencyCode:    input.CurrencyCode,
		PurchaseDate:    input.PurchaseDate,
		ExpirationDate:  input.ExpirationDate,
		SerialNo:        input.SerialNo,
	}
	if input.TotalCost != nil {
		license.TotalCost = *input.TotalCost
	}

	lc.save(c, &license, http.StatusCreated, "License created")
}

// GetLicenses lists licenses. ?expiring_within=N keeps those expiring in
// the next N days, ?expired=true those already expired, ?client_id=N those
// of one client.
func (lc *LicenseController) GetLicenses(c *gin.Context) {
	today := lc.today(c)
	q := lc.DB.Preload("Client").Order("expiration_date, id")

	if raw := c.Query("expiring_within"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "expiring_within must be a non-negative number of days")
			return
		}
		q = q.Where("expiration_date BETWEEN ? AND ?", today, today.AddDays(n))
	}
	if c.Query("expired") == "true" {
		q = q.Where("expiration_date < ?", today)
	}
	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid client_id")
			return
		}
		q = q.Where("client_id = ?", id)
	}

	var licenses []models.License
	if err := q.Find(&licenses).Error; err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve licenses")
		return
	}

	views := make([]LicenseView, 0, len(licenses))
	for _, l := range licenses {
		views = append(views, newLicenseView(l, today))
	}
	utils.RespondWithSuccess(c, http.StatusOK, "", views)
}

func (lc *LicenseController) findLicense(c *gin.Context) (*models.License, bool) {
	id, ok := parseID(c, "license")
	if !ok {
		return nil, false
	}

	var license models.License
	if err := lc.DB.Preload("Client").First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusNotFound, "License not found")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return nil, false
	}
	return &license, true
}

// GetLicense retrieves a specific license by ID
func (lc *LicenseController) GetLicense(c *gin.Context) {
	license, ok := lc.findLicense(c)
	if !ok {
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", newLicenseView(*license, lc.today(c)))
}

// UpdateLicense updates an existing license
func (lc *LicenseController) UpdateLicense(c *gin.Context) {
	license, ok := lc.findLicense(c)
	if !ok {
		return
	}

	var input UpdateLicenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !lc.checkClient(c, input.ClientID) {
		return
	}

	repriced := false
	if input.ClientID != nil {
		license.ClientID = input.ClientID
		license.Client = nil
	}
	if input.ToolName != nil {
		if strings.TrimSpace(*input.ToolName) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "tool_name cannot be empty")
			return
		}
		license.ToolName = strings.TrimSpace(*input.ToolName)
	}
	if input.Vendor != nil {
		license.Vendor = *input.Vendor
	}
	if input.ToolDescription != nil {
		license.ToolDescription = *input.ToolDescription
	}
	if input.CostPerUser != nil {
		license.CostPerUser = *input.CostPerUser
		repriced = true
	}
	if input.Quantity != nil {
		license.Quantity = *input.Quantity
		repriced = true
	}
	if input.CurrencyCode != nil {
		license.CurrencyCode = *input.CurrencyCode
	}
	if input.TotalCost != nil {
		license.TotalCost = *input.TotalCost
	} else if repriced {
		// recomputed from cost per user and quantity
		license.TotalCost = decimal.Zero
	}
	if license.CostPerUser.IsNegative() || license.TotalCost.IsNegative() {
		utils.RespondWithError(c, http.StatusBadRequest, "Costs cannot be negative")
		return
	}
	if input.PurchaseDate != nil {
		license.PurchaseDate = input.PurchaseDate
	}
	if input.ExpirationDate != nil {
		if input.ExpirationDate.IsZero() {
			utils.RespondWithError(c, http.StatusBadRequest, "expiration_date cannot be empty")
			return
		}
		license.ExpirationDate = *input.ExpirationDate
	}
	if input.SerialNo != nil {
		license.SerialNo = input.SerialNo
	}

	lc.save(c, license, http.StatusOK, "License updated")
}

// DeleteLicense removes a license together with its notification history
func (lc *LicenseController) DeleteLicense(c *gin.Context) {
	id, ok := parseID(c, "license")
	if !ok {
		return
	}

	var deleted int64
	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("license_id = ?", id).Delete(&models.NotificationClaim{}).Error; err != nil {
			return err
		}
		if err := tx.Where("license_id = ?", id).Delete(&models.NotificationRecord{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.License{}, id)
		deleted = result.RowsAffected
		return result.Error
	})
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to delete license")
		return
	}
	if deleted == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "License not found")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "License deleted successfully", nil)
}

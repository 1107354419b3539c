package controllers

import (
	"net/http"
	"strconv"

	"licensepro-backend/lock"
	"licensepro-backend/services"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type ManualNotificationInput struct {
	LicenseID *uint `json:"license_id"`
	ForceSend bool  `json:"force_send"`
}

type NotificationController struct {
	Service *services.NotificationService
	Store   *services.NotificationStore
}

// respondWithRunError maps run errors to a status code.
func respondWithRunError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrLicenseNotFound):
		utils.RespondWithError(c, http.StatusNotFound, "License not found")
	case errors.Is(err, lock.ErrRunInProgress):
		utils.RespondWithError(c, http.StatusConflict, "A notification run is already in progress")
	default:
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Notification run failed: "+err.Error())
	}
}

// GET /api/notifications/check-expiring-licenses
func (nc *NotificationController) CheckExpiringLicenses(c *gin.Context) {
	report, err := nc.Service.Run(c.Request.Context(), services.TriggerHTTP)
	if err != nil {
		respondWithRunError(c, err)
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "License expiry check completed", report)
}

// POST /api/notifications/check-expiring-licenses
func (nc *NotificationController) SendForLicense(c *gin.Context) {
	var input ManualNotificationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.LicenseID == nil || *input.LicenseID == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "license_id is required")
		return
	}

	report, err := nc.Service.SendForLicense(c.Request.Context(), *input.LicenseID, input.ForceSend)
	if err != nil {
		respondWithRunError(c, err)
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "License notification processed", report)
}

// GET /api/notifications/history?license_id=&status=&limit=
func (nc *NotificationController) History(c *gin.Context) {
	var filter services.HistoryFilter

	if raw := c.Query("license_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid license_id")
			return
		}
		filter.LicenseID = uint(id)
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = n
	}
	filter.Status = c.Query("status")

	records, err := nc.Store.History(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load notification history")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", records)
}

// GET /api/test-smtp
func (nc *NotificationController) TestSMTP(c *gin.Context) {
	result, err := nc.Service.SendTestEmail(c.Request.Context())
	if err != nil {
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Test email failed: " + err.Error(),
			"data":    result,
		})
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Test email sent to "+result.Recipient, result)
}

package controllers

import (
	"net/http"

	"licensepro-backend/services"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type SettingsController struct {
	Settings *services.SettingsService
}

// GET /api/notification-settings
func (sc *SettingsController) GetSettings(c *gin.Context) {
	st, err := sc.Settings.Get(c.Request.Context())
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to load notification settings")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", st)
}

// POST /api/notification-settings
func (sc *SettingsController) UpdateSettings(c *gin.Context) {
	var input services.SettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	st, err := sc.Settings.Update(c.Request.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			utils.RespondWithError(c, http.StatusBadRequest, verr.Error())
			return
		}
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to save notification settings")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Notification settings updated", st)
}

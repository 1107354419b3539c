package controllers

import (
	"net/http"
	"strings"

	"licensepro-backend/clock"
	"licensepro-backend/currency"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type UpdateRateInput struct {
	ExchangeRateToINR decimal.Decimal `json:"exchange_rate_to_inr"`
}

type CurrencyController struct {
	Currency *currency.Service
	Clock    clock.Clock
}

// GET /api/currencies
func (cc *CurrencyController) GetCurrencies(c *gin.Context) {
	currencies, err := cc.Currency.List(c.Request.Context(), cc.Clock.Now())
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve currencies")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", currencies)
}

// PUT /api/currencies/:code
func (cc *CurrencyController) UpdateRate(c *gin.Context) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	var input UpdateRateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !input.ExchangeRateToINR.IsPositive() {
		utils.RespondWithError(c, http.StatusBadRequest, "exchange_rate_to_inr must be positive")
		return
	}

	updated, err := cc.Currency.UpdateRate(c.Request.Context(), code, input.ExchangeRateToINR, cc.Clock.Now())
	if err != nil {
		if errors.Is(err, currency.ErrRateUnavailable) {
			utils.RespondWithError(c, http.StatusNotFound, "Currency not found")
			return
		}
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update exchange rate")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "Exchange rate updated", updated)
}

package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type AuthController struct {
	DB    *gorm.DB
	JWT   config.JWTConfig
	Clock clock.Clock
}

func (ac *AuthController) expiry() time.Duration {
	return time.Duration(ac.JWT.ExpiryHours) * time.Hour
}

// POST /auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := ac.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !user.IsActive || !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(ac.JWT.Secret, user.ID, ac.expiry())
	if err != nil {
		c.Error(err)
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// Update last login
	now := ac.Clock.Now()
	ac.DB.Model(&user).Update("last_login", &now)

	c.SetCookie("token", token, int(ac.expiry().Seconds()), "/", "", true, true)

	utils.RespondWithSuccess(c, http.StatusOK, "Login successful", gin.H{
		"token": token,
		"user":  user,
	})
}

// GET /auth/me
func (ac *AuthController) Me(c *gin.Context) {
	userID := utils.CurrentUserID(c, 0)
	if userID == 0 {
		utils.RespondWithError(c, http.StatusUnauthorized, "User ID not found in context")
		return
	}

	var user models.User
	if err := ac.DB.First(&user, userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}

	utils.RespondWithSuccess(c, http.StatusOK, "", gin.H{"user": user})
}

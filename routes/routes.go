package routes

import (
	"net/http"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/controllers"
	"licensepro-backend/currency"
	"licensepro-backend/metrics"
	"licensepro-backend/services"
	"licensepro-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs.
type Deps struct {
	Config        config.Config
	DB            *gorm.DB
	Log           *zap.Logger
	Clock         clock.Clock
	Notifications *services.NotificationService
	Store         *services.NotificationStore
	Settings      *services.SettingsService
	Currency      *currency.Service
	Metrics       *metrics.NotificationMetrics
}

func SetupRouter(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	r.Use(config.PerformanceLogger(d.Log))

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable, "Database unreachable")
			return
		}
		utils.RespondWithSuccess(c, http.StatusOK, "ok", nil)
	})
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	authMiddleware := utils.AuthMiddleware(d.Config.JWT.Secret)

	authController := &controllers.AuthController{DB: d.DB, JWT: d.Config.JWT, Clock: d.Clock}
	auth := r.Group("/auth")
	{
		auth.POST("/login", authController.Login)
		auth.GET("/me", authMiddleware, authController.Me)
	}

	api := r.Group("/api")
	api.Use(authMiddleware)
	{
		// Client routes
		clientController := &controllers.ClientController{DB: d.DB}
		clients := api.Group("/clients")
		{
			clients.POST("", clientController.CreateClient)
			clients.GET("", clientController.GetClients)
			clients.GET("/:id", clientController.GetClient)
			clients.PUT("/:id", clientController.UpdateClient)
			clients.DELETE("/:id", clientController.DeleteClient)
		}

		// License routes
		licenseController := &controllers.LicenseController{DB: d.DB, Currency: d.Currency, Clock: d.Clock, Timezone: d.Settings}
		licenses := api.Group("/licenses")
		{
			licenses.POST("", licenseController.CreateLicense)
			licenses.GET("", licenseController.GetLicenses)
			licenses.GET("/:id", licenseController.GetLicense)
			licenses.PUT("/:id", licenseController.UpdateLicense)
			licenses.DELETE("/:id", licenseController.DeleteLicense)
		}

		// Currency routes
		currencyController := &controllers.CurrencyController{Currency: d.Currency, Clock: d.Clock}
		currencies := api.Group("/currencies")
		{
			currencies.GET("", currencyController.GetCurrencies)
			currencies.PUT("/:code", currencyController.UpdateRate)
		}

		// Notification routes
		notificationController := &controllers.NotificationController{Service: d.Notifications, Store: d.Store}
		notifications := api.Group("/notifications")
		{
			notifications.GET("/check-expiring-licenses", notificationController.CheckExpiringLicenses)
			notifications.POST("/check-expiring-licenses", notificationController.SendForLicense)
			notifications.GET("/history", notificationController.History)
		}
		smtpLimiter := utils.NewRateLimiter(30*time.Second, 3)
		api.GET("/test-smtp", smtpLimiter.Limit(), notificationController.TestSMTP)

		// Settings routes
		settingsController := &controllers.SettingsController{Settings: d.Settings}
		api.GET("/notification-settings", settingsController.GetSettings)
		api.POST("/notification-settings", settingsController.UpdateSettings)

		// Reports routes
		reportController := &controllers.ReportController{DB: d.DB, Clock: d.Clock, Timezone: d.Settings}
		api.GET("/reports", reportController.GetReportAnalytics)

		// Dashboard routes
		dashboardController := &controllers.DashboardController{DB: d.DB, Clock: d.Clock, Timezone: d.Settings}
		api.GET("/dashboard", dashboardController.GetDashboardOverview)
	}

	return r
}

package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/metrics"
	"licensepro-backend/models"
	"licensepro-backend/services"
	"licensepro-backend/testutils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutils.InitMemoryDB(t)
	clk := clock.NewFake(time.Date(2026, 10, 19, 3, 30, 0, 0, time.UTC))
	cfg := config.Config{
		Timezone: "UTC",
		JWT:      config.JWTConfig{Secret: "test-secret", ExpiryHours: 1},
		Admin:    config.AdminConfig{Email: "admin@x.com"},
		Notify: config.NotifyConfig{
			DefaultDays:    config.DefaultNotificationDays,
			SettingsUserID: 1,
			ClaimTTL:       time.Minute,
		},
	}

	user := models.User{Email: "admin@x.com", Name: "Admin", Password: "correct-horse", IsActive: true}
	testutils.MustExec(t, db.Create(&user), "creating user")

	store := services.NewNotificationStore(db, cfg.Notify.ClaimTTL, clk)
	settings := services.NewSettingsService(db, cfg)
	rates := currency.NewService(db, 0)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	return SetupRouter(Deps{
		Config: cfg,
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clk,
		Notifications: services.NewNotificationService(services.NotificationDeps{
			Store:    store,
			Settings: settings,
			Rates:    rates,
			Metrics:  m,
			Clock:    clk,
		}),
		Store:    store,
		Settings: settings,
		Currency: rates,
		Metrics:  m,
	})
}

func request(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler) string {
	t.Helper()

	w := request(r, http.MethodPost, "/auth/login", "", `{"email":"Admin@x.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	assert.NotContains(t, w.Body.String(), "correct-horse")
	return resp.Data.Token
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t)

	w := request(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin(t *testing.T) {
	r := setupRouter(t)

	w := request(r, http.MethodPost, "/auth/login", "", `{"email":"admin@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(r, http.MethodPost, "/auth/login", "", `{"email":"admin@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := login(t, r)
	w = request(r, http.MethodGet, "/auth/me", token, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"email":"admin@x.com"`)
}

func TestAPIRequiresToken(t *testing.T) {
	r := setupRouter(t)

	paths := []string{
		"/api/dashboard",
		"/api/licenses",
		"/api/notification-settings",
		"/api/notifications/check-expiring-licenses",
		"/api/test-smtp",
	}
	for _, p := range paths {
		w := request(r, http.MethodGet, p, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)

		w = request(r, http.MethodGet, p, "not-a-jwt", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, p)
	}

	token := login(t, r)
	w := request(r, http.MethodGet, "/api/dashboard", token, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = request(r, http.MethodGet, "/api/notification-settings", token, "")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/licenses", nil)
	req.Header.Set("Origin", "https://licenses.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

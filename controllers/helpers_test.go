package controllers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/lock"
	"licensepro-backend/mailer"
	"licensepro-backend/services"
	"licensepro-backend/testutils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(m mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type testServer struct {
	db     *gorm.DB
	cfg    config.Config
	clock  *clock.Fake
	now    time.Time
	loc    *time.Location
	mail   *fakeMailer
	locker *lock.LocalLocker
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	db := testutils.InitMemoryDB(t)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, loc)
	clk := clock.NewFake(now)

	cfg := config.Config{
		Timezone: "Asia/Kolkata",
		Admin:    config.AdminConfig{Email: "admin@x.com", Name: "Admin"},
		SMTP: config.SMTPConfig{
			Transport: "smtp",
			Host:      "smtp.example.com",
			Port:      587,
			Username:  "mailer",
			Password:  "hunter2",
			From:      "noreply@x.com",
		},
		Notify: config.NotifyConfig{
			DefaultDays:    config.DefaultNotificationDays,
			SettingsUserID: 1,
			ClaimTTL:       15 * time.Minute,
		},
	}

	testutils.SetupCurrency(t, db, "INR", "1", now)
	testutils.SetupCurrency(t, db, "USD", "83.0", now)

	rates := currency.NewService(db, 30*24*time.Hour)
	store := services.NewNotificationStore(db, cfg.Notify.ClaimTTL, clk)
	settings := services.NewSettingsService(db, cfg)
	mail := &fakeMailer{}
	locker := lock.NewLocalLocker()

	svc := services.NewNotificationService(services.NotificationDeps{
		Store:    store,
		Settings: settings,
		Mailer:   mail,
		Rates:    rates,
		Locker:   locker,
		Clock:    clk,
		Logger:   zap.NewNop(),
		Admin:    cfg.Admin,
		SMTP:     cfg.SMTP,
	})

	r := gin.New()
	nc := &NotificationController{Service: svc, Store: store}
	r.GET("/notifications/check-expiring-licenses", nc.CheckExpiringLicenses)
	r.POST("/notifications/check-expiring-licenses", nc.SendForLicense)
	r.GET("/notifications/history", nc.History)
	r.GET("/test-smtp", nc.TestSMTP)

	sc := &SettingsController{Settings: settings}
	r.GET("/notification-settings", sc.GetSettings)
	r.POST("/notification-settings", sc.UpdateSettings)

	cc := &ClientController{DB: db}
	r.POST("/clients", cc.CreateClient)
	r.GET("/clients", cc.GetClients)
	r.GET("/clients/:id", cc.GetClient)
	r.PUT("/clients/:id", cc.UpdateClient)
	r.DELETE("/clients/:id", cc.DeleteClient)

	lc := &LicenseController{DB: db, Currency: rates, Clock: clk, Timezone: settings}
	r.POST("/licenses", lc.CreateLicense)
	r.GET("/licenses", lc.GetLicenses)
	r.GET("/licenses/:id", lc.GetLicense)
	r.PUT("/licenses/:id", lc.UpdateLicense)
	r.DELETE("/licenses/:id", lc.DeleteLicense)

	cur := &CurrencyController{Currency: rates, Clock: clk}
	r.GET("/currencies", cur.GetCurrencies)
	r.PUT("/currencies/:code", cur.UpdateRate)

	dc := &DashboardController{DB: db, Clock: clk, Timezone: settings}
	r.GET("/dashboard", dc.GetDashboardOverview)

	rc := &ReportController{DB: db, Clock: clk, Timezone: settings}
	r.GET("/reports", rc.GetReportAnalytics)

	return &testServer{
		db:     db,
		cfg:    cfg,
		clock:  clk,
		now:    now,
		loc:    loc,
		mail:   mail,
		locker: locker,
		router: r,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// do performs a request with an optional JSON body and decodes the envelope.
func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func decodeData(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v), string(env.Data))
}

func assertStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}

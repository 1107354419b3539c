package services

import (
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/lock"
	"licensepro-backend/mailer"
	"licensepro-backend/models"
	"licensepro-backend/testutils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeMailer struct {
	mu      sync.Mutex
	sent    []mailer.Message
	failFor map[string]error
}

func (f *fakeMailer) Send(m mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[m.To]; ok {
		return err
	}
	f.sent = append(f.sent, m)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeSMS struct {
	sent    []string
	channel string
	err     error
}

func (f *fakeSMS) Send(to, body string) (string, error) {
	f.sent = append(f.sent, to)
	if f.channel == "" {
		return "sms", f.err
	}
	return f.channel, f.err
}

type testEnv struct {
	db       *gorm.DB
	cfg      config.Config
	clock    *clock.Fake
	today    time.Time
	store    *NotificationStore
	settings *SettingsService
	mail     *fakeMailer
	locker   *lock.LocalLocker
	svc      *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}

	db := testutils.InitMemoryDB(t)
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, loc)
	clk := clock.NewFake(now)

	cfg := config.Config{
		Timezone: "Asia/Kolkata",
		Admin:    config.AdminConfig{Email: "admin@x.com", Name: "Admin"},
		SMTP:     config.SMTPConfig{Transport: "smtp", Host: "smtp.example.com", Port: 587, From: "noreply@x.com", FromName: "Licenses"},
		Notify: config.NotifyConfig{
			DefaultDays:    config.DefaultNotificationDays,
			SettingsUserID: 1,
			ClaimTTL:       15 * time.Minute,
		},
	}

	testutils.SetupCurrency(t, db, "INR", "1", now)
	testutils.SetupCurrency(t, db, "USD", "83.0", now)

	env := &testEnv{
		db:       db,
		cfg:      cfg,
		clock:    clk,
		today:    now,
		store:    NewNotificationStore(db, cfg.Notify.ClaimTTL, clk),
		settings: NewSettingsService(db, cfg),
		mail:     &fakeMailer{failFor: map[string]error{}},
		locker:   lock.NewLocalLocker(),
	}
	env.svc = env.newService(nil)
	return env
}

func (e *testEnv) newService(smsSender *fakeSMS) *NotificationService {
	deps := NotificationDeps{
		Store:    e.store,
		Settings: e.settings,
		Mailer:   e.mail,
		Rates:    currency.NewService(e.db, 30*24*time.Hour),
		Locker:   e.locker,
		Clock:    e.clock,
		Logger:   zap.NewNop(),
		Admin:    e.cfg.Admin,
		SMTP:     e.cfg.SMTP,
	}
	if smsSender != nil {
		deps.SMS = smsSender
	}
	return NewNotificationService(deps)
}

func (e *testEnv) records(t *testing.T, licenseID uint) []models.NotificationRecord {
	var recs []models.NotificationRecord
	testutils.MustExec(t, e.db.Where("license_id = ?", licenseID).Order("id").Find(&recs), "finding records")
	return recs
}

func (e *testEnv) claim(t *testing.T, licenseID uint, label string) *models.NotificationClaim {
	var c models.NotificationClaim
	err := e.db.Where("license_id = ? AND notification_type = ?", licenseID, label).First(&c).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return &c
}

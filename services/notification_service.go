// services/notification_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/currency"
	"licensepro-backend/lock"
	"licensepro-backend/mailer"
	"licensepro-backend/metrics"
	"licensepro-backend/models"
	"licensepro-backend/sms"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Trigger says what started a run.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerHTTP      Trigger = "http"
	TriggerCLI       Trigger = "cli"
)

// Per license outcome of a run
const (
	LicenseSent            = "sent"
	LicensePartial         = "partial"
	LicenseFailed          = "failed"
	LicenseAlreadyNotified = "already_notified"
	LicenseNoRecipients    = "no_recipients"
)

const runLockTTL = 30 * time.Minute

// ErrNotificationsDisabled is returned to the scheduler when the settings
// switch notifications off.
var ErrNotificationsDisabled = errors.New("notifications are disabled")

type RecipientResult struct {
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type LicenseNotification struct {
	LicenseID        uint              `json:"license_id"`
	ToolName         string            `json:"tool_name"`
	ClientName       string            `json:"client_name,omitempty"`
	NotificationType string            `json:"notification_type"`
	ExpirationDate   string            `json:"expiration_date"`
	DaysRemaining    int               `json:"days_remaining"`
	Status           string            `json:"status"`
	EmailsSent       int               `json:"emails_sent"`
	Recipients       []RecipientResult `json:"recipients"`
}

// RunReport is what a run returns to its caller. Partial failures are
// itemized in Errors and in each recipient's status.
type RunReport struct {
	NotifyDate        string                `json:"notify_date"`
	TotalEmailsSent   int                   `json:"total_emails_sent"`
	NotificationsSent int                   `json:"notifications_sent"`
	ErrorsCount       int                   `json:"errors_count"`
	Notifications     []LicenseNotification `json:"notifications"`
	Errors            []string              `json:"errors"`
	Warnings          []string              `json:"warnings"`
}

func newRunReport(notifyDate string) *RunReport {
	return &RunReport{
		NotifyDate:    notifyDate,
		Notifications: []LicenseNotification{},
		Errors:        []string{},
		Warnings:      []string{},
	}
}

func (r *RunReport) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.ErrorsCount = len(r.Errors)
}

func (r *RunReport) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *RunReport) add(n LicenseNotification) {
	r.Notifications = append(r.Notifications, n)
	r.TotalEmailsSent += n.EmailsSent
	if n.EmailsSent > 0 {
		r.NotificationsSent++
	}
}

// NotificationDeps are the collaborators of NotificationService. SMS and
// Metrics may be nil.
type NotificationDeps struct {
	Store     *NotificationStore
	Settings  *SettingsService
	Mailer    mailer.Backend
	Templates mailer.Templates
	SMS       sms.Sender
	Rates     currency.Converter
	Locker    lock.Locker
	Metrics   *metrics.NotificationMetrics
	Clock     clock.Clock
	Logger    *zap.Logger
	Admin     config.AdminConfig
	SMTP      config.SMTPConfig
}

// NotificationService runs the license expiry notification job.
type NotificationService struct {
	NotificationDeps
	log *zap.Logger
}

func NewNotificationService(deps NotificationDeps) *NotificationService {
	if deps.Templates == nil {
		deps.Templates = mailer.NewTemplates()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Locker == nil {
		deps.Locker = lock.NewLocalLocker()
	}
	return &NotificationService{
		NotificationDeps: deps,
		log:              deps.Logger.With(zap.String("component", "notifications")),
	}
}

func (s *NotificationService) senderName() string {
	if s.SMTP.FromName != "" {
		return s.SMTP.FromName
	}
	return "License Management System"
}

// acquire takes the run lock. The returned func releases it.
func (s *NotificationService) acquire(ctx context.Context) (func(), error) {
	token, ok, err := s.Locker.TryLock(ctx, lock.RunKey, runLockTTL)
	if err != nil {
		return nil, errors.Wrap(err, "acquiring run lock")
	}
	if !ok {
		return nil, lock.ErrRunInProgress
	}
	return func() {
		if err := s.Locker.Release(context.Background(), lock.RunKey, token); err != nil {
			s.log.Warn("Failed to release run lock", zap.Error(err))
		}
	}, nil
}

// Run checks every configured offset and notifies the licenses expiring
// on each target date. A failing offset is reported and the run moves on.
func (s *NotificationService) Run(ctx context.Context, trigger Trigger) (report *RunReport, err error) {
	start := s.Clock.Now()
	outcome := metrics.RunCompleted
	defer func() {
		if err != nil && outcome == metrics.RunCompleted {
			outcome = metrics.RunFailed
		}
		s.Metrics.ObserveRun(string(trigger), outcome, s.Clock.Now().Sub(start))
	}()

	st, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if trigger == TriggerScheduled && !st.Enabled {
		outcome = metrics.RunDisabled
		return nil, ErrNotificationsDisabled
	}

	release, err := s.acquire(ctx)
	if err != nil {
		if errors.Is(err, lock.ErrRunInProgress) {
			outcome = metrics.RunBusy
		}
		return nil, err
	}
	defer release()

	now := s.Clock.Now().In(s.Settings.Location(st))
	today := models.NewDate(now)
	report = newRunReport(today.String())

	s.log.Info("Starting license expiry notifications",
		zap.String("trigger", string(trigger)),
		zap.String("notify_date", report.NotifyDate),
		zap.Ints("offsets", s.Settings.Offsets(st)),
	)

	for _, w := range Windows(now, s.Settings.Offsets(st)) {
		licenses, err := s.Store.LicensesExpiringOn(ctx, w.TargetDate)
		if err != nil {
			s.log.Error("Failed to query expiring licenses",
				zap.Int("offset", w.Offset), zap.String("target_date", w.TargetDate.String()), zap.Error(err))
			report.addError("offset %d (%s): %v", w.Offset, w.TargetDate, err)
			continue
		}

		for i := range licenses {
			report.add(s.notifyLicense(ctx, &licenses[i], w.Label, today, false, report))
		}
	}

	s.log.Info("License expiry notifications completed",
		zap.Int("emails_sent", report.TotalEmailsSent),
		zap.Int("licenses_notified", report.NotificationsSent),
		zap.Int("errors", report.ErrorsCount),
		zap.Int("warnings", len(report.Warnings)),
	)
	return report, nil
}

// SendForLicense notifies one license now, using the notification type
// matching its days remaining. force resends even if already notified today.
func (s *NotificationService) SendForLicense(ctx context.Context, licenseID uint, force bool) (*RunReport, error) {
	license, err := s.Store.FindLicense(ctx, licenseID)
	if err != nil {
		return nil, err
	}

	st, err := s.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	today := models.NewDate(s.Clock.Now().In(s.Settings.Location(st)))
	label := Label(license.DaysRemaining(today))
	report := newRunReport(today.String())

	if !force {
		notified, err := s.Store.AlreadyNotified(ctx, license.ID, label, report.NotifyDate)
		if err != nil {
			return nil, err
		}
		if notified {
			n := s.newLicenseNotification(license, label, today)
			n.Status = LicenseAlreadyNotified
			s.Metrics.Skipped(LicenseAlreadyNotified)
			report.add(n)
			return report, nil
		}
	}

	report.add(s.notifyLicense(ctx, license, label, today, force, report))
	return report, nil
}

func (s *NotificationService) newLicenseNotification(l *models.License, label string, today models.Date) LicenseNotification {
	n := LicenseNotification{
		LicenseID:        l.ID,
		ToolName:         l.ToolName,
		NotificationType: label,
		ExpirationDate:   l.ExpirationDate.String(),
		DaysRemaining:    l.DaysRemaining(today),
		Recipients:       []RecipientResult{},
	}
	if l.Client != nil {
		n.ClientName = l.Client.Name
	}
	return n
}

// notifyLicense walks one license through claim, send and log.
func (s *NotificationService) notifyLicense(ctx context.Context, l *models.License, label string, today models.Date, force bool, report *RunReport) LicenseNotification {
	n := s.newLicenseNotification(l, label, today)
	log := s.log.With(zap.Uint("license_id", l.ID), zap.String("notification_type", label))

	claim, ok, err := s.Store.Claim(ctx, l.ID, label, today.String(), force)
	if err != nil {
		log.Error("Failed to claim notification", zap.Error(err))
		report.addError("license %d (%s): %v", l.ID, l.ToolName, err)
		n.Status = LicenseFailed
		return n
	}
	if !ok {
		log.Debug("Already notified today")
		s.Metrics.Skipped(LicenseAlreadyNotified)
		n.Status = LicenseAlreadyNotified
		return n
	}

	recipients := ResolveRecipients(l, s.Admin)
	if len(recipients) == 0 {
		if err := s.Store.Release(ctx, claim); err != nil {
			log.Warn("Failed to release claim", zap.Error(err))
		}
		log.Info("No recipients for license")
		s.Metrics.Skipped(LicenseNoRecipients)
		n.Status = LicenseNoRecipients
		return n
	}

	data := s.expiryData(ctx, l, today, report)

	attempts, succeeded := 0, 0
	for _, r := range recipients {
		res := s.sendEmail(ctx, l, label, today, r, data, report)
		n.Recipients = append(n.Recipients, res)
		attempts++
		if res.Status == models.StatusSent {
			succeeded++
			n.EmailsSent++
		}
	}

	if res, ok := s.sendSMS(ctx, l, label, today, data, report); ok {
		n.Recipients = append(n.Recipients, res)
		attempts++
		if res.Status == models.StatusSent {
			succeeded++
		}
	}

	switch {
	case succeeded == attempts:
		n.Status = LicenseSent
	case succeeded > 0:
		n.Status = LicensePartial
	default:
		n.Status = LicenseFailed
	}

	final := models.StatusFailed
	if succeeded > 0 {
		final = models.StatusSent
	}
	if err := s.Store.Complete(ctx, claim, final); err != nil {
		log.Warn("Failed to complete claim", zap.Error(err))
		report.addWarning("license %d: claim not completed: %v", l.ID, err)
		s.Metrics.Warning()
	}

	return n
}

func (s *NotificationService) expiryData(ctx context.Context, l *models.License, today models.Date, report *RunReport) mailer.ExpiryTmplData {
	amount, code := l.AuthoritativeTotal()

	data := mailer.ExpiryTmplData{
		ToolName:       l.ToolName,
		Vendor:         l.Vendor,
		Serial:         l.Serial(),
		Quantity:       l.Quantity,
		Cost:           currency.Format(amount, code),
		ExpirationDate: l.ExpirationDate.String(),
		DaysRemaining:  l.DaysRemaining(today),
		SenderName:     s.senderName(),
	}
	if l.Client != nil {
		data.ClientName = l.Client.Name
	}

	if code == models.CurrencyINR {
		return data
	}
	if l.TotalCostINR.IsPositive() {
		data.CostINR = currency.Format(l.TotalCostINR, models.CurrencyINR)
		return data
	}
	if s.Rates == nil {
		return data
	}

	conv, err := s.Rates.Convert(ctx, amount, code, models.CurrencyINR, s.Clock.Now())
	if err != nil {
		s.log.Warn("No exchange rate, INR equivalent omitted",
			zap.Uint("license_id", l.ID), zap.String("currency", code), zap.Error(err))
		report.addWarning("license %d: no %s to INR rate, INR equivalent omitted", l.ID, code)
		s.Metrics.Warning()
		return data
	}
	if conv.Stale {
		s.log.Warn("Stale exchange rate used",
			zap.Uint("license_id", l.ID), zap.String("currency", code), zap.Time("rate_updated_at", conv.RateUpdatedAt))
		report.addWarning("license %d: %s to INR rate last updated %s is stale",
			l.ID, code, conv.RateUpdatedAt.Format(models.DateLayout))
		s.Metrics.Warning()
	}
	data.CostINR = currency.Format(conv.Amount, models.CurrencyINR)
	return data
}

func (s *NotificationService) sendEmail(ctx context.Context, l *models.License, label string, today models.Date, r Recipient, data mailer.ExpiryTmplData, report *RunReport) RecipientResult {
	data.RecipientName = r.Name
	data.RecipientType = r.Type
	data.IsAdmin = r.Type == models.RecipientAdmin

	res := RecipientResult{Recipient: r.Email, Name: r.Name, Type: r.Type, Channel: models.ChannelEmail}
	subject := data.Subject()

	html, text, err := s.Templates.Render(mailer.EmailTypeLicenseExpiry, data)
	if err == nil {
		err = s.Mailer.Send(mailer.Message{
			To:       r.Email,
			ToName:   r.Name,
			Subject:  subject,
			HTMLBody: html,
			TextBody: text,
		})
	}

	res.Status = models.StatusSent
	if err != nil {
		res.Status = models.StatusFailed
		res.Error = err.Error()
		s.log.Error("Failed to send notification email",
			zap.Uint("license_id", l.ID), zap.String("to", r.Email), zap.Error(err))
		report.addError("license %d (%s): email to %s failed: %v", l.ID, l.ToolName, r.Email, err)
	}

	s.logAttempt(ctx, l, &models.NotificationRecord{
		NotificationType: label,
		Channel:          models.ChannelEmail,
		Recipient:        r.Email,
		RecipientType:    r.Type,
		NotifyDate:       today.String(),
		EmailStatus:      res.Status,
		Subject:          subject,
		Body:             html,
		ErrorMessage:     res.Error,
	}, report)
	s.Metrics.Attempt(models.ChannelEmail, label, res.Status)

	return res
}

// sendSMS texts the client when an SMS sender is configured and the
// client has a phone number. ok is false when nothing was attempted.
func (s *NotificationService) sendSMS(ctx context.Context, l *models.License, label string, today models.Date, data mailer.ExpiryTmplData, report *RunReport) (RecipientResult, bool) {
	if s.SMS == nil || l.Client == nil || strings.TrimSpace(l.Client.Phone) == "" {
		return RecipientResult{}, false
	}

	phone := l.Client.Phone
	body := fmt.Sprintf("%s: your %s license %s (%s).", s.senderName(), l.ToolName, data.StatusLine(), data.ExpirationDate)
	res := RecipientResult{Recipient: phone, Name: l.Client.DisplayName(), Type: models.RecipientClient, Channel: models.ChannelSMS}

	channel, err := s.SMS.Send(phone, body)
	if channel != "" {
		res.Channel = channel
	}
	res.Status = models.StatusSent
	if err != nil {
		res.Status = models.StatusFailed
		res.Error = err.Error()
		s.log.Error("Failed to send notification text", zap.Uint("license_id", l.ID), zap.Error(err))
		report.addError("license %d (%s): text to %s failed: %v", l.ID, l.ToolName, phone, err)
	}

	s.logAttempt(ctx, l, &models.NotificationRecord{
		NotificationType: label,
		Channel:          res.Channel,
		Recipient:        phone,
		RecipientType:    models.RecipientClient,
		NotifyDate:       today.String(),
		EmailStatus:      res.Status,
		Body:             body,
		ErrorMessage:     res.Error,
	}, report)
	s.Metrics.Attempt(res.Channel, label, res.Status)

	return res, true
}

// logAttempt writes the audit row. A failed write is reported but does not
// stop the run; the claim still guards against a resend.
func (s *NotificationService) logAttempt(ctx context.Context, l *models.License, rec *models.NotificationRecord, report *RunReport) {
	rec.LicenseID = l.ID
	rec.EmailSentAt = s.Clock.Now().UTC()
	if l.Client != nil {
		rec.UserID = l.Client.UserID
	}

	if err := s.Store.LogAttempt(ctx, rec); err != nil {
		s.log.Error("Failed to log notification attempt",
			zap.Uint("license_id", l.ID), zap.String("recipient", rec.Recipient), zap.Error(err))
		report.addWarning("license %d: attempt to %s not logged: %v", l.ID, rec.Recipient, err)
		s.Metrics.Warning()
	}
}

// TestEmailResult describes where a test email went, without credentials.
type TestEmailResult struct {
	Recipient string `json:"recipient"`
	Transport string `json:"transport"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	From      string `json:"from"`
}

// SendTestEmail sends the canned configuration check to the administrator.
func (s *NotificationService) SendTestEmail(ctx context.Context) (*TestEmailResult, error) {
	result := &TestEmailResult{
		Recipient: s.Admin.Email,
		Transport: s.SMTP.Transport,
		Host:      s.SMTP.Host,
		Port:      s.SMTP.Port,
		From:      s.SMTP.From,
	}
	if s.Admin.Email == "" {
		return result, errors.New("ADMIN_EMAIL is not configured")
	}

	data := mailer.SMTPTestTmplData{
		RecipientName: s.Admin.Name,
		SenderName:    s.senderName(),
		Transport:     s.SMTP.Transport,
		Host:          s.SMTP.Host,
		Port:          s.SMTP.Port,
		SentAt:        s.Clock.Now().Format(time.RFC1123),
	}
	html, text, err := s.Templates.Render(mailer.EmailTypeSMTPTest, data)
	if err != nil {
		return result, err
	}

	err = s.Mailer.Send(mailer.Message{
		To:       s.Admin.Email,
		ToName:   s.Admin.Name,
		Subject:  mailer.SMTPTestSubject,
		HTMLBody: html,
		TextBody: text,
	})
	if err != nil {
		s.log.Error("Test email failed", zap.String("to", s.Admin.Email), zap.Error(err))
		return result, err
	}
	return result, nil
}

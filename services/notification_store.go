package services

import (
	"context"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/config"
	"licensepro-backend/models"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrLicenseNotFound is returned for an unknown license id.
	ErrLicenseNotFound = errors.New("license not found")
	// ErrClaimLost means the claim was taken over before it was completed.
	ErrClaimLost = errors.New("notification claim no longer held")
)

// Claim identifies a reserved (license, notification type, day) slot.
type Claim struct {
	LicenseID        uint
	NotificationType string
	NotifyDate       string
	Token            string
}

// NotificationStore is the persistence side of the notification job:
// license lookups, claims, and the audit log.
type NotificationStore struct {
	db       *gorm.DB
	claimTTL time.Duration
	clock    clock.Clock
}

func NewNotificationStore(db *gorm.DB, claimTTL time.Duration, clk clock.Clock) *NotificationStore {
	return &NotificationStore{db: db, claimTTL: claimTTL, clock: clk}
}

// LicensesExpiringOn returns the licenses expiring on date, with their client.
func (s *NotificationStore) LicensesExpiringOn(ctx context.Context, date models.Date) ([]models.License, error) {
	var licenses []models.License
	err := s.db.WithContext(ctx).
		Preload("Client").
		Where("expiration_date = ?", date).
		Order("id").
		Find(&licenses).Error
	if err != nil {
		return nil, errors.Wrapf(err, "finding licenses expiring on %s", date)
	}
	return licenses, nil
}

func (s *NotificationStore) FindLicense(ctx context.Context, id uint) (*models.License, error) {
	var l models.License
	err := s.db.WithContext(ctx).Preload("Client").First(&l, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLicenseNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading license %d", id)
	}
	return &l, nil
}

// Claim reserves the slot before anything is sent. A slot can be taken
// when it is free, when its last attempt failed, or when a pending claim
// is older than the claim TTL. force takes it regardless.
func (s *NotificationStore) Claim(ctx context.Context, licenseID uint, notificationType, notifyDate string, force bool) (*Claim, bool, error) {
	now := s.clock.Now().UTC()
	c := &Claim{
		LicenseID:        licenseID,
		NotificationType: notificationType,
		NotifyDate:       notifyDate,
		Token:            uuid.NewString(),
	}

	row := models.NotificationClaim{
		LicenseID:        licenseID,
		NotificationType: notificationType,
		NotifyDate:       notifyDate,
		Status:           models.StatusPending,
		Token:            c.Token,
		ClaimedAt:        now,
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return c, true, nil
	}
	if !config.IsDuplicateKeyErr(err) {
		return nil, false, errors.Wrap(err, "inserting notification claim")
	}

	q := s.db.WithContext(ctx).
		Model(&models.NotificationClaim{}).
		Where("license_id = ? AND notification_type = ? AND notify_date = ?", licenseID, notificationType, notifyDate)
	if !force {
		q = q.Where("(status = ? OR (status = ? AND claimed_at < ?))",
			models.StatusFailed, models.StatusPending, now.Add(-s.claimTTL))
	}

	res := q.Updates(map[string]interface{}{
		"status":       models.StatusPending,
		"token":        c.Token,
		"claimed_at":   now,
		"completed_at": nil,
	})
	if res.Error != nil {
		return nil, false, errors.Wrap(res.Error, "taking over notification claim")
	}
	if res.RowsAffected != 1 {
		return nil, false, nil
	}
	return c, true, nil
}

// Complete records the final status of a claim.
func (s *NotificationStore) Complete(ctx context.Context, c *Claim, status string) error {
	now := s.clock.Now().UTC()
	res := s.claimQuery(ctx, c).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": now,
	})
	if res.Error != nil {
		return errors.Wrap(res.Error, "completing notification claim")
	}
	if res.RowsAffected == 0 {
		return ErrClaimLost
	}
	return nil
}

// Release drops a claim that led to no send attempt, so a later run can
// try again.
func (s *NotificationStore) Release(ctx context.Context, c *Claim) error {
	err := s.claimQuery(ctx, c).Delete(&models.NotificationClaim{}).Error
	return errors.Wrap(err, "releasing notification claim")
}

func (s *NotificationStore) claimQuery(ctx context.Context, c *Claim) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&models.NotificationClaim{}).
		Where("license_id = ? AND notification_type = ? AND notify_date = ? AND token = ?",
			c.LicenseID, c.NotificationType, c.NotifyDate, c.Token)
}

// AlreadyNotified reports whether the slot has been completed successfully.
func (s *NotificationStore) AlreadyNotified(ctx context.Context, licenseID uint, notificationType, notifyDate string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.NotificationClaim{}).
		Where("license_id = ? AND notification_type = ? AND notify_date = ? AND status = ?",
			licenseID, notificationType, notifyDate, models.StatusSent).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "checking notification claims")
	}
	return count > 0, nil
}

// LogAttempt writes one audit row.
func (s *NotificationStore) LogAttempt(ctx context.Context, rec *models.NotificationRecord) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(rec).Error, "logging notification attempt")
}

type HistoryFilter struct {
	LicenseID uint
	Status    string
	Limit     int
}

func (s *NotificationStore) History(ctx context.Context, f HistoryFilter) ([]models.NotificationRecord, error) {
	q := s.db.WithContext(ctx).Model(&models.NotificationRecord{})
	if f.LicenseID != 0 {
		q = q.Where("license_id = ?", f.LicenseID)
	}
	if f.Status != "" {
		q = q.Where("email_status = ?", f.Status)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var records []models.NotificationRecord
	if err := q.Order("email_sent_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "loading notification history")
	}
	return records, nil
}

package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"licensepro-backend/config"
	"licensepro-backend/models"
	"licensepro-backend/utils"

	"github.com/pkg/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultNotificationTime = "09:00"

// ValidationError is a problem with user supplied settings.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SettingsInput is the writable part of the notification settings.
// Omitted fields keep their current value.
type SettingsInput struct {
	Enabled          *bool  `json:"enabled"`
	NotificationDays []int  `json:"notification_days"`
	NotificationTime string `json:"notification_time"`
	Timezone         string `json:"timezone"`
}

// SettingsService owns the notification schedule of the account the job
// runs for.
type SettingsService struct {
	db       *gorm.DB
	userID   uint
	days     []int
	timezone string

	mu       sync.Mutex
	onChange []func(models.NotificationSettings)
}

func NewSettingsService(db *gorm.DB, cfg config.Config) *SettingsService {
	return &SettingsService{
		db:       db,
		userID:   cfg.Notify.SettingsUserID,
		days:     cfg.Notify.DefaultDays,
		timezone: cfg.Timezone,
	}
}

// OnChange registers a callback run after settings are saved.
func (s *SettingsService) OnChange(fn func(models.NotificationSettings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *SettingsService) defaults() models.NotificationSettings {
	days := s.days
	if len(days) == 0 {
		days = config.DefaultNotificationDays
	}
	return models.NotificationSettings{
		UserID:           s.userID,
		Enabled:          true,
		NotificationDays: datatypes.JSONSlice[int](normalizeDays(days)),
		NotificationTime: defaultNotificationTime,
		Timezone:         s.timezone,
	}
}

// Get returns the settings row, creating it with defaults on first use.
func (s *SettingsService) Get(ctx context.Context) (*models.NotificationSettings, error) {
	var st models.NotificationSettings
	err := s.db.WithContext(ctx).Where("user_id = ?", s.userID).First(&st).Error
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "loading notification settings")
	}

	st = s.defaults()
	if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
		if !config.IsDuplicateKeyErr(err) {
			return nil, errors.Wrap(err, "creating notification settings")
		}
		// created concurrently
		if err := s.db.WithContext(ctx).Where("user_id = ?", s.userID).First(&st).Error; err != nil {
			return nil, errors.Wrap(err, "loading notification settings")
		}
	}
	return &st, nil
}

// Update validates in and saves it. Nothing is written when validation fails.
func (s *SettingsService) Update(ctx context.Context, in SettingsInput) (*models.NotificationSettings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if in.Enabled != nil {
		st.Enabled = *in.Enabled
	}
	if in.NotificationDays != nil {
		days, err := ValidateDays(in.NotificationDays)
		if err != nil {
			return nil, err
		}
		st.NotificationDays = datatypes.JSONSlice[int](days)
	}
	if in.NotificationTime != "" {
		hour, minute, err := utils.ParseClock(in.NotificationTime)
		if err != nil {
			return nil, &ValidationError{Field: "notification_time", Message: err.Error()}
		}
		st.NotificationTime = utils.FormatClock(hour, minute)
	}
	if tz := strings.TrimSpace(in.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, &ValidationError{Field: "timezone", Message: fmt.Sprintf("unknown timezone %q", tz)}
		}
		st.Timezone = tz
	}

	if err := s.db.WithContext(ctx).Save(st).Error; err != nil {
		return nil, errors.Wrap(err, "saving notification settings")
	}

	s.mu.Lock()
	callbacks := append([]func(models.NotificationSettings){}, s.onChange...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(*st)
	}

	return st, nil
}

// ValidateDays checks a list of day offsets and returns it de-duplicated,
// furthest first.
func ValidateDays(days []int) ([]int, error) {
	if err := config.CheckDays(days); err != nil {
		return nil, &ValidationError{Field: "notification_days", Message: err.Error()}
	}
	return normalizeDays(days), nil
}

func normalizeDays(days []int) []int {
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// Offsets returns the day offsets of st, or the configured defaults when
// the row has none.
func (s *SettingsService) Offsets(st *models.NotificationSettings) []int {
	if st != nil && len(st.NotificationDays) > 0 {
		return []int(st.NotificationDays)
	}
	return []int(s.defaults().NotificationDays)
}

// CurrentLocation is the timezone of the stored settings, the one runs
// count today in.
func (s *SettingsService) CurrentLocation(ctx context.Context) *time.Location {
	st, err := s.Get(ctx)
	if err != nil {
		return s.Location(nil)
	}
	return s.Location(st)
}

// Location resolves the timezone of st, falling back to the process
// timezone for rows holding an unknown name.
func (s *SettingsService) Location(st *models.NotificationSettings) *time.Location {
	if st != nil && st.Timezone != "" {
		if loc, err := time.LoadLocation(st.Timezone); err == nil {
			return loc
		}
	}
	if loc, err := time.LoadLocation(s.timezone); err == nil {
		return loc
	}
	return time.UTC
}

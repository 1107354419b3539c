package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// MaxOffsetDays bounds a notification day offset in either direction.
const MaxOffsetDays = 365

// DefaultNotificationDays is the canonical set of day offsets at which
// expiry notifications go out.
var DefaultNotificationDays = []int{30, 15, 7, 5, 1, 0}

// Config holds every setting the process reads from its environment.
// It is built once at startup and passed to whatever needs it.
type Config struct {
	Port     string
	Env      string
	LogLevel string
	Timezone string

	DB    DBConfig
	SMTP  SMTPConfig
	Admin AdminConfig

	Notify   NotifyConfig
	JWT      JWTConfig
	Redis    RedisConfig
	Twilio   TwilioConfig
	Currency CurrencyConfig
}

type DBConfig struct {
	Type     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	Path     string
}

type SMTPConfig struct {
	Transport    string
	Host         string
	Port         int
	Username     string
	Password     string
	From         string
	FromName     string
	SendmailPath string
}

type AdminConfig struct {
	Email string
	Name  string
}

type NotifyConfig struct {
	DefaultDays    []int
	SettingsUserID uint
	ClaimTTL       time.Duration
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	PhoneNumber    string
	WhatsAppNumber string
}

type CurrencyConfig struct {
	RateMaxAge time.Duration
}

// SMSEnabled reports whether Twilio credentials are present.
func (c TwilioConfig) SMSEnabled() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.PhoneNumber != ""
}

// Location resolves the configured timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "loading timezone %q", c.Timezone)
	}
	return loc, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("app_timezone", "Asia/Kolkata")

	v.SetDefault("db_type", "mysql")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "3306")
	v.SetDefault("db_name", "license_management")
	v.SetDefault("db_path", "licensepro.db")

	v.SetDefault("mail_transport", "smtp")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from_name", "License Management System")
	v.SetDefault("sendmail_path", "/usr/sbin/sendmail")
	v.SetDefault("admin_name", "Administrator")

	v.SetDefault("notify_default_days", "30,15,7,5,1,0")
	v.SetDefault("notify_settings_user_id", 1)
	v.SetDefault("notify_claim_ttl", "15m")

	v.SetDefault("jwt_expiry_hours", 24)
	v.SetDefault("redis_db", 0)
	v.SetDefault("currency_rate_max_age", "720h")
}

// Load reads the .env file if there is one, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	days, err := ParseDays(v.GetString("notify_default_days"))
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing NOTIFY_DEFAULT_DAYS")
	}

	cfg := Config{
		Port:     v.GetString("port"),
		Env:      v.GetString("app_env"),
		LogLevel: v.GetString("log_level"),
		Timezone: v.GetString("app_timezone"),
		DB: DBConfig{
			Type:     strings.ToLower(v.GetString("db_type")),
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			Name:     v.GetString("db_name"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			Path:     v.GetString("db_path"),
		},
		SMTP: SMTPConfig{
			Transport:    strings.ToLower(v.GetString("mail_transport")),
			Host:         v.GetString("smtp_host"),
			Port:         v.GetInt("smtp_port"),
			Username:     v.GetString("smtp_username"),
			Password:     v.GetString("smtp_password"),
			From:         v.GetString("smtp_from"),
			FromName:     v.GetString("smtp_from_name"),
			SendmailPath: v.GetString("sendmail_path"),
		},
		Admin: AdminConfig{
			Email: v.GetString("admin_email"),
			Name:  v.GetString("admin_name"),
		},
		Notify: NotifyConfig{
			DefaultDays:    days,
			SettingsUserID: v.GetUint("notify_settings_user_id"),
			ClaimTTL:       v.GetDuration("notify_claim_ttl"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("jwt_secret"),
			ExpiryHours: v.GetInt("jwt_expiry_hours"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		Twilio: TwilioConfig{
			AccountSID:     v.GetString("twilio_account_sid"),
			AuthToken:      v.GetString("twilio_auth_token"),
			PhoneNumber:    v.GetString("twilio_phone_number"),
			WhatsAppNumber: v.GetString("twilio_whatsapp_number"),
		},
		Currency: CurrencyConfig{
			RateMaxAge: v.GetDuration("currency_rate_max_age"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings that would otherwise fail late, mid-run.
func (c Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.DB.Type {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.Errorf("unsupported DB_TYPE %q", c.DB.Type)
	}

	switch c.SMTP.Transport {
	case "smtp", "sendmail", "stdout":
	default:
		return errors.Errorf("unsupported MAIL_TRANSPORT %q", c.SMTP.Transport)
	}

	if err := CheckDays(c.Notify.DefaultDays); err != nil {
		return errors.Wrap(err, "invalid NOTIFY_DEFAULT_DAYS")
	}

	if c.Notify.ClaimTTL <= 0 {
		return errors.New("NOTIFY_CLAIM_TTL must be positive")
	}

	return nil
}

// CheckDays rejects an empty list and offsets beyond MaxOffsetDays.
func CheckDays(days []int) error {
	if len(days) == 0 {
		return errors.New("at least one day is required")
	}
	for _, d := range days {
		if d < -MaxOffsetDays || d > MaxOffsetDays {
			return errors.Errorf("%d is outside -%d..%d", d, MaxOffsetDays, MaxOffsetDays)
		}
	}
	return nil
}

// ParseDays parses a comma separated list of day offsets such as "30,15,7,1,0".
func ParseDays(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	days := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid day offset %q", p)
		}
		days = append(days, n)
	}
	if len(days) == 0 {
		return nil, errors.New("no day offsets given")
	}
	return days, nil
}

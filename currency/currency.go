// Package currency owns exchange rates to INR and how amounts are shown
// in notifications. Rates live in the currencies table; nothing here
// falls back to a hard-coded rate.
package currency

import (
	"context"
	"strings"
	"time"

	"licensepro-backend/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRateUnavailable means no rate is stored for one side of a conversion.
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// Converter turns an amount in one currency into another as of a point in time.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (Conversion, error)
}

var _ Converter = (*Service)(nil)

// Conversion is the result of converting an amount, with enough context
// for the caller to warn about an old rate.
type Conversion struct {
	Amount        decimal.Decimal
	Rate          decimal.Decimal
	RateUpdatedAt time.Time
	Stale         bool
}

// Service is the database backed Converter.
type Service struct {
	db     *gorm.DB
	maxAge time.Duration
}

// NewService creates a currency service. Rates older than maxAge are
// reported as stale; zero disables the check.
func NewService(db *gorm.DB, maxAge time.Duration) *Service {
	return &Service{db: db, maxAge: maxAge}
}

// Defaults are the rows seeded into an empty currencies table.
func Defaults(now time.Time) []models.Currency {
	return []models.Currency{
		{Code: "INR", Name: "Indian Rupee", Symbol: "₹", ExchangeRateToINR: decimal.NewFromInt(1), IsDefault: true, RateUpdatedAt: now},
		{Code: "USD", Name: "US Dollar", Symbol: "$", ExchangeRateToINR: decimal.RequireFromString("83.0"), RateUpdatedAt: now},
		{Code: "AED", Name: "UAE Dirham", Symbol: "AED", ExchangeRateToINR: decimal.RequireFromString("22.74"), RateUpdatedAt: now},
	}
}

// SeedDefaults inserts the default currencies that are not present yet.
// Existing rows, and the rates operators have set on them, are left alone.
func (s *Service) SeedDefaults(ctx context.Context, now time.Time) error {
	defaults := Defaults(now.UTC())
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&defaults).Error
	return errors.Wrap(err, "seeding currencies")
}

// List returns all currencies, seeding the defaults on first access.
func (s *Service) List(ctx context.Context, now time.Time) ([]models.Currency, error) {
	var currencies []models.Currency
	if err := s.db.WithContext(ctx).Order("is_default DESC, code").Find(&currencies).Error; err != nil {
		return nil, errors.Wrap(err, "listing currencies")
	}
	if len(currencies) > 0 {
		return currencies, nil
	}

	if err := s.SeedDefaults(ctx, now); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Order("is_default DESC, code").Find(&currencies).Error; err != nil {
		return nil, errors.Wrap(err, "listing currencies")
	}
	return currencies, nil
}

func (s *Service) Get(ctx context.Context, code string) (models.Currency, error) {
	var c models.Currency
	err := s.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c, errors.Wrapf(ErrRateUnavailable, "currency %s", strings.ToUpper(code))
	}
	if err != nil {
		return c, errors.Wrapf(err, "loading currency %s", code)
	}
	return c, nil
}

// UpdateRate stores a new rate to INR and stamps it with now.
func (s *Service) UpdateRate(ctx context.Context, code string, rate decimal.Decimal, now time.Time) (models.Currency, error) {
	if !rate.IsPositive() {
		return models.Currency{}, errors.New("exchange rate must be positive")
	}

	c, err := s.Get(ctx, code)
	if err != nil {
		return c, err
	}

	c.ExchangeRateToINR = rate
	c.RateUpdatedAt = now.UTC()
	if err := s.db.WithContext(ctx).Save(&c).Error; err != nil {
		return c, errors.Wrap(err, "saving currency")
	}
	return c, nil
}

// Convert turns amount in from into to using the stored INR cross rates.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string, asOf time.Time) (Conversion, error) {
	q, err := s.quote(ctx, from, to, asOf)
	if err != nil {
		return Conversion{}, err
	}
	q.Amount = amount.Mul(q.Rate)
	return q, nil
}

func (s *Service) quote(ctx context.Context, from, to string, asOf time.Time) (Conversion, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return Conversion{Rate: decimal.NewFromInt(1), RateUpdatedAt: asOf}, nil
	}

	src, err := s.Get(ctx, from)
	if err != nil {
		return Conversion{}, err
	}
	dst, err := s.Get(ctx, to)
	if err != nil {
		return Conversion{}, err
	}
	if !src.ExchangeRateToINR.IsPositive() || !dst.ExchangeRateToINR.IsPositive() {
		return Conversion{}, errors.Wrapf(ErrRateUnavailable, "%s to %s", from, to)
	}

	updated := src.RateUpdatedAt
	if dst.Code != models.CurrencyINR && dst.RateUpdatedAt.Before(updated) {
		updated = dst.RateUpdatedAt
	}
	if src.Code == models.CurrencyINR {
		updated = dst.RateUpdatedAt
	}

	return Conversion{
		Rate:          src.ExchangeRateToINR.Div(dst.ExchangeRateToINR),
		RateUpdatedAt: updated,
		Stale:         s.maxAge > 0 && asOf.Sub(updated) > s.maxAge,
	}, nil
}

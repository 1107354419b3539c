package currency

import (
	"context"
	"testing"
	"time"

	"licensepro-backend/testutils"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaults(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	svc := NewService(db, 24*time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	list, err := svc.List(ctx, now)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "INR", list[0].Code, "default currency comes first")

	// operator rates survive re-seeding
	_, err = svc.UpdateRate(ctx, "usd", decimal.RequireFromString("84.5"), now)
	require.NoError(t, err)
	require.NoError(t, svc.SeedDefaults(ctx, now))

	usd, err := svc.Get(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, usd.ExchangeRateToINR.Equal(decimal.RequireFromString("84.5")))
}

func TestConvert(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	svc := NewService(db, 72*time.Hour)

	testutils.SetupCurrency(t, db, "INR", "1", now)
	testutils.SetupCurrency(t, db, "USD", "83.0", now.Add(-24*time.Hour))
	testutils.SetupCurrency(t, db, "AED", "22.74", now.Add(-30*24*time.Hour))

	t.Run("to INR", func(t *testing.T) {
		conv, err := svc.Convert(ctx, decimal.NewFromInt(500), "USD", "INR", now)
		require.NoError(t, err)
		assert.True(t, conv.Amount.Equal(decimal.NewFromInt(41500)), conv.Amount.String())
		assert.False(t, conv.Stale)
	})

	t.Run("cross rate", func(t *testing.T) {
		conv, err := svc.Convert(ctx, decimal.NewFromInt(10), "USD", "AED", now)
		require.NoError(t, err)
		assert.Equal(t, "3.65", conv.Rate.StringFixed(2))
		assert.Equal(t, "36.50", conv.Amount.StringFixed(2))
	})

	t.Run("stale rate is flagged", func(t *testing.T) {
		conv, err := svc.Convert(ctx, decimal.NewFromInt(100), "AED", "INR", now)
		require.NoError(t, err)
		assert.True(t, conv.Stale)
		assert.True(t, conv.Amount.Equal(decimal.NewFromInt(2274)))
	})

	t.Run("same currency", func(t *testing.T) {
		conv, err := svc.Convert(ctx, decimal.NewFromInt(7), "EUR", "eur", now)
		require.NoError(t, err)
		assert.True(t, conv.Amount.Equal(decimal.NewFromInt(7)))
	})

	t.Run("missing rate", func(t *testing.T) {
		_, err := svc.Convert(ctx, decimal.NewFromInt(7), "EUR", "INR", now)
		assert.True(t, errors.Is(err, ErrRateUnavailable))
	})
}

func TestUpdateRateValidation(t *testing.T) {
	db := testutils.InitMemoryDB(t)
	svc := NewService(db, 0)

	_, err := svc.UpdateRate(context.Background(), "USD", decimal.Zero, time.Now())
	assert.Error(t, err)

	_, err = svc.UpdateRate(context.Background(), "XYZ", decimal.NewFromInt(2), time.Now())
	assert.True(t, errors.Is(err, ErrRateUnavailable))
}

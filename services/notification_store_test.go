package services

import (
	"context"
	"testing"
	"time"

	"licensepro-backend/models"
	"licensepro-backend/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLicensesExpiringOn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	client := testutils.SetupClient(t, env.db, "Acme", "c@x.com")
	target := env.today.AddDate(0, 0, 7)
	a := testutils.SetupLicense(t, env.db, &client, "A", target, "INR", 100)
	testutils.SetupLicense(t, env.db, &client, "B", target.AddDate(0, 0, 1), "INR", 100)
	testutils.SetupLicense(t, env.db, &client, "C", target.AddDate(0, 0, -1), "INR", 100)
	unassigned := testutils.SetupLicense(t, env.db, nil, "D", target, "INR", 100)

	licenses, err := env.store.LicensesExpiringOn(ctx, models.NewDate(target))
	require.NoError(t, err)
	require.Len(t, licenses, 2)

	assert.Equal(t, a.ID, licenses[0].ID)
	require.NotNil(t, licenses[0].Client)
	assert.Equal(t, "c@x.com", licenses[0].Client.Email)
	assert.Equal(t, unassigned.ID, licenses[1].ID)
	assert.Nil(t, licenses[1].Client)
}

func TestClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const day = "2026-10-19"

	c, ok, err := env.store.Claim(ctx, 1, "7_days", day, false)
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("pending claim blocks others", func(t *testing.T) {
		_, ok, err := env.store.Claim(ctx, 1, "7_days", day, false)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("other slots are independent", func(t *testing.T) {
		_, ok, err := env.store.Claim(ctx, 1, "1_day", day, false)
		require.NoError(t, err)
		assert.True(t, ok)
		_, ok, err = env.store.Claim(ctx, 1, "7_days", "2026-10-20", false)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale pending claim is taken over", func(t *testing.T) {
		env.clock.Advance(20 * time.Minute)
		c2, ok, err := env.store.Claim(ctx, 1, "7_days", day, false)
		require.NoError(t, err)
		require.True(t, ok)

		// the original holder lost it
		assert.Equal(t, ErrClaimLost, env.store.Complete(ctx, c, models.StatusSent))
		require.NoError(t, env.store.Complete(ctx, c2, models.StatusSent))
	})

	t.Run("sent claim blocks without force", func(t *testing.T) {
		env.clock.Advance(time.Hour)
		_, ok, err := env.store.Claim(ctx, 1, "7_days", day, false)
		require.NoError(t, err)
		assert.False(t, ok)

		notified, err := env.store.AlreadyNotified(ctx, 1, "7_days", day)
		require.NoError(t, err)
		assert.True(t, notified)

		_, ok, err = env.store.Claim(ctx, 1, "7_days", day, true)
		require.NoError(t, err)
		assert.True(t, ok)

		notified, err = env.store.AlreadyNotified(ctx, 1, "7_days", day)
		require.NoError(t, err)
		assert.False(t, notified, "forced claim is pending again")
	})
}

func TestReleaseFreesSlot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, ok, err := env.store.Claim(ctx, 5, "expired", "2026-10-19", false)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, env.store.Release(ctx, c))

	_, ok, err = env.store.Claim(ctx, 5, "expired", "2026-10-19", false)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i, status := range []string{models.StatusSent, models.StatusFailed, models.StatusSent} {
		require.NoError(t, env.store.LogAttempt(ctx, &models.NotificationRecord{
			LicenseID:        uint(1 + i%2),
			NotificationType: "7_days",
			Channel:          models.ChannelEmail,
			Recipient:        "c@x.com",
			EmailStatus:      status,
			EmailSentAt:      env.today.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := env.store.History(ctx, HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	one, err := env.store.History(ctx, HistoryFilter{LicenseID: 1})
	require.NoError(t, err)
	assert.Len(t, one, 2)

	failed, err := env.store.History(ctx, HistoryFilter{Status: models.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, uint(2), failed[0].LicenseID)
}

package services

import (
	"context"
	"testing"

	"licensepro-backend/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsCreatedOnFirstRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	st, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), st.UserID)
	assert.True(t, st.Enabled)
	assert.Equal(t, []int{30, 15, 7, 5, 1, 0}, []int(st.NotificationDays))
	assert.Equal(t, "09:00", st.NotificationTime)
	assert.Equal(t, "Asia/Kolkata", st.Timezone)

	again, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, st.ID, again.ID)

	var count int64
	env.db.Model(&models.NotificationSettings{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestSettingsUpdateRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var notified []models.NotificationSettings
	env.settings.OnChange(func(st models.NotificationSettings) {
		notified = append(notified, st)
	})

	enabled := false
	_, err := env.settings.Update(ctx, SettingsInput{
		Enabled:          &enabled,
		NotificationDays: []int{1, 14, 1, 60},
		NotificationTime: "07:45:30",
		Timezone:         "America/New_York",
	})
	require.NoError(t, err)

	st, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled)
	assert.ElementsMatch(t, []int{60, 14, 1}, []int(st.NotificationDays))
	assert.Equal(t, "07:45", st.NotificationTime)
	assert.Equal(t, "America/New_York", st.Timezone)
	assert.Equal(t, "America/New_York", env.settings.Location(st).String())

	require.Len(t, notified, 1)
	assert.Equal(t, "07:45", notified[0].NotificationTime)
}

func TestSettingsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	testCases := []struct {
		name  string
		input SettingsInput
		field string
	}{
		{"empty days", SettingsInput{NotificationDays: []int{}}, "notification_days"},
		{"day out of range", SettingsInput{NotificationDays: []int{30, 400}}, "notification_days"},
		{"bad time", SettingsInput{NotificationTime: "25:00"}, "notification_time"},
		{"garbage time", SettingsInput{NotificationTime: "nine"}, "notification_time"},
		{"bad timezone", SettingsInput{Timezone: "Mars/Olympus"}, "timezone"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.settings.Update(ctx, tc.input)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tc.field, verr.Field)
		})
	}

	st, err := env.settings.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "09:00", st.NotificationTime, "failed updates must not write")
}

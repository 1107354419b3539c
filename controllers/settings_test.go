package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"licensepro-backend/models"
	"licensepro-backend/services"
	"licensepro-backend/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodGet, "/notification-settings", nil)
	assertStatus(t, w, http.StatusOK)

	var st models.NotificationSettings
	decodeData(t, env, &st)
	assert.True(t, st.Enabled)
	assert.Equal(t, []int{30, 15, 7, 5, 1, 0}, []int(st.NotificationDays))
	assert.Equal(t, "09:00", st.NotificationTime)
	assert.Equal(t, "Asia/Kolkata", st.Timezone)

	w, env = s.do(t, http.MethodPost, "/notification-settings", map[string]interface{}{
		"enabled":           false,
		"notification_days": []int{1, 7, 7, 30, -3},
		"notification_time": "08:30:00",
		"timezone":          "Europe/Berlin",
	})
	assertStatus(t, w, http.StatusOK)
	assert.True(t, env.Success)

	w, env = s.do(t, http.MethodGet, "/notification-settings", nil)
	assertStatus(t, w, http.StatusOK)

	st = models.NotificationSettings{}
	decodeData(t, env, &st)
	assert.False(t, st.Enabled)
	assert.Equal(t, []int{30, 7, 1, -3}, []int(st.NotificationDays))
	assert.Equal(t, "08:30", st.NotificationTime)
	assert.Equal(t, "Europe/Berlin", st.Timezone)

	var count int64
	require.NoError(t, s.db.Model(&models.NotificationSettings{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSettingsValidationErrors(t *testing.T) {
	s := newTestServer(t)

	testCases := []struct {
		name string
		body interface{}
	}{
		{"bad time", map[string]interface{}{"notification_time": "25:00"}},
		{"bad timezone", map[string]interface{}{"timezone": "Mars/Olympus"}},
		{"empty days", map[string]interface{}{"notification_days": []int{}}},
		{"day out of range", map[string]interface{}{"notification_days": []int{400}}},
		{"days not a list", `{"notification_days":"30,15"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := s.do(t, http.MethodPost, "/notification-settings", tc.body)
			assertStatus(t, w, http.StatusBadRequest)
			assert.False(t, env.Success)
		})
	}

	// nothing was written
	w, env := s.do(t, http.MethodGet, "/notification-settings", nil)
	assertStatus(t, w, http.StatusOK)
	var st models.NotificationSettings
	decodeData(t, env, &st)
	assert.Equal(t, "09:00", st.NotificationTime)
	assert.Equal(t, "Asia/Kolkata", st.Timezone)
}

func TestSettingsTimezoneDrivesToday(t *testing.T) {
	s := newTestServer(t)
	// 09:00 on the 19th in Kolkata is still the evening of the 18th in Los Angeles
	license := testutils.SetupLicense(t, s.db, nil, "Slack", s.now.AddDate(0, 0, 7), "INR", 1000)
	path := fmt.Sprintf("/licenses/%d", license.ID)

	var view LicenseView
	w, env := s.do(t, http.MethodGet, path, nil)
	assertStatus(t, w, http.StatusOK)
	decodeData(t, env, &view)
	assert.Equal(t, 7, view.DaysRemaining)

	w, _ = s.do(t, http.MethodPost, "/notification-settings", map[string]interface{}{"timezone": "America/Los_Angeles"})
	assertStatus(t, w, http.StatusOK)

	w, env = s.do(t, http.MethodGet, path, nil)
	assertStatus(t, w, http.StatusOK)
	decodeData(t, env, &view)
	assert.Equal(t, 8, view.DaysRemaining)

	w, env = s.do(t, http.MethodPost, "/notifications/check-expiring-licenses", map[string]interface{}{"license_id": license.ID})
	assertStatus(t, w, http.StatusOK)
	var report services.RunReport
	decodeData(t, env, &report)
	assert.Equal(t, "2026-10-18", report.NotifyDate)
	require.Len(t, report.Notifications, 1)
	assert.Equal(t, "8_days", report.Notifications[0].NotificationType)
	assert.Equal(t, view.DaysRemaining, report.Notifications[0].DaysRemaining)
}

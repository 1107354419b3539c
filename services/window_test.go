package services

import (
	"testing"
	"time"

	"licensepro-backend/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	testCases := []struct {
		offset   int
		expected string
	}{
		{30, "30_days"},
		{15, "15_days"},
		{7, "7_days"},
		{5, "5_days"},
		{1, "1_day"},
		{0, "0_days"},
		{-1, "expired"},
		{-30, "expired"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, Label(tc.offset), "offset %d", tc.offset)
	}
}

func TestWindows(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	// 00:30 in IST is still the previous day in UTC
	today := time.Date(2026, 10, 19, 0, 30, 0, 0, loc)

	got := Windows(today, []int{0, 7, 30, 7, 1, -1})

	day := func(d int) models.Date {
		return models.Date{Time: time.Date(2026, 10, 19+d, 0, 0, 0, 0, time.UTC)}
	}
	want := []Window{
		{Offset: 30, TargetDate: day(30), Label: "30_days"},
		{Offset: 7, TargetDate: day(7), Label: "7_days"},
		{Offset: 1, TargetDate: day(1), Label: "1_day"},
		{Offset: 0, TargetDate: day(0), Label: "0_days"},
		{Offset: -1, TargetDate: day(-1), Label: "expired"},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Windows() mismatch (-want +got):\n%s", diff)
	}
}

func TestWindowsEmpty(t *testing.T) {
	assert.Empty(t, Windows(time.Now(), nil))
}

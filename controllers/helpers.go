package controllers

import (
	"context"
	"time"

	"licensepro-backend/clock"
	"licensepro-backend/models"
)

// Timezone resolves the location notification runs count days in.
type Timezone interface {
	CurrentLocation(ctx context.Context) *time.Location
}

// localToday is the calendar date in tz's location, UTC when tz is nil.
func localToday(ctx context.Context, clk clock.Clock, tz Timezone) (models.Date, *time.Location) {
	loc := time.UTC
	if tz != nil {
		loc = tz.CurrentLocation(ctx)
	}
	return models.NewDate(clk.Now().In(loc)), loc
}

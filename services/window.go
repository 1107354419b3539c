package services

import (
	"fmt"
	"sort"
	"time"

	"licensepro-backend/models"
)

// LabelExpired is used for every negative offset.
const LabelExpired = "expired"

// Window is one day offset of a run: licenses expiring on TargetDate get
// a notification of type Label.
type Window struct {
	Offset     int
	TargetDate models.Date
	Label      string
}

// Label maps a day offset to its notification type.
func Label(offset int) string {
	switch {
	case offset < 0:
		return LabelExpired
	case offset == 1:
		return "1_day"
	default:
		return fmt.Sprintf("%d_days", offset)
	}
}

// Windows computes the target dates for today, the calendar date of t in
// its own location. Offsets are de-duplicated and returned furthest first.
func Windows(today time.Time, offsets []int) []Window {
	day := models.NewDate(today)

	seen := make(map[int]bool, len(offsets))
	unique := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if seen[o] {
			continue
		}
		seen[o] = true
		unique = append(unique, o)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(unique)))

	windows := make([]Window, 0, len(unique))
	for _, o := range unique {
		windows = append(windows, Window{
			Offset:     o,
			TargetDate: day.AddDays(o),
			Label:      Label(o),
		})
	}
	return windows
}

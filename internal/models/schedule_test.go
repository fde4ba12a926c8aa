package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleWindow_ActiveAt(t *testing.T) {
	window := ScheduleWindow{
		ID:         "s1",
		PlaylistID: "p1",
		BranchID:   "b1",
		StartDate:  "2024-05-01",
		EndDate:    "2024-05-31",
		StartTime:  "09:00",
		EndTime:    "18:00",
		Days:       []string{"mon", "wed"},
	}

	tests := []struct {
		name   string
		at     time.Time
		active bool
	}{
		{"wednesday inside window", time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC), true},
		{"wednesday after window", time.Date(2024, 5, 15, 19, 0, 0, 0, time.UTC), false},
		{"tuesday inside window", time.Date(2024, 5, 14, 10, 0, 0, 0, time.UTC), false},
		{"start time inclusive", time.Date(2024, 5, 13, 9, 0, 0, 0, time.UTC), true},
		{"end time inclusive", time.Date(2024, 5, 13, 18, 0, 59, 0, time.UTC), true},
		{"one minute past end", time.Date(2024, 5, 13, 18, 1, 0, 0, time.UTC), false},
		{"start date inclusive", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), true},
		{"end date inclusive", time.Date(2024, 5, 29, 12, 0, 0, 0, time.UTC), true},
		{"before start date", time.Date(2024, 4, 29, 12, 0, 0, 0, time.UTC), false},
		{"after end date", time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.active, window.ActiveAt(tt.at))
		})
	}
}

func TestScheduleWindow_ActiveAt_OpenEnded(t *testing.T) {
	window := ScheduleWindow{
		StartDate: "2024-01-01",
		StartTime: "00:00",
		EndTime:   "23:59",
		Days:      []string{"Sat", " sun "},
	}

	assert.True(t, window.ActiveAt(time.Date(2031, 3, 1, 23, 59, 0, 0, time.UTC)))
	assert.True(t, window.ActiveAt(time.Date(2031, 3, 2, 0, 0, 0, 0, time.UTC)))
	assert.False(t, window.ActiveAt(time.Date(2031, 3, 3, 12, 0, 0, 0, time.UTC)))
}

func TestScheduleWindow_ActiveAt_UsesInstantLocation(t *testing.T) {
	window := ScheduleWindow{
		StartDate: "2024-01-01",
		StartTime: "09:00",
		EndTime:   "10:00",
		Days:      []string{"mon"},
	}
	tokyo := time.FixedZone("JST", 9*60*60)

	// Monday 00:30 UTC is Monday 09:30 in Tokyo.
	at := time.Date(2024, 5, 13, 0, 30, 0, 0, time.UTC)
	assert.False(t, window.ActiveAt(at))
	assert.True(t, window.ActiveAt(at.In(tokyo)))
}

func TestUsage_Ratio(t *testing.T) {
	assert.Equal(t, 0.0, Usage{}.Ratio())
	assert.InDelta(t, 0.95, Usage{Total: 200, Used: 190}.Ratio(), 1e-9)
}

func TestWeekdayCode(t *testing.T) {
	assert.Equal(t, "wed", WeekdayCode(time.Wednesday))
	assert.Equal(t, "sun", WeekdayCode(time.Sunday))
}

func TestScheduleWindow_Validate(t *testing.T) {
	valid := ScheduleWindow{
		ID:        "s1",
		StartDate: "2024-05-01",
		StartTime: "09:00",
		EndTime:   "18:00",
		Days:      []string{"Mon", " wed"},
	}

	tests := []struct {
		name   string
		mutate func(*ScheduleWindow)
		ok     bool
	}{
		{"valid open ended", func(*ScheduleWindow) {}, true},
		{"valid end date", func(s *ScheduleWindow) { s.EndDate = "2024-05-31" }, true},
		{"unpadded start time", func(s *ScheduleWindow) { s.StartTime = "9:00" }, false},
		{"hour out of range", func(s *ScheduleWindow) { s.EndTime = "24:00" }, false},
		{"seconds", func(s *ScheduleWindow) { s.EndTime = "18:00:00" }, false},
		{"empty start date", func(s *ScheduleWindow) { s.StartDate = "" }, false},
		{"bad end date", func(s *ScheduleWindow) { s.EndDate = "2024-5-31" }, false},
		{"unknown day", func(s *ScheduleWindow) { s.Days = []string{"wednesday"} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			window := valid
			window.Days = append([]string(nil), valid.Days...)
			tt.mutate(&window)

			err := window.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
			}
		})
	}
}

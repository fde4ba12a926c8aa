package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidSchedule is returned by Validate for malformed schedule windows.
var ErrInvalidSchedule = errors.New("invalid schedule")

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// ScheduleWindow is a time based playlist assignment for a branch.
type ScheduleWindow struct {
	ID         string   `json:"id" yaml:"id"`
	PlaylistID string   `json:"playlistId" yaml:"playlist_id"`
	BranchID   string   `json:"branchId" yaml:"branch_id"`
	StartDate  string   `json:"startDate" yaml:"start_date"`                 // YYYY-MM-DD
	EndDate    string   `json:"endDate,omitempty" yaml:"end_date,omitempty"` // YYYY-MM-DD, empty means open ended
	StartTime  string   `json:"startTime" yaml:"start_time"`                 // HH:MM
	EndTime    string   `json:"endTime" yaml:"end_time"`                     // HH:MM
	Days       []string `json:"days" yaml:"days"`                            // mon, tue, ...
	Repeat     string   `json:"repeat,omitempty" yaml:"repeat,omitempty"`
	Interval   int      `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// WeekdayCode returns the three letter lower case code used in ScheduleWindow.Days.
func WeekdayCode(d time.Weekday) string {
	return strings.ToLower(d.String()[:3])
}

// ActiveAt reports whether the window contains t. The date range and the
// time window are both inclusive, and t's weekday must be listed in Days.
// t is evaluated in its own location.
func (s ScheduleWindow) ActiveAt(t time.Time) bool {
	date := t.Format(dateLayout)
	if date < s.StartDate {
		return false
	}
	if s.EndDate != "" && date > s.EndDate {
		return false
	}

	code := WeekdayCode(t.Weekday())
	found := false
	for _, day := range s.Days {
		if strings.EqualFold(strings.TrimSpace(day), code) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	clock := t.Format(timeLayout)
	return clock >= s.StartTime && clock <= s.EndTime
}

// Validate checks the date, time and weekday formats ActiveAt relies on.
// Times must be zero padded, "09:00" and not "9:00".
func (s ScheduleWindow) Validate() error {
	if err := checkLayout("start date", s.StartDate, dateLayout); err != nil {
		return err
	}
	if s.EndDate != "" {
		if err := checkLayout("end date", s.EndDate, dateLayout); err != nil {
			return err
		}
	}
	if err := checkLayout("start time", s.StartTime, timeLayout); err != nil {
		return err
	}
	if err := checkLayout("end time", s.EndTime, timeLayout); err != nil {
		return err
	}

	for _, day := range s.Days {
		if !validWeekday(day) {
			return fmt.Errorf("%w: unknown day %q", ErrInvalidSchedule, day)
		}
	}
	return nil
}

func checkLayout(field, value, layout string) error {
	parsed, err := time.Parse(layout, value)
	if err != nil || parsed.Format(layout) != value {
		return fmt.Errorf("%w: %s %q does not match %s", ErrInvalidSchedule, field, value, layout)
	}
	return nil
}

func validWeekday(day string) bool {
	day = strings.TrimSpace(day)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(day, WeekdayCode(d)) {
			return true
		}
	}
	return false
}

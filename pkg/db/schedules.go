package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
)

// ActiveSchedulesAt returns the schedules whose date range, weekday and time
// window contain instant, evaluated in instant's location. Both ranges are
// inclusive; an empty end date is open ended.
func (db *DB) ActiveSchedulesAt(ctx context.Context, instant time.Time) ([]models.ScheduleWindow, error) {
	date := instant.Format("2006-01-02")
	clock := instant.Format("15:04")
	day := "%," + models.WeekdayCode(instant.Weekday()) + ",%"

	rows, err := db.QueryContext(ctx, `
		SELECT schedule_id, branch_id, playlist_id, start_date, end_date,
			start_time, end_time, days, repeat_mode, repeat_interval
		FROM schedules
		WHERE start_date <= ?
			AND (end_date = '' OR end_date >= ?)
			AND start_time <= ?
			AND end_time >= ?
			AND (',' || lower(replace(days, ' ', '')) || ',') LIKE ?
		ORDER BY branch_id, schedule_id
	`, date, date, clock, clock, day)
	if err != nil {
		return nil, fmt.Errorf("%w schedules: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	var schedules []models.ScheduleWindow
	for rows.Next() {
		var (
			s    models.ScheduleWindow
			days string
		)
		if err := rows.Scan(&s.ID, &s.BranchID, &s.PlaylistID, &s.StartDate, &s.EndDate,
			&s.StartTime, &s.EndTime, &days, &s.Repeat, &s.Interval); err != nil {
			return nil, fmt.Errorf("%w schedule: %w", errFailedToScan, err)
		}
		s.Days = splitDays(days)
		schedules = append(schedules, s)
	}

	return schedules, rows.Err()
}

// UpsertSchedule creates or replaces a schedule. Its branch must exist and
// its dates and times must be well formed.
func (db *DB) UpsertSchedule(ctx context.Context, s models.ScheduleWindow) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w schedule %s: %w", errFailedToUpsert, s.ID, err)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO schedules (schedule_id, branch_id, playlist_id, start_date, end_date,
			start_time, end_time, days, repeat_mode, repeat_interval)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(schedule_id) DO UPDATE SET
			branch_id = excluded.branch_id,
			playlist_id = excluded.playlist_id,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			days = excluded.days,
			repeat_mode = excluded.repeat_mode,
			repeat_interval = excluded.repeat_interval
	`, s.ID, s.BranchID, s.PlaylistID, s.StartDate, s.EndDate,
		s.StartTime, s.EndTime, joinDays(s.Days), s.Repeat, s.Interval)
	if err != nil {
		return fmt.Errorf("%w schedule %s: %w", errFailedToUpsert, s.ID, err)
	}

	return nil
}

func joinDays(days []string) string {
	codes := make([]string, 0, len(days))
	for _, day := range days {
		if code := strings.ToLower(strings.TrimSpace(day)); code != "" {
			codes = append(codes, code)
		}
	}
	return strings.Join(codes, ",")
}

func splitDays(days string) []string {
	var out []string
	for _, day := range strings.Split(days, ",") {
		if day = strings.TrimSpace(day); day != "" {
			out = append(out, day)
		}
	}
	return out
}

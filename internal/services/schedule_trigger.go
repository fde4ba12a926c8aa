package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/rs/zerolog"
)

// ErrScheduleEvaluation marks a failure applying a single schedule.
var ErrScheduleEvaluation = errors.New("schedule evaluation failed")

// ScheduleTrigger switches branches to the playlist of their active schedule.
type ScheduleTrigger struct {
	Interval  time.Duration
	Location  *time.Location
	Schedules stores.ScheduleStore
	Playback  stores.PlaybackStore
	Directory stores.DeviceDirectory
	Publisher stores.EventPublisher
	Commands  CommandSender
	Logger    zerolog.Logger

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduleTrigger initializes a new ScheduleTrigger. Schedules are
// evaluated in timezone, or in the local zone when it is empty.
func NewScheduleTrigger(interval time.Duration, timezone string, schedules stores.ScheduleStore,
	playback stores.PlaybackStore, directory stores.DeviceDirectory, publisher stores.EventPublisher,
	commands CommandSender, logger zerolog.Logger) (*ScheduleTrigger, error) {

	if interval <= 0 {
		interval = constants.DefaultScheduleInterval
	}

	location := time.Local
	if timezone != "" {
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule timezone %q: %w", timezone, err)
		}
		location = loc
	}

	return &ScheduleTrigger{
		Interval:  interval,
		Location:  location,
		Schedules: schedules,
		Playback:  playback,
		Directory: directory,
		Publisher: publisher,
		Commands:  commands,
		Logger:    logger,
		now:       time.Now,
	}, nil
}

// Start launches the trigger loop in a separate goroutine.
func (s *ScheduleTrigger) Start() error {
	if s.ctx != nil {
		s.Logger.Warn().Msg("ScheduleTrigger is already running")
		return errors.New("schedule trigger is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runTriggerLoop()
	}()

	s.Logger.Info().
		Dur("interval", s.Interval).
		Str("timezone", s.Location.String()).
		Msg("ScheduleTrigger started successfully")
	return nil
}

// Stop gracefully stops the trigger.
func (s *ScheduleTrigger) Stop() error {
	if s.ctx == nil {
		s.Logger.Warn().Msg("ScheduleTrigger is not running")
		return errors.New("schedule trigger is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.Logger.Info().Msg("ScheduleTrigger stopped successfully")
	return nil
}

func (s *ScheduleTrigger) runTriggerLoop() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunCycle(s.ctx)
		case <-s.ctx.Done():
			s.Logger.Info().Msg("ScheduleTrigger stopping gracefully")
			return
		}
	}
}

// RunCycle applies the active schedules for the current instant and returns
// how many branches were switched to another playlist.
func (s *ScheduleTrigger) RunCycle(ctx context.Context) int {
	instant := s.now().In(s.Location)

	schedules, err := s.Schedules.ActiveSchedulesAt(ctx, instant)
	if err != nil {
		s.Logger.Error().Err(fmt.Errorf("%w: %w", ErrScheduleEvaluation, err)).Msg("Failed to fetch active schedules")
		return 0
	}

	changed := 0
	for _, schedule := range winningSchedules(schedules, instant) {
		ok, err := s.applySafely(ctx, instant, schedule)
		if err != nil {
			s.Logger.Error().
				Err(err).
				Str("schedule_id", schedule.ID).
				Str("branch_id", schedule.BranchID).
				Msg("Failed to apply schedule")
			continue
		}
		if ok {
			changed++
		}
	}

	s.Logger.Debug().
		Time("instant", instant).
		Int("active", len(schedules)).
		Int("changed", changed).
		Msg("Schedule cycle finished")
	return changed
}

// winningSchedules keeps one schedule per branch: the one that started latest
// today, ties going to the lowest id. Schedules not active at instant are dropped.
func winningSchedules(schedules []models.ScheduleWindow, instant time.Time) []models.ScheduleWindow {
	byBranch := make(map[string]models.ScheduleWindow)
	for _, schedule := range schedules {
		if !schedule.ActiveAt(instant) {
			continue
		}
		current, ok := byBranch[schedule.BranchID]
		if !ok || schedule.StartTime > current.StartTime ||
			(schedule.StartTime == current.StartTime && schedule.ID < current.ID) {
			byBranch[schedule.BranchID] = schedule
		}
	}

	out := make([]models.ScheduleWindow, 0, len(byBranch))
	for _, branchID := range utils.SortedKeys(byBranch) {
		out = append(out, byBranch[branchID])
	}
	return out
}

func (s *ScheduleTrigger) applySafely(ctx context.Context, instant time.Time, schedule models.ScheduleWindow) (changed bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrScheduleEvaluation, r)
		}
	}()
	return s.apply(ctx, instant, schedule)
}

// apply switches the schedule's branch to its playlist unless it already plays it.
func (s *ScheduleTrigger) apply(ctx context.Context, instant time.Time, schedule models.ScheduleWindow) (bool, error) {
	current, assigned, err := s.Playback.ReadAssignedPlaylist(ctx, schedule.BranchID)
	if err != nil {
		return false, fmt.Errorf("%w: read assigned playlist: %w", ErrScheduleEvaluation, err)
	}
	if assigned && current == schedule.PlaylistID {
		return false, nil
	}

	devices, err := s.Directory.ListDevicesByBranch(ctx, schedule.BranchID)
	if err != nil {
		return false, fmt.Errorf("%w: list branch devices: %w", ErrScheduleEvaluation, err)
	}

	ids := make([]string, 0, len(devices))
	for _, device := range devices {
		ids = append(ids, device.ID)
	}

	event := models.PlaylistChangeEvent{
		ScheduleID:       schedule.ID,
		BranchID:         schedule.BranchID,
		PlaylistID:       schedule.PlaylistID,
		PreviousPlaylist: current,
		Devices:          ids,
		Timestamp:        instant,
	}
	if err := s.Publisher.Publish(ctx, constants.TopicPlaylistChanged, event); err != nil {
		s.Logger.Warn().Err(err).Str("schedule_id", schedule.ID).Msg("Failed to publish playlist change")
	}

	delivered := 0
	payload := models.PlaylistPayload{PlaylistID: schedule.PlaylistID}
	for _, id := range ids {
		if s.Commands.SendCommand(id, constants.CommandPlaylistChange, payload) {
			delivered++
		}
	}

	if err := s.Playback.WriteAssignedPlaylist(ctx, schedule.BranchID, schedule.PlaylistID, instant); err != nil {
		return false, fmt.Errorf("%w: write assigned playlist: %w", ErrScheduleEvaluation, err)
	}

	s.Logger.Info().
		Str("schedule_id", schedule.ID).
		Str("branch_id", schedule.BranchID).
		Str("playlist_id", schedule.PlaylistID).
		Str("previous_playlist_id", current).
		Int("devices", len(ids)).
		Int("delivered", delivered).
		Msg("Playlist changed by schedule")
	return true, nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/benmeehan/signage-hub/internal/utils"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

var (
	// ErrHealthCheck marks a failure evaluating a single device.
	ErrHealthCheck = errors.New("health check failed")
	// ErrReconnectExhausted is reported when every reconnect attempt failed.
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
)

// CommandSender delivers fire-and-forget commands to connected devices.
type CommandSender interface {
	SendCommand(deviceID, command string, data any) bool
}

// HealthSettings tunes the health monitor.
type HealthSettings struct {
	Interval          time.Duration
	OfflineThreshold  time.Duration
	ReconnectAttempts int
	ReconnectWait     time.Duration
	RetryDelay        time.Duration
	CPUThreshold      float64
	MemoryThreshold   float64
	StorageThreshold  float64
	MinPlayerVersion  string
	Workers           int
}

func (s HealthSettings) withDefaults() HealthSettings {
	if s.Interval <= 0 {
		s.Interval = constants.DefaultHealthInterval
	}
	if s.OfflineThreshold <= 0 {
		s.OfflineThreshold = constants.DefaultOfflineThreshold
	}
	if s.ReconnectAttempts <= 0 {
		s.ReconnectAttempts = constants.DefaultReconnectAttempts
	}
	if s.ReconnectWait <= 0 {
		s.ReconnectWait = constants.DefaultReconnectWait
	}
	if s.RetryDelay <= 0 {
		s.RetryDelay = constants.DefaultRetryDelay
	}
	if s.CPUThreshold <= 0 {
		s.CPUThreshold = constants.DefaultCPUThreshold
	}
	if s.MemoryThreshold <= 0 {
		s.MemoryThreshold = constants.DefaultMemoryThreshold
	}
	if s.StorageThreshold <= 0 {
		s.StorageThreshold = constants.DefaultStorageThreshold
	}
	if s.Workers <= 0 {
		s.Workers = constants.DefaultHealthWorkers
	}
	return s
}

// deviceTracker holds the state machine of one device.
type deviceTracker struct {
	mu          sync.Mutex
	health      models.DeviceHealth
	failedCycle uint64
}

func (t *deviceTracker) snapshot() models.DeviceHealth {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.health
}

// transition must be called with mu held. It reports whether the state changed.
func (t *deviceTracker) transition(state models.HealthState, at time.Time) bool {
	if t.health.State == state {
		return false
	}
	t.health.State = state
	t.health.ChangedAt = at
	return true
}

// HealthMonitor periodically evaluates every active device: it drives the
// Online/Offline/Reconnecting/Failed state machine, records metric samples
// and raises threshold alerts.
type HealthMonitor struct {
	Settings  HealthSettings
	Directory stores.DeviceDirectory
	Statuses  stores.StatusStore
	Metrics   stores.MetricsStore
	Publisher stores.EventPublisher
	Commands  CommandSender
	Logger    zerolog.Logger

	trackers   cmap.ConcurrentMap[string, *deviceTracker]
	minVersion *semver.Version
	cycle      atomic.Uint64
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) bool

	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	reconnects sync.WaitGroup
}

// NewHealthMonitor initializes a new HealthMonitor. An unparsable
// MinPlayerVersion is rejected.
func NewHealthMonitor(settings HealthSettings, directory stores.DeviceDirectory, statuses stores.StatusStore,
	metrics stores.MetricsStore, publisher stores.EventPublisher, commands CommandSender,
	logger zerolog.Logger) (*HealthMonitor, error) {

	settings = settings.withDefaults()

	var minVersion *semver.Version
	if settings.MinPlayerVersion != "" {
		v, err := semver.NewVersion(settings.MinPlayerVersion)
		if err != nil {
			return nil, fmt.Errorf("invalid minimum player version %q: %w", settings.MinPlayerVersion, err)
		}
		minVersion = v
	}

	return &HealthMonitor{
		Settings:   settings,
		Directory:  directory,
		Statuses:   statuses,
		Metrics:    metrics,
		Publisher:  publisher,
		Commands:   commands,
		Logger:     logger,
		trackers:   cmap.New[*deviceTracker](),
		minVersion: minVersion,
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// sleepContext waits for d and reports false if ctx ended first.
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Start launches the health check loop in a separate goroutine.
func (h *HealthMonitor) Start() error {
	if h.ctx != nil {
		h.Logger.Warn().Msg("HealthMonitor is already running")
		return errors.New("health monitor is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHealthLoop()
	}()

	h.Logger.Info().Dur("interval", h.Settings.Interval).Msg("HealthMonitor started successfully")
	return nil
}

// Stop cancels the loop and any reconnect protocol in progress.
func (h *HealthMonitor) Stop() error {
	if h.ctx == nil {
		h.Logger.Warn().Msg("HealthMonitor is not running")
		return errors.New("health monitor is not running")
	}

	h.cancel()
	h.wg.Wait()
	h.reconnects.Wait()

	h.ctx = nil
	h.cancel = nil

	h.Logger.Info().Msg("HealthMonitor stopped successfully")
	return nil
}

func (h *HealthMonitor) runHealthLoop() {
	ticker := time.NewTicker(h.Settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.RunCycle(h.ctx)
		case <-h.ctx.Done():
			h.Logger.Info().Msg("HealthMonitor stopping gracefully")
			return
		}
	}
}

// RunCycle evaluates every active device once. Devices are checked
// concurrently and a failure on one never stops the others. Reconnect
// protocols started by the cycle keep running after it returns.
func (h *HealthMonitor) RunCycle(ctx context.Context) {
	cycle := h.cycle.Add(1)
	now := h.now()

	devices, err := h.Directory.ListDevices(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Uint64("cycle", cycle).Msg("Failed to list devices for health check")
		return
	}

	pool := utils.NewWorkerPool(h.Settings.Workers)
	pool.OnPanic = func(r any) {
		h.Logger.Error().Err(fmt.Errorf("%w: panic: %v", ErrHealthCheck, r)).Msg("Health check worker recovered")
	}
	for _, device := range devices {
		device := device
		if err := pool.SubmitContext(ctx, func() {
			h.checkDevice(ctx, cycle, now, device)
		}); err != nil {
			h.Logger.Warn().Err(err).Uint64("cycle", cycle).Msg("Health check cycle interrupted")
			break
		}
	}
	pool.Shutdown()

	h.Logger.Debug().Uint64("cycle", cycle).Int("devices", len(devices)).Msg("Health check cycle finished")
}

func (h *HealthMonitor) tracker(device models.Device) *deviceTracker {
	return h.trackers.Upsert(device.ID, nil, func(exists bool, current, _ *deviceTracker) *deviceTracker {
		if exists {
			return current
		}
		return &deviceTracker{health: models.DeviceHealth{
			DeviceID: device.ID,
			BranchID: device.BranchID,
			State:    models.HealthUnknown,
		}}
	})
}

func (h *HealthMonitor) checkDevice(ctx context.Context, cycle uint64, now time.Time, device models.Device) {
	logger := h.Logger.With().Str("device_id", device.ID).Str("branch_id", device.BranchID).Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Err(fmt.Errorf("%w: panic: %v", ErrHealthCheck, r)).Msg("Device health check aborted")
		}
	}()

	record, err := h.Statuses.ReadStatus(ctx, device.ID)
	if err != nil {
		logger.Error().Err(fmt.Errorf("%w: read status: %w", ErrHealthCheck, err)).Msg("Device health check aborted")
		return
	}

	tr := h.tracker(device)
	if record == nil {
		logger.Debug().Msg("Device has never reported a status")
		return
	}

	h.evaluateConnectivity(ctx, cycle, now, device, tr, record, logger)
	h.evaluateSample(ctx, now, device, tr, record, logger)
}

func (h *HealthMonitor) evaluateConnectivity(ctx context.Context, cycle uint64, now time.Time, device models.Device,
	tr *deviceTracker, record *models.StatusRecord, logger zerolog.Logger) {

	tr.mu.Lock()
	defer tr.mu.Unlock()

	tr.health.LastSeen = record.LastSeen
	previous := tr.health.State

	switch previous {
	case models.HealthReconnecting:
		return
	case models.HealthFailed:
		if tr.failedCycle >= cycle {
			return
		}
	}

	elapsed := now.Sub(record.LastSeen)
	if elapsed <= h.Settings.OfflineThreshold {
		state := models.HealthOffline
		if record.Status.Online {
			state = models.HealthOnline
		}
		if tr.transition(state, now) {
			tr.health.Attempts = 0
			logger.Info().Str("from", string(previous)).Str("state", string(state)).Msg("Device state changed")
		}
		return
	}

	tr.transition(models.HealthReconnecting, now)
	tr.health.Attempts = 0
	logger.Warn().
		Str("from", string(previous)).
		Dur("elapsed", elapsed).
		Msg("Device offline beyond threshold, starting reconnect")

	h.reconnects.Add(1)
	go func() {
		defer h.reconnects.Done()
		h.reconnect(ctx, device, tr, logger)
	}()
}

// reconnect runs the bounded reconnect protocol for one device. Its waits
// only block this goroutine.
func (h *HealthMonitor) reconnect(ctx context.Context, device models.Device, tr *deviceTracker, logger zerolog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Err(fmt.Errorf("%w: panic: %v", ErrHealthCheck, r)).Msg("Reconnect aborted")
			tr.mu.Lock()
			tr.transition(models.HealthOffline, h.now())
			tr.mu.Unlock()
		}
	}()

	attempts := h.Settings.ReconnectAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		tr.mu.Lock()
		tr.health.Attempts = attempt
		tr.mu.Unlock()

		if !h.Commands.SendCommand(device.ID, constants.CommandSystemReconnect, nil) {
			logger.Debug().Int("attempt", attempt).Msg("Reconnect command not delivered")
		}

		if !h.sleep(ctx, h.Settings.ReconnectWait) {
			return
		}

		online, err := h.backOnline(ctx, device.ID)
		if err != nil {
			logger.Warn().Err(err).Int("attempt", attempt).Msg("Status check after reconnect failed")
		}
		if online {
			tr.mu.Lock()
			tr.transition(models.HealthOnline, h.now())
			tr.health.Attempts = 0
			tr.mu.Unlock()
			logger.Info().Int("attempt", attempt).Msg("Device reconnected")
			return
		}

		if attempt < attempts && !h.sleep(ctx, h.Settings.RetryDelay) {
			return
		}
	}

	now := h.now()
	tr.mu.Lock()
	tr.transition(models.HealthFailed, now)
	tr.failedCycle = h.cycle.Load()
	tr.mu.Unlock()

	logger.Error().Err(ErrReconnectExhausted).Int("attempts", attempts).Msg("Device failed to reconnect")
	h.raiseAlert(ctx, device, models.SeverityCritical, []string{
		fmt.Sprintf("Device did not reconnect after %d attempts", attempts),
	}, now, logger)
}

func (h *HealthMonitor) backOnline(ctx context.Context, deviceID string) (bool, error) {
	record, err := h.Statuses.ReadStatus(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return record.Status.Online && h.now().Sub(record.LastSeen) <= h.Settings.OfflineThreshold, nil
}

// evaluateSample stores a metric sample and checks thresholds when the device
// sent a status report since the previous cycle.
func (h *HealthMonitor) evaluateSample(ctx context.Context, now time.Time, device models.Device, tr *deviceTracker,
	record *models.StatusRecord, logger zerolog.Logger) {

	tr.mu.Lock()
	fresh := record.ReportedAt.After(tr.health.LastSample)
	if fresh {
		tr.health.LastSample = record.ReportedAt
	}
	tr.mu.Unlock()

	if !fresh {
		return
	}

	info := record.Status.SystemInfo
	sample := models.MetricSample{
		DeviceID:     device.ID,
		Timestamp:    now,
		CPU:          info.CPU,
		MemoryTotal:  info.Memory.Total,
		MemoryUsed:   info.Memory.Used,
		StorageTotal: info.Storage.Total,
		StorageUsed:  info.Storage.Used,
	}
	if err := h.Metrics.AppendMetric(ctx, sample); err != nil {
		logger.Error().Err(err).Msg("Failed to store metric sample")
	}

	if messages := h.thresholdMessages(record.Status); len(messages) > 0 {
		h.raiseAlert(ctx, device, models.SeverityWarning, messages, now, logger)
	}
}

func (h *HealthMonitor) thresholdMessages(status models.DeviceStatus) []string {
	var messages []string
	info := status.SystemInfo

	if info.CPU > h.Settings.CPUThreshold {
		messages = append(messages, fmt.Sprintf("High CPU usage: %.1f%%", info.CPU))
	}
	if ratio := info.Memory.Ratio(); ratio > h.Settings.MemoryThreshold {
		messages = append(messages, fmt.Sprintf("High memory usage: %.1f%%", ratio*100))
	}
	if ratio := info.Storage.Ratio(); ratio > h.Settings.StorageThreshold {
		messages = append(messages, fmt.Sprintf("Low storage space: %.1f%% used", ratio*100))
	}

	if h.minVersion != nil && status.Version != "" {
		if v, err := semver.NewVersion(status.Version); err == nil && v.LessThan(h.minVersion) {
			messages = append(messages, fmt.Sprintf("Outdated player version %s, minimum is %s", v, h.minVersion))
		}
	}
	return messages
}

func (h *HealthMonitor) raiseAlert(ctx context.Context, device models.Device, severity models.Severity,
	messages []string, at time.Time, logger zerolog.Logger) {

	alert := models.Alert{
		ID:        uuid.New().String(),
		DeviceID:  device.ID,
		BranchID:  device.BranchID,
		Timestamp: at,
		Messages:  messages,
		Severity:  severity,
	}

	if err := h.Metrics.AppendAlert(ctx, device.ID, alert); err != nil {
		logger.Error().Err(err).Str("severity", string(severity)).Msg("Failed to store alert")
	}
	if h.Publisher != nil {
		if err := h.Publisher.Publish(ctx, constants.TopicAlerts, alert); err != nil {
			logger.Warn().Err(err).Str("severity", string(severity)).Msg("Failed to publish alert")
		}
	}

	logger.Warn().Str("severity", string(severity)).Strs("messages", messages).Msg("Alert raised")
}

// Snapshot returns the monitor's view of deviceID.
func (h *HealthMonitor) Snapshot(deviceID string) (models.DeviceHealth, bool) {
	tr, ok := h.trackers.Get(deviceID)
	if !ok {
		return models.DeviceHealth{}, false
	}
	return tr.snapshot(), true
}

// Snapshots returns the monitor's view of every device it has seen.
func (h *HealthMonitor) Snapshots() []models.DeviceHealth {
	out := make([]models.DeviceHealth, 0, h.trackers.Count())
	for item := range h.trackers.IterBuffered() {
		out = append(out, item.Val.snapshot())
	}
	return out
}

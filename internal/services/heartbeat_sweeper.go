package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/rs/zerolog"
)

// ConnectionCloser tears down a registered connection the same way a
// transport failure would.
type ConnectionCloser interface {
	Disconnect(conn *registry.DeviceConnection, reason string)
}

// HeartbeatSweeper closes connections that went quiet and pings the rest.
type HeartbeatSweeper struct {
	Interval time.Duration
	Timeout  time.Duration
	Registry *registry.Registry
	Closer   ConnectionCloser
	Logger   zerolog.Logger

	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHeartbeatSweeper initializes a new HeartbeatSweeper.
func NewHeartbeatSweeper(interval, timeout time.Duration, reg *registry.Registry, closer ConnectionCloser,
	logger zerolog.Logger) *HeartbeatSweeper {

	if interval <= 0 {
		interval = constants.DefaultSweepInterval
	}
	if timeout <= 0 {
		timeout = constants.DefaultHeartbeatTimeout
	}

	return &HeartbeatSweeper{
		Interval: interval,
		Timeout:  timeout,
		Registry: reg,
		Closer:   closer,
		Logger:   logger,
		now:      time.Now,
	}
}

// Start launches the sweep loop in a separate goroutine.
func (s *HeartbeatSweeper) Start() error {
	if s.ctx != nil {
		s.Logger.Warn().Msg("HeartbeatSweeper is already running")
		return errors.New("heartbeat sweeper is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSweepLoop()
	}()

	s.Logger.Info().Dur("interval", s.Interval).Dur("timeout", s.Timeout).Msg("HeartbeatSweeper started successfully")
	return nil
}

// Stop gracefully stops the sweeper.
func (s *HeartbeatSweeper) Stop() error {
	if s.ctx == nil {
		s.Logger.Warn().Msg("HeartbeatSweeper is not running")
		return errors.New("heartbeat sweeper is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.Logger.Info().Msg("HeartbeatSweeper stopped successfully")
	return nil
}

func (s *HeartbeatSweeper) runSweepLoop() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.ctx.Done():
			s.Logger.Info().Msg("HeartbeatSweeper stopping gracefully")
			return
		}
	}
}

// Sweep disconnects every connection silent for longer than Timeout and
// pings the others. It returns the number of connections closed.
func (s *HeartbeatSweeper) Sweep() int {
	now := s.now()

	var stale, alive []*registry.DeviceConnection
	s.Registry.ForEach(func(conn *registry.DeviceConnection) {
		if now.Sub(conn.LastHeartbeat()) > s.Timeout {
			stale = append(stale, conn)
			return
		}
		alive = append(alive, conn)
	})

	for _, conn := range stale {
		s.Logger.Info().
			Str("device_id", conn.DeviceID).
			Time("last_heartbeat", conn.LastHeartbeat()).
			Msg("Heartbeat timed out, closing connection")
		s.Closer.Disconnect(conn, "heartbeat timeout")
	}

	// A slow peer must not hold up the pings of the others.
	var wg sync.WaitGroup
	for _, conn := range alive {
		wg.Add(1)
		go func(conn *registry.DeviceConnection) {
			defer wg.Done()
			if err := conn.Handle.Ping(); err != nil {
				s.Logger.Debug().Err(err).Str("device_id", conn.DeviceID).Msg("Ping failed")
			}
		}(conn)
	}
	wg.Wait()

	if len(stale) > 0 {
		s.Logger.Debug().Int("closed", len(stale)).Int("pinged", len(alive)).Msg("Heartbeat sweep finished")
	}
	return len(stale)
}

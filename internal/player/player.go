// Package player is a reference device client. It keeps one websocket to the
// hub, reports its status and applies the configuration and commands it
// receives.
package player

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/state_managers"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var errReconnectRequested = errors.New("reconnect requested by hub")

// StatusCollector builds the status report sent to the hub.
type StatusCollector interface {
	Collect(ctx context.Context) models.DeviceStatus
}

// inboundFrame is a hub frame with its data left undecoded.
type inboundFrame struct {
	Type    string          `json:"type"`
	Command string          `json:"command,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// playbackReport is the data of a playback message.
type playbackReport struct {
	Action     string `json:"action"`
	PlaylistID string `json:"playlistId,omitempty"`
}

// Player connects to the hub and stays connected until stopped.
type Player struct {
	URL            string
	DeviceID       string
	Version        string
	StatusInterval time.Duration
	PingInterval   time.Duration
	ReconnectDelay time.Duration
	Collector      StatusCollector
	StateManager   *state_managers.PlayerStateManager
	Logger         zerolog.Logger

	dialer  *websocket.Dialer
	mu      sync.RWMutex
	state   models.PlayerState
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayer creates a player. stateManager may be nil, in which case state
// is kept in memory only.
func NewPlayer(url, deviceID, version string, collector StatusCollector,
	stateManager *state_managers.PlayerStateManager, logger zerolog.Logger) *Player {

	return &Player{
		URL:            url,
		DeviceID:       deviceID,
		Version:        version,
		StatusInterval: constants.DefaultPlayerStatusInterval,
		PingInterval:   constants.DefaultPlayerPingInterval,
		ReconnectDelay: constants.DefaultPlayerReconnectDelay,
		Collector:      collector,
		StateManager:   stateManager,
		Logger:         logger,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start restores persisted state and begins the connection loop.
func (p *Player) Start() error {
	if p.ctx != nil {
		return errors.New("player is already running")
	}

	if p.StateManager != nil {
		state, err := p.StateManager.LoadState()
		if err != nil {
			p.Logger.Warn().Err(err).Msg("Starting with empty state")
		}
		p.mu.Lock()
		p.state = state
		p.mu.Unlock()
	}
	p.mu.Lock()
	p.state.DeviceID = p.DeviceID
	p.mu.Unlock()

	p.ctx, p.cancel = context.WithCancel(context.Background())

	p.wg.Add(1)
	go p.run()

	p.Logger.Info().Str("device_id", p.DeviceID).Str("url", p.URL).Msg("Player started successfully")
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (p *Player) Stop() error {
	if p.cancel == nil {
		return errors.New("player is not running")
	}

	p.cancel()
	p.wg.Wait()
	p.ctx, p.cancel = nil, nil

	p.Logger.Info().Msg("Player stopped gracefully")
	return nil
}

// State returns a copy of the current player state.
func (p *Player) State() models.PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

func (p *Player) run() {
	defer p.wg.Done()

	for {
		err := p.session(p.ctx)
		if p.ctx.Err() != nil {
			return
		}

		delay := p.ReconnectDelay
		if errors.Is(err, errReconnectRequested) {
			p.Logger.Info().Msg("Reconnecting on hub request")
			delay = 0
		} else if err != nil {
			p.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Connection lost")
		}

		select {
		case <-p.ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// session runs one connection from dial to close.
func (p *Player) session(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.URL, err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(sessionCtx, func() { _ = conn.Close() })
	defer stop()
	defer conn.Close()

	if err := p.send(conn, models.Envelope{Type: constants.MessageConnect, DeviceID: p.DeviceID}); err != nil {
		return fmt.Errorf("send connect: %w", err)
	}
	p.Logger.Info().Str("device_id", p.DeviceID).Msg("Connected to hub")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.writeLoop(sessionCtx, conn)
	}()
	defer wg.Wait()
	defer cancel()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			p.Logger.Warn().Err(err).Msg("Discarding malformed frame")
			continue
		}

		if err := p.handleFrame(conn, frame); err != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "reconnecting"),
				time.Now().Add(time.Second))
			return err
		}
	}
}

// writeLoop sends a status report right away and then on every status tick,
// and a ping on every ping tick.
func (p *Player) writeLoop(ctx context.Context, conn *websocket.Conn) {
	statusTicker := time.NewTicker(p.StatusInterval)
	defer statusTicker.Stop()
	pingTicker := time.NewTicker(p.PingInterval)
	defer pingTicker.Stop()

	p.sendStatus(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return
		case <-statusTicker.C:
			p.sendStatus(ctx, conn)
		case <-pingTicker.C:
			if err := p.send(conn, models.Envelope{Type: constants.MessagePing, DeviceID: p.DeviceID}); err != nil {
				p.Logger.Debug().Err(err).Msg("Failed to send ping")
			}
		}
	}
}

func (p *Player) sendStatus(ctx context.Context, conn *websocket.Conn) {
	status := models.DeviceStatus{Online: true}
	if p.Collector != nil {
		status = p.Collector.Collect(ctx)
		status.Online = true
	}
	status.Version = p.Version

	data, err := json.Marshal(status)
	if err != nil {
		p.Logger.Error().Err(err).Msg("Failed to marshal status")
		return
	}
	if err := p.send(conn, models.Envelope{Type: constants.MessageStatus, DeviceID: p.DeviceID, Data: data}); err != nil {
		p.Logger.Debug().Err(err).Msg("Failed to send status")
	}
}

func (p *Player) send(conn *websocket.Conn, envelope models.Envelope) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return conn.WriteJSON(envelope)
}

// handleFrame applies one hub frame. It returns errReconnectRequested when the
// hub asks the player to reconnect.
func (p *Player) handleFrame(conn *websocket.Conn, frame inboundFrame) error {
	switch frame.Type {
	case constants.FrameConfig:
		var config models.DeviceConfig
		if err := json.Unmarshal(frame.Data, &config); err != nil {
			p.Logger.Warn().Err(err).Msg("Invalid config frame")
			return nil
		}
		p.update(func(s *models.PlayerState) {
			s.Volume = config.Volume
			s.Timezone = config.Timezone
			s.OperatingHours = config.OperatingHours
			if config.PlaylistID != "" {
				s.PlaylistID = config.PlaylistID
			}
		})
		p.Logger.Info().Int("volume", config.Volume).Str("playlist_id", config.PlaylistID).Msg("Configuration applied")
	case constants.FrameCommand:
		return p.handleCommand(conn, frame)
	case constants.FramePong:
		p.Logger.Debug().Msg("Pong received")
	case constants.FrameError:
		p.Logger.Warn().RawJSON("data", frame.Data).Msg("Hub reported an error")
	default:
		p.Logger.Warn().Str("type", frame.Type).Msg("Unknown frame type")
	}
	return nil
}

func (p *Player) handleCommand(conn *websocket.Conn, frame inboundFrame) error {
	logger := p.Logger.With().Str("command", frame.Command).Logger()

	switch {
	case frame.Command == constants.CommandSystemReconnect:
		return errReconnectRequested
	case frame.Command == constants.CommandVolumeSet:
		var payload models.VolumePayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil {
			logger.Warn().Err(err).Msg("Invalid volume payload")
			return nil
		}
		p.update(func(s *models.PlayerState) { s.Volume = payload.Volume })
		logger.Info().Int("volume", payload.Volume).Msg("Volume changed")
	case frame.Command == constants.CommandPlaylistChange:
		var payload models.PlaylistPayload
		if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.PlaylistID == "" {
			logger.Warn().Err(err).Msg("Invalid playlist payload")
			return nil
		}
		p.update(func(s *models.PlayerState) { s.PlaylistID = payload.PlaylistID })
		logger.Info().Str("playlist_id", payload.PlaylistID).Msg("Playlist changed")
	case strings.HasPrefix(frame.Command, constants.CommandPlaybackPrefix):
		action := strings.TrimPrefix(frame.Command, constants.CommandPlaybackPrefix)
		p.update(func(s *models.PlayerState) { s.LastAction = action })

		data, err := json.Marshal(playbackReport{Action: action, PlaylistID: p.State().PlaylistID})
		if err == nil {
			err = p.send(conn, models.Envelope{Type: constants.MessagePlayback, DeviceID: p.DeviceID, Data: data})
		}
		if err != nil {
			logger.Debug().Err(err).Msg("Failed to report playback")
		}
	default:
		logger.Warn().Msg("Unsupported command")
	}
	return nil
}

// update mutates the state and persists it.
func (p *Player) update(fn func(*models.PlayerState)) {
	p.mu.Lock()
	fn(&p.state)
	p.state.UpdatedAt = time.Now().UTC()
	state := p.state
	p.mu.Unlock()

	if p.StateManager != nil {
		if err := p.StateManager.SaveState(state); err != nil {
			p.Logger.Warn().Err(err).Msg("Failed to persist player state")
		}
	}
}

// Package gateway terminates device websockets, dispatches their messages and
// delivers commands to them.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/constants"
	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/benmeehan/signage-hub/internal/registry"
	"github.com/benmeehan/signage-hub/internal/stores"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// storeTimeout bounds every collaborator call made on behalf of a device.
const storeTimeout = 5 * time.Second

// Options tunes the transport.
type Options struct {
	ReadLimit         int64
	WriteTimeout      time.Duration
	OutboundQueueSize int
	InboundRate       float64 // messages per second, per connection
	InboundBurst      int
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = constants.DefaultReadLimit
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = constants.DefaultWriteTimeout
	}
	if o.OutboundQueueSize <= 0 {
		o.OutboundQueueSize = constants.DefaultOutboundQueueSize
	}
	if o.InboundRate <= 0 {
		o.InboundRate = constants.DefaultInboundRate
	}
	if o.InboundBurst <= 0 {
		o.InboundBurst = constants.DefaultInboundBurst
	}
	return o
}

// Gateway accepts one websocket per device and is the only way other
// components reach a device.
type Gateway struct {
	options   Options
	registry  *registry.Registry
	directory stores.DeviceDirectory
	statuses  stores.StatusStore
	playback  stores.PlaybackStore
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
	now       func() time.Time

	// ctx bounds every connection. Shutdown cancels it and installs a
	// fresh one so the gateway can serve again.
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewGateway wires a gateway to its registry and collaborators.
func NewGateway(options Options, reg *registry.Registry, directory stores.DeviceDirectory,
	statuses stores.StatusStore, playback stores.PlaybackStore, logger zerolog.Logger) *Gateway {

	ctx, cancel := context.WithCancel(context.Background())

	return &Gateway{
		options:   options.withDefaults(),
		registry:  reg,
		directory: directory,
		statuses:  statuses,
		playback:  playback,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Players are not browsers; identity is established by the connect message.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// ServeHTTP upgrades the request and serves the device until it disconnects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")
		return
	}

	g.wg.Add(1)
	defer g.wg.Done()

	c := newWSConnection(g.lifetime(), conn, g.options.OutboundQueueSize, g.options.WriteTimeout, g.logger)
	conn.SetReadLimit(g.options.ReadLimit)

	g.logger.Debug().Str("remote_addr", r.RemoteAddr).Str("connection_id", c.ID()).Msg("WebSocket connection established")

	stop := context.AfterFunc(c.ctx, func() { _ = c.Close() })
	defer stop()

	go c.writeLoop()
	g.serve(c)
}

// serve is the inbound dispatch loop of one connection.
func (g *Gateway) serve(c *wsConnection) {
	var device *registry.DeviceConnection
	limiter := rate.NewLimiter(rate.Limit(g.options.InboundRate), g.options.InboundBurst)

	defer func() {
		if device != nil {
			g.Disconnect(device, "connection closed")
			return
		}
		_ = c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) &&
				c.ctx.Err() == nil {
				g.logger.Warn().Err(errors.Join(ErrTransport, err)).Str("connection_id", c.ID()).Msg("WebSocket read failed")
			}
			return
		}

		if !limiter.Allow() {
			g.logger.Warn().Str("connection_id", c.ID()).Msg("Inbound rate limit exceeded, dropping message")
			continue
		}

		var envelope models.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			g.logger.Warn().Err(err).Str("connection_id", c.ID()).Msg("Discarding malformed message")
			continue
		}

		if device == nil {
			if envelope.Type != constants.MessageConnect {
				g.logger.Warn().Str("connection_id", c.ID()).Str("type", envelope.Type).Msg("Message received before connect")
				_ = c.closeWithReason(websocket.ClosePolicyViolation, ErrNotIdentified.Error())
				return
			}
			if device, err = g.handleConnect(c, envelope); err != nil {
				return
			}
			continue
		}

		g.registry.Touch(device.DeviceID)
		g.dispatch(device, c, envelope)
	}
}

// handleConnect identifies the device, registers it and pushes its configuration.
func (g *Gateway) handleConnect(c *wsConnection, envelope models.Envelope) (*registry.DeviceConnection, error) {
	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	device, err := g.directory.FindDeviceByID(ctx, envelope.DeviceID)
	if err != nil {
		if errors.Is(err, stores.ErrDeviceNotFound) {
			g.logger.Warn().Str("device_id", envelope.DeviceID).Msg("Rejecting connection from unknown device")
			_ = c.closeWithReason(websocket.ClosePolicyViolation, "device identification failed")
			return nil, err
		}
		g.logger.Error().Err(err).Str("device_id", envelope.DeviceID).Msg("Device lookup failed")
		_ = c.closeWithReason(websocket.CloseInternalServerErr, "device lookup failed")
		return nil, err
	}

	now := g.now()
	conn := g.registry.Register(device.ID, device.BranchID, c)
	c.conn.SetPongHandler(func(string) error {
		conn.Touch(g.now())
		return nil
	})

	if err := g.statuses.MarkOnline(ctx, device.ID, now); err != nil {
		g.logger.Error().Err(err).Str("device_id", device.ID).Msg("Failed to mark device online")
	}

	config := models.DeviceConfig{BranchSettings: device.Branch}
	playlistID, ok, err := g.playback.ReadAssignedPlaylist(ctx, device.BranchID)
	if err != nil {
		g.logger.Warn().Err(err).Str("branch_id", device.BranchID).Msg("Failed to read assigned playlist")
	} else if ok {
		config.PlaylistID = playlistID
	}

	if err := c.Send(models.Frame{Type: constants.FrameConfig, Data: config}); err != nil {
		g.logger.Warn().Err(err).Str("device_id", device.ID).Msg("Failed to queue initial configuration")
	}

	g.logger.Info().
		Str("device_id", device.ID).
		Str("branch_id", device.BranchID).
		Str("connection_id", c.ID()).
		Msg("Device connected")

	return conn, nil
}

// dispatch handles a message from an identified device.
func (g *Gateway) dispatch(device *registry.DeviceConnection, c *wsConnection, envelope models.Envelope) {
	ctx, cancel := context.WithTimeout(c.ctx, storeTimeout)
	defer cancel()

	logger := g.logger.With().Str("device_id", device.DeviceID).Str("type", envelope.Type).Logger()

	switch envelope.Type {
	case constants.MessageStatus:
		if err := g.statuses.WriteStatus(ctx, device.DeviceID, envelope.Data, g.now()); err != nil {
			logger.Error().Err(err).Msg("Failed to store device status")
		}
	case constants.MessagePlayback:
		if err := g.playback.WritePlaybackStatus(ctx, device.DeviceID, envelope.Data, g.now()); err != nil {
			logger.Error().Err(err).Msg("Failed to store playback status")
		}
	case constants.MessagePing:
		if err := c.Send(models.Frame{Type: constants.FramePong}); err != nil {
			logger.Debug().Err(err).Msg("Failed to queue pong")
		}
	case constants.MessageConnect:
		logger.Debug().Msg("Ignoring repeated connect")
	default:
		logger.Warn().Msg("Unknown message type")
	}
}

// Disconnect closes conn and, when it is still the device's registered
// connection, unregisters it and marks the device offline.
func (g *Gateway) Disconnect(conn *registry.DeviceConnection, reason string) {
	_ = conn.Handle.Close()

	if !g.registry.Remove(conn) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	// A successor may register between Remove and the offline write.
	if _, reconnected := g.registry.Get(conn.DeviceID); reconnected {
		g.logger.Debug().Str("device_id", conn.DeviceID).Msg("Device reconnected during teardown")
		return
	}
	if err := g.statuses.MarkOffline(ctx, conn.DeviceID); err != nil {
		g.logger.Error().Err(err).Str("device_id", conn.DeviceID).Msg("Failed to mark device offline")
	}
	// A successor registered after the check above may have been marked online
	// before our offline write landed.
	if successor, reconnected := g.registry.Get(conn.DeviceID); reconnected {
		if err := g.statuses.MarkOnline(ctx, conn.DeviceID, successor.ConnectedAt); err != nil {
			g.logger.Error().Err(err).Str("device_id", conn.DeviceID).Msg("Failed to restore online status")
		}
	}

	g.logger.Info().
		Str("device_id", conn.DeviceID).
		Str("connection_id", conn.Handle.ID()).
		Str("reason", reason).
		Msg("Device disconnected")
}

// SendCommand queues a command frame for deviceID. It returns false when the
// device has no live connection or its queue is full; it never waits for the
// device to acknowledge.
func (g *Gateway) SendCommand(deviceID, command string, data any) bool {
	conn, ok := g.registry.Get(deviceID)
	if !ok {
		g.logger.Warn().
			Err(ErrDeviceUnreachable).
			Str("device_id", deviceID).
			Str("command", command).
			Msg("Command dropped")
		return false
	}

	frame := models.Frame{Type: constants.FrameCommand, Command: command, Data: data}
	if err := conn.Handle.Send(frame); err != nil {
		g.logger.Warn().Err(err).Str("device_id", deviceID).Str("command", command).Msg("Failed to queue command")
		return false
	}

	g.logger.Debug().Str("device_id", deviceID).Str("command", command).Msg("Command queued")
	return true
}

// SetVolume sends volume:set to deviceID.
func (g *Gateway) SetVolume(deviceID string, volume int) bool {
	return g.SendCommand(deviceID, constants.CommandVolumeSet, models.VolumePayload{Volume: volume})
}

// ChangePlaylist sends playlist:change to deviceID.
func (g *Gateway) ChangePlaylist(deviceID, playlistID string) bool {
	return g.SendCommand(deviceID, constants.CommandPlaylistChange, models.PlaylistPayload{PlaylistID: playlistID})
}

// PlaybackAction sends playback:<action> to deviceID.
func (g *Gateway) PlaybackAction(deviceID, action string, data any) bool {
	return g.SendCommand(deviceID, constants.CommandPlaybackPrefix+action, data)
}

// Shutdown closes every device connection and waits for their loops to finish.
// Connections accepted afterwards are served normally.
func (g *Gateway) Shutdown() {
	g.mu.Lock()
	g.cancel()
	g.ctx, g.cancel = context.WithCancel(context.Background())
	g.mu.Unlock()

	g.wg.Wait()
	g.logger.Info().Msg("Gateway stopped")
}

func (g *Gateway) lifetime() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx
}

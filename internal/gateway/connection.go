package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benmeehan/signage-hub/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// wsConnection is the registry handle for one websocket. Frames are written by
// a single writer goroutine fed through a bounded queue.
type wsConnection struct {
	id           string
	conn         *websocket.Conn
	send         chan models.Frame
	writeTimeout time.Duration
	logger       zerolog.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	done      chan struct{}
}

func newWSConnection(parent context.Context, conn *websocket.Conn, queueSize int, writeTimeout time.Duration,
	logger zerolog.Logger) *wsConnection {

	ctx, cancel := context.WithCancel(parent)
	id := uuid.New().String()

	return &wsConnection{
		id:           id,
		conn:         conn,
		send:         make(chan models.Frame, queueSize),
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("connection_id", id).Logger(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

func (c *wsConnection) ID() string {
	return c.id
}

// Send queues a frame. It never waits for the device.
func (c *wsConnection) Send(frame models.Frame) error {
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrOutboundQueueFull
	}
}

// Ping writes a websocket ping control frame.
func (c *wsConnection) Ping() error {
	deadline := time.Now().Add(c.writeTimeout)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrTransport, err)
	}
	return nil
}

// Close tears the socket down. Safe to call more than once.
func (c *wsConnection) Close() error {
	return c.closeWithReason(websocket.CloseNormalClosure, "")
}

// closeWithReason sends a close frame carrying code and reason before closing the socket.
func (c *wsConnection) closeWithReason(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		deadline := time.Now().Add(c.writeTimeout)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		err = c.conn.Close()
	})
	return err
}

// writeLoop drains the outbound queue until the connection is closed.
func (c *wsConnection) writeLoop() {
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to set write deadline")
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				c.logger.Warn().Err(err).Str("frame_type", frame.Type).Msg("Failed to write frame, closing connection")
				_ = c.Close()
				return
			}
		}
	}
}

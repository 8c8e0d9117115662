package channel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	readLimit    = 1 << 20
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	sendBuffer   = 64
)

// Handler processes one inbound frame read off the wire. It is implemented
// by internal/engine.Engine.
type Handler interface {
	HandleFrame(ctx context.Context, raw []byte)
}

// Connection is a station's live WebSocket transport to its supervision URL,
// adapted from backend/services/ocpp-server/internal/ws/connection.go's
// server-side read/write pumps into a client-Dial equivalent: a fresh
// Connection is created on every (re)connect attempt rather than on every
// inbound Upgrade.
type Connection struct {
	stationID string
	ws        *websocket.Conn
	send      chan []byte
	logger    *zap.Logger
	handler   Handler
	onClose   func(error)
}

// Dial opens a WebSocket connection to url using subprotocol "ocpp1.6" or
// "ocpp2.0.1" (per info.OcppVersion) and the given credentials, matching
// spec.md §4.3's "Message Channel connects using the negotiated OCPP-J
// subprotocol".
func Dial(ctx context.Context, url, subprotocol string, creds Credentials) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{subprotocol},
	}
	header := http.Header{}
	creds.ApplyTo(header)

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, fmt.Errorf("channel: dial %s: %w", url, err)
	}
	return conn, resp, nil
}

// NewConnection wraps an already-dialed websocket.Conn.
func NewConnection(stationID string, ws *websocket.Conn, handler Handler, logger *zap.Logger, onClose func(error)) *Connection {
	return &Connection{
		stationID: stationID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		logger:    logger,
		handler:   handler,
		onClose:   onClose,
	}
}

// Run launches the read and write pumps and blocks until either fails or ctx
// is done.
func (c *Connection) Run(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump(ctx)
	}()
	c.readPump(ctx)
	<-done
}

func (c *Connection) readPump(ctx context.Context) {
	var closeErr error
	defer func() {
		close(c.send)
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(closeErr)
		}
	}()

	c.ws.SetReadLimit(readLimit)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			closeErr = ctx.Err()
			return
		default:
		}

		_, message, err := c.ws.ReadMessage()
		if err != nil {
			c.logger.Info("channel read closed", zap.String("station_id", c.stationID), zap.Error(err))
			closeErr = err
			return
		}
		c.handler.HandleFrame(ctx, message)
	}
}

func (c *Connection) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				_ = c.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(websocket.TextMessage, msg); err != nil {
				c.logger.Warn("channel write failed", zap.String("station_id", c.stationID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Send enqueues a frame for writing. It never blocks: a full buffer drops
// the frame and logs a warning, matching the teacher connection's
// backpressure policy.
func (c *Connection) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("channel send on closed connection", zap.String("station_id", c.stationID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.logger.Warn("channel dropping outgoing frame, buffer full", zap.String("station_id", c.stationID))
	}
}

func (c *Connection) write(messageType int, data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(messageType, data)
}

// Close requests the pumps stop and the socket closes.
func (c *Connection) Close() error {
	return c.ws.Close()
}

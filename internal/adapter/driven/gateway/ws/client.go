package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/Wyydra/duet/internal/core/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// SDP offers are the largest frames we expect.
	maxMessageSize = 64 * 1024

	DefaultSendBuffer = 64
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrClientClosed   = errors.New("client closed")
)

// Client is one websocket connection bound to an identity. Reads happen on
// the goroutine running ReadPump, writes only on the one running WritePump.
type Client struct {
	id   domain.Identity
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan Outbound
	closed bool
}

func NewClient(id domain.Identity, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan Outbound, buffer),
	}
}

func (c *Client) ID() domain.Identity {
	return c.id
}

// Enqueue queues a frame without blocking.
func (c *Client) Enqueue(msg Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the write pump, which sends a close frame and drops the
// connection. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump decodes frames until the connection fails. Pongs are reported
// to handle as heartbeat frames.
func (c *Client) ReadPump(handle func(Inbound)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		handle(Inbound{Type: string(domain.EventHeartbeat)})
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Inbound
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("identity", c.id.String()).Msg("Unexpected close error")
			}
			return
		}
		handle(msg)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Error().Err(err).Str("identity", c.id.String()).Msg("Error writing frame")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

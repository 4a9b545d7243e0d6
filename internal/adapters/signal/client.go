package signal

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/okulov/liveclass/internal/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024
)

// Client keeps a websocket connection to the room-coordination server
// alive, re-dialing with a fixed backoff. Inbound messages are decoded
// into core events and delivered in arrival order on a single channel.
type Client struct {
	serverURL      string
	reconnectDelay time.Duration

	events   chan core.Event
	outgoing chan wireMessage

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(serverURL string, reconnectDelay time.Duration) *Client {
	return &Client{
		serverURL:      serverURL,
		reconnectDelay: reconnectDelay,
		events:         make(chan core.Event, 64),
		outgoing:       make(chan wireMessage, 64),
		done:           make(chan struct{}),
	}
}

func (c *Client) Events() <-chan core.Event { return c.events }

// Emit queues an outbound intent. Intents queued while the connection
// is down are sent once it is back; nothing else is replayed.
func (c *Client) Emit(out core.Outbound) {
	msg, err := encode(out)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("encode outbound")
		return
	}
	select {
	case c.outgoing <- msg:
	default:
		log.Warn().Str("module", "signal").Str("type", msg.Type).Msg("outbound queue full, dropped")
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Run dials and serves the connection until ctx is done or Close is
// called. hello is re-sent after every successful connect so the
// server can answer each connection with a fresh roster snapshot.
func (c *Client) Run(ctx context.Context, hello core.Outbound) error {
	defer close(c.events)

	for {
		if err := c.runOnce(ctx, hello); err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("connection lost")
		}
		c.pushEvent(core.ConnState{Connected: false})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

func (c *Client) runOnce(ctx context.Context, hello core.Outbound) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return err
	}

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	log.Info().Str("module", "signal").Str("url", c.serverURL).Msg("connected")
	c.pushEvent(core.ConnState{Connected: true})
	c.Emit(hello)

	connDone := make(chan struct{})
	go c.writePump(conn, connDone)
	defer close(connDone)

	return c.readLoop(conn)
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		ev, err := decode(msg)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Msg("inbound dropped")
			continue
		}
		c.pushEvent(ev)
	}
}

func (c *Client) writePump(conn *websocket.Conn, connDone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("write error")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-connDone:
			return
		}
	}
}

func (c *Client) pushEvent(ev core.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

package realtime

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
)

// wsChannel carries the event protocol over a direct websocket to the
// realtime endpoint. Audio travels in-band as base64 append events.
type wsChannel struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool

	hooks transportHooks
	done  chan struct{}
}

// connectWebSocket dials the realtime endpoint with the session credential
// and starts the read and keepalive loops.
func connectWebSocket(ctx context.Context, cfg *Config, token string, hooks transportHooks) (EventChannel, error) {
	url := fmt.Sprintf("%s?model=%s", cfg.RealtimeWSURL, cfg.Model)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	header.Set("OpenAI-Beta", "realtime=v1")

	dialer := websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout}
	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, NewConnectionError(
				fmt.Sprintf("dial failed with status %d", resp.StatusCode),
				err,
				resp.StatusCode >= 500,
			)
		}
		return nil, NewConnectionError("dial failed", err, true)
	}

	c := &wsChannel{
		conn:  conn,
		hooks: hooks,
		done:  make(chan struct{}),
	}

	conn.SetPingHandler(func(appData string) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(wsWriteTimeout))
	})

	go c.readLoop()
	go c.keepAlive()

	if hooks.onOpen != nil {
		hooks.onOpen(c)
	}
	return c, nil
}

// Send implements EventChannel.
func (c *wsChannel) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(v)
}

// SendAudio implements EventChannel. The websocket carrier has no media
// track, so audio rides the event channel as base64.
func (c *wsChannel) SendAudio(chunk AudioChunk) error {
	encoded := base64.StdEncoding.EncodeToString(chunk.Bytes())
	return c.Send(AudioAppend(encoded))
}

// Close implements EventChannel.
func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)

	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	err := c.conn.Close()
	c.mu.Unlock()
	return err
}

func (c *wsChannel) readLoop() {
	for {
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed && c.hooks.onClose != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.hooks.onClose(nil)
				} else {
					c.hooks.onClose(NewConnectionError("read failed", err, true))
				}
			}
			return
		}
		if c.hooks.onMessage != nil {
			c.hooks.onMessage(data)
		}
	}
}

// keepAlive sends periodic pings so idle interviews are not dropped by
// intermediaries.
func (c *wsChannel) keepAlive() {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if !c.closed {
				_ = c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout))
			}
			c.mu.Unlock()
		}
	}
}

var _ EventChannel = (*wsChannel)(nil)

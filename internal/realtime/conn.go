package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	sendBuffer     = 64
)

// Conn одно WebSocket-соединение.
type Conn struct {
	ID       string
	Identity Identity

	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	// rooms меняется только под hub.mu
	rooms map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(h *Hub, ws *websocket.Conn, id Identity) *Conn {
	return &Conn{
		ID:       newConnID(),
		Identity: id,
		hub:      h,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Emit отправляет событие только этому соединению.
func (c *Conn) Emit(event string, data any) {
	msg, err := encodeFrame("", event, data)
	if err != nil {
		c.hub.log.Error("failed to encode frame", sl.Err(err))
		return
	}
	c.enqueue(msg)
}

// Authenticated сообщает, известен ли пользователь соединения.
func (c *Conn) Authenticated() bool {
	return c.Identity.UserID != ""
}

// Медленный клиент с переполненным буфером отключается.
func (c *Conn) enqueue(msg []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		c.hub.log.Warn("socket send buffer full, closing", slog.String("conn_id", c.ID))
		c.close()
	}
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		c.hub.unregister(c)
		c.close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("socket closed unexpectedly", slog.String("conn_id", c.ID), sl.Err(err))
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			if err == nil {
				err = errors.New("missing event")
			}
			c.Emit(EventError, map[string]string{"error": "invalid frame"})
			c.hub.log.Warn("invalid socket frame", slog.String("conn_id", c.ID), sl.Err(err))
			continue
		}
		c.hub.dispatch(ctx, c, f)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

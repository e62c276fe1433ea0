// Package realtime реализует канал событий поверх WebSocket.
//
// Клиенты обмениваются JSON-кадрами {event, room, data}. Обработчики событий
// регистрируются через On, рассылка идет по комнатам. Порядок доставки
// гарантируется только в пределах одного соединения.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/magabrotheeeer/jukebox/internal/http/response"
	"github.com/magabrotheeeer/jukebox/internal/lib/sl"
)

// EventError событие, которым сервер сообщает клиенту об ошибке обработки.
const EventError = "error"

// Frame кадр протокола.
type Frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Identity пользователь, от имени которого открыто соединение.
type Identity struct {
	UserID   string
	Username string
}

// HandlerFunc обработчик входящего события.
type HandlerFunc func(ctx context.Context, c *Conn, f Frame) error

// Authenticator определяет пользователя по запросу на апгрейд.
// ok=false: анонимное соединение.
type Authenticator func(r *http.Request) (id Identity, ok bool)

// Recorder счетчики соединений.
type Recorder interface {
	SocketConnected()
	SocketDisconnected()
}

type noopRecorder struct{}

func (noopRecorder) SocketConnected()    {}
func (noopRecorder) SocketDisconnected() {}

// Hub хранит соединения, комнаты и обработчики событий.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader
	recorder Recorder
	auth     Authenticator

	mu       sync.RWMutex
	rooms    map[string]map[*Conn]struct{}
	handlers map[string]HandlerFunc
	conns    map[*Conn]struct{}
}

// NewHub создает хаб. recorder может быть nil.
func NewHub(log *slog.Logger, recorder Recorder) *Hub {
	if recorder == nil {
		recorder = noopRecorder{}
	}
	return &Hub{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		recorder: recorder,
		rooms:    make(map[string]map[*Conn]struct{}),
		handlers: make(map[string]HandlerFunc),
		conns:    make(map[*Conn]struct{}),
	}
}

// SetAuthenticator задает способ определения пользователя соединения.
func (h *Hub) SetAuthenticator(a Authenticator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auth = a
}

// On регистрирует обработчик события. Повторная регистрация заменяет обработчик.
func (h *Hub) On(event string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[event] = fn
}

// Join добавляет соединение в комнату.
func (h *Hub) Join(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Conn]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

// Leave убирает соединение из комнаты. Пустые комнаты удаляются.
func (h *Hub) Leave(c *Conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, room)
}

func (h *Hub) leaveLocked(c *Conn, room string) {
	delete(c.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Members количество соединений в комнате.
func (h *Hub) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast отправляет событие всем участникам комнаты.
func (h *Hub) Broadcast(room, event string, data any) error {
	const op = "realtime.Broadcast"

	msg, err := encodeFrame(room, event, data)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(msg)
	}
	return nil
}

// ServeHTTP выполняет апгрейд до WebSocket и обслуживает соединение до закрытия.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "realtime.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	h.mu.RLock()
	auth := h.auth
	h.mu.RUnlock()

	var id Identity
	if auth != nil {
		id, _ = auth(r)
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", sl.Err(err))
		return
	}

	c := newConn(h, ws, id)
	h.register(c)
	log.Info("socket connected", slog.String("conn_id", c.ID), slog.String("user_id", id.UserID))

	go c.writePump()
	c.readPump()

	log.Info("socket disconnected", slog.String("conn_id", c.ID))
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
	h.recorder.SocketConnected()
}

func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()
	h.recorder.SocketDisconnected()
}

func (h *Hub) dispatch(ctx context.Context, c *Conn, f Frame) {
	h.mu.RLock()
	fn, ok := h.handlers[f.Event]
	h.mu.RUnlock()

	if !ok {
		h.log.Warn("unknown socket event", slog.String("event", f.Event), slog.String("conn_id", c.ID))
		c.Emit(EventError, map[string]string{"event": f.Event, "error": "unknown event"})
		return
	}
	if err := fn(ctx, c, f); err != nil {
		h.log.Error("socket handler failed",
			slog.String("event", f.Event),
			slog.String("conn_id", c.ID),
			sl.Err(err),
		)
		// клиенту уходит только вид ошибки, подробности остаются в логе
		_, msg := response.StatusFromError(err)
		c.Emit(EventError, map[string]string{"event": f.Event, "error": msg})
	}
}

// Close закрывает все соединения.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.ws.Close()
	}
}

func encodeFrame(room, event string, data any) ([]byte, error) {
	f := struct {
		Event string `json:"event"`
		Room  string `json:"room,omitempty"`
		Data  any    `json:"data,omitempty"`
	}{Event: event, Room: room, Data: data}
	return json.Marshal(f)
}

func newConnID() string {
	return uuid.NewString()
}

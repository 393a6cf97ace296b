package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/siherrmann/cinegraph/core/game"
	"github.com/siherrmann/cinegraph/model"
	"github.com/skip2/go-qrcode"
)

const (
	moveTimeout = 30 * time.Second
	qrSize      = 320
)

// clientMessage is sent by players, Type is one of submit, suggest or abandon
type clientMessage struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// serverMessage is sent to players, Type is one of welcome, state, hints or error
type serverMessage struct {
	Type    string            `json:"type"`
	Player  string            `json:"player,omitempty"`
	Session json.RawMessage   `json:"session,omitempty"`
	Result  *model.TurnResult `json:"result,omitempty"`
	Hints   []model.Hint      `json:"hints,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type roomInfo struct {
	GameID string `json:"game_id"`
	WS     string `json:"ws"`
	QR     string `json:"qr"`
}

type client struct {
	conn *websocket.Conn
	send chan serverMessage
	// player is the seat of the client, empty for spectators
	player string
}

type action struct {
	client *client
	msg    clientMessage
}

// room is one versus game shared by the clients connected to it
type room struct {
	id      uuid.UUID
	engine  *game.Engine
	log     *slog.Logger
	clients map[*client]bool
	seats   map[string]*client

	register chan *client
	unreg    chan *client
	actions  chan action
	done     chan struct{}

	// mu guards reads of session from other goroutines, only run replaces it
	mu         sync.RWMutex
	session    *model.Session
	lastActive time.Time
}

func newRoom(id uuid.UUID, engine *game.Engine, logger *slog.Logger) *room {
	session := engine.NewVersus()
	session.ID = id
	return &room{
		id:         id,
		engine:     engine,
		log:        logger.With(slog.String("room", id.String())),
		clients:    map[*client]bool{},
		seats:      map[string]*client{},
		register:   make(chan *client),
		unreg:      make(chan *client),
		actions:    make(chan action),
		done:       make(chan struct{}),
		session:    session,
		lastActive: time.Now(),
	}
}

func (r *room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *room) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

// encodeSession freezes the session for the write pumps
func (r *room) encodeSession() (json.RawMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return json.Marshal(r.session)
}

// writeState encodes the session while holding the lock
func (r *room) writeState(cfg *Config, w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	writeJSON(cfg, w, http.StatusOK, r.session)
}

func (r *room) reply(c *client, msg serverMessage) {
	if !r.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		r.log.Warn("Dropping reply to slow client", slog.String("player", c.player))
	}
}

func (r *room) run() {
	for {
		select {
		case c := <-r.register:
			r.touch()
			r.clients[c] = true
			r.mu.RLock()
			for _, player := range r.session.Players {
				if r.seats[player] == nil {
					r.seats[player] = c
					c.player = player
					break
				}
			}
			r.mu.RUnlock()
			r.log.Debug("Client joined", slog.String("player", c.player))

			r.reply(c, serverMessage{Type: "welcome", Player: c.player})
			r.broadcast(nil)

		case c := <-r.unreg:
			r.touch()
			if _, ok := r.clients[c]; ok {
				delete(r.clients, c)
				close(c.send)
			}
			if c.player != "" && r.seats[c.player] == c {
				delete(r.seats, c.player)
			}

		case a := <-r.actions:
			r.touch()
			r.handle(a)

		case <-r.done:
			for c := range r.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(r.clients, c)
			}
			return
		}
	}
}

// handle plays an action on a copy of the session without holding mu,
// the copy replaces the session once the engine returns
func (r *room) handle(a action) {
	ctx, cancel := context.WithTimeout(context.Background(), moveTimeout)
	defer cancel()

	r.mu.RLock()
	session := r.session.Clone()
	r.mu.RUnlock()

	switch a.msg.Type {
	case "submit":
		if a.client.player == "" || a.client.player != session.CurrentPlayer() {
			r.reply(a.client, serverMessage{Type: "error", Error: "not your turn"})
			return
		}
		result, err := r.engine.Submit(ctx, session, a.msg.Name)
		r.commit(session)
		if err != nil {
			r.log.Warn("Move failed", slog.String("player", a.client.player), slog.String("error", err.Error()))
			r.reply(a.client, serverMessage{Type: "error", Error: err.Error()})
			return
		}
		r.broadcast(result)

	case "suggest":
		if a.client.player == "" || a.client.player != session.CurrentPlayer() {
			r.reply(a.client, serverMessage{Type: "error", Error: "not your turn"})
			return
		}
		hints, err := r.engine.Suggest(ctx, session)
		r.commit(session)
		if err != nil {
			r.reply(a.client, serverMessage{Type: "error", Error: err.Error()})
			return
		}
		r.reply(a.client, serverMessage{Type: "hints", Hints: hints})

	case "abandon":
		if a.client.player == "" {
			return
		}
		result, err := r.engine.Abandon(ctx, session)
		r.commit(session)
		if err != nil {
			r.reply(a.client, serverMessage{Type: "error", Error: err.Error()})
			return
		}
		r.broadcast(result)
	}
}

func (r *room) commit(session *model.Session) {
	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
}

func (r *room) broadcast(result *model.TurnResult) {
	session, err := r.encodeSession()
	if err != nil {
		r.log.Error("Error encoding session", slog.String("error", err.Error()))
		return
	}
	for c := range r.clients {
		select {
		case c.send <- serverMessage{Type: "state", Player: c.player, Session: session, Result: result}:
		default:
			r.log.Warn("Dropping slow client", slog.String("player", c.player))
			delete(r.clients, c)
			close(c.send)
		}
	}
}

// roomManager holds the versus rooms keyed by game id
type roomManager struct {
	mu          sync.Mutex
	rooms       map[uuid.UUID]*room
	engine      *game.Engine
	idleTimeout time.Duration
	log         *slog.Logger
	quit        chan struct{}
	once        sync.Once
}

func newRoomManager(engine *game.Engine, idleTimeout time.Duration, logger *slog.Logger) *roomManager {
	rm := &roomManager{
		rooms:       map[uuid.UUID]*room{},
		engine:      engine,
		idleTimeout: idleTimeout,
		log:         logger,
		quit:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// lookup returns an existing room
func (rm *roomManager) lookup(id uuid.UUID) (*room, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	r, ok := rm.rooms[id]
	return r, ok
}

func (rm *roomManager) getRoom(id uuid.UUID) *room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if r, ok := rm.rooms[id]; ok {
		return r
	}

	r := newRoom(id, rm.engine, rm.log)
	rm.rooms[id] = r
	go r.run()
	rm.log.Info("Created versus room", slog.String("room", id.String()))
	return r
}

// reaperLoop closes rooms that have been idle longer than idleTimeout
func (rm *roomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-rm.quit:
			return
		case <-ticker.C:
		}

		rm.reap(time.Now().Add(-rm.idleTimeout))
	}
}

// reap closes the rooms idle since before cutoff.
// The rooms are checked without holding rm.mu.
func (rm *roomManager) reap(cutoff time.Time) int {
	rm.mu.Lock()
	rooms := make(map[uuid.UUID]*room, len(rm.rooms))
	for id, r := range rm.rooms {
		rooms[id] = r
	}
	rm.mu.Unlock()

	closed := 0
	for id, r := range rooms {
		if !r.idleSince().Before(cutoff) {
			continue
		}
		rm.mu.Lock()
		if rm.rooms[id] == r {
			delete(rm.rooms, id)
			close(r.done)
			closed++
			rm.log.Info("Closed idle versus room", slog.String("room", id.String()))
		}
		rm.mu.Unlock()
	}
	return closed
}

func (rm *roomManager) stop() {
	rm.once.Do(func() {
		close(rm.quit)
		rm.mu.Lock()
		defer rm.mu.Unlock()
		for id, r := range rm.rooms {
			delete(rm.rooms, id)
			close(r.done)
		}
	})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func parseGameID(w http.ResponseWriter, ps httprouter.Params) (uuid.UUID, bool) {
	id, err := uuid.Parse(ps.ByName("gameid"))
	if err != nil {
		http.Error(w, "invalid game id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (s *server) serveNewRoom(prefix string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		id := uuid.New()
		s.rooms.getRoom(id)
		base := prefix + "/versus/" + id.String()
		writeJSON(s.cfg, w, http.StatusCreated, roomInfo{GameID: id.String(), WS: base + "/ws", QR: base + "/qr"})
	}
}

func (s *server) serveRoom() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := parseGameID(w, ps)
		if !ok {
			return
		}
		rm, ok := s.rooms.lookup(id)
		if !ok {
			s.notFound(w, "unknown game id")
			return
		}
		rm.writeState(s.cfg, w)
	}
}

func (s *server) serveWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		id, ok := parseGameID(w, ps)
		if !ok {
			return
		}

		rm, ok := s.rooms.lookup(id)
		if !ok {
			http.Error(w, "unknown game id", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Warn("Websocket upgrade failed", slog.String("error", err.Error()))
			return
		}

		c := &client{
			conn: conn,
			send: make(chan serverMessage, 8),
		}

		select {
		case rm.register <- c:
		case <-rm.done:
			_ = conn.Close()
			return
		}

		go c.writePump()
		c.readPump(rm)
	}
}

func (c *client) readPump(r *room) {
	defer func() {
		select {
		case r.unreg <- c:
		case <-r.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "submit", "suggest", "abandon":
			select {
			case r.actions <- action{client: c, msg: msg}:
			case <-r.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// serveQR renders a PNG QR code of the room URL
func (s *server) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, ok := parseGameID(w, ps); !ok {
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + strings.TrimSuffix(r.URL.Path, "/qr")

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(s.cfg, w)
		_, _ = w.Write(png)
	}
}

// registerVersus sets up routes so that:
//   - POST $prefix/versus           → new room id
//   - $prefix/versus/:gameid        → room state
//   - $prefix/versus/:gameid/ws     → websocket of that room
//   - $prefix/versus/:gameid/qr     → PNG QR code of the room URL
func registerVersus(s *server, prefix string, mux *httprouter.Router) {
	mux.POST(prefix+"/versus", s.logRequests(s.serveNewRoom(prefix)))
	mux.GET(prefix+"/versus/:gameid", s.logRequests(s.serveRoom()))
	mux.GET(prefix+"/versus/:gameid/ws", s.serveWS())
	mux.GET(prefix+"/versus/:gameid/qr", s.logRequests(s.serveQR()))
}

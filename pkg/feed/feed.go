// Package feed streams committed exchange events to websocket clients.
package feed

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
	"github.com/helinwang/bridgetower/pkg/ledger"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait.
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	// names filters events by name, empty means all.
	names map[string]bool
}

func (c *client) wants(name string) bool {
	return len(c.names) == 0 || c.names[name]
}

// Feed broadcasts receipts to the connected websocket clients. A
// client that can not keep up is disconnected.
type Feed struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New creates a feed accepting connections from any origin.
func New() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// ServeHTTP upgrades the request to a websocket subscription. The
// optional events query parameter is a comma separated list of event
// names to receive.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if q := r.URL.Query().Get("events"); q != "" {
		c.names = make(map[string]bool)
		for _, n := range strings.Split(q, ",") {
			c.names[strings.TrimSpace(n)] = true
		}
	}

	f.mu.Lock()
	f.clients[c] = struct{}{}
	f.mu.Unlock()
	log.Debug("feed client connected", "remote", conn.RemoteAddr())

	go f.writeLoop(c)
	go f.readLoop(c)
}

// Clients returns the number of connected clients.
func (f *Feed) Clients() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clients)
}

// Attach publishes every receipt committed on c until the returned
// function is called.
func (f *Feed) Attach(c *ledger.Chain) func() {
	return c.Subscribe(f.Publish)
}

// Publish sends the events of r to every client interested in them.
// It never blocks.
func (f *Feed) Publish(r *ledger.Receipt) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all := encode(r, r.Events)
	for c := range f.clients {
		msg := all
		if len(c.names) > 0 {
			var events []ledger.Event
			for _, e := range r.Events {
				if c.wants(e.Name) {
					events = append(events, e)
				}
			}
			if len(events) == 0 {
				continue
			}
			msg = encode(r, events)
		}

		if msg == nil {
			continue
		}

		select {
		case c.send <- msg:
		default:
			log.Warn("feed client too slow, dropping", "remote", c.conn.RemoteAddr())
			f.remove(c)
		}
	}
}

func encode(r *ledger.Receipt, events []ledger.Event) []byte {
	b, err := json.Marshal(ledger.Receipt{
		Origin: r.Origin,
		Time:   r.Time,
		Root:   r.Root,
		Events: events,
	})
	if err != nil {
		log.Error("error encoding receipt", "root", r.Root, "err", err)
		return nil
	}
	return b
}

// remove must be called with mu held.
func (f *Feed) remove(c *client) {
	if _, ok := f.clients[c]; !ok {
		return
	}
	delete(f.clients, c)
	close(c.send)
}

// Close disconnects all clients.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.clients {
		f.remove(c)
	}
}

func (f *Feed) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug("feed write failed", "remote", c.conn.RemoteAddr(), "err", err)
				f.drop(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				f.drop(c)
				return
			}
		}
	}
}

// readLoop discards client messages and notices disconnects.
func (f *Feed) readLoop(c *client) {
	defer f.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("feed read error", "remote", c.conn.RemoteAddr(), "err", err)
			}
			return
		}
	}
}

func (f *Feed) drop(c *client) {
	f.mu.Lock()
	f.remove(c)
	f.mu.Unlock()
}

// Server serves a feed over HTTP.
type Server struct {
	srv *http.Server
}

// Start listens on addr and serves the feed at /feed in the
// background.
func Start(addr string, f *Feed) (*Server, net.Addr, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/feed", f)
	s := &Server{srv: &http.Server{Handler: mux, ReadHeaderTimeout: writeWait}}
	go func() {
		err := s.srv.Serve(l)
		if err != nil && err != http.ErrServerClosed {
			log.Error("error serving feed", "err", err)
		}
	}()
	return s, l.Addr(), nil
}

// Shutdown stops accepting connections and waits for handlers to
// return.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

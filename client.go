/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

const sendBufferSize = 16

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one websocket connection. Until it sends a register message it
// has no identity and every other message is ignored.
type Client struct {
	conn *websocket.Conn
	send chan OutboundMessage

	mu     sync.Mutex
	closed bool

	identity  string
	sessionID string
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{
		conn: conn,
		send: make(chan OutboundMessage, sendBufferSize),
	}
}

func (c *Client) deliver(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errChannelClosed
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return errChannelFull
	}
}

// shutdown stops the write pump and closes the socket, which in turn ends
// the read pump. Safe to call more than once.
func (c *Client) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

func (c *Client) readPump(cfg *Config, e *Engine) {
	defer func() {
		if c.identity != "" {
			e.Disconnect(c.identity, c)
		}
		c.shutdown()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		msg, err := decodeInbound(data)
		if err != nil {
			logf(cfg, "SOCKET: Ignoring message from %q: %v", c.identity, err)
			continue
		}

		c.handle(cfg, e, msg)
	}
}

func (c *Client) handle(cfg *Config, e *Engine, msg InboundMessage) {
	switch m := msg.(type) {
	case RegisterMessage:
		prev, err := e.Register(c, m.Identity, m.SessionID)
		if err != nil {
			logf(cfg, "SOCKET: Register of %q to %s rejected: %v", m.Identity, m.SessionID, err)
			return
		}

		if c.identity != "" && c.identity != m.Identity {
			e.Disconnect(c.identity, c)
		}

		c.identity = m.Identity
		c.sessionID = m.SessionID

		if stale, ok := prev.(*Client); ok {
			logf(cfg, "SOCKET: %q reconnected to %s, closing previous connection", m.Identity, m.SessionID)
			stale.shutdown()
		}

	case CardSelectedMessage:
		if c.identity == "" {
			return
		}
		e.SelectCard(c.identity, c.sessionID, m.CardIndex)

	case FinishedSwipingMessage:
		if c.identity == "" {
			return
		}
		e.FinishSwiping(c.identity, c.sessionID)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func serveWS(cfg *Config, e *Engine) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "SOCKET: Upgrade for %s failed: %v", realIP(r), err)
			return
		}

		client := newClient(conn)

		logf(cfg, "SOCKET: Connection opened from %s", realIP(r))

		go client.writePump()
		client.readPump(cfg, e)
	}
}

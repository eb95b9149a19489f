/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// client is one scoreboard connection. Scoreboards only listen; anything
// they send is discarded.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans game state out to every scoreboard watching a game.
type hub struct {
	clients map[*client]bool

	register  chan *client
	unreg     chan *client
	broadcast chan []byte

	done     chan struct{}
	stopOnce sync.Once
}

func newHub() *hub {
	return &hub{
		clients:   make(map[*client]bool),
		register:  make(chan *client),
		unreg:     make(chan *client),
		broadcast: make(chan []byte),
		done:      make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true

		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}

		case <-h.done:
			for c := range h.clients {
				close(c.send)
				_ = c.conn.Close()
				delete(h.clients, c)
			}
			return
		}
	}
}

// join reports false once the hub has been stopped.
func (h *hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) leave(c *client) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

func (h *hub) publish(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

// stop disconnects every client. Safe to call more than once.
func (h *hub) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

func (c *client) readPump(h *hub) {
	defer func() {
		h.leave(c)
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

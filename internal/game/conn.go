package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	outboundBuffer = 256
)

// Conn adapts one websocket to the Session interface: a write pump with a
// bounded outbound queue and a read loop feeding the room inbox. Inbound
// actions are rate limited per connection.
type Conn struct {
	ws      *websocket.Conn
	out     chan []byte
	limiter *rate.Limiter
	log     zerolog.Logger

	closeOnce sync.Once
	drainOnce sync.Once
	done      chan struct{}
	draining  chan struct{}
}

func NewConn(ws *websocket.Conn, log zerolog.Logger) *Conn {
	return &Conn{
		ws:       ws,
		out:      make(chan []byte, outboundBuffer),
		limiter:  rate.NewLimiter(rate.Limit(3), 5),
		log:      log,
		done:     make(chan struct{}),
		draining: make(chan struct{}),
	}
}

// Push enqueues an envelope without blocking. A connection whose queue is
// full is too far behind to be useful and gets closed instead of stalling
// the room.
func (c *Conn) Push(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to marshal outbound message")
		return
	}
	select {
	case c.out <- data:
	case <-c.done:
	default:
		c.log.Warn().Msg("outbound queue full, dropping connection")
		c.close()
	}
}

// Invalidate stops the connection, but through the write pump: frames
// already queued (the session_invalid envelope in particular) are flushed
// and a close frame is sent before the socket goes down. A hard close here
// would drop the very message telling the client why it was cut off.
func (c *Conn) Invalidate() {
	c.drainOnce.Do(func() { close(c.draining) })
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// WriteLoop drains the outbound queue and keeps the connection alive with
// pings. Runs in its own goroutine per connection.
func (c *Conn) WriteLoop() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.draining:
			c.flush()
			return
		case <-c.done:
			return
		}
	}
}

// flush writes whatever is still queued, then an orderly close frame.
func (c *Conn) flush() {
	for {
		select {
		case data := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ReadLoop parses inbound actions and hands them to the room. It returns
// when the socket dies, detaching the session so the room can decide
// whether the player is gone for good.
func (c *Conn) ReadLoop(room *Room) {
	defer func() {
		room.Detach(c)
		c.close()
	}()

	c.ws.SetReadLimit(4 * 1024)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var action Action
		if err := json.Unmarshal(data, &action); err != nil {
			// Malformed payload: report, mutate nothing.
			c.Push(Message[ErrorData]{Type: TypeError, Data: ErrorData{Error: "malformed payload"}})
			continue
		}
		if !c.limiter.Allow() {
			c.Push(errAck(action.ReqId, ErrRateLimited))
			continue
		}
		room.Dispatch(c, action)
	}
}

// Package chatclient maintains one logical real-time session against the
// huddle server. It hides transport-level reconnection from application
// code: actions issued while offline are queued and replayed, in order,
// once the connection is back.
package chatclient

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/acorrad/go-huddle/internal/protocol"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectDelay       = 2 * time.Second
)

// Handler receives the raw payload of one event. Handlers for the same
// event run in registration order; a panicking handler does not stop the
// others.
type Handler func(data json.RawMessage)

// Transport is the minimal connection surface the client needs. A
// *websocket.Conn satisfies it.
type Transport interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer func(url string) (Transport, error)

func wsDial(url string) (Transport, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

type Config struct {
	URL                  string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	// Dial overrides the websocket dialer, for tests.
	Dial Dialer
}

type subscription struct {
	id      int
	handler Handler
}

type Client struct {
	log            *log.Logger
	url            string
	dial           Dialer
	maxAttempts    int
	reconnectDelay time.Duration

	mu        sync.Mutex
	state     State
	conn      Transport
	gen       int // bumped on every teardown so stale pumps exit
	queue     []protocol.Action
	handlers  map[string][]subscription
	nextSubId int
	explicit  bool

	wmu sync.Mutex // serializes writes to the transport
}

func NewClient(cfg Config, logger *log.Logger) *Client {
	c := &Client{
		log:            logger,
		url:            cfg.URL,
		dial:           cfg.Dial,
		maxAttempts:    cfg.MaxReconnectAttempts,
		reconnectDelay: cfg.ReconnectDelay,
		handlers:       make(map[string][]subscription),
	}
	if c.dial == nil {
		c.dial = wsDial
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxReconnectAttempts
	}
	if c.reconnectDelay <= 0 {
		c.reconnectDelay = defaultReconnectDelay
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts the session. Calling it while already connecting or
// connected is a no-op, so a double call can never create a second
// underlying session. After a reconnection-failed notification a fresh
// Connect restarts the cycle.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.explicit = false
	gen := c.gen
	c.mu.Unlock()

	go c.connectLoop(gen)
}

// connectLoop dials until it succeeds or the attempt budget is spent.
// Attempt failures surface as connection:error events, exhaustion as
// connection:failed; nothing is ever thrown at callers.
func (c *Client) connectLoop(gen int) {
	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		if c.gen != gen || c.explicit {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		conn, err := c.dial(c.url)
		if err != nil {
			c.log.Printf("connect attempt %d: %v", attempt, err)
			c.emit(protocol.EventConnectionError, protocol.ConnectionError{
				Attempt: attempt,
				Message: err.Error(),
			})

			if attempt >= c.maxAttempts {
				c.mu.Lock()
				if c.gen == gen {
					c.state = StateDisconnected
				}
				c.mu.Unlock()
				c.emit(protocol.EventConnectionFailed, protocol.ConnectionError{Attempt: attempt})
				return
			}

			time.Sleep(c.reconnectDelay)
			continue
		}

		c.mu.Lock()
		if c.gen != gen || c.explicit {
			c.mu.Unlock()
			conn.Close()
			return
		}
		c.conn = conn
		c.state = StateConnected
		queued := c.queue
		c.queue = nil
		c.mu.Unlock()

		c.emit(protocol.EventConnected, nil)

		// Replay everything issued while offline, oldest first. No
		// dedup happens here: a caller that queued the same action
		// twice sees it transmitted twice (at-least-once).
		for _, action := range queued {
			if err := c.write(conn, action); err != nil {
				c.log.Printf("flush %q: %v", action.Event, err)
			}
		}

		go c.readLoop(conn, gen)
		return
	}
}

func (c *Client) readLoop(conn Transport, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.transportDropped(conn, gen, err)
			return
		}

		var ev protocol.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Printf("parse event: %v", err)
			continue
		}
		c.emitRaw(ev.Event, ev.Data)
	}
}

// transportDropped handles a server-side or network-level connection
// loss. The outbound queue is preserved and a new connect cycle starts;
// an explicit Disconnect never lands here because it bumps the
// generation first.
func (c *Client) transportDropped(conn Transport, gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	gen = c.gen
	c.conn = nil
	c.state = StateConnecting
	c.mu.Unlock()

	conn.Close()
	c.log.Printf("connection lost: %v", err)
	c.emit(protocol.EventDisconnected, nil)

	go c.connectLoop(gen)
}

// Disconnect tears the session down deliberately. Registered handlers
// survive for the next Connect, but the outbound queue is discarded:
// only transport-initiated drops preserve queued actions.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.state == StateDisconnected {
		c.mu.Unlock()
		return
	}
	c.explicit = true
	c.gen++
	conn := c.conn
	c.conn = nil
	c.queue = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.emit(protocol.EventDisconnected, nil)
}

// Send transmits the action immediately when connected, otherwise
// appends it to the outbound queue. The caller is never blocked and
// never told to retry. The only possible error is a payload that cannot
// be marshalled.
func (c *Client) Send(event string, data any) error {
	action, err := protocol.NewAction(event, data)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", event, err)
	}

	c.mu.Lock()
	if c.state != StateConnected || c.conn == nil {
		c.queue = append(c.queue, action)
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	c.mu.Unlock()

	if err := c.write(conn, action); err != nil {
		// the read loop will notice the drop; keep the action for the
		// reconnect flush
		c.log.Printf("send %q: %v", event, err)
		c.mu.Lock()
		c.queue = append(c.queue, action)
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) write(conn Transport, action protocol.Action) error {
	raw, err := json.Marshal(action)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// On subscribes a handler to an event and returns its subscription id.
func (c *Client) On(event string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextSubId++
	c.handlers[event] = append(c.handlers[event], subscription{id: c.nextSubId, handler: h})
	return c.nextSubId
}

// Off removes the subscription identified by id. Unknown ids are ignored.
func (c *Client) Off(event string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	subs := c.handlers[event]
	for i, sub := range subs {
		if sub.id == id {
			c.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

func (c *Client) emit(event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Printf("marshal %q payload: %v", event, err)
		return
	}
	c.emitRaw(event, raw)
}

func (c *Client) emitRaw(event string, data json.RawMessage) {
	c.mu.Lock()
	subs := make([]subscription, len(c.handlers[event]))
	copy(subs, c.handlers[event])
	c.mu.Unlock()

	for _, sub := range subs {
		c.invoke(event, sub.handler, data)
	}
}

func (c *Client) invoke(event string, h Handler, data json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("handler for %q panicked: %v", event, r)
		}
	}()
	h(data)
}

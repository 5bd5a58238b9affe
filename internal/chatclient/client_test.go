package chatclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/acorrad/go-huddle/internal/protocol"
	"github.com/acorrad/go-huddle/internal/testutil"
)

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	frames [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-f.in:
		return websocket.TextMessage, msg, nil
	case <-f.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-f.closed:
		return errors.New("connection closed")
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) sentActions(t *testing.T) []protocol.Action {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	actions := make([]protocol.Action, 0, len(f.frames))
	for _, frame := range f.frames {
		var a protocol.Action
		assert.NoError(t, json.Unmarshal(frame, &a), "expected a valid action frame")
		actions = append(actions, a)
	}
	return actions
}

// pushEvent delivers a server event to the client's read loop.
func (f *fakeConn) pushEvent(t *testing.T, event string, data any) {
	t.Helper()
	ev, err := protocol.NewEvent(event, data)
	assert.NoError(t, err)
	raw, err := json.Marshal(ev)
	assert.NoError(t, err)
	f.in <- raw
}

// fakeDialer fails the first failures dials, then hands out fresh conns.
type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	conns    []*fakeConn
}

func (d *fakeDialer) dial(string) (Transport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if d.dials <= d.failures {
		return nil, errors.New("dial refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func newTestClient(t *testing.T, d *fakeDialer) *Client {
	t.Helper()
	c := NewClient(Config{
		URL:                  "ws://huddle.test/ws",
		MaxReconnectAttempts: 3,
		ReconnectDelay:       10 * time.Millisecond,
		Dial:                 d.dial,
	}, testutil.TestLogger(t))
	t.Cleanup(c.Disconnect)
	return c
}

func waitForState(t *testing.T, c *Client, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: client never reached state %d, current %d", want, c.State())
}

func TestConnect_idempotent(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	c.Connect()
	c.Connect()
	waitForState(t, c, StateConnected)
	c.Connect()

	assert.Equal(t, 1, d.dialCount(), "expected a single underlying session")
}

func TestSend_whileConnected(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)
	c.Connect()
	waitForState(t, c, StateConnected)

	assert.NoError(t, c.Send(protocol.ActionSendMessage, protocol.SendMessage{RoomId: "r1", Content: "hi"}))

	actions := d.lastConn().sentActions(t)
	assert.Len(t, actions, 1)
	assert.Equal(t, protocol.ActionSendMessage, actions[0].Event)
}

func TestSend_queuesWhileDisconnectedAndFlushesFIFO(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	assert.NoError(t, c.SendMessage("r1", "first"))
	assert.NoError(t, c.SendMessage("r1", "second"))

	c.mu.Lock()
	assert.Len(t, c.queue, 2, "expected both actions in the outbound queue")
	c.mu.Unlock()

	c.Connect()
	waitForState(t, c, StateConnected)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(d.lastConn().sentActions(t)) == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	actions := d.lastConn().sentActions(t)
	assert.Len(t, actions, 2, "expected exactly two transmissions")
	for _, a := range actions {
		assert.Equal(t, protocol.ActionSendMessage, a.Event)
	}
	var first, second protocol.SendMessage
	assert.NoError(t, json.Unmarshal(actions[0].Data, &first))
	assert.NoError(t, json.Unmarshal(actions[1].Data, &second))
	assert.Equal(t, "first", first.Content, "expected FIFO flush order")
	assert.Equal(t, "second", second.Content)

	c.mu.Lock()
	assert.Empty(t, c.queue, "expected the queue to be cleared after the flush")
	c.mu.Unlock()
}

func TestTransportDrop_preservesQueueAndReconnects(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)
	c.Connect()
	waitForState(t, c, StateConnected)
	first := d.lastConn()

	// simulate a network-level drop
	first.Close()
	waitForState(t, c, StateConnected)
	assert.Equal(t, 2, d.dialCount(), "expected an automatic reconnect")
	assert.NotSame(t, first, d.lastConn(), "expected a fresh transport after the drop")
}

func TestTransportDrop_flushesActionsQueuedDuringOutage(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)
	c.Connect()
	waitForState(t, c, StateConnected)

	// block the next dial so the outage lasts long enough to queue into
	d.mu.Lock()
	d.failures = d.dials + 1
	d.mu.Unlock()

	d.lastConn().Close()
	waitForState(t, c, StateConnecting)

	assert.NoError(t, c.SendMessage("r1", "queued during outage"))
	waitForState(t, c, StateConnected)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(d.lastConn().sentActions(t)) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	actions := d.lastConn().sentActions(t)
	assert.Len(t, actions, 1, "expected the queued action to be replayed after reconnect")
	assert.Equal(t, protocol.ActionSendMessage, actions[0].Event)
}

func TestDisconnect_explicitDiscardsQueue(t *testing.T) {
	d := &fakeDialer{}
	c := NewClient(Config{
		URL:                  "ws://huddle.test/ws",
		MaxReconnectAttempts: 3,
		ReconnectDelay:       time.Second,
		Dial:                 d.dial,
	}, testutil.TestLogger(t))
	t.Cleanup(c.Disconnect)
	c.Connect()
	waitForState(t, c, StateConnected)

	// drop the transport with redialing blocked so the action below lands
	// in the queue
	d.mu.Lock()
	d.failures = d.dials + 100
	d.mu.Unlock()
	d.lastConn().Close()
	waitForState(t, c, StateConnecting)

	assert.NoError(t, c.SendMessage("r1", "stale"))
	c.Disconnect()

	c.mu.Lock()
	assert.Empty(t, c.queue, "expected explicit disconnect to discard the queue")
	c.mu.Unlock()

	d.mu.Lock()
	d.failures = 0
	d.mu.Unlock()
	c.Connect()
	waitForState(t, c, StateConnected)
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, d.lastConn().sentActions(t), "expected nothing to be replayed after an explicit disconnect")
}

func TestDisconnect_keepsHandlers(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	got := make(chan json.RawMessage, 1)
	c.On(protocol.EventMessageNew, func(data json.RawMessage) { got <- data })

	c.Connect()
	waitForState(t, c, StateConnected)
	c.Disconnect()
	c.Connect()
	waitForState(t, c, StateConnected)

	d.lastConn().pushEvent(t, protocol.EventMessageNew, map[string]string{"content": "hi"})

	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("timeout: handler registered before disconnect was not invoked after reconnect")
	}
}

func TestConnectLoop_reportsErrorsThenFails(t *testing.T) {
	d := &fakeDialer{failures: 100}
	c := newTestClient(t, d)

	var mu sync.Mutex
	var attempts []int
	failed := make(chan struct{})
	c.On(protocol.EventConnectionError, func(data json.RawMessage) {
		var ce protocol.ConnectionError
		assert.NoError(t, json.Unmarshal(data, &ce))
		mu.Lock()
		attempts = append(attempts, ce.Attempt)
		mu.Unlock()
	})
	c.On(protocol.EventConnectionFailed, func(json.RawMessage) { close(failed) })

	c.Connect()

	select {
	case <-failed:
	case <-time.After(time.Second):
		t.Fatal("timeout: never received connection:failed")
	}

	waitForState(t, c, StateDisconnected)
	mu.Lock()
	assert.Equal(t, []int{1, 2, 3}, attempts, "expected one connection:error per attempt")
	mu.Unlock()

	// a fresh Connect restarts the cycle
	d.mu.Lock()
	d.failures = 0
	d.mu.Unlock()
	c.Connect()
	waitForState(t, c, StateConnected)
}

func TestOnOff(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	var mu sync.Mutex
	var order []string
	c.On("test:event", func(json.RawMessage) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})
	c.On("test:event", func(json.RawMessage) {
		mu.Lock()
		order = append(order, "panics")
		mu.Unlock()
		panic("boom")
	})
	third := c.On("test:event", func(json.RawMessage) {
		mu.Lock()
		order = append(order, "third")
		mu.Unlock()
	})

	c.emitRaw("test:event", nil)
	mu.Lock()
	assert.Equal(t, []string{"first", "panics", "third"}, order,
		"expected registration order and isolation of the panicking handler")
	order = nil
	mu.Unlock()

	c.Off("test:event", third)
	c.Off("test:event", 999) // unknown id is ignored
	c.emitRaw("test:event", nil)
	mu.Lock()
	assert.Equal(t, []string{"first", "panics"}, order)
	mu.Unlock()
}

func TestInboundDispatch(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	got := make(chan protocol.TypingUpdate, 1)
	c.On(protocol.EventTypingUpdate, func(data json.RawMessage) {
		var tu protocol.TypingUpdate
		assert.NoError(t, json.Unmarshal(data, &tu))
		got <- tu
	})

	c.Connect()
	waitForState(t, c, StateConnected)
	d.lastConn().pushEvent(t, protocol.EventTypingUpdate, protocol.TypingUpdate{RoomId: "r1"})

	select {
	case tu := <-got:
		assert.Equal(t, "r1", tu.RoomId)
	case <-time.After(time.Second):
		t.Fatal("timeout: typing:update was not dispatched")
	}
}

func TestActionWrappers(t *testing.T) {
	d := &fakeDialer{}
	c := newTestClient(t, d)

	// issued while disconnected, so each lands in the queue
	assert.NoError(t, c.JoinRoom("AB12CD", "nick", ""))
	assert.NoError(t, c.StartTyping("r1"))
	assert.NoError(t, c.StopTyping("r1"))
	assert.NoError(t, c.SendDM("u2", "hey"))
	assert.NoError(t, c.VotePoll("r1", 7, 1))
	assert.NoError(t, c.GetParticipants("r1"))

	c.mu.Lock()
	defer c.mu.Unlock()
	events := make([]string, len(c.queue))
	for i, a := range c.queue {
		events[i] = a.Event
	}
	assert.Equal(t, []string{
		protocol.ActionJoinRoom,
		protocol.ActionTypingStart,
		protocol.ActionTypingStop,
		protocol.ActionSendDM,
		protocol.ActionVotePoll,
		protocol.ActionGetParticipants,
	}, events)
}

func TestClient_websocketTransport(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan protocol.Action, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		assert.NoError(t, err)
		defer conn.Close()

		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var a protocol.Action
		assert.NoError(t, json.Unmarshal(raw, &a))
		received <- a

		ev, _ := protocol.NewEvent(protocol.EventRoomJoined, nil)
		out, _ := json.Marshal(ev)
		conn.WriteMessage(websocket.TextMessage, out)

		// hold the connection open until the client goes away
		conn.ReadMessage()
	}))
	defer srv.Close()

	c := NewClient(Config{
		URL: "ws" + strings.TrimPrefix(srv.URL, "http"),
	}, testutil.TestLogger(t))
	defer c.Disconnect()

	joined := make(chan struct{})
	c.On(protocol.EventRoomJoined, func(json.RawMessage) { close(joined) })

	c.Connect()
	waitForState(t, c, StateConnected)
	assert.NoError(t, c.JoinRoom("AB12CD", "nick", ""))

	select {
	case a := <-received:
		assert.Equal(t, protocol.ActionJoinRoom, a.Event)
	case <-time.After(time.Second):
		t.Fatal("timeout: server never received the join action")
	}

	select {
	case <-joined:
	case <-time.After(time.Second):
		t.Fatal("timeout: room:joined was not dispatched")
	}
}

package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/acorrad/go-huddle/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Session is one websocket connection for one authenticated user. A user
// may hold several sessions at once; room membership is per user, not per
// session.
type Session struct {
	id   string
	hub  *Hub
	log  *log.Logger
	conn *websocket.Conn

	userId   string
	nickname string
	username string

	send     chan protocol.Event
	rooms    map[string]struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSession(id, userId, nickname string, conn *websocket.Conn, h *Hub, l *log.Logger) *Session {
	return &Session{
		id:       id,
		hub:      h,
		log:      l,
		conn:     conn,
		userId:   userId,
		nickname: nickname,
		username: nickname,
		send:     make(chan protocol.Event, 256),
		rooms:    make(map[string]struct{}),
		stop:     make(chan struct{}),
	}
}

func (s *Session) inRoom(roomId string) bool {
	_, ok := s.rooms[roomId]
	return ok
}

// queueEvent hands the event to the write pump without blocking the hub.
// A slow consumer loses events rather than stalling the room.
func (s *Session) queueEvent(ev protocol.Event) bool {
	select {
	case s.send <- ev:
	default:
		s.log.Printf("send buffer full for session %q, dropping %q", s.id, ev.Event)
		return false
	}
	return true
}

func (s *Session) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.log.Println("write exiting")
	}()

	for {
		select {
		case ev, ok := <-s.send:
			if !ok {
				return
			}

			raw, err := json.Marshal(ev)
			if err != nil {
				s.log.Printf("serialize %q: %v", ev.Event, err)
				continue
			}
			if !s.writeMessage(websocket.TextMessage, raw) {
				return
			}
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.writeMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (s *Session) Read() {
	defer func() {
		s.conn.Close()
		s.hub.DeregisterChan <- s
		s.stopSession()
		s.log.Println("read exiting")
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error { s.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.log.Printf("ws: read: %v", err)
			}
			break
		}

		var action protocol.Action
		if err := json.Unmarshal(raw, &action); err != nil {
			s.log.Printf("parse action: %v", err)
			s.queueError(codeInvalidPayload, "malformed action")
			continue
		}

		select {
		case s.hub.inboundChan <- inbound{sess: s, action: action}:
		default:
			s.log.Printf("inbound channel full, rejecting %q", action.Event)
			s.queueError(codeUnavailable, "server busy")
		}
	}
}

func (s *Session) queueError(code, message string) {
	ev, err := protocol.NewEvent(protocol.EventError, protocol.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return
	}
	s.queueEvent(ev)
}

func (s *Session) writeMessage(msgType int, data []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := s.conn.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			s.log.Printf("write message: %s", err)
		}
		return false
	}
	return true
}

func (s *Session) stopSession() {
	s.stopOnce.Do(func() { close(s.stop) })
}

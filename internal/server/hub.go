// Package server binds the room coordinator to the websocket transport.
// The Hub owns the session table and runs a single dispatch loop; sessions
// pump bytes and hand every parsed action to the hub.
package server

import (
	"log"
	"sync"

	"github.com/acorrad/go-huddle/internal/database"
	"github.com/acorrad/go-huddle/internal/protocol"
	"github.com/acorrad/go-huddle/internal/rooms"
	"github.com/acorrad/go-huddle/internal/stats"
	"github.com/acorrad/go-huddle/internal/types"
)

const MetricActiveSessions = "ActiveSessions"

type inbound struct {
	sess   *Session
	action protocol.Action
}

type Hub struct {
	log   *log.Logger
	rooms *rooms.Coordinator
	repo  database.HuddleRepository
	stats stats.StatsProvider

	sessions     map[*Session]struct{}
	sessionsLock sync.Mutex

	// byUser and roomSessions are owned by the Run goroutine.
	byUser       map[string]map[*Session]struct{}
	roomSessions map[string]map[*Session]struct{}

	polls      map[int]*types.Poll
	nextPollId int

	RegisterChan   chan *Session
	DeregisterChan chan *Session
	inboundChan    chan inbound
	typingChan     chan string
	stop           chan struct{}
	done           chan struct{}
}

func NewHub(logger *log.Logger, coordinator *rooms.Coordinator, repo database.HuddleRepository, sp stats.StatsProvider) *Hub {
	h := &Hub{
		log:            logger,
		rooms:          coordinator,
		repo:           repo,
		stats:          sp,
		sessions:       make(map[*Session]struct{}),
		byUser:         make(map[string]map[*Session]struct{}),
		roomSessions:   make(map[string]map[*Session]struct{}),
		polls:          make(map[int]*types.Poll),
		RegisterChan:   make(chan *Session),
		DeregisterChan: make(chan *Session),
		inboundChan:    make(chan inbound, 256),
		typingChan:     make(chan string, 64),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	sp.RegisterMetric(MetricActiveSessions)

	// Timer expiry fires on a timer goroutine; route it through the run
	// loop so room state is only ever touched from one place.
	coordinator.SetTypingExpiredFunc(func(roomId string) {
		select {
		case h.typingChan <- roomId:
		case <-h.stop:
		}
	})

	return h
}

func (h *Hub) Run() {
	for {
		select {
		case sess := <-h.RegisterChan:
			h.log.Printf("adding session %q for user %q", sess.id, sess.userId)
			h.addSession(sess)
		case sess := <-h.DeregisterChan:
			h.log.Printf("removing session %q for user %q", sess.id, sess.userId)
			h.removeSession(sess)
		case in := <-h.inboundChan:
			h.dispatch(in.sess, in.action)
		case roomId := <-h.typingChan:
			h.broadcastTyping(roomId)
		case <-h.stop:
			h.log.Println("hub stopping")
			close(h.done)
			return
		}
	}
}

func (h *Hub) addSession(s *Session) {
	h.sessionsLock.Lock()
	h.sessions[s] = struct{}{}
	h.sessionsLock.Unlock()

	set, ok := h.byUser[s.userId]
	if !ok {
		set = make(map[*Session]struct{})
		h.byUser[s.userId] = set
	}
	set[s] = struct{}{}
	h.stats.Incr(MetricActiveSessions)
}

func (h *Hub) removeSession(s *Session) {
	h.sessionsLock.Lock()
	_, known := h.sessions[s]
	delete(h.sessions, s)
	h.sessionsLock.Unlock()
	if !known {
		return
	}

	delete(h.byUser[s.userId], s)
	last := len(h.byUser[s.userId]) == 0
	if last {
		delete(h.byUser, s.userId)
	}
	h.stats.Decr(MetricActiveSessions)

	for roomId := range s.rooms {
		if last {
			h.broadcastRoom(roomId, protocol.EventUserOffline, protocol.PresenceChange{
				UserId:   s.userId,
				Nickname: s.nickname,
			}, s)
		}
		h.leaveRoom(s, roomId)
	}
}

// leaveRoom detaches the session from the room and, when it was the
// user's last session there, removes the participant and notifies the
// remaining members. An empty room is unloaded.
func (h *Hub) leaveRoom(s *Session, roomId string) {
	delete(s.rooms, roomId)
	if set, ok := h.roomSessions[roomId]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.roomSessions, roomId)
		}
	}

	for other := range h.byUser[s.userId] {
		if _, in := other.rooms[roomId]; in {
			// another session keeps the seat
			return
		}
	}

	h.rooms.RemoveParticipant(roomId, s.userId)
	h.broadcastRoom(roomId, protocol.EventRoomUserLeft, protocol.UserLeft{
		RoomId: roomId,
		UserId: s.userId,
	}, nil)
	h.broadcastParticipants(roomId)

	if h.rooms.GetParticipantCount(roomId) == 0 {
		h.unloadRoom(roomId)
	}
}

func (h *Hub) unloadRoom(roomId string) {
	h.rooms.RemoveRoom(roomId)
	delete(h.roomSessions, roomId)
	for id, poll := range h.polls {
		if poll.RoomId == roomId {
			delete(h.polls, id)
		}
	}
}

func (h *Hub) sendTo(s *Session, event string, payload any) {
	ev, err := protocol.NewEvent(event, payload)
	if err != nil {
		h.log.Printf("marshal %q: %v", event, err)
		return
	}
	s.queueEvent(ev)
}

// sendToUser delivers the event to every live session of the user and
// reports whether at least one session received it.
func (h *Hub) sendToUser(userId, event string, payload any) bool {
	set := h.byUser[userId]
	if len(set) == 0 {
		return false
	}

	ev, err := protocol.NewEvent(event, payload)
	if err != nil {
		h.log.Printf("marshal %q: %v", event, err)
		return false
	}
	for sess := range set {
		sess.queueEvent(ev)
	}
	return true
}

func (h *Hub) broadcastRoom(roomId, event string, payload any, except *Session) {
	set := h.roomSessions[roomId]
	if len(set) == 0 {
		return
	}

	ev, err := protocol.NewEvent(event, payload)
	if err != nil {
		h.log.Printf("marshal %q: %v", event, err)
		return
	}
	for sess := range set {
		if sess == except {
			continue
		}
		sess.queueEvent(ev)
	}
}

func (h *Hub) broadcastParticipants(roomId string) {
	participants := h.rooms.GetParticipants(roomId)
	if participants == nil {
		participants = []types.Participant{}
	}
	h.broadcastRoom(roomId, protocol.EventRoomParticipants, protocol.Participants{
		RoomId:       roomId,
		Participants: participants,
	}, nil)
}

func (h *Hub) broadcastTyping(roomId string) {
	typing := h.rooms.GetTypingUsers(roomId)
	if typing == nil {
		typing = []types.TypingUser{}
	}
	h.broadcastRoom(roomId, protocol.EventTypingUpdate, protocol.TypingUpdate{
		RoomId:      roomId,
		TypingUsers: typing,
	}, nil)
}

func (h *Hub) Shutdown() {
	h.log.Println("received shutdown signal")

	h.sessionsLock.Lock()
	for sess := range h.sessions {
		sess.stopSession()
	}
	h.sessionsLock.Unlock()

	close(h.stop)
	<-h.done
}

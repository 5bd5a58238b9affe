package rooms

import (
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/acorrad/go-huddle/internal/stats"
	"github.com/acorrad/go-huddle/internal/types"
	"github.com/teris-io/shortid"
)

const typingTimeout = 3 * time.Second

const (
	MetricActiveRooms  = "ActiveRooms"
	MetricParticipants = "Participants"
	MetricTypingTimers = "TypingTimers"
)

// ErrNotAuthorized is returned when a non-moderator attempts a
// moderator-only operation. It is the coordinator's only error path;
// absent rooms and participants are expected races and never error.
var ErrNotAuthorized = errors.New("not authorized")

// RoomStore is the persistence collaborator for room state. Failures are
// logged and swallowed: the in-memory table stays authoritative.
type RoomStore interface {
	SaveRoomState(room types.RoomInfo) error
	DeleteRoomState(roomId string) error
}

type typingEntry struct {
	nickname string
	timer    *time.Timer
}

// Coordinator is the single source of truth for which rooms exist, who is
// in them, and their moderation, lock and typing state. One instance is
// constructed per process and injected wherever room state is needed.
type Coordinator struct {
	log   *log.Logger
	store RoomStore
	stats stats.StatsProvider

	mu     sync.Mutex
	rooms  map[string]*Room
	codes  map[string]string // join code -> room id
	typing map[string]map[string]*typingEntry

	// typingExpired, when set, is invoked outside the lock after a typing
	// timer fires so the transport layer can broadcast the change.
	typingExpired func(roomId string)
	typingTTL     time.Duration

	sid *shortid.Shortid
	rng *rand.Rand
}

func NewCoordinator(logger *log.Logger, store RoomStore, sp stats.StatsProvider) (*Coordinator, error) {
	sid, err := shortid.New(1, shortid.DefaultABC, uint64(time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}

	for _, m := range []string{MetricActiveRooms, MetricParticipants, MetricTypingTimers} {
		sp.RegisterMetric(m)
	}

	return &Coordinator{
		log:       logger,
		store:     store,
		stats:     sp,
		rooms:     make(map[string]*Room),
		codes:     make(map[string]string),
		typing:    make(map[string]map[string]*typingEntry),
		typingTTL: typingTimeout,
		sid:       sid,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// SetTypingExpiredFunc registers the hook invoked when a typing timer
// fires. Must be called before any SetTyping call.
func (c *Coordinator) SetTypingExpiredFunc(fn func(roomId string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typingExpired = fn
}

func (c *Coordinator) CreateRoom(maxUsers int, createdBy string) types.RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	room := &Room{
		id:           c.sid.MustGenerate(),
		code:         c.generateCode(),
		maxUsers:     maxUsers,
		participants: make(map[string]*types.Participant),
		moderators:   make(map[string]struct{}),
		createdAt:    time.Now().UTC(),
		createdBy:    createdBy,
	}

	c.rooms[room.id] = room
	c.codes[room.code] = room.id
	c.stats.Incr(MetricActiveRooms)

	c.persist(room)
	c.log.Printf("created room %q with code %q (max %d)", room.id, room.code, maxUsers)
	return room.snapshot()
}

func (c *Coordinator) GetRoom(roomId string) (types.RoomInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return types.RoomInfo{}, false
	}
	return room.snapshot(), true
}

func (c *Coordinator) GetRoomByCode(code string) (types.RoomInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, ok := c.codes[code]
	if !ok {
		return types.RoomInfo{}, false
	}
	room, ok := c.rooms[id]
	if !ok {
		return types.RoomInfo{}, false
	}
	return room.snapshot(), true
}

func (c *Coordinator) GetAllRooms() []types.RoomInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := make([]types.RoomInfo, 0, len(c.rooms))
	for _, room := range c.rooms {
		list = append(list, room.snapshot())
	}
	return list
}

// AddParticipant adds p to the room. It returns false if the room is
// absent, locked, or full, unless a participant with the same id is
// already present: a rejoin is always an upsert and is never
// capacity-checked, so a reconnecting user cannot be locked out of their
// own seat.
func (c *Coordinator) AddParticipant(roomId string, p types.Participant) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return false
	}

	if existing, ok := room.participants[p.Id]; ok {
		existing.SocketId = p.SocketId
		existing.Nickname = p.Nickname
		if p.Username != "" {
			existing.Username = p.Username
		}
		if p.Avatar != "" {
			existing.Avatar = p.Avatar
		}
		c.persist(room)
		return true
	}

	if room.isLocked || room.isFull() {
		return false
	}

	cp := p
	if cp.JoinedAt.IsZero() {
		cp.JoinedAt = time.Now().UTC()
	}
	room.participants[cp.Id] = &cp
	c.stats.Incr(MetricParticipants)

	c.persist(room)
	return true
}

func (c *Coordinator) RemoveParticipant(roomId, participantId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return
	}
	if _, ok := room.participants[participantId]; !ok {
		return
	}

	delete(room.participants, participantId)
	c.stats.Decr(MetricParticipants)
	c.clearTypingLocked(roomId, participantId)
	c.persist(room)
}

func (c *Coordinator) SetParticipantAway(roomId, participantId string, isAway bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return
	}
	p, ok := room.participants[participantId]
	if !ok {
		return
	}
	p.IsAway = isAway
}

func (c *Coordinator) LockRoom(roomId string) {
	c.setLocked(roomId, true)
}

func (c *Coordinator) UnlockRoom(roomId string) {
	c.setLocked(roomId, false)
}

func (c *Coordinator) setLocked(roomId string, locked bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return
	}
	room.isLocked = locked
	c.persist(room)
}

func (c *Coordinator) IsRoomFull(roomId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	return ok && room.isFull()
}

func (c *Coordinator) GetParticipantCount(roomId string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return 0
	}
	return len(room.participants)
}

func (c *Coordinator) GetParticipants(roomId string) []types.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return nil
	}
	return room.participantList()
}

func (c *Coordinator) IsModerator(roomId, userId string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return false
	}
	_, ok = room.moderators[userId]
	return ok
}

func (c *Coordinator) AddModerator(roomId, userId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return
	}
	room.moderators[userId] = struct{}{}
	c.persist(room)
}

// RegenerateRoomCode replaces the room's join code with a fresh one and
// invalidates the old code immediately. Only moderators may call it; a
// non-moderator gets ErrNotAuthorized. An absent room returns ("", nil)
// like every other lookup racing a removal.
func (c *Coordinator) RegenerateRoomCode(roomId, userId string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return "", nil
	}
	if _, ok := room.moderators[userId]; !ok {
		return "", ErrNotAuthorized
	}

	delete(c.codes, room.code)
	room.code = c.generateCode()
	c.codes[room.code] = room.id

	c.persist(room)
	c.log.Printf("regenerated code for room %q", room.id)
	return room.code, nil
}

// RemoveRoom unloads a room and its typing timers. Invoked by the room
// expiry collaborator and when the last participant leaves a
// non-persistent room. Idempotent.
func (c *Coordinator) RemoveRoom(roomId string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return
	}

	for userId := range c.typing[roomId] {
		c.clearTypingLocked(roomId, userId)
	}

	if id, ok := c.codes[room.code]; ok && id == roomId {
		delete(c.codes, room.code)
	}
	delete(c.rooms, roomId)
	c.stats.Decr(MetricActiveRooms)

	if err := c.store.DeleteRoomState(roomId); err != nil {
		c.log.Printf("delete room state %q: %v", roomId, err)
	}
	c.log.Printf("removed room %q", roomId)
}

// SetTyping (re)starts the typing countdown for the user. A pending timer
// for the same (room, user) key is cancelled first: repeated keystrokes
// debounce into a single live timer.
func (c *Coordinator) SetTyping(roomId, userId, nickname string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[roomId]; !ok {
		return
	}

	byUser, ok := c.typing[roomId]
	if !ok {
		byUser = make(map[string]*typingEntry)
		c.typing[roomId] = byUser
	}

	if existing, ok := byUser[userId]; ok {
		existing.timer.Stop()
		c.stats.Decr(MetricTypingTimers)
	}

	entry := &typingEntry{nickname: nickname}
	entry.timer = time.AfterFunc(c.typingTTL, func() {
		c.expireTyping(roomId, userId, entry)
	})
	byUser[userId] = entry
	c.stats.Incr(MetricTypingTimers)
}

func (c *Coordinator) expireTyping(roomId, userId string, entry *typingEntry) {
	c.mu.Lock()
	byUser := c.typing[roomId]
	// a replacement timer may have been armed since this one fired
	if byUser == nil || byUser[userId] != entry {
		c.mu.Unlock()
		return
	}
	c.clearTypingLocked(roomId, userId)
	fn := c.typingExpired
	c.mu.Unlock()

	if fn != nil {
		fn(roomId)
	}
}

// ClearTyping cancels the pending countdown, if any. The per-room typing
// table is garbage collected once empty.
func (c *Coordinator) ClearTyping(roomId, userId string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearTypingLocked(roomId, userId)
}

func (c *Coordinator) clearTypingLocked(roomId, userId string) {
	byUser, ok := c.typing[roomId]
	if !ok {
		return
	}
	entry, ok := byUser[userId]
	if !ok {
		return
	}

	entry.timer.Stop()
	delete(byUser, userId)
	c.stats.Decr(MetricTypingTimers)
	if len(byUser) == 0 {
		delete(c.typing, roomId)
	}
}

// GetTypingUsers returns the users currently typing in the room. Entries
// for users no longer in the participant table are skipped.
func (c *Coordinator) GetTypingUsers(roomId string) []types.TypingUser {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, ok := c.rooms[roomId]
	if !ok {
		return nil
	}

	var typing []types.TypingUser
	for userId, entry := range c.typing[roomId] {
		if _, ok := room.participants[userId]; !ok {
			continue
		}
		typing = append(typing, types.TypingUser{UserId: userId, Nickname: entry.nickname})
	}
	return typing
}

// Cleanup cancels every outstanding typing timer. Must be called on
// shutdown so no timer goroutines outlive the coordinator.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for roomId, byUser := range c.typing {
		for userId := range byUser {
			c.clearTypingLocked(roomId, userId)
		}
	}
}

func (c *Coordinator) persist(room *Room) {
	if err := c.store.SaveRoomState(room.snapshot()); err != nil {
		c.log.Printf("save room state %q: %v", room.id, err)
	}
}

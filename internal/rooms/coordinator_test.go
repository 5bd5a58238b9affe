package rooms

import (
	"math/rand"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/acorrad/go-huddle/internal/database"
	"github.com/acorrad/go-huddle/internal/stats"
	"github.com/acorrad/go-huddle/internal/testutil"
	"github.com/acorrad/go-huddle/internal/types"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *database.MockHuddleRepository) {
	t.Helper()

	db := &database.MockHuddleRepository{}
	db.On("SaveRoomState", mock.Anything).Return(nil).Maybe()
	db.On("DeleteRoomState", mock.Anything).Return(nil).Maybe()

	c, err := NewCoordinator(testutil.TestLogger(t), db, &stats.MockStatsUpdater{})
	assert.NoError(t, err, "expected coordinator construction to succeed")
	t.Cleanup(c.Cleanup)

	return c, db
}

func TestCreateRoom(t *testing.T) {
	c, _ := newTestCoordinator(t)

	room := c.CreateRoom(4, "creator")
	assert.NotEmpty(t, room.Id, "expected a room id to be assigned")
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), room.Code, "expected a 6-char uppercase alphanumeric code")
	assert.Equal(t, 4, room.MaxUsers)
	assert.False(t, room.IsLocked, "expected new room to be unlocked")
	assert.Empty(t, room.Participants)
	assert.Empty(t, room.Moderators)
	assert.False(t, room.CreatedAt.IsZero(), "expected createdAt to be set")

	got, ok := c.GetRoom(room.Id)
	assert.True(t, ok, "expected room to be retrievable by id")
	assert.Equal(t, room.Code, got.Code)

	byCode, ok := c.GetRoomByCode(room.Code)
	assert.True(t, ok, "expected room to be retrievable by code")
	assert.Equal(t, room.Id, byCode.Id)
}

func TestCreateRoom_uniqueCodes(t *testing.T) {
	c, _ := newTestCoordinator(t)

	seen := make(map[string]struct{})
	for range 50 {
		c.CreateRoom(2, "creator")
	}
	for _, room := range c.GetAllRooms() {
		_, dup := seen[room.Code]
		assert.Falsef(t, dup, "duplicate code %q among active rooms", room.Code)
		seen[room.Code] = struct{}{}
	}
}

func Test_generateCode_acceptsCollisionAfterRetryBudget(t *testing.T) {
	c, _ := newTestCoordinator(t)

	// Pre-occupy the exact candidates a cloned rng will draw, so every
	// attempt collides and the final candidate is accepted as-is.
	const seed = 42
	shadow := rand.New(rand.NewSource(seed))
	var last string
	for range maxCodeAttempts {
		last = randomCode(shadow)
		c.codes[last] = "occupied"
	}

	c.rng = rand.New(rand.NewSource(seed))
	code := c.generateCode()
	assert.Equal(t, last, code, "expected the final colliding candidate to be accepted")
}

func TestGetRoom_notFound(t *testing.T) {
	c, _ := newTestCoordinator(t)

	_, ok := c.GetRoom("missing")
	assert.False(t, ok, "expected lookup of unknown id to report not found")

	_, ok = c.GetRoomByCode("ZZZZZZ")
	assert.False(t, ok, "expected lookup of unknown code to report not found")

	assert.Empty(t, c.GetAllRooms())
}

func TestAddParticipant(t *testing.T) {
	t.Run("capacity enforced, reconnect upsert bypasses it", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(2, "creator")

		assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "a", Nickname: "A", SocketId: "s1"}))
		assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "b", Nickname: "B", SocketId: "s2"}))
		assert.False(t, c.AddParticipant(room.Id, types.Participant{Id: "c", Nickname: "C", SocketId: "s3"}),
			"expected add beyond capacity to fail")

		assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "a", Nickname: "A", SocketId: "s4"}),
			"expected re-add of existing participant to succeed at capacity")
		assert.Equal(t, 2, c.GetParticipantCount(room.Id), "expected upsert not to create a second entry")
	})

	t.Run("upsert refreshes socket id, keeps joinedAt", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(2, "creator")

		c.AddParticipant(room.Id, types.Participant{Id: "a", Nickname: "A", SocketId: "s1"})
		joined := c.GetParticipants(room.Id)[0].JoinedAt

		c.AddParticipant(room.Id, types.Participant{Id: "a", Nickname: "A2", SocketId: "s2"})
		ps := c.GetParticipants(room.Id)
		assert.Len(t, ps, 1)
		assert.Equal(t, "s2", ps[0].SocketId, "expected socket id to be refreshed on reconnect")
		assert.Equal(t, "A2", ps[0].Nickname)
		assert.Equal(t, joined, ps[0].JoinedAt, "expected joinedAt to be set once")
	})

	t.Run("room absent", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		assert.False(t, c.AddParticipant("missing", types.Participant{Id: "a"}))
	})

	t.Run("locked room rejects new joins but not rejoins", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(5, "creator")

		c.AddParticipant(room.Id, types.Participant{Id: "a", SocketId: "s1"})
		c.LockRoom(room.Id)

		assert.False(t, c.AddParticipant(room.Id, types.Participant{Id: "b"}),
			"expected locked room to reject a new participant")
		assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "a", SocketId: "s2"}),
			"expected locked room to accept a reconnect upsert")

		c.UnlockRoom(room.Id)
		assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "b"}))
	})
}

func TestRemoveParticipant(t *testing.T) {
	c, _ := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")
	c.AddParticipant(room.Id, types.Participant{Id: "a"})

	c.RemoveParticipant(room.Id, "a")
	assert.Equal(t, 0, c.GetParticipantCount(room.Id))

	// idempotent over absent state
	c.RemoveParticipant(room.Id, "a")
	c.RemoveParticipant("missing", "a")
}

func TestSetParticipantAway(t *testing.T) {
	c, _ := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")
	c.AddParticipant(room.Id, types.Participant{Id: "a"})

	c.SetParticipantAway(room.Id, "a", true)
	assert.True(t, c.GetParticipants(room.Id)[0].IsAway)

	c.SetParticipantAway(room.Id, "a", false)
	assert.False(t, c.GetParticipants(room.Id)[0].IsAway)

	// no-ops
	c.SetParticipantAway(room.Id, "missing", true)
	c.SetParticipantAway("missing", "a", true)
}

func TestLockUnlock(t *testing.T) {
	c, _ := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")

	c.LockRoom(room.Id)
	c.LockRoom(room.Id)
	got, _ := c.GetRoom(room.Id)
	assert.True(t, got.IsLocked)

	c.UnlockRoom(room.Id)
	got, _ = c.GetRoom(room.Id)
	assert.False(t, got.IsLocked)

	c.LockRoom("missing")
}

func TestIsRoomFull(t *testing.T) {
	c, _ := newTestCoordinator(t)
	room := c.CreateRoom(1, "creator")

	assert.False(t, c.IsRoomFull(room.Id))
	c.AddParticipant(room.Id, types.Participant{Id: "a"})
	assert.True(t, c.IsRoomFull(room.Id))
	assert.False(t, c.IsRoomFull("missing"))
}

func TestModerators(t *testing.T) {
	c, _ := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")
	c.AddParticipant(room.Id, types.Participant{Id: "a"})

	assert.False(t, c.IsModerator(room.Id, "a"))
	c.AddModerator(room.Id, "a")
	c.AddModerator(room.Id, "a")
	assert.True(t, c.IsModerator(room.Id, "a"))

	ps := c.GetParticipants(room.Id)
	assert.True(t, ps[0].IsModerator, "expected participant view to reflect moderator set")
	assert.False(t, c.IsModerator("missing", "a"))
}

func TestRegenerateRoomCode(t *testing.T) {
	t.Run("non-moderator is rejected and code is unchanged", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(2, "creator")

		newCode, err := c.RegenerateRoomCode(room.Id, "intruder")
		assert.ErrorIs(t, err, ErrNotAuthorized)
		assert.Empty(t, newCode)

		got, _ := c.GetRoom(room.Id)
		assert.Equal(t, room.Code, got.Code, "expected code to be unchanged after rejection")
	})

	t.Run("moderator gets a fresh code, old code stops resolving", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(2, "creator")
		c.AddModerator(room.Id, "mod")

		newCode, err := c.RegenerateRoomCode(room.Id, "mod")
		assert.NoError(t, err)
		assert.NotEqual(t, room.Code, newCode, "expected a different code")
		assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), newCode)

		_, ok := c.GetRoomByCode(room.Code)
		assert.False(t, ok, "expected the old code to be unresolvable")

		byNew, ok := c.GetRoomByCode(newCode)
		assert.True(t, ok, "expected the new code to resolve")
		assert.Equal(t, room.Id, byNew.Id)
	})

	t.Run("absent room is a not-found, not an error", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		code, err := c.RegenerateRoomCode("missing", "mod")
		assert.NoError(t, err)
		assert.Empty(t, code)
	})
}

func TestRemoveRoom(t *testing.T) {
	c, db := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")
	c.AddParticipant(room.Id, types.Participant{Id: "a"})
	c.SetTyping(room.Id, "a", "A")

	c.RemoveRoom(room.Id)
	_, ok := c.GetRoom(room.Id)
	assert.False(t, ok)
	_, ok = c.GetRoomByCode(room.Code)
	assert.False(t, ok, "expected the code index entry to be removed")
	assert.Empty(t, c.typing, "expected typing timers for the room to be cancelled")

	c.RemoveRoom(room.Id)
	db.AssertCalled(t, "DeleteRoomState", room.Id)
}

func TestTyping(t *testing.T) {
	t.Run("debounce keeps a single timer per user", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		c.typingTTL = 50 * time.Millisecond
		room := c.CreateRoom(2, "creator")
		c.AddParticipant(room.Id, types.Participant{Id: "u1", Nickname: "one"})

		c.SetTyping(room.Id, "u1", "one")
		c.SetTyping(room.Id, "u1", "one")
		assert.Len(t, c.typing[room.Id], 1, "expected a single entry after repeated setTyping")
		assert.Len(t, c.GetTypingUsers(room.Id), 1)
	})

	t.Run("entry expires after the countdown", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		c.typingTTL = 30 * time.Millisecond
		room := c.CreateRoom(2, "creator")
		c.AddParticipant(room.Id, types.Participant{Id: "u1", Nickname: "one"})

		expired := make(chan string, 1)
		c.SetTypingExpiredFunc(func(roomId string) { expired <- roomId })

		c.SetTyping(room.Id, "u1", "one")

		select {
		case roomId := <-expired:
			assert.Equal(t, room.Id, roomId, "expected expiry hook to report the room")
		case <-time.After(time.Second):
			t.Fatal("timeout: typing timer did not fire")
		}

		assert.Empty(t, c.GetTypingUsers(room.Id), "expected typing entry to be cleared after expiry")
		c.mu.Lock()
		assert.Empty(t, c.typing, "expected per-room typing table to be garbage collected")
		c.mu.Unlock()
	})

	t.Run("restart before expiry defers the clear", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		c.typingTTL = 60 * time.Millisecond
		room := c.CreateRoom(2, "creator")
		c.AddParticipant(room.Id, types.Participant{Id: "u1", Nickname: "one"})

		var mu sync.Mutex
		fired := 0
		c.SetTypingExpiredFunc(func(string) {
			mu.Lock()
			fired++
			mu.Unlock()
		})

		c.SetTyping(room.Id, "u1", "one")
		time.Sleep(30 * time.Millisecond)
		c.SetTyping(room.Id, "u1", "one")
		time.Sleep(40 * time.Millisecond)
		assert.Len(t, c.GetTypingUsers(room.Id), 1, "expected restarted countdown to still be live")

		time.Sleep(60 * time.Millisecond)
		assert.Empty(t, c.GetTypingUsers(room.Id))
		mu.Lock()
		assert.Equal(t, 1, fired, "expected exactly one expiry for a restarted countdown")
		mu.Unlock()
	})

	t.Run("clearTyping cancels early and garbage collects", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(2, "creator")
		c.AddParticipant(room.Id, types.Participant{Id: "u1", Nickname: "one"})

		c.SetTyping(room.Id, "u1", "one")
		c.ClearTyping(room.Id, "u1")
		assert.Empty(t, c.GetTypingUsers(room.Id))
		c.mu.Lock()
		assert.Empty(t, c.typing, "expected empty room typing table to be removed")
		c.mu.Unlock()

		// idempotent
		c.ClearTyping(room.Id, "u1")
		c.ClearTyping("missing", "u1")
	})

	t.Run("departed participants are excluded from the snapshot", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		room := c.CreateRoom(3, "creator")
		c.AddParticipant(room.Id, types.Participant{Id: "u1", Nickname: "one"})
		c.AddParticipant(room.Id, types.Participant{Id: "u2", Nickname: "two"})

		c.SetTyping(room.Id, "u1", "one")
		c.SetTyping(room.Id, "u2", "two")

		// bypass RemoveParticipant so a stale typing entry survives
		c.mu.Lock()
		delete(c.rooms[room.Id].participants, "u2")
		c.mu.Unlock()

		typing := c.GetTypingUsers(room.Id)
		assert.Len(t, typing, 1)
		assert.Equal(t, "u1", typing[0].UserId, "expected only the live participant in the snapshot")
	})

	t.Run("setTyping on an absent room is a no-op", func(t *testing.T) {
		c, _ := newTestCoordinator(t)
		c.SetTyping("missing", "u1", "one")
		assert.Empty(t, c.typing)
	})
}

func TestCleanup(t *testing.T) {
	c, _ := newTestCoordinator(t)
	r1 := c.CreateRoom(2, "creator")
	r2 := c.CreateRoom(2, "creator")
	c.AddParticipant(r1.Id, types.Participant{Id: "a"})
	c.AddParticipant(r2.Id, types.Participant{Id: "b"})

	c.SetTyping(r1.Id, "a", "A")
	c.SetTyping(r2.Id, "b", "B")

	c.Cleanup()
	c.mu.Lock()
	assert.Empty(t, c.typing, "expected cleanup to cancel every outstanding timer")
	c.mu.Unlock()
}

func TestPersistence(t *testing.T) {
	c, db := newTestCoordinator(t)
	room := c.CreateRoom(2, "creator")
	c.AddParticipant(room.Id, types.Participant{Id: "a"})

	db.AssertCalled(t, "SaveRoomState", mock.Anything)

	// store failures are logged, never surfaced
	failing := &database.MockHuddleRepository{}
	failing.On("SaveRoomState", mock.Anything).Return(assert.AnError)
	c.store = failing
	assert.True(t, c.AddParticipant(room.Id, types.Participant{Id: "b"}),
		"expected participant add to succeed despite a store failure")
}

package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Participant is the room-scoped view of one connected user session.
type Participant struct {
	Id          string    `json:"id"`
	Nickname    string    `json:"nickname"`
	Username    string    `json:"username,omitempty"`
	Avatar      string    `json:"avatar,omitempty"`
	SocketId    string    `json:"socket_id"`
	IsAway      bool      `json:"is_away"`
	IsModerator bool      `json:"is_moderator"`
	JoinedAt    time.Time `json:"joined_at"`
}

type RoomInfo struct {
	Id           string        `json:"id"`
	Code         string        `json:"code"`
	MaxUsers     int           `json:"max_users"`
	IsLocked     bool          `json:"is_locked"`
	Participants []Participant `json:"participants"`
	Moderators   []string      `json:"moderators"`
	CreatedAt    time.Time     `json:"created_at"`
}

type TypingUser struct {
	UserId   string `json:"user_id"`
	Nickname string `json:"nickname"`
}

type Message struct {
	Id        int        `json:"id"`
	RoomId    string     `json:"room_id"`
	UserId    string     `json:"user_id"`
	Nickname  string     `json:"nickname,omitempty"`
	Content   string     `json:"content"`
	Kind      string     `json:"kind,omitempty"`
	IsPinned  bool       `json:"is_pinned,omitempty"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type Reaction struct {
	MessageId int    `json:"message_id"`
	UserId    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type Poll struct {
	Id        int            `json:"id"`
	RoomId    string         `json:"room_id"`
	CreatedBy string         `json:"created_by"`
	Question  string         `json:"question"`
	Options   []string       `json:"options"`
	Votes     map[string]int `json:"votes"`
	IsClosed  bool           `json:"is_closed"`
	CreatedAt time.Time      `json:"created_at"`
}

type DirectMessage struct {
	Id        int       `json:"id"`
	FromId    string    `json:"from_id"`
	ToId      string    `json:"to_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type Invite struct {
	FromId   string `json:"from_id"`
	ToId     string `json:"to_id"`
	RoomId   string `json:"room_id"`
	RoomCode string `json:"room_code"`
}

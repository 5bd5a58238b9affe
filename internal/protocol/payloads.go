package protocol

import (
	"github.com/acorrad/go-huddle/internal/types"
)

type JoinRoom struct {
	RoomCode string `json:"room_code"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar,omitempty"`
}

type LeaveRoom struct {
	RoomId string `json:"room_id"`
}

type RegisterUsername struct {
	Username string `json:"username"`
}

type SendMessage struct {
	RoomId  string `json:"room_id"`
	Content string `json:"content"`
	Kind    string `json:"kind,omitempty"`
}

type EditMessage struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
	Content   string `json:"content"`
}

type DeleteMessage struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
}

type Typing struct {
	RoomId string `json:"room_id"`
}

type ReactionChange struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type MarkRead struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id,omitempty"`
}

type MarkDMRead struct {
	FromId string `json:"from_id,omitempty"`
}

type SendPoll struct {
	RoomId   string   `json:"room_id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type VotePoll struct {
	RoomId string `json:"room_id"`
	PollId int    `json:"poll_id"`
	Option int    `json:"option"`
}

type ClosePoll struct {
	RoomId string `json:"room_id"`
	PollId int    `json:"poll_id"`
}

type SendInvite struct {
	ToId   string `json:"to_id"`
	RoomId string `json:"room_id"`
}

type SendDM struct {
	ToId    string `json:"to_id"`
	Content string `json:"content"`
}

type GetDMHistory struct {
	WithId string `json:"with_id"`
	Limit  int    `json:"limit,omitempty"`
}

type PinMessage struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
}

type ClearChat struct {
	RoomId string `json:"room_id"`
}

type GetParticipants struct {
	RoomId string `json:"room_id"`
}

type RoomJoined struct {
	Room        types.RoomInfo    `json:"room"`
	Participant types.Participant `json:"participant"`
}

type UserJoined struct {
	RoomId      string            `json:"room_id"`
	Participant types.Participant `json:"participant"`
}

type UserLeft struct {
	RoomId string `json:"room_id"`
	UserId string `json:"user_id"`
}

type Participants struct {
	RoomId       string              `json:"room_id"`
	Participants []types.Participant `json:"participants"`
}

type MessagesHistory struct {
	RoomId   string          `json:"room_id"`
	Messages []types.Message `json:"messages"`
}

type MessageDeleted struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
}

type TypingUpdate struct {
	RoomId      string             `json:"room_id"`
	TypingUsers []types.TypingUser `json:"typing_users"`
}

type ReactionUpdate struct {
	RoomId    string `json:"room_id"`
	MessageId int    `json:"message_id"`
	UserId    string `json:"user_id"`
	Emoji     string `json:"emoji"`
}

type ReadUpdate struct {
	RoomId    string `json:"room_id"`
	UserId    string `json:"user_id"`
	MessageId int    `json:"message_id,omitempty"`
}

type DMRead struct {
	ReaderId string `json:"reader_id"`
	FromId   string `json:"from_id,omitempty"`
}

type ChatCleared struct {
	RoomId    string `json:"room_id"`
	ClearedBy string `json:"cleared_by"`
	Local     bool   `json:"local"`
}

type PresenceChange struct {
	UserId   string `json:"user_id"`
	Nickname string `json:"nickname,omitempty"`
}

type DMHistory struct {
	WithId   string                `json:"with_id"`
	Messages []types.DirectMessage `json:"messages"`
}

type UsernameRegistered struct {
	UserId   string `json:"user_id"`
	Username string `json:"username"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ConnectionError struct {
	Attempt int    `json:"attempt"`
	Message string `json:"message"`
}

package protocol

import (
	"encoding/json"
	"time"
)

// Client -> server action names. The catalog is closed: the hub rejects
// anything outside it with an Error event.
const (
	ActionJoinRoom         = "join:room"
	ActionLeaveRoom        = "leave:room"
	ActionRegisterUsername = "register:username"
	ActionSendMessage      = "send:message"
	ActionEditMessage      = "edit:message"
	ActionDeleteMessage    = "delete:message"
	ActionTypingStart      = "typing:start"
	ActionTypingStop       = "typing:stop"
	ActionAddReaction      = "add:reaction"
	ActionRemoveReaction   = "remove:reaction"
	ActionMarkRead         = "mark:read"
	ActionMarkAllRead      = "mark:all:read"
	ActionMarkDMRead       = "mark:dm:read"
	ActionMarkAllDMsRead   = "mark:dm:all:read"
	ActionSendPoll         = "send:poll"
	ActionVotePoll         = "vote:poll"
	ActionClosePoll        = "close:poll"
	ActionSendInvite       = "send:invite"
	ActionSendDM           = "send:dm"
	ActionGetDMHistory     = "get:dm:history"
	ActionPinMessage       = "pin:message"
	ActionUnpinMessage     = "unpin:message"
	ActionClearChatLocal   = "clear:chat:local"
	ActionClearChatAll     = "clear:chat:all"
	ActionGetParticipants  = "get:participants"
)

// Server -> client event names.
const (
	EventRoomJoined         = "room:joined"
	EventRoomUserJoined     = "room:user:joined"
	EventRoomUserLeft       = "room:user:left"
	EventRoomParticipants   = "room:participants"
	EventMessagesHistory    = "messages:history"
	EventMessageNew         = "message:new"
	EventMessageEdited      = "message:edited"
	EventMessageDeleted     = "message:deleted"
	EventMessageImage       = "message:image"
	EventMessageFile        = "message:file"
	EventMessageVoice       = "message:voice"
	EventMessagePoll        = "message:poll"
	EventMessagePinned      = "message:pinned"
	EventMessageUnpinned    = "message:unpinned"
	EventReactionAdded      = "reaction:added"
	EventReactionRemoved    = "reaction:removed"
	EventPollVoted          = "poll:voted"
	EventPollClosed         = "poll:closed"
	EventTypingUpdate       = "typing:update"
	EventMessageRead        = "message:read"
	EventDMRead             = "dm:read"
	EventChatCleared        = "chat:cleared"
	EventUserOnline         = "user:online"
	EventUserOffline        = "user:offline"
	EventDMReceived         = "dm:received"
	EventDMSent             = "dm:sent"
	EventDMHistory          = "dm:history"
	EventInviteReceived     = "invite:received"
	EventInviteSent         = "invite:sent"
	EventUsernameRegistered = "username:registered"
	EventError              = "error"
)

// Local-only events raised by the connection manager, never sent on the wire.
const (
	EventConnected        = "connected"
	EventDisconnected     = "disconnected"
	EventConnectionError  = "connection:error"
	EventConnectionFailed = "connection:failed"
)

// Action is the client -> server envelope.
type Action struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is the server -> client envelope.
type Event struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func NewAction(event string, data any) (Action, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Action{}, err
	}
	return Action{Event: event, Data: raw}, nil
}

func NewEvent(event string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Event: event, Data: raw, Timestamp: Now()}, nil
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

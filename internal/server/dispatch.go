package server

import (
	"encoding/json"
	"fmt"

	"github.com/acorrad/go-huddle/internal/protocol"
	"github.com/acorrad/go-huddle/internal/types"
)

const (
	historyLimit   = 50
	dmHistoryLimit = 50
)

const (
	codeInvalidPayload  = "invalid_payload"
	codeRoomNotFound    = "room_not_found"
	codeRoomUnavailable = "room_unavailable"
	codeNotAuthorized   = "not_authorized"
	codeMessageNotFound = "message_not_found"
	codePollNotFound    = "poll_not_found"
	codeUserOffline     = "user_offline"
	codeInternal        = "internal_error"
	codeUnknownAction   = "unknown_action"
	codeUnavailable     = "service_unavailable"
)

// dispatch routes one inbound action. Every action outside the catalog is
// answered with an error event rather than closing the session.
func (h *Hub) dispatch(s *Session, action protocol.Action) {
	switch action.Event {
	case protocol.ActionJoinRoom:
		h.handleJoinRoom(s, action.Data)
	case protocol.ActionLeaveRoom:
		h.handleLeaveRoom(s, action.Data)
	case protocol.ActionRegisterUsername:
		h.handleRegisterUsername(s, action.Data)
	case protocol.ActionSendMessage:
		h.handleSendMessage(s, action.Data)
	case protocol.ActionEditMessage:
		h.handleEditMessage(s, action.Data)
	case protocol.ActionDeleteMessage:
		h.handleDeleteMessage(s, action.Data)
	case protocol.ActionTypingStart:
		h.handleTyping(s, action.Data, true)
	case protocol.ActionTypingStop:
		h.handleTyping(s, action.Data, false)
	case protocol.ActionAddReaction:
		h.handleReaction(s, action.Data, true)
	case protocol.ActionRemoveReaction:
		h.handleReaction(s, action.Data, false)
	case protocol.ActionMarkRead, protocol.ActionMarkAllRead:
		h.handleMarkRead(s, action.Data)
	case protocol.ActionMarkDMRead, protocol.ActionMarkAllDMsRead:
		h.handleMarkDMRead(s, action.Data)
	case protocol.ActionSendPoll:
		h.handleSendPoll(s, action.Data)
	case protocol.ActionVotePoll:
		h.handleVotePoll(s, action.Data)
	case protocol.ActionClosePoll:
		h.handleClosePoll(s, action.Data)
	case protocol.ActionSendInvite:
		h.handleSendInvite(s, action.Data)
	case protocol.ActionSendDM:
		h.handleSendDM(s, action.Data)
	case protocol.ActionGetDMHistory:
		h.handleGetDMHistory(s, action.Data)
	case protocol.ActionPinMessage:
		h.handlePinMessage(s, action.Data, true)
	case protocol.ActionUnpinMessage:
		h.handlePinMessage(s, action.Data, false)
	case protocol.ActionClearChatLocal:
		h.handleClearChat(s, action.Data, true)
	case protocol.ActionClearChatAll:
		h.handleClearChat(s, action.Data, false)
	case protocol.ActionGetParticipants:
		h.handleGetParticipants(s, action.Data)
	default:
		h.sendError(s, codeUnknownAction, fmt.Sprintf("unknown action %q", action.Event))
	}
}

func (h *Hub) sendError(s *Session, code, message string) {
	h.sendTo(s, protocol.EventError, protocol.ErrorPayload{Code: code, Message: message})
}

func (h *Hub) decode(s *Session, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		h.log.Printf("decode payload: %v", err)
		h.sendError(s, codeInvalidPayload, "malformed payload")
		return false
	}
	return true
}

func (h *Hub) handleJoinRoom(s *Session, data json.RawMessage) {
	var req protocol.JoinRoom
	if !h.decode(s, data, &req) {
		return
	}

	room, ok := h.rooms.GetRoomByCode(req.RoomCode)
	if !ok {
		h.sendError(s, codeRoomNotFound, fmt.Sprintf("no room with code %q", req.RoomCode))
		return
	}

	if req.Nickname != "" {
		s.nickname = req.Nickname
	}
	if !h.rooms.AddParticipant(room.Id, types.Participant{
		Id:       s.userId,
		Nickname: s.nickname,
		Username: s.username,
		Avatar:   req.Avatar,
		SocketId: s.id,
	}) {
		h.sendError(s, codeRoomUnavailable, "room is locked or full")
		return
	}

	// the room's first occupant moderates it
	if h.rooms.GetParticipantCount(room.Id) == 1 {
		h.rooms.AddModerator(room.Id, s.userId)
	}

	s.rooms[room.Id] = struct{}{}
	set, ok := h.roomSessions[room.Id]
	if !ok {
		set = make(map[*Session]struct{})
		h.roomSessions[room.Id] = set
	}
	set[s] = struct{}{}

	snap, _ := h.rooms.GetRoom(room.Id)
	var self types.Participant
	for _, p := range snap.Participants {
		if p.Id == s.userId {
			self = p
			break
		}
	}

	h.sendTo(s, protocol.EventRoomJoined, protocol.RoomJoined{Room: snap, Participant: self})

	messages, err := h.repo.GetMessages(room.Id, historyLimit)
	if err != nil {
		h.log.Printf("load history for room %q: %v", room.Id, err)
		messages = nil
	}
	if messages == nil {
		messages = []types.Message{}
	}
	h.sendTo(s, protocol.EventMessagesHistory, protocol.MessagesHistory{RoomId: room.Id, Messages: messages})

	h.broadcastRoom(room.Id, protocol.EventRoomUserJoined, protocol.UserJoined{
		RoomId:      room.Id,
		Participant: self,
	}, s)
	h.broadcastRoom(room.Id, protocol.EventUserOnline, protocol.PresenceChange{
		UserId:   s.userId,
		Nickname: s.nickname,
	}, s)
	h.broadcastParticipants(room.Id)
}

func (h *Hub) handleLeaveRoom(s *Session, data json.RawMessage) {
	var req protocol.LeaveRoom
	if !h.decode(s, data, &req) {
		return
	}

	// leaving a room you are not in is a no-op
	if !s.inRoom(req.RoomId) {
		return
	}
	h.leaveRoom(s, req.RoomId)
}

func (h *Hub) handleRegisterUsername(s *Session, data json.RawMessage) {
	var req protocol.RegisterUsername
	if !h.decode(s, data, &req) {
		return
	}
	if req.Username == "" {
		h.sendError(s, codeInvalidPayload, "username must not be empty")
		return
	}

	s.username = req.Username
	for roomId := range s.rooms {
		h.rooms.AddParticipant(roomId, types.Participant{
			Id:       s.userId,
			Nickname: s.nickname,
			Username: s.username,
			SocketId: s.id,
		})
		h.broadcastParticipants(roomId)
	}

	h.sendTo(s, protocol.EventUsernameRegistered, protocol.UsernameRegistered{
		UserId:   s.userId,
		Username: s.username,
	})
}

func (h *Hub) handleTyping(s *Session, data json.RawMessage, start bool) {
	var req protocol.Typing
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		return
	}

	if start {
		h.rooms.SetTyping(req.RoomId, s.userId, s.nickname)
	} else {
		h.rooms.ClearTyping(req.RoomId, s.userId)
	}
	h.broadcastTyping(req.RoomId)
}

func (h *Hub) handleSendMessage(s *Session, data json.RawMessage) {
	var req protocol.SendMessage
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	msg, err := h.repo.CreateMessage(types.Message{
		RoomId:   req.RoomId,
		UserId:   s.userId,
		Nickname: s.nickname,
		Content:  req.Content,
		Kind:     req.Kind,
	})
	if err != nil {
		h.log.Printf("save message in room %q: %v", req.RoomId, err)
		h.sendError(s, codeInternal, "failed to save message")
		return
	}

	event := protocol.EventMessageNew
	switch req.Kind {
	case "image":
		event = protocol.EventMessageImage
	case "file":
		event = protocol.EventMessageFile
	case "voice":
		event = protocol.EventMessageVoice
	}
	h.broadcastRoom(req.RoomId, event, msg, nil)
}

func (h *Hub) handleEditMessage(s *Session, data json.RawMessage) {
	var req protocol.EditMessage
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	msg, err := h.repo.UpdateMessage(req.RoomId, req.MessageId, req.Content)
	if err != nil {
		h.sendError(s, codeMessageNotFound, fmt.Sprintf("message %d not found", req.MessageId))
		return
	}
	h.broadcastRoom(req.RoomId, protocol.EventMessageEdited, msg, nil)
}

func (h *Hub) handleDeleteMessage(s *Session, data json.RawMessage) {
	var req protocol.DeleteMessage
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	if err := h.repo.DeleteMessage(req.RoomId, req.MessageId); err != nil {
		h.sendError(s, codeMessageNotFound, fmt.Sprintf("message %d not found", req.MessageId))
		return
	}
	h.broadcastRoom(req.RoomId, protocol.EventMessageDeleted, protocol.MessageDeleted{
		RoomId:    req.RoomId,
		MessageId: req.MessageId,
	}, nil)
}

func (h *Hub) handleReaction(s *Session, data json.RawMessage, add bool) {
	var req protocol.ReactionChange
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	reaction := types.Reaction{MessageId: req.MessageId, UserId: s.userId, Emoji: req.Emoji}
	var err error
	event := protocol.EventReactionAdded
	if add {
		err = h.repo.AddReaction(reaction)
	} else {
		err = h.repo.RemoveReaction(reaction)
		event = protocol.EventReactionRemoved
	}
	if err != nil {
		h.log.Printf("reaction on message %d: %v", req.MessageId, err)
		h.sendError(s, codeInternal, "failed to update reaction")
		return
	}

	h.broadcastRoom(req.RoomId, event, protocol.ReactionUpdate{
		RoomId:    req.RoomId,
		MessageId: req.MessageId,
		UserId:    s.userId,
		Emoji:     req.Emoji,
	}, nil)
}

func (h *Hub) handleMarkRead(s *Session, data json.RawMessage) {
	var req protocol.MarkRead
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		return
	}

	if err := h.repo.UpdateReadCursor(req.RoomId, s.userId, req.MessageId); err != nil {
		h.log.Printf("update read cursor in room %q: %v", req.RoomId, err)
		return
	}
	h.broadcastRoom(req.RoomId, protocol.EventMessageRead, protocol.ReadUpdate{
		RoomId:    req.RoomId,
		UserId:    s.userId,
		MessageId: req.MessageId,
	}, nil)
}

func (h *Hub) handleMarkDMRead(s *Session, data json.RawMessage) {
	var req protocol.MarkDMRead
	if !h.decode(s, data, &req) {
		return
	}

	if err := h.repo.MarkDirectMessagesRead(s.userId, req.FromId); err != nil {
		h.log.Printf("mark dms read for %q: %v", s.userId, err)
		return
	}

	receipt := protocol.DMRead{ReaderId: s.userId, FromId: req.FromId}
	h.sendTo(s, protocol.EventDMRead, receipt)
	if req.FromId != "" {
		h.sendToUser(req.FromId, protocol.EventDMRead, receipt)
	}
}

func (h *Hub) handleSendPoll(s *Session, data json.RawMessage) {
	var req protocol.SendPoll
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}
	if req.Question == "" || len(req.Options) < 2 {
		h.sendError(s, codeInvalidPayload, "a poll needs a question and at least two options")
		return
	}

	h.nextPollId++
	poll := &types.Poll{
		Id:        h.nextPollId,
		RoomId:    req.RoomId,
		CreatedBy: s.userId,
		Question:  req.Question,
		Options:   req.Options,
		Votes:     make(map[string]int),
		CreatedAt: protocol.Now(),
	}
	h.polls[poll.Id] = poll

	h.broadcastRoom(req.RoomId, protocol.EventMessagePoll, poll, nil)
}

func (h *Hub) handleVotePoll(s *Session, data json.RawMessage) {
	var req protocol.VotePoll
	if !h.decode(s, data, &req) {
		return
	}

	poll, ok := h.polls[req.PollId]
	if !ok || poll.RoomId != req.RoomId || !s.inRoom(req.RoomId) {
		h.sendError(s, codePollNotFound, fmt.Sprintf("poll %d not found", req.PollId))
		return
	}
	if poll.IsClosed {
		h.sendError(s, codePollNotFound, fmt.Sprintf("poll %d is closed", req.PollId))
		return
	}
	if req.Option < 0 || req.Option >= len(poll.Options) {
		h.sendError(s, codeInvalidPayload, "option out of range")
		return
	}

	poll.Votes[s.userId] = req.Option
	h.broadcastRoom(req.RoomId, protocol.EventPollVoted, poll, nil)
}

func (h *Hub) handleClosePoll(s *Session, data json.RawMessage) {
	var req protocol.ClosePoll
	if !h.decode(s, data, &req) {
		return
	}

	poll, ok := h.polls[req.PollId]
	if !ok || poll.RoomId != req.RoomId || !s.inRoom(req.RoomId) {
		h.sendError(s, codePollNotFound, fmt.Sprintf("poll %d not found", req.PollId))
		return
	}
	if poll.CreatedBy != s.userId && !h.rooms.IsModerator(req.RoomId, s.userId) {
		h.sendError(s, codeNotAuthorized, "only the creator or a moderator can close a poll")
		return
	}

	poll.IsClosed = true
	h.broadcastRoom(req.RoomId, protocol.EventPollClosed, poll, nil)
}

func (h *Hub) handleSendInvite(s *Session, data json.RawMessage) {
	var req protocol.SendInvite
	if !h.decode(s, data, &req) {
		return
	}

	room, ok := h.rooms.GetRoom(req.RoomId)
	if !ok {
		h.sendError(s, codeRoomNotFound, "room not found")
		return
	}

	invite := types.Invite{
		FromId:   s.userId,
		ToId:     req.ToId,
		RoomId:   room.Id,
		RoomCode: room.Code,
	}
	if !h.sendToUser(req.ToId, protocol.EventInviteReceived, invite) {
		h.sendError(s, codeUserOffline, fmt.Sprintf("user %q is not online", req.ToId))
		return
	}
	h.sendTo(s, protocol.EventInviteSent, invite)
}

func (h *Hub) handleSendDM(s *Session, data json.RawMessage) {
	var req protocol.SendDM
	if !h.decode(s, data, &req) {
		return
	}

	dm, err := h.repo.CreateDirectMessage(types.DirectMessage{
		FromId:  s.userId,
		ToId:    req.ToId,
		Content: req.Content,
	})
	if err != nil {
		h.log.Printf("save dm to %q: %v", req.ToId, err)
		h.sendError(s, codeInternal, "failed to save direct message")
		return
	}

	// the recipient may be offline; the message is durable either way
	h.sendToUser(req.ToId, protocol.EventDMReceived, dm)
	h.sendTo(s, protocol.EventDMSent, dm)
}

func (h *Hub) handleGetDMHistory(s *Session, data json.RawMessage) {
	var req protocol.GetDMHistory
	if !h.decode(s, data, &req) {
		return
	}

	limit := req.Limit
	if limit <= 0 {
		limit = dmHistoryLimit
	}
	messages, err := h.repo.GetDirectMessages(s.userId, req.WithId, limit)
	if err != nil {
		h.log.Printf("load dm history with %q: %v", req.WithId, err)
		h.sendError(s, codeInternal, "failed to load history")
		return
	}
	if messages == nil {
		messages = []types.DirectMessage{}
	}
	h.sendTo(s, protocol.EventDMHistory, protocol.DMHistory{WithId: req.WithId, Messages: messages})
}

func (h *Hub) handlePinMessage(s *Session, data json.RawMessage, pinned bool) {
	var req protocol.PinMessage
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	if err := h.repo.SetMessagePinned(req.RoomId, req.MessageId, pinned); err != nil {
		h.sendError(s, codeMessageNotFound, fmt.Sprintf("message %d not found", req.MessageId))
		return
	}

	event := protocol.EventMessagePinned
	if !pinned {
		event = protocol.EventMessageUnpinned
	}
	h.broadcastRoom(req.RoomId, event, protocol.PinMessage{
		RoomId:    req.RoomId,
		MessageId: req.MessageId,
	}, nil)
}

func (h *Hub) handleClearChat(s *Session, data json.RawMessage, local bool) {
	var req protocol.ClearChat
	if !h.decode(s, data, &req) {
		return
	}
	if !s.inRoom(req.RoomId) {
		h.sendError(s, codeRoomNotFound, "not in that room")
		return
	}

	if local {
		h.sendTo(s, protocol.EventChatCleared, protocol.ChatCleared{
			RoomId:    req.RoomId,
			ClearedBy: s.userId,
			Local:     true,
		})
		return
	}

	if !h.rooms.IsModerator(req.RoomId, s.userId) {
		h.sendError(s, codeNotAuthorized, "only a moderator can clear the room")
		return
	}
	if err := h.repo.ClearMessages(req.RoomId); err != nil {
		h.log.Printf("clear messages in room %q: %v", req.RoomId, err)
		h.sendError(s, codeInternal, "failed to clear messages")
		return
	}
	h.broadcastRoom(req.RoomId, protocol.EventChatCleared, protocol.ChatCleared{
		RoomId:    req.RoomId,
		ClearedBy: s.userId,
		Local:     false,
	}, nil)
}

func (h *Hub) handleGetParticipants(s *Session, data json.RawMessage) {
	var req protocol.GetParticipants
	if !h.decode(s, data, &req) {
		return
	}

	participants := h.rooms.GetParticipants(req.RoomId)
	if participants == nil {
		participants = []types.Participant{}
	}
	h.sendTo(s, protocol.EventRoomParticipants, protocol.Participants{
		RoomId:       req.RoomId,
		Participants: participants,
	})
}

package chatclient

import (
	"github.com/acorrad/go-huddle/internal/protocol"
)

// Typed wrappers over Send. These carry no state of their own; they only
// give application code a typed call surface for the action catalog.

func (c *Client) JoinRoom(roomCode, nickname, avatar string) error {
	return c.Send(protocol.ActionJoinRoom, protocol.JoinRoom{
		RoomCode: roomCode,
		Nickname: nickname,
		Avatar:   avatar,
	})
}

func (c *Client) LeaveRoom(roomId string) error {
	return c.Send(protocol.ActionLeaveRoom, protocol.LeaveRoom{RoomId: roomId})
}

func (c *Client) RegisterUsername(username string) error {
	return c.Send(protocol.ActionRegisterUsername, protocol.RegisterUsername{Username: username})
}

func (c *Client) SendMessage(roomId, content string) error {
	return c.Send(protocol.ActionSendMessage, protocol.SendMessage{RoomId: roomId, Content: content})
}

func (c *Client) EditMessage(roomId string, messageId int, content string) error {
	return c.Send(protocol.ActionEditMessage, protocol.EditMessage{
		RoomId:    roomId,
		MessageId: messageId,
		Content:   content,
	})
}

func (c *Client) DeleteMessage(roomId string, messageId int) error {
	return c.Send(protocol.ActionDeleteMessage, protocol.DeleteMessage{RoomId: roomId, MessageId: messageId})
}

func (c *Client) StartTyping(roomId string) error {
	return c.Send(protocol.ActionTypingStart, protocol.Typing{RoomId: roomId})
}

func (c *Client) StopTyping(roomId string) error {
	return c.Send(protocol.ActionTypingStop, protocol.Typing{RoomId: roomId})
}

func (c *Client) AddReaction(roomId string, messageId int, emoji string) error {
	return c.Send(protocol.ActionAddReaction, protocol.ReactionChange{
		RoomId:    roomId,
		MessageId: messageId,
		Emoji:     emoji,
	})
}

func (c *Client) RemoveReaction(roomId string, messageId int, emoji string) error {
	return c.Send(protocol.ActionRemoveReaction, protocol.ReactionChange{
		RoomId:    roomId,
		MessageId: messageId,
		Emoji:     emoji,
	})
}

func (c *Client) MarkRead(roomId string, messageId int) error {
	return c.Send(protocol.ActionMarkRead, protocol.MarkRead{RoomId: roomId, MessageId: messageId})
}

func (c *Client) MarkAllRead(roomId string) error {
	return c.Send(protocol.ActionMarkAllRead, protocol.MarkRead{RoomId: roomId})
}

func (c *Client) MarkDMRead(fromId string) error {
	return c.Send(protocol.ActionMarkDMRead, protocol.MarkDMRead{FromId: fromId})
}

func (c *Client) MarkAllDMsRead() error {
	return c.Send(protocol.ActionMarkAllDMsRead, protocol.MarkDMRead{})
}

func (c *Client) SendPoll(roomId, question string, options []string) error {
	return c.Send(protocol.ActionSendPoll, protocol.SendPoll{
		RoomId:   roomId,
		Question: question,
		Options:  options,
	})
}

func (c *Client) VotePoll(roomId string, pollId, option int) error {
	return c.Send(protocol.ActionVotePoll, protocol.VotePoll{
		RoomId: roomId,
		PollId: pollId,
		Option: option,
	})
}

func (c *Client) ClosePoll(roomId string, pollId int) error {
	return c.Send(protocol.ActionClosePoll, protocol.ClosePoll{RoomId: roomId, PollId: pollId})
}

func (c *Client) SendInvite(toId, roomId string) error {
	return c.Send(protocol.ActionSendInvite, protocol.SendInvite{ToId: toId, RoomId: roomId})
}

func (c *Client) SendDM(toId, content string) error {
	return c.Send(protocol.ActionSendDM, protocol.SendDM{ToId: toId, Content: content})
}

func (c *Client) GetDMHistory(withId string, limit int) error {
	return c.Send(protocol.ActionGetDMHistory, protocol.GetDMHistory{WithId: withId, Limit: limit})
}

func (c *Client) PinMessage(roomId string, messageId int) error {
	return c.Send(protocol.ActionPinMessage, protocol.PinMessage{RoomId: roomId, MessageId: messageId})
}

func (c *Client) UnpinMessage(roomId string, messageId int) error {
	return c.Send(protocol.ActionUnpinMessage, protocol.PinMessage{RoomId: roomId, MessageId: messageId})
}

func (c *Client) ClearChatLocal(roomId string) error {
	return c.Send(protocol.ActionClearChatLocal, protocol.ClearChat{RoomId: roomId})
}

func (c *Client) ClearChatAll(roomId string) error {
	return c.Send(protocol.ActionClearChatAll, protocol.ClearChat{RoomId: roomId})
}

func (c *Client) GetParticipants(roomId string) error {
	return c.Send(protocol.ActionGetParticipants, protocol.GetParticipants{RoomId: roomId})
}

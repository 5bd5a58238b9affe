package database

import (
	"github.com/acorrad/go-huddle/internal/types"
)

type HuddleRepository interface {
	Ping() error
	Close() error

	CreateAccount(params CreateAccountParams) (Account, error)
	GetAccountById(accountId int) (Account, error)
	GetAccountByEmail(email string) (Account, error)

	SaveRoomState(room types.RoomInfo) error
	DeleteRoomState(roomId string) error

	CreateMessage(msg types.Message) (types.Message, error)
	GetMessages(roomId string, limit int) ([]types.Message, error)
	UpdateMessage(roomId string, messageId int, content string) (types.Message, error)
	DeleteMessage(roomId string, messageId int) error
	SetMessagePinned(roomId string, messageId int, pinned bool) error
	ClearMessages(roomId string) error

	AddReaction(r types.Reaction) error
	RemoveReaction(r types.Reaction) error
	UpdateReadCursor(roomId, userId string, messageId int) error

	CreateDirectMessage(dm types.DirectMessage) (types.DirectMessage, error)
	GetDirectMessages(userId, withId string, limit int) ([]types.DirectMessage, error)
	MarkDirectMessagesRead(readerId, fromId string) error
}

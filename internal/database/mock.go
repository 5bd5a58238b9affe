package database

import (
	"github.com/stretchr/testify/mock"

	"github.com/acorrad/go-huddle/internal/types"
)

type MockHuddleRepository struct {
	mock.Mock
}

func (m *MockHuddleRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockHuddleRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockHuddleRepository) CreateAccount(params CreateAccountParams) (Account, error) {
	args := m.Called(params)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockHuddleRepository) GetAccountById(accountId int) (Account, error) {
	args := m.Called(accountId)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockHuddleRepository) GetAccountByEmail(email string) (Account, error) {
	args := m.Called(email)
	return args.Get(0).(Account), args.Error(1)
}
func (m *MockHuddleRepository) SaveRoomState(room types.RoomInfo) error {
	args := m.Called(room)
	return args.Error(0)
}
func (m *MockHuddleRepository) DeleteRoomState(roomId string) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockHuddleRepository) CreateMessage(msg types.Message) (types.Message, error) {
	args := m.Called(msg)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockHuddleRepository) GetMessages(roomId string, limit int) ([]types.Message, error) {
	args := m.Called(roomId, limit)
	if msgs, ok := args.Get(0).([]types.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockHuddleRepository) UpdateMessage(roomId string, messageId int, content string) (types.Message, error) {
	args := m.Called(roomId, messageId, content)
	return args.Get(0).(types.Message), args.Error(1)
}
func (m *MockHuddleRepository) DeleteMessage(roomId string, messageId int) error {
	args := m.Called(roomId, messageId)
	return args.Error(0)
}
func (m *MockHuddleRepository) SetMessagePinned(roomId string, messageId int, pinned bool) error {
	args := m.Called(roomId, messageId, pinned)
	return args.Error(0)
}
func (m *MockHuddleRepository) ClearMessages(roomId string) error {
	args := m.Called(roomId)
	return args.Error(0)
}
func (m *MockHuddleRepository) AddReaction(r types.Reaction) error {
	args := m.Called(r)
	return args.Error(0)
}
func (m *MockHuddleRepository) RemoveReaction(r types.Reaction) error {
	args := m.Called(r)
	return args.Error(0)
}
func (m *MockHuddleRepository) UpdateReadCursor(roomId, userId string, messageId int) error {
	args := m.Called(roomId, userId, messageId)
	return args.Error(0)
}
func (m *MockHuddleRepository) CreateDirectMessage(dm types.DirectMessage) (types.DirectMessage, error) {
	args := m.Called(dm)
	return args.Get(0).(types.DirectMessage), args.Error(1)
}
func (m *MockHuddleRepository) GetDirectMessages(userId, withId string, limit int) ([]types.DirectMessage, error) {
	args := m.Called(userId, withId, limit)
	if dms, ok := args.Get(0).([]types.DirectMessage); ok {
		return dms, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockHuddleRepository) MarkDirectMessagesRead(readerId, fromId string) error {
	args := m.Called(readerId, fromId)
	return args.Error(0)
}

package database

import "time"

type Account struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

// RoomState is the durable snapshot of a coordinator room. The coordinator
// remains authoritative while the room is live; this row exists so
// persistent rooms survive a restart and so the cleanup job can expire
// them independently.
type RoomState struct {
	RoomId    string
	Code      string
	MaxUsers  int
	IsLocked  bool
	Snapshot  []byte
	UpdatedAt time.Time
}

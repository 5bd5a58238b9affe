package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/acorrad/go-huddle/internal/types"
)

func (db *PgHuddleRepository) CreateAccount(accountParams CreateAccountParams) (Account, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email",
		accountParams.Username,
		accountParams.EmailAddress,
		accountParams.PasswordHash,
		time.Now().UTC(),
	)

	var a Account
	err := res.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
	)

	return a, err
}

func (db *PgHuddleRepository) GetAccountById(accountId int) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
	)

	return a, err
}

func (db *PgHuddleRepository) GetAccountByEmail(email string) (Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var a Account
	err := row.Scan(
		&a.Id,
		&a.Username,
		&a.EmailAddress,
		&a.PasswordHash,
	)

	return a, err
}

func (db *PgHuddleRepository) SaveRoomState(room types.RoomInfo) error {
	snapshot, err := json.Marshal(room)
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		"INSERT INTO room_states (room_id, code, max_users, is_locked, snapshot, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"ON CONFLICT (room_id) DO UPDATE SET "+
			"code = EXCLUDED.code, max_users = EXCLUDED.max_users, "+
			"is_locked = EXCLUDED.is_locked, snapshot = EXCLUDED.snapshot, "+
			"updated_at = EXCLUDED.updated_at",
		room.Id,
		room.Code,
		room.MaxUsers,
		room.IsLocked,
		snapshot,
		time.Now().UTC(),
	)

	return err
}

func (db *PgHuddleRepository) DeleteRoomState(roomId string) error {
	_, err := db.conn.Exec("DELETE FROM room_states WHERE room_id = $1", roomId)
	return err
}

func (db *PgHuddleRepository) CreateMessage(msg types.Message) (types.Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (room_id, user_id, nickname, content, kind, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at",
		msg.RoomId,
		msg.UserId,
		msg.Nickname,
		msg.Content,
		msg.Kind,
		time.Now().UTC(),
	)

	err := res.Scan(&msg.Id, &msg.CreatedAt)
	return msg, err
}

func (db *PgHuddleRepository) GetMessages(roomId string, limit int) ([]types.Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, user_id, nickname, content, kind, is_pinned, edited_at, created_at "+
			"FROM messages WHERE room_id = $1 ORDER BY id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []types.Message
	for rows.Next() {
		var m types.Message
		var editedAt sql.NullTime
		if err := rows.Scan(
			&m.Id,
			&m.RoomId,
			&m.UserId,
			&m.Nickname,
			&m.Content,
			&m.Kind,
			&m.IsPinned,
			&editedAt,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		if editedAt.Valid {
			m.EditedAt = &editedAt.Time
		}
		msgs = append(msgs, m)
	}

	// oldest first
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	return msgs, rows.Err()
}

func (db *PgHuddleRepository) UpdateMessage(roomId string, messageId int, content string) (types.Message, error) {
	row := db.conn.QueryRow(
		"UPDATE messages SET content = $3, edited_at = $4 "+
			"WHERE room_id = $1 AND id = $2 "+
			"RETURNING id, room_id, user_id, nickname, content, kind, is_pinned, edited_at, created_at",
		roomId,
		messageId,
		content,
		time.Now().UTC(),
	)

	var m types.Message
	var editedAt sql.NullTime
	err := row.Scan(
		&m.Id,
		&m.RoomId,
		&m.UserId,
		&m.Nickname,
		&m.Content,
		&m.Kind,
		&m.IsPinned,
		&editedAt,
		&m.CreatedAt,
	)
	if editedAt.Valid {
		m.EditedAt = &editedAt.Time
	}

	return m, err
}

func (db *PgHuddleRepository) DeleteMessage(roomId string, messageId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM messages WHERE room_id = $1 AND id = $2",
		roomId,
		messageId,
	)
	return err
}

func (db *PgHuddleRepository) SetMessagePinned(roomId string, messageId int, pinned bool) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET is_pinned = $3 WHERE room_id = $1 AND id = $2",
		roomId,
		messageId,
		pinned,
	)
	return err
}

func (db *PgHuddleRepository) ClearMessages(roomId string) error {
	_, err := db.conn.Exec("DELETE FROM messages WHERE room_id = $1", roomId)
	return err
}

func (db *PgHuddleRepository) AddReaction(r types.Reaction) error {
	_, err := db.conn.Exec(
		"INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3) "+
			"ON CONFLICT DO NOTHING",
		r.MessageId,
		r.UserId,
		r.Emoji,
	)
	return err
}

func (db *PgHuddleRepository) RemoveReaction(r types.Reaction) error {
	_, err := db.conn.Exec(
		"DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3",
		r.MessageId,
		r.UserId,
		r.Emoji,
	)
	return err
}

func (db *PgHuddleRepository) UpdateReadCursor(roomId, userId string, messageId int) error {
	_, err := db.conn.Exec(
		"INSERT INTO read_cursors (room_id, user_id, message_id, updated_at) "+
			"VALUES ($1, $2, $3, $4) "+
			"ON CONFLICT (room_id, user_id) DO UPDATE SET "+
			"message_id = GREATEST(read_cursors.message_id, EXCLUDED.message_id), "+
			"updated_at = EXCLUDED.updated_at",
		roomId,
		userId,
		messageId,
		time.Now().UTC(),
	)
	return err
}

func (db *PgHuddleRepository) CreateDirectMessage(dm types.DirectMessage) (types.DirectMessage, error) {
	res := db.conn.QueryRow(
		"INSERT INTO direct_messages (from_id, to_id, content, is_read, created_at) "+
			"VALUES ($1, $2, $3, false, $4) RETURNING id, created_at",
		dm.FromId,
		dm.ToId,
		dm.Content,
		time.Now().UTC(),
	)

	err := res.Scan(&dm.Id, &dm.CreatedAt)
	return dm, err
}

func (db *PgHuddleRepository) GetDirectMessages(userId, withId string, limit int) ([]types.DirectMessage, error) {
	rows, err := db.conn.Query(
		"SELECT id, from_id, to_id, content, is_read, created_at FROM direct_messages "+
			"WHERE (from_id = $1 AND to_id = $2) OR (from_id = $2 AND to_id = $1) "+
			"ORDER BY id DESC LIMIT $3",
		userId,
		withId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dms []types.DirectMessage
	for rows.Next() {
		var dm types.DirectMessage
		if err := rows.Scan(
			&dm.Id,
			&dm.FromId,
			&dm.ToId,
			&dm.Content,
			&dm.IsRead,
			&dm.CreatedAt,
		); err != nil {
			return nil, err
		}
		dms = append(dms, dm)
	}

	for i, j := 0, len(dms)-1; i < j; i, j = i+1, j-1 {
		dms[i], dms[j] = dms[j], dms[i]
	}

	return dms, rows.Err()
}

func (db *PgHuddleRepository) MarkDirectMessagesRead(readerId, fromId string) error {
	if fromId == "" {
		_, err := db.conn.Exec(
			"UPDATE direct_messages SET is_read = true WHERE to_id = $1",
			readerId,
		)
		return err
	}

	_, err := db.conn.Exec(
		"UPDATE direct_messages SET is_read = true WHERE to_id = $1 AND from_id = $2",
		readerId,
		fromId,
	)
	return err
}

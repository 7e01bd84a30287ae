package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Message struct {
	ID                string
	RoomID            string
	AccountID         string
	VirtualProvider   string
	VirtualExternalID string
	Text              string
	SentAt            time.Time
}

// IsVirtual reports whether the message was relayed in through the
// federation bridge on behalf of an external identity.
func (m Message) IsVirtual() bool {
	return m.VirtualExternalID != ""
}

func (s *Store) InsertMessage(ctx context.Context, msg Message) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, room_id, account_id, virtual_provider, virtual_external_id, text, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			room_id = excluded.room_id,
			account_id = excluded.account_id,
			virtual_provider = excluded.virtual_provider,
			virtual_external_id = excluded.virtual_external_id,
			text = excluded.text,
			sent_at = excluded.sent_at
	`, msg.ID, msg.RoomID, msg.AccountID, msg.VirtualProvider, msg.VirtualExternalID, msg.Text, msg.SentAt.Unix())
	return err
}

func (s *Store) GetMessage(ctx context.Context, id string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, account_id, virtual_provider, virtual_external_id, text, sent_at
		FROM messages WHERE id = ?
	`, id)
	return scanMessage(row)
}

// EarliestMessageForVirtualIdentity returns the first message the platform
// ever saw from the given bridged identity. Used to derive a creation time
// for identities that have no local account record.
func (s *Store) EarliestMessageForVirtualIdentity(ctx context.Context, provider, externalID string) (Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, room_id, account_id, virtual_provider, virtual_external_id, text, sent_at
		FROM messages
		WHERE virtual_provider = ? AND virtual_external_id = ?
		ORDER BY sent_at ASC
		LIMIT 1
	`, provider, externalID)
	return scanMessage(row)
}

func (s *Store) DeleteMessage(ctx context.Context, roomID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ? AND room_id = ?`, messageID, roomID)
	return err
}

func (s *Store) DeleteMessagesByAccount(ctx context.Context, accountID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE account_id = ? AND virtual_external_id = ''`, accountID)
	return err
}

func (s *Store) DeleteMessagesByVirtualIdentity(ctx context.Context, provider, externalID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE virtual_provider = ? AND virtual_external_id = ?`, provider, externalID)
	return err
}

func scanMessage(row *sql.Row) (Message, error) {
	var msg Message
	var sent int64
	err := row.Scan(&msg.ID, &msg.RoomID, &msg.AccountID, &msg.VirtualProvider, &msg.VirtualExternalID, &msg.Text, &sent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Message{}, ErrNotFound
		}
		return Message{}, err
	}
	msg.SentAt = time.Unix(sent, 0)
	return msg, nil
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Account struct {
	ID        string
	CreatedAt time.Time
	Suspended bool
}

type Room struct {
	ID      string
	GroupID string
	Name    string
}

func (s *Store) InsertAccount(ctx context.Context, account Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, created_at, suspended)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			suspended = excluded.suspended
	`, account.ID, account.CreatedAt.Unix(), boolToInt(account.Suspended))
	return err
}

func (s *Store) GetAccount(ctx context.Context, id string) (Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, created_at, suspended FROM accounts WHERE id = ?`, id)

	var account Account
	var created int64
	var suspended int
	err := row.Scan(&account.ID, &created, &suspended)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	account.CreatedAt = time.Unix(created, 0)
	account.Suspended = suspended == 1
	return account, nil
}

func (s *Store) CreationTimestamp(ctx context.Context, accountID string) (time.Time, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return time.Time{}, err
	}
	return account.CreatedAt, nil
}

// SetSuspended flips the hellban flag. Setting it true is one-way from this
// subsystem's perspective; only administrative tooling clears it.
func (s *Store) SetSuspended(ctx context.Context, accountID string, suspended bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accounts SET suspended = ? WHERE id = ?`, boolToInt(suspended), accountID)
	return err
}

func (s *Store) InsertRoom(ctx context.Context, room Room) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rooms (id, group_id, name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			group_id = excluded.group_id,
			name = excluded.name
	`, room.ID, room.GroupID, room.Name)
	return err
}

func (s *Store) GetRoom(ctx context.Context, id string) (Room, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, group_id, name FROM rooms WHERE id = ?`, id)

	var room Room
	err := row.Scan(&room.ID, &room.GroupID, &room.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Room{}, ErrNotFound
		}
		return Room{}, err
	}
	return room, nil
}

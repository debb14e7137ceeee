package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	PasswordHash string    `json:"-"`
	RoleID       string    `json:"roleId"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetActive(ctx context.Context, id string, active bool) error
	SetRole(ctx context.Context, id, roleID string) error
}

type usersStore struct {
	db *DB
}

func NewUsersStore(db *DB) UsersStore {
	return &usersStore{db: db}
}

const userColumns = `id, email, full_name, password_hash, role_id, active, created_at, updated_at`

func (s *usersStore) Create(ctx context.Context, user *User) error {
	if strings.TrimSpace(user.ID) == "" {
		user.ID = uuid.Must(uuid.NewV4()).String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO users(id, email, full_name, password_hash, role_id, active, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`),
		user.ID, strings.ToLower(strings.TrimSpace(user.Email)), user.FullName, user.PasswordHash, user.RoleID, boolToInt(user.Active), now, now)
	return err
}

func (s *usersStore) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE id=?`), id)
	return scanUser(row)
}

func (s *usersStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+userColumns+` FROM users WHERE email=?`), strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *usersStore) SetActive(ctx context.Context, id string, active bool) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET active=?, updated_at=? WHERE id=?`), boolToInt(active), time.Now().UTC(), id)
	return err
}

func (s *usersStore) SetRole(ctx context.Context, id, roleID string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE users SET role_id=?, updated_at=? WHERE id=?`), roleID, time.Now().UTC(), id)
	return err
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	var active int
	if err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.RoleID, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Active = active == 1
	return &u, nil
}

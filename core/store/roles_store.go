package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	AccessLevel int       `json:"accessLevel"`
	IsCustom    bool      `json:"isCustom"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type RolesStore interface {
	Create(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Get(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
}

type rolesStore struct {
	db *DB
}

func NewRolesStore(db *DB) RolesStore {
	return &rolesStore{db: db}
}

const roleColumns = `id, name, description, permissions, access_level, is_custom, created_at, updated_at`

func (s *rolesStore) Create(ctx context.Context, role *Role) error {
	if strings.TrimSpace(role.ID) == "" {
		role.ID = uuid.Must(uuid.NewV4()).String()
	}
	if role.AccessLevel <= 0 {
		role.AccessLevel = 1
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO roles(id, name, description, permissions, access_level, is_custom, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`),
		role.ID, strings.TrimSpace(role.Name), role.Description, permissionsToJSON(role.Permissions), role.AccessLevel, boolToInt(role.IsCustom), now, now)
	return err
}

func (s *rolesStore) Update(ctx context.Context, role *Role) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE roles SET name=?, description=?, permissions=?, access_level=?, is_custom=?, updated_at=? WHERE id=?`),
		strings.TrimSpace(role.Name), role.Description, permissionsToJSON(role.Permissions), role.AccessLevel, boolToInt(role.IsCustom), now, role.ID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrConflict
	}
	role.UpdatedAt = now
	return nil
}

func (s *rolesStore) Get(ctx context.Context, id string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+roleColumns+` FROM roles WHERE id=?`), id)
	return scanRole(row)
}

func (s *rolesStore) GetByName(ctx context.Context, name string) (*Role, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+roleColumns+` FROM roles WHERE LOWER(name)=?`), strings.ToLower(strings.TrimSpace(name)))
	return scanRole(row)
}

func (s *rolesStore) List(ctx context.Context) ([]Role, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY access_level DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Role
	for rows.Next() {
		var r Role
		var raw string
		var custom int
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &raw, &r.AccessLevel, &custom, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Permissions = parsePermissions(raw)
		r.IsCustom = custom == 1
		res = append(res, r)
	}
	return res, rows.Err()
}

func scanRole(row *sql.Row) (*Role, error) {
	var r Role
	var raw string
	var custom int
	if err := row.Scan(&r.ID, &r.Name, &r.Description, &raw, &r.AccessLevel, &custom, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.Permissions = parsePermissions(raw)
	r.IsCustom = custom == 1
	return &r, nil
}

func permissionsToJSON(perms []string) string {
	norm := make([]string, 0, len(perms))
	seen := map[string]struct{}{}
	for _, p := range perms {
		clean := strings.ToLower(strings.TrimSpace(p))
		if clean == "" {
			continue
		}
		if _, ok := seen[clean]; ok {
			continue
		}
		seen[clean] = struct{}{}
		norm = append(norm, clean)
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func parsePermissions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var perms []string
	if err := json.Unmarshal([]byte(raw), &perms); err != nil {
		return nil
	}
	return perms
}

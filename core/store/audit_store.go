package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

type AuditEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuditStore interface {
	Add(ctx context.Context, userID, action, details string) error
	AddF(ctx context.Context, userID, action, format string, args ...any)
	ListRecent(ctx context.Context, limit int) ([]AuditEntry, error)
}

type auditStore struct {
	db *DB
}

func NewAuditStore(db *DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) Add(ctx context.Context, userID, action, details string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO audit_log(id, user_id, action, details, created_at) VALUES(?,?,?,?,?)`),
		uuid.Must(uuid.NewV4()).String(), userID, action, details, time.Now().UTC())
	return err
}

// AddF records an audit entry and swallows the error; audit is best-effort
// and must not fail the operation being audited.
func (s *auditStore) AddF(ctx context.Context, userID, action, format string, args ...any) {
	_ = s.Add(ctx, userID, action, fmt.Sprintf(format, args...))
}

func (s *auditStore) ListRecent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, user_id, action, details, created_at FROM audit_log
		ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// ErrConflict is returned when a conditional write matched no row: the
// record is not in the state the transition requires.
var ErrConflict = errors.New("conflict")

const (
	AlertStatusActive       = "active"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

const (
	AlertSeverityLow      = "low"
	AlertSeverityMedium   = "medium"
	AlertSeverityHigh     = "high"
	AlertSeverityCritical = "critical"
)

type Alert struct {
	ID             string     `json:"id"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Location       string     `json:"location"`
	TriggeredBy    string     `json:"triggeredBy"`
	Status         string     `json:"status"`
	AssignedTo     *string    `json:"assignedTo,omitempty"`
	AcknowledgedBy *string    `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedBy     *string    `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type AlertFilter struct {
	Status   string
	Severity string
	Type     string
	Search   string
	Limit    int
	Offset   int
}

type AlertsStore interface {
	CreateAlert(ctx context.Context, alert *Alert) error
	GetAlert(ctx context.Context, id string) (*Alert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, int, error)
	AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*Alert, error)
	ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*Alert, error)
	ListStaleActive(ctx context.Context, severity string, before time.Time) ([]Alert, error)
}

type alertsStore struct {
	db *DB
}

func NewAlertsStore(db *DB) AlertsStore {
	return &alertsStore{db: db}
}

const alertColumns = `id, type, severity, title, description, location, triggered_by, status, assigned_to, acknowledged_by, acknowledged_at, resolved_by, resolved_at, created_at, updated_at`

func (s *alertsStore) CreateAlert(ctx context.Context, alert *Alert) error {
	if strings.TrimSpace(alert.ID) == "" {
		alert.ID = uuid.Must(uuid.NewV4()).String()
	}
	if strings.TrimSpace(alert.Status) == "" {
		alert.Status = AlertStatusActive
	}
	now := time.Now().UTC()
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = now
	}
	alert.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO alerts(id, type, severity, title, description, location, triggered_by, status, assigned_to, acknowledged_by, acknowledged_at, resolved_by, resolved_at, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		alert.ID, alert.Type, alert.Severity, strings.TrimSpace(alert.Title), alert.Description, alert.Location, alert.TriggeredBy, alert.Status,
		nullableStr(alert.AssignedTo), nullableStr(alert.AcknowledgedBy), nullableTime(alert.AcknowledgedAt), nullableStr(alert.ResolvedBy), nullableTime(alert.ResolvedAt),
		alert.CreatedAt, alert.UpdatedAt)
	return err
}

func (s *alertsStore) GetAlert(ctx context.Context, id string) (*Alert, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+alertColumns+` FROM alerts WHERE id=?`), id)
	return scanAlertRow(row)
}

// AcknowledgeAlert performs the active->acknowledged transition as a single
// conditional write. Two concurrent callers cannot both succeed: the status
// predicate admits exactly one update, the loser gets ErrConflict.
func (s *alertsStore) AcknowledgeAlert(ctx context.Context, id, userID string, at time.Time) (*Alert, error) {
	at = at.UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE alerts SET status=?, acknowledged_by=?, acknowledged_at=?, updated_at=?
		WHERE id=? AND status=?`),
		AlertStatusAcknowledged, userID, at, at, id, AlertStatusActive)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrConflict
	}
	return s.GetAlert(ctx, id)
}

// ResolveAlert moves an alert to its terminal state from either active or
// acknowledged. acknowledged_by/at are left as-is: an alert resolved straight
// from active simply never carries them.
func (s *alertsStore) ResolveAlert(ctx context.Context, id, userID string, at time.Time) (*Alert, error) {
	at = at.UTC()
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE alerts SET status=?, resolved_by=?, resolved_at=?, updated_at=?
		WHERE id=? AND status IN (?,?)`),
		AlertStatusResolved, userID, at, at, id, AlertStatusActive, AlertStatusAcknowledged)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrConflict
	}
	return s.GetAlert(ctx, id)
}

func (s *alertsStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]Alert, int, error) {
	var clauses []string
	var args []any
	if filter.Status != "" && filter.Status != "all" {
		clauses = append(clauses, "status=?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, filter.Severity)
	}
	if filter.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, filter.Type)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		clauses = append(clauses, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?)")
		pat := "%" + strings.ToLower(q) + "%"
		args = append(args, pat, pat, pat)
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	var total int
	if err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM alerts`+where), args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := `SELECT ` + alertColumns + ` FROM alerts` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var res []Alert
	for rows.Next() {
		alert, err := scanAlertRows(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, alert)
	}
	return res, total, rows.Err()
}

func (s *alertsStore) ListStaleActive(ctx context.Context, severity string, before time.Time) ([]Alert, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT `+alertColumns+` FROM alerts
		WHERE status=? AND severity=? AND created_at < ?
		ORDER BY created_at ASC`),
		AlertStatusActive, severity, before.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Alert
	for rows.Next() {
		alert, err := scanAlertRows(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, alert)
	}
	return res, rows.Err()
}

func scanAlertRow(row *sql.Row) (*Alert, error) {
	var a Alert
	var assigned, ackBy, resBy sql.NullString
	var ackAt, resAt sql.NullTime
	if err := row.Scan(&a.ID, &a.Type, &a.Severity, &a.Title, &a.Description, &a.Location, &a.TriggeredBy, &a.Status, &assigned, &ackBy, &ackAt, &resBy, &resAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	applyAlertNullables(&a, assigned, ackBy, ackAt, resBy, resAt)
	return &a, nil
}

func scanAlertRows(rows *sql.Rows) (Alert, error) {
	var a Alert
	var assigned, ackBy, resBy sql.NullString
	var ackAt, resAt sql.NullTime
	if err := rows.Scan(&a.ID, &a.Type, &a.Severity, &a.Title, &a.Description, &a.Location, &a.TriggeredBy, &a.Status, &assigned, &ackBy, &ackAt, &resBy, &resAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return a, err
	}
	applyAlertNullables(&a, assigned, ackBy, ackAt, resBy, resAt)
	return a, nil
}

func applyAlertNullables(a *Alert, assigned, ackBy sql.NullString, ackAt sql.NullTime, resBy sql.NullString, resAt sql.NullTime) {
	if assigned.Valid && assigned.String != "" {
		a.AssignedTo = &assigned.String
	}
	if ackBy.Valid && ackBy.String != "" {
		a.AcknowledgedBy = &ackBy.String
	}
	if ackAt.Valid {
		t := ackAt.Time.UTC()
		a.AcknowledgedAt = &t
	}
	if resBy.Valid && resBy.String != "" {
		a.ResolvedBy = &resBy.String
	}
	if resAt.Valid {
		t := resAt.Time.UTC()
		a.ResolvedAt = &t
	}
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// Seed loads the demo dataset: the built-in roles, demo accounts and a
// handful of sample alerts. Idempotent: an already-seeded database is left
// untouched.
func Seed(ctx context.Context, db *DB, logger zerolog.Logger) error {
	roles := NewRolesStore(db)
	users := NewUsersStore(db)
	alerts := NewAlertsStore(db)

	existing, err := roles.GetByName(ctx, "Admin")
	if err != nil {
		return fmt.Errorf("seed check: %w", err)
	}
	if existing != nil {
		logger.Info().Msg("database already seeded, skipping")
		return nil
	}

	seedRoles := []Role{
		{
			Name:        "Admin",
			Description: "Full system access",
			AccessLevel: 10,
			Permissions: []string{
				"user.create", "user.read", "user.update", "user.delete",
				"alert.create", "alert.read", "alert.update", "alert.manage",
				"report.create", "report.read",
				"shift.read", "shift.manage",
				"floor.read", "floor.manage",
				"dashboard.read", "system.execute",
			},
		},
		{
			Name:        "HR Manager",
			Description: "People operations and reporting",
			AccessLevel: 7,
			Permissions: []string{
				"user.create", "user.read", "user.update",
				"report.create", "report.read",
				"shift.read", "shift.manage",
				"dashboard.read",
			},
		},
		{
			Name:        "Security Officer",
			Description: "Alert response and floor monitoring",
			AccessLevel: 6,
			Permissions: []string{
				"alert.read", "alert.update",
				"report.read", "user.read",
				"floor.read", "dashboard.read",
			},
		},
		{
			Name:        "Employee",
			Description: "Basic read access",
			AccessLevel: 3,
			Permissions: []string{
				"alert.read", "report.read", "dashboard.read",
			},
		},
	}
	roleIDs := map[string]string{}
	for i := range seedRoles {
		if err := roles.Create(ctx, &seedRoles[i]); err != nil {
			return fmt.Errorf("seed role %s: %w", seedRoles[i].Name, err)
		}
		roleIDs[seedRoles[i].Name] = seedRoles[i].ID
	}

	seedUsers := []struct {
		email    string
		name     string
		password string
		role     string
	}{
		{"admin@workguard360.com", "System Administrator", "Admin@123", "Admin"},
		{"hr@workguard360.com", "Harper Reyes", "Hr@12345", "HR Manager"},
		{"security@workguard360.com", "Sam Okafor", "Secure@123", "Security Officer"},
		{"employee@workguard360.com", "Evan Lindqvist", "Employee@123", "Employee"},
	}
	userIDs := map[string]string{}
	for _, su := range seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", su.email, err)
		}
		user := &User{
			Email:        su.email,
			FullName:     su.name,
			PasswordHash: string(hash),
			RoleID:       roleIDs[su.role],
			Active:       true,
		}
		if err := users.Create(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", su.email, err)
		}
		userIDs[su.email] = user.ID
	}

	officer := userIDs["security@workguard360.com"]
	now := time.Now().UTC()
	ackAt := now.Add(-45 * time.Minute)
	resolvedAt := now.Add(-20 * time.Minute)

	seedAlerts := []Alert{
		{
			Type: "emergency", Severity: AlertSeverityCritical,
			Title:       "Fire Alarm Triggered",
			Description: "Smoke detector activated in the server room",
			Location:    "Building A, Floor 3", TriggeredBy: "sensor:smoke-a3-07",
			Status: AlertStatusActive,
		},
		{
			Type: "security", Severity: AlertSeverityHigh,
			Title:       "Unauthorized Access Attempt",
			Description: "Badge reader rejected an unknown credential five times",
			Location:    "Building B, Main Entrance", TriggeredBy: "sensor:badge-b-01",
			Status: AlertStatusActive,
		},
		{
			Type: "system", Severity: AlertSeverityMedium,
			Title:       "CCTV Camera Offline",
			Description: "Camera 14 stopped responding to health checks",
			Location:    "Parking Garage, Level 2", TriggeredBy: "monitor:cctv",
			Status:         AlertStatusAcknowledged,
			AcknowledgedBy: &officer, AcknowledgedAt: &ackAt,
		},
		{
			Type: "compliance", Severity: AlertSeverityLow,
			Title:       "Visitor Log Incomplete",
			Description: "Two visitor entries are missing checkout times",
			Location:    "Reception", TriggeredBy: "audit:visitor-log",
			Status: AlertStatusActive,
		},
		{
			Type: "security", Severity: AlertSeverityMedium,
			Title:       "Tailgating Detected",
			Description: "Turnstile sensors counted two entries on one badge swipe",
			Location:    "Building A, Lobby", TriggeredBy: "sensor:turnstile-a-02",
			Status:     AlertStatusResolved,
			ResolvedBy: &officer, ResolvedAt: &resolvedAt,
		},
	}
	for i := range seedAlerts {
		if err := alerts.CreateAlert(ctx, &seedAlerts[i]); err != nil {
			return fmt.Errorf("seed alert %q: %w", seedAlerts[i].Title, err)
		}
	}

	logger.Info().
		Int("roles", len(seedRoles)).
		Int("users", len(seedUsers)).
		Int("alerts", len(seedAlerts)).
		Msg("demo dataset seeded")
	return nil
}
